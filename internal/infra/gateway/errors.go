package gateway

import (
	"fmt"
	"net/http"

	"stride/internal/errors"
)

// StatusError is a non-2xx response passed through to the caller.
type StatusError struct {
	StatusCode int
	URL        string
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s returned status %d", e.URL, e.StatusCode)
}

// IsStatus reports whether err carries the given HTTP status code.
func IsStatus(err error, code int) bool {
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.StatusCode == code
	}

	return false
}

// IsAuthFailure reports whether err is a 401 or 403 response. Auth
// failures get zero retries anywhere in the stack.
func IsAuthFailure(err error) bool {
	return IsStatus(err, http.StatusUnauthorized) || IsStatus(err, http.StatusForbidden)
}
