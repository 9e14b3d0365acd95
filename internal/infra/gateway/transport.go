package gateway

import (
	"io"
	"log/slog"
	"net/http"
)

// retryTransport retries an idempotent request exactly once after a
// transport error or a 5xx response. Auth failures (401/403) and every
// other 4xx pass through untouched, as do requests with bodies.
type retryTransport struct {
	next   http.RoundTripper
	logger *slog.Logger
}

func newRetryTransport(next http.RoundTripper, logger *slog.Logger) http.RoundTripper {
	if next == nil {
		next = http.DefaultTransport
	}

	return &retryTransport{next: next, logger: logger}
}

func (t *retryTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	resp, err := t.next.RoundTrip(req)

	if req.Method != http.MethodGet && req.Method != http.MethodHead {
		return resp, err
	}
	if err == nil && resp.StatusCode < http.StatusInternalServerError {
		return resp, err
	}
	if req.Context().Err() != nil {
		return resp, err
	}

	if err == nil {
		// Drain so the connection can be reused for the retry.
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
		t.logger.Debug("retrying request after server error",
			slog.String("url", req.URL.String()),
			slog.Int("status", resp.StatusCode),
		)
	} else {
		t.logger.Debug("retrying request after transport error",
			slog.String("url", req.URL.String()),
			slog.Any("error", err),
		)
	}

	return t.next.RoundTrip(req)
}
