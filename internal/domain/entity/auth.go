// Package entity contains the core business objects of the project,
// each representing a unique, identifiable concept within the domain.
package entity

import (
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// AuthMode identifies which authentication backend is active for the
// lifetime of the process. Exactly one identity provider is mounted per
// process, derived once from configuration at startup.
type AuthMode string

const (
	// AuthModeSession authenticates with a server-validated cookie session only.
	AuthModeSession AuthMode = "session"
	// AuthModeExternal authenticates with a third-party token provider only.
	AuthModeExternal AuthMode = "external"
	// AuthModeHybrid prefers token identity and falls back to the cookie
	// session when the external provider reports no signed-in user.
	AuthModeHybrid AuthMode = "hybrid"
)

// ParseAuthMode converts a configuration string into an AuthMode.
func ParseAuthMode(s string) (AuthMode, error) {
	switch AuthMode(s) {
	case AuthModeSession, AuthModeExternal, AuthModeHybrid:
		return AuthMode(s), nil
	case "":
		return AuthModeSession, nil
	default:
		return "", errors.Errorf("unknown auth mode: %s", s)
	}
}

// ResolveAuthMode derives the effective mode from the requested mode and
// the presence of an external provider key. Without a key, external and
// hybrid silently degrade to session; an absent key is a valid deployment
// state, not an error.
func ResolveAuthMode(requested string, hasExternalKey bool) AuthMode {
	mode, err := ParseAuthMode(requested)
	if err != nil {
		return AuthModeSession
	}
	if !hasExternalKey {
		return AuthModeSession
	}

	return mode
}

// RequiresToken reports whether this mode attaches bearer credentials to
// outbound requests.
func (m AuthMode) RequiresToken() bool {
	return m == AuthModeExternal || m == AuthModeHybrid
}

// User is the backend identity resolved from a cookie session or a bearer
// token via the identity-check endpoint.
type User struct {
	ID        uuid.UUID `json:"id"`         // Backend user identifier.
	Email     string    `json:"email"`      // Login identifier and contact address.
	Name      string    `json:"name"`       // Display name.
	AvatarURL string    `json:"avatar_url"` // Optional profile picture URL.
	CreatedAt time.Time `json:"created_at"` // Account creation timestamp.
}

// AuthSession is the current identity state, mutated only by the active
// identity provider and read by every other component.
type AuthSession struct {
	User      *User    // nil while anonymous.
	IsLoading bool     // true until the first resolution attempt completes.
	Mode      AuthMode // fixed for the process lifetime.
}

// IsAuthenticated is true iff a user has been resolved.
func (s AuthSession) IsAuthenticated() bool {
	return s.User != nil
}
