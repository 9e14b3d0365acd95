// Package service defines the domain service contracts implemented by the
// infrastructure layer and consumed by the use cases.
package service

import (
	"context"

	"stride/internal/domain/entity"
)

// IdentityProvider owns the logic for determining "who is the current
// user" via one specific mechanism. Exactly one concrete strategy (cookie
// session or third-party token) is mounted per process, selected from
// configuration at startup.
type IdentityProvider interface {
	// Mode returns the effective authentication mode this provider serves.
	Mode() entity.AuthMode

	// ResolveIdentity performs the initial identity resolution and returns
	// the resulting session. A failed resolution is the normal logged-out
	// state, never an error: the session comes back anonymous.
	ResolveIdentity(ctx context.Context) entity.AuthSession

	// Session returns the current session snapshot.
	Session() entity.AuthSession

	// Login authenticates with email and password where the mode supports
	// it. Failures propagate to the caller, which owns the user-visible
	// messaging.
	Login(ctx context.Context, email, password string) (*entity.User, error)

	// Logout ends the session. The local user is cleared even when the
	// network call fails; logout must never leave an authenticated-looking
	// state behind.
	Logout(ctx context.Context) error

	// Refresh re-runs the identity resolution, toggling the loading flag
	// around the call.
	Refresh(ctx context.Context) entity.AuthSession

	// Credential returns the bearer token for outbound requests, or an
	// empty string when none applies. Implementations must not propagate
	// token-fetch failures; requests proceed unauthenticated instead.
	Credential(ctx context.Context) (string, error)
}

// CredentialSource supplies a bearer token for outbound requests when one
// is required. An empty token means the request goes out without an
// Authorization header.
type CredentialSource func(ctx context.Context) (string, error)

// NoCredential is the source registered in session mode, where cookies
// carry the whole credential.
func NoCredential(ctx context.Context) (string, error) {
	return "", nil
}
