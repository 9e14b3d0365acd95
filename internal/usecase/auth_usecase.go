// Package usecase contains the application-specific business rules.
// It orchestrates the domain layer to perform tasks.
package usecase

import (
	"context"

	"stride/internal/domain/entity"
)

// --- Input DTOs ---

// LoginInput defines the data required for a user to log in.
type LoginInput struct {
	Email    string `validate:"required,email"`
	Password string `validate:"required,min=1"`
}

// --- Output DTOs ---

// LoginOutput returns the authenticated user after a successful login.
type LoginOutput struct {
	User *entity.User
}

// AuthUsecase defines the interface for identity-related business
// operations. This is the contract the delivery layer and the CLI depend
// on; it fronts whichever identity strategy the resolver mounted.
type AuthUsecase interface {
	// Resolve performs the initial identity resolution. The returned
	// session is anonymous on failure; resolution never errors.
	Resolve(ctx context.Context) entity.AuthSession

	// Session returns the current session snapshot.
	Session() entity.AuthSession

	// Login validates the input and authenticates. Failures propagate so
	// the caller can render them inline.
	Login(ctx context.Context, input LoginInput) (*LoginOutput, error)

	// Logout ends the session, always clearing the local user.
	Logout(ctx context.Context) error

	// Refresh re-runs the identity resolution.
	Refresh(ctx context.Context) entity.AuthSession
}
