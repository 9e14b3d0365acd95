// Package impl contains the application-specific business rules implementations.
package impl

import (
	"context"
	"log/slog"

	"stride/internal/domain/entity"
	domainerrors "stride/internal/domain/errors"
	"stride/internal/domain/service"
	"stride/internal/usecase"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"go.uber.org/fx"
)

// authService implements the AuthUsecase interface by delegating to the
// identity strategy the resolver mounted.
type authService struct {
	provider service.IdentityProvider
	validate *validator.Validate
	logger   *slog.Logger
}

// AuthParams holds dependencies for authService, injected by Fx.
type AuthParams struct {
	fx.In

	Provider service.IdentityProvider
	Logger   *slog.Logger
}

// NewAuthService is the constructor for authService.
func NewAuthService(params AuthParams) usecase.AuthUsecase {
	return &authService{
		provider: params.Provider,
		validate: validator.New(),
		logger:   params.Logger,
	}
}

// Resolve performs the initial identity resolution.
func (srv *authService) Resolve(ctx context.Context) entity.AuthSession {
	srv.logger.Debug("Resolving identity", "mode", string(srv.provider.Mode()))

	return srv.provider.ResolveIdentity(ctx)
}

// Session returns the current session snapshot.
func (srv *authService) Session() entity.AuthSession {
	return srv.provider.Session()
}

// Login validates the input and authenticates through the mounted
// strategy. Failures propagate; the caller owns the inline messaging.
func (srv *authService) Login(ctx context.Context, input usecase.LoginInput) (*usecase.LoginOutput, error) {
	if err := srv.validate.Struct(input); err != nil {
		return nil, domainerrors.ErrValidationFailed.WithDetails(err.Error())
	}

	user, err := srv.provider.Login(ctx, input.Email, input.Password)
	if err != nil {
		srv.logger.Warn("Login failed", "email", input.Email, "error", err)

		return nil, errors.Wrap(err, "login")
	}

	srv.logger.Info("Login succeeded", "email", input.Email)

	return &usecase.LoginOutput{User: user}, nil
}

// Logout ends the session. The local user is cleared even when the call
// fails.
func (srv *authService) Logout(ctx context.Context) error {
	return errors.Wrap(srv.provider.Logout(ctx), "logout")
}

// Refresh re-runs the identity resolution.
func (srv *authService) Refresh(ctx context.Context) entity.AuthSession {
	return srv.provider.Refresh(ctx)
}
