package middleware

import (
	"log/slog"
	"strings"

	"stride/internal/delivery/devstub"
	"stride/internal/domain/entity"
	domainerrors "stride/internal/domain/errors"

	"github.com/labstack/echo/v4"
)

const userContextKey = "user"

// AuthMiddleware resolves the current user from either the session
// cookie or a bearer ID token, mirroring the hybrid acceptance of the
// real backend.
type AuthMiddleware struct {
	store  *devstub.Store
	logger *slog.Logger
}

// NewAuthMiddleware creates a new authentication middleware
func NewAuthMiddleware(store *devstub.Store, logger *slog.Logger) *AuthMiddleware {
	return &AuthMiddleware{
		store:  store,
		logger: logger,
	}
}

// Authenticate rejects requests carrying neither a valid session cookie
// nor a parseable bearer token.
func (m *AuthMiddleware) Authenticate(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if user, ok := m.resolveUser(c); ok {
			c.Set(userContextKey, user)

			return next(c)
		}

		return domainerrors.ErrUnauthorized
	}
}

func (m *AuthMiddleware) resolveUser(c echo.Context) (*entity.User, bool) {
	if cookie, err := c.Cookie(devstub.SessionCookieName); err == nil && cookie.Value != "" {
		user, err := m.store.VerifySession(cookie.Value)
		if err == nil {
			return user, true
		}
		m.logger.Debug("Session cookie rejected", slog.Any("error", err))
	}

	header := c.Request().Header.Get(echo.HeaderAuthorization)
	if raw, ok := strings.CutPrefix(header, "Bearer "); ok && raw != "" {
		user, err := m.store.UserFromIDToken(raw)
		if err == nil {
			return user, true
		}
		m.logger.Debug("Bearer token rejected", slog.Any("error", err))
	}

	return nil, false
}

// CurrentUser returns the user the Authenticate middleware resolved.
func CurrentUser(c echo.Context) (*entity.User, error) {
	user, ok := c.Get(userContextKey).(*entity.User)
	if !ok || user == nil {
		return nil, domainerrors.ErrUnauthorized
	}

	return user, nil
}
