// Package identity mounts the authentication strategy selected by
// configuration and implements the cookie-session identity provider.
package identity

import (
	"context"
	"log/slog"
	"sync"

	"stride/internal/domain/entity"
	domainerrors "stride/internal/domain/errors"
	"stride/internal/domain/service"
	"stride/internal/infra/gateway"

	"github.com/pkg/errors"
)

// SessionProvider derives the current user from a server-validated cookie
// session. It is the only identity strategy in session mode and the
// fallback path in hybrid mode.
type SessionProvider struct {
	client *gateway.Client
	logger *slog.Logger

	mu      sync.RWMutex
	session entity.AuthSession
}

// NewSessionProvider is the constructor for SessionProvider.
func NewSessionProvider(client *gateway.Client, logger *slog.Logger) *SessionProvider {
	return &SessionProvider{
		client: client,
		logger: logger,
		session: entity.AuthSession{
			IsLoading: true,
			Mode:      entity.AuthModeSession,
		},
	}
}

// Mode implements service.IdentityProvider.
func (p *SessionProvider) Mode() entity.AuthMode {
	return entity.AuthModeSession
}

// Session returns the current session snapshot.
func (p *SessionProvider) Session() entity.AuthSession {
	p.mu.RLock()
	defer p.mu.RUnlock()

	return p.session
}

// ResolveIdentity runs the cookie session check. Any failure (network,
// 401, malformed body) is the normal logged-out state and is swallowed.
func (p *SessionProvider) ResolveIdentity(ctx context.Context) entity.AuthSession {
	user := p.checkSession(ctx)
	p.setUser(user)
	p.setLoading(false)

	return p.Session()
}

// Login authenticates against the login endpoint. Failures propagate to
// the caller, which owns the form-level error display.
func (p *SessionProvider) Login(ctx context.Context, email, password string) (*entity.User, error) {
	body := map[string]string{"email": email, "password": password}

	var user entity.User
	if err := p.client.Post(ctx, "/auth/login", body, &user, gateway.WithoutBearer()); err != nil {
		if gateway.IsAuthFailure(err) {
			return nil, domainerrors.ErrInvalidCredentials.WrapMessage("login rejected")
		}

		return nil, errors.Wrap(err, "login request failed")
	}

	p.setUser(&user)
	p.setLoading(false)

	return &user, nil
}

// Logout calls the logout endpoint and clears the local user regardless
// of the outcome, so the UI never stays in an authenticated-looking state.
func (p *SessionProvider) Logout(ctx context.Context) error {
	err := p.client.Post(ctx, "/auth/logout", nil, nil, gateway.WithoutBearer())
	p.setUser(nil)

	if err != nil {
		p.logger.Warn("logout request failed, local session cleared anyway", slog.Any("error", err))

		return errors.Wrap(err, "logout request failed")
	}

	return nil
}

// Refresh re-runs the session check, toggling the loading flag around it.
func (p *SessionProvider) Refresh(ctx context.Context) entity.AuthSession {
	p.setLoading(true)

	return p.ResolveIdentity(ctx)
}

// Credential implements service.IdentityProvider. Cookies carry the whole
// credential in session mode, so there is never a bearer token.
func (p *SessionProvider) Credential(ctx context.Context) (string, error) {
	return "", nil
}

func (p *SessionProvider) checkSession(ctx context.Context) *entity.User {
	var user entity.User
	if err := p.client.Get(ctx, "/auth/me", nil, &user, gateway.WithoutBearer()); err != nil {
		p.logger.Debug("session check failed, continuing anonymous", slog.Any("error", err))

		return nil
	}

	return &user
}

func (p *SessionProvider) setUser(user *entity.User) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.session.User = user
}

func (p *SessionProvider) setLoading(loading bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.session.IsLoading = loading
}

var _ service.IdentityProvider = (*SessionProvider)(nil)
