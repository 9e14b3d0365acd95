package external

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

// Provider is the token-based identity strategy. It wraps the external
// identity service, resolves the backend user with an attached ID token,
// and in hybrid mode falls back to the cookie session when the service
// reports no signed-in user.
type Provider struct {
	client   *gateway.Client
	tokens   TokenService
	verifier *Verifier
	logger   *slog.Logger
	hybrid   bool

	mu      sync.RWMutex
	session entity.AuthSession
}

// NewProvider is the constructor for Provider. mode must be external or
// hybrid; the resolver guarantees that.
func NewProvider(client *gateway.Client, tokens TokenService, verifier *Verifier, mode entity.AuthMode, logger *slog.Logger) *Provider {
	return &Provider{
		client:   client,
		tokens:   tokens,
		verifier: verifier,
		logger:   logger,
		hybrid:   mode == entity.AuthModeHybrid,
		session: entity.AuthSession{
			IsLoading: true,
			Mode:      mode,
		},
	}
}

// Mode implements service.IdentityProvider.
func (p *Provider) Mode() entity.AuthMode {
	p.mu.RLock()
	defer p.mu.RUnlock()

	return p.session.Mode
}

// Session returns the current session snapshot.
func (p *Provider) Session() entity.AuthSession {
	p.mu.RLock()
	defer p.mu.RUnlock()

	return p.session
}

// Start resolves the initial identity and then reacts to the external
// service's own sign-in/sign-out events until ctx is cancelled.
func (p *Provider) Start(ctx context.Context) {
	go p.run(ctx)
}

func (p *Provider) run(ctx context.Context) {
	p.ResolveIdentity(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-p.tokens.Events():
			if !ok {
				return
			}
			switch event.Kind {
			case EventSignedIn:
				p.logger.Info("external provider reported sign-in, resolving backend user")
				p.resolveWithToken(ctx)
			case EventSignedOut:
				// Immediate, no network round-trip.
				p.logger.Info("external provider reported sign-out, clearing user")
				p.setUser(nil)
			}
		}
	}
}

// ResolveIdentity gates on the external service's readiness, then derives
// the backend user. isLoading stays true until the service has finished
// its own initial resolution.
func (p *Provider) ResolveIdentity(ctx context.Context) entity.AuthSession {
	select {
	case <-p.tokens.Ready():
	case <-ctx.Done():
		return p.Session()
	}

	switch {
	case p.tokens.SignedIn():
		p.resolveWithToken(ctx)
	case p.hybrid:
		// Hybrid mode: a signed-out external provider does not yet mean
		// anonymous; the cookie session gets one chance first.
		p.resolveWithCookies(ctx)
	default:
		p.setUser(nil)
	}

	p.setLoading(false)

	return p.Session()
}

// Login authenticates the cookie session in hybrid mode. In pure external
// mode the provider owns the whole sign-in flow and password login does
// not apply.
func (p *Provider) Login(ctx context.Context, email, password string) (*entity.User, error) {
	if !p.hybrid {
		return nil, domainerrors.ErrPasswordLoginUnavailable
	}

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

// Logout signs out of the external service, best-effort ends the cookie
// session in hybrid mode, and always clears the local user.
func (p *Provider) Logout(ctx context.Context) error {
	err := p.tokens.SignOut(ctx)

	if p.hybrid {
		if cookieErr := p.client.Post(ctx, "/auth/logout", nil, nil, gateway.WithoutBearer()); cookieErr != nil {
			p.logger.Warn("cookie logout failed", slog.Any("error", cookieErr))
		}
	}

	p.setUser(nil)

	return errors.Wrap(err, "external sign-out")
}

// Refresh re-runs the resolution, toggling the loading flag around it.
func (p *Provider) Refresh(ctx context.Context) entity.AuthSession {
	p.setLoading(true)

	return p.ResolveIdentity(ctx)
}

// Credential returns the current ID token for outbound requests. It never
// returns an error: failures are logged and the caller falls back to
// unauthenticated or cookie behavior.
func (p *Provider) Credential(ctx context.Context) (string, error) {
	token, err := p.tokens.IDToken(ctx)
	if err != nil {
		p.logger.Debug("no ID token available", slog.Any("error", err))

		return "", nil
	}

	if _, err := p.verifier.ParseAndVerify(token); err != nil {
		p.logger.Debug("not attaching invalid ID token", slog.Any("error", err))

		return "", nil
	}

	return token, nil
}

func (p *Provider) resolveWithToken(ctx context.Context) {
	token, err := p.tokens.IDToken(ctx)
	if err != nil {
		p.logger.Warn("token fetch failed during resolution", slog.Any("error", err))
		p.setUser(nil)

		return
	}

	claims, err := p.verifier.ParseAndVerify(token)
	if err != nil {
		p.logger.Warn("ID token rejected during resolution", slog.Any("error", err))
		p.setUser(nil)

		return
	}

	var user entity.User
	if err := p.client.Get(ctx, "/auth/me", nil, &user, gateway.WithBearer(token)); err != nil {
		p.logger.Warn("identity check with bearer token failed",
			slog.String("subject", claims.Subject),
			slog.Any("error", err),
		)
		p.setUser(nil)

		return
	}

	p.setUser(&user)
}

func (p *Provider) resolveWithCookies(ctx context.Context) {
	var user entity.User
	if err := p.client.Get(ctx, "/auth/me", nil, &user, gateway.WithoutBearer()); err != nil {
		p.logger.Debug("cookie fallback check failed, continuing anonymous", slog.Any("error", err))
		p.setUser(nil)

		return
	}

	p.setUser(&user)
}

func (p *Provider) setUser(user *entity.User) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.session.User = user
}

func (p *Provider) setLoading(loading bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.session.IsLoading = loading
}

var _ service.IdentityProvider = (*Provider)(nil)
