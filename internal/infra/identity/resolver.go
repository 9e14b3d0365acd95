package identity

import (
	"context"
	"log/slog"

	"stride/config"
	"stride/internal/domain/entity"
	"stride/internal/domain/service"
	"stride/internal/infra/gateway"
	"stride/internal/infra/identity/external"

	"go.uber.org/fx"
)

// Params holds dependencies for the identity strategy, injected by Fx
type Params struct {
	fx.In

	Lc     fx.Lifecycle
	Config *config.Config
	Logger *slog.Logger
	Client *gateway.Client
}

// NewProvider resolves the effective authentication mode once and mounts
// exactly one identity strategy for the process lifetime. The external
// strategy and its token service are only constructed when the resolved
// mode requires them, so an unused third-party client is never touched.
func NewProvider(params Params) (service.IdentityProvider, error) {
	requested := params.Config.Auth.Mode
	mode := entity.ResolveAuthMode(requested, params.Config.HasExternalKey())

	if requested != "" && requested != string(mode) {
		params.Logger.Info("external provider key absent, degrading to session mode",
			slog.String("requested", requested),
		)
	}

	if mode == entity.AuthModeSession {
		params.Logger.Info("mounting cookie-session identity provider")

		provider := NewSessionProvider(params.Client, params.Logger)
		params.Client.Credentials().Resolve(service.NoCredential)

		return provider, nil
	}

	params.Logger.Info("mounting external identity provider", slog.String("mode", string(mode)))

	tokens, err := external.NewFileTokenService(params.Config.External.TokenFile, params.Logger)
	if err != nil {
		return nil, err
	}

	verifier := external.NewVerifier(params.Config.External.ClientKey, params.Config.External.Issuer)
	provider := external.NewProvider(params.Client, tokens, verifier, mode, params.Logger)
	params.Client.Credentials().Resolve(provider.Credential)

	runCtx, cancel := context.WithCancel(context.Background())
	params.Lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			provider.Start(runCtx)

			return nil
		},
		OnStop: func(context.Context) error {
			cancel()

			return tokens.Close()
		},
	})

	return provider, nil
}
