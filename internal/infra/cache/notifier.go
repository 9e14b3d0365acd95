package cache

import (
	"context"
	"log/slog"

	"stride/config"
	"stride/internal/domain/service"

	"go.uber.org/fx"
)

// noopNotifier is used when no webhook endpoint is configured.
type noopNotifier struct {
	logger *slog.Logger
}

func (n *noopNotifier) NotifySyncTerminal(ctx context.Context, event *service.SyncTerminalEvent) error {
	n.logger.Debug("[NoopNotifier] No webhook configured, skipping",
		slog.String("outcome", string(event.Outcome)),
	)

	return nil
}

func (n *noopNotifier) Close() error {
	return nil
}

// NotifierParams holds dependencies for SyncNotifier, injected by Fx.
type NotifierParams struct {
	fx.In

	Lc     fx.Lifecycle
	Config *config.Config
	Logger *slog.Logger
}

// NewSyncNotifier creates a SyncNotifier based on configuration.
func NewSyncNotifier(params NotifierParams) service.SyncNotifier {
	cfg := params.Config.Invalidation
	logger := params.Logger

	var notifier service.SyncNotifier
	if cfg == nil || cfg.WebhookEndpoint == "" {
		logger.Info("Sync webhook not configured, using no-op notifier")
		notifier = &noopNotifier{logger: logger}
	} else {
		logger.Info("Using webhook notifier for terminal sync events",
			slog.String("endpoint", cfg.WebhookEndpoint),
		)
		notifier = NewWebhookNotifier(cfg.WebhookEndpoint, logger)
	}

	params.Lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			logger.Info("Closing SyncNotifier")

			return notifier.Close()
		},
	})

	return notifier
}
