package cache

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"stride/internal/domain/service"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// webhookNotifier implements SyncNotifier by POSTing terminal events to a
// local HTTP endpoint, typically a dashboard dev server that turns them
// into toasts.
type webhookNotifier struct {
	endpoint   string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewWebhookNotifier creates a SyncNotifier over the given endpoint.
func NewWebhookNotifier(endpoint string, logger *slog.Logger) service.SyncNotifier {
	return &webhookNotifier{
		endpoint: endpoint,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger: logger,
	}
}

// NotifySyncTerminal publishes the event by sending HTTP POST to the
// configured endpoint.
func (n *webhookNotifier) NotifySyncTerminal(ctx context.Context, event *service.SyncTerminalEvent) error {
	if event.RequestID == "" {
		event.RequestID = uuid.New().String()
	}

	body, err := json.Marshal(event)
	if err != nil {
		return errors.WithStack(err)
	}

	n.logger.Info("[SyncWebhook] Publishing terminal event",
		slog.String("endpoint", n.endpoint),
		slog.String("outcome", string(event.Outcome)),
	)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, bytes.NewReader(body))
	if err != nil {
		return errors.WithStack(err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Request-Id", event.RequestID)

	resp, err := n.httpClient.Do(req)
	if err != nil {
		return errors.WithStack(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return errors.Errorf("webhook returned non-success status: %d", resp.StatusCode)
	}

	return nil
}

// Close releases resources (no-op for HTTP client).
func (n *webhookNotifier) Close() error {
	return nil
}
