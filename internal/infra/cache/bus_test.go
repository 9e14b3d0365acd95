package cache

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"stride/internal/domain/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestBus_MarkStaleAndFetched(t *testing.T) {
	bus := NewBus(discardLogger())
	defer bus.Close()

	assert.False(t, bus.IsStale(service.CacheKeyDashboard))

	bus.MarkStale(service.SyncDependentKeys()...)

	for _, key := range service.SyncDependentKeys() {
		assert.True(t, bus.IsStale(key), string(key))
	}

	bus.MarkFetched(service.CacheKeyDashboard)

	assert.False(t, bus.IsStale(service.CacheKeyDashboard))
	assert.True(t, bus.IsStale(service.CacheKeyActivities), "other keys stay flagged")
}

func TestBus_SubscriberReceivesKeys(t *testing.T) {
	bus := NewBus(discardLogger())
	defer bus.Close()

	sub := bus.Subscribe()

	bus.MarkStale(service.CacheKeySyncStatus, service.CacheKeySyncHistory)

	assert.Equal(t, service.CacheKeySyncStatus, <-sub)
	assert.Equal(t, service.CacheKeySyncHistory, <-sub)
}

func TestBus_SlowSubscriberDoesNotBlock(t *testing.T) {
	bus := NewBus(discardLogger())
	defer bus.Close()

	// Never drained; capacity 16.
	bus.Subscribe()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 100; i++ {
			bus.MarkStale(service.CacheKeyDashboard)
		}
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("MarkStale blocked on a slow subscriber")
	}

	assert.True(t, bus.IsStale(service.CacheKeyDashboard), "the flag is set even when delivery is dropped")
}

func TestBus_CloseEndsSubscriptions(t *testing.T) {
	bus := NewBus(discardLogger())
	sub := bus.Subscribe()

	require.NoError(t, bus.Close())

	_, open := <-sub
	assert.False(t, open)

	// Idempotent; post-close operations are no-ops.
	require.NoError(t, bus.Close())
	bus.MarkStale(service.CacheKeyDashboard)
	assert.False(t, bus.IsStale(service.CacheKeyDashboard))
}

func TestWebhookNotifier_PostsTerminalEvent(t *testing.T) {
	received := make(chan service.SyncTerminalEvent, 1)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NotEmpty(t, r.Header.Get("X-Request-Id"))

		var event service.SyncTerminalEvent
		require.NoError(t, json.NewDecoder(r.Body).Decode(&event))
		received <- event
	}))
	defer server.Close()

	notifier := NewWebhookNotifier(server.URL, discardLogger())
	defer notifier.Close()

	err := notifier.NotifySyncTerminal(context.Background(), &service.SyncTerminalEvent{
		Outcome:    service.SyncOutcomeCompleted,
		FinishedAt: time.Now(),
		Elapsed:    9 * time.Second,
	})

	require.NoError(t, err)
	event := <-received
	assert.Equal(t, service.SyncOutcomeCompleted, event.Outcome)
	assert.Empty(t, event.Error)
}

func TestWebhookNotifier_NonSuccessStatusIsAnError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	notifier := NewWebhookNotifier(server.URL, discardLogger())

	err := notifier.NotifySyncTerminal(context.Background(), &service.SyncTerminalEvent{
		Outcome: service.SyncOutcomeErrored,
		Error:   "garmin backend unavailable",
	})

	assert.Error(t, err)
}
