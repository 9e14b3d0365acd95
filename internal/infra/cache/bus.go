// Package cache provides the in-process invalidation bus and the outward
// sync notification channel.
package cache

import (
	"log/slog"
	"sync"

	"stride/internal/domain/service"
)

// memoryBus is the in-process InvalidationBus. Staleness is a flag per
// key; subscribers get best-effort change notifications.
type memoryBus struct {
	logger *slog.Logger

	mu          sync.RWMutex
	stale       map[service.CacheKey]bool
	subscribers []chan service.CacheKey
	closed      bool
}

// NewBus returns an empty invalidation bus.
func NewBus(logger *slog.Logger) service.InvalidationBus {
	return &memoryBus{
		logger: logger,
		stale:  make(map[service.CacheKey]bool),
	}
}

// MarkStale flags the keys and fans the change out to subscribers.
// Delivery never blocks: a full subscriber channel drops the
// notification, the staleness flag itself is still set.
func (b *memoryBus) MarkStale(keys ...service.CacheKey) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}

	for _, key := range keys {
		b.stale[key] = true

		for _, sub := range b.subscribers {
			select {
			case sub <- key:
			default:
				b.logger.Debug("invalidation subscriber not draining, dropping notification",
					slog.String("key", string(key)),
				)
			}
		}
	}
}

func (b *memoryBus) IsStale(key service.CacheKey) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()

	return b.stale[key]
}

func (b *memoryBus) MarkFetched(key service.CacheKey) {
	b.mu.Lock()
	defer b.mu.Unlock()

	delete(b.stale, key)
}

func (b *memoryBus) Subscribe() <-chan service.CacheKey {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch := make(chan service.CacheKey, 16)
	if b.closed {
		close(ch)

		return ch
	}

	b.subscribers = append(b.subscribers, ch)

	return ch
}

func (b *memoryBus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil
	}
	b.closed = true

	for _, sub := range b.subscribers {
		close(sub)
	}
	b.subscribers = nil

	return nil
}
