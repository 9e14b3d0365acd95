package service

// CacheKey names a read model whose cached data can go stale when a sync
// terminates.
type CacheKey string

const (
	CacheKeyDashboard   CacheKey = "dashboard"
	CacheKeyActivities  CacheKey = "activities"
	CacheKeySyncStatus  CacheKey = "garmin-sync/status"
	CacheKeySyncHistory CacheKey = "garmin-sync/history"
)

// SyncDependentKeys lists every cache key invalidated by a terminal sync
// event or a settled sync trigger.
func SyncDependentKeys() []CacheKey {
	return []CacheKey{
		CacheKeySyncStatus,
		CacheKeySyncHistory,
		CacheKeyDashboard,
		CacheKeyActivities,
	}
}

// InvalidationBus marks dependent read models stale so views refetch
// lazily on their own cadence. It removes cached validity; it never forces
// a synchronous refetch.
type InvalidationBus interface {
	// MarkStale flags the given keys and notifies subscribers.
	MarkStale(keys ...CacheKey)

	// IsStale reports whether a key is currently flagged.
	IsStale(key CacheKey) bool

	// MarkFetched clears a key after its owning view has refetched.
	MarkFetched(key CacheKey)

	// Subscribe returns a channel receiving each key as it goes stale.
	// Delivery is best-effort: a subscriber that is not draining its
	// channel misses notifications rather than blocking the bus.
	Subscribe() <-chan CacheKey

	Close() error
}
