package service

import "time"

// Clock abstracts wall time and timer scheduling so the sync watcher's
// timeout and dedup logic are unit-testable without real sleeps.
type Clock interface {
	Now() time.Time
	After(d time.Duration) <-chan time.Time
}
