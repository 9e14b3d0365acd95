package service

import (
	"context"
	"time"
)

// SyncOutcome is the terminal state of one watched sync job.
type SyncOutcome string

const (
	SyncOutcomeCompleted SyncOutcome = "completed"
	SyncOutcomeErrored   SyncOutcome = "errored"
	SyncOutcomeTimedOut  SyncOutcome = "timed-out"
)

// SyncTerminalEvent describes one observed job termination.
type SyncTerminalEvent struct {
	Outcome    SyncOutcome   `json:"outcome"`
	Error      string        `json:"error,omitempty"`
	RequestID  string        `json:"request_id,omitempty"`
	FinishedAt time.Time     `json:"finished_at"`
	Elapsed    time.Duration `json:"elapsed"`
}

// SyncNotifier pushes terminal sync events to an external receiver, such
// as a local dashboard dev server. The in-process invalidation bus is
// always notified separately; this is the outward channel.
type SyncNotifier interface {
	NotifySyncTerminal(ctx context.Context, event *SyncTerminalEvent) error
	Close() error
}
