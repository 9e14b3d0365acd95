package usecase

import "context"

// TerminalHooks are the callbacks a consuming view registers for the
// three ways a watched sync job can end. Exactly one hook fires per
// watched job.
type TerminalHooks struct {
	// OnComplete fires when the job stops running with no remote error.
	OnComplete func()

	// OnError fires when the job stops running with a remote error
	// message. The job is not retried automatically.
	OnError func(message string)

	// OnTimeout fires when the client gives up waiting. The remote job may
	// still be running; the client just stops watching it.
	OnTimeout func()
}

// SyncWatchUsecase turns a one-shot sync trigger plus repeated status
// fetches into a bounded-duration job lifecycle with exactly one terminal
// notification.
type SyncWatchUsecase interface {
	// SetHooks registers the terminal callbacks. Call before Start.
	SetHooks(hooks TerminalHooks)

	// Start arms the watcher: status is fetched on a fixed interval until
	// a terminal state is observed or ctx is cancelled. Starting while
	// already watching is a no-op. Restarting after a terminal event
	// begins a fresh lifecycle.
	Start(ctx context.Context) error

	// Stop cancels the watcher without firing a terminal hook. In-flight
	// status responses are discarded.
	Stop()

	// Watching reports whether a watch loop is currently armed.
	Watching() bool
}
