package impl

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"stride/config"
	"stride/internal/domain/entity"
	"stride/internal/domain/service"
	"stride/internal/usecase"

	"go.uber.org/fx"
)

const (
	defaultWatchInterval = 3 * time.Second
	defaultWatchTimeout  = 5 * time.Minute
)

// watchService implements the SyncWatchUsecase interface: a four-state
// machine (idle, polling, terminal, back to idle) driven by repeated
// status fetches on an injected clock.
//
// pollStartedAt doubles as the state marker: zero means no job has been
// observed running yet. The generation counter guards cancellation, so a
// status response that was in flight when Stop was called can never
// mutate the state of a later watch.
type watchService struct {
	syncs    usecase.SyncUsecase
	bus      service.InvalidationBus
	notifier service.SyncNotifier
	clock    service.Clock
	interval time.Duration
	timeout  time.Duration
	logger   *slog.Logger

	mu            sync.Mutex
	hooks         usecase.TerminalHooks
	watching      bool
	generation    uint64
	armedAt       time.Time
	pollStartedAt time.Time
	cancel        context.CancelFunc
}

// WatchParams holds dependencies for watchService, injected by Fx.
type WatchParams struct {
	fx.In

	Lc       fx.Lifecycle
	Config   *config.Config
	Sync     usecase.SyncUsecase
	Bus      service.InvalidationBus
	Notifier service.SyncNotifier
	Clock    service.Clock
	Logger   *slog.Logger
}

// NewWatchService is the constructor for watchService.
func NewWatchService(params WatchParams) usecase.SyncWatchUsecase {
	interval := defaultWatchInterval
	timeout := defaultWatchTimeout
	if params.Config.Sync != nil {
		if params.Config.Sync.PollInterval > 0 {
			interval = params.Config.Sync.PollInterval
		}
		if params.Config.Sync.PollTimeout > 0 {
			timeout = params.Config.Sync.PollTimeout
		}
	}

	srv := &watchService{
		syncs:    params.Sync,
		bus:      params.Bus,
		notifier: params.Notifier,
		clock:    params.Clock,
		interval: interval,
		timeout:  timeout,
		logger:   params.Logger,
	}

	params.Lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			srv.Stop()

			return nil
		},
	})

	return srv
}

// SetHooks registers the terminal callbacks.
func (srv *watchService) SetHooks(hooks usecase.TerminalHooks) {
	srv.mu.Lock()
	defer srv.mu.Unlock()
	srv.hooks = hooks
}

// Start arms the watcher. Starting while already watching is a no-op.
func (srv *watchService) Start(ctx context.Context) error {
	srv.mu.Lock()
	if srv.watching {
		srv.mu.Unlock()

		return nil
	}

	srv.generation++
	gen := srv.generation
	runCtx, cancel := context.WithCancel(ctx)
	srv.cancel = cancel
	srv.watching = true
	srv.armedAt = srv.clock.Now()
	srv.pollStartedAt = time.Time{}
	srv.mu.Unlock()

	srv.logger.Info("Sync watch started",
		slog.Duration("interval", srv.interval),
		slog.Duration("timeout", srv.timeout),
	)

	go srv.loop(runCtx, gen)

	return nil
}

// Stop cancels the watcher without firing a terminal hook. Bumping the
// generation discards any in-flight status response.
func (srv *watchService) Stop() {
	srv.mu.Lock()
	srv.generation++
	srv.watching = false
	srv.pollStartedAt = time.Time{}
	cancel := srv.cancel
	srv.cancel = nil
	srv.mu.Unlock()

	if cancel != nil {
		cancel()
	}
}

// Watching reports whether a watch loop is currently armed.
func (srv *watchService) Watching() bool {
	srv.mu.Lock()
	defer srv.mu.Unlock()

	return srv.watching
}

func (srv *watchService) loop(ctx context.Context, gen uint64) {
	for {
		status, err := srv.syncs.Status(ctx)
		if ctx.Err() != nil {
			return
		}

		var done bool
		if err != nil {
			srv.logger.Warn("Status fetch failed, keeping the poll cycle alive", "error", err)
			done = srv.observeFailure(gen)
		} else {
			done = srv.observe(gen, status)
		}
		if done {
			return
		}

		select {
		case <-ctx.Done():
			return
		case <-srv.clock.After(srv.interval):
		}
	}
}

// observe applies one status snapshot to the state machine. It returns
// true when the loop must stop, either because a terminal event fired or
// because this observation belongs to a cancelled watch.
func (srv *watchService) observe(gen uint64, status *entity.SyncStatus) bool {
	srv.mu.Lock()

	if gen != srv.generation || !srv.watching {
		srv.mu.Unlock()

		return true
	}

	now := srv.clock.Now()

	switch {
	case !status.Running && !srv.pollStartedAt.IsZero():
		// The watched job terminated. running is inspected before any
		// callback fires, so at most one terminal callback per observed
		// true-to-false transition.
		elapsed := now.Sub(srv.pollStartedAt)
		hooks := srv.disarmLocked()
		srv.mu.Unlock()

		if status.LastError != "" {
			srv.finish(service.SyncOutcomeErrored, status.LastError, hooks, now, elapsed)
		} else {
			srv.finish(service.SyncOutcomeCompleted, "", hooks, now, elapsed)
		}

		return true

	case !status.Running:
		// No job observed running yet. Keep ticking, but bounded: if the
		// triggered job never shows up within the timeout window the
		// watcher gives up rather than polling forever.
		if now.Sub(srv.armedAt) > srv.timeout {
			hooks := srv.disarmLocked()
			srv.mu.Unlock()
			srv.finish(service.SyncOutcomeTimedOut, "", hooks, now, now.Sub(srv.armedAt))

			return true
		}
		srv.mu.Unlock()

		return false

	case srv.pollStartedAt.IsZero():
		// running flipped true: enter the polling state.
		srv.pollStartedAt = now
		srv.mu.Unlock()

		return false

	default:
		elapsed := now.Sub(srv.pollStartedAt)
		if elapsed > srv.timeout {
			// The client stops waiting; the remote job may still run.
			hooks := srv.disarmLocked()
			srv.mu.Unlock()
			srv.finish(service.SyncOutcomeTimedOut, "", hooks, now, elapsed)

			return true
		}
		srv.mu.Unlock()

		return false
	}
}

// observeFailure handles a failed status fetch: the cycle stays alive,
// but the timeout clock keeps running so a dead backend cannot keep the
// watcher armed forever.
func (srv *watchService) observeFailure(gen uint64) bool {
	srv.mu.Lock()

	if gen != srv.generation || !srv.watching {
		srv.mu.Unlock()

		return true
	}

	now := srv.clock.Now()
	since := srv.pollStartedAt
	if since.IsZero() {
		since = srv.armedAt
	}

	if elapsed := now.Sub(since); elapsed > srv.timeout {
		hooks := srv.disarmLocked()
		srv.mu.Unlock()
		srv.finish(service.SyncOutcomeTimedOut, "", hooks, now, elapsed)

		return true
	}
	srv.mu.Unlock()

	return false
}

// disarmLocked moves the machine back to idle and returns the hooks to
// fire. Caller must hold srv.mu.
func (srv *watchService) disarmLocked() usecase.TerminalHooks {
	srv.watching = false
	srv.pollStartedAt = time.Time{}
	if srv.cancel != nil {
		cancel := srv.cancel
		srv.cancel = nil
		defer cancel()
	}

	return srv.hooks
}

// finish runs the terminal side effects in order: the registered hook,
// the stale marking, then the outward notification.
func (srv *watchService) finish(outcome service.SyncOutcome, message string, hooks usecase.TerminalHooks, finishedAt time.Time, elapsed time.Duration) {
	srv.logger.Info("Sync watch finished",
		slog.String("outcome", string(outcome)),
		slog.Duration("elapsed", elapsed),
	)

	switch outcome {
	case service.SyncOutcomeCompleted:
		if hooks.OnComplete != nil {
			hooks.OnComplete()
		}
	case service.SyncOutcomeErrored:
		if hooks.OnError != nil {
			hooks.OnError(message)
		}
	case service.SyncOutcomeTimedOut:
		if hooks.OnTimeout != nil {
			hooks.OnTimeout()
		}
	}

	srv.bus.MarkStale(service.SyncDependentKeys()...)

	event := &service.SyncTerminalEvent{
		Outcome:    outcome,
		Error:      message,
		FinishedAt: finishedAt,
		Elapsed:    elapsed,
	}
	if err := srv.notifier.NotifySyncTerminal(context.Background(), event); err != nil {
		srv.logger.Warn("Terminal sync notification failed", "error", err)
	}
}
