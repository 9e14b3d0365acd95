package devstub

import (
	"log/slog"
	"sort"
	"sync"
	"time"

	"stride/config"
	"stride/internal/domain/entity"
	domainerrors "stride/internal/domain/errors"
	"stride/internal/domain/service"

	"github.com/google/uuid"
)

const defaultJobDuration = 10 * time.Second

// defaultEndpoints is the full endpoint set a sync covers when the
// trigger does not scope it.
var defaultEndpoints = []string{
	"activities", "sleep", "heart_rate", "stress", "body_battery", "steps",
}

// Simulator runs a scripted sync job: triggered jobs "run" for a fixed
// duration of simulated wall time, then complete or fail. Completion is
// settled lazily on the next read, so the simulator needs no background
// goroutine.
type Simulator struct {
	duration time.Duration
	fail     bool
	clock    service.Clock
	logger   *slog.Logger

	mu        sync.Mutex
	running   bool
	jobID     uuid.UUID
	startedAt time.Time
	endpoints []string
	lastError string
	states    map[string]entity.SyncState
	history   []entity.SyncRecord
}

// NewSimulator builds the scripted job from configuration.
func NewSimulator(cfg *config.Config, clock service.Clock, logger *slog.Logger) *Simulator {
	duration := defaultJobDuration
	fail := false
	if cfg.Devstub != nil {
		if cfg.Devstub.JobDuration > 0 {
			duration = cfg.Devstub.JobDuration
		}
		fail = cfg.Devstub.FailSyncs
	}

	return &Simulator{
		duration: duration,
		fail:     fail,
		clock:    clock,
		logger:   logger,
		states:   make(map[string]entity.SyncState),
	}
}

// Trigger starts a job unless one is already running. It returns the
// resolved endpoint list the job covers.
func (s *Simulator) Trigger(endpoints []string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock.Now()
	s.settleLocked(now)

	if s.running {
		return nil, domainerrors.ErrSyncAlreadyRunning
	}

	if len(endpoints) == 0 {
		endpoints = defaultEndpoints
	}
	resolved := make([]string, len(endpoints))
	copy(resolved, endpoints)

	s.running = true
	s.jobID = uuid.New()
	s.startedAt = now
	s.endpoints = resolved
	s.lastError = ""

	s.logger.Info("Simulated sync started",
		slog.String("job_id", s.jobID.String()),
		slog.Duration("duration", s.duration),
	)

	return resolved, nil
}

// Status returns the current snapshot, settling the job first when its
// simulated duration has elapsed.
func (s *Simulator) Status() entity.SyncStatus {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.settleLocked(s.clock.Now())

	states := make([]entity.SyncState, 0, len(s.states))
	for _, state := range s.states {
		states = append(states, state)
	}
	sort.Slice(states, func(i, j int) bool { return states[i].Endpoint < states[j].Endpoint })

	return entity.SyncStatus{
		Connected:  true,
		Running:    s.running,
		SyncStates: states,
		LastError:  s.lastError,
	}
}

// History returns one page of past runs, newest first.
func (s *Simulator) History(page, perPage int) ([]entity.SyncRecord, int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.settleLocked(s.clock.Now())

	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = 20
	}

	total := len(s.history)
	start := (page - 1) * perPage
	if start >= total {
		return []entity.SyncRecord{}, total
	}
	end := start + perPage
	if end > total {
		end = total
	}

	// history is stored oldest first; serve newest first.
	records := make([]entity.SyncRecord, 0, end-start)
	for i := total - 1 - start; i >= total-end; i-- {
		records = append(records, s.history[i])
	}

	return records, total
}

// Connection returns the coarse provider connection state.
func (s *Simulator) Connection() entity.ConnectionStatus {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.settleLocked(s.clock.Now())

	status := entity.ConnectionStatus{Connected: true, Provider: "garmin"}
	var latest time.Time
	for _, state := range s.states {
		if state.LastSuccessAt != nil && state.LastSuccessAt.After(latest) {
			latest = *state.LastSuccessAt
		}
	}
	if !latest.IsZero() {
		status.LastSyncAt = &latest
	}

	return status
}

// settleLocked finishes the running job once its duration has elapsed.
// Caller must hold s.mu.
func (s *Simulator) settleLocked(now time.Time) {
	if !s.running || now.Sub(s.startedAt) < s.duration {
		return
	}

	finishedAt := s.startedAt.Add(s.duration)
	record := entity.SyncRecord{
		ID:         s.jobID,
		Endpoints:  s.endpoints,
		StartedAt:  s.startedAt,
		FinishedAt: &finishedAt,
		Status:     "completed",
	}

	if s.fail {
		s.lastError = "simulated sync failure"
		record.Status = "errored"
		record.Error = s.lastError
	}

	for _, endpoint := range s.endpoints {
		state := s.states[endpoint]
		state.Endpoint = endpoint
		syncedAt := finishedAt
		state.LastSyncAt = &syncedAt
		if !s.fail {
			successAt := finishedAt
			state.LastSuccessAt = &successAt
			state.Cursor = s.jobID.String()
		}
		s.states[endpoint] = state
	}

	s.history = append(s.history, record)
	s.running = false
	s.endpoints = nil

	s.logger.Info("Simulated sync finished",
		slog.String("job_id", record.ID.String()),
		slog.String("status", record.Status),
	)
}
