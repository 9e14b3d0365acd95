package usecase

import (
	"context"

	"stride/internal/domain/entity"
)

// --- Input DTOs ---

// RunSyncInput defines an optional scoping of the remote sync job.
type RunSyncInput struct {
	// Endpoints limits the run to specific wearable data endpoints; empty
	// means the server decides.
	Endpoints []string `validate:"omitempty,dive,oneof=activities sleep heart_rate stress body_battery steps"`

	// FullBackfill requests a re-import from the beginning of history.
	FullBackfill bool

	StartDate string `validate:"omitempty,datetime=2006-01-02"`
	EndDate   string `validate:"omitempty,datetime=2006-01-02"`
}

// HistoryParams pages through past sync records.
type HistoryParams struct {
	Page    int `validate:"omitempty,min=1"`
	PerPage int `validate:"omitempty,min=1,max=100"`
}

// --- Output DTOs ---

// RunSyncOutput is the immediate acknowledgement of a sync trigger. The
// job itself executes remotely; completion is observed by polling.
type RunSyncOutput struct {
	Started   bool     `json:"started"`
	Message   string   `json:"message"`
	Endpoints []string `json:"endpoints"`
}

// HistoryOutput is one page of past sync records.
type HistoryOutput struct {
	Records []entity.SyncRecord `json:"records"`
	Page    int                 `json:"page"`
	PerPage int                 `json:"per_page"`
	Total   int                 `json:"total"`
}

// SyncUsecase defines the interface for driving and observing the remote
// sync job.
type SyncUsecase interface {
	// Run triggers a sync and returns immediately; it does not wait for
	// completion. Whatever the outcome, the sync-dependent cache keys are
	// marked stale once the trigger settles.
	Run(ctx context.Context, input RunSyncInput) (*RunSyncOutput, error)

	// Status fetches the current remote job snapshot.
	Status(ctx context.Context) (*entity.SyncStatus, error)

	// History reads past sync records, paginated and purely informational.
	History(ctx context.Context, params HistoryParams) (*HistoryOutput, error)

	// Connection fetches the coarse wearable-provider connection state.
	Connection(ctx context.Context) (*entity.ConnectionStatus, error)
}
