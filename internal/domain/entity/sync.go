package entity

import (
	"time"

	"github.com/google/uuid"
)

// SyncState is the per-endpoint progress the remote sync job reports.
type SyncState struct {
	Endpoint      string     `json:"endpoint"`        // Wearable data endpoint, e.g. "activities".
	LastSyncAt    *time.Time `json:"last_sync_at"`    // Last attempt, successful or not.
	LastSuccessAt *time.Time `json:"last_success_at"` // Last successful import.
	Cursor        string     `json:"cursor"`          // Provider-side resume cursor.
}

// SyncStatus is the remote job snapshot returned on every poll tick.
// The client never mutates it, only reads it.
type SyncStatus struct {
	Connected  bool        `json:"connected"`
	Running    bool        `json:"running"`
	SyncStates []SyncState `json:"sync_states"`
	// LastError is the remote failure message; empty means the last run
	// terminated cleanly.
	LastError string `json:"last_error,omitempty"`
}

// SyncRecord is one past sync run from the paginated history endpoint.
type SyncRecord struct {
	ID         uuid.UUID  `json:"id"`
	Endpoints  []string   `json:"endpoints"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at"`
	Status     string     `json:"status"` // "completed" or "errored".
	Error      string     `json:"error,omitempty"`
}

// ConnectionStatus is the coarse wearable-provider connection state,
// distinct from the per-job sync status.
type ConnectionStatus struct {
	Connected  bool       `json:"connected"`
	Provider   string     `json:"provider"`
	LastSyncAt *time.Time `json:"last_sync_at"`
}
