package domain

import (
	"time"

	"github.com/google/uuid"
)

// JobStatus represents the lifecycle state of a sync job.
type JobStatus string

const (
	JobStatusQueued    JobStatus = "queued"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
)

// SyncJob is one attempt to fetch and ingest a wallet's transaction
// history. Terminal states are permanent: a new sync request creates a
// new job, never reopens an old one. At most one non-terminal job exists
// per wallet at any time.
type SyncJob struct {
	ID          uuid.UUID  `json:"id"`
	WalletID    uuid.UUID  `json:"wallet_id"`
	Status      JobStatus  `json:"status"`
	ErrorDetail *string    `json:"error_detail,omitempty"` // populated only on failure
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

// NewSyncJob creates a job in the queued state.
func NewSyncJob(walletID uuid.UUID) *SyncJob {
	return &SyncJob{
		ID:        uuid.New(),
		WalletID:  walletID,
		Status:    JobStatusQueued,
		CreatedAt: time.Now().UTC(),
	}
}

// IsTerminal reports whether the job reached a final state.
func (j *SyncJob) IsTerminal() bool {
	return j.Status == JobStatusCompleted || j.Status == JobStatusFailed
}
