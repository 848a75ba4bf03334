package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cointracker/internal/core/domain"
	"cointracker/pkg/apperror"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// SyncJobRepo implements ports.SyncJobRepository.
type SyncJobRepo struct {
	pool Pool
}

// NewSyncJobRepo creates a new SyncJobRepo.
func NewSyncJobRepo(pool Pool) *SyncJobRepo {
	return &SyncJobRepo{pool: pool}
}

const syncJobColumns = `id, wallet_id, status, error_detail, started_at, completed_at, created_at`

// Create inserts a queued job. The partial unique index on
// sync_jobs(wallet_id) WHERE status IN ('queued','running') rejects a
// second non-terminal job; the violation is surfaced as ErrSyncInProgress
// so racing enqueues lose cleanly.
func (r *SyncJobRepo) Create(ctx context.Context, job *domain.SyncJob) error {
	query := `INSERT INTO sync_jobs (id, wallet_id, status, error_detail, started_at, completed_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := r.pool.Exec(ctx, query,
		job.ID, job.WalletID, job.Status, job.ErrorDetail,
		job.StartedAt, job.CompletedAt, job.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			if active, lookupErr := r.GetActiveByWallet(ctx, job.WalletID); lookupErr == nil && active != nil {
				return apperror.ErrSyncInProgress(active.ID.String())
			}
			return apperror.ErrSyncInProgress("unknown")
		}
		return fmt.Errorf("insert sync job: %w", err)
	}
	return nil
}

// GetByID fetches a job by its UUID.
func (r *SyncJobRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.SyncJob, error) {
	query := `SELECT ` + syncJobColumns + ` FROM sync_jobs WHERE id = $1`
	return r.scanJob(r.pool.QueryRow(ctx, query, id))
}

// GetActiveByWallet returns the wallet's queued or running job, if any.
func (r *SyncJobRepo) GetActiveByWallet(ctx context.Context, walletID uuid.UUID) (*domain.SyncJob, error) {
	query := `SELECT ` + syncJobColumns + ` FROM sync_jobs
		WHERE wallet_id = $1 AND status IN ('queued', 'running')`
	return r.scanJob(r.pool.QueryRow(ctx, query, walletID))
}

// MarkRunning transitions a queued job to running.
func (r *SyncJobRepo) MarkRunning(ctx context.Context, id uuid.UUID, startedAt time.Time) error {
	query := `UPDATE sync_jobs SET status = $1, started_at = $2 WHERE id = $3 AND status = $4`

	tag, err := r.pool.Exec(ctx, query, domain.JobStatusRunning, startedAt, id, domain.JobStatusQueued)
	if err != nil {
		return fmt.Errorf("mark job running: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("job %s is not queued", id)
	}
	return nil
}

// MarkCompleted transitions a running job to its terminal completed state.
func (r *SyncJobRepo) MarkCompleted(ctx context.Context, id uuid.UUID, completedAt time.Time) error {
	query := `UPDATE sync_jobs SET status = $1, completed_at = $2 WHERE id = $3 AND status = $4`

	tag, err := r.pool.Exec(ctx, query, domain.JobStatusCompleted, completedAt, id, domain.JobStatusRunning)
	if err != nil {
		return fmt.Errorf("mark job completed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("job %s is not running", id)
	}
	return nil
}

// MarkFailed transitions a job to its terminal failed state with a
// human-readable error detail. Allowed from queued or running so a job
// that never dispatched can still fail.
func (r *SyncJobRepo) MarkFailed(ctx context.Context, id uuid.UUID, completedAt time.Time, detail string) error {
	query := `UPDATE sync_jobs SET status = $1, completed_at = $2, error_detail = $3
		WHERE id = $4 AND status IN ('queued', 'running')`

	tag, err := r.pool.Exec(ctx, query, domain.JobStatusFailed, completedAt, detail, id)
	if err != nil {
		return fmt.Errorf("mark job failed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("job %s is already terminal", id)
	}
	return nil
}

// scanJob is a helper to scan a single row into a SyncJob.
func (r *SyncJobRepo) scanJob(row pgx.Row) (*domain.SyncJob, error) {
	j := &domain.SyncJob{}
	err := row.Scan(
		&j.ID, &j.WalletID, &j.Status, &j.ErrorDetail,
		&j.StartedAt, &j.CompletedAt, &j.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan sync job: %w", err)
	}
	return j, nil
}
