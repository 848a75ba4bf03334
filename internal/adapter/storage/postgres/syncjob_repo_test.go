package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"cointracker/internal/core/domain"
	"cointracker/pkg/apperror"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func jobColumnNames() []string {
	return []string{"id", "wallet_id", "status", "error_detail", "started_at", "completed_at", "created_at"}
}

func jobRow(j *domain.SyncJob) *pgxmock.Rows {
	return pgxmock.NewRows(jobColumnNames()).AddRow(
		j.ID, j.WalletID, j.Status, j.ErrorDetail,
		j.StartedAt, j.CompletedAt, j.CreatedAt,
	)
}

func TestSyncJobRepo_Create(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewSyncJobRepo(mock)
	job := domain.NewSyncJob(uuid.New())

	mock.ExpectExec("INSERT INTO sync_jobs").
		WithArgs(job.ID, job.WalletID, job.Status, job.ErrorDetail,
			job.StartedAt, job.CompletedAt, job.CreatedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err = repo.Create(context.Background(), job)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSyncJobRepo_Create_ActiveJobExists(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewSyncJobRepo(mock)
	walletID := uuid.New()
	job := domain.NewSyncJob(walletID)

	existing := domain.NewSyncJob(walletID)
	existing.Status = domain.JobStatusRunning

	mock.ExpectExec("INSERT INTO sync_jobs").
		WithArgs(job.ID, job.WalletID, job.Status, job.ErrorDetail,
			job.StartedAt, job.CompletedAt, job.CreatedAt).
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "sync_jobs_one_active_per_wallet"})
	mock.ExpectQuery("SELECT .+ FROM sync_jobs").
		WithArgs(walletID).
		WillReturnRows(jobRow(existing))

	err = repo.Create(context.Background(), job)
	var appErr *apperror.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, "SYNC_001", appErr.Code)
	assert.Contains(t, appErr.Message, existing.ID.String())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSyncJobRepo_GetByID_NotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewSyncJobRepo(mock)
	id := uuid.New()

	mock.ExpectQuery("SELECT .+ FROM sync_jobs WHERE id").
		WithArgs(id).
		WillReturnRows(pgxmock.NewRows(jobColumnNames()))

	job, err := repo.GetByID(context.Background(), id)
	require.NoError(t, err)
	assert.Nil(t, job)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSyncJobRepo_GetActiveByWallet(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewSyncJobRepo(mock)
	walletID := uuid.New()
	active := domain.NewSyncJob(walletID)

	mock.ExpectQuery("SELECT .+ FROM sync_jobs").
		WithArgs(walletID).
		WillReturnRows(jobRow(active))

	job, err := repo.GetActiveByWallet(context.Background(), walletID)
	require.NoError(t, err)
	require.NotNil(t, job)
	assert.Equal(t, active.ID, job.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSyncJobRepo_MarkRunning(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewSyncJobRepo(mock)
	id := uuid.New()
	startedAt := time.Now().UTC()

	mock.ExpectExec("UPDATE sync_jobs SET status").
		WithArgs(domain.JobStatusRunning, startedAt, id, domain.JobStatusQueued).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	err = repo.MarkRunning(context.Background(), id, startedAt)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSyncJobRepo_MarkRunning_NotQueued(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewSyncJobRepo(mock)

	mock.ExpectExec("UPDATE sync_jobs SET status").
		WithArgs(domain.JobStatusRunning, pgxmock.AnyArg(), pgxmock.AnyArg(), domain.JobStatusQueued).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err = repo.MarkRunning(context.Background(), uuid.New(), time.Now())
	assert.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSyncJobRepo_MarkCompleted(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewSyncJobRepo(mock)
	id := uuid.New()
	completedAt := time.Now().UTC()

	mock.ExpectExec("UPDATE sync_jobs SET status").
		WithArgs(domain.JobStatusCompleted, completedAt, id, domain.JobStatusRunning).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	err = repo.MarkCompleted(context.Background(), id, completedAt)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSyncJobRepo_MarkFailed(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewSyncJobRepo(mock)
	id := uuid.New()
	completedAt := time.Now().UTC()

	mock.ExpectExec("UPDATE sync_jobs SET status").
		WithArgs(domain.JobStatusFailed, completedAt, "provider unavailable after 3 attempts", id).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	err = repo.MarkFailed(context.Background(), id, completedAt, "provider unavailable after 3 attempts")
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSyncJobRepo_MarkFailed_AlreadyTerminal(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewSyncJobRepo(mock)

	mock.ExpectExec("UPDATE sync_jobs SET status").
		WithArgs(domain.JobStatusFailed, pgxmock.AnyArg(), "late failure", pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err = repo.MarkFailed(context.Background(), uuid.New(), time.Now(), "late failure")
	assert.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
