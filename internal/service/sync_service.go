package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cointracker/internal/core/domain"
	"cointracker/internal/core/ports"
	"cointracker/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// SyncServiceImpl owns the sync job lifecycle: it creates queued jobs
// and drives them through running to a terminal state.
type SyncServiceImpl struct {
	walletRepo ports.WalletRepository
	txRepo     ports.TransactionRepository
	jobRepo    ports.SyncJobRepository
	provider   ports.Provider
	reconciler *Reconciler
	log        zerolog.Logger

	jobTimeout time.Duration
	maxTxs     int64
}

// NewSyncService creates a new SyncServiceImpl.
func NewSyncService(
	walletRepo ports.WalletRepository,
	txRepo ports.TransactionRepository,
	jobRepo ports.SyncJobRepository,
	provider ports.Provider,
	reconciler *Reconciler,
	jobTimeout time.Duration,
	maxTransactions int64,
	log zerolog.Logger,
) *SyncServiceImpl {
	return &SyncServiceImpl{
		walletRepo: walletRepo,
		txRepo:     txRepo,
		jobRepo:    jobRepo,
		provider:   provider,
		reconciler: reconciler,
		log:        log,
		jobTimeout: jobTimeout,
		maxTxs:     maxTransactions,
	}
}

// StartSync creates a queued job for the wallet. Returns
// apperror.ErrSyncInProgress carrying the existing job id when the
// wallet already has a queued or running job. The pre-check gives the
// common case a friendly answer; the partial unique index on sync_jobs
// closes the race for concurrent callers.
func (s *SyncServiceImpl) StartSync(ctx context.Context, address string) (*domain.SyncJob, error) {
	wallet, err := s.walletRepo.GetByAddress(ctx, address)
	if err != nil {
		return nil, apperror.ErrDatabaseError(fmt.Errorf("get wallet: %w", err))
	}
	if wallet == nil {
		return nil, apperror.ErrWalletNotFound()
	}

	active, err := s.jobRepo.GetActiveByWallet(ctx, wallet.ID)
	if err != nil {
		return nil, apperror.ErrDatabaseError(fmt.Errorf("check active job: %w", err))
	}
	if active != nil {
		return nil, apperror.ErrSyncInProgress(active.ID.String())
	}

	job := domain.NewSyncJob(wallet.ID)
	if err := s.jobRepo.Create(ctx, job); err != nil {
		var appErr *apperror.AppError
		if errors.As(err, &appErr) {
			return nil, appErr
		}
		return nil, apperror.ErrDatabaseError(fmt.Errorf("create job: %w", err))
	}

	s.log.Info().
		Str("job_id", job.ID.String()).
		Str("address", address).
		Msg("sync job queued")

	return job, nil
}

// GetJob returns the job snapshot or apperror.ErrJobNotFound.
func (s *SyncServiceImpl) GetJob(ctx context.Context, jobID uuid.UUID) (*domain.SyncJob, error) {
	job, err := s.jobRepo.GetByID(ctx, jobID)
	if err != nil {
		return nil, apperror.ErrDatabaseError(fmt.Errorf("get job: %w", err))
	}
	if job == nil {
		return nil, apperror.ErrJobNotFound()
	}
	return job, nil
}

// Run executes a queued job to a terminal state. It marks the job
// running, walks the provider's pages through the reconciler, and on
// exhaustion recomputes the wallet balance from stored rows as the
// authoritative value. Any error (including the per-job timeout) marks
// the job failed with a message; rows ingested before the failure are
// kept, so the next full rescan picks up where the data left off.
func (s *SyncServiceImpl) Run(ctx context.Context, jobID uuid.UUID) error {
	ctx, cancel := context.WithTimeout(ctx, s.jobTimeout)
	defer cancel()

	job, err := s.jobRepo.GetByID(ctx, jobID)
	if err != nil {
		return apperror.ErrDatabaseError(fmt.Errorf("get job: %w", err))
	}
	if job == nil {
		return apperror.ErrJobNotFound()
	}

	wallet, err := s.walletRepo.GetByID(ctx, job.WalletID)
	if err != nil {
		return s.fail(ctx, job, fmt.Errorf("get wallet: %w", err))
	}
	if wallet == nil {
		// Wallet deleted between enqueue and dispatch; the job row is
		// gone with it via cascade, nothing to record.
		s.log.Warn().Str("job_id", jobID.String()).Msg("wallet gone before job ran")
		return apperror.ErrWalletNotFound()
	}

	now := time.Now().UTC()
	if err := s.jobRepo.MarkRunning(ctx, jobID, now); err != nil {
		return apperror.ErrDatabaseError(fmt.Errorf("mark running: %w", err))
	}
	if err := s.walletRepo.UpdateSyncStatus(ctx, job.WalletID, domain.SyncStatusSyncing); err != nil {
		return s.fail(ctx, job, fmt.Errorf("mark wallet syncing: %w", err))
	}

	log := s.log.With().
		Str("job_id", jobID.String()).
		Str("wallet_id", job.WalletID.String()).
		Logger()
	log.Info().Msg("sync job started")

	info, err := s.provider.FetchAddressInfo(ctx, wallet.Address)
	if err != nil {
		return s.fail(ctx, job, err)
	}

	limit := info.TransactionCount
	if limit > s.maxTxs {
		log.Warn().
			Int64("transaction_count", info.TransactionCount).
			Int64("cap", s.maxTxs).
			Msg("address exceeds ingestion cap, truncating")
		limit = s.maxTxs
	}

	var (
		cursor   *ports.Cursor
		ingested int64
		applied  int
	)
	for {
		page, err := s.provider.FetchPage(ctx, wallet.Address, cursor)
		if err != nil {
			return s.fail(ctx, job, err)
		}

		n, _, err := s.reconciler.ApplyPage(ctx, job.WalletID, page.Transactions)
		if err != nil {
			return s.fail(ctx, job, err)
		}
		applied += n
		ingested += int64(len(page.Transactions))

		if page.NextCursor == nil || ingested >= limit {
			break
		}
		cursor = page.NextCursor
	}

	// Authoritative balance: recompute from stored rows rather than
	// trusting the incremental deltas.
	balance, err := s.txRepo.SumByWallet(ctx, job.WalletID)
	if err != nil {
		return s.fail(ctx, job, fmt.Errorf("recompute balance: %w", err))
	}

	completedAt := time.Now().UTC()
	if err := s.walletRepo.SetBalance(ctx, job.WalletID, balance, completedAt); err != nil {
		return s.fail(ctx, job, fmt.Errorf("set balance: %w", err))
	}
	if err := s.walletRepo.UpdateSyncStatus(ctx, job.WalletID, domain.SyncStatusCompleted); err != nil {
		return s.fail(ctx, job, fmt.Errorf("mark wallet completed: %w", err))
	}
	if err := s.jobRepo.MarkCompleted(ctx, jobID, completedAt); err != nil {
		return apperror.ErrDatabaseError(fmt.Errorf("mark completed: %w", err))
	}

	log.Info().
		Int("applied", applied).
		Int64("ingested", ingested).
		Int64("balance", balance).
		Msg("sync job completed")
	return nil
}

// fail records the terminal failed state for both the job and the
// wallet. It writes with a context detached from the job's deadline so
// a timed-out job can still be marked.
func (s *SyncServiceImpl) fail(ctx context.Context, job *domain.SyncJob, cause error) error {
	detail := cause.Error()
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		detail = fmt.Sprintf("job timed out after %s", s.jobTimeout)
	}

	base := context.WithoutCancel(ctx)
	now := time.Now().UTC()
	if err := s.jobRepo.MarkFailed(base, job.ID, now, detail); err != nil {
		s.log.Error().Err(err).Str("job_id", job.ID.String()).Msg("failed to mark job failed")
	}
	if err := s.walletRepo.UpdateSyncStatus(base, job.WalletID, domain.SyncStatusFailed); err != nil {
		s.log.Error().Err(err).Str("wallet_id", job.WalletID.String()).Msg("failed to mark wallet failed")
	}

	s.log.Error().
		Err(cause).
		Str("job_id", job.ID.String()).
		Str("detail", detail).
		Msg("sync job failed")
	return cause
}
