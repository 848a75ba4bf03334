package ports

import (
	"context"
	"time"

	"cointracker/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// WalletRepository defines persistence operations for wallets.
// Get* methods return (nil, nil) when no row matches.
type WalletRepository interface {
	// Create inserts a wallet. Returns apperror.ErrDuplicateWallet when
	// the address is already tracked (unique constraint).
	Create(ctx context.Context, wallet *domain.Wallet) error
	GetByAddress(ctx context.Context, address string) (*domain.Wallet, error)
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Wallet, error)
	List(ctx context.Context) ([]domain.Wallet, error)
	// Delete removes the wallet; transactions and sync jobs cascade.
	// Returns false when the address was not tracked.
	Delete(ctx context.Context, address string) (bool, error)
	UpdateSyncStatus(ctx context.Context, id uuid.UUID, status domain.SyncStatus) error
	// AddToBalance applies a signed satoshi delta within a database
	// transaction, so concurrent readers see sync progress.
	AddToBalance(ctx context.Context, tx pgx.Tx, id uuid.UUID, delta int64) error
	// SetBalance overwrites the balance with an authoritative recomputed
	// value and records the sync completion time.
	SetBalance(ctx context.Context, id uuid.UUID, balance int64, syncedAt time.Time) error
}

// TransactionRepository defines persistence operations for transactions.
type TransactionRepository interface {
	// Upsert inserts a transaction keyed by (wallet_id, txid); when the
	// pair already exists it is a no-op. Returns true if a row was
	// inserted. Runs within a database transaction so a page applies
	// atomically with its balance delta.
	Upsert(ctx context.Context, tx pgx.Tx, t *domain.Transaction) (bool, error)
	// ListByWallet returns a page ordered by timestamp descending with
	// unconfirmed (NULL timestamp) rows first, txid ascending as
	// tie-break, plus the total count.
	ListByWallet(ctx context.Context, walletID uuid.UUID, limit, offset int) ([]domain.Transaction, int64, error)
	CountByWallet(ctx context.Context, walletID uuid.UUID) (int64, error)
	// SumByWallet computes the signed satoshi sum of all stored rows,
	// used as the end-of-job consistency check.
	SumByWallet(ctx context.Context, walletID uuid.UUID) (int64, error)
}

// SyncJobRepository defines persistence operations for sync jobs.
// The Job Manager exclusively owns job lifecycle transitions.
type SyncJobRepository interface {
	// Create inserts a queued job. A partial unique index guarantees at
	// most one non-terminal job per wallet; violations surface as
	// apperror.ErrSyncInProgress.
	Create(ctx context.Context, job *domain.SyncJob) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.SyncJob, error)
	// GetActiveByWallet returns the queued or running job for the wallet,
	// or (nil, nil) when none exists.
	GetActiveByWallet(ctx context.Context, walletID uuid.UUID) (*domain.SyncJob, error)
	MarkRunning(ctx context.Context, id uuid.UUID, startedAt time.Time) error
	MarkCompleted(ctx context.Context, id uuid.UUID, completedAt time.Time) error
	MarkFailed(ctx context.Context, id uuid.UUID, completedAt time.Time, detail string) error
}

// DBTransactor provides database transaction management.
type DBTransactor interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}
