package ports

import (
	"context"
	"time"

	"cointracker/internal/core/domain"

	"github.com/google/uuid"
)

// WalletDetail is a wallet projection enriched with its stored
// transaction count.
type WalletDetail struct {
	domain.Wallet
	TransactionCount int64 `json:"transaction_count"`
}

// BalanceInfo is the balance projection served by the balance endpoint.
type BalanceInfo struct {
	Address      string            `json:"address"`
	Balance      int64             `json:"balance"` // satoshis
	SyncStatus   domain.SyncStatus `json:"sync_status"`
	LastSyncedAt *time.Time        `json:"last_synced_at,omitempty"`
	Live         bool              `json:"live"` // true when fetched from the provider
}

// TransactionPage wraps a paginated transaction listing.
type TransactionPage struct {
	Transactions []domain.Transaction
	Total        int64
	Limit        int
	Offset       int
}

// WalletService defines wallet tracking business logic.
type WalletService interface {
	Create(ctx context.Context, address string) (*domain.Wallet, error)
	Get(ctx context.Context, address string) (*WalletDetail, error)
	List(ctx context.Context) ([]WalletDetail, error)
	// Delete removes the wallet and cascades to its transactions and jobs.
	Delete(ctx context.Context, address string) error
	// GetBalance serves the stored balance, or asks the provider when
	// live is true (cached briefly to spare the rate budget).
	GetBalance(ctx context.Context, address string, live bool) (*BalanceInfo, error)
	ListTransactions(ctx context.Context, address string, limit, offset int) (*TransactionPage, error)
}

// SyncScheduler accepts sync requests and dispatches them for background
// execution without blocking the caller.
type SyncScheduler interface {
	// Enqueue creates a queued job and returns its id immediately.
	// Returns apperror.ErrSyncInProgress (with the existing job id) when
	// the wallet already has a non-terminal job.
	Enqueue(ctx context.Context, address string) (uuid.UUID, error)
	GetJob(ctx context.Context, jobID uuid.UUID) (*domain.SyncJob, error)
}

// BalanceCache caches live provider balance lookups.
type BalanceCache interface {
	// Get returns (balance, true, nil) on a hit and (0, false, nil) on a miss.
	Get(ctx context.Context, address string) (int64, bool, error)
	Set(ctx context.Context, address string, balance int64, ttl time.Duration) error
}
