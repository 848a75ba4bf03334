package domain

import (
	"time"

	"github.com/google/uuid"
)

// SyncStatus represents the wallet's synchronization state.
type SyncStatus string

const (
	SyncStatusPending   SyncStatus = "pending"
	SyncStatusSyncing   SyncStatus = "syncing"
	SyncStatusCompleted SyncStatus = "completed"
	SyncStatusFailed    SyncStatus = "failed"
)

// Wallet is a tracked Bitcoin address and its derived state.
// Balance is in satoshis and equals the signed sum of all stored
// transactions after a successful sync.
type Wallet struct {
	ID           uuid.UUID  `json:"id"`
	Address      string     `json:"address"`
	Balance      int64      `json:"balance"`
	SyncStatus   SyncStatus `json:"sync_status"`
	LastSyncedAt *time.Time `json:"last_synced_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// NewWallet creates a wallet in the pending state.
func NewWallet(address string) *Wallet {
	now := time.Now().UTC()
	return &Wallet{
		ID:         uuid.New(),
		Address:    address,
		Balance:    0,
		SyncStatus: SyncStatusPending,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}
