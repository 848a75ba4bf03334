package dto

// CreateWalletRequest is the request body for tracking a new wallet.
type CreateWalletRequest struct {
	Address string `json:"address" binding:"required,btc_address"`
}

// WalletResponse is the response body for a tracked wallet.
type WalletResponse struct {
	ID               string  `json:"id"`
	Address          string  `json:"address"`
	Balance          int64   `json:"balance"` // satoshis
	SyncStatus       string  `json:"sync_status"`
	TransactionCount int64   `json:"transaction_count"`
	LastSyncedAt     *string `json:"last_synced_at,omitempty"`
	CreatedAt        string  `json:"created_at"`
}

// TransactionResponse is one stored wallet transaction.
type TransactionResponse struct {
	TxID        string  `json:"txid"`
	BlockHeight *int64  `json:"block_height,omitempty"`
	Timestamp   *string `json:"timestamp,omitempty"`
	Value       int64   `json:"value"` // signed satoshis
	Direction   string  `json:"direction"`
}

// TransactionListResponse wraps a paginated transaction list.
type TransactionListResponse struct {
	Items  []TransactionResponse `json:"items"`
	Total  int64                 `json:"total"`
	Limit  int                   `json:"limit"`
	Offset int                   `json:"offset"`
}

// SyncAcceptedResponse is returned when a sync job is enqueued.
type SyncAcceptedResponse struct {
	JobID string `json:"job_id"`
}

// SyncJobResponse is a sync job snapshot.
type SyncJobResponse struct {
	ID          string  `json:"id"`
	WalletID    string  `json:"wallet_id"`
	Status      string  `json:"status"`
	ErrorDetail *string `json:"error_detail,omitempty"`
	StartedAt   *string `json:"started_at,omitempty"`
	CompletedAt *string `json:"completed_at,omitempty"`
	CreatedAt   string  `json:"created_at"`
}

// BalanceResponse is the response for a balance query.
type BalanceResponse struct {
	Address      string  `json:"address"`
	Balance      int64   `json:"balance"` // satoshis
	SyncStatus   string  `json:"sync_status"`
	LastSyncedAt *string `json:"last_synced_at,omitempty"`
	Live         bool    `json:"live"`
}
