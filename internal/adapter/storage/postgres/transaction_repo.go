package postgres

import (
	"context"
	"fmt"

	"cointracker/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// TransactionRepo implements ports.TransactionRepository.
type TransactionRepo struct {
	pool Pool
}

// NewTransactionRepo creates a new TransactionRepo.
func NewTransactionRepo(pool Pool) *TransactionRepo {
	return &TransactionRepo{pool: pool}
}

// Upsert inserts a transaction, ignoring duplicates on (wallet_id, txid).
// Returns true when a new row was inserted. The ON CONFLICT clause makes
// page replay after a partial failure safe.
func (r *TransactionRepo) Upsert(ctx context.Context, tx pgx.Tx, t *domain.Transaction) (bool, error) {
	query := `INSERT INTO transactions (id, wallet_id, txid, block_height, timestamp, value, direction, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (wallet_id, txid) DO NOTHING`

	tag, err := tx.Exec(ctx, query,
		t.ID, t.WalletID, t.TxID, t.BlockHeight,
		t.Timestamp, t.Value, t.Direction, t.CreatedAt,
	)
	if err != nil {
		return false, fmt.Errorf("upsert transaction: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// ListByWallet returns a transaction page ordered by timestamp descending
// with unconfirmed rows first, txid ascending as a stable tie-break.
func (r *TransactionRepo) ListByWallet(ctx context.Context, walletID uuid.UUID, limit, offset int) ([]domain.Transaction, int64, error) {
	var total int64
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM transactions WHERE wallet_id = $1`, walletID,
	).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("count transactions: %w", err)
	}

	query := `SELECT id, wallet_id, txid, block_height, timestamp, value, direction, created_at
		FROM transactions WHERE wallet_id = $1
		ORDER BY timestamp DESC NULLS FIRST, txid ASC
		LIMIT $2 OFFSET $3`

	rows, err := r.pool.Query(ctx, query, walletID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	var txns []domain.Transaction
	for rows.Next() {
		t := domain.Transaction{}
		if err := rows.Scan(
			&t.ID, &t.WalletID, &t.TxID, &t.BlockHeight,
			&t.Timestamp, &t.Value, &t.Direction, &t.CreatedAt,
		); err != nil {
			return nil, 0, fmt.Errorf("scan transaction row: %w", err)
		}
		txns = append(txns, t)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate transaction rows: %w", err)
	}
	return txns, total, nil
}

// CountByWallet returns the number of stored transactions for a wallet.
func (r *TransactionRepo) CountByWallet(ctx context.Context, walletID uuid.UUID) (int64, error) {
	var count int64
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM transactions WHERE wallet_id = $1`, walletID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count transactions: %w", err)
	}
	return count, nil
}

// SumByWallet computes the signed satoshi sum over all stored rows.
func (r *TransactionRepo) SumByWallet(ctx context.Context, walletID uuid.UUID) (int64, error) {
	var sum int64
	err := r.pool.QueryRow(ctx,
		`SELECT COALESCE(SUM(value), 0) FROM transactions WHERE wallet_id = $1`, walletID,
	).Scan(&sum)
	if err != nil {
		return 0, fmt.Errorf("sum transactions: %w", err)
	}
	return sum, nil
}
