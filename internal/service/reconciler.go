package service

import (
	"context"
	"fmt"
	"time"

	"cointracker/internal/core/domain"
	"cointracker/internal/core/ports"
	"cointracker/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Reconciler folds provider pages into local state. Each page applies in
// one database transaction: the upserts and the balance delta land
// together or not at all.
type Reconciler struct {
	txRepo     ports.TransactionRepository
	walletRepo ports.WalletRepository
	transactor ports.DBTransactor
	log        zerolog.Logger
}

// NewReconciler creates a new Reconciler.
func NewReconciler(
	txRepo ports.TransactionRepository,
	walletRepo ports.WalletRepository,
	transactor ports.DBTransactor,
	log zerolog.Logger,
) *Reconciler {
	return &Reconciler{
		txRepo:     txRepo,
		walletRepo: walletRepo,
		transactor: transactor,
		log:        log,
	}
}

// ApplyPage upserts a page of provider records for the wallet. Records
// already present (same wallet_id and txid) are skipped, so re-applying
// a page is a no-op. Returns the number of newly inserted rows and the
// signed satoshi delta those rows contributed.
func (r *Reconciler) ApplyPage(ctx context.Context, walletID uuid.UUID, records []ports.TxRecord) (int, int64, error) {
	if len(records) == 0 {
		return 0, 0, nil
	}

	dbTx, err := r.transactor.Begin(ctx)
	if err != nil {
		return 0, 0, apperror.ErrDatabaseError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	now := time.Now().UTC()
	applied := 0
	var delta int64

	for i := range records {
		rec := &records[i]
		txn := &domain.Transaction{
			ID:          uuid.New(),
			WalletID:    walletID,
			TxID:        rec.TxID,
			BlockHeight: rec.BlockHeight,
			Timestamp:   rec.Timestamp,
			Value:       rec.Value,
			Direction:   domain.DirectionFor(rec.Value),
			CreatedAt:   now,
		}
		inserted, err := r.txRepo.Upsert(ctx, dbTx, txn)
		if err != nil {
			return 0, 0, apperror.ErrDatabaseError(fmt.Errorf("upsert transaction %s: %w", rec.TxID, err))
		}
		if inserted {
			applied++
			delta += rec.Value
		}
	}

	if applied > 0 {
		if err := r.walletRepo.AddToBalance(ctx, dbTx, walletID, delta); err != nil {
			return 0, 0, apperror.ErrDatabaseError(fmt.Errorf("apply balance delta: %w", err))
		}
	}

	if err := dbTx.Commit(ctx); err != nil {
		return 0, 0, apperror.ErrDatabaseError(fmt.Errorf("commit page: %w", err))
	}

	r.log.Debug().
		Str("wallet_id", walletID.String()).
		Int("page_size", len(records)).
		Int("applied", applied).
		Int64("delta", delta).
		Msg("page reconciled")

	return applied, delta, nil
}
