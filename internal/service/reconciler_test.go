package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"cointracker/internal/core/ports"
	"cointracker/internal/core/ports/mocks"
	"cointracker/pkg/apperror"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

type reconcilerTestDeps struct {
	rec        *Reconciler
	txRepo     *mocks.MockTransactionRepository
	walletRepo *mocks.MockWalletRepository
	transactor *mocks.MockDBTransactor
	ctrl       *gomock.Controller
}

func setupReconciler(t *testing.T) *reconcilerTestDeps {
	ctrl := gomock.NewController(t)
	d := &reconcilerTestDeps{
		txRepo:     mocks.NewMockTransactionRepository(ctrl),
		walletRepo: mocks.NewMockWalletRepository(ctrl),
		transactor: mocks.NewMockDBTransactor(ctrl),
		ctrl:       ctrl,
	}
	d.rec = NewReconciler(d.txRepo, d.walletRepo, d.transactor, zerolog.Nop())
	return d
}

// mockTx implements pgx.Tx for testing
type mockTx struct{ pgx.Tx }

func (m *mockTx) Rollback(_ context.Context) error { return nil }
func (m *mockTx) Commit(_ context.Context) error   { return nil }

func somePage(values ...int64) []ports.TxRecord {
	now := time.Now().UTC()
	recs := make([]ports.TxRecord, 0, len(values))
	for i, v := range values {
		h := int64(840000 + i)
		ts := now.Add(time.Duration(i) * time.Minute)
		recs = append(recs, ports.TxRecord{
			TxID:        uuid.NewString(),
			BlockHeight: &h,
			Timestamp:   &ts,
			Value:       v,
		})
	}
	return recs
}

func TestReconciler_ApplyPage_AllNew(t *testing.T) {
	d := setupReconciler(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	walletID := uuid.New()
	tx := &mockTx{}
	page := somePage(5000, -2000, 300)

	d.transactor.EXPECT().Begin(ctx).Return(tx, nil)
	d.txRepo.EXPECT().Upsert(ctx, tx, gomock.Any()).Return(true, nil).Times(3)
	// Delta is the signed sum of inserted rows
	d.walletRepo.EXPECT().AddToBalance(ctx, tx, walletID, int64(3300)).Return(nil)

	applied, delta, err := d.rec.ApplyPage(ctx, walletID, page)
	require.NoError(t, err)
	assert.Equal(t, 3, applied)
	assert.Equal(t, int64(3300), delta)
}

func TestReconciler_ApplyPage_ReplayIsNoop(t *testing.T) {
	d := setupReconciler(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	walletID := uuid.New()
	tx := &mockTx{}
	page := somePage(5000, -2000)

	d.transactor.EXPECT().Begin(ctx).Return(tx, nil)
	// Every row already present: no inserts, no balance write
	d.txRepo.EXPECT().Upsert(ctx, tx, gomock.Any()).Return(false, nil).Times(2)

	applied, delta, err := d.rec.ApplyPage(ctx, walletID, page)
	require.NoError(t, err)
	assert.Equal(t, 0, applied)
	assert.Equal(t, int64(0), delta)
}

func TestReconciler_ApplyPage_PartialOverlap(t *testing.T) {
	d := setupReconciler(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	walletID := uuid.New()
	tx := &mockTx{}
	page := somePage(1000, 2000, -500)

	d.transactor.EXPECT().Begin(ctx).Return(tx, nil)
	gomock.InOrder(
		d.txRepo.EXPECT().Upsert(ctx, tx, gomock.Any()).Return(false, nil),
		d.txRepo.EXPECT().Upsert(ctx, tx, gomock.Any()).Return(true, nil),
		d.txRepo.EXPECT().Upsert(ctx, tx, gomock.Any()).Return(true, nil),
	)
	d.walletRepo.EXPECT().AddToBalance(ctx, tx, walletID, int64(1500)).Return(nil)

	applied, delta, err := d.rec.ApplyPage(ctx, walletID, page)
	require.NoError(t, err)
	assert.Equal(t, 2, applied)
	assert.Equal(t, int64(1500), delta)
}

func TestReconciler_ApplyPage_EmptyPage(t *testing.T) {
	d := setupReconciler(t)
	defer d.ctrl.Finish()

	applied, delta, err := d.rec.ApplyPage(context.Background(), uuid.New(), nil)
	require.NoError(t, err)
	assert.Zero(t, applied)
	assert.Zero(t, delta)
}

func TestReconciler_ApplyPage_UpsertError(t *testing.T) {
	d := setupReconciler(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	tx := &mockTx{}

	d.transactor.EXPECT().Begin(ctx).Return(tx, nil)
	d.txRepo.EXPECT().Upsert(ctx, tx, gomock.Any()).Return(false, errors.New("db down"))

	_, _, err := d.rec.ApplyPage(ctx, uuid.New(), somePage(100))
	var appErr *apperror.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, "SYS_001", appErr.Code)
}
