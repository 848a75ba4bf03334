package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"cointracker/internal/core/domain"
	"cointracker/internal/core/ports"
	"cointracker/internal/core/ports/mocks"
	"cointracker/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

const testAddress = "3E8ociqZa9mZUSwGdSmAEMAoAxBK3FNDcd"

type walletTestDeps struct {
	svc          *WalletServiceImpl
	walletRepo   *mocks.MockWalletRepository
	txRepo       *mocks.MockTransactionRepository
	provider     *mocks.MockProvider
	balanceCache *mocks.MockBalanceCache
	ctrl         *gomock.Controller
}

func setupWalletService(t *testing.T) *walletTestDeps {
	ctrl := gomock.NewController(t)
	d := &walletTestDeps{
		walletRepo:   mocks.NewMockWalletRepository(ctrl),
		txRepo:       mocks.NewMockTransactionRepository(ctrl),
		provider:     mocks.NewMockProvider(ctrl),
		balanceCache: mocks.NewMockBalanceCache(ctrl),
		ctrl:         ctrl,
	}
	d.svc = NewWalletService(d.walletRepo, d.txRepo, d.provider, d.balanceCache, zerolog.Nop())
	return d
}

func trackedWallet() *domain.Wallet {
	now := time.Now().UTC()
	return &domain.Wallet{
		ID:           uuid.New(),
		Address:      testAddress,
		Balance:      150_000,
		SyncStatus:   domain.SyncStatusCompleted,
		LastSyncedAt: &now,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// ==================== Create Tests ====================

func TestWalletService_Create_Success(t *testing.T) {
	d := setupWalletService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	d.walletRepo.EXPECT().Create(ctx, gomock.Any()).Return(nil)

	wallet, err := d.svc.Create(ctx, testAddress)
	require.NoError(t, err)
	assert.Equal(t, testAddress, wallet.Address)
	assert.Equal(t, int64(0), wallet.Balance)
	assert.Equal(t, domain.SyncStatusPending, wallet.SyncStatus)
}

func TestWalletService_Create_InvalidAddress(t *testing.T) {
	d := setupWalletService(t)
	defer d.ctrl.Finish()

	for _, addr := range []string{"", "not-an-address", "0x52908400098527886E0F7030069857D2E4169EE7"} {
		_, err := d.svc.Create(context.Background(), addr)
		var appErr *apperror.AppError
		require.True(t, errors.As(err, &appErr), addr)
		assert.Equal(t, "WAL_003", appErr.Code)
	}
}

func TestWalletService_Create_Duplicate(t *testing.T) {
	d := setupWalletService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	d.walletRepo.EXPECT().Create(ctx, gomock.Any()).Return(apperror.ErrDuplicateWallet())

	_, err := d.svc.Create(ctx, testAddress)
	var appErr *apperror.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, "WAL_002", appErr.Code)
}

// ==================== Get / List / Delete Tests ====================

func TestWalletService_Get_Success(t *testing.T) {
	d := setupWalletService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	wallet := trackedWallet()
	d.walletRepo.EXPECT().GetByAddress(ctx, testAddress).Return(wallet, nil)
	d.txRepo.EXPECT().CountByWallet(ctx, wallet.ID).Return(int64(60), nil)

	detail, err := d.svc.Get(ctx, testAddress)
	require.NoError(t, err)
	assert.Equal(t, wallet.Balance, detail.Balance)
	assert.Equal(t, int64(60), detail.TransactionCount)
}

func TestWalletService_Get_NotFound(t *testing.T) {
	d := setupWalletService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	d.walletRepo.EXPECT().GetByAddress(ctx, testAddress).Return(nil, nil)

	_, err := d.svc.Get(ctx, testAddress)
	var appErr *apperror.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, "WAL_001", appErr.Code)
}

func TestWalletService_List(t *testing.T) {
	d := setupWalletService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	w1, w2 := trackedWallet(), trackedWallet()
	d.walletRepo.EXPECT().List(ctx).Return([]domain.Wallet{*w1, *w2}, nil)
	d.txRepo.EXPECT().CountByWallet(ctx, w1.ID).Return(int64(3), nil)
	d.txRepo.EXPECT().CountByWallet(ctx, w2.ID).Return(int64(0), nil)

	details, err := d.svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, details, 2)
	assert.Equal(t, int64(3), details[0].TransactionCount)
	assert.Equal(t, int64(0), details[1].TransactionCount)
}

func TestWalletService_Delete_Success(t *testing.T) {
	d := setupWalletService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	d.walletRepo.EXPECT().Delete(ctx, testAddress).Return(true, nil)

	require.NoError(t, d.svc.Delete(ctx, testAddress))
}

func TestWalletService_Delete_NotFound(t *testing.T) {
	d := setupWalletService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	d.walletRepo.EXPECT().Delete(ctx, testAddress).Return(false, nil)

	err := d.svc.Delete(ctx, testAddress)
	var appErr *apperror.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, "WAL_001", appErr.Code)
}

// ==================== GetBalance Tests ====================

func TestWalletService_GetBalance_Stored(t *testing.T) {
	d := setupWalletService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	wallet := trackedWallet()
	d.walletRepo.EXPECT().GetByAddress(ctx, testAddress).Return(wallet, nil)

	info, err := d.svc.GetBalance(ctx, testAddress, false)
	require.NoError(t, err)
	assert.Equal(t, wallet.Balance, info.Balance)
	assert.Equal(t, domain.SyncStatusCompleted, info.SyncStatus)
	assert.False(t, info.Live)
}

func TestWalletService_GetBalance_LiveCacheMiss(t *testing.T) {
	d := setupWalletService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	wallet := trackedWallet()
	d.walletRepo.EXPECT().GetByAddress(ctx, testAddress).Return(wallet, nil)
	d.balanceCache.EXPECT().Get(ctx, testAddress).Return(int64(0), false, nil)
	d.provider.EXPECT().FetchAddressInfo(ctx, testAddress).Return(&ports.AddressInfo{Balance: 999_999}, nil)
	d.balanceCache.EXPECT().Set(ctx, testAddress, int64(999_999), liveBalanceTTL).Return(nil)

	info, err := d.svc.GetBalance(ctx, testAddress, true)
	require.NoError(t, err)
	assert.Equal(t, int64(999_999), info.Balance)
	assert.True(t, info.Live)
}

func TestWalletService_GetBalance_LiveCacheHit(t *testing.T) {
	d := setupWalletService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	wallet := trackedWallet()
	d.walletRepo.EXPECT().GetByAddress(ctx, testAddress).Return(wallet, nil)
	// Cache hit: the provider must not be called
	d.balanceCache.EXPECT().Get(ctx, testAddress).Return(int64(777), true, nil)

	info, err := d.svc.GetBalance(ctx, testAddress, true)
	require.NoError(t, err)
	assert.Equal(t, int64(777), info.Balance)
	assert.True(t, info.Live)
}

func TestWalletService_GetBalance_LiveProviderDown(t *testing.T) {
	d := setupWalletService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	wallet := trackedWallet()
	d.walletRepo.EXPECT().GetByAddress(ctx, testAddress).Return(wallet, nil)
	d.balanceCache.EXPECT().Get(ctx, testAddress).Return(int64(0), false, nil)
	d.provider.EXPECT().FetchAddressInfo(ctx, testAddress).
		Return(nil, apperror.ErrProviderUnavailable(errors.New("timeout")))

	_, err := d.svc.GetBalance(ctx, testAddress, true)
	var appErr *apperror.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, "PROV_001", appErr.Code)
}

// ==================== ListTransactions Tests ====================

func TestWalletService_ListTransactions_DefaultsAndClamp(t *testing.T) {
	d := setupWalletService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	wallet := trackedWallet()

	cases := []struct {
		name            string
		inLimit, limit  int
		inOffset, ofs   int
	}{
		{"defaults", 0, 50, -5, 0},
		{"clamped", 1000, 200, 10, 10},
		{"passthrough", 25, 25, 0, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			d.walletRepo.EXPECT().GetByAddress(ctx, testAddress).Return(wallet, nil)
			d.txRepo.EXPECT().ListByWallet(ctx, wallet.ID, tc.limit, tc.ofs).
				Return([]domain.Transaction{}, int64(60), nil)

			page, err := d.svc.ListTransactions(ctx, testAddress, tc.inLimit, tc.inOffset)
			require.NoError(t, err)
			assert.Equal(t, tc.limit, page.Limit)
			assert.Equal(t, tc.ofs, page.Offset)
			assert.Equal(t, int64(60), page.Total)
		})
	}
}

func TestWalletService_ListTransactions_WalletNotFound(t *testing.T) {
	d := setupWalletService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	d.walletRepo.EXPECT().GetByAddress(ctx, testAddress).Return(nil, nil)

	_, err := d.svc.ListTransactions(ctx, testAddress, 10, 0)
	var appErr *apperror.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, "WAL_001", appErr.Code)
}
