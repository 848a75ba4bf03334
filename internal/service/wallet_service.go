package service

import (
	"context"
	"fmt"
	"time"

	"cointracker/internal/core/domain"
	"cointracker/internal/core/ports"
	"cointracker/pkg/apperror"

	"github.com/rs/zerolog"
)

const (
	liveBalanceTTL = 60 * time.Second

	defaultTxLimit = 50
	maxTxLimit     = 200
)

// WalletServiceImpl implements ports.WalletService.
type WalletServiceImpl struct {
	walletRepo   ports.WalletRepository
	txRepo       ports.TransactionRepository
	provider     ports.Provider
	balanceCache ports.BalanceCache
	log          zerolog.Logger
}

// NewWalletService creates a new WalletServiceImpl.
func NewWalletService(
	walletRepo ports.WalletRepository,
	txRepo ports.TransactionRepository,
	provider ports.Provider,
	balanceCache ports.BalanceCache,
	log zerolog.Logger,
) *WalletServiceImpl {
	return &WalletServiceImpl{
		walletRepo:   walletRepo,
		txRepo:       txRepo,
		provider:     provider,
		balanceCache: balanceCache,
		log:          log,
	}
}

// Create registers an address for tracking. The wallet starts with a
// zero balance and sync_status pending until the first sync runs.
func (s *WalletServiceImpl) Create(ctx context.Context, address string) (*domain.Wallet, error) {
	if !domain.ValidAddress(address) {
		return nil, apperror.ErrInvalidAddress(address)
	}

	wallet := domain.NewWallet(address)
	if err := s.walletRepo.Create(ctx, wallet); err != nil {
		return nil, err
	}

	s.log.Info().Str("address", address).Str("wallet_id", wallet.ID.String()).Msg("wallet created")
	return wallet, nil
}

// Get returns the wallet with its stored transaction count.
func (s *WalletServiceImpl) Get(ctx context.Context, address string) (*ports.WalletDetail, error) {
	wallet, err := s.getWallet(ctx, address)
	if err != nil {
		return nil, err
	}

	count, err := s.txRepo.CountByWallet(ctx, wallet.ID)
	if err != nil {
		return nil, apperror.ErrDatabaseError(fmt.Errorf("count transactions: %w", err))
	}

	return &ports.WalletDetail{Wallet: *wallet, TransactionCount: count}, nil
}

// List returns all tracked wallets with their transaction counts.
func (s *WalletServiceImpl) List(ctx context.Context) ([]ports.WalletDetail, error) {
	wallets, err := s.walletRepo.List(ctx)
	if err != nil {
		return nil, apperror.ErrDatabaseError(fmt.Errorf("list wallets: %w", err))
	}

	details := make([]ports.WalletDetail, 0, len(wallets))
	for _, w := range wallets {
		count, err := s.txRepo.CountByWallet(ctx, w.ID)
		if err != nil {
			return nil, apperror.ErrDatabaseError(fmt.Errorf("count transactions: %w", err))
		}
		details = append(details, ports.WalletDetail{Wallet: w, TransactionCount: count})
	}
	return details, nil
}

// Delete removes the wallet; its transactions and sync jobs cascade.
func (s *WalletServiceImpl) Delete(ctx context.Context, address string) error {
	deleted, err := s.walletRepo.Delete(ctx, address)
	if err != nil {
		return apperror.ErrDatabaseError(fmt.Errorf("delete wallet: %w", err))
	}
	if !deleted {
		return apperror.ErrWalletNotFound()
	}

	s.log.Info().Str("address", address).Msg("wallet deleted")
	return nil
}

// GetBalance serves the stored balance, or with live set asks the
// provider directly. Live lookups are cached briefly so repeated polls
// do not burn the provider rate budget.
func (s *WalletServiceImpl) GetBalance(ctx context.Context, address string, live bool) (*ports.BalanceInfo, error) {
	wallet, err := s.getWallet(ctx, address)
	if err != nil {
		return nil, err
	}

	info := &ports.BalanceInfo{
		Address:      wallet.Address,
		Balance:      wallet.Balance,
		SyncStatus:   wallet.SyncStatus,
		LastSyncedAt: wallet.LastSyncedAt,
	}
	if !live {
		return info, nil
	}

	if cached, ok, err := s.balanceCache.Get(ctx, address); err != nil {
		s.log.Warn().Err(err).Str("address", address).Msg("balance cache read failed")
	} else if ok {
		info.Balance = cached
		info.Live = true
		return info, nil
	}

	addrInfo, err := s.provider.FetchAddressInfo(ctx, address)
	if err != nil {
		return nil, err
	}
	if err := s.balanceCache.Set(ctx, address, addrInfo.Balance, liveBalanceTTL); err != nil {
		s.log.Warn().Err(err).Str("address", address).Msg("balance cache write failed")
	}

	info.Balance = addrInfo.Balance
	info.Live = true
	return info, nil
}

// ListTransactions returns a page of the wallet's stored transactions,
// newest first with unconfirmed entries leading. Limit defaults to 50
// and is clamped to 200.
func (s *WalletServiceImpl) ListTransactions(ctx context.Context, address string, limit, offset int) (*ports.TransactionPage, error) {
	wallet, err := s.getWallet(ctx, address)
	if err != nil {
		return nil, err
	}

	if limit <= 0 {
		limit = defaultTxLimit
	}
	if limit > maxTxLimit {
		limit = maxTxLimit
	}
	if offset < 0 {
		offset = 0
	}

	txs, total, err := s.txRepo.ListByWallet(ctx, wallet.ID, limit, offset)
	if err != nil {
		return nil, apperror.ErrDatabaseError(fmt.Errorf("list transactions: %w", err))
	}

	return &ports.TransactionPage{
		Transactions: txs,
		Total:        total,
		Limit:        limit,
		Offset:       offset,
	}, nil
}

func (s *WalletServiceImpl) getWallet(ctx context.Context, address string) (*domain.Wallet, error) {
	wallet, err := s.walletRepo.GetByAddress(ctx, address)
	if err != nil {
		return nil, apperror.ErrDatabaseError(fmt.Errorf("get wallet: %w", err))
	}
	if wallet == nil {
		return nil, apperror.ErrWalletNotFound()
	}
	return wallet, nil
}
