package integration

import (
	"context"
	"sort"
	"sync"
	"time"

	"cointracker/internal/core/domain"
	"cointracker/pkg/apperror"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// memStore backs all in-memory repositories with one lock, so the
// wallet cascade and the one-active-job invariant behave like the
// real schema's constraints.
type memStore struct {
	mu        sync.RWMutex
	wallets   map[uuid.UUID]*domain.Wallet
	byAddress map[string]uuid.UUID
	txs       map[uuid.UUID]map[string]*domain.Transaction // walletID -> txid
	jobs      map[uuid.UUID]*domain.SyncJob
}

func newMemStore() *memStore {
	return &memStore{
		wallets:   make(map[uuid.UUID]*domain.Wallet),
		byAddress: make(map[string]uuid.UUID),
		txs:       make(map[uuid.UUID]map[string]*domain.Transaction),
		jobs:      make(map[uuid.UUID]*domain.SyncJob),
	}
}

// --- Wallet repo ---

type inMemoryWalletRepo struct{ s *memStore }

func (r *inMemoryWalletRepo) Create(ctx context.Context, w *domain.Wallet) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, exists := r.s.byAddress[w.Address]; exists {
		return apperror.ErrDuplicateWallet()
	}
	cp := *w
	r.s.wallets[w.ID] = &cp
	r.s.byAddress[w.Address] = w.ID
	return nil
}

func (r *inMemoryWalletRepo) GetByAddress(ctx context.Context, address string) (*domain.Wallet, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	id, ok := r.s.byAddress[address]
	if !ok {
		return nil, nil
	}
	cp := *r.s.wallets[id]
	return &cp, nil
}

func (r *inMemoryWalletRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Wallet, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	w, ok := r.s.wallets[id]
	if !ok {
		return nil, nil
	}
	cp := *w
	return &cp, nil
}

func (r *inMemoryWalletRepo) List(ctx context.Context) ([]domain.Wallet, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := make([]domain.Wallet, 0, len(r.s.wallets))
	for _, w := range r.s.wallets {
		out = append(out, *w)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (r *inMemoryWalletRepo) Delete(ctx context.Context, address string) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	id, ok := r.s.byAddress[address]
	if !ok {
		return false, nil
	}
	delete(r.s.byAddress, address)
	delete(r.s.wallets, id)
	delete(r.s.txs, id)
	// Cascade sync jobs too
	for jobID, job := range r.s.jobs {
		if job.WalletID == id {
			delete(r.s.jobs, jobID)
		}
	}
	return true, nil
}

func (r *inMemoryWalletRepo) UpdateSyncStatus(ctx context.Context, id uuid.UUID, status domain.SyncStatus) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if w, ok := r.s.wallets[id]; ok {
		w.SyncStatus = status
		w.UpdatedAt = time.Now().UTC()
	}
	return nil
}

func (r *inMemoryWalletRepo) AddToBalance(ctx context.Context, _ pgx.Tx, id uuid.UUID, delta int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if w, ok := r.s.wallets[id]; ok {
		w.Balance += delta
	}
	return nil
}

func (r *inMemoryWalletRepo) SetBalance(ctx context.Context, id uuid.UUID, balance int64, syncedAt time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if w, ok := r.s.wallets[id]; ok {
		w.Balance = balance
		w.LastSyncedAt = &syncedAt
		w.UpdatedAt = syncedAt
	}
	return nil
}

// --- Transaction repo ---

type inMemoryTransactionRepo struct{ s *memStore }

func (r *inMemoryTransactionRepo) Upsert(ctx context.Context, _ pgx.Tx, t *domain.Transaction) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	byTxID, ok := r.s.txs[t.WalletID]
	if !ok {
		byTxID = make(map[string]*domain.Transaction)
		r.s.txs[t.WalletID] = byTxID
	}
	if _, exists := byTxID[t.TxID]; exists {
		return false, nil
	}
	cp := *t
	byTxID[t.TxID] = &cp
	return true, nil
}

func (r *inMemoryTransactionRepo) ListByWallet(ctx context.Context, walletID uuid.UUID, limit, offset int) ([]domain.Transaction, int64, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	all := make([]domain.Transaction, 0, len(r.s.txs[walletID]))
	for _, t := range r.s.txs[walletID] {
		all = append(all, *t)
	}
	// timestamp DESC with unconfirmed (nil) first, txid ASC as tie-break
	sort.Slice(all, func(i, j int) bool {
		ti, tj := all[i].Timestamp, all[j].Timestamp
		switch {
		case ti == nil && tj != nil:
			return true
		case ti != nil && tj == nil:
			return false
		case ti != nil && tj != nil && !ti.Equal(*tj):
			return ti.After(*tj)
		}
		return all[i].TxID < all[j].TxID
	})

	total := int64(len(all))
	if offset >= len(all) {
		return []domain.Transaction{}, total, nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], total, nil
}

func (r *inMemoryTransactionRepo) CountByWallet(ctx context.Context, walletID uuid.UUID) (int64, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return int64(len(r.s.txs[walletID])), nil
}

func (r *inMemoryTransactionRepo) SumByWallet(ctx context.Context, walletID uuid.UUID) (int64, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var sum int64
	for _, t := range r.s.txs[walletID] {
		sum += t.Value
	}
	return sum, nil
}

// --- Sync job repo ---

type inMemorySyncJobRepo struct{ s *memStore }

func (r *inMemorySyncJobRepo) Create(ctx context.Context, job *domain.SyncJob) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	// Mirror the partial unique index: one non-terminal job per wallet
	for _, existing := range r.s.jobs {
		if existing.WalletID == job.WalletID && !existing.IsTerminal() {
			return apperror.ErrSyncInProgress(existing.ID.String())
		}
	}
	cp := *job
	r.s.jobs[job.ID] = &cp
	return nil
}

func (r *inMemorySyncJobRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.SyncJob, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	job, ok := r.s.jobs[id]
	if !ok {
		return nil, nil
	}
	cp := *job
	return &cp, nil
}

func (r *inMemorySyncJobRepo) GetActiveByWallet(ctx context.Context, walletID uuid.UUID) (*domain.SyncJob, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, job := range r.s.jobs {
		if job.WalletID == walletID && !job.IsTerminal() {
			cp := *job
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *inMemorySyncJobRepo) MarkRunning(ctx context.Context, id uuid.UUID, startedAt time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if job, ok := r.s.jobs[id]; ok && job.Status == domain.JobStatusQueued {
		job.Status = domain.JobStatusRunning
		job.StartedAt = &startedAt
	}
	return nil
}

func (r *inMemorySyncJobRepo) MarkCompleted(ctx context.Context, id uuid.UUID, completedAt time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if job, ok := r.s.jobs[id]; ok && job.Status == domain.JobStatusRunning {
		job.Status = domain.JobStatusCompleted
		job.CompletedAt = &completedAt
	}
	return nil
}

func (r *inMemorySyncJobRepo) MarkFailed(ctx context.Context, id uuid.UUID, completedAt time.Time, detail string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if job, ok := r.s.jobs[id]; ok && !job.IsTerminal() {
		job.Status = domain.JobStatusFailed
		job.CompletedAt = &completedAt
		job.ErrorDetail = &detail
	}
	return nil
}

// --- Transactor (no-op tx) ---

type inMemoryTransactor struct{}

func (t *inMemoryTransactor) Begin(ctx context.Context) (pgx.Tx, error) {
	return &noopTx{}, nil
}

// noopTx is a no-op pgx.Tx implementation for in-memory testing.
type noopTx struct{}

func (t *noopTx) Begin(ctx context.Context) (pgx.Tx, error) { return t, nil }
func (t *noopTx) Commit(ctx context.Context) error          { return nil }
func (t *noopTx) Rollback(ctx context.Context) error        { return nil }
func (t *noopTx) CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error) {
	return 0, nil
}
func (t *noopTx) SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults { return nil }
func (t *noopTx) LargeObjects() pgx.LargeObjects                               { return pgx.LargeObjects{} }
func (t *noopTx) Prepare(ctx context.Context, name, sql string) (*pgconn.StatementDescription, error) {
	return nil, nil
}
func (t *noopTx) Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error) {
	return pgconn.NewCommandTag(""), nil
}
func (t *noopTx) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return nil, nil
}
func (t *noopTx) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	return nil
}
func (t *noopTx) Conn() *pgx.Conn { return nil }
