package memory

import (
	"context"
	"sort"
	"sync"

	"solana-staking-ledger/internal/domain"
	"solana-staking-ledger/internal/storage"
)

// LedgerStore is an in-memory implementation of storage.LedgerStore.
// Update transactions are fully serialized; writes are staged and applied
// only when the callback succeeds.
type LedgerStore struct {
	mu       sync.RWMutex
	pools    map[string]*domain.StakingPool  // keyed by address
	stakes   map[string]*domain.UserStake    // keyed by address
	accounts map[string]*domain.TokenAccount // keyed by address
	events   []*domain.LedgerEvent
	eventIDs map[string]bool
}

// NewLedgerStore creates a new in-memory ledger store.
func NewLedgerStore() *LedgerStore {
	return &LedgerStore{
		pools:    make(map[string]*domain.StakingPool),
		stakes:   make(map[string]*domain.UserStake),
		accounts: make(map[string]*domain.TokenAccount),
		eventIDs: make(map[string]bool),
	}
}

// Update runs fn in a writable transaction.
func (s *LedgerStore) Update(ctx context.Context, fn func(tx storage.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	tx := newLedgerTx(s, true)
	if err := fn(tx); err != nil {
		return err
	}
	tx.commit()
	return nil
}

// View runs fn in a read-only transaction.
func (s *LedgerStore) View(ctx context.Context, fn func(tx storage.Tx) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	return fn(newLedgerTx(s, false))
}

// ledgerTx stages writes on top of the store's committed state.
type ledgerTx struct {
	store    *LedgerStore
	writable bool

	pools    map[string]*domain.StakingPool
	stakes   map[string]*domain.UserStake
	accounts map[string]*domain.TokenAccount
	events   []*domain.LedgerEvent
	eventIDs map[string]bool
}

func newLedgerTx(s *LedgerStore, writable bool) *ledgerTx {
	return &ledgerTx{
		store:    s,
		writable: writable,
		pools:    make(map[string]*domain.StakingPool),
		stakes:   make(map[string]*domain.UserStake),
		accounts: make(map[string]*domain.TokenAccount),
		eventIDs: make(map[string]bool),
	}
}

// commit applies staged writes. Caller holds the store write lock.
func (tx *ledgerTx) commit() {
	for k, v := range tx.pools {
		tx.store.pools[k] = v
	}
	for k, v := range tx.stakes {
		tx.store.stakes[k] = v
	}
	for k, v := range tx.accounts {
		tx.store.accounts[k] = v
	}
	for _, e := range tx.events {
		tx.store.events = append(tx.store.events, e)
		tx.store.eventIDs[e.EventID] = true
	}
}

func (tx *ledgerTx) pool(address string) (*domain.StakingPool, bool) {
	if p, ok := tx.pools[address]; ok {
		return p, true
	}
	p, ok := tx.store.pools[address]
	return p, ok
}

func (tx *ledgerTx) GetPool(_ context.Context, address string) (*domain.StakingPool, error) {
	p, ok := tx.pool(address)
	if !ok {
		return nil, storage.ErrNotFound
	}
	return p.Clone(), nil
}

func (tx *ledgerTx) InsertPool(_ context.Context, p *domain.StakingPool) error {
	if !tx.writable {
		return storage.ErrReadOnly
	}
	if p == nil || p.Address == "" {
		return storage.ErrInvalidInput
	}
	if _, exists := tx.pool(p.Address); exists {
		return storage.ErrDuplicateKey
	}
	tx.pools[p.Address] = p.Clone()
	return nil
}

func (tx *ledgerTx) UpdatePool(_ context.Context, p *domain.StakingPool) error {
	if !tx.writable {
		return storage.ErrReadOnly
	}
	if p == nil || p.Address == "" {
		return storage.ErrInvalidInput
	}
	if _, exists := tx.pool(p.Address); !exists {
		return storage.ErrNotFound
	}
	tx.pools[p.Address] = p.Clone()
	return nil
}

func (tx *ledgerTx) ListPools(_ context.Context) ([]*domain.StakingPool, error) {
	merged := make(map[string]*domain.StakingPool, len(tx.store.pools)+len(tx.pools))
	for k, v := range tx.store.pools {
		merged[k] = v
	}
	for k, v := range tx.pools {
		merged[k] = v
	}

	result := make([]*domain.StakingPool, 0, len(merged))
	for _, p := range merged {
		result = append(result, p.Clone())
	}

	// Sort by created_at ASC, address ASC
	sort.Slice(result, func(i, j int) bool {
		if result[i].CreatedAt != result[j].CreatedAt {
			return result[i].CreatedAt < result[j].CreatedAt
		}
		return result[i].Address < result[j].Address
	})
	return result, nil
}

func (tx *ledgerTx) GetUserStake(_ context.Context, address string) (*domain.UserStake, error) {
	if s, ok := tx.stakes[address]; ok {
		return s.Clone(), nil
	}
	s, ok := tx.store.stakes[address]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return s.Clone(), nil
}

func (tx *ledgerTx) PutUserStake(_ context.Context, s *domain.UserStake) error {
	if !tx.writable {
		return storage.ErrReadOnly
	}
	if s == nil || s.Address == "" || s.Pool == "" {
		return storage.ErrInvalidInput
	}
	tx.stakes[s.Address] = s.Clone()
	return nil
}

func (tx *ledgerTx) ListUserStakes(_ context.Context, pool string) ([]*domain.UserStake, error) {
	merged := make(map[string]*domain.UserStake)
	for k, v := range tx.store.stakes {
		if v.Pool == pool {
			merged[k] = v
		}
	}
	for k, v := range tx.stakes {
		if v.Pool == pool {
			merged[k] = v
		}
	}

	result := make([]*domain.UserStake, 0, len(merged))
	for _, s := range merged {
		result = append(result, s.Clone())
	}

	// Sort by owner ASC
	sort.Slice(result, func(i, j int) bool {
		return result[i].Owner < result[j].Owner
	})
	return result, nil
}

func (tx *ledgerTx) account(address string) (*domain.TokenAccount, bool) {
	if a, ok := tx.accounts[address]; ok {
		return a, true
	}
	a, ok := tx.store.accounts[address]
	return a, ok
}

func (tx *ledgerTx) GetTokenAccount(_ context.Context, address string) (*domain.TokenAccount, error) {
	a, ok := tx.account(address)
	if !ok {
		return nil, storage.ErrNotFound
	}
	return a.Clone(), nil
}

func (tx *ledgerTx) InsertTokenAccount(_ context.Context, a *domain.TokenAccount) error {
	if !tx.writable {
		return storage.ErrReadOnly
	}
	if a == nil || a.Address == "" {
		return storage.ErrInvalidInput
	}
	if _, exists := tx.account(a.Address); exists {
		return storage.ErrDuplicateKey
	}
	tx.accounts[a.Address] = a.Clone()
	return nil
}

func (tx *ledgerTx) EnsureTokenAccount(_ context.Context, a *domain.TokenAccount) (*domain.TokenAccount, error) {
	if !tx.writable {
		return nil, storage.ErrReadOnly
	}
	if a == nil || a.Address == "" {
		return nil, storage.ErrInvalidInput
	}
	if existing, ok := tx.account(a.Address); ok {
		return existing.Clone(), nil
	}
	tx.accounts[a.Address] = a.Clone()
	return a.Clone(), nil
}

func (tx *ledgerTx) UpdateTokenAccount(_ context.Context, a *domain.TokenAccount) error {
	if !tx.writable {
		return storage.ErrReadOnly
	}
	if a == nil || a.Address == "" {
		return storage.ErrInvalidInput
	}
	if _, exists := tx.account(a.Address); !exists {
		return storage.ErrNotFound
	}
	tx.accounts[a.Address] = a.Clone()
	return nil
}

func (tx *ledgerTx) AppendEvent(_ context.Context, e *domain.LedgerEvent) error {
	if !tx.writable {
		return storage.ErrReadOnly
	}
	if e == nil || e.EventID == "" {
		return storage.ErrInvalidInput
	}
	if tx.store.eventIDs[e.EventID] || tx.eventIDs[e.EventID] {
		return storage.ErrDuplicateKey
	}
	eventCopy := *e
	tx.events = append(tx.events, &eventCopy)
	tx.eventIDs[e.EventID] = true
	return nil
}

func (tx *ledgerTx) ListEvents(_ context.Context, pool string, afterSequence uint64, limit int) ([]*domain.LedgerEvent, error) {
	var result []*domain.LedgerEvent
	for _, list := range [][]*domain.LedgerEvent{tx.store.events, tx.events} {
		for _, e := range list {
			if e.Pool == pool && e.Sequence > afterSequence {
				eventCopy := *e
				result = append(result, &eventCopy)
			}
		}
	}

	// Sort by sequence ASC
	sort.Slice(result, func(i, j int) bool {
		return result[i].Sequence < result[j].Sequence
	})

	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

// Verify interface compliance at compile time.
var (
	_ storage.LedgerStore = (*LedgerStore)(nil)
	_ storage.Tx          = (*ledgerTx)(nil)
)
