package storage

import (
	"context"

	"solana-staking-ledger/internal/domain"
)

// LedgerStore runs ledger operations as atomic units of work.
//
// Update executes fn against a writable transaction. Every write made through
// the Tx is applied only if fn returns nil; on any error nothing is persisted.
// Writers to the same pool are serialized: a transaction that has read a pool
// through GetPool holds it until commit or rollback.
//
// View executes fn against a read-only snapshot. Writes return ErrReadOnly.
type LedgerStore interface {
	Update(ctx context.Context, fn func(tx Tx) error) error
	View(ctx context.Context, fn func(tx Tx) error) error
}

// Tx gives access to ledger records inside one unit of work.
// Returned records are copies; callers persist changes with the Put/Update methods.
type Tx interface {
	// GetPool retrieves a pool by address. Returns ErrNotFound if not exists.
	GetPool(ctx context.Context, address string) (*domain.StakingPool, error)

	// InsertPool adds a new pool. Returns ErrDuplicateKey if the address exists.
	InsertPool(ctx context.Context, p *domain.StakingPool) error

	// UpdatePool overwrites an existing pool. Returns ErrNotFound if not exists.
	UpdatePool(ctx context.Context, p *domain.StakingPool) error

	// ListPools retrieves all pools ordered by creation time.
	ListPools(ctx context.Context) ([]*domain.StakingPool, error)

	// GetUserStake retrieves a stake record by address. Returns ErrNotFound if not exists.
	GetUserStake(ctx context.Context, address string) (*domain.UserStake, error)

	// PutUserStake inserts or overwrites a stake record.
	PutUserStake(ctx context.Context, s *domain.UserStake) error

	// ListUserStakes retrieves all stake records of a pool ordered by owner.
	ListUserStakes(ctx context.Context, pool string) ([]*domain.UserStake, error)

	// GetTokenAccount retrieves a token account. Returns ErrNotFound if not exists.
	GetTokenAccount(ctx context.Context, address string) (*domain.TokenAccount, error)

	// InsertTokenAccount adds a token account. Returns ErrDuplicateKey if the address exists.
	InsertTokenAccount(ctx context.Context, a *domain.TokenAccount) error

	// EnsureTokenAccount inserts a unless an account with its address already
	// exists, and returns the stored account. Concurrent callers for the same
	// address all succeed.
	EnsureTokenAccount(ctx context.Context, a *domain.TokenAccount) (*domain.TokenAccount, error)

	// UpdateTokenAccount overwrites an existing token account. Returns ErrNotFound if not exists.
	UpdateTokenAccount(ctx context.Context, a *domain.TokenAccount) error

	// AppendEvent records a ledger event. Returns ErrDuplicateKey if event_id exists.
	AppendEvent(ctx context.Context, e *domain.LedgerEvent) error

	// ListEvents retrieves events of a pool with sequence > afterSequence,
	// ordered by sequence ASC. A non-positive limit returns all of them.
	ListEvents(ctx context.Context, pool string, afterSequence uint64, limit int) ([]*domain.LedgerEvent, error)
}
