package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/rs/zerolog/log"

	"solana-staking-ledger/internal/domain"
	"solana-staking-ledger/internal/observability"
	"solana-staking-ledger/internal/storage"
)

// Default retry settings for serialization failures and deadlocks.
const (
	DefaultTxAttempts   = 5
	DefaultTxRetryDelay = 10 * time.Millisecond
)

// LedgerStore implements storage.LedgerStore using PostgreSQL.
//
// Update runs in a READ COMMITTED transaction. Rows read through a writable
// Tx are locked with SELECT ... FOR UPDATE, always in the order pool, user
// stake, token accounts, so writers to one pool queue behind its row lock.
// Serialization failures and deadlocks roll back and rerun the callback.
type LedgerStore struct {
	pool       *Pool
	attempts   uint
	retryDelay time.Duration
}

// LedgerStoreOption configures LedgerStore.
type LedgerStoreOption func(*LedgerStore)

// WithTxAttempts sets how many times a failed transaction is attempted.
func WithTxAttempts(n uint) LedgerStoreOption {
	return func(s *LedgerStore) {
		s.attempts = n
	}
}

// NewLedgerStore creates a new LedgerStore.
func NewLedgerStore(pool *Pool, opts ...LedgerStoreOption) *LedgerStore {
	s := &LedgerStore{
		pool:       pool,
		attempts:   DefaultTxAttempts,
		retryDelay: DefaultTxRetryDelay,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Compile-time interface checks.
var (
	_ storage.LedgerStore = (*LedgerStore)(nil)
	_ storage.Tx          = (*ledgerTx)(nil)
)

// Update runs fn in a writable transaction, retrying retryable failures.
func (s *LedgerStore) Update(ctx context.Context, fn func(tx storage.Tx) error) error {
	start := time.Now()
	err := retry.Do(
		func() error {
			return s.runTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted}, true, fn)
		},
		retry.Context(ctx),
		retry.Attempts(s.attempts),
		retry.Delay(s.retryDelay),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(isRetryableError),
		retry.OnRetry(func(n uint, err error) {
			code := pgErrorCode(err)
			observability.RecordTxRetry("postgres", code)
			log.Ctx(ctx).Debug().
				Uint("attempt", n+1).
				Str("code", code).
				Err(err).
				Msg("ledger transaction conflict, retrying")
		}),
	)
	observability.RecordDBQuery("postgres", "update", time.Since(start).Seconds(), dbError(err))
	return err
}

// View runs fn in a read-only snapshot.
func (s *LedgerStore) View(ctx context.Context, fn func(tx storage.Tx) error) error {
	start := time.Now()
	err := s.runTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead, AccessMode: pgx.ReadOnly}, false, fn)
	observability.RecordDBQuery("postgres", "view", time.Since(start).Seconds(), dbError(err))
	return err
}

// dbError filters out errors the callback produced on its own.
func dbError(err error) error {
	if pgErrorCode(err) != "" {
		return err
	}
	return nil
}

func (s *LedgerStore) runTx(ctx context.Context, opts pgx.TxOptions, writable bool, fn func(tx storage.Tx) error) error {
	tx, err := s.pool.BeginTx(ctx, opts)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(&ledgerTx{tx: tx, writable: writable}); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// ledgerTx implements storage.Tx over one pgx transaction.
type ledgerTx struct {
	tx       pgx.Tx
	writable bool
}

// lockClause returns the row lock suffix for reads in a writable transaction.
func (t *ledgerTx) lockClause() string {
	if t.writable {
		return " FOR UPDATE"
	}
	return ""
}

const poolColumns = `address, authority, staking_mint, reward_mint, reward_rate, total_staked,
	staking_vault, reward_vault, bump, staking_vault_bump, reward_vault_bump, created_at, event_sequence`

func (t *ledgerTx) GetPool(ctx context.Context, address string) (*domain.StakingPool, error) {
	query := `SELECT ` + poolColumns + ` FROM staking_pools WHERE address = $1` + t.lockClause()

	p, err := scanPool(t.tx.QueryRow(ctx, query, address))
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get pool: %w", err)
	}
	return p, nil
}

func (t *ledgerTx) InsertPool(ctx context.Context, p *domain.StakingPool) error {
	if !t.writable {
		return storage.ErrReadOnly
	}
	if p == nil || p.Address == "" {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO staking_pools (` + poolColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`
	_, err := t.tx.Exec(ctx, query,
		p.Address,
		p.Authority,
		p.StakingMint,
		p.RewardMint,
		numeric(p.RewardRate),
		numeric(p.TotalStaked),
		p.StakingVault,
		p.RewardVault,
		int16(p.Bump),
		int16(p.StakingVaultBump),
		int16(p.RewardVaultBump),
		p.CreatedAt,
		int64(p.EventSequence),
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert pool: %w", err)
	}
	return nil
}

func (t *ledgerTx) UpdatePool(ctx context.Context, p *domain.StakingPool) error {
	if !t.writable {
		return storage.ErrReadOnly
	}
	if p == nil || p.Address == "" {
		return storage.ErrInvalidInput
	}

	// reward_rate, mints and vaults are immutable after creation
	query := `
		UPDATE staking_pools
		SET total_staked = $2, event_sequence = $3
		WHERE address = $1
	`
	tag, err := t.tx.Exec(ctx, query, p.Address, numeric(p.TotalStaked), int64(p.EventSequence))
	if err != nil {
		return fmt.Errorf("update pool: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func (t *ledgerTx) ListPools(ctx context.Context) ([]*domain.StakingPool, error) {
	query := `SELECT ` + poolColumns + ` FROM staking_pools ORDER BY created_at ASC, address ASC`

	rows, err := t.tx.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list pools: %w", err)
	}
	defer rows.Close()

	var result []*domain.StakingPool
	for rows.Next() {
		p, err := scanPool(rows)
		if err != nil {
			return nil, fmt.Errorf("scan pool: %w", err)
		}
		result = append(result, p)
	}
	return result, rows.Err()
}

const stakeColumns = `address, pool, owner, deposited_amount, accumulated_rewards, reward_checkpoint, bump`

func (t *ledgerTx) GetUserStake(ctx context.Context, address string) (*domain.UserStake, error) {
	query := `SELECT ` + stakeColumns + ` FROM user_stakes WHERE address = $1` + t.lockClause()

	s, err := scanStake(t.tx.QueryRow(ctx, query, address))
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get user stake: %w", err)
	}
	return s, nil
}

func (t *ledgerTx) PutUserStake(ctx context.Context, s *domain.UserStake) error {
	if !t.writable {
		return storage.ErrReadOnly
	}
	if s == nil || s.Address == "" || s.Pool == "" {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO user_stakes (` + stakeColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (address) DO UPDATE SET
			deposited_amount = EXCLUDED.deposited_amount,
			accumulated_rewards = EXCLUDED.accumulated_rewards,
			reward_checkpoint = EXCLUDED.reward_checkpoint
	`
	_, err := t.tx.Exec(ctx, query,
		s.Address,
		s.Pool,
		s.Owner,
		numeric(s.DepositedAmount),
		numeric(s.AccumulatedRewards),
		s.RewardCheckpoint,
		int16(s.Bump),
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("put user stake: %w", err)
	}
	return nil
}

func (t *ledgerTx) ListUserStakes(ctx context.Context, pool string) ([]*domain.UserStake, error) {
	query := `SELECT ` + stakeColumns + ` FROM user_stakes WHERE pool = $1 ORDER BY owner ASC`

	rows, err := t.tx.Query(ctx, query, pool)
	if err != nil {
		return nil, fmt.Errorf("list user stakes: %w", err)
	}
	defer rows.Close()

	var result []*domain.UserStake
	for rows.Next() {
		s, err := scanStake(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user stake: %w", err)
		}
		result = append(result, s)
	}
	return result, rows.Err()
}

func (t *ledgerTx) GetTokenAccount(ctx context.Context, address string) (*domain.TokenAccount, error) {
	query := `SELECT address, mint, owner, amount FROM token_accounts WHERE address = $1` + t.lockClause()

	var a domain.TokenAccount
	var amount pgtype.Numeric
	err := t.tx.QueryRow(ctx, query, address).Scan(&a.Address, &a.Mint, &a.Owner, &amount)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get token account: %w", err)
	}
	if a.Amount, err = uint64FromNumeric(amount); err != nil {
		return nil, fmt.Errorf("token account %s amount: %w", address, err)
	}
	return &a, nil
}

func (t *ledgerTx) InsertTokenAccount(ctx context.Context, a *domain.TokenAccount) error {
	if !t.writable {
		return storage.ErrReadOnly
	}
	if a == nil || a.Address == "" {
		return storage.ErrInvalidInput
	}

	query := `INSERT INTO token_accounts (address, mint, owner, amount) VALUES ($1, $2, $3, $4)`
	_, err := t.tx.Exec(ctx, query, a.Address, a.Mint, a.Owner, numeric(a.Amount))
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert token account: %w", err)
	}
	return nil
}

// EnsureTokenAccount relies on ON CONFLICT waiting for a concurrent inserter,
// so the follow-up locking read always finds the row.
func (t *ledgerTx) EnsureTokenAccount(ctx context.Context, a *domain.TokenAccount) (*domain.TokenAccount, error) {
	if !t.writable {
		return nil, storage.ErrReadOnly
	}
	if a == nil || a.Address == "" {
		return nil, storage.ErrInvalidInput
	}

	query := `INSERT INTO token_accounts (address, mint, owner, amount) VALUES ($1, $2, $3, $4)
		ON CONFLICT (address) DO NOTHING`
	if _, err := t.tx.Exec(ctx, query, a.Address, a.Mint, a.Owner, numeric(a.Amount)); err != nil {
		return nil, fmt.Errorf("ensure token account: %w", err)
	}
	return t.GetTokenAccount(ctx, a.Address)
}

func (t *ledgerTx) UpdateTokenAccount(ctx context.Context, a *domain.TokenAccount) error {
	if !t.writable {
		return storage.ErrReadOnly
	}
	if a == nil || a.Address == "" {
		return storage.ErrInvalidInput
	}

	tag, err := t.tx.Exec(ctx, `UPDATE token_accounts SET amount = $2 WHERE address = $1`, a.Address, numeric(a.Amount))
	if err != nil {
		return fmt.Errorf("update token account: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

const eventColumns = `event_id, pool, sequence, kind, owner, amount, settled, ts,
	deposited_amount, accumulated_rewards, total_staked`

func (t *ledgerTx) AppendEvent(ctx context.Context, e *domain.LedgerEvent) error {
	if !t.writable {
		return storage.ErrReadOnly
	}
	if e == nil || e.EventID == "" {
		return storage.ErrInvalidInput
	}

	query := `INSERT INTO ledger_events (` + eventColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`
	_, err := t.tx.Exec(ctx, query,
		e.EventID,
		e.Pool,
		int64(e.Sequence),
		string(e.Kind),
		e.Owner,
		numeric(e.Amount),
		numeric(e.Settled),
		e.Timestamp,
		numeric(e.DepositedAmount),
		numeric(e.AccumulatedRewards),
		numeric(e.TotalStaked),
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("append event: %w", err)
	}
	return nil
}

func (t *ledgerTx) ListEvents(ctx context.Context, pool string, afterSequence uint64, limit int) ([]*domain.LedgerEvent, error) {
	query := `SELECT ` + eventColumns + ` FROM ledger_events
		WHERE pool = $1 AND sequence > $2
		ORDER BY sequence ASC`
	args := []interface{}{pool, int64(afterSequence)}
	if limit > 0 {
		query += ` LIMIT $3`
		args = append(args, limit)
	}

	rows, err := t.tx.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	var result []*domain.LedgerEvent
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		result = append(result, e)
	}
	return result, rows.Err()
}

// scanPool scans a single pool row.
func scanPool(row pgx.Row) (*domain.StakingPool, error) {
	var p domain.StakingPool
	var rate, total pgtype.Numeric
	var bump, stakingVaultBump, rewardVaultBump int16
	var seq int64

	err := row.Scan(
		&p.Address,
		&p.Authority,
		&p.StakingMint,
		&p.RewardMint,
		&rate,
		&total,
		&p.StakingVault,
		&p.RewardVault,
		&bump,
		&stakingVaultBump,
		&rewardVaultBump,
		&p.CreatedAt,
		&seq,
	)
	if err != nil {
		return nil, err
	}

	if p.RewardRate, err = uint64FromNumeric(rate); err != nil {
		return nil, fmt.Errorf("reward_rate: %w", err)
	}
	if p.TotalStaked, err = uint64FromNumeric(total); err != nil {
		return nil, fmt.Errorf("total_staked: %w", err)
	}
	p.Bump = uint8(bump)
	p.StakingVaultBump = uint8(stakingVaultBump)
	p.RewardVaultBump = uint8(rewardVaultBump)
	p.EventSequence = uint64(seq)
	return &p, nil
}

// scanStake scans a single user stake row.
func scanStake(row pgx.Row) (*domain.UserStake, error) {
	var s domain.UserStake
	var deposited, accumulated pgtype.Numeric
	var bump int16

	err := row.Scan(
		&s.Address,
		&s.Pool,
		&s.Owner,
		&deposited,
		&accumulated,
		&s.RewardCheckpoint,
		&bump,
	)
	if err != nil {
		return nil, err
	}

	if s.DepositedAmount, err = uint64FromNumeric(deposited); err != nil {
		return nil, fmt.Errorf("deposited_amount: %w", err)
	}
	if s.AccumulatedRewards, err = uint64FromNumeric(accumulated); err != nil {
		return nil, fmt.Errorf("accumulated_rewards: %w", err)
	}
	s.Bump = uint8(bump)
	return &s, nil
}

// scanEvent scans a single ledger event row.
func scanEvent(row pgx.Row) (*domain.LedgerEvent, error) {
	var e domain.LedgerEvent
	var kind string
	var seq int64
	var amount, settled, deposited, accumulated, total pgtype.Numeric

	err := row.Scan(
		&e.EventID,
		&e.Pool,
		&seq,
		&kind,
		&e.Owner,
		&amount,
		&settled,
		&e.Timestamp,
		&deposited,
		&accumulated,
		&total,
	)
	if err != nil {
		return nil, err
	}

	e.Kind = domain.EventKind(kind)
	e.Sequence = uint64(seq)

	for _, f := range []struct {
		dst *uint64
		src pgtype.Numeric
	}{
		{&e.Amount, amount},
		{&e.Settled, settled},
		{&e.DepositedAmount, deposited},
		{&e.AccumulatedRewards, accumulated},
		{&e.TotalStaked, total},
	} {
		v, err := uint64FromNumeric(f.src)
		if err != nil {
			return nil, fmt.Errorf("event %s: %w", e.EventID, err)
		}
		*f.dst = v
	}
	return &e, nil
}
