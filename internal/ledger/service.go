// Package ledger implements the staking ledger: pool creation, stake, unstake,
// claim and reward funding over a transactional store.
//
// Every mutating operation reads the clock once, then runs as a single unit of
// work: it settles pending rewards up to that instant, moves assets through
// custody, updates the stake record and pool aggregate, and appends a ledger
// event. Either all of it commits or none of it does. Committed events are
// then handed to the configured Publisher.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"solana-staking-ledger/internal/address"
	"solana-staking-ledger/internal/clock"
	"solana-staking-ledger/internal/custody"
	"solana-staking-ledger/internal/domain"
	"solana-staking-ledger/internal/idhash"
	"solana-staking-ledger/internal/observability"
	"solana-staking-ledger/internal/rewards"
	"solana-staking-ledger/internal/storage"
)

// Operation names used in logs and metrics.
const (
	OpInitializePool = "initialize_pool"
	OpStake          = "stake"
	OpUnstake        = "unstake"
	OpClaim          = "claim"
	OpFundRewards    = "fund_rewards"
	OpCreditAccount  = "credit_account"
)

// Publisher receives events after the transaction that produced them commits.
// Delivery failures must not affect the ledger.
type Publisher interface {
	Publish(ctx context.Context, events []*domain.LedgerEvent)
}

type nopPublisher struct{}

func (nopPublisher) Publish(context.Context, []*domain.LedgerEvent) {}

// Service runs ledger operations.
type Service struct {
	store     storage.LedgerStore
	bank      *custody.Bank
	clock     clock.Clock
	deriver   *address.Deriver
	publisher Publisher
}

// Option configures Service.
type Option func(*Service)

// WithPublisher sets the post-commit event publisher.
func WithPublisher(p Publisher) Option {
	return func(s *Service) {
		s.publisher = p
	}
}

// WithBank sets the custody bank.
func WithBank(b *custody.Bank) Option {
	return func(s *Service) {
		s.bank = b
	}
}

// NewService creates a ledger Service.
func NewService(store storage.LedgerStore, clk clock.Clock, deriver *address.Deriver, opts ...Option) *Service {
	s := &Service{
		store:     store,
		bank:      custody.NewBank(),
		clock:     clk,
		deriver:   deriver,
		publisher: nopPublisher{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// mutation carries the state one unit of work builds up.
type mutation struct {
	events []*domain.LedgerEvent
	pool   *domain.StakingPool
	amount uint64
}

// mutate reads the clock, runs fn in a writable transaction and, once it has
// committed, records metrics and publishes the events fn appended.
func (s *Service) mutate(ctx context.Context, op string, fn func(tx storage.Tx, now int64, m *mutation) error) (*mutation, error) {
	start := time.Now()

	m, err := s.run(ctx, fn)
	observability.RecordOperation(op, ErrorKind(err), time.Since(start).Seconds())
	if err != nil {
		log.Ctx(ctx).Warn().
			Str("operation", op).
			Str("kind", ErrorKind(err)).
			Err(err).
			Msg("ledger operation failed")
		return nil, err
	}

	if m.pool != nil && len(m.events) > 0 {
		last := m.events[len(m.events)-1]
		observability.RecordCommitted(op, m.pool.Address, m.amount, m.pool.TotalStaked, last.Timestamp)
	}
	if len(m.events) > 0 {
		s.publisher.Publish(ctx, m.events)
	}
	return m, nil
}

func (s *Service) run(ctx context.Context, fn func(tx storage.Tx, now int64, m *mutation) error) (*mutation, error) {
	now, err := s.clock.Now(ctx)
	if err != nil {
		return nil, fmt.Errorf("read clock: %w", err)
	}

	var m *mutation
	err = s.store.Update(ctx, func(tx storage.Tx) error {
		// the store may retry fn; start from a clean slate each attempt
		m = &mutation{}
		return fn(tx, now, m)
	})
	if err != nil {
		return nil, err
	}
	return m, nil
}

// appendEvent assigns the next pool sequence to a new event and records it.
// The caller persists the pool afterwards.
func (s *Service) appendEvent(ctx context.Context, tx storage.Tx, m *mutation, pool *domain.StakingPool, kind domain.EventKind, owner string, amount, settled uint64, now int64, stake *domain.UserStake) error {
	pool.EventSequence++

	e := &domain.LedgerEvent{
		Kind:        kind,
		Pool:        pool.Address,
		Owner:       owner,
		Amount:      amount,
		Settled:     settled,
		Timestamp:   now,
		Sequence:    pool.EventSequence,
		TotalStaked: pool.TotalStaked,
	}
	if stake != nil {
		e.DepositedAmount = stake.DepositedAmount
		e.AccumulatedRewards = stake.AccumulatedRewards
	}
	e.EventID = idhash.ComputeEventID(e.Pool, e.Sequence, e.Kind, e.Owner, e.Amount, e.Timestamp)

	if err := tx.AppendEvent(ctx, e); err != nil {
		return fmt.Errorf("append event: %w", err)
	}
	m.events = append(m.events, e)
	m.pool = pool
	m.amount = amount
	return nil
}

// settle folds the reward accrued since the checkpoint into AccumulatedRewards
// and returns the settled amount. The checkpoint is left to the caller.
func settle(stake *domain.UserStake, rate uint64, now int64) (uint64, error) {
	reward, err := rewards.Settle(stake.DepositedAmount, now, stake.RewardCheckpoint, rate)
	if err != nil {
		return 0, fmt.Errorf("%w: settle reward: %v", ErrArithmeticOverflow, err)
	}
	acc, err := checkedAdd(stake.AccumulatedRewards, reward, "accumulated rewards")
	if err != nil {
		return 0, err
	}
	stake.AccumulatedRewards = acc
	return reward, nil
}

func parseAddress(field, s string) (address.Pubkey, error) {
	pk, err := address.Parse(s)
	if err != nil {
		return address.Pubkey{}, fmt.Errorf("%w: %s: %v", ErrInvalidAddress, field, err)
	}
	return pk, nil
}

func (s *Service) loadPool(ctx context.Context, tx storage.Tx, pool string) (*domain.StakingPool, error) {
	p, err := tx.GetPool(ctx, pool)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrPoolNotFound, pool)
	}
	if err != nil {
		return nil, fmt.Errorf("get pool %s: %w", pool, err)
	}
	return p, nil
}

// loadStake returns the stake record of owner in pool, or nil if none exists.
// A record whose stored owner differs from owner fails with ErrUnauthorized.
func (s *Service) loadStake(ctx context.Context, tx storage.Tx, pool *domain.StakingPool, owner string) (*domain.UserStake, address.Derived, error) {
	poolKey, err := parseAddress("pool", pool.Address)
	if err != nil {
		return nil, address.Derived{}, err
	}
	ownerKey, err := parseAddress("principal", owner)
	if err != nil {
		return nil, address.Derived{}, err
	}
	derived, err := s.deriver.UserStake(poolKey, ownerKey)
	if err != nil {
		return nil, address.Derived{}, fmt.Errorf("derive stake address: %w", err)
	}

	stake, err := tx.GetUserStake(ctx, derived.String())
	if errors.Is(err, storage.ErrNotFound) {
		return nil, derived, nil
	}
	if err != nil {
		return nil, derived, fmt.Errorf("get stake %s: %w", derived, err)
	}
	if stake.Owner != owner || stake.Pool != pool.Address {
		return nil, derived, fmt.Errorf("%w: stake %s belongs to %s", ErrUnauthorized, derived, stake.Owner)
	}
	return stake, derived, nil
}

// tokenAccount derives the address of owner's token account for mint.
func (s *Service) tokenAccount(owner, mint string) (string, error) {
	ownerKey, err := parseAddress("owner", owner)
	if err != nil {
		return "", err
	}
	mintKey, err := parseAddress("mint", mint)
	if err != nil {
		return "", err
	}
	d, err := s.deriver.TokenAccount(ownerKey, mintKey)
	if err != nil {
		return "", fmt.Errorf("derive token account: %w", err)
	}
	return d.String(), nil
}
