package ledger

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"solana-staking-ledger/internal/address"
	"solana-staking-ledger/internal/clock"
	"solana-staking-ledger/internal/domain"
	"solana-staking-ledger/internal/rewards"
	"solana-staking-ledger/internal/storage"
	"solana-staking-ledger/internal/storage/memory"
)

// key returns a deterministic base58 pubkey.
func key(n byte) string {
	var pk address.Pubkey
	pk[0] = n
	pk[31] = 0xAA
	return pk.String()
}

var (
	authority   = key(1)
	stakingMint = key(10)
	rewardMint  = key(11)
	alice       = key(20)
	bob         = key(21)
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []*domain.LedgerEvent
}

func (p *recordingPublisher) Publish(_ context.Context, events []*domain.LedgerEvent) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, events...)
}

func (p *recordingPublisher) all() []*domain.LedgerEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]*domain.LedgerEvent(nil), p.events...)
}

type fixture struct {
	svc       *Service
	store     *memory.LedgerStore
	clock     *clock.Manual
	publisher *recordingPublisher
	pool      *domain.StakingPool
	users     []string
}

// newFixture creates a pool at t=0 with the given rate, credits every user
// 1_000_000 staking units and funds the reward vault.
func newFixture(t *testing.T, rate uint64, users ...string) *fixture {
	t.Helper()
	ctx := context.Background()

	deriver, err := address.NewDeriver(address.DefaultProgramID)
	require.NoError(t, err)

	f := &fixture{
		store:     memory.NewLedgerStore(),
		clock:     clock.NewManual(0),
		publisher: &recordingPublisher{},
		users:     users,
	}
	f.svc = NewService(f.store, f.clock, deriver, WithPublisher(f.publisher))

	f.pool, err = f.svc.InitializePool(ctx, InitializePoolParams{
		Authority:   authority,
		StakingMint: stakingMint,
		RewardMint:  rewardMint,
		RewardRate:  rate,
	})
	require.NoError(t, err)

	for _, u := range users {
		_, err := f.svc.CreditAccount(ctx, u, stakingMint, 1_000_000)
		require.NoError(t, err)
	}

	_, err = f.svc.CreditAccount(ctx, authority, rewardMint, 1_000_000_000)
	require.NoError(t, err)
	_, err = f.svc.FundRewards(ctx, f.pool.Address, authority, 1_000_000_000)
	require.NoError(t, err)

	return f
}

func unitRate() uint64 { return rewards.RateScale }

func (f *fixture) balance(t *testing.T, owner, mint string) uint64 {
	t.Helper()
	acct, err := f.svc.TokenAccount(context.Background(), owner, mint)
	require.NoError(t, err)
	return acct.Amount
}

func (f *fixture) stake(t *testing.T, owner string) *domain.UserStake {
	t.Helper()
	pos, err := f.svc.Position(context.Background(), f.pool.Address, owner)
	require.NoError(t, err)
	return pos.Stake
}

// snapshot captures every record the ledger operations can touch.
type snapshot struct {
	pool     *domain.StakingPool
	stakes   []*domain.UserStake
	accounts map[string]domain.TokenAccount
	events   int
}

func (f *fixture) snapshot(t *testing.T) snapshot {
	t.Helper()
	ctx := context.Background()

	addrs := []string{f.pool.StakingVault, f.pool.RewardVault}
	for _, owner := range append([]string{authority}, f.users...) {
		for _, mint := range []string{stakingMint, rewardMint} {
			a, err := f.svc.tokenAccount(owner, mint)
			require.NoError(t, err)
			addrs = append(addrs, a)
		}
	}

	snap := snapshot{accounts: make(map[string]domain.TokenAccount)}
	err := f.store.View(ctx, func(tx storage.Tx) error {
		var err error
		if snap.pool, err = tx.GetPool(ctx, f.pool.Address); err != nil {
			return err
		}
		if snap.stakes, err = tx.ListUserStakes(ctx, f.pool.Address); err != nil {
			return err
		}
		for _, a := range addrs {
			acct, err := tx.GetTokenAccount(ctx, a)
			if err == nil {
				snap.accounts[a] = *acct
			}
		}
		events, err := tx.ListEvents(ctx, f.pool.Address, 0, 0)
		snap.events = len(events)
		return err
	})
	require.NoError(t, err)
	return snap
}
