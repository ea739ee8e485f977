package postgres

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solana-staking-ledger/internal/address"
	"solana-staking-ledger/internal/clock"
	"solana-staking-ledger/internal/domain"
	"solana-staking-ledger/internal/ledger"
	"solana-staking-ledger/internal/storage"
)

var errAbort = errors.New("abort")

func TestLedgerStore_PoolRoundTrip(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewLedgerStore(pool)
	ctx := context.Background()

	p := &domain.StakingPool{
		Address:          "pool-1",
		Authority:        "authority",
		StakingMint:      "mint-a",
		RewardMint:       "mint-b",
		RewardRate:       math.MaxUint64,
		TotalStaked:      math.MaxUint64 - 1,
		StakingVault:     "vault-a",
		RewardVault:      "vault-b",
		Bump:             255,
		StakingVaultBump: 254,
		RewardVaultBump:  1,
		CreatedAt:        1700000000,
	}

	err := store.Update(ctx, func(tx storage.Tx) error { return tx.InsertPool(ctx, p) })
	require.NoError(t, err)

	err = store.Update(ctx, func(tx storage.Tx) error { return tx.InsertPool(ctx, p) })
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)

	err = store.View(ctx, func(tx storage.Tx) error {
		got, err := tx.GetPool(ctx, "pool-1")
		if err != nil {
			return err
		}
		assert.Equal(t, p, got)

		_, err = tx.GetPool(ctx, "missing")
		assert.ErrorIs(t, err, storage.ErrNotFound)

		assert.ErrorIs(t, tx.UpdatePool(ctx, p), storage.ErrReadOnly)
		return nil
	})
	require.NoError(t, err)
}

func TestLedgerStore_Rollback(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewLedgerStore(pool)
	ctx := context.Background()

	err := store.Update(ctx, func(tx storage.Tx) error {
		if err := tx.InsertPool(ctx, &domain.StakingPool{Address: "pool-1"}); err != nil {
			return err
		}
		return tx.InsertTokenAccount(ctx, &domain.TokenAccount{Address: "acct", Mint: "m", Owner: "o", Amount: 10})
	})
	require.NoError(t, err)

	err = store.Update(ctx, func(tx storage.Tx) error {
		if err := tx.UpdateTokenAccount(ctx, &domain.TokenAccount{Address: "acct", Amount: 0}); err != nil {
			return err
		}
		if err := tx.PutUserStake(ctx, &domain.UserStake{Address: "s", Pool: "pool-1", Owner: "o", DepositedAmount: 10}); err != nil {
			return err
		}
		return errAbort
	})
	assert.ErrorIs(t, err, errAbort)

	err = store.View(ctx, func(tx storage.Tx) error {
		acct, err := tx.GetTokenAccount(ctx, "acct")
		if err != nil {
			return err
		}
		assert.Equal(t, uint64(10), acct.Amount)

		_, err = tx.GetUserStake(ctx, "s")
		assert.ErrorIs(t, err, storage.ErrNotFound)
		return nil
	})
	require.NoError(t, err)
}

func TestLedgerStore_Events(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewLedgerStore(pool)
	ctx := context.Background()

	err := store.Update(ctx, func(tx storage.Tx) error {
		if err := tx.InsertPool(ctx, &domain.StakingPool{Address: "pool-1"}); err != nil {
			return err
		}
		for seq := uint64(1); seq <= 3; seq++ {
			e := &domain.LedgerEvent{
				EventID:     string(rune('a' + seq)),
				Kind:        domain.EventStaked,
				Pool:        "pool-1",
				Owner:       "alice",
				Amount:      seq * 100,
				Sequence:    seq,
				Timestamp:   int64(seq),
				TotalStaked: math.MaxUint64,
			}
			if err := tx.AppendEvent(ctx, e); err != nil {
				return err
			}
		}
		return nil
	})
	require.NoError(t, err)

	err = store.View(ctx, func(tx storage.Tx) error {
		events, err := tx.ListEvents(ctx, "pool-1", 1, 1)
		if err != nil {
			return err
		}
		require.Len(t, events, 1)
		assert.Equal(t, uint64(2), events[0].Sequence)
		assert.Equal(t, uint64(200), events[0].Amount)
		assert.Equal(t, uint64(math.MaxUint64), events[0].TotalStaked)
		return nil
	})
	require.NoError(t, err)
}

func newPostgresLedger(t *testing.T, store storage.LedgerStore, clk clock.Clock) *ledger.Service {
	t.Helper()
	deriver, err := address.NewDeriver(address.DefaultProgramID)
	require.NoError(t, err)
	return ledger.NewService(store, clk, deriver)
}

func key(n byte) string {
	var pk address.Pubkey
	pk[0] = n
	pk[31] = 0xBB
	return pk.String()
}

func TestLedgerStore_StakeUnstakeClaim(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	clk := clock.NewManual(0)
	svc := newPostgresLedger(t, NewLedgerStore(pool), clk)

	authority, stakingMint, rewardMint, alice := key(1), key(2), key(3), key(4)

	p, err := svc.InitializePool(ctx, ledger.InitializePoolParams{
		Authority:   authority,
		StakingMint: stakingMint,
		RewardMint:  rewardMint,
		RewardRate:  1_000_000_000,
	})
	require.NoError(t, err)

	_, err = svc.CreditAccount(ctx, alice, stakingMint, 1000)
	require.NoError(t, err)
	_, err = svc.CreditAccount(ctx, authority, rewardMint, 1_000_000)
	require.NoError(t, err)
	_, err = svc.FundRewards(ctx, p.Address, authority, 1_000_000)
	require.NoError(t, err)

	_, err = svc.Stake(ctx, p.Address, alice, 500)
	require.NoError(t, err)

	clk.Set(20)
	_, err = svc.Unstake(ctx, p.Address, alice, 500)
	require.NoError(t, err)

	_, err = svc.Unstake(ctx, p.Address, alice, 1)
	assert.ErrorIs(t, err, ledger.ErrInsufficientStake)

	clk.Set(30)
	claimed, err := svc.Claim(ctx, p.Address, alice)
	require.NoError(t, err)
	assert.Equal(t, uint64(10000), claimed)

	_, err = svc.Claim(ctx, p.Address, alice)
	assert.ErrorIs(t, err, ledger.ErrNoRewardsToClaim)

	acct, err := svc.TokenAccount(ctx, alice, rewardMint)
	require.NoError(t, err)
	assert.Equal(t, uint64(10000), acct.Amount)

	events, err := svc.Events(ctx, p.Address, 0, 0)
	require.NoError(t, err)
	assert.Len(t, events, 5)
}

func TestLedgerStore_ConcurrentStakes(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	svc := newPostgresLedger(t, NewLedgerStore(pool), clock.NewManual(100))

	authority, stakingMint, rewardMint := key(1), key(2), key(3)
	users := []string{key(10), key(11), key(12), key(13)}

	p, err := svc.InitializePool(ctx, ledger.InitializePoolParams{
		Authority:   authority,
		StakingMint: stakingMint,
		RewardMint:  rewardMint,
		RewardRate:  1,
	})
	require.NoError(t, err)

	for _, u := range users {
		_, err := svc.CreditAccount(ctx, u, stakingMint, 10_000)
		require.NoError(t, err)
	}

	var wg sync.WaitGroup
	for _, u := range users {
		for i := 0; i < 10; i++ {
			wg.Add(1)
			go func(owner string) {
				defer wg.Done()
				_, err := svc.Stake(ctx, p.Address, owner, 25)
				assert.NoError(t, err)
			}(u)
		}
	}
	wg.Wait()

	got, err := svc.Pool(ctx, p.Address)
	require.NoError(t, err)
	assert.Equal(t, uint64(len(users)*10*25), got.TotalStaked)

	positions, err := svc.Positions(ctx, p.Address)
	require.NoError(t, err)

	var sum uint64
	for _, pos := range positions {
		sum += pos.Stake.DepositedAmount
	}
	assert.Equal(t, got.TotalStaked, sum)
	assert.Equal(t, uint64(len(users)*10+1), got.EventSequence)
}

func TestLedgerStore_ConcurrentFirstCredits(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	svc := newPostgresLedger(t, NewLedgerStore(pool), clock.NewManual(100))
	owner, mint := key(20), key(21)

	const credits = 8
	var wg sync.WaitGroup
	for i := 0; i < credits; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.CreditAccount(ctx, owner, mint, 10)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	acct, err := svc.TokenAccount(ctx, owner, mint)
	require.NoError(t, err)
	assert.Equal(t, uint64(credits*10), acct.Amount)
}
