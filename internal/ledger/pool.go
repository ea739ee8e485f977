package ledger

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"solana-staking-ledger/internal/address"
	"solana-staking-ledger/internal/domain"
	"solana-staking-ledger/internal/storage"
)

// InitializePoolParams configures a new pool.
type InitializePoolParams struct {
	Authority   string
	StakingMint string
	RewardMint  string
	RewardRate  uint64 // scaled by rewards.RateScale
}

// InitializePool creates a pool and its two vault accounts.
// The pool address is derived from the authority and both mints, so the same
// triple can be initialized only once.
func (s *Service) InitializePool(ctx context.Context, params InitializePoolParams) (*domain.StakingPool, error) {
	poolAddr, err := s.derivePool(params.Authority, params.StakingMint, params.RewardMint)
	if err != nil {
		return nil, err
	}
	stakingVault, err := s.deriver.StakingVault(poolAddr.Address)
	if err != nil {
		return nil, fmt.Errorf("derive staking vault: %w", err)
	}
	rewardVault, err := s.deriver.RewardVault(poolAddr.Address)
	if err != nil {
		return nil, fmt.Errorf("derive reward vault: %w", err)
	}

	m, err := s.mutate(ctx, OpInitializePool, func(tx storage.Tx, now int64, m *mutation) error {
		pool := &domain.StakingPool{
			Address:          poolAddr.String(),
			Authority:        params.Authority,
			StakingMint:      params.StakingMint,
			RewardMint:       params.RewardMint,
			RewardRate:       params.RewardRate,
			StakingVault:     stakingVault.String(),
			RewardVault:      rewardVault.String(),
			Bump:             poolAddr.Bump,
			StakingVaultBump: stakingVault.Bump,
			RewardVaultBump:  rewardVault.Bump,
			CreatedAt:        now,
		}

		if err := tx.InsertPool(ctx, pool); err != nil {
			if errors.Is(err, storage.ErrDuplicateKey) {
				return fmt.Errorf("%w: %s", ErrPoolExists, pool.Address)
			}
			return fmt.Errorf("insert pool: %w", err)
		}

		if _, err := s.bank.OpenAccount(ctx, tx, pool.StakingVault, pool.Address, pool.StakingMint); err != nil {
			return fmt.Errorf("open staking vault: %w", err)
		}
		if _, err := s.bank.OpenAccount(ctx, tx, pool.RewardVault, pool.Address, pool.RewardMint); err != nil {
			return fmt.Errorf("open reward vault: %w", err)
		}

		if err := s.appendEvent(ctx, tx, m, pool, domain.EventPoolInitialized, pool.Authority, 0, 0, now, nil); err != nil {
			return err
		}
		return tx.UpdatePool(ctx, pool)
	})
	if err != nil {
		return nil, err
	}

	log.Ctx(ctx).Info().
		Str("pool", m.pool.Address).
		Str("authority", m.pool.Authority).
		Uint64("reward_rate", m.pool.RewardRate).
		Msg("pool initialized")
	return m.pool, nil
}

// PoolAddress returns the address a pool with these parameters is created at.
func (s *Service) PoolAddress(authority, stakingMint, rewardMint string) (string, error) {
	d, err := s.derivePool(authority, stakingMint, rewardMint)
	if err != nil {
		return "", err
	}
	return d.String(), nil
}

func (s *Service) derivePool(authority, stakingMint, rewardMint string) (address.Derived, error) {
	authorityKey, err := parseAddress("authority", authority)
	if err != nil {
		return address.Derived{}, err
	}
	stakingKey, err := parseAddress("staking mint", stakingMint)
	if err != nil {
		return address.Derived{}, err
	}
	rewardKey, err := parseAddress("reward mint", rewardMint)
	if err != nil {
		return address.Derived{}, err
	}

	d, err := s.deriver.Pool(authorityKey, stakingKey, rewardKey)
	if err != nil {
		return address.Derived{}, fmt.Errorf("derive pool address: %w", err)
	}
	return d, nil
}

// FundRewards moves amount of the reward asset from the funder's token
// account into the pool's reward vault.
func (s *Service) FundRewards(ctx context.Context, pool, funder string, amount uint64) (*domain.StakingPool, error) {
	if amount == 0 {
		return nil, ErrInvalidAmount
	}
	if _, err := parseAddress("funder", funder); err != nil {
		return nil, err
	}

	m, err := s.mutate(ctx, OpFundRewards, func(tx storage.Tx, now int64, m *mutation) error {
		p, err := s.loadPool(ctx, tx, pool)
		if err != nil {
			return err
		}

		from, err := s.tokenAccount(funder, p.RewardMint)
		if err != nil {
			return err
		}
		if err := s.bank.Transfer(ctx, tx, domain.Transfer{
			From:      from,
			To:        p.RewardVault,
			Authority: funder,
			Amount:    amount,
		}); err != nil {
			return fmt.Errorf("transfer to reward vault: %w", err)
		}

		if err := s.appendEvent(ctx, tx, m, p, domain.EventRewardsFunded, funder, amount, 0, now, nil); err != nil {
			return err
		}
		return tx.UpdatePool(ctx, p)
	})
	if err != nil {
		return nil, err
	}

	log.Ctx(ctx).Info().
		Str("pool", pool).
		Str("funder", funder).
		Uint64("amount", amount).
		Msg("reward vault funded")
	return m.pool, nil
}

// Pool returns a pool by address.
func (s *Service) Pool(ctx context.Context, pool string) (*domain.StakingPool, error) {
	var p *domain.StakingPool
	err := s.store.View(ctx, func(tx storage.Tx) error {
		var err error
		p, err = s.loadPool(ctx, tx, pool)
		return err
	})
	if err != nil {
		return nil, err
	}
	return p, nil
}

// Pools returns every pool ordered by creation time.
func (s *Service) Pools(ctx context.Context) ([]*domain.StakingPool, error) {
	var pools []*domain.StakingPool
	err := s.store.View(ctx, func(tx storage.Tx) error {
		var err error
		pools, err = tx.ListPools(ctx)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("list pools: %w", err)
	}
	return pools, nil
}

// Vaults returns the staking and reward vault accounts of a pool.
func (s *Service) Vaults(ctx context.Context, pool string) (staking, reward *domain.TokenAccount, err error) {
	err = s.store.View(ctx, func(tx storage.Tx) error {
		p, err := s.loadPool(ctx, tx, pool)
		if err != nil {
			return err
		}
		if staking, err = s.bank.Account(ctx, tx, p.StakingVault); err != nil {
			return err
		}
		reward, err = s.bank.Account(ctx, tx, p.RewardVault)
		return err
	})
	if err != nil {
		return nil, nil, err
	}
	return staking, reward, nil
}

// Events returns committed events of a pool after the given sequence.
func (s *Service) Events(ctx context.Context, pool string, afterSequence uint64, limit int) ([]*domain.LedgerEvent, error) {
	var events []*domain.LedgerEvent
	err := s.store.View(ctx, func(tx storage.Tx) error {
		if _, err := s.loadPool(ctx, tx, pool); err != nil {
			return err
		}
		var err error
		events, err = tx.ListEvents(ctx, pool, afterSequence, limit)
		return err
	})
	if err != nil {
		return nil, err
	}
	return events, nil
}
