package ledger

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"solana-staking-ledger/internal/domain"
	"solana-staking-ledger/internal/storage"
)

// Stake deposits amount of the staking asset from the principal's token
// account into the pool's staking vault. The first stake creates the
// principal's record. Rewards on an existing balance are settled before the
// deposit is added.
func (s *Service) Stake(ctx context.Context, pool, principal string, amount uint64) (*domain.UserStake, error) {
	if amount == 0 {
		return nil, ErrInvalidAmount
	}

	var result *domain.UserStake
	var settled uint64
	_, err := s.mutate(ctx, OpStake, func(tx storage.Tx, now int64, m *mutation) error {
		p, err := s.loadPool(ctx, tx, pool)
		if err != nil {
			return err
		}
		stake, derived, err := s.loadStake(ctx, tx, p, principal)
		if err != nil {
			return err
		}
		if stake == nil {
			stake = &domain.UserStake{
				Address:          derived.String(),
				Pool:             p.Address,
				Owner:            principal,
				RewardCheckpoint: now,
				Bump:             derived.Bump,
			}
		}

		settled = 0
		if stake.DepositedAmount > 0 {
			if settled, err = settle(stake, p.RewardRate, now); err != nil {
				return err
			}
		}

		from, err := s.tokenAccount(principal, p.StakingMint)
		if err != nil {
			return err
		}
		if err := s.bank.Transfer(ctx, tx, domain.Transfer{
			From:      from,
			To:        p.StakingVault,
			Authority: principal,
			Amount:    amount,
		}); err != nil {
			return fmt.Errorf("transfer to staking vault: %w", err)
		}

		if stake.DepositedAmount, err = checkedAdd(stake.DepositedAmount, amount, "deposited amount"); err != nil {
			return err
		}
		stake.RewardCheckpoint = advance(stake.RewardCheckpoint, now)

		if p.TotalStaked, err = checkedAdd(p.TotalStaked, amount, "pool total staked"); err != nil {
			return err
		}

		if err := tx.PutUserStake(ctx, stake); err != nil {
			return fmt.Errorf("put stake: %w", err)
		}
		if err := s.appendEvent(ctx, tx, m, p, domain.EventStaked, principal, amount, settled, now, stake); err != nil {
			return err
		}
		if err := tx.UpdatePool(ctx, p); err != nil {
			return fmt.Errorf("update pool: %w", err)
		}

		result = stake
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Ctx(ctx).Info().
		Str("pool", pool).
		Str("owner", principal).
		Uint64("amount", amount).
		Uint64("reward", settled).
		Msg("staked")
	return result, nil
}

// Unstake withdraws amount from the principal's deposited balance back to
// their token account, paid out of the staking vault on the pool's authority.
// Rewards are settled on the pre-withdrawal balance and stay unclaimed.
func (s *Service) Unstake(ctx context.Context, pool, principal string, amount uint64) (*domain.UserStake, error) {
	if amount == 0 {
		return nil, ErrInvalidAmount
	}

	var result *domain.UserStake
	var settled uint64
	_, err := s.mutate(ctx, OpUnstake, func(tx storage.Tx, now int64, m *mutation) error {
		p, err := s.loadPool(ctx, tx, pool)
		if err != nil {
			return err
		}
		stake, _, err := s.loadStake(ctx, tx, p, principal)
		if err != nil {
			return err
		}
		if stake == nil {
			return fmt.Errorf("%w: no stake for %s", ErrInsufficientStake, principal)
		}
		if amount > stake.DepositedAmount {
			return fmt.Errorf("%w: deposited %d, requested %d", ErrInsufficientStake, stake.DepositedAmount, amount)
		}

		if settled, err = settle(stake, p.RewardRate, now); err != nil {
			return err
		}

		to, err := s.tokenAccount(principal, p.StakingMint)
		if err != nil {
			return err
		}
		if _, err := s.bank.EnsureAccount(ctx, tx, to, principal, p.StakingMint); err != nil {
			return err
		}
		if err := s.bank.Transfer(ctx, tx, domain.Transfer{
			From:      p.StakingVault,
			To:        to,
			Authority: p.Address,
			Amount:    amount,
		}); err != nil {
			return fmt.Errorf("transfer from staking vault: %w", err)
		}

		if stake.DepositedAmount, err = checkedSub(stake.DepositedAmount, amount, "deposited amount"); err != nil {
			return err
		}
		stake.RewardCheckpoint = advance(stake.RewardCheckpoint, now)

		if p.TotalStaked, err = checkedSub(p.TotalStaked, amount, "pool total staked"); err != nil {
			return err
		}

		if err := tx.PutUserStake(ctx, stake); err != nil {
			return fmt.Errorf("put stake: %w", err)
		}
		if err := s.appendEvent(ctx, tx, m, p, domain.EventUnstaked, principal, amount, settled, now, stake); err != nil {
			return err
		}
		if err := tx.UpdatePool(ctx, p); err != nil {
			return fmt.Errorf("update pool: %w", err)
		}

		result = stake
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Ctx(ctx).Info().
		Str("pool", pool).
		Str("owner", principal).
		Uint64("amount", amount).
		Uint64("reward", settled).
		Msg("unstaked")
	return result, nil
}

// Claim pays the principal's entire claimable reward out of the reward vault
// and returns the amount paid. Accrual on the staked balance restarts from now.
func (s *Service) Claim(ctx context.Context, pool, principal string) (uint64, error) {
	var claimed uint64
	_, err := s.mutate(ctx, OpClaim, func(tx storage.Tx, now int64, m *mutation) error {
		p, err := s.loadPool(ctx, tx, pool)
		if err != nil {
			return err
		}
		stake, _, err := s.loadStake(ctx, tx, p, principal)
		if err != nil {
			return err
		}
		if stake == nil {
			return fmt.Errorf("%w: no stake for %s", ErrNoRewardsToClaim, principal)
		}

		settled, err := settle(stake, p.RewardRate, now)
		if err != nil {
			return err
		}
		claimable := stake.AccumulatedRewards
		if claimable == 0 {
			return ErrNoRewardsToClaim
		}

		to, err := s.tokenAccount(principal, p.RewardMint)
		if err != nil {
			return err
		}
		if _, err := s.bank.EnsureAccount(ctx, tx, to, principal, p.RewardMint); err != nil {
			return err
		}
		if err := s.bank.Transfer(ctx, tx, domain.Transfer{
			From:      p.RewardVault,
			To:        to,
			Authority: p.Address,
			Amount:    claimable,
		}); err != nil {
			return fmt.Errorf("transfer from reward vault: %w", err)
		}

		stake.AccumulatedRewards = 0
		stake.RewardCheckpoint = advance(stake.RewardCheckpoint, now)

		if err := tx.PutUserStake(ctx, stake); err != nil {
			return fmt.Errorf("put stake: %w", err)
		}
		if err := s.appendEvent(ctx, tx, m, p, domain.EventClaimed, principal, claimable, settled, now, stake); err != nil {
			return err
		}
		if err := tx.UpdatePool(ctx, p); err != nil {
			return fmt.Errorf("update pool: %w", err)
		}

		claimed = claimable
		return nil
	})
	if err != nil {
		return 0, err
	}

	log.Ctx(ctx).Info().
		Str("pool", pool).
		Str("owner", principal).
		Uint64("reward", claimed).
		Msg("rewards claimed")
	return claimed, nil
}
