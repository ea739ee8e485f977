package ledger

import (
	"context"
	"fmt"

	"solana-staking-ledger/internal/domain"
	"solana-staking-ledger/internal/rewards"
	"solana-staking-ledger/internal/storage"
)

// Position returns the principal's stake record together with the reward it
// would settle at the current clock reading. Nothing is mutated.
func (s *Service) Position(ctx context.Context, pool, principal string) (*domain.Position, error) {
	now, err := s.clock.Now(ctx)
	if err != nil {
		return nil, fmt.Errorf("read clock: %w", err)
	}

	var pos *domain.Position
	err = s.store.View(ctx, func(tx storage.Tx) error {
		p, err := s.loadPool(ctx, tx, pool)
		if err != nil {
			return err
		}
		stake, _, err := s.loadStake(ctx, tx, p, principal)
		if err != nil {
			return err
		}
		if stake == nil {
			return fmt.Errorf("%w: %s in %s", ErrPositionNotFound, principal, pool)
		}
		pos, err = preview(stake, p.RewardRate, now)
		return err
	})
	if err != nil {
		return nil, err
	}
	return pos, nil
}

// Positions returns every stake record of a pool with pending rewards.
func (s *Service) Positions(ctx context.Context, pool string) ([]*domain.Position, error) {
	now, err := s.clock.Now(ctx)
	if err != nil {
		return nil, fmt.Errorf("read clock: %w", err)
	}

	var positions []*domain.Position
	err = s.store.View(ctx, func(tx storage.Tx) error {
		p, err := s.loadPool(ctx, tx, pool)
		if err != nil {
			return err
		}
		stakes, err := tx.ListUserStakes(ctx, pool)
		if err != nil {
			return fmt.Errorf("list stakes: %w", err)
		}

		positions = make([]*domain.Position, 0, len(stakes))
		for _, stake := range stakes {
			pos, err := preview(stake, p.RewardRate, now)
			if err != nil {
				return err
			}
			positions = append(positions, pos)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return positions, nil
}

func preview(stake *domain.UserStake, rate uint64, now int64) (*domain.Position, error) {
	pending, err := rewards.Settle(stake.DepositedAmount, now, stake.RewardCheckpoint, rate)
	if err != nil {
		return nil, fmt.Errorf("%w: pending reward of %s: %v", ErrArithmeticOverflow, stake.Address, err)
	}
	claimable, err := checkedAdd(stake.AccumulatedRewards, pending, "claimable rewards")
	if err != nil {
		return nil, err
	}
	return &domain.Position{
		Stake:          stake,
		PendingRewards: pending,
		Claimable:      claimable,
		AsOf:           now,
	}, nil
}
