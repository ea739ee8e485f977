package ledger

import (
	"context"
	"fmt"

	"solana-staking-ledger/internal/domain"
	"solana-staking-ledger/internal/storage"
)

// Snapshot reads a pool with its stake records, vaults and full event log in
// one read-only unit of work.
func (s *Service) Snapshot(ctx context.Context, pool string) (*domain.PoolSnapshot, error) {
	snap := &domain.PoolSnapshot{}
	err := s.store.View(ctx, func(tx storage.Tx) error {
		p, err := s.loadPool(ctx, tx, pool)
		if err != nil {
			return err
		}
		snap.Pool = p

		if snap.Stakes, err = tx.ListUserStakes(ctx, pool); err != nil {
			return fmt.Errorf("list stakes: %w", err)
		}
		if snap.StakingVault, err = s.bank.Account(ctx, tx, p.StakingVault); err != nil {
			return err
		}
		if snap.RewardVault, err = s.bank.Account(ctx, tx, p.RewardVault); err != nil {
			return err
		}
		if snap.Events, err = tx.ListEvents(ctx, pool, 0, 0); err != nil {
			return fmt.Errorf("list events: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return snap, nil
}
