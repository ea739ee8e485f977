package reporting

import (
	"context"
	"fmt"
	"time"

	"solana-staking-ledger/internal/domain"
	"solana-staking-ledger/internal/rewards"
	"solana-staking-ledger/internal/verification"
)

// Ledger is the read side the generator needs.
type Ledger interface {
	Pools(ctx context.Context) ([]*domain.StakingPool, error)
	Positions(ctx context.Context, pool string) ([]*domain.Position, error)
	Snapshot(ctx context.Context, pool string) (*domain.PoolSnapshot, error)
}

// Generator produces reports from ledger state.
type Generator struct {
	ledger Ledger
	now    func() time.Time // Injectable clock for deterministic output
}

// NewGenerator creates a new report generator.
func NewGenerator(ledger Ledger) *Generator {
	return &Generator{
		ledger: ledger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// WithClock sets a custom clock function for deterministic output.
func (g *Generator) WithClock(now func() time.Time) *Generator {
	g.now = now
	return g
}

// Generate produces a complete report.
func (g *Generator) Generate(ctx context.Context) (*Report, error) {
	pools, err := g.ledger.Pools(ctx)
	if err != nil {
		return nil, err
	}

	report := &Report{
		GeneratedAt: g.now(),
		PoolCount:   len(pools),
		Integrity:   IntegritySection{AllChecksPassed: true},
	}

	for _, p := range pools {
		snap, err := g.ledger.Snapshot(ctx, p.Address)
		if err != nil {
			return nil, fmt.Errorf("snapshot %s: %w", p.Address, err)
		}
		positions, err := g.ledger.Positions(ctx, p.Address)
		if err != nil {
			return nil, fmt.Errorf("positions %s: %w", p.Address, err)
		}

		row := poolRow(snap)
		for _, pos := range positions {
			if pos.AsOf > report.AsOf {
				report.AsOf = pos.AsOf
			}
			if pos.Stake.DepositedAmount > 0 {
				row.Stakers++
			}
			// saturating: a display total, not a ledger balance
			if row.PendingRewards+pos.Claimable < row.PendingRewards {
				row.PendingRewards = ^uint64(0)
			} else {
				row.PendingRewards += pos.Claimable
			}

			report.Positions = append(report.Positions, PositionRow{
				Pool:               p.Address,
				Owner:              pos.Stake.Owner,
				DepositedAmount:    pos.Stake.DepositedAmount,
				AccumulatedRewards: pos.Stake.AccumulatedRewards,
				PendingRewards:     pos.PendingRewards,
				Claimable:          pos.Claimable,
				RewardCheckpoint:   pos.Stake.RewardCheckpoint,
			})
		}

		var unowed uint64
		if row.RewardVault > row.PendingRewards {
			unowed = row.RewardVault - row.PendingRewards
		}
		row.RunwaySeconds = rewards.Runway(unowed, row.TotalStaked, row.RewardRate)
		report.Pools = append(report.Pools, row)

		audit := verification.Audit(snap)
		if !audit.Match {
			report.Integrity.AllChecksPassed = false
			for _, d := range audit.Divergences {
				report.Integrity.Errors = append(report.Integrity.Errors,
					fmt.Sprintf("%s: %s expected %v, got %v", p.Address, d.Field, d.Expected, d.Actual))
			}
		}
	}

	return report, nil
}

func poolRow(snap *domain.PoolSnapshot) PoolRow {
	p := snap.Pool
	row := PoolRow{
		Address:     p.Address,
		StakingMint: p.StakingMint,
		RewardMint:  p.RewardMint,
		RewardRate:  p.RewardRate,
		APY:         rewards.APYFromRate(p.RewardRate),
		TotalStaked: p.TotalStaked,
	}
	if snap.RewardVault != nil {
		row.RewardVault = snap.RewardVault.Amount
	}
	return row
}
