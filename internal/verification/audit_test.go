package verification

import (
	"context"
	"testing"

	"solana-staking-ledger/internal/address"
	"solana-staking-ledger/internal/clock"
	"solana-staking-ledger/internal/domain"
	"solana-staking-ledger/internal/ledger"
	"solana-staking-ledger/internal/storage/memory"
)

func key(n byte) string {
	var pk address.Pubkey
	pk[0] = n
	pk[31] = 0xDD
	return pk.String()
}

// activeLedger runs a short history on a fresh pool and returns the pool address.
func activeLedger(t *testing.T) (*ledger.Service, string) {
	t.Helper()
	ctx := context.Background()

	deriver, err := address.NewDeriver(address.DefaultProgramID)
	if err != nil {
		t.Fatal(err)
	}
	clk := clock.NewManual(100)
	svc := ledger.NewService(memory.NewLedgerStore(), clk, deriver)

	authority, stakingMint, rewardMint := key(1), key(2), key(3)
	alice, bob := key(4), key(5)

	p, err := svc.InitializePool(ctx, ledger.InitializePoolParams{
		Authority:   authority,
		StakingMint: stakingMint,
		RewardMint:  rewardMint,
		RewardRate:  1_000_000_000,
	})
	if err != nil {
		t.Fatal(err)
	}

	steps := []func() error{
		func() error { _, err := svc.CreditAccount(ctx, alice, stakingMint, 1000); return err },
		func() error { _, err := svc.CreditAccount(ctx, bob, stakingMint, 1000); return err },
		func() error { _, err := svc.CreditAccount(ctx, authority, rewardMint, 100_000); return err },
		func() error { _, err := svc.FundRewards(ctx, p.Address, authority, 100_000); return err },
		func() error { _, err := svc.Stake(ctx, p.Address, alice, 400); return err },
		func() error { _, err := svc.Stake(ctx, p.Address, bob, 250); return err },
		func() error { clk.Advance(10); return nil },
		func() error { _, err := svc.Unstake(ctx, p.Address, alice, 150); return err },
		func() error { _, err := svc.Claim(ctx, p.Address, bob); return err },
	}
	for i, step := range steps {
		if err := step(); err != nil {
			t.Fatalf("step %d: %v", i, err)
		}
	}
	return svc, p.Address
}

func TestAuditPool_Clean(t *testing.T) {
	svc, pool := activeLedger(t)

	report, err := NewAuditor(svc).AuditPool(context.Background(), pool)
	if err != nil {
		t.Fatalf("AuditPool failed: %v", err)
	}
	if !report.Match {
		t.Fatalf("expected clean audit, got divergences: %+v", report.Divergences)
	}
	if report.Stakes != 2 {
		t.Errorf("expected 2 stake records, got %d", report.Stakes)
	}
	if report.Events != 6 {
		t.Errorf("expected 6 events, got %d", report.Events)
	}
}

func TestAuditAll(t *testing.T) {
	svc, _ := activeLedger(t)

	reports, err := NewAuditor(svc).AuditAll(context.Background())
	if err != nil {
		t.Fatalf("AuditAll failed: %v", err)
	}
	if len(reports) != 1 || !reports[0].Match {
		t.Fatalf("expected one clean report, got %+v", reports)
	}
}

func TestAudit_DetectsTampering(t *testing.T) {
	svc, pool := activeLedger(t)
	ctx := context.Background()

	tests := []struct {
		name   string
		tamper func(*domain.PoolSnapshot)
		field  string
	}{
		{
			name:   "pool total drifted",
			tamper: func(s *domain.PoolSnapshot) { s.Pool.TotalStaked++ },
			field:  "TotalStaked",
		},
		{
			name:   "stake record drifted",
			tamper: func(s *domain.PoolSnapshot) { s.Stakes[0].DepositedAmount += 5 },
			field:  "TotalStaked",
		},
		{
			name:   "staking vault drained",
			tamper: func(s *domain.PoolSnapshot) { s.StakingVault.Amount = 0 },
			field:  "StakingVault.Amount",
		},
		{
			name:   "reward vault drained",
			tamper: func(s *domain.PoolSnapshot) { s.RewardVault.Amount-- },
			field:  "RewardVault.Amount (replayed)",
		},
		{
			name:   "event missing",
			tamper: func(s *domain.PoolSnapshot) { s.Events = append(s.Events[:2], s.Events[3:]...) },
			field:  "EventSequence",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			snap, err := svc.Snapshot(ctx, pool)
			if err != nil {
				t.Fatal(err)
			}
			tt.tamper(snap)

			report := Audit(snap)
			if report.Match {
				t.Fatal("expected divergences")
			}
			found := false
			for _, d := range report.Divergences {
				if d.Field == tt.field {
					found = true
				}
			}
			if !found {
				t.Errorf("expected divergence on %s, got %+v", tt.field, report.Divergences)
			}
		})
	}
}

func TestAudit_Overflow(t *testing.T) {
	snap := &domain.PoolSnapshot{
		Pool: &domain.StakingPool{Address: "p", TotalStaked: 1},
		Stakes: []*domain.UserStake{
			{Owner: "a", DepositedAmount: ^uint64(0)},
			{Owner: "b", DepositedAmount: 2},
		},
	}

	report := Audit(snap)
	if report.Match {
		t.Fatal("expected divergences")
	}
	if report.Divergences[0].Field != "TotalStaked" {
		t.Errorf("expected TotalStaked divergence first, got %+v", report.Divergences[0])
	}
	if _, ok := report.Divergences[0].Actual.(string); !ok {
		t.Errorf("expected overflow description, got %v", report.Divergences[0].Actual)
	}
}
