package reporting

import (
	"context"
	"strings"
	"testing"
	"time"

	"solana-staking-ledger/internal/address"
	"solana-staking-ledger/internal/clock"
	"solana-staking-ledger/internal/domain"
	"solana-staking-ledger/internal/ledger"
	"solana-staking-ledger/internal/storage/memory"
)

func key(n byte) string {
	var pk address.Pubkey
	pk[0] = n
	pk[31] = 0xEE
	return pk.String()
}

func fixedTime() time.Time {
	return time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC)
}

func setupLedger(t *testing.T) (*ledger.Service, *clock.Manual, string) {
	t.Helper()
	ctx := context.Background()

	deriver, err := address.NewDeriver(address.DefaultProgramID)
	if err != nil {
		t.Fatal(err)
	}
	clk := clock.NewManual(0)
	svc := ledger.NewService(memory.NewLedgerStore(), clk, deriver)

	authority, stakingMint, rewardMint, alice := key(1), key(2), key(3), key(4)
	p, err := svc.InitializePool(ctx, ledger.InitializePoolParams{
		Authority:   authority,
		StakingMint: stakingMint,
		RewardMint:  rewardMint,
		RewardRate:  1_000_000_000,
	})
	if err != nil {
		t.Fatal(err)
	}

	if _, err := svc.CreditAccount(ctx, alice, stakingMint, 1000); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.CreditAccount(ctx, authority, rewardMint, 100_000); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.FundRewards(ctx, p.Address, authority, 100_000); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Stake(ctx, p.Address, alice, 500); err != nil {
		t.Fatal(err)
	}
	clk.Set(20)

	return svc, clk, p.Address
}

func TestGenerator_Generate(t *testing.T) {
	svc, _, pool := setupLedger(t)

	report, err := NewGenerator(svc).WithClock(fixedTime).Generate(context.Background())
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	if !report.GeneratedAt.Equal(fixedTime()) {
		t.Errorf("expected fixed GeneratedAt, got %v", report.GeneratedAt)
	}
	if report.PoolCount != 1 || len(report.Pools) != 1 {
		t.Fatalf("expected 1 pool, got %d", report.PoolCount)
	}
	if report.AsOf != 20 {
		t.Errorf("expected AsOf 20, got %d", report.AsOf)
	}

	row := report.Pools[0]
	if row.Address != pool {
		t.Errorf("expected pool %s, got %s", pool, row.Address)
	}
	if row.TotalStaked != 500 || row.Stakers != 1 {
		t.Errorf("unexpected totals: staked=%d stakers=%d", row.TotalStaked, row.Stakers)
	}
	if row.PendingRewards != 10_000 {
		t.Errorf("expected 10000 pending, got %d", row.PendingRewards)
	}
	// (100000 - 10000) / 500 per second
	if row.RunwaySeconds != 180 {
		t.Errorf("expected runway 180s, got %d", row.RunwaySeconds)
	}

	if len(report.Positions) != 1 || report.Positions[0].Claimable != 10_000 {
		t.Errorf("unexpected positions: %+v", report.Positions)
	}
	if !report.Integrity.AllChecksPassed {
		t.Errorf("expected clean integrity, got %v", report.Integrity.Errors)
	}
}

func TestGenerator_NoPools(t *testing.T) {
	deriver, err := address.NewDeriver(address.DefaultProgramID)
	if err != nil {
		t.Fatal(err)
	}
	svc := ledger.NewService(memory.NewLedgerStore(), clock.NewManual(0), deriver)

	report, err := NewGenerator(svc).WithClock(fixedTime).Generate(context.Background())
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	md := RenderMarkdown(report)
	if !strings.Contains(md, "No pools initialized.") {
		t.Error("expected empty pools message")
	}
	if !strings.Contains(md, "No positions.") {
		t.Error("expected empty positions message")
	}
}

type tamperedLedger struct {
	*ledger.Service
}

func (l tamperedLedger) Snapshot(ctx context.Context, pool string) (*domain.PoolSnapshot, error) {
	snap, err := l.Service.Snapshot(ctx, pool)
	if err != nil {
		return nil, err
	}
	snap.StakingVault.Amount--
	return snap, nil
}

func TestGenerator_ReportsDivergences(t *testing.T) {
	svc, _, _ := setupLedger(t)

	report, err := NewGenerator(tamperedLedger{svc}).WithClock(fixedTime).Generate(context.Background())
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if report.Integrity.AllChecksPassed {
		t.Fatal("expected failed integrity checks")
	}

	md := RenderMarkdown(report)
	if !strings.Contains(md, "**Divergences found.**") || !strings.Contains(md, "StakingVault.Amount") {
		t.Errorf("expected divergence listing in markdown:\n%s", md)
	}
}

func TestRenderMarkdownAndCSV(t *testing.T) {
	report := &Report{
		GeneratedAt: fixedTime(),
		PoolCount:   1,
		Pools: []PoolRow{{
			Address:       "pool-1",
			StakingMint:   "mint-a",
			RewardMint:    "mint-b",
			RewardRate:    1,
			TotalStaked:   10,
			RewardVault:   7,
			RunwaySeconds: -1,
		}},
		Positions: []PositionRow{{
			Pool:            "pool-1",
			Owner:           "alice",
			DepositedAmount: 10,
			Claimable:       3,
		}},
		Integrity: IntegritySection{AllChecksPassed: true},
	}

	md := RenderMarkdown(report)
	for _, want := range []string{
		"# Staking Ledger Report",
		"Generated: 2026-01-15T12:00:00Z",
		"| pool-1 | mint-a | mint-b | 1 |",
		"| n/a |",
		"**All checks passed.**",
		"| pool-1 | alice | 10 | 0 | 0 | 3 | 0 |",
	} {
		if !strings.Contains(md, want) {
			t.Errorf("markdown missing %q", want)
		}
	}

	csv := RenderCSV(report.Positions)
	wantCSV := "pool,owner,deposited_amount,accumulated_rewards,pending_rewards,claimable,reward_checkpoint\n" +
		"pool-1,alice,10,0,0,3,0\n"
	if csv != wantCSV {
		t.Errorf("unexpected csv:\n%s", csv)
	}

	if got := formatRunway(90_000); got != "1d 01h" {
		t.Errorf("formatRunway = %q", got)
	}
}
