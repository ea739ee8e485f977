package reporting

import (
	"fmt"
	"strings"
	"time"
)

// RenderMarkdown renders report as Markdown string.
func RenderMarkdown(r *Report) string {
	var sb strings.Builder

	// Header
	sb.WriteString("# Staking Ledger Report\n\n")
	sb.WriteString(fmt.Sprintf("Generated: %s\n\n", r.GeneratedAt.Format(time.RFC3339)))
	sb.WriteString(fmt.Sprintf("Pools: %d | Positions: %d | Valued at: %d\n\n", r.PoolCount, len(r.Positions), r.AsOf))

	// Pools
	sb.WriteString("## Pools\n\n")
	if len(r.Pools) > 0 {
		sb.WriteString("| Pool | Staking Mint | Reward Mint | Rate | APY% | Total Staked | Stakers | Reward Vault | Pending | Runway |\n")
		sb.WriteString("|------|--------------|-------------|------|------|--------------|---------|--------------|---------|--------|\n")
		for _, p := range r.Pools {
			sb.WriteString(fmt.Sprintf("| %s | %s | %s | %d | %.4f | %d | %d | %d | %d | %s |\n",
				p.Address, p.StakingMint, p.RewardMint,
				p.RewardRate, p.APY, p.TotalStaked, p.Stakers,
				p.RewardVault, p.PendingRewards, formatRunway(p.RunwaySeconds)))
		}
	} else {
		sb.WriteString("No pools initialized.\n")
	}
	sb.WriteString("\n")

	// Integrity
	sb.WriteString("## Integrity\n\n")
	if r.Integrity.AllChecksPassed {
		sb.WriteString("**All checks passed.**\n\n")
	} else {
		sb.WriteString("**Divergences found.**\n\n")
		for _, err := range r.Integrity.Errors {
			sb.WriteString(fmt.Sprintf("- %s\n", err))
		}
		sb.WriteString("\n")
	}

	// Positions
	sb.WriteString("## Positions\n\n")
	if len(r.Positions) > 0 {
		sb.WriteString("| Pool | Owner | Deposited | Accumulated | Pending | Claimable | Checkpoint |\n")
		sb.WriteString("|------|-------|-----------|-------------|---------|-----------|------------|\n")
		for _, p := range r.Positions {
			sb.WriteString(fmt.Sprintf("| %s | %s | %d | %d | %d | %d | %d |\n",
				p.Pool, p.Owner, p.DepositedAmount, p.AccumulatedRewards,
				p.PendingRewards, p.Claimable, p.RewardCheckpoint))
		}
	} else {
		sb.WriteString("No positions.\n")
	}
	sb.WriteString("\n")

	return sb.String()
}

func formatRunway(seconds int64) string {
	if seconds < 0 {
		return "n/a"
	}
	return fmt.Sprintf("%dd %02dh", seconds/86400, seconds%86400/3600)
}
