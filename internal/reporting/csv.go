package reporting

import (
	"fmt"
	"strings"
)

// RenderCSV renders positions as CSV string.
func RenderCSV(positions []PositionRow) string {
	var sb strings.Builder

	// Header
	sb.WriteString("pool,owner,deposited_amount,accumulated_rewards,pending_rewards,claimable,reward_checkpoint\n")

	// Rows
	for _, p := range positions {
		sb.WriteString(fmt.Sprintf("%s,%s,%d,%d,%d,%d,%d\n",
			p.Pool,
			p.Owner,
			p.DepositedAmount,
			p.AccumulatedRewards,
			p.PendingRewards,
			p.Claimable,
			p.RewardCheckpoint,
		))
	}

	return sb.String()
}
