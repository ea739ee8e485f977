package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"solana-staking-ledger/internal/rewards"
)

func RateCmd() *cobra.Command {
	var fromRate bool

	cmd := &cobra.Command{
		Use:   "rate <apy-percent>",
		Short: "Converts an APY percentage to a pool reward rate (or back with --from-rate)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if fromRate {
				rate, err := strconv.ParseUint(args[0], 10, 64)
				if err != nil {
					return fmt.Errorf("parse rate: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%.4f\n", rewards.APYFromRate(rate))
				return nil
			}

			apy, err := strconv.ParseFloat(args[0], 64)
			if err != nil {
				return fmt.Errorf("parse apy: %w", err)
			}
			if apy < 0 {
				return fmt.Errorf("apy must not be negative")
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d\n", rewards.RateFromAPY(apy))
			return nil
		},
	}
	cmd.Flags().BoolVar(&fromRate, "from-rate", false, "treat the argument as a reward rate and print the APY percentage")

	return cmd
}
