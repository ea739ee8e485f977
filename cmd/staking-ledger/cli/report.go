package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"solana-staking-ledger/internal/address"
	"solana-staking-ledger/internal/ledger"
	"solana-staking-ledger/internal/observability/tracing"
	"solana-staking-ledger/internal/reporting"
)

func ReportCmd() *cobra.Command {
	var outputDir string

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Writes REPORT.md and positions.csv describing every pool",
		Args:  cobra.ExactArgs(0),
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			ctx := tracing.InjectTraceID(cmd.Context())

			store, closeStore, err := newLedgerStore(ctx, cfg.Storage)
			if err != nil {
				return err
			}
			defer closeStore()

			deriver, err := address.NewDeriver(cfg.Ledger.ProgramID)
			if err != nil {
				return err
			}
			clk, _ := newClock(cfg.Clock)
			svc := ledger.NewService(store, clk, deriver)

			report, err := reporting.NewGenerator(svc).Generate(ctx)
			if err != nil {
				return fmt.Errorf("generate report: %w", err)
			}

			if err := os.MkdirAll(outputDir, 0o755); err != nil {
				return fmt.Errorf("create output directory: %w", err)
			}
			mdPath := filepath.Join(outputDir, "REPORT.md")
			if err := os.WriteFile(mdPath, []byte(reporting.RenderMarkdown(report)), 0o644); err != nil {
				return err
			}
			csvPath := filepath.Join(outputDir, "positions.csv")
			if err := os.WriteFile(csvPath, []byte(reporting.RenderCSV(report.Positions)), 0o644); err != nil {
				return err
			}

			log.Ctx(ctx).Info().
				Int("pools", report.PoolCount).
				Int("positions", len(report.Positions)).
				Bool("integrity_passed", report.Integrity.AllChecksPassed).
				Str("output_dir", outputDir).
				Msg("report written")
			return nil
		},
	}
	cmd.Flags().StringVar(&outputDir, "output-dir", "output", "directory the report files are written to")

	return cmd
}
