package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"solana-staking-ledger/internal/config"
	"solana-staking-ledger/internal/observability"
)

var (
	cfgPath string
	rootCmd = &cobra.Command{
		Use:          "staking-ledger",
		Short:        "Staking pool ledger service",
		SilenceUsage: true,
	}
)

func Setup() error {
	rootCmd.AddCommand(StartServerCmd())
	rootCmd.AddCommand(MigrateCmd())
	rootCmd.AddCommand(RateCmd())
	rootCmd.AddCommand(ReportCmd())
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "", "config file (defaults and STAKING_ environment variables when empty)")

	return rootCmd.Execute()
}

func GetConfigPath() string {
	return cfgPath
}

// loadConfig reads the config and configures logging from it.
func loadConfig() (*config.Config, error) {
	cfg, err := config.New(GetConfigPath())
	if err != nil {
		return nil, fmt.Errorf("error while loading config file %q: %w", GetConfigPath(), err)
	}
	if err := observability.SetupLogger(cfg.Log.Level, cfg.Log.Format); err != nil {
		return nil, err
	}
	return cfg, nil
}
