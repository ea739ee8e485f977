package cli

import (
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"solana-staking-ledger/internal/config"
	"solana-staking-ledger/internal/observability/tracing"
	"solana-staking-ledger/internal/storage/migrations"
	"solana-staking-ledger/internal/storage/postgres"
)

func MigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Applies the Postgres and ClickHouse schema migrations",
		Args:  cobra.ExactArgs(0),
		RunE:  migrate,
	}
}

func migrate(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx := tracing.InjectTraceID(cmd.Context())
	log := log.Ctx(ctx)

	if cfg.Storage.Driver == config.DriverPostgres {
		pool, err := postgres.NewPool(ctx, cfg.Storage.PostgresDSN)
		if err != nil {
			return err
		}
		defer pool.Close()

		if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
			return err
		}
		log.Info().Msg("postgres migrations applied")
	}

	if cfg.Storage.ClickhouseDSN != "" {
		conn, err := migrations.RunClickhouseMigrations(ctx, cfg.Storage.ClickhouseDSN)
		if err != nil {
			return err
		}
		defer conn.Close()
		log.Info().Msg("clickhouse migrations applied")
	}

	return nil
}
