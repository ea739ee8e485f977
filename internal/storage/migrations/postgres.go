package migrations

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"solana-staking-ledger/internal/storage/postgres"
)

// RunPostgresMigrations creates the pool, stake, token account and event
// tables. Every file uses IF NOT EXISTS, so running it against an existing
// ledger is a no-op.
func RunPostgresMigrations(ctx context.Context, pool *postgres.Pool) error {
	files, err := load(PostgresFS, "postgres")
	if err != nil {
		return err
	}

	for _, m := range files {
		// pgx runs a multi-statement file as one simple-protocol batch
		if _, err := pool.Exec(ctx, m.sql); err != nil {
			return fmt.Errorf("postgres schema %s: %w", m.name, err)
		}
		log.Ctx(ctx).Debug().Str("file", m.name).Msg("postgres schema applied")
	}
	return nil
}
