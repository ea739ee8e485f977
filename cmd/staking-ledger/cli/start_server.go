package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"solana-staking-ledger/internal/address"
	"solana-staking-ledger/internal/api"
	"solana-staking-ledger/internal/auth"
	"solana-staking-ledger/internal/clock"
	"solana-staking-ledger/internal/config"
	"solana-staking-ledger/internal/events"
	"solana-staking-ledger/internal/ledger"
	"solana-staking-ledger/internal/observability/tracing"
	"solana-staking-ledger/internal/solana"
	"solana-staking-ledger/internal/storage"
	chstore "solana-staking-ledger/internal/storage/clickhouse"
	"solana-staking-ledger/internal/storage/memory"
	"solana-staking-ledger/internal/storage/migrations"
	pgstore "solana-staking-ledger/internal/storage/postgres"
)

func StartServerCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "start-server",
		Short: "Starts the staking ledger HTTP server",
		Args:  cobra.ExactArgs(0),
		RunE:  startServer,
	}
}

func startServer(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx = tracing.InjectTraceID(ctx)
	log := log.Ctx(ctx)

	store, closeStore, err := newLedgerStore(ctx, cfg.Storage)
	if err != nil {
		return err
	}
	defer closeStore()

	hub := events.NewHub(
		events.WithPingInterval(cfg.Events.PingInterval),
		events.WithSendBuffer(cfg.Events.SendBuffer),
	)
	defer hub.Close()
	sinks := []events.Sink{hub}

	serverOpts := []api.Option{
		api.WithStream(hub),
		api.WithAdminToken(cfg.Auth.AdminToken),
	}

	if cfg.Storage.ClickhouseDSN != "" {
		conn, err := migrations.RunClickhouseMigrations(ctx, cfg.Storage.ClickhouseDSN)
		if err != nil {
			return fmt.Errorf("clickhouse: %w", err)
		}
		defer conn.Close()

		analytics := chstore.NewEventStore(conn)
		sinks = append(sinks, events.NewStoreSink(analytics))
		serverOpts = append(serverOpts, api.WithAnalytics(analytics))
	}

	clk, rpc := newClock(cfg.Clock)
	if rpc != nil {
		serverOpts = append(serverOpts, api.WithHealthCheck(rpc))
	}

	deriver, err := address.NewDeriver(cfg.Ledger.ProgramID)
	if err != nil {
		return err
	}

	svc := ledger.NewService(store, clk, deriver, ledger.WithPublisher(events.NewFanout(sinks...)))
	server := api.NewServer(svc, auth.NewVerifier(cfg.Auth.MaxIntentTTL), clk, serverOpts...)

	httpServer := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      server.Router(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().
			Str("addr", cfg.Server.Addr).
			Str("storage", cfg.Storage.Driver).
			Str("clock", cfg.Clock.Source).
			Msg("staking ledger listening")
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cfg.Server.ShutdownTimeout)
	defer cancel()
	return httpServer.Shutdown(shutdownCtx)
}

func newLedgerStore(ctx context.Context, cfg config.StorageConfig) (storage.LedgerStore, func(), error) {
	if cfg.Driver == config.DriverMemory {
		return memory.NewLedgerStore(), func() {}, nil
	}

	pool, err := pgstore.NewPool(ctx, cfg.PostgresDSN)
	if err != nil {
		return nil, nil, fmt.Errorf("postgres: %w", err)
	}
	if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
		pool.Close()
		return nil, nil, err
	}
	return pgstore.NewLedgerStore(pool, pgstore.WithTxAttempts(cfg.TxAttempts)), pool.Close, nil
}

// newClock builds the configured time source behind a monotonic guard.
// The RPC client is returned for health checks when the cluster clock is used.
func newClock(cfg config.ClockConfig) (clock.Clock, *solana.HTTPClient) {
	if cfg.Source != config.ClockCluster {
		return clock.NewMonotonic(clock.System{}), nil
	}
	rpc := solana.NewHTTPClient(cfg.RPCEndpoint,
		solana.WithTimeout(cfg.Timeout),
		solana.WithMaxRetries(cfg.MaxRetries),
	)
	return clock.NewMonotonic(clock.NewCluster(rpc)), rpc
}
