package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/quantfolio/quantfolio/internal/cache"
	"github.com/quantfolio/quantfolio/internal/config"
	"github.com/quantfolio/quantfolio/internal/httpapi"
	"github.com/quantfolio/quantfolio/internal/ingest"
	"github.com/quantfolio/quantfolio/internal/metrics"
	"github.com/quantfolio/quantfolio/internal/pipeline"
	"github.com/quantfolio/quantfolio/internal/providers/vix"
	"github.com/quantfolio/quantfolio/internal/scheduler"
	"github.com/quantfolio/quantfolio/internal/schema"
	"github.com/quantfolio/quantfolio/internal/store"
)

func runServe(cmd *cobra.Command, _ []string) error {
	cfgPath, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	registry := metrics.NewRegistry()
	engine := pipeline.New(cfg, registry)

	var reportCache *cache.ReportCache
	if cfg.Redis.Addr != "" {
		reportCache = cache.New(cfg.Redis.Addr, cfg.Redis.TTL)
		log.Info().Str("addr", cfg.Redis.Addr).Msg("report cache enabled")
	}

	var alertStore *store.AlertStore
	if cfg.Postgres.DSN != "" {
		alertStore, err = store.Open(ctx, cfg.Postgres.DSN)
		if err != nil {
			return err
		}
		defer alertStore.Close()
		log.Info().Msg("alert audit store enabled")
	}

	server := httpapi.NewServer(cfg.Server, engine, registry, reportCache, alertStore)

	load := func() ([]schema.RawRow, error) {
		rows, source, err := ingest.LoadSnapshot(cfg.Ingest.SnapshotJSON, cfg.Ingest.SnapshotCSV)
		if err != nil {
			return nil, err
		}
		log.Debug().Str("source", string(source)).Int("rows", len(rows)).Msg("snapshot loaded")
		return rows, nil
	}

	var vixFeed scheduler.VIXFunc
	provider := vix.New(cfg.VIX)
	if provider.Enabled() {
		vixFeed = provider.Current
		log.Info().Str("url", cfg.VIX.URL).Msg("VIX feed enabled")
	}

	refresher := scheduler.New(engine, load, vixFeed, server.Publish)

	// Seed the dashboard with an initial pass; a missing snapshot is not
	// fatal in serve mode, the first POST /evaluate or refresh fills it.
	if err := refresher.RunOnce(ctx); err != nil {
		log.Warn().Err(err).Msg("initial evaluation skipped")
	}

	if cfg.Refresh.Enabled {
		if err := refresher.Start(cfg.Refresh.Schedule); err != nil {
			return err
		}
		defer refresher.Stop()
	}

	return server.ListenAndServe(ctx)
}
