package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/marshbird/sightings-etl/internal/adapter/csvfile"
	httpadapter "github.com/marshbird/sightings-etl/internal/adapter/http"
	kafkaadapter "github.com/marshbird/sightings-etl/internal/adapter/kafka"
	"github.com/marshbird/sightings-etl/internal/adapter/page"
	"github.com/marshbird/sightings-etl/internal/adapter/web"
	"github.com/marshbird/sightings-etl/internal/config"
	"github.com/marshbird/sightings-etl/internal/domain"
	"github.com/marshbird/sightings-etl/internal/observability"
	"github.com/marshbird/sightings-etl/internal/pipeline"
)

func newRunCmd() *cobra.Command {
	var live bool
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Process archive pages into sighting records",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runPipeline(cmd.Context(), live)
		},
	}
	cmd.Flags().BoolVar(&live, "live", false, "fetch pages from the live site instead of pages_dir")
	return cmd
}

func runPipeline(parent context.Context, live bool) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return err
	}

	logger := observability.NewLogger(cfg.LogLevel, cfg.LogFormat)
	metrics := observability.NewMetrics()

	store, err := loadStore(cfg)
	if err != nil {
		return err
	}

	rules, err := domain.CompileRules(cfg.DateHeaderPatterns, cfg.DropPatterns, cfg.RequirePatterns)
	if err != nil {
		return fmt.Errorf("compile extraction rules: %w", err)
	}

	p := pipeline.New(store, rules, logger, metrics, cfg.Workers)

	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	srv := httpadapter.NewServer(cfg.HTTPAddr, p, p, logger)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("http server shutdown error", "error", err)
		}
	}()

	var pages []pipeline.PageText
	if live {
		pages, err = fetchLivePages(ctx, cfg, logger, metrics)
	} else {
		pages, err = page.LoadDir(cfg.PagesDir)
	}
	if err != nil {
		return err
	}
	logger.Info("pages loaded", "count", len(pages), "live", live)

	out, err := csvfile.NewWriter(cfg.OutputDir)
	if err != nil {
		return err
	}
	defer func() {
		if err := out.Close(); err != nil {
			logger.Error("close output", "error", err)
		}
	}()

	sinks := []pipeline.RecordSink{out}
	if cfg.KafkaEnabled {
		publisher := kafkaadapter.NewPublisher(cfg, logger)
		defer func() {
			if err := publisher.Close(); err != nil {
				logger.Error("kafka publisher close error", "error", err)
			}
		}()
		sinks = append(sinks, publisher)
		logger.Info("kafka publishing enabled", "topic", cfg.KafkaTopic)
	}

	if err := p.Run(ctx, pages, pipeline.MultiSink(sinks...)); err != nil {
		return err
	}

	if err := out.WriteUnknowns(p.UnknownSpecies(), p.UnknownLocations()); err != nil {
		return err
	}

	logger.Info("run complete",
		"pages", len(pages),
		"unknown_species", len(p.UnknownSpecies().Counts()),
		"unknown_locations", len(p.UnknownLocations().Counts()),
	)
	return nil
}

// fetchLivePages discovers the archive pages on the live site and parses
// each one without touching disk.
func fetchLivePages(ctx context.Context, cfg *config.Config, logger *slog.Logger, metrics *observability.Metrics) ([]pipeline.PageText, error) {
	client, err := web.NewClient(cfg.SiteRootURL, cfg.SiteIndexPage, cfg.FetchTimeout, logger, metrics)
	if err != nil {
		return nil, err
	}
	fetcher := web.NewCachedFetcher(client, cfg.PageCacheSize,
		func() { metrics.FetchCache.WithLabelValues("hit").Inc() },
		func() { metrics.FetchCache.WithLabelValues("miss").Inc() },
	)

	names, err := client.DiscoverPages(ctx)
	if err != nil {
		return nil, err
	}

	pages := make([]pipeline.PageText, 0, len(names))
	for _, name := range names {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		body, err := fetcher.FetchPage(ctx, name)
		if err != nil {
			logger.Warn("skipping page", "page", name, "error", err)
			continue
		}
		id := strings.TrimSuffix(name, filepath.Ext(name))
		pt, err := page.Parse(id, strings.NewReader(body))
		if err != nil {
			logger.Warn("skipping unparseable page", "page", name, "error", err)
			continue
		}
		pages = append(pages, pt)
	}
	return pages, nil
}
