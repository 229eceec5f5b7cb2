package main

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/marshbird/sightings-etl/internal/adapter/web"
	"github.com/marshbird/sightings-etl/internal/config"
	"github.com/marshbird/sightings-etl/internal/observability"
)

func newHarvestCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "harvest",
		Short: "Mirror the archive pages from the live site into pages_dir",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(cfgFile)
			if err != nil {
				return err
			}

			logger := observability.NewLogger(cfg.LogLevel, cfg.LogFormat)
			metrics := observability.NewMetrics()

			client, err := web.NewClient(cfg.SiteRootURL, cfg.SiteIndexPage, cfg.FetchTimeout, logger, metrics)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			saved, err := client.MirrorTo(ctx, cfg.PagesDir)
			if err != nil {
				return err
			}
			logger.Info("harvest complete", "pages", len(saved), "dir", cfg.PagesDir)
			return nil
		},
	}
}
