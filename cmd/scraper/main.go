package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/courtwatch-hq/courtwatch-scraper/internal/app"
	"github.com/courtwatch-hq/courtwatch-scraper/internal/config"
	"github.com/courtwatch-hq/courtwatch-scraper/internal/logger"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "scraper start failed: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log, err := logger.Init(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logger.Close()

	log.InfoObj("scraper starting", "config", map[string]any{
		"app_name":     cfg.AppName,
		"env":          cfg.Env,
		"interval":     cfg.ScrapeInterval.String(),
		"days_ahead":   cfg.DaysAhead,
		"venue_source": cfg.VenueSource,
		"cache_type":   cfg.CacheType,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	scheduler, err := app.NewScheduler(ctx, cfg, log)
	if err != nil {
		log.ErrorObj("failed to initialize scheduler", "error", err.Error())
		return err
	}

	if err := scheduler.Run(ctx); err != nil {
		return fmt.Errorf("scheduler run: %w", err)
	}

	return nil
}
