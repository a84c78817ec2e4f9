package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/courtwatch-hq/courtwatch-scraper/internal/app"
	"github.com/courtwatch-hq/courtwatch-scraper/internal/config"
	"github.com/courtwatch-hq/courtwatch-scraper/internal/logger"
)

// venuecheck runs the full scrape pipeline once for a single venue and prints
// the outcome. Useful for verifying a venue's configuration before enabling
// it for scheduled scraping.
func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "venuecheck failed: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	venueName := flag.String("venue", "", "display name of the venue to check")
	daysAhead := flag.Int("days", 0, "days ahead to scrape (0 uses the configured default)")
	flag.Parse()

	if *venueName == "" {
		flag.Usage()
		return fmt.Errorf("missing required -venue flag")
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log, err := logger.Init(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logger.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	scheduler, err := app.NewScheduler(ctx, cfg, log)
	if err != nil {
		return fmt.Errorf("initialize scheduler: %w", err)
	}

	outcome, err := scheduler.CheckVenue(ctx, *venueName, *daysAhead)
	if err != nil {
		return err
	}

	report := map[string]any{
		"venue_id":    outcome.Result.VenueID,
		"venue_name":  outcome.Result.VenueName,
		"platform":    outcome.Result.Platform,
		"success":     outcome.Result.Success,
		"slots_found": len(outcome.Result.Slots),
		"new_slots":   outcome.NewSlots,
		"duplicates":  outcome.Duplicates,
		"stored":      outcome.Stored,
		"notified":    outcome.Notified,
		"errors":      outcome.Result.Errors,
		"duration_ms": outcome.Result.DurationMs,
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(report); err != nil {
		return err
	}

	if !outcome.Result.Success {
		return fmt.Errorf("venue scrape reported errors")
	}
	return nil
}
