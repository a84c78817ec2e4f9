package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/courtwatch-hq/courtwatch-scraper/internal/config"
	"github.com/courtwatch-hq/courtwatch-scraper/internal/dedup"
	"github.com/courtwatch-hq/courtwatch-scraper/internal/logger"
	"github.com/courtwatch-hq/courtwatch-scraper/internal/notify"
	"github.com/courtwatch-hq/courtwatch-scraper/internal/orchestrator"
	"github.com/courtwatch-hq/courtwatch-scraper/internal/scrapers"
	"github.com/courtwatch-hq/courtwatch-scraper/internal/store"
)

// Scheduler is the scraper runtime. It runs scrape sessions on a fixed
// interval, starting with an immediate session, and guarantees at most one
// session in flight at a time. Store and cache connections are acquired per
// session and released when the session ends.
type Scheduler struct {
	cfg      *config.Config
	log      logger.Logger
	registry scrapers.Registry
	fanout   *notify.Fanout
	interval time.Duration

	mu      sync.Mutex
	running bool
	lastRun time.Time
	nextRun time.Time

	// session is swappable so tests can run the loop without a live store.
	session func(ctx context.Context) (*orchestrator.SessionSummary, error)
}

// Status is a point-in-time view of the scheduler.
type Status struct {
	Running  bool          `json:"session_in_progress"`
	LastRun  time.Time     `json:"last_run"`
	NextRun  time.Time     `json:"next_run"`
	Interval time.Duration `json:"interval"`
}

// NewScheduler builds the scraper runtime from config: notifier sinks are
// constructed up front, store and cache connections per session.
func NewScheduler(ctx context.Context, cfg *config.Config, log logger.Logger) (*Scheduler, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config must not be nil")
	}
	if log == nil {
		log = logger.NopLogger{}
	}
	if ctx == nil {
		ctx = context.Background()
	}

	enabled, err := sinkConfigs(cfg, log)
	if err != nil {
		return nil, err
	}
	sinks, err := notify.BuildAll(ctx, notify.DefaultRegistry(), enabled, log)
	if err != nil {
		return nil, fmt.Errorf("build notifier sinks: %w", err)
	}
	if len(sinks) == 0 {
		log.WarnObj("no notifier sinks enabled; new slots will be stored but not announced",
			"notifiers_file", cfg.NotifiersFile)
	}
	sinkSummaries := make([]map[string]string, 0, len(enabled))
	for _, sinkCfg := range enabled {
		sinkSummaries = append(sinkSummaries, map[string]string{
			"id":   sinkCfg.ID,
			"type": sinkCfg.Type,
		})
	}
	log.InfoObj("notifiers registry loaded", "notifiers_meta", map[string]any{
		"count": len(sinkSummaries),
		"sinks": sinkSummaries,
	})

	s := &Scheduler{
		cfg:      cfg,
		log:      log,
		registry: scrapers.DefaultRegistry(),
		fanout:   notify.NewFanout(sinks),
		interval: cfg.ScrapeInterval,
	}
	s.session = s.runSession
	return s, nil
}

// sinkConfigs returns the enabled sink definitions. When no notifiers file
// exists, a single Redis queue sink is synthesized from the environment so
// the queue contract works without a config file.
func sinkConfigs(cfg *config.Config, log logger.Logger) ([]notify.SinkConfig, error) {
	reg, err := notify.LoadRegistry(cfg.NotifiersFile)
	if err == nil {
		return reg.Enabled(), nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load notifiers registry: %w", err)
	}

	log.InfoObj("notifiers file not found, using queue settings from environment", "notifiers_meta", map[string]any{
		"notifiers_file": cfg.NotifiersFile,
		"queue":          cfg.QueueName,
	})
	return []notify.SinkConfig{{
		ID:   "slots-queue",
		Type: notify.TypeRedisQueue,
		RedisQueue: &notify.RedisQueueConfig{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
			Queue:    cfg.QueueName,
		},
	}}, nil
}

// Run starts the session loop until the context is cancelled. The first
// session starts immediately.
func (s *Scheduler) Run(ctx context.Context) error {
	if s == nil || s.session == nil {
		return fmt.Errorf("scheduler is not initialized")
	}

	s.log.InfoObj("scheduler starting", "scheduler_state", map[string]any{
		"interval":     s.interval.String(),
		"days_ahead":   s.cfg.DaysAhead,
		"venue_source": s.cfg.VenueSource,
		"sinks_count":  s.fanout.Size(),
	})

	if err := s.RunOnce(ctx); err != nil && ctx.Err() == nil {
		s.log.ErrorObj("initial scrape session failed", "error", err.Error())
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.log.InfoObj("scheduler exiting", "reason", ctx.Err().Error())
			return nil
		case <-ticker.C:
			if err := s.RunOnce(ctx); err != nil && ctx.Err() == nil {
				s.log.ErrorObj("scheduled scrape session failed", "error", err.Error())
			}
		}
	}
}

// RunOnce runs a single scrape session. Idempotent with respect to overlap:
// if a session is already in flight, the call is a no-op.
func (s *Scheduler) RunOnce(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		s.log.WarnObj("scrape session already in progress; skipping", "scheduler_state", map[string]any{
			"next_run": s.nextRun,
		})
		return nil
	}
	s.running = true
	s.mu.Unlock()

	started := time.Now()
	defer func() {
		s.mu.Lock()
		s.running = false
		s.lastRun = started
		s.nextRun = started.Add(s.interval)
		s.mu.Unlock()
	}()

	_, err := s.session(ctx)
	return err
}

// Status reports whether a session is in flight and when the next one is due.
func (s *Scheduler) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Status{
		Running:  s.running,
		LastRun:  s.lastRun,
		NextRun:  s.nextRun,
		Interval: s.interval,
	}
}

// runSession acquires session-scoped resources, runs the orchestrator once,
// and releases everything on every exit path.
func (s *Scheduler) runSession(ctx context.Context) (*orchestrator.SessionSummary, error) {
	orch, release, err := s.buildOrchestrator(ctx, s.cfg.DaysAhead)
	if err != nil {
		return nil, err
	}
	defer release()

	return orch.RunSession(ctx, nil, nil)
}

// CheckVenue runs the full pipeline once for a single venue by name, with an
// optional days-ahead override. Session-scoped resources are acquired and
// released the same way a scheduled session does.
func (s *Scheduler) CheckVenue(ctx context.Context, venueName string, daysAhead int) (*orchestrator.VenueOutcome, error) {
	if daysAhead <= 0 {
		daysAhead = s.cfg.DaysAhead
	}
	orch, release, err := s.buildOrchestrator(ctx, daysAhead)
	if err != nil {
		return nil, err
	}
	defer release()

	return orch.CheckVenue(ctx, venueName)
}

func (s *Scheduler) buildOrchestrator(ctx context.Context, daysAhead int) (*orchestrator.Orchestrator, func(), error) {
	mongoStore, err := store.OpenMongo(ctx, s.cfg.MongoURI, s.cfg.MongoDBName)
	if err != nil {
		return nil, nil, fmt.Errorf("open store: %w", err)
	}

	var venues store.VenueSource = mongoStore
	if s.cfg.VenueSource == "file" {
		fileSource, err := store.LoadVenueFile(s.cfg.VenuesFile)
		if err != nil {
			_ = mongoStore.Close(ctx)
			return nil, nil, fmt.Errorf("load venues file: %w", err)
		}
		venues = fileSource
	}

	connect, err := dedup.NewCacheBuilder(dedup.CacheOptions{
		Type:     s.cfg.CacheType,
		Addr:     s.cfg.RedisAddr,
		Password: s.cfg.RedisPassword,
		DB:       s.cfg.RedisDedupeDB,
		BoltPath: s.cfg.BBoltPath,
	})
	if err != nil {
		_ = mongoStore.Close(ctx)
		return nil, nil, fmt.Errorf("init dedup cache: %w", err)
	}
	deduper := dedup.New(connect, s.cfg.DedupeTTL, s.log)

	deps := orchestrator.Deps{
		Venues:    venues,
		Slots:     mongoStore,
		Registry:  s.registry,
		Deduper:   deduper,
		Publisher: s.fanout,
		Pacer:     orchestrator.NewPacer(s.interval),
		DaysAhead: daysAhead,
		Log:       s.log,
	}

	release := func() {
		if err := deduper.Close(); err != nil {
			s.log.ErrorObj("dedup cache close failed", "error", err.Error())
		}
		if err := mongoStore.Close(context.Background()); err != nil {
			s.log.ErrorObj("store close failed", "error", err.Error())
		}
	}
	return orchestrator.New(deps), release, nil
}
