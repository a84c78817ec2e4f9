package orchestrator

import (
	"context"
	"fmt"
	"time"

	"github.com/courtwatch-hq/courtwatch-scraper/internal/dedup"
	"github.com/courtwatch-hq/courtwatch-scraper/internal/domain"
	"github.com/courtwatch-hq/courtwatch-scraper/internal/logger"
	"github.com/courtwatch-hq/courtwatch-scraper/internal/notify"
	"github.com/courtwatch-hq/courtwatch-scraper/internal/scrapers"
	"github.com/courtwatch-hq/courtwatch-scraper/internal/store"
)

// SlotDeduper filters already-seen slots out of a scrape result.
type SlotDeduper interface {
	CheckMany(ctx context.Context, slots []domain.ScrapedSlot) ([]domain.ScrapedSlot, []dedup.Duplicate)
	Metrics() dedup.Metrics
}

// NotificationPublisher fans notifications out to the configured sinks.
type NotificationPublisher interface {
	PublishBatch(ctx context.Context, batch []notify.Notification) (int, error)
	Size() int
}

// Orchestrator coordinates one scrape session: load venues, scrape each in
// turn, deduplicate, persist, and notify. Venues are processed sequentially;
// one venue's failure never prevents the remaining venues from being scraped.
type Orchestrator struct {
	venues    store.VenueSource
	slots     store.SlotStore
	registry  scrapers.Registry
	deduper   SlotDeduper
	publisher NotificationPublisher
	pacer     *Pacer
	daysAhead int
	log       logger.Logger
	now       func() time.Time
}

// Deps carries the orchestrator's collaborators.
type Deps struct {
	Venues    store.VenueSource
	Slots     store.SlotStore
	Registry  scrapers.Registry
	Deduper   SlotDeduper
	Publisher NotificationPublisher
	Pacer     *Pacer
	DaysAhead int
	Log       logger.Logger
}

const defaultDaysAhead = 7

// New wires an orchestrator from its dependencies, filling in defaults for
// any that are omitted.
func New(deps Deps) *Orchestrator {
	o := &Orchestrator{
		venues:    deps.Venues,
		slots:     deps.Slots,
		registry:  deps.Registry,
		deduper:   deps.Deduper,
		publisher: deps.Publisher,
		pacer:     deps.Pacer,
		daysAhead: deps.DaysAhead,
		log:       deps.Log,
		now:       time.Now,
	}
	if o.registry == nil {
		o.registry = scrapers.DefaultRegistry()
	}
	if o.daysAhead <= 0 {
		o.daysAhead = defaultDaysAhead
	}
	if o.log == nil {
		o.log = logger.NopLogger{}
	}
	if o.pacer == nil {
		o.pacer = NewPacer(0)
	}
	return o
}

// VenueOutcome aggregates what happened to one venue during a session.
type VenueOutcome struct {
	Result     domain.ScrapeResult
	NewSlots   int
	Duplicates int
	Stored     int
	Notified   int
}

// SessionSummary reports the whole session. TotalErrors counts every error
// string across venue results, storage failures included.
type SessionSummary struct {
	VenuesAttempted int
	VenuesSucceeded int
	TotalSlots      int
	NewSlots        int
	Duplicates      int
	Stored          int
	Notified        int
	TotalErrors     int
	Dedup           dedup.Metrics
	Duration        time.Duration
	Outcomes        []VenueOutcome
}

// RunSession scrapes every active venue once, optionally restricted to the
// given venue names. When targetDates is nil the contiguous window derived
// from daysAhead is scraped. Cancellation finishes the venue in flight and
// skips the rest; the last-scrape marker is only advanced when the full venue
// list was attempted.
func (o *Orchestrator) RunSession(ctx context.Context, venueNames, targetDates []string) (*SessionSummary, error) {
	start := o.now()

	venues, err := o.venues.LoadVenues(ctx, venueNames)
	if err != nil {
		return nil, fmt.Errorf("load venues: %w", err)
	}

	summary := &SessionSummary{}
	if len(venues) == 0 {
		o.log.WarnObj("no active venues to scrape", "session", map[string]any{
			"venue_filter": venueNames,
		})
		return summary, nil
	}

	dates := targetDates
	if dates == nil {
		dates = scrapers.TargetDates(start, o.daysAhead)
	}
	interrupted := false

	for i, venue := range venues {
		if ctx.Err() != nil {
			interrupted = true
			o.log.WarnObj("session interrupted", "session", map[string]any{
				"venues_remaining": len(venues) - i,
			})
			break
		}

		// The venue in flight runs to completion even when the session is
		// cancelled; cancellation is observed between venues and in the pacer.
		outcome := o.runVenue(context.WithoutCancel(ctx), venue, dates)
		summary.add(outcome)

		if i < len(venues)-1 {
			if err := o.pacer.Wait(ctx); err != nil {
				interrupted = true
				break
			}
		}
	}

	summary.Dedup = o.deduper.Metrics()
	summary.Duration = o.now().Sub(start)

	if !interrupted {
		if err := o.slots.UpdateLastScrapeTime(ctx, o.now()); err != nil {
			o.log.ErrorObj("update last scrape time failed", "session", map[string]any{
				"error": err.Error(),
			})
		}
	}

	o.log.InfoObj("scrape session completed", "session_summary", map[string]any{
		"venues_attempted": summary.VenuesAttempted,
		"venues_succeeded": summary.VenuesSucceeded,
		"total_slots":      summary.TotalSlots,
		"new_slots":        summary.NewSlots,
		"duplicates":       summary.Duplicates,
		"stored":           summary.Stored,
		"notified":         summary.Notified,
		"total_errors":     summary.TotalErrors,
		"duration_ms":      summary.Duration.Milliseconds(),
		"dedup":            summary.Dedup,
		"interrupted":      interrupted,
	})

	if interrupted {
		return summary, ctx.Err()
	}
	return summary, nil
}

// CheckVenue runs the full pipeline for a single venue identified by display
// name. Used by the venue check command to exercise a venue end to end.
func (o *Orchestrator) CheckVenue(ctx context.Context, venueName string) (*VenueOutcome, error) {
	venues, err := o.venues.LoadVenues(ctx, []string{venueName})
	if err != nil {
		return nil, fmt.Errorf("load venues: %w", err)
	}
	if len(venues) == 0 {
		return nil, fmt.Errorf("venue %q not found or not active", venueName)
	}

	dates := scrapers.TargetDates(o.now(), o.daysAhead)
	outcome := o.runVenue(ctx, venues[0], dates)
	return &outcome, nil
}

func (o *Orchestrator) runVenue(ctx context.Context, venue domain.Venue, dates []string) VenueOutcome {
	result := o.scrapeVenue(ctx, venue, dates)
	outcome := o.persist(ctx, venue, result)

	o.log.InfoObj("venue scrape completed", "venue_result", map[string]any{
		"venue_id":    venue.ID,
		"venue_name":  venue.Name,
		"platform":    outcome.Result.Platform,
		"success":     outcome.Result.Success,
		"slots_found": len(outcome.Result.Slots),
		"new_slots":   outcome.NewSlots,
		"duplicates":  outcome.Duplicates,
		"stored":      outcome.Stored,
		"notified":    outcome.Notified,
		"errors":      outcome.Result.Errors,
		"duration_ms": outcome.Result.DurationMs,
	})
	return outcome
}

// scrapeVenue resolves and runs the venue's platform scraper. A panicking
// scraper is confined to its venue and surfaces as a failed result.
func (o *Orchestrator) scrapeVenue(ctx context.Context, venue domain.Venue, dates []string) (result domain.ScrapeResult) {
	defer func() {
		if r := recover(); r != nil {
			o.log.ErrorObj("scraper panicked", "venue_result", map[string]any{
				"venue_id": venue.ID,
				"panic":    fmt.Sprint(r),
			})
			result = domain.FailedResult(venue, fmt.Sprintf("scraper panic: %v", r))
		}
	}()

	scraper, err := o.registry.ScraperFor(venue)
	if err != nil {
		return domain.FailedResult(venue, err.Error())
	}

	result, err = scraper.ScrapeAvailability(ctx, dates)
	if err != nil {
		return domain.FailedResult(venue, err.Error())
	}
	return result
}

// persist routes one venue's result through dedup, store, and notifier.
// Storage failures are recorded on the result and never abort the venue; the
// scrape log is appended whether or not any slots were found.
func (o *Orchestrator) persist(ctx context.Context, venue domain.Venue, result domain.ScrapeResult) VenueOutcome {
	out := VenueOutcome{Result: result}
	now := o.now()

	if len(result.Slots) > 0 {
		fresh, dups := o.deduper.CheckMany(ctx, result.Slots)
		out.NewSlots = len(fresh)
		out.Duplicates = len(dups)

		var batch []notify.Notification
		for _, slot := range fresh {
			slot = slot.Normalize(now)
			key := store.KeyForSlot(slot)

			// The cache said new; the store lookup is a second check so a
			// cache flush does not re-notify slots already on record. On
			// lookup failure the cache's verdict stands.
			isNew := true
			existing, err := o.slots.FindSlot(ctx, key)
			if err != nil {
				out.Result.Errors = append(out.Result.Errors,
					fmt.Sprintf("lookup slot %s/%s %s %s: %v", key.VenueID, key.CourtID, key.Date, key.StartTime, err))
			} else if existing != nil {
				isNew = false
			}

			if err := o.slots.UpsertSlot(ctx, domain.NewSlotRecord(slot, result.Platform)); err != nil {
				out.Result.Errors = append(out.Result.Errors,
					fmt.Sprintf("store slot %s/%s %s %s: %v", key.VenueID, key.CourtID, key.Date, key.StartTime, err))
				continue
			}
			out.Stored++

			if isNew && slot.Available {
				batch = append(batch, notify.NewNotification(slot, result.Platform))
			}
		}

		if len(batch) > 0 && o.publisher != nil && o.publisher.Size() > 0 {
			sent, err := o.publisher.PublishBatch(ctx, batch)
			out.Notified = sent
			if err != nil {
				o.log.ErrorObj("notification publish failed", "venue_result", map[string]any{
					"venue_id": venue.ID,
					"queued":   len(batch),
					"sent":     sent,
					"error":    err.Error(),
				})
			}
		}
	}

	entry := domain.ScrapeLog{
		VenueID:    venue.ID,
		VenueName:  venue.Name,
		Platform:   result.Platform,
		Timestamp:  result.ScrapedAt,
		Success:    result.Success,
		SlotsFound: len(result.Slots),
		DurationMs: result.DurationMs,
		Errors:     out.Result.Errors,
		CreatedAt:  now,
	}
	if err := o.slots.AppendScrapeLog(ctx, entry); err != nil {
		out.Result.Errors = append(out.Result.Errors, fmt.Sprintf("append scrape log: %v", err))
		o.log.ErrorObj("append scrape log failed", "venue_result", map[string]any{
			"venue_id": venue.ID,
			"error":    err.Error(),
		})
	}

	return out
}

func (s *SessionSummary) add(out VenueOutcome) {
	s.VenuesAttempted++
	if out.Result.Success {
		s.VenuesSucceeded++
	}
	s.TotalSlots += len(out.Result.Slots)
	s.NewSlots += out.NewSlots
	s.Duplicates += out.Duplicates
	s.Stored += out.Stored
	s.Notified += out.Notified
	s.TotalErrors += len(out.Result.Errors)
	s.Outcomes = append(s.Outcomes, out)
}
