package store

import (
	"context"
	"time"

	"github.com/courtwatch-hq/courtwatch-scraper/internal/domain"
)

// Package store is the narrow surface over the document store: canonical
// slot upserts, the append-only scrape-attempt log, the venue source, and
// the process-wide last-scrape marker.

// NaturalKey identifies a slot record for upsert purposes. Two writes with
// the same key replace each other; no history is retained.
type NaturalKey struct {
	VenueID   string
	CourtID   string
	Date      string
	StartTime string
}

// KeyForSlot derives the natural key from a scraped slot.
func KeyForSlot(slot domain.ScrapedSlot) NaturalKey {
	return NaturalKey{
		VenueID:   slot.VenueID,
		CourtID:   slot.CourtID,
		Date:      slot.Date,
		StartTime: slot.StartTime,
	}
}

// VenueSource loads venue configurations for a session. Read-only.
type VenueSource interface {
	// LoadVenues returns active venues, optionally restricted to the given
	// display names.
	LoadVenues(ctx context.Context, names []string) ([]domain.Venue, error)
	Close(ctx context.Context) error
}

// SlotStore persists canonical slot records and scrape-attempt logs.
type SlotStore interface {
	// FindSlot returns the record with the given natural key, or nil when
	// none exists.
	FindSlot(ctx context.Context, key NaturalKey) (*domain.SlotRecord, error)
	// UpsertSlot writes the record, replacing any prior record with the same
	// natural key.
	UpsertSlot(ctx context.Context, record domain.SlotRecord) error
	// AppendScrapeLog appends one scrape-attempt record. Never updated.
	AppendScrapeLog(ctx context.Context, log domain.ScrapeLog) error
	// UpdateLastScrapeTime upserts the single scraper-status marker.
	UpdateLastScrapeTime(ctx context.Context, t time.Time) error
	Close(ctx context.Context) error
}
