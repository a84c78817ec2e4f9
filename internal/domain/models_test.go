package domain

import (
	"testing"
	"time"
)

func TestNormalizeFillsDefaults(t *testing.T) {
	now := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	slot := ScrapedSlot{VenueID: "v1", Date: "2026-09-01", StartTime: "18:00"}

	got := slot.Normalize(now)
	if got.Currency != DefaultCurrency {
		t.Fatalf("Currency = %q, want %q", got.Currency, DefaultCurrency)
	}
	if !got.ScrapedAt.Equal(now) {
		t.Fatalf("ScrapedAt = %v, want %v", got.ScrapedAt, now)
	}

	// Populated fields are left alone.
	scraped := now.Add(-time.Hour)
	slot.Currency = "EUR"
	slot.ScrapedAt = scraped
	got = slot.Normalize(now)
	if got.Currency != "EUR" || !got.ScrapedAt.Equal(scraped) {
		t.Fatalf("Normalize overwrote populated fields: %+v", got)
	}
}

func TestFailedResult(t *testing.T) {
	venue := Venue{
		ID:            "v1",
		Name:          "Venue One",
		ScraperConfig: ScraperConfig{Type: "clubspark"},
	}

	result := FailedResult(venue, "scraper timed out")
	if result.Success {
		t.Fatalf("failed result marked successful")
	}
	if result.VenueID != "v1" || result.Platform != "clubspark" {
		t.Fatalf("venue identity not carried: %+v", result)
	}
	if len(result.Errors) != 1 || result.Errors[0] != "scraper timed out" {
		t.Fatalf("unexpected errors %v", result.Errors)
	}
}

func TestNewSlotRecordProjectsAllFields(t *testing.T) {
	cost := 12.5
	slot := ScrapedSlot{
		VenueID:    "v1",
		VenueName:  "Venue One",
		CourtID:    "c1",
		CourtName:  "Court 1",
		Date:       "2026-09-01",
		StartTime:  "18:00",
		EndTime:    "19:00",
		Price:      &cost,
		Currency:   "GBP",
		Available:  true,
		BookingURL: "https://example.com/book",
		ScrapedAt:  time.Now(),
	}

	record := NewSlotRecord(slot, "clubspark")
	if record.VenueID != slot.VenueID || record.CourtID != slot.CourtID ||
		record.Date != slot.Date || record.StartTime != slot.StartTime {
		t.Fatalf("natural key not carried: %+v", record)
	}
	if record.Platform != "clubspark" {
		t.Fatalf("platform not stamped: %q", record.Platform)
	}
	if record.Price == nil || *record.Price != cost {
		t.Fatalf("price not carried")
	}
}
