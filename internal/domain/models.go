package domain

import "time"

// Domain contains the core value types moved between scrapers, the
// deduplicator, the result store, and the notifier.

const DefaultCurrency = "GBP"

// Court is one bookable court inside a venue.
type Court struct {
	ID      string `json:"id" yaml:"id" bson:"id"`
	Name    string `json:"name" yaml:"name" bson:"name"`
	Surface string `json:"surface,omitempty" yaml:"surface,omitempty" bson:"surface,omitempty"`
	Indoor  bool   `json:"indoor,omitempty" yaml:"indoor,omitempty" bson:"indoor,omitempty"`
}

// ScraperConfig carries the platform-specific knobs for a venue's scraper.
// Params holds selector mappings and other settings this core never
// interprets; they are passed through to the platform scraper verbatim.
type ScraperConfig struct {
	Type            string         `json:"type" yaml:"type" bson:"type"`
	TimeoutSeconds  int            `json:"timeout_seconds,omitempty" yaml:"timeout_seconds,omitempty" bson:"timeout_seconds,omitempty"`
	WaitAfterLoadMs int            `json:"wait_after_load_ms,omitempty" yaml:"wait_after_load_ms,omitempty" bson:"wait_after_load_ms,omitempty"`
	RetryCount      int            `json:"retry_count,omitempty" yaml:"retry_count,omitempty" bson:"retry_count,omitempty"`
	Params          map[string]any `json:"params,omitempty" yaml:"params,omitempty" bson:"params,omitempty"`
}

// Venue is one booking site to scrape. Immutable for the duration of a
// session; reloaded fresh from the venue source each session.
type Venue struct {
	ID            string        `json:"id" yaml:"id" bson:"_id,omitempty"`
	Name          string        `json:"name" yaml:"name" bson:"name"`
	URL           string        `json:"url" yaml:"url" bson:"url"`
	Courts        []Court       `json:"courts" yaml:"courts" bson:"courts"`
	ScraperConfig ScraperConfig `json:"scraper_config" yaml:"scraper_config" bson:"scraper_config"`
	Active        bool          `json:"is_active" yaml:"is_active" bson:"is_active"`
}

// Platform returns the venue's platform type identifier.
func (v Venue) Platform() string { return v.ScraperConfig.Type }

// ScrapedSlot is one observed court time slot. It has no identity beyond its
// field tuple and is never persisted verbatim; it is projected into a
// SlotRecord on storage.
type ScrapedSlot struct {
	VenueID    string
	VenueName  string
	CourtID    string
	CourtName  string
	Date       string // YYYY-MM-DD
	StartTime  string // HH:MM
	EndTime    string // HH:MM
	Price      *float64
	Currency   string
	Available  bool
	BookingURL string
	ScrapedAt  time.Time
}

// Normalize fills the defaults a platform scraper may omit.
func (s ScrapedSlot) Normalize(now time.Time) ScrapedSlot {
	if s.Currency == "" {
		s.Currency = DefaultCurrency
	}
	if s.ScrapedAt.IsZero() {
		s.ScrapedAt = now
	}
	return s
}

// ScrapeResult is the outcome of scraping one venue across its target dates.
// Success means "zero errors", not "zero slots": a partial scrape where some
// dates failed carries both slots and error strings.
type ScrapeResult struct {
	VenueID    string
	VenueName  string
	Platform   string
	Success    bool
	Slots      []ScrapedSlot
	Errors     []string
	DurationMs int64
	ScrapedAt  time.Time
}

// FailedResult synthesizes a ScrapeResult for a venue that could not be
// scraped at all.
func FailedResult(v Venue, errMsg string) ScrapeResult {
	return ScrapeResult{
		VenueID:   v.ID,
		VenueName: v.Name,
		Platform:  v.Platform(),
		Success:   false,
		Errors:    []string{errMsg},
		ScrapedAt: time.Now(),
	}
}

// SlotRecord is the canonical persisted shape of a slot. Identity for upsert
// purposes is (venue_id, court_id, date, start_time); a write with the same
// natural key replaces the prior record in place.
type SlotRecord struct {
	VenueID    string    `bson:"venue_id" json:"venue_id"`
	VenueName  string    `bson:"venue_name" json:"venue_name"`
	CourtID    string    `bson:"court_id" json:"court_id"`
	CourtName  string    `bson:"court_name" json:"court_name"`
	Date       string    `bson:"date" json:"date"`
	StartTime  string    `bson:"start_time" json:"start_time"`
	EndTime    string    `bson:"end_time" json:"end_time"`
	Price      *float64  `bson:"price" json:"price"`
	Currency   string    `bson:"currency" json:"currency"`
	Available  bool      `bson:"available" json:"available"`
	BookingURL string    `bson:"booking_url" json:"booking_url"`
	ScrapedAt  time.Time `bson:"scraped_at" json:"scraped_at"`
	Platform   string    `bson:"platform" json:"platform"`
}

// NewSlotRecord projects a scraped slot into its persisted shape.
func NewSlotRecord(slot ScrapedSlot, platform string) SlotRecord {
	return SlotRecord{
		VenueID:    slot.VenueID,
		VenueName:  slot.VenueName,
		CourtID:    slot.CourtID,
		CourtName:  slot.CourtName,
		Date:       slot.Date,
		StartTime:  slot.StartTime,
		EndTime:    slot.EndTime,
		Price:      slot.Price,
		Currency:   slot.Currency,
		Available:  slot.Available,
		BookingURL: slot.BookingURL,
		ScrapedAt:  slot.ScrapedAt,
		Platform:   platform,
	}
}

// ScrapeLog is the append-only scrape-attempt record, one per venue per
// session. Write-once, never updated.
type ScrapeLog struct {
	VenueID    string    `bson:"venue_id" json:"venue_id"`
	VenueName  string    `bson:"venue_name" json:"venue_name"`
	Platform   string    `bson:"platform" json:"platform"`
	Timestamp  time.Time `bson:"scrape_timestamp" json:"scrape_timestamp"`
	Success    bool      `bson:"success" json:"success"`
	SlotsFound int       `bson:"slots_found" json:"slots_found"`
	DurationMs int64     `bson:"scrape_duration_ms" json:"scrape_duration_ms"`
	Errors     []string  `bson:"errors" json:"errors"`
	CreatedAt  time.Time `bson:"created_at" json:"created_at"`
}
