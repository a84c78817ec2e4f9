package scrapers

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"

	"github.com/courtwatch-hq/courtwatch-scraper/internal/domain"
)

// fakeGetter serves canned responses keyed by URL substring.
type fakeGetter struct {
	responses map[string]string
	status    int
	err       error
	urls      []string
}

func (f *fakeGetter) Get(_ context.Context, url string) ([]byte, int, error) {
	f.urls = append(f.urls, url)
	if f.err != nil {
		return nil, 0, f.err
	}
	status := f.status
	if status == 0 {
		status = http.StatusOK
	}
	for fragment, body := range f.responses {
		if strings.Contains(url, fragment) {
			return []byte(body), status, nil
		}
	}
	return []byte(`{"Resources":[]}`), status, nil
}

func clubsparkVenue() domain.Venue {
	return domain.Venue{
		ID:   "islington",
		Name: "Islington Tennis Centre",
		URL:  "https://clubspark.lta.org.uk/Islington/Booking/BookByDate/",
		ScraperConfig: domain.ScraperConfig{
			Type: PlatformClubSpark,
		},
	}
}

const sessionsPayload = `{
	"Resources": [
		{
			"ID": "court-1",
			"Name": "Court 1",
			"Days": [
				{"StartTime": 1080, "EndTime": 1140, "Cost": 12.5, "Capacity": 1},
				{"StartTime": 1140, "EndTime": 1200, "Cost": 12.5, "Capacity": 0}
			]
		}
	]
}`

func TestClubSparkScrapesSessionsForDate(t *testing.T) {
	getter := &fakeGetter{responses: map[string]string{"date=2026-09-01": sessionsPayload}}
	scraper := &clubsparkScraper{venue: clubsparkVenue(), client: getter}

	result, err := scraper.ScrapeAvailability(context.Background(), []string{"2026-09-01"})
	if err != nil {
		t.Fatalf("ScrapeAvailability: %v", err)
	}
	if !result.Success || len(result.Errors) != 0 {
		t.Fatalf("expected clean result, got %+v", result)
	}
	if len(result.Slots) != 2 {
		t.Fatalf("expected 2 slots, got %d", len(result.Slots))
	}

	slot := result.Slots[0]
	if slot.StartTime != "18:00" || slot.EndTime != "19:00" {
		t.Fatalf("minutes not converted: %q-%q", slot.StartTime, slot.EndTime)
	}
	if !slot.Available || result.Slots[1].Available {
		t.Fatalf("capacity not mapped to availability")
	}
	if slot.Price == nil || *slot.Price != 12.5 {
		t.Fatalf("price not carried: %v", slot.Price)
	}
	if slot.Currency != domain.DefaultCurrency {
		t.Fatalf("currency not defaulted: %q", slot.Currency)
	}
	if slot.CourtID != "court-1" || slot.VenueID != "islington" {
		t.Fatalf("identity fields wrong: %+v", slot)
	}

	// Trailing slash on the venue URL must not double up.
	if len(getter.urls) != 1 || strings.Contains(getter.urls[0], "//Sessions") {
		t.Fatalf("malformed sessions URL %v", getter.urls)
	}
}

func TestClubSparkContinuesPastFailedDates(t *testing.T) {
	getter := &fakeGetter{responses: map[string]string{
		"date=2026-09-01": "not json at all",
		"date=2026-09-02": sessionsPayload,
	}}
	scraper := &clubsparkScraper{venue: clubsparkVenue(), client: getter}

	result, err := scraper.ScrapeAvailability(context.Background(), []string{"2026-09-01", "2026-09-02"})
	if err != nil {
		t.Fatalf("ScrapeAvailability: %v", err)
	}

	if result.Success {
		t.Fatalf("result with errors must not be marked successful")
	}
	if len(result.Errors) != 1 || !strings.Contains(result.Errors[0], "2026-09-01") {
		t.Fatalf("expected one dated error, got %v", result.Errors)
	}
	if len(result.Slots) != 2 {
		t.Fatalf("remaining dates must still be scraped, got %d slots", len(result.Slots))
	}
}

func TestClubSparkReportsHTTPFailures(t *testing.T) {
	cases := []struct {
		name   string
		getter *fakeGetter
	}{
		{"transport error", &fakeGetter{err: errors.New("dial tcp: timeout")}},
		{"bad status", &fakeGetter{status: http.StatusBadGateway}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			scraper := &clubsparkScraper{venue: clubsparkVenue(), client: tc.getter}
			result, err := scraper.ScrapeAvailability(context.Background(), []string{"2026-09-01"})
			if err != nil {
				t.Fatalf("ScrapeAvailability: %v", err)
			}
			if result.Success || len(result.Errors) != 1 {
				t.Fatalf("expected single failed date, got %+v", result)
			}
		})
	}
}

func TestClubSparkStopsOnCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	getter := &fakeGetter{}
	scraper := &clubsparkScraper{venue: clubsparkVenue(), client: getter}

	result, err := scraper.ScrapeAvailability(ctx, []string{"2026-09-01", "2026-09-02"})
	if err != nil {
		t.Fatalf("ScrapeAvailability: %v", err)
	}
	if len(getter.urls) != 0 {
		t.Fatalf("no fetches expected after cancellation, got %v", getter.urls)
	}
	if result.Success {
		t.Fatalf("aborted scrape must not be successful")
	}
}

func TestNewClubSparkScraperRequiresURL(t *testing.T) {
	venue := clubsparkVenue()
	venue.URL = "   "
	if _, err := NewClubSparkScraper(venue); err == nil {
		t.Fatalf("expected error for venue without URL")
	}
}

func TestMinutesToClock(t *testing.T) {
	cases := []struct {
		minutes int
		want    string
	}{
		{0, "00:00"},
		{65, "01:05"},
		{1080, "18:00"},
		{1439, "23:59"},
		{-5, "00:00"},
	}
	for _, tc := range cases {
		if got := minutesToClock(tc.minutes); got != tc.want {
			t.Errorf("minutesToClock(%d) = %q, want %q", tc.minutes, got, tc.want)
		}
	}
}
