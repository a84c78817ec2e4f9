package scrapers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/courtwatch-hq/courtwatch-scraper/internal/domain"
)

const (
	clubsparkDefaultTimeout = 30 * time.Second
	clubsparkUserAgent      = "courtwatch-scraper/1.0"
)

// httpGetter is the slice of resty the scraper needs; tests inject a fake.
type httpGetter interface {
	Get(ctx context.Context, url string) ([]byte, int, error)
}

type restyGetter struct {
	client *resty.Client
}

func (r *restyGetter) Get(ctx context.Context, url string) ([]byte, int, error) {
	resp, err := r.client.R().
		SetContext(ctx).
		SetHeader("User-Agent", clubsparkUserAgent).
		SetHeader("Accept", "application/json").
		Get(url)
	if err != nil {
		return nil, 0, err
	}
	return resp.Body(), resp.StatusCode(), nil
}

// clubsparkScraper reads availability from the ClubSpark sessions endpoint,
// which serves plain JSON per date. No login or browser rendering involved.
type clubsparkScraper struct {
	venue  domain.Venue
	client httpGetter
}

// NewClubSparkScraper builds a scraper bound to one ClubSpark venue.
func NewClubSparkScraper(venue domain.Venue) (Scraper, error) {
	if strings.TrimSpace(venue.URL) == "" {
		return nil, fmt.Errorf("venue %q has no booking URL", venue.Name)
	}

	timeout := clubsparkDefaultTimeout
	if venue.ScraperConfig.TimeoutSeconds > 0 {
		timeout = time.Duration(venue.ScraperConfig.TimeoutSeconds) * time.Second
	}

	client := resty.New()
	client.SetTimeout(timeout)

	return &clubsparkScraper{
		venue:  venue,
		client: &restyGetter{client: client},
	}, nil
}

func (c *clubsparkScraper) Platform() string { return PlatformClubSpark }

// clubsparkDay mirrors the sessions payload served per booking date. Times
// are minutes from midnight.
type clubsparkDay struct {
	Resources []struct {
		ID       string `json:"ID"`
		Name     string `json:"Name"`
		Sessions []struct {
			StartTime int      `json:"StartTime"`
			EndTime   int      `json:"EndTime"`
			Cost      *float64 `json:"Cost"`
			Capacity  int      `json:"Capacity"`
		} `json:"Days"`
	} `json:"Resources"`
}

// ScrapeAvailability fetches each target date in turn. A failed date appends
// an error string and the remaining dates are still fetched.
func (c *clubsparkScraper) ScrapeAvailability(ctx context.Context, targetDates []string) (domain.ScrapeResult, error) {
	start := time.Now()
	result := domain.ScrapeResult{
		VenueID:   c.venue.ID,
		VenueName: c.venue.Name,
		Platform:  PlatformClubSpark,
		ScrapedAt: start,
	}

	for _, date := range targetDates {
		if err := ctx.Err(); err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("scrape aborted: %v", err))
			break
		}

		slots, err := c.scrapeDate(ctx, date)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("date %s: %v", date, err))
			continue
		}
		result.Slots = append(result.Slots, slots...)
	}

	result.Success = len(result.Errors) == 0
	result.DurationMs = time.Since(start).Milliseconds()
	return result, nil
}

func (c *clubsparkScraper) scrapeDate(ctx context.Context, date string) ([]domain.ScrapedSlot, error) {
	url := fmt.Sprintf("%s/Sessions?date=%s", strings.TrimRight(c.venue.URL, "/"), date)

	body, status, err := c.client.Get(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("fetch sessions: %w", err)
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("sessions endpoint returned status %d", status)
	}

	var day clubsparkDay
	if err := json.Unmarshal(body, &day); err != nil {
		return nil, fmt.Errorf("decode sessions: %w", err)
	}

	now := time.Now()
	var slots []domain.ScrapedSlot
	for _, resource := range day.Resources {
		for _, session := range resource.Sessions {
			slot := domain.ScrapedSlot{
				VenueID:    c.venue.ID,
				VenueName:  c.venue.Name,
				CourtID:    resource.ID,
				CourtName:  resource.Name,
				Date:       date,
				StartTime:  minutesToClock(session.StartTime),
				EndTime:    minutesToClock(session.EndTime),
				Price:      session.Cost,
				Available:  session.Capacity > 0,
				BookingURL: c.venue.URL,
			}
			slots = append(slots, slot.Normalize(now))
		}
	}
	return slots, nil
}

// minutesToClock converts minutes-from-midnight to HH:MM.
func minutesToClock(minutes int) string {
	if minutes < 0 {
		minutes = 0
	}
	return fmt.Sprintf("%02d:%02d", minutes/60%24, minutes%60)
}
