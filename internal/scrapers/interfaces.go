package scrapers

import (
	"context"

	"github.com/courtwatch-hq/courtwatch-scraper/internal/domain"
)

// Known platform type identifiers. Courtside venues are scraped by an
// external browser worker; the identifier exists so venue configs validate.
const (
	PlatformClubSpark = "clubspark"
	PlatformCourtside = "courtside"
)

// Scraper fetches court availability for the venue it was built for.
// Implementations are responsible for their own per-operation timeouts and
// must report per-date failures as error strings on the result rather than
// discarding the whole scrape: Success means zero errors, not zero slots.
type Scraper interface {
	Platform() string
	ScrapeAvailability(ctx context.Context, targetDates []string) (domain.ScrapeResult, error)
}

// Builder constructs a Scraper bound to one venue.
type Builder func(venue domain.Venue) (Scraper, error)

// Registry resolves the scraper implementation for a venue by its platform
// type.
type Registry interface {
	Register(platform string, builder Builder)
	ScraperFor(venue domain.Venue) (Scraper, error)
}
