package scrapers

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/courtwatch-hq/courtwatch-scraper/internal/domain"
)

// registry implements Registry with a platform-type keyed builder map.
type registry struct {
	mu       sync.RWMutex
	builders map[string]Builder
}

// NewRegistry returns a registry with optional pre-registered builders.
func NewRegistry(builders map[string]Builder) Registry {
	r := &registry{
		builders: make(map[string]Builder),
	}
	for platform, b := range builders {
		r.Register(platform, b)
	}
	return r
}

// Register associates a builder with a platform type.
func (r *registry) Register(platform string, builder Builder) {
	if platform = strings.TrimSpace(strings.ToLower(platform)); platform == "" || builder == nil {
		return
	}

	r.mu.Lock()
	r.builders[platform] = builder
	r.mu.Unlock()
}

// ScraperFor builds the scraper for the venue's platform type.
func (r *registry) ScraperFor(venue domain.Venue) (Scraper, error) {
	platform := strings.TrimSpace(strings.ToLower(venue.Platform()))
	if platform == "" {
		return nil, fmt.Errorf("venue %q has no platform type configured", venue.Name)
	}

	r.mu.RLock()
	builder := r.builders[platform]
	r.mu.RUnlock()

	if builder == nil {
		return nil, fmt.Errorf("no scraper registered for platform %q", platform)
	}
	return builder(venue)
}

// DefaultRegistry wires up the scrapers this binary carries. Browser-driven
// platforms (courtside) run in the external scrape worker and are resolved
// there, not here.
func DefaultRegistry() Registry {
	builders := map[string]Builder{
		PlatformClubSpark: NewClubSparkScraper,
	}
	return NewRegistry(builders)
}

// TargetDates returns a contiguous window of ISO dates starting at from.
func TargetDates(from time.Time, daysAhead int) []string {
	if daysAhead <= 0 {
		return nil
	}
	dates := make([]string, 0, daysAhead)
	for i := 0; i < daysAhead; i++ {
		dates = append(dates, from.AddDate(0, 0, i).Format("2006-01-02"))
	}
	return dates
}
