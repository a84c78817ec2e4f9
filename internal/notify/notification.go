package notify

import (
	"fmt"
	"time"

	"github.com/courtwatch-hq/courtwatch-scraper/internal/domain"
)

// Notification is the outbound event for one newly available slot. Field
// names follow the wire contract the notification service consumes.
type Notification struct {
	VenueID    string   `json:"venueId"`
	VenueName  string   `json:"venueName"`
	Platform   string   `json:"platform"`
	CourtID    string   `json:"courtId"`
	CourtName  string   `json:"courtName"`
	Date       string   `json:"date"`
	StartTime  string   `json:"startTime"`
	EndTime    string   `json:"endTime"`
	Price      *float64 `json:"price"`
	Available  bool     `json:"isAvailable"`
	BookingURL string   `json:"bookingUrl"`
	ScrapedAt  string   `json:"scrapedAt"`
}

// NewNotification builds the outbound event for a slot.
func NewNotification(slot domain.ScrapedSlot, platform string) Notification {
	scrapedAt := slot.ScrapedAt
	if scrapedAt.IsZero() {
		scrapedAt = time.Now()
	}
	return Notification{
		VenueID:    slot.VenueID,
		VenueName:  slot.VenueName,
		Platform:   platform,
		CourtID:    slot.CourtID,
		CourtName:  slot.CourtName,
		Date:       slot.Date,
		StartTime:  slot.StartTime,
		EndTime:    slot.EndTime,
		Price:      slot.Price,
		Available:  slot.Available,
		BookingURL: slot.BookingURL,
		ScrapedAt:  scrapedAt.UTC().Format("2006-01-02T15:04:05Z"),
	}
}

// Validate checks the required field set. Price and booking URL are the only
// optional fields.
func (n Notification) Validate() error {
	required := []struct {
		name  string
		value string
	}{
		{"venueId", n.VenueID},
		{"venueName", n.VenueName},
		{"platform", n.Platform},
		{"courtId", n.CourtID},
		{"courtName", n.CourtName},
		{"date", n.Date},
		{"startTime", n.StartTime},
		{"endTime", n.EndTime},
		{"scrapedAt", n.ScrapedAt},
	}
	for _, f := range required {
		if f.value == "" {
			return fmt.Errorf("notification missing required field %q", f.name)
		}
	}
	return nil
}
