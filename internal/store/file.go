package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/courtwatch-hq/courtwatch-scraper/internal/domain"
)

// FileVenueSource reads venue configurations from a YAML or JSON file.
// Intended for development and offline runs; production venues live in the
// document store.
type FileVenueSource struct {
	venues []domain.Venue
}

type venueFile struct {
	Venues []domain.Venue `json:"venues" yaml:"venues"`
}

// LoadVenueFile parses and validates a venues file.
func LoadVenueFile(path string) (*FileVenueSource, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("venues file path is empty")
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open venues file: %w", err)
	}
	defer file.Close()

	raw, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("read venues file: %w", err)
	}

	parsed, err := parseVenueFile(raw, filepath.Ext(path))
	if err != nil {
		return nil, err
	}
	if len(parsed.Venues) == 0 {
		return nil, errors.New("venues file contains no venue entries")
	}

	seen := make(map[string]struct{}, len(parsed.Venues))
	for i := range parsed.Venues {
		v := sanitizeVenue(parsed.Venues[i])
		if err := validateVenue(v); err != nil {
			return nil, fmt.Errorf("venues[%d]: %w", i, err)
		}
		if _, exists := seen[v.ID]; exists {
			return nil, fmt.Errorf("duplicate venue id %q", v.ID)
		}
		seen[v.ID] = struct{}{}
		parsed.Venues[i] = v
	}

	return &FileVenueSource{venues: parsed.Venues}, nil
}

func parseVenueFile(data []byte, ext string) (venueFile, error) {
	ext = strings.ToLower(strings.TrimSpace(ext))
	decoders := []struct {
		name string
		ext  string
		fn   func([]byte, any) error
	}{
		{name: "yaml", ext: ".yaml", fn: yaml.Unmarshal},
		{name: "yaml", ext: ".yml", fn: yaml.Unmarshal},
		{name: "json", ext: ".json", fn: json.Unmarshal},
	}

	for _, d := range decoders {
		if ext != "" && ext != d.ext {
			continue
		}
		var parsed venueFile
		if err := d.fn(data, &parsed); err == nil {
			return parsed, nil
		}
	}

	return venueFile{}, errors.New("venues file format not recognized (expected YAML or JSON)")
}

func sanitizeVenue(v domain.Venue) domain.Venue {
	v.ID = strings.TrimSpace(v.ID)
	v.Name = strings.TrimSpace(v.Name)
	v.URL = strings.TrimSpace(v.URL)
	v.ScraperConfig.Type = strings.ToLower(strings.TrimSpace(v.ScraperConfig.Type))
	return v
}

func validateVenue(v domain.Venue) error {
	if v.ID == "" {
		return errors.New("id is required")
	}
	if v.Name == "" {
		return fmt.Errorf("name is required for venue %q", v.ID)
	}
	if v.URL == "" {
		return fmt.Errorf("url is required for venue %q", v.ID)
	}
	if v.ScraperConfig.Type == "" {
		return fmt.Errorf("scraper_config.type is required for venue %q", v.ID)
	}
	return nil
}

// LoadVenues returns active venues, optionally restricted by display name.
func (f *FileVenueSource) LoadVenues(_ context.Context, names []string) ([]domain.Venue, error) {
	wanted := make(map[string]struct{}, len(names))
	for _, n := range names {
		wanted[n] = struct{}{}
	}

	var out []domain.Venue
	for _, v := range f.venues {
		if !v.Active {
			continue
		}
		if len(wanted) > 0 {
			if _, ok := wanted[v.Name]; !ok {
				continue
			}
		}
		out = append(out, v)
	}
	return out, nil
}

// Close is a no-op for the file source.
func (f *FileVenueSource) Close(context.Context) error { return nil }
