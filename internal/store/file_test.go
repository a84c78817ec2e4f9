package store

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeVenuesFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write venues file: %v", err)
	}
	return path
}

const venuesYAML = `venues:
  - id: islington
    name: Islington Tennis Centre
    url: https://example.com/islington
    is_active: true
    courts:
      - id: court-1
        name: Court 1
    scraper_config:
      type: ClubSpark
  - id: finsbury
    name: Finsbury Park
    url: https://example.com/finsbury
    is_active: false
    scraper_config:
      type: clubspark
`

func TestLoadVenueFileParsesAndSanitizes(t *testing.T) {
	path := writeVenuesFile(t, "venues.yaml", venuesYAML)

	src, err := LoadVenueFile(path)
	if err != nil {
		t.Fatalf("LoadVenueFile: %v", err)
	}

	venues, err := src.LoadVenues(context.Background(), nil)
	if err != nil {
		t.Fatalf("LoadVenues: %v", err)
	}
	// Only the active venue comes back.
	if len(venues) != 1 || venues[0].ID != "islington" {
		t.Fatalf("unexpected venues %+v", venues)
	}
	if venues[0].Platform() != "clubspark" {
		t.Fatalf("platform type not lowercased: %q", venues[0].Platform())
	}
	if len(venues[0].Courts) != 1 || venues[0].Courts[0].ID != "court-1" {
		t.Fatalf("courts not parsed: %+v", venues[0].Courts)
	}
}

func TestLoadVenueFileParsesJSON(t *testing.T) {
	path := writeVenuesFile(t, "venues.json", `{
		"venues": [
			{
				"id": "v1",
				"name": "Venue One",
				"url": "https://example.com/v1",
				"is_active": true,
				"scraper_config": {"type": "clubspark"}
			}
		]
	}`)

	src, err := LoadVenueFile(path)
	if err != nil {
		t.Fatalf("LoadVenueFile: %v", err)
	}
	venues, err := src.LoadVenues(context.Background(), nil)
	if err != nil || len(venues) != 1 {
		t.Fatalf("LoadVenues = (%v, %v)", venues, err)
	}
}

func TestLoadVenuesFiltersByName(t *testing.T) {
	path := writeVenuesFile(t, "venues.yaml", venuesYAML)
	src, err := LoadVenueFile(path)
	if err != nil {
		t.Fatalf("LoadVenueFile: %v", err)
	}

	venues, err := src.LoadVenues(context.Background(), []string{"Islington Tennis Centre"})
	if err != nil || len(venues) != 1 {
		t.Fatalf("expected one venue by name, got (%v, %v)", venues, err)
	}

	venues, err = src.LoadVenues(context.Background(), []string{"Finsbury Park"})
	if err != nil || len(venues) != 0 {
		t.Fatalf("inactive venue must not be returned, got (%v, %v)", venues, err)
	}
}

func TestLoadVenueFileRejectsInvalidEntries(t *testing.T) {
	cases := []struct {
		name    string
		content string
		wantErr string
	}{
		{
			name:    "missing url",
			content: "venues:\n  - id: v1\n    name: Venue\n    scraper_config:\n      type: clubspark\n",
			wantErr: "url is required",
		},
		{
			name:    "missing scraper type",
			content: "venues:\n  - id: v1\n    name: Venue\n    url: https://example.com\n",
			wantErr: "scraper_config.type is required",
		},
		{
			name:    "duplicate ids",
			content: "venues:\n  - id: v1\n    name: A\n    url: https://example.com/a\n    scraper_config: {type: clubspark}\n  - id: v1\n    name: B\n    url: https://example.com/b\n    scraper_config: {type: clubspark}\n",
			wantErr: "duplicate venue id",
		},
		{
			name:    "empty file",
			content: "venues: []\n",
			wantErr: "no venue entries",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			path := writeVenuesFile(t, "venues.yaml", tc.content)
			_, err := LoadVenueFile(path)
			if err == nil || !strings.Contains(err.Error(), tc.wantErr) {
				t.Fatalf("expected error containing %q, got %v", tc.wantErr, err)
			}
		})
	}
}

func TestLoadVenueFileMissingPath(t *testing.T) {
	if _, err := LoadVenueFile(""); err == nil {
		t.Fatalf("expected error for empty path")
	}
	if _, err := LoadVenueFile(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatalf("expected error for missing file")
	}
}
