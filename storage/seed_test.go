package storage

import (
	"os"
	"path/filepath"
	"testing"
)

func writeSeed(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "seed.json")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write seed file: %v", err)
	}
	return path
}

func TestLoadSeed(t *testing.T) {
	path := writeSeed(t, `{
		"stores": [
			{
				"id": 3,
				"name": "TechShop",
				"domains": ["techshop.example"],
				"backend": "http",
				"scrape_strategy": {
					"title": {"type": "selector", "value": "h1"},
					"price": {"type": "selector", "value": ".price"}
				}
			}
		],
		"sources": [
			{
				"id": 7,
				"name": "TechDeals",
				"search_url": "https://techdeals.example/s?q=:search_term",
				"backend": "http",
				"status": "active",
				"extraction_strategy": {
					"list_container": {"type": "selector", "value": ".item"},
					"product_title": {"type": "selector", "value": "h2"},
					"product_url": {"type": "selector", "value": "a|href"}
				}
			}
		]
	}`)

	stores, sources, err := LoadSeed(path)
	if err != nil {
		t.Fatalf("LoadSeed() error = %v", err)
	}

	store, err := stores.ByHost("techshop.example")
	if err != nil {
		t.Fatalf("ByHost() error = %v", err)
	}
	if store.ID != 3 || store.Name != "TechShop" {
		t.Errorf("store = %+v", store)
	}

	source, err := sources.ByID(7)
	if err != nil {
		t.Fatalf("ByID() error = %v", err)
	}
	if source.Name != "TechDeals" || !source.Enabled() {
		t.Errorf("source = %+v", source)
	}
}

func TestLoadSeedRejectsInvalidEntries(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{
			name: "store with unknown strategy kind",
			body: `{"stores": [{"id": 1, "name": "Broken", "backend": "http",
				"scrape_strategy": {"title": {"type": "css", "value": "h1"}}}]}`,
		},
		{
			name: "source missing search term token",
			body: `{"sources": [{"id": 1, "name": "Broken",
				"search_url": "https://x.example/s", "backend": "http",
				"extraction_strategy": {"list_container": {"type": "selector", "value": ".item"}}}]}`,
		},
		{
			name: "malformed json",
			body: `{"stores": [`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, _, err := LoadSeed(writeSeed(t, tt.body)); err == nil {
				t.Error("LoadSeed() succeeded, want error")
			}
		})
	}
}

func TestLoadSeedMissingFile(t *testing.T) {
	if _, _, err := LoadSeed(filepath.Join(t.TempDir(), "nope.json")); err == nil {
		t.Error("LoadSeed() on missing file succeeded, want error")
	}
}
