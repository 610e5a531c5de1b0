package storage

import (
	"encoding/json"
	"fmt"
	"os"

	"pricewatch/models"
)

// Seed is the on-disk store/source configuration loaded at startup. CRUD for
// this data lives outside the service; the engine only reads it.
type Seed struct {
	Stores  []*models.Store  `json:"stores"`
	Sources []*models.Source `json:"sources"`
}

// LoadSeed reads a seed file and populates in-memory repositories. A store or
// source that fails validation aborts the load: a misconfigured entry at
// startup is an operator error, not something to silently run without.
func LoadSeed(path string) (*MemoryStoreRepo, *MemorySourceRepo, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("storage: read seed file: %w", err)
	}

	var seed Seed
	if err := json.Unmarshal(data, &seed); err != nil {
		return nil, nil, fmt.Errorf("storage: parse seed file: %w", err)
	}

	stores := NewMemoryStoreRepo()
	for _, st := range seed.Stores {
		if err := st.ScrapeStrategy.Validate(); err != nil {
			return nil, nil, fmt.Errorf("storage: store %q: %w", st.Name, err)
		}
		stores.Add(st)
	}

	sources := NewMemorySourceRepo()
	for _, src := range seed.Sources {
		if err := src.Validate(); err != nil {
			return nil, nil, fmt.Errorf("storage: source %q: %w", src.Name, err)
		}
		sources.Add(src)
	}
	return stores, sources, nil
}
