// Package storage holds the persistence collaborators of the extraction
// engine: store/source configuration reads, transient research records, and
// the key-value snapshots of search job state. Implementations are dependency
// injected so tests substitute in-memory stores and assert on snapshots
// directly.
package storage

import (
	"errors"
	"time"

	"pricewatch/models"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("storage: not found")

// StoreRepo reads scrape configuration for online stores.
type StoreRepo interface {
	// ByHost returns the store configured for a hostname, or ErrNotFound.
	ByHost(host string) (*models.Store, error)

	// ByID returns a store by ID, or ErrNotFound.
	ByID(id int64) (*models.Store, error)
}

// SourceRepo reads search source configuration.
type SourceRepo interface {
	// ByID returns a source by ID, or ErrNotFound.
	ByID(id int64) (*models.Source, error)

	// Enabled returns enabled sources ordered by ascending weight, capped
	// at max entries.
	Enabled(max int) ([]*models.Source, error)
}

// ResearchFilter narrows research record listings.
type ResearchFilter struct {
	Query    string
	SourceID int64
	MinPrice float64
	MaxPrice float64
}

// ResearchRepo persists search results as transient, prunable records with a
// bounded lifetime so later searches can reuse or filter them.
type ResearchRepo interface {
	Save(records []models.ResearchRecord) error
	List(filter ResearchFilter) ([]models.ResearchRecord, error)

	// Prune removes records created before the cutoff and returns how many
	// were removed.
	Prune(cutoff time.Time) (int, error)
}

// JobStateStore is the key-value store for SearchJobState snapshots. Entries
// expire after the configured TTL (the dedup window), after which a new
// dispatch for the same key may run again.
type JobStateStore interface {
	// Get returns the state for a key, or ErrNotFound when absent/expired.
	Get(key string) (*models.SearchJobState, error)

	// Put stores a state snapshot under the key with the given TTL.
	Put(key string, state *models.SearchJobState, ttl time.Duration) error
}
