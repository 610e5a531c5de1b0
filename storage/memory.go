package storage

import (
	"sort"
	"strings"
	"sync"
	"time"

	"pricewatch/models"
)

// MemoryStoreRepo is an in-memory StoreRepo seeded with a fixed set of store
// configurations.
type MemoryStoreRepo struct {
	mu     sync.RWMutex
	stores []*models.Store
}

// NewMemoryStoreRepo creates a MemoryStoreRepo over the given stores.
func NewMemoryStoreRepo(stores ...*models.Store) *MemoryStoreRepo {
	return &MemoryStoreRepo{stores: stores}
}

// Add registers a store configuration.
func (r *MemoryStoreRepo) Add(store *models.Store) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stores = append(r.stores, store)
}

func (r *MemoryStoreRepo) ByHost(host string) (*models.Store, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	host = strings.ToLower(host)
	for _, s := range r.stores {
		if s.MatchesHost(host) {
			return s, nil
		}
	}
	return nil, ErrNotFound
}

func (r *MemoryStoreRepo) ByID(id int64) (*models.Store, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, s := range r.stores {
		if s.ID == id {
			return s, nil
		}
	}
	return nil, ErrNotFound
}

// MemorySourceRepo is an in-memory SourceRepo.
type MemorySourceRepo struct {
	mu      sync.RWMutex
	sources []*models.Source
}

// NewMemorySourceRepo creates a MemorySourceRepo over the given sources.
func NewMemorySourceRepo(sources ...*models.Source) *MemorySourceRepo {
	return &MemorySourceRepo{sources: sources}
}

// Add registers a source configuration.
func (r *MemorySourceRepo) Add(source *models.Source) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sources = append(r.sources, source)
}

func (r *MemorySourceRepo) ByID(id int64) (*models.Source, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, s := range r.sources {
		if s.ID == id {
			return s, nil
		}
	}
	return nil, ErrNotFound
}

func (r *MemorySourceRepo) Enabled(max int) ([]*models.Source, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	enabled := make([]*models.Source, 0, len(r.sources))
	for _, s := range r.sources {
		if s.Enabled() {
			enabled = append(enabled, s)
		}
	}
	sort.SliceStable(enabled, func(i, j int) bool {
		return enabled[i].Weight < enabled[j].Weight
	})
	if max > 0 && len(enabled) > max {
		enabled = enabled[:max]
	}
	return enabled, nil
}

// MemoryResearchRepo is an in-memory ResearchRepo.
type MemoryResearchRepo struct {
	mu      sync.RWMutex
	records []models.ResearchRecord
}

// NewMemoryResearchRepo creates an empty MemoryResearchRepo.
func NewMemoryResearchRepo() *MemoryResearchRepo {
	return &MemoryResearchRepo{}
}

func (r *MemoryResearchRepo) Save(records []models.ResearchRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = append(r.records, records...)
	return nil
}

func (r *MemoryResearchRepo) List(filter ResearchFilter) ([]models.ResearchRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]models.ResearchRecord, 0)
	for _, rec := range r.records {
		if matchesFilter(rec, filter) {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (r *MemoryResearchRepo) Prune(cutoff time.Time) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	kept := r.records[:0]
	pruned := 0
	for _, rec := range r.records {
		if rec.CreatedAt.Before(cutoff) {
			pruned++
			continue
		}
		kept = append(kept, rec)
	}
	r.records = kept
	return pruned, nil
}

func matchesFilter(rec models.ResearchRecord, f ResearchFilter) bool {
	if f.Query != "" && rec.Query != f.Query {
		return false
	}
	if f.SourceID > 0 && rec.SourceID != f.SourceID {
		return false
	}
	if f.MinPrice > 0 && rec.Price < f.MinPrice {
		return false
	}
	if f.MaxPrice > 0 && rec.Price > f.MaxPrice {
		return false
	}
	return true
}

// memoryJobEntry pairs a stored state with its expiry.
type memoryJobEntry struct {
	state     models.SearchJobState
	expiresAt time.Time
}

// MemoryJobStateStore is an in-memory JobStateStore with per-entry TTLs.
type MemoryJobStateStore struct {
	mu    sync.RWMutex
	store map[string]memoryJobEntry
}

// NewMemoryJobStateStore creates an empty MemoryJobStateStore.
func NewMemoryJobStateStore() *MemoryJobStateStore {
	return &MemoryJobStateStore{store: make(map[string]memoryJobEntry)}
}

func (s *MemoryJobStateStore) Get(key string) (*models.SearchJobState, error) {
	s.mu.RLock()
	e, ok := s.store[key]
	s.mu.RUnlock()

	if !ok || time.Now().After(e.expiresAt) {
		return nil, ErrNotFound
	}
	cp := e.state.Snapshot()
	return &cp, nil
}

func (s *MemoryJobStateStore) Put(key string, state *models.SearchJobState, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.store[key] = memoryJobEntry{
		state:     state.Snapshot(),
		expiresAt: time.Now().Add(ttl),
	}
	return nil
}
