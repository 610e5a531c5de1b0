package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dgraph-io/badger/v4"

	"pricewatch/models"
)

// Key prefixes inside the shared badger database.
const (
	jobStatePrefix = "jobstate:"
	researchPrefix = "research:"
)

// OpenBadger opens the badger database at path. An empty path opens an
// in-memory database (used by tests).
func OpenBadger(path string) (*badger.DB, error) {
	opts := badger.DefaultOptions(path)
	opts.Logger = nil
	if path == "" {
		opts = opts.WithInMemory(true)
	}
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("storage: open badger: %w", err)
	}
	return db, nil
}

// BadgerJobStateStore is the badger-backed JobStateStore. Entry expiry rides
// on badger's native TTL, so the dedup window is enforced by the store itself.
type BadgerJobStateStore struct {
	db *badger.DB
}

// NewBadgerJobStateStore creates a BadgerJobStateStore over an open database.
func NewBadgerJobStateStore(db *badger.DB) *BadgerJobStateStore {
	return &BadgerJobStateStore{db: db}
}

func (s *BadgerJobStateStore) Get(key string) (*models.SearchJobState, error) {
	var state models.SearchJobState
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(jobStatePrefix + key))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &state)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("storage: get job state: %w", err)
	}
	return &state, nil
}

func (s *BadgerJobStateStore) Put(key string, state *models.SearchJobState, ttl time.Duration) error {
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("storage: marshal job state: %w", err)
	}
	err = s.db.Update(func(txn *badger.Txn) error {
		entry := badger.NewEntry([]byte(jobStatePrefix+key), data).WithTTL(ttl)
		return txn.SetEntry(entry)
	})
	if err != nil {
		return fmt.Errorf("storage: put job state: %w", err)
	}
	return nil
}

// BadgerResearchRepo is the badger-backed ResearchRepo. Records are keyed by
// creation time + ID so pruning and listing iterate in insertion order.
type BadgerResearchRepo struct {
	db *badger.DB
}

// NewBadgerResearchRepo creates a BadgerResearchRepo over an open database.
func NewBadgerResearchRepo(db *badger.DB) *BadgerResearchRepo {
	return &BadgerResearchRepo{db: db}
}

func researchKey(rec models.ResearchRecord) []byte {
	return []byte(fmt.Sprintf("%s%d:%s", researchPrefix, rec.CreatedAt.UnixNano(), rec.ID))
}

func (r *BadgerResearchRepo) Save(records []models.ResearchRecord) error {
	return r.db.Update(func(txn *badger.Txn) error {
		for _, rec := range records {
			data, err := json.Marshal(rec)
			if err != nil {
				return fmt.Errorf("storage: marshal research record: %w", err)
			}
			if err := txn.Set(researchKey(rec), data); err != nil {
				return fmt.Errorf("storage: save research record: %w", err)
			}
		}
		return nil
	})
}

func (r *BadgerResearchRepo) List(filter ResearchFilter) ([]models.ResearchRecord, error) {
	out := make([]models.ResearchRecord, 0)
	err := r.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		prefix := []byte(researchPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var rec models.ResearchRecord
			err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &rec)
			})
			if err != nil {
				slog.Warn("skipping undecodable research record", "error", err)
				continue
			}
			if matchesFilter(rec, filter) {
				out = append(out, rec)
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("storage: list research records: %w", err)
	}
	return out, nil
}

func (r *BadgerResearchRepo) Prune(cutoff time.Time) (int, error) {
	var keys [][]byte
	err := r.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := []byte(researchPrefix)
		cutoffNanos := cutoff.UnixNano()
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			key := it.Item().KeyCopy(nil)
			var nanos int64
			var id string
			if _, err := fmt.Sscanf(string(key[len(prefix):]), "%d:%s", &nanos, &id); err != nil {
				continue
			}
			if nanos < cutoffNanos {
				keys = append(keys, key)
			}
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("storage: scan research records: %w", err)
	}

	for _, key := range keys {
		err := r.db.Update(func(txn *badger.Txn) error {
			return txn.Delete(key)
		})
		if err != nil {
			return 0, fmt.Errorf("storage: prune research record: %w", err)
		}
	}
	return len(keys), nil
}
