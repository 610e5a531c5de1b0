package search

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"pricewatch/config"
	"pricewatch/models"
	"pricewatch/notify"
	"pricewatch/queue"
	"pricewatch/storage"
)

// Service orchestrates search jobs: dispatch with deduplication, background
// execution across the enabled sources, progress tracking for pollers, and
// persistence of extracted rows as research records.
//
// Deduplication is best-effort: the job-state lookup and the queue's
// uniqueness key both suppress duplicates, but two dispatches racing through
// the lookup may both enqueue. The job body is idempotent, so a duplicate run
// only costs the extra fetches.
type Service struct {
	sources  storage.SourceRepo
	research storage.ResearchRepo
	states   storage.JobStateStore
	searcher *Searcher
	jobs     *queue.Queue
	notifier notify.Notifier
	cfg      config.SearchConfig
}

// NewService creates a search Service.
func NewService(
	sources storage.SourceRepo,
	research storage.ResearchRepo,
	states storage.JobStateStore,
	searcher *Searcher,
	jobs *queue.Queue,
	notifier notify.Notifier,
	cfg config.SearchConfig,
) *Service {
	return &Service{
		sources:  sources,
		research: research,
		states:   states,
		searcher: searcher,
		jobs:     jobs,
		notifier: notifier,
		cfg:      cfg,
	}
}

// Dispatch starts a background search for the query, optionally narrowed to
// one source. When an identical search is already tracked within the dedup
// window, the existing state is returned instead of starting another job.
// The returned bool reports whether a new job was dispatched.
func (s *Service) Dispatch(query string, sourceID int64) (models.SearchJobState, bool, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return models.SearchJobState{}, false,
			models.NewScrapeError(models.ErrCodeInvalidInput, "query is empty", nil)
	}
	if sourceID > 0 {
		if _, err := s.sources.ByID(sourceID); err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				return models.SearchJobState{}, false,
					models.NewScrapeError(models.ErrCodeNotFound,
						fmt.Sprintf("source %d not found", sourceID), nil)
			}
			return models.SearchJobState{}, false, err
		}
	}

	key := models.SearchJobKey(query, sourceID)
	if existing, err := s.states.Get(key); err == nil {
		slog.Debug("search already tracked, returning existing state",
			"key", key, "in_progress", existing.InProgress())
		return existing.Snapshot(), false, nil
	} else if !errors.Is(err, storage.ErrNotFound) {
		return models.SearchJobState{}, false, err
	}

	now := time.Now()
	state := &models.SearchJobState{
		Query:        query,
		SourceID:     sourceID,
		DispatchedAt: &now,
	}
	state.Append(fmt.Sprintf("Dispatching search job for %q", query))
	if err := s.put(key, state); err != nil {
		return models.SearchJobState{}, false, err
	}

	enqueued := s.jobs.Enqueue(&queue.Job{
		Key:       key,
		UniqueFor: s.cfg.DedupWindow,
		Tries:     s.cfg.JobTries,
		Backoff:   s.cfg.JobBackoff,
		Timeout:   s.cfg.JobTimeout,
		Run: func(ctx context.Context) error {
			return s.execute(ctx, key, query, sourceID)
		},
	})
	if !enqueued {
		// The queue's own uniqueness key caught a concurrent duplicate, or
		// the buffer is full. The stored state still serves pollers.
		slog.Warn("search job not enqueued", "key", key)
		return state.Snapshot(), false, nil
	}
	// Once the job is enqueued the worker owns the stored state; it logs its
	// own start so dispatcher and worker never write the same key.
	return state.Snapshot(), true, nil
}

// State returns the tracked state for a search, or storage.ErrNotFound when
// nothing is tracked (never dispatched, or expired out of the dedup window).
func (s *Service) State(query string, sourceID int64) (models.SearchJobState, error) {
	state, err := s.states.Get(models.SearchJobKey(strings.TrimSpace(query), sourceID))
	if err != nil {
		return models.SearchJobState{}, err
	}
	return state.Snapshot(), nil
}

// Refresh is the poller-driven nudge: a running search gets a progress log
// entry, a finished one is returned untouched (CompletedAt is immutable once
// set), and an untracked search is dispatched.
func (s *Service) Refresh(query string, sourceID int64) (models.SearchJobState, bool, error) {
	query = strings.TrimSpace(query)
	key := models.SearchJobKey(query, sourceID)

	state, err := s.states.Get(key)
	switch {
	case err == nil && state.InProgress():
		state.Append("Refreshing progress")
		if err := s.put(key, state); err != nil {
			return models.SearchJobState{}, false, err
		}
		return state.Snapshot(), false, nil
	case err == nil:
		// Finished: the state stands until the dedup window expires it.
		return state.Snapshot(), false, nil
	case errors.Is(err, storage.ErrNotFound):
		return s.Dispatch(query, sourceID)
	default:
		return models.SearchJobState{}, false, err
	}
}

// Results lists persisted research records matching the filter.
func (s *Service) Results(filter storage.ResearchFilter) ([]models.ResearchRecord, error) {
	return s.research.List(filter)
}

// execute is the job body: search every selected source in weight order,
// persist the extracted rows, and keep the progress log current for pollers.
// Per-source failures are logged and skipped so one broken source does not
// sink the batch; the job itself only fails when its state cannot be loaded.
func (s *Service) execute(ctx context.Context, key, query string, sourceID int64) error {
	state, err := s.states.Get(key)
	if err != nil {
		return fmt.Errorf("load job state %q: %w", key, err)
	}
	state.Append("Search job dispatched")
	s.putBestEffort(key, state)

	selected, err := s.selectSources(sourceID)
	if err != nil {
		state.Append("Search failed: could not load sources")
		s.finish(key, state)
		return err
	}

	total := 0
	for _, source := range selected {
		if ctx.Err() != nil {
			state.Append("Search aborted")
			s.finish(key, state)
			return ctx.Err()
		}

		state.Append("Searching " + source.Name)
		s.putBestEffort(key, state)

		results, err := s.searcher.Search(ctx, source, query)
		if err != nil {
			slog.Error("source search failed",
				"source", source.Name, "query", query, "error", err)
			s.notifier.Error("Search error",
				fmt.Sprintf("Search failed for source %s, check logs", source.Name))
			state.Append("Search failed for " + source.Name)
			continue
		}

		if err := s.persist(query, results); err != nil {
			slog.Error("failed to persist search results",
				"source", source.Name, "query", query, "error", err)
			state.Append("Failed to store results from " + source.Name)
			continue
		}

		total += len(results)
		state.Append(fmt.Sprintf("Found %d results from %s", len(results), source.Name))
		s.putBestEffort(key, state)
	}

	state.Append(fmt.Sprintf("Search complete: %d results", total))
	s.finish(key, state)
	slog.Info("search job finished",
		"query", query, "sources", len(selected), "results", total)
	return nil
}

// selectSources resolves the search targets: one explicit source, or the
// enabled sources in ascending weight order capped at the configured maximum.
func (s *Service) selectSources(sourceID int64) ([]*models.Source, error) {
	if sourceID > 0 {
		source, err := s.sources.ByID(sourceID)
		if err != nil {
			return nil, err
		}
		return []*models.Source{source}, nil
	}
	return s.sources.Enabled(s.cfg.MaxSources)
}

// persist stores the extracted rows as research records.
func (s *Service) persist(query string, results []models.SearchResult) error {
	if len(results) == 0 {
		return nil
	}
	records := make([]models.ResearchRecord, 0, len(results))
	now := time.Now()
	for _, r := range results {
		records = append(records, models.ResearchRecord{
			ID:         uuid.NewString(),
			Query:      query,
			Title:      r.Title,
			URL:        r.URL,
			Price:      ParsePrice(r.Price),
			SourceID:   r.SourceID,
			SourceName: r.SourceName,
			CreatedAt:  now,
		})
	}
	return s.research.Save(records)
}

func (s *Service) finish(key string, state *models.SearchJobState) {
	now := time.Now()
	state.CompletedAt = &now
	s.putBestEffort(key, state)
}

func (s *Service) put(key string, state *models.SearchJobState) error {
	return s.states.Put(key, state, s.cfg.DedupWindow)
}

func (s *Service) putBestEffort(key string, state *models.SearchJobState) {
	if err := s.put(key, state); err != nil {
		slog.Warn("failed to persist search job state", "key", key, "error", err)
	}
}

// priceRe matches the first decimal number in a scraped price string,
// tolerating thousands separators ("1.299,00", "1,299.00").
var priceRe = regexp.MustCompile(`\d+(?:[.,]\d+)*`)

// ParsePrice pulls a float out of a scraped price string ("€ 1.299,95",
// "$1,299.95", "49.90"). Returns 0 when no number is present.
func ParsePrice(raw string) float64 {
	m := priceRe.FindString(raw)
	if m == "" {
		return 0
	}

	lastDot := strings.LastIndex(m, ".")
	lastComma := strings.LastIndex(m, ",")
	switch {
	case lastComma > lastDot:
		// Comma is the decimal separator; dots group thousands.
		m = strings.ReplaceAll(m, ".", "")
		m = strings.Replace(m, ",", ".", 1)
	default:
		m = strings.ReplaceAll(m, ",", "")
	}

	f, err := strconv.ParseFloat(m, 64)
	if err != nil {
		return 0
	}
	return f
}
