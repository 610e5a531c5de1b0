// Package scraper produces validated product field values for one URL. It
// resolves the store configuration matching the URL, drives the fetch-extract
// attempt loop, and enforces the required-field contract (title and price).
package scraper

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"pricewatch/config"
	"pricewatch/engine"
	"pricewatch/extract"
	"pricewatch/models"
	"pricewatch/notify"
	"pricewatch/storage"
)

// requiredFields must be non-empty in the final outcome; their absence after
// all attempts is a scrape failure.
var requiredFields = []string{models.FieldPrice, models.FieldTitle}

// Scraper orchestrates fetch-then-extract for product pages.
type Scraper struct {
	stores   storage.StoreRepo
	engines  *engine.Registry
	notifier notify.Notifier

	maxAttempts  int
	fetchTimeout time.Duration
	cacheTTL     time.Duration

	content *contentTools
}

// New creates a Scraper.
func New(stores storage.StoreRepo, engines *engine.Registry, notifier notify.Notifier, cfg config.ScrapeConfig, fetchCfg config.FetchConfig) *Scraper {
	maxAttempts := cfg.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 3
	}
	return &Scraper{
		stores:       stores,
		engines:      engines,
		notifier:     notifier,
		maxAttempts:  maxAttempts,
		fetchTimeout: fetchCfg.DefaultTimeout,
		cacheTTL:     fetchCfg.CacheTTL,
		content:      newContentTools(),
	}
}

// Options tunes one scrape call.
type Options struct {
	// StoreID bypasses domain matching. Zero resolves the store by host.
	StoreID int64

	// UseCache allows the first attempt to serve a cached fetch. Attempts
	// after a failure always bypass the cache.
	UseCache bool
}

// attemptState is the explicit per-attempt record threaded through the retry
// loop, keeping the retry policy testable independently of the backend.
type attemptState struct {
	Attempt  int
	UseCache bool
}

// Scrape fetches and extracts one product URL. The outcome is always
// returned; failures (no store, fetch errors, missing required fields) are
// recorded on it rather than raised, and each failure class emits one
// human-facing notification.
func (s *Scraper) Scrape(ctx context.Context, rawURL string, opts Options) *models.ScrapeOutcome {
	logger := slog.With("url", rawURL)
	outcome := &models.ScrapeOutcome{
		URL:    rawURL,
		Fields: make(map[string]*string, len(models.PageFields)),
	}

	store, err := s.resolveStore(rawURL, opts.StoreID)
	if err != nil {
		logger.Error("no store found for URL", "error", err)
		s.notifier.Error("Scrape error", "No store found for URL "+rawURL)
		outcome.Errors = append(outcome.Errors, "no store configuration matches URL")
		outcome.MissingRequired = models.FieldTitle
		return outcome
	}
	outcome.StoreID = store.ID
	outcome.StoreName = store.Name
	logger = logger.With("store", store.Name)

	fields, err := extract.CompileSet(store.ScrapeStrategy)
	if err != nil {
		logger.Error("invalid scrape strategy", "error", err)
		s.notifier.Error("Scrape error", err.Error())
		outcome.Errors = append(outcome.Errors, err.Error())
		outcome.MissingRequired = models.FieldTitle
		return outcome
	}

	eng, err := s.engines.Resolve(store.Backend)
	if err != nil {
		logger.Error("invalid backend for store", "error", err)
		s.notifier.Error("Scrape error", err.Error())
		outcome.Errors = append(outcome.Errors, err.Error())
		outcome.MissingRequired = models.FieldTitle
		return outcome
	}

	options := engine.ParseOptions(store.ScraperOptions)

	state := attemptState{Attempt: 0, UseCache: opts.UseCache}
	for state.Attempt < s.maxAttempts {
		state.Attempt++
		// A failed cached attempt must not be re-served on retry.
		if state.Attempt > 1 {
			state.UseCache = false
		}
		outcome.Attempts = state.Attempt

		result, fetchErr := eng.Fetch(ctx, &engine.FetchRequest{
			URL:      rawURL,
			Timeout:  s.fetchTimeout,
			UseCache: state.UseCache,
			CacheTTL: s.cacheTTL,
			Options:  options,
		})
		if fetchErr != nil {
			logger.Error("error fetching URL",
				"attempt", state.Attempt, "backend", eng.Name(), "error", fetchErr)
			s.notifier.Error("Scrape error", "Error scraping URL, check logs")
			outcome.Errors = append(outcome.Errors, fetchErr.Error())
			state.UseCache = false
			continue
		}

		doc := extract.NewDocument(rawURL, result.Body)
		for _, key := range models.PageFields {
			if f, ok := fields[key]; ok {
				outcome.Fields[key] = f.Extract(doc)
			} else {
				outcome.Fields[key] = nil
			}
		}
		outcome.Body = result.Body

		if outcome.Field(models.FieldTitle) != "" {
			break
		}
	}

	s.finishFields(store, outcome)

	for _, required := range requiredFields {
		if outcome.Field(required) == "" {
			logger.Error(fmt.Sprintf("error scraping URL after %d attempts", outcome.Attempts),
				"attempts", outcome.Attempts,
				"missing", required,
				"scrape_errors", outcome.Errors,
				"scraped_body_bytes", len(outcome.Body),
			)
			s.notifier.Error("Scrape error", "Missing required field: "+required)
			outcome.MissingRequired = required
			return outcome
		}
	}

	return outcome
}

// resolveStore finds the store configuration for a scrape: an explicit ID
// when given, otherwise the first store matching the URL's hostname.
func (s *Scraper) resolveStore(rawURL string, storeID int64) (*models.Store, error) {
	if storeID > 0 {
		return s.stores.ByID(storeID)
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse url: %w", err)
	}
	host := strings.ToLower(u.Hostname())
	if host == "" {
		return nil, errors.New("url has no hostname")
	}
	return s.stores.ByHost(host)
}

// finishFields applies post-extraction shaping: length clamps on title and
// image, the readability description fallback, and optional markdown
// conversion of the description.
func (s *Scraper) finishFields(store *models.Store, outcome *models.ScrapeOutcome) {
	for _, key := range []string{models.FieldTitle, models.FieldImage} {
		if v := outcome.Fields[key]; v != nil {
			clamped := models.Truncate(*v)
			outcome.Fields[key] = &clamped
		}
	}

	desc := outcome.Fields[models.FieldDescription]
	_, hasStrategy := store.ScrapeStrategy.Get(models.FieldDescription)
	if !hasStrategy && store.Setting("description_fallback", "") == "readability" && outcome.Body != "" {
		if fallback := s.content.describe(outcome.Body, outcome.URL); fallback != "" {
			desc = &fallback
			outcome.Fields[models.FieldDescription] = desc
		}
	}

	if desc != nil && *desc != "" && store.Setting("description_markdown", "") == "true" {
		if md, err := s.content.toMarkdown(*desc, outcome.URL); err == nil {
			outcome.Fields[models.FieldDescription] = &md
		} else {
			slog.Warn("description markdown conversion failed",
				"url", outcome.URL, "error", err)
		}
	}
}
