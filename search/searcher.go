// Package search extracts product listings from the result pages of
// configured sources and orchestrates multi-source search jobs: dispatch with
// deduplication, progress tracking for pollers, and persistence of the
// extracted rows as transient research records.
package search

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"pricewatch/engine"
	"pricewatch/extract"
	"pricewatch/models"
)

// Searcher runs one source's search: builds the URL from the query, fetches
// the results page, and extracts the product rows.
type Searcher struct {
	engines      *engine.Registry
	fetchTimeout time.Duration
}

// NewSearcher creates a Searcher over the fetch backends.
func NewSearcher(engines *engine.Registry, fetchTimeout time.Duration) *Searcher {
	return &Searcher{engines: engines, fetchTimeout: fetchTimeout}
}

// BuildSearchURL substitutes every search-term placeholder in the source's
// templated URL with the URL-encoded query.
func BuildSearchURL(source *models.Source, query string) string {
	return strings.ReplaceAll(source.SearchURL, models.SearchTermToken, url.QueryEscape(query))
}

// Search fetches the source's results page for the query and extracts product
// rows. Rows missing a title or URL are dropped; extracted rows keep document
// order and are tagged with the source identity. Configuration errors and
// fetch failures are returned; a page yielding zero rows is not an error.
func (s *Searcher) Search(ctx context.Context, source *models.Source, query string) ([]models.SearchResult, error) {
	items, _, err := s.fetchItems(ctx, source, query)
	if err != nil {
		return nil, err
	}
	return s.extractResults(source, items), nil
}

// Debug fetches and extracts like Search but keeps the raw page and up to
// maxItems raw row fragments alongside the values pulled from each, for
// troubleshooting a source's extraction strategy.
func (s *Searcher) Debug(ctx context.Context, source *models.Source, query string, maxItems int) (*models.SearchDebugResponse, error) {
	items, body, err := s.fetchItems(ctx, source, query)
	if err != nil {
		return nil, err
	}

	resp := &models.SearchDebugResponse{
		SourceID:   source.ID,
		SourceName: source.Name,
		HTML:       body,
	}

	titleField, urlField, _, err := s.compileItemFields(source)
	if err != nil {
		return nil, err
	}
	for i, item := range items {
		if maxItems > 0 && i >= maxItems {
			break
		}
		di := models.DebugItem{Content: item.Body()}
		if titleField != nil {
			di.Title, _ = titleField.First(item)
		}
		if urlField != nil {
			di.URL, _ = urlField.First(item)
		}
		resp.Items = append(resp.Items, di)
	}
	return resp, nil
}

// fetchItems validates the source, fetches its results page, and splits the
// page into per-row sub-documents via the list strategy.
func (s *Searcher) fetchItems(ctx context.Context, source *models.Source, query string) ([]*extract.Document, string, error) {
	if err := source.Validate(); err != nil {
		return nil, "", err
	}

	listStrategy, ok := source.ExtractionStrategy.Get(models.FieldListContainer)
	if !ok {
		return nil, "", models.NewScrapeError(models.ErrCodeInvalidStrategy,
			fmt.Sprintf("source %q has no %s strategy", source.Name, models.FieldListContainer), nil)
	}
	list, err := extract.CompileList(listStrategy)
	if err != nil {
		return nil, "", err
	}

	eng, err := s.engines.Resolve(source.Backend)
	if err != nil {
		return nil, "", err
	}

	searchURL := BuildSearchURL(source, query)
	result, err := eng.Fetch(ctx, &engine.FetchRequest{
		URL:     searchURL,
		Timeout: s.fetchTimeout,
		Options: engine.ParseOptions(source.ScraperOptions),
	})
	if err != nil {
		return nil, "", models.NewScrapeError(models.ErrCodeFetchFailed,
			fmt.Sprintf("source %q: fetch %s", source.Name, searchURL), err)
	}

	doc := extract.NewDocument(searchURL, result.Body)
	return list.Extract(doc), result.Body, nil
}

// extractResults pulls title, url and the optional price out of each row
// fragment, applying url-decoding where the strategy asks for it.
func (s *Searcher) extractResults(source *models.Source, items []*extract.Document) []models.SearchResult {
	titleField, urlField, priceField, err := s.compileItemFields(source)
	if err != nil {
		slog.Error("invalid item strategies for source",
			"source", source.Name, "error", err)
		return nil
	}

	urlStrategy, _ := source.ExtractionStrategy.Get(models.FieldProductURL)

	results := make([]models.SearchResult, 0, len(items))
	for _, item := range items {
		r := models.SearchResult{
			Content:    item.Body(),
			SourceID:   source.ID,
			SourceName: source.Name,
		}
		if titleField != nil {
			if v := titleField.Extract(item); v != nil {
				r.Title = models.Truncate(strings.TrimSpace(*v))
			}
		}
		if urlField != nil {
			if v := urlField.Extract(item); v != nil {
				r.URL = strings.TrimSpace(*v)
			}
		}
		if urlStrategy.URLDecode && r.URL != "" {
			if decoded, err := url.QueryUnescape(r.URL); err == nil {
				r.URL = decoded
			} else {
				slog.Warn("failed to url-decode product url",
					"source", source.Name, "url", r.URL, "error", err)
			}
		}
		r.URL = models.Truncate(r.URL)
		if priceField != nil {
			if v := priceField.Extract(item); v != nil {
				r.Price = strings.TrimSpace(*v)
			}
		}

		if !r.Valid() {
			slog.Debug("dropping search result missing title or url",
				"source", source.Name, "title", r.Title, "url", r.URL)
			continue
		}
		results = append(results, r)
	}
	return results
}

// compileItemFields compiles the per-row strategies. product_title and
// product_url are expected on every source; product_price is optional. A
// missing strategy yields a nil field, not an error, so misconfigured rows
// fail validation downstream instead of aborting the batch.
func (s *Searcher) compileItemFields(source *models.Source) (title, url, price *extract.Field, err error) {
	compile := func(name string) (*extract.Field, error) {
		strategy, ok := source.ExtractionStrategy.Get(name)
		if !ok {
			return nil, nil
		}
		return extract.Compile(name, strategy)
	}

	if title, err = compile(models.FieldProductTitle); err != nil {
		return nil, nil, nil, err
	}
	if url, err = compile(models.FieldProductURL); err != nil {
		return nil, nil, nil, err
	}
	if price, err = compile(models.FieldProductPrice); err != nil {
		return nil, nil, nil, err
	}
	return title, url, price, nil
}
