package models

import "strings"

// Backend names selectable per store / source.
const (
	BackendHTTP    = "http"
	BackendBrowser = "browser"
)

// SearchTermToken is the literal placeholder substituted with the URL-encoded
// query when building a source's search URL.
const SearchTermToken = ":search_term"

// Source statuses.
const (
	SourceStatusActive   = "active"
	SourceStatusDisabled = "disabled"
)

// Store is the scrape configuration for one online store: which backend
// fetches its pages and which strategies extract the product fields.
type Store struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`

	// Domains are the hostnames this store matches, lowercase, without port.
	Domains []string `json:"domains"`

	// Backend selects the fetch engine: "http" or "browser".
	Backend string `json:"backend"`

	// ScraperOptions is a free-form line-based "key=value" option block
	// passed to the backend (wait_selector, wait_ms, stealth, proxy...).
	ScraperOptions string `json:"scraper_options,omitempty"`

	// ScrapeStrategy maps page field names (title, price, image,
	// description) to extraction strategies.
	ScrapeStrategy StrategySet `json:"scrape_strategy"`

	// Settings holds optional store-level behavior toggles:
	//   description_fallback = "readability"  use readability when no
	//                                         description strategy is set
	//   description_markdown = "true"         convert description to markdown
	Settings map[string]string `json:"settings,omitempty"`
}

// MatchesHost reports whether the store is configured for the given hostname.
func (s *Store) MatchesHost(host string) bool {
	host = strings.ToLower(host)
	for _, d := range s.Domains {
		if strings.ToLower(d) == host {
			return true
		}
	}
	return false
}

// Setting returns a settings value, or fallback when unset.
func (s *Store) Setting(key, fallback string) string {
	if v, ok := s.Settings[key]; ok && v != "" {
		return v
	}
	return fallback
}

// Source is a configured search target (aggregator or online store) carrying
// a templated search URL and the strategies to extract result rows from it.
type Source struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`

	// SearchURL is the templated search URL containing SearchTermToken.
	SearchURL string `json:"search_url"`

	// Backend selects the fetch engine: "http" or "browser".
	Backend string `json:"backend"`

	// ScraperOptions is the backend option block, as on Store.
	ScraperOptions string `json:"scraper_options,omitempty"`

	// ExtractionStrategy maps list_container, product_title, product_url and
	// the optional product_price to strategies.
	ExtractionStrategy StrategySet `json:"extraction_strategy"`

	// Weight orders sources in a multi-source search batch (ascending).
	Weight int `json:"weight"`

	Status  string `json:"status"`
	StoreID int64  `json:"store_id,omitempty"`
}

// Enabled reports whether the source participates in multi-source searches.
func (s *Source) Enabled() bool {
	return s.Status == SourceStatusActive
}

// Validate rejects misconfigured sources before any search runs: the search
// URL must carry the placeholder token and the strategy set must compile.
func (s *Source) Validate() error {
	if !strings.Contains(s.SearchURL, SearchTermToken) {
		return NewScrapeError(ErrCodeInvalidInput,
			"search_url missing "+SearchTermToken+" placeholder", nil)
	}
	return s.ExtractionStrategy.Validate()
}
