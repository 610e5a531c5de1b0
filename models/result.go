package models

import "time"

// MaxFieldLength caps stored field values (title, image, url). Values longer
// than this are truncated before persisting.
const MaxFieldLength = 1000

// ScrapeOutcome is the result of one page scrape: the extracted field values
// of the final attempt plus the diagnostic payload accumulated on the way.
type ScrapeOutcome struct {
	URL string `json:"url"`

	// Fields maps field name to extracted value; nil value means the field
	// had no strategy configured or nothing matched.
	Fields map[string]*string `json:"fields"`

	// Body is the raw fetched document of the final attempt.
	Body string `json:"body,omitempty"`

	// Errors accumulates fetch-level errors across attempts.
	Errors []string `json:"errors,omitempty"`

	// Attempts is how many fetch attempts were made.
	Attempts int `json:"attempts"`

	// StoreID and StoreName identify the matched store configuration.
	StoreID   int64  `json:"store_id,omitempty"`
	StoreName string `json:"store_name,omitempty"`

	// MissingRequired names the required field (title or price) that was
	// still empty after all attempts, or "" when the scrape succeeded.
	MissingRequired string `json:"missing_required,omitempty"`
}

// Field returns the extracted value for a field, or "" when absent.
func (o *ScrapeOutcome) Field(name string) string {
	if v, ok := o.Fields[name]; ok && v != nil {
		return *v
	}
	return ""
}

// OK reports whether the required fields (title, price) were extracted.
func (o *ScrapeOutcome) OK() bool {
	return o.MissingRequired == ""
}

// SearchResult is one extracted row of a search results page. Results missing
// a title or URL are dropped before they reach callers.
type SearchResult struct {
	Title string `json:"title"`
	URL   string `json:"url"`
	Price string `json:"price,omitempty"`

	// Content is the raw serialized fragment the row was extracted from.
	Content string `json:"content,omitempty"`

	// SourceID and SourceName tag the originating search source.
	SourceID   int64  `json:"source_id,omitempty"`
	SourceName string `json:"source_name,omitempty"`
}

// Valid reports whether the result carries the minimum title + url pair.
func (r SearchResult) Valid() bool {
	return r.Title != "" && r.URL != ""
}

// ResearchRecord is a persisted search result: a transient, prunable record
// kept for a bounded lifetime so later searches can reuse or filter it.
type ResearchRecord struct {
	ID         string    `json:"id"`
	Query      string    `json:"query"`
	Title      string    `json:"title"`
	URL        string    `json:"url"`
	Price      float64   `json:"price,omitempty"`
	SourceID   int64     `json:"source_id,omitempty"`
	SourceName string    `json:"source_name,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// Truncate clamps a field value to MaxFieldLength.
func Truncate(v string) string {
	if len(v) > MaxFieldLength {
		return v[:MaxFieldLength]
	}
	return v
}
