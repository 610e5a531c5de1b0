package models

import "time"

// ScrapeRequest is the body of POST /api/v1/scrape.
type ScrapeRequest struct {
	URL string `json:"url" binding:"required"`

	// StoreID bypasses domain matching and scrapes with an explicit store
	// configuration. Zero means resolve by URL host.
	StoreID int64 `json:"store_id,omitempty"`

	// UseCache controls whether the first attempt may serve a cached fetch.
	// Defaults to true.
	UseCache *bool `json:"use_cache,omitempty"`
}

// CacheEnabled resolves the UseCache default.
func (r *ScrapeRequest) CacheEnabled() bool {
	return r.UseCache == nil || *r.UseCache
}

// SearchRequest is the body of POST /api/v1/search and /api/v1/search/refresh.
type SearchRequest struct {
	Query    string `json:"query" binding:"required"`
	SourceID int64  `json:"source_id,omitempty"`
}

// SearchStateResponse is the poller-facing snapshot of a search job.
type SearchStateResponse struct {
	Query        string          `json:"query"`
	SourceID     int64           `json:"source_id,omitempty"`
	InProgress   bool            `json:"in_progress"`
	Complete     bool            `json:"complete"`
	DispatchedAt *time.Time      `json:"dispatched_at,omitempty"`
	CompletedAt  *time.Time      `json:"completed_at,omitempty"`
	Log          []ProgressEntry `json:"log"`
}

// DebugItem pairs one raw result fragment with the values extracted from it.
type DebugItem struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Content string `json:"content"`
}

// SearchDebugResponse is the operator-troubleshooting view of one source's
// search page: raw body plus a capped number of raw item fragments.
type SearchDebugResponse struct {
	SourceID   int64       `json:"source_id"`
	SourceName string      `json:"source_name"`
	HTML       string      `json:"html"`
	Items      []DebugItem `json:"items"`
}

// ErrorResponse is the uniform error envelope for API failures.
type ErrorResponse struct {
	Error *ErrorDetail `json:"error"`
}

// HealthResponse is the body of GET /api/v1/health.
type HealthResponse struct {
	Status  string `json:"status"`
	Uptime  string `json:"uptime"`
	Version string `json:"version"`
}
