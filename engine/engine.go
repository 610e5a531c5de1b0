package engine

import (
	"context"
	"strings"
	"time"
)

// Engine is the interface that all fetch backends implement.
type Engine interface {
	// Name returns the backend identifier ("http" or "browser").
	Name() string

	// Fetch retrieves the document for the given request.
	Fetch(ctx context.Context, req *FetchRequest) (*FetchResult, error)
}

// FetchRequest contains everything a backend needs to fetch a document.
type FetchRequest struct {
	URL     string
	Headers map[string]string
	Timeout time.Duration

	// UseCache allows serving a cached response when the request passes
	// through a caching decorator. Retry attempts after a failure disable
	// it so a failed cached response is never re-served.
	UseCache bool

	// CacheTTL bounds how old a cached response may be.
	CacheTTL time.Duration

	// Options is the parsed free-form option block configured on the store
	// or source (wait_selector, wait_ms, stealth, proxy...).
	Options map[string]string
}

// Option returns a request option value, or fallback when unset.
func (r *FetchRequest) Option(key, fallback string) string {
	if v, ok := r.Options[key]; ok && v != "" {
		return v
	}
	return fallback
}

// FetchResult is the output of a successful fetch.
type FetchResult struct {
	Body       string
	StatusCode int
	FinalURL   string
	EngineName string

	// Cached marks responses served from the response cache.
	Cached bool
}

// ParseOptions parses a free-form line-based "key=value" option block into a
// map. Blank lines, comment lines and lines without "=" are skipped.
func ParseOptions(block string) map[string]string {
	opts := make(map[string]string)
	for _, line := range strings.Split(block, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		opts[strings.TrimSpace(key)] = strings.TrimSpace(value)
	}
	return opts
}
