package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig
	Browser   BrowserConfig
	Fetch     FetchConfig
	Scrape    ScrapeConfig
	Search    SearchConfig
	Queue     QueueConfig
	Storage   StorageConfig
	Notify    NotifyConfig
	Auth      AuthConfig
	RateLimit RateLimitConfig
	Log       LogConfig
}

// ServerConfig controls the HTTP server.
type ServerConfig struct {
	Host string // default: "0.0.0.0"
	Port int    // default: 8080
	Mode string // "debug", "release", "test"; default: "release"
}

// BrowserConfig controls the rod browser behind the browser backend.
type BrowserConfig struct {
	Headless          bool          // default: true
	MaxPages          int           // default: 10
	NoSandbox         bool          // default: false
	BrowserBin        string        // override Chromium binary path
	Proxy             string        // default proxy URL
	NavigationTimeout time.Duration // default: 15s
}

// FetchConfig controls the fetch backends and the shared response cache.
type FetchConfig struct {
	// HTTPTimeout is the deadline for the lightweight HTTP backend.
	HTTPTimeout time.Duration // default: 10s

	// DefaultTimeout is the per-fetch deadline when a request sets none.
	DefaultTimeout time.Duration // default: 30s

	// CacheMaxEntries is the response cache capacity.
	CacheMaxEntries int // default: 1000

	// CacheTTL is how long a cached response may be re-served.
	CacheTTL time.Duration // default: 30m
}

// ScrapeConfig controls the page scraper.
type ScrapeConfig struct {
	// MaxAttempts bounds the fetch-extract retry loop.
	MaxAttempts int // default: 3
}

// SearchConfig controls search orchestration and caching.
type SearchConfig struct {
	// DedupWindow is how long a dispatched search suppresses an identical one.
	DedupWindow time.Duration // default: 600s

	// JobTimeout bounds one search job attempt.
	JobTimeout time.Duration // default: 3600s

	// JobTries is the job retry budget.
	JobTries int // default: 3

	// JobBackoff is the wait before each retry.
	JobBackoff []time.Duration // default: [30s, 60s, 120s]

	// MaxSources caps how many enabled sources one batch searches.
	MaxSources int // default: 100

	// DebugItems caps raw fragments in the search debug view.
	DebugItems int // default: 5

	// ResearchLifetime is how long persisted search results are kept.
	ResearchLifetime time.Duration // default: 720h (30 days)

	// PruneSchedule is the cron spec for pruning expired research records.
	PruneSchedule string // default: "@daily"
}

// QueueConfig controls the background job queue.
type QueueConfig struct {
	Workers  int // default: 4
	Capacity int // default: 64
}

// StorageConfig controls persistence.
type StorageConfig struct {
	// DataDir is the badger database directory. Empty runs in-memory.
	DataDir string

	// SeedFile is the JSON file holding store and source configuration.
	SeedFile string
}

// NotifyConfig controls the failure notification webhook.
type NotifyConfig struct {
	WebhookURL    string
	WebhookSecret string
}

// AuthConfig controls API key authentication.
type AuthConfig struct {
	Enabled bool     // default: true
	APIKeys []string // valid API keys
}

// RateLimitConfig controls per-key rate limiting.
type RateLimitConfig struct {
	RequestsPerSecond float64 // default: 5
	Burst             int     // default: 10
}

// LogConfig controls structured logging.
type LogConfig struct {
	Level  string // default: "info"
	Format string // "json" or "text"; default: "json"
}

// Load reads configuration from environment variables with sane defaults.
func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Host: envOr("PRICEWATCH_HOST", "0.0.0.0"),
			Port: envIntOr("PRICEWATCH_PORT", 8080),
			Mode: envOr("PRICEWATCH_MODE", "release"),
		},
		Browser: BrowserConfig{
			Headless:          envBoolOr("PRICEWATCH_HEADLESS", true),
			MaxPages:          envIntOr("PRICEWATCH_MAX_PAGES", 10),
			NoSandbox:         envBoolOr("PRICEWATCH_NO_SANDBOX", false),
			BrowserBin:        os.Getenv("PRICEWATCH_BROWSER_BIN"),
			Proxy:             os.Getenv("PRICEWATCH_PROXY"),
			NavigationTimeout: envDurationOr("PRICEWATCH_NAV_TIMEOUT", 15*time.Second),
		},
		Fetch: FetchConfig{
			HTTPTimeout:     envDurationOr("PRICEWATCH_HTTP_TIMEOUT", 10*time.Second),
			DefaultTimeout:  envDurationOr("PRICEWATCH_FETCH_TIMEOUT", 30*time.Second),
			CacheMaxEntries: envIntOr("PRICEWATCH_CACHE_MAX_ENTRIES", 1000),
			CacheTTL:        envDurationOr("PRICEWATCH_CACHE_TTL", 30*time.Minute),
		},
		Scrape: ScrapeConfig{
			MaxAttempts: envIntOr("PRICEWATCH_SCRAPE_MAX_ATTEMPTS", 3),
		},
		Search: SearchConfig{
			DedupWindow: envDurationOr("PRICEWATCH_SEARCH_DEDUP_WINDOW", 600*time.Second),
			JobTimeout:  envDurationOr("PRICEWATCH_SEARCH_JOB_TIMEOUT", 3600*time.Second),
			JobTries:    envIntOr("PRICEWATCH_SEARCH_JOB_TRIES", 3),
			JobBackoff: envDurationSliceOr("PRICEWATCH_SEARCH_JOB_BACKOFF", []time.Duration{
				30 * time.Second, 60 * time.Second, 120 * time.Second,
			}),
			MaxSources:       envIntOr("PRICEWATCH_SEARCH_MAX_SOURCES", 100),
			DebugItems:       envIntOr("PRICEWATCH_SEARCH_DEBUG_ITEMS", 5),
			ResearchLifetime: envDurationOr("PRICEWATCH_RESEARCH_LIFETIME", 720*time.Hour),
			PruneSchedule:    envOr("PRICEWATCH_PRUNE_SCHEDULE", "@daily"),
		},
		Queue: QueueConfig{
			Workers:  envIntOr("PRICEWATCH_QUEUE_WORKERS", 4),
			Capacity: envIntOr("PRICEWATCH_QUEUE_CAPACITY", 64),
		},
		Storage: StorageConfig{
			DataDir:  os.Getenv("PRICEWATCH_DATA_DIR"),
			SeedFile: os.Getenv("PRICEWATCH_SEED_FILE"),
		},
		Notify: NotifyConfig{
			WebhookURL:    os.Getenv("PRICEWATCH_WEBHOOK_URL"),
			WebhookSecret: os.Getenv("PRICEWATCH_WEBHOOK_SECRET"),
		},
		Auth: AuthConfig{
			Enabled: envBoolOr("PRICEWATCH_AUTH_ENABLED", true),
			APIKeys: envSliceOr("PRICEWATCH_API_KEYS", nil),
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: envFloatOr("PRICEWATCH_RATE_RPS", 5.0),
			Burst:             envIntOr("PRICEWATCH_RATE_BURST", 10),
		},
		Log: LogConfig{
			Level:  envOr("PRICEWATCH_LOG_LEVEL", "info"),
			Format: envOr("PRICEWATCH_LOG_FORMAT", "json"),
		},
	}
}

// --- helper functions ---

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envIntOr(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func envBoolOr(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envFloatOr(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envDurationOr(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func envSliceOr(key string, fallback []string) []string {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		result := make([]string, 0, len(parts))
		for _, p := range parts {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				result = append(result, trimmed)
			}
		}
		return result
	}
	return fallback
}

func envDurationSliceOr(key string, fallback []time.Duration) []time.Duration {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		result := make([]time.Duration, 0, len(parts))
		for _, p := range parts {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				if d, err := time.ParseDuration(trimmed); err == nil {
					result = append(result, d)
				}
			}
		}
		if len(result) > 0 {
			return result
		}
	}
	return fallback
}
