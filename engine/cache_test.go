package engine

import (
	"context"
	"sync/atomic"
	"testing"
	"time"
)

type countingEngine struct {
	calls atomic.Int32
}

func (e *countingEngine) Name() string { return "http" }

func (e *countingEngine) Fetch(_ context.Context, req *FetchRequest) (*FetchResult, error) {
	e.calls.Add(1)
	return &FetchResult{Body: "body-" + req.URL, StatusCode: 200}, nil
}

func TestCachedEngineServesCachedResponse(t *testing.T) {
	inner := &countingEngine{}
	eng := WithCache(inner, NewResponseCache(10))

	req := &FetchRequest{URL: "https://a.example", UseCache: true, CacheTTL: time.Minute}

	first, err := eng.Fetch(context.Background(), req)
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if first.Cached {
		t.Error("first fetch marked cached")
	}

	second, err := eng.Fetch(context.Background(), req)
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if !second.Cached {
		t.Error("second fetch not served from cache")
	}
	if second.Body != first.Body {
		t.Errorf("cached body = %q, want %q", second.Body, first.Body)
	}
	if inner.calls.Load() != 1 {
		t.Errorf("inner engine called %d times, want 1", inner.calls.Load())
	}
}

func TestCachedEngineBypass(t *testing.T) {
	inner := &countingEngine{}
	eng := WithCache(inner, NewResponseCache(10))

	prime := &FetchRequest{URL: "https://a.example", UseCache: true, CacheTTL: time.Minute}
	if _, err := eng.Fetch(context.Background(), prime); err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}

	// UseCache=false (the retry path) must hit the backend again.
	bypass := &FetchRequest{URL: "https://a.example", UseCache: false, CacheTTL: time.Minute}
	res, err := eng.Fetch(context.Background(), bypass)
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if res.Cached {
		t.Error("bypassing fetch served from cache")
	}

	// Zero TTL never consults the cache either.
	noTTL := &FetchRequest{URL: "https://a.example", UseCache: true}
	if res, _ := eng.Fetch(context.Background(), noTTL); res.Cached {
		t.Error("zero-TTL fetch served from cache")
	}

	if inner.calls.Load() != 3 {
		t.Errorf("inner engine called %d times, want 3", inner.calls.Load())
	}
}

func TestResponseCacheMaxAge(t *testing.T) {
	c := NewResponseCache(10)
	c.Set("https://a.example", &FetchResult{Body: "x"})

	if _, hit := c.Get("https://a.example", time.Minute); !hit {
		t.Error("fresh entry not served")
	}
	if _, hit := c.Get("https://a.example", 0); hit {
		t.Error("maxAge 0 served a cached entry")
	}
	time.Sleep(15 * time.Millisecond)
	if _, hit := c.Get("https://a.example", 10*time.Millisecond); hit {
		t.Error("stale entry served")
	}
}

func TestParseOptions(t *testing.T) {
	block := `
# backend tuning
wait_selector = .price
wait_ms=500

malformed line
stealth=true
`
	opts := ParseOptions(block)
	want := map[string]string{
		"wait_selector": ".price",
		"wait_ms":       "500",
		"stealth":       "true",
	}
	if len(opts) != len(want) {
		t.Fatalf("ParseOptions() = %v, want %v", opts, want)
	}
	for k, v := range want {
		if opts[k] != v {
			t.Errorf("option %q = %q, want %q", k, opts[k], v)
		}
	}
}
