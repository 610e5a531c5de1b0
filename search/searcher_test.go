package search

import (
	"context"
	"sync"
	"testing"

	"pricewatch/engine"
	"pricewatch/models"
)

// fakeEngine is a scripted fetch backend recording the requests it serves.
type fakeEngine struct {
	mu       sync.Mutex
	body     string
	err      error
	requests []*engine.FetchRequest
}

func (f *fakeEngine) Name() string { return models.BackendHTTP }

func (f *fakeEngine) Fetch(_ context.Context, req *engine.FetchRequest) (*engine.FetchResult, error) {
	f.mu.Lock()
	f.requests = append(f.requests, req)
	f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return &engine.FetchResult{Body: f.body, StatusCode: 200, EngineName: f.Name()}, nil
}

func (f *fakeEngine) requestCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.requests)
}

func testSource() *models.Source {
	return &models.Source{
		ID:        7,
		Name:      "TechDeals",
		SearchURL: "https://techdeals.example/s?q=" + models.SearchTermToken,
		Backend:   models.BackendHTTP,
		Status:    models.SourceStatusActive,
		ExtractionStrategy: models.StrategySet{
			models.FieldListContainer: {Type: models.StrategySelector, Value: "div.item"},
			models.FieldProductTitle:  {Type: models.StrategySelector, Value: "h2"},
			models.FieldProductURL:    {Type: models.StrategySelector, Value: "a|href"},
			models.FieldProductPrice:  {Type: models.StrategySelector, Value: ".price"},
		},
	}
}

func TestBuildSearchURL(t *testing.T) {
	tests := []struct {
		name      string
		searchURL string
		query     string
		want      string
	}{
		{
			name:      "spaces become plus",
			searchURL: "https://shop.example/search?q=" + models.SearchTermToken,
			query:     "gaming laptop",
			want:      "https://shop.example/search?q=gaming+laptop",
		},
		{
			name:      "special characters escaped",
			searchURL: "https://shop.example/search?q=" + models.SearchTermToken,
			query:     "usb-c & hdmi",
			want:      "https://shop.example/search?q=usb-c+%26+hdmi",
		},
		{
			name:      "repeated token replaced everywhere",
			searchURL: "https://shop.example/:search_term?q=:search_term",
			query:     "ssd",
			want:      "https://shop.example/ssd?q=ssd",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			source := &models.Source{SearchURL: tt.searchURL}
			if got := BuildSearchURL(source, tt.query); got != tt.want {
				t.Errorf("BuildSearchURL() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestSearcherSearch(t *testing.T) {
	fake := &fakeEngine{body: `<html><body>
		<div class="item"><h2>Gaming Laptop Pro</h2><a href="/p/1">view</a><span class="price">€ 1.299,00</span></div>
		<div class="item"><h2>Gaming Laptop Air</h2><a href="/p/2">view</a></div>
		<div class="item"><h2>No link here</h2></div>
	</body></html>`}
	s := NewSearcher(engine.NewRegistry(fake), 0)

	results, err := s.Search(context.Background(), testSource(), "gaming laptop")
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}

	// The third item has no URL and must be dropped.
	if len(results) != 2 {
		t.Fatalf("Search() returned %d results, want 2", len(results))
	}
	if results[0].Title != "Gaming Laptop Pro" || results[0].URL != "/p/1" {
		t.Errorf("result 0 = %+v", results[0])
	}
	if results[0].Price != "€ 1.299,00" {
		t.Errorf("result 0 price = %q", results[0].Price)
	}
	if results[1].Title != "Gaming Laptop Air" || results[1].Price != "" {
		t.Errorf("result 1 = %+v", results[1])
	}
	for i, r := range results {
		if r.SourceID != 7 || r.SourceName != "TechDeals" {
			t.Errorf("result %d missing source tag: %+v", i, r)
		}
		if r.Content == "" {
			t.Errorf("result %d has no raw fragment", i)
		}
	}

	if got := fake.requests[0].URL; got != "https://techdeals.example/s?q=gaming+laptop" {
		t.Errorf("fetched URL = %q", got)
	}
}

func TestSearcherSearchURLDecode(t *testing.T) {
	fake := &fakeEngine{body: `<html><body>
		<div class="item"><h2>Widget</h2><a href="https%3A%2F%2Fshop.example%2Fp%2F9">view</a></div>
	</body></html>`}
	source := testSource()
	source.ExtractionStrategy[models.FieldProductURL] = models.Strategy{
		Type: models.StrategySelector, Value: "a|href", URLDecode: true,
	}
	s := NewSearcher(engine.NewRegistry(fake), 0)

	results, err := s.Search(context.Background(), source, "widget")
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("Search() returned %d results, want 1", len(results))
	}
	if results[0].URL != "https://shop.example/p/9" {
		t.Errorf("URL = %q, want decoded form", results[0].URL)
	}
}

func TestSearcherSearchRejectsMisconfiguredSource(t *testing.T) {
	s := NewSearcher(engine.NewRegistry(&fakeEngine{}), 0)

	missingToken := testSource()
	missingToken.SearchURL = "https://shop.example/search"
	if _, err := s.Search(context.Background(), missingToken, "x"); err == nil {
		t.Error("Search() with tokenless URL succeeded, want error")
	}

	noList := testSource()
	delete(noList.ExtractionStrategy, models.FieldListContainer)
	if _, err := s.Search(context.Background(), noList, "x"); err == nil {
		t.Error("Search() without list_container succeeded, want error")
	}
}

func TestSearcherDebug(t *testing.T) {
	fake := &fakeEngine{body: `<html><body>
		<div class="item"><h2>A</h2><a href="/a">x</a></div>
		<div class="item"><h2>B</h2><a href="/b">x</a></div>
		<div class="item"><h2>C</h2><a href="/c">x</a></div>
	</body></html>`}
	s := NewSearcher(engine.NewRegistry(fake), 0)

	resp, err := s.Debug(context.Background(), testSource(), "abc", 2)
	if err != nil {
		t.Fatalf("Debug() error = %v", err)
	}
	if resp.SourceID != 7 || resp.SourceName != "TechDeals" {
		t.Errorf("debug source tag = %d %q", resp.SourceID, resp.SourceName)
	}
	if resp.HTML == "" {
		t.Error("debug response has no raw page body")
	}
	if len(resp.Items) != 2 {
		t.Fatalf("Debug() returned %d items, want capped 2", len(resp.Items))
	}
	if resp.Items[0].Title != "A" || resp.Items[0].URL != "/a" {
		t.Errorf("debug item 0 = %+v", resp.Items[0])
	}
	if resp.Items[1].Content == "" {
		t.Error("debug item 1 has no raw fragment")
	}
}
