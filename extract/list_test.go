package extract

import (
	"strings"
	"testing"

	"pricewatch/models"
)

const resultsPage = `<html><body>
<div class="results">
	<div class="item"><h2>First Product</h2><a href="/p/1">view</a></div>
	<div class="item"><h2>Second Product</h2><a href="/p/2">view</a></div>
	<div class="ad">sponsored</div>
	<div class="item"><h2>Third Product</h2><a href="/p/3">view</a></div>
</div>
</body></html>`

func TestCompileListRejectsNonSelectorKinds(t *testing.T) {
	for _, kind := range []string{models.StrategyXPath, models.StrategyRegex, models.StrategyJSON} {
		if _, err := CompileList(models.Strategy{Type: kind, Value: "x"}); err == nil {
			t.Errorf("CompileList(kind=%s) succeeded, want error", kind)
		}
	}
}

func TestListExtract(t *testing.T) {
	list, err := CompileList(models.Strategy{Type: models.StrategySelector, Value: "div.item"})
	if err != nil {
		t.Fatalf("CompileList() error = %v", err)
	}

	items := list.Extract(NewDocument("results", resultsPage))
	if len(items) != 3 {
		t.Fatalf("Extract() returned %d items, want 3", len(items))
	}

	// Fragments must preserve document order and be independently parseable.
	wantTitles := []string{"First Product", "Second Product", "Third Product"}
	titleField, err := Compile("product_title", models.Strategy{
		Type: models.StrategySelector, Value: "h2",
	})
	if err != nil {
		t.Fatalf("Compile() error = %v", err)
	}
	for i, item := range items {
		got := titleField.Extract(item)
		if got == nil || *got != wantTitles[i] {
			t.Errorf("item %d title = %v, want %q", i, got, wantTitles[i])
		}
		if !strings.Contains(item.Body(), "item") {
			t.Errorf("item %d body does not contain source fragment: %q", i, item.Body())
		}
	}
}

func TestListExtractNoMatches(t *testing.T) {
	list, err := CompileList(models.Strategy{Type: models.StrategySelector, Value: ".missing"})
	if err != nil {
		t.Fatalf("CompileList() error = %v", err)
	}
	items := list.Extract(NewDocument("results", resultsPage))
	if len(items) != 0 {
		t.Errorf("Extract() returned %d items, want 0", len(items))
	}
}
