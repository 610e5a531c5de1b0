package models

import (
	"strings"
	"testing"
)

func TestParseSelector(t *testing.T) {
	tests := []struct {
		value        string
		wantSelector string
		wantAttr     string
	}{
		{"h1.title", "h1.title", ""},
		{"a.link|href", "a.link", "href"},
		{"img|src", "img", "src"},
		{"span.price|data-amount", "span.price", "data-amount"},
		// Only the last segment is the attribute.
		{"a|b|href", "a|b", "href"},
	}
	for _, tt := range tests {
		sel, attr := ParseSelector(tt.value)
		if sel != tt.wantSelector || attr != tt.wantAttr {
			t.Errorf("ParseSelector(%q) = (%q, %q), want (%q, %q)",
				tt.value, sel, attr, tt.wantSelector, tt.wantAttr)
		}
	}
}

func TestStrategyValidate(t *testing.T) {
	valid := []Strategy{
		{Type: StrategySelector, Value: "h1"},
		{Type: StrategyXPath, Value: "//h1"},
		{Type: StrategyRegex, Value: `\d+`},
		{Type: StrategyJSON, Value: "product.title"},
	}
	for _, s := range valid {
		if err := s.Validate(); err != nil {
			t.Errorf("Validate(%+v) error = %v", s, err)
		}
	}

	invalid := []Strategy{
		{Type: "css", Value: "h1"},
		{Type: StrategySelector, Value: ""},
		{Type: StrategySelector, Value: "   "},
		{Type: "", Value: "h1"},
	}
	for _, s := range invalid {
		if err := s.Validate(); err == nil {
			t.Errorf("Validate(%+v) succeeded, want error", s)
		}
	}
}

func TestSourceValidate(t *testing.T) {
	src := &Source{
		Name:      "Shop",
		SearchURL: "https://shop.example/s?q=" + SearchTermToken,
		ExtractionStrategy: StrategySet{
			FieldListContainer: {Type: StrategySelector, Value: ".item"},
		},
	}
	if err := src.Validate(); err != nil {
		t.Errorf("Validate() error = %v", err)
	}

	src.SearchURL = "https://shop.example/s"
	if err := src.Validate(); err == nil {
		t.Error("Validate() without placeholder succeeded, want error")
	}

	src.SearchURL = "https://shop.example/s?q=" + SearchTermToken
	src.ExtractionStrategy[FieldProductTitle] = Strategy{Type: "bogus", Value: "x"}
	if err := src.Validate(); err == nil {
		t.Error("Validate() with bad strategy succeeded, want error")
	}
}

func TestSearchJobKey(t *testing.T) {
	if got := SearchJobKey("gaming laptop", 0); got != "search:gaming laptop" {
		t.Errorf("SearchJobKey() = %q", got)
	}
	if got := SearchJobKey("gaming laptop", 7); got != "search:gaming laptop:src:7" {
		t.Errorf("SearchJobKey() = %q", got)
	}
}

func TestTruncate(t *testing.T) {
	short := "keyboard"
	if got := Truncate(short); got != short {
		t.Errorf("Truncate(short) = %q", got)
	}
	long := strings.Repeat("a", MaxFieldLength+1)
	if got := Truncate(long); len(got) != MaxFieldLength {
		t.Errorf("Truncate(long) length = %d, want %d", len(got), MaxFieldLength)
	}
}

func TestScrapeRequestCacheEnabled(t *testing.T) {
	var req ScrapeRequest
	if !req.CacheEnabled() {
		t.Error("CacheEnabled() default = false, want true")
	}
	f := false
	req.UseCache = &f
	if req.CacheEnabled() {
		t.Error("CacheEnabled() with explicit false = true")
	}
}

func TestScrapeOutcomeField(t *testing.T) {
	v := "129.99"
	o := &ScrapeOutcome{Fields: map[string]*string{
		FieldPrice: &v,
		FieldImage: nil,
	}}
	if got := o.Field(FieldPrice); got != "129.99" {
		t.Errorf("Field(price) = %q", got)
	}
	if got := o.Field(FieldImage); got != "" {
		t.Errorf("Field(nil value) = %q, want empty", got)
	}
	if got := o.Field(FieldTitle); got != "" {
		t.Errorf("Field(absent) = %q, want empty", got)
	}
	if !o.OK() {
		t.Error("OK() = false with no missing field")
	}
	o.MissingRequired = FieldPrice
	if o.OK() {
		t.Error("OK() = true with missing field")
	}
}
