package models

import (
	"fmt"
	"strings"
)

// Strategy kinds. The set is closed: anything else is a configuration error
// rejected when the strategy is compiled, before any document is fetched.
const (
	StrategySelector = "selector"
	StrategyXPath    = "xpath"
	StrategyRegex    = "regex"
	StrategyJSON     = "json"
)

// SelectorAttrDelimiter separates a CSS selector from an attribute name in a
// selector-kind strategy value, e.g. "a.link|href" reads the href attribute
// of the first a.link match instead of its text content.
const SelectorAttrDelimiter = "|"

// Well-known field names for product pages.
const (
	FieldTitle       = "title"
	FieldDescription = "description"
	FieldPrice       = "price"
	FieldImage       = "image"
)

// Well-known field names for search result pages.
const (
	FieldListContainer = "list_container"
	FieldProductTitle  = "product_title"
	FieldProductURL    = "product_url"
	FieldProductPrice  = "product_price"
)

// PageFields is the ordered set of fields a page scrape extracts.
var PageFields = []string{FieldTitle, FieldDescription, FieldPrice, FieldImage}

// Strategy describes how to pull one value (or, for list strategies, a set of
// sub-documents) out of a fetched document.
type Strategy struct {
	// Type is one of the Strategy* kind constants.
	Type string `json:"type"`

	// Value is the selector / XPath expression / regex pattern / JSON
	// dot-path, depending on Type.
	Value string `json:"value"`

	// Prepend and Append are static strings concatenated around the
	// extracted value. List strategies ignore them.
	Prepend string `json:"prepend,omitempty"`
	Append  string `json:"append,omitempty"`

	// URLDecode applies URL-decoding to the extracted value. Only used by
	// the product_url strategy of search sources.
	URLDecode bool `json:"url_decode,omitempty"`
}

// Validate checks the strategy invariants: non-empty value, known kind.
func (s Strategy) Validate() error {
	if strings.TrimSpace(s.Value) == "" {
		return NewScrapeError(ErrCodeInvalidStrategy, "strategy value is empty", nil)
	}
	switch s.Type {
	case StrategySelector, StrategyXPath, StrategyRegex, StrategyJSON:
		return nil
	}
	return NewScrapeError(ErrCodeInvalidStrategy,
		fmt.Sprintf("unknown strategy type %q", s.Type), nil)
}

// ParseSelector splits a selector-kind value into its CSS selector part and
// the optional attribute name. The attribute is the last |-delimited segment;
// everything before it is the selector, so selectors containing | still work.
func ParseSelector(value string) (selector, attr string) {
	if !strings.Contains(value, SelectorAttrDelimiter) {
		return value, ""
	}
	idx := strings.LastIndex(value, SelectorAttrDelimiter)
	return value[:idx], value[idx+1:]
}

// StrategySet maps a logical field name to the strategy that extracts it.
// It is owned by the configuring store or source and read-only to the engine.
type StrategySet map[string]Strategy

// Validate checks every strategy in the set.
func (ss StrategySet) Validate() error {
	for name, s := range ss {
		if err := s.Validate(); err != nil {
			return NewScrapeError(ErrCodeInvalidStrategy,
				fmt.Sprintf("field %q: %v", name, err), err)
		}
	}
	return nil
}

// Get returns the strategy for a field and whether one is configured.
func (ss StrategySet) Get(name string) (Strategy, bool) {
	s, ok := ss[name]
	return s, ok
}
