package extract

import (
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"

	"github.com/andybalholm/cascadia"
	"github.com/antchfx/htmlquery"
	"github.com/antchfx/xpath"
	"github.com/ysmood/gson"

	"pricewatch/models"
)

// Field is a compiled field-extraction strategy. Compilation validates the
// expression up front so a malformed strategy is rejected at configuration
// time and never reaches a fetched document.
type Field struct {
	name     string
	strategy models.Strategy

	sel  cascadia.Selector // selector kind
	attr string            // selector kind, "" means text content
	xp   *xpath.Expr       // xpath kind
	re   *regexp.Regexp    // regex kind
	path string            // json kind
}

// Compile validates and compiles one strategy. name is the logical field the
// strategy extracts; it only appears in failure logs.
func Compile(name string, s models.Strategy) (*Field, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}

	f := &Field{name: name, strategy: s}

	switch s.Type {
	case models.StrategySelector:
		selPart, attr := models.ParseSelector(s.Value)
		sel, err := cascadia.Compile(selPart)
		if err != nil {
			return nil, models.NewScrapeError(models.ErrCodeInvalidStrategy,
				fmt.Sprintf("field %q: invalid selector %q", name, selPart), err)
		}
		f.sel = sel
		f.attr = attr

	case models.StrategyXPath:
		xp, err := xpath.Compile(s.Value)
		if err != nil {
			return nil, models.NewScrapeError(models.ErrCodeInvalidStrategy,
				fmt.Sprintf("field %q: invalid xpath %q", name, s.Value), err)
		}
		f.xp = xp

	case models.StrategyRegex:
		re, err := regexp.Compile(s.Value)
		if err != nil {
			return nil, models.NewScrapeError(models.ErrCodeInvalidStrategy,
				fmt.Sprintf("field %q: invalid regex %q", name, s.Value), err)
		}
		f.re = re

	case models.StrategyJSON:
		f.path = s.Value
	}

	return f, nil
}

// Name returns the logical field name the strategy was compiled for.
func (f *Field) Name() string {
	return f.name
}

// First evaluates the strategy against the document and returns the raw
// first-match value. Evaluation failures never escape: they are logged with
// the field and document identity and reported as no value.
func (f *Field) First(doc *Document) (string, bool) {
	value, found, err := f.eval(doc)
	if err != nil {
		f.logFailure(doc, err)
		return "", false
	}
	return value, found
}

// Extract evaluates the strategy and assembles the final field value as
// prepend + value + append. A missing match still assembles around the empty
// string; an evaluation failure yields nil.
func (f *Field) Extract(doc *Document) *string {
	value, _, err := f.eval(doc)
	if err != nil {
		f.logFailure(doc, err)
		return nil
	}
	out := f.strategy.Prepend + value + f.strategy.Append
	return &out
}

// eval dispatches on the strategy kind. The recover guard keeps a panicking
// expression engine inside the extractor boundary.
func (f *Field) eval(doc *Document) (value string, found bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			value, found = "", false
			err = fmt.Errorf("extraction panicked: %v", r)
		}
	}()

	switch f.strategy.Type {
	case models.StrategySelector:
		return f.evalSelector(doc)
	case models.StrategyXPath:
		return f.evalXPath(doc)
	case models.StrategyRegex:
		return f.evalRegex(doc)
	case models.StrategyJSON:
		return f.evalJSON(doc)
	}
	return "", false, fmt.Errorf("unknown strategy type %q", f.strategy.Type)
}

func (f *Field) evalSelector(doc *Document) (string, bool, error) {
	gq, err := doc.GoQuery()
	if err != nil {
		return "", false, fmt.Errorf("parse document: %w", err)
	}

	match := gq.FindMatcher(f.sel).First()
	if match.Length() == 0 {
		return "", false, nil
	}
	if f.attr != "" {
		attr, ok := match.Attr(f.attr)
		return strings.TrimSpace(attr), ok, nil
	}
	return strings.TrimSpace(match.Text()), true, nil
}

func (f *Field) evalXPath(doc *Document) (string, bool, error) {
	node, err := doc.HTMLNode()
	if err != nil {
		return "", false, fmt.Errorf("parse document: %w", err)
	}

	match := htmlquery.QuerySelector(node, f.xp)
	if match == nil {
		return "", false, nil
	}
	return strings.TrimSpace(htmlquery.InnerText(match)), true, nil
}

func (f *Field) evalRegex(doc *Document) (string, bool, error) {
	m := f.re.FindStringSubmatch(doc.Body())
	if m == nil {
		return "", false, nil
	}
	// First capturing group when the pattern has one, whole match otherwise.
	if len(m) > 1 {
		return m[1], true, nil
	}
	return m[0], true, nil
}

func (f *Field) evalJSON(doc *Document) (string, bool, error) {
	j := doc.JSON()
	if !j.Has(f.path) {
		return "", false, nil
	}
	return gsonString(j.Get(f.path)), true, nil
}

func (f *Field) logFailure(doc *Document, err error) {
	slog.Error("field extraction failed",
		"field", f.name, "document", doc.Label, "error", err)
}

// gsonString renders a resolved JSON value as the string form a strategy
// consumer expects: strings verbatim, scalars formatted, structures encoded.
func gsonString(j gson.JSON) string {
	switch v := j.Val().(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	case nil:
		return ""
	default:
		return j.JSON("", "")
	}
}

// CompileSet compiles every strategy in a set, keyed by field name.
func CompileSet(set models.StrategySet) (map[string]*Field, error) {
	fields := make(map[string]*Field, len(set))
	for name, s := range set {
		f, err := Compile(name, s)
		if err != nil {
			return nil, err
		}
		fields[name] = f
	}
	return fields, nil
}
