package extract

import (
	"bytes"
	"fmt"
	"log/slog"

	"github.com/andybalholm/cascadia"
	"golang.org/x/net/html"

	"pricewatch/models"
)

// List is a compiled list-extraction strategy. Unlike a Field, it selects
// every matching node and serializes each one into an independent
// sub-document for nested field extraction.
//
// Only selector-kind strategies describe repeated structure, so any other
// kind is rejected at compile time.
type List struct {
	sel cascadia.Selector
}

// CompileList validates and compiles a list strategy.
func CompileList(s models.Strategy) (*List, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	if s.Type != models.StrategySelector {
		return nil, models.NewScrapeError(models.ErrCodeInvalidStrategy,
			fmt.Sprintf("list strategy must be a selector, got %q", s.Type), nil)
	}

	sel, err := cascadia.Compile(s.Value)
	if err != nil {
		return nil, models.NewScrapeError(models.ErrCodeInvalidStrategy,
			fmt.Sprintf("invalid list selector %q", s.Value), err)
	}
	return &List{sel: sel}, nil
}

// Extract returns one sub-document per matched node, in document order. Zero
// matches yield an empty slice, never an error.
func (l *List) Extract(doc *Document) []*Document {
	root, err := doc.HTMLNode()
	if err != nil {
		slog.Error("list extraction failed to parse document",
			"document", doc.Label, "error", err)
		return nil
	}

	matches := l.sel.MatchAll(root)
	items := make([]*Document, 0, len(matches))
	for i, node := range matches {
		var buf bytes.Buffer
		if err := html.Render(&buf, node); err != nil {
			slog.Error("list extraction failed to render fragment",
				"document", doc.Label, "index", i, "error", err)
			continue
		}
		label := fmt.Sprintf("%s#%d", doc.Label, i)
		items = append(items, NewDocument(label, buf.String()))
	}
	return items
}
