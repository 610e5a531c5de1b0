package scraper

import (
	"log/slog"
	nurl "net/url"
	"strings"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/table"
	readability "github.com/go-shiori/go-readability"
)

// minExcerptLength is the minimum readability excerpt length for the
// description fallback to be trusted. Shorter output usually means the
// algorithm failed to find the main content.
const minExcerptLength = 20

// contentTools bundles the optional description helpers: a readability
// fallback when a store defines no description strategy, and a markdown
// converter for stores that request it. The converter is goroutine-safe and
// shared across scrapes.
type contentTools struct {
	conv *converter.Converter
}

func newContentTools() *contentTools {
	return &contentTools{
		conv: converter.NewConverter(
			converter.WithPlugins(
				base.NewBasePlugin(),
				commonmark.NewCommonmarkPlugin(),
				table.NewTablePlugin(
					table.WithCellPaddingBehavior(table.CellPaddingBehaviorMinimal),
				),
			),
		),
	}
}

// describe derives a product description from the whole page via the Mozilla
// Readability algorithm. It prefers the article excerpt and falls back to the
// leading text content. Returns "" when nothing usable was found.
func (c *contentTools) describe(rawHTML, sourceURL string) string {
	parsedURL, err := nurl.Parse(sourceURL)
	if err != nil {
		slog.Warn("readability: invalid source URL", "url", sourceURL, "error", err)
		return ""
	}

	article, err := readability.FromReader(strings.NewReader(rawHTML), parsedURL)
	if err != nil {
		slog.Warn("readability: extraction failed", "url", sourceURL, "error", err)
		return ""
	}

	if excerpt := strings.TrimSpace(article.Excerpt); len(excerpt) >= minExcerptLength {
		return excerpt
	}
	return strings.TrimSpace(article.TextContent)
}

// toMarkdown converts a description HTML fragment to Markdown. The source URL
// domain resolves relative links so the output is self-contained.
func (c *contentTools) toMarkdown(htmlContent, sourceURL string) (string, error) {
	domain := ""
	if u, err := nurl.Parse(sourceURL); err == nil {
		domain = u.Hostname()
	}
	return c.conv.ConvertString(htmlContent, converter.WithDomain(domain))
}
