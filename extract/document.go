package extract

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/antchfx/htmlquery"
	"github.com/ysmood/gson"
	"golang.org/x/net/html"
)

// Document wraps one fetched body and memoizes its parsed representations so
// a strategy set extracting several fields parses the body at most once per
// representation. A Document is used by a single goroutine.
type Document struct {
	// Label identifies the document in logs (URL or fragment index).
	Label string

	body string

	gq    *goquery.Document
	gqErr error
	gqSet bool

	node    *html.Node
	nodeErr error
	nodeSet bool

	json    *gson.JSON
	jsonSet bool
}

// NewDocument creates a Document for a fetched body. label shows up in
// extraction failure logs so operators can tell which page or fragment broke.
func NewDocument(label, body string) *Document {
	return &Document{Label: label, body: body}
}

// Body returns the raw document text.
func (d *Document) Body() string {
	return d.body
}

// GoQuery returns the goquery representation, parsing on first use.
func (d *Document) GoQuery() (*goquery.Document, error) {
	if !d.gqSet {
		d.gq, d.gqErr = goquery.NewDocumentFromReader(strings.NewReader(d.body))
		d.gqSet = true
	}
	return d.gq, d.gqErr
}

// HTMLNode returns the x/net/html node tree, parsing on first use.
func (d *Document) HTMLNode() (*html.Node, error) {
	if !d.nodeSet {
		d.node, d.nodeErr = htmlquery.Parse(strings.NewReader(d.body))
		d.nodeSet = true
	}
	return d.node, d.nodeErr
}

// JSON returns the gson representation, parsing on first use. Bodies that are
// not valid JSON yield a JSON value that resolves no paths.
func (d *Document) JSON() *gson.JSON {
	if !d.jsonSet {
		j := gson.NewFrom(d.body)
		d.json = &j
		d.jsonSet = true
	}
	return d.json
}
