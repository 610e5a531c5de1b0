package extract

import (
	"testing"

	"pricewatch/models"
)

const productPage = `<!DOCTYPE html>
<html>
<head><title>Page</title></head>
<body>
	<h1 class="product-name">  Mechanical Keyboard  </h1>
	<span class="price" data-amount="129.99">€ 129,99</span>
	<img id="hero" src="/img/keyboard.jpg" alt="keyboard">
	<div class="sku">SKU-48151</div>
	<a class="buy" href="/cart/add?id=42">Add to cart</a>
</body>
</html>`

func TestCompileRejectsInvalidStrategies(t *testing.T) {
	tests := []struct {
		name     string
		strategy models.Strategy
	}{
		{"unknown kind", models.Strategy{Type: "css", Value: "h1"}},
		{"empty value", models.Strategy{Type: models.StrategySelector, Value: "   "}},
		{"bad selector", models.Strategy{Type: models.StrategySelector, Value: "p[/"}},
		{"bad xpath", models.Strategy{Type: models.StrategyXPath, Value: "///["}},
		{"bad regex", models.Strategy{Type: models.StrategyRegex, Value: "("}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Compile("title", tt.strategy)
			if err == nil {
				t.Fatalf("Compile(%v) succeeded, want error", tt.strategy)
			}
			scrapeErr, ok := err.(*models.ScrapeError)
			if !ok {
				t.Fatalf("error type = %T, want *models.ScrapeError", err)
			}
			if scrapeErr.Code != models.ErrCodeInvalidStrategy {
				t.Errorf("error code = %q, want %q", scrapeErr.Code, models.ErrCodeInvalidStrategy)
			}
		})
	}
}

func TestFieldExtract(t *testing.T) {
	tests := []struct {
		name     string
		strategy models.Strategy
		body     string
		want     string
	}{
		{
			name:     "selector text content trimmed",
			strategy: models.Strategy{Type: models.StrategySelector, Value: "h1.product-name"},
			body:     productPage,
			want:     "Mechanical Keyboard",
		},
		{
			name:     "selector attribute",
			strategy: models.Strategy{Type: models.StrategySelector, Value: "img#hero|src"},
			body:     productPage,
			want:     "/img/keyboard.jpg",
		},
		{
			name:     "selector attribute with prepend",
			strategy: models.Strategy{Type: models.StrategySelector, Value: "a.buy|href", Prepend: "https://shop.example"},
			body:     productPage,
			want:     "https://shop.example/cart/add?id=42",
		},
		{
			name:     "selector data attribute",
			strategy: models.Strategy{Type: models.StrategySelector, Value: "span.price|data-amount"},
			body:     productPage,
			want:     "129.99",
		},
		{
			name:     "selector no match assembles around empty value",
			strategy: models.Strategy{Type: models.StrategySelector, Value: ".does-not-exist", Prepend: "a-", Append: "-z"},
			body:     productPage,
			want:     "a--z",
		},
		{
			name:     "xpath inner text",
			strategy: models.Strategy{Type: models.StrategyXPath, Value: `//div[@class="sku"]`},
			body:     productPage,
			want:     "SKU-48151",
		},
		{
			name:     "xpath no match assembles around empty value",
			strategy: models.Strategy{Type: models.StrategyXPath, Value: `//div[@class="ean"]`, Prepend: "a-", Append: "-z"},
			body:     productPage,
			want:     "a--z",
		},
		{
			name:     "regex whole match without groups",
			strategy: models.Strategy{Type: models.StrategyRegex, Value: `SKU-\d+`},
			body:     productPage,
			want:     "SKU-48151",
		},
		{
			name:     "regex first capturing group",
			strategy: models.Strategy{Type: models.StrategyRegex, Value: `data-amount="([\d.]+)"`},
			body:     productPage,
			want:     "129.99",
		},
		{
			name:     "json string path",
			strategy: models.Strategy{Type: models.StrategyJSON, Value: "product.title"},
			body:     `{"product":{"title":"Laptop Stand","price":39.5}}`,
			want:     "Laptop Stand",
		},
		{
			name:     "json numeric path",
			strategy: models.Strategy{Type: models.StrategyJSON, Value: "product.price"},
			body:     `{"product":{"title":"Laptop Stand","price":39.5}}`,
			want:     "39.5",
		},
		{
			name:     "json missing path assembles around empty value",
			strategy: models.Strategy{Type: models.StrategyJSON, Value: "product.ean", Append: "!"},
			body:     `{"product":{"title":"Laptop Stand"}}`,
			want:     "!",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := Compile("field", tt.strategy)
			if err != nil {
				t.Fatalf("Compile() error = %v", err)
			}
			got := f.Extract(NewDocument("test", tt.body))
			if got == nil {
				t.Fatal("Extract() = nil, want value")
			}
			if *got != tt.want {
				t.Errorf("Extract() = %q, want %q", *got, tt.want)
			}
		})
	}
}

func TestFieldFirst(t *testing.T) {
	f, err := Compile("title", models.Strategy{
		Type: models.StrategySelector, Value: "h1.product-name", Prepend: "ignored-",
	})
	if err != nil {
		t.Fatalf("Compile() error = %v", err)
	}

	got, found := f.First(NewDocument("test", productPage))
	if !found {
		t.Fatal("First() found = false, want true")
	}
	// First returns the raw match; prepend/append belong to Extract only.
	if got != "Mechanical Keyboard" {
		t.Errorf("First() = %q, want %q", got, "Mechanical Keyboard")
	}

	_, found = f.First(NewDocument("test", "<html><body></body></html>"))
	if found {
		t.Error("First() on non-matching document found = true, want false")
	}
}

func TestCompileSet(t *testing.T) {
	set := models.StrategySet{
		models.FieldTitle: {Type: models.StrategySelector, Value: "h1"},
		models.FieldPrice: {Type: models.StrategyRegex, Value: `€\s*([\d,.]+)`},
	}
	fields, err := CompileSet(set)
	if err != nil {
		t.Fatalf("CompileSet() error = %v", err)
	}
	if len(fields) != 2 {
		t.Fatalf("CompileSet() compiled %d fields, want 2", len(fields))
	}

	set[models.FieldImage] = models.Strategy{Type: "nope", Value: "x"}
	if _, err := CompileSet(set); err == nil {
		t.Error("CompileSet() with invalid strategy succeeded, want error")
	}
}
