package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// scrapeRequest mirrors the Pricewatch API request model.
type scrapeRequest struct {
	URL      string `json:"url"`
	StoreID  int64  `json:"store_id,omitempty"`
	UseCache *bool  `json:"use_cache,omitempty"`
}

// scrapeResponse mirrors the Pricewatch scrape outcome.
type scrapeResponse struct {
	URL             string             `json:"url"`
	Fields          map[string]*string `json:"fields"`
	Errors          []string           `json:"errors"`
	Attempts        int                `json:"attempts"`
	StoreName       string             `json:"store_name"`
	MissingRequired string             `json:"missing_required"`
}

// searchStateResponse mirrors the Pricewatch search job state.
type searchStateResponse struct {
	Query      string `json:"query"`
	InProgress bool   `json:"in_progress"`
	Complete   bool   `json:"complete"`
	Log        []struct {
		Message   string    `json:"message"`
		Timestamp time.Time `json:"timestamp"`
	} `json:"log"`
}

// researchResponse mirrors the Pricewatch research listing.
type researchResponse struct {
	Count   int `json:"count"`
	Records []struct {
		Title      string  `json:"title"`
		URL        string  `json:"url"`
		Price      float64 `json:"price"`
		SourceName string  `json:"source_name"`
	} `json:"records"`
}

func main() {
	apiURL := os.Getenv("PRICEWATCH_API_URL")
	if apiURL == "" {
		apiURL = "http://127.0.0.1:8080"
	}
	apiKey := os.Getenv("PRICEWATCH_API_KEY")
	if apiKey == "" {
		fmt.Fprintln(os.Stderr, "PRICEWATCH_API_KEY is required")
		os.Exit(1)
	}

	s := server.NewMCPServer(
		"pricewatch",
		"1.0.0",
		server.WithToolCapabilities(false),
	)

	scrapeTool := mcp.NewTool("scrape_product",
		mcp.WithDescription("Scrape a product page and return the extracted fields (title, price, image, description). The store configuration is matched by the URL's domain."),
		mcp.WithString("url",
			mcp.Required(),
			mcp.Description("The URL of the product page to scrape"),
		),
		mcp.WithNumber("store_id",
			mcp.Description("Explicit store configuration ID, bypassing domain matching"),
		),
	)
	s.AddTool(scrapeTool, handleScrapeProduct(apiURL, apiKey))

	searchTool := mcp.NewTool("search_products",
		mcp.WithDescription("Search for a product across the configured sources. Dispatches a background search, waits for it to complete, and returns the collected results."),
		mcp.WithString("query",
			mcp.Required(),
			mcp.Description("The product search query"),
		),
		mcp.WithNumber("source_id",
			mcp.Description("Restrict the search to one source"),
		),
	)
	s.AddTool(searchTool, handleSearchProducts(apiURL, apiKey))

	researchTool := mcp.NewTool("get_search_results",
		mcp.WithDescription("List stored search results, filterable by query and price range."),
		mcp.WithString("query",
			mcp.Description("Filter by the original search query"),
		),
		mcp.WithNumber("min_price",
			mcp.Description("Minimum price filter"),
		),
		mcp.WithNumber("max_price",
			mcp.Description("Maximum price filter"),
		),
	)
	s.AddTool(researchTool, handleListResearch(apiURL, apiKey))

	if err := server.ServeStdio(s); err != nil {
		fmt.Fprintf(os.Stderr, "server error: %v\n", err)
		os.Exit(1)
	}
}

// apiPost sends a POST request to the Pricewatch API and returns the response body.
func apiPost(ctx context.Context, client *http.Client, apiURL, apiKey, path string, payload interface{}) ([]byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, apiURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-API-Key", apiKey)

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("API request failed: %w", err)
	}
	defer resp.Body.Close()

	return io.ReadAll(resp.Body)
}

// apiGet sends a GET request to the Pricewatch API and returns the response body.
func apiGet(ctx context.Context, client *http.Client, apiURL, apiKey, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, apiURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("X-API-Key", apiKey)

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("API request failed: %w", err)
	}
	defer resp.Body.Close()

	return io.ReadAll(resp.Body)
}

func handleScrapeProduct(apiURL, apiKey string) server.ToolHandlerFunc {
	client := &http.Client{Timeout: 120 * time.Second}

	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		pageURL, err := request.RequireString("url")
		if err != nil {
			return mcp.NewToolResultError("url is required"), nil
		}

		reqBody := scrapeRequest{URL: pageURL}
		if storeID := request.GetFloat("store_id", 0); storeID > 0 {
			reqBody.StoreID = int64(storeID)
		}

		respBody, err := apiPost(ctx, client, apiURL, apiKey, "/api/v1/scrape", reqBody)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("scrape request failed: %v", err)), nil
		}

		var sr scrapeResponse
		if err := json.Unmarshal(respBody, &sr); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to parse response: %v", err)), nil
		}

		if sr.MissingRequired != "" {
			return mcp.NewToolResultError(fmt.Sprintf(
				"scrape failed after %d attempts: missing required field %q (errors: %s)",
				sr.Attempts, sr.MissingRequired, strings.Join(sr.Errors, "; "))), nil
		}

		var sb strings.Builder
		fmt.Fprintf(&sb, "Store: %s\nURL: %s\n\n", sr.StoreName, sr.URL)
		for _, key := range []string{"title", "price", "image", "description"} {
			if v := sr.Fields[key]; v != nil && *v != "" {
				fmt.Fprintf(&sb, "%s: %s\n", key, *v)
			}
		}
		return mcp.NewToolResultText(sb.String()), nil
	}
}

func handleSearchProducts(apiURL, apiKey string) server.ToolHandlerFunc {
	client := &http.Client{Timeout: 600 * time.Second}

	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		query, err := request.RequireString("query")
		if err != nil {
			return mcp.NewToolResultError("query is required"), nil
		}
		sourceID := int64(request.GetFloat("source_id", 0))

		payload := map[string]interface{}{"query": query}
		if sourceID > 0 {
			payload["source_id"] = sourceID
		}

		if _, err := apiPost(ctx, client, apiURL, apiKey, "/api/v1/search", payload); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("search request failed: %v", err)), nil
		}

		// Poll the job state until the search completes.
		pollPath := "/api/v1/search?query=" + url.QueryEscape(query)
		if sourceID > 0 {
			pollPath += "&source_id=" + strconv.FormatInt(sourceID, 10)
		}

		ticker := time.NewTicker(2 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return mcp.NewToolResultError("search cancelled"), nil
			case <-ticker.C:
			}

			body, err := apiGet(ctx, client, apiURL, apiKey, pollPath)
			if err != nil {
				return mcp.NewToolResultError(fmt.Sprintf("poll request failed: %v", err)), nil
			}
			var state searchStateResponse
			if err := json.Unmarshal(body, &state); err != nil {
				return mcp.NewToolResultError(fmt.Sprintf("failed to parse poll response: %v", err)), nil
			}
			if state.Complete {
				break
			}
		}

		// Fetch the collected results.
		resBody, err := apiGet(ctx, client, apiURL, apiKey,
			"/api/v1/research?query="+url.QueryEscape(query))
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("research request failed: %v", err)), nil
		}
		return mcp.NewToolResultText(formatResearch(resBody)), nil
	}
}

func handleListResearch(apiURL, apiKey string) server.ToolHandlerFunc {
	client := &http.Client{Timeout: 30 * time.Second}

	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		params := url.Values{}
		if q := request.GetString("query", ""); q != "" {
			params.Set("query", q)
		}
		if v := request.GetFloat("min_price", 0); v > 0 {
			params.Set("min_price", strconv.FormatFloat(v, 'f', -1, 64))
		}
		if v := request.GetFloat("max_price", 0); v > 0 {
			params.Set("max_price", strconv.FormatFloat(v, 'f', -1, 64))
		}

		path := "/api/v1/research"
		if len(params) > 0 {
			path += "?" + params.Encode()
		}

		body, err := apiGet(ctx, client, apiURL, apiKey, path)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("research request failed: %v", err)), nil
		}
		return mcp.NewToolResultText(formatResearch(body)), nil
	}
}

func formatResearch(body []byte) string {
	var rr researchResponse
	if err := json.Unmarshal(body, &rr); err != nil {
		return "failed to parse research response: " + err.Error()
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Found %d results:\n\n", rr.Count)
	for _, rec := range rr.Records {
		fmt.Fprintf(&sb, "- %s", rec.Title)
		if rec.Price > 0 {
			fmt.Fprintf(&sb, " (%.2f)", rec.Price)
		}
		if rec.SourceName != "" {
			fmt.Fprintf(&sb, " [%s]", rec.SourceName)
		}
		fmt.Fprintf(&sb, "\n  %s\n", rec.URL)
	}
	return sb.String()
}
