package engine

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/launcher/flags"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
	"github.com/ysmood/gson"
)

// BrowserConfig controls the rod browser instance behind the browser engine.
type BrowserConfig struct {
	Headless   bool
	MaxPages   int
	NoSandbox  bool
	BrowserBin string
	Proxy      string

	// NavigationTimeout bounds page navigation alone; the request timeout
	// bounds the whole fetch.
	NavigationTimeout time.Duration
}

// BrowserEngine is the heavyweight backend: a shared headless browser with a
// reusable page pool. It executes client-side rendering, so it handles pages
// the HTTP engine cannot, at a latency cost.
type BrowserEngine struct {
	browser  *rod.Browser
	pagePool rod.Pool[rod.Page]
	cfg      BrowserConfig
}

// NewBrowserEngine launches the headless browser and initialises the page pool.
func NewBrowserEngine(cfg BrowserConfig) (*BrowserEngine, error) {
	l := launcher.New().
		Headless(cfg.Headless).
		NoSandbox(cfg.NoSandbox)

	if cfg.BrowserBin != "" {
		l = l.Bin(cfg.BrowserBin)
	}
	if cfg.Proxy != "" {
		l = l.Proxy(cfg.Proxy)
	}

	l.Set(flags.Flag("disable-blink-features"), "AutomationControlled")
	l.Delete(flags.Flag("enable-automation"))
	l.Set(flags.Flag("disable-background-timer-throttling"))
	l.Set(flags.Flag("disable-backgrounding-occluded-windows"))
	l.Set(flags.Flag("disable-component-update"))
	l.Set(flags.Flag("disable-default-apps"))
	l.Set(flags.Flag("disable-dev-shm-usage"))
	l.Set(flags.Flag("disable-extensions"))
	l.Set(flags.Flag("no-first-run"))

	controlURL, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("browser engine: launch: %w", err)
	}
	slog.Info("browser launched", "controlURL", controlURL)

	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		return nil, fmt.Errorf("browser engine: connect: %w", err)
	}

	return &BrowserEngine{
		browser:  browser,
		pagePool: rod.NewPagePool(cfg.MaxPages),
		cfg:      cfg,
	}, nil
}

func (e *BrowserEngine) Name() string { return "browser" }

// Fetch renders the page in a pooled tab and returns the final DOM.
//
// Recognized request options:
//
//	stealth=true          inject stealth JS before navigation
//	wait_selector=<css>   wait for an element to appear after navigation
//	wait_ms=<n>           fixed extra wait after navigation
func (e *BrowserEngine) Fetch(ctx context.Context, req *FetchRequest) (*FetchResult, error) {
	timeout := req.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	page, acquireErr := e.pagePool.Get(func() (*rod.Page, error) {
		return e.browser.Page(proto.TargetCreateTarget{})
	})
	if acquireErr != nil {
		return nil, fmt.Errorf("browser engine: acquire page: %w", acquireErr)
	}

	// Cleanup uses the original page reference (without the request context)
	// so it succeeds even after the request deadline expires. Navigating to
	// about:blank prevents DOM memory from accumulating in pooled tabs.
	defer func() {
		if navErr := page.Navigate("about:blank"); navErr != nil {
			slog.Warn("cleanup: failed to navigate to about:blank", "error", navErr)
		}
		e.pagePool.Put(page)
	}()

	// Stealth must be injected before navigation to take effect.
	if req.Option("stealth", "") == "true" {
		if _, evalErr := page.EvalOnNewDocument(stealth.JS); evalErr != nil {
			slog.Warn("stealth injection failed, proceeding without stealth", "error", evalErr)
		}
	}

	if len(req.Headers) > 0 {
		_ = proto.NetworkSetExtraHTTPHeaders{
			Headers: toHeadersMap(req.Headers),
		}.Call(page)
	}

	p := page.Context(ctx)

	if navErr := p.Navigate(req.URL); navErr != nil {
		return nil, fmt.Errorf("browser engine: navigate: %w", navErr)
	}

	if stableErr := p.WaitDOMStable(300*time.Millisecond, 0.1); stableErr != nil {
		slog.Debug("WaitDOMStable did not converge, proceeding with current DOM",
			"error", stableErr)
	}

	if sel := req.Option("wait_selector", ""); sel != "" {
		if _, waitErr := p.Element(sel); waitErr != nil {
			slog.Warn("wait_selector never appeared, proceeding",
				"selector", sel, "url", req.URL, "error", waitErr)
		}
	}
	if ms := req.Option("wait_ms", ""); ms != "" {
		if n, convErr := strconv.Atoi(ms); convErr == nil && n > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(time.Duration(n) * time.Millisecond):
			}
		}
	}

	rawHTML, htmlErr := p.HTML()
	if htmlErr != nil {
		return nil, fmt.Errorf("browser engine: extract html: %w", htmlErr)
	}

	// Status code via the navigation performance entry; CDP event listeners
	// conflict with the Fetch domain on recent Chromium.
	statusCode := 0
	if res, err := p.Eval(`() => {
		try {
			const entries = performance.getEntriesByType("navigation");
			if (entries.length > 0) return entries[0].responseStatus || 0;
		} catch(e) {}
		return 0;
	}`); err == nil {
		statusCode = res.Value.Int()
	}

	finalURL := evalStringOrEmpty(p, `() => window.location.href`)
	if finalURL == "" {
		finalURL = req.URL
	}

	return &FetchResult{
		Body:       rawHTML,
		StatusCode: statusCode,
		FinalURL:   finalURL,
		EngineName: e.Name(),
	}, nil
}

// Close drains the page pool and kills the browser process. Call on graceful
// shutdown to prevent zombie Chrome processes.
func (e *BrowserEngine) Close() {
	slog.Info("browser engine shutting down: draining page pool")
	e.pagePool.Cleanup(func(p *rod.Page) {
		_ = p.Close()
	})
	e.browser.MustClose()
	slog.Info("browser engine shutdown complete")
}

// evalStringOrEmpty evaluates a JS expression and returns the string result,
// swallowing any errors (useful for optional metadata extraction).
func evalStringOrEmpty(page *rod.Page, js string) string {
	res, err := page.Eval(js)
	if err != nil {
		return ""
	}
	return res.Value.Str()
}

// toHeadersMap converts a plain string map to the proto.NetworkHeaders type
// required by NetworkSetExtraHTTPHeaders.
func toHeadersMap(headers map[string]string) proto.NetworkHeaders {
	m := make(proto.NetworkHeaders, len(headers))
	for k, v := range headers {
		m[k] = gson.New(v)
	}
	return m
}
