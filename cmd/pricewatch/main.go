package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"pricewatch/api"
	"pricewatch/config"
	"pricewatch/engine"
	"pricewatch/notify"
	"pricewatch/queue"
	"pricewatch/scraper"
	"pricewatch/search"
	"pricewatch/storage"
)

func main() {
	// ── 1. Load configuration ───────────────────────────────────────
	cfg := config.Load()

	// ── 2. Initialise structured logging ────────────────────────────
	initLogger(cfg.Log)
	slog.Info("pricewatch starting",
		"host", cfg.Server.Host,
		"port", cfg.Server.Port,
		"mode", cfg.Server.Mode,
	)

	// ── 3. Fetch backends + shared response cache ───────────────────
	cache := engine.NewResponseCache(cfg.Fetch.CacheMaxEntries)

	engines := []engine.Engine{
		engine.WithCache(engine.NewHTTPEngine(cfg.Fetch.HTTPTimeout), cache),
	}

	browser, err := engine.NewBrowserEngine(engine.BrowserConfig{
		Headless:          cfg.Browser.Headless,
		MaxPages:          cfg.Browser.MaxPages,
		NoSandbox:         cfg.Browser.NoSandbox,
		BrowserBin:        cfg.Browser.BrowserBin,
		Proxy:             cfg.Browser.Proxy,
		NavigationTimeout: cfg.Browser.NavigationTimeout,
	})
	if err != nil {
		// Stores configured for the browser backend will fail their scrapes;
		// everything on the HTTP backend keeps working.
		slog.Warn("browser backend unavailable", "error", err)
	} else {
		defer browser.Close()
		engines = append(engines, engine.WithCache(browser, cache))
	}
	registry := engine.NewRegistry(engines...)

	// ── 4. Storage ──────────────────────────────────────────────────
	if cfg.Storage.SeedFile == "" {
		slog.Error("PRICEWATCH_SEED_FILE is required (stores/sources configuration)")
		os.Exit(1)
	}
	stores, sources, err := storage.LoadSeed(cfg.Storage.SeedFile)
	if err != nil {
		slog.Error("failed to load seed file", "file", cfg.Storage.SeedFile, "error", err)
		os.Exit(1)
	}

	db, err := storage.OpenBadger(cfg.Storage.DataDir)
	if err != nil {
		slog.Error("failed to open badger database", "dir", cfg.Storage.DataDir, "error", err)
		os.Exit(1)
	}
	defer db.Close()

	research := storage.NewBadgerResearchRepo(db)
	jobStates := storage.NewBadgerJobStateStore(db)

	pruner := storage.NewPruner(research, cfg.Search.ResearchLifetime)
	if err := pruner.Start(cfg.Search.PruneSchedule); err != nil {
		slog.Error("failed to start research pruner", "error", err)
		os.Exit(1)
	}
	defer pruner.Stop()

	// ── 5. Notifications ────────────────────────────────────────────
	var notifier notify.Notifier = notify.LogNotifier{}
	if cfg.Notify.WebhookURL != "" {
		notifier = notify.NewWebhookNotifier(cfg.Notify.WebhookURL, cfg.Notify.WebhookSecret)
	}

	// ── 6. Scrape + search services ─────────────────────────────────
	sc := scraper.New(stores, registry, notifier, cfg.Scrape, cfg.Fetch)

	jobs := queue.New(cfg.Queue.Workers, cfg.Queue.Capacity)
	defer jobs.Close()

	searcher := search.NewSearcher(registry, cfg.Fetch.DefaultTimeout)
	svc := search.NewService(sources, research, jobStates, searcher, jobs, notifier, cfg.Search)

	// ── 7. Setup router ─────────────────────────────────────────────
	startTime := time.Now()
	router := api.NewRouter(sc, svc, searcher, sources, cfg, startTime)

	// ── 8. Start HTTP server ────────────────────────────────────────
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	go func() {
		slog.Info("HTTP server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("HTTP server error", "error", err)
			os.Exit(1)
		}
	}()

	// ── 9. Graceful shutdown ────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	slog.Info("shutdown signal received", "signal", sig.String())

	// Give in-flight requests 5 seconds to complete.
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("HTTP server forced shutdown", "error", err)
	} else {
		slog.Info("HTTP server drained gracefully")
	}

	// Deferred cleanup drains the job queue, stops the pruner, closes badger
	// and the browser.
	slog.Info("pricewatch stopped")
}

// initLogger configures slog based on the LogConfig.
func initLogger(cfg config.LogConfig) {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if cfg.Format == "text" {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	slog.SetDefault(slog.New(handler))
}
