// Package api wires the HTTP surface: routing, authentication and rate
// limiting around the scrape and search services.
package api

import (
	"time"

	"github.com/gin-gonic/gin"

	"pricewatch/api/handler"
	"pricewatch/api/middleware"
	"pricewatch/config"
	"pricewatch/scraper"
	"pricewatch/search"
	"pricewatch/storage"
)

// NewRouter creates a configured Gin engine with all routes and middleware.
//
// Middleware chain:
//
//	Global:  Recovery → Logger
//	API:     Auth (if enabled) → RateLimit
//
// Health endpoint is intentionally outside auth so monitoring probes always work.
func NewRouter(
	sc *scraper.Scraper,
	svc *search.Service,
	searcher *search.Searcher,
	sources storage.SourceRepo,
	cfg *config.Config,
	startTime time.Time,
) *gin.Engine {
	gin.SetMode(cfg.Server.Mode)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(gin.Logger())

	v1 := r.Group("/api/v1")

	// Health — no auth required.
	v1.GET("/health", handler.Health(startTime))

	// Protected group — auth + rate limit.
	protected := v1.Group("")
	if cfg.Auth.Enabled {
		protected.Use(middleware.Auth(cfg.Auth.APIKeys))
	}
	protected.Use(middleware.RateLimit(cfg.RateLimit))

	// Scrape
	protected.POST("/scrape", handler.Scrape(sc))

	// Search
	protected.POST("/search", handler.PostSearch(svc))
	protected.GET("/search", handler.GetSearch(svc))
	protected.POST("/search/refresh", handler.PostSearchRefresh(svc))
	protected.GET("/sources/:id/search-debug",
		handler.SearchDebug(sources, searcher, cfg.Search.DebugItems))

	// Research records
	protected.GET("/research", handler.Research(svc))

	return r
}
