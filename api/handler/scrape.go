package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"pricewatch/models"
	"pricewatch/scraper"
)

// Scrape returns a handler for POST /api/v1/scrape.
//
// The scrape itself never fails the request: fetch errors and missing
// required fields come back inside the outcome so callers see the attempts,
// the accumulated errors, and which required field was missing. The raw body
// is withheld unless ?include_body=true.
func Scrape(sc *scraper.Scraper) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.ScrapeRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}

		outcome := sc.Scrape(c.Request.Context(), req.URL, scraper.Options{
			StoreID:  req.StoreID,
			UseCache: req.CacheEnabled(),
		})

		if c.Query("include_body") != "true" {
			outcome.Body = ""
		}
		c.JSON(http.StatusOK, outcome)
	}
}
