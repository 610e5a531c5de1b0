package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"pricewatch/search"
	"pricewatch/storage"
)

// Research returns a handler for GET /api/v1/research: the persisted search
// results, filterable by query, source and price range.
func Research(svc *search.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		filter := storage.ResearchFilter{
			Query:    c.Query("query"),
			SourceID: queryInt64(c, "source_id"),
			MinPrice: queryFloat(c, "min_price"),
			MaxPrice: queryFloat(c, "max_price"),
		}

		records, err := svc.Results(filter)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"count":   len(records),
			"records": records,
		})
	}
}

func queryFloat(c *gin.Context, name string) float64 {
	v, err := strconv.ParseFloat(c.Query(name), 64)
	if err != nil {
		return 0
	}
	return v
}
