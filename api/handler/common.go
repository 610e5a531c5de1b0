// Package handler holds the HTTP handlers for the v1 API.
package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"pricewatch/models"
	"pricewatch/storage"
)

// respondError maps an internal error to the correct HTTP status code and
// writes the uniform JSON error envelope.
func respondError(c *gin.Context, err error) {
	if errors.Is(err, storage.ErrNotFound) {
		err = models.NewScrapeError(models.ErrCodeNotFound, "not found", err)
	}

	var scrapeErr *models.ScrapeError
	if !errors.As(err, &scrapeErr) {
		scrapeErr = models.NewScrapeError(models.ErrCodeInternal, err.Error(), err)
	}

	c.JSON(mapErrorToStatus(scrapeErr), models.ErrorResponse{
		Error: scrapeErr.ToDetail(),
	})
}

// mapErrorToStatus translates error codes to HTTP status codes.
func mapErrorToStatus(e *models.ScrapeError) int {
	switch e.Code {
	case models.ErrCodeInvalidInput, models.ErrCodeInvalidStrategy:
		return http.StatusBadRequest // 400
	case models.ErrCodeNotFound, models.ErrCodeNoStoreMatch:
		return http.StatusNotFound // 404
	case models.ErrCodeUnauthorized:
		return http.StatusUnauthorized // 401
	case models.ErrCodeRateLimited:
		return http.StatusTooManyRequests // 429
	case models.ErrCodeFetchFailed:
		return http.StatusBadGateway // 502
	default:
		return http.StatusInternalServerError // 500
	}
}

func badRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, models.ErrorResponse{
		Error: &models.ErrorDetail{
			Code:    models.ErrCodeInvalidInput,
			Message: message,
		},
	})
}
