package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"pricewatch/models"
	"pricewatch/search"
	"pricewatch/storage"
)

// PostSearch returns a handler for POST /api/v1/search.
//
// Dispatches a background search job and returns the job state. A repeated
// dispatch inside the dedup window returns the existing state with 200
// instead of 202.
func PostSearch(svc *search.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.SearchRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}

		state, dispatched, err := svc.Dispatch(req.Query, req.SourceID)
		if err != nil {
			respondError(c, err)
			return
		}

		status := http.StatusOK
		if dispatched {
			status = http.StatusAccepted
		}
		c.JSON(status, stateResponse(state))
	}
}

// GetSearch returns a handler for GET /api/v1/search. Pollers pass the query
// (and optional source_id) as query parameters.
func GetSearch(svc *search.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		query := c.Query("query")
		if query == "" {
			badRequest(c, "query parameter is required")
			return
		}

		state, err := svc.State(query, queryInt64(c, "source_id"))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, stateResponse(state))
	}
}

// PostSearchRefresh returns a handler for POST /api/v1/search/refresh: a
// running search gets a progress entry, a finished one is returned as-is,
// and an untracked one is dispatched.
func PostSearchRefresh(svc *search.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.SearchRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}

		state, dispatched, err := svc.Refresh(req.Query, req.SourceID)
		if err != nil {
			respondError(c, err)
			return
		}

		status := http.StatusOK
		if dispatched {
			status = http.StatusAccepted
		}
		c.JSON(status, stateResponse(state))
	}
}

// SearchDebug returns a handler for GET /api/v1/sources/:id/search-debug:
// the raw results page of one source plus a capped number of raw item
// fragments with the values extracted from each.
func SearchDebug(sources storage.SourceRepo, searcher *search.Searcher, maxItems int) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := strconv.ParseInt(c.Param("id"), 10, 64)
		if err != nil {
			badRequest(c, "invalid source id")
			return
		}
		query := c.Query("query")
		if query == "" {
			badRequest(c, "query parameter is required")
			return
		}

		source, err := sources.ByID(id)
		if err != nil {
			respondError(c, err)
			return
		}

		items := maxItems
		if n, err := strconv.Atoi(c.Query("items")); err == nil && n > 0 && n < maxItems {
			items = n
		}

		resp, err := searcher.Debug(c.Request.Context(), source, query, items)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, resp)
	}
}

func stateResponse(state models.SearchJobState) models.SearchStateResponse {
	return models.SearchStateResponse{
		Query:        state.Query,
		SourceID:     state.SourceID,
		InProgress:   state.InProgress(),
		Complete:     state.Complete(),
		DispatchedAt: state.DispatchedAt,
		CompletedAt:  state.CompletedAt,
		Log:          state.Log,
	}
}

func queryInt64(c *gin.Context, name string) int64 {
	v, err := strconv.ParseInt(c.Query(name), 10, 64)
	if err != nil {
		return 0
	}
	return v
}
