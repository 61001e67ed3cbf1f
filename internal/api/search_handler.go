package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/tenderwatch/crawler/internal/logger"
)

const defaultSearchLimit = 20

// SearchHandler handles full-text tender search requests.
type SearchHandler struct {
	log      logger.Interface
	searcher Searcher
}

// NewSearchHandler creates a search handler.
func NewSearchHandler(log logger.Interface, searcher Searcher) *SearchHandler {
	return &SearchHandler{log: log, searcher: searcher}
}

// Search handles GET /api/search?q=...&source=...&limit=...
func (h *SearchHandler) Search(c *gin.Context) {
	q := c.Query("q")
	if q == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   "query parameter q is required",
		})
		return
	}

	limit, err := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(defaultSearchLimit)))
	if err != nil || limit < 1 {
		limit = defaultSearchLimit
	}

	hits, err := h.searcher.Search(c.Request.Context(), q, c.Query("source"), limit)
	if err != nil {
		h.log.Error("Search failed", "query", q, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error":   "search failed",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"query":   q,
		"total":   len(hits),
		"hits":    hits,
	})
}
