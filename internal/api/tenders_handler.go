package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/tenderwatch/crawler/internal/logger"
	"github.com/tenderwatch/crawler/internal/sources"
)

const (
	defaultPageLimit   = 20
	defaultLatestCount = 5
	maxLatestCount     = 50
)

// TendersHandler handles tender lookup requests.
type TendersHandler struct {
	log     logger.Interface
	manager *sources.Manager
	querier TenderQuerier
}

// NewTendersHandler creates a tenders handler.
func NewTendersHandler(log logger.Interface, manager *sources.Manager, querier TenderQuerier) *TendersHandler {
	return &TendersHandler{log: log, manager: manager, querier: querier}
}

// ListSources handles GET /api/sources.
func (h *TendersHandler) ListSources(c *gin.Context) {
	all := h.manager.All()

	type sourceInfo struct {
		ID   string `json:"id"`
		Name string `json:"name"`
		URL  string `json:"url"`
	}
	infos := make([]sourceInfo, 0, len(all))
	for _, src := range all {
		infos = append(infos, sourceInfo{ID: src.ID, Name: src.Name, URL: src.ListingURL()})
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"sources": infos,
	})
}

// GetTenders handles GET /api/tenders/:source. Without query parameters
// the full listing is returned; page/limit select one page of it.
func (h *TendersHandler) GetTenders(c *gin.Context) {
	sourceID := c.Param("source")

	pageStr := c.Query("page")
	limitStr := c.Query("limit")
	if pageStr == "" && limitStr == "" {
		resp, err := h.querier.GetTenderData(c.Request.Context(), sourceID)
		if err != nil {
			h.respondLookupError(c, sourceID, err)
			return
		}
		c.JSON(http.StatusOK, resp)
		return
	}

	page, err := strconv.Atoi(pageStr)
	if err != nil || page < 1 {
		page = 1
	}
	limit, err := strconv.Atoi(limitStr)
	if err != nil || limit < 1 {
		limit = defaultPageLimit
	}

	resp, err := h.querier.GetTenderDataPage(c.Request.Context(), sourceID, page, limit)
	if err != nil {
		h.respondLookupError(c, sourceID, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// GetLatest handles GET /api/tenders/:source/latest. Listings are scraped
// in page order, newest first, so the head of the data is the latest.
func (h *TendersHandler) GetLatest(c *gin.Context) {
	sourceID := c.Param("source")

	count, err := strconv.Atoi(c.DefaultQuery("count", strconv.Itoa(defaultLatestCount)))
	if err != nil || count < 1 {
		count = defaultLatestCount
	}
	if count > maxLatestCount {
		count = maxLatestCount
	}

	resp, err := h.querier.GetTenderData(c.Request.Context(), sourceID)
	if err != nil {
		h.respondLookupError(c, sourceID, err)
		return
	}

	// The facade may hand the same envelope to concurrent requests, so
	// truncate a copy rather than the shared struct.
	if len(resp.Data) > count {
		head := *resp
		head.Data = resp.Data[:count]
		c.JSON(http.StatusOK, &head)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *TendersHandler) respondLookupError(c *gin.Context, sourceID string, err error) {
	if errors.Is(err, sources.ErrUnknownSource) {
		c.JSON(http.StatusNotFound, gin.H{
			"success": false,
			"error":   "unknown source: " + sourceID,
		})
		return
	}

	h.log.Error("Tender lookup failed", "source_id", sourceID, "error", err)
	c.JSON(http.StatusInternalServerError, gin.H{
		"success": false,
		"error":   "failed to retrieve tender data",
	})
}
