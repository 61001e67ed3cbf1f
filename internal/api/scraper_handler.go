package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tenderwatch/crawler/internal/logger"
)

// ScraperHandler handles the admin endpoints controlling the scheduler.
type ScraperHandler struct {
	log       logger.Interface
	scheduler Scheduler
}

// NewScraperHandler creates a scraper admin handler.
func NewScraperHandler(log logger.Interface, scheduler Scheduler) *ScraperHandler {
	return &ScraperHandler{log: log, scheduler: scheduler}
}

// Statuses handles GET /api/scraper/status.
func (h *ScraperHandler) Statuses(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"running": h.scheduler.Running(),
		"jobs":    h.scheduler.Statuses(),
	})
}

// Status handles GET /api/scraper/status/:source.
func (h *ScraperHandler) Status(c *gin.Context) {
	sourceID := c.Param("source")

	state, err := h.scheduler.Status(sourceID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{
			"success": false,
			"error":   "unknown source: " + sourceID,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"job":     state,
	})
}

// Start handles POST /api/scraper/start.
func (h *ScraperHandler) Start(c *gin.Context) {
	if err := h.scheduler.Start(c.Request.Context()); err != nil {
		h.log.Error("Starting scheduler failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error":   "failed to start scheduler",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "running": true})
}

// Stop handles POST /api/scraper/stop.
func (h *ScraperHandler) Stop(c *gin.Context) {
	h.scheduler.Stop()
	c.JSON(http.StatusOK, gin.H{"success": true, "running": false})
}

// Run handles POST /api/scraper/run/:source. The scrape itself happens
// asynchronously; 202 means it was accepted, 409 that the source is
// already running or inside its minimum run gap.
func (h *ScraperHandler) Run(c *gin.Context) {
	sourceID := c.Param("source")

	if _, err := h.scheduler.Status(sourceID); err != nil {
		c.JSON(http.StatusNotFound, gin.H{
			"success": false,
			"error":   "unknown source: " + sourceID,
		})
		return
	}

	if !h.scheduler.ForceRun(sourceID) {
		c.JSON(http.StatusConflict, gin.H{
			"success": false,
			"error":   "scrape not eligible to run now",
		})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"success": true, "source": sourceID})
}

// RunAll handles POST /api/scraper/run.
func (h *ScraperHandler) RunAll(c *gin.Context) {
	accepted := h.scheduler.ForceRunAll()
	c.JSON(http.StatusAccepted, gin.H{
		"success":  true,
		"accepted": accepted,
	})
}
