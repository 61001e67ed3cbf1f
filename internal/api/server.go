// Package api implements the HTTP API: tender lookups, full-text search,
// and the admin endpoints controlling the scrape scheduler.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tenderwatch/crawler/internal/api/middleware"
	"github.com/tenderwatch/crawler/internal/logger"
	"github.com/tenderwatch/crawler/internal/orchestrator"
	"github.com/tenderwatch/crawler/internal/search"
	"github.com/tenderwatch/crawler/internal/sources"
	"github.com/tenderwatch/crawler/internal/tender"
)

const (
	defaultReadTimeout     = 10 * time.Second
	defaultWriteTimeout    = 30 * time.Second
	defaultShutdownTimeout = 10 * time.Second
)

// Config holds HTTP server settings.
type Config struct {
	Address string `mapstructure:"address"`
	// RateLimit is the allowed requests per second per client IP; zero
	// disables limiting.
	RateLimit float64 `mapstructure:"rate_limit"`
	// RateBurst is the per-client burst allowance.
	RateBurst int `mapstructure:"rate_burst"`
	// Debug switches gin out of release mode.
	Debug bool `mapstructure:"debug"`
}

// TenderQuerier answers tender lookups.
type TenderQuerier interface {
	GetTenderData(ctx context.Context, sourceID string) (*tender.Response, error)
	GetTenderDataPage(ctx context.Context, sourceID string, page, limit int) (*tender.PageResponse, error)
}

// Scheduler controls the scrape schedule.
type Scheduler interface {
	Start(ctx context.Context) error
	Stop()
	Running() bool
	ForceRun(sourceID string) bool
	ForceRunAll() []string
	Statuses() []orchestrator.JobState
	Status(sourceID string) (orchestrator.JobState, error)
}

// Searcher answers full-text tender queries. Nil disables the endpoint.
type Searcher interface {
	Search(ctx context.Context, q, sourceID string, limit int) ([]search.Hit, error)
}

// Params holds the dependencies for creating a server.
type Params struct {
	Logger    logger.Interface
	Config    Config
	Sources   *sources.Manager
	Querier   TenderQuerier
	Scheduler Scheduler
	Searcher  Searcher
}

// Server is the HTTP API server.
type Server struct {
	log    logger.Interface
	cfg    Config
	engine *gin.Engine
	http   *http.Server
}

// ginMode guards the process-wide gin mode so concurrent server
// construction in tests stays race-free.
var ginMode sync.Once

// NewServer creates the API server and registers all routes.
func NewServer(p Params) *Server {
	ginMode.Do(func() {
		if !p.Config.Debug {
			gin.SetMode(gin.ReleaseMode)
		}
	})

	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(middleware.RequestLogger(p.Logger))
	if p.Config.RateLimit > 0 {
		engine.Use(middleware.RateLimit(p.Config.RateLimit, p.Config.RateBurst))
	}

	s := &Server{
		log:    p.Logger,
		cfg:    p.Config,
		engine: engine,
	}
	s.registerRoutes(p)
	return s
}

func (s *Server) registerRoutes(p Params) {
	s.engine.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	s.engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	tenders := NewTendersHandler(s.log, p.Sources, p.Querier)
	scraper := NewScraperHandler(s.log, p.Scheduler)

	apiGroup := s.engine.Group("/api")
	{
		apiGroup.GET("/sources", tenders.ListSources)
		apiGroup.GET("/tenders/:source", tenders.GetTenders)
		apiGroup.GET("/tenders/:source/latest", tenders.GetLatest)

		if p.Searcher != nil {
			searchHandler := NewSearchHandler(s.log, p.Searcher)
			apiGroup.GET("/search", searchHandler.Search)
		} else {
			apiGroup.GET("/search", func(c *gin.Context) {
				c.JSON(http.StatusNotFound, gin.H{
					"success": false,
					"error":   "search is not enabled",
				})
			})
		}

		scraperGroup := apiGroup.Group("/scraper")
		{
			scraperGroup.GET("/status", scraper.Statuses)
			scraperGroup.GET("/status/:source", scraper.Status)
			scraperGroup.POST("/start", scraper.Start)
			scraperGroup.POST("/stop", scraper.Stop)
			scraperGroup.POST("/run", scraper.RunAll)
			scraperGroup.POST("/run/:source", scraper.Run)
		}
	}
}

// Handler exposes the router, primarily for tests.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Start serves HTTP until the context is cancelled, then shuts down
// gracefully.
func (s *Server) Start(ctx context.Context) error {
	s.http = &http.Server{
		Addr:         s.cfg.Address,
		Handler:      s.engine,
		ReadTimeout:  defaultReadTimeout,
		WriteTimeout: defaultWriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("API server listening", "address", s.cfg.Address)
		if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("api server failed: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), defaultShutdownTimeout)
	defer cancel()

	if err := s.http.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("api server shutdown: %w", err)
	}
	s.log.Info("API server stopped")
	return nil
}
