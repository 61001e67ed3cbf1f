// Package middleware provides HTTP middleware for the API.
package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/tenderwatch/crawler/internal/logger"
)

// RequestLogger logs one structured line per request.
func RequestLogger(log logger.Interface) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		log.Info("HTTP request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"elapsed", time.Since(start).String(),
			"client_ip", c.ClientIP(),
		)
	}
}

// RateLimit enforces a per-client-IP request rate. Limiters are kept per
// IP for the life of the process; the map is small enough for the
// expected audience that eviction is not worth the complexity.
func RateLimit(perSecond float64, burst int) gin.HandlerFunc {
	if burst < 1 {
		burst = 1
	}

	var (
		mu       sync.Mutex
		limiters = make(map[string]*rate.Limiter)
	)

	limiterFor := func(ip string) *rate.Limiter {
		mu.Lock()
		defer mu.Unlock()

		limiter, ok := limiters[ip]
		if !ok {
			limiter = rate.NewLimiter(rate.Limit(perSecond), burst)
			limiters[ip] = limiter
		}
		return limiter
	}

	return func(c *gin.Context) {
		if !limiterFor(c.ClientIP()).Allow() {
			c.JSON(http.StatusTooManyRequests, gin.H{
				"success": false,
				"error":   "rate limit exceeded",
			})
			c.Abort()
			return
		}
		c.Next()
	}
}
