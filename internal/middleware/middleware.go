package middleware

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/Jengeka/bingwa-sokoni/internal/config"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// CORSMiddleware handles cross-origin requests
func CORSMiddleware(cfg *config.Config) gin.HandlerFunc {
	allowed := make(map[string]bool, len(cfg.Server.AllowedHosts))
	for _, host := range cfg.Server.AllowedHosts {
		allowed[host] = true
	}

	return func(c *gin.Context) {
		origin := "*"
		if requestOrigin := c.GetHeader("Origin"); requestOrigin != "" && allowed[requestOrigin] {
			origin = requestOrigin
		}
		c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Origin, Content-Type, Authorization")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

// RequestIDMiddleware attaches a request ID to each request
func RequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader("X-Request-ID")
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Set("requestID", requestID)
		c.Writer.Header().Set("X-Request-ID", requestID)
		c.Next()
	}
}

// LoggerMiddleware logs each request with latency and status
func LoggerMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		slog.Info("Request handled",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"latency", time.Since(start).String(),
			"requestId", c.GetString("requestID"),
		)
	}
}
