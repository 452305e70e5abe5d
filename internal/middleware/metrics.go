package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/cleberrangel/pert-estimator-api/internal/logger"
	"github.com/cleberrangel/pert-estimator-api/internal/metrics"
	"github.com/gin-gonic/gin"
)

// MetricsMiddleware tracks request metrics
func MetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		latency := time.Since(start).Milliseconds()

		statusCode := c.Writer.Status()
		success := statusCode < 400

		metrics.Get().IncrementRequests(success, latency)

		// Usa o padrão da rota para não criar uma entrada por sessão
		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}
		metrics.Get().TrackEndpoint(path, c.Request.Method, statusCode, latency)
	}
}

// AuditMiddleware logs audit events for state-changing API calls
func AuditMiddleware() gin.HandlerFunc {
	auditPrefixes := []string{
		"/api/v1/sessions",
		"/api/v1/preferences",
		"/api/v1/estimate",
	}

	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		shouldAudit := false
		for _, prefix := range auditPrefixes {
			if strings.HasPrefix(path, prefix) {
				shouldAudit = true
				break
			}
		}

		c.Next()

		method := c.Request.Method
		if shouldAudit && (method == http.MethodPost || method == http.MethodPut || method == http.MethodDelete) {
			logger.AuditRequest(
				c.Request.Context(),
				method,
				path,
				c.Writer.Status(),
				time.Since(start).Milliseconds(),
				c.ClientIP(),
			)
		}
	}
}
