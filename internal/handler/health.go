package handler

import (
	"database/sql"
	"net/http"
	"time"

	"github.com/cleberrangel/pert-estimator-api/internal/i18n"
	"github.com/cleberrangel/pert-estimator-api/internal/metrics"
	"github.com/cleberrangel/pert-estimator-api/internal/session"
	"github.com/cleberrangel/pert-estimator-api/internal/websocket"
	"github.com/gin-gonic/gin"
)

// maxWSConnections is the connection count above which the hub reports degraded
const maxWSConnections = 1000

// HealthHandler handles health check and metrics endpoints
type HealthHandler struct {
	db        *sql.DB
	wsHub     *websocket.Hub
	sessions  *session.Store
	tr        *i18n.Translator
	version   string
	startTime time.Time
}

// NewHealthHandler creates a new health handler. db may be nil (cookie-only preferences).
func NewHealthHandler(db *sql.DB, wsHub *websocket.Hub, sessions *session.Store, tr *i18n.Translator, version string) *HealthHandler {
	return &HealthHandler{
		db:        db,
		wsHub:     wsHub,
		sessions:  sessions,
		tr:        tr,
		version:   version,
		startTime: time.Now(),
	}
}

// LivenessCheck returns basic liveness status
// @Summary Liveness check
// @Tags health
// @Produce json
// @Success 200 {object} map[string]string
// @Router /health/live [get]
func (h *HealthHandler) LivenessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
	})
}

// ReadinessCheck returns readiness status including dependencies
// @Summary Readiness check
// @Tags health
// @Produce json
// @Success 200 {object} metrics.HealthCheck
// @Failure 503 {object} metrics.HealthCheck
// @Router /health/ready [get]
func (h *HealthHandler) ReadinessCheck(c *gin.Context) {
	components := make(map[string]metrics.HealthStatus)

	components["database"] = metrics.CheckDatabaseHealth(c.Request.Context(), h.db)
	components["memory"] = metrics.CheckMemoryHealth(512)
	components["translations"] = h.checkTranslations()
	if h.wsHub != nil {
		components["websocket"] = h.checkWebSocketHealth()
	}

	overallStatus := metrics.DetermineOverallStatus(components)

	healthCheck := metrics.HealthCheck{
		Status:     overallStatus,
		Version:    h.version,
		Uptime:     time.Since(h.startTime).String(),
		Timestamp:  time.Now().UTC().Format(time.RFC3339),
		Components: components,
	}

	statusCode := http.StatusOK
	if overallStatus == "unhealthy" {
		statusCode = http.StatusServiceUnavailable
	}

	c.JSON(statusCode, healthCheck)
}

func (h *HealthHandler) checkTranslations() metrics.HealthStatus {
	keys := 0
	if h.tr != nil {
		for _, lang := range h.tr.Languages() {
			keys += len(h.tr.Strings(lang))
		}
	}
	return metrics.CheckTranslationsHealth(keys)
}

// checkWebSocketHealth checks WebSocket hub health
func (h *HealthHandler) checkWebSocketHealth() metrics.HealthStatus {
	if h.wsHub.GetConnectionCount() > maxWSConnections {
		return metrics.HealthStatus{
			Status:  "degraded",
			Message: "WebSocket connections near limit",
		}
	}

	return metrics.HealthStatus{
		Status: "healthy",
	}
}

func (h *HealthHandler) activeSessions() int {
	if h.sessions == nil {
		return 0
	}
	return h.sessions.Count()
}

// GetMetrics returns application metrics
// @Summary Get application metrics
// @Tags metrics
// @Produce json
// @Success 200 {object} metrics.MetricsSnapshot
// @Router /metrics [get]
func (h *HealthHandler) GetMetrics(c *gin.Context) {
	c.JSON(http.StatusOK, metrics.Get().Snapshot(h.activeSessions()))
}

// GetMetricsSummary returns a summary of key metrics
// @Summary Get metrics summary
// @Tags metrics
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /metrics/summary [get]
func (h *HealthHandler) GetMetricsSummary(c *gin.Context) {
	snapshot := metrics.Get().Snapshot(h.activeSessions())

	requestSuccessRate := float64(0)
	if snapshot.Requests.Total > 0 {
		requestSuccessRate = float64(snapshot.Requests.Successful) / float64(snapshot.Requests.Total) * 100
	}

	eventRejectRate := float64(0)
	totalEvents := snapshot.Events.Dispatched + snapshot.Events.Rejected
	if totalEvents > 0 {
		eventRejectRate = float64(snapshot.Events.Rejected) / float64(totalEvents) * 100
	}

	summary := gin.H{
		"uptime_seconds": snapshot.UptimeSeconds,
		"version":        h.version,
		"requests": gin.H{
			"total":        snapshot.Requests.Total,
			"success_rate": requestSuccessRate,
			"avg_latency":  snapshot.Requests.AvgLatencyMs,
		},
		"sessions": gin.H{
			"active":  snapshot.Sessions.Active,
			"created": snapshot.Sessions.Created,
		},
		"events": gin.H{
			"dispatched":  snapshot.Events.Dispatched,
			"reject_rate": eventRejectRate,
		},
		"exports": gin.H{
			"csv":  snapshot.Exports.CSV,
			"xlsx": snapshot.Exports.XLSX,
		},
		"websocket": gin.H{
			"connections": snapshot.WebSocket.Connections,
		},
		"system": gin.H{
			"goroutines":  snapshot.System.Goroutines,
			"heap_mb":     snapshot.System.HeapAllocMB,
			"heap_use_mb": snapshot.System.HeapInUseMB,
		},
	}

	c.JSON(http.StatusOK, summary)
}

// GetEndpointMetrics returns metrics for specific endpoints
// @Summary Get endpoint metrics
// @Tags metrics
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /metrics/endpoints [get]
func (h *HealthHandler) GetEndpointMetrics(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"endpoints": metrics.Get().Snapshot(h.activeSessions()).Endpoints,
	})
}
