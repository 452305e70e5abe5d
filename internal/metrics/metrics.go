package metrics

import (
	"context"
	"database/sql"
	"runtime"
	"sync"
	"sync/atomic"
	"time"
)

// EndpointMetrics tracks metrics for a specific endpoint
type EndpointMetrics struct {
	Requests     int64
	Errors       int64
	TotalLatency int64
}

// Metrics holds all application metrics
type Metrics struct {
	mu sync.RWMutex

	// Request metrics
	TotalRequests      int64
	SuccessfulRequests int64
	FailedRequests     int64

	// Request latency (in milliseconds)
	TotalLatency int64
	RequestCount int64

	// Session metrics
	SessionsCreated int64

	// UI event metrics
	EventsDispatched int64
	EventsRejected   int64
	Recalculations   int64
	TasksAdded       int64
	TasksRemoved     int64

	// Stateless estimate API
	EstimateRequests int64
	EstimatedTasks   int64

	// Export metrics
	CSVExports   int64
	XLSXExports  int64
	ExportErrors int64

	// Preference metrics
	PreferenceChanges int64

	// WebSocket metrics
	WSConnections int64
	WSMessagesIn  int64
	WSMessagesOut int64

	// Events by action
	actions map[string]*int64

	// Endpoint-specific metrics
	EndpointMetrics map[string]*EndpointMetrics

	// Start time for uptime calculation
	StartTime time.Time
}

// global metrics instance
var globalMetrics *Metrics
var once sync.Once

// Init initializes the global metrics instance
func Init() {
	once.Do(func() {
		globalMetrics = New()
	})
}

// New creates a standalone metrics instance
func New() *Metrics {
	return &Metrics{
		StartTime:       time.Now(),
		EndpointMetrics: make(map[string]*EndpointMetrics),
		actions:         make(map[string]*int64),
	}
}

// Get returns the global metrics instance
func Get() *Metrics {
	Init()
	return globalMetrics
}

// IncrementRequests increments request counters
func (m *Metrics) IncrementRequests(success bool, latencyMs int64) {
	atomic.AddInt64(&m.TotalRequests, 1)
	atomic.AddInt64(&m.TotalLatency, latencyMs)
	atomic.AddInt64(&m.RequestCount, 1)

	if success {
		atomic.AddInt64(&m.SuccessfulRequests, 1)
	} else {
		atomic.AddInt64(&m.FailedRequests, 1)
	}
}

// IncrementSessionCreated increments the session counter
func (m *Metrics) IncrementSessionCreated() {
	atomic.AddInt64(&m.SessionsCreated, 1)
}

// IncrementEvent counts a dispatched UI event by action
func (m *Metrics) IncrementEvent(action string, success bool) {
	if !success {
		atomic.AddInt64(&m.EventsRejected, 1)
		return
	}
	atomic.AddInt64(&m.EventsDispatched, 1)

	m.mu.Lock()
	if m.actions == nil {
		m.actions = make(map[string]*int64)
	}
	counter, ok := m.actions[action]
	if !ok {
		counter = new(int64)
		m.actions[action] = counter
	}
	m.mu.Unlock()

	atomic.AddInt64(counter, 1)
}

// IncrementRecalculation counts aggregate recalculations
func (m *Metrics) IncrementRecalculation() {
	atomic.AddInt64(&m.Recalculations, 1)
}

// IncrementTaskAdded increments the added task counter
func (m *Metrics) IncrementTaskAdded() {
	atomic.AddInt64(&m.TasksAdded, 1)
}

// IncrementTaskRemoved increments the removed task counter
func (m *Metrics) IncrementTaskRemoved() {
	atomic.AddInt64(&m.TasksRemoved, 1)
}

// IncrementEstimate counts a stateless estimate request
func (m *Metrics) IncrementEstimate(tasks int) {
	atomic.AddInt64(&m.EstimateRequests, 1)
	atomic.AddInt64(&m.EstimatedTasks, int64(tasks))
}

// IncrementExport counts an export by format
func (m *Metrics) IncrementExport(format string, success bool) {
	if !success {
		atomic.AddInt64(&m.ExportErrors, 1)
		return
	}
	switch format {
	case "csv":
		atomic.AddInt64(&m.CSVExports, 1)
	case "xlsx":
		atomic.AddInt64(&m.XLSXExports, 1)
	}
}

// IncrementPreferenceChange counts theme and language changes
func (m *Metrics) IncrementPreferenceChange() {
	atomic.AddInt64(&m.PreferenceChanges, 1)
}

// IncrementWSConnection increments WebSocket connection counter
func (m *Metrics) IncrementWSConnection() {
	atomic.AddInt64(&m.WSConnections, 1)
}

// DecrementWSConnection decrements WebSocket connection counter
func (m *Metrics) DecrementWSConnection() {
	atomic.AddInt64(&m.WSConnections, -1)
}

// IncrementWSMessageIn increments WebSocket incoming message counter
func (m *Metrics) IncrementWSMessageIn() {
	atomic.AddInt64(&m.WSMessagesIn, 1)
}

// IncrementWSMessageOut increments WebSocket outgoing message counter
func (m *Metrics) IncrementWSMessageOut() {
	atomic.AddInt64(&m.WSMessagesOut, 1)
}

// TrackEndpoint tracks metrics for a specific endpoint
func (m *Metrics) TrackEndpoint(path, method string, statusCode int, latencyMs int64) {
	key := method + " " + path

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.EndpointMetrics == nil {
		m.EndpointMetrics = make(map[string]*EndpointMetrics)
	}

	em, exists := m.EndpointMetrics[key]
	if !exists {
		em = &EndpointMetrics{}
		m.EndpointMetrics[key] = em
	}

	atomic.AddInt64(&em.Requests, 1)
	atomic.AddInt64(&em.TotalLatency, latencyMs)
	if statusCode >= 400 {
		atomic.AddInt64(&em.Errors, 1)
	}
}

// GetEndpointMetrics returns a copy of endpoint metrics
func (m *Metrics) GetEndpointMetrics() map[string]EndpointMetrics {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make(map[string]EndpointMetrics)
	for k, v := range m.EndpointMetrics {
		result[k] = EndpointMetrics{
			Requests:     atomic.LoadInt64(&v.Requests),
			Errors:       atomic.LoadInt64(&v.Errors),
			TotalLatency: atomic.LoadInt64(&v.TotalLatency),
		}
	}
	return result
}

// GetEventsByAction returns a copy of the per-action event counters
func (m *Metrics) GetEventsByAction() map[string]int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make(map[string]int64, len(m.actions))
	for k, v := range m.actions {
		result[k] = atomic.LoadInt64(v)
	}
	return result
}

// GetAverageLatency returns average request latency in milliseconds
func (m *Metrics) GetAverageLatency() float64 {
	count := atomic.LoadInt64(&m.RequestCount)
	if count == 0 {
		return 0
	}
	total := atomic.LoadInt64(&m.TotalLatency)
	return float64(total) / float64(count)
}

// GetUptime returns the application uptime
func (m *Metrics) GetUptime() time.Duration {
	return time.Since(m.StartTime)
}

// EndpointMetricsSnapshot represents endpoint metrics in a snapshot
type EndpointMetricsSnapshot struct {
	Requests     int64   `json:"requests"`
	Errors       int64   `json:"errors"`
	ErrorRate    float64 `json:"error_rate"`
	AvgLatencyMs float64 `json:"avg_latency_ms"`
}

// MetricsSnapshot represents a point-in-time snapshot of all metrics
type MetricsSnapshot struct {
	UptimeSeconds float64 `json:"uptime_seconds"`
	StartTime     string  `json:"start_time"`

	Requests struct {
		Total        int64   `json:"total"`
		Successful   int64   `json:"successful"`
		Failed       int64   `json:"failed"`
		AvgLatencyMs float64 `json:"avg_latency_ms"`
	} `json:"requests"`

	Sessions struct {
		Created int64 `json:"created"`
		Active  int   `json:"active"`
	} `json:"sessions"`

	Events struct {
		Dispatched     int64            `json:"dispatched"`
		Rejected       int64            `json:"rejected"`
		Recalculations int64            `json:"recalculations"`
		TasksAdded     int64            `json:"tasks_added"`
		TasksRemoved   int64            `json:"tasks_removed"`
		ByAction       map[string]int64 `json:"by_action,omitempty"`
	} `json:"events"`

	Estimates struct {
		Requests int64 `json:"requests"`
		Tasks    int64 `json:"tasks"`
	} `json:"estimates"`

	Exports struct {
		CSV    int64 `json:"csv"`
		XLSX   int64 `json:"xlsx"`
		Errors int64 `json:"errors"`
	} `json:"exports"`

	Preferences struct {
		Changes int64 `json:"changes"`
	} `json:"preferences"`

	WebSocket struct {
		Connections int64 `json:"connections"`
		MessagesIn  int64 `json:"messages_in"`
		MessagesOut int64 `json:"messages_out"`
	} `json:"websocket"`

	System struct {
		Goroutines   int    `json:"goroutines"`
		HeapAllocMB  uint64 `json:"heap_alloc_mb"`
		HeapInUseMB  uint64 `json:"heap_inuse_mb"`
		StackInUseMB uint64 `json:"stack_inuse_mb"`
		NumGC        uint32 `json:"num_gc"`
	} `json:"system"`

	Endpoints map[string]EndpointMetricsSnapshot `json:"endpoints,omitempty"`
}

// Snapshot returns a point-in-time snapshot of all metrics.
// activeSessions is supplied by the caller since sessions live outside this package.
func (m *Metrics) Snapshot(activeSessions int) MetricsSnapshot {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	snapshot := MetricsSnapshot{}

	snapshot.UptimeSeconds = m.GetUptime().Seconds()
	snapshot.StartTime = m.StartTime.Format(time.RFC3339)

	snapshot.Requests.Total = atomic.LoadInt64(&m.TotalRequests)
	snapshot.Requests.Successful = atomic.LoadInt64(&m.SuccessfulRequests)
	snapshot.Requests.Failed = atomic.LoadInt64(&m.FailedRequests)
	snapshot.Requests.AvgLatencyMs = m.GetAverageLatency()

	snapshot.Sessions.Created = atomic.LoadInt64(&m.SessionsCreated)
	snapshot.Sessions.Active = activeSessions

	snapshot.Events.Dispatched = atomic.LoadInt64(&m.EventsDispatched)
	snapshot.Events.Rejected = atomic.LoadInt64(&m.EventsRejected)
	snapshot.Events.Recalculations = atomic.LoadInt64(&m.Recalculations)
	snapshot.Events.TasksAdded = atomic.LoadInt64(&m.TasksAdded)
	snapshot.Events.TasksRemoved = atomic.LoadInt64(&m.TasksRemoved)
	if byAction := m.GetEventsByAction(); len(byAction) > 0 {
		snapshot.Events.ByAction = byAction
	}

	snapshot.Estimates.Requests = atomic.LoadInt64(&m.EstimateRequests)
	snapshot.Estimates.Tasks = atomic.LoadInt64(&m.EstimatedTasks)

	snapshot.Exports.CSV = atomic.LoadInt64(&m.CSVExports)
	snapshot.Exports.XLSX = atomic.LoadInt64(&m.XLSXExports)
	snapshot.Exports.Errors = atomic.LoadInt64(&m.ExportErrors)

	snapshot.Preferences.Changes = atomic.LoadInt64(&m.PreferenceChanges)

	snapshot.WebSocket.Connections = atomic.LoadInt64(&m.WSConnections)
	snapshot.WebSocket.MessagesIn = atomic.LoadInt64(&m.WSMessagesIn)
	snapshot.WebSocket.MessagesOut = atomic.LoadInt64(&m.WSMessagesOut)

	snapshot.System.Goroutines = runtime.NumGoroutine()
	snapshot.System.HeapAllocMB = memStats.HeapAlloc / 1024 / 1024
	snapshot.System.HeapInUseMB = memStats.HeapInuse / 1024 / 1024
	snapshot.System.StackInUseMB = memStats.StackInuse / 1024 / 1024
	snapshot.System.NumGC = memStats.NumGC

	endpointMetrics := m.GetEndpointMetrics()
	if len(endpointMetrics) > 0 {
		snapshot.Endpoints = make(map[string]EndpointMetricsSnapshot)
		for k, v := range endpointMetrics {
			em := EndpointMetricsSnapshot{
				Requests: v.Requests,
				Errors:   v.Errors,
			}
			if v.Requests > 0 {
				em.ErrorRate = float64(v.Errors) / float64(v.Requests) * 100
				em.AvgLatencyMs = float64(v.TotalLatency) / float64(v.Requests)
			}
			snapshot.Endpoints[k] = em
		}
	}

	return snapshot
}

// HealthStatus represents the health status of a component
type HealthStatus struct {
	Status  string `json:"status"` // "healthy", "degraded", "unhealthy"
	Message string `json:"message,omitempty"`
	Latency int64  `json:"latency_ms,omitempty"`
}

// HealthCheck represents the overall health check response
type HealthCheck struct {
	Status     string                  `json:"status"`
	Version    string                  `json:"version"`
	Uptime     string                  `json:"uptime"`
	Timestamp  string                  `json:"timestamp"`
	Components map[string]HealthStatus `json:"components"`
}

// CheckDatabaseHealth checks database connectivity.
// A nil db means preferences run cookie-only, which is not a failure.
func CheckDatabaseHealth(ctx context.Context, db *sql.DB) HealthStatus {
	if db == nil {
		return HealthStatus{
			Status:  "healthy",
			Message: "database disabled, cookie preferences only",
		}
	}

	start := time.Now()
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	err := db.PingContext(ctx)
	latency := time.Since(start).Milliseconds()

	if err != nil {
		// Preferences fall back to cookies, so the service keeps working
		return HealthStatus{
			Status:  "degraded",
			Message: err.Error(),
			Latency: latency,
		}
	}

	if latency > 100 {
		return HealthStatus{
			Status:  "degraded",
			Message: "high latency",
			Latency: latency,
		}
	}

	return HealthStatus{
		Status:  "healthy",
		Latency: latency,
	}
}

// CheckMemoryHealth checks memory usage
func CheckMemoryHealth(maxHeapMB uint64) HealthStatus {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	heapMB := memStats.HeapAlloc / 1024 / 1024

	if heapMB > maxHeapMB {
		return HealthStatus{
			Status:  "unhealthy",
			Message: "heap memory exceeds limit",
		}
	}

	if heapMB > (maxHeapMB * 80 / 100) {
		return HealthStatus{
			Status:  "degraded",
			Message: "heap memory usage high",
		}
	}

	return HealthStatus{
		Status: "healthy",
	}
}

// CheckTranslationsHealth reports degraded when translations fell back to empty tables
func CheckTranslationsHealth(loadedKeys int) HealthStatus {
	if loadedKeys == 0 {
		return HealthStatus{
			Status:  "degraded",
			Message: "translations unavailable, showing message ids",
		}
	}
	return HealthStatus{Status: "healthy"}
}

// DetermineOverallStatus determines overall health from component statuses
func DetermineOverallStatus(components map[string]HealthStatus) string {
	hasUnhealthy := false
	hasDegraded := false

	for _, status := range components {
		switch status.Status {
		case "unhealthy":
			hasUnhealthy = true
		case "degraded":
			hasDegraded = true
		}
	}

	if hasUnhealthy {
		return "unhealthy"
	}
	if hasDegraded {
		return "degraded"
	}
	return "healthy"
}
