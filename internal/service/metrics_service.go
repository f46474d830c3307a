package service

import (
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/noah-isme/assignment-tracker/internal/models"
)

// MetricsService encapsulates Prometheus instrumentation for the tracker.
type MetricsService struct {
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	loadedRecords   prometheus.Counter
	skippedRecords  prometheus.Counter
	assignments     *prometheus.GaugeVec
	exportsTotal    *prometheus.CounterVec

	requestCount uint64
}

// NewMetricsService registers the tracker collectors on a private registry.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	requestTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	loadedRecords := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "tracker_records_loaded_total",
		Help: "Assignment rows accepted while loading the data file",
	})

	skippedRecords := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "tracker_records_skipped_total",
		Help: "Corrupt assignment rows dropped while loading the data file",
	})

	assignments := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "tracker_assignments",
		Help: "Assignments currently tracked, by status",
	}, []string{"status"})

	exportsTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "tracker_exports_total",
		Help: "Rendered exports by format",
	}, []string{"format"})

	registry.MustRegister(requestDuration, requestTotal, loadedRecords, skippedRecords, assignments, exportsTotal)

	handler := promhttp.HandlerFor(registry, promhttp.HandlerOpts{})

	return &MetricsService{
		handler:         handler,
		requestDuration: requestDuration,
		requestTotal:    requestTotal,
		loadedRecords:   loadedRecords,
		skippedRecords:  skippedRecords,
		assignments:     assignments,
		exportsTotal:    exportsTotal,
	}
}

// Handler exposes the Prometheus HTTP handler.
func (m *MetricsService) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// ObserveHTTPRequest records request metrics.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := fmt.Sprintf("%d", status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
	atomic.AddUint64(&m.requestCount, 1)
}

// RequestCount returns how many HTTP requests have been observed.
func (m *MetricsService) RequestCount() uint64 {
	if m == nil {
		return 0
	}
	return atomic.LoadUint64(&m.requestCount)
}

// RecordLoad captures the outcome of reading the data file.
func (m *MetricsService) RecordLoad(loaded, skipped int) {
	if m == nil {
		return
	}
	m.loadedRecords.Add(float64(loaded))
	m.skippedRecords.Add(float64(skipped))
}

// SetSummary publishes per-status gauges.
func (m *MetricsService) SetSummary(summary models.AssignmentSummary) {
	if m == nil {
		return
	}
	for _, status := range models.Statuses {
		m.assignments.WithLabelValues(string(status)).Set(float64(summary.Count(status)))
	}
}

// RecordExport counts a rendered export.
func (m *MetricsService) RecordExport(format models.ExportFormat) {
	if m == nil {
		return
	}
	m.exportsTotal.WithLabelValues(string(format)).Inc()
}
