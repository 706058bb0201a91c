package service

import (
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsService encapsulates Prometheus instrumentation for the HTTP
// surface and the schedule generator.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec

	generationDuration *prometheus.HistogramVec
	assignmentsPlaced  *prometheus.CounterVec
	streamsFailed      *prometheus.CounterVec
	placementFailures  *prometheus.CounterVec
	journalEntries     prometheus.Counter
}

// NewMetricsService registers core Prometheus collectors.
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

	generationDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "schedule_generation_duration_seconds",
		Help:    "Duration of schedule generation runs",
		Buckets: prometheus.DefBuckets,
	}, []string{"season"})

	assignmentsPlaced := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "schedule_assignments_placed_total",
		Help: "Total assignments placed by generation runs",
	}, []string{"season"})

	streamsFailed := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "schedule_streams_failed_total",
		Help: "Total streams left with an occurrence shortfall",
	}, []string{"season"})

	placementFailures := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "schedule_placement_rejections_total",
		Help: "Candidate slot rejections by constraint category",
	}, []string{"category"})

	journalEntries := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "journal_entries_created_total",
		Help: "Total attendance journal entries created",
	})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, generationDuration, assignmentsPlaced, streamsFailed, placementFailures, journalEntries, goroutines)

	handler := promhttp.HandlerFor(registry, promhttp.HandlerOpts{})

	return &MetricsService{
		registry:           registry,
		handler:            handler,
		requestDuration:    requestDuration,
		requestTotal:       requestTotal,
		generationDuration: generationDuration,
		assignmentsPlaced:  assignmentsPlaced,
		streamsFailed:      streamsFailed,
		placementFailures:  placementFailures,
		journalEntries:     journalEntries,
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
}

// ObserveGeneration records the outcome of one generation run.
func (m *MetricsService) ObserveGeneration(season string, placed, failed int, duration time.Duration) {
	if m == nil {
		return
	}
	m.generationDuration.WithLabelValues(season).Observe(duration.Seconds())
	m.assignmentsPlaced.WithLabelValues(season).Add(float64(placed))
	m.streamsFailed.WithLabelValues(season).Add(float64(failed))
}

// CountPlacementFailures accumulates per-category slot rejections.
func (m *MetricsService) CountPlacementFailures(category string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.placementFailures.WithLabelValues(category).Add(float64(n))
}

// CountJournalEntries accumulates created journal entries.
func (m *MetricsService) CountJournalEntries(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.journalEntries.Add(float64(n))
}
