package service

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsService encapsulates Prometheus instrumentation for the API.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	presenceMarks   *prometheus.CounterVec
	uploadRows      *prometheus.CounterVec
	noticesQueued   prometheus.Counter
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
		Help: "Total HTTP requests handled",
	}, []string{"method", "path", "status"})

	presenceMarks := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "attendance_presence_marks_total",
		Help: "Presence claims recorded by outcome",
	}, []string{"outcome"})

	uploadRows := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "attendance_upload_rows_total",
		Help: "Upload rows reconciled by batch kind",
	}, []string{"kind"})

	noticesQueued := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "attendance_notices_queued_total",
		Help: "Absence notices handed to the dispatch queue",
	})

	registry.MustRegister(requestDuration, requestTotal, presenceMarks, uploadRows, noticesQueued)

	return &MetricsService{
		registry:        registry,
		handler:         promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration: requestDuration,
		requestTotal:    requestTotal,
		presenceMarks:   presenceMarks,
		uploadRows:      uploadRows,
		noticesQueued:   noticesQueued,
	}
}

// Handler returns the Prometheus scrape handler.
func (m *MetricsService) Handler() http.Handler {
	return m.handler
}

// ObserveRequest records one handled HTTP request.
func (m *MetricsService) ObserveRequest(method, path string, status int, duration time.Duration) {
	labels := []string{method, path, strconv.Itoa(status)}
	m.requestDuration.WithLabelValues(labels...).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(labels...).Inc()
}

// ObservePresenceMark counts a recorded presence claim.
func (m *MetricsService) ObservePresenceMark(outcome string) {
	m.presenceMarks.WithLabelValues(outcome).Inc()
}

// ObserveUpload counts reconciled upload rows.
func (m *MetricsService) ObserveUpload(kind string, rows int) {
	m.uploadRows.WithLabelValues(kind).Add(float64(rows))
}

// ObserveNoticesQueued counts queued absence notices.
func (m *MetricsService) ObserveNoticesQueued(n int) {
	m.noticesQueued.Add(float64(n))
}
