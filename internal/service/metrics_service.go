package service

import (
	"fmt"
	"net/http"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/noah-isme/announcement-sync/internal/models"
)

// MetricsService encapsulates Prometheus instrumentation and provides lightweight snapshots for API consumption.
type MetricsService struct {
	registry           *prometheus.Registry
	handler            http.Handler
	requestDuration    *prometheus.HistogramVec
	requestTotal       *prometheus.CounterVec
	portalDuration     *prometheus.HistogramVec
	enrichmentFailures prometheus.Counter
	ledgerWrites       *prometheus.CounterVec
	ledgerSyncDuration prometheus.Histogram

	requestCount         uint64
	requestDurationTotal uint64
	portalCalls          uint64
	portalFailures       uint64
	enrichmentFailCount  uint64
	ledgerWriteCount     uint64
	ledgerWriteFailCount uint64
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

	portalDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "portal_request_duration_seconds",
		Help:    "Duration of portal GraphQL operations",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation", "outcome"})

	enrichmentFailures := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "enrichment_failures_total",
		Help: "Document enrichment calls that degraded to zero documents",
	})

	ledgerWrites := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ledger_writes_total",
		Help: "Ledger record writes by outcome",
	}, []string{"outcome"})

	ledgerSyncDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "ledger_sync_duration_seconds",
		Help:    "Duration of a full ledger sync run",
		Buckets: []float64{0.5, 1, 2.5, 5, 10, 20, 40, 80},
	})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, portalDuration, enrichmentFailures, ledgerWrites, ledgerSyncDuration, goroutines)

	handler := promhttp.HandlerFor(registry, promhttp.HandlerOpts{})

	return &MetricsService{
		registry:           registry,
		handler:            handler,
		requestDuration:    requestDuration,
		requestTotal:       requestTotal,
		portalDuration:     portalDuration,
		enrichmentFailures: enrichmentFailures,
		ledgerWrites:       ledgerWrites,
		ledgerSyncDuration: ledgerSyncDuration,
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

// ObserveHTTPRequest records request metrics and aggregates simple stats for snapshots.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := fmt.Sprintf("%d", status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
	atomic.AddUint64(&m.requestCount, 1)
	atomic.AddUint64(&m.requestDurationTotal, uint64(duration.Nanoseconds()))
}

// ObservePipelineEvent records a pipeline step.
func (m *MetricsService) ObservePipelineEvent(event models.PipelineEvent) {
	if m == nil {
		return
	}
	switch event.Stage {
	case models.StageLogin, models.StagePageQuery:
		m.portalDuration.WithLabelValues(string(event.Stage), event.Outcome()).Observe(event.Duration.Seconds())
		atomic.AddUint64(&m.portalCalls, 1)
		if event.Err != nil {
			atomic.AddUint64(&m.portalFailures, 1)
		}
	case models.StageEnrichment:
		m.portalDuration.WithLabelValues(string(event.Stage), event.Outcome()).Observe(event.Duration.Seconds())
		atomic.AddUint64(&m.portalCalls, 1)
		if event.Err != nil {
			m.enrichmentFailures.Inc()
			atomic.AddUint64(&m.portalFailures, 1)
			atomic.AddUint64(&m.enrichmentFailCount, 1)
		}
	case models.StageLedgerWrite:
		m.ledgerWrites.WithLabelValues(event.Outcome()).Inc()
		atomic.AddUint64(&m.ledgerWriteCount, 1)
		if event.Err != nil {
			atomic.AddUint64(&m.ledgerWriteFailCount, 1)
		}
	case models.StageLedgerSync:
		m.ledgerSyncDuration.Observe(event.Duration.Seconds())
	}
}

// Snapshot returns aggregated metrics suitable for the summary endpoint.
func (m *MetricsService) Snapshot() models.MetricsSnapshot {
	if m == nil {
		return models.MetricsSnapshot{}
	}
	requests := atomic.LoadUint64(&m.requestCount)
	reqDuration := atomic.LoadUint64(&m.requestDurationTotal)

	var avgRequestMs float64
	if requests > 0 {
		avgRequestMs = float64(reqDuration) / float64(requests) / float64(time.Millisecond)
	}

	return models.MetricsSnapshot{
		RequestsTotal:            requests,
		AverageRequestDurationMs: avgRequestMs,
		PortalCalls:              atomic.LoadUint64(&m.portalCalls),
		PortalFailures:           atomic.LoadUint64(&m.portalFailures),
		EnrichmentFailures:       atomic.LoadUint64(&m.enrichmentFailCount),
		LedgerWrites:             atomic.LoadUint64(&m.ledgerWriteCount),
		LedgerWriteFailures:      atomic.LoadUint64(&m.ledgerWriteFailCount),
		Goroutines:               runtime.NumGoroutine(),
		GeneratedAt:              time.Now().UTC(),
	}
}
