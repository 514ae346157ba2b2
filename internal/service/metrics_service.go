package service

import (
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/noah-isme/dayboard/internal/models"
)

// Merge outcomes recorded per notification.
const (
	OutcomeApplied = "applied"
	OutcomeNoop    = "noop"
	OutcomeDropped = "dropped"
)

// MetricsService encapsulates Prometheus instrumentation. A nil *MetricsService is a valid no-op.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	dbQueryDuration *prometheus.HistogramVec
	changesTotal    *prometheus.CounterVec
	resyncTotal     *prometheus.CounterVec
	inboxDepth      prometheus.Gauge
	collectionSize  prometheus.Gauge
}

// NewMetricsService registers core Prometheus collectors on a private registry.
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

	dbQueryDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "db_query_duration_seconds",
		Help:    "Duration of event store calls",
		Buckets: prometheus.DefBuckets,
	}, []string{"query", "outcome"})

	changesTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "realtime_changes_total",
		Help: "Realtime notifications processed by the merge engine",
	}, []string{"kind", "outcome"})

	resyncTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "realtime_resync_total",
		Help: "Full refetches of the events table",
	}, []string{"trigger", "outcome"})

	inboxDepth := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "realtime_inbox_depth",
		Help: "Messages waiting in the merge engine inbox",
	})

	collectionSize := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "events_collection_size",
		Help: "Events held in the live collection",
	})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, dbQueryDuration, changesTotal, resyncTotal, inboxDepth, collectionSize, goroutines)

	return &MetricsService{
		registry:        registry,
		handler:         promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration: requestDuration,
		requestTotal:    requestTotal,
		dbQueryDuration: dbQueryDuration,
		changesTotal:    changesTotal,
		resyncTotal:     resyncTotal,
		inboxDepth:      inboxDepth,
		collectionSize:  collectionSize,
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

// Registry exposes the collectors for tests.
func (m *MetricsService) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
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

// ObserveDBQuery records event store call timing.
func (m *MetricsService) ObserveDBQuery(label string, duration time.Duration, err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.dbQueryDuration.WithLabelValues(label, outcome).Observe(duration.Seconds())
}

// ObserveChange counts one processed notification.
func (m *MetricsService) ObserveChange(kind models.ChangeKind, outcome string) {
	if m == nil {
		return
	}
	if kind == "" {
		kind = "UNKNOWN"
	}
	m.changesTotal.WithLabelValues(string(kind), outcome).Inc()
}

// ObserveResync counts one full refetch.
func (m *MetricsService) ObserveResync(trigger string, err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.resyncTotal.WithLabelValues(trigger, outcome).Inc()
}

// SetInboxDepth publishes the current inbox backlog.
func (m *MetricsService) SetInboxDepth(depth int) {
	if m == nil {
		return
	}
	m.inboxDepth.Set(float64(depth))
}

// SetCollectionSize publishes the live collection size.
func (m *MetricsService) SetCollectionSize(size int) {
	if m == nil {
		return
	}
	m.collectionSize.Set(float64(size))
}
