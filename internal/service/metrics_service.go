package service

import (
	"net/http"
	"runtime"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ufrn-horarios/horarios-api/internal/dto"
	"github.com/ufrn-horarios/horarios-api/pkg/horario"
)

// MetricsService encapsulates Prometheus instrumentation and provides
// lightweight snapshots for API consumption. All methods accept a nil receiver.
type MetricsService struct {
	registry            *prometheus.Registry
	handler             http.Handler
	requestDuration     *prometheus.HistogramVec
	requestTotal        *prometheus.CounterVec
	cacheLatency        prometheus.Observer
	cacheHits           prometheus.Counter
	cacheMisses         prometheus.Counter
	dbQueryDuration     *prometheus.HistogramVec
	conflictsDetected   *prometheus.GaugeVec
	conflictScan        prometheus.Observer
	assignmentsRejected prometheus.Counter
	eventsPublished     *prometheus.CounterVec

	cacheHitCount        uint64
	cacheMissCount       uint64
	requestCount         uint64
	requestDurationTotal uint64
	rejectedCount        uint64
	lastConflicts        int64
}

// NewMetricsService registers the collectors on a private registry.
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

	cacheLatency := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "cache_latency_seconds",
		Help:    "Latency for cache lookups",
		Buckets: prometheus.DefBuckets,
	})

	cacheHits := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cache_hits_total",
		Help: "Total cache hits",
	})

	cacheMisses := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cache_misses_total",
		Help: "Total cache misses",
	})

	dbQueryDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "db_query_duration_seconds",
		Help:    "Duration of database queries",
		Buckets: prometheus.DefBuckets,
	}, []string{"query"})

	conflictsDetected := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "horarios_conflicts_detected",
		Help: "Conflicts found by the most recent scan",
	}, []string{"reason"})

	conflictScan := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "horarios_conflict_scan_seconds",
		Help:    "Duration of conflict detection over all sections",
		Buckets: prometheus.DefBuckets,
	})

	assignmentsRejected := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "horarios_assignments_rejected_total",
		Help: "Professor assignments rejected by the weekly hour cap",
	})

	eventsPublished := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "horarios_events_published_total",
		Help: "Section change events handed to the broker",
	}, []string{"result"})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, cacheLatency, cacheHits, cacheMisses, dbQueryDuration,
		conflictsDetected, conflictScan, assignmentsRejected, eventsPublished, goroutines)

	return &MetricsService{
		registry:            registry,
		handler:             promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration:     requestDuration,
		requestTotal:        requestTotal,
		cacheLatency:        cacheLatency,
		cacheHits:           cacheHits,
		cacheMisses:         cacheMisses,
		dbQueryDuration:     dbQueryDuration,
		conflictsDetected:   conflictsDetected,
		conflictScan:        conflictScan,
		assignmentsRejected: assignmentsRejected,
		eventsPublished:     eventsPublished,
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
	labelStatus := strconv.Itoa(status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
	atomic.AddUint64(&m.requestCount, 1)
	atomic.AddUint64(&m.requestDurationTotal, uint64(duration.Nanoseconds()))
}

// RecordCacheOperation records a cache lookup.
func (m *MetricsService) RecordCacheOperation(hit bool, duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheLatency.Observe(duration.Seconds())
	if hit {
		m.cacheHits.Inc()
		atomic.AddUint64(&m.cacheHitCount, 1)
		return
	}
	m.cacheMisses.Inc()
	atomic.AddUint64(&m.cacheMissCount, 1)
}

// ObserveDBQuery records the duration of a named query.
func (m *MetricsService) ObserveDBQuery(query string, duration time.Duration) {
	if m == nil {
		return
	}
	m.dbQueryDuration.WithLabelValues(query).Observe(duration.Seconds())
}

// RecordConflictScan publishes the outcome of a conflict scan.
func (m *MetricsService) RecordConflictScan(bySemester, byProfessor int, duration time.Duration) {
	if m == nil {
		return
	}
	m.conflictsDetected.WithLabelValues(string(horario.BySemester)).Set(float64(bySemester))
	m.conflictsDetected.WithLabelValues(string(horario.ByProfessor)).Set(float64(byProfessor))
	m.conflictScan.Observe(duration.Seconds())
	atomic.StoreInt64(&m.lastConflicts, int64(bySemester+byProfessor))
}

// RecordAssignmentRejected counts an assignment refused by the hour cap.
func (m *MetricsService) RecordAssignmentRejected() {
	if m == nil {
		return
	}
	m.assignmentsRejected.Inc()
	atomic.AddUint64(&m.rejectedCount, 1)
}

// RecordEventPublished counts event publishing outcomes.
func (m *MetricsService) RecordEventPublished(ok bool) {
	if m == nil {
		return
	}
	result := "ok"
	if !ok {
		result = "error"
	}
	m.eventsPublished.WithLabelValues(result).Inc()
}

// Snapshot summarises the counters for the metrics summary endpoint.
func (m *MetricsService) Snapshot() dto.MetricsSnapshot {
	if m == nil {
		return dto.MetricsSnapshot{GeneratedAt: time.Now().UTC()}
	}
	hits := atomic.LoadUint64(&m.cacheHitCount)
	misses := atomic.LoadUint64(&m.cacheMissCount)
	requests := atomic.LoadUint64(&m.requestCount)
	reqDuration := atomic.LoadUint64(&m.requestDurationTotal)

	var cacheRatio float64
	if total := hits + misses; total > 0 {
		cacheRatio = float64(hits) / float64(total)
	}
	var avgRequestMs float64
	if requests > 0 {
		avgRequestMs = float64(reqDuration) / float64(requests) / float64(time.Millisecond)
	}

	return dto.MetricsSnapshot{
		CacheHitRatio:            cacheRatio,
		CacheHits:                hits,
		CacheMisses:              misses,
		RequestsTotal:            requests,
		AverageRequestDurationMs: avgRequestMs,
		AssignmentsRejected:      atomic.LoadUint64(&m.rejectedCount),
		LastConflictCount:        int(atomic.LoadInt64(&m.lastConflicts)),
		Goroutines:               runtime.NumGoroutine(),
		GeneratedAt:              time.Now().UTC(),
	}
}
