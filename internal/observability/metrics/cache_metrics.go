package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// CacheMetrics captures permission cache refresh health and report pipeline signals.
type CacheMetrics struct {
	syncRuns      *prometheus.CounterVec
	syncDuration  *prometheus.HistogramVec
	syncErrors    *prometheus.CounterVec
	syncRows      *prometheus.CounterVec
	syncSkipped   *prometheus.CounterVec
	runLoopLag    prometheus.Histogram
	fallbacks     *prometheus.CounterVec
	reportRows    *prometheus.HistogramVec
	decisions     *prometheus.CounterVec
	lastSuccessTS *prometheus.GaugeVec
}

var (
	cacheMetricsOnce sync.Once
	cacheMetrics     *CacheMetrics
)

// Cache returns the singleton cache metrics registry.
func Cache() *CacheMetrics {
	return CacheWithConfig(Config{})
}

// CacheWithConfig returns the singleton cache metrics registry using config labels.
func CacheWithConfig(cfg Config) *CacheMetrics {
	cacheMetricsOnce.Do(func() {
		cacheMetrics = newCacheMetrics(prometheus.DefaultRegisterer, cfg)
	})
	return cacheMetrics
}

// ResetCacheMetricsForTest resets the singleton for tests.
func ResetCacheMetricsForTest() {
	cacheMetricsOnce = sync.Once{}
	cacheMetrics = nil
}

// NewCacheMetricsForTest builds an unshared registry-backed instance.
func NewCacheMetricsForTest(registerer prometheus.Registerer) *CacheMetrics {
	return newCacheMetrics(registerer, Config{ServiceName: "ispreport", Environment: "test"})
}

func newCacheMetrics(registerer prometheus.Registerer, cfg Config) *CacheMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}
	labels := cfg.constLabels()

	m := &CacheMetrics{
		syncRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "ispreport_cache_sync_runs_total",
			Help:        "Permission cache sync runs by tenant and outcome.",
			ConstLabels: labels,
		}, []string{"tenant", "outcome"}),
		syncDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:        "ispreport_cache_sync_duration_seconds",
			Help:        "Permission cache sync latency per tenant.",
			Buckets:     []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 20, 30, 60, 120, 300},
			ConstLabels: labels,
		}, []string{"tenant"}),
		syncErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "ispreport_cache_sync_errors_total",
			Help:        "Permission cache sync errors by low-cardinality reason.",
			ConstLabels: labels,
		}, []string{"tenant", "reason"}),
		syncRows: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "ispreport_cache_sync_rows_total",
			Help:        "Rows written into the permission cache per entity.",
			ConstLabels: labels,
		}, []string{"tenant", "entity"}),
		syncSkipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "ispreport_cache_sync_skipped_total",
			Help:        "Refresh cycles skipped because another replica held the lock.",
			ConstLabels: labels,
		}, []string{"reason"}),
		runLoopLag: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:        "ispreport_cache_refresh_lag_seconds",
			Help:        "Refresh loop lag beyond the configured interval.",
			Buckets:     []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30, 60, 300},
			ConstLabels: labels,
		}),
		fallbacks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "ispreport_report_query_fallbacks_total",
			Help:        "Report source queries by serving candidate outcome.",
			ConstLabels: labels,
		}, []string{"tenant", "outcome"}),
		reportRows: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:        "ispreport_report_rows",
			Help:        "Rows surviving each report stage.",
			Buckets:     prometheus.ExponentialBuckets(1, 4, 10),
			ConstLabels: labels,
		}, []string{"stage"}),
		decisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "ispreport_permission_decisions_total",
			Help:        "Permission resolutions by entity kind and decision.",
			ConstLabels: labels,
		}, []string{"kind", "decision"}),
		lastSuccessTS: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name:        "ispreport_cache_sync_last_success_timestamp_seconds",
			Help:        "Unix time of the last successful sync per tenant.",
			ConstLabels: labels,
		}, []string{"tenant"}),
	}

	registerer.MustRegister(
		m.syncRuns,
		m.syncDuration,
		m.syncErrors,
		m.syncRows,
		m.syncSkipped,
		m.runLoopLag,
		m.fallbacks,
		m.reportRows,
		m.decisions,
		m.lastSuccessTS,
	)
	return m
}

// ObserveSync records one tenant sync attempt.
func (m *CacheMetrics) ObserveSync(tenant string, duration time.Duration, err error, finishedAt time.Time) {
	if m == nil {
		return
	}
	m.syncDuration.WithLabelValues(tenant).Observe(duration.Seconds())
	if err != nil {
		m.syncRuns.WithLabelValues(tenant, "failed").Inc()
		m.syncErrors.WithLabelValues(tenant, ClassifyReason(err)).Inc()
		return
	}
	m.syncRuns.WithLabelValues(tenant, "succeeded").Inc()
	m.lastSuccessTS.WithLabelValues(tenant).Set(float64(finishedAt.Unix()))
}

// AddSyncRows records how many rows of an entity were written for a tenant.
func (m *CacheMetrics) AddSyncRows(tenant, entity string, count int) {
	if m == nil || count <= 0 {
		return
	}
	m.syncRows.WithLabelValues(tenant, entity).Add(float64(count))
}

func (m *CacheMetrics) IncSyncSkipped(reason string) {
	if m == nil {
		return
	}
	m.syncSkipped.WithLabelValues(reason).Inc()
}

// ObserveRunLoopLag records lag between the scheduled tick and the actual run start.
func (m *CacheMetrics) ObserveRunLoopLag(lag time.Duration) {
	if m == nil {
		return
	}
	if lag < 0 {
		lag = 0
	}
	m.runLoopLag.Observe(lag.Seconds())
}

// IncFallback counts which candidate served a report query:
// primary, fallback, empty or failed.
func (m *CacheMetrics) IncFallback(tenant, outcome string) {
	if m == nil {
		return
	}
	m.fallbacks.WithLabelValues(tenant, outcome).Inc()
}

func (m *CacheMetrics) ObserveReportRows(stage string, rows int) {
	if m == nil {
		return
	}
	m.reportRows.WithLabelValues(stage).Observe(float64(rows))
}

func (m *CacheMetrics) IncDecision(kind, decision string) {
	if m == nil {
		return
	}
	m.decisions.WithLabelValues(kind, decision).Inc()
}
