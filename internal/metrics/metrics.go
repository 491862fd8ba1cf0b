package metrics

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/commonshub/commonshub-web/internal/content"
	"github.com/commonshub/commonshub-web/internal/version"
)

type ServerMetrics struct {
	reg      *prometheus.Registry
	handler  http.Handler
	inflight prometheus.Gauge
	reqTotal *prometheus.CounterVec
	reqDur   *prometheus.HistogramVec

	respBytes      *prometheus.HistogramVec
	httpPanicTotal prometheus.Counter
	buildInfo      *prometheus.GaugeVec
	errorsTotal    *prometheus.CounterVec

	ratelimitDeniedTotal   prometheus.Counter
	ratelimitCapacityTotal prometheus.Counter

	profilingActive prometheus.Gauge

	// content metrics
	contentLoadsTotal    *prometheus.CounterVec
	contentFailuresTotal *prometheus.CounterVec
	contentFilesFailing  prometheus.Gauge
	contentCheckedTs     prometheus.Gauge
	contentSource        *prometheus.GaugeVec

	// dev watcher metrics
	watchEventsTotal prometheus.Counter
	watchPassesTotal *prometheus.CounterVec

	// bundle sync metrics
	bundlePollsTotal   prometheus.Counter
	bundleSwapsTotal   prometheus.Counter
	bundleErrorsTotal  *prometheus.CounterVec
	bundleLoadDuration prometheus.Histogram
	bundleInfo         *prometheus.GaugeVec
}

// New returns a fresh registry + standard collectors + HTTP metrics
// safe labels only (method, route, code) to avoid path/cardinality explosions
func New() *ServerMetrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	m := &ServerMetrics{
		inflight: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "http_inflight_requests",
			Help: "Current number of in-flight HTTP requests",
		}),
		reqTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total HTTP requests by method, route, and status",
		}, []string{"method", "route", "status"}),
		reqDur: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Request latency by method and route",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"method", "route"}),
		respBytes: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_response_size_bytes",
			Help:    "Response size by method and route",
			Buckets: []float64{256, 1024, 4096, 16384, 65536, 262144, 1048576},
		}, []string{"method", "route"}),
		httpPanicTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "http_panic_total",
			Help: "Total number of recovered httpserver panics",
		}),
		buildInfo: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "build_info",
			Help: "Build metadata (value is always 1)",
		}, []string{"app", "component", "version", "commit", "commit_date", "build_date", "vcs_dirty", "go_version"}),
		errorsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_errors_total",
			Help: "Total 5xx HTTP server errors by method and route (SLI)",
		}, []string{"method", "route"}),
		ratelimitDeniedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "http_requests_rate_limited_total",
			Help: "Total requests rejected by rate limiter",
		}),
		ratelimitCapacityTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "http_requests_rate_limited_capacity_total",
			Help: "Total number of times rate limiter capacity reached",
		}),
		profilingActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "profiling_active",
			Help: "Whether continuous profiling is active (1) or disabled/failed (0)",
		}),
		contentLoadsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "content_loads_total",
			Help: "Total content document loads by filename and result",
		}, []string{"filename", "result"}),
		contentFailuresTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "content_load_failures_total",
			Help: "Total content load failures by filename and kind",
		}, []string{"filename", "kind"}),
		contentFilesFailing: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "content_files_failing",
			Help: "Number of registered content files failing validation in the last pass",
		}),
		contentCheckedTs: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "content_checked_timestamp_seconds",
			Help: "Unix timestamp of the last completed batch validation pass",
		}),
		contentSource: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "content_source_info",
			Help: "Current content source (label carries value, gauge is always 1)",
		}, []string{"source"}),
		watchEventsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "content_watch_events_total",
			Help: "Total filesystem events seen by the dev content watcher",
		}),
		watchPassesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "content_watch_passes_total",
			Help: "Total watcher revalidation passes by outcome",
		}, []string{"outcome"}),
		bundlePollsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "content_bundle_polls_total",
			Help: "Total number of bundle watcher poll cycles",
		}),
		bundleSwapsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "content_bundle_swaps_total",
			Help: "Total number of successful content bundle swaps",
		}),
		bundleErrorsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "content_bundle_errors_total",
			Help: "Total bundle watcher errors by type",
		}, []string{"type"}),
		bundleLoadDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "content_bundle_load_duration_seconds",
			Help:    "Time to download, verify, and extract a content bundle",
			Buckets: []float64{0.5, 1, 2.5, 5, 10, 30, 60},
		}),
		bundleInfo: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "content_bundle_info",
			Help: "Currently active content bundle (label carries identity, value is always 1)",
		}, []string{"sha256"}),
	}
	reg.MustRegister(
		m.inflight,
		m.reqTotal,
		m.reqDur,
		m.respBytes,
		m.httpPanicTotal,
		m.buildInfo,
		m.errorsTotal,
		m.ratelimitDeniedTotal,
		m.ratelimitCapacityTotal,
		m.profilingActive,
		m.contentLoadsTotal,
		m.contentFailuresTotal,
		m.contentFilesFailing,
		m.contentCheckedTs,
		m.contentSource,
		m.watchEventsTotal,
		m.watchPassesTotal,
		m.bundlePollsTotal,
		m.bundleSwapsTotal,
		m.bundleErrorsTotal,
		m.bundleLoadDuration,
		m.bundleInfo,
	)

	m.handler = promhttp.HandlerFor(reg, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
	m.reg = reg
	return m
}

func (m *ServerMetrics) Handler() http.Handler {
	return m.handler
}

func (m *ServerMetrics) IncHttpPanic() {
	m.httpPanicTotal.Inc()
}

// set once at startup.
func (m *ServerMetrics) SetBuildInfoFromVersion(app, component string, vi *version.Info) {
	dirty := "unknown"
	if vi.VCSDirty != nil {
		dirty = strconv.FormatBool(*vi.VCSDirty)
	}
	m.buildInfo.With(prometheus.Labels{
		"app":         app,
		"component":   component,
		"version":     vi.Version,
		"commit":      vi.Commit,
		"commit_date": vi.CommitDate,
		"build_date":  vi.BuildDate,
		"go_version":  vi.GoVersion,
		"vcs_dirty":   dirty,
	}).Set(1)
}

func (m *ServerMetrics) IncRateLimitDenied() {
	m.ratelimitDeniedTotal.Inc()
}

func (m *ServerMetrics) IncRateLimitCapacity() {
	m.ratelimitCapacityTotal.Inc()
}

func (m *ServerMetrics) SetProfilingActive(active bool) {
	if active {
		m.profilingActive.Set(1)
	} else {
		m.profilingActive.Set(0)
	}
}

// LoadObserved implements content.LoadMetrics.
func (m *ServerMetrics) LoadObserved(filename, result string) {
	m.contentLoadsTotal.WithLabelValues(filename, result).Inc()
}

// LoadFailed implements content.LoadMetrics.
func (m *ServerMetrics) LoadFailed(filename, kind string) {
	m.contentFailuresTotal.WithLabelValues(filename, kind).Inc()
}

// WatchEvent implements content.WatchMetrics.
func (m *ServerMetrics) WatchEvent() {
	m.watchEventsTotal.Inc()
}

// WatchPass implements content.WatchMetrics.
func (m *ServerMetrics) WatchPass(ok bool) {
	outcome := "fail"
	if ok {
		outcome = "pass"
	}
	m.watchPassesTotal.WithLabelValues(outcome).Inc()
}

// RecordValidation mirrors a batch report into the validation gauges.
func (m *ServerMetrics) RecordValidation(r *content.Report) {
	if r == nil {
		return
	}
	m.contentFilesFailing.Set(float64(r.Failed()))
	m.contentCheckedTs.Set(float64(r.CheckedAt.Unix()))
}

func (m *ServerMetrics) SetContentSource(source string) {
	m.contentSource.Reset() // clear previous label value
	m.contentSource.WithLabelValues(source).Set(1)
}

func (m *ServerMetrics) IncBundlePolls() {
	m.bundlePollsTotal.Inc()
}

func (m *ServerMetrics) IncBundleSwaps() {
	m.bundleSwapsTotal.Inc()
}

func (m *ServerMetrics) IncBundleError(errType string) {
	m.bundleErrorsTotal.WithLabelValues(errType).Inc()
}

func (m *ServerMetrics) ObserveBundleLoadDuration(seconds float64) {
	m.bundleLoadDuration.Observe(seconds)
}

func (m *ServerMetrics) SetBundle(sha256 string) {
	m.bundleInfo.Reset()
	m.bundleInfo.WithLabelValues(sha256).Set(1)
}
