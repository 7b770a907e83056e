// Package metrics owns the prometheus registry: HTTP request metrics
// plus counters for the editing pipeline (saves, publishes, pushes,
// validation issues).
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/pagedesk/pagedesk/internal/version"
)

type ServerMetrics struct {
	reg     *prometheus.Registry
	handler http.Handler

	inflight       prometheus.Gauge
	reqTotal       *prometheus.CounterVec
	reqDur         *prometheus.HistogramVec
	httpPanicTotal prometheus.Counter
	buildInfo      *prometheus.GaugeVec

	ratelimitDeniedTotal prometheus.Counter

	savesTotal            *prometheus.CounterVec
	publishTotal          *prometheus.CounterVec
	publishDuration       prometheus.Histogram
	pushFailuresTotal     prometheus.Counter
	validationIssuesTotal *prometheus.CounterVec
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
		httpPanicTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "http_panic_total",
			Help: "Total number of recovered httpserver panics",
		}),
		buildInfo: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "build_info",
			Help: "Build metadata (value is always 1)",
		}, []string{"app", "version", "commit", "go_version"}),
		ratelimitDeniedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "http_requests_rate_limited_total",
			Help: "Total requests rejected by rate limiter",
		}),
		savesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "documents_saved_total",
			Help: "Total document saves by content type",
		}, []string{"type"}),
		publishTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "publish_total",
			Help: "Total publish attempts by terminal state",
		}, []string{"state"}),
		publishDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "publish_duration_seconds",
			Help:    "Wall time of a publish (stage+commit+push)",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		}),
		pushFailuresTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "push_failures_total",
			Help: "Total push attempts that failed after a successful commit",
		}),
		validationIssuesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "validation_issues_total",
			Help: "Total heading validation issues reported, by rule",
		}, []string{"rule", "severity"}),
	}

	reg.MustRegister(
		m.inflight, m.reqTotal, m.reqDur, m.httpPanicTotal, m.buildInfo,
		m.ratelimitDeniedTotal,
		m.savesTotal, m.publishTotal, m.publishDuration,
		m.pushFailuresTotal, m.validationIssuesTotal,
	)

	m.reg = reg
	m.handler = promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
	return m
}

// Handler serves the /metrics endpoint for this registry.
func (m *ServerMetrics) Handler() http.Handler { return m.handler }

// Registry is exposed for tests.
func (m *ServerMetrics) Registry() *prometheus.Registry { return m.reg }

func (m *ServerMetrics) SetBuildInfo(vi version.Info) {
	m.buildInfo.WithLabelValues(vi.AppName, vi.Version, vi.Commit, vi.GoVersion).Set(1)
}

func (m *ServerMetrics) IncHttpPanic()        { m.httpPanicTotal.Inc() }
func (m *ServerMetrics) IncRateLimitDenied()  { m.ratelimitDeniedTotal.Inc() }
func (m *ServerMetrics) IncSaved(ctype string) { m.savesTotal.WithLabelValues(ctype).Inc() }
func (m *ServerMetrics) IncPushFailure()      { m.pushFailuresTotal.Inc() }

func (m *ServerMetrics) ObservePublish(state string, seconds float64) {
	m.publishTotal.WithLabelValues(state).Inc()
	m.publishDuration.Observe(seconds)
}

func (m *ServerMetrics) IncValidationIssue(rule, severity string) {
	m.validationIssuesTotal.WithLabelValues(rule, severity).Inc()
}
