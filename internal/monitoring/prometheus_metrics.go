package monitoring

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics - game economy and HTTP metrics on a private registry
type Metrics struct {
	registry *prometheus.Registry

	// Game metrics
	taps               *prometheus.CounterVec
	tapRejections      *prometheus.CounterVec
	earned             *prometheus.CounterVec
	missionTransitions *prometheus.CounterVec
	cachedUsers        prometheus.Gauge

	// HTTP metrics
	requestCount    *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
}

func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),

		taps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "uc_taps_total",
			Help: "Successful taps by reward type",
		}, []string{"type"}),
		tapRejections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "uc_tap_rejections_total",
			Help: "Rejected taps by reason",
		}, []string{"reason"}),
		earned: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "uc_earned_total",
			Help: "UC credited to users by source",
		}, []string{"source"}),
		missionTransitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "uc_mission_transitions_total",
			Help: "Mission transition attempts by transition and result",
		}, []string{"transition", "result"}),
		cachedUsers: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "uc_cached_users",
			Help: "Users held by the session engine",
		}),

		requestCount: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "uc_http_requests_total",
			Help: "HTTP requests by method, route and status",
		}, []string{"method", "route", "status"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "uc_http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}

	m.registry.MustRegister(
		m.taps,
		m.tapRejections,
		m.earned,
		m.missionTransitions,
		m.cachedUsers,
		m.requestCount,
		m.requestDuration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// The recorders below accept a nil receiver so callers can run without metrics.

func (m *Metrics) RecordTap(rewardType string, earned int64) {
	if m == nil {
		return
	}
	m.taps.WithLabelValues(rewardType).Inc()
	m.earned.WithLabelValues("tap").Add(float64(earned))
}

func (m *Metrics) RecordTapRejected(reason string) {
	if m == nil {
		return
	}
	m.tapRejections.WithLabelValues(reason).Inc()
}

func (m *Metrics) RecordCredit(source string, amount int64) {
	if m == nil || amount <= 0 {
		return
	}
	m.earned.WithLabelValues(source).Add(float64(amount))
}

func (m *Metrics) RecordMission(transition, result string) {
	if m == nil {
		return
	}
	m.missionTransitions.WithLabelValues(transition, result).Inc()
}

func (m *Metrics) SetCachedUsers(n int) {
	if m == nil {
		return
	}
	m.cachedUsers.Set(float64(n))
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Middleware records count and latency per chi route pattern.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if p := rctx.RoutePattern(); p != "" {
				route = p
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		m.requestCount.WithLabelValues(r.Method, route, strconv.Itoa(status)).Inc()
		m.requestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}
