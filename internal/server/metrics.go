package server

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/NewSmoke38/SED-Manager/pkg/sshutil"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "sedm"

// Metrics holds the collectors exported on /metrics. Each Server owns its
// own registry so several servers can live in one process.
type Metrics struct {
	registry *prometheus.Registry

	httpRequests     *prometheus.CounterVec
	httpDuration     *prometheus.HistogramVec
	httpInFlight     prometheus.Gauge
	rateLimitRejects prometheus.Counter
	panicRecoveries  prometheus.Counter

	sshDials       *prometheus.CounterVec
	sshCommands    *prometheus.CounterVec
	sshCommandTime prometheus.Histogram
	collections    *prometheus.CounterVec
	bridgeSessions prometheus.Gauge
}

func newMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,
		httpRequests: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		httpDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request latency distribution",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
		httpInFlight: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "http_requests_in_flight",
			Help:      "Current number of HTTP requests being served",
		}),
		rateLimitRejects: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rate_limit_rejects_total",
			Help:      "Total number of requests rejected due to rate limiting",
		}),
		panicRecoveries: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "panic_recoveries_total",
			Help:      "Total number of panics recovered in HTTP handlers",
		}),
		sshDials: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "ssh_dials_total",
				Help:      "SSH connection attempts by outcome",
			},
			[]string{"outcome"},
		),
		sshCommands: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "ssh_commands_total",
				Help:      "Remote commands run by outcome",
			},
			[]string{"outcome"},
		),
		sshCommandTime: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "ssh_command_duration_seconds",
			Help:      "Remote command latency distribution",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 20},
		}),
		collections: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "metrics_collections_total",
				Help:      "Device metrics collections by resulting status",
			},
			[]string{"status"},
		),
		bridgeSessions: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "bridge_sessions_active",
			Help:      "Terminal sessions currently attached",
		}),
	}
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// metricsMiddleware records request counts and latency. Paths are labeled
// by route pattern so device IDs don't blow up cardinality.
func (s *Server) metricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		s.metrics.httpInFlight.Inc()
		defer s.metrics.httpInFlight.Dec()

		rw := wrapResponseWriter(w)
		next.ServeHTTP(rw, r)

		path := routePattern(r)
		s.metrics.httpRequests.WithLabelValues(r.Method, path, strconv.Itoa(rw.Status())).Inc()
		s.metrics.httpDuration.WithLabelValues(r.Method, path).Observe(time.Since(start).Seconds())
	})
}

func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if p := rctx.RoutePattern(); p != "" {
			return p
		}
	}
	return "unmatched"
}

// outcome labels an SSH result: "ok" or the lowercased error code.
func outcome(err error) string {
	if err == nil {
		return "ok"
	}
	return strings.ToLower(sshutil.Classify(err))
}

// instrument wraps a dialer so every connection and command it produces
// is counted.
func (m *Metrics) instrument(next sshutil.Dialer) sshutil.Dialer {
	return &instrumentedDialer{next: next, m: m}
}

type instrumentedDialer struct {
	next sshutil.Dialer
	m    *Metrics
}

func (d *instrumentedDialer) Dial(ctx context.Context, target sshutil.Target) (sshutil.Conn, error) {
	conn, err := d.next.Dial(ctx, target)
	d.m.sshDials.WithLabelValues(outcome(err)).Inc()
	if err != nil {
		return nil, err
	}
	return &instrumentedConn{Conn: conn, m: d.m}, nil
}

type instrumentedConn struct {
	sshutil.Conn
	m *Metrics
}

func (c *instrumentedConn) Run(ctx context.Context, cmd string) (sshutil.CommandResult, error) {
	start := time.Now()
	res, err := c.Conn.Run(ctx, cmd)
	c.m.sshCommandTime.Observe(time.Since(start).Seconds())
	c.m.sshCommands.WithLabelValues(outcome(err)).Inc()
	return res, err
}
