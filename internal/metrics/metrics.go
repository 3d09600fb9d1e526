// Package metrics exposes Prometheus counters for session and authorization
// outcomes. A nil *Metrics is valid and records nothing.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "authcore"

// Outcome labels.
const (
	OutcomeSuccess     = "success"
	OutcomeInvalid     = "invalid"
	OutcomeRevoked     = "revoked"
	OutcomeThrottled   = "throttled"
	OutcomeUnavailable = "unavailable"
)

// untrackedPermission labels authorization checks for names outside the
// tracked set, so caller-supplied strings cannot grow the series count.
const untrackedPermission = "other"

type Metrics struct {
	registry       *prometheus.Registry
	logins         *prometheus.CounterVec
	refreshes      *prometheus.CounterVec
	logouts        prometheus.Counter
	authorizations *prometheus.CounterVec
	rpcDuration    *prometheus.HistogramVec
	tracked        map[string]struct{}
}

// New creates a Metrics instance with its own registry. Authorization
// decisions are labelled by permission only for the tracked names.
func New(trackedPermissions ...string) *Metrics {
	tracked := make(map[string]struct{}, len(trackedPermissions))
	for _, name := range trackedPermissions {
		tracked[name] = struct{}{}
	}

	m := &Metrics{
		registry: prometheus.NewRegistry(),
		tracked:  tracked,
		logins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "logins_total",
			Help:      "Login attempts by outcome.",
		}, []string{"outcome"}),
		refreshes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "refreshes_total",
			Help:      "Refresh token rotations by outcome.",
		}, []string{"outcome"}),
		logouts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "logouts_total",
			Help:      "Acknowledged logouts.",
		}),
		authorizations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "authorizations_total",
			Help:      "Authorization decisions by permission.",
		}, []string{"permission", "decision"}),
		rpcDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "grpc_request_duration_seconds",
			Help:      "gRPC request latencies in seconds.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "code"}),
	}

	m.registry.MustRegister(
		m.logins,
		m.refreshes,
		m.logouts,
		m.authorizations,
		m.rpcDuration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) Login(outcome string) {
	if m == nil {
		return
	}
	m.logins.WithLabelValues(outcome).Inc()
}

func (m *Metrics) Refresh(outcome string) {
	if m == nil {
		return
	}
	m.refreshes.WithLabelValues(outcome).Inc()
}

func (m *Metrics) Logout() {
	if m == nil {
		return
	}
	m.logouts.Inc()
}

func (m *Metrics) Authorization(permission string, allowed bool) {
	if m == nil {
		return
	}
	decision := "deny"
	if allowed {
		decision = "allow"
	}
	if _, ok := m.tracked[permission]; !ok {
		permission = untrackedPermission
	}
	m.authorizations.WithLabelValues(permission, decision).Inc()
}

func (m *Metrics) RPC(method, code string, d time.Duration) {
	if m == nil {
		return
	}
	m.rpcDuration.WithLabelValues(method, code).Observe(d.Seconds())
}
