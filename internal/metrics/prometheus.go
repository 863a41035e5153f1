package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Authorization results.
const (
	ResultAllowed = "allowed"
	ResultDenied  = "denied"
	ResultError   = "error"
)

// Tenant lookup outcomes.
const (
	OutcomeSuccess      = "success"
	OutcomeConfig       = "config_error"
	OutcomeUnauthorized = "unauthorized"
	OutcomeUnreachable  = "unreachable"
	OutcomeDecode       = "decode_error"
	OutcomeRemote       = "remote_error"
)

// Default histogram buckets for tenant lookups (in seconds)
var defaultBuckets = []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10}

// Metrics wraps the prometheus collectors of the authorizer. A nil *Metrics
// records nothing.
type Metrics struct {
	registry *prometheus.Registry

	authorizationsTotal   *prometheus.CounterVec
	tenantLookupsTotal    *prometheus.CounterVec
	tenantLookupDurations prometheus.Histogram
}

// New creates the collectors on a private registry.
func New(namespace string) *Metrics {
	registry := prometheus.NewRegistry()
	// Register default Go and process collectors
	registry.MustRegister(prometheus.NewGoCollector())
	registry.MustRegister(prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}))

	m := &Metrics{
		registry: registry,

		authorizationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "authorizations_total",
				Help:      "Total number of subscription authorization decisions",
			},
			[]string{"result"},
		),

		tenantLookupsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "tenant_lookups_total",
				Help:      "Total number of remote tenant id lookups",
			},
			[]string{"outcome"},
		),

		tenantLookupDurations: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "tenant_lookup_duration_seconds",
				Help:      "Duration of remote tenant id lookups",
				Buckets:   defaultBuckets,
			},
		),
	}

	registry.MustRegister(
		m.authorizationsTotal,
		m.tenantLookupsTotal,
		m.tenantLookupDurations,
	)
	return m
}

// RecordAuthorization counts one authorization decision.
func (m *Metrics) RecordAuthorization(result string) {
	if m == nil {
		return
	}
	m.authorizationsTotal.WithLabelValues(result).Inc()
}

// RecordTenantLookup counts one tenant lookup and observes its duration.
func (m *Metrics) RecordTenantLookup(outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.tenantLookupsTotal.WithLabelValues(outcome).Inc()
	m.tenantLookupDurations.Observe(d.Seconds())
}

// Registry returns the private registry.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler returns the HTTP handler serving the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
