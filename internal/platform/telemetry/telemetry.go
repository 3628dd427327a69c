// Package telemetry exposes Prometheus metrics for the HTTP server and the
// identity and access-control core: login outcomes, token verification
// failures, authorization decisions and federated account linking.
//
// A nil *Provider is valid and records nothing, so components can be built in
// tests without a registry.
package telemetry

import (
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "medconnect"

// Provider owns a metrics registry and the collectors registered on it.
type Provider struct {
	registry *prometheus.Registry

	requestDuration *prometheus.HistogramVec
	inFlight        prometheus.Gauge
	logins          *prometheus.CounterVec
	tokenFailures   *prometheus.CounterVec
	authzDecisions  *prometheus.CounterVec
	identityLinks   *prometheus.CounterVec
}

// NewProvider creates a Provider with its own registry, including the Go
// runtime and process collectors.
func NewProvider() *Provider {
	reg := prometheus.NewRegistry()
	p := &Provider{
		registry: reg,
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by method, route and status.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
		inFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "http_in_flight_requests",
			Help:      "In-flight HTTP requests.",
		}),
		logins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "auth_logins_total",
			Help:      "Login attempts by method (password, federated) and outcome.",
		}, []string{"method", "outcome"}),
		tokenFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "auth_token_failures_total",
			Help:      "Rejected bearer tokens by reason.",
		}, []string{"reason"}),
		authzDecisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "authz_decisions_total",
			Help:      "Authorization decisions by resource type and outcome.",
		}, []string{"resource", "outcome"}),
		identityLinks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "identity_links_total",
			Help:      "Federated identity resolutions by outcome.",
		}, []string{"outcome"}),
	}

	reg.MustRegister(
		prometheus.NewGoCollector(),
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
		p.requestDuration,
		p.inFlight,
		p.logins,
		p.tokenFailures,
		p.authzDecisions,
		p.identityLinks,
	)
	return p
}

// Registry returns the underlying registry.
func (p *Provider) Registry() *prometheus.Registry {
	if p == nil {
		return nil
	}
	return p.registry
}

func (p *Provider) LoginAttempt(method, outcome string) {
	if p == nil {
		return
	}
	p.logins.WithLabelValues(method, outcome).Inc()
}

func (p *Provider) TokenFailure(reason string) {
	if p == nil {
		return
	}
	p.tokenFailures.WithLabelValues(reason).Inc()
}

func (p *Provider) AuthzDecision(resource string, allowed bool) {
	if p == nil {
		return
	}
	outcome := "deny"
	if allowed {
		outcome = "allow"
	}
	p.authzDecisions.WithLabelValues(resource, outcome).Inc()
}

func (p *Provider) IdentityLink(outcome string) {
	if p == nil {
		return
	}
	p.identityLinks.WithLabelValues(outcome).Inc()
}

// MetricsMiddleware records request latency and in-flight requests. The
// route label is the registered echo path, never the raw URL, to keep label
// cardinality bounded.
func (p *Provider) MetricsMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if p == nil {
				return next(c)
			}
			p.inFlight.Inc()
			defer p.inFlight.Dec()

			start := time.Now()
			err := next(c)

			status := c.Response().Status
			if he, ok := err.(*echo.HTTPError); ok {
				status = he.Code
			}
			route := c.Path()
			if route == "" {
				route = "unmatched"
			}
			p.requestDuration.
				WithLabelValues(c.Request().Method, route, strconv.Itoa(status)).
				Observe(time.Since(start).Seconds())
			return err
		}
	}
}

// Handler serves the registry in Prometheus exposition format.
func (p *Provider) Handler() echo.HandlerFunc {
	h := promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{})
	return echo.WrapHandler(h)
}
