// Package metrics exposes Prometheus counters for the relay pipeline and a
// standalone metrics HTTP listener, kept separate from the API listener so
// scraping never competes with webhook traffic.
package metrics

import (
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collectors groups the relay's counters. All components share one instance.
type Collectors struct {
	ChainEventsTotal      prometheus.Counter
	WebhookRequestsTotal  prometheus.Counter
	RegistrationsTotal    prometheus.Counter
	DispatchTotal         *prometheus.CounterVec
	SubscriptionMissTotal prometheus.Counter
}

func newCollectors(namespace string, reg *prometheus.Registry) *Collectors {
	factory := promauto.With(reg)
	return &Collectors{
		ChainEventsTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "chain_events_total",
			Help:      "Alert events received from the chain subscription.",
		}),
		WebhookRequestsTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "webhook_requests_total",
			Help:      "POST /notify requests received.",
		}),
		RegistrationsTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "registrations_total",
			Help:      "Accepted subscription registrations.",
		}),
		DispatchTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dispatch_total",
			Help:      "Provider dispatch attempts by outcome.",
		}, []string{"outcome"}),
		SubscriptionMissTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "subscription_miss_total",
			Help:      "Events for identities with no registered target.",
		}),
	}
}

// MetricsServer serves the Prometheus scrape endpoint on its own listener.
type MetricsServer struct {
	srv        *http.Server
	collectors *Collectors
}

// New creates a metrics server bound to addr. The namespace prefixes all
// counter names. An empty addr disables the listener but still provides
// working collectors.
func New(namespace, addr string) (*MetricsServer, error) {
	reg := prometheus.NewRegistry()
	collectors := newCollectors(sanitize(namespace), reg)

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	return &MetricsServer{
		srv:        &http.Server{Addr: addr, Handler: mux},
		collectors: collectors,
	}, nil
}

// Collectors returns the shared counter set.
func (m *MetricsServer) Collectors() *Collectors {
	return m.collectors
}

// ListenAndServe blocks serving the scrape endpoint.
func (m *MetricsServer) ListenAndServe() error {
	return m.srv.ListenAndServe()
}

// Shutdown gracefully stops the metrics listener.
func (m *MetricsServer) Shutdown(ctx context.Context) error {
	return m.srv.Shutdown(ctx)
}

// sanitize maps a service name to a valid Prometheus namespace.
func sanitize(name string) string {
	out := make([]rune, 0, len(name))
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
			out = append(out, r)
		default:
			out = append(out, '_')
		}
	}
	return string(out)
}
