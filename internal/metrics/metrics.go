// Package metrics holds the Prometheus collectors shared by the storage and
// HTTP layers.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "receiptbook"

// Registry is the registry every collector below is registered on.
var Registry = prometheus.NewRegistry()

var factory = promauto.With(Registry)

var (
	// GatewayOperations counts gateway statements by table, operation and
	// result (ok, not_found, conflict, error).
	GatewayOperations = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "gateway",
		Name:      "operations_total",
		Help:      "Gateway operations by table, operation and result.",
	}, []string{"table", "op", "result"})

	// Reconnects counts transparent reconnects after a lost connection.
	Reconnects = factory.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "gateway",
		Name:      "reconnects_total",
		Help:      "Database reconnects after a lost connection.",
	})

	// ReconciledChildren counts child rows touched by reconciliation.
	ReconciledChildren = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "reconcile",
		Name:      "children_total",
		Help:      "Child rows created, updated or deleted while storing an aggregate.",
	}, []string{"table", "action"})

	// ChangeRecords counts change-feed records served.
	ChangeRecords = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "changefeed",
		Name:      "records_total",
		Help:      "Change records served by entity table and action.",
	}, []string{"table", "action"})

	// HTTPRequests counts HTTP requests by route and status code.
	HTTPRequests = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "HTTP requests by route and status code.",
	}, []string{"route", "code"})

	// HTTPDuration observes request latency by route.
	HTTPDuration = factory.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request latency by route.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"route"})
)

func init() {
	Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
}

// Handler serves the registry in the Prometheus exposition format.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{Registry: Registry})
}
