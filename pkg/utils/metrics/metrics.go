package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the service's Prometheus collectors. One instance is created
// at startup and shared by the HTTP middleware and the use cases.
type Metrics struct {
	Registry *prometheus.Registry

	HTTPRequests    *prometheus.CounterVec
	HTTPDuration    *prometheus.HistogramVec
	EngineCalls     *prometheus.CounterVec
	IncidentsStored prometheus.Counter
	LLMFailures     prometheus.Counter
}

// New creates a Metrics instance with its own registry
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		Registry: reg,
		HTTPRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "kestrel",
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, route pattern and status code",
		}, []string{"method", "route", "status"}),
		HTTPDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "kestrel",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route pattern",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),
		EngineCalls: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "kestrel",
			Name:      "engine_calls_total",
			Help:      "Chat engine dispatches by engine and outcome",
		}, []string{"engine", "outcome"}),
		IncidentsStored: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "kestrel",
			Name:      "incidents_stored_total",
			Help:      "Incidents appended to the incident store",
		}),
		LLMFailures: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "kestrel",
			Name:      "llm_failures_total",
			Help:      "LLM calls that failed or returned malformed output",
		}),
	}
}
