// Package metrics provides Prometheus metrics collection for the learning-style
// prediction pipeline and the forwarding relay.
//
// The package covers prediction outcomes, per-tree vote fetches, tree graph
// rendering and relay forwarding, all exposed via the Prometheus metrics endpoint.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the pipeline.
type Metrics struct {
	// Prediction orchestration
	PredictionsTotal   prometheus.Counter     // Predict actions that reached the network
	PredictionFailures *prometheus.CounterVec // Failed predict actions by kind
	PredictionLatency  prometheus.Histogram   // Primary prediction round trip
	PredictedLabels    *prometheus.CounterVec // Successful predictions by class label
	VoteFetchFailures  prometheus.Counter     // Failed per-tree vote follow-ups
	StaleResults       prometheus.Counter     // Results dropped for a superseded request
	BusyRejections     prometheus.Counter     // Actions refused while a prediction was in flight

	// Ensemble introspection
	TreeRenders      prometheus.Counter // Tree graph descriptions compiled and drawn
	StructuralErrors prometheus.Counter // Malformed trees or unknown tree indices

	// Relay
	RelayRequests       *prometheus.CounterVec // Relayed requests by upstream status code
	RelayUpstreamErrors prometheus.Counter     // Requests that got no upstream response
	RelayLatency        prometheus.Histogram   // Upstream round trip through the relay
}

// New creates and registers all metrics using the default registry.
func New() *Metrics {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry creates metrics with a custom registry (useful for testing).
func NewWithRegistry(registerer prometheus.Registerer) *Metrics {
	factory := promauto.With(registerer)
	return &Metrics{
		PredictionsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "predictions_total",
			Help: "Total number of predict actions that reached the prediction service",
		}),
		PredictionFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "prediction_failures_total",
			Help: "Total number of failed predict actions by failure kind",
		}, []string{"kind"}),
		PredictionLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "prediction_latency_seconds",
			Help:    "Primary prediction call latency in seconds",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0},
		}),
		PredictedLabels: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "predicted_labels_total",
			Help: "Total number of successful predictions by class label",
		}, []string{"label"}),
		VoteFetchFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "vote_fetch_failures_total",
			Help: "Total number of failed per-tree vote follow-up calls",
		}),
		StaleResults: factory.NewCounter(prometheus.CounterOpts{
			Name: "stale_results_total",
			Help: "Total number of results discarded because a newer request superseded them",
		}),
		BusyRejections: factory.NewCounter(prometheus.CounterOpts{
			Name: "busy_rejections_total",
			Help: "Total number of actions refused while a prediction was in flight",
		}),
		TreeRenders: factory.NewCounter(prometheus.CounterOpts{
			Name: "tree_renders_total",
			Help: "Total number of tree graph descriptions rendered",
		}),
		StructuralErrors: factory.NewCounter(prometheus.CounterOpts{
			Name: "structural_errors_total",
			Help: "Total number of malformed trees or unknown tree selections",
		}),
		RelayRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "relay_requests_total",
			Help: "Total number of relayed predict requests by response status",
		}, []string{"status"}),
		RelayUpstreamErrors: factory.NewCounter(prometheus.CounterOpts{
			Name: "relay_upstream_errors_total",
			Help: "Total number of relayed requests that got no upstream response",
		}),
		RelayLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "relay_latency_seconds",
			Help:    "Upstream round trip through the relay in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 15),
		}),
	}
}
