// Package metrics holds the Prometheus collectors for the classroom client.
//
// A nil *Collector is valid and records nothing, so components can take one
// as an optional dependency.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "classroom"

// Outcome labels.
const (
	OutcomeOK      = "ok"
	OutcomeError   = "error"
	OutcomeDropped = "dropped"
)

// Collector holds all client metrics on a private registry.
type Collector struct {
	registry *prometheus.Registry

	APIRequests        *prometheus.CounterVec
	APIDuration        *prometheus.HistogramVec
	StoreWrites        *prometheus.CounterVec
	FeedMutations      *prometheus.CounterVec
	SessionTransitions *prometheus.CounterVec
}

// NewCollector creates a collector with every metric registered on its own registry.
func NewCollector() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		APIRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "api_requests_total",
				Help:      "Total number of classroom API requests",
			},
			[]string{"op", "outcome"},
		),
		APIDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "api_request_duration_seconds",
				Help:      "Classroom API request duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"op"},
		),
		StoreWrites: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "store_writes_total",
				Help:      "Total number of persisted key-value writes by outcome",
			},
			[]string{"outcome"},
		),
		FeedMutations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "feed_mutations_total",
				Help:      "Total number of local feed mutations",
			},
			[]string{"kind"},
		),
		SessionTransitions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "session_transitions_total",
				Help:      "Total number of session state transitions",
			},
			[]string{"to"},
		),
	}

	c.registry.MustRegister(
		c.APIRequests,
		c.APIDuration,
		c.StoreWrites,
		c.FeedMutations,
		c.SessionTransitions,
	)
	return c
}

// Registry returns the private registry.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// ObserveAPI records one API call.
func (c *Collector) ObserveAPI(op string, err error, took time.Duration) {
	if c == nil {
		return
	}
	outcome := OutcomeOK
	if err != nil {
		outcome = OutcomeError
	}
	c.APIRequests.WithLabelValues(op, outcome).Inc()
	c.APIDuration.WithLabelValues(op).Observe(took.Seconds())
}

// ObserveWrite records the outcome of one persisted write.
func (c *Collector) ObserveWrite(outcome string) {
	if c == nil {
		return
	}
	c.StoreWrites.WithLabelValues(outcome).Inc()
}

// ObserveFeedMutation records a feed mutation of the given kind.
func (c *Collector) ObserveFeedMutation(kind string) {
	if c == nil {
		return
	}
	c.FeedMutations.WithLabelValues(kind).Inc()
}

// ObserveSession records a session transition.
func (c *Collector) ObserveSession(to string) {
	if c == nil {
		return
	}
	c.SessionTransitions.WithLabelValues(to).Inc()
}

// WriteTextfile writes all metrics in the Prometheus text format to path,
// suitable for the node_exporter textfile collector.
func (c *Collector) WriteTextfile(path string) error {
	if c == nil {
		return nil
	}
	if err := prometheus.WriteToTextfile(path, c.registry); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}
