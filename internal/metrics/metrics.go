// Package metrics exposes Prometheus counters for consolidation and labeling.
//
// Runs are batch jobs, so metrics live in a private registry and are written
// to a node_exporter textfile at the end of a run instead of being scraped.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "ontomerge"

// Collector holds all metrics for one process. A nil *Collector is valid and
// records nothing.
type Collector struct {
	registry *prometheus.Registry

	decisions      *prometheus.CounterVec
	aliasConflicts prometheus.Counter
	topics         prometheus.Gauge
	labelRequests  *prometheus.CounterVec
	reviews        prometheus.Counter
	missingBuckets prometheus.Counter
}

// New creates a collector with its own registry.
func New() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		decisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "decisions_total",
			Help:      "Consolidation decisions by action and match kind",
		}, []string{"action", "match"}),
		aliasConflicts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "alias_conflicts_total",
			Help:      "Aliases rejected because another topic already owns them",
		}),
		topics: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "topics",
			Help:      "Canonical topics in the ontology after the last batch",
		}),
		labelRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "label_requests_total",
			Help:      "Labeler calls by labeler and outcome",
		}, []string{"labeler", "outcome"}),
		reviews: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reviews_processed_total",
			Help:      "Reviews labeled and consolidated",
		}),
		missingBuckets: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "missing_buckets_total",
			Help:      "Trend buckets without review data",
		}),
	}

	c.registry.MustRegister(
		c.decisions,
		c.aliasConflicts,
		c.topics,
		c.labelRequests,
		c.reviews,
		c.missingBuckets,
	)
	return c
}

// Registry returns the underlying registry.
func (c *Collector) Registry() *prometheus.Registry {
	if c == nil {
		return nil
	}
	return c.registry
}

// ObserveDecision counts one consolidation decision.
func (c *Collector) ObserveDecision(action, match string) {
	if c == nil {
		return
	}
	c.decisions.WithLabelValues(action, match).Inc()
}

// ObserveAliasConflict counts one rejected alias.
func (c *Collector) ObserveAliasConflict() {
	if c == nil {
		return
	}
	c.aliasConflicts.Inc()
}

// SetTopics records the ontology size.
func (c *Collector) SetTopics(n int) {
	if c == nil {
		return
	}
	c.topics.Set(float64(n))
}

// ObserveLabel counts one labeler call by labeler ("rules", "llm") and
// outcome ("matched", "fallback", "ok", "malformed", "error").
func (c *Collector) ObserveLabel(labeler, outcome string) {
	if c == nil {
		return
	}
	c.labelRequests.WithLabelValues(labeler, outcome).Inc()
}

// AddReviews counts processed reviews.
func (c *Collector) AddReviews(n int) {
	if c == nil || n <= 0 {
		return
	}
	c.reviews.Add(float64(n))
}

// ObserveMissingBucket counts one bucket without data.
func (c *Collector) ObserveMissingBucket() {
	if c == nil {
		return
	}
	c.missingBuckets.Inc()
}

// WriteTextfile writes all metrics in the Prometheus text format to path,
// for pickup by node_exporter's textfile collector.
func (c *Collector) WriteTextfile(path string) error {
	if c == nil || path == "" {
		return nil
	}
	return prometheus.WriteToTextfile(path, c.registry)
}
