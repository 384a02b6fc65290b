// Package label turns one review into a proposed topic.
//
// Two labelers are provided: RuleLabeler, a deterministic keyword table used
// offline and in tests, and LLMLabeler, which asks a chat model to pick an
// existing topic or propose a new one. Both return a Result that the caller
// feeds to the consolidation engine.
package label

import (
	"context"
	"fmt"
	"strings"

	"github.com/cognicore/ontomerge/internal/logger"
	"github.com/cognicore/ontomerge/internal/metrics"
	"github.com/cognicore/ontomerge/pkg/ontomerge/internalerr"
)

// Decision says whether the labeler believes the topic is already known.
type Decision string

const (
	DecisionExisting Decision = "existing"
	DecisionNew      Decision = "new"
)

// Result is one labeler output.
type Result struct {
	Decision   Decision `json:"decision"`
	Topic      string   `json:"topic"`
	Confidence float64  `json:"confidence"`
}

// Validate rejects results the engine cannot use.
func (r Result) Validate() error {
	if r.Decision != DecisionExisting && r.Decision != DecisionNew {
		return fmt.Errorf("decision %q: %w", r.Decision, internalerr.ErrMalformedLabel)
	}
	if strings.TrimSpace(r.Topic) == "" {
		return fmt.Errorf("empty topic: %w", internalerr.ErrMalformedLabel)
	}
	if r.Confidence < 0 || r.Confidence > 1 {
		return fmt.Errorf("confidence %v outside [0,1]: %w", r.Confidence, internalerr.ErrMalformedLabel)
	}
	return nil
}

// Labeler proposes a topic for a review given the currently known topics.
type Labeler interface {
	Label(ctx context.Context, text string, known []string) (Result, error)
}

// Option configures a labeler.
type Option func(*options)

type options struct {
	log     logger.Logger
	metrics *metrics.Collector
}

// WithLogger sets the labeler's logger.
func WithLogger(l logger.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.log = l
		}
	}
}

// WithMetrics sets the collector that counts label requests.
func WithMetrics(m *metrics.Collector) Option {
	return func(o *options) { o.metrics = m }
}

func buildOptions(opts []Option) options {
	o := options{log: logger.NewNop()}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

func decisionFor(topic string, known []string) Decision {
	for _, k := range known {
		if k == topic {
			return DecisionExisting
		}
	}
	return DecisionNew
}
