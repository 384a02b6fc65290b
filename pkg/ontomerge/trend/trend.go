// Package trend runs the label and consolidate pipeline over a window of
// daily review batches and tallies review volume per canonical topic.
package trend

import (
	"context"
	"fmt"
	"time"

	"github.com/cognicore/ontomerge/internal/logger"
	"github.com/cognicore/ontomerge/internal/metrics"
	"github.com/cognicore/ontomerge/internal/reviews"
	"github.com/cognicore/ontomerge/pkg/ontomerge/consolidate"
	"github.com/cognicore/ontomerge/pkg/ontomerge/internalerr"
	"github.com/cognicore/ontomerge/pkg/ontomerge/label"
)

// DefaultWindowDays matches a T-30..T report.
const DefaultWindowDays = 30

// Window is the inclusive date range Start..Start+Days.
type Window struct {
	Start time.Time
	Days  int
}

// Buckets returns the Days+1 daily buckets of the window at UTC midnight.
func (w Window) Buckets() ([]time.Time, error) {
	if w.Days < 0 {
		return nil, fmt.Errorf("window days %d: %w", w.Days, internalerr.ErrInvalidInput)
	}
	if w.Start.IsZero() {
		return nil, fmt.Errorf("window start not set: %w", internalerr.ErrInvalidInput)
	}
	y, m, d := w.Start.Date()
	start := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	out := make([]time.Time, w.Days+1)
	for i := range out {
		out[i] = start.AddDate(0, 0, i)
	}
	return out, nil
}

// Source provides the review batch for a day. ok is false when the day has
// no batch at all.
type Source interface {
	Reviews(ctx context.Context, day time.Time) (items []reviews.Review, ok bool, err error)
}

// TopicCount is the number of reviews assigned to a canonical topic.
type TopicCount struct {
	Topic string
	Count int
}

// BucketResult is the outcome of one daily bucket.
type BucketResult struct {
	Day   time.Time
	Batch consolidate.Batch
	// Counts are in order of first appearance within the bucket.
	Counts []TopicCount
}

// Option configures an Aggregator.
type Option func(*Aggregator)

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(a *Aggregator) {
		if l != nil {
			a.log = l
		}
	}
}

// WithMetrics sets the metrics collector.
func WithMetrics(m *metrics.Collector) Option {
	return func(a *Aggregator) { a.metrics = m }
}

// Aggregator labels, consolidates and counts reviews bucket by bucket.
type Aggregator struct {
	engine  *consolidate.Engine
	labeler label.Labeler
	source  Source
	log     logger.Logger
	metrics *metrics.Collector
}

// New creates an aggregator. source may be nil when only RunBucket is used.
func New(engine *consolidate.Engine, labeler label.Labeler, source Source, opts ...Option) *Aggregator {
	a := &Aggregator{
		engine:  engine,
		labeler: labeler,
		source:  source,
		log:     logger.NewNop(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// RunBucket labels every review against the topics known at the start of the
// bucket, consolidates the proposals as one batch dated day, and counts
// reviews per canonical topic. A labeler failure aborts the bucket before the
// ontology is touched.
func (a *Aggregator) RunBucket(ctx context.Context, day time.Time, items []reviews.Review) (BucketResult, error) {
	if a.engine == nil || a.labeler == nil {
		return BucketResult{}, fmt.Errorf("trend: engine and labeler required: %w", internalerr.ErrInvalidConfig)
	}
	known := a.engine.Store().ListTopics()

	proposals := make([]consolidate.Proposal, 0, len(items))
	for i, r := range items {
		res, err := a.labeler.Label(ctx, r.Content, known)
		if err == nil {
			err = res.Validate()
		}
		if err != nil {
			return BucketResult{}, fmt.Errorf("bucket %s review %d: %w", day.Format("2006-01-02"), i, err)
		}
		proposals = append(proposals, consolidate.Proposal{Topic: res.Topic, Confidence: res.Confidence})
	}

	batch, err := a.engine.Consolidate(ctx, day, proposals)
	if err != nil {
		return BucketResult{}, fmt.Errorf("bucket %s: %w", day.Format("2006-01-02"), err)
	}
	a.metrics.AddReviews(len(items))

	return BucketResult{Day: day, Batch: batch, Counts: tally(batch.Decisions)}, nil
}

// Run processes every bucket of w in date order and returns the dense report.
// Days without a batch produce zero counts.
func (a *Aggregator) Run(ctx context.Context, w Window) (*Report, error) {
	if a.source == nil {
		return nil, fmt.Errorf("trend: no review source: %w", internalerr.ErrInvalidConfig)
	}
	buckets, err := w.Buckets()
	if err != nil {
		return nil, err
	}

	report := NewReport(buckets)
	for i, day := range buckets {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		items, ok, err := a.source.Reviews(ctx, day)
		if err != nil {
			return nil, fmt.Errorf("bucket %s: %w", day.Format("2006-01-02"), err)
		}
		if !ok {
			a.metrics.ObserveMissingBucket()
			a.log.Info("no reviews for bucket", logger.Date("date", day))
			continue
		}

		res, err := a.RunBucket(ctx, day, items)
		if err != nil {
			return nil, err
		}
		for _, c := range res.Counts {
			report.add(i, c.Topic, c.Count)
		}
		a.log.Info("bucket processed",
			logger.Date("date", day),
			logger.String("batch_id", res.Batch.ID),
			logger.Int("reviews", len(items)),
			logger.Int("topics", len(res.Counts)),
		)
	}
	return report, nil
}

func tally(decisions []consolidate.Decision) []TopicCount {
	var out []TopicCount
	pos := make(map[string]int)
	for _, d := range decisions {
		topic := d.Canonical()
		i, ok := pos[topic]
		if !ok {
			i = len(out)
			pos[topic] = i
			out = append(out, TopicCount{Topic: topic})
		}
		out[i].Count++
	}
	return out
}
