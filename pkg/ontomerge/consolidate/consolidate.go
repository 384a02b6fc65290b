// Package consolidate decides whether proposed topic labels name an existing
// canonical topic or a genuinely new one, and applies those decisions to the
// ontology.
//
// Matching precedence for each proposal:
//  1. exact: the normalized proposal equals a normalized canonical name;
//  2. synonym: a synonym family whose key occurs in a canonical name has a
//     variant occurring in the proposal (first canonical name in insertion
//     order wins);
//  3. otherwise the proposal becomes a new canonical topic.
//
// Proposals are applied in order, so a topic created by item i is a match
// candidate for item i+1 of the same batch.
package consolidate

import (
	"context"
	"crypto/rand"
	"fmt"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/cognicore/ontomerge/internal/logger"
	"github.com/cognicore/ontomerge/internal/metrics"
	"github.com/cognicore/ontomerge/pkg/ontomerge/internalerr"
	"github.com/cognicore/ontomerge/pkg/ontomerge/normalize"
	"github.com/cognicore/ontomerge/pkg/ontomerge/ontology"
	"github.com/cognicore/ontomerge/pkg/ontomerge/synonyms"
)

// Action tags a decision.
type Action string

const (
	ActionMerged  Action = "merged"
	ActionCreated Action = "created"
)

// MatchKind records how a merged proposal was matched.
type MatchKind string

const (
	MatchNone    MatchKind = "none"
	MatchExact   MatchKind = "exact"
	MatchSynonym MatchKind = "synonym"
)

// Proposal is one labeler output waiting for consolidation.
type Proposal struct {
	Topic      string
	Confidence float64
}

// Proposals wraps bare topic strings with full confidence.
func Proposals(topics ...string) []Proposal {
	out := make([]Proposal, len(topics))
	for i, t := range topics {
		out[i] = Proposal{Topic: t, Confidence: 1}
	}
	return out
}

// Decision is the audit record for one proposal.
type Decision struct {
	Action Action `json:"action"`
	// From and To are set for merged decisions.
	From string `json:"from,omitempty"`
	To   string `json:"to,omitempty"`
	// Topic is set for created decisions.
	Topic string `json:"topic,omitempty"`

	Match  MatchKind `json:"match"`
	Family string    `json:"family,omitempty"`
	// AliasRejected is set when the merged label is already an alias of a
	// different topic and was not recorded.
	AliasRejected bool    `json:"alias_rejected,omitempty"`
	Confidence    float64 `json:"confidence"`
}

// Canonical returns the canonical topic the proposal ended up in.
func (d Decision) Canonical() string {
	if d.Action == ActionMerged {
		return d.To
	}
	return d.Topic
}

func (d Decision) String() string {
	if d.Action == ActionMerged {
		return fmt.Sprintf("merged %q -> %q (%s)", d.From, d.To, d.Match)
	}
	return fmt.Sprintf("created %q", d.Topic)
}

// Batch is the result of one Consolidate call.
type Batch struct {
	ID        string
	Date      time.Time
	Decisions []Decision
}

// Created returns the canonical names created by the batch, in order.
func (b Batch) Created() []string {
	var out []string
	for _, d := range b.Decisions {
		if d.Action == ActionCreated {
			out = append(out, d.Topic)
		}
	}
	return out
}

// Merged returns the number of merged decisions.
func (b Batch) Merged() int {
	n := 0
	for _, d := range b.Decisions {
		if d.Action == ActionMerged {
			n++
		}
	}
	return n
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.log = l
		}
	}
}

// WithMetrics sets the metrics collector.
func WithMetrics(m *metrics.Collector) Option {
	return func(e *Engine) { e.metrics = m }
}

// WithClock sets the clock used when Consolidate is given a zero date.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// Engine consolidates proposal batches into an ontology store. Consolidate
// calls are serialized: each batch reads the full topic list and may create
// topics that later items depend on.
type Engine struct {
	mu       sync.Mutex
	store    *ontology.Store
	synonyms *synonyms.Table
	log      logger.Logger
	metrics  *metrics.Collector
	now      func() time.Time
	entropy  *ulid.MonotonicEntropy
}

// New creates an engine over store. A nil table disables synonym matching.
func New(store *ontology.Store, table *synonyms.Table, opts ...Option) *Engine {
	e := &Engine{
		store:    store,
		synonyms: table,
		log:      logger.NewNop(),
		now:      time.Now,
		entropy:  ulid.Monotonic(rand.Reader, 0),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Store returns the engine's ontology store.
func (e *Engine) Store() *ontology.Store {
	return e.store
}

// ConsolidateTopics consolidates bare topic strings dated today.
func (e *Engine) ConsolidateTopics(ctx context.Context, topics ...string) (Batch, error) {
	return e.Consolidate(ctx, time.Time{}, Proposals(topics...))
}

// Consolidate applies proposals in order and persists the store once at the
// end. Topics created by the batch get date as their first-seen date (today
// when date is zero). Proposals are validated before anything is applied, so
// an invalid proposal leaves the store untouched.
func (e *Engine) Consolidate(ctx context.Context, date time.Time, proposals []Proposal) (Batch, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.store == nil {
		return Batch{}, fmt.Errorf("consolidate: nil store: %w", internalerr.ErrStoreUnavailable)
	}
	if date.IsZero() {
		date = e.now()
	}

	if err := ctx.Err(); err != nil {
		return Batch{}, err
	}

	keys := make([]string, len(proposals))
	for i, p := range proposals {
		if err := validate(p); err != nil {
			return Batch{}, fmt.Errorf("consolidate: proposal %d: %w", i, err)
		}
		keys[i] = normalize.Normalize(p.Topic)
	}

	batch := Batch{
		ID:        ulid.MustNew(ulid.Timestamp(e.now()), e.entropy).String(),
		Date:      date,
		Decisions: make([]Decision, 0, len(proposals)),
	}
	log := e.log.With(logger.String("batch_id", batch.ID), logger.Date("date", date))

	idx := newIndex(e.store.ListTopics())
	for i, p := range proposals {
		d := e.decide(idx, p, keys[i], date, log)
		batch.Decisions = append(batch.Decisions, d)
		e.metrics.ObserveDecision(string(d.Action), string(d.Match))
	}

	if err := e.store.Persist(ctx); err != nil {
		return Batch{}, fmt.Errorf("consolidate: %w", err)
	}
	e.metrics.SetTopics(e.store.Len())

	log.Info("batch consolidated",
		logger.Int("proposals", len(proposals)),
		logger.Int("created", len(batch.Created())),
		logger.Int("merged", batch.Merged()),
		logger.Int("topics", e.store.Len()),
	)
	return batch, nil
}

func (e *Engine) decide(idx *index, p Proposal, key string, date time.Time, log logger.Logger) Decision {
	if target, kind, family, ok := idx.match(key, e.synonyms); ok {
		d := Decision{
			Action:     ActionMerged,
			From:       p.Topic,
			To:         target,
			Match:      kind,
			Family:     family,
			Confidence: p.Confidence,
		}
		if err := e.store.AddAlias(target, p.Topic); err != nil {
			d.AliasRejected = true
			e.metrics.ObserveAliasConflict()
			log.Warn("alias rejected",
				logger.String("alias", p.Topic),
				logger.String("topic", target),
				logger.Error(err),
			)
		}
		log.Debug("proposal merged",
			logger.String("from", p.Topic),
			logger.String("to", target),
			logger.String("match", string(kind)),
			logger.String("family", family),
			logger.Float64("confidence", p.Confidence),
		)
		return d
	}

	e.store.AddTopic(p.Topic, date)
	idx.add(p.Topic, key)
	log.Debug("topic created",
		logger.String("topic", p.Topic),
		logger.Float64("confidence", p.Confidence),
	)
	return Decision{
		Action:     ActionCreated,
		Topic:      p.Topic,
		Match:      MatchNone,
		Confidence: p.Confidence,
	}
}

func validate(p Proposal) error {
	if normalize.Normalize(p.Topic) == "" {
		return fmt.Errorf("topic %q has no comparable characters: %w", p.Topic, internalerr.ErrInvalidInput)
	}
	if p.Confidence < 0 || p.Confidence > 1 {
		return fmt.Errorf("confidence %v outside [0,1]: %w", p.Confidence, internalerr.ErrInvalidInput)
	}
	return nil
}

// index caches normalized canonical names in store order for one batch.
type index struct {
	names []string
	keys  []string
}

func newIndex(names []string) *index {
	idx := &index{names: names, keys: make([]string, len(names))}
	for i, n := range names {
		idx.keys[i] = normalize.Normalize(n)
	}
	return idx
}

func (idx *index) add(name, key string) {
	idx.names = append(idx.names, name)
	idx.keys = append(idx.keys, key)
}

// match returns the canonical name for the normalized proposal key.
// The exact pass runs over every topic before any synonym is considered.
func (idx *index) match(key string, table *synonyms.Table) (string, MatchKind, string, bool) {
	for i, k := range idx.keys {
		if k == key {
			return idx.names[i], MatchExact, "", true
		}
	}
	if table == nil {
		return "", MatchNone, "", false
	}
	for i, k := range idx.keys {
		if fam, ok := table.Match(k, key); ok {
			return idx.names[i], MatchSynonym, fam.Key, true
		}
	}
	return "", MatchNone, "", false
}
