// Package ontology owns the durable mapping from canonical topic names to
// their aliases and first-seen dates.
//
// Store keeps the state in memory and delegates persistence to a Backend.
// Canonical names only ever grow and aliases are append-only: nothing in this
// package removes or renames a topic.
package ontology

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/cognicore/ontomerge/pkg/ontomerge/internalerr"
)

// DateLayout is the on-disk format of FirstSeen.
const DateLayout = "2006-01-02"

// Topic is a canonical topic and its metadata.
type Topic struct {
	Name      string
	Aliases   []string
	FirstSeen time.Time // calendar date, UTC midnight
}

// Snapshot is the full persisted state, topics in insertion order.
type Snapshot struct {
	Topics []Topic
}

// Backend persists snapshots.
type Backend interface {
	// Load returns the last saved snapshot, or an empty one if nothing has
	// been saved yet.
	Load(ctx context.Context) (Snapshot, error)
	// Save replaces the persisted state. A failed Save must leave the
	// previously persisted state intact.
	Save(ctx context.Context, snap Snapshot) error
	Close() error
}

// Option configures a Store.
type Option func(*Store)

// WithClock sets the clock used for default first-seen dates.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// Store is the in-memory ontology backed by a Backend.
type Store struct {
	mu      sync.RWMutex
	backend Backend
	now     func() time.Time

	order      []string
	topics     map[string]*Topic
	aliasOwner map[string]string
}

// New creates an empty store. backend may be nil for a purely in-memory
// store, in which case Persist and Load fail with ErrStoreUnavailable.
func New(backend Backend, opts ...Option) *Store {
	s := &Store{
		backend: backend,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.reset()
	return s
}

// Open creates a store and loads the backend's current state.
func Open(ctx context.Context, backend Backend, opts ...Option) (*Store, error) {
	if backend == nil {
		return nil, fmt.Errorf("ontology: nil backend: %w", internalerr.ErrStoreUnavailable)
	}
	s := New(backend, opts...)
	if err := s.Load(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) reset() {
	s.order = nil
	s.topics = make(map[string]*Topic)
	s.aliasOwner = make(map[string]string)
}

// Close closes the backend.
func (s *Store) Close() error {
	if s.backend == nil {
		return nil
	}
	return s.backend.Close()
}

// Load replaces the in-memory state with the backend's snapshot.
// A backend with nothing persisted yields an empty ontology.
func (s *Store) Load(ctx context.Context) error {
	if s.backend == nil {
		return fmt.Errorf("ontology load: %w", internalerr.ErrStoreUnavailable)
	}
	snap, err := s.backend.Load(ctx)
	if err != nil {
		return fmt.Errorf("ontology load: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.restore(snap)
	return nil
}

// restore rebuilds state from snap. Duplicate topic names keep the first
// entry. An alias listed under several topics is indexed to the first owner
// but kept in every list so the snapshot round-trips unchanged.
func (s *Store) restore(snap Snapshot) {
	s.reset()
	for _, t := range snap.Topics {
		if _, exists := s.topics[t.Name]; exists {
			continue
		}
		topic := &Topic{
			Name:      t.Name,
			Aliases:   append([]string(nil), t.Aliases...),
			FirstSeen: dateOf(t.FirstSeen),
		}
		s.order = append(s.order, t.Name)
		s.topics[t.Name] = topic
		for _, a := range topic.Aliases {
			if _, owned := s.aliasOwner[a]; !owned {
				s.aliasOwner[a] = t.Name
			}
		}
	}
}

// Persist writes the full state to the backend.
func (s *Store) Persist(ctx context.Context) error {
	if s.backend == nil {
		return fmt.Errorf("ontology persist: %w", internalerr.ErrStoreUnavailable)
	}
	if err := s.backend.Save(ctx, s.Snapshot()); err != nil {
		return fmt.Errorf("ontology persist: %w", err)
	}
	return nil
}

// ListTopics returns the canonical names in insertion order.
func (s *Store) ListTopics() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.order...)
}

// Len returns the number of canonical topics.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.order)
}

// TopicExists reports whether name is a canonical topic.
func (s *Store) TopicExists(name string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.topics[name]
	return ok
}

// Topic returns a copy of the named topic.
func (s *Store) Topic(name string) (Topic, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.topics[name]
	if !ok {
		return Topic{}, false
	}
	return copyTopic(*t), true
}

// AddTopic creates a topic if it does not exist yet and reports whether it
// did. A zero firstSeen means today according to the store clock.
func (s *Store) AddTopic(name string, firstSeen time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.topics[name]; exists {
		return false
	}
	if firstSeen.IsZero() {
		firstSeen = s.now()
	}
	s.topics[name] = &Topic{
		Name:      name,
		Aliases:   []string{},
		FirstSeen: dateOf(firstSeen),
	}
	s.order = append(s.order, name)
	return true
}

// AddAlias attaches alias to the canonical topic. It is a no-op when the
// topic does not exist, the alias is already recorded for it, or the alias is
// the topic's own name. An alias owned by a different topic, or equal to a
// different topic's canonical name, is rejected with ErrAliasConflict.
func (s *Store) AddAlias(canonical, alias string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	topic, ok := s.topics[canonical]
	if !ok || alias == canonical {
		return nil
	}
	if owner, owned := s.aliasOwner[alias]; owned {
		if owner == canonical {
			return nil
		}
		return fmt.Errorf("alias %q for %q already bound to %q: %w", alias, canonical, owner, internalerr.ErrAliasConflict)
	}
	if _, isTopic := s.topics[alias]; isTopic {
		return fmt.Errorf("alias %q for %q is a canonical topic: %w", alias, canonical, internalerr.ErrAliasConflict)
	}

	topic.Aliases = append(topic.Aliases, alias)
	s.aliasOwner[alias] = canonical
	return nil
}

// FindTopicByAlias returns the canonical topic owning alias.
func (s *Store) FindTopicByAlias(alias string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	owner, ok := s.aliasOwner[alias]
	return owner, ok
}

// Snapshot returns a deep copy of the current state.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := Snapshot{Topics: make([]Topic, 0, len(s.order))}
	for _, name := range s.order {
		snap.Topics = append(snap.Topics, copyTopic(*s.topics[name]))
	}
	return snap
}

func copyTopic(t Topic) Topic {
	aliases := make([]string, len(t.Aliases))
	copy(aliases, t.Aliases)
	return Topic{Name: t.Name, Aliases: aliases, FirstSeen: t.FirstSeen}
}

// dateOf truncates t to its calendar date at UTC midnight.
func dateOf(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseDate parses a DateLayout string.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse date %q: %v: %w", s, err, internalerr.ErrInvalidInput)
	}
	return t, nil
}
