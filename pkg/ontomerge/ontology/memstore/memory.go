package memstore

import (
	"context"
	"sync"

	"github.com/cognicore/ontomerge/pkg/ontomerge/ontology"
)

// Backend is an in-memory ontology.Backend for tests and dry runs.
type Backend struct {
	mu    sync.RWMutex
	snap  ontology.Snapshot
	saves int
	err   error
}

// New creates an empty backend, optionally seeded with topics.
func New(seed ...ontology.Topic) *Backend {
	return &Backend{snap: copySnapshot(ontology.Snapshot{Topics: seed})}
}

// Load implements ontology.Backend.
func (b *Backend) Load(ctx context.Context) (ontology.Snapshot, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return copySnapshot(b.snap), nil
}

// Save implements ontology.Backend. When a failure has been injected with
// FailSaves the stored snapshot is left untouched.
func (b *Backend) Save(ctx context.Context, snap ontology.Snapshot) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.err != nil {
		return b.err
	}
	b.snap = copySnapshot(snap)
	b.saves++
	return nil
}

// Close implements ontology.Backend.
func (b *Backend) Close() error { return nil }

// Saves returns the number of successful saves.
func (b *Backend) Saves() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.saves
}

// Saved returns a copy of the last saved snapshot.
func (b *Backend) Saved() ontology.Snapshot {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return copySnapshot(b.snap)
}

// FailSaves makes subsequent saves return err. Pass nil to clear.
func (b *Backend) FailSaves(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.err = err
}

func copySnapshot(s ontology.Snapshot) ontology.Snapshot {
	out := ontology.Snapshot{Topics: make([]ontology.Topic, len(s.Topics))}
	for i, t := range s.Topics {
		aliases := make([]string, len(t.Aliases))
		copy(aliases, t.Aliases)
		out.Topics[i] = ontology.Topic{Name: t.Name, Aliases: aliases, FirstSeen: t.FirstSeen}
	}
	return out
}
