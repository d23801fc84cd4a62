package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// MemoryStore keeps snapshots in process memory. Snapshots are copied on the
// way in and out, so callers never share matrices with the store.
type MemoryStore struct {
	mu        sync.RWMutex
	snapshots map[string]Snapshot
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{snapshots: make(map[string]Snapshot)}
}

func (s *MemoryStore) Save(_ context.Context, name string, snap Snapshot) error {
	if err := ValidateName(name); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.snapshots[name] = Snapshot{
		Networks: copyNetworks(snap.Networks),
		Metadata: copyMetadata(snap.Metadata),
	}
	return nil
}

func (s *MemoryStore) Load(_ context.Context, name string) (Snapshot, error) {
	if err := ValidateName(name); err != nil {
		return Snapshot{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap, ok := s.snapshots[name]
	if !ok {
		return Snapshot{}, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	if len(snap.Networks) == 0 {
		return Snapshot{}, fmt.Errorf("%w: no networks stored for %s", ErrNotFound, name)
	}
	return Snapshot{
		Networks: copyNetworks(snap.Networks),
		Metadata: copyMetadata(snap.Metadata),
	}, nil
}

func (s *MemoryStore) List(_ context.Context) ([]Summary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Summary, 0, len(s.snapshots))
	for name, snap := range s.snapshots {
		out = append(out, Summary{Name: name, Size: len(snap.Networks), Generation: snap.Metadata.Generation})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *MemoryStore) Delete(_ context.Context, name string) error {
	if err := ValidateName(name); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.snapshots, name)
	return nil
}
