package session

import (
	"errors"
	"sort"
	"sync"

	"github.com/hupe1980/protoforge/pipeline"
)

// ErrNotFound is returned for an unknown run id.
var ErrNotFound = errors.New("run not found")

// Store persists run snapshots.
type Store interface {
	Save(state pipeline.State) error
	Get(runID string) (pipeline.State, error)
	List() ([]pipeline.State, error)
	Delete(runID string) error
}

// InMemoryStore is a volatile Store backed by a process local map. It is
// safe for concurrent access. Because pipeline.State is a value, stored and
// returned snapshots never alias each other.
type InMemoryStore struct {
	mu   sync.RWMutex
	runs map[string]pipeline.State
}

// NewInMemoryStore constructs an empty in‑memory run store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{runs: make(map[string]pipeline.State)}
}

// Save stores state, replacing any older snapshot of the same run. A
// snapshot older than the stored one is ignored so late callbacks cannot
// roll a run back.
func (s *InMemoryStore) Save(state pipeline.State) error {
	if state.RunID == "" {
		return errors.New("run id is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if prev, ok := s.runs[state.RunID]; ok && prev.UpdatedAt.After(state.UpdatedAt) {
		return nil
	}
	s.runs[state.RunID] = state
	return nil
}

// Get returns the latest snapshot of a run or ErrNotFound.
func (s *InMemoryStore) Get(runID string) (pipeline.State, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.runs[runID]
	if !ok {
		return pipeline.State{}, ErrNotFound
	}
	return st, nil
}

// List returns all snapshots, oldest run first.
func (s *InMemoryStore) List() ([]pipeline.State, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]pipeline.State, 0, len(s.runs))
	for _, st := range s.runs {
		out = append(out, st)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].StartedAt.Equal(out[j].StartedAt) {
			return out[i].RunID < out[j].RunID
		}
		return out[i].StartedAt.Before(out[j].StartedAt)
	})
	return out, nil
}

// Delete removes a run or returns ErrNotFound.
func (s *InMemoryStore) Delete(runID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.runs[runID]; !ok {
		return ErrNotFound
	}
	delete(s.runs, runID)
	return nil
}
