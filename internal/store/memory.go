package store

import (
	"context"
	"sync"

	"gopkg.in/yaml.v3"

	serrors "github.com/meow-stack/stagefan/internal/errors"
	"github.com/meow-stack/stagefan/internal/types"
)

// MemoryStore keeps runs in process memory. Records are copied on the way
// in and out so callers cannot mutate stored state.
type MemoryStore struct {
	mu   sync.RWMutex
	runs map[string][]byte
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{runs: make(map[string][]byte)}
}

// Save stores a copy of run.
func (s *MemoryStore) Save(ctx context.Context, run *types.Run) error {
	if err := run.Validate(); err != nil {
		return serrors.StoreFailed("save", err)
	}
	data, err := yaml.Marshal(run)
	if err != nil {
		return serrors.StoreFailed("save", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.runs[run.ID] = data
	return nil
}

// Get returns a copy of the run.
func (s *MemoryStore) Get(ctx context.Context, id string) (*types.Run, error) {
	s.mu.RLock()
	data, ok := s.runs[id]
	s.mu.RUnlock()
	if !ok {
		return nil, serrors.RunNotFound(id)
	}

	var run types.Run
	if err := yaml.Unmarshal(data, &run); err != nil {
		return nil, serrors.StoreFailed("get", err)
	}
	return &run, nil
}

// List returns copies of the runs matching filter.
func (s *MemoryStore) List(ctx context.Context, filter Filter) ([]*types.Run, error) {
	s.mu.RLock()
	ids := make([]string, 0, len(s.runs))
	for id := range s.runs {
		ids = append(ids, id)
	}
	s.mu.RUnlock()

	var runs []*types.Run
	for _, id := range ids {
		run, err := s.Get(ctx, id)
		if err != nil {
			continue
		}
		runs = append(runs, run)
	}
	return filter.apply(runs), nil
}

// Delete removes a run.
func (s *MemoryStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.runs[id]; !ok {
		return serrors.RunNotFound(id)
	}
	delete(s.runs, id)
	return nil
}

// Close is a no-op.
func (s *MemoryStore) Close() error {
	return nil
}

var _ Store = (*MemoryStore)(nil)
