package memory

import (
	"context"
	"sync"
	"time"

	"github.com/beanfolio/roastery/internal/domain/repository"
)

// FlowStateStore is an in-memory repository.FlowStateStore. Consume holds the
// write lock across lookup and delete, so concurrent replays lose the race.
type FlowStateStore struct {
	mu      sync.Mutex
	byState map[string]repository.FlowState
}

func (s *FlowStateStore) Create(_ context.Context, fs *repository.FlowState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byState[fs.State]; ok {
		return repository.ErrDuplicate
	}
	s.byState[fs.State] = *fs
	return nil
}

func (s *FlowStateStore) Consume(_ context.Context, state string) (*repository.FlowState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fs, ok := s.byState[state]
	if !ok {
		return nil, repository.ErrNotFound
	}
	delete(s.byState, state)
	if time.Now().After(fs.ExpiresAt) {
		return nil, repository.ErrNotFound
	}
	return &fs, nil
}

func (s *FlowStateStore) Sweep(_ context.Context, now time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for state, fs := range s.byState {
		if !fs.ExpiresAt.After(now) {
			delete(s.byState, state)
			n++
		}
	}
	return n, nil
}
