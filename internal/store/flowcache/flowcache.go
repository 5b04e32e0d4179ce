// Package flowcache implements repository.FlowStateStore over the cache
// abstraction. Flow records are short-lived and fine to lose on restart, so a
// TTL'd cache entry is a better fit than a table when redis is available:
// GetDel gives the one-shot consume for free and expiry replaces sweeping.
package flowcache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/beanfolio/roastery/internal/cache"
	"github.com/beanfolio/roastery/internal/domain/repository"
)

const keyPrefix = "oauth:flow:"

// Store holds flow state as JSON values keyed by the state parameter.
type Store struct {
	cache cache.Client
}

// New wraps the cache client.
func New(c cache.Client) *Store {
	return &Store{cache: c}
}

func key(state string) string {
	return keyPrefix + state
}

func (s *Store) Create(ctx context.Context, fs *repository.FlowState) error {
	ttl := time.Until(fs.ExpiresAt)
	if ttl <= 0 {
		return fmt.Errorf("flowcache: record already expired")
	}
	raw, err := json.Marshal(fs)
	if err != nil {
		return fmt.Errorf("flowcache: encode: %w", err)
	}
	return s.cache.Set(ctx, key(fs.State), string(raw), ttl)
}

func (s *Store) Consume(ctx context.Context, state string) (*repository.FlowState, error) {
	raw, err := s.cache.GetDel(ctx, key(state))
	if errors.Is(err, cache.ErrNotFound) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	var fs repository.FlowState
	if err := json.Unmarshal([]byte(raw), &fs); err != nil {
		return nil, fmt.Errorf("flowcache: decode: %w", err)
	}
	// The backend TTL already enforces expiry; this guards clock drift
	// between writer and backend.
	if time.Now().After(fs.ExpiresAt) {
		return nil, repository.ErrNotFound
	}
	return &fs, nil
}

// Sweep is a no-op: the backend expires entries on its own.
func (s *Store) Sweep(context.Context, time.Time) (int, error) {
	return 0, nil
}
