package memory

import (
	"context"
	"sync"

	"github.com/beanfolio/roastery/internal/domain/repository"
)

// TokenRepo is an in-memory repository.TokenRepository.
type TokenRepo struct {
	mu        sync.RWMutex
	byAccount map[string]repository.StoredToken
}

func (r *TokenRepo) Get(_ context.Context, accountID string) (*repository.StoredToken, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.byAccount[accountID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &t, nil
}

func (r *TokenRepo) Upsert(_ context.Context, t *repository.StoredToken) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byAccount[t.AccountID] = *t
	return nil
}

func (r *TokenRepo) IncrementRefreshFailure(_ context.Context, accountID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.byAccount[accountID]
	if !ok {
		return repository.ErrNotFound
	}
	t.RefreshFailCount++
	r.byAccount[accountID] = t
	return nil
}

func (r *TokenRepo) Delete(_ context.Context, accountID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.byAccount, accountID)
	return nil
}
