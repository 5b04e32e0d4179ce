package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/beanfolio/roastery/internal/domain/repository"
)

// LinkedAccountRepo is an in-memory repository.LinkedAccountRepository.
type LinkedAccountRepo struct {
	mu   sync.RWMutex
	byID map[string]repository.LinkedAccount
}

func (r *LinkedAccountRepo) GetByProviderAccount(_ context.Context, provider, providerAccountID string) (*repository.LinkedAccount, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, a := range r.byID {
		if a.Provider == provider && a.ProviderAccountID == providerAccountID {
			a := a
			return &a, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *LinkedAccountRepo) ListByUser(_ context.Context, userID string) ([]repository.LinkedAccount, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []repository.LinkedAccount
	for _, a := range r.byID {
		if a.UserID == userID {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (r *LinkedAccountRepo) CountByUser(_ context.Context, userID string) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n := 0
	for _, a := range r.byID {
		if a.UserID == userID {
			n++
		}
	}
	return n, nil
}

func (r *LinkedAccountRepo) Create(_ context.Context, a *repository.LinkedAccount) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[a.ID]; ok {
		return repository.ErrDuplicate
	}
	for _, other := range r.byID {
		if other.Provider == a.Provider && other.ProviderAccountID == a.ProviderAccountID {
			return repository.ErrDuplicate
		}
		if other.UserID == a.UserID && other.Provider == a.Provider {
			return repository.ErrDuplicate
		}
	}
	r.byID[a.ID] = *a
	return nil
}

func (r *LinkedAccountRepo) Touch(_ context.Context, id string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.byID[id]
	if !ok {
		return repository.ErrNotFound
	}
	a.LastUsedAt = at
	r.byID[id] = a
	return nil
}

func (r *LinkedAccountRepo) Delete(_ context.Context, userID, provider string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, a := range r.byID {
		if a.UserID == userID && a.Provider == provider {
			delete(r.byID, id)
			return nil
		}
	}
	return repository.ErrNotFound
}
