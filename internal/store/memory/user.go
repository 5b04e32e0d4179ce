package memory

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/beanfolio/roastery/internal/domain/repository"
)

// UserRepo is an in-memory repository.UserRepository.
type UserRepo struct {
	mu   sync.RWMutex
	byID map[string]repository.User
}

func (r *UserRepo) GetByID(_ context.Context, id string) (*repository.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.byID[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &u, nil
}

func (r *UserRepo) GetByEmail(_ context.Context, email string) (*repository.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, u := range r.byID {
		if strings.EqualFold(u.Email, email) {
			u := u
			return &u, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *UserRepo) GetByUsername(_ context.Context, username string) (*repository.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, u := range r.byID {
		if u.Username == username {
			u := u
			return &u, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *UserRepo) Create(_ context.Context, u *repository.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[u.ID]; ok {
		return repository.ErrDuplicate
	}
	for _, other := range r.byID {
		if strings.EqualFold(other.Email, u.Email) || other.Username == u.Username {
			return repository.ErrDuplicate
		}
	}
	r.byID[u.ID] = *u
	return nil
}

func (r *UserRepo) UpdateLastLogin(_ context.Context, id string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.byID[id]
	if !ok {
		return repository.ErrNotFound
	}
	u.LastLoginAt = &at
	r.byID[id] = u
	return nil
}
