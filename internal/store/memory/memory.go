// Package memory implements the auth repositories in process memory. It backs
// local development and the service-level tests; semantics mirror the pg
// package, including sentinel errors and one-shot flow state consumption.
package memory

import (
	"sync"

	"github.com/beanfolio/roastery/internal/domain/repository"
)

// Store bundles the in-memory repositories behind one lock per concern.
type Store struct {
	Users    *UserRepo
	Accounts *LinkedAccountRepo
	Tokens   *TokenRepo
	Flows    *FlowStateStore
	Audit    *AuditLog
}

// New returns an empty store.
func New() *Store {
	return &Store{
		Users:    &UserRepo{byID: map[string]repository.User{}},
		Accounts: &LinkedAccountRepo{byID: map[string]repository.LinkedAccount{}},
		Tokens:   &TokenRepo{byAccount: map[string]repository.StoredToken{}},
		Flows:    &FlowStateStore{byState: map[string]repository.FlowState{}},
		Audit:    &AuditLog{},
	}
}

// AuditLog keeps entries in order of arrival.
type AuditLog struct {
	mu      sync.Mutex
	entries []repository.AuditEntry
}

// Entries returns a copy of everything appended so far.
func (a *AuditLog) Entries() []repository.AuditEntry {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]repository.AuditEntry, len(a.entries))
	copy(out, a.entries)
	return out
}
