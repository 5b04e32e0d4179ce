package repository

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound is returned when a lookup matches no row.
	ErrNotFound = errors.New("repository: not found")

	// ErrDuplicate is returned when an insert violates a uniqueness rule.
	ErrDuplicate = errors.New("repository: duplicate")
)

// UserRepository is the read/write surface of the collaborator-owned user
// table.
type UserRepository interface {
	GetByID(ctx context.Context, id string) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	GetByUsername(ctx context.Context, username string) (*User, error)
	Create(ctx context.Context, u *User) error
	UpdateLastLogin(ctx context.Context, id string, at time.Time) error
}

// LinkedAccountRepository persists provider links.
type LinkedAccountRepository interface {
	GetByProviderAccount(ctx context.Context, provider, providerAccountID string) (*LinkedAccount, error)
	ListByUser(ctx context.Context, userID string) ([]LinkedAccount, error)
	CountByUser(ctx context.Context, userID string) (int, error)
	Create(ctx context.Context, a *LinkedAccount) error
	Touch(ctx context.Context, id string, at time.Time) error
	Delete(ctx context.Context, userID, provider string) error
}

// TokenRepository persists the encrypted credential for each account, 1:1.
type TokenRepository interface {
	Get(ctx context.Context, accountID string) (*StoredToken, error)
	Upsert(ctx context.Context, t *StoredToken) error
	IncrementRefreshFailure(ctx context.Context, accountID string) error
	Delete(ctx context.Context, accountID string) error
}

// FlowStateStore holds one-time authorization flow records.
type FlowStateStore interface {
	Create(ctx context.Context, fs *FlowState) error

	// Consume atomically reads and deletes the record. At most one caller
	// observes a hit; everyone else (including replays) gets ErrNotFound.
	// Records past ExpiresAt are never returned.
	Consume(ctx context.Context, state string) (*FlowState, error)

	// Sweep removes expired, never-consumed records and reports how many.
	Sweep(ctx context.Context, now time.Time) (int, error)
}

// AuditLogger appends audit events. Implementations must be safe for
// concurrent use; callers never block a response on the append.
type AuditLogger interface {
	Append(ctx context.Context, e AuditEntry) error
}
