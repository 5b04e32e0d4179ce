// Package cache provides a small multi-backend cache abstraction.
//
// Backends:
//   - memory (in-process, dev and tests)
//   - redis (shared, production)
//
// Besides plain Get/Set it exposes GetDel, an atomic read-and-delete used for
// one-time-use records: under concurrent readers at most one observes the
// value.
package cache

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a key does not exist or has expired.
var ErrNotFound = errors.New("cache: key not found")

// Client defines the cache operations.
type Client interface {
	// Get returns the value or ErrNotFound.
	Get(ctx context.Context, key string) (string, error)

	// Set stores value with a TTL. ttl == 0 means no expiry.
	Set(ctx context.Context, key, value string, ttl time.Duration) error

	// GetDel atomically returns and removes the value, or ErrNotFound.
	GetDel(ctx context.Context, key string) (string, error)

	// Delete removes a key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Ping verifies connectivity.
	Ping(ctx context.Context) error

	// Close releases the backend connection.
	Close() error
}

// Config selects and parameterizes a backend.
type Config struct {
	Kind     string // "memory" | "redis"
	Addr     string
	Password string
	DB       int
	Prefix   string
}

// New builds a Client for the configured backend, defaulting to memory.
func New(cfg Config) (Client, error) {
	switch cfg.Kind {
	case "redis":
		return NewRedis(cfg)
	case "memory", "":
		return NewMemory(cfg.Prefix), nil
	default:
		return NewMemory(cfg.Prefix), nil
	}
}
