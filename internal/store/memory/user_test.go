package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/beanfolio/roastery/internal/domain/repository"
)

func seedUser(t *testing.T, s *Store, id, email, username string) *repository.User {
	t.Helper()
	u := &repository.User{
		ID:        id,
		Email:     email,
		Username:  username,
		Role:      "user",
		CreatedAt: time.Now().UTC(),
	}
	require.NoError(t, s.Users.Create(context.Background(), u))
	return u
}

func TestUserRepo_Lookups(t *testing.T) {
	ctx := context.Background()
	s := New()
	seedUser(t, s, "u-1", "jo@example.com", "jo")

	got, err := s.Users.GetByID(ctx, "u-1")
	require.NoError(t, err)
	require.Equal(t, "jo", got.Username)

	got, err = s.Users.GetByEmail(ctx, "JO@Example.COM")
	require.NoError(t, err, "email lookup must be case-insensitive")
	require.Equal(t, "u-1", got.ID)

	got, err = s.Users.GetByUsername(ctx, "jo")
	require.NoError(t, err)
	require.Equal(t, "u-1", got.ID)

	_, err = s.Users.GetByID(ctx, "missing")
	require.ErrorIs(t, err, repository.ErrNotFound)
	_, err = s.Users.GetByEmail(ctx, "nobody@example.com")
	require.ErrorIs(t, err, repository.ErrNotFound)
}

func TestUserRepo_DuplicateRejected(t *testing.T) {
	ctx := context.Background()
	s := New()
	seedUser(t, s, "u-1", "jo@example.com", "jo")

	err := s.Users.Create(ctx, &repository.User{ID: "u-2", Email: "jo@example.com", Username: "other"})
	require.ErrorIs(t, err, repository.ErrDuplicate)

	err = s.Users.Create(ctx, &repository.User{ID: "u-3", Email: "new@example.com", Username: "jo"})
	require.ErrorIs(t, err, repository.ErrDuplicate)
}

func TestUserRepo_UpdateLastLogin(t *testing.T) {
	ctx := context.Background()
	s := New()
	seedUser(t, s, "u-1", "jo@example.com", "jo")

	stamp := time.Now().UTC().Truncate(time.Second)
	require.NoError(t, s.Users.UpdateLastLogin(ctx, "u-1", stamp))

	got, err := s.Users.GetByID(ctx, "u-1")
	require.NoError(t, err)
	require.NotNil(t, got.LastLoginAt)
	require.True(t, got.LastLoginAt.Equal(stamp))

	require.ErrorIs(t, s.Users.UpdateLastLogin(ctx, "missing", stamp), repository.ErrNotFound)
}
