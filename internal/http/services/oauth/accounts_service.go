package oauth

import (
	"context"
	"errors"
	"time"
)

// AccountsService manages a user's linked providers.
type AccountsService interface {
	// List returns the user's linked providers, oldest first.
	List(ctx context.Context, userID string) ([]AccountView, error)

	// Unlink removes a provider link and its stored credential. Refused when
	// it would leave the user with no way to sign in.
	Unlink(ctx context.Context, userID, provider string) error
}

// AccountView is the outward shape of one linked provider. Nothing secret
// crosses this boundary; ciphers stay in the store.
type AccountView struct {
	Provider    string    `json:"provider"`
	Email       string    `json:"email,omitempty"`
	DisplayName string    `json:"displayName,omitempty"`
	PictureURL  string    `json:"pictureUrl,omitempty"`
	Scopes      []string  `json:"scopes,omitempty"`
	LinkedAt    time.Time `json:"linkedAt"`
	LastUsedAt  time.Time `json:"lastUsedAt"`
}

var (
	ErrUnlinkNotLinked = errors.New("provider not linked")

	// ErrUnlinkOnlyAuthMethod refuses to orphan the account: the last link
	// only goes when a password exists.
	ErrUnlinkOnlyAuthMethod = errors.New("cannot unlink the only sign-in method")
)
