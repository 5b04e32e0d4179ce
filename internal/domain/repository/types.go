// Package repository defines the domain types and persistence contracts the
// auth subsystem depends on. The rest of the directory application owns the
// app_user table; this package only describes what auth needs from it.
package repository

import "time"

// User is the local account record. PasswordHash is nil for users who only
// ever signed in through a provider.
type User struct {
	ID           string
	Email        string
	Username     string
	PasswordHash *string
	Role         string
	LastLoginAt  *time.Time
	CreatedAt    time.Time
}

// HasPassword reports whether the user can sign in without a provider.
func (u *User) HasPassword() bool {
	return u.PasswordHash != nil && *u.PasswordHash != ""
}

// LinkedAccount associates a local user with one external identity.
// (Provider, ProviderAccountID) is globally unique: a given external identity
// backs at most one local account.
type LinkedAccount struct {
	ID                string
	UserID            string
	Provider          string
	ProviderAccountID string
	Email             string
	DisplayName       string
	PictureURL        string
	Metadata          map[string]any
	Scope             []string
	LastUsedAt        time.Time
	CreatedAt         time.Time
}

// StoredToken is the encrypted provider credential backing a LinkedAccount,
// 1:1 by AccountID. Plaintext tokens never reach storage.
type StoredToken struct {
	AccountID          string
	AccessTokenCipher  string
	RefreshTokenCipher string // empty when the provider issued no refresh token
	TokenType          string
	Scope              []string
	ExpiresAt          *time.Time // nil for non-expiring tokens
	LastRefreshedAt    time.Time
	RefreshFailCount   int
}

// FlowState is one in-flight authorization attempt. Rows are consumed
// (read+deleted) exactly once, or swept after ExpiresAt.
type FlowState struct {
	State         string
	Provider      string
	CodeVerifier  string
	CodeChallenge string
	LinkToUserID  string // set only for "attach provider to signed-in user"
	RedirectURL   string
	RemoteAddr    string
	UserAgent     string
	ExpiresAt     time.Time
	CreatedAt     time.Time
}

// AuditEntry is one append-only audit record. Writes are fire-and-forget.
type AuditEntry struct {
	ID        string
	Event     string
	UserID    string
	Provider  string
	Detail    map[string]any
	CreatedAt time.Time
}
