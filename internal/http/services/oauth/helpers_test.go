package oauth_test

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/beanfolio/roastery/internal/domain/repository"
	svc "github.com/beanfolio/roastery/internal/http/services/oauth"
	"github.com/beanfolio/roastery/internal/jwt"
	core "github.com/beanfolio/roastery/internal/oauth"
	"github.com/beanfolio/roastery/internal/security/vault"
	"github.com/beanfolio/roastery/internal/store/memory"
)

// fakeProvider lets each test script the provider side of a flow.
type fakeProvider struct {
	name        string
	exchange    func(code, verifier string) (*core.TokenResponse, error)
	fetch       func(accessToken string) (*core.Profile, error)
	refresh     func(refreshToken string) (*core.TokenResponse, error)
	refreshHits int
}

func (f *fakeProvider) Name() string { return f.name }

func (f *fakeProvider) AuthorizeURL(state, challenge string) string {
	return "https://idp.example/authorize?state=" + state + "&code_challenge=" + challenge
}

func (f *fakeProvider) Exchange(_ context.Context, code, verifier string) (*core.TokenResponse, error) {
	if f.exchange != nil {
		return f.exchange(code, verifier)
	}
	return &core.TokenResponse{AccessToken: "at", TokenType: "Bearer", ExpiresIn: 3600}, nil
}

func (f *fakeProvider) FetchProfile(_ context.Context, accessToken string) (*core.Profile, error) {
	if f.fetch != nil {
		return f.fetch(accessToken)
	}
	return &core.Profile{ProviderID: "ext-1", Email: "roaster@example.com", EmailVerified: true, DisplayName: "Road Roaster"}, nil
}

func (f *fakeProvider) Refresh(_ context.Context, refreshToken string) (*core.TokenResponse, error) {
	f.refreshHits++
	if f.refresh != nil {
		return f.refresh(refreshToken)
	}
	return nil, core.ErrRefreshUnsupported
}

func newRegistry(providers ...*fakeProvider) *core.Registry {
	r := core.NewRegistry()
	for _, p := range providers {
		p := p
		r.Register(p.name, func() (core.Provider, error) { return p, nil })
	}
	return r
}

func newVault(t *testing.T) *vault.Vault {
	t.Helper()
	v, err := vault.New(bytes.Repeat([]byte{7}, 32))
	if err != nil {
		t.Fatalf("vault.New: %v", err)
	}
	return v
}

func newIssuer(t *testing.T) *jwt.Issuer {
	t.Helper()
	iss, err := jwt.NewIssuer([]byte("0123456789abcdef0123456789abcdef"), "roastery", time.Hour)
	if err != nil {
		t.Fatalf("jwt.NewIssuer: %v", err)
	}
	return iss
}

// seedUser creates a user directly in the store.
func seedUser(t *testing.T, store *memory.Store, id, email, username string, password bool) *repository.User {
	t.Helper()
	u := &repository.User{
		ID:        id,
		Email:     email,
		Username:  username,
		Role:      "user",
		CreatedAt: time.Now().UTC(),
	}
	if password {
		hash := "$2a$10$fakehash"
		u.PasswordHash = &hash
	}
	if err := store.Users.Create(context.Background(), u); err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return u
}

// seedLink creates a linked account directly in the store.
func seedLink(t *testing.T, store *memory.Store, id, userID, provider, providerAccountID string) *repository.LinkedAccount {
	t.Helper()
	now := time.Now().UTC()
	a := &repository.LinkedAccount{
		ID:                id,
		UserID:            userID,
		Provider:          provider,
		ProviderAccountID: providerAccountID,
		LastUsedAt:        now,
		CreatedAt:         now,
	}
	if err := store.Accounts.Create(context.Background(), a); err != nil {
		t.Fatalf("seed link: %v", err)
	}
	return a
}

// seedFlow plants a consumable flow record.
func seedFlow(t *testing.T, store *memory.Store, state, provider, linkUserID string) {
	t.Helper()
	now := time.Now().UTC()
	err := store.Flows.Create(context.Background(), &repository.FlowState{
		State:         state,
		Provider:      provider,
		CodeVerifier:  "verifier-" + state,
		CodeChallenge: "challenge-" + state,
		LinkToUserID:  linkUserID,
		ExpiresAt:     now.Add(10 * time.Minute),
		CreatedAt:     now,
	})
	if err != nil {
		t.Fatalf("seed flow: %v", err)
	}
}

func newIdentity(store *memory.Store) svc.IdentityService {
	return svc.NewIdentityService(svc.IdentityDeps{Users: store.Users, Accounts: store.Accounts})
}
