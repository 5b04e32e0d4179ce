package facebook

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/beanfolio/roastery/internal/oauth"
)

func newTestProvider(t *testing.T, srvURL string) oauth.Provider {
	t.Helper()
	p, err := New(oauth.Config{
		ClientID:        "id",
		ClientSecret:    "secret",
		RedirectURL:     "https://app.example/oauth/facebook/callback",
		Scopes:          []string{"public_profile", "email"},
		AuthEndpoint:    srvURL + "/dialog/oauth",
		TokenEndpoint:   srvURL + "/oauth/access_token",
		ProfileEndpoint: srvURL + "/me",
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return p
}

func TestRefresh_UsesExchangeTokenGrant(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseForm()
		if r.PostForm.Get("grant_type") != "fb_exchange_token" {
			t.Errorf("grant_type = %q", r.PostForm.Get("grant_type"))
		}
		if r.PostForm.Get("fb_exchange_token") != "short-lived" {
			t.Errorf("fb_exchange_token = %q", r.PostForm.Get("fb_exchange_token"))
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"access_token": "long-lived",
			"token_type":   "bearer",
			"expires_in":   5183944,
		})
	}))
	defer srv.Close()

	p := newTestProvider(t, srv.URL)
	tr, err := p.Refresh(context.Background(), "short-lived")
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if tr.AccessToken != "long-lived" {
		t.Fatalf("token = %+v", tr)
	}
	if tr.RefreshToken != "long-lived" {
		t.Fatalf("renewed token must become the next exchange material, got %q", tr.RefreshToken)
	}
}

func TestExchange_KeepsTokenAsRefreshMaterial(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Facebook's token response carries no refresh_token at all.
		_ = json.NewEncoder(w).Encode(map[string]any{
			"access_token": "short-lived",
			"token_type":   "bearer",
			"expires_in":   3600,
		})
	}))
	defer srv.Close()

	p := newTestProvider(t, srv.URL)
	tr, err := p.Exchange(context.Background(), "the-code", "")
	if err != nil {
		t.Fatalf("Exchange: %v", err)
	}
	// Without this, nothing is ever stored in the refresh slot and the
	// long-lived exchange can never run.
	if tr.RefreshToken != "short-lived" {
		t.Fatalf("RefreshToken = %q, want the access token", tr.RefreshToken)
	}
}

func TestFetchProfile_NoEmail(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if fields := r.URL.Query().Get("fields"); fields == "" {
			t.Error("fields parameter missing")
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":         "10158000000000001",
			"name":       "Jo Bean",
			"first_name": "Jo",
			"last_name":  "Bean",
			"picture":    map[string]any{"data": map[string]any{"url": "https://graph.example/photo.jpg"}},
		})
	}))
	defer srv.Close()

	p := newTestProvider(t, srv.URL)
	profile, err := p.FetchProfile(context.Background(), "at")
	if err != nil {
		t.Fatalf("FetchProfile: %v", err)
	}
	if profile.ProviderID != "10158000000000001" {
		t.Errorf("ProviderID = %q", profile.ProviderID)
	}
	// A declined email permission must read as "no verified email".
	if profile.Email != "" || profile.EmailVerified {
		t.Errorf("email = %q verified=%v", profile.Email, profile.EmailVerified)
	}
	if profile.PictureURL != "https://graph.example/photo.jpg" {
		t.Errorf("picture = %q", profile.PictureURL)
	}
}

func TestFetchProfile_WithEmail(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":    "42",
			"name":  "Jo",
			"email": "jo@example.com",
		})
	}))
	defer srv.Close()

	p := newTestProvider(t, srv.URL)
	profile, err := p.FetchProfile(context.Background(), "at")
	if err != nil {
		t.Fatalf("FetchProfile: %v", err)
	}
	if profile.Email != "jo@example.com" || !profile.EmailVerified {
		t.Fatalf("granted email should count as verified: %+v", profile)
	}
}
