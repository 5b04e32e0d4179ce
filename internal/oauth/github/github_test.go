package github

import (
	"context"
	"encoding/json"
	"errors"
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
		RedirectURL:     "https://app.example/oauth/github/callback",
		Scopes:          []string{"read:user", "user:email"},
		AuthEndpoint:    srvURL + "/login/oauth/authorize",
		TokenEndpoint:   srvURL + "/login/oauth/access_token",
		ProfileEndpoint: srvURL + "/user",
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return p
}

func TestRefresh_Unsupported(t *testing.T) {
	p := newTestProvider(t, "http://127.0.0.1:0")
	if _, err := p.Refresh(context.Background(), "anything"); !errors.Is(err, oauth.ErrRefreshUnsupported) {
		t.Fatalf("want ErrRefreshUnsupported, got %v", err)
	}
}

func TestFetchProfile_PublicEmail(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/user" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":         12345,
			"login":      "octocat",
			"name":       "The Octocat",
			"email":      "octo@example.com",
			"avatar_url": "https://avatars.example/octo.png",
			"html_url":   "https://github.com/octocat",
		})
	}))
	defer srv.Close()

	p := newTestProvider(t, srv.URL)
	profile, err := p.FetchProfile(context.Background(), "at")
	if err != nil {
		t.Fatalf("FetchProfile: %v", err)
	}
	if profile.ProviderID != "12345" {
		t.Errorf("ProviderID = %q, want numeric id as string", profile.ProviderID)
	}
	if profile.Email != "octo@example.com" || !profile.EmailVerified {
		t.Errorf("email = %q verified=%v", profile.Email, profile.EmailVerified)
	}
	if profile.DisplayName != "The Octocat" {
		t.Errorf("DisplayName = %q", profile.DisplayName)
	}
	if profile.Metadata["login"] != "octocat" {
		t.Errorf("metadata login missing: %v", profile.Metadata)
	}
}

func TestFetchProfile_PrivateEmailFallback(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/user":
			_ = json.NewEncoder(w).Encode(map[string]any{"id": 7, "login": "ghost"})
		case "/user/emails":
			_ = json.NewEncoder(w).Encode([]map[string]any{
				{"email": "old@example.com", "primary": false, "verified": true},
				{"email": "main@example.com", "primary": true, "verified": true},
			})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	p := newTestProvider(t, srv.URL)
	profile, err := p.FetchProfile(context.Background(), "at")
	if err != nil {
		t.Fatalf("FetchProfile: %v", err)
	}
	if profile.Email != "main@example.com" || !profile.EmailVerified {
		t.Fatalf("primary verified email not chosen: %q (verified=%v)", profile.Email, profile.EmailVerified)
	}
	if profile.DisplayName != "ghost" {
		t.Fatalf("DisplayName should fall back to login, got %q", profile.DisplayName)
	}
}

func TestFetchProfile_EmailEndpointFailureNonFatal(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/user":
			_ = json.NewEncoder(w).Encode(map[string]any{"id": 9, "login": "hermit"})
		default:
			w.WriteHeader(http.StatusForbidden)
		}
	}))
	defer srv.Close()

	p := newTestProvider(t, srv.URL)
	profile, err := p.FetchProfile(context.Background(), "at")
	if err != nil {
		t.Fatalf("FetchProfile should tolerate email endpoint failure: %v", err)
	}
	if profile.Email != "" || profile.EmailVerified {
		t.Fatalf("expected empty email, got %q", profile.Email)
	}
}
