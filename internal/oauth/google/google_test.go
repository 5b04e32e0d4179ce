package google

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/beanfolio/roastery/internal/oauth"
)

func newTestProvider(t *testing.T, srvURL string) oauth.Provider {
	t.Helper()
	p, err := New(oauth.Config{
		ClientID:        "id",
		ClientSecret:    "secret",
		RedirectURL:     "https://app.example/oauth/google/callback",
		Scopes:          []string{"openid", "email", "profile"},
		AuthEndpoint:    srvURL + "/authorize",
		TokenEndpoint:   srvURL + "/token",
		ProfileEndpoint: srvURL + "/userinfo",
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return p
}

func TestAuthorizeURL_RequestsOfflineAccess(t *testing.T) {
	p := newTestProvider(t, "https://idp.example")
	u, err := url.Parse(p.AuthorizeURL("st", "ch"))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	q := u.Query()
	if q.Get("access_type") != "offline" || q.Get("prompt") != "consent" {
		t.Fatalf("offline access params missing: %v", q)
	}
	if q.Get("state") != "st" || q.Get("code_challenge") != "ch" {
		t.Fatalf("state/challenge missing: %v", q)
	}
}

func TestFetchProfile(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer at" {
			t.Errorf("authorization = %q", got)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"sub":            "110248495921238986420",
			"email":          "jo@example.com",
			"email_verified": true,
			"name":           "Jo Bean",
			"given_name":     "Jo",
			"family_name":    "Bean",
			"picture":        "https://lh3.example/photo.jpg",
			"locale":         "en",
			"hd":             "example.com",
		})
	}))
	defer srv.Close()

	p := newTestProvider(t, srv.URL)
	profile, err := p.FetchProfile(context.Background(), "at")
	if err != nil {
		t.Fatalf("FetchProfile: %v", err)
	}
	if profile.ProviderID != "110248495921238986420" {
		t.Errorf("ProviderID = %q", profile.ProviderID)
	}
	if profile.Email != "jo@example.com" || !profile.EmailVerified {
		t.Errorf("email = %q verified=%v", profile.Email, profile.EmailVerified)
	}
	if profile.GivenName != "Jo" || profile.FamilyName != "Bean" {
		t.Errorf("names = %q %q", profile.GivenName, profile.FamilyName)
	}
	if profile.Metadata["hosted_domain"] != "example.com" {
		t.Errorf("metadata = %v", profile.Metadata)
	}
}

func TestFetchProfile_UnverifiedEmailPreserved(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"sub":            "1",
			"email":          "unverified@example.com",
			"email_verified": false,
		})
	}))
	defer srv.Close()

	p := newTestProvider(t, srv.URL)
	profile, err := p.FetchProfile(context.Background(), "at")
	if err != nil {
		t.Fatalf("FetchProfile: %v", err)
	}
	if profile.EmailVerified {
		t.Fatal("email_verified=false must survive normalization")
	}
}
