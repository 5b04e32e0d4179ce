package oauth_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	svc "github.com/beanfolio/roastery/internal/http/services/oauth"
	core "github.com/beanfolio/roastery/internal/oauth"
	"github.com/beanfolio/roastery/internal/store/memory"
)

func TestReconcile_ReturningIdentity(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	u := seedUser(t, store, "u-1", "jo@example.com", "jo", false)
	seedLink(t, store, "a-1", u.ID, "google", "ext-1")

	out, err := newIdentity(store).Reconcile(ctx, svc.ReconcileInput{
		Provider: "google",
		Profile:  &core.Profile{ProviderID: "ext-1", Email: "jo@example.com", EmailVerified: true},
	})
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if out.User.ID != "u-1" || out.AccountID != "a-1" {
		t.Fatalf("resolved to %s/%s", out.User.ID, out.AccountID)
	}
	if out.NewUser || out.NewLink {
		t.Fatalf("returning identity flagged as new: %+v", out)
	}
}

func TestReconcile_ExplicitLink(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	u := seedUser(t, store, "u-1", "jo@example.com", "jo", true)

	out, err := newIdentity(store).Reconcile(ctx, svc.ReconcileInput{
		Provider:     "github",
		Profile:      &core.Profile{ProviderID: "gh-9", DisplayName: "Jo"},
		LinkToUserID: u.ID,
		Scope:        []string{"read:user"},
	})
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if out.User.ID != u.ID || !out.NewLink || out.NewUser {
		t.Fatalf("outcome = %+v", out)
	}

	accounts, _ := store.Accounts.ListByUser(ctx, u.ID)
	if len(accounts) != 1 || accounts[0].Provider != "github" || accounts[0].ProviderAccountID != "gh-9" {
		t.Fatalf("link not persisted: %+v", accounts)
	}
}

func TestReconcile_LinkRefusedWhenIdentityOwnedElsewhere(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	owner := seedUser(t, store, "u-owner", "owner@example.com", "owner", false)
	seedLink(t, store, "a-1", owner.ID, "google", "ext-1")
	other := seedUser(t, store, "u-other", "other@example.com", "other", true)

	_, err := newIdentity(store).Reconcile(ctx, svc.ReconcileInput{
		Provider:     "google",
		Profile:      &core.Profile{ProviderID: "ext-1"},
		LinkToUserID: other.ID,
	})
	if !errors.Is(err, svc.ErrAccountAlreadyLinked) {
		t.Fatalf("want ErrAccountAlreadyLinked, got %v", err)
	}
}

func TestReconcile_SecondLinkSameProviderRefused(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	u := seedUser(t, store, "u-1", "jo@example.com", "jo", true)
	seedLink(t, store, "a-1", u.ID, "google", "ext-old")

	_, err := newIdentity(store).Reconcile(ctx, svc.ReconcileInput{
		Provider:     "google",
		Profile:      &core.Profile{ProviderID: "ext-new"},
		LinkToUserID: u.ID,
	})
	if !errors.Is(err, svc.ErrAccountAlreadyLinked) {
		t.Fatalf("want ErrAccountAlreadyLinked for second google link, got %v", err)
	}
}

func TestReconcile_EmailAutoLink(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	u := seedUser(t, store, "u-1", "jo@example.com", "jo", true)

	out, err := newIdentity(store).Reconcile(ctx, svc.ReconcileInput{
		Provider: "google",
		Profile:  &core.Profile{ProviderID: "ext-1", Email: "JO@example.com", EmailVerified: true},
	})
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if out.User.ID != u.ID || !out.NewLink || out.NewUser {
		t.Fatalf("verified email should auto-link, got %+v", out)
	}
}

func TestReconcile_NoAutoLinkOnUnverifiedEmail(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	seedUser(t, store, "u-1", "jo@example.com", "jo", true)

	out, err := newIdentity(store).Reconcile(ctx, svc.ReconcileInput{
		Provider: "facebook",
		Profile:  &core.Profile{ProviderID: "fb-1", Email: "jo@example.com", EmailVerified: false, DisplayName: "Jo Second"},
	})
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if !out.NewUser {
		t.Fatalf("unverified email must not attach to the existing account: %+v", out)
	}
	if out.User.ID == "u-1" {
		t.Fatal("reused the existing user on an unverified address")
	}
}

func TestReconcile_NewUserDerivedUsername(t *testing.T) {
	ctx := context.Background()
	store := memory.New()

	out, err := newIdentity(store).Reconcile(ctx, svc.ReconcileInput{
		Provider: "google",
		Profile: &core.Profile{
			ProviderID:    "ext-1",
			Email:         "bean.head@example.com",
			EmailVerified: true,
			DisplayName:   "Béan Head!!",
		},
	})
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if !out.NewUser || !out.NewLink {
		t.Fatalf("outcome = %+v", out)
	}
	// Non-ASCII and punctuation stripped from the display name.
	if out.User.Username != "banhead" {
		t.Fatalf("username = %q", out.User.Username)
	}
	if out.User.Email != "bean.head@example.com" {
		t.Fatalf("email = %q", out.User.Email)
	}
}

func TestReconcile_UsernameFallsBackToEmailLocalPart(t *testing.T) {
	ctx := context.Background()
	store := memory.New()

	out, err := newIdentity(store).Reconcile(ctx, svc.ReconcileInput{
		Provider: "google",
		Profile:  &core.Profile{ProviderID: "ext-1", Email: "latte.fan42@example.com", EmailVerified: true},
	})
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if out.User.Username != "lattefan42" {
		t.Fatalf("username = %q", out.User.Username)
	}
}

func TestReconcile_ShortUsernamePadded(t *testing.T) {
	ctx := context.Background()
	store := memory.New()

	out, err := newIdentity(store).Reconcile(ctx, svc.ReconcileInput{
		Provider: "github",
		Profile:  &core.Profile{ProviderID: "gh-1", DisplayName: "Jo"},
	})
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if out.User.Username != "joroaster" {
		t.Fatalf("short name should be padded, got %q", out.User.Username)
	}
}

func TestReconcile_UsernameCollisionSuffixed(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	seedUser(t, store, "u-1", "first@example.com", "jobean", false)

	out, err := newIdentity(store).Reconcile(ctx, svc.ReconcileInput{
		Provider: "google",
		Profile:  &core.Profile{ProviderID: "ext-2", Email: "second@example.com", EmailVerified: true, DisplayName: "Jo Bean"},
	})
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if out.User.Username != "jobean2" {
		t.Fatalf("collision should add a numeric suffix, got %q", out.User.Username)
	}
}

func TestReconcile_PlaceholderEmailWhenProviderHasNone(t *testing.T) {
	ctx := context.Background()
	store := memory.New()

	out, err := newIdentity(store).Reconcile(ctx, svc.ReconcileInput{
		Provider: "github",
		Profile:  &core.Profile{ProviderID: "gh-77", DisplayName: "Hermit Roaster"},
	})
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	want := out.User.Username + "@github.noemail.roastery.local"
	if out.User.Email != want {
		t.Fatalf("placeholder email = %q, want %q", out.User.Email, want)
	}
	if !strings.HasSuffix(out.User.Email, ".noemail.roastery.local") {
		t.Fatalf("placeholder domain wrong: %q", out.User.Email)
	}
}

func TestReconcile_UsernameCappedAt30(t *testing.T) {
	ctx := context.Background()
	store := memory.New()

	out, err := newIdentity(store).Reconcile(ctx, svc.ReconcileInput{
		Provider: "google",
		Profile: &core.Profile{
			ProviderID:    "ext-long",
			Email:         "long@example.com",
			EmailVerified: true,
			DisplayName:   strings.Repeat("a", 64),
		},
	})
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if len(out.User.Username) != 30 {
		t.Fatalf("username length = %d, want 30", len(out.User.Username))
	}
}
