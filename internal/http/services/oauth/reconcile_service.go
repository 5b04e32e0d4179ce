package oauth

import (
	"context"
	"errors"

	"github.com/beanfolio/roastery/internal/domain/repository"
	"github.com/beanfolio/roastery/internal/oauth"
)

// IdentityService maps an external profile onto a local user, creating
// whatever is missing. This is where the four sign-in outcomes live:
// returning user, explicit link, email auto-link, brand new user.
type IdentityService interface {
	Reconcile(ctx context.Context, in ReconcileInput) (*ReconcileOutcome, error)
}

// ReconcileInput is the verified external identity plus flow intent.
type ReconcileInput struct {
	Provider string
	Profile  *oauth.Profile

	// LinkToUserID carries the "attach to this signed-in user" intent from the
	// flow record. Empty for plain sign-in.
	LinkToUserID string

	// Scope is what the provider actually granted.
	Scope []string
}

// ReconcileOutcome names the user and link the flow resolved to.
type ReconcileOutcome struct {
	User      *repository.User
	AccountID string

	// NewUser is true when this flow created the local user.
	NewUser bool
	// NewLink is true when this flow created the provider link (always true
	// when NewUser is).
	NewLink bool
}

var (
	// ErrAccountAlreadyLinked rejects linking an external identity that
	// already backs a different local user.
	ErrAccountAlreadyLinked = errors.New("provider account already linked to another user")

	ErrReconcileFailed = errors.New("identity reconciliation failed")
)
