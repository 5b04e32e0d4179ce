package oauth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/beanfolio/roastery/internal/domain/repository"
	"github.com/beanfolio/roastery/internal/oauth"
	"github.com/beanfolio/roastery/internal/observability/logger"
	"github.com/beanfolio/roastery/internal/security/vault"
)

// IdentityDeps contains dependencies for the identity service.
type IdentityDeps struct {
	Users    repository.UserRepository
	Accounts repository.LinkedAccountRepository
}

type identityService struct {
	users    repository.UserRepository
	accounts repository.LinkedAccountRepository
}

// NewIdentityService creates an IdentityService.
func NewIdentityService(d IdentityDeps) IdentityService {
	return &identityService{users: d.Users, accounts: d.Accounts}
}

func (s *identityService) Reconcile(ctx context.Context, in ReconcileInput) (*ReconcileOutcome, error) {
	log := logger.From(ctx).With(logger.Layer("service"), logger.Component("oauth.identity"))
	now := time.Now().UTC()

	// Returning identity: the external account is already linked.
	acct, err := s.accounts.GetByProviderAccount(ctx, in.Provider, in.Profile.ProviderID)
	if err == nil {
		if in.LinkToUserID != "" && in.LinkToUserID != acct.UserID {
			log.Warn("link refused, identity owned by another user",
				logger.Provider(in.Provider),
				logger.UserID(in.LinkToUserID),
			)
			return nil, ErrAccountAlreadyLinked
		}
		user, err := s.users.GetByID(ctx, acct.UserID)
		if err != nil {
			return nil, fmt.Errorf("%w: load linked user: %v", ErrReconcileFailed, err)
		}
		if err := s.accounts.Touch(ctx, acct.ID, now); err != nil {
			log.Warn("touch linked account failed", logger.AccountID(acct.ID), logger.Err(err))
		}
		return &ReconcileOutcome{User: user, AccountID: acct.ID}, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("%w: lookup link: %v", ErrReconcileFailed, err)
	}

	// Explicit link intent: attach to the signed-in user.
	if in.LinkToUserID != "" {
		user, err := s.users.GetByID(ctx, in.LinkToUserID)
		if err != nil {
			return nil, fmt.Errorf("%w: link target: %v", ErrReconcileFailed, err)
		}
		acctID, err := s.createLink(ctx, user.ID, in, now)
		if err != nil {
			return nil, err
		}
		log.Info("provider linked to existing user", logger.Provider(in.Provider), logger.UserID(user.ID))
		return &ReconcileOutcome{User: user, AccountID: acctID, NewLink: true}, nil
	}

	// Email auto-link, only on addresses the provider actually verified. An
	// unverified address would let anyone claim an account by registering it
	// at a sloppy provider.
	if in.Profile.Email != "" && in.Profile.EmailVerified {
		user, err := s.users.GetByEmail(ctx, in.Profile.Email)
		if err == nil {
			acctID, err := s.createLink(ctx, user.ID, in, now)
			if err != nil {
				return nil, err
			}
			log.Info("provider auto-linked by email", logger.Provider(in.Provider), logger.UserID(user.ID))
			return &ReconcileOutcome{User: user, AccountID: acctID, NewLink: true}, nil
		}
		if !errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%w: lookup by email: %v", ErrReconcileFailed, err)
		}
	}

	// First contact: provision a new user.
	user, err := s.createUser(ctx, in, now)
	if err != nil {
		return nil, err
	}
	acctID, err := s.createLink(ctx, user.ID, in, now)
	if err != nil {
		return nil, err
	}
	log.Info("new user provisioned",
		logger.Provider(in.Provider),
		logger.UserID(user.ID),
		logger.Bool("placeholder_email", in.Profile.Email == "" || !in.Profile.EmailVerified),
	)
	return &ReconcileOutcome{User: user, AccountID: acctID, NewUser: true, NewLink: true}, nil
}

func (s *identityService) createLink(ctx context.Context, userID string, in ReconcileInput, now time.Time) (string, error) {
	acct := &repository.LinkedAccount{
		ID:                uuid.NewString(),
		UserID:            userID,
		Provider:          in.Provider,
		ProviderAccountID: in.Profile.ProviderID,
		Email:             in.Profile.Email,
		DisplayName:       in.Profile.DisplayName,
		PictureURL:        in.Profile.PictureURL,
		Metadata:          in.Profile.Metadata,
		Scope:             in.Scope,
		LastUsedAt:        now,
		CreatedAt:         now,
	}
	if err := s.accounts.Create(ctx, acct); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			// Raced another callback for the same identity, or the user
			// already has this provider.
			return "", ErrAccountAlreadyLinked
		}
		return "", fmt.Errorf("%w: create link: %v", ErrReconcileFailed, err)
	}
	return acct.ID, nil
}

func (s *identityService) createUser(ctx context.Context, in ReconcileInput, now time.Time) (*repository.User, error) {
	username, err := s.deriveUsername(ctx, in.Profile, in.Provider)
	if err != nil {
		return nil, fmt.Errorf("%w: derive username: %v", ErrReconcileFailed, err)
	}

	email := in.Profile.Email
	if email == "" {
		// Providers that return no address still need a unique, obviously
		// synthetic one so the user row satisfies the email constraint.
		email = placeholderEmail(username, in.Provider)
	}

	user := &repository.User{
		ID:        uuid.NewString(),
		Email:     email,
		Username:  username,
		Role:      "user",
		CreatedAt: now,
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			// Lost a race on email or username. One random retry is enough:
			// the suffix space makes a second collision implausible.
			suffix, rerr := vault.RandomToken(4)
			if rerr != nil {
				return nil, fmt.Errorf("%w: %v", ErrReconcileFailed, rerr)
			}
			user.Username = username + sanitizeUsername(suffix)
			if in.Profile.Email == "" {
				user.Email = placeholderEmail(user.Username, in.Provider)
			}
			if err := s.users.Create(ctx, user); err != nil {
				return nil, fmt.Errorf("%w: create user: %v", ErrReconcileFailed, err)
			}
			return user, nil
		}
		return nil, fmt.Errorf("%w: create user: %v", ErrReconcileFailed, err)
	}
	return user, nil
}

// deriveUsername builds a unique handle from whatever the profile offers:
// display name first, then the email local part, then the raw provider id.
// The result is lowercase alphanumeric, at least 3 characters, deduplicated
// with a numeric suffix.
func (s *identityService) deriveUsername(ctx context.Context, p *oauth.Profile, provider string) (string, error) {
	base := sanitizeUsername(p.DisplayName)
	if base == "" {
		if at := strings.IndexByte(p.Email, '@'); at > 0 {
			base = sanitizeUsername(p.Email[:at])
		}
	}
	if base == "" {
		base = sanitizeUsername(provider + p.ProviderID)
	}
	if len(base) < 3 {
		base += "roaster"
	}
	if len(base) > 30 {
		base = base[:30]
	}

	candidate := base
	for i := 2; ; i++ {
		_, err := s.users.GetByUsername(ctx, candidate)
		if errors.Is(err, repository.ErrNotFound) {
			return candidate, nil
		}
		if err != nil {
			return "", err
		}
		candidate = fmt.Sprintf("%s%d", base, i)
		if i > 50 {
			// Pathologically popular name; fall back to randomness.
			suffix, err := vault.RandomToken(4)
			if err != nil {
				return "", err
			}
			return base + sanitizeUsername(suffix), nil
		}
	}
}

func sanitizeUsername(s string) string {
	return strings.Map(keepAlnum, strings.ToLower(s))
}

func keepAlnum(r rune) rune {
	if r >= 'a' && r <= 'z' || r >= '0' && r <= '9' {
		return r
	}
	return -1
}

func placeholderEmail(username, provider string) string {
	return fmt.Sprintf("%s@%s.noemail.roastery.local", username, provider)
}
