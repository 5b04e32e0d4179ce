package oauth

import (
	"context"
	"errors"
	"fmt"

	"github.com/beanfolio/roastery/internal/audit"
	"github.com/beanfolio/roastery/internal/domain/repository"
	"github.com/beanfolio/roastery/internal/observability/logger"
)

// AccountsDeps contains dependencies for the accounts service.
type AccountsDeps struct {
	Users    repository.UserRepository
	Accounts repository.LinkedAccountRepository
	Tokens   repository.TokenRepository
	Audit    *audit.Recorder
}

type accountsService struct {
	users    repository.UserRepository
	accounts repository.LinkedAccountRepository
	tokens   repository.TokenRepository
	audit    *audit.Recorder
}

// NewAccountsService creates an AccountsService.
func NewAccountsService(d AccountsDeps) AccountsService {
	return &accountsService{
		users:    d.Users,
		accounts: d.Accounts,
		tokens:   d.Tokens,
		audit:    d.Audit,
	}
}

func (s *accountsService) List(ctx context.Context, userID string) ([]AccountView, error) {
	accounts, err := s.accounts.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list linked accounts: %w", err)
	}
	out := make([]AccountView, 0, len(accounts))
	for _, a := range accounts {
		out = append(out, AccountView{
			Provider:    a.Provider,
			Email:       a.Email,
			DisplayName: a.DisplayName,
			PictureURL:  a.PictureURL,
			Scopes:      a.Scope,
			LinkedAt:    a.CreatedAt,
			LastUsedAt:  a.LastUsedAt,
		})
	}
	return out, nil
}

func (s *accountsService) Unlink(ctx context.Context, userID, provider string) error {
	log := logger.From(ctx).With(logger.Layer("service"), logger.Component("oauth.accounts"))

	accounts, err := s.accounts.ListByUser(ctx, userID)
	if err != nil {
		return fmt.Errorf("list linked accounts: %w", err)
	}
	var target *repository.LinkedAccount
	for i := range accounts {
		if accounts[i].Provider == provider {
			target = &accounts[i]
			break
		}
	}
	if target == nil {
		return ErrUnlinkNotLinked
	}

	if len(accounts) == 1 {
		user, err := s.users.GetByID(ctx, userID)
		if err != nil {
			return fmt.Errorf("load user: %w", err)
		}
		if !user.HasPassword() {
			return ErrUnlinkOnlyAuthMethod
		}
	}

	// Credential first: an orphaned cipher is worse than an orphaned link.
	if err := s.tokens.Delete(ctx, target.ID); err != nil {
		log.Warn("token delete failed", logger.AccountID(target.ID), logger.Err(err))
	}
	if err := s.accounts.Delete(ctx, userID, provider); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrUnlinkNotLinked
		}
		return fmt.Errorf("delete link: %w", err)
	}

	s.audit.Record(ctx, "oauth.unlink", userID, provider, map[string]any{
		"account_id": target.ID,
	})
	log.Info("provider unlinked", logger.UserID(userID), logger.Provider(provider))
	return nil
}
