package pg

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/beanfolio/roastery/internal/domain/repository"
)

type linkedAccountRepo struct {
	pool *pgxpool.Pool
}

const accountColumns = `id, user_id, provider, provider_account_id, email, display_name,
	picture_url, metadata, scope, last_used_at, created_at`

func scanAccount(row pgx.Row) (*repository.LinkedAccount, error) {
	var a repository.LinkedAccount
	var email, displayName, pictureURL *string
	err := row.Scan(
		&a.ID, &a.UserID, &a.Provider, &a.ProviderAccountID,
		&email, &displayName, &pictureURL,
		&a.Metadata, &a.Scope, &a.LastUsedAt, &a.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	a.Email = deref(email)
	a.DisplayName = deref(displayName)
	a.PictureURL = deref(pictureURL)
	return &a, nil
}

func (r *linkedAccountRepo) GetByProviderAccount(ctx context.Context, provider, providerAccountID string) (*repository.LinkedAccount, error) {
	return scanAccount(r.pool.QueryRow(ctx,
		`SELECT `+accountColumns+` FROM linked_account
		 WHERE provider = $1 AND provider_account_id = $2`,
		provider, providerAccountID))
}

func (r *linkedAccountRepo) ListByUser(ctx context.Context, userID string) ([]repository.LinkedAccount, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+accountColumns+` FROM linked_account
		 WHERE user_id = $1 ORDER BY created_at`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []repository.LinkedAccount
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *a)
	}
	return out, rows.Err()
}

func (r *linkedAccountRepo) CountByUser(ctx context.Context, userID string) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM linked_account WHERE user_id = $1`, userID).Scan(&n)
	return n, err
}

func (r *linkedAccountRepo) Create(ctx context.Context, a *repository.LinkedAccount) error {
	meta := a.Metadata
	if meta == nil {
		meta = map[string]any{}
	}
	scope := a.Scope
	if scope == nil {
		scope = []string{}
	}
	_, err := r.pool.Exec(ctx, `
		INSERT INTO linked_account
			(id, user_id, provider, provider_account_id, email, display_name,
			 picture_url, metadata, scope, last_used_at, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`,
		a.ID, a.UserID, a.Provider, a.ProviderAccountID,
		nullIfEmpty(a.Email), nullIfEmpty(a.DisplayName), nullIfEmpty(a.PictureURL),
		meta, scope, a.LastUsedAt, a.CreatedAt,
	)
	return mapErr(err)
}

func (r *linkedAccountRepo) Touch(ctx context.Context, id string, at time.Time) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE linked_account SET last_used_at = $2 WHERE id = $1`, id, at)
	return err
}

func (r *linkedAccountRepo) Delete(ctx context.Context, userID, provider string) error {
	tag, err := r.pool.Exec(ctx,
		`DELETE FROM linked_account WHERE user_id = $1 AND provider = $2`,
		userID, provider)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}
