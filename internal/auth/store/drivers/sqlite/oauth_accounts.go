package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/presstronic/kalsumed/internal/auth/domain"
)

type oauthAccountsRepo struct {
	db dbtx
}

func (r *oauthAccountsRepo) GetByProviderAccount(
	ctx context.Context,
	provider, providerAccountID string,
) (domain.OAuthAccount, error) {
	var a domain.OAuthAccount
	var expiresAt sql.NullTime
	err := r.db.QueryRowContext(ctx, `
		SELECT id, user_id, provider, provider_account_id,
		       access_token, refresh_token, expires_at, created_at, updated_at
		FROM oauth_accounts
		WHERE provider = ? AND provider_account_id = ?`,
		provider, providerAccountID,
	).Scan(
		&a.ID, &a.UserID, &a.Provider, &a.ProviderAccountID,
		&a.AccessToken, &a.RefreshToken, &expiresAt, &a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		return domain.OAuthAccount{}, mapNotFound(err)
	}
	a.ExpiresAt = nullTimePtr(expiresAt)
	return a, nil
}

func (r *oauthAccountsRepo) CreateOAuthAccount(ctx context.Context, a domain.OAuthAccount) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO oauth_accounts
			(id, user_id, provider, provider_account_id, access_token, refresh_token, expires_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.UserID, a.Provider, a.ProviderAccountID,
		a.AccessToken, a.RefreshToken, ptrNullTime(a.ExpiresAt),
	)
	return mapConstraint(err)
}

func (r *oauthAccountsRepo) ListByUser(ctx context.Context, userID string) ([]domain.OAuthAccount, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, user_id, provider, provider_account_id,
		       access_token, refresh_token, expires_at, created_at, updated_at
		FROM oauth_accounts
		WHERE user_id = ?
		ORDER BY created_at`,
		userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var accounts []domain.OAuthAccount
	for rows.Next() {
		var a domain.OAuthAccount
		var expiresAt sql.NullTime
		if err := rows.Scan(
			&a.ID, &a.UserID, &a.Provider, &a.ProviderAccountID,
			&a.AccessToken, &a.RefreshToken, &expiresAt, &a.CreatedAt, &a.UpdatedAt,
		); err != nil {
			return nil, err
		}
		a.ExpiresAt = nullTimePtr(expiresAt)
		accounts = append(accounts, a)
	}
	return accounts, rows.Err()
}

func nullTimePtr(nt sql.NullTime) *time.Time {
	if !nt.Valid {
		return nil
	}
	t := nt.Time
	return &t
}

func ptrNullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}
