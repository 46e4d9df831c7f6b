package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// AccountRepository handles Spotify account database operations.
type AccountRepository struct {
	pool *pgxpool.Pool
}

const accountColumns = `id, user_id, provider_id, display_name, email,
	access_token, refresh_token, token_expires_at, created_at, updated_at`

// GetByUser retrieves the account linked to a user.
func (r *AccountRepository) GetByUser(ctx context.Context, userID uuid.UUID) (*Account, error) {
	query := `SELECT ` + accountColumns + ` FROM spotify_accounts WHERE user_id = $1`

	var a Account
	err := r.pool.QueryRow(ctx, query, userID).Scan(
		&a.ID,
		&a.UserID,
		&a.ProviderID,
		&a.DisplayName,
		&a.Email,
		&a.AccessToken,
		&a.RefreshToken,
		&a.TokenExpiresAt,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying account: %w", err)
	}
	return &a, nil
}

// Upsert creates the account for a provider id or replaces its profile
// and tokens. Called on every login.
func (r *AccountRepository) Upsert(ctx context.Context, a *Account) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	query := `
		INSERT INTO spotify_accounts (id, user_id, provider_id, display_name, email,
			access_token, refresh_token, token_expires_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW(), NOW())
		ON CONFLICT (provider_id) DO UPDATE SET
			user_id = EXCLUDED.user_id,
			display_name = EXCLUDED.display_name,
			email = EXCLUDED.email,
			access_token = EXCLUDED.access_token,
			refresh_token = EXCLUDED.refresh_token,
			token_expires_at = EXCLUDED.token_expires_at,
			updated_at = NOW()
		RETURNING id, created_at, updated_at
	`
	err := r.pool.QueryRow(ctx, query,
		a.ID,
		a.UserID,
		a.ProviderID,
		a.DisplayName,
		a.Email,
		a.AccessToken,
		a.RefreshToken,
		a.TokenExpiresAt,
	).Scan(&a.ID, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return fmt.Errorf("upserting account: %w", err)
	}
	return nil
}

// UpdateAccessToken stores a refreshed access token. No other token field is touched.
func (r *AccountRepository) UpdateAccessToken(ctx context.Context, id uuid.UUID, token string, expiresAt time.Time) error {
	query := `
		UPDATE spotify_accounts
		SET access_token = $2, token_expires_at = $3, updated_at = NOW()
		WHERE id = $1
	`
	result, err := r.pool.Exec(ctx, query, id, token, expiresAt)
	if err != nil {
		return fmt.Errorf("updating access token: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
