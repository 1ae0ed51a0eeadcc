package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"

	"github.com/desertthunder/melon/internal/models"
)

// Fixed kv_store keys of the persisted credential.
const (
	KeyAccessToken  = "spotify_token"
	KeyRefreshToken = "spotify_refresh_token"
	KeyExpiresAt    = "spotify_token_expiry"
)

// CredentialRepository stores the single Spotify credential in kv_store.
type CredentialRepository struct {
	db *sql.DB
}

// NewCredentialRepository creates a new CredentialRepository with the given database connection
func NewCredentialRepository(db *sql.DB) *CredentialRepository {
	return &CredentialRepository{db: db}
}

// Get returns the stored credential, or nil when no access token is stored.
func (r *CredentialRepository) Get(ctx context.Context) (*models.Credential, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT key, value FROM kv_store WHERE key IN (?, ?, ?)`,
		KeyAccessToken, KeyRefreshToken, KeyExpiresAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query credential: %w", err)
	}
	defer rows.Close()

	values := make(map[string]string, 3)
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return nil, fmt.Errorf("failed to scan credential: %w", err)
		}
		values[key] = value
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating credential rows: %w", err)
	}

	if values[KeyAccessToken] == "" {
		return nil, nil
	}

	cred := &models.Credential{
		AccessToken:  values[KeyAccessToken],
		RefreshToken: values[KeyRefreshToken],
	}
	if raw := values[KeyExpiresAt]; raw != "" {
		cred.ExpiresAt, err = strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid %s value %q: %w", KeyExpiresAt, raw, err)
		}
	}
	return cred, nil
}

// Set replaces the stored credential. An empty refresh token removes the stored one.
func (r *CredentialRepository) Set(ctx context.Context, cred models.Credential) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	upsert := `
		INSERT INTO kv_store (key, value, updated_at)
		VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`

	if _, err := tx.ExecContext(ctx, upsert, KeyAccessToken, cred.AccessToken); err != nil {
		return fmt.Errorf("failed to store access token: %w", err)
	}
	if _, err := tx.ExecContext(ctx, upsert, KeyExpiresAt, strconv.FormatInt(cred.ExpiresAt, 10)); err != nil {
		return fmt.Errorf("failed to store expiry: %w", err)
	}

	if cred.RefreshToken == "" {
		_, err = tx.ExecContext(ctx, `DELETE FROM kv_store WHERE key = ?`, KeyRefreshToken)
	} else {
		_, err = tx.ExecContext(ctx, upsert, KeyRefreshToken, cred.RefreshToken)
	}
	if err != nil {
		return fmt.Errorf("failed to store refresh token: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit credential: %w", err)
	}
	return nil
}

// Clear removes all three credential keys.
func (r *CredentialRepository) Clear(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM kv_store WHERE key IN (?, ?, ?)`,
		KeyAccessToken, KeyRefreshToken, KeyExpiresAt,
	)
	if err != nil {
		return fmt.Errorf("failed to clear credential: %w", err)
	}
	return nil
}
