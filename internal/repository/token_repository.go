package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/sportbase/backend/internal/auth"
	"github.com/sportbase/backend/internal/model"
)

// TokenRepo persists refresh token records. Revocation is a soft
// flag (revoked_at); rows are never deleted so replays of rotated
// tokens stay detectable.
type TokenRepo struct{ DB *sql.DB }

func NewTokenRepo(db *sql.DB) *TokenRepo { return &TokenRepo{DB: db} }

// Create inserts a refresh token record.
func (r *TokenRepo) Create(ctx context.Context, t *model.RefreshToken) error {
	_, err := r.DB.ExecContext(ctx,
		"INSERT INTO refresh_tokens (id, user_id, token_id, secret_hash, created_at, expires_at) VALUES (?,?,?,?,?,?)",
		t.ID, t.UserID, t.TokenID, t.SecretHash, t.CreatedAt, t.ExpiresAt)
	return err
}

// FindByTokenID returns the record for an externally visible token
// id, including revoked and expired rows; state checks belong to the
// coordinator.
func (r *TokenRepo) FindByTokenID(ctx context.Context, tokenID string) (*model.RefreshToken, error) {
	var (
		t         model.RefreshToken
		revokedAt sql.NullTime
	)
	err := r.DB.QueryRowContext(ctx,
		"SELECT id,user_id,token_id,secret_hash,created_at,expires_at,revoked_at FROM refresh_tokens WHERE token_id=? LIMIT 1",
		tokenID).Scan(&t.ID, &t.UserID, &t.TokenID, &t.SecretHash, &t.CreatedAt, &t.ExpiresAt, &revokedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, auth.ErrNotFound
		}
		return nil, err
	}
	if revokedAt.Valid {
		t.RevokedAt = &revokedAt.Time
	}
	return &t, nil
}

// Revoke marks one record as revoked. Already-revoked rows keep
// their original revocation time, making the operation idempotent.
func (r *TokenRepo) Revoke(ctx context.Context, id string, at time.Time) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE refresh_tokens SET revoked_at=? WHERE id=? AND revoked_at IS NULL",
		at, id)
	return err
}

// RevokeAllForUser revokes all of the user's active tokens in one
// statement.
func (r *TokenRepo) RevokeAllForUser(ctx context.Context, userID string, at time.Time) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE refresh_tokens SET revoked_at=? WHERE user_id=? AND revoked_at IS NULL AND expires_at>?",
		at, userID, at)
	return err
}
