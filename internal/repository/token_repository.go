package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/coachkit/trainer-platform/internal/auth"
	"github.com/coachkit/trainer-platform/internal/model"
)

// TokenRepo persists refresh tokens. Only the SHA-256 hash of a secret is
// stored; every lookup hashes its input first. The token_hash column carries
// a unique index so verification stays O(log n).
type TokenRepo struct{ DB *sql.DB }

func NewTokenRepo(db *sql.DB) *TokenRepo { return &TokenRepo{DB: db} }

// Create mints a new refresh secret for a user, stores its hash with the
// given lifetime and returns the raw secret. This is the only place the raw
// value exists server-side, and it is gone once returned.
func (r *TokenRepo) Create(ctx context.Context, userID string, ttlDays int) (string, error) {
	raw, err := auth.NewRefreshSecret()
	if err != nil {
		return "", err
	}
	expires := time.Now().UTC().AddDate(0, 0, ttlDays)
	_, err = r.DB.ExecContext(ctx,
		"INSERT INTO refresh_tokens (id, user_id, token_hash, expires_at) VALUES (?,?,?,?)",
		uuid.NewString(), userID, auth.HashRefreshSecret(raw), expires)
	if err != nil {
		return "", err
	}
	return raw, nil
}

// Verify returns the active record matching a raw secret. Absent, expired and
// revoked tokens all report ErrTokenNotFound.
func (r *TokenRepo) Verify(ctx context.Context, raw string) (*model.RefreshToken, error) {
	var t model.RefreshToken
	err := r.DB.QueryRowContext(ctx,
		`SELECT id, user_id, token_hash, expires_at, revoked, created_at
		 FROM refresh_tokens
		 WHERE token_hash = ? AND revoked = 0 AND expires_at > UTC_TIMESTAMP()`,
		auth.HashRefreshSecret(raw)).
		Scan(&t.ID, &t.UserID, &t.TokenHash, &t.ExpiresAt, &t.Revoked, &t.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTokenNotFound
		}
		return nil, err
	}
	return &t, nil
}

// Consume atomically claims a token for rotation: a single conditional UPDATE
// marks the row revoked only while it is still valid. Under concurrent use of
// the same secret at most one caller wins; the rest get ErrTokenNotFound.
// Returns the owning user id.
func (r *TokenRepo) Consume(ctx context.Context, raw string) (string, error) {
	hash := auth.HashRefreshSecret(raw)
	res, err := r.DB.ExecContext(ctx,
		"UPDATE refresh_tokens SET revoked = 1 WHERE token_hash = ? AND revoked = 0 AND expires_at > UTC_TIMESTAMP()",
		hash)
	if err != nil {
		return "", err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return "", err
	}
	if n == 0 {
		return "", ErrTokenNotFound
	}
	var userID string
	if err := r.DB.QueryRowContext(ctx,
		"SELECT user_id FROM refresh_tokens WHERE token_hash = ? LIMIT 1", hash).Scan(&userID); err != nil {
		return "", err
	}
	return userID, nil
}

// Revoke marks the matching active row revoked. Revoking an already-revoked
// (or unknown, or expired) secret reports ErrTokenNotFound; callers that want
// idempotent logout swallow that.
func (r *TokenRepo) Revoke(ctx context.Context, raw string) error {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE refresh_tokens SET revoked = 1 WHERE token_hash = ? AND revoked = 0",
		auth.HashRefreshSecret(raw))
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrTokenNotFound
	}
	return nil
}

// RevokeAllForUser revokes every active token a user owns ("logout
// everywhere").
func (r *TokenRepo) RevokeAllForUser(ctx context.Context, userID string) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE refresh_tokens SET revoked = 1 WHERE user_id = ? AND revoked = 0", userID)
	return err
}

// SweepExpired deletes rows that can never validate again. It only removes
// already-invalid rows, so it is safe to run alongside everything else.
func (r *TokenRepo) SweepExpired(ctx context.Context) (int64, error) {
	res, err := r.DB.ExecContext(ctx,
		"DELETE FROM refresh_tokens WHERE expires_at < UTC_TIMESTAMP() OR revoked = 1")
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
