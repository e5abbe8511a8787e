package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/google/uuid"

	"github.com/coachkit/trainer-platform/internal/model"
)

// UserRepo persists users. Lookups are scoped to active users unless stated
// otherwise; the password hash is only reachable through PasswordHash.
type UserRepo struct{ DB *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

const userColumns = "id, tenant_id, email, first_name, last_name, role, is_active, last_login_at, created_at, updated_at"

func scanUser(row *sql.Row) (*model.User, error) {
	var (
		u         model.User
		lastLogin sql.NullTime
	)
	err := row.Scan(&u.ID, &u.TenantID, &u.Email, &u.FirstName, &u.LastName,
		&u.Role, &u.IsActive, &lastLogin, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if lastLogin.Valid {
		t := lastLogin.Time
		u.LastLoginAt = &t
	}
	return &u, nil
}

// FindByEmail returns the active user with the given (normalized) email.
func (r *UserRepo) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	return scanUser(r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE email = ? AND is_active = 1 LIMIT 1", email))
}

// FindByID returns the active user with the given id.
func (r *UserRepo) FindByID(ctx context.Context, id string) (*model.User, error) {
	return scanUser(r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE id = ? AND is_active = 1 LIMIT 1", id))
}

// ExistsByEmail reports whether any user row, active or not, holds the email.
func (r *UserRepo) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	var n int
	err := r.DB.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM users WHERE email = ?", email).Scan(&n)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// PasswordHash returns the stored bcrypt hash for a user. It is the only
// projection that exposes the hash.
func (r *UserRepo) PasswordHash(ctx context.Context, userID string) (string, error) {
	var hash string
	err := r.DB.QueryRowContext(ctx,
		"SELECT password_hash FROM users WHERE id = ?", userID).Scan(&hash)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", ErrNotFound
		}
		return "", err
	}
	return hash, nil
}

// Create inserts a user and returns the stored row. Duplicate emails map to
// ErrEmailExists via the unique key on users.email.
func (r *UserRepo) Create(ctx context.Context, nu model.NewUser) (*model.User, error) {
	id := uuid.NewString()
	_, err := r.DB.ExecContext(ctx,
		"INSERT INTO users (id, tenant_id, email, password_hash, first_name, last_name, role) VALUES (?,?,?,?,?,?,?)",
		id, nu.TenantID, strings.ToLower(strings.TrimSpace(nu.Email)), nu.PasswordHash,
		nu.FirstName, nu.LastName, nu.Role)
	if err != nil {
		if isDuplicateKey(err) {
			return nil, ErrEmailExists
		}
		return nil, err
	}
	return scanUser(r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE id = ? LIMIT 1", id))
}

// TouchLastLogin stamps last_login_at with the current time.
func (r *UserRepo) TouchLastLogin(ctx context.Context, userID string) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE users SET last_login_at = UTC_TIMESTAMP() WHERE id = ?", userID)
	return err
}

// isDuplicateKey matches MySQL error 1062 (duplicate entry for a unique key).
func isDuplicateKey(err error) bool {
	return err != nil && strings.Contains(strings.ToLower(err.Error()), "1062")
}
