package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/google/uuid"

	"github.com/coachkit/trainer-platform/internal/model"
)

// TenantRepo persists tenants and owns the atomic tenant+first-user signup.
type TenantRepo struct{ DB *sql.DB }

func NewTenantRepo(db *sql.DB) *TenantRepo { return &TenantRepo{DB: db} }

const tenantColumns = "id, name, email, phone, plan_type, is_active, created_at, updated_at"

func scanTenant(row *sql.Row) (*model.Tenant, error) {
	var (
		t     model.Tenant
		phone sql.NullString
	)
	err := row.Scan(&t.ID, &t.Name, &t.Email, &phone, &t.PlanType,
		&t.IsActive, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if phone.Valid {
		p := phone.String
		t.Phone = &p
	}
	return &t, nil
}

// FindByID returns the active tenant with the given id.
func (r *TenantRepo) FindByID(ctx context.Context, id string) (*model.Tenant, error) {
	return scanTenant(r.DB.QueryRowContext(ctx,
		"SELECT "+tenantColumns+" FROM tenants WHERE id = ? AND is_active = 1 LIMIT 1", id))
}

// Create inserts a tenant and returns the stored row.
func (r *TenantRepo) Create(ctx context.Context, nt model.NewTenant) (*model.Tenant, error) {
	id := uuid.NewString()
	_, err := r.DB.ExecContext(ctx,
		"INSERT INTO tenants (id, name, email, phone, plan_type) VALUES (?,?,?,?,?)",
		id, nt.Name, strings.ToLower(strings.TrimSpace(nt.Email)), nt.Phone, nt.PlanType)
	if err != nil {
		return nil, err
	}
	return scanTenant(r.DB.QueryRowContext(ctx,
		"SELECT "+tenantColumns+" FROM tenants WHERE id = ? LIMIT 1", id))
}

// CreateWithUser inserts a tenant and its first user in one transaction.
// Either both rows exist afterwards or neither does. A duplicate email on
// the user insert surfaces as ErrEmailExists after rollback.
func (r *TenantRepo) CreateWithUser(ctx context.Context, nt model.NewTenant, nu model.NewUser) (*model.Tenant, *model.User, error) {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, nil, err
	}
	defer func() { _ = tx.Rollback() }()

	tenantID := uuid.NewString()
	if _, err := tx.ExecContext(ctx,
		"INSERT INTO tenants (id, name, email, phone, plan_type) VALUES (?,?,?,?,?)",
		tenantID, nt.Name, strings.ToLower(strings.TrimSpace(nt.Email)), nt.Phone, nt.PlanType); err != nil {
		return nil, nil, err
	}

	userID := uuid.NewString()
	if _, err := tx.ExecContext(ctx,
		"INSERT INTO users (id, tenant_id, email, password_hash, first_name, last_name, role) VALUES (?,?,?,?,?,?,?)",
		userID, tenantID, strings.ToLower(strings.TrimSpace(nu.Email)), nu.PasswordHash,
		nu.FirstName, nu.LastName, nu.Role); err != nil {
		if isDuplicateKey(err) {
			return nil, nil, ErrEmailExists
		}
		return nil, nil, err
	}

	tenant, err := scanTenant(tx.QueryRowContext(ctx,
		"SELECT "+tenantColumns+" FROM tenants WHERE id = ? LIMIT 1", tenantID))
	if err != nil {
		return nil, nil, err
	}
	user, err := scanUser(tx.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE id = ? LIMIT 1", userID))
	if err != nil {
		return nil, nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, nil, err
	}
	return tenant, user, nil
}
