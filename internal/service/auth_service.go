// Package service holds the session orchestrator: the one place that
// composes credential verification, token issuance and the refresh-token
// store into the login/register/refresh/logout lifecycle.
package service

import (
	"context"
	"errors"
	"log"
	"strings"
	"time"

	"github.com/coachkit/trainer-platform/internal/auth"
	"github.com/coachkit/trainer-platform/internal/model"
	"github.com/coachkit/trainer-platform/internal/queue"
	"github.com/coachkit/trainer-platform/internal/repository"
)

// Error taxonomy surfaced at the service boundary. Handlers map these to
// HTTP statuses; messages in Result stay generic to avoid account or token
// enumeration.
var (
	ErrInvalidCredentials  = errors.New("invalid credentials")
	ErrEmailInUse          = errors.New("email already in use")
	ErrInvalidRefreshToken = errors.New("invalid refresh token")
	ErrUserNotFound        = errors.New("user not found")
	ErrTenantNotFound      = errors.New("tenant not found")
	ErrInternal            = errors.New("internal error")
)

// UserStore is the narrow user collaborator the orchestrator consumes.
// Lookups are scoped to active users.
type UserStore interface {
	FindByEmail(ctx context.Context, email string) (*model.User, error)
	FindByID(ctx context.Context, id string) (*model.User, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	PasswordHash(ctx context.Context, userID string) (string, error)
	TouchLastLogin(ctx context.Context, userID string) error
}

// TenantStore is the narrow tenant collaborator.
type TenantStore interface {
	FindByID(ctx context.Context, id string) (*model.Tenant, error)
	CreateWithUser(ctx context.Context, nt model.NewTenant, nu model.NewUser) (*model.Tenant, *model.User, error)
}

// TokenStore persists hashed refresh tokens.
type TokenStore interface {
	Create(ctx context.Context, userID string, ttlDays int) (string, error)
	Consume(ctx context.Context, raw string) (string, error)
	Revoke(ctx context.Context, raw string) error
	RevokeAllForUser(ctx context.Context, userID string) error
	SweepExpired(ctx context.Context) (int64, error)
}

// EventPublisher fans session lifecycle events out to the message broker.
// Publishing is best-effort; failures never fail the calling operation.
type EventPublisher interface {
	PublishSessionEvent(ctx context.Context, ev queue.SessionEvent) error
}

// Result is the tagged payload every public operation returns. On failure
// only Success and Message are set, and Message is safe to show a caller.
type Result struct {
	Success      bool          `json:"success"`
	User         *model.User   `json:"user,omitempty"`
	Tenant       *model.Tenant `json:"tenant,omitempty"`
	AccessToken  string        `json:"token,omitempty"`
	RefreshToken string        `json:"refreshToken,omitempty"`
	Message      string        `json:"message,omitempty"`
}

// RegisterInput carries a signup request: the first user of a new tenant.
type RegisterInput struct {
	Email      string
	Password   string
	FirstName  string
	LastName   string
	TenantName string
	Role       model.Role
}

// AuthService orchestrates the session lifecycle. It holds no mutable state;
// everything is injected at startup.
type AuthService struct {
	users          UserStore
	tenants        TenantStore
	tokens         TokenStore
	issuer         *auth.TokenIssuer
	events         EventPublisher
	refreshTTLDays int
	bcryptCost     int
}

// NewAuthService wires the orchestrator. events may be nil to disable
// publishing; zero ttl/cost values fall back to 7 days and bcrypt cost 12.
func NewAuthService(users UserStore, tenants TenantStore, tokens TokenStore,
	issuer *auth.TokenIssuer, events EventPublisher, refreshTTLDays, bcryptCost int) *AuthService {
	if refreshTTLDays <= 0 {
		refreshTTLDays = 7
	}
	if bcryptCost <= 0 {
		bcryptCost = auth.DefaultBcryptCost
	}
	return &AuthService{
		users:          users,
		tenants:        tenants,
		tokens:         tokens,
		issuer:         issuer,
		events:         events,
		refreshTTLDays: refreshTTLDays,
		bcryptCost:     bcryptCost,
	}
}

func failure(err error, msg string) (Result, error) {
	return Result{Success: false, Message: msg}, err
}

// internalFailure logs the real cause and surfaces a non-leaking message.
func internalFailure(op string, err error) (Result, error) {
	log.Printf("auth-service: %s failed: %v", op, err)
	return Result{Success: false, Message: "internal error"}, ErrInternal
}

// Register creates a tenant and its first user atomically, then behaves like
// Login: the caller ends up with a fresh token pair.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (Result, error) {
	email := strings.ToLower(strings.TrimSpace(in.Email))

	// Fast-path UX check; the unique key on users.email is the authority.
	exists, err := s.users.ExistsByEmail(ctx, email)
	if err != nil {
		return internalFailure("register email check", err)
	}
	if exists {
		return failure(ErrEmailInUse, "email already in use")
	}

	hash, err := auth.HashPassword(in.Password, s.bcryptCost)
	if err != nil {
		return internalFailure("register password hash", err)
	}

	role := in.Role
	if !role.Valid() {
		role = model.RoleTrainer
	}

	tenant, user, err := s.tenants.CreateWithUser(ctx,
		model.NewTenant{Name: in.TenantName, Email: email, PlanType: model.PlanBasic},
		model.NewUser{Email: email, PasswordHash: hash, FirstName: in.FirstName, LastName: in.LastName, Role: role})
	if err != nil {
		if errors.Is(err, repository.ErrEmailExists) {
			// Lost the race between check and insert.
			return failure(ErrEmailInUse, "email already in use")
		}
		return internalFailure("register create tenant+user", err)
	}

	res, err := s.issueSession(ctx, user, tenant)
	if err != nil {
		return res, err
	}
	s.publish(ctx, queue.EventUserRegistered, user)
	return res, nil
}

// Login verifies credentials and issues a fresh token pair. Unknown email
// and wrong password produce the same generic failure.
func (s *AuthService) Login(ctx context.Context, email, password string) (Result, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return failure(ErrInvalidCredentials, "invalid credentials")
		}
		return internalFailure("login user lookup", err)
	}

	// The hash is never part of the user projection; fetch it separately.
	hash, err := s.users.PasswordHash(ctx, user.ID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return failure(ErrInvalidCredentials, "invalid credentials")
		}
		return internalFailure("login hash lookup", err)
	}
	if !auth.VerifyPassword(hash, password) {
		return failure(ErrInvalidCredentials, "invalid credentials")
	}

	tenant, err := s.tenants.FindByID(ctx, user.TenantID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return failure(ErrTenantNotFound, "tenant not found")
		}
		return internalFailure("login tenant lookup", err)
	}

	if err := s.users.TouchLastLogin(ctx, user.ID); err != nil {
		return internalFailure("login last-login touch", err)
	}

	res, err := s.issueSession(ctx, user, tenant)
	if err != nil {
		return res, err
	}
	s.publish(ctx, queue.EventUserLoggedIn, user)
	return res, nil
}

// Refresh rotates a refresh token: the presented secret is atomically
// consumed and a brand-new pair is issued. A consumed, expired, revoked or
// unknown secret all fail the same way.
func (s *AuthService) Refresh(ctx context.Context, rawRefresh string) (Result, error) {
	userID, err := s.tokens.Consume(ctx, rawRefresh)
	if err != nil {
		if errors.Is(err, repository.ErrTokenNotFound) {
			return failure(ErrInvalidRefreshToken, "invalid refresh token")
		}
		return internalFailure("refresh consume", err)
	}

	// Re-check the owner; the consumed token's snapshot is not trusted.
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return failure(ErrUserNotFound, "user not found")
		}
		return internalFailure("refresh user lookup", err)
	}

	accessToken, _, err := s.issuer.IssueAccess(*user, user.TenantID)
	if err != nil {
		return internalFailure("refresh access issue", err)
	}
	newRefresh, err := s.tokens.Create(ctx, user.ID, s.refreshTTLDays)
	if err != nil {
		return internalFailure("refresh token create", err)
	}
	return Result{Success: true, AccessToken: accessToken, RefreshToken: newRefresh}, nil
}

// Logout revokes one refresh token. It is idempotent from the caller's view:
// an already-invalid token is a no-op, and storage faults are only logged.
func (s *AuthService) Logout(ctx context.Context, rawRefresh string) {
	if err := s.tokens.Revoke(ctx, rawRefresh); err != nil && !errors.Is(err, repository.ErrTokenNotFound) {
		log.Printf("auth-service: logout revoke failed: %v", err)
	}
}

// LogoutAll revokes every refresh token the user owns.
func (s *AuthService) LogoutAll(ctx context.Context, userID string) error {
	if err := s.tokens.RevokeAllForUser(ctx, userID); err != nil {
		log.Printf("auth-service: logout-all failed: %v", err)
		return ErrInternal
	}
	if u, err := s.users.FindByID(ctx, userID); err == nil {
		s.publish(ctx, queue.EventSessionsRevoked, u)
	}
	return nil
}

// SweepExpired removes refresh-token rows that can never validate again.
func (s *AuthService) SweepExpired(ctx context.Context) (int64, error) {
	n, err := s.tokens.SweepExpired(ctx)
	if err != nil {
		log.Printf("auth-service: sweep failed: %v", err)
		return 0, ErrInternal
	}
	return n, nil
}

// issueSession mints the access token + refresh secret pair for a verified
// user and assembles the success payload.
func (s *AuthService) issueSession(ctx context.Context, user *model.User, tenant *model.Tenant) (Result, error) {
	accessToken, _, err := s.issuer.IssueAccess(*user, tenant.ID)
	if err != nil {
		return internalFailure("access token issue", err)
	}
	refreshToken, err := s.tokens.Create(ctx, user.ID, s.refreshTTLDays)
	if err != nil {
		return internalFailure("refresh token create", err)
	}
	return Result{
		Success:      true,
		User:         user,
		Tenant:       tenant,
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
	}, nil
}

func (s *AuthService) publish(ctx context.Context, eventType string, u *model.User) {
	if s.events == nil {
		return
	}
	ev := queue.SessionEvent{
		Type:       eventType,
		UserID:     u.ID,
		TenantID:   u.TenantID,
		Email:      u.Email,
		OccurredAt: time.Now().UTC().Format(time.RFC3339),
	}
	if err := s.events.PublishSessionEvent(ctx, ev); err != nil {
		log.Printf("auth-service: publish %s failed: %v", eventType, err)
	}
}
