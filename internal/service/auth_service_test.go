package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/coachkit/trainer-platform/internal/auth"
	"github.com/coachkit/trainer-platform/internal/model"
	"github.com/coachkit/trainer-platform/internal/queue"
	"github.com/coachkit/trainer-platform/internal/repository"
)

// ----- testify mocks for the orchestrator's collaborators -----

type mockUsers struct{ mock.Mock }

func (m *mockUsers) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	args := m.Called(ctx, email)
	u, _ := args.Get(0).(*model.User)
	return u, args.Error(1)
}
func (m *mockUsers) FindByID(ctx context.Context, id string) (*model.User, error) {
	args := m.Called(ctx, id)
	u, _ := args.Get(0).(*model.User)
	return u, args.Error(1)
}
func (m *mockUsers) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	args := m.Called(ctx, email)
	return args.Bool(0), args.Error(1)
}
func (m *mockUsers) PasswordHash(ctx context.Context, userID string) (string, error) {
	args := m.Called(ctx, userID)
	return args.String(0), args.Error(1)
}
func (m *mockUsers) TouchLastLogin(ctx context.Context, userID string) error {
	return m.Called(ctx, userID).Error(0)
}

type mockTenants struct{ mock.Mock }

func (m *mockTenants) FindByID(ctx context.Context, id string) (*model.Tenant, error) {
	args := m.Called(ctx, id)
	t, _ := args.Get(0).(*model.Tenant)
	return t, args.Error(1)
}
func (m *mockTenants) CreateWithUser(ctx context.Context, nt model.NewTenant, nu model.NewUser) (*model.Tenant, *model.User, error) {
	args := m.Called(ctx, nt, nu)
	t, _ := args.Get(0).(*model.Tenant)
	u, _ := args.Get(1).(*model.User)
	return t, u, args.Error(2)
}

type mockTokens struct{ mock.Mock }

func (m *mockTokens) Create(ctx context.Context, userID string, ttlDays int) (string, error) {
	args := m.Called(ctx, userID, ttlDays)
	return args.String(0), args.Error(1)
}
func (m *mockTokens) Consume(ctx context.Context, raw string) (string, error) {
	args := m.Called(ctx, raw)
	return args.String(0), args.Error(1)
}
func (m *mockTokens) Revoke(ctx context.Context, raw string) error {
	return m.Called(ctx, raw).Error(0)
}
func (m *mockTokens) RevokeAllForUser(ctx context.Context, userID string) error {
	return m.Called(ctx, userID).Error(0)
}
func (m *mockTokens) SweepExpired(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

type mockEvents struct{ mock.Mock }

func (m *mockEvents) PublishSessionEvent(ctx context.Context, ev queue.SessionEvent) error {
	return m.Called(ctx, ev).Error(0)
}

// ----- fixtures -----

func activeUser() *model.User {
	return &model.User{
		ID: "u-1", TenantID: "t-1", Email: "a@b.com",
		FirstName: "Ana", LastName: "Silva",
		Role: model.RoleTrainer, IsActive: true,
	}
}

func activeTenant() *model.Tenant {
	return &model.Tenant{
		ID: "t-1", Name: "Gym A", Email: "a@b.com",
		PlanType: model.PlanBasic, IsActive: true,
	}
}

func newTestService(users *mockUsers, tenants *mockTenants, tokens *mockTokens, events EventPublisher) (*AuthService, *auth.TokenIssuer) {
	issuer := auth.NewTokenIssuer("test-secret", time.Hour)
	// MinCost keeps bcrypt fast in tests.
	return NewAuthService(users, tenants, tokens, issuer, events, 7, bcrypt.MinCost), issuer
}

// ----- login -----

func TestLoginSuccess(t *testing.T) {
	users, tenants, tokens := new(mockUsers), new(mockTenants), new(mockTokens)
	svc, issuer := newTestService(users, tenants, tokens, nil)

	hash, err := auth.HashPassword("secret123", bcrypt.MinCost)
	require.NoError(t, err)

	users.On("FindByEmail", mock.Anything, "a@b.com").Return(activeUser(), nil)
	users.On("PasswordHash", mock.Anything, "u-1").Return(hash, nil)
	tenants.On("FindByID", mock.Anything, "t-1").Return(activeTenant(), nil)
	users.On("TouchLastLogin", mock.Anything, "u-1").Return(nil)
	tokens.On("Create", mock.Anything, "u-1", 7).Return("raw-refresh", nil)

	res, err := svc.Login(context.Background(), " A@B.com ", "secret123")
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, "u-1", res.User.ID)
	assert.Equal(t, "Gym A", res.Tenant.Name)
	assert.Equal(t, "raw-refresh", res.RefreshToken)

	// The access token embeds the tenant of the user that logged in.
	claims, err := issuer.VerifyAccess(res.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "t-1", claims.TenantID)
	assert.Equal(t, "a@b.com", claims.User.Email)

	users.AssertExpectations(t)
	tokens.AssertExpectations(t)
}

func TestLoginWrongPasswordAndUnknownEmailLookAlike(t *testing.T) {
	users, tenants, tokens := new(mockUsers), new(mockTenants), new(mockTokens)
	svc, _ := newTestService(users, tenants, tokens, nil)

	otherHash, err := auth.HashPassword("not-the-password", bcrypt.MinCost)
	require.NoError(t, err)

	users.On("FindByEmail", mock.Anything, "a@b.com").Return(activeUser(), nil)
	users.On("PasswordHash", mock.Anything, "u-1").Return(otherHash, nil)
	users.On("FindByEmail", mock.Anything, "ghost@b.com").Return(nil, repository.ErrNotFound)

	wrongPass, err1 := svc.Login(context.Background(), "a@b.com", "secret123")
	unknown, err2 := svc.Login(context.Background(), "ghost@b.com", "secret123")

	// Same sentinel, same message: no account enumeration oracle.
	assert.ErrorIs(t, err1, ErrInvalidCredentials)
	assert.ErrorIs(t, err2, ErrInvalidCredentials)
	assert.Equal(t, wrongPass.Message, unknown.Message)
	assert.Nil(t, wrongPass.User)
	assert.Nil(t, unknown.User)
	tokens.AssertNotCalled(t, "Create", mock.Anything, mock.Anything, mock.Anything)
}

func TestLoginInactiveTenant(t *testing.T) {
	users, tenants, tokens := new(mockUsers), new(mockTenants), new(mockTokens)
	svc, _ := newTestService(users, tenants, tokens, nil)

	hash, err := auth.HashPassword("secret123", bcrypt.MinCost)
	require.NoError(t, err)

	users.On("FindByEmail", mock.Anything, "a@b.com").Return(activeUser(), nil)
	users.On("PasswordHash", mock.Anything, "u-1").Return(hash, nil)
	tenants.On("FindByID", mock.Anything, "t-1").Return(nil, repository.ErrNotFound)

	_, err = svc.Login(context.Background(), "a@b.com", "secret123")
	assert.ErrorIs(t, err, ErrTenantNotFound)
	tokens.AssertNotCalled(t, "Create", mock.Anything, mock.Anything, mock.Anything)
}

// ----- register -----

func TestRegisterSuccessDefaultsRoleAndPlan(t *testing.T) {
	users, tenants, tokens, events := new(mockUsers), new(mockTenants), new(mockTokens), new(mockEvents)
	svc, _ := newTestService(users, tenants, tokens, events)

	users.On("ExistsByEmail", mock.Anything, "a@b.com").Return(false, nil)
	tenants.On("CreateWithUser", mock.Anything,
		mock.MatchedBy(func(nt model.NewTenant) bool {
			return nt.Name == "Gym A" && nt.PlanType == model.PlanBasic
		}),
		mock.MatchedBy(func(nu model.NewUser) bool {
			// Role defaults to trainer and the password reaches the
			// store hashed, never in plaintext.
			return nu.Role == model.RoleTrainer &&
				nu.PasswordHash != "secret123" &&
				auth.VerifyPassword(nu.PasswordHash, "secret123")
		}),
	).Return(activeTenant(), activeUser(), nil)
	tokens.On("Create", mock.Anything, "u-1", 7).Return("raw-refresh", nil)
	events.On("PublishSessionEvent", mock.Anything, mock.MatchedBy(func(ev queue.SessionEvent) bool {
		return ev.Type == queue.EventUserRegistered && ev.UserID == "u-1"
	})).Return(nil)

	res, err := svc.Register(context.Background(), RegisterInput{
		Email: "a@b.com", Password: "secret123",
		FirstName: "Ana", LastName: "Silva", TenantName: "Gym A",
	})
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, model.PlanBasic, res.Tenant.PlanType)
	assert.Equal(t, model.RoleTrainer, res.User.Role)
	assert.NotEmpty(t, res.AccessToken)
	assert.Equal(t, "raw-refresh", res.RefreshToken)

	tenants.AssertExpectations(t)
	events.AssertExpectations(t)
}

func TestRegisterDuplicateEmail(t *testing.T) {
	users, tenants, tokens := new(mockUsers), new(mockTenants), new(mockTokens)
	svc, _ := newTestService(users, tenants, tokens, nil)

	users.On("ExistsByEmail", mock.Anything, "a@b.com").Return(true, nil)

	_, err := svc.Register(context.Background(), RegisterInput{
		Email: "a@b.com", Password: "secret123", TenantName: "Gym A",
	})
	assert.ErrorIs(t, err, ErrEmailInUse)
	tenants.AssertNotCalled(t, "CreateWithUser", mock.Anything, mock.Anything, mock.Anything)
}

func TestRegisterLosesCheckInsertRace(t *testing.T) {
	users, tenants, tokens := new(mockUsers), new(mockTenants), new(mockTokens)
	svc, _ := newTestService(users, tenants, tokens, nil)

	// Pre-check passes, but the unique key catches the concurrent insert.
	users.On("ExistsByEmail", mock.Anything, "a@b.com").Return(false, nil)
	tenants.On("CreateWithUser", mock.Anything, mock.Anything, mock.Anything).
		Return(nil, nil, repository.ErrEmailExists)

	_, err := svc.Register(context.Background(), RegisterInput{
		Email: "a@b.com", Password: "secret123", TenantName: "Gym A",
	})
	assert.ErrorIs(t, err, ErrEmailInUse)
	tokens.AssertNotCalled(t, "Create", mock.Anything, mock.Anything, mock.Anything)
}

// ----- refresh -----

func TestRefreshRotatesExactlyOnce(t *testing.T) {
	users, tenants, tokens := new(mockUsers), new(mockTenants), new(mockTokens)
	svc, _ := newTestService(users, tenants, tokens, nil)

	tokens.On("Consume", mock.Anything, "raw-1").Return("u-1", nil).Once()
	tokens.On("Consume", mock.Anything, "raw-1").Return("", repository.ErrTokenNotFound).Once()
	users.On("FindByID", mock.Anything, "u-1").Return(activeUser(), nil)
	tokens.On("Create", mock.Anything, "u-1", 7).Return("raw-2", nil)

	first, err := svc.Refresh(context.Background(), "raw-1")
	require.NoError(t, err)
	assert.True(t, first.Success)
	assert.Equal(t, "raw-2", first.RefreshToken)
	assert.NotEmpty(t, first.AccessToken)
	// Refresh results carry tokens only, no user/tenant payload.
	assert.Nil(t, first.User)

	// The same raw secret cannot be used twice.
	_, err = svc.Refresh(context.Background(), "raw-1")
	assert.ErrorIs(t, err, ErrInvalidRefreshToken)

	tokens.AssertExpectations(t)
}

func TestRefreshDeactivatedUser(t *testing.T) {
	users, tenants, tokens := new(mockUsers), new(mockTenants), new(mockTokens)
	svc, _ := newTestService(users, tenants, tokens, nil)

	tokens.On("Consume", mock.Anything, "raw-1").Return("u-1", nil)
	users.On("FindByID", mock.Anything, "u-1").Return(nil, repository.ErrNotFound)

	_, err := svc.Refresh(context.Background(), "raw-1")
	assert.ErrorIs(t, err, ErrUserNotFound)
	tokens.AssertNotCalled(t, "Create", mock.Anything, mock.Anything, mock.Anything)
}

func TestRefreshGarbageToken(t *testing.T) {
	users, tenants, tokens := new(mockUsers), new(mockTenants), new(mockTokens)
	svc, _ := newTestService(users, tenants, tokens, nil)

	tokens.On("Consume", mock.Anything, "garbage").Return("", repository.ErrTokenNotFound)

	res, err := svc.Refresh(context.Background(), "garbage")
	assert.ErrorIs(t, err, ErrInvalidRefreshToken)
	assert.False(t, res.Success)
	assert.Equal(t, "invalid refresh token", res.Message)
}

// ----- logout -----

func TestLogoutIdempotent(t *testing.T) {
	users, tenants, tokens := new(mockUsers), new(mockTenants), new(mockTokens)
	svc, _ := newTestService(users, tenants, tokens, nil)

	tokens.On("Revoke", mock.Anything, "raw-1").Return(nil).Once()
	tokens.On("Revoke", mock.Anything, "raw-1").Return(repository.ErrTokenNotFound).Once()

	// Neither call panics or surfaces an error to the caller.
	svc.Logout(context.Background(), "raw-1")
	svc.Logout(context.Background(), "raw-1")

	tokens.AssertExpectations(t)
}

func TestLogoutAllRevokesEverything(t *testing.T) {
	users, tenants, tokens, events := new(mockUsers), new(mockTenants), new(mockTokens), new(mockEvents)
	svc, _ := newTestService(users, tenants, tokens, events)

	tokens.On("RevokeAllForUser", mock.Anything, "u-1").Return(nil)
	users.On("FindByID", mock.Anything, "u-1").Return(activeUser(), nil)
	events.On("PublishSessionEvent", mock.Anything, mock.MatchedBy(func(ev queue.SessionEvent) bool {
		return ev.Type == queue.EventSessionsRevoked
	})).Return(nil)

	require.NoError(t, svc.LogoutAll(context.Background(), "u-1"))
	tokens.AssertExpectations(t)
	events.AssertExpectations(t)
}

func TestLogoutAllStorageFault(t *testing.T) {
	users, tenants, tokens := new(mockUsers), new(mockTenants), new(mockTokens)
	svc, _ := newTestService(users, tenants, tokens, nil)

	tokens.On("RevokeAllForUser", mock.Anything, "u-1").Return(assert.AnError)

	assert.ErrorIs(t, svc.LogoutAll(context.Background(), "u-1"), ErrInternal)
}
