package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coachkit/trainer-platform/internal/auth"
	"github.com/coachkit/trainer-platform/internal/model"
	"github.com/coachkit/trainer-platform/internal/repository"
)

type stubUsers struct {
	user *model.User
	err  error
}

func (s stubUsers) FindByID(context.Context, string) (*model.User, error) {
	return s.user, s.err
}

type stubTenants struct {
	tenant *model.Tenant
	err    error
}

func (s stubTenants) FindByID(context.Context, string) (*model.Tenant, error) {
	return s.tenant, s.err
}

func gateUser() *model.User {
	return &model.User{ID: "u-1", TenantID: "t-1", Email: "a@b.com", Role: model.RoleTrainer, IsActive: true}
}

func gateTenant() *model.Tenant {
	return &model.Tenant{ID: "t-1", Name: "Gym A", IsActive: true}
}

// runGate pushes a request through RequireAuth and reports whether the
// wrapped handler ran.
func runGate(t *testing.T, issuer *auth.TokenIssuer, users UserSource, tenants TenantSource, header string) (*httptest.ResponseRecorder, echo.Context, bool) {
	t.Helper()

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/v1/auth/me", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	called := false
	h := RequireAuth(issuer, users, tenants)(func(c echo.Context) error {
		called = true
		return c.NoContent(http.StatusOK)
	})
	require.NoError(t, h(c))
	return rec, c, called
}

func TestRequireAuthMissingHeader(t *testing.T) {
	issuer := auth.NewTokenIssuer("test-secret", time.Hour)

	rec, _, called := runGate(t, issuer, stubUsers{}, stubTenants{}, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "access token required")
	assert.False(t, called)
}

func TestRequireAuthRejectsNonBearerScheme(t *testing.T) {
	issuer := auth.NewTokenIssuer("test-secret", time.Hour)

	rec, _, called := runGate(t, issuer, stubUsers{}, stubTenants{}, "Basic dXNlcjpwYXNz")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.False(t, called)
}

func TestRequireAuthInvalidToken(t *testing.T) {
	issuer := auth.NewTokenIssuer("test-secret", time.Hour)

	rec, _, called := runGate(t, issuer, stubUsers{}, stubTenants{}, "Bearer not-a-jwt")
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid token")
	assert.False(t, called)
}

func TestRequireAuthDeactivatedUser(t *testing.T) {
	issuer := auth.NewTokenIssuer("test-secret", time.Hour)
	raw, _, err := issuer.IssueAccess(*gateUser(), "t-1")
	require.NoError(t, err)

	// The token is valid, but the re-fetch no longer finds an active user.
	rec, _, called := runGate(t, issuer,
		stubUsers{err: repository.ErrNotFound}, stubTenants{tenant: gateTenant()},
		"Bearer "+raw)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Contains(t, rec.Body.String(), "user inactive")
	assert.False(t, called)
}

func TestRequireAuthDeactivatedTenant(t *testing.T) {
	issuer := auth.NewTokenIssuer("test-secret", time.Hour)
	raw, _, err := issuer.IssueAccess(*gateUser(), "t-1")
	require.NoError(t, err)

	rec, _, called := runGate(t, issuer,
		stubUsers{user: gateUser()}, stubTenants{err: repository.ErrNotFound},
		"Bearer "+raw)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Contains(t, rec.Body.String(), "tenant inactive")
	assert.False(t, called)
}

func TestRequireAuthSetsContext(t *testing.T) {
	issuer := auth.NewTokenIssuer("test-secret", time.Hour)
	raw, _, err := issuer.IssueAccess(*gateUser(), "t-1")
	require.NoError(t, err)

	rec, c, called := runGate(t, issuer,
		stubUsers{user: gateUser()}, stubTenants{tenant: gateTenant()},
		"Bearer "+raw)
	require.True(t, called)
	assert.Equal(t, http.StatusOK, rec.Code)

	user, ok := c.Get(CtxUser).(*model.User)
	require.True(t, ok)
	assert.Equal(t, "u-1", user.ID)
	tenant, ok := c.Get(CtxTenant).(*model.Tenant)
	require.True(t, ok)
	assert.Equal(t, "t-1", tenant.ID)
	assert.Equal(t, "t-1", c.Get(CtxTenantID))
}

func TestRequireRole(t *testing.T) {
	e := echo.New()

	run := func(u *model.User, roles ...model.Role) (*httptest.ResponseRecorder, bool) {
		req := httptest.NewRequest(http.MethodPost, "/v1/admin/sweep-tokens", nil)
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)
		if u != nil {
			c.Set(CtxUser, u)
		}
		called := false
		h := RequireRole(roles...)(func(c echo.Context) error {
			called = true
			return c.NoContent(http.StatusOK)
		})
		require.NoError(t, h(c))
		return rec, called
	}

	admin := gateUser()
	admin.Role = model.RoleAdmin

	rec, called := run(admin, model.RoleAdmin)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, called)

	rec, called = run(gateUser(), model.RoleAdmin)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.False(t, called)

	rec, called = run(nil, model.RoleAdmin)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.False(t, called)
}
