package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/coachkit/trainer-platform/internal/middleware"
	"github.com/coachkit/trainer-platform/internal/model"
	"github.com/coachkit/trainer-platform/internal/service"
)

// SessionService is the slice of the auth service the HTTP layer needs.
type SessionService interface {
	Register(ctx context.Context, in service.RegisterInput) (service.Result, error)
	Login(ctx context.Context, email, password string) (service.Result, error)
	Refresh(ctx context.Context, rawRefresh string) (service.Result, error)
	Logout(ctx context.Context, rawRefresh string)
	LogoutAll(ctx context.Context, userID string) error
	SweepExpired(ctx context.Context) (int64, error)
}

// AuthHandler exposes the session lifecycle over HTTP.
type AuthHandler struct {
	Svc SessionService
}

func NewAuthHandler(svc SessionService) *AuthHandler { return &AuthHandler{Svc: svc} }

const dbTimeout = 5 * time.Second

// ----- DTOs -----

type registerReq struct {
	Email      string `json:"email"`
	Password   string `json:"password"`
	FirstName  string `json:"firstName"`
	LastName   string `json:"lastName"`
	TenantName string `json:"tenantName"`
	Role       string `json:"role"`
}

type loginReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type refreshReq struct {
	RefreshToken string `json:"refreshToken"`
}

// statusFor maps the service error taxonomy to HTTP statuses.
func statusFor(err error) int {
	switch {
	case errors.Is(err, service.ErrInvalidCredentials),
		errors.Is(err, service.ErrInvalidRefreshToken):
		return http.StatusUnauthorized
	case errors.Is(err, service.ErrEmailInUse):
		return http.StatusConflict
	case errors.Is(err, service.ErrUserNotFound),
		errors.Is(err, service.ErrTenantNotFound):
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

// Register creates a tenant with its first user and returns a token pair.
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"success": false, "message": "invalid body"})
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Email == "" || req.Password == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"success": false, "message": "email and password required"})
	}
	if strings.TrimSpace(req.TenantName) == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"success": false, "message": "tenant name required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	res, err := h.Svc.Register(ctx, service.RegisterInput{
		Email:      req.Email,
		Password:   req.Password,
		FirstName:  strings.TrimSpace(req.FirstName),
		LastName:   strings.TrimSpace(req.LastName),
		TenantName: strings.TrimSpace(req.TenantName),
		Role:       model.Role(strings.ToLower(strings.TrimSpace(req.Role))),
	})
	if err != nil {
		return c.JSON(statusFor(err), res)
	}
	return c.JSON(http.StatusCreated, res)
}

// Login exchanges credentials for a token pair.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"success": false, "message": "invalid body"})
	}
	if req.Email == "" || req.Password == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"success": false, "message": "email and password required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	res, err := h.Svc.Login(ctx, req.Email, req.Password)
	if err != nil {
		return c.JSON(statusFor(err), res)
	}
	return c.JSON(http.StatusOK, res)
}

// Refresh rotates a refresh token and returns a new pair.
func (h *AuthHandler) Refresh(c echo.Context) error {
	var req refreshReq
	if err := c.Bind(&req); err != nil || strings.TrimSpace(req.RefreshToken) == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"success": false, "message": "refreshToken required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	res, err := h.Svc.Refresh(ctx, strings.TrimSpace(req.RefreshToken))
	if err != nil {
		return c.JSON(statusFor(err), res)
	}
	return c.JSON(http.StatusOK, res)
}

// Logout revokes the presented refresh token. It always succeeds; sending a
// stale or garbage token is a no-op.
func (h *AuthHandler) Logout(c echo.Context) error {
	var req refreshReq
	_ = c.Bind(&req)

	if raw := strings.TrimSpace(req.RefreshToken); raw != "" {
		ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
		defer cancel()
		h.Svc.Logout(ctx, raw)
	}
	return c.NoContent(http.StatusNoContent)
}

// LogoutAll revokes every refresh token of the authenticated user.
func (h *AuthHandler) LogoutAll(c echo.Context) error {
	user, ok := c.Get(middleware.CtxUser).(*model.User)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"success": false, "message": "access token required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	if err := h.Svc.LogoutAll(ctx, user.ID); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"success": false, "message": "logout failed"})
	}
	return c.NoContent(http.StatusNoContent)
}

// Me returns the freshly re-fetched user and tenant for the current token.
func (h *AuthHandler) Me(c echo.Context) error {
	user, _ := c.Get(middleware.CtxUser).(*model.User)
	tenant, _ := c.Get(middleware.CtxTenant).(*model.Tenant)
	if user == nil || tenant == nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"success": false, "message": "access token required"})
	}
	return c.JSON(http.StatusOK, service.Result{Success: true, User: user, Tenant: tenant})
}

// SweepTokens deletes expired and revoked refresh-token rows. Admin only.
func (h *AuthHandler) SweepTokens(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	n, err := h.Svc.SweepExpired(ctx)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"success": false, "message": "sweep failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "deleted": n})
}
