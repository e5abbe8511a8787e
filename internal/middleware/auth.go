// Package middleware provides the request gate and related HTTP middleware.
package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/coachkit/trainer-platform/internal/auth"
	"github.com/coachkit/trainer-platform/internal/model"
)

// Context keys set by RequireAuth for downstream handlers.
const (
	CtxUser     = "user"
	CtxTenant   = "tenant"
	CtxTenantID = "tenant_id"
)

// UserSource is the user lookup the gate needs. Lookups return only active
// users.
type UserSource interface {
	FindByID(ctx context.Context, id string) (*model.User, error)
}

// TenantSource is the tenant lookup the gate needs.
type TenantSource interface {
	FindByID(ctx context.Context, id string) (*model.Tenant, error)
}

// RequireAuth validates the bearer access token, then re-fetches the user
// and tenant it references so that a deactivated account stops working
// within one request. The token's embedded user snapshot is never trusted
// for authorization; skipping the re-fetch would let tokens issued to
// since-deactivated accounts ride until natural expiry.
func RequireAuth(issuer *auth.TokenIssuer, users UserSource, tenants TenantSource) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			header := c.Request().Header.Get("Authorization")
			if !strings.HasPrefix(header, "Bearer ") {
				return c.JSON(http.StatusUnauthorized, echo.Map{
					"success": false, "message": "access token required",
				})
			}
			raw := strings.TrimPrefix(header, "Bearer ")

			claims, err := issuer.VerifyAccess(raw)
			if err != nil {
				return c.JSON(http.StatusForbidden, echo.Map{
					"success": false, "message": "invalid token",
				})
			}

			ctx := c.Request().Context()

			user, err := users.FindByID(ctx, claims.User.ID)
			if err != nil {
				return c.JSON(http.StatusForbidden, echo.Map{
					"success": false, "message": "user inactive",
				})
			}
			tenant, err := tenants.FindByID(ctx, claims.TenantID)
			if err != nil {
				return c.JSON(http.StatusForbidden, echo.Map{
					"success": false, "message": "tenant inactive",
				})
			}

			c.Set(CtxUser, user)
			c.Set(CtxTenant, tenant)
			c.Set(CtxTenantID, tenant.ID)
			return next(c)
		}
	}
}
