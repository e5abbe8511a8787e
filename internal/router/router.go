// Package router wires HTTP routes to handlers and middleware.
package router

import (
	"github.com/labstack/echo/v4"

	"github.com/coachkit/trainer-platform/internal/handler"
	"github.com/coachkit/trainer-platform/internal/middleware"
	"github.com/coachkit/trainer-platform/internal/model"
)

// Register mounts all routes. gate is the request-gate middleware for
// protected endpoints; limit is the rate limiter for credential endpoints.
func Register(e *echo.Echo, a *handler.AuthHandler, gate, limit echo.MiddlewareFunc) {
	e.GET("/healthz", handler.Health)

	// Credential endpoints: no session required, rate limited.
	g := e.Group("/v1/auth", limit)
	g.POST("/register", a.Register)
	g.POST("/login", a.Login)
	g.POST("/refresh", a.Refresh)
	g.POST("/logout", a.Logout)

	// Protected endpoints: every request re-validates user and tenant.
	p := e.Group("/v1/auth", gate)
	p.GET("/me", a.Me)
	p.POST("/logout-all", a.LogoutAll)

	// Operational endpoints.
	admin := e.Group("/v1/admin", gate, middleware.RequireRole(model.RoleAdmin))
	admin.POST("/sweep-tokens", a.SweepTokens)
}
