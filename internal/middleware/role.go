package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/coachkit/trainer-platform/internal/model"
)

// RequireRole restricts a route to users whose role is in the allowed set.
// It reads the user RequireAuth re-fetched, not the token claim, so a role
// change takes effect immediately.
func RequireRole(roles ...model.Role) echo.MiddlewareFunc {
	allowed := make(map[model.Role]bool, len(roles))
	for _, r := range roles {
		allowed[r] = true
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			user, ok := c.Get(CtxUser).(*model.User)
			if !ok || !allowed[user.Role] {
				return c.JSON(http.StatusForbidden, echo.Map{
					"success": false, "message": "forbidden",
				})
			}
			return next(c)
		}
	}
}
