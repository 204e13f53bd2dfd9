package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"geoplaces/internal/model"
)

// RequireUser aborts with 401 unless the request authenticated with a
// token that carries an account id. Cookie sessions do not qualify; they
// only carry a role.
func RequireUser() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if CurrentUserID(c) == nil {
				return c.JSON(http.StatusUnauthorized, echo.Map{
					"error":   "Not authenticated",
					"message": "Please login first",
				})
			}
			return next(c)
		}
	}
}

// RequireRole enforces that the request's role is in the allowed set:
// 401 when anonymous, 403 otherwise.
func RequireRole(roles ...model.Role) echo.MiddlewareFunc {
	allowed := make(map[model.Role]bool, len(roles))
	for _, r := range roles {
		allowed[r] = true
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			role := CurrentRole(c)
			if role == model.RoleNone {
				return c.JSON(http.StatusUnauthorized, echo.Map{
					"error":   "Not authenticated",
					"message": "Please login first",
				})
			}
			if !allowed[role] {
				return c.JSON(http.StatusForbidden, echo.Map{
					"error":   "Permission denied",
					"message": "Your role does not allow this operation",
				})
			}
			return next(c)
		}
	}
}

// RequirePermission gates a route on the role's advisory permission set.
// The database's own grants still apply underneath; this check exists to
// fail fast with a clear message.
func RequirePermission(reg *model.Registry, p model.Permission) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			role := CurrentRole(c)
			if role == model.RoleNone {
				return c.JSON(http.StatusUnauthorized, echo.Map{
					"error":   "Not authenticated",
					"message": "Please login first",
				})
			}
			ri, ok := reg.Get(role)
			if !ok || !ri.Can(p) {
				return c.JSON(http.StatusForbidden, echo.Map{
					"error":   "Permission denied",
					"message": "Role '" + string(role) + "' lacks " + string(p) + " permission",
				})
			}
			return next(c)
		}
	}
}
