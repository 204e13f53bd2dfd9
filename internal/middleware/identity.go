package middleware

// identity.go holds the context keys and accessors shared by the
// middleware chain and handlers. Authenticate stores the resolved role
// and user id under these keys; everything downstream reads them through
// the typed accessors instead of raw c.Get calls.

import (
	"github.com/labstack/echo/v4"

	"geoplaces/internal/model"
)

const (
	ctxRole   = "role"
	ctxUserID = "user_id"
	ctxToken  = "auth_token"
)

// CurrentRole returns the authenticated role, RoleNone for anonymous
// requests.
func CurrentRole(c echo.Context) model.Role {
	if r, ok := c.Get(ctxRole).(model.Role); ok {
		return r
	}
	return model.RoleNone
}

// CurrentUserID returns the authenticated account id, nil when the
// request carries no user identity (anonymous or cookie-only sessions).
func CurrentUserID(c echo.Context) *int64 {
	if id, ok := c.Get(ctxUserID).(*int64); ok {
		return id
	}
	return nil
}

// CurrentToken returns the raw auth token the request authenticated
// with, empty for cookie sessions and anonymous requests.
func CurrentToken(c echo.Context) string {
	if t, ok := c.Get(ctxToken).(string); ok {
		return t
	}
	return ""
}

// SetIdentity stores a resolved identity on the request context. Exposed
// for handler tests that need an authenticated context without running
// the full middleware chain.
func SetIdentity(c echo.Context, role model.Role, userID *int64, token string) {
	c.Set(ctxRole, role)
	if userID != nil {
		c.Set(ctxUserID, userID)
	}
	if token != "" {
		c.Set(ctxToken, token)
	}
}
