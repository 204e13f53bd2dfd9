package middleware

import (
	"strings"

	"github.com/labstack/echo/v4"

	"geoplaces/internal/model"
	"geoplaces/internal/repository"
	"geoplaces/internal/utils"
)

// Authenticate resolves the caller's identity and stores it on the
// context. Candidates are tried in order, first success wins:
//
//  1. Authorization: Bearer <token> against the token store
//  2. X-Auth-Token header, same validation
//  3. the signed session cookie (role only, no user id)
//
// A failed candidate falls through to the next; expired tokens vanish as
// a side effect of the failed store lookup. The middleware never rejects
// a request itself — anonymous requests proceed with no identity and the
// route-level gates decide what requires one.
func Authenticate(tokens repository.TokenStore, secret string, roles *model.Registry) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			for _, tok := range tokenCandidates(c) {
				sess, ok, err := tokens.Get(c.Request().Context(), tok)
				if err != nil || !ok {
					continue
				}
				SetIdentity(c, sess.Role, sess.UserID, tok)
				return next(c)
			}

			if cookie, err := c.Cookie(utils.SessionCookieName); err == nil && cookie.Value != "" {
				if role, err := utils.ParseSessionValue(secret, cookie.Value); err == nil {
					if ri, ok := roles.Lookup(role); ok {
						SetIdentity(c, ri.Name, nil, "")
					}
				}
			}
			return next(c)
		}
	}
}

func tokenCandidates(c echo.Context) []string {
	var out []string
	if auth := c.Request().Header.Get("Authorization"); strings.HasPrefix(auth, "Bearer ") {
		if tok := strings.TrimSpace(strings.TrimPrefix(auth, "Bearer ")); tok != "" {
			out = append(out, tok)
		}
	}
	if tok := strings.TrimSpace(c.Request().Header.Get("X-Auth-Token")); tok != "" {
		out = append(out, tok)
	}
	return out
}
