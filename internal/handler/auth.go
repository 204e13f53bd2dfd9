package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"geoplaces/internal/middleware"
	"geoplaces/internal/model"
	"geoplaces/internal/repository"
	"geoplaces/internal/utils"
)

// AuthHandler serves role-based login. Role logins share a password per
// role and carry no user id; user accounts log in through UserHandler.
type AuthHandler struct {
	Env       string
	SecretKey string
	TokenTTL  time.Duration
	Roles     *model.Registry
	DB        ConnSource
	Tokens    repository.TokenStore
}

func NewAuthHandler(env, secret string, ttl time.Duration, roles *model.Registry, db ConnSource, tokens repository.TokenStore) *AuthHandler {
	return &AuthHandler{Env: env, SecretKey: secret, TokenTTL: ttl, Roles: roles, DB: db, Tokens: tokens}
}

type loginReq struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Login handles POST /auth/login. A successful login verifies the role's
// database credentials actually connect before issuing the token, so a
// misprovisioned database login fails here rather than on first query.
// Unknown usernames and wrong passwords produce the same 401.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	if req.Username == "" || req.Password == "" {
		return badRequest(c, "Username and password required")
	}

	ri, ok := h.Roles.Lookup(req.Username)
	if !ok || req.Password != ri.Password {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "Invalid username or password"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	conn, err := h.DB.Acquire(ctx, ri.Name)
	if err != nil {
		return storeError(c, h.Env, "Database connection failed", err)
	}
	conn.Release()

	token := utils.NewAuthToken(req.Username, h.SecretKey)
	if err := h.Tokens.Store(ctx, token, repository.Session{
		Role:      ri.Name,
		CreatedAt: time.Now().UTC(),
	}); err != nil {
		return storeError(c, h.Env, "Login failed", err)
	}

	h.setSessionCookie(c, string(ri.Name))

	return c.JSON(http.StatusOK, echo.Map{
		"success":     true,
		"role":        ri.Name,
		"permissions": ri.Permissions,
		"message":     "Logged in as " + string(ri.Name),
		"token":       token,
	})
}

// Logout handles POST /auth/logout: the token dies server-side and the
// session cookie is cleared.
func (h *AuthHandler) Logout(c echo.Context) error {
	if tok := middleware.CurrentToken(c); tok != "" {
		ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
		defer cancel()
		_ = h.Tokens.Delete(ctx, tok)
	}
	c.SetCookie(&http.Cookie{
		Name:     utils.SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	})
	return c.JSON(http.StatusOK, echo.Map{"success": true, "message": "Logged out successfully"})
}

// Check handles GET /auth/check, reporting the resolved identity or the
// available roles for anonymous callers.
func (h *AuthHandler) Check(c echo.Context) error {
	role := roleOf(c)
	if role == model.RoleNone {
		names := []model.Role{}
		for _, ri := range h.Roles.All() {
			names = append(names, ri.Name)
		}
		return c.JSON(http.StatusOK, echo.Map{
			"authenticated":   false,
			"available_roles": names,
		})
	}
	ri, _ := h.Roles.Get(role)
	resp := echo.Map{
		"authenticated": true,
		"role":          role,
		"permissions":   ri.Permissions,
	}
	if uid := userOf(c); uid != nil {
		resp["user_id"] = *uid
	}
	return c.JSON(http.StatusOK, resp)
}

// ListRoles handles GET /auth/roles.
func (h *AuthHandler) ListRoles(c echo.Context) error {
	roles := echo.Map{}
	for _, ri := range h.Roles.All() {
		roles[string(ri.Name)] = echo.Map{
			"permissions": ri.Permissions,
			"description": ri.Description,
		}
	}
	return c.JSON(http.StatusOK, echo.Map{"available_roles": roles})
}

func (h *AuthHandler) setSessionCookie(c echo.Context, role string) {
	val, err := utils.NewSessionValue(h.SecretKey, role, h.TokenTTL)
	if err != nil {
		return
	}
	c.SetCookie(&http.Cookie{
		Name:     utils.SessionCookieName,
		Value:    val,
		Path:     "/",
		MaxAge:   int(h.TokenTTL / time.Second),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}
