package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"geoplaces/internal/database"
	"geoplaces/internal/model"
	"geoplaces/internal/repository"
	"geoplaces/internal/utils"
)

// UserAccounts is the account slice of the user repository.
type UserAccounts interface {
	Create(ctx context.Context, db database.Querier, username, email, passwordHash string) (model.User, error)
	FindByUsername(ctx context.Context, db database.Querier, username string) (model.User, error)
	Profile(ctx context.Context, db database.Querier, userID int64) (model.User, model.ListCounts, error)
	Stats(ctx context.Context, db database.Querier) (model.UserStats, error)
}

// UserHandler serves account registration, user login and profile.
// User accounts are independent of database roles: their tokens carry a
// user id and queries run on the base connection.
type UserHandler struct {
	Env        string
	SecretKey  string
	BcryptCost int
	DB         ConnSource
	Users      UserAccounts
	Tokens     repository.TokenStore
}

func NewUserHandler(env, secret string, bcryptCost int, db ConnSource, users UserAccounts, tokens repository.TokenStore) *UserHandler {
	return &UserHandler{Env: env, SecretKey: secret, BcryptCost: bcryptCost, DB: db, Users: users, Tokens: tokens}
}

type registerReq struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Register handles POST /api/users/register. The insert needs write
// access to the users table, so it runs on the admin connection
// regardless of the caller's role. Uniqueness is enforced by the
// database constraint rather than a lookup first, so concurrent
// registrations of the same name cannot both succeed.
func (h *UserHandler) Register(c echo.Context) error {
	var req registerReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.TrimSpace(req.Email)
	if req.Username == "" || req.Email == "" || req.Password == "" {
		return badRequest(c, "Username, email, and password required")
	}
	if len(req.Username) < 3 || len(req.Username) > 50 {
		return badRequest(c, "Username must be 3-50 characters")
	}
	if !strings.Contains(req.Email, "@") {
		return badRequest(c, "Invalid email address")
	}
	if len(req.Password) < 6 {
		return badRequest(c, "Password must be at least 6 characters")
	}

	hash, err := utils.HashPassword(req.Password, h.BcryptCost)
	if err != nil {
		return storeError(c, h.Env, "Registration failed", err)
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	conn, err := h.DB.AcquireAdmin(ctx)
	if err != nil {
		return storeError(c, h.Env, "Database connection failed", err)
	}
	defer conn.Release()

	user, err := h.Users.Create(ctx, conn, req.Username, req.Email, hash)
	if err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return badRequest(c, "Username or email already exists")
		}
		return storeError(c, h.Env, "Registration failed", err)
	}

	return c.JSON(http.StatusCreated, echo.Map{
		"success": true,
		"user":    userJSON(user),
		"message": "User registered successfully",
	})
}

// Login handles POST /api/users/login. Unknown usernames and wrong
// passwords produce the same 401.
func (h *UserHandler) Login(c echo.Context) error {
	var req loginReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	req.Username = strings.TrimSpace(req.Username)
	if req.Username == "" || req.Password == "" {
		return badRequest(c, "Username and password required")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	conn, err := h.DB.Acquire(ctx, model.RoleNone)
	if err != nil {
		return storeError(c, h.Env, "Database connection failed", err)
	}
	defer conn.Release()

	user, err := h.Users.FindByUsername(ctx, conn, req.Username)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return storeError(c, h.Env, "Login failed", err)
	}
	if err != nil || !utils.VerifyPassword(user.PasswordHash, req.Password) {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "Invalid username or password"})
	}

	// User tokens carry no role; their queries run on the base
	// connection the same way anonymous searches do.
	token := utils.NewAuthToken(user.Username, h.SecretKey)
	if err := h.Tokens.Store(ctx, token, repository.Session{
		Role:      model.RoleNone,
		UserID:    &user.ID,
		CreatedAt: time.Now().UTC(),
	}); err != nil {
		return storeError(c, h.Env, "Login failed", err)
	}

	return c.JSON(http.StatusOK, echo.Map{
		"success": true,
		"token":   token,
		"user": echo.Map{
			"user_id":  user.ID,
			"username": user.Username,
			"email":    user.Email,
		},
		"message": "Login successful",
	})
}

// Profile handles GET /api/users/profile.
func (h *UserHandler) Profile(c echo.Context) error {
	uid := userOf(c)
	if uid == nil {
		return notAuthenticated(c)
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	conn, err := h.DB.Acquire(ctx, roleOf(c))
	if err != nil {
		return storeError(c, h.Env, "Database connection failed", err)
	}
	defer conn.Release()

	user, counts, err := h.Users.Profile(ctx, conn, *uid)
	if err != nil {
		return storeError(c, h.Env, "Failed to get profile", err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"user":       userJSON(user),
		"statistics": counts,
	})
}

// Stats handles GET /api/users/stats, a public aggregate.
func (h *UserHandler) Stats(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	conn, err := h.DB.Acquire(ctx, roleOf(c))
	if err != nil {
		return storeError(c, h.Env, "Database connection failed", err)
	}
	defer conn.Release()

	stats, err := h.Users.Stats(ctx, conn)
	if err != nil {
		return storeError(c, h.Env, "Failed to get users stats", err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"total_users":  stats.TotalUsers,
		"active_users": stats.ActiveUsers,
		"total_list_entries": echo.Map{
			"visited":  stats.Visited,
			"wishlist": stats.Wishlist,
			"liked":    stats.Liked,
		},
	})
}

func userJSON(u model.User) echo.Map {
	return echo.Map{
		"user_id":    u.ID,
		"username":   u.Username,
		"email":      u.Email,
		"created_at": u.CreatedAt,
	}
}
