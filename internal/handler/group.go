package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"geoplaces/internal/database"
	"geoplaces/internal/model"
	"geoplaces/internal/repository"
)

// GroupStore is the group and membership slice of the group repository.
type GroupStore interface {
	Create(ctx context.Context, conn *database.Conn, name, description string, creatorID int64) (model.Group, error)
	ForUser(ctx context.Context, db database.Querier, userID int64) ([]model.GroupSummary, error)
	MemberRole(ctx context.Context, db database.Querier, groupID, userID int64) (model.GroupRole, bool, error)
	Details(ctx context.Context, db database.Querier, groupID int64) (model.Group, []model.Member, error)
	AddMember(ctx context.Context, db database.Querier, groupID, userID int64) error
	RemoveMember(ctx context.Context, db database.Querier, groupID, memberID int64) (bool, error)
	Places(ctx context.Context, db database.Querier, groupID int64) ([]model.GroupPlace, error)
}

// UserFinder resolves usernames when inviting members.
type UserFinder interface {
	IDByUsername(ctx context.Context, db database.Querier, username string) (int64, error)
}

// GroupHandler serves group creation, membership and the shared place
// matrix. Every endpoint requires a user identity; membership checks
// happen per group.
type GroupHandler struct {
	Env    string
	DB     ConnSource
	Groups GroupStore
	Users  UserFinder
}

func NewGroupHandler(env string, db ConnSource, groups GroupStore, users UserFinder) *GroupHandler {
	return &GroupHandler{Env: env, DB: db, Groups: groups, Users: users}
}

type createGroupReq struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// Create handles POST /api/groups. The creator becomes the group's admin
// member in the same transaction.
func (h *GroupHandler) Create(c echo.Context) error {
	uid := userOf(c)
	if uid == nil {
		return notAuthenticated(c)
	}
	var req createGroupReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	req.Name = strings.TrimSpace(req.Name)
	if len(req.Name) < 3 {
		return badRequest(c, "Group name must be at least 3 characters")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	conn, err := h.DB.Acquire(ctx, roleOf(c))
	if err != nil {
		return storeError(c, h.Env, "Database connection failed", err)
	}
	defer conn.Release()

	group, err := h.Groups.Create(ctx, conn, req.Name, strings.TrimSpace(req.Description), *uid)
	if err != nil {
		return storeError(c, h.Env, "Failed to create group", err)
	}
	return c.JSON(http.StatusCreated, echo.Map{
		"success": true,
		"group":   group,
		"message": "Group created successfully",
	})
}

// Mine handles GET /api/groups, listing the caller's memberships.
func (h *GroupHandler) Mine(c echo.Context) error {
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

	groups, err := h.Groups.ForUser(ctx, conn, *uid)
	if err != nil {
		return storeError(c, h.Env, "Failed to get groups", err)
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "groups": groups})
}

// Details handles GET /api/groups/:id. Member emails are visible only
// inside the group, so non-members get a 403.
func (h *GroupHandler) Details(c echo.Context) error {
	uid := userOf(c)
	if uid == nil {
		return notAuthenticated(c)
	}
	groupID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return badRequest(c, "invalid group id")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	conn, err := h.DB.Acquire(ctx, roleOf(c))
	if err != nil {
		return storeError(c, h.Env, "Database connection failed", err)
	}
	defer conn.Release()

	yourRole, member, err := h.Groups.MemberRole(ctx, conn, groupID, *uid)
	if err != nil {
		return storeError(c, h.Env, "Failed to get group details", err)
	}
	if !member {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "You are not a member of this group"})
	}

	group, members, err := h.Groups.Details(ctx, conn, groupID)
	if err != nil {
		return storeError(c, h.Env, "Failed to get group details", err)
	}

	creator := ""
	for _, m := range members {
		if m.UserID == group.CreatedBy {
			creator = m.Username
			break
		}
	}
	return c.JSON(http.StatusOK, echo.Map{
		"success": true,
		"group": echo.Map{
			"group_id":         group.ID,
			"name":             group.Name,
			"description":      group.Description,
			"created_by":       group.CreatedBy,
			"created_at":       group.CreatedAt,
			"creator_username": creator,
			"your_role":        yourRole,
		},
		"members": members,
	})
}

type addMemberReq struct {
	Username string `json:"username"`
}

// AddMember handles POST /api/groups/:id/members. Group admins only.
func (h *GroupHandler) AddMember(c echo.Context) error {
	uid := userOf(c)
	if uid == nil {
		return notAuthenticated(c)
	}
	groupID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return badRequest(c, "invalid group id")
	}
	var req addMemberReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	req.Username = strings.TrimSpace(req.Username)
	if req.Username == "" {
		return badRequest(c, "Username is required")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	conn, err := h.DB.Acquire(ctx, roleOf(c))
	if err != nil {
		return storeError(c, h.Env, "Database connection failed", err)
	}
	defer conn.Release()

	if err := h.requireGroupAdmin(ctx, conn, groupID, *uid); err != nil {
		return groupAdminError(c, err)
	}

	memberID, err := h.Users.IDByUsername(ctx, conn, req.Username)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "User not found"})
		}
		return storeError(c, h.Env, "Failed to add member", err)
	}

	if err := h.Groups.AddMember(ctx, conn, groupID, memberID); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return badRequest(c, "User is already a member")
		}
		return storeError(c, h.Env, "Failed to add member", err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"success": true,
		"message": "User " + req.Username + " added to group",
	})
}

// RemoveMember handles DELETE /api/groups/:id/members/:member_id. Group
// admins only, and never themselves.
func (h *GroupHandler) RemoveMember(c echo.Context) error {
	uid := userOf(c)
	if uid == nil {
		return notAuthenticated(c)
	}
	groupID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return badRequest(c, "invalid group id")
	}
	memberID, err := strconv.ParseInt(c.Param("member_id"), 10, 64)
	if err != nil {
		return badRequest(c, "invalid member id")
	}
	if memberID == *uid {
		return badRequest(c, "Cannot remove yourself from group")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	conn, err := h.DB.Acquire(ctx, roleOf(c))
	if err != nil {
		return storeError(c, h.Env, "Database connection failed", err)
	}
	defer conn.Release()

	if err := h.requireGroupAdmin(ctx, conn, groupID, *uid); err != nil {
		return groupAdminError(c, err)
	}

	removed, err := h.Groups.RemoveMember(ctx, conn, groupID, memberID)
	if err != nil {
		return storeError(c, h.Env, "Failed to remove member", err)
	}
	if !removed {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "Member not found in group"})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"success": true,
		"message": "Member removed from group",
	})
}

// Places handles GET /api/groups/:id/places: every place some member has
// listed, with the member status matrix.
func (h *GroupHandler) Places(c echo.Context) error {
	uid := userOf(c)
	if uid == nil {
		return notAuthenticated(c)
	}
	groupID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return badRequest(c, "invalid group id")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 15*time.Second)
	defer cancel()

	conn, err := h.DB.Acquire(ctx, roleOf(c))
	if err != nil {
		return storeError(c, h.Env, "Database connection failed", err)
	}
	defer conn.Release()

	_, member, err := h.Groups.MemberRole(ctx, conn, groupID, *uid)
	if err != nil {
		return storeError(c, h.Env, "Failed to get group places", err)
	}
	if !member {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "You are not a member of this group"})
	}

	places, err := h.Groups.Places(ctx, conn, groupID)
	if err != nil {
		return storeError(c, h.Env, "Failed to get group places", err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"success": true,
		"places":  places,
		"count":   len(places),
	})
}

var errNotGroupAdmin = errors.New("not a group admin")

func (h *GroupHandler) requireGroupAdmin(ctx context.Context, db database.Querier, groupID, userID int64) error {
	role, member, err := h.Groups.MemberRole(ctx, db, groupID, userID)
	if err != nil {
		return err
	}
	if !member || role != model.GroupAdmin {
		return errNotGroupAdmin
	}
	return nil
}

func groupAdminError(c echo.Context, err error) error {
	if errors.Is(err, errNotGroupAdmin) {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "Only group admins can manage members"})
	}
	return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to check group membership"})
}
