package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"geoplaces/internal/database"
	"geoplaces/internal/model"
)

// RouteStore is the route slice of the route repository.
type RouteStore interface {
	Effective(ctx context.Context, db database.Querier, groupID, userID int64) ([]model.RouteStop, bool, error)
	SetDefault(ctx context.Context, conn *database.Conn, groupID int64, placeIDs []int64) error
	SetOverride(ctx context.Context, conn *database.Conn, groupID, userID int64, placeIDs []int64) error
	RemoveStop(ctx context.Context, conn *database.Conn, groupID, userID, placeID int64) (bool, error)
}

// RouteHandler serves group routes: one shared default per group and
// optional personal overrides. Reads resolve the caller's effective
// route; a personal removal never edits the shared default.
type RouteHandler struct {
	Env    string
	DB     ConnSource
	Groups GroupStore
	Routes RouteStore
}

func NewRouteHandler(env string, db ConnSource, groups GroupStore, routes RouteStore) *RouteHandler {
	return &RouteHandler{Env: env, DB: db, Groups: groups, Routes: routes}
}

// Get handles GET /api/groups/:id/route, returning the caller's override
// when one exists, else the group default.
func (h *RouteHandler) Get(c echo.Context) error {
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

	if err := h.requireMember(ctx, conn, groupID, *uid); err != nil {
		return memberError(c, err)
	}

	stops, personal, err := h.Routes.Effective(ctx, conn, groupID, *uid)
	if err != nil {
		return storeError(c, h.Env, "Failed to get route", err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"success":  true,
		"route":    stops,
		"count":    len(stops),
		"personal": personal,
	})
}

type setRouteReq struct {
	PlaceIDs []int64 `json:"place_ids"`
}

// SetDefault handles POST /api/groups/:id/route. Group admins only; the
// new sequence replaces the old default atomically.
func (h *RouteHandler) SetDefault(c echo.Context) error {
	uid := userOf(c)
	if uid == nil {
		return notAuthenticated(c)
	}
	groupID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return badRequest(c, "invalid group id")
	}
	placeIDs, err := bindRoute(c)
	if err != nil {
		return badRequest(c, err.Error())
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	conn, err := h.DB.Acquire(ctx, roleOf(c))
	if err != nil {
		return storeError(c, h.Env, "Database connection failed", err)
	}
	defer conn.Release()

	role, member, err := h.Groups.MemberRole(ctx, conn, groupID, *uid)
	if err != nil {
		return storeError(c, h.Env, "Failed to check group membership", err)
	}
	if !member || role != model.GroupAdmin {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "Only group admins can set the group route"})
	}

	if err := h.Routes.SetDefault(ctx, conn, groupID, placeIDs); err != nil {
		return storeError(c, h.Env, "Failed to set route", err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"success": true,
		"message": "Group route updated",
		"count":   len(placeIDs),
	})
}

// SetPersonal handles PUT /api/groups/:id/route, replacing the caller's
// personal override.
func (h *RouteHandler) SetPersonal(c echo.Context) error {
	uid := userOf(c)
	if uid == nil {
		return notAuthenticated(c)
	}
	groupID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return badRequest(c, "invalid group id")
	}
	placeIDs, err := bindRoute(c)
	if err != nil {
		return badRequest(c, err.Error())
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	conn, err := h.DB.Acquire(ctx, roleOf(c))
	if err != nil {
		return storeError(c, h.Env, "Database connection failed", err)
	}
	defer conn.Release()

	if err := h.requireMember(ctx, conn, groupID, *uid); err != nil {
		return memberError(c, err)
	}

	if err := h.Routes.SetOverride(ctx, conn, groupID, *uid, placeIDs); err != nil {
		return storeError(c, h.Env, "Failed to set route", err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"success": true,
		"message": "Personal route updated",
		"count":   len(placeIDs),
	})
}

// RemoveStop handles DELETE /api/groups/:id/route/places/:place_id.
// Without an override the default is copied first, so the removal only
// affects the caller.
func (h *RouteHandler) RemoveStop(c echo.Context) error {
	uid := userOf(c)
	if uid == nil {
		return notAuthenticated(c)
	}
	groupID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return badRequest(c, "invalid group id")
	}
	placeID, err := strconv.ParseInt(c.Param("place_id"), 10, 64)
	if err != nil {
		return badRequest(c, "invalid place id")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	conn, err := h.DB.Acquire(ctx, roleOf(c))
	if err != nil {
		return storeError(c, h.Env, "Database connection failed", err)
	}
	defer conn.Release()

	if err := h.requireMember(ctx, conn, groupID, *uid); err != nil {
		return memberError(c, err)
	}

	removed, err := h.Routes.RemoveStop(ctx, conn, groupID, *uid, placeID)
	if err != nil {
		return storeError(c, h.Env, "Failed to update route", err)
	}
	if !removed {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "Place not found in route"})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"success": true,
		"message": "Place removed from your route",
	})
}

func bindRoute(c echo.Context) ([]int64, error) {
	var req setRouteReq
	if err := c.Bind(&req); err != nil {
		return nil, errors.New("invalid body")
	}
	seen := make(map[int64]bool, len(req.PlaceIDs))
	for _, id := range req.PlaceIDs {
		if id <= 0 {
			return nil, errors.New("place_ids must be positive")
		}
		if seen[id] {
			return nil, errors.New("place_ids must not repeat")
		}
		seen[id] = true
	}
	return req.PlaceIDs, nil
}

var errNotMember = errors.New("not a group member")

func (h *RouteHandler) requireMember(ctx context.Context, db database.Querier, groupID, userID int64) error {
	_, member, err := h.Groups.MemberRole(ctx, db, groupID, userID)
	if err != nil {
		return err
	}
	if !member {
		return errNotMember
	}
	return nil
}

func memberError(c echo.Context, err error) error {
	if errors.Is(err, errNotMember) {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "You are not a member of this group"})
	}
	return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to check group membership"})
}
