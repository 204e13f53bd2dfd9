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

// ListStore is the personal-list slice of the list repository.
type ListStore interface {
	Places(ctx context.Context, db database.Querier, kind model.ListKind, userID int64, refLat, refLon *float64) ([]model.ListPlace, error)
	AddVisited(ctx context.Context, db database.Querier, userID, placeID int64, notes *string) error
	AddWishlist(ctx context.Context, db database.Querier, userID, placeID int64, priority int, notes *string) error
	AddLiked(ctx context.Context, db database.Querier, userID, placeID int64, rating *int, notes *string) error
	Remove(ctx context.Context, db database.Querier, kind model.ListKind, userID, placeID int64) (bool, error)
	Status(ctx context.Context, db database.Querier, userID, placeID int64) (model.ListStatus, error)
}

// PlaceFinder checks place existence before a list mutation.
type PlaceFinder interface {
	Owner(ctx context.Context, db database.Querier, id int64) (*int64, error)
}

// ListHandler serves the three personal lists and the per-place status.
type ListHandler struct {
	Env    string
	DB     ConnSource
	Lists  ListStore
	Places PlaceFinder
}

func NewListHandler(env string, db ConnSource, lists ListStore, places PlaceFinder) *ListHandler {
	return &ListHandler{Env: env, DB: db, Lists: lists, Places: places}
}

var addedMessages = map[model.ListKind]string{
	model.ListVisited:  "Place marked as visited",
	model.ListWishlist: "Added to wishlist",
	model.ListLiked:    "Place liked",
}

var removedMessages = map[model.ListKind]string{
	model.ListVisited:  "Removed from visited list",
	model.ListWishlist: "Removed from wishlist",
	model.ListLiked:    "Removed from liked list",
}

// Get handles GET /api/user/{visited,wishlist,liked}. An optional
// ?lat&lon reference point adds distance_km and orders nearest first.
func (h *ListHandler) Get(kind model.ListKind) echo.HandlerFunc {
	return func(c echo.Context) error {
		uid := userOf(c)
		if uid == nil {
			return notAuthenticated(c)
		}
		refLat, err := queryFloat(c, "lat")
		if err != nil {
			return badRequest(c, err.Error())
		}
		refLon, err := queryFloat(c, "lon")
		if err != nil {
			return badRequest(c, err.Error())
		}
		if (refLat == nil) != (refLon == nil) {
			return badRequest(c, "lat and lon must be provided together")
		}
		if refLat != nil {
			if err := validCoords(*refLat, *refLon); err != nil {
				return badRequest(c, err.Error())
			}
		}

		ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
		defer cancel()

		conn, err := h.DB.Acquire(ctx, roleOf(c))
		if err != nil {
			return storeError(c, h.Env, "Database connection failed", err)
		}
		defer conn.Release()

		places, err := h.Lists.Places(ctx, conn, kind, *uid, refLat, refLon)
		if err != nil {
			return storeError(c, h.Env, "Failed to get "+string(kind)+" list", err)
		}
		for i := range places {
			if places[i].DistanceKM != nil {
				r := round2(*places[i].DistanceKM)
				places[i].DistanceKM = &r
			}
		}

		var refLoc any
		if refLat != nil {
			refLoc = echo.Map{"lat": *refLat, "lon": *refLon}
		}
		return c.JSON(http.StatusOK, echo.Map{
			"success":            true,
			"places":             places,
			"count":              len(places),
			"reference_location": refLoc,
		})
	}
}

type listAddReq struct {
	PlaceID  int64  `json:"place_id"`
	Notes    string `json:"notes"`
	Priority *int   `json:"priority"`
	Rating   *int   `json:"rating"`
}

// Add handles POST /api/user/{visited,wishlist,liked}. Re-adding updates
// the entry in place: wishlist priority clamps to 1 when out of 1-3,
// liked ratings outside 1-5 are dropped rather than rejected.
func (h *ListHandler) Add(kind model.ListKind) echo.HandlerFunc {
	return func(c echo.Context) error {
		uid := userOf(c)
		if uid == nil {
			return notAuthenticated(c)
		}
		var req listAddReq
		if err := c.Bind(&req); err != nil {
			return badRequest(c, "invalid body")
		}
		if req.PlaceID <= 0 {
			return badRequest(c, "place_id required")
		}
		var notes *string
		if s := strings.TrimSpace(req.Notes); s != "" {
			notes = &s
		}

		ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
		defer cancel()

		conn, err := h.DB.Acquire(ctx, roleOf(c))
		if err != nil {
			return storeError(c, h.Env, "Database connection failed", err)
		}
		defer conn.Release()

		if _, err := h.Places.Owner(ctx, conn, req.PlaceID); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return c.JSON(http.StatusNotFound, echo.Map{"error": "Place not found"})
			}
			return storeError(c, h.Env, "Failed to update list", err)
		}

		switch kind {
		case model.ListVisited:
			err = h.Lists.AddVisited(ctx, conn, *uid, req.PlaceID, notes)
		case model.ListWishlist:
			priority := 1
			if req.Priority != nil && *req.Priority >= 1 && *req.Priority <= 3 {
				priority = *req.Priority
			}
			err = h.Lists.AddWishlist(ctx, conn, *uid, req.PlaceID, priority, notes)
		case model.ListLiked:
			rating := req.Rating
			if rating != nil && (*rating < 1 || *rating > 5) {
				rating = nil
			}
			err = h.Lists.AddLiked(ctx, conn, *uid, req.PlaceID, rating, notes)
		}
		if err != nil {
			return storeError(c, h.Env, "Failed to update list", err)
		}

		return c.JSON(http.StatusCreated, echo.Map{
			"success": true,
			"message": addedMessages[kind],
		})
	}
}

// Remove handles DELETE /api/user/{visited,wishlist,liked}/:place_id.
// Removing an absent entry still succeeds.
func (h *ListHandler) Remove(kind model.ListKind) echo.HandlerFunc {
	return func(c echo.Context) error {
		uid := userOf(c)
		if uid == nil {
			return notAuthenticated(c)
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

		if _, err := h.Lists.Remove(ctx, conn, kind, *uid, placeID); err != nil {
			return storeError(c, h.Env, "Failed to update list", err)
		}
		return c.JSON(http.StatusOK, echo.Map{
			"success": true,
			"message": removedMessages[kind],
		})
	}
}

// PlaceStatus handles GET /api/user/place-status/:place_id. Anonymous
// callers get all-false defaults instead of a 401 so the map popup can
// always render.
func (h *ListHandler) PlaceStatus(c echo.Context) error {
	uid := userOf(c)
	if uid == nil {
		return c.JSON(http.StatusOK, model.ListStatus{})
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

	status, err := h.Lists.Status(ctx, conn, *uid, placeID)
	if err != nil {
		return storeError(c, h.Env, "Failed to get place status", err)
	}
	return c.JSON(http.StatusOK, status)
}
