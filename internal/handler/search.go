package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"geoplaces/internal/database"
	"geoplaces/internal/model"
	"geoplaces/internal/repository"
)

// PlaceSearcher is the slice of the place repository the spatial search
// endpoints use.
type PlaceSearcher interface {
	SearchRadius(ctx context.Context, db database.Querier, lat, lon, radiusKM float64, f repository.SearchFilter) ([]model.Feature, error)
	SearchNearest(ctx context.Context, db database.Querier, lat, lon float64, k int, f repository.SearchFilter) ([]model.Feature, error)
	SearchBBox(ctx context.Context, db database.Querier, north, south, east, west float64, f repository.SearchFilter) ([]model.Feature, error)
}

// StatusLoader resolves list membership for result decoration.
type StatusLoader interface {
	Statuses(ctx context.Context, db database.Querier, userID int64, placeIDs []int64) (map[int64]model.ListStatus, error)
}

// SearchHandler serves the three spatial queries. All validation happens
// before any connection is acquired.
type SearchHandler struct {
	Env    string
	DB     ConnSource
	Places PlaceSearcher
	Lists  StatusLoader
}

func NewSearchHandler(env string, db ConnSource, places PlaceSearcher, lists StatusLoader) *SearchHandler {
	return &SearchHandler{Env: env, DB: db, Places: places, Lists: lists}
}

// widenedRadius applies the state-filter radius floor: a state-filtered
// search narrower than 500 km is widened to 500 km so a search centered
// outside the state still finds its places. Searches without a state
// filter are never widened.
func widenedRadius(km float64, hasState bool) float64 {
	if hasState && km < 500 {
		return 500
	}
	return km
}

// WithinRadius handles GET /within_radius?lat&lon&km[&state&name&place_type].
func (h *SearchHandler) WithinRadius(c echo.Context) error {
	lat, err := requireFloat(c, "lat")
	if err != nil {
		return badRequest(c, err.Error())
	}
	lon, err := requireFloat(c, "lon")
	if err != nil {
		return badRequest(c, err.Error())
	}
	km := 10.0
	if v, err := queryFloat(c, "km"); err != nil {
		return badRequest(c, err.Error())
	} else if v != nil {
		km = *v
	}
	if err := validCoords(lat, lon); err != nil {
		return badRequest(c, err.Error())
	}
	if km <= 0 || km > 1000 {
		return badRequest(c, "km must be between 0 and 1000")
	}
	f := searchFilter(c)
	km = widenedRadius(km, len(f.States) > 0)

	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	conn, err := h.DB.Acquire(ctx, roleOf(c))
	if err != nil {
		return storeError(c, h.Env, "Database connection failed", err)
	}
	defer conn.Release()

	features, err := h.Places.SearchRadius(ctx, conn, lat, lon, km, f)
	if err != nil {
		return storeError(c, h.Env, "Database query failed", err)
	}
	if err := h.decorate(ctx, c, conn, features); err != nil {
		return storeError(c, h.Env, "Database query failed", err)
	}
	return c.JSON(http.StatusOK, echo.Map{"features": features, "count": len(features)})
}

// Nearest handles GET /nearest?lat&lon&k[&state&name&place_type].
func (h *SearchHandler) Nearest(c echo.Context) error {
	lat, err := requireFloat(c, "lat")
	if err != nil {
		return badRequest(c, err.Error())
	}
	lon, err := requireFloat(c, "lon")
	if err != nil {
		return badRequest(c, err.Error())
	}
	k := 10
	if raw := strings.TrimSpace(c.QueryParam("k")); raw != "" {
		k, err = strconv.Atoi(raw)
		if err != nil {
			return badRequest(c, "k must be an integer")
		}
	}
	if err := validCoords(lat, lon); err != nil {
		return badRequest(c, err.Error())
	}
	if k <= 0 || k > 100 {
		return badRequest(c, "k must be between 1 and 100")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	conn, err := h.DB.Acquire(ctx, roleOf(c))
	if err != nil {
		return storeError(c, h.Env, "Database connection failed", err)
	}
	defer conn.Release()

	features, err := h.Places.SearchNearest(ctx, conn, lat, lon, k, searchFilter(c))
	if err != nil {
		return storeError(c, h.Env, "Database query failed", err)
	}
	for i := range features {
		if features[i].DistanceKM != nil {
			r := round2(*features[i].DistanceKM)
			features[i].DistanceKM = &r
		}
	}
	if err := h.decorate(ctx, c, conn, features); err != nil {
		return storeError(c, h.Env, "Database query failed", err)
	}
	return c.JSON(http.StatusOK, echo.Map{"features": features, "count": len(features)})
}

// WithinBBox handles GET /within_bbox?north&south&east&west[&filters].
func (h *SearchHandler) WithinBBox(c echo.Context) error {
	var vals [4]float64
	for i, name := range [4]string{"north", "south", "east", "west"} {
		v, err := requireFloat(c, name)
		if err != nil {
			return badRequest(c, err.Error())
		}
		vals[i] = v
	}
	north, south, east, west := vals[0], vals[1], vals[2], vals[3]
	if err := validCoords(north, east); err != nil {
		return badRequest(c, err.Error())
	}
	if err := validCoords(south, west); err != nil {
		return badRequest(c, err.Error())
	}
	if north <= south {
		return badRequest(c, "north must be greater than south")
	}
	if east <= west {
		return badRequest(c, "east must be greater than west")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	conn, err := h.DB.Acquire(ctx, roleOf(c))
	if err != nil {
		return storeError(c, h.Env, "Database connection failed", err)
	}
	defer conn.Release()

	features, err := h.Places.SearchBBox(ctx, conn, north, south, east, west, searchFilter(c))
	if err != nil {
		return storeError(c, h.Env, "Database query failed", err)
	}
	if err := h.decorate(ctx, c, conn, features); err != nil {
		return storeError(c, h.Env, "Database query failed", err)
	}
	return c.JSON(http.StatusOK, echo.Map{"features": features, "count": len(features)})
}

// decorate attaches list_status to each feature for callers whose token
// carries a user id. One batched query regardless of result size.
func (h *SearchHandler) decorate(ctx context.Context, c echo.Context, conn *database.Conn, features []model.Feature) error {
	uid := userOf(c)
	if uid == nil || len(features) == 0 {
		return nil
	}
	ids := make([]int64, len(features))
	for i, ft := range features {
		ids[i] = ft.ID
	}
	statuses, err := h.Lists.Statuses(ctx, conn, *uid, ids)
	if err != nil {
		return err
	}
	for i := range features {
		st := statuses[features[i].ID]
		features[i].ListStatus = &st
	}
	return nil
}
