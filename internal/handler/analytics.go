package handler

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"geoplaces/internal/database"
	"geoplaces/internal/repository"
)

// PlaceAnalytics is the aggregate-query slice of the place repository.
type PlaceAnalytics interface {
	Stats(ctx context.Context, db database.Querier) (repository.Stats, error)
	StatesAnalytics(ctx context.Context, db database.Querier) ([]repository.StateAnalytics, error)
	DensityCount(ctx context.Context, db database.Querier, lat, lon, radiusKM float64) (int64, error)
	Distance(ctx context.Context, db database.Querier, lat1, lon1, lat2, lon2 float64) (float64, error)
}

// AnalyticsHandler serves dataset statistics and the distance matrix.
type AnalyticsHandler struct {
	Env    string
	DB     ConnSource
	Places PlaceAnalytics
}

func NewAnalyticsHandler(env string, db ConnSource, places PlaceAnalytics) *AnalyticsHandler {
	return &AnalyticsHandler{Env: env, DB: db, Places: places}
}

// Stats handles GET /stats: total count, top-10 states, coordinate bounds.
func (h *AnalyticsHandler) Stats(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	conn, err := h.DB.Acquire(ctx, roleOf(c))
	if err != nil {
		return storeError(c, h.Env, "Database connection failed", err)
	}
	defer conn.Release()

	stats, err := h.Places.Stats(ctx, conn)
	if err != nil {
		return storeError(c, h.Env, "Database query failed", err)
	}
	return c.JSON(http.StatusOK, stats)
}

// States handles GET /analytics/states: per-state counts and centroids.
func (h *AnalyticsHandler) States(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	conn, err := h.DB.Acquire(ctx, roleOf(c))
	if err != nil {
		return storeError(c, h.Env, "Database connection failed", err)
	}
	defer conn.Release()

	states, err := h.Places.StatesAnalytics(ctx, conn)
	if err != nil {
		return storeError(c, h.Env, "Analytics failed", err)
	}
	for i := range states {
		if states[i].AvgLat != nil {
			v := round4(*states[i].AvgLat)
			states[i].AvgLat = &v
		}
		if states[i].AvgLon != nil {
			v := round4(*states[i].AvgLon)
			states[i].AvgLon = &v
		}
	}
	return c.JSON(http.StatusOK, echo.Map{"states": states, "total": len(states)})
}

func round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}

// Density handles GET /analytics/density?lat&lon&radius: place count and
// density per 1000 km² within the circle.
func (h *AnalyticsHandler) Density(c echo.Context) error {
	lat, err := requireFloat(c, "lat")
	if err != nil {
		return badRequest(c, err.Error())
	}
	lon, err := requireFloat(c, "lon")
	if err != nil {
		return badRequest(c, err.Error())
	}
	radius := 100.0
	if v, err := queryFloat(c, "radius"); err != nil {
		return badRequest(c, err.Error())
	} else if v != nil {
		radius = *v
	}
	if err := validCoords(lat, lon); err != nil {
		return badRequest(c, err.Error())
	}
	if radius <= 0 || radius > 1000 {
		return badRequest(c, "radius must be between 0 and 1000")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	conn, err := h.DB.Acquire(ctx, roleOf(c))
	if err != nil {
		return storeError(c, h.Env, "Database connection failed", err)
	}
	defer conn.Release()

	count, err := h.Places.DensityCount(ctx, conn, lat, lon, radius)
	if err != nil {
		return storeError(c, h.Env, "Density analysis failed", err)
	}

	areaKM2 := 3.14159 * radius * radius
	density := 0.0
	if areaKM2 > 0 {
		density = float64(count) / areaKM2 * 1000
	}
	return c.JSON(http.StatusOK, echo.Map{
		"center":               echo.Map{"lat": lat, "lon": lon},
		"radius_km":            radius,
		"count":                count,
		"density_per_1000_km2": round2(density),
	})
}

// DistanceMatrix handles GET /distance_matrix?points=lat,lon;lat,lon;...
// computing pairwise geography distances for up to a handful of points.
func (h *AnalyticsHandler) DistanceMatrix(c echo.Context) error {
	raw := strings.TrimSpace(c.QueryParam("points"))
	if raw == "" {
		return badRequest(c, "points parameter required")
	}

	type point struct{ lat, lon float64 }
	var points []point
	for i, part := range strings.Split(raw, ";") {
		fields := strings.Split(part, ",")
		if len(fields) != 2 {
			return badRequest(c, fmt.Sprintf("Invalid coordinates at point %d", i+1))
		}
		var p point
		var err error
		if p.lat, err = strconv.ParseFloat(strings.TrimSpace(fields[0]), 64); err != nil {
			return badRequest(c, fmt.Sprintf("Invalid coordinates at point %d", i+1))
		}
		if p.lon, err = strconv.ParseFloat(strings.TrimSpace(fields[1]), 64); err != nil {
			return badRequest(c, fmt.Sprintf("Invalid coordinates at point %d", i+1))
		}
		if err := validCoords(p.lat, p.lon); err != nil {
			return badRequest(c, fmt.Sprintf("Invalid coordinates at point %d", i+1))
		}
		points = append(points, p)
	}
	if len(points) < 2 {
		return badRequest(c, "At least 2 points required")
	}
	if len(points) > 10 {
		return badRequest(c, "At most 10 points supported")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 15*time.Second)
	defer cancel()

	conn, err := h.DB.Acquire(ctx, roleOf(c))
	if err != nil {
		return storeError(c, h.Env, "Database connection failed", err)
	}
	defer conn.Release()

	matrix := make([]echo.Map, 0, len(points))
	for _, from := range points {
		distances := make([]float64, 0, len(points))
		for _, to := range points {
			km, err := h.Places.Distance(ctx, conn, from.lat, from.lon, to.lat, to.lon)
			if err != nil {
				return storeError(c, h.Env, "Distance matrix calculation failed", err)
			}
			distances = append(distances, round2(km))
		}
		matrix = append(matrix, echo.Map{
			"point":     echo.Map{"lat": from.lat, "lon": from.lon},
			"distances": distances,
		})
	}
	return c.JSON(http.StatusOK, echo.Map{"matrix": matrix, "units": "kilometers"})
}
