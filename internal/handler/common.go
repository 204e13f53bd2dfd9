// Package handler exposes the HTTP handlers. Each handler struct bundles
// the connection source and the repositories it queries; handlers acquire
// a connection scoped to the caller's role so the database enforces
// grants underneath the application-level checks.
package handler

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"geoplaces/internal/database"
	"geoplaces/internal/middleware"
	"geoplaces/internal/model"
	"geoplaces/internal/repository"
	"geoplaces/internal/utils"
)

// ConnSource hands out role-scoped database connections. *database.Router
// satisfies it; tests substitute a stub.
type ConnSource interface {
	Acquire(ctx context.Context, role model.Role) (*database.Conn, error)
	AcquireAdmin(ctx context.Context) (*database.Conn, error)
}

// errorBody builds the error envelope. details is only exposed in the
// dev profile so internals never leak from production responses.
func errorBody(env, msg string, err error) echo.Map {
	body := echo.Map{"error": msg}
	if env == "dev" && err != nil {
		body["details"] = err.Error()
	}
	return body
}

// storeError maps repository sentinels onto the HTTP taxonomy. Anything
// unrecognized is a 500.
func storeError(c echo.Context, env, msg string, err error) error {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "Not found"})
	case errors.Is(err, repository.ErrPrivilege):
		return c.JSON(http.StatusForbidden, errorBody(env,
			"Permission denied: database rejected the operation", err))
	case errors.Is(err, repository.ErrDuplicate):
		return c.JSON(http.StatusBadRequest, errorBody(env, "Already exists", err))
	case errors.Is(err, repository.ErrConflict):
		return c.JSON(http.StatusConflict, errorBody(env, "Conflict", err))
	}
	return c.JSON(http.StatusInternalServerError, errorBody(env, msg, err))
}

func badRequest(c echo.Context, msg string) error {
	return c.JSON(http.StatusBadRequest, echo.Map{"error": msg})
}

func notAuthenticated(c echo.Context) error {
	return c.JSON(http.StatusUnauthorized, echo.Map{
		"error":   "Not authenticated",
		"message": "Please login first",
	})
}

// writeDecision translates a permission denial into its HTTP response.
func writeDecision(c echo.Context, d model.Decision) error {
	if d.Reason == model.DenyNotAuthenticated {
		return c.JSON(http.StatusUnauthorized, echo.Map{
			"error":   "Not authenticated",
			"message": d.Message,
		})
	}
	return c.JSON(http.StatusForbidden, echo.Map{
		"error":   "Permission denied",
		"message": d.Message,
	})
}

// queryFloat parses an optional float query parameter.
func queryFloat(c echo.Context, name string) (*float64, error) {
	raw := strings.TrimSpace(c.QueryParam(name))
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil, fmt.Errorf("%s must be a number", name)
	}
	return &v, nil
}

// requireFloat parses a mandatory float query parameter.
func requireFloat(c echo.Context, name string) (float64, error) {
	v, err := queryFloat(c, name)
	if err != nil {
		return 0, err
	}
	if v == nil {
		return 0, fmt.Errorf("%s parameter required", name)
	}
	return *v, nil
}

func validCoords(lat, lon float64) error {
	if math.IsNaN(lat) || lat < -90 || lat > 90 {
		return fmt.Errorf("lat must be between -90 and 90")
	}
	if math.IsNaN(lon) || lon < -180 || lon > 180 {
		return fmt.Errorf("lon must be between -180 and 180")
	}
	return nil
}

// searchFilter reads the shared optional filters. The state filter is
// expanded to its name/abbreviation variants; place_type is a comma list
// passed through untouched, so unknown categories yield empty results
// rather than errors.
func searchFilter(c echo.Context) repository.SearchFilter {
	f := repository.SearchFilter{
		States: utils.StateVariants(c.QueryParam("state")),
		Name:   strings.TrimSpace(c.QueryParam("name")),
	}
	if raw := strings.TrimSpace(c.QueryParam("place_type")); raw != "" {
		for _, t := range strings.Split(raw, ",") {
			if t = strings.TrimSpace(t); t != "" {
				f.Types = append(f.Types, t)
			}
		}
	}
	return f
}

// round2 keeps distances at two decimals, matching the exports.
func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// roleOf is shorthand for the identity accessors handlers use constantly.
func roleOf(c echo.Context) model.Role { return middleware.CurrentRole(c) }
func userOf(c echo.Context) *int64     { return middleware.CurrentUserID(c) }
