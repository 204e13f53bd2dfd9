package handler

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"geoplaces/internal/database"
	"geoplaces/internal/repository"
)

// PlaceExporter is the export slice of the place repository.
type PlaceExporter interface {
	Export(ctx context.Context, db database.Querier, state, name string, limit int, withGeometry bool) ([]repository.ExportRow, error)
}

// ExportHandler streams the dataset as CSV or GeoJSON.
type ExportHandler struct {
	Env    string
	DB     ConnSource
	Places PlaceExporter
}

func NewExportHandler(env string, db ConnSource, places PlaceExporter) *ExportHandler {
	return &ExportHandler{Env: env, DB: db, Places: places}
}

func (h *ExportHandler) exportParams(c echo.Context) (state, name string, limit int, err error) {
	state = strings.TrimSpace(c.QueryParam("state"))
	name = strings.TrimSpace(c.QueryParam("name"))
	if raw := strings.TrimSpace(c.QueryParam("limit")); raw != "" {
		limit, err = strconv.Atoi(raw)
		if err != nil || limit <= 0 {
			return "", "", 0, errBadLimit
		}
	}
	return state, name, limit, nil
}

var errBadLimit = errors.New("limit must be a positive integer")

// CSV handles GET /export/csv, delivered as an attachment.
func (h *ExportHandler) CSV(c echo.Context) error {
	state, name, limit, err := h.exportParams(c)
	if err != nil {
		return badRequest(c, "limit must be a positive integer")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 30*time.Second)
	defer cancel()

	conn, err := h.DB.Acquire(ctx, roleOf(c))
	if err != nil {
		return storeError(c, h.Env, "Database connection failed", err)
	}
	defer conn.Release()

	rows, err := h.Places.Export(ctx, conn, state, name, limit, false)
	if err != nil {
		return storeError(c, h.Env, "Export failed", err)
	}

	c.Response().Header().Set(echo.HeaderContentType, "text/csv")
	c.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename=places.csv`)
	c.Response().WriteHeader(http.StatusOK)

	w := csv.NewWriter(c.Response())
	if err := w.Write([]string{"id", "name", "city", "state", "country", "lat", "lon"}); err != nil {
		return err
	}
	for _, r := range rows {
		rec := []string{
			strconv.FormatInt(r.ID, 10),
			r.Name,
			strOrEmpty(r.City),
			strOrEmpty(r.State),
			strOrEmpty(r.Country),
			floatOrEmpty(r.Lat),
			floatOrEmpty(r.Lon),
		}
		if err := w.Write(rec); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

// GeoJSON handles GET /export/geojson as a FeatureCollection whose
// geometries come straight from ST_AsGeoJSON.
func (h *ExportHandler) GeoJSON(c echo.Context) error {
	state, name, limit, err := h.exportParams(c)
	if err != nil {
		return badRequest(c, "limit must be a positive integer")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 30*time.Second)
	defer cancel()

	conn, err := h.DB.Acquire(ctx, roleOf(c))
	if err != nil {
		return storeError(c, h.Env, "Database connection failed", err)
	}
	defer conn.Release()

	rows, err := h.Places.Export(ctx, conn, state, name, limit, true)
	if err != nil {
		return storeError(c, h.Env, "Export failed", err)
	}

	type feature struct {
		Type       string          `json:"type"`
		Properties echo.Map        `json:"properties"`
		Geometry   json.RawMessage `json:"geometry"`
	}
	features := make([]feature, 0, len(rows))
	for _, r := range rows {
		geom := r.Geometry
		if len(geom) == 0 {
			geom = json.RawMessage("null")
		}
		features = append(features, feature{
			Type: "Feature",
			Properties: echo.Map{
				"id":      r.ID,
				"name":    r.Name,
				"city":    r.City,
				"state":   r.State,
				"country": r.Country,
				"lat":     r.Lat,
				"lon":     r.Lon,
			},
			Geometry: geom,
		})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"type":     "FeatureCollection",
		"features": features,
	})
}

func strOrEmpty(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func floatOrEmpty(f *float64) string {
	if f == nil {
		return ""
	}
	return strconv.FormatFloat(*f, 'f', -1, 64)
}
