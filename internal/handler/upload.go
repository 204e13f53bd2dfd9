package handler

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"geoplaces/internal/database"
	"geoplaces/internal/model"
	"geoplaces/internal/queue"
	"geoplaces/internal/repository"
)

// PlaceImporter is the bulk-insert slice of the place repository.
type PlaceImporter interface {
	ImportPlaces(ctx context.Context, conn *database.Conn, rows []repository.ImportPlace) (repository.ImportResult, error)
}

// UploadHandler accepts a CSV of places and bulk-inserts them. Admin only.
type UploadHandler struct {
	Env    string
	DB     ConnSource
	Places PlaceImporter
	Events EventPublisher
}

func NewUploadHandler(env string, db ConnSource, places PlaceImporter, events EventPublisher) *UploadHandler {
	return &UploadHandler{Env: env, DB: db, Places: places, Events: events}
}

var requiredCSVColumns = []string{"name", "lat", "lon"}

// CSV handles POST /places/upload-csv. Rows that fail field validation
// are skipped with a per-row reason; the surviving rows go to the
// repository in one transaction. The response is 200 even when every row
// was skipped, with the tallies in the summary.
func (h *UploadHandler) CSV(c echo.Context) error {
	if d := model.Authorize(roleOf(c), model.ActionUploadCSV, nil, userOf(c)); !d.Allowed {
		return writeDecision(c, d)
	}

	fh, err := c.FormFile("file")
	if err != nil {
		return badRequest(c, "No file provided. Please upload a CSV file.")
	}
	if !strings.HasSuffix(strings.ToLower(fh.Filename), ".csv") {
		return badRequest(c, "File must be a CSV file")
	}
	src, err := fh.Open()
	if err != nil {
		return badRequest(c, "Failed to read uploaded file")
	}
	defer src.Close()

	reader := csv.NewReader(src)
	reader.FieldsPerRecord = -1
	header, err := reader.Read()
	if err != nil {
		return badRequest(c, "CSV file is empty or invalid")
	}

	// Column lookup is case-insensitive; the first occurrence wins.
	colIdx := make(map[string]int, len(header))
	for i, name := range header {
		key := strings.ToLower(strings.TrimSpace(name))
		if _, seen := colIdx[key]; !seen {
			colIdx[key] = i
		}
	}
	var missing []string
	for _, col := range requiredCSVColumns {
		if _, ok := colIdx[col]; !ok {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{
			"error":    "Missing required columns: " + strings.Join(missing, ", "),
			"required": requiredCSVColumns,
			"found":    header,
		})
	}

	var (
		rows    []repository.ImportPlace
		skipped int
		errs    []string
	)
	for line := 2; ; line++ {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			errs = append(errs, fmt.Sprintf("Row %d: Unreadable row - %v", line, err))
			skipped++
			continue
		}
		field := func(name string) string {
			i, ok := colIdx[name]
			if !ok || i >= len(record) {
				return ""
			}
			return strings.TrimSpace(record[i])
		}

		ptype := model.PlaceType(strings.ToLower(field("place_type")))
		if ptype == "" {
			ptype = model.TypeBrewery
		}
		if !model.ValidPlaceType(ptype) {
			errs = append(errs, fmt.Sprintf("Row %d: Invalid place_type '%s'. Must be one of: brewery, restaurant, tourist_place, hotel", line, ptype))
			skipped++
			continue
		}
		name := field("name")
		if name == "" {
			errs = append(errs, fmt.Sprintf("Row %d: Name is required", line))
			skipped++
			continue
		}
		latStr, lonStr := field("lat"), field("lon")
		if latStr == "" || lonStr == "" {
			errs = append(errs, fmt.Sprintf("Row %d: Latitude and longitude are required", line))
			skipped++
			continue
		}
		lat, latErr := strconv.ParseFloat(latStr, 64)
		lon, lonErr := strconv.ParseFloat(lonStr, 64)
		if latErr != nil || lonErr != nil {
			errs = append(errs, fmt.Sprintf("Row %d: Invalid coordinates - not a number", line))
			skipped++
			continue
		}
		if err := validCoords(lat, lon); err != nil {
			errs = append(errs, fmt.Sprintf("Row %d: Invalid coordinates - %v", line, err))
			skipped++
			continue
		}

		sourceID := field("source_id")
		if sourceID == "" {
			sourceID = "csv_" + strings.ReplaceAll(uuid.New().String(), "-", "")[:12]
		}
		country := field("country")
		if country == "" {
			country = "US"
		}

		td := csvTypeData(ptype, field)
		rows = append(rows, repository.ImportPlace{
			Line: line,
			Place: model.Place{
				SourceID:  sourceID,
				Name:      name,
				City:      field("city"),
				State:     field("state"),
				Country:   country,
				Lat:       lat,
				Lon:       lon,
				CreatedBy: userOf(c),
			},
			Type:     ptype,
			TypeData: td,
		})
	}

	var res repository.ImportResult
	if len(rows) > 0 {
		ctx, cancel := context.WithTimeout(c.Request().Context(), 60*time.Second)
		defer cancel()

		conn, err := h.DB.Acquire(ctx, roleOf(c))
		if err != nil {
			return storeError(c, h.Env, "Database connection failed", err)
		}
		defer conn.Release()

		res, err = h.Places.ImportPlaces(ctx, conn, rows)
		if err != nil {
			return storeError(c, h.Env, "Failed to process CSV file", err)
		}
	}

	skipped += len(res.Duplicates) + len(res.Failures)
	for _, f := range res.Duplicates {
		errs = append(errs, fmt.Sprintf("Row %d: %s", f.Line, f.Reason))
	}
	for _, f := range res.Failures {
		errs = append(errs, fmt.Sprintf("Row %d: %s", f.Line, f.Reason))
	}

	if res.Inserted > 0 && h.Events != nil {
		ev := queue.PlaceChangedEvent{
			Action:    "imported",
			Count:     res.Inserted,
			ActorRole: string(roleOf(c)),
			ActorID:   userOf(c),
		}
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			_ = h.Events.PlaceChanged(ctx, ev)
		}()
	}

	if len(errs) > 20 {
		errs = errs[:20]
	}
	if errs == nil {
		errs = []string{}
	}
	return c.JSON(http.StatusOK, echo.Map{
		"success": true,
		"message": "CSV upload completed",
		"summary": echo.Map{
			"inserted":   res.Inserted,
			"skipped":    skipped,
			"total_rows": res.Inserted + skipped,
		},
		"errors":      errs,
		"error_count": len(errs),
	})
}

// csvTypeData pulls the type-specific extension columns out of a row.
func csvTypeData(t model.PlaceType, field func(string) string) model.TypeData {
	td := model.TypeData{
		Website:    field("website"),
		Phone:      field("phone"),
		Street:     field("street"),
		PostalCode: field("postal_code"),
	}
	switch t {
	case model.TypeBrewery:
		td.BreweryType = field("brewery_type")
		if td.BreweryType == "" {
			td.BreweryType = "micro"
		}
	case model.TypeRestaurant:
		td.CuisineType = field("cuisine_type")
		td.PriceRange = csvInt(field("price_range"))
		td.Rating = csvFloat(field("rating"))
		td.HoursOfOperation = field("hours_of_operation")
	case model.TypeTouristPlace:
		td.TouristType = field("tourist_type")
		td.Rating = csvFloat(field("rating"))
		td.EntryFee = csvFloat(field("entry_fee"))
		td.Description = field("description")
	case model.TypeHotel:
		td.StarRating = csvInt(field("star_rating"))
		td.Rating = csvFloat(field("rating"))
		td.PricePerNight = csvFloat(field("price_per_night"))
		td.CheckInTime = field("check_in_time")
		td.CheckOutTime = field("check_out_time")
		if raw := field("amenities"); raw != "" {
			for _, a := range strings.Split(raw, ",") {
				if a = strings.TrimSpace(a); a != "" {
					td.Amenities = append(td.Amenities, a)
				}
			}
		}
	}
	return td
}

func csvInt(s string) *int {
	if s == "" {
		return nil
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return nil
	}
	return &v
}

func csvFloat(s string) *float64 {
	if s == "" {
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	return &v
}
