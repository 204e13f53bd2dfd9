package handler

import (
	"context"
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

// PlaceMutator is the CRUD slice of the place repository.
type PlaceMutator interface {
	Insert(ctx context.Context, conn *database.Conn, p model.Place, t model.PlaceType, td model.TypeData) (int64, error)
	Update(ctx context.Context, db database.Querier, id int64, u repository.PlaceUpdate) (repository.UpdatedPlace, error)
	Owner(ctx context.Context, db database.Querier, id int64) (*int64, error)
	Delete(ctx context.Context, db database.Querier, id int64) (string, error)
	MyAdded(ctx context.Context, db database.Querier, userID int64) ([]model.OwnedPlace, error)
}

// EventPublisher pushes place-change events to the broker. A nil
// publisher disables events.
type EventPublisher interface {
	PlaceChanged(ctx context.Context, ev queue.PlaceChangedEvent) error
}

// PlaceHandler covers manual place management: add, update, delete and
// the caller's own additions.
type PlaceHandler struct {
	Env    string
	DB     ConnSource
	Places PlaceMutator
	Events EventPublisher
}

func NewPlaceHandler(env string, db ConnSource, places PlaceMutator, events EventPublisher) *PlaceHandler {
	return &PlaceHandler{Env: env, DB: db, Places: places, Events: events}
}

type addPlaceReq struct {
	Name      string         `json:"name"`
	City      string         `json:"city"`
	State     string         `json:"state"`
	Country   string         `json:"country"`
	Lat       *float64       `json:"lat"`
	Lon       *float64       `json:"lon"`
	PlaceType string         `json:"place_type"`
	TypeData  model.TypeData `json:"type_data"`
}

// Add handles POST /places/add. The insert runs under the caller's role,
// so the application-level gate can pass and the database still refuse.
func (h *PlaceHandler) Add(c echo.Context) error {
	if d := model.Authorize(roleOf(c), model.ActionAddPlace, nil, userOf(c)); !d.Allowed {
		return writeDecision(c, d)
	}

	var req addPlaceReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		return badRequest(c, "Name is required")
	}
	if req.Lat == nil || req.Lon == nil {
		return badRequest(c, "Latitude and longitude are required")
	}
	if err := validCoords(*req.Lat, *req.Lon); err != nil {
		return badRequest(c, "Invalid coordinates: "+err.Error())
	}
	if req.PlaceType == "" {
		req.PlaceType = string(model.TypeBrewery)
	}
	ptype := model.PlaceType(req.PlaceType)
	if !model.ValidPlaceType(ptype) {
		return badRequest(c, "Invalid place_type. Must be one of: brewery, restaurant, tourist_place, hotel")
	}
	if req.Country == "" {
		req.Country = "US"
	}
	if ptype == model.TypeBrewery && req.TypeData.BreweryType == "" {
		req.TypeData.BreweryType = "micro"
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	conn, err := h.DB.Acquire(ctx, roleOf(c))
	if err != nil {
		return storeError(c, h.Env, "Database connection failed", err)
	}
	defer conn.Release()

	place := model.Place{
		SourceID:  "manual_" + strings.ReplaceAll(uuid.New().String(), "-", "")[:12],
		Name:      req.Name,
		City:      req.City,
		State:     req.State,
		Country:   req.Country,
		Lat:       *req.Lat,
		Lon:       *req.Lon,
		CreatedBy: userOf(c),
	}
	id, err := h.Places.Insert(ctx, conn, place, ptype, req.TypeData)
	if err != nil {
		return storeError(c, h.Env, "Failed to add location", err)
	}

	h.publish(c, queue.PlaceChangedEvent{
		Action: "added", PlaceID: id, PlaceName: place.Name, PlaceType: string(ptype),
	})

	return c.JSON(http.StatusCreated, echo.Map{
		"success": true,
		"message": "Location added successfully",
		"place": echo.Map{
			"id":         id,
			"name":       place.Name,
			"city":       place.City,
			"state":      place.State,
			"country":    place.Country,
			"lat":        place.Lat,
			"lon":        place.Lon,
			"place_type": ptype,
		},
		"role": roleOf(c),
	})
}

type updatePlaceReq struct {
	Name    *string  `json:"name"`
	City    *string  `json:"city"`
	State   *string  `json:"state"`
	Country *string  `json:"country"`
	Lat     *float64 `json:"lat"`
	Lon     *float64 `json:"lon"`
}

// Update handles PUT /api/places/:id. Admin edits anything; app and
// curator users only their own places.
func (h *PlaceHandler) Update(c echo.Context) error {
	if roleOf(c) == model.RoleNone {
		return notAuthenticated(c)
	}
	placeID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return badRequest(c, "invalid place id")
	}

	var req updatePlaceReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	if (req.Lat == nil) != (req.Lon == nil) {
		return badRequest(c, "lat and lon must be provided together")
	}
	if req.Lat != nil {
		if err := validCoords(*req.Lat, *req.Lon); err != nil {
			return badRequest(c, "Invalid coordinates: "+err.Error())
		}
	}
	upd := repository.PlaceUpdate{
		Name: req.Name, City: req.City, State: req.State, Country: req.Country,
		Lat: req.Lat, Lon: req.Lon,
	}
	if req.Name != nil && strings.TrimSpace(*req.Name) == "" {
		upd.Name = nil
	}
	if upd.Empty() && req.Lat == nil {
		return badRequest(c, "No valid fields to update")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	conn, err := h.DB.Acquire(ctx, roleOf(c))
	if err != nil {
		return storeError(c, h.Env, "Database connection failed", err)
	}
	defer conn.Release()

	owner, err := h.Places.Owner(ctx, conn, placeID)
	if err != nil {
		return storeError(c, h.Env, "Failed to update place", err)
	}
	if d := model.Authorize(roleOf(c), model.ActionUpdatePlace, owner, userOf(c)); !d.Allowed {
		return writeDecision(c, d)
	}

	place, err := h.Places.Update(ctx, conn, placeID, upd)
	if err != nil {
		return storeError(c, h.Env, "Failed to update place", err)
	}

	h.publish(c, queue.PlaceChangedEvent{
		Action: "updated", PlaceID: place.ID, PlaceName: place.Name,
	})

	return c.JSON(http.StatusOK, echo.Map{
		"success": true,
		"message": "Place updated successfully",
		"place":   place,
	})
}

// Delete handles DELETE /api/places/:id. Admin deletes anything; curator
// only their own places.
func (h *PlaceHandler) Delete(c echo.Context) error {
	if roleOf(c) == model.RoleNone {
		return notAuthenticated(c)
	}
	placeID, err := strconv.ParseInt(c.Param("id"), 10, 64)
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

	owner, err := h.Places.Owner(ctx, conn, placeID)
	if err != nil {
		return storeError(c, h.Env, "Failed to delete place", err)
	}
	if d := model.Authorize(roleOf(c), model.ActionDeletePlace, owner, userOf(c)); !d.Allowed {
		return writeDecision(c, d)
	}

	name, err := h.Places.Delete(ctx, conn, placeID)
	if err != nil {
		return storeError(c, h.Env, "Failed to delete place", err)
	}

	h.publish(c, queue.PlaceChangedEvent{
		Action: "deleted", PlaceID: placeID, PlaceName: name,
	})

	return c.JSON(http.StatusOK, echo.Map{
		"success": true,
		"message": "Place '" + name + "' deleted successfully",
	})
}

// MyAdded handles GET /api/places/my-added.
func (h *PlaceHandler) MyAdded(c echo.Context) error {
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

	places, err := h.Places.MyAdded(ctx, conn, *uid)
	if err != nil {
		return storeError(c, h.Env, "Failed to get places", err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"success": true,
		"places":  places,
		"count":   len(places),
	})
}

// publish fires the event in the background; mutations never wait on the
// broker.
func (h *PlaceHandler) publish(c echo.Context, ev queue.PlaceChangedEvent) {
	if h.Events == nil {
		return
	}
	ev.ActorRole = string(roleOf(c))
	ev.ActorID = userOf(c)
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = h.Events.PlaceChanged(ctx, ev)
	}()
}
