package handler

import (
	"context"
	"net/http"
	"strings"
	"testing"

	"geoplaces/internal/database"
	"geoplaces/internal/model"
	"geoplaces/internal/repository"
)

type fakeMutator struct {
	insertCalls int
	lastPlace   model.Place
	lastType    model.PlaceType
	lastData    model.TypeData

	owner    *int64
	ownerErr error

	updateCalls int
	deleteCalls int
}

func (f *fakeMutator) Insert(_ context.Context, _ *database.Conn, p model.Place, t model.PlaceType, td model.TypeData) (int64, error) {
	f.insertCalls++
	f.lastPlace, f.lastType, f.lastData = p, t, td
	return 101, nil
}

func (f *fakeMutator) Update(_ context.Context, _ database.Querier, id int64, _ repository.PlaceUpdate) (repository.UpdatedPlace, error) {
	f.updateCalls++
	return repository.UpdatedPlace{ID: id, Name: "Renamed"}, nil
}

func (f *fakeMutator) Owner(context.Context, database.Querier, int64) (*int64, error) {
	return f.owner, f.ownerErr
}

func (f *fakeMutator) Delete(_ context.Context, _ database.Querier, _ int64) (string, error) {
	f.deleteCalls++
	return "Jester King", nil
}

func (f *fakeMutator) MyAdded(context.Context, database.Querier, int64) ([]model.OwnedPlace, error) {
	return []model.OwnedPlace{{ID: 1, Name: "Mine"}}, nil
}

func TestAddPlaceRoleGate(t *testing.T) {
	places := &fakeMutator{}
	h := NewPlaceHandler("test", stubDB{}, places, nil)
	body := `{"name":"Jester King","lat":30.2,"lon":-98.0}`

	rec := perform(t, h.Add, jsonRequest(http.MethodPost, "/places/add", body), model.RoleNone, nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("anonymous status = %d, want 401", rec.Code)
	}

	rec = perform(t, h.Add, jsonRequest(http.MethodPost, "/places/add", body), model.RoleReadonly, nil)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("readonly status = %d, want 403", rec.Code)
	}
	if places.insertCalls != 0 {
		t.Fatal("denied add must not reach the store")
	}
}

func TestAddPlaceValidation(t *testing.T) {
	places := &fakeMutator{}
	h := NewPlaceHandler("test", stubDB{}, places, nil)

	cases := []struct {
		name string
		body string
	}{
		{"missing name", `{"lat":30.2,"lon":-98.0}`},
		{"missing coordinates", `{"name":"X"}`},
		{"lat out of range", `{"name":"X","lat":91,"lon":-98.0}`},
		{"invalid type", `{"name":"X","lat":30.2,"lon":-98.0,"place_type":"castle"}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := perform(t, h.Add, jsonRequest(http.MethodPost, "/places/add", tc.body), model.RoleApp, nil)
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400\n%s", rec.Code, rec.Body.String())
			}
		})
	}
	if places.insertCalls != 0 {
		t.Fatal("invalid add must not reach the store")
	}
}

func TestAddPlaceDefaultsAndResponse(t *testing.T) {
	places := &fakeMutator{}
	h := NewPlaceHandler("test", stubDB{}, places, nil)

	body := `{"name":"Jester King","lat":30.2,"lon":-98.0}`
	rec := perform(t, h.Add, jsonRequest(http.MethodPost, "/places/add", body), model.RoleApp, int64p(5))
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201\n%s", rec.Code, rec.Body.String())
	}
	if !strings.HasPrefix(places.lastPlace.SourceID, "manual_") || len(places.lastPlace.SourceID) != len("manual_")+12 {
		t.Fatalf("source_id = %q, want manual_ plus 12 hex chars", places.lastPlace.SourceID)
	}
	if places.lastPlace.Country != "US" {
		t.Fatalf("country = %q, want default US", places.lastPlace.Country)
	}
	if places.lastType != model.TypeBrewery || places.lastData.BreweryType != "micro" {
		t.Fatalf("type defaults = %v/%q, want brewery/micro", places.lastType, places.lastData.BreweryType)
	}
	if places.lastPlace.CreatedBy == nil || *places.lastPlace.CreatedBy != 5 {
		t.Fatal("creator not recorded")
	}
	resp := decodeBody(t, rec)
	place := resp["place"].(map[string]any)
	if place["id"] != float64(101) || place["place_type"] != "brewery" {
		t.Fatalf("response place = %v", place)
	}
}

func TestUpdatePlaceOwnership(t *testing.T) {
	places := &fakeMutator{owner: int64p(7)}
	h := NewPlaceHandler("test", stubDB{}, places, nil)
	body := `{"name":"Renamed"}`

	rec := performPath(t, h.Update, jsonRequest(http.MethodPut, "/api/places/101", body),
		model.RoleApp, int64p(8), []string{"id"}, []string{"101"})
	if rec.Code != http.StatusForbidden {
		t.Fatalf("non-owner status = %d, want 403", rec.Code)
	}
	if places.updateCalls != 0 {
		t.Fatal("denied update must not reach the store")
	}

	rec = performPath(t, h.Update, jsonRequest(http.MethodPut, "/api/places/101", body),
		model.RoleApp, int64p(7), []string{"id"}, []string{"101"})
	if rec.Code != http.StatusOK {
		t.Fatalf("owner status = %d, want 200\n%s", rec.Code, rec.Body.String())
	}

	// Admin bypasses ownership even without a user id.
	rec = performPath(t, h.Update, jsonRequest(http.MethodPut, "/api/places/101", body),
		model.RoleAdmin, nil, []string{"id"}, []string{"101"})
	if rec.Code != http.StatusOK {
		t.Fatalf("admin status = %d, want 200\n%s", rec.Code, rec.Body.String())
	}
	if places.updateCalls != 2 {
		t.Fatalf("update calls = %d, want 2", places.updateCalls)
	}
}

func TestUpdatePlaceRequiresFields(t *testing.T) {
	places := &fakeMutator{owner: int64p(7)}
	h := NewPlaceHandler("test", stubDB{}, places, nil)

	rec := performPath(t, h.Update, jsonRequest(http.MethodPut, "/api/places/101", `{}`),
		model.RoleAdmin, nil, []string{"id"}, []string{"101"})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("empty update status = %d, want 400", rec.Code)
	}

	rec = performPath(t, h.Update, jsonRequest(http.MethodPut, "/api/places/101", `{"lat":30.2}`),
		model.RoleAdmin, nil, []string{"id"}, []string{"101"})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("lat-only update status = %d, want 400", rec.Code)
	}
}

func TestDeletePlaceRoles(t *testing.T) {
	places := &fakeMutator{owner: int64p(7)}
	h := NewPlaceHandler("test", stubDB{}, places, nil)

	// app_user has no delete grant at all.
	rec := performPath(t, h.Delete, jsonRequest(http.MethodDelete, "/api/places/101", ""),
		model.RoleApp, int64p(7), []string{"id"}, []string{"101"})
	if rec.Code != http.StatusForbidden {
		t.Fatalf("app delete status = %d, want 403", rec.Code)
	}

	rec = performPath(t, h.Delete, jsonRequest(http.MethodDelete, "/api/places/101", ""),
		model.RoleCurator, int64p(7), []string{"id"}, []string{"101"})
	if rec.Code != http.StatusOK {
		t.Fatalf("curator owner delete status = %d, want 200\n%s", rec.Code, rec.Body.String())
	}
	body := decodeBody(t, rec)
	if msg, _ := body["message"].(string); !strings.Contains(msg, "Jester King") {
		t.Fatalf("message = %q, want deleted place name", msg)
	}
}

func TestDeleteMissingPlace(t *testing.T) {
	places := &fakeMutator{ownerErr: repository.ErrNotFound}
	h := NewPlaceHandler("test", stubDB{}, places, nil)

	rec := performPath(t, h.Delete, jsonRequest(http.MethodDelete, "/api/places/999", ""),
		model.RoleAdmin, nil, []string{"id"}, []string{"999"})
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
	if places.deleteCalls != 0 {
		t.Fatal("missing place must not reach delete")
	}
}
