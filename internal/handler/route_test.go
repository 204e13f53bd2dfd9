package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"geoplaces/internal/database"
	"geoplaces/internal/model"
)

type fakeRouteStore struct {
	stops    []model.RouteStop
	personal bool

	defaultCalls  int
	overrideCalls int
	lastIDs       []int64
	removeOK      bool
	removeCalls   int
}

func (f *fakeRouteStore) Effective(context.Context, database.Querier, int64, int64) ([]model.RouteStop, bool, error) {
	return f.stops, f.personal, nil
}

func (f *fakeRouteStore) SetDefault(_ context.Context, _ *database.Conn, _ int64, placeIDs []int64) error {
	f.defaultCalls++
	f.lastIDs = placeIDs
	return nil
}

func (f *fakeRouteStore) SetOverride(_ context.Context, _ *database.Conn, _, _ int64, placeIDs []int64) error {
	f.overrideCalls++
	f.lastIDs = placeIDs
	return nil
}

func (f *fakeRouteStore) RemoveStop(context.Context, *database.Conn, int64, int64, int64) (bool, error) {
	f.removeCalls++
	return f.removeOK, nil
}

func newRouteHandler(groups *fakeGroupStore, routes *fakeRouteStore) *RouteHandler {
	return NewRouteHandler("test", stubDB{}, groups, routes)
}

func TestRouteGetMembersOnly(t *testing.T) {
	groups := &fakeGroupStore{memberships: map[int64]model.GroupRole{2: model.GroupMember}}
	routes := &fakeRouteStore{stops: []model.RouteStop{{PlaceID: 5, OrderIndex: 0, Name: "Jester King"}}, personal: true}
	h := newRouteHandler(groups, routes)

	rec := performPath(t, h.Get, httptest.NewRequest(http.MethodGet, "/api/groups/1/route", nil),
		model.RoleNone, int64p(3), []string{"id"}, []string{"1"})
	if rec.Code != http.StatusForbidden {
		t.Fatalf("non-member status = %d, want 403", rec.Code)
	}

	rec = performPath(t, h.Get, httptest.NewRequest(http.MethodGet, "/api/groups/1/route", nil),
		model.RoleNone, int64p(2), []string{"id"}, []string{"1"})
	if rec.Code != http.StatusOK {
		t.Fatalf("member status = %d, want 200", rec.Code)
	}
	body := decodeBody(t, rec)
	if body["personal"] != true || body["count"] != float64(1) {
		t.Fatalf("body = %v, want personal route with one stop", body)
	}
}

func TestRouteSetDefaultAdminOnly(t *testing.T) {
	groups := &fakeGroupStore{memberships: map[int64]model.GroupRole{
		1: model.GroupAdmin,
		2: model.GroupMember,
	}}
	routes := &fakeRouteStore{}
	h := newRouteHandler(groups, routes)
	body := `{"place_ids":[5,9,3]}`

	rec := performPath(t, h.SetDefault, jsonRequest(http.MethodPost, "/api/groups/1/route", body),
		model.RoleNone, int64p(2), []string{"id"}, []string{"1"})
	if rec.Code != http.StatusForbidden {
		t.Fatalf("plain member status = %d, want 403", rec.Code)
	}
	if routes.defaultCalls != 0 {
		t.Fatal("denied default must not reach the store")
	}

	rec = performPath(t, h.SetDefault, jsonRequest(http.MethodPost, "/api/groups/1/route", body),
		model.RoleNone, int64p(1), []string{"id"}, []string{"1"})
	if rec.Code != http.StatusOK {
		t.Fatalf("admin status = %d, want 200\n%s", rec.Code, rec.Body.String())
	}
	if len(routes.lastIDs) != 3 || routes.lastIDs[0] != 5 {
		t.Fatalf("place ids = %v, want [5 9 3] in order", routes.lastIDs)
	}
}

func TestRouteSetPersonalMemberAllowed(t *testing.T) {
	groups := &fakeGroupStore{memberships: map[int64]model.GroupRole{2: model.GroupMember}}
	routes := &fakeRouteStore{}
	h := newRouteHandler(groups, routes)

	rec := performPath(t, h.SetPersonal, jsonRequest(http.MethodPut, "/api/groups/1/route", `{"place_ids":[3,5]}`),
		model.RoleNone, int64p(2), []string{"id"}, []string{"1"})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200\n%s", rec.Code, rec.Body.String())
	}
	if routes.overrideCalls != 1 {
		t.Fatalf("override calls = %d, want 1", routes.overrideCalls)
	}
}

func TestRouteValidatesPlaceIDs(t *testing.T) {
	groups := &fakeGroupStore{memberships: map[int64]model.GroupRole{1: model.GroupAdmin}}
	routes := &fakeRouteStore{}
	h := newRouteHandler(groups, routes)

	for _, body := range []string{
		`{"place_ids":[5,0]}`,
		`{"place_ids":[5,-1]}`,
		`{"place_ids":[5,5]}`,
	} {
		rec := performPath(t, h.SetDefault, jsonRequest(http.MethodPost, "/api/groups/1/route", body),
			model.RoleNone, int64p(1), []string{"id"}, []string{"1"})
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("body %s: status = %d, want 400", body, rec.Code)
		}
	}
	if routes.defaultCalls != 0 {
		t.Fatal("invalid sequences must not reach the store")
	}
}

func TestRouteRemoveStop(t *testing.T) {
	groups := &fakeGroupStore{memberships: map[int64]model.GroupRole{2: model.GroupMember}}
	routes := &fakeRouteStore{removeOK: true}
	h := newRouteHandler(groups, routes)

	rec := performPath(t, h.RemoveStop, httptest.NewRequest(http.MethodDelete, "/api/groups/1/route/places/5", nil),
		model.RoleNone, int64p(2), []string{"id", "place_id"}, []string{"1", "5"})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200\n%s", rec.Code, rec.Body.String())
	}

	routes.removeOK = false
	rec = performPath(t, h.RemoveStop, httptest.NewRequest(http.MethodDelete, "/api/groups/1/route/places/99", nil),
		model.RoleNone, int64p(2), []string{"id", "place_id"}, []string{"1", "99"})
	if rec.Code != http.StatusNotFound {
		t.Fatalf("absent stop status = %d, want 404", rec.Code)
	}
}
