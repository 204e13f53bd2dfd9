package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"

	"geoplaces/internal/database"
	"geoplaces/internal/middleware"
	"geoplaces/internal/model"
)

// stubDB satisfies ConnSource without a database. The zero database.Conn
// it returns is inert; tests that reach the store use fakes that never
// touch the connection.
type stubDB struct {
	err error
}

func (s stubDB) Acquire(context.Context, model.Role) (*database.Conn, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &database.Conn{}, nil
}

func (s stubDB) AcquireAdmin(context.Context) (*database.Conn, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &database.Conn{}, nil
}

// perform runs a handler against a request, optionally installing an
// identity first, and returns the recorded response.
func perform(t *testing.T, h echo.HandlerFunc, req *http.Request, role model.Role, userID *int64) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	c := echo.New().NewContext(req, rec)
	if role != model.RoleNone || userID != nil {
		middleware.SetIdentity(c, role, userID, "")
	}
	if err := h(c); err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	return rec
}

// performPath is perform with route parameters bound.
func performPath(t *testing.T, h echo.HandlerFunc, req *http.Request, role model.Role, userID *int64, names, values []string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	c := echo.New().NewContext(req, rec)
	c.SetParamNames(names...)
	c.SetParamValues(values...)
	if role != model.RoleNone || userID != nil {
		middleware.SetIdentity(c, role, userID, "")
	}
	if err := h(c); err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("response is not JSON: %v\n%s", err, rec.Body.String())
	}
	return body
}

func int64p(v int64) *int64 { return &v }
