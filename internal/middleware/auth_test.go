package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"geoplaces/internal/model"
	"geoplaces/internal/repository"
	"geoplaces/internal/utils"
)

const testSecret = "test-secret"

func testRegistry() *model.Registry {
	return model.NewRegistry(
		model.RoleInfo{Name: model.RoleReadonly},
		model.RoleInfo{Name: model.RoleAdmin},
	)
}

// resolve runs the Authenticate middleware and captures the identity it
// stored on the context.
func resolve(t *testing.T, tokens repository.TokenStore, req *http.Request) (model.Role, *int64, string) {
	t.Helper()
	var role model.Role
	var uid *int64
	var tok string
	h := Authenticate(tokens, testSecret, testRegistry())(func(c echo.Context) error {
		role = CurrentRole(c)
		uid = CurrentUserID(c)
		tok = CurrentToken(c)
		return c.NoContent(http.StatusOK)
	})
	rec := httptest.NewRecorder()
	if err := h(echo.New().NewContext(req, rec)); err != nil {
		t.Fatalf("middleware returned error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("middleware rejected the request: %d", rec.Code)
	}
	return role, uid, tok
}

func storeToken(t *testing.T, tokens repository.TokenStore, sess repository.Session) string {
	t.Helper()
	token := utils.NewAuthToken("test", testSecret)
	if err := tokens.Store(context.Background(), token, sess); err != nil {
		t.Fatalf("store token: %v", err)
	}
	return token
}

func TestAuthenticateBearerToken(t *testing.T) {
	tokens := repository.NewMemoryTokenStore(time.Minute)
	uid := int64(12)
	token := storeToken(t, tokens, repository.Session{Role: model.RoleAdmin, UserID: &uid})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)

	role, gotUID, gotTok := resolve(t, tokens, req)
	if role != model.RoleAdmin {
		t.Fatalf("role = %q, want admin_user", role)
	}
	if gotUID == nil || *gotUID != 12 {
		t.Fatalf("user id = %v, want 12", gotUID)
	}
	if gotTok != token {
		t.Fatal("raw token not stored on context")
	}
}

func TestAuthenticateFallsThroughToXAuthToken(t *testing.T) {
	tokens := repository.NewMemoryTokenStore(time.Minute)
	token := storeToken(t, tokens, repository.Session{Role: model.RoleReadonly})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer not-a-real-token")
	req.Header.Set("X-Auth-Token", token)

	role, _, _ := resolve(t, tokens, req)
	if role != model.RoleReadonly {
		t.Fatalf("role = %q, want readonly_user via X-Auth-Token", role)
	}
}

func TestAuthenticateAnonymousPassesThrough(t *testing.T) {
	tokens := repository.NewMemoryTokenStore(time.Minute)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	role, uid, tok := resolve(t, tokens, req)
	if role != model.RoleNone || uid != nil || tok != "" {
		t.Fatalf("anonymous identity = %q/%v/%q, want empty", role, uid, tok)
	}
}

func TestAuthenticateSessionCookie(t *testing.T) {
	tokens := repository.NewMemoryTokenStore(time.Minute)
	val, err := utils.NewSessionValue(testSecret, "admin_user", time.Hour)
	if err != nil {
		t.Fatalf("NewSessionValue: %v", err)
	}
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: utils.SessionCookieName, Value: val})

	role, uid, _ := resolve(t, tokens, req)
	if role != model.RoleAdmin {
		t.Fatalf("role = %q, want admin_user from cookie", role)
	}
	if uid != nil {
		t.Fatal("cookie sessions must not carry a user id")
	}
}

func TestAuthenticateIgnoresUnknownCookieRole(t *testing.T) {
	tokens := repository.NewMemoryTokenStore(time.Minute)
	val, err := utils.NewSessionValue(testSecret, "dropped_role", time.Hour)
	if err != nil {
		t.Fatalf("NewSessionValue: %v", err)
	}
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: utils.SessionCookieName, Value: val})

	role, _, _ := resolve(t, tokens, req)
	if role != model.RoleNone {
		t.Fatalf("role = %q, want none for unregistered cookie role", role)
	}
}

func TestAuthenticateExpiredTokenFallsBack(t *testing.T) {
	tokens := repository.NewMemoryTokenStore(time.Nanosecond)
	token := storeToken(t, tokens, repository.Session{Role: model.RoleAdmin})
	time.Sleep(time.Millisecond)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)

	role, _, _ := resolve(t, tokens, req)
	if role != model.RoleNone {
		t.Fatalf("role = %q, want none for expired token", role)
	}
}

func gateStatus(t *testing.T, mw echo.MiddlewareFunc, role model.Role, uid *int64) int {
	t.Helper()
	h := mw(func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	rec := httptest.NewRecorder()
	c := echo.New().NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)
	SetIdentity(c, role, uid, "")
	if err := h(c); err != nil {
		t.Fatalf("middleware returned error: %v", err)
	}
	return rec.Code
}

func TestRequireUser(t *testing.T) {
	if got := gateStatus(t, RequireUser(), model.RoleNone, nil); got != http.StatusUnauthorized {
		t.Fatalf("anonymous = %d, want 401", got)
	}
	if got := gateStatus(t, RequireUser(), model.RoleAdmin, nil); got != http.StatusUnauthorized {
		t.Fatalf("role-only session = %d, want 401", got)
	}
	uid := int64(4)
	if got := gateStatus(t, RequireUser(), model.RoleNone, &uid); got != http.StatusOK {
		t.Fatalf("user token = %d, want 200", got)
	}
}

func TestRequireRole(t *testing.T) {
	gate := RequireRole(model.RoleAdmin)
	if got := gateStatus(t, gate, model.RoleNone, nil); got != http.StatusUnauthorized {
		t.Fatalf("anonymous = %d, want 401", got)
	}
	if got := gateStatus(t, gate, model.RoleReadonly, nil); got != http.StatusForbidden {
		t.Fatalf("wrong role = %d, want 403", got)
	}
	if got := gateStatus(t, gate, model.RoleAdmin, nil); got != http.StatusOK {
		t.Fatalf("admin = %d, want 200", got)
	}
}

func TestRequirePermission(t *testing.T) {
	reg := model.NewRegistry(
		model.RoleInfo{Name: model.RoleReadonly, Permissions: []model.Permission{model.PermSelect}},
		model.RoleInfo{Name: model.RoleAdmin, Permissions: []model.Permission{model.PermAll}},
	)
	gate := RequirePermission(reg, model.PermInsert)
	if got := gateStatus(t, gate, model.RoleReadonly, nil); got != http.StatusForbidden {
		t.Fatalf("readonly insert = %d, want 403", got)
	}
	if got := gateStatus(t, gate, model.RoleAdmin, nil); got != http.StatusOK {
		t.Fatalf("admin insert = %d, want 200", got)
	}
}
