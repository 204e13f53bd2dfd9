package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"geoplaces/internal/model"
	"geoplaces/internal/repository"
	"geoplaces/internal/utils"
)

func testRegistry() *model.Registry {
	return model.NewRegistry(
		model.RoleInfo{Name: model.RoleReadonly, Password: "ro-pw", Permissions: []model.Permission{model.PermSelect}},
		model.RoleInfo{Name: model.RoleAdmin, Password: "admin-pw", Permissions: []model.Permission{model.PermAll}},
	)
}

func newAuthHandler(tokens repository.TokenStore) *AuthHandler {
	return NewAuthHandler("test", "secret", 30*time.Minute, testRegistry(), stubDB{}, tokens)
}

func jsonRequest(method, path, body string) *http.Request {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	return req
}

func TestLoginRejectsUnknownAndWrongPasswordAlike(t *testing.T) {
	h := newAuthHandler(repository.NewMemoryTokenStore(time.Minute))

	unknown := perform(t, h.Login, jsonRequest(http.MethodPost, "/auth/login", `{"username":"nobody","password":"x"}`), model.RoleNone, nil)
	wrongPw := perform(t, h.Login, jsonRequest(http.MethodPost, "/auth/login", `{"username":"admin_user","password":"x"}`), model.RoleNone, nil)

	for _, rec := range []*httptest.ResponseRecorder{unknown, wrongPw} {
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("status = %d, want 401", rec.Code)
		}
	}
	// The two failures must be indistinguishable.
	if unknown.Body.String() != wrongPw.Body.String() {
		t.Fatalf("failure bodies differ:\n%s\n%s", unknown.Body.String(), wrongPw.Body.String())
	}
	if !strings.Contains(unknown.Body.String(), "Invalid username or password") {
		t.Fatalf("unexpected failure message: %s", unknown.Body.String())
	}
}

func TestLoginRequiresBothFields(t *testing.T) {
	h := newAuthHandler(repository.NewMemoryTokenStore(time.Minute))
	rec := perform(t, h.Login, jsonRequest(http.MethodPost, "/auth/login", `{"username":"admin_user"}`), model.RoleNone, nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestLoginIssuesStoredToken(t *testing.T) {
	tokens := repository.NewMemoryTokenStore(time.Minute)
	h := newAuthHandler(tokens)

	rec := perform(t, h.Login, jsonRequest(http.MethodPost, "/auth/login", `{"username":"admin_user","password":"admin-pw"}`), model.RoleNone, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200\n%s", rec.Code, rec.Body.String())
	}
	body := decodeBody(t, rec)
	token, _ := body["token"].(string)
	if token == "" {
		t.Fatal("response carries no token")
	}
	sess, ok, err := tokens.Get(context.Background(), token)
	if err != nil || !ok {
		t.Fatalf("token not stored: ok=%v err=%v", ok, err)
	}
	if sess.Role != model.RoleAdmin {
		t.Fatalf("stored role = %q, want admin_user", sess.Role)
	}
	if sess.UserID != nil {
		t.Fatal("role logins must not carry a user id")
	}

	var sessionCookie *http.Cookie
	for _, ck := range rec.Result().Cookies() {
		if ck.Name == utils.SessionCookieName {
			sessionCookie = ck
		}
	}
	if sessionCookie == nil || sessionCookie.Value == "" {
		t.Fatal("session cookie not set")
	}
	if role, err := utils.ParseSessionValue("secret", sessionCookie.Value); err != nil || role != "admin_user" {
		t.Fatalf("session cookie role = %q err=%v", role, err)
	}
}

func TestCheckReportsIdentityOrAvailableRoles(t *testing.T) {
	h := newAuthHandler(repository.NewMemoryTokenStore(time.Minute))

	rec := perform(t, h.Check, httptest.NewRequest(http.MethodGet, "/auth/check", nil), model.RoleNone, nil)
	body := decodeBody(t, rec)
	if body["authenticated"] != false {
		t.Fatalf("anonymous check = %v, want authenticated false", body)
	}
	if roles, ok := body["available_roles"].([]any); !ok || len(roles) != 2 {
		t.Fatalf("available_roles = %v, want both registry roles", body["available_roles"])
	}

	rec = perform(t, h.Check, httptest.NewRequest(http.MethodGet, "/auth/check", nil), model.RoleAdmin, int64p(3))
	body = decodeBody(t, rec)
	if body["authenticated"] != true || body["role"] != "admin_user" {
		t.Fatalf("authenticated check = %v", body)
	}
	if body["user_id"] != float64(3) {
		t.Fatalf("user_id = %v, want 3", body["user_id"])
	}
}
