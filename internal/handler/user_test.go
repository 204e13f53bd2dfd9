package handler

import (
	"context"
	"net/http"
	"testing"
	"time"

	"geoplaces/internal/database"
	"geoplaces/internal/model"
	"geoplaces/internal/repository"
	"geoplaces/internal/utils"
)

type fakeUserAccounts struct {
	createCalls int
	createErr   error
	lastHash    string

	user    model.User
	findErr error
}

func (f *fakeUserAccounts) Create(_ context.Context, _ database.Querier, username, email, passwordHash string) (model.User, error) {
	f.createCalls++
	f.lastHash = passwordHash
	if f.createErr != nil {
		return model.User{}, f.createErr
	}
	return model.User{ID: 42, Username: username, Email: email}, nil
}

func (f *fakeUserAccounts) FindByUsername(context.Context, database.Querier, string) (model.User, error) {
	if f.findErr != nil {
		return model.User{}, f.findErr
	}
	return f.user, nil
}

func (f *fakeUserAccounts) Profile(context.Context, database.Querier, int64) (model.User, model.ListCounts, error) {
	return f.user, model.ListCounts{Visited: 3, Wishlist: 1, Liked: 2}, nil
}

func (f *fakeUserAccounts) Stats(context.Context, database.Querier) (model.UserStats, error) {
	return model.UserStats{TotalUsers: 10, ActiveUsers: 4, Visited: 30, Wishlist: 12, Liked: 7}, nil
}

func newUserHandler(users *fakeUserAccounts, tokens repository.TokenStore) *UserHandler {
	return NewUserHandler("test", "secret", 4, stubDB{}, users, tokens)
}

func TestRegisterValidation(t *testing.T) {
	users := &fakeUserAccounts{}
	h := newUserHandler(users, repository.NewMemoryTokenStore(time.Minute))

	cases := []struct {
		name string
		body string
	}{
		{"missing fields", `{"username":"alice"}`},
		{"short username", `{"username":"ab","email":"a@b.c","password":"hunter22"}`},
		{"bad email", `{"username":"alice","email":"nope","password":"hunter22"}`},
		{"short password", `{"username":"alice","email":"a@b.c","password":"pw"}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := perform(t, h.Register, jsonRequest(http.MethodPost, "/api/users/register", tc.body), model.RoleNone, nil)
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400\n%s", rec.Code, rec.Body.String())
			}
		})
	}
	if users.createCalls != 0 {
		t.Fatal("invalid registration must not reach the store")
	}
}

func TestRegisterHashesPassword(t *testing.T) {
	users := &fakeUserAccounts{}
	h := newUserHandler(users, repository.NewMemoryTokenStore(time.Minute))

	rec := perform(t, h.Register,
		jsonRequest(http.MethodPost, "/api/users/register", `{"username":"alice","email":"a@b.c","password":"hunter22"}`),
		model.RoleNone, nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201\n%s", rec.Code, rec.Body.String())
	}
	if users.lastHash == "hunter22" || users.lastHash == "" {
		t.Fatal("password stored without hashing")
	}
	if !utils.VerifyPassword(users.lastHash, "hunter22") {
		t.Fatal("stored hash does not verify against the password")
	}
	body := decodeBody(t, rec)
	user := body["user"].(map[string]any)
	if user["user_id"] != float64(42) || user["username"] != "alice" {
		t.Fatalf("user = %v", user)
	}
}

func TestRegisterDuplicate(t *testing.T) {
	users := &fakeUserAccounts{createErr: repository.ErrDuplicate}
	h := newUserHandler(users, repository.NewMemoryTokenStore(time.Minute))

	rec := perform(t, h.Register,
		jsonRequest(http.MethodPost, "/api/users/register", `{"username":"alice","email":"a@b.c","password":"hunter22"}`),
		model.RoleNone, nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestUserLoginIssuesRolelessToken(t *testing.T) {
	hash, err := utils.HashPassword("hunter22", 4)
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	users := &fakeUserAccounts{user: model.User{ID: 42, Username: "alice", Email: "a@b.c", PasswordHash: hash}}
	tokens := repository.NewMemoryTokenStore(time.Minute)
	h := newUserHandler(users, tokens)

	rec := perform(t, h.Login,
		jsonRequest(http.MethodPost, "/api/users/login", `{"username":"alice","password":"hunter22"}`),
		model.RoleNone, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200\n%s", rec.Code, rec.Body.String())
	}
	body := decodeBody(t, rec)
	token, _ := body["token"].(string)
	sess, ok, err := tokens.Get(context.Background(), token)
	if err != nil || !ok {
		t.Fatalf("token not stored: ok=%v err=%v", ok, err)
	}
	// Account sessions run on the base connection, so the token carries
	// a user id but no database role.
	if sess.Role != model.RoleNone {
		t.Fatalf("stored role = %q, want none", sess.Role)
	}
	if sess.UserID == nil || *sess.UserID != 42 {
		t.Fatalf("stored user id = %v, want 42", sess.UserID)
	}
}

func TestUserLoginFailuresLookAlike(t *testing.T) {
	hash, err := utils.HashPassword("hunter22", 4)
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	tokens := repository.NewMemoryTokenStore(time.Minute)

	unknownUsers := &fakeUserAccounts{findErr: repository.ErrNotFound}
	wrongPwUsers := &fakeUserAccounts{user: model.User{ID: 42, Username: "alice", PasswordHash: hash}}

	unknown := perform(t, newUserHandler(unknownUsers, tokens).Login,
		jsonRequest(http.MethodPost, "/api/users/login", `{"username":"nobody","password":"x"}`), model.RoleNone, nil)
	wrongPw := perform(t, newUserHandler(wrongPwUsers, tokens).Login,
		jsonRequest(http.MethodPost, "/api/users/login", `{"username":"alice","password":"x"}`), model.RoleNone, nil)

	if unknown.Code != http.StatusUnauthorized || wrongPw.Code != http.StatusUnauthorized {
		t.Fatalf("statuses = %d/%d, want 401/401", unknown.Code, wrongPw.Code)
	}
	if unknown.Body.String() != wrongPw.Body.String() {
		t.Fatalf("failure bodies differ:\n%s\n%s", unknown.Body.String(), wrongPw.Body.String())
	}
}

func TestProfileAndStats(t *testing.T) {
	users := &fakeUserAccounts{user: model.User{ID: 42, Username: "alice", Email: "a@b.c"}}
	h := newUserHandler(users, repository.NewMemoryTokenStore(time.Minute))

	rec := perform(t, h.Profile, jsonRequest(http.MethodGet, "/api/users/profile", ""), model.RoleNone, int64p(42))
	body := decodeBody(t, rec)
	stats := body["statistics"].(map[string]any)
	if stats["visited_count"] != float64(3) || stats["liked_count"] != float64(2) {
		t.Fatalf("statistics = %v", stats)
	}

	rec = perform(t, h.Stats, jsonRequest(http.MethodGet, "/api/users/stats", ""), model.RoleNone, nil)
	body = decodeBody(t, rec)
	if body["total_users"] != float64(10) {
		t.Fatalf("total_users = %v, want 10", body["total_users"])
	}
	entries := body["total_list_entries"].(map[string]any)
	if entries["wishlist"] != float64(12) {
		t.Fatalf("list entries = %v", entries)
	}
}
