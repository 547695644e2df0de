package handlers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/secondbrainhq/secondbrain/internal/config"
	"github.com/secondbrainhq/secondbrain/internal/domain/user"
	"github.com/secondbrainhq/secondbrain/internal/http/middlewares"
	"github.com/secondbrainhq/secondbrain/internal/repo/postgres"
	"github.com/secondbrainhq/secondbrain/internal/security"
)

type fakeUserStore struct {
	byEmail map[string]user.User
	byID    map[string]user.User
	created []user.User
}

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{
		byEmail: map[string]user.User{},
		byID:    map[string]user.User{},
	}
}

func (f *fakeUserStore) add(u user.User) {
	f.byEmail[strings.ToLower(u.Email)] = u
	f.byID[u.ID] = u
}

func (f *fakeUserStore) Create(_ context.Context, email, password, name string) (user.User, error) {
	key := strings.ToLower(email)

	if _, ok := f.byEmail[key]; ok {
		return user.User{}, postgres.ErrEmailTaken
	}

	hash, err := security.HashIfNeeded(password)

	if err != nil {
		return user.User{}, err
	}

	u := user.User{ID: "u-" + key, Email: key, Name: name, PasswordHash: hash}
	f.add(u)
	f.created = append(f.created, u)

	return u, nil
}

func (f *fakeUserStore) GetByEmail(_ context.Context, email string) (user.User, error) {
	u, ok := f.byEmail[strings.ToLower(email)]

	if !ok {
		return user.User{}, postgres.ErrUserNotFound
	}

	return u, nil
}

func (f *fakeUserStore) GetByID(_ context.Context, id string) (user.User, error) {
	u, ok := f.byID[id]

	if !ok {
		return user.User{}, postgres.ErrUserNotFound
	}

	return u, nil
}

func (f *fakeUserStore) UpdateName(_ context.Context, id, name string) (user.User, error) {
	u, ok := f.byID[id]

	if !ok {
		return user.User{}, postgres.ErrUserNotFound
	}

	u.Name = name
	f.add(u)

	return u, nil
}

type fakeIssuer struct {
	token string
	err   error
}

func (f *fakeIssuer) Issue(userID string) (string, time.Time, error) {
	if f.err != nil {
		return "", time.Time{}, f.err
	}

	return f.token + ":" + userID, time.Now().Add(time.Hour), nil
}

type staticVerifier struct{ userID string }

func (s staticVerifier) Verify(string) (string, error) {
	if s.userID == "" {
		return "", errors.New("invalid token")
	}

	return s.userID, nil
}

func authRouter(store *fakeUserStore, issuer *fakeIssuer, verifier staticVerifier) *gin.Engine {
	gin.SetMode(gin.TestMode)

	cfg := config.Config{SessionTTLDays: 7}
	h := NewAuthHandler(store, issuer, cfg)
	gate := middlewares.NewSessionGate(verifier, store)

	r := gin.New()

	r.POST("/api/auth/register", h.Register)
	r.POST("/api/auth/login", h.Login)
	r.POST("/api/auth/logout", h.Logout)
	r.GET("/api/auth/me", gate.RequireAuth(), h.Me)
	r.PUT("/api/auth/me", gate.RequireAuth(), h.UpdateMe)

	return r
}

func doJSON(r *gin.Engine, method, path, body string, cookie *http.Cookie) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()

	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	if cookie != nil {
		req.AddCookie(cookie)
	}

	r.ServeHTTP(rec, req)

	return rec
}

func sessionCookie(rec *httptest.ResponseRecorder) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == middlewares.SessionCookieName {
			return c
		}
	}

	return nil
}

func TestRegister(t *testing.T) {
	store := newFakeUserStore()
	r := authRouter(store, &fakeIssuer{token: "tok"}, staticVerifier{})

	rec := doJSON(r, http.MethodPost, "/api/auth/register",
		`{"email":"ada@example.com","password":"secret1","name":"Ada"}`, nil)

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}

	c := sessionCookie(rec)

	if c == nil || c.Value == "" {
		t.Fatal("register did not start a session")
	}

	if !c.HttpOnly || !c.Secure {
		t.Fatalf("session cookie missing flags: %+v", c)
	}

	if !strings.Contains(rec.Body.String(), `"email":"ada@example.com"`) {
		t.Fatalf("unexpected body: %s", rec.Body.String())
	}

	if strings.Contains(rec.Body.String(), "secret1") {
		t.Fatal("response leaks the password")
	}
}

func TestRegisterDefaultsNameFromEmail(t *testing.T) {
	store := newFakeUserStore()
	r := authRouter(store, &fakeIssuer{token: "tok"}, staticVerifier{})

	rec := doJSON(r, http.MethodPost, "/api/auth/register",
		`{"email":"grace@example.com","password":"secret1"}`, nil)

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}

	if len(store.created) != 1 || store.created[0].Name != "grace" {
		t.Fatalf("created = %+v, want name defaulted to mailbox part", store.created)
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	store := newFakeUserStore()
	store.add(user.User{ID: "u1", Email: "ada@example.com"})

	r := authRouter(store, &fakeIssuer{token: "tok"}, staticVerifier{})

	rec := doJSON(r, http.MethodPost, "/api/auth/register",
		`{"email":"ada@example.com","password":"secret1"}`, nil)

	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409", rec.Code)
	}

	if !strings.Contains(rec.Body.String(), "email_taken") {
		t.Fatalf("unexpected body: %s", rec.Body.String())
	}
}

func TestRegisterInvalidPayload(t *testing.T) {
	r := authRouter(newFakeUserStore(), &fakeIssuer{token: "tok"}, staticVerifier{})

	tests := []struct {
		name string
		body string
	}{
		{"missing email", `{"password":"secret1"}`},
		{"bad email", `{"email":"not-an-email","password":"secret1"}`},
		{"short password", `{"email":"a@example.com","password":"12345"}`},
		{"not json", `email=a@example.com`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doJSON(r, http.MethodPost, "/api/auth/register", tt.body, nil)

			if rec.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400, body %s", rec.Code, rec.Body.String())
			}
		})
	}
}

func TestLogin(t *testing.T) {
	hash, err := security.HashPassword("secret1")

	if err != nil {
		t.Fatal(err)
	}

	store := newFakeUserStore()
	store.add(user.User{ID: "u1", Email: "ada@example.com", Name: "Ada", PasswordHash: hash})

	r := authRouter(store, &fakeIssuer{token: "tok"}, staticVerifier{})

	rec := doJSON(r, http.MethodPost, "/api/auth/login",
		`{"email":"ada@example.com","password":"secret1"}`, nil)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}

	if c := sessionCookie(rec); c == nil || c.Value == "" {
		t.Fatal("login did not set the session cookie")
	}
}

func TestLoginRejections(t *testing.T) {
	hash, err := security.HashPassword("secret1")

	if err != nil {
		t.Fatal(err)
	}

	store := newFakeUserStore()
	store.add(user.User{ID: "u1", Email: "ada@example.com", PasswordHash: hash})

	r := authRouter(store, &fakeIssuer{token: "tok"}, staticVerifier{})

	tests := []struct {
		name string
		body string
	}{
		{"unknown email", `{"email":"nobody@example.com","password":"secret1"}`},
		{"wrong password", `{"email":"ada@example.com","password":"wrong-1"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doJSON(r, http.MethodPost, "/api/auth/login", tt.body, nil)

			if rec.Code != http.StatusUnauthorized {
				t.Fatalf("status = %d, want 401", rec.Code)
			}

			// both failures read the same from outside
			if !strings.Contains(rec.Body.String(), "Email or password is incorrect.") {
				t.Fatalf("unexpected body: %s", rec.Body.String())
			}

			if c := sessionCookie(rec); c != nil && c.Value != "" {
				t.Fatal("failed login set a session cookie")
			}
		})
	}
}

func TestLogoutClearsCookie(t *testing.T) {
	r := authRouter(newFakeUserStore(), &fakeIssuer{token: "tok"}, staticVerifier{})

	rec := doJSON(r, http.MethodPost, "/api/auth/logout", `{}`, nil)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	c := sessionCookie(rec)

	if c == nil || c.Value != "" || c.MaxAge >= 0 {
		t.Fatalf("logout did not clear the cookie: %+v", c)
	}
}

func TestMe(t *testing.T) {
	store := newFakeUserStore()
	store.add(user.User{ID: "u1", Email: "ada@example.com", Name: "Ada"})

	r := authRouter(store, &fakeIssuer{token: "tok"}, staticVerifier{userID: "u1"})

	rec := doJSON(r, http.MethodGet, "/api/auth/me", "",
		&http.Cookie{Name: middlewares.SessionCookieName, Value: "valid"})

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}

	if !strings.Contains(rec.Body.String(), `"email":"ada@example.com"`) {
		t.Fatalf("unexpected body: %s", rec.Body.String())
	}
}

func TestUpdateMe(t *testing.T) {
	store := newFakeUserStore()
	store.add(user.User{ID: "u1", Email: "ada@example.com", Name: "Ada"})

	r := authRouter(store, &fakeIssuer{token: "tok"}, staticVerifier{userID: "u1"})
	cookie := &http.Cookie{Name: middlewares.SessionCookieName, Value: "valid"}

	rec := doJSON(r, http.MethodPut, "/api/auth/me", `{"name":"Ada L."}`, cookie)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}

	if store.byID["u1"].Name != "Ada L." {
		t.Fatalf("name = %q, want updated", store.byID["u1"].Name)
	}

	rec = doJSON(r, http.MethodPut, "/api/auth/me", `{"name":"   "}`, cookie)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400 for blank name", rec.Code)
	}
}
