package middlewares

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/secondbrainhq/secondbrain/internal/domain/user"
)

type fakeVerifier struct {
	userID string
	err    error
	seen   string
}

func (f *fakeVerifier) Verify(token string) (string, error) {
	f.seen = token

	if f.err != nil {
		return "", f.err
	}

	return f.userID, nil
}

type fakeUsers struct {
	users map[string]user.User
}

func (f *fakeUsers) GetByID(_ context.Context, id string) (user.User, error) {
	u, ok := f.users[id]

	if !ok {
		return user.User{}, errors.New("user not found")
	}

	return u, nil
}

func gateRouter(gate *SessionGate) *gin.Engine {
	gin.SetMode(gin.TestMode)

	r := gin.New()

	r.GET("/protected", gate.RequireAuth(), func(ctx *gin.Context) {
		id, _ := IdentityFromContext(ctx)
		ctx.JSON(http.StatusOK, gin.H{"user": id})
	})

	return r
}

func knownUsers() *fakeUsers {
	return &fakeUsers{users: map[string]user.User{
		"u1": {ID: "u1", Email: "a@example.com", Name: "Ada"},
	}}
}

// clearsSessionCookie reports whether the response tells the browser to drop
// the token cookie.
func clearsSessionCookie(t *testing.T, rec *httptest.ResponseRecorder) bool {
	t.Helper()

	for _, c := range rec.Result().Cookies() {
		if c.Name == SessionCookieName && c.Value == "" && c.MaxAge < 0 {
			return true
		}
	}

	return false
}

func TestRequireAuthNoToken(t *testing.T) {
	gate := NewSessionGate(&fakeVerifier{userID: "u1"}, knownUsers())
	r := gateRouter(gate)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}

func TestRequireAuthValidCookie(t *testing.T) {
	verifier := &fakeVerifier{userID: "u1"}
	gate := NewSessionGate(verifier, knownUsers())
	r := gateRouter(gate)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: "cookie-token"})
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200, body %s", rec.Code, rec.Body.String())
	}

	if verifier.seen != "cookie-token" {
		t.Fatalf("verifier saw %q, want cookie token", verifier.seen)
	}

	if !strings.Contains(rec.Body.String(), "a@example.com") {
		t.Fatalf("identity missing from response: %s", rec.Body.String())
	}
}

func TestRequireAuthBearerFallback(t *testing.T) {
	verifier := &fakeVerifier{userID: "u1"}
	gate := NewSessionGate(verifier, knownUsers())
	r := gateRouter(gate)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer header-token")
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	if verifier.seen != "header-token" {
		t.Fatalf("verifier saw %q, want header token", verifier.seen)
	}
}

func TestRequireAuthCookieWinsOverHeader(t *testing.T) {
	verifier := &fakeVerifier{userID: "u1"}
	gate := NewSessionGate(verifier, knownUsers())
	r := gateRouter(gate)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: "cookie-token"})
	req.Header.Set("Authorization", "Bearer header-token")
	r.ServeHTTP(rec, req)

	if verifier.seen != "cookie-token" {
		t.Fatalf("verifier saw %q, want the cookie to take precedence", verifier.seen)
	}
}

func TestRequireAuthBadTokenClearsCookie(t *testing.T) {
	verifier := &fakeVerifier{err: errors.New("bad signature")}
	gate := NewSessionGate(verifier, knownUsers())
	r := gateRouter(gate)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: "stale"})
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}

	if !clearsSessionCookie(t, rec) {
		t.Fatal("rejected cookie session was not cleared")
	}
}

func TestRequireAuthDeletedUserClearsCookie(t *testing.T) {
	// token verifies fine but the subject no longer exists
	verifier := &fakeVerifier{userID: "gone"}
	gate := NewSessionGate(verifier, knownUsers())
	r := gateRouter(gate)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: "orphaned"})
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}

	if !clearsSessionCookie(t, rec) {
		t.Fatal("orphaned session cookie was not cleared")
	}
}

func TestRequireAuthBearerRejectionKeepsCookiesAlone(t *testing.T) {
	verifier := &fakeVerifier{err: errors.New("bad signature")}
	gate := NewSessionGate(verifier, knownUsers())
	r := gateRouter(gate)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer bad")
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}

	if clearsSessionCookie(t, rec) {
		t.Fatal("header-only rejection should not touch cookies")
	}
}
