package auth_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dalemusser/homeready/internal/app/system/auth"
	"go.uber.org/zap"
)

func newTestSessionManager(t *testing.T) *auth.SessionManager {
	t.Helper()
	sm, err := auth.NewSessionManager(
		"test-session-key-must-be-32-chars-long",
		"test-session",
		"",
		24*time.Hour,
		false,
		zap.NewNop(),
	)
	if err != nil {
		t.Fatalf("failed to create session manager: %v", err)
	}
	return sm
}

// cookiesFrom copies the Set-Cookie headers of rec onto a new request.
func cookiesFrom(rec *httptest.ResponseRecorder, target string) *http.Request {
	req := httptest.NewRequest("GET", target, nil)
	for _, c := range rec.Result().Cookies() {
		req.AddCookie(c)
	}
	return req
}

func TestNewSessionManager_EmptyKey(t *testing.T) {
	if _, err := auth.NewSessionManager("", "s", "", time.Hour, false, nil); err == nil {
		t.Fatal("expected error for empty session key")
	}
}

func TestRequireSignedIn_NoUser_HTML_Redirects(t *testing.T) {
	sm := newTestSessionManager(t)

	handler := sm.RequireSignedIn(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest("GET", "/homes?x=1", nil)
	req.Header.Set("Accept", "text/html")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusSeeOther {
		t.Errorf("expected status %d, got %d", http.StatusSeeOther, rec.Code)
	}
	location := rec.Header().Get("Location")
	if !strings.HasPrefix(location, auth.SignInPath+"?return=") {
		t.Errorf("expected redirect to sign-in, got %q", location)
	}
}

func TestRequireSignedIn_NoUser_API_Returns401(t *testing.T) {
	sm := newTestSessionManager(t)

	handler := sm.RequireSignedIn(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest("GET", "/api/homes", nil)
	req.Header.Set("Accept", "application/json")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected status %d, got %d", http.StatusUnauthorized, rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"unauthorized"`) {
		t.Errorf("unexpected body %q", rec.Body.String())
	}
}

func TestRequireSignedIn_WithUser_Proceeds(t *testing.T) {
	sm := newTestSessionManager(t)

	called := false
	handler := sm.RequireSignedIn(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		w.WriteHeader(http.StatusOK)
	}))

	req := auth.WithTestUser(httptest.NewRequest("GET", "/api/homes", nil), &auth.SessionUser{ID: "u1"})
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if !called || rec.Code != http.StatusOK {
		t.Errorf("handler called = %v, status = %d", called, rec.Code)
	}
}

func TestSignIn_RoundTrip(t *testing.T) {
	sm := newTestSessionManager(t)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/auth/google/callback", nil)
	user := auth.SessionUser{ID: "uid-1", Name: "Ana", Email: "ana@example.com", PhotoURL: "https://example.com/a.png"}
	if err := sm.SignIn(rec, req, user); err != nil {
		t.Fatalf("SignIn failed: %v", err)
	}

	var got *auth.SessionUser
	handler := sm.LoadSessionUser(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, _ = auth.CurrentUser(r)
	}))
	handler.ServeHTTP(httptest.NewRecorder(), cookiesFrom(rec, "/api/homes"))

	if got == nil {
		t.Fatal("expected user loaded from session cookie")
	}
	if *got != user {
		t.Errorf("user = %+v, want %+v", *got, user)
	}
}

func TestLoadSessionUser_TamperedCookie(t *testing.T) {
	sm := newTestSessionManager(t)

	req := httptest.NewRequest("GET", "/api/homes", nil)
	req.AddCookie(&http.Cookie{Name: "test-session", Value: "garbage"})

	var ok bool
	handler := sm.LoadSessionUser(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, ok = auth.CurrentUser(r)
	}))
	handler.ServeHTTP(httptest.NewRecorder(), req)

	if ok {
		t.Error("tampered cookie produced a user")
	}
}

func TestActiveHome_RoundTrip(t *testing.T) {
	sm := newTestSessionManager(t)

	rec := httptest.NewRecorder()
	req := auth.WithTestUser(httptest.NewRequest("PUT", "/api/session/home", nil), &auth.SessionUser{ID: "u1"})
	if err := sm.SetActiveHome(rec, req, "home-1"); err != nil {
		t.Fatalf("SetActiveHome failed: %v", err)
	}

	if got := sm.ActiveHome(cookiesFrom(rec, "/api/homes")); got != "home-1" {
		t.Errorf("ActiveHome = %q, want home-1", got)
	}
}

func TestSetActiveHome_RequiresUser(t *testing.T) {
	sm := newTestSessionManager(t)

	err := sm.SetActiveHome(httptest.NewRecorder(), httptest.NewRequest("PUT", "/", nil), "home-1")
	if err != auth.ErrNotSignedIn {
		t.Errorf("err = %v, want ErrNotSignedIn", err)
	}
}

func TestSignOut_ExpiresCookie(t *testing.T) {
	sm := newTestSessionManager(t)

	rec := httptest.NewRecorder()
	if err := sm.SignOut(rec, httptest.NewRequest("POST", "/logout", nil)); err != nil {
		t.Fatalf("SignOut failed: %v", err)
	}
	cookies := rec.Result().Cookies()
	if len(cookies) != 1 || cookies[0].MaxAge >= 0 {
		t.Errorf("expected one expired cookie, got %+v", cookies)
	}
}

func TestCurrentUser_NoUser(t *testing.T) {
	req := httptest.NewRequest("GET", "/", nil)
	if user, ok := auth.CurrentUser(req); ok || user != nil {
		t.Errorf("CurrentUser = %v, %v; want nil, false", user, ok)
	}
}

func TestDeriveKey_Distinct(t *testing.T) {
	a, err := auth.DeriveKey("secret", "a", 32)
	if err != nil {
		t.Fatalf("DeriveKey: %v", err)
	}
	b, _ := auth.DeriveKey("secret", "b", 32)
	if len(a) != 32 || string(a) == string(b) {
		t.Errorf("expected distinct 32-byte keys")
	}
}
