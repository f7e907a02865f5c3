package auth_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dalemusser/zelus/internal/app/system/auth"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type fakeFetcher struct {
	users map[string]*auth.SessionUser
}

func (f fakeFetcher) FetchUser(_ context.Context, userID string) *auth.SessionUser {
	return f.users[userID]
}

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

// cookiesFrom copies Set-Cookie headers from rec onto a new request.
func cookiesFrom(rec *httptest.ResponseRecorder, target string) *http.Request {
	req := httptest.NewRequest("GET", target, nil)
	for _, c := range rec.Result().Cookies() {
		req.AddCookie(c)
	}
	return req
}

// captureSession runs LoadSession and returns the session it resolved.
func captureSession(sm *auth.SessionManager, req *http.Request) *auth.Session {
	var got *auth.Session
	h := sm.LoadSession(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = auth.FromContext(r.Context())
	}))
	h.ServeHTTP(httptest.NewRecorder(), req)
	return got
}

func TestNewSessionManager_EmptyKey(t *testing.T) {
	if _, err := auth.NewSessionManager("", "", "", time.Hour, false, zap.NewNop()); err == nil {
		t.Error("expected error for empty session key")
	}
}

func TestSignIn_LoadSession_RoundTrip(t *testing.T) {
	sm := newTestSessionManager(t)
	uid := primitive.NewObjectID()
	sm.SetUserFetcher(fakeFetcher{users: map[string]*auth.SessionUser{
		uid.Hex(): {ID: uid, Name: "Ana", Email: "ana@example.pt"},
	}})

	rec := httptest.NewRecorder()
	if err := sm.SignIn(rec, httptest.NewRequest("POST", "/login", nil), uid); err != nil {
		t.Fatalf("SignIn failed: %v", err)
	}

	s := captureSession(sm, cookiesFrom(rec, "/dashboard"))
	if s == nil || s.User == nil {
		t.Fatal("expected a session after sign-in")
	}
	if s.User.ID != uid || s.User.Name != "Ana" {
		t.Errorf("unexpected user: %+v", s.User)
	}
	if s.ActiveOrganizationID != nil {
		t.Errorf("expected no active organization, got %v", s.ActiveOrganizationID)
	}
}

func TestSetActiveOrganization(t *testing.T) {
	sm := newTestSessionManager(t)
	uid := primitive.NewObjectID()
	orgID := primitive.NewObjectID()
	sm.SetUserFetcher(fakeFetcher{users: map[string]*auth.SessionUser{uid.Hex(): {ID: uid}}})

	signIn := httptest.NewRecorder()
	if err := sm.SignIn(signIn, httptest.NewRequest("POST", "/login", nil), uid); err != nil {
		t.Fatalf("SignIn failed: %v", err)
	}

	switchRec := httptest.NewRecorder()
	if err := sm.SetActiveOrganization(switchRec, cookiesFrom(signIn, "/onboarding"), orgID); err != nil {
		t.Fatalf("SetActiveOrganization failed: %v", err)
	}

	s := captureSession(sm, cookiesFrom(switchRec, "/dashboard"))
	if s == nil || s.ActiveOrganizationID == nil || *s.ActiveOrganizationID != orgID {
		t.Fatalf("expected active org %s, got %+v", orgID.Hex(), s)
	}
}

func TestSetActiveOrganization_NotSignedIn(t *testing.T) {
	sm := newTestSessionManager(t)
	err := sm.SetActiveOrganization(httptest.NewRecorder(), httptest.NewRequest("POST", "/", nil), primitive.NewObjectID())
	if err == nil {
		t.Error("expected error when not signed in")
	}
}

func TestLoadSession_UserGone(t *testing.T) {
	sm := newTestSessionManager(t)
	sm.SetUserFetcher(fakeFetcher{users: map[string]*auth.SessionUser{}})

	rec := httptest.NewRecorder()
	if err := sm.SignIn(rec, httptest.NewRequest("POST", "/login", nil), primitive.NewObjectID()); err != nil {
		t.Fatalf("SignIn failed: %v", err)
	}
	if s := captureSession(sm, cookiesFrom(rec, "/")); s != nil {
		t.Errorf("expected no session for a deleted user, got %+v", s)
	}
}

func TestLoadSession_GarbageCookie(t *testing.T) {
	sm := newTestSessionManager(t)
	req := httptest.NewRequest("GET", "/", nil)
	req.AddCookie(&http.Cookie{Name: "test-session", Value: "not-a-valid-cookie"})
	if s := captureSession(sm, req); s != nil {
		t.Errorf("expected no session, got %+v", s)
	}
}

func TestSignOut_ExpiresCookie(t *testing.T) {
	sm := newTestSessionManager(t)
	uid := primitive.NewObjectID()
	sm.SetUserFetcher(fakeFetcher{users: map[string]*auth.SessionUser{uid.Hex(): {ID: uid}}})

	signIn := httptest.NewRecorder()
	if err := sm.SignIn(signIn, httptest.NewRequest("POST", "/login", nil), uid); err != nil {
		t.Fatalf("SignIn failed: %v", err)
	}

	out := httptest.NewRecorder()
	if err := sm.SignOut(out, cookiesFrom(signIn, "/logout")); err != nil {
		t.Fatalf("SignOut failed: %v", err)
	}
	cookies := out.Result().Cookies()
	if len(cookies) == 0 || cookies[0].MaxAge >= 0 {
		t.Errorf("expected an expiring cookie, got %+v", cookies)
	}
}

func TestRequireSignedIn_NoUser_RedirectsToLogin(t *testing.T) {
	sm := newTestSessionManager(t)

	handler := sm.RequireSignedIn(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest("GET", "/tickets?status=open", nil)
	req.Header.Set("Accept", "text/html")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusSeeOther {
		t.Errorf("expected status %d, got %d", http.StatusSeeOther, rec.Code)
	}
	location := rec.Header().Get("Location")
	if !strings.HasPrefix(location, "/login?return=") || !strings.Contains(location, "%2Ftickets") {
		t.Errorf("expected redirect to /login with return, got %q", location)
	}
}

func TestRequireSignedIn_NoUser_API_Returns401(t *testing.T) {
	sm := newTestSessionManager(t)

	handler := sm.RequireSignedIn(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest("GET", "/api/data", nil)
	req.Header.Set("Accept", "application/json")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected status %d, got %d", http.StatusUnauthorized, rec.Code)
	}
}

func TestRequireSignedIn_NoUser_HTMX_ReturnsHXRedirect(t *testing.T) {
	sm := newTestSessionManager(t)

	handler := sm.RequireSignedIn(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest("GET", "/protected", nil)
	req.Header.Set("HX-Request", "true")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected status %d, got %d", http.StatusUnauthorized, rec.Code)
	}
	if hx := rec.Header().Get("HX-Redirect"); !strings.HasPrefix(hx, "/login") {
		t.Errorf("expected HX-Redirect to /login, got %q", hx)
	}
}

func TestRequireSignedIn_WithUser_Proceeds(t *testing.T) {
	sm := newTestSessionManager(t)

	called := false
	handler := sm.RequireSignedIn(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))

	req := auth.WithTestSession(httptest.NewRequest("GET", "/", nil),
		&auth.Session{User: &auth.SessionUser{ID: primitive.NewObjectID()}})
	handler.ServeHTTP(httptest.NewRecorder(), req)

	if !called {
		t.Error("expected handler to be called")
	}
}

func TestCurrentUser_NoUser(t *testing.T) {
	user, ok := auth.CurrentUser(httptest.NewRequest("GET", "/", nil))
	if ok || user != nil {
		t.Errorf("expected no user, got %+v", user)
	}
}
