package server

import (
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/ayutenn/skeleton/internal/config"
	"github.com/ayutenn/skeleton/internal/session"
)

// newTestServer wires the whole application onto an in-memory database and
// the real templates, so these tests cover routing, middleware order, and
// template rendering together.
func newTestServer(t *testing.T) *Server {
	t.Helper()

	cfg := &config.Config{
		Port:        0,
		Env:         "test",
		DBPath:      ":memory:",
		TemplateDir: "../../web/templates",
		StaticDir:   "../../web/static",
		SessionTTL:  time.Hour,
		JWTSecret:   "test-secret-at-least-32-bytes-long!!",
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

	srv, err := New(cfg, logger)
	if err != nil {
		t.Fatalf("creating server: %v", err)
	}
	t.Cleanup(func() { srv.Close() })
	return srv
}

// sessionCookie extracts the session cookie a response set, if any.
func sessionCookie(rec *httptest.ResponseRecorder) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == session.CookieName {
			return c
		}
	}
	return nil
}

func TestTopPageRenders(t *testing.T) {
	srv := newTestServer(t)

	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("GET / status = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "ayutenn setup ok") {
		t.Error("top page body missing the setup banner")
	}
	if sessionCookie(rec) == nil {
		t.Error("first visit did not start a session")
	}
}

func TestUsersPageRequiresLogin(t *testing.T) {
	srv := newTestServer(t)

	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/users", nil))

	if rec.Code != http.StatusSeeOther {
		t.Fatalf("GET /users status = %d, want 303", rec.Code)
	}
	if loc := rec.Header().Get("Location"); loc != "/login" {
		t.Errorf("Location = %q, want /login", loc)
	}
}

// TestRegisterLoginBrowseFlow walks the whole browser journey on one
// session cookie: register, land on top with the flash, log in, then see
// the guarded user list.
func TestRegisterLoginBrowseFlow(t *testing.T) {
	srv := newTestServer(t)
	router := srv.Router()

	// Visit the top page to obtain a session cookie.
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	cookie := sessionCookie(rec)
	if cookie == nil {
		t.Fatal("no session cookie from first visit")
	}

	postForm := func(target string, form url.Values) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		req.AddCookie(cookie)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		return rec
	}
	get := func(target string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, target, nil)
		req.AddCookie(cookie)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		return rec
	}

	// Register.
	rec = postForm("/sample-register", url.Values{
		"user-id":          {"alice01"},
		"user-name":        {"Alice"},
		"password":         {"longpassword"},
		"password-confirm": {"longpassword"},
	})
	if rec.Code != http.StatusSeeOther || rec.Header().Get("Location") != "/" {
		t.Fatalf("register: status=%d location=%q", rec.Code, rec.Header().Get("Location"))
	}

	// The follow-up page shows the one-shot flash.
	rec = get("/")
	if !strings.Contains(rec.Body.String(), "Registration completed!") {
		t.Error("top page after registration missing the flash")
	}
	rec = get("/")
	if strings.Contains(rec.Body.String(), "Registration completed!") {
		t.Error("flash rendered twice")
	}

	// Log in.
	rec = postForm("/login", url.Values{
		"user-id":  {"alice01"},
		"password": {"longpassword"},
	})
	if rec.Code != http.StatusSeeOther || rec.Header().Get("Location") != "/" {
		t.Fatalf("login: status=%d location=%q", rec.Code, rec.Header().Get("Location"))
	}

	// The guarded page now renders, listing the account.
	rec = get("/users")
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /users after login status = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "alice01") {
		t.Error("user list missing the registered account")
	}

	// Logout, and the guard is back.
	rec = get("/logout")
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("logout status = %d, want 303", rec.Code)
	}
	rec = get("/users")
	if rec.Code != http.StatusSeeOther || rec.Header().Get("Location") != "/login" {
		t.Errorf("GET /users after logout: status=%d location=%q", rec.Code, rec.Header().Get("Location"))
	}
}

func TestAPIRoutesRegistered(t *testing.T) {
	srv := newTestServer(t)

	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/login",
		strings.NewReader(`{"user_id":"nobody","password":"password"}`)))

	// Bad credentials, but the route exists and answers in the envelope.
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("POST /api/login status = %d, want 401", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q, want application/json", ct)
	}
}

func TestAPIRoutesAbsentWithoutSecret(t *testing.T) {
	cfg := &config.Config{
		DBPath:      ":memory:",
		TemplateDir: "../../web/templates",
		StaticDir:   "../../web/static",
		SessionTTL:  time.Hour,
		// No JWTSecret: the token API cannot exist.
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	srv, err := New(cfg, logger)
	if err != nil {
		t.Fatalf("creating server: %v", err)
	}
	t.Cleanup(func() { srv.Close() })

	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/me", nil))

	if rec.Code != http.StatusNotFound {
		t.Errorf("GET /api/me without JWT secret status = %d, want 404", rec.Code)
	}
}

// TestGitHubLinkFollowsConfiguration checks that the login page only
// offers GitHub sign-in when the /auth/github/* routes exist — an
// unconfigured deployment must not render a link into a 404.
func TestGitHubLinkFollowsConfiguration(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

	// Default deployment: no OAuth credentials.
	plain := newTestServer(t)

	rec := httptest.NewRecorder()
	plain.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/login", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /login status = %d, want 200", rec.Code)
	}
	if strings.Contains(rec.Body.String(), "/auth/github/login") {
		t.Error("login page offers GitHub sign-in without the routes registered")
	}

	// Same server with OAuth configured.
	cfg := &config.Config{
		DBPath:             ":memory:",
		TemplateDir:        "../../web/templates",
		StaticDir:          "../../web/static",
		SessionTTL:         time.Hour,
		GitHubClientID:     "client-id",
		GitHubClientSecret: "client-secret",
		GitHubCallbackURL:  "http://localhost:8080/auth/github/callback",
	}
	withGitHub, err := New(cfg, logger)
	if err != nil {
		t.Fatalf("creating server: %v", err)
	}
	t.Cleanup(func() { withGitHub.Close() })

	rec = httptest.NewRecorder()
	withGitHub.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/login", nil))
	if !strings.Contains(rec.Body.String(), "/auth/github/login") {
		t.Error("login page missing the GitHub sign-in link despite configuration")
	}
}
