package handler

import (
	"log/slog"
	"net/http"

	"github.com/rs/xid"

	"github.com/ayutenn/skeleton/internal/auth"
	"github.com/ayutenn/skeleton/internal/service"
	"github.com/ayutenn/skeleton/internal/session"
	"github.com/ayutenn/skeleton/internal/validate"
)

// loginSchema declares the fields the login form must carry. Rules are
// deliberately loose here — login only needs "something was typed"; the
// strict format rules live on registration, where ids are minted.
var loginSchema = validate.NewSchema(
	validate.Field{Name: "user-id", DisplayName: "User ID", Rule: "required,max=64"},
	validate.Field{Name: "password", DisplayName: "Password", Rule: "required,max=72"},
)

// AuthHandler owns the browser-facing session flows: login form submit,
// logout, and the optional GitHub OAuth round-trip.
//
// EVERY BRANCH REDIRECTS:
// Success or failure, these handlers never render anything themselves.
// The outcome rides in the session as a flash message, the browser gets a
// 303 See Other, and the next page shows the message. Users never land on
// a bare error response.
type AuthHandler struct {
	auth   *service.AuthService
	github *auth.GitHubProvider // nil when GitHub sign-in isn't configured
	logger *slog.Logger
}

// NewAuthHandler creates an AuthHandler. github may be nil — the OAuth
// routes are only registered when it isn't.
func NewAuthHandler(authService *service.AuthService, github *auth.GitHubProvider, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		auth:   authService,
		github: github,
		logger: logger,
	}
}

// HandleLogin processes the login form.
//
// HTTP: POST /login
//
// On failure the typed user id is retained so the form comes back
// pre-filled. The password is NEVER retained — failure or not, it exists
// only for the duration of this request.
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	sess, ok := session.FromContext(r.Context())
	if !ok {
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}

	values, problems := loginSchema.Apply(r.PostFormValue)
	if problems != nil {
		for _, p := range problems {
			sess.Error(p)
		}
		sess.Retain(map[string]string{"user-id": r.PostFormValue("user-id")})
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}

	ok, err := h.auth.Login(r.Context(), sess, values["user-id"], values["password"])
	if err != nil {
		// Infrastructure trouble — generic message, full detail in the log.
		h.logger.Error("login failed", slog.String("error", err.Error()))
		sess.Alert("Login is currently unavailable. Please try again later.")
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}
	if !ok {
		// One message for unknown id AND wrong password, on purpose.
		sess.Alert("The ID or password is incorrect.")
		sess.Retain(map[string]string{"user-id": values["user-id"]})
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}

	sess.ClearRetained()
	sess.Info("Welcome back!")
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// HandleLogout clears the session and sends the browser home.
//
// HTTP: GET /logout
func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	if sess, ok := session.FromContext(r.Context()); ok {
		h.auth.Logout(sess)
		sess.Info("You have been logged out.")
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// HandleGitHubLogin starts the OAuth flow by redirecting to GitHub.
//
// HTTP: GET /auth/github/login
//
// CSRF PROTECTION VIA STATE:
// A random state value goes into a short-lived cookie before the redirect;
// the callback verifies GitHub echoed the same value back. That proves the
// flow started here and not on an attacker's page.
func (h *AuthHandler) HandleGitHubLogin(w http.ResponseWriter, r *http.Request) {
	state := xid.New().String()

	http.SetCookie(w, &http.Cookie{
		Name:     "oauth_state",
		Value:    state,
		Path:     "/",
		MaxAge:   600, // long enough to approve, short enough to limit risk
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	http.Redirect(w, r, h.github.AuthURL(state), http.StatusTemporaryRedirect)
}

// HandleGitHubCallback completes the OAuth flow.
//
// HTTP: GET /auth/github/callback?code=xxx&state=yyy
func (h *AuthHandler) HandleGitHubCallback(w http.ResponseWriter, r *http.Request) {
	sess, _ := session.FromContext(r.Context())

	// Step 1: the CSRF state must match the cookie set at flow start.
	stateCookie, err := r.Cookie("oauth_state")
	if err != nil || stateCookie.Value == "" || r.URL.Query().Get("state") != stateCookie.Value {
		h.logger.Warn("github callback: state mismatch")
		http.Error(w, "invalid OAuth state", http.StatusBadRequest)
		return
	}

	// The state cookie is single-use.
	http.SetCookie(w, &http.Cookie{Name: "oauth_state", Value: "", Path: "/", MaxAge: -1})

	// The user may have denied authorization on GitHub's side.
	if errParam := r.URL.Query().Get("error"); errParam != "" {
		if sess != nil {
			sess.Info("GitHub sign-in was cancelled.")
		}
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}

	code := r.URL.Query().Get("code")
	if code == "" {
		http.Error(w, "missing OAuth code", http.StatusBadRequest)
		return
	}

	// Step 2: trade the code for a GitHub profile (server-to-server).
	ghUser, err := h.github.Exchange(r.Context(), code)
	if err != nil {
		h.logger.Error("github callback: exchange failed", slog.String("error", err.Error()))
		if sess != nil {
			sess.Alert("GitHub sign-in failed. Please try again later.")
		}
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}

	// Step 3: provision/recognize the local account and log the session in.
	if sess == nil {
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}
	if err := h.auth.LoginGitHub(r.Context(), sess, ghUser); err != nil {
		h.logger.Error("github callback: local login failed", slog.String("error", err.Error()))
		sess.Alert("GitHub sign-in failed. Please try again later.")
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}

	sess.Info("Welcome back!")
	http.Redirect(w, r, "/", http.StatusSeeOther)
}
