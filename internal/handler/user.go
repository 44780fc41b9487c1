package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ayutenn/skeleton/internal/auth"
	"github.com/ayutenn/skeleton/internal/service"
	"github.com/ayutenn/skeleton/internal/session"
	"github.com/ayutenn/skeleton/internal/validate"
)

var updateSchema = validate.NewSchema(
	validate.Field{Name: "user-id", DisplayName: "User ID", Rule: "required,max=64"},
	validate.Field{Name: "user-name", DisplayName: "User name", Rule: "required,max=100"},
	validate.Field{Name: "profile", DisplayName: "Profile", Rule: "max=2000"},
)

// UserHandler serves both faces of the user table: the browser admin page
// actions (flash + redirect) and the JSON API (envelope responses).
type UserHandler struct {
	users  *service.UserService
	auth   *service.AuthService
	tokens *auth.TokenService // nil when the token API isn't configured
	logger *slog.Logger
}

func NewUserHandler(users *service.UserService, authService *service.AuthService, tokens *auth.TokenService, logger *slog.Logger) *UserHandler {
	return &UserHandler{
		users:  users,
		auth:   authService,
		tokens: tokens,
		logger: logger,
	}
}

// --- browser actions -------------------------------------------------------

// HandleUpdate applies a name/profile edit from the user admin page.
//
// HTTP: POST /users/update
func (h *UserHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	sess, ok := session.FromContext(r.Context())
	if !ok {
		http.Redirect(w, r, "/users", http.StatusSeeOther)
		return
	}

	values, problems := updateSchema.Apply(r.PostFormValue)
	if problems != nil {
		for _, p := range problems {
			sess.Error(p)
		}
		http.Redirect(w, r, "/users", http.StatusSeeOther)
		return
	}

	err := h.users.Update(r.Context(), values["user-id"], values["user-name"], values["profile"])
	if err != nil {
		h.logger.Error("user update failed",
			slog.String("user_id", values["user-id"]),
			slog.String("error", err.Error()))
		sess.Alert("The user could not be updated.")
	} else {
		sess.Info("The user has been updated.")
	}
	http.Redirect(w, r, "/users", http.StatusSeeOther)
}

// HandleDelete soft-deletes a user from the admin page.
//
// HTTP: POST /users/delete
func (h *UserHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	sess, ok := session.FromContext(r.Context())
	if !ok {
		http.Redirect(w, r, "/users", http.StatusSeeOther)
		return
	}

	userID := r.PostFormValue("user-id")
	if userID == "" {
		sess.Error("User ID is required.")
		http.Redirect(w, r, "/users", http.StatusSeeOther)
		return
	}

	if err := h.users.Delete(r.Context(), userID); err != nil {
		h.logger.Error("user delete failed",
			slog.String("user_id", userID),
			slog.String("error", err.Error()))
		sess.Alert("The user could not be deleted.")
	} else {
		sess.Info("The user has been deleted.")
	}
	http.Redirect(w, r, "/users", http.StatusSeeOther)
}

// --- JSON API --------------------------------------------------------------

type apiLoginRequest struct {
	UserID   string `json:"user_id"`
	Password string `json:"password"`
}

// HandleAPILogin trades credentials for a bearer token.
//
// HTTP: POST /api/login
// Body: {"user_id": "...", "password": "..."}
//
// Bad credentials get the SAME 401 whether the id exists or not.
func (h *UserHandler) HandleAPILogin(w http.ResponseWriter, r *http.Request) {
	var req apiLoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeFailure(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.UserID == "" || req.Password == "" {
		writeFailure(w, http.StatusBadRequest, "user_id and password are required")
		return
	}

	ok, err := h.auth.Check(r.Context(), req.UserID, req.Password)
	if err != nil {
		h.logger.Error("api login failed", slog.String("error", err.Error()))
		writeFailure(w, http.StatusInternalServerError, "An internal error occurred")
		return
	}
	if !ok {
		writeFailure(w, http.StatusUnauthorized, "The ID or password is incorrect.")
		return
	}

	token, err := h.tokens.Generate(req.UserID)
	if err != nil {
		h.logger.Error("token generation failed", slog.String("error", err.Error()))
		writeFailure(w, http.StatusInternalServerError, "An internal error occurred")
		return
	}

	writeSuccess(w, map[string]string{"token": token})
}

// HandleAPIGetUser returns the public slice of a user record.
//
// HTTP: GET /api/users/{userID}
//
// Intentionally narrow: only the display name leaves the server on this
// unauthenticated route.
func (h *UserHandler) HandleAPIGetUser(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")

	user, err := h.users.GetByID(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, map[string]string{"user_name": user.UserName})
}

// HandleAPIMe returns the full record of the token's subject.
//
// HTTP: GET /api/me  (requires a bearer token)
func (h *UserHandler) HandleAPIMe(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		writeFailure(w, http.StatusUnauthorized, "valid authentication required")
		return
	}

	user, err := h.users.GetByID(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, user)
}
