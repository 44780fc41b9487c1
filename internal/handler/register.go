package handler

import (
	"log/slog"
	"net/http"

	"github.com/ayutenn/skeleton/internal/service"
	"github.com/ayutenn/skeleton/internal/session"
	"github.com/ayutenn/skeleton/internal/validate"
)

// registerSchema is the strict end of the validation spectrum: the id
// minted here is a permanent public identifier, so the format rules bite
// at registration time rather than everywhere the id is later used.
var registerSchema = validate.NewSchema(
	validate.Field{Name: "user-id", DisplayName: "User ID", Rule: "required,alphanum,min=4,max=32"},
	validate.Field{Name: "user-name", DisplayName: "User name", Rule: "required,max=100"},
	validate.Field{Name: "password", DisplayName: "Password", Rule: "required,min=8,max=72"},
	validate.Field{Name: "password-confirm", DisplayName: "Password (confirm)", Rule: "required,min=8,max=72"},
)

// RegisterHandler processes the self-registration form.
type RegisterHandler struct {
	register *service.RegisterService
	logger   *slog.Logger
}

func NewRegisterHandler(register *service.RegisterService, logger *slog.Logger) *RegisterHandler {
	return &RegisterHandler{register: register, logger: logger}
}

// retainForm keeps the non-secret form fields so the registration page can
// pre-fill them after a failed attempt. Passwords are excluded without
// exception.
func retainForm(sess *session.Session, r *http.Request) {
	sess.Retain(map[string]string{
		"user-id":   r.PostFormValue("user-id"),
		"user-name": r.PostFormValue("user-name"),
	})
}

// HandleRegister processes the registration form.
//
// HTTP: POST /sample-register
//
// Validation problems each become their own flash so the page can show the
// user everything wrong at once instead of one complaint per round-trip.
func (h *RegisterHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	sess, ok := session.FromContext(r.Context())
	if !ok {
		http.Redirect(w, r, "/sample-register", http.StatusSeeOther)
		return
	}

	values, problems := registerSchema.Apply(r.PostFormValue)
	if problems != nil {
		for _, p := range problems {
			sess.Error(p)
		}
		retainForm(sess, r)
		http.Redirect(w, r, "/sample-register", http.StatusSeeOther)
		return
	}

	outcome := h.register.Register(
		r.Context(),
		values["user-id"],
		values["user-name"],
		values["password"],
		values["password-confirm"],
	)

	if outcome.Succeeded() {
		sess.ClearRetained()
		sess.Info(outcome.Message)
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}

	switch outcome.Kind {
	case service.OutcomePasswordMismatch, service.OutcomeDuplicate:
		sess.Alert(outcome.Message)
	default:
		sess.Error(outcome.Message)
	}
	retainForm(sess, r)
	http.Redirect(w, r, "/sample-register", http.StatusSeeOther)
}
