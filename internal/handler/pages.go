// Package handler contains HTTP request handlers.
//
// WHAT IS A HANDLER?
// In Go, an HTTP handler is anything that implements the http.Handler
// interface — most commonly a function with the (ResponseWriter, *Request)
// signature. Chi's router accepts these directly.
//
// HANDLER RESPONSIBILITIES:
// 1. Parse the incoming HTTP request (form fields, path params, body)
// 2. Call business logic (the service layer)
// 3. Write the HTTP response — for browser flows that ALWAYS means a
//    redirect plus flash messages, for API flows the JSON envelope
//
// Handlers contain no business logic — they are the glue between HTTP and
// the services.
package handler

import (
	"html/template"
	"log/slog"
	"net/http"
	"path/filepath"
	"strconv"

	"github.com/ayutenn/skeleton/internal/model"
	"github.com/ayutenn/skeleton/internal/service"
	"github.com/ayutenn/skeleton/internal/session"
)

// pageData is what every template receives. The session-derived fields
// (Flashes, LoggedIn, Principal, Retained) are filled by render() for every
// page; Data carries whatever the specific page needs.
type pageData struct {
	Title     string
	Flashes   []model.Flash
	LoggedIn  bool
	Principal model.Principal
	Retained  map[string]string
	// GitHubLogin tells the login page whether the /auth/github/* routes
	// exist — without it the page would render a link into a 404.
	GitHubLogin bool
	Data        any
}

// PageHandler renders the HTML pages.
//
// TEMPLATE PARSING:
// Templates are parsed once at startup (expensive) and reused per request
// (cheap). Each page is parsed together with base.html so the page's
// {{define "content"}} block fills the layout's {{template "content" .}}
// placeholder — Go's template composition model, similar to "extends" in
// Jinja2 or "layouts" in Rails.
type PageHandler struct {
	pages       map[string]*template.Template
	users       *service.UserService
	githubLogin bool
	logger      *slog.Logger
}

// NewPageHandler parses all page templates from templateDir. githubLogin
// reports whether GitHub sign-in is wired up, so the login page only
// offers it when the routes are actually registered.
func NewPageHandler(templateDir string, users *service.UserService, githubLogin bool, logger *slog.Logger) (*PageHandler, error) {
	names := []string{"top", "login", "register", "users"}

	pages := make(map[string]*template.Template, len(names))
	for _, name := range names {
		// Each page gets its own template set: pages all define a block
		// named "content", so they can't share one set without clobbering
		// each other.
		tmpl, err := template.ParseFiles(
			filepath.Join(templateDir, "base.html"),
			filepath.Join(templateDir, name+".html"),
		)
		if err != nil {
			return nil, err
		}
		pages[name] = tmpl
	}

	return &PageHandler{
		pages:       pages,
		users:       users,
		githubLogin: githubLogin,
		logger:      logger,
	}, nil
}

// render executes one page template with the session state folded in.
//
// Popping the flash queue and the retained form values here — in the one
// place every page goes through — is what gives them their show-exactly-
// once behaviour.
func (h *PageHandler) render(w http.ResponseWriter, r *http.Request, page, title string, data any) {
	d := pageData{
		Title:       title,
		GitHubLogin: h.githubLogin,
		Data:        data,
	}
	if sess, ok := session.FromContext(r.Context()); ok {
		d.Flashes = sess.PopFlashes()
		d.Retained = sess.PopRetained()
		if p, ok := sess.Principal(); ok {
			d.LoggedIn = true
			d.Principal = p
		}
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := h.pages[page].ExecuteTemplate(w, "base", d); err != nil {
		h.logger.Error("failed to render page",
			slog.String("page", page),
			slog.String("error", err.Error()),
		)
	}
}

// HandleTop serves the landing page.
//
// HTTP: GET /
func (h *PageHandler) HandleTop(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, "top", "ayutenn skeleton", nil)
}

// HandleLoginPage serves the login form.
//
// HTTP: GET /login
func (h *PageHandler) HandleLoginPage(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, "login", "Login", nil)
}

// HandleRegisterPage serves the registration form.
//
// HTTP: GET /sample-register
func (h *PageHandler) HandleRegisterPage(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, "register", "Register", nil)
}

// usersPageData is the page-specific data for the user list.
type usersPageData struct {
	Users    []model.User
	Page     int
	PrevPage int
	NextPage int
	HasPrev  bool
	// HasNext is a guess: a full page probably has a successor. An exact
	// answer would need a COUNT query the skeleton doesn't bother with.
	HasNext bool
}

// HandleUsersPage serves the paginated user list with edit/delete forms.
//
// HTTP: GET /users?page=N   (guarded by RequireLogin)
func (h *PageHandler) HandleUsersPage(w http.ResponseWriter, r *http.Request) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	if page < 0 {
		page = 0
	}

	users, err := h.users.List(r.Context(), page, service.DefaultPageSize)
	if err != nil {
		h.logger.Error("failed to list users", slog.String("error", err.Error()))
		if sess, ok := session.FromContext(r.Context()); ok {
			sess.Error("Could not load the user list. Please try again later.")
		}
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}

	h.render(w, r, "users", "Users", usersPageData{
		Users:    users,
		Page:     page,
		PrevPage: page - 1,
		NextPage: page + 1,
		HasPrev:  page > 0,
		HasNext:  len(users) == service.DefaultPageSize,
	})
}
