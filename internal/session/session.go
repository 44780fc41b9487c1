// Package session implements server-side browser sessions.
//
// WHY SERVER-SIDE SESSIONS (AND NOT A JWT COOKIE)?
// The browser flows need more than an identity: they carry flash messages
// (one-shot notifications rendered on the next page) and retained form
// values (redisplayed after a failed submit). That state mutates on almost
// every request, which is exactly what a signed, stateless token is bad at.
// So the cookie holds only a random session id; everything else lives in a
// sessions table row keyed by that id.
//
// THE PRINCIPAL:
// A session has at most one authenticated principal — the user_id set by a
// successful login. It travels with the request through context, never
// through a package-level global: every handler that wants the current
// user asks the request's context, so two concurrent requests can never
// see each other's login.
package session

import (
	"time"

	"github.com/ayutenn/skeleton/internal/model"
)

// Session wraps one session row for the duration of a request.
//
// Handlers mutate it freely (set the principal, queue flash messages,
// retain form values); the middleware writes it back to storage once, after
// the handler returns, and only if something actually changed.
type Session struct {
	rec   *model.Session
	dirty bool
}

// NewSession wraps a raw session record. The manager uses it when loading
// and creating sessions; tests use it to build sessions without storage.
func NewSession(rec *model.Session) *Session {
	return &Session{rec: rec}
}

// ID returns the opaque session identifier (the cookie value).
func (s *Session) ID() string {
	return s.rec.ID
}

// IsAuthenticated reports whether a principal is set.
func (s *Session) IsAuthenticated() bool {
	return s.rec.UserID != ""
}

// Principal returns the authenticated identity.
//
// Callers should check IsAuthenticated first; as a defensive fallback the
// zero Principal and ok=false come back for anonymous sessions instead of
// a panic.
func (s *Session) Principal() (model.Principal, bool) {
	if s.rec.UserID == "" {
		return model.Principal{}, false
	}
	return model.Principal{UserID: s.rec.UserID}, true
}

// SetPrincipal marks the session as authenticated for userID.
func (s *Session) SetPrincipal(userID string) {
	s.rec.UserID = userID
	s.dirty = true
}

// Clear wipes the whole session state — principal, flash queue, retained
// values — unconditionally. Used by logout.
func (s *Session) Clear() {
	s.rec.UserID = ""
	s.rec.Flash = nil
	s.rec.Retained = nil
	s.dirty = true
}

// AddFlash queues a notification for the next rendered page.
func (s *Session) AddFlash(severity model.Severity, text string) {
	s.rec.Flash = append(s.rec.Flash, model.Flash{Severity: severity, Text: text})
	s.dirty = true
}

// Info, Alert and Error are shorthand for AddFlash with a fixed severity —
// they read like the calls they replace in handler code.
func (s *Session) Info(text string) { s.AddFlash(model.SeverityInfo, text) }

func (s *Session) Alert(text string) { s.AddFlash(model.SeverityAlert, text) }

func (s *Session) Error(text string) { s.AddFlash(model.SeverityError, text) }

// PopFlashes drains the flash queue. A flash message renders exactly once:
// the page handler pops the queue, and the emptied queue is persisted when
// the request finishes.
func (s *Session) PopFlashes() []model.Flash {
	if len(s.rec.Flash) == 0 {
		return nil
	}
	flashes := s.rec.Flash
	s.rec.Flash = nil
	s.dirty = true
	return flashes
}

// Retain stores non-sensitive form values for one redisplay after a failed
// submit. Passwords must never be passed here — the caller filters them out
// before calling.
func (s *Session) Retain(values map[string]string) {
	if len(values) == 0 {
		return
	}
	if s.rec.Retained == nil {
		s.rec.Retained = make(map[string]string, len(values))
	}
	for k, v := range values {
		s.rec.Retained[k] = v
	}
	s.dirty = true
}

// PopRetained returns the retained form values and clears them — like the
// flash queue, they survive exactly one render.
func (s *Session) PopRetained() map[string]string {
	if len(s.rec.Retained) == 0 {
		return nil
	}
	values := s.rec.Retained
	s.rec.Retained = nil
	s.dirty = true
	return values
}

// ClearRetained drops retained values without returning them. Called after
// a successful submit so stale input doesn't reappear later.
func (s *Session) ClearRetained() {
	if len(s.rec.Retained) == 0 {
		return
	}
	s.rec.Retained = nil
	s.dirty = true
}

// touch extends the expiry — sessions slide rather than fixed-expire, so an
// active user isn't logged out mid-visit.
func (s *Session) touch(ttl time.Duration) {
	s.rec.ExpiresAt = time.Now().Add(ttl)
}
