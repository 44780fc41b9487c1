package session

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/ayutenn/skeleton/internal/apperror"
	"github.com/ayutenn/skeleton/internal/model"
	"github.com/ayutenn/skeleton/internal/repository"
)

// CookieName is the browser cookie carrying the session id.
const CookieName = "ay_session"

type contextKey string

const sessionKey contextKey = "session"

// Manager loads and stores sessions. It owns the cookie handling and the
// storage round-trip; handlers only ever see the *Session from context.
type Manager struct {
	repo   repository.SessionRepository
	ttl    time.Duration
	logger *slog.Logger
}

// NewManager creates a Manager. ttl bounds how long an idle session lives.
func NewManager(repo repository.SessionRepository, ttl time.Duration, logger *slog.Logger) *Manager {
	return &Manager{
		repo:   repo,
		ttl:    ttl,
		logger: logger,
	}
}

// Middleware attaches a session to every request.
//
// FLOW:
//  1. Read the session cookie. A valid id loads the existing row; a
//     missing, unknown or expired id starts a fresh anonymous session.
//  2. Once a loaded session has burned through half its TTL, slide the
//     expiry and re-issue the cookie with a fresh MaxAge.
//  3. Put the *Session in the request context for handlers.
//  4. After the handler returns, persist the session if it changed.
//
// The Set-Cookie header goes out when the session is created or refreshed
// — before the handler writes anything, because headers can't be changed
// after the first body byte.
//
// A storage failure while loading degrades to a fresh in-memory session
// rather than failing the request: the user loses their login, they don't
// lose the page.
func (m *Manager) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess := m.load(r)
		if sess == nil {
			sess = m.create(w, r)
		} else if time.Until(sess.rec.ExpiresAt) < m.ttl/2 {
			// Sliding expiry: activity past the halfway mark pushes the
			// session out to a full TTL again. The cookie must be re-sent
			// too — the browser discards it at the MaxAge it was given,
			// however fresh the server-side row is.
			sess.touch(m.ttl)
			sess.dirty = true
			m.setCookie(w, sess.ID())
		}

		ctx := NewContext(r.Context(), sess)
		next.ServeHTTP(w, r.WithContext(ctx))

		if sess.dirty {
			// The write-back has to survive the client hanging up right
			// after the response: a cancelled request context would drop
			// a login that already succeeded.
			if err := m.repo.SaveSession(context.WithoutCancel(r.Context()), sess.rec); err != nil {
				m.logger.Error("failed to save session",
					slog.String("sessionID", sess.ID()),
					slog.String("error", err.Error()),
				)
			}
		}
	})
}

// NewContext returns a copy of ctx carrying the session. The middleware
// calls it on every request; tests call it to fake a mid-request context.
func NewContext(ctx context.Context, sess *Session) context.Context {
	return context.WithValue(ctx, sessionKey, sess)
}

// FromContext retrieves the request's session.
//
// ok is false only for requests that didn't pass through Middleware —
// inside the normal router tree a session is always present.
func FromContext(ctx context.Context) (*Session, bool) {
	sess, ok := ctx.Value(sessionKey).(*Session)
	return sess, ok
}

// Destroy removes the session row and expires the cookie. Used when a
// session should not survive at all (not part of normal logout, which
// keeps the session for the goodbye flash message).
func (m *Manager) Destroy(ctx context.Context, w http.ResponseWriter, sess *Session) {
	if err := m.repo.DeleteSession(ctx, sess.ID()); err != nil {
		m.logger.Error("failed to delete session",
			slog.String("sessionID", sess.ID()),
			slog.String("error", err.Error()),
		)
	}
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// load returns the existing session for the request's cookie, or nil if
// there isn't a usable one.
func (m *Manager) load(r *http.Request) *Session {
	cookie, err := r.Cookie(CookieName)
	if err != nil || cookie.Value == "" {
		return nil
	}

	rec, err := m.repo.GetSession(r.Context(), cookie.Value)
	if err != nil {
		if !errors.Is(err, apperror.ErrNotFound) {
			m.logger.Error("failed to load session",
				slog.String("sessionID", cookie.Value),
				slog.String("error", err.Error()),
			)
		}
		return nil
	}

	return &Session{rec: rec}
}

// create starts a fresh anonymous session and sets the cookie.
//
// Creation is also when we opportunistically purge expired rows — the
// application has no background tasks, so housekeeping piggybacks on the
// cheapest-to-amortize request event there is.
func (m *Manager) create(w http.ResponseWriter, r *http.Request) *Session {
	if err := m.repo.PurgeExpiredSessions(r.Context()); err != nil {
		m.logger.Warn("failed to purge expired sessions", slog.String("error", err.Error()))
	}

	now := time.Now()
	rec := &model.Session{
		ID:        newSessionID(),
		CreatedAt: now,
		ExpiresAt: now.Add(m.ttl),
	}

	if err := m.repo.InsertSession(r.Context(), rec); err != nil {
		// Degrade to an unsaved session: the request still works, the
		// session just won't survive to the next request.
		m.logger.Error("failed to insert session", slog.String("error", err.Error()))
	}

	m.setCookie(w, rec.ID)

	return &Session{rec: rec}
}

// setCookie (re-)issues the session cookie with a full-TTL MaxAge.
func (m *Manager) setCookie(w http.ResponseWriter, id string) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    id,
		Path:     "/",
		MaxAge:   int(m.ttl.Seconds()),
		HttpOnly: true, // JavaScript can't read it — blunts XSS token theft
		SameSite: http.SameSiteLaxMode,
	})
}

// newSessionID returns 32 hex characters from crypto/rand. The id is a
// bearer credential for the whole session TTL, so it has to be
// unguessable, not merely unique: anything sequential or
// timestamp-derived would let one visitor enumerate everyone else's
// cookies.
func newSessionID() string {
	b := make([]byte, 16)
	rand.Read(b) // never fails per crypto/rand's documented contract
	return hex.EncodeToString(b)
}
