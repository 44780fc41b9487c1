// Package service — authentication business logic.
//
// AuthService is the credential gate of the application. It sits between
// the HTTP handlers and the repository/auth utilities:
//
//	handlers (HTTP) → AuthService (credential rules) → UserRepository (DB)
//	                ↘ PasswordService (bcrypt)
//
// KEY RESPONSIBILITIES:
//   - Verify a user id + password pair against the stored bcrypt hash
//   - Set and clear the session principal (the logged-in identity)
//   - Provision accounts for the optional GitHub sign-in
//
// WHAT THIS LAYER DOES NOT DO:
//   - It does NOT set cookies or write responses (handler concerns)
//   - It does NOT run SQL (repository concern)
package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/ayutenn/skeleton/internal/apperror"
	"github.com/ayutenn/skeleton/internal/auth"
	"github.com/ayutenn/skeleton/internal/model"
	"github.com/ayutenn/skeleton/internal/repository"
	"github.com/ayutenn/skeleton/internal/session"
)

// AuthService verifies credentials and manages the session principal.
type AuthService struct {
	users     repository.UserRepository
	passwords *auth.PasswordService
	logger    *slog.Logger
}

// NewAuthService creates an AuthService with all required dependencies.
// Call this in server.go when wiring the dependency graph.
func NewAuthService(
	users repository.UserRepository,
	passwords *auth.PasswordService,
	logger *slog.Logger,
) *AuthService {
	return &AuthService{
		users:     users,
		passwords: passwords,
		logger:    logger,
	}
}

// Login checks the credentials and, on success, sets the session principal.
//
// THE DELIBERATELY COARSE CONTRACT:
// ok is false for BOTH "no such user" and "wrong password" — callers (and
// therefore attackers reading our responses) cannot tell which. Returning
// richer detail here would be an anti-feature: it hands an enumeration
// oracle to anyone probing for valid user ids. Don't "fix" this.
//
// err is non-nil only for infrastructure problems (storage down). Bad
// credentials are ok=false with a nil error.
//
// On mismatch the session is left exactly as it was — a failed login never
// logs anyone out.
func (s *AuthService) Login(ctx context.Context, sess *session.Session, userID, password string) (bool, error) {
	ok, err := s.Check(ctx, userID, password)
	if err != nil || !ok {
		return false, err
	}

	sess.SetPrincipal(userID)

	// last_login is advisory — failing to stamp it must not fail the login.
	if err := s.users.TouchLastLogin(ctx, userID); err != nil {
		s.logger.Warn("failed to stamp last_login",
			slog.String("userID", userID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.Info("user logged in", slog.String("userID", userID))
	return true, nil
}

// Check verifies a credential pair without touching any session — the
// token-based API login uses this directly. Same coarse contract as Login.
func (s *AuthService) Check(ctx context.Context, userID, password string) (bool, error) {
	user, err := s.users.GetByID(ctx, userID, false)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("service/auth: looking up user for login: %w", err)
	}

	// bcrypt's comparison is constant-time internally.
	if err := s.passwords.Verify(user.PasswordHash, password); err != nil {
		return false, nil
	}

	return true, nil
}

// Logout clears the entire session state unconditionally — principal,
// pending flash messages, retained form values, everything.
func (s *AuthService) Logout(sess *session.Session) {
	if p, ok := sess.Principal(); ok {
		s.logger.Info("user logged out", slog.String("userID", p.UserID))
	}
	sess.Clear()
}

// IsAuthenticated reports whether the session has a principal.
func (s *AuthService) IsAuthenticated(sess *session.Session) bool {
	return sess.IsAuthenticated()
}

// CurrentUser returns the session principal. ok is false for anonymous
// sessions; callers should check IsAuthenticated first.
func (s *AuthService) CurrentUser(sess *session.Session) (model.Principal, bool) {
	return sess.Principal()
}

// LoginGitHub completes the optional GitHub sign-in: it provisions a local
// account on first visit and sets the session principal.
//
// The local user id is "gh-<login>" so GitHub-born accounts can never
// collide with self-registered ids that the registration schema restricts
// to letters and digits. The account gets a random password that nobody
// knows — GitHub users sign in through GitHub, not through the login form.
func (s *AuthService) LoginGitHub(ctx context.Context, sess *session.Session, ghUser *auth.GitHubUser) error {
	if ghUser == nil {
		return fmt.Errorf("service/auth: GitHub user must not be nil")
	}

	userID := "gh-" + strings.ToLower(ghUser.Login)

	_, err := s.users.GetByID(ctx, userID, false)
	if errors.Is(err, apperror.ErrNotFound) {
		err = s.users.Create(ctx, userID, ghUser.Login, randomPassword())
		if errors.Is(err, apperror.ErrDuplicate) {
			// Concurrent first visit from the same account: the other
			// request created the row. That's fine.
			err = nil
		}
	}
	if err != nil {
		return fmt.Errorf("service/auth: provisioning GitHub user %s: %w", userID, err)
	}

	sess.SetPrincipal(userID)

	if err := s.users.TouchLastLogin(ctx, userID); err != nil {
		s.logger.Warn("failed to stamp last_login",
			slog.String("userID", userID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.Info("user logged in via GitHub", slog.String("userID", userID))
	return nil
}

// randomPassword returns 32 bytes of hex-encoded randomness — an unusable
// placeholder password for provisioned accounts.
func randomPassword() string {
	b := make([]byte, 32)
	rand.Read(b) // never fails per crypto/rand's documented contract
	return hex.EncodeToString(b)
}
