package service

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/ayutenn/skeleton/internal/apperror"
	"github.com/ayutenn/skeleton/internal/auth"
	"github.com/ayutenn/skeleton/internal/model"
	"github.com/ayutenn/skeleton/internal/repository"
	"github.com/ayutenn/skeleton/internal/session"
)

// =========================================================================
// FAKES AND HELPERS
// =========================================================================

// fakeUserRepo is an in-memory implementation of repository.UserRepository.
// Using a fake (not a mock framework) keeps tests dependency-free and easy
// to read — you can see exactly what the fake does.
//
// Like the real store, the fake hashes passwords on Create so that
// AuthService's Verify call works against it unchanged.
type fakeUserRepo struct {
	users     map[string]*model.User // keyed by user_id
	passwords *auth.PasswordService
	// set to a non-nil error to simulate a database failure
	getErr    error
	createErr error
}

func newFakeUserRepo(t *testing.T) *fakeUserRepo {
	t.Helper()
	return &fakeUserRepo{
		users:     make(map[string]*model.User),
		passwords: auth.NewPasswordServiceForTest(4),
	}
}

func (f *fakeUserRepo) Create(ctx context.Context, userID, userName, password string) error {
	if f.createErr != nil {
		return f.createErr
	}
	if u, ok := f.users[userID]; ok && !u.IsDeleted {
		return apperror.Duplicate("user", userID)
	}
	hash, err := f.passwords.Hash(password)
	if err != nil {
		return err
	}
	now := time.Now()
	f.users[userID] = &model.User{
		UserID:       userID,
		UserName:     userName,
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	return nil
}

func (f *fakeUserRepo) GetByID(ctx context.Context, userID string, includeDeleted bool) (*model.User, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	u, ok := f.users[userID]
	if !ok || (u.IsDeleted && !includeDeleted) {
		return nil, apperror.NotFound("user", userID)
	}
	copied := *u
	return &copied, nil
}

func (f *fakeUserRepo) List(ctx context.Context, opts repository.ListOptions) ([]model.User, error) {
	users := []model.User{}
	for _, u := range f.users {
		if u.IsDeleted && !opts.IncludeDeleted {
			continue
		}
		users = append(users, *u)
	}
	return users, nil
}

func (f *fakeUserRepo) Update(ctx context.Context, userID, userName, profile string) error {
	u, ok := f.users[userID]
	if !ok || u.IsDeleted {
		return apperror.NotFound("user", userID)
	}
	u.UserName = userName
	u.Profile = profile
	u.UpdatedAt = time.Now()
	return nil
}

func (f *fakeUserRepo) SoftDelete(ctx context.Context, userID string) error {
	if u, ok := f.users[userID]; ok {
		u.IsDeleted = true
	}
	return nil
}

func (f *fakeUserRepo) TouchLastLogin(ctx context.Context, userID string) error {
	if u, ok := f.users[userID]; ok {
		u.LastLogin = time.Now()
	}
	return nil
}

// testLogger discards nothing — seeing log lines on -v is often useful —
// but keeps them out of the default test output.
func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func newTestSession() *session.Session {
	now := time.Now()
	return session.NewSession(&model.Session{
		ID:        "test-session",
		CreatedAt: now,
		ExpiresAt: now.Add(time.Hour),
	})
}

func newAuthService(t *testing.T) (*AuthService, *fakeUserRepo) {
	t.Helper()
	repo := newFakeUserRepo(t)
	return NewAuthService(repo, repo.passwords, testLogger()), repo
}

func mustCreateUser(t *testing.T, repo *fakeUserRepo, userID, password string) {
	t.Helper()
	if err := repo.Create(context.Background(), userID, "Test User", password); err != nil {
		t.Fatalf("creating test user %q: %v", userID, err)
	}
}

// =========================================================================
// LOGIN TESTS
// =========================================================================

func TestLogin_Success(t *testing.T) {
	svc, repo := newAuthService(t)
	mustCreateUser(t, repo, "alice01", "correct-password")
	sess := newTestSession()

	ok, err := svc.Login(context.Background(), sess, "alice01", "correct-password")
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	if !ok {
		t.Fatal("Login() ok = false, want true")
	}

	p, authed := sess.Principal()
	if !authed || p.UserID != "alice01" {
		t.Errorf("session principal = %+v (authed=%v), want alice01", p, authed)
	}
	if repo.users["alice01"].LastLogin.IsZero() {
		t.Error("Login() did not stamp last_login")
	}
}

func TestLogin_WrongPassword(t *testing.T) {
	svc, repo := newAuthService(t)
	mustCreateUser(t, repo, "alice01", "correct-password")
	sess := newTestSession()

	ok, err := svc.Login(context.Background(), sess, "alice01", "wrong-password")
	if err != nil {
		t.Fatalf("Login() error = %v, want nil for bad credentials", err)
	}
	if ok {
		t.Fatal("Login() ok = true for wrong password")
	}
	if sess.IsAuthenticated() {
		t.Error("failed login authenticated the session")
	}
}

func TestLogin_UnknownUser(t *testing.T) {
	svc, _ := newAuthService(t)
	sess := newTestSession()

	// Unknown user and wrong password must be indistinguishable: plain
	// ok=false, no error either way.
	ok, err := svc.Login(context.Background(), sess, "nobody", "whatever-pass")
	if err != nil {
		t.Fatalf("Login() error = %v, want nil for unknown user", err)
	}
	if ok {
		t.Fatal("Login() ok = true for unknown user")
	}
}

func TestLogin_StorageError(t *testing.T) {
	svc, repo := newAuthService(t)
	repo.getErr = apperror.Storage("boom", errors.New("disk on fire"))
	sess := newTestSession()

	ok, err := svc.Login(context.Background(), sess, "alice01", "pw-whatever")
	if err == nil {
		t.Fatal("Login() error = nil, want storage failure surfaced")
	}
	if ok {
		t.Error("Login() ok = true alongside an error")
	}
}

func TestLogin_FailureKeepsExistingPrincipal(t *testing.T) {
	svc, repo := newAuthService(t)
	mustCreateUser(t, repo, "alice01", "correct-password")
	sess := newTestSession()

	if ok, _ := svc.Login(context.Background(), sess, "alice01", "correct-password"); !ok {
		t.Fatal("setup login failed")
	}

	// A later failed attempt must not log the session out.
	if ok, err := svc.Login(context.Background(), sess, "alice01", "wrong-password"); ok || err != nil {
		t.Fatalf("failed login: ok=%v err=%v", ok, err)
	}

	p, authed := sess.Principal()
	if !authed || p.UserID != "alice01" {
		t.Errorf("principal after failed re-login = %+v (authed=%v), want alice01 intact", p, authed)
	}
}

func TestLogin_SoftDeletedUserRejected(t *testing.T) {
	svc, repo := newAuthService(t)
	mustCreateUser(t, repo, "alice01", "correct-password")
	repo.users["alice01"].IsDeleted = true
	sess := newTestSession()

	ok, err := svc.Login(context.Background(), sess, "alice01", "correct-password")
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	if ok {
		t.Fatal("Login() accepted a soft-deleted user")
	}
}

// =========================================================================
// LOGOUT TESTS
// =========================================================================

func TestLogout(t *testing.T) {
	svc, repo := newAuthService(t)
	mustCreateUser(t, repo, "alice01", "correct-password")
	sess := newTestSession()

	if ok, _ := svc.Login(context.Background(), sess, "alice01", "correct-password"); !ok {
		t.Fatal("setup login failed")
	}

	svc.Logout(sess)

	if sess.IsAuthenticated() {
		t.Error("session still authenticated after Logout")
	}

	// Logout, then a failed login: the principal must stay absent.
	if ok, _ := svc.Login(context.Background(), sess, "alice01", "wrong-password"); ok {
		t.Fatal("wrong password accepted")
	}
	if sess.IsAuthenticated() {
		t.Error("failed login after logout authenticated the session")
	}
}

func TestLogout_AnonymousSession(t *testing.T) {
	svc, _ := newAuthService(t)
	sess := newTestSession()

	// Logging out an anonymous session is harmless.
	svc.Logout(sess)
	if sess.IsAuthenticated() {
		t.Error("anonymous session authenticated after Logout")
	}
}

// =========================================================================
// CURRENT USER TESTS
// =========================================================================

func TestCurrentUser(t *testing.T) {
	svc, repo := newAuthService(t)
	sess := newTestSession()

	if _, ok := svc.CurrentUser(sess); ok {
		t.Error("CurrentUser() ok = true for anonymous session")
	}

	mustCreateUser(t, repo, "alice01", "correct-password")
	if ok, _ := svc.Login(context.Background(), sess, "alice01", "correct-password"); !ok {
		t.Fatal("setup login failed")
	}

	p, ok := svc.CurrentUser(sess)
	if !ok || p.UserID != "alice01" {
		t.Errorf("CurrentUser() = %+v (ok=%v), want alice01", p, ok)
	}
}

// =========================================================================
// GITHUB LOGIN TESTS
// =========================================================================

func TestLoginGitHub_ProvisionsLocalAccount(t *testing.T) {
	svc, repo := newAuthService(t)
	sess := newTestSession()

	err := svc.LoginGitHub(context.Background(), sess, &auth.GitHubUser{
		ID:    583231,
		Login: "OctoCat",
	})
	if err != nil {
		t.Fatalf("LoginGitHub() error = %v", err)
	}

	p, ok := sess.Principal()
	if !ok || p.UserID != "gh-octocat" {
		t.Errorf("principal = %+v (ok=%v), want gh-octocat", p, ok)
	}
	if _, ok := repo.users["gh-octocat"]; !ok {
		t.Error("local account gh-octocat was not provisioned")
	}
}

func TestLoginGitHub_ExistingAccountReused(t *testing.T) {
	svc, repo := newAuthService(t)
	sess := newTestSession()

	gh := &auth.GitHubUser{Login: "octocat"}
	if err := svc.LoginGitHub(context.Background(), sess, gh); err != nil {
		t.Fatalf("first LoginGitHub() error = %v", err)
	}
	firstHash := repo.users["gh-octocat"].PasswordHash

	sess2 := newTestSession()
	if err := svc.LoginGitHub(context.Background(), sess2, gh); err != nil {
		t.Fatalf("second LoginGitHub() error = %v", err)
	}

	if len(repo.users) != 1 {
		t.Errorf("repo has %d users after two GitHub logins, want 1", len(repo.users))
	}
	if repo.users["gh-octocat"].PasswordHash != firstHash {
		t.Error("second GitHub login replaced the account's password")
	}
}

func TestLoginGitHub_NilUser(t *testing.T) {
	svc, _ := newAuthService(t)

	if err := svc.LoginGitHub(context.Background(), newTestSession(), nil); err == nil {
		t.Fatal("LoginGitHub(nil) error = nil, want error")
	}
}
