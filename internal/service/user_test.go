package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/ayutenn/skeleton/internal/apperror"
)

func newUserService(t *testing.T) (*UserService, *fakeUserRepo) {
	t.Helper()
	repo := newFakeUserRepo(t)
	return NewUserService(repo, testLogger()), repo
}

func TestUserServiceGetByID(t *testing.T) {
	svc, repo := newUserService(t)
	mustCreateUser(t, repo, "alice01", "some-password")

	user, err := svc.GetByID(context.Background(), "alice01")
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if user.UserID != "alice01" {
		t.Errorf("UserID = %q, want alice01", user.UserID)
	}
}

func TestUserServiceGetByID_Empty(t *testing.T) {
	svc, _ := newUserService(t)

	_, err := svc.GetByID(context.Background(), "")
	if !errors.Is(err, apperror.ErrValidation) {
		t.Errorf("GetByID(\"\") error = %v, want ErrValidation", err)
	}
}

func TestUserServiceGetByID_NotFound(t *testing.T) {
	svc, _ := newUserService(t)

	_, err := svc.GetByID(context.Background(), "missing")
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("GetByID() error = %v, want ErrNotFound", err)
	}
}

func TestUserServiceList_ClampsPaging(t *testing.T) {
	svc, repo := newUserService(t)
	mustCreateUser(t, repo, "alice01", "some-password")

	// Negative page and zero size are clamped, not rejected.
	users, err := svc.List(context.Background(), -3, 0)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(users) != 1 {
		t.Errorf("List() returned %d users, want 1", len(users))
	}
}

func TestUserServiceUpdate_Validation(t *testing.T) {
	svc, repo := newUserService(t)
	mustCreateUser(t, repo, "alice01", "some-password")

	tests := []struct {
		name     string
		userID   string
		userName string
		profile  string
	}{
		{"empty user id", "", "Name", ""},
		{"empty user name", "alice01", "   ", ""},
		{"user name too long", "alice01", strings.Repeat("x", MaxUserNameLength+1), ""},
		{"profile too long", "alice01", "Name", strings.Repeat("x", MaxProfileLength+1)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := svc.Update(context.Background(), tt.userID, tt.userName, tt.profile)
			if !errors.Is(err, apperror.ErrValidation) {
				t.Errorf("Update() error = %v, want ErrValidation", err)
			}
		})
	}

	// The row must be untouched after all those rejections.
	if repo.users["alice01"].UserName != "Test User" {
		t.Error("rejected update modified the row")
	}
}

func TestUserServiceUpdate(t *testing.T) {
	svc, repo := newUserService(t)
	mustCreateUser(t, repo, "alice01", "some-password")

	if err := svc.Update(context.Background(), "alice01", "  Alice Cooper  ", "likes snakes"); err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	u := repo.users["alice01"]
	if u.UserName != "Alice Cooper" {
		t.Errorf("UserName = %q, want trimmed %q", u.UserName, "Alice Cooper")
	}
	if u.Profile != "likes snakes" {
		t.Errorf("Profile = %q, want %q", u.Profile, "likes snakes")
	}
}

func TestUserServiceUpdate_NotFound(t *testing.T) {
	svc, _ := newUserService(t)

	err := svc.Update(context.Background(), "missing", "Name", "")
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("Update() error = %v, want ErrNotFound", err)
	}
}

func TestUserServiceDelete(t *testing.T) {
	svc, repo := newUserService(t)
	mustCreateUser(t, repo, "alice01", "some-password")

	if err := svc.Delete(context.Background(), "alice01"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if !repo.users["alice01"].IsDeleted {
		t.Error("user not flagged as deleted")
	}

	// Idempotent: a second delete still succeeds.
	if err := svc.Delete(context.Background(), "alice01"); err != nil {
		t.Errorf("second Delete() error = %v, want nil", err)
	}
}
