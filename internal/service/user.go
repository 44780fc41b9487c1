package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/ayutenn/skeleton/internal/apperror"
	"github.com/ayutenn/skeleton/internal/model"
	"github.com/ayutenn/skeleton/internal/repository"
)

// Validation constants.
// Defining these as constants (not magic numbers in code) makes them easy
// to find, self-documenting, and referenceable in error messages.
const (
	MaxUserNameLength = 100
	MaxProfileLength  = 2000
	DefaultPageSize   = 20
	MaxPageSize       = 100
)

// UserService handles the read/update/delete side of user management.
// Creation belongs to RegisterService, credentials to AuthService — this
// service covers everything a logged-in user does to existing accounts.
type UserService struct {
	repo   repository.UserRepository
	logger *slog.Logger
}

// NewUserService creates a UserService.
func NewUserService(repo repository.UserRepository, logger *slog.Logger) *UserService {
	return &UserService{
		repo:   repo,
		logger: logger,
	}
}

// GetByID returns one non-deleted user.
func (s *UserService) GetByID(ctx context.Context, userID string) (*model.User, error) {
	if userID == "" {
		return nil, apperror.ValidationFailed("user-id", "user id is required")
	}

	user, err := s.repo.GetByID(ctx, userID, false)
	if err != nil {
		return nil, fmt.Errorf("service/user: fetching user %s: %w", userID, err)
	}

	return user, nil
}

// List returns one page of users ordered by user id.
//
// Out-of-range inputs are clamped rather than rejected: a negative page
// becomes page 0, a missing page size becomes the default, an oversized one
// becomes the maximum. Listing past the end yields an empty page — that's a
// normal answer, not an error.
func (s *UserService) List(ctx context.Context, page, pageSize int) ([]model.User, error) {
	if page < 0 {
		page = 0
	}
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	if pageSize > MaxPageSize {
		pageSize = MaxPageSize
	}

	users, err := s.repo.List(ctx, repository.ListOptions{
		Page:     page,
		PageSize: pageSize,
	})
	if err != nil {
		return nil, fmt.Errorf("service/user: listing users: %w", err)
	}

	return users, nil
}

// Update rewrites a user's display name and profile text.
func (s *UserService) Update(ctx context.Context, userID, userName, profile string) error {
	userName = strings.TrimSpace(userName)

	if userID == "" {
		return apperror.ValidationFailed("user-id", "user id is required")
	}
	if userName == "" {
		return apperror.ValidationFailed("user-name", "user name is required")
	}
	if len(userName) > MaxUserNameLength {
		return apperror.ValidationFailed("user-name",
			fmt.Sprintf("user name must be %d characters or fewer", MaxUserNameLength))
	}
	if len(profile) > MaxProfileLength {
		return apperror.ValidationFailed("profile",
			fmt.Sprintf("profile must be %d characters or fewer", MaxProfileLength))
	}

	if err := s.repo.Update(ctx, userID, userName, profile); err != nil {
		return fmt.Errorf("service/user: updating user %s: %w", userID, err)
	}

	s.logger.Info("user updated", slog.String("userID", userID))
	return nil
}

// Delete soft-deletes a user. Idempotent: deleting an already-deleted user
// succeeds silently (the end state is the same).
func (s *UserService) Delete(ctx context.Context, userID string) error {
	if userID == "" {
		return apperror.ValidationFailed("user-id", "user id is required")
	}

	if err := s.repo.SoftDelete(ctx, userID); err != nil {
		return fmt.Errorf("service/user: deleting user %s: %w", userID, err)
	}

	s.logger.Info("user soft-deleted", slog.String("userID", userID))
	return nil
}
