package repository

import (
	"context"

	"github.com/ayutenn/skeleton/internal/model"
)

// ListOptions controls pagination for user listings.
// Page is zero-based: page 2 with page size 10 returns rows 20..29.
type ListOptions struct {
	Page           int
	PageSize       int
	IncludeDeleted bool
}

// UserRepository is the single owner of user persistence. Every read or
// write of the `user` table goes through this interface — services never
// see SQL.
//
// Error contract:
//   - Create returns apperror.ErrDuplicate when a non-deleted user with the
//     same id already exists.
//   - GetByID and Update return apperror.ErrNotFound when no row matches
//     (respecting the soft-delete filter).
//   - SoftDelete is idempotent — deleting a deleted user succeeds silently.
//   - Anything else surfaces as apperror.ErrStorage.
type UserRepository interface {
	// Create hashes the password and inserts a new, non-deleted user row.
	Create(ctx context.Context, userID, userName, password string) error
	GetByID(ctx context.Context, userID string, includeDeleted bool) (*model.User, error)
	// List returns users ordered by user_id ascending. An empty page is a
	// valid, non-error result.
	List(ctx context.Context, opts ListOptions) ([]model.User, error)
	// Update rewrites the two mutable fields (user_name, profile) and
	// refreshes on_update.
	Update(ctx context.Context, userID, userName, profile string) error
	SoftDelete(ctx context.Context, userID string) error
	// TouchLastLogin stamps last_login with the current time.
	TouchLastLogin(ctx context.Context, userID string) error
}

// SessionRepository persists server-side sessions. Sessions expire; Purge
// removes rows past their expiry.
type SessionRepository interface {
	InsertSession(ctx context.Context, sess *model.Session) error
	// GetSession returns apperror.ErrNotFound for unknown or expired ids.
	GetSession(ctx context.Context, id string) (*model.Session, error)
	SaveSession(ctx context.Context, sess *model.Session) error
	DeleteSession(ctx context.Context, id string) error
	PurgeExpiredSessions(ctx context.Context) error
}
