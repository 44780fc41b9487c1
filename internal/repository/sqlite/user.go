package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/ayutenn/skeleton/internal/apperror"
	"github.com/ayutenn/skeleton/internal/model"
	"github.com/ayutenn/skeleton/internal/repository"
)

// COMPILE-TIME INTERFACE CHECK:
// `var _ X = (*Y)(nil)` assigns a nil *Y to a variable of interface type X.
// If *Y doesn't implement X, the compiler errors immediately — you don't
// have to wait until something tries to pass *DB where a UserRepository is
// expected. A Go best practice for any interface implementation.
var _ repository.UserRepository = (*DB)(nil)

// Create hashes the password and inserts a new user row.
//
// DUPLICATE CHECK, TWICE:
// 1. A SELECT before the INSERT gives the common case a clean, race-free-in-
//    practice answer and lets us report ErrDuplicate without relying on
//    driver error codes.
// 2. The check-then-insert window is still a classic race: two identical
//    concurrent registrations can both pass the SELECT. The partial unique
//    index on (user_id WHERE is_deleted = 0) is the real arbiter — the
//    loser's INSERT fails with a UNIQUE violation, which we translate to
//    the same ErrDuplicate the pre-check produces. Callers can't tell which
//    path rejected them, and they shouldn't need to.
//
// PARAMETERIZED QUERIES (the ? placeholders):
// NEVER build SQL strings with fmt.Sprintf or string concatenation!
//
//	BAD:  "WHERE user_id = '" + input + "'"  ← attacker sends: ' OR 1=1 --
//	GOOD: "WHERE user_id = ?", input          ← driver safely binds the value
func (db *DB) Create(ctx context.Context, userID, userName, password string) error {
	_, err := db.GetByID(ctx, userID, false)
	if err == nil {
		return apperror.Duplicate("user", userID)
	}
	if !isNotFound(err) {
		return err
	}

	hash, err := db.passwords.Hash(password)
	if err != nil {
		return fmt.Errorf("sqlite: hashing password for user %s: %w", userID, err)
	}

	now := time.Now()
	_, err = db.conn.ExecContext(ctx,
		`INSERT INTO user (user_id, user_name, profile, password, last_login, on_create, on_update, is_deleted)
		 VALUES (?, ?, '', ?, ?, ?, ?, 0)`,
		userID,
		userName,
		hash,
		now,
		now,
		now,
	)
	if err != nil {
		if isUniqueViolation(err) {
			// Lost the race against a concurrent identical registration.
			return apperror.Duplicate("user", userID)
		}
		return apperror.Storage("inserting user", err)
	}

	return nil
}

// GetByID retrieves a single user by their login id.
//
// sql.ErrNoRows is NOT really an error — it just means "no matching row
// exists". We translate it to our app's NotFound error so callers can
// react (404, flash message, ...) without knowing about database/sql.
//
// With includeDeleted, a deleted row and a later re-registered active row
// can share a user_id. The active row wins; among deleted rows the newest
// wins. Exactly one record comes back either way.
func (db *DB) GetByID(ctx context.Context, userID string, includeDeleted bool) (*model.User, error) {
	query := `SELECT user_id, user_name, profile, password, last_login, on_create, on_update, is_deleted
	          FROM user
	          WHERE user_id = ?`
	if !includeDeleted {
		query += ` AND is_deleted = 0`
	}
	query += ` ORDER BY is_deleted ASC, on_create DESC LIMIT 1`

	var u model.User
	err := db.conn.QueryRowContext(ctx, query, userID).Scan(
		&u.UserID,
		&u.UserName,
		&u.Profile,
		&u.PasswordHash,
		&u.LastLogin,
		&u.CreatedAt,
		&u.UpdatedAt,
		&u.IsDeleted,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("user", userID)
		}
		return nil, apperror.Storage("getting user", err)
	}

	return &u, nil
}

// List returns one page of users ordered by user_id ascending.
//
// OFFSET/LIMIT pagination: page 0 size 10 → rows 0..9, page 1 → rows 10..19.
// An empty page (past the end, or an empty table) returns an empty slice,
// never an error.
func (db *DB) List(ctx context.Context, opts repository.ListOptions) ([]model.User, error) {
	query := `SELECT user_id, user_name, profile, password, last_login, on_create, on_update, is_deleted
	          FROM user`
	if !opts.IncludeDeleted {
		query += ` WHERE is_deleted = 0`
	}
	query += ` ORDER BY user_id ASC LIMIT ? OFFSET ?`

	rows, err := db.conn.QueryContext(ctx, query, opts.PageSize, opts.Page*opts.PageSize)
	if err != nil {
		return nil, apperror.Storage("listing users", err)
	}
	// rows MUST be closed, or the connection leaks back into the pool open.
	defer rows.Close()

	users := []model.User{}
	for rows.Next() {
		var u model.User
		if err := rows.Scan(
			&u.UserID,
			&u.UserName,
			&u.Profile,
			&u.PasswordHash,
			&u.LastLogin,
			&u.CreatedAt,
			&u.UpdatedAt,
			&u.IsDeleted,
		); err != nil {
			return nil, apperror.Storage("scanning user row", err)
		}
		users = append(users, u)
	}
	// rows.Err() reports errors that ended the iteration early — easy to
	// forget, and skipping it silently truncates results.
	if err := rows.Err(); err != nil {
		return nil, apperror.Storage("iterating user rows", err)
	}

	return users, nil
}

// Update rewrites the mutable fields (user_name, profile) of a non-deleted
// user and refreshes on_update. user_id and the password are immutable here.
//
// RowsAffected tells us whether the UPDATE matched anything — zero rows
// means the user doesn't exist (or is deleted), which we report as NotFound
// rather than succeeding silently.
func (db *DB) Update(ctx context.Context, userID, userName, profile string) error {
	res, err := db.conn.ExecContext(ctx,
		`UPDATE user
		 SET user_name = ?, profile = ?, on_update = ?
		 WHERE user_id = ? AND is_deleted = 0`,
		userName,
		profile,
		time.Now(),
		userID,
	)
	if err != nil {
		return apperror.Storage("updating user", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return apperror.Storage("reading update result", err)
	}
	if affected == 0 {
		return apperror.NotFound("user", userID)
	}

	return nil
}

// SoftDelete flags a user as deleted. Rows are never physically removed.
//
// IDEMPOTENT BY DESIGN: deleting an already-deleted (or never-existing)
// user succeeds silently — the end state "no active user with this id"
// holds either way, so there's nothing useful to report.
func (db *DB) SoftDelete(ctx context.Context, userID string) error {
	_, err := db.conn.ExecContext(ctx,
		`UPDATE user
		 SET is_deleted = 1, on_update = ?
		 WHERE user_id = ? AND is_deleted = 0`,
		time.Now(),
		userID,
	)
	if err != nil {
		return apperror.Storage("soft-deleting user", err)
	}

	return nil
}

// TouchLastLogin stamps last_login for a non-deleted user. The column is
// advisory — a failure to find the user is not an error worth surfacing,
// so zero affected rows is fine.
func (db *DB) TouchLastLogin(ctx context.Context, userID string) error {
	_, err := db.conn.ExecContext(ctx,
		`UPDATE user SET last_login = ? WHERE user_id = ? AND is_deleted = 0`,
		time.Now(),
		userID,
	)
	if err != nil {
		return apperror.Storage("touching last_login", err)
	}
	return nil
}

// isNotFound is a tiny local helper so Create's pre-check reads cleanly.
func isNotFound(err error) bool {
	return errors.Is(err, apperror.ErrNotFound)
}
