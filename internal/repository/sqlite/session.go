package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/ayutenn/skeleton/internal/apperror"
	"github.com/ayutenn/skeleton/internal/model"
	"github.com/ayutenn/skeleton/internal/repository"
)

var _ repository.SessionRepository = (*DB)(nil)

// Sessions are small and short-lived, so the flash queue and retained form
// values are serialized into JSON columns instead of getting tables of
// their own. The session manager never sees the serialization — it works
// with model.Session and the (de)marshalling stays in this file.

// InsertSession stores a brand-new session row.
func (db *DB) InsertSession(ctx context.Context, sess *model.Session) error {
	flash, retained, err := marshalSessionBlobs(sess)
	if err != nil {
		return err
	}

	_, err = db.conn.ExecContext(ctx,
		`INSERT INTO sessions (id, user_id, flash, retained, created_at, expires_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		sess.ID,
		sess.UserID,
		flash,
		retained,
		sess.CreatedAt,
		sess.ExpiresAt,
	)
	if err != nil {
		return apperror.Storage("inserting session", err)
	}

	return nil
}

// GetSession loads a session by id. Expired sessions are treated exactly
// like unknown ones — the caller gets NotFound and starts a fresh session,
// so a stale cookie never resurrects a login.
func (db *DB) GetSession(ctx context.Context, id string) (*model.Session, error) {
	var (
		sess     model.Session
		flash    string
		retained string
	)
	err := db.conn.QueryRowContext(ctx,
		`SELECT id, user_id, flash, retained, created_at, expires_at
		 FROM sessions
		 WHERE id = ? AND expires_at > ?`,
		id,
		time.Now(),
	).Scan(
		&sess.ID,
		&sess.UserID,
		&flash,
		&retained,
		&sess.CreatedAt,
		&sess.ExpiresAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("session", id)
		}
		return nil, apperror.Storage("getting session", err)
	}

	if err := json.Unmarshal([]byte(flash), &sess.Flash); err != nil {
		return nil, apperror.Storage("decoding session flash", err)
	}
	if err := json.Unmarshal([]byte(retained), &sess.Retained); err != nil {
		return nil, apperror.Storage("decoding session retained values", err)
	}

	return &sess, nil
}

// SaveSession writes back the mutable parts of a session (principal, flash
// queue, retained values, expiry).
func (db *DB) SaveSession(ctx context.Context, sess *model.Session) error {
	flash, retained, err := marshalSessionBlobs(sess)
	if err != nil {
		return err
	}

	_, err = db.conn.ExecContext(ctx,
		`UPDATE sessions
		 SET user_id = ?, flash = ?, retained = ?, expires_at = ?
		 WHERE id = ?`,
		sess.UserID,
		flash,
		retained,
		sess.ExpiresAt,
		sess.ID,
	)
	if err != nil {
		return apperror.Storage("saving session", err)
	}

	return nil
}

// DeleteSession removes a session row. Deleting an unknown id is a no-op.
func (db *DB) DeleteSession(ctx context.Context, id string) error {
	if _, err := db.conn.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, id); err != nil {
		return apperror.Storage("deleting session", err)
	}
	return nil
}

// PurgeExpiredSessions removes rows past their expiry. Called
// opportunistically by the session middleware — there is no background
// sweeper in this application.
func (db *DB) PurgeExpiredSessions(ctx context.Context) error {
	if _, err := db.conn.ExecContext(ctx, `DELETE FROM sessions WHERE expires_at <= ?`, time.Now()); err != nil {
		return apperror.Storage("purging expired sessions", err)
	}
	return nil
}

func marshalSessionBlobs(sess *model.Session) (flash, retained string, err error) {
	f := sess.Flash
	if f == nil {
		f = []model.Flash{}
	}
	fb, err := json.Marshal(f)
	if err != nil {
		return "", "", apperror.Storage("encoding session flash", err)
	}

	r := sess.Retained
	if r == nil {
		r = map[string]string{}
	}
	rb, err := json.Marshal(r)
	if err != nil {
		return "", "", apperror.Storage("encoding session retained values", err)
	}

	return string(fb), string(rb), nil
}
