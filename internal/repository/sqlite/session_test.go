package sqlite

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/xid"

	"github.com/ayutenn/skeleton/internal/apperror"
	"github.com/ayutenn/skeleton/internal/model"
)

func newTestSession(ttl time.Duration) *model.Session {
	now := time.Now()
	return &model.Session{
		ID:        xid.New().String(),
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}
}

func TestSessionRoundTrip(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	sess := newTestSession(time.Hour)
	sess.UserID = "alice01"
	sess.Flash = []model.Flash{
		{Severity: model.SeverityInfo, Text: "Welcome back!"},
		{Severity: model.SeverityError, Text: "Something failed."},
	}
	sess.Retained = map[string]string{"user-id": "alice01"}

	if err := db.InsertSession(ctx, sess); err != nil {
		t.Fatalf("InsertSession() error = %v", err)
	}

	got, err := db.GetSession(ctx, sess.ID)
	if err != nil {
		t.Fatalf("GetSession() error = %v", err)
	}

	if got.UserID != "alice01" {
		t.Errorf("UserID = %q, want %q", got.UserID, "alice01")
	}
	if len(got.Flash) != 2 || got.Flash[0].Text != "Welcome back!" || got.Flash[1].Severity != model.SeverityError {
		t.Errorf("Flash = %+v, want the two queued messages in order", got.Flash)
	}
	if got.Retained["user-id"] != "alice01" {
		t.Errorf("Retained = %+v, want user-id preserved", got.Retained)
	}
}

func TestSessionGet_Unknown(t *testing.T) {
	db := newTestDB(t)

	_, err := db.GetSession(context.Background(), "no-such-session")
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("GetSession() error = %v, want ErrNotFound", err)
	}
}

func TestSessionGet_Expired(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	// Already expired at insert time — GetSession must treat it exactly
	// like an unknown id.
	sess := newTestSession(-time.Minute)
	if err := db.InsertSession(ctx, sess); err != nil {
		t.Fatalf("InsertSession() error = %v", err)
	}

	_, err := db.GetSession(ctx, sess.ID)
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("GetSession() of expired session error = %v, want ErrNotFound", err)
	}
}

func TestSessionSave(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	sess := newTestSession(time.Hour)
	if err := db.InsertSession(ctx, sess); err != nil {
		t.Fatalf("InsertSession() error = %v", err)
	}

	// Log the session in and queue a flash, then write it back.
	sess.UserID = "bob42"
	sess.Flash = []model.Flash{{Severity: model.SeverityInfo, Text: "hello"}}
	sess.ExpiresAt = time.Now().Add(2 * time.Hour)
	if err := db.SaveSession(ctx, sess); err != nil {
		t.Fatalf("SaveSession() error = %v", err)
	}

	got, err := db.GetSession(ctx, sess.ID)
	if err != nil {
		t.Fatalf("GetSession() after save: %v", err)
	}
	if got.UserID != "bob42" {
		t.Errorf("UserID = %q, want %q", got.UserID, "bob42")
	}
	if len(got.Flash) != 1 {
		t.Errorf("Flash = %+v, want one message", got.Flash)
	}
}

func TestSessionDelete(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	sess := newTestSession(time.Hour)
	if err := db.InsertSession(ctx, sess); err != nil {
		t.Fatalf("InsertSession() error = %v", err)
	}

	if err := db.DeleteSession(ctx, sess.ID); err != nil {
		t.Fatalf("DeleteSession() error = %v", err)
	}
	if _, err := db.GetSession(ctx, sess.ID); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("GetSession() after delete error = %v, want ErrNotFound", err)
	}

	// Deleting an unknown id is a no-op, not an error.
	if err := db.DeleteSession(ctx, "never-existed"); err != nil {
		t.Errorf("DeleteSession() of unknown id error = %v, want nil", err)
	}
}

func TestSessionPurgeExpired(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	live := newTestSession(time.Hour)
	dead := newTestSession(-time.Minute)
	if err := db.InsertSession(ctx, live); err != nil {
		t.Fatalf("InsertSession(live) error = %v", err)
	}
	if err := db.InsertSession(ctx, dead); err != nil {
		t.Fatalf("InsertSession(dead) error = %v", err)
	}

	if err := db.PurgeExpiredSessions(ctx); err != nil {
		t.Fatalf("PurgeExpiredSessions() error = %v", err)
	}

	if _, err := db.GetSession(ctx, live.ID); err != nil {
		t.Errorf("live session purged: %v", err)
	}

	// The dead row must be physically gone, not just filtered by GetSession.
	var count int
	if err := db.conn.QueryRow(`SELECT COUNT(*) FROM sessions WHERE id = ?`, dead.ID).Scan(&count); err != nil {
		t.Fatalf("counting sessions: %v", err)
	}
	if count != 0 {
		t.Error("expired session row still present after purge")
	}
}
