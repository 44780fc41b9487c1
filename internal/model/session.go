package model

import "time"

// Severity classifies a flash message for rendering.
type Severity string

const (
	SeverityInfo  Severity = "info"
	SeverityAlert Severity = "alert"
	SeverityError Severity = "error"
)

// Flash is a short-lived notification queued for display on the next
// rendered response, then discarded.
type Flash struct {
	Severity Severity `json:"severity"`
	Text     string   `json:"text"`
}

// Session is one server-side session row.
//
// UserID is the session principal: empty means the session is anonymous,
// non-empty means that user is logged in. Flash and Retained ride along in
// the same row — Flash is the pending notification queue, Retained holds
// non-sensitive form values preserved across a failed submit so the form
// can be redisplayed pre-filled (passwords are never retained).
type Session struct {
	ID        string            `json:"id"`
	UserID    string            `json:"userId"`
	Flash     []Flash           `json:"flash"`
	Retained  map[string]string `json:"retained"`
	CreatedAt time.Time         `json:"createdAt"`
	ExpiresAt time.Time         `json:"expiresAt"`
}
