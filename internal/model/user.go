// Package model defines the data structures used throughout the application.
// In Go, we use structs to represent our data — similar to classes in other
// languages, but without inheritance. Go favours composition over inheritance.
package model

import "time"

// User represents a registered user account — one row in the `user` table.
//
// The login identifier is UserID, a string chosen by the user at registration.
// It is immutable after creation and unique among non-deleted users.
//
// WHY A SOFT-DELETE FLAG?
// Rows are never physically removed. Deleting a user flips IsDeleted to true,
// which excludes the row from default lookups while keeping it available for
// audits (and for lookups that explicitly ask for deleted users).
//
// PasswordHash holds the bcrypt hash of the password — never the clear text.
// It carries no json tag value so it can't accidentally leak: the field is
// explicitly excluded from serialization with `json:"-"`.
type User struct {
	UserID       string    `json:"userId"`
	UserName     string    `json:"userName"`
	Profile      string    `json:"profile"`
	PasswordHash string    `json:"-"`
	LastLogin    time.Time `json:"lastLogin"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
	IsDeleted    bool      `json:"isDeleted"`
}

// Principal is the identity attached to an authenticated session.
// At most one principal exists per session; the zero value means "anonymous".
type Principal struct {
	UserID string `json:"userId"`
}
