// Package identity gives the workflow engine read access to the collaborating
// identity service's user records and enforces the two identity-uniqueness
// invariants:
//
//   - no two active users share an email (case-insensitive)
//   - at most one active Primary user per email domain
//
// Writes to the identity store belong to the identity service; this core only
// reads.
package identity

import (
	"time"

	id "memberflow/pkg/domain"
)

// User is a record in the identity store. DeletedAt marks logical deletion;
// deleted users never participate in uniqueness checks.
type User struct {
	ID        id.UserID
	Email     string
	FirstName string
	LastName  string
	UserType  id.UserType
	DeletedAt *time.Time
}

// IsActive reports whether the user participates in uniqueness checks.
func (u User) IsActive() bool { return u.DeletedAt == nil }
