package identity

import (
	"context"

	id "memberflow/pkg/domain"
)

// Store is the read-only view of the identity service consumed by the
// uniqueness validator. Implementations must exclude logically-deleted
// records and compare emails case-insensitively.
type Store interface {
	// FindActiveByEmail returns the active user holding the email, or
	// sentinel.ErrNotFound.
	FindActiveByEmail(ctx context.Context, email string) (*User, error)

	// FindActivePrimaryByDomain returns an active Primary user whose email
	// domain matches, excluding excludeID when non-nil. Returns
	// sentinel.ErrNotFound when the domain is unclaimed.
	FindActivePrimaryByDomain(ctx context.Context, domain string, excludeID id.UserID) (*User, error)
}
