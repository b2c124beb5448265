// Package store persists Member aggregates.
//
// Stores are interface-driven so the orchestrator stays testable against the
// in-memory implementation. All reads exclude logically-deleted records.
package store

import (
	"context"

	"memberflow/internal/member"
	id "memberflow/pkg/domain"
)

// Filter narrows List results for the read projections.
type Filter struct {
	// Industry restricts to members whose organisation carries the industry
	// code (case-insensitive).
	Industry string
	// FeaturedOnly restricts to featured members.
	FeaturedOnly bool
	// Categories restricts to the given membership categories.
	Categories []member.Category
	// WithCoordinates restricts to members whose address has been geocoded.
	WithCoordinates bool
	// ActiveOnly restricts to members in the active status.
	ActiveOnly bool
}

// Store is the member persistence boundary.
//
// Create and UpdateStatusConditioned are single-record atomic operations;
// partial writes are never committed.
type Store interface {
	// Create persists a new application. Returns sentinel.ErrAlreadyUsed
	// (possibly wrapped) when a store-level uniqueness constraint on the
	// embedded snapshot emails rejects the write.
	Create(ctx context.Context, m *member.Member) error

	// FindByID returns the member or sentinel.ErrNotFound. Deleted members
	// are not found.
	FindByID(ctx context.Context, memberID id.MemberID) (*member.Member, error)

	// Update persists profile changes without touching Status. Returns
	// sentinel.ErrNotFound when absent, sentinel.ErrAlreadyUsed on a
	// uniqueness violation.
	Update(ctx context.Context, m *member.Member) error

	// UpdateStatusConditioned persists m's status and history only when the
	// stored status still equals expected. Returns sentinel.ErrStaleStatus
	// when another actor changed the status first, sentinel.ErrNotFound when
	// the member is absent.
	UpdateStatusConditioned(ctx context.Context, m *member.Member, expected member.Status) error

	// SoftDelete marks the member deleted. Idempotent once deleted.
	SoftDelete(ctx context.Context, memberID id.MemberID) error

	// List returns members matching the filter, excluding deleted records.
	List(ctx context.Context, filter Filter) ([]*member.Member, error)
}
