package catalog

import "context"

// Stores are interface-driven so validators receive their catalog dependency
// explicitly (constructor injection) and tests can swap in-memory fakes.

// DropdownStore reads dropdown value sets.
type DropdownStore interface {
	// ListActive returns the active (non-deleted) entries for a category.
	// An empty slice means the category has no configured entries; callers
	// distinguish that from a bad value.
	ListActive(ctx context.Context, category string) ([]DropdownEntry, error)
}

// FieldSchemaStore reads dynamic field definitions.
type FieldSchemaStore interface {
	// ListBySection returns schemas for a form section ordered by
	// DisplayOrder.
	ListBySection(ctx context.Context, section string) ([]FieldSchema, error)

	// FindByKeys returns schemas for the given field keys, preserving the
	// stored order. Unknown keys are silently omitted.
	FindByKeys(ctx context.Context, keys []string) ([]FieldSchema, error)
}
