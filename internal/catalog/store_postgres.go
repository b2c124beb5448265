package catalog

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"
)

// PostgresDropdownStore reads dropdown entries from PostgreSQL.
// This store is pure I/O; which values are legal for a field is decided by
// the validator, not here.
type PostgresDropdownStore struct {
	db *sql.DB
}

func NewPostgresDropdownStore(db *sql.DB) *PostgresDropdownStore {
	return &PostgresDropdownStore{db: db}
}

func (s *PostgresDropdownStore) ListActive(ctx context.Context, category string) ([]DropdownEntry, error) {
	query := `
		SELECT category, code, label, active
		FROM dropdown_entries
		WHERE lower(category) = lower($1)
		  AND active = TRUE
		  AND deleted_at IS NULL
		ORDER BY label
	`
	rows, err := s.db.QueryContext(ctx, query, category)
	if err != nil {
		return nil, fmt.Errorf("list dropdown entries: %w", err)
	}
	defer rows.Close()

	var out []DropdownEntry
	for rows.Next() {
		var e DropdownEntry
		if err := rows.Scan(&e.Category, &e.Code, &e.Label, &e.Active); err != nil {
			return nil, fmt.Errorf("scan dropdown entry: %w", err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate dropdown entries: %w", err)
	}
	return out, nil
}

// PostgresFieldSchemaStore reads dynamic field definitions from PostgreSQL.
type PostgresFieldSchemaStore struct {
	db *sql.DB
}

func NewPostgresFieldSchemaStore(db *sql.DB) *PostgresFieldSchemaStore {
	return &PostgresFieldSchemaStore{db: db}
}

func (s *PostgresFieldSchemaStore) ListBySection(ctx context.Context, section string) ([]FieldSchema, error) {
	query := `
		SELECT key, type, section, display_order, required, COALESCE(dropdown_category, '')
		FROM field_schemas
		WHERE lower(section) = lower($1)
		ORDER BY display_order
	`
	rows, err := s.db.QueryContext(ctx, query, section)
	if err != nil {
		return nil, fmt.Errorf("list field schemas: %w", err)
	}
	defer rows.Close()
	return scanFieldSchemas(rows)
}

func (s *PostgresFieldSchemaStore) FindByKeys(ctx context.Context, keys []string) ([]FieldSchema, error) {
	query := `
		SELECT key, type, section, display_order, required, COALESCE(dropdown_category, '')
		FROM field_schemas
		WHERE key = ANY($1)
		ORDER BY display_order
	`
	rows, err := s.db.QueryContext(ctx, query, pq.Array(keys))
	if err != nil {
		return nil, fmt.Errorf("find field schemas: %w", err)
	}
	defer rows.Close()
	return scanFieldSchemas(rows)
}

func scanFieldSchemas(rows *sql.Rows) ([]FieldSchema, error) {
	var out []FieldSchema
	for rows.Next() {
		var sc FieldSchema
		var typ string
		if err := rows.Scan(&sc.Key, &typ, &sc.Section, &sc.DisplayOrder, &sc.Required, &sc.DropdownCategory); err != nil {
			return nil, fmt.Errorf("scan field schema: %w", err)
		}
		sc.Type = FieldType(typ)
		out = append(out, sc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate field schemas: %w", err)
	}
	return out, nil
}
