package catalog

import (
	"context"
	"sort"
	"strings"
	"sync"
)

// InMemoryDropdownStore is a mutex-guarded dropdown store used in tests and
// local development.
type InMemoryDropdownStore struct {
	mu      sync.RWMutex
	entries []DropdownEntry
}

func NewInMemoryDropdownStore(entries ...DropdownEntry) *InMemoryDropdownStore {
	return &InMemoryDropdownStore{entries: entries}
}

// Put adds or replaces an entry keyed by (category, code).
func (s *InMemoryDropdownStore) Put(entry DropdownEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, e := range s.entries {
		if strings.EqualFold(e.Category, entry.Category) && strings.EqualFold(e.Code, entry.Code) {
			s.entries[i] = entry
			return
		}
	}
	s.entries = append(s.entries, entry)
}

func (s *InMemoryDropdownStore) ListActive(ctx context.Context, category string) ([]DropdownEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []DropdownEntry
	for _, e := range s.entries {
		if e.Active && strings.EqualFold(e.Category, category) {
			out = append(out, e)
		}
	}
	return out, nil
}

// InMemoryFieldSchemaStore is a mutex-guarded field schema store used in
// tests and local development.
type InMemoryFieldSchemaStore struct {
	mu      sync.RWMutex
	schemas map[string]FieldSchema
}

func NewInMemoryFieldSchemaStore(schemas ...FieldSchema) *InMemoryFieldSchemaStore {
	s := &InMemoryFieldSchemaStore{schemas: make(map[string]FieldSchema)}
	for _, sc := range schemas {
		s.schemas[sc.Key] = sc
	}
	return s
}

func (s *InMemoryFieldSchemaStore) Put(schema FieldSchema) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.schemas[schema.Key] = schema
}

func (s *InMemoryFieldSchemaStore) ListBySection(ctx context.Context, section string) ([]FieldSchema, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []FieldSchema
	for _, sc := range s.schemas {
		if strings.EqualFold(sc.Section, section) {
			out = append(out, sc)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DisplayOrder < out[j].DisplayOrder })
	return out, nil
}

func (s *InMemoryFieldSchemaStore) FindByKeys(ctx context.Context, keys []string) ([]FieldSchema, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []FieldSchema
	for _, key := range keys {
		if sc, ok := s.schemas[key]; ok {
			out = append(out, sc)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DisplayOrder < out[j].DisplayOrder })
	return out, nil
}
