package identity

import (
	"context"
	"sync"

	id "memberflow/pkg/domain"
	"memberflow/pkg/email"
	"memberflow/pkg/platform/sentinel"
)

// InMemory is a mutex-guarded identity store used in tests and local
// development. Email comparisons are case-insensitive, matching the
// collaborating identity service's semantics.
type InMemory struct {
	mu    sync.RWMutex
	users map[id.UserID]User
}

func NewInMemory(users ...User) *InMemory {
	s := &InMemory{users: make(map[id.UserID]User)}
	for _, u := range users {
		s.users[u.ID] = u
	}
	return s
}

// Put adds or replaces a user record. Test seam; production writes belong to
// the identity service.
func (s *InMemory) Put(u User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[u.ID] = u
}

func (s *InMemory) FindActiveByEmail(ctx context.Context, addr string) (*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	needle := email.Normalize(addr)
	for _, u := range s.users {
		if !u.IsActive() {
			continue
		}
		if email.Normalize(u.Email) == needle {
			found := u
			return &found, nil
		}
	}
	return nil, sentinel.ErrNotFound
}

func (s *InMemory) FindActivePrimaryByDomain(ctx context.Context, domain string, excludeID id.UserID) (*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, u := range s.users {
		if !u.IsActive() || !u.UserType.IsPrimary() {
			continue
		}
		if !excludeID.IsNil() && u.ID == excludeID {
			continue
		}
		if email.Domain(u.Email) == domain {
			found := u
			return &found, nil
		}
	}
	return nil, sentinel.ErrNotFound
}
