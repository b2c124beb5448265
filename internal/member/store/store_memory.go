package store

import (
	"context"
	"strings"
	"sync"
	"time"

	"memberflow/internal/member"
	id "memberflow/pkg/domain"
	"memberflow/pkg/email"
	"memberflow/pkg/platform/sentinel"
)

// InMemory is a mutex-guarded member store used in tests and local
// development. It mirrors the postgres store's semantics, including the
// snapshot-email uniqueness backstop and the status-conditioned write.
type InMemory struct {
	mu      sync.RWMutex
	members map[id.MemberID]member.Member
}

func NewInMemory() *InMemory {
	return &InMemory{members: make(map[id.MemberID]member.Member)}
}

func (s *InMemory) Create(ctx context.Context, m *member.Member) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.members[m.ID]; exists {
		return sentinel.ErrConflict
	}
	if s.snapshotEmailTakenLocked(m) {
		return sentinel.ErrAlreadyUsed
	}
	s.members[m.ID] = clone(m)
	return nil
}

func (s *InMemory) FindByID(ctx context.Context, memberID id.MemberID) (*member.Member, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	m, ok := s.members[memberID]
	if !ok || m.IsDeleted() {
		return nil, sentinel.ErrNotFound
	}
	out := clone(&m)
	return &out, nil
}

func (s *InMemory) Update(ctx context.Context, m *member.Member) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.members[m.ID]
	if !ok || stored.IsDeleted() {
		return sentinel.ErrNotFound
	}
	if s.snapshotEmailTakenLocked(m) {
		return sentinel.ErrAlreadyUsed
	}
	// Status, its history and the creation timestamp are owned by the
	// status-conditioned write path and never change through a profile update.
	next := clone(m)
	next.Status = stored.Status
	next.StatusHistory = append([]member.HistoryEntry(nil), stored.StatusHistory...)
	next.CreatedAt = stored.CreatedAt
	s.members[m.ID] = next
	return nil
}

func (s *InMemory) UpdateStatusConditioned(ctx context.Context, m *member.Member, expected member.Status) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.members[m.ID]
	if !ok || stored.IsDeleted() {
		return sentinel.ErrNotFound
	}
	if stored.Status != expected {
		return sentinel.ErrStaleStatus
	}
	s.members[m.ID] = clone(m)
	return nil
}

func (s *InMemory) SoftDelete(ctx context.Context, memberID id.MemberID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.members[memberID]
	if !ok {
		return sentinel.ErrNotFound
	}
	if stored.IsDeleted() {
		return nil
	}
	now := time.Now()
	stored.ApplyDeletion(now)
	s.members[memberID] = stored
	return nil
}

func (s *InMemory) List(ctx context.Context, filter Filter) ([]*member.Member, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*member.Member
	for _, m := range s.members {
		if m.IsDeleted() || !matches(&m, filter) {
			continue
		}
		c := clone(&m)
		out = append(out, &c)
	}
	return out, nil
}

func matches(m *member.Member, filter Filter) bool {
	if filter.FeaturedOnly && !m.FeaturedMember {
		return false
	}
	if filter.ActiveOnly && m.Status != member.StatusActive {
		return false
	}
	if filter.WithCoordinates && m.OrganisationInfo.Address.Coordinates == nil {
		return false
	}
	if filter.Industry != "" {
		found := false
		for _, code := range m.OrganisationInfo.Industries {
			if strings.EqualFold(code, filter.Industry) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if len(filter.Categories) > 0 {
		found := false
		for _, c := range filter.Categories {
			if m.Category == c {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// snapshotEmailTakenLocked is the in-memory stand-in for the postgres unique
// index on snapshot emails. Caller must hold the write lock.
func (s *InMemory) snapshotEmailTakenLocked(candidate *member.Member) bool {
	taken := make(map[string]bool)
	for _, m := range s.members {
		if m.ID == candidate.ID || m.IsDeleted() {
			continue
		}
		for _, snap := range m.UserSnapshots {
			taken[email.Normalize(snap.Email)] = true
		}
	}
	for _, snap := range candidate.UserSnapshots {
		if taken[email.Normalize(snap.Email)] {
			return true
		}
	}
	return false
}

// clone deep-copies the slices so callers never share state with the store.
func clone(m *member.Member) member.Member {
	out := *m
	out.UserSnapshots = append([]member.UserSnapshot(nil), m.UserSnapshots...)
	out.StatusHistory = append([]member.HistoryEntry(nil), m.StatusHistory...)
	out.OrganisationInfo.Industries = append([]string(nil), m.OrganisationInfo.Industries...)
	if m.OrganisationInfo.Address.Coordinates != nil {
		coords := *m.OrganisationInfo.Address.Coordinates
		out.OrganisationInfo.Address.Coordinates = &coords
	}
	if m.DeletedAt != nil {
		deleted := *m.DeletedAt
		out.DeletedAt = &deleted
	}
	return out
}
