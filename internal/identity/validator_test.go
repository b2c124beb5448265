package identity

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	id "memberflow/pkg/domain"
	dErrors "memberflow/pkg/domain-errors"
)

type ValidatorSuite struct {
	suite.Suite
	store     *InMemory
	validator *Validator
	ctx       context.Context
}

func (s *ValidatorSuite) SetupTest() {
	s.store = NewInMemory()
	s.validator = NewValidator(s.store)
	s.ctx = context.Background()
}

func TestValidatorSuite(t *testing.T) {
	suite.Run(t, new(ValidatorSuite))
}

func (s *ValidatorSuite) seedUser(addr string, userType id.UserType) User {
	u := User{
		ID:       id.UserID(uuid.New()),
		Email:    addr,
		UserType: userType,
	}
	s.store.Put(u)
	return u
}

func (s *ValidatorSuite) TestEmailUniqueness() {
	s.Run("empty candidate list is valid", func() {
		s.NoError(s.validator.Validate(s.ctx, nil))
	})

	s.Run("new email passes", func() {
		err := s.validator.Validate(s.ctx, []Candidate{
			{Email: "new@fresh.example", UserType: id.UserTypeSecondary},
		})
		s.NoError(err)
	})

	s.Run("existing email conflicts regardless of casing", func() {
		s.seedUser("alice@acme.com", id.UserTypeSecondary)

		err := s.validator.Validate(s.ctx, []Candidate{
			{Email: "ALICE@ACME.COM", UserType: id.UserTypeSecondary},
		})
		conflict, ok := AsConflict(err)
		s.Require().True(ok)
		s.Equal(ConflictDuplicateEmail, conflict.Kind)
		s.Equal("alice@acme.com", conflict.Email)
	})

	s.Run("deleted users do not conflict", func() {
		u := s.seedUser("gone@acme.com", id.UserTypeSecondary)
		now := time.Now()
		u.DeletedAt = &now
		s.store.Put(u)

		err := s.validator.Validate(s.ctx, []Candidate{
			{Email: "gone@acme.com", UserType: id.UserTypeSecondary},
		})
		s.NoError(err)
	})

	s.Run("update excludes own record", func() {
		u := s.seedUser("self@acme.com", id.UserTypeSecondary)

		err := s.validator.Validate(s.ctx, []Candidate{
			{ID: u.ID, Email: "self@acme.com", UserType: id.UserTypeSecondary},
		})
		s.NoError(err)
	})
}

func (s *ValidatorSuite) TestPrimaryDomainExclusivity() {
	s.Run("second Primary on a claimed domain conflicts", func() {
		s.seedUser("alice@acme.com", id.UserTypePrimary)

		err := s.validator.Validate(s.ctx, []Candidate{
			{Email: "BOB@ACME.com", UserType: id.UserTypePrimary},
		})
		conflict, ok := AsConflict(err)
		s.Require().True(ok)
		s.Equal(ConflictDuplicatePrimaryDomain, conflict.Kind)
		s.Equal("acme.com", conflict.Domain)
		s.Equal("ali***@acme.com", conflict.MaskedExisting)
	})

	s.Run("Secondary on a claimed domain passes", func() {
		s.seedUser("alice@widgets.example", id.UserTypePrimary)

		err := s.validator.Validate(s.ctx, []Candidate{
			{Email: "bob@widgets.example", UserType: id.UserTypeSecondary},
		})
		s.NoError(err)
	})

	s.Run("Primary update keeps its own domain", func() {
		u := s.seedUser("owner@solo.example", id.UserTypePrimary)

		err := s.validator.Validate(s.ctx, []Candidate{
			{ID: u.ID, Email: "owner@solo.example", UserType: id.UserTypePrimary},
		})
		s.NoError(err)
	})
}

func (s *ValidatorSuite) TestBatchCrossChecks() {
	s.Run("two Primaries sharing a domain in one submission conflict", func() {
		err := s.validator.Validate(s.ctx, []Candidate{
			{Email: "first@samedomain.example", UserType: id.UserTypePrimary},
			{Email: "second@samedomain.example", UserType: id.UserTypePrimary},
		})
		conflict, ok := AsConflict(err)
		s.Require().True(ok)
		s.Equal(ConflictDuplicatePrimaryDomain, conflict.Kind)
		s.Equal("fir***@samedomain.example", conflict.MaskedExisting)
	})

	s.Run("duplicate emails within one submission conflict", func() {
		err := s.validator.Validate(s.ctx, []Candidate{
			{Email: "dup@batch.example", UserType: id.UserTypeSecondary},
			{Email: "DUP@batch.example", UserType: id.UserTypeSecondary},
		})
		conflict, ok := AsConflict(err)
		s.Require().True(ok)
		s.Equal(ConflictDuplicateEmail, conflict.Kind)
	})

	s.Run("Primary plus Secondary on one domain pass", func() {
		err := s.validator.Validate(s.ctx, []Candidate{
			{Email: "prim@mixed.example", UserType: id.UserTypePrimary},
			{Email: "sec@mixed.example", UserType: id.UserTypeSecondary},
		})
		s.NoError(err)
	})
}

func (s *ValidatorSuite) TestFirstViolationWins() {
	s.seedUser("taken@one.example", id.UserTypeSecondary)
	s.seedUser("taken@two.example", id.UserTypeSecondary)

	err := s.validator.Validate(s.ctx, []Candidate{
		{Email: "taken@one.example", UserType: id.UserTypeSecondary},
		{Email: "taken@two.example", UserType: id.UserTypeSecondary},
	})
	conflict, ok := AsConflict(err)
	s.Require().True(ok)
	s.Equal("taken@one.example", conflict.Email)
}

// failingStore simulates an identity store outage.
type failingStore struct{}

func (failingStore) FindActiveByEmail(context.Context, string) (*User, error) {
	return nil, errors.New("connection refused")
}

func (failingStore) FindActivePrimaryByDomain(context.Context, string, id.UserID) (*User, error) {
	return nil, errors.New("connection refused")
}

func (s *ValidatorSuite) TestStoreOutageIsUnavailableNotConflict() {
	v := NewValidator(failingStore{}, WithLookupAttempts(1))

	err := v.Validate(s.ctx, []Candidate{
		{Email: "anyone@anywhere.example", UserType: id.UserTypeSecondary},
	})
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeUnavailable))
	_, isConflict := AsConflict(err)
	s.False(isConflict)
}
