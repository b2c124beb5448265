package store

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"memberflow/internal/member"
	id "memberflow/pkg/domain"
	"memberflow/pkg/platform/sentinel"
)

type MemberStoreSuite struct {
	suite.Suite
	store *InMemory
	ctx   context.Context
}

func (s *MemberStoreSuite) SetupTest() {
	s.store = NewInMemory()
	s.ctx = context.Background()
}

func TestMemberStoreSuite(t *testing.T) {
	suite.Run(t, new(MemberStoreSuite))
}

func (s *MemberStoreSuite) newMember(company, email string) *member.Member {
	return &member.Member{
		ID:       id.MemberID(uuid.New()),
		Category: member.CategoryAssociate,
		Status:   member.StatusPendingFormSubmission,
		OrganisationInfo: member.OrganisationInfo{
			CompanyName: company,
			Industries:  []string{"fintech"},
		},
		UserSnapshots: []member.UserSnapshot{
			{Email: email, UserType: id.UserTypePrimary, CorrespondanceUser: true},
		},
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
}

func (s *MemberStoreSuite) TestCreationAndLookups() {
	s.Run("creates and finds a member", func() {
		m := s.newMember("Acme Corp", "a@acme.com")
		s.Require().NoError(s.store.Create(s.ctx, m))

		found, err := s.store.FindByID(s.ctx, m.ID)
		s.Require().NoError(err)
		s.Equal("Acme Corp", found.OrganisationInfo.CompanyName)
	})

	s.Run("returns ErrNotFound for unknown ID", func() {
		_, err := s.store.FindByID(s.ctx, id.MemberID(uuid.New()))
		s.Require().ErrorIs(err, sentinel.ErrNotFound)
	})

	s.Run("rejects duplicate snapshot emails across members", func() {
		first := s.newMember("First Org", "shared@dup.example")
		second := s.newMember("Second Org", "shared@dup.example")
		s.Require().NoError(s.store.Create(s.ctx, first))

		err := s.store.Create(s.ctx, second)
		s.Require().ErrorIs(err, sentinel.ErrAlreadyUsed)
	})
}

func (s *MemberStoreSuite) TestConditionedStatusWrite() {
	s.Run("succeeds when expected status matches", func() {
		m := s.newMember("Flow Org", "flow@flow.example")
		m.Status = member.StatusPendingCommitteeApproval
		s.Require().NoError(s.store.Create(s.ctx, m))

		read := m.Status
		m.Status = member.StatusPendingBoardApproval
		s.Require().NoError(s.store.UpdateStatusConditioned(s.ctx, m, read))

		found, err := s.store.FindByID(s.ctx, m.ID)
		s.Require().NoError(err)
		s.Equal(member.StatusPendingBoardApproval, found.Status)
	})

	s.Run("rejects a stale write after a concurrent change", func() {
		m := s.newMember("Race Org", "race@race.example")
		m.Status = member.StatusPendingCommitteeApproval
		s.Require().NoError(s.store.Create(s.ctx, m))

		// First approval wins.
		winner := *m
		winner.Status = member.StatusPendingBoardApproval
		s.Require().NoError(s.store.UpdateStatusConditioned(s.ctx, &winner, member.StatusPendingCommitteeApproval))

		// Second actor still holds the old read.
		loser := *m
		loser.Status = member.StatusPendingBoardApproval
		err := s.store.UpdateStatusConditioned(s.ctx, &loser, member.StatusPendingCommitteeApproval)
		s.Require().ErrorIs(err, sentinel.ErrStaleStatus)
	})
}

func (s *MemberStoreSuite) TestUpdateLeavesWorkflowStateAlone() {
	m := s.newMember("Settled Org", "settled@settled.example")
	m.Status = member.StatusPendingBoardApproval
	m.StatusHistory = []member.HistoryEntry{
		{From: member.StatusPendingCommitteeApproval, To: member.StatusPendingBoardApproval, Timestamp: time.Now()},
	}
	s.Require().NoError(s.store.Create(s.ctx, m))

	// A profile edit carrying a mutated status must not overwrite the
	// workflow columns; only the conditioned write may touch them.
	edited := *m
	edited.OrganisationInfo.CompanyName = "Settled Org BV"
	edited.Status = member.StatusActive
	edited.StatusHistory = nil
	edited.CreatedAt = time.Time{}
	s.Require().NoError(s.store.Update(s.ctx, &edited))

	found, err := s.store.FindByID(s.ctx, m.ID)
	s.Require().NoError(err)
	s.Equal("Settled Org BV", found.OrganisationInfo.CompanyName)
	s.Equal(member.StatusPendingBoardApproval, found.Status)
	s.Len(found.StatusHistory, 1)
	s.True(found.CreatedAt.Equal(m.CreatedAt))
}

func (s *MemberStoreSuite) TestSoftDelete() {
	m := s.newMember("Gone Org", "gone@gone.example")
	s.Require().NoError(s.store.Create(s.ctx, m))
	s.Require().NoError(s.store.SoftDelete(s.ctx, m.ID))

	_, err := s.store.FindByID(s.ctx, m.ID)
	s.Require().ErrorIs(err, sentinel.ErrNotFound)

	// Idempotent once deleted.
	s.Require().NoError(s.store.SoftDelete(s.ctx, m.ID))
}

func (s *MemberStoreSuite) TestListProjections() {
	featured := s.newMember("Featured Org", "f@featured.example")
	featured.FeaturedMember = true
	featured.Status = member.StatusActive
	s.Require().NoError(s.store.Create(s.ctx, featured))

	partner := s.newMember("Partner Org", "p@partner.example")
	partner.Category = member.CategoryPartner
	partner.OrganisationInfo.Industries = []string{"health"}
	s.Require().NoError(s.store.Create(s.ctx, partner))

	located := s.newMember("Located Org", "l@located.example")
	located.OrganisationInfo.Address.Coordinates = &member.Coordinates{Lat: 52.37, Lng: 4.89}
	s.Require().NoError(s.store.Create(s.ctx, located))

	s.Run("filters by industry case-insensitively", func() {
		got, err := s.store.List(s.ctx, Filter{Industry: "HEALTH"})
		s.Require().NoError(err)
		s.Len(got, 1)
		s.Equal("Partner Org", got[0].OrganisationInfo.CompanyName)
	})

	s.Run("filters featured", func() {
		got, err := s.store.List(s.ctx, Filter{FeaturedOnly: true})
		s.Require().NoError(err)
		s.Len(got, 1)
		s.True(got[0].FeaturedMember)
	})

	s.Run("filters by categories", func() {
		got, err := s.store.List(s.ctx, Filter{Categories: []member.Category{member.CategoryPartner, member.CategorySponsor}})
		s.Require().NoError(err)
		s.Len(got, 1)
		s.Equal(member.CategoryPartner, got[0].Category)
	})

	s.Run("filters geocoded members", func() {
		got, err := s.store.List(s.ctx, Filter{WithCoordinates: true})
		s.Require().NoError(err)
		s.Len(got, 1)
		s.Equal("Located Org", got[0].OrganisationInfo.CompanyName)
	})
}
