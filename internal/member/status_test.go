package member

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "memberflow/pkg/domain"
	dErrors "memberflow/pkg/domain-errors"
)

func TestTransition(t *testing.T) {
	t.Run("walks the happy path", func(t *testing.T) {
		next, err := Transition(StatusPendingFormSubmission, ActionSubmit, StageNone, "")
		require.NoError(t, err)
		assert.Equal(t, StatusPendingCommitteeApproval, next)

		next, err = Transition(next, ActionApprove, StageCommittee, "")
		require.NoError(t, err)
		assert.Equal(t, StatusPendingBoardApproval, next)

		next, err = Transition(next, ActionApprove, StageBoard, "")
		require.NoError(t, err)
		assert.Equal(t, StatusActive, next)
	})

	t.Run("draft submits like a fresh application", func(t *testing.T) {
		next, err := Transition(StatusDraft, ActionSubmit, StageNone, "")
		require.NoError(t, err)
		assert.Equal(t, StatusPendingCommitteeApproval, next)
	})

	t.Run("rejects from either approval stage with a comment", func(t *testing.T) {
		for _, from := range []Status{StatusPendingCommitteeApproval, StatusPendingBoardApproval} {
			next, err := Transition(from, ActionReject, StageCommittee, "missing registration documents")
			require.NoError(t, err, from)
			assert.Equal(t, StatusRejected, next)
		}
	})

	t.Run("rejection without a comment is refused", func(t *testing.T) {
		_, err := Transition(StatusPendingBoardApproval, ActionReject, StageBoard, "")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeBadRequest))
	})

	t.Run("resubmission re-enters at the form stage", func(t *testing.T) {
		next, err := Transition(StatusRejected, ActionResubmit, StageNone, "")
		require.NoError(t, err)
		assert.Equal(t, StatusPendingFormSubmission, next)
	})

	t.Run("rejected cannot skip straight to approval", func(t *testing.T) {
		_, err := Transition(StatusRejected, ActionApprove, StageBoard, "")
		var ite *InvalidTransitionError
		require.ErrorAs(t, err, &ite)
		assert.Equal(t, StatusRejected, ite.From)
		assert.Equal(t, ActionApprove, ite.Action)
		assert.Equal(t, StageBoard, ite.Stage)
	})

	t.Run("stage mismatches are invalid", func(t *testing.T) {
		_, err := Transition(StatusPendingCommitteeApproval, ActionApprove, StageBoard, "")
		var ite *InvalidTransitionError
		require.ErrorAs(t, err, &ite)

		_, err = Transition(StatusPendingBoardApproval, ActionApprove, StageCommittee, "")
		require.ErrorAs(t, err, &ite)
	})

	t.Run("active is terminal", func(t *testing.T) {
		for _, action := range []Action{ActionSubmit, ActionApprove, ActionReject, ActionResubmit} {
			for _, stage := range []Stage{StageNone, StageCommittee, StageBoard} {
				_, err := Transition(StatusActive, action, stage, "note")
				var ite *InvalidTransitionError
				require.ErrorAs(t, err, &ite, "%s/%s", action, stage)
			}
		}
	})
}

func TestApplyTransition(t *testing.T) {
	now := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)
	actor := id.ActorID(uuid.New())

	newPending := func() *Member {
		return &Member{
			ID:     id.MemberID(uuid.New()),
			Status: StatusPendingCommitteeApproval,
		}
	}

	t.Run("mutates status and appends history", func(t *testing.T) {
		m := newPending()
		require.NoError(t, m.ApplyTransition(ActionApprove, StageCommittee, actor, "looks good", now))

		assert.Equal(t, StatusPendingBoardApproval, m.Status)
		require.Len(t, m.StatusHistory, 1)
		entry := m.StatusHistory[0]
		assert.Equal(t, actor, entry.ActorID)
		assert.Equal(t, StatusPendingCommitteeApproval, entry.From)
		assert.Equal(t, StatusPendingBoardApproval, entry.To)
		assert.Equal(t, StageCommittee, entry.Stage)
		assert.Equal(t, "looks good", entry.Comment)
		assert.Equal(t, now, entry.Timestamp)
	})

	t.Run("leaves the member untouched on invalid transitions", func(t *testing.T) {
		m := newPending()
		err := m.ApplyTransition(ActionApprove, StageBoard, actor, "", now)
		require.Error(t, err)

		assert.Equal(t, StatusPendingCommitteeApproval, m.Status)
		assert.Empty(t, m.StatusHistory)
	})
}

func TestNewMember(t *testing.T) {
	now := time.Now()
	org := OrganisationInfo{CompanyName: "Acme Corp"}
	snapshots := []UserSnapshot{
		{Email: "a@acme.com", UserType: id.UserTypePrimary, CorrespondanceUser: true},
		{Email: "b@acme.com", UserType: id.UserTypeSecondary},
	}

	t.Run("starts in pendingFormSubmission by default", func(t *testing.T) {
		m, err := NewMember(id.MemberID(uuid.New()), CategoryAssociate, org, snapshots, Consent{}, false, now)
		require.NoError(t, err)
		assert.Equal(t, StatusPendingFormSubmission, m.Status)
	})

	t.Run("starts as draft when requested", func(t *testing.T) {
		m, err := NewMember(id.MemberID(uuid.New()), CategoryAssociate, org, snapshots, Consent{}, true, now)
		require.NoError(t, err)
		assert.Equal(t, StatusDraft, m.Status)
	})

	t.Run("requires exactly one correspondence user", func(t *testing.T) {
		none := []UserSnapshot{{Email: "a@acme.com", UserType: id.UserTypePrimary}}
		_, err := NewMember(id.MemberID(uuid.New()), CategoryAssociate, org, none, Consent{}, false, now)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvariantViolation))

		two := []UserSnapshot{
			{Email: "a@acme.com", UserType: id.UserTypePrimary, CorrespondanceUser: true},
			{Email: "b@acme.com", UserType: id.UserTypeSecondary, CorrespondanceUser: true},
		}
		_, err = NewMember(id.MemberID(uuid.New()), CategoryAssociate, org, two, Consent{}, false, now)
		require.Error(t, err)
	})
}
