package member

import (
	"fmt"

	dErrors "memberflow/pkg/domain-errors"
)

// Status is a membership application's position in the approval workflow.
//
// The graph:
//
//	draft ──submit──▶ pendingCommitteeApproval
//	pendingFormSubmission ──submit──▶ pendingCommitteeApproval
//	pendingCommitteeApproval ──approve(committee)──▶ pendingBoardApproval
//	pendingBoardApproval ──approve(board)──▶ active
//	pendingCommitteeApproval | pendingBoardApproval ──reject──▶ rejected
//	rejected ──resubmit──▶ pendingFormSubmission
//
// Everything else is an invalid transition. Rejection re-enters at the form
// stage, never mid-approval: the committee must re-review a resubmission.
type Status string

const (
	StatusDraft                    Status = "draft"
	StatusPendingFormSubmission    Status = "pendingFormSubmission"
	StatusPendingCommitteeApproval Status = "pendingCommitteeApproval"
	StatusPendingBoardApproval     Status = "pendingBoardApproval"
	StatusActive                   Status = "active"
	StatusRejected                 Status = "rejected"
)

// ParseStatus validates and returns a Status.
func ParseStatus(s string) (Status, error) {
	switch Status(s) {
	case StatusDraft, StatusPendingFormSubmission, StatusPendingCommitteeApproval,
		StatusPendingBoardApproval, StatusActive, StatusRejected:
		return Status(s), nil
	default:
		return "", dErrors.Newf(dErrors.CodeInvalidInput, "unknown status: %q", s)
	}
}

func (s Status) String() string { return string(s) }

// Action is a workflow verb applied to an application.
type Action string

const (
	ActionSubmit   Action = "submit"
	ActionApprove  Action = "approve"
	ActionReject   Action = "reject"
	ActionResubmit Action = "resubmit"
)

// ParseAction validates and returns an Action.
func ParseAction(s string) (Action, error) {
	switch Action(s) {
	case ActionSubmit, ActionApprove, ActionReject, ActionResubmit:
		return Action(s), nil
	default:
		return "", dErrors.Newf(dErrors.CodeInvalidInput, "unknown action: %q", s)
	}
}

// Stage is the approval tier an action applies to. Empty for actions that
// are stage-independent (submit, resubmit).
type Stage string

const (
	StageNone      Stage = ""
	StageCommittee Stage = "committee"
	StageBoard     Stage = "board"
)

// ParseStage validates and returns a Stage. The empty string is legal.
func ParseStage(s string) (Stage, error) {
	switch Stage(s) {
	case StageNone, StageCommittee, StageBoard:
		return Stage(s), nil
	default:
		return "", dErrors.Newf(dErrors.CodeInvalidInput, "unknown stage: %q", s)
	}
}

// InvalidTransitionError reports a disallowed (status, action, stage) triple.
// It indicates a workflow-ordering error by the caller and is never coerced
// to a "closest valid" state.
type InvalidTransitionError struct {
	From   Status
	Action Action
	Stage  Stage
}

func (e *InvalidTransitionError) Error() string {
	if e.Stage == StageNone {
		return fmt.Sprintf("cannot %s from status %s", e.Action, e.From)
	}
	return fmt.Sprintf("cannot %s at stage %s from status %s", e.Action, e.Stage, e.From)
}

// Transition is the pure state machine. It performs no I/O; persisting the
// result and appending audit history belong to the caller.
//
// Rejections require a comment: it becomes the applicant-facing review note.
func Transition(current Status, action Action, stage Stage, comment string) (Status, error) {
	switch action {
	case ActionSubmit:
		if current == StatusDraft || current == StatusPendingFormSubmission {
			return StatusPendingCommitteeApproval, nil
		}
	case ActionApprove:
		switch {
		case stage == StageCommittee && current == StatusPendingCommitteeApproval:
			return StatusPendingBoardApproval, nil
		case stage == StageBoard && current == StatusPendingBoardApproval:
			return StatusActive, nil
		}
	case ActionReject:
		if current == StatusPendingCommitteeApproval || current == StatusPendingBoardApproval {
			if comment == "" {
				return "", dErrors.New(dErrors.CodeBadRequest, "rejection requires a comment")
			}
			return StatusRejected, nil
		}
	case ActionResubmit:
		if current == StatusRejected {
			return StatusPendingFormSubmission, nil
		}
	}
	return "", &InvalidTransitionError{From: current, Action: action, Stage: stage}
}
