// Package audit records every workflow action against a membership
// application. The trail is append-only: transitions, successful or rejected,
// are both recorded, with actor and timestamp, so approvals can always be
// reconstructed.
package audit

import (
	"time"

	id "memberflow/pkg/domain"
)

// Outcome states whether the attempted action was applied.
type Outcome string

const (
	OutcomeApplied  Outcome = "applied"
	OutcomeRejected Outcome = "rejected"
)

// Event is one workflow action attempt. Field values from the application
// form never appear here; only workflow facts do.
type Event struct {
	MemberID   id.MemberID `json:"memberId"`
	ActorID    id.ActorID  `json:"actorId"`
	Timestamp  time.Time   `json:"timestamp"`
	Action     string      `json:"action"`
	Stage      string      `json:"stage,omitempty"`
	FromStatus string      `json:"fromStatus"`
	ToStatus   string      `json:"toStatus,omitempty"` // empty when the transition was rejected
	Outcome    Outcome     `json:"outcome"`
	Reason     string      `json:"reason,omitempty"` // error kind for rejected attempts, never field values
	RequestID  string      `json:"requestId,omitempty"`
}
