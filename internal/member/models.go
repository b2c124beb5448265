// Package member holds the Member aggregate: an organization's membership
// application, its embedded user snapshots, and the approval status that the
// workflow state machine governs.
package member

import (
	"time"

	id "memberflow/pkg/domain"
	dErrors "memberflow/pkg/domain-errors"
)

// Category is the membership category. Mutable while the application is under
// review, immutable once the member is active (enforced by the orchestrator).
type Category string

const (
	CategoryAssociate Category = "associate"
	CategoryStrategic Category = "strategic"
	CategoryPartner   Category = "partner"
	CategorySponsor   Category = "sponsor"
)

// ParseCategory validates and returns a Category.
func ParseCategory(s string) (Category, error) {
	switch Category(s) {
	case CategoryAssociate, CategoryStrategic, CategoryPartner, CategorySponsor:
		return Category(s), nil
	default:
		return "", dErrors.Newf(dErrors.CodeInvalidInput, "unknown membership category: %q", s)
	}
}

// Coordinates are optional geocoded address coordinates.
type Coordinates struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Address is the organization's postal address. Coordinates are filled in
// best-effort by the geocoding collaborator and may be nil.
type Address struct {
	Line1       string       `json:"line1"`
	Line2       string       `json:"line2,omitempty"`
	City        string       `json:"city"`
	Country     string       `json:"country"`
	Coordinates *Coordinates `json:"coordinates,omitempty"`
}

// SocialLinks are the organization's public profiles.
type SocialLinks struct {
	LinkedIn string `json:"linkedin,omitempty"`
	Twitter  string `json:"twitter,omitempty"`
	Facebook string `json:"facebook,omitempty"`
}

// OrganisationInfo is the company profile section of an application.
// Industries holds dropdown codes validated against the industries catalog.
type OrganisationInfo struct {
	CompanyName string      `json:"companyName"`
	Website     string      `json:"website"`
	Address     Address     `json:"address"`
	Industries  []string    `json:"industries"`
	Social      SocialLinks `json:"social"`
}

// UserSnapshot is a denormalized, point-in-time copy of a user's identity
// fields embedded in the application. Snapshots are not kept live-synced to
// the identity store; a separate collaborator process refreshes them.
//
// UserID is the nil UUID for display-only entries with no identity record.
type UserSnapshot struct {
	UserID              id.UserID   `json:"userId,omitempty"`
	Email               string      `json:"email"`
	FirstName           string      `json:"firstName"`
	LastName            string      `json:"lastName"`
	UserType            id.UserType `json:"userType"`
	CorrespondanceUser  bool        `json:"correspondanceUser"`
	MarketingFocalPoint bool        `json:"marketingFocalPoint"`
	InvestorFocalPoint  bool        `json:"investorFocalPoint"`
	Designation         string      `json:"designation,omitempty"`
	ContactNumber       string      `json:"contactNumber,omitempty"`
}

// Consent captures the legal acknowledgements. Editable while the
// application is still a draft; all three must be given before submission and
// none can change afterwards.
type Consent struct {
	TermsAccepted         bool `json:"termsAccepted"`
	PrivacyAccepted       bool `json:"privacyAccepted"`
	CodeOfConductAccepted bool `json:"codeOfConductAccepted"`
}

// All reports whether every acknowledgement was given.
func (c Consent) All() bool {
	return c.TermsAccepted && c.PrivacyAccepted && c.CodeOfConductAccepted
}

// HistoryEntry records one applied status transition for the audit trail.
type HistoryEntry struct {
	ActorID   id.ActorID `json:"actorId"`
	Timestamp time.Time  `json:"timestamp"`
	From      Status     `json:"from"`
	To        Status     `json:"to"`
	Stage     Stage      `json:"stage,omitempty"`
	Comment   string     `json:"comment,omitempty"`
}

// Member is the aggregate root for a membership application.
//
// Invariants:
//   - Status changes only through ApplyTransition (no external writes)
//   - Exactly one snapshot carries CorrespondanceUser (orchestrator-enforced)
//   - Category is immutable once Status is active
//   - Consent is complete at submission and immutable from then on
//   - Records are retired via DeletedAt, never hard-removed
type Member struct {
	ID               id.MemberID      `json:"id"`
	Category         Category         `json:"category"`
	Status           Status           `json:"status"`
	FeaturedMember   bool             `json:"featuredMember"`
	OrganisationInfo OrganisationInfo `json:"organisationInfo"`
	UserSnapshots    []UserSnapshot   `json:"userSnapshots"`
	Consent          Consent          `json:"consent"`
	StatusHistory    []HistoryEntry   `json:"statusHistory"`
	CreatedAt        time.Time        `json:"createdAt"`
	UpdatedAt        time.Time        `json:"updatedAt"`
	DeletedAt        *time.Time       `json:"deletedAt,omitempty"`
}

// NewMember constructs an application in its initial status. Validation of
// fields and identities happens before this is called; construction only
// enforces structural invariants.
func NewMember(memberID id.MemberID, category Category, org OrganisationInfo, snapshots []UserSnapshot, consent Consent, asDraft bool, now time.Time) (*Member, error) {
	if org.CompanyName == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "company name cannot be empty")
	}
	if err := ValidateCorrespondenceUser(snapshots); err != nil {
		return nil, err
	}

	status := StatusPendingFormSubmission
	if asDraft {
		status = StatusDraft
	}
	return &Member{
		ID:               memberID,
		Category:         category,
		Status:           status,
		OrganisationInfo: org,
		UserSnapshots:    snapshots,
		Consent:          consent,
		CreatedAt:        now,
		UpdatedAt:        now,
	}, nil
}

// ValidateCorrespondenceUser enforces the single-correspondence-user
// invariant. Zero correspondence users is allowed only for an empty roster.
// Every path that replaces the roster must run this, not just construction.
func ValidateCorrespondenceUser(snapshots []UserSnapshot) error {
	if len(snapshots) == 0 {
		return nil
	}
	count := 0
	for _, snap := range snapshots {
		if snap.CorrespondanceUser {
			count++
		}
	}
	if count != 1 {
		return dErrors.Newf(dErrors.CodeInvariantViolation,
			"exactly one correspondence user is required, got %d", count)
	}
	return nil
}

// IsDeleted reports whether the record has been logically retired.
func (m *Member) IsDeleted() bool { return m.DeletedAt != nil }

// CanEditCategory reports whether the membership category may still change.
func (m *Member) CanEditCategory() bool { return m.Status != StatusActive }

// ApplyTransition runs the state machine for (action, stage) and, when the
// transition is legal, mutates Status and appends the audit history entry.
// The member is unchanged when an error is returned.
func (m *Member) ApplyTransition(action Action, stage Stage, actorID id.ActorID, comment string, now time.Time) error {
	next, err := Transition(m.Status, action, stage, comment)
	if err != nil {
		return err
	}

	m.StatusHistory = append(m.StatusHistory, HistoryEntry{
		ActorID:   actorID,
		Timestamp: now,
		From:      m.Status,
		To:        next,
		Stage:     stage,
		Comment:   comment,
	})
	m.Status = next
	m.UpdatedAt = now
	return nil
}

// ApplyDeletion retires the record. Idempotent.
func (m *Member) ApplyDeletion(now time.Time) {
	if m.DeletedAt == nil {
		m.DeletedAt = &now
		m.UpdatedAt = now
	}
}
