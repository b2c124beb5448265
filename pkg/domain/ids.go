// Package domain holds typed identifiers shared across modules.
//
// IDs are distinct named types over uuid.UUID so a MemberID can never be
// passed where a UserID is expected. Parse functions enforce validity at
// trust boundaries (HTTP handlers, store scans).
package domain

import (
	"github.com/google/uuid"

	dErrors "memberflow/pkg/domain-errors"
)

// MemberID identifies a membership application record.
type MemberID uuid.UUID

// UserID identifies a user in the collaborating identity store.
type UserID uuid.UUID

// ActorID identifies the human actor performing a workflow action
// (applicant, committee member, board member, administrator).
type ActorID uuid.UUID

func (id MemberID) String() string { return uuid.UUID(id).String() }
func (id UserID) String() string   { return uuid.UUID(id).String() }
func (id ActorID) String() string  { return uuid.UUID(id).String() }

func (id MemberID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }
func (id UserID) IsNil() bool   { return uuid.UUID(id) == uuid.Nil }
func (id ActorID) IsNil() bool  { return uuid.UUID(id) == uuid.Nil }

// Named types do not inherit uuid.UUID's marshalling, so each ID implements
// encoding.TextMarshaler/TextUnmarshaler explicitly. Nil IDs marshal to the
// empty string (display-only snapshots carry no identity link).

func (id MemberID) MarshalText() ([]byte, error) { return marshalID(uuid.UUID(id)) }
func (id UserID) MarshalText() ([]byte, error)   { return marshalID(uuid.UUID(id)) }
func (id ActorID) MarshalText() ([]byte, error)  { return marshalID(uuid.UUID(id)) }

func (id *MemberID) UnmarshalText(b []byte) error {
	u, err := unmarshalID(b)
	if err != nil {
		return err
	}
	*id = MemberID(u)
	return nil
}

func (id *UserID) UnmarshalText(b []byte) error {
	u, err := unmarshalID(b)
	if err != nil {
		return err
	}
	*id = UserID(u)
	return nil
}

func (id *ActorID) UnmarshalText(b []byte) error {
	u, err := unmarshalID(b)
	if err != nil {
		return err
	}
	*id = ActorID(u)
	return nil
}

func marshalID(u uuid.UUID) ([]byte, error) {
	if u == uuid.Nil {
		return []byte(""), nil
	}
	return []byte(u.String()), nil
}

func unmarshalID(b []byte) (uuid.UUID, error) {
	if len(b) == 0 {
		return uuid.Nil, nil
	}
	return uuid.Parse(string(b))
}

// ParseMemberID validates and returns a MemberID.
func ParseMemberID(s string) (MemberID, error) {
	u, err := parseUUID(s)
	if err != nil {
		return MemberID{}, err
	}
	return MemberID(u), nil
}

// ParseUserID validates and returns a UserID.
func ParseUserID(s string) (UserID, error) {
	u, err := parseUUID(s)
	if err != nil {
		return UserID{}, err
	}
	return UserID(u), nil
}

// ParseActorID validates and returns an ActorID.
func ParseActorID(s string) (ActorID, error) {
	u, err := parseUUID(s)
	if err != nil {
		return ActorID{}, err
	}
	return ActorID(u), nil
}

// parseUUID rejects empty, malformed, and nil UUIDs. Nil UUIDs are treated as
// invalid because no entity is ever assigned the zero identifier.
func parseUUID(s string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "id cannot be empty")
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.Wrap(err, dErrors.CodeInvalidInput, "id is not a valid UUID")
	}
	if u == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "id cannot be the nil UUID")
	}
	return u, nil
}
