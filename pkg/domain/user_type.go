package domain

import (
	dErrors "memberflow/pkg/domain-errors"
)

// UserType classifies a user's role within a member organization.
// This is a domain primitive that enforces validity at parse time.
type UserType string

const (
	// UserTypePrimary is the organization's principal legal/contact
	// representative. Subject to the domain-exclusivity invariant.
	UserTypePrimary UserType = "Primary"

	UserTypeSecondary UserType = "Secondary"
	UserTypeNonMember UserType = "NonMember"
	UserTypeInternal  UserType = "Internal"
)

// legacySecondary is a misspelled literal present in historical records.
// It is accepted on input and mapped to the canonical value; the core never
// emits or persists it.
const legacySecondary = "Secondry"

// ParseUserType validates and returns a UserType, mapping the legacy
// "Secondry" literal to UserTypeSecondary.
func ParseUserType(s string) (UserType, error) {
	switch s {
	case string(UserTypePrimary):
		return UserTypePrimary, nil
	case string(UserTypeSecondary), legacySecondary:
		return UserTypeSecondary, nil
	case string(UserTypeNonMember):
		return UserTypeNonMember, nil
	case string(UserTypeInternal):
		return UserTypeInternal, nil
	default:
		return "", dErrors.Newf(dErrors.CodeInvalidInput, "unknown user type: %q", s)
	}
}

func (t UserType) String() string { return string(t) }

// UnmarshalText parses user types wherever they enter through JSON (request
// DTOs, stored JSONB documents), so the legacy spelling is canonicalized and
// unknown values are rejected at the boundary. Empty input stays empty:
// display-only roster entries carry no user type.
func (t *UserType) UnmarshalText(b []byte) error {
	if len(b) == 0 {
		*t = ""
		return nil
	}
	parsed, err := ParseUserType(string(b))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

func (t UserType) MarshalText() ([]byte, error) { return []byte(t), nil }

// IsPrimary reports whether the user carries the domain-exclusivity
// invariant.
func (t UserType) IsPrimary() bool { return t == UserTypePrimary }
