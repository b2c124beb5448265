package audit

import (
	"context"

	id "memberflow/pkg/domain"
)

// Store is the audit persistence boundary. Append-only.
type Store interface {
	Append(ctx context.Context, event Event) error
	ListByMember(ctx context.Context, memberID id.MemberID) ([]Event, error)
}
