package audit

import (
	"context"
	"database/sql"

	id "memberflow/pkg/domain"
	dErrors "memberflow/pkg/domain-errors"
)

// PostgresStore persists the audit trail in the audit_events table.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Append(ctx context.Context, event Event) error {
	const q = `
		INSERT INTO audit_events
			(member_id, actor_id, occurred_at, action, stage, from_status, to_status, outcome, reason, request_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`
	_, err := s.db.ExecContext(ctx, q,
		event.MemberID.String(),
		event.ActorID.String(),
		event.Timestamp,
		event.Action,
		event.Stage,
		event.FromStatus,
		event.ToStatus,
		string(event.Outcome),
		event.Reason,
		event.RequestID,
	)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "append audit event")
	}
	return nil
}

func (s *PostgresStore) ListByMember(ctx context.Context, memberID id.MemberID) ([]Event, error) {
	const q = `
		SELECT member_id, actor_id, occurred_at, action, stage, from_status, to_status, outcome, reason, request_id
		FROM audit_events
		WHERE member_id = $1
		ORDER BY occurred_at`
	rows, err := s.db.QueryContext(ctx, q, memberID.String())
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "list audit events")
	}
	defer rows.Close()

	var out []Event
	for rows.Next() {
		var (
			e                  Event
			memberRaw, actorRaw string
			outcome            string
		)
		if err := rows.Scan(&memberRaw, &actorRaw, &e.Timestamp, &e.Action, &e.Stage,
			&e.FromStatus, &e.ToStatus, &outcome, &e.Reason, &e.RequestID); err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "scan audit event")
		}
		if e.MemberID, err = id.ParseMemberID(memberRaw); err != nil {
			return nil, err
		}
		if e.ActorID, err = id.ParseActorID(actorRaw); err != nil {
			return nil, err
		}
		e.Outcome = Outcome(outcome)
		out = append(out, e)
	}
	return out, rows.Err()
}
