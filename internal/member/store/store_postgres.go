package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"memberflow/internal/member"
	id "memberflow/pkg/domain"
	"memberflow/pkg/platform/sentinel"
)

// uniqueViolation is the postgres error code raised by the unique index on
// snapshot emails. It backstops the advisory uniqueness validator: two
// concurrent submissions can both pass validation, but only one commit wins.
const uniqueViolation = "23505"

// Postgres persists members with flat workflow columns and JSONB documents
// for the embedded profile, roster, and history.
type Postgres struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

func (s *Postgres) Create(ctx context.Context, m *member.Member) error {
	doc, err := marshalDocs(m)
	if err != nil {
		return err
	}
	query := `
		INSERT INTO members (
			member_id, category, status, featured,
			organisation_info, user_snapshots, consent, status_history,
			created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err = s.db.ExecContext(ctx, query,
		uuid.UUID(m.ID).String(), string(m.Category), string(m.Status), m.FeaturedMember,
		doc.org, doc.snapshots, doc.consent, doc.history,
		m.CreatedAt, m.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("create member: %w", sentinel.ErrAlreadyUsed)
		}
		return fmt.Errorf("create member: %w", err)
	}
	return nil
}

func (s *Postgres) FindByID(ctx context.Context, memberID id.MemberID) (*member.Member, error) {
	query := `
		SELECT member_id, category, status, featured,
		       organisation_info, user_snapshots, consent, status_history,
		       created_at, updated_at, deleted_at
		FROM members
		WHERE member_id = $1 AND deleted_at IS NULL
	`
	m, err := scanMember(s.db.QueryRowContext(ctx, query, uuid.UUID(memberID).String()))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find member: %w", err)
	}
	return m, nil
}

func (s *Postgres) Update(ctx context.Context, m *member.Member) error {
	doc, err := marshalDocs(m)
	if err != nil {
		return err
	}
	query := `
		UPDATE members
		SET category = $2, featured = $3,
		    organisation_info = $4, user_snapshots = $5, consent = $6, updated_at = $7
		WHERE member_id = $1 AND deleted_at IS NULL
	`
	result, err := s.db.ExecContext(ctx, query,
		uuid.UUID(m.ID).String(), string(m.Category), m.FeaturedMember,
		doc.org, doc.snapshots, doc.consent, m.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("update member: %w", sentinel.ErrAlreadyUsed)
		}
		return fmt.Errorf("update member: %w", err)
	}
	return requireOneRow(result, sentinel.ErrNotFound)
}

// UpdateStatusConditioned is the optimistic-concurrency write: the UPDATE is
// conditioned on the status read before the transition was computed, so of
// two racing approvals exactly one succeeds and the other observes
// ErrStaleStatus.
func (s *Postgres) UpdateStatusConditioned(ctx context.Context, m *member.Member, expected member.Status) error {
	doc, err := marshalDocs(m)
	if err != nil {
		return err
	}
	query := `
		UPDATE members
		SET status = $2, status_history = $3, updated_at = $4
		WHERE member_id = $1 AND status = $5 AND deleted_at IS NULL
	`
	result, err := s.db.ExecContext(ctx, query,
		uuid.UUID(m.ID).String(), string(m.Status), doc.history, m.UpdatedAt, string(expected),
	)
	if err != nil {
		return fmt.Errorf("conditioned status update: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("conditioned status update rows affected: %w", err)
	}
	if rows > 0 {
		return nil
	}

	// Zero rows: distinguish a vanished member from a lost race.
	var exists bool
	err = s.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM members WHERE member_id = $1 AND deleted_at IS NULL)`,
		uuid.UUID(m.ID).String(),
	).Scan(&exists)
	if err != nil {
		return fmt.Errorf("conditioned status update existence check: %w", err)
	}
	if !exists {
		return sentinel.ErrNotFound
	}
	return sentinel.ErrStaleStatus
}

func (s *Postgres) SoftDelete(ctx context.Context, memberID id.MemberID) error {
	query := `
		UPDATE members
		SET deleted_at = $2, updated_at = $2
		WHERE member_id = $1 AND deleted_at IS NULL
	`
	result, err := s.db.ExecContext(ctx, query, uuid.UUID(memberID).String(), time.Now())
	if err != nil {
		return fmt.Errorf("soft delete member: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("soft delete rows affected: %w", err)
	}
	if rows == 0 {
		// Already deleted or never existed; check which.
		var exists bool
		if err := s.db.QueryRowContext(ctx,
			`SELECT EXISTS(SELECT 1 FROM members WHERE member_id = $1)`,
			uuid.UUID(memberID).String(),
		).Scan(&exists); err != nil {
			return fmt.Errorf("soft delete existence check: %w", err)
		}
		if !exists {
			return sentinel.ErrNotFound
		}
	}
	return nil
}

func (s *Postgres) List(ctx context.Context, filter Filter) ([]*member.Member, error) {
	query := `
		SELECT member_id, category, status, featured,
		       organisation_info, user_snapshots, consent, status_history,
		       created_at, updated_at, deleted_at
		FROM members
		WHERE deleted_at IS NULL
		  AND ($1 = '' OR organisation_info->'industries' @> to_jsonb(lower($1)::text))
		  AND (NOT $2 OR featured = TRUE)
		  AND (cardinality($3::text[]) = 0 OR category = ANY($3))
		  AND (NOT $4 OR organisation_info->'address'->'coordinates' IS NOT NULL)
		  AND (NOT $5 OR status = 'active')
		ORDER BY created_at
	`
	categories := make([]string, 0, len(filter.Categories))
	for _, c := range filter.Categories {
		categories = append(categories, string(c))
	}
	rows, err := s.db.QueryContext(ctx, query,
		filter.Industry, filter.FeaturedOnly, pq.Array(categories),
		filter.WithCoordinates, filter.ActiveOnly,
	)
	if err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}
	defer rows.Close()

	var out []*member.Member
	for rows.Next() {
		m, err := scanMember(rows)
		if err != nil {
			return nil, fmt.Errorf("scan member: %w", err)
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate members: %w", err)
	}
	return out, nil
}

type memberDocs struct {
	org, snapshots, consent, history []byte
}

func marshalDocs(m *member.Member) (memberDocs, error) {
	var doc memberDocs
	var err error
	if doc.org, err = json.Marshal(m.OrganisationInfo); err != nil {
		return doc, fmt.Errorf("marshal organisation info: %w", err)
	}
	if doc.snapshots, err = json.Marshal(m.UserSnapshots); err != nil {
		return doc, fmt.Errorf("marshal user snapshots: %w", err)
	}
	if doc.consent, err = json.Marshal(m.Consent); err != nil {
		return doc, fmt.Errorf("marshal consent: %w", err)
	}
	if doc.history, err = json.Marshal(m.StatusHistory); err != nil {
		return doc, fmt.Errorf("marshal status history: %w", err)
	}
	return doc, nil
}

type memberRow interface {
	Scan(dest ...any) error
}

func scanMember(row memberRow) (*member.Member, error) {
	var (
		m         member.Member
		rawID     string
		category  string
		status    string
		org       []byte
		snapshots []byte
		consent   []byte
		history   []byte
		deletedAt sql.NullTime
	)
	if err := row.Scan(
		&rawID, &category, &status, &m.FeaturedMember,
		&org, &snapshots, &consent, &history,
		&m.CreatedAt, &m.UpdatedAt, &deletedAt,
	); err != nil {
		return nil, err
	}

	memberID, err := id.ParseMemberID(rawID)
	if err != nil {
		return nil, err
	}
	m.ID = memberID
	m.Category = member.Category(category)

	parsedStatus, err := member.ParseStatus(status)
	if err != nil {
		return nil, err
	}
	m.Status = parsedStatus

	if err := json.Unmarshal(org, &m.OrganisationInfo); err != nil {
		return nil, fmt.Errorf("unmarshal organisation info: %w", err)
	}
	if err := json.Unmarshal(snapshots, &m.UserSnapshots); err != nil {
		return nil, fmt.Errorf("unmarshal user snapshots: %w", err)
	}
	if err := json.Unmarshal(consent, &m.Consent); err != nil {
		return nil, fmt.Errorf("unmarshal consent: %w", err)
	}
	if err := json.Unmarshal(history, &m.StatusHistory); err != nil {
		return nil, fmt.Errorf("unmarshal status history: %w", err)
	}
	if deletedAt.Valid {
		m.DeletedAt = &deletedAt.Time
	}
	return &m, nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && string(pqErr.Code) == uniqueViolation
}

func requireOneRow(result sql.Result, onZero error) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if rows == 0 {
		return onZero
	}
	return nil
}
