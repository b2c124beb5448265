package identity

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	id "memberflow/pkg/domain"
	"memberflow/pkg/platform/sentinel"
)

// PostgresStore reads user records from the identity service's database.
// This store is pure I/O; exclusion of the candidate's own record is the
// validator's job.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) FindActiveByEmail(ctx context.Context, email string) (*User, error) {
	query := `
		SELECT id, email, first_name, last_name, user_type, deleted_at
		FROM identity_users
		WHERE lower(email) = lower($1)
		  AND deleted_at IS NULL
	`
	return s.findOne(ctx, query, email)
}

func (s *PostgresStore) FindActivePrimaryByDomain(ctx context.Context, domain string, excludeID id.UserID) (*User, error) {
	query := `
		SELECT id, email, first_name, last_name, user_type, deleted_at
		FROM identity_users
		WHERE user_type = 'Primary'
		  AND deleted_at IS NULL
		  AND lower(split_part(email, '@', 2)) = lower($1)
		  AND ($2::uuid IS NULL OR id <> $2::uuid)
		LIMIT 1
	`
	var exclude any
	if !excludeID.IsNil() {
		exclude = uuid.UUID(excludeID).String()
	}
	return s.findOne(ctx, query, domain, exclude)
}

func (s *PostgresStore) findOne(ctx context.Context, query string, args ...any) (*User, error) {
	var (
		u         User
		rawID     string
		rawType   string
		deletedAt sql.NullTime
	)
	err := s.db.QueryRowContext(ctx, query, args...).Scan(
		&rawID, &u.Email, &u.FirstName, &u.LastName, &rawType, &deletedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find identity user: %w", err)
	}

	parsed, err := id.ParseUserID(rawID)
	if err != nil {
		return nil, fmt.Errorf("parse identity user id: %w", err)
	}
	u.ID = parsed

	// Stored rows may still carry the legacy "Secondry" literal.
	userType, err := id.ParseUserType(rawType)
	if err != nil {
		return nil, fmt.Errorf("parse identity user type: %w", err)
	}
	u.UserType = userType

	if deletedAt.Valid {
		u.DeletedAt = &deletedAt.Time
	}
	return &u, nil
}
