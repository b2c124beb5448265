package identity

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	id "memberflow/pkg/domain"
	dErrors "memberflow/pkg/domain-errors"
	"memberflow/pkg/email"
	"memberflow/pkg/platform/retry"
	"memberflow/pkg/platform/sentinel"
)

// Candidate is one user entry submitted for uniqueness validation. ID is the
// nil UUID on create; on update it excludes the candidate's own record from
// the checks.
type Candidate struct {
	ID       id.UserID
	Email    string
	UserType id.UserType
}

// ConflictKind names the violated uniqueness invariant.
type ConflictKind string

const (
	ConflictDuplicateEmail         ConflictKind = "duplicate_email"
	ConflictDuplicatePrimaryDomain ConflictKind = "duplicate_primary_domain"
)

// ConflictError reports the first failing uniqueness violation. The existing
// record's email is masked (first three local characters plus domain) so the
// message stays attributable for support follow-up without exposing the full
// address.
type ConflictError struct {
	Kind           ConflictKind
	Email          string // normalized candidate email
	Domain         string // set for domain conflicts
	MaskedExisting string
}

func (e *ConflictError) Error() string {
	switch e.Kind {
	case ConflictDuplicatePrimaryDomain:
		return fmt.Sprintf("a Primary user already exists for domain %s (%s)", e.Domain, e.MaskedExisting)
	default:
		return fmt.Sprintf("email %s is already in use", e.Email)
	}
}

// AsConflict unwraps a ConflictError from err.
func AsConflict(err error) (*ConflictError, bool) {
	var ce *ConflictError
	if errors.As(err, &ce) {
		return ce, true
	}
	return nil, false
}

// Validator enforces the identity uniqueness invariants against the identity
// store. It is an advisory fast path: the store's own unique constraints are
// the ultimate guarantee, and the orchestrator surfaces store-level
// violations through the same ConflictError shape.
type Validator struct {
	store         Store
	logger        *slog.Logger
	lookupTimeout time.Duration
	attempts      int
}

// ValidatorOption customizes a Validator.
type ValidatorOption func(*Validator)

// WithLogger attaches a logger for lookup diagnostics.
func WithLogger(logger *slog.Logger) ValidatorOption {
	return func(v *Validator) { v.logger = logger }
}

// WithLookupTimeout bounds each identity store call.
func WithLookupTimeout(d time.Duration) ValidatorOption {
	return func(v *Validator) { v.lookupTimeout = d }
}

// WithLookupAttempts bounds retries of transient store failures.
func WithLookupAttempts(n int) ValidatorOption {
	return func(v *Validator) { v.attempts = n }
}

func NewValidator(store Store, opts ...ValidatorOption) *Validator {
	v := &Validator{
		store:         store,
		lookupTimeout: 5 * time.Second,
		attempts:      2,
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Validate checks candidates in order and returns the first violation as a
// *ConflictError, a coded unavailable error when the store cannot be reached,
// or nil. An empty candidate list is valid.
//
// Entries are first cross-checked against each other (two Primary entries
// sharing a domain in the same submission must conflict even though neither
// is persisted yet), then checked against the store. Store lookups for
// independent entries run concurrently; within one entry the domain check
// only runs after its email check passes.
func (v *Validator) Validate(ctx context.Context, candidates []Candidate) error {
	if len(candidates) == 0 {
		return nil
	}

	normalized := make([]Candidate, len(candidates))
	for i, c := range candidates {
		c.Email = email.Normalize(c.Email)
		normalized[i] = c
	}

	if err := crossCheck(normalized); err != nil {
		return err
	}

	violations := make([]*ConflictError, len(normalized))
	lookupErrs := make([]error, len(normalized))

	g, gctx := errgroup.WithContext(ctx)
	for i, c := range normalized {
		i, c := i, c
		g.Go(func() error {
			violation, err := v.checkOne(gctx, c)
			if err != nil {
				lookupErrs[i] = err
				return nil
			}
			violations[i] = violation
			return nil
		})
	}
	// Goroutines never return errors; Wait only joins them.
	_ = g.Wait()

	// Report in candidate order so the result is deterministic regardless of
	// which goroutine finished first.
	for i := range normalized {
		if violations[i] != nil {
			return violations[i]
		}
		if lookupErrs[i] != nil {
			v.logLookupFailure(ctx, lookupErrs[i])
			return dErrors.Wrap(lookupErrs[i], dErrors.CodeUnavailable, "identity lookup failed")
		}
	}
	return nil
}

// crossCheck enforces uniqueness inside the submission batch itself, without
// touching the store.
func crossCheck(candidates []Candidate) error {
	seenEmails := make(map[string]int, len(candidates))
	primaryDomains := make(map[string]int, len(candidates))

	for i, c := range candidates {
		if c.Email == "" {
			continue
		}
		if _, dup := seenEmails[c.Email]; dup {
			return &ConflictError{
				Kind:           ConflictDuplicateEmail,
				Email:          c.Email,
				MaskedExisting: email.Mask(c.Email),
			}
		}
		seenEmails[c.Email] = i

		if !c.UserType.IsPrimary() {
			continue
		}
		domain := email.Domain(c.Email)
		if domain == "" {
			continue
		}
		if first, dup := primaryDomains[domain]; dup {
			return &ConflictError{
				Kind:           ConflictDuplicatePrimaryDomain,
				Email:          c.Email,
				Domain:         domain,
				MaskedExisting: email.Mask(candidates[first].Email),
			}
		}
		primaryDomains[domain] = i
	}
	return nil
}

// checkOne runs the store-backed checks for a single candidate. The email
// check always runs first; the domain check is skipped entirely for
// non-Primary users.
func (v *Validator) checkOne(ctx context.Context, c Candidate) (*ConflictError, error) {
	if c.Email == "" {
		return nil, nil
	}

	existing, err := v.findActiveByEmail(ctx, c.Email)
	if err != nil {
		return nil, err
	}
	if existing != nil && existing.ID != c.ID {
		return &ConflictError{
			Kind:           ConflictDuplicateEmail,
			Email:          c.Email,
			MaskedExisting: email.Mask(existing.Email),
		}, nil
	}

	if !c.UserType.IsPrimary() {
		return nil, nil
	}
	domain := email.Domain(c.Email)
	if domain == "" {
		return nil, nil
	}

	holder, err := v.findActivePrimaryByDomain(ctx, domain, c.ID)
	if err != nil {
		return nil, err
	}
	if holder != nil {
		return &ConflictError{
			Kind:           ConflictDuplicatePrimaryDomain,
			Email:          c.Email,
			Domain:         domain,
			MaskedExisting: email.Mask(holder.Email),
		}, nil
	}
	return nil, nil
}

func (v *Validator) findActiveByEmail(ctx context.Context, addr string) (*User, error) {
	var found *User
	err := retry.Do(ctx, v.attempts, 50*time.Millisecond, func(ctx context.Context) error {
		lookupCtx, cancel := context.WithTimeout(ctx, v.lookupTimeout)
		defer cancel()

		u, err := v.store.FindActiveByEmail(lookupCtx, addr)
		if err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				found = nil
				return nil
			}
			return err
		}
		found = u
		return nil
	})
	if err != nil {
		return nil, err
	}
	return found, nil
}

func (v *Validator) findActivePrimaryByDomain(ctx context.Context, domain string, excludeID id.UserID) (*User, error) {
	var found *User
	err := retry.Do(ctx, v.attempts, 50*time.Millisecond, func(ctx context.Context) error {
		lookupCtx, cancel := context.WithTimeout(ctx, v.lookupTimeout)
		defer cancel()

		u, err := v.store.FindActivePrimaryByDomain(lookupCtx, domain, excludeID)
		if err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				found = nil
				return nil
			}
			return err
		}
		found = u
		return nil
	})
	if err != nil {
		return nil, err
	}
	return found, nil
}

func (v *Validator) logLookupFailure(ctx context.Context, err error) {
	if v.logger == nil {
		return
	}
	// Error text from the store never includes candidate emails.
	v.logger.ErrorContext(ctx, "identity lookup failed", "error", err.Error())
}
