// Package service orchestrates the membership application workflow: field
// validation, identity uniqueness, geocoding, persistence, and status
// transitions. It owns no validation rules itself; collaborators are injected
// and the service sequences them.
package service

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"

	"memberflow/internal/audit"
	"memberflow/internal/catalog"
	"memberflow/internal/fieldval"
	"memberflow/internal/geo"
	"memberflow/internal/identity"
	"memberflow/internal/member"
	"memberflow/internal/member/metrics"
	"memberflow/internal/member/store"
	id "memberflow/pkg/domain"
	dErrors "memberflow/pkg/domain-errors"
	"memberflow/pkg/platform/sentinel"
	"memberflow/pkg/requestcontext"
)

// Form sections whose field schemas govern the organisation profile.
const (
	sectionOrganisation = "organisation"
	sectionAddress      = "address"
)

// Service is the workflow orchestrator.
type Service struct {
	members    store.Store
	schemas    catalog.FieldSchemaStore
	fields     *fieldval.Engine
	identities *identity.Validator
	geocoder   geo.Geocoder
	logger     *slog.Logger
	metrics    *metrics.Metrics
	auditSink  chan<- audit.Event
	cache      *projectionCache
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func WithGeocoder(g geo.Geocoder) Option {
	return func(s *Service) { s.geocoder = g }
}

// WithAuditSink wires the channel consumed by the audit worker. Emission is
// non-blocking; a full sink drops the event and logs.
func WithAuditSink(sink chan<- audit.Event) Option {
	return func(s *Service) { s.auditSink = sink }
}

func New(members store.Store, schemas catalog.FieldSchemaStore, fields *fieldval.Engine, identities *identity.Validator, opts ...Option) *Service {
	s := &Service{
		members:    members,
		schemas:    schemas,
		fields:     fields,
		identities: identities,
		geocoder:   geo.Noop{},
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateInput carries a new membership application.
type CreateInput struct {
	Category     member.Category
	Organisation member.OrganisationInfo
	Users        []member.UserSnapshot
	Consent      member.Consent
	// AsDraft parks the application in draft instead of submitting it.
	AsDraft bool
}

// CreateApplication validates and persists a new application. Validation order
// is fixed: dynamic fields first (aggregate report), then identity uniqueness
// (fail-fast), then best-effort geocoding, then the write. Geocoding failures
// never fail creation.
func (s *Service) CreateApplication(ctx context.Context, in CreateInput) (*member.Member, error) {
	start := time.Now()
	defer s.observeCreate(start)

	if !in.AsDraft && !in.Consent.All() {
		return nil, dErrors.New(dErrors.CodeBadRequest, "all consents must be accepted before submission")
	}

	if err := s.validateOrganisation(ctx, &in.Organisation, false); err != nil {
		return nil, err
	}
	if err := s.validateIdentities(ctx, in.Users); err != nil {
		return nil, err
	}

	s.geocode(ctx, &in.Organisation)

	now := requestcontext.Now(ctx)
	m, err := member.NewMember(id.MemberID(uuid.New()), in.Category, in.Organisation, in.Users, in.Consent, in.AsDraft, now)
	if err != nil {
		return nil, err
	}

	if err := s.members.Create(ctx, m); err != nil {
		if errors.Is(err, sentinel.ErrAlreadyUsed) {
			return nil, s.storeConflict(ctx, in.Users)
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "persist application")
	}

	if s.metrics != nil {
		s.metrics.IncrementApplicationsCreated()
	}
	s.logger.InfoContext(ctx, "application created",
		"member_id", m.ID.String(),
		"category", string(m.Category),
		"status", m.Status.String())
	return m, nil
}

// UpdateStatus applies a workflow action. The persist is conditioned on the
// status read at load time, so of two racing approvals exactly one wins; the
// loser gets a conflict and must re-read.
func (s *Service) UpdateStatus(ctx context.Context, memberID id.MemberID, action member.Action, stage member.Stage, comment string) (*member.Member, error) {
	start := time.Now()
	defer s.observeTransition(start)

	m, err := s.findMember(ctx, memberID)
	if err != nil {
		return nil, err
	}

	// A draft is created before consent is captured, so the gate sits on the
	// submit action rather than on creation.
	if action == member.ActionSubmit && !m.Consent.All() {
		s.recordTransition(ctx, m, action, stage, m.Status, "", "invalid", "consent incomplete")
		return nil, dErrors.New(dErrors.CodeBadRequest, "all consents must be accepted before submission")
	}

	actorID := requestcontext.ActorID(ctx)
	expected := m.Status
	if err := m.ApplyTransition(action, stage, actorID, comment, requestcontext.Now(ctx)); err != nil {
		s.recordTransition(ctx, m, action, stage, expected, "", "invalid", err.Error())
		return nil, err
	}

	if err := s.members.UpdateStatusConditioned(ctx, m, expected); err != nil {
		switch {
		case errors.Is(err, sentinel.ErrStaleStatus):
			s.recordTransition(ctx, m, action, stage, expected, "", "stale", "status changed concurrently")
			return nil, dErrors.Wrap(err, dErrors.CodeConflict, "status changed concurrently, re-read and retry")
		case errors.Is(err, sentinel.ErrNotFound):
			return nil, dErrors.Wrap(err, dErrors.CodeNotFound, "member not found")
		default:
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "persist status change")
		}
	}

	s.recordTransition(ctx, m, action, stage, expected, m.Status, "applied", "")
	s.logger.InfoContext(ctx, "status transition applied",
		"member_id", m.ID.String(),
		"actor_id", actorID.String(),
		"action", string(action),
		"stage", string(stage),
		"from", expected.String(),
		"to", m.Status.String())
	s.invalidateProjections(ctx)
	return m, nil
}

// ProfileUpdate carries the changeable parts of an application. Nil fields
// are left untouched. Status is never changed here.
type ProfileUpdate struct {
	Category     *member.Category
	Organisation *member.OrganisationInfo
	// Users replaces the snapshot roster when non-nil. Identity uniqueness and
	// the single-correspondence-user invariant are re-checked in that case.
	Users []member.UserSnapshot
	// Consent may only be supplied while the application has not been
	// submitted; it is immutable from the first submit onward.
	Consent *member.Consent
}

// UpdateProfile revalidates and persists profile changes.
func (s *Service) UpdateProfile(ctx context.Context, memberID id.MemberID, update ProfileUpdate) (*member.Member, error) {
	m, err := s.findMember(ctx, memberID)
	if err != nil {
		return nil, err
	}

	if update.Category != nil && *update.Category != m.Category {
		if !m.CanEditCategory() {
			return nil, dErrors.New(dErrors.CodeInvariantViolation, "category cannot change once the member is active")
		}
		m.Category = *update.Category
	}

	if update.Organisation != nil {
		org := *update.Organisation
		if err := s.validateOrganisation(ctx, &org, true); err != nil {
			return nil, err
		}
		// Profile edits never silently drop coordinates resolved earlier.
		if org.Address.Coordinates == nil {
			org.Address.Coordinates = m.OrganisationInfo.Address.Coordinates
		}
		m.OrganisationInfo = org
	}

	if update.Users != nil {
		if err := member.ValidateCorrespondenceUser(update.Users); err != nil {
			return nil, err
		}
		if err := s.validateIdentities(ctx, update.Users); err != nil {
			return nil, err
		}
		m.UserSnapshots = update.Users
	}

	if update.Consent != nil {
		if m.Status != member.StatusDraft && m.Status != member.StatusPendingFormSubmission {
			return nil, dErrors.New(dErrors.CodeInvariantViolation, "consent cannot change after submission")
		}
		m.Consent = *update.Consent
	}

	m.UpdatedAt = requestcontext.Now(ctx)
	if err := s.members.Update(ctx, m); err != nil {
		switch {
		case errors.Is(err, sentinel.ErrAlreadyUsed):
			return nil, s.storeConflict(ctx, m.UserSnapshots)
		case errors.Is(err, sentinel.ErrNotFound):
			return nil, dErrors.Wrap(err, dErrors.CodeNotFound, "member not found")
		default:
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "persist profile update")
		}
	}
	s.invalidateProjections(ctx)
	return m, nil
}

// Get returns a single member.
func (s *Service) Get(ctx context.Context, memberID id.MemberID) (*member.Member, error) {
	return s.findMember(ctx, memberID)
}

// SoftDelete marks the member deleted. Idempotent.
func (s *Service) SoftDelete(ctx context.Context, memberID id.MemberID) error {
	if err := s.members.SoftDelete(ctx, memberID); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "delete member")
	}
	s.logger.InfoContext(ctx, "member deleted",
		"member_id", memberID.String(),
		"actor_id", requestcontext.ActorID(ctx).String())
	s.invalidateProjections(ctx)
	return nil
}

// SetFeatured toggles the featured flag independently of workflow status.
func (s *Service) SetFeatured(ctx context.Context, memberID id.MemberID, featured bool) (*member.Member, error) {
	m, err := s.findMember(ctx, memberID)
	if err != nil {
		return nil, err
	}
	m.FeaturedMember = featured
	m.UpdatedAt = requestcontext.Now(ctx)
	if err := s.members.Update(ctx, m); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "persist featured flag")
	}
	s.invalidateProjections(ctx)
	return m, nil
}

func (s *Service) findMember(ctx context.Context, memberID id.MemberID) (*member.Member, error) {
	m, err := s.members.FindByID(ctx, memberID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.Wrap(err, dErrors.CodeNotFound, "member not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "load member")
	}
	return m, nil
}

// validateOrganisation runs the dynamic field engine over the organisation
// profile. Creation validates the full organisation and address sections so
// every administrator-configured field is enforced; profile edits validate
// only the keys the profile carries (schemas resolved by key). Website URLs
// are normalized before validation so bare domains pass and are stored in
// canonical form.
func (s *Service) validateOrganisation(ctx context.Context, org *member.OrganisationInfo, partial bool) error {
	org.Website = fieldval.NormalizeURL(org.Website)
	values := organisationValues(*org)

	var (
		schemas []catalog.FieldSchema
		err     error
	)
	if partial {
		schemas, err = s.schemas.FindByKeys(ctx, valueKeys(values))
		if err != nil {
			err = dErrors.Wrap(err, dErrors.CodeUnavailable, "field schema catalog unavailable")
		}
	} else {
		schemas, err = s.organisationSchemas(ctx)
	}
	if err != nil {
		return err
	}

	fieldErrs, err := s.fields.Validate(ctx, schemas, values)
	if err != nil {
		return err
	}
	if len(fieldErrs) > 0 {
		s.recordValidationFailures(ctx, fieldErrs)
		return fieldErrs
	}
	return nil
}

func (s *Service) organisationSchemas(ctx context.Context) ([]catalog.FieldSchema, error) {
	var schemas []catalog.FieldSchema
	for _, section := range []string{sectionOrganisation, sectionAddress} {
		part, err := s.schemas.ListBySection(ctx, section)
		if err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "field schema catalog unavailable")
		}
		schemas = append(schemas, part...)
	}
	return schemas, nil
}

// valueKeys returns the map's keys in sorted order for deterministic catalog
// lookups.
func valueKeys(values map[string]any) []string {
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// organisationValues flattens the organisation profile into the value map the
// field engine validates. Keys match the administrator-configured schema keys.
func organisationValues(org member.OrganisationInfo) map[string]any {
	return map[string]any{
		"companyName":  org.CompanyName,
		"website":      org.Website,
		"industries":   org.Industries,
		"linkedin":     org.Social.LinkedIn,
		"twitter":      org.Social.Twitter,
		"facebook":     org.Social.Facebook,
		"addressLine1": org.Address.Line1,
		"addressLine2": org.Address.Line2,
		"city":         org.Address.City,
		"country":      org.Address.Country,
	}
}

func (s *Service) validateIdentities(ctx context.Context, snapshots []member.UserSnapshot) error {
	candidates := make([]identity.Candidate, 0, len(snapshots))
	for _, snap := range snapshots {
		candidates = append(candidates, identity.Candidate{
			ID:       snap.UserID,
			Email:    snap.Email,
			UserType: snap.UserType,
		})
	}
	err := s.identities.Validate(ctx, candidates)
	if err != nil {
		if _, ok := identity.AsConflict(err); ok && s.metrics != nil {
			s.metrics.IncrementIdentityConflict()
		}
	}
	return err
}

// storeConflict translates a store-level unique violation into the same shape
// a validator conflict takes. The validator is re-run to name the offending
// email; when the race has already resolved, a generic conflict is returned.
func (s *Service) storeConflict(ctx context.Context, snapshots []member.UserSnapshot) error {
	if err := s.validateIdentities(ctx, snapshots); err != nil {
		if _, ok := identity.AsConflict(err); ok {
			return err
		}
	}
	if s.metrics != nil {
		s.metrics.IncrementIdentityConflict()
	}
	return dErrors.New(dErrors.CodeConflict, "a submitted email is already in use")
}

func (s *Service) geocode(ctx context.Context, org *member.OrganisationInfo) {
	if org.Address.Coordinates != nil {
		return
	}
	coords, err := s.geocoder.Resolve(ctx, org.Address)
	if err != nil {
		if s.metrics != nil {
			s.metrics.IncrementGeocodeFailure()
		}
		s.logger.WarnContext(ctx, "geocoding failed, continuing without coordinates", "error", err)
		return
	}
	org.Address.Coordinates = coords
}

func (s *Service) recordTransition(ctx context.Context, m *member.Member, action member.Action, stage member.Stage, from, to member.Status, outcome, reason string) {
	if s.metrics != nil {
		s.metrics.RecordTransition(string(action), outcome)
	}

	event := audit.Event{
		MemberID:   m.ID,
		ActorID:    requestcontext.ActorID(ctx),
		Timestamp:  requestcontext.Now(ctx),
		Action:     string(action),
		Stage:      string(stage),
		FromStatus: from.String(),
		ToStatus:   to.String(),
		Outcome:    audit.OutcomeApplied,
		Reason:     reason,
		RequestID:  requestcontext.RequestID(ctx),
	}
	if outcome != "applied" {
		event.Outcome = audit.OutcomeRejected
		event.ToStatus = ""
	}
	s.emitAudit(ctx, event)
}

func (s *Service) emitAudit(ctx context.Context, event audit.Event) {
	if s.auditSink == nil {
		return
	}
	select {
	case s.auditSink <- event:
	default:
		s.logger.WarnContext(ctx, "audit sink full, event dropped",
			"member_id", event.MemberID.String(),
			"action", event.Action)
	}
}

func (s *Service) recordValidationFailures(ctx context.Context, errs fieldval.ErrorSet) {
	if s.metrics != nil {
		for _, fieldErr := range errs {
			s.metrics.RecordValidationFailure(string(fieldErr.Kind))
		}
	}
	s.logger.InfoContext(ctx, "field validation failed", "fields", errs.Keys())
}

func (s *Service) observeCreate(start time.Time) {
	if s.metrics != nil {
		s.metrics.ObserveCreate(start)
	}
}

func (s *Service) observeTransition(start time.Time) {
	if s.metrics != nil {
		s.metrics.ObserveTransition(start)
	}
}
