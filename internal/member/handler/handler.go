// Package handler exposes the membership workflow over HTTP. Mutating routes
// require an authenticated actor; the public directory projections do not.
package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"memberflow/internal/audit"
	"memberflow/internal/member"
	"memberflow/internal/member/service"
	platformmetrics "memberflow/internal/platform/metrics"
	"memberflow/internal/platform/middleware"
	id "memberflow/pkg/domain"
	dErrors "memberflow/pkg/domain-errors"
)

// Service defines the workflow operations the handler depends on.
type Service interface {
	CreateApplication(ctx context.Context, in service.CreateInput) (*member.Member, error)
	UpdateStatus(ctx context.Context, memberID id.MemberID, action member.Action, stage member.Stage, comment string) (*member.Member, error)
	UpdateProfile(ctx context.Context, memberID id.MemberID, update service.ProfileUpdate) (*member.Member, error)
	Get(ctx context.Context, memberID id.MemberID) (*member.Member, error)
	SoftDelete(ctx context.Context, memberID id.MemberID) error
	SetFeatured(ctx context.Context, memberID id.MemberID, featured bool) (*member.Member, error)
	ListByIndustry(ctx context.Context, industry string) ([]*member.Member, error)
	ListFeatured(ctx context.Context) ([]*member.Member, error)
	ListPartnersAndSponsors(ctx context.Context) ([]*member.Member, error)
	MapData(ctx context.Context) ([]service.MapPoint, error)
}

// AuditTrail lists workflow events for support staff.
type AuditTrail interface {
	List(ctx context.Context, memberID id.MemberID) ([]audit.Event, error)
}

// Handler handles member workflow endpoints.
type Handler struct {
	logger    *slog.Logger
	service   Service
	trail     AuditTrail
	metrics   *platformmetrics.Metrics
	validator middleware.ActorValidator
}

// New creates a new member Handler. trail and metrics may be nil.
func New(svc Service, trail AuditTrail, logger *slog.Logger, metrics *platformmetrics.Metrics, validator middleware.ActorValidator) *Handler {
	return &Handler{
		logger:    logger,
		service:   svc,
		trail:     trail,
		metrics:   metrics,
		validator: validator,
	}
}

// Register registers the member routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	memberRouter := chi.NewRouter()
	memberRouter.Use(middleware.Recovery(h.logger))
	memberRouter.Use(middleware.RequestID)
	memberRouter.Use(middleware.Logger(h.logger))
	memberRouter.Use(middleware.Timeout(30 * time.Second))
	memberRouter.Use(middleware.ContentTypeJSON)
	if h.metrics != nil {
		memberRouter.Use(middleware.Latency(h.metrics))
	}

	// Public directory projections.
	memberRouter.Get("/members", h.handleList)
	memberRouter.Get("/members/featured", h.handleFeatured)
	memberRouter.Get("/members/partners", h.handlePartners)
	memberRouter.Get("/members/map", h.handleMap)
	memberRouter.Get("/members/{memberID}", h.handleGet)

	// Workflow operations require an authenticated actor.
	memberRouter.Group(func(r chi.Router) {
		r.Use(middleware.RequireActor(h.validator, h.logger))
		r.Post("/members", h.handleCreate)
		r.Post("/members/{memberID}/status", h.handleUpdateStatus)
		r.Patch("/members/{memberID}", h.handleUpdateProfile)
		r.Delete("/members/{memberID}", h.handleDelete)
		r.Put("/members/{memberID}/featured", h.handleSetFeatured)
		r.Get("/members/{memberID}/audit", h.handleAuditTrail)
	})

	r.Mount("/", memberRouter)
}

type createRequest struct {
	Category         string                  `json:"category"`
	OrganisationInfo member.OrganisationInfo `json:"organisationInfo"`
	UserSnapshots    []member.UserSnapshot   `json:"userSnapshots"`
	Consent          member.Consent          `json:"consent"`
	AsDraft          bool                    `json:"asDraft"`
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req createRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(ctx, w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	category, err := member.ParseCategory(req.Category)
	if err != nil {
		h.writeError(ctx, w, err)
		return
	}

	m, err := h.service.CreateApplication(ctx, service.CreateInput{
		Category:     category,
		Organisation: req.OrganisationInfo,
		Users:        req.UserSnapshots,
		Consent:      req.Consent,
		AsDraft:      req.AsDraft,
	})
	if err != nil {
		h.writeError(ctx, w, err)
		return
	}
	h.writeJSON(ctx, w, http.StatusCreated, m)
}

type statusRequest struct {
	Action  string `json:"action"`
	Stage   string `json:"stage,omitempty"`
	Comment string `json:"comment,omitempty"`
}

func (h *Handler) handleUpdateStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	memberID, err := id.ParseMemberID(chi.URLParam(r, "memberID"))
	if err != nil {
		h.writeError(ctx, w, err)
		return
	}

	var req statusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(ctx, w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	action, err := member.ParseAction(req.Action)
	if err != nil {
		h.writeError(ctx, w, err)
		return
	}
	stage, err := member.ParseStage(req.Stage)
	if err != nil {
		h.writeError(ctx, w, err)
		return
	}

	m, err := h.service.UpdateStatus(ctx, memberID, action, stage, req.Comment)
	if err != nil {
		h.writeError(ctx, w, err)
		return
	}
	h.writeJSON(ctx, w, http.StatusOK, m)
}

type profileRequest struct {
	Category         *string                  `json:"category,omitempty"`
	OrganisationInfo *member.OrganisationInfo `json:"organisationInfo,omitempty"`
	UserSnapshots    []member.UserSnapshot    `json:"userSnapshots,omitempty"`
	Consent          *member.Consent          `json:"consent,omitempty"`
}

func (h *Handler) handleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	memberID, err := id.ParseMemberID(chi.URLParam(r, "memberID"))
	if err != nil {
		h.writeError(ctx, w, err)
		return
	}

	var req profileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(ctx, w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	update := service.ProfileUpdate{
		Organisation: req.OrganisationInfo,
		Users:        req.UserSnapshots,
		Consent:      req.Consent,
	}
	if req.Category != nil {
		category, err := member.ParseCategory(*req.Category)
		if err != nil {
			h.writeError(ctx, w, err)
			return
		}
		update.Category = &category
	}

	m, err := h.service.UpdateProfile(ctx, memberID, update)
	if err != nil {
		h.writeError(ctx, w, err)
		return
	}
	h.writeJSON(ctx, w, http.StatusOK, m)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	memberID, err := id.ParseMemberID(chi.URLParam(r, "memberID"))
	if err != nil {
		h.writeError(ctx, w, err)
		return
	}
	m, err := h.service.Get(ctx, memberID)
	if err != nil {
		h.writeError(ctx, w, err)
		return
	}
	h.writeJSON(ctx, w, http.StatusOK, m)
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	memberID, err := id.ParseMemberID(chi.URLParam(r, "memberID"))
	if err != nil {
		h.writeError(ctx, w, err)
		return
	}
	if err := h.service.SoftDelete(ctx, memberID); err != nil {
		h.writeError(ctx, w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type featuredRequest struct {
	Featured bool `json:"featured"`
}

func (h *Handler) handleSetFeatured(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	memberID, err := id.ParseMemberID(chi.URLParam(r, "memberID"))
	if err != nil {
		h.writeError(ctx, w, err)
		return
	}
	var req featuredRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(ctx, w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	m, err := h.service.SetFeatured(ctx, memberID, req.Featured)
	if err != nil {
		h.writeError(ctx, w, err)
		return
	}
	h.writeJSON(ctx, w, http.StatusOK, m)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	industry := r.URL.Query().Get("industry")
	if industry == "" {
		h.writeError(ctx, w, dErrors.New(dErrors.CodeBadRequest, "industry query parameter is required"))
		return
	}
	members, err := h.service.ListByIndustry(ctx, industry)
	if err != nil {
		h.writeError(ctx, w, err)
		return
	}
	h.writeJSON(ctx, w, http.StatusOK, membersPayload(members))
}

func (h *Handler) handleFeatured(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	members, err := h.service.ListFeatured(ctx)
	if err != nil {
		h.writeError(ctx, w, err)
		return
	}
	h.writeJSON(ctx, w, http.StatusOK, membersPayload(members))
}

func (h *Handler) handlePartners(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	members, err := h.service.ListPartnersAndSponsors(ctx)
	if err != nil {
		h.writeError(ctx, w, err)
		return
	}
	h.writeJSON(ctx, w, http.StatusOK, membersPayload(members))
}

func (h *Handler) handleMap(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	points, err := h.service.MapData(ctx)
	if err != nil {
		h.writeError(ctx, w, err)
		return
	}
	if points == nil {
		points = []service.MapPoint{}
	}
	h.writeJSON(ctx, w, http.StatusOK, map[string]any{"points": points})
}

func (h *Handler) handleAuditTrail(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if h.trail == nil {
		h.writeError(ctx, w, dErrors.New(dErrors.CodeNotFound, "audit trail is not enabled"))
		return
	}
	memberID, err := id.ParseMemberID(chi.URLParam(r, "memberID"))
	if err != nil {
		h.writeError(ctx, w, err)
		return
	}
	events, err := h.trail.List(ctx, memberID)
	if err != nil {
		h.writeError(ctx, w, err)
		return
	}
	if events == nil {
		events = []audit.Event{}
	}
	h.writeJSON(ctx, w, http.StatusOK, map[string]any{"events": events})
}

func membersPayload(members []*member.Member) map[string]any {
	if members == nil {
		members = []*member.Member{}
	}
	return map[string]any{"members": members}
}
