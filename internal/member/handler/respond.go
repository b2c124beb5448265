package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"memberflow/internal/fieldval"
	"memberflow/internal/identity"
	"memberflow/internal/member"
	dErrors "memberflow/pkg/domain-errors"
	"memberflow/pkg/requestcontext"
)

type errorResponse struct {
	Error   string            `json:"error"`
	Message string            `json:"message,omitempty"`
	Kind    string            `json:"kind,omitempty"`
	Fields  map[string]string `json:"fields,omitempty"`
}

func (h *Handler) writeJSON(ctx context.Context, w http.ResponseWriter, status int, payload any) {
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.logger.ErrorContext(ctx, "failed to write response",
			"error", err,
			"request_id", requestcontext.RequestID(ctx))
	}
}

// writeError maps domain errors to HTTP responses. Validation failures carry
// the per-field messages; conflicts carry the violated kind.
func (h *Handler) writeError(ctx context.Context, w http.ResponseWriter, err error) {
	var fieldErrs fieldval.ErrorSet
	if errors.As(err, &fieldErrs) {
		h.writeJSON(ctx, w, http.StatusUnprocessableEntity, errorResponse{
			Error:  string(dErrors.CodeValidation),
			Fields: fieldErrs.Messages(),
		})
		return
	}

	if conflict, ok := identity.AsConflict(err); ok {
		h.writeJSON(ctx, w, http.StatusConflict, errorResponse{
			Error:   string(dErrors.CodeConflict),
			Kind:    string(conflict.Kind),
			Message: conflict.Error(),
		})
		return
	}

	var invalid *member.InvalidTransitionError
	if errors.As(err, &invalid) {
		h.writeJSON(ctx, w, http.StatusConflict, errorResponse{
			Error:   string(dErrors.CodeInvariantViolation),
			Message: invalid.Error(),
		})
		return
	}

	code := dErrors.CodeOf(err)
	status := dErrors.ToHTTPStatus(code)
	message := err.Error()
	if status >= http.StatusInternalServerError {
		h.logger.ErrorContext(ctx, "request failed",
			"error", err,
			"request_id", requestcontext.RequestID(ctx))
		message = "internal server error"
	}
	h.writeJSON(ctx, w, status, errorResponse{Error: string(code), Message: message})
}
