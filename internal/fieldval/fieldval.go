// Package fieldval implements the schema-driven dynamic field validator.
//
// Validation is data-driven: a field schema list and a raw value map go in,
// and a per-field error set comes out. Every failing field is reported so the
// caller can highlight all of them at once; nothing here fails fast.
//
// Dropdown-valued fields are checked against live catalog data. Lookups are
// memoized only within a single Validate call because categories are
// administrator-editable between requests.
package fieldval

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/asaskevich/govalidator"

	"memberflow/internal/catalog"
	dErrors "memberflow/pkg/domain-errors"
	"memberflow/pkg/platform/retry"
)

// Kind classifies a field failure. Logged alongside the field key; field
// values are never logged.
type Kind string

const (
	KindRequired           Kind = "required"
	KindFormat             Kind = "format"
	KindUnknownCode        Kind = "unknown_code"
	KindCatalogUnavailable Kind = "catalog_unavailable"
)

// FieldError is one field's failure.
type FieldError struct {
	Kind    Kind   `json:"kind"`
	Message string `json:"message"`
}

// ErrorSet aggregates failures by field key. It satisfies error so the
// orchestrator can return it directly.
type ErrorSet map[string]FieldError

func (e ErrorSet) Error() string {
	keys := make([]string, 0, len(e))
	for k := range e {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return fmt.Sprintf("validation failed for fields: %s", strings.Join(keys, ", "))
}

// Messages flattens the set to field → message for API responses.
func (e ErrorSet) Messages() map[string]string {
	out := make(map[string]string, len(e))
	for k, fe := range e {
		out[k] = fe.Message
	}
	return out
}

// Keys returns the failing field keys in sorted order. Safe to log.
func (e ErrorSet) Keys() []string {
	keys := make([]string, 0, len(e))
	for k := range e {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Engine evaluates field schemas against raw values. The dropdown store is
// injected explicitly; the engine holds no ambient state between calls.
type Engine struct {
	dropdowns     catalog.DropdownStore
	logger        *slog.Logger
	lookupTimeout time.Duration
	attempts      int
}

// Option customizes an Engine.
type Option func(*Engine)

// WithLogger attaches a logger for lookup diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) { e.logger = logger }
}

// WithLookupTimeout bounds each catalog read.
func WithLookupTimeout(d time.Duration) Option {
	return func(e *Engine) { e.lookupTimeout = d }
}

// WithLookupAttempts bounds retries of transient catalog failures.
func WithLookupAttempts(n int) Option {
	return func(e *Engine) { e.attempts = n }
}

func NewEngine(dropdowns catalog.DropdownStore, opts ...Option) *Engine {
	e := &Engine{
		dropdowns:     dropdowns,
		lookupTimeout: 5 * time.Second,
		attempts:      2,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Validate evaluates every schema against the value map and returns the
// aggregate error set. The returned error is non-nil only for infrastructure
// failures (catalog unreachable); a catalog outage is never reported as a
// field failure.
func (e *Engine) Validate(ctx context.Context, schemas []catalog.FieldSchema, values map[string]any) (ErrorSet, error) {
	errs := make(ErrorSet)
	// codes cache lives for exactly one validation pass
	codes := make(map[string]map[string]bool)

	for _, schema := range schemas {
		fieldErr, err := e.validateField(ctx, schema, values[schema.Key], codes)
		if err != nil {
			e.logLookupFailure(ctx, schema, err)
			return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "catalog lookup failed")
		}
		if fieldErr != nil {
			errs[schema.Key] = *fieldErr
		}
	}

	if len(errs) == 0 {
		return nil, nil
	}
	return errs, nil
}

func (e *Engine) validateField(ctx context.Context, schema catalog.FieldSchema, value any, codes map[string]map[string]bool) (*FieldError, error) {
	switch schema.Type {
	case catalog.FieldText, catalog.FieldTextarea:
		return validateText(schema, value), nil
	case catalog.FieldEmail:
		return validateEmail(schema, value), nil
	case catalog.FieldURL:
		return validateURL(schema, value), nil
	case catalog.FieldPhone:
		return validatePhone(schema, value), nil
	case catalog.FieldDropdown:
		return e.validateDropdown(ctx, schema, value, codes, false)
	case catalog.FieldMultiDropdown:
		return e.validateDropdown(ctx, schema, value, codes, true)
	case catalog.FieldCheckbox:
		return validateCheckbox(schema, value), nil
	case catalog.FieldFileRef:
		return validateFileRef(schema, value), nil
	default:
		return nil, dErrors.Newf(dErrors.CodeInvariantViolation, "field %s has unknown type %q", schema.Key, schema.Type)
	}
}

func validateText(schema catalog.FieldSchema, value any) *FieldError {
	s := strings.TrimSpace(asString(value))
	if s == "" && schema.Required {
		return requiredError()
	}
	return nil
}

func validateEmail(schema catalog.FieldSchema, value any) *FieldError {
	s := strings.TrimSpace(asString(value))
	if s == "" {
		if schema.Required {
			return requiredError()
		}
		return nil
	}
	if !govalidator.IsEmail(s) {
		return &FieldError{Kind: KindFormat, Message: "must be a valid email address"}
	}
	return nil
}

func validateURL(schema catalog.FieldSchema, value any) *FieldError {
	s := strings.TrimSpace(asString(value))
	if s == "" {
		if schema.Required {
			return requiredError()
		}
		return nil
	}
	if !govalidator.IsURL(NormalizeURL(s)) {
		return &FieldError{Kind: KindFormat, Message: "must be a valid URL"}
	}
	return nil
}

func validatePhone(schema catalog.FieldSchema, value any) *FieldError {
	s := strings.TrimSpace(asString(value))
	if s == "" {
		if schema.Required {
			return requiredError()
		}
		return nil
	}
	digits := 0
	for _, r := range s {
		if r >= '0' && r <= '9' {
			digits++
		}
	}
	if digits < 10 {
		return &FieldError{Kind: KindFormat, Message: "must contain at least 10 digits"}
	}
	return nil
}

func validateCheckbox(schema catalog.FieldSchema, value any) *FieldError {
	// Consent and declaration fields: only an explicit true satisfies them.
	if schema.Required && !asBool(value) {
		return &FieldError{Kind: KindRequired, Message: "must be accepted"}
	}
	return nil
}

func validateFileRef(schema catalog.FieldSchema, value any) *FieldError {
	// Uploads are handled by an external collaborator; only the reference's
	// presence is checked here.
	if schema.Required && strings.TrimSpace(asString(value)) == "" {
		return &FieldError{Kind: KindRequired, Message: "a file reference is required"}
	}
	return nil
}

func (e *Engine) validateDropdown(ctx context.Context, schema catalog.FieldSchema, value any, codes map[string]map[string]bool, multi bool) (*FieldError, error) {
	var selected []string
	if multi {
		selected = asStringSlice(value)
	} else if s := strings.TrimSpace(asString(value)); s != "" {
		selected = []string{s}
	}

	if len(selected) == 0 {
		if schema.Required {
			return requiredError(), nil
		}
		return nil, nil
	}

	valid, err := e.activeCodes(ctx, schema.DropdownCategory, codes)
	if err != nil {
		return nil, err
	}
	if len(valid) == 0 {
		// Category has no entries at all: not-yet-configured, which is an
		// operator problem, not a user one.
		return &FieldError{
			Kind:    KindCatalogUnavailable,
			Message: fmt.Sprintf("option list %q is not configured", schema.DropdownCategory),
		}, nil
	}

	for _, code := range selected {
		if !valid[strings.ToLower(strings.TrimSpace(code))] {
			return &FieldError{Kind: KindUnknownCode, Message: "contains a value that is not a valid option"}, nil
		}
	}
	return nil, nil
}

func (e *Engine) activeCodes(ctx context.Context, category string, cache map[string]map[string]bool) (map[string]bool, error) {
	if cached, ok := cache[category]; ok {
		return cached, nil
	}

	var entries []catalog.DropdownEntry
	err := retry.Do(ctx, e.attempts, 50*time.Millisecond, func(ctx context.Context) error {
		lookupCtx, cancel := context.WithTimeout(ctx, e.lookupTimeout)
		defer cancel()

		var lookupErr error
		entries, lookupErr = e.dropdowns.ListActive(lookupCtx, category)
		return lookupErr
	})
	if err != nil {
		return nil, err
	}

	valid := make(map[string]bool, len(entries))
	for _, entry := range entries {
		valid[strings.ToLower(entry.Code)] = true
	}
	cache[category] = valid
	return valid, nil
}

// NormalizeURL prefixes https:// when the value carries no scheme, matching
// how applicants typically paste bare hostnames.
func NormalizeURL(s string) string {
	if s == "" {
		return s
	}
	if !strings.Contains(s, "://") {
		return "https://" + s
	}
	return s
}

func requiredError() *FieldError {
	return &FieldError{Kind: KindRequired, Message: "is required"}
}

func (e *Engine) logLookupFailure(ctx context.Context, schema catalog.FieldSchema, err error) {
	if e.logger == nil {
		return
	}
	e.logger.ErrorContext(ctx, "catalog lookup failed",
		"field", schema.Key,
		"category", schema.DropdownCategory,
		"error", err.Error(),
	)
}

// asString converts a raw map value to a string, tolerating nil.
func asString(value any) string {
	switch v := value.(type) {
	case string:
		return v
	case fmt.Stringer:
		return v.String()
	default:
		return ""
	}
}

// asStringSlice converts a raw map value to a string slice, tolerating the
// []any shape produced by JSON decoding.
func asStringSlice(value any) []string {
	switch v := value.(type) {
	case []string:
		return trimNonEmpty(v)
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return trimNonEmpty(out)
	default:
		return nil
	}
}

func trimNonEmpty(in []string) []string {
	out := in[:0:0]
	for _, s := range in {
		if strings.TrimSpace(s) != "" {
			out = append(out, s)
		}
	}
	return out
}

func asBool(value any) bool {
	b, ok := value.(bool)
	return ok && b
}
