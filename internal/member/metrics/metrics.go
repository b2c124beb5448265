package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the member workflow module.
// Tracks application volume, transition outcomes, and validation pressure.
type Metrics struct {
	ApplicationsCreated prometheus.Counter
	Transitions         *prometheus.CounterVec
	ValidationFailures  *prometheus.CounterVec
	IdentityConflicts   prometheus.Counter
	GeocodeFailures     prometheus.Counter
	CreateDuration      prometheus.Histogram
	TransitionDuration  prometheus.Histogram
}

// New creates a new Metrics instance with all member module metrics registered.
func New() *Metrics {
	return &Metrics{
		ApplicationsCreated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "memberflow_applications_created_total",
			Help: "Total number of membership applications created",
		}),
		Transitions: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "memberflow_status_transitions_total",
			Help: "Status transition attempts by action and outcome",
		}, []string{"action", "outcome"}),
		ValidationFailures: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "memberflow_validation_failures_total",
			Help: "Field validation failures by kind",
		}, []string{"kind"}),
		IdentityConflicts: promauto.NewCounter(prometheus.CounterOpts{
			Name: "memberflow_identity_conflicts_total",
			Help: "Applications rejected for duplicate email or claimed primary domain",
		}),
		GeocodeFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "memberflow_geocode_failures_total",
			Help: "Address geocoding attempts that failed (creation proceeds without coordinates)",
		}),
		CreateDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "memberflow_create_duration_seconds",
			Help:    "Duration of application creation including validation and lookups",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}),
		TransitionDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "memberflow_transition_duration_seconds",
			Help:    "Duration of status transition operations",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}),
	}
}

// IncrementApplicationsCreated records a successful application creation.
func (m *Metrics) IncrementApplicationsCreated() {
	m.ApplicationsCreated.Inc()
}

// RecordTransition records a transition attempt with its outcome
// (applied, invalid, stale, error).
func (m *Metrics) RecordTransition(action, outcome string) {
	m.Transitions.WithLabelValues(action, outcome).Inc()
}

// RecordValidationFailure records one rejected field by failure kind.
func (m *Metrics) RecordValidationFailure(kind string) {
	m.ValidationFailures.WithLabelValues(kind).Inc()
}

// IncrementIdentityConflict records an application rejected by the
// uniqueness checks.
func (m *Metrics) IncrementIdentityConflict() {
	m.IdentityConflicts.Inc()
}

// IncrementGeocodeFailure records a geocoding attempt that did not resolve.
func (m *Metrics) IncrementGeocodeFailure() {
	m.GeocodeFailures.Inc()
}

// ObserveCreate records the duration of an application creation.
// Call with time.Now() at the start of the operation.
func (m *Metrics) ObserveCreate(start time.Time) {
	m.CreateDuration.Observe(time.Since(start).Seconds())
}

// ObserveTransition records the duration of a status transition.
// Call with time.Now() at the start of the operation.
func (m *Metrics) ObserveTransition(start time.Time) {
	m.TransitionDuration.Observe(time.Since(start).Seconds())
}
