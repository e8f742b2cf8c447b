package execution

import (
	"fmt"
	"time"
)

// GuardKind names the guard that rejected a transition.
type GuardKind string

const (
	// GuardTemporal: a date is outside its allowed range (performed before
	// scheduled, or in the future).
	GuardTemporal GuardKind = "temporal"
	// GuardPrerequisite: no specialized consultation on the request has been
	// performed yet.
	GuardPrerequisite GuardKind = "prerequisite"
	// GuardEvidentiary: the anatomo-pathological collection/result dates are
	// missing or out of order.
	GuardEvidentiary GuardKind = "evidentiary"
)

// ValidationError reports malformed or missing input. The caller can re-prompt
// and retry; nothing was applied.
type ValidationError struct {
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// GuardViolation reports a named business guard that failed. These are
// expected domain outcomes, not crashes: the record was left untouched and
// the struct carries the dates involved so callers can render a precise
// message.
type GuardViolation struct {
	Guard       GuardKind  `json:"guard"`
	Detail      string     `json:"detail"`
	PerformedAt *time.Time `json:"performed_at,omitempty"`
	ScheduledAt *time.Time `json:"scheduled_at,omitempty"`
	CollectedAt *time.Time `json:"material_collected_at,omitempty"`
	ResultAt    *time.Time `json:"result_registered_at,omitempty"`
}

func (e *GuardViolation) Error() string {
	return fmt.Sprintf("%s guard violation: %s", e.Guard, e.Detail)
}

// IllegalTransition reports an operation that is not reachable from the
// execution's current status. Never partially applied.
type IllegalTransition struct {
	Op   string `json:"op"`
	From Status `json:"from"`
}

func (e *IllegalTransition) Error() string {
	return fmt.Sprintf("cannot %s an execution in status %q", e.Op, e.From)
}

func invalid(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}
