package execution

import (
	"time"

	"github.com/google/uuid"

	"github.com/ocisus/oci/internal/platform/calendar"
)

// Machine applies guarded transitions to execution records. It carries the
// injected classification rules and a clock; it keeps no other state, so one
// instance serves all requests.
type Machine struct {
	rules Rules
	now   func() time.Time
}

// Option configures a Machine.
type Option func(*Machine)

// WithClock overrides the machine's notion of "today". Intended for tests and
// for callers that pin a single evaluation instant across a batch.
func WithClock(now func() time.Time) Option {
	return func(m *Machine) { m.now = now }
}

// NewMachine creates a Machine with the given classification rules.
func NewMachine(rules Rules, opts ...Option) *Machine {
	m := &Machine{rules: rules, now: calendar.Today}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *Machine) today() time.Time {
	return calendar.DateOnly(m.now())
}

// Schedule moves an execution to scheduled and records the slot. Allowed from
// pending or scheduled (rescheduling replaces the previous slot). Past dates
// are allowed: administrative backfill is a supported flow.
func (m *Machine) Schedule(e *Execution, when time.Time, unitID, professionalID *uuid.UUID) error {
	if e.Status != StatusPending && e.Status != StatusScheduled {
		return &IllegalTransition{Op: "schedule", From: e.Status}
	}
	if when.IsZero() {
		return invalid("scheduled_at", "a schedule date is required")
	}

	e.Status = StatusScheduled
	e.ScheduledAt = &when
	if unitID != nil {
		e.ExecutingUnitID = unitID
	}
	if professionalID != nil {
		e.ExecutingProfessionalID = professionalID
	}
	return nil
}

// MarkPerformed moves an execution to performed. Three independent guards must
// all hold:
//
//   - temporal: performedAt on or after the scheduled date (when one is set)
//     and not in the future;
//   - prerequisite: unless this execution is itself a specialized
//     consultation, some sibling specialized consultation must already be
//     performed;
//   - evidentiary: anatomo-pathological procedures need collection and result
//     dates recorded, in order, before they count as performed.
//
// siblings are the other executions of the same request; the caller supplies
// them already loaded.
func (m *Machine) MarkPerformed(e *Execution, siblings []*Execution, performedAt time.Time, unitID, professionalID *uuid.UUID) error {
	if e.Status != StatusPending && e.Status != StatusScheduled {
		return &IllegalTransition{Op: "perform", From: e.Status}
	}
	if performedAt.IsZero() {
		return invalid("performed_at", "a performed date is required")
	}
	if m.rules.isGatekeeper(e.ProcedureID) && professionalID == nil && e.ExecutingProfessionalID == nil {
		return invalid("professional", "a professional is required for specialized consultations")
	}

	performed := calendar.DateOnly(performedAt)
	today := m.today()

	if calendar.After(performed, today) {
		return &GuardViolation{
			Guard: GuardTemporal, Detail: "performed date cannot be in the future",
			PerformedAt: &performed,
		}
	}
	if e.ScheduledAt != nil && calendar.Before(performed, *e.ScheduledAt) {
		return &GuardViolation{
			Guard: GuardTemporal, Detail: "performed date cannot precede the scheduled date",
			PerformedAt: &performed, ScheduledAt: e.ScheduledAt,
		}
	}

	if !m.rules.isGatekeeper(e.ProcedureID) && !m.gatekeeperPerformed(e, siblings) {
		return &GuardViolation{
			Guard:  GuardPrerequisite,
			Detail: "a specialized consultation or teleconsultation must be performed first",
		}
	}

	if m.rules.requiresPathology(e.ProcedureID) {
		if err := m.checkEvidence(e, today); err != nil {
			return err
		}
	}

	e.Status = StatusPerformed
	e.PerformedAt = &performed
	if unitID != nil {
		e.ExecutingUnitID = unitID
	}
	if professionalID != nil {
		e.ExecutingProfessionalID = professionalID
	}
	return nil
}

func (m *Machine) gatekeeperPerformed(e *Execution, siblings []*Execution) bool {
	for _, s := range siblings {
		if s.ID == e.ID {
			continue
		}
		if s.Status == StatusPerformed && m.rules.isGatekeeper(s.ProcedureID) {
			return true
		}
	}
	return false
}

func (m *Machine) checkEvidence(e *Execution, today time.Time) error {
	if e.MaterialCollectedAt == nil || e.ResultRegisteredAt == nil {
		return &GuardViolation{
			Guard:       GuardEvidentiary,
			Detail:      "material collection and result registration must both be recorded",
			CollectedAt: e.MaterialCollectedAt,
			ResultAt:    e.ResultRegisteredAt,
		}
	}
	if calendar.After(*e.MaterialCollectedAt, *e.ResultRegisteredAt) || calendar.After(*e.ResultRegisteredAt, today) {
		return &GuardViolation{
			Guard:       GuardEvidentiary,
			Detail:      "collection must precede the result and neither may be in the future",
			CollectedAt: e.MaterialCollectedAt,
			ResultAt:    e.ResultRegisteredAt,
		}
	}
	return nil
}

// RecordCollection records the anatomo-pathological material collection date.
// Allowed any time before the execution is performed; it does not change the
// status. The awaiting-result condition becomes observable through
// AwaitingResult once a collection date exists without a result date.
func (m *Machine) RecordCollection(e *Execution, collectedAt time.Time) error {
	if e.Status == StatusPerformed || e.Status == StatusCancelled {
		return &IllegalTransition{Op: "record collection on", From: e.Status}
	}
	if collectedAt.IsZero() {
		return invalid("material_collected_at", "a collection date is required")
	}
	collected := calendar.DateOnly(collectedAt)
	if calendar.After(collected, m.today()) {
		return &GuardViolation{
			Guard: GuardTemporal, Detail: "collection date cannot be in the future",
			CollectedAt: &collected,
		}
	}
	if e.ResultRegisteredAt != nil && calendar.After(collected, *e.ResultRegisteredAt) {
		return &GuardViolation{
			Guard: GuardEvidentiary, Detail: "collection date cannot follow the registered result",
			CollectedAt: &collected, ResultAt: e.ResultRegisteredAt,
		}
	}
	e.MaterialCollectedAt = &collected
	return nil
}

// RecordResult records the anatomo-pathological result date. Collection must
// have been recorded first.
func (m *Machine) RecordResult(e *Execution, resultAt time.Time) error {
	if e.Status == StatusPerformed || e.Status == StatusCancelled {
		return &IllegalTransition{Op: "record result on", From: e.Status}
	}
	if resultAt.IsZero() {
		return invalid("result_registered_at", "a result date is required")
	}
	if e.MaterialCollectedAt == nil {
		return &GuardViolation{
			Guard:  GuardEvidentiary,
			Detail: "material collection must be recorded before the result",
		}
	}
	result := calendar.DateOnly(resultAt)
	if calendar.After(result, m.today()) {
		return &GuardViolation{
			Guard: GuardTemporal, Detail: "result date cannot be in the future",
			ResultAt: &result,
		}
	}
	if calendar.Before(result, *e.MaterialCollectedAt) {
		return &GuardViolation{
			Guard: GuardEvidentiary, Detail: "result date cannot precede the collection date",
			CollectedAt: e.MaterialCollectedAt, ResultAt: &result,
		}
	}
	e.ResultRegisteredAt = &result
	return nil
}

// Cancel moves a pending or scheduled execution to cancelled. A non-empty
// justification is required; storing it is the caller's concern.
func (m *Machine) Cancel(e *Execution, justification string) error {
	if e.Status != StatusPending && e.Status != StatusScheduled {
		return &IllegalTransition{Op: "cancel", From: e.Status}
	}
	if justification == "" {
		return invalid("justification", "a justification is required to cancel")
	}
	e.Status = StatusCancelled
	return nil
}

// RevertToPending is the administrative undo of a performed execution. It
// clears the performed date and returns the record to pending; collection and
// result dates are deliberately left in place.
func (m *Machine) RevertToPending(e *Execution, justification string) error {
	if e.Status != StatusPerformed {
		return &IllegalTransition{Op: "revert", From: e.Status}
	}
	if justification == "" {
		return invalid("justification", "a justification is required to revert")
	}
	e.Status = StatusPending
	e.PerformedAt = nil
	return nil
}
