package execution

import (
	"time"

	"github.com/google/uuid"
)

// BatchItemFailure records why one item of a batch schedule was skipped.
type BatchItemFailure struct {
	ID     uuid.UUID `json:"id"`
	Reason string    `json:"reason"`
	Err    error     `json:"-"`
}

// BatchResult is the per-item outcome of a batch schedule. It is a value, not
// an error: partial failure is an expected result the caller presents to the
// user, with the exact failure set preserved.
type BatchResult struct {
	Succeeded []uuid.UUID        `json:"succeeded"`
	Failed    []BatchItemFailure `json:"failed"`
}

// AllSucceeded reports whether every item in the batch was applied.
func (r BatchResult) AllSucceeded() bool { return len(r.Failed) == 0 }

// ScheduleBatch applies one schedule (slot, unit, professional) across the
// selected executions. Batch-level preconditions are checked once before
// anything is applied; a precondition failure rejects the whole batch with a
// ValidationError and no item is touched.
//
// Per-item application is best effort, strictly in the order supplied by the
// caller: one item's failure does not block the rest, and no reordering or
// parallelism is permitted so that partial-failure reports are reproducible.
func (m *Machine) ScheduleBatch(items []*Execution, when time.Time, unitID uuid.UUID, professionalID *uuid.UUID) (BatchResult, error) {
	if len(items) == 0 {
		return BatchResult{}, invalid("selection", "at least one execution must be selected")
	}
	if when.IsZero() {
		return BatchResult{}, invalid("scheduled_at", "a schedule date is required")
	}
	if unitID == uuid.Nil {
		return BatchResult{}, invalid("executing_unit_id", "an executing unit is required")
	}
	for _, e := range items {
		if m.rules.isGatekeeper(e.ProcedureID) && professionalID == nil {
			return BatchResult{}, invalid("professional", "a professional is required when scheduling a specialized consultation")
		}
	}

	var result BatchResult
	for _, e := range items {
		if err := m.Schedule(e, when, &unitID, professionalID); err != nil {
			result.Failed = append(result.Failed, BatchItemFailure{ID: e.ID, Reason: err.Error(), Err: err})
			continue
		}
		result.Succeeded = append(result.Succeeded, e.ID)
	}
	return result, nil
}

// RescheduleBatch is the reduced-input form of ScheduleBatch for callers
// bound to a single executing unit: the selection carries no unit and the
// caller's fixed unit is substituted for every item, replacing whatever unit
// an item was previously booked at. Preconditions and the ordered best-effort
// application are those of ScheduleBatch.
func (m *Machine) RescheduleBatch(items []*Execution, when time.Time, fixedUnitID uuid.UUID, professionalID *uuid.UUID) (BatchResult, error) {
	if fixedUnitID == uuid.Nil {
		return BatchResult{}, invalid("executing_unit_id", "the caller must be bound to an executing unit")
	}
	return m.ScheduleBatch(items, when, fixedUnitID, professionalID)
}
