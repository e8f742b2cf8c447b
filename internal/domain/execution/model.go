// Package execution implements the lifecycle engine for the procedure
// executions of an integrated care offer request: the status machine, its
// temporal/prerequisite/evidentiary guards, the batch scheduling coordinator
// and the read-time status projections. The engine is pure: it mutates only
// the records passed in, performs no I/O and holds no shared state, so it may
// be driven from any number of concurrent request handlers.
package execution

import (
	"time"

	"github.com/google/uuid"
)

// Status is the persisted lifecycle state of an execution. The dispensed and
// awaiting-result conditions are projections computed at read time and never
// stored; see DisplayStatus and AwaitingResult.
type Status string

const (
	StatusPending   Status = "pending"
	StatusScheduled Status = "scheduled"
	StatusPerformed Status = "performed"
	StatusCancelled Status = "cancelled"

	// StatusDispensed is display-only: an execution whose alternative-modality
	// sibling was performed is shown as dispensed instead of its real status.
	StatusDispensed Status = "dispensed"
)

// Execution is one procedure of a care request. One record exists per
// (request, procedure definition) pair from the moment the request is opened;
// records are reverted, never deleted.
type Execution struct {
	ID                      uuid.UUID  `db:"id" json:"id"`
	RequestID               uuid.UUID  `db:"request_id" json:"request_id"`
	ProcedureID             uuid.UUID  `db:"procedure_id" json:"procedure_id"`
	Status                  Status     `db:"status" json:"status"`
	ScheduledAt             *time.Time `db:"scheduled_at" json:"scheduled_at,omitempty"`
	PerformedAt             *time.Time `db:"performed_at" json:"performed_at,omitempty"`
	ExecutingUnitID         *uuid.UUID `db:"executing_unit_id" json:"executing_unit_id,omitempty"`
	ExecutingProfessionalID *uuid.UUID `db:"executing_professional_id" json:"executing_professional_id,omitempty"`
	MaterialCollectedAt     *time.Time `db:"material_collected_at" json:"material_collected_at,omitempty"`
	ResultRegisteredAt      *time.Time `db:"result_registered_at" json:"result_registered_at,omitempty"`
	CreatedAt               time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt               time.Time  `db:"updated_at" json:"updated_at"`
}

// Rules classifies procedures for the engine's guards. The classifiers are
// injected so the rules come from declared catalog data, not from matching
// procedure names inside the engine.
type Rules struct {
	// Gatekeeper reports whether the procedure is a specialized consultation
	// or teleconsultation: the one class that may be performed first and that
	// unlocks the rest of the bundle.
	Gatekeeper func(procedureID uuid.UUID) bool

	// RequiresPathology reports whether the procedure demands the two-step
	// evidentiary flow (material collection, then result registration) before
	// it can be marked performed.
	RequiresPathology func(procedureID uuid.UUID) bool

	// AlternativeGroup returns the mutual-exclusion group of the procedure,
	// if any. Performing one member of a group dispenses the others on the
	// same request (display-only).
	AlternativeGroup func(procedureID uuid.UUID) (string, bool)
}

func (r Rules) isGatekeeper(id uuid.UUID) bool {
	return r.Gatekeeper != nil && r.Gatekeeper(id)
}

func (r Rules) requiresPathology(id uuid.UUID) bool {
	return r.RequiresPathology != nil && r.RequiresPathology(id)
}

func (r Rules) alternativeGroup(id uuid.UUID) (string, bool) {
	if r.AlternativeGroup == nil {
		return "", false
	}
	return r.AlternativeGroup(id)
}
