// Package carerequest manages integrated care offer requests: the aggregate
// that owns a patient's procedure executions and the regulatory deadline
// fields derived from them. The deadline and lifecycle engines themselves are
// pure; this package loads state, drives them and persists the outcome.
package carerequest

import (
	"time"

	"github.com/google/uuid"

	"github.com/ocisus/oci/internal/domain/execution"
	"github.com/ocisus/oci/internal/domain/validity"
	"github.com/ocisus/oci/internal/platform/calendar"
)

// Status is the lifecycle state of a care request.
type Status string

const (
	StatusOpen      Status = "open"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

var validStatuses = map[Status]bool{
	StatusOpen:      true,
	StatusCompleted: true,
	StatusCancelled: true,
}

// Request is one patient's instance of a care offer. The category is copied
// from the offer at opening time so later catalog edits cannot shift the
// deadline formulas of requests already in flight.
//
// The competency and deadline fields are derived: they are nil until the
// first procedure is performed and are recomputed, never hand-edited, on
// every perform or revert.
type Request struct {
	ID                   uuid.UUID            `db:"id" json:"id"`
	PatientID            uuid.UUID            `db:"patient_id" json:"patient_id"`
	OfferID              uuid.UUID            `db:"offer_id" json:"offer_id"`
	Category             validity.Category    `db:"category" json:"category"`
	Status               Status               `db:"status" json:"status"`
	AuthorizationNumber  *string              `db:"authorization_number" json:"authorization_number,omitempty"`
	FirstExecutionAt     *time.Time           `db:"first_execution_at" json:"first_execution_at,omitempty"`
	StartCompetency      *calendar.Competency `db:"start_competency" json:"start_competency,omitempty"`
	EndCompetency        *calendar.Competency `db:"end_competency" json:"end_competency,omitempty"`
	RegistrationDeadline *time.Time           `db:"registration_deadline" json:"registration_deadline,omitempty"`
	PresentationDeadline *time.Time           `db:"presentation_deadline" json:"presentation_deadline,omitempty"`
	CreatedAt            time.Time            `db:"created_at" json:"created_at"`
	UpdatedAt            time.Time            `db:"updated_at" json:"updated_at"`
}

// ExecutionView is an execution as presented to users: the stored record plus
// the read-time projections.
type ExecutionView struct {
	execution.Execution
	DisplayStatus  execution.Status `json:"display_status"`
	AwaitingResult bool             `json:"awaiting_result"`
}

// Detail is a request together with its executions.
type Detail struct {
	Request    *Request        `json:"request"`
	Executions []ExecutionView `json:"executions"`
}
