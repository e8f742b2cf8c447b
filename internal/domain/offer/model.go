// Package offer manages the catalog of integrated care offers and the
// procedure definitions that compose them. The catalog is read-only to the
// execution engine: classification flags declared here feed the engine's
// injected rule predicates.
package offer

import (
	"time"

	"github.com/google/uuid"

	"github.com/ocisus/oci/internal/domain/execution"
	"github.com/ocisus/oci/internal/domain/validity"
)

// Offer maps to the care_offer table. An offer is a bundled set of mandatory
// and optional procedures a patient is entitled to under one authorization.
type Offer struct {
	ID              uuid.UUID         `db:"id" json:"id"`
	Code            string            `db:"code" json:"code"`
	Name            string            `db:"name" json:"name"`
	Category        validity.Category `db:"category" json:"category"`
	MaxDurationDays *int              `db:"max_duration_days" json:"max_duration_days,omitempty"`
	CreatedAt       time.Time         `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time         `db:"updated_at" json:"updated_at"`
}

// Procedure classifications. Declared catalog data, not inferred from names:
// the gate and mutual-exclusion rules of the execution engine key off these.
const (
	ClassSpecializedConsultation = "specialized-consultation"
	ClassTeleconsultation        = "teleconsultation"
)

// ProcedureDefinition maps to the procedure_definition table.
type ProcedureDefinition struct {
	ID                  uuid.UUID `db:"id" json:"id"`
	OfferID             uuid.UUID `db:"offer_id" json:"offer_id"`
	Code                string    `db:"code" json:"code"`
	Name                string    `db:"name" json:"name"`
	Kind                string    `db:"kind" json:"kind"`
	Classification      *string   `db:"classification" json:"classification,omitempty"`
	Position            int       `db:"position" json:"position"`
	Mandatory           bool      `db:"mandatory" json:"mandatory"`
	AnatomoPathological bool      `db:"anatomo_pathological" json:"anatomo_pathological"`
	AlternativeGroup    *string   `db:"alternative_group" json:"alternative_group,omitempty"`
	ExternalCode        *string   `db:"external_code" json:"external_code,omitempty"`
	CreatedAt           time.Time `db:"created_at" json:"created_at"`
	UpdatedAt           time.Time `db:"updated_at" json:"updated_at"`
}

// IsGatekeeper reports whether the procedure is the consultation class that
// must be performed before the rest of the bundle.
func (d *ProcedureDefinition) IsGatekeeper() bool {
	if d.Classification == nil {
		return false
	}
	return *d.Classification == ClassSpecializedConsultation || *d.Classification == ClassTeleconsultation
}

// RulesFromDefinitions builds the execution engine's classification rules
// from a request's procedure definitions.
func RulesFromDefinitions(defs []*ProcedureDefinition) execution.Rules {
	byID := make(map[uuid.UUID]*ProcedureDefinition, len(defs))
	for _, d := range defs {
		byID[d.ID] = d
	}
	return execution.Rules{
		Gatekeeper: func(id uuid.UUID) bool {
			d, ok := byID[id]
			return ok && d.IsGatekeeper()
		},
		RequiresPathology: func(id uuid.UUID) bool {
			d, ok := byID[id]
			return ok && d.AnatomoPathological
		},
		AlternativeGroup: func(id uuid.UUID) (string, bool) {
			d, ok := byID[id]
			if !ok || d.AlternativeGroup == nil {
				return "", false
			}
			return *d.AlternativeGroup, true
		},
	}
}
