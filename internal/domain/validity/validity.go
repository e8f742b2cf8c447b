// Package validity derives the regulatory competency window and deadlines of
// an integrated care offer request from the date its first procedure was
// performed. All computation is pure; persistence of the derived fields is the
// caller's responsibility.
package validity

import (
	"fmt"
	"time"

	"github.com/ocisus/oci/internal/platform/calendar"
)

// Category is the regulatory class of an integrated care offer. It selects
// the deadline formulas and alert thresholds that apply.
type Category string

const (
	CategoryGeneral     Category = "general"
	CategoryOncological Category = "oncological"
)

// ValidCategory reports whether c is a known offer category.
func ValidCategory(c Category) bool {
	return c == CategoryGeneral || c == CategoryOncological
}

// oncologicalRegistrationDays is the statutory window, counted from the first
// performed procedure, within which an oncological offer must be registered.
const oncologicalRegistrationDays = 30

// Result holds the derived deadline fields of a request.
type Result struct {
	StartCompetency      calendar.Competency `json:"start_competency"`
	EndCompetency        calendar.Competency `json:"end_competency"`
	RegistrationDeadline time.Time           `json:"registration_deadline"`
	PresentationDeadline time.Time           `json:"presentation_deadline"`
}

// DefaultEndCompetency returns the end competency that applies when the
// caller has no grounds for the oncological same-month fast path: the first
// execution's own month for general offers, the following month for
// oncological ones.
func DefaultEndCompetency(category Category, firstExecution time.Time) calendar.Competency {
	start := calendar.CompetencyOf(firstExecution)
	if category == CategoryOncological {
		return start.Next()
	}
	return start
}

// Compute derives the competency window and deadlines for a request whose
// first procedure was performed on firstExecution.
//
// endCompetency selects the applicable window for oncological offers: either
// the start competency (same-month fast path, when a procedure was also
// performed before month-end) or the following month. Pass zero to use the
// default. General offers are always single-competency; a non-default
// endCompetency for a general offer is rejected.
//
// The registration deadline is the last calendar day of the end competency;
// for oncological offers it is capped at thirty days after the first
// execution. The presentation deadline is the 5th business day of the month
// after the end competency.
func Compute(category Category, firstExecution time.Time, endCompetency calendar.Competency) (Result, error) {
	if !ValidCategory(category) {
		return Result{}, fmt.Errorf("invalid offer category: %q", category)
	}
	if firstExecution.IsZero() {
		return Result{}, fmt.Errorf("first execution date is required")
	}

	first := calendar.DateOnly(firstExecution)
	start := calendar.CompetencyOf(first)

	end := endCompetency
	if end == 0 {
		end = DefaultEndCompetency(category, first)
	}
	switch category {
	case CategoryGeneral:
		if end != start {
			return Result{}, fmt.Errorf("general offers are single-competency: end competency %s does not match %s", end, start)
		}
	case CategoryOncological:
		if end != start && end != start.Next() {
			return Result{}, fmt.Errorf("oncological end competency %s must be %s or %s", end, start, start.Next())
		}
	}

	registration := end.LastDay()
	if category == CategoryOncological {
		registration = calendar.MinDate(calendar.AddDays(first, oncologicalRegistrationDays), registration)
	}

	next := end.Next()
	presentation := calendar.NthBusinessDay(next.Year(), next.Month(), 5)

	return Result{
		StartCompetency:      start,
		EndCompetency:        end,
		RegistrationDeadline: registration,
		PresentationDeadline: presentation,
	}, nil
}
