// Package alert derives urgency tiers for the regulatory deadlines of care
// requests and serves the dashboard built from them. Classification is a pure
// function of days remaining, offer category and alert kind; all date
// arithmetic happens in the callers.
package alert

import (
	"time"

	"github.com/google/uuid"

	"github.com/ocisus/oci/internal/domain/validity"
)

// Kind identifies what a deadline alert is about.
type Kind string

const (
	// KindRegistrationDeadline tracks the last date to register procedure
	// completion against the competency.
	KindRegistrationDeadline Kind = "registration-deadline"
	// KindPendingResult tracks anatomo-pathological executions whose result is
	// still outstanding against the registration deadline.
	KindPendingResult Kind = "pending-result"
)

// Severity is the urgency tier of an alert.
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// Record is one computed alert. Records are ephemeral: they are derived from
// current deadlines at read time and never stored.
type Record struct {
	SubjectID     uuid.UUID         `json:"subject_id"`
	Kind          Kind              `json:"kind"`
	Category      validity.Category `json:"category"`
	DeadlineDate  time.Time         `json:"deadline_date"`
	DaysRemaining int               `json:"days_remaining"`
	Severity      Severity          `json:"severity"`
}

// Thresholds are the per-kind day limits for the warning and critical tiers.
// Days remaining thresholds are inclusive.
type Thresholds struct {
	RegistrationCritical            int
	RegistrationWarning             int
	PendingResultWarningGeneral     int
	PendingResultWarningOncological int
}

// DefaultThresholds returns the regulatory defaults.
func DefaultThresholds() Thresholds {
	return Thresholds{
		RegistrationCritical:            3,
		RegistrationWarning:             10,
		PendingResultWarningGeneral:     10,
		PendingResultWarningOncological: 5,
	}
}

// Classify assigns a severity tier with the given thresholds. Negative
// daysRemaining means the deadline is overdue and is always critical.
func (t Thresholds) Classify(daysRemaining int, category validity.Category, kind Kind) Severity {
	if daysRemaining < 0 {
		return SeverityCritical
	}
	switch kind {
	case KindRegistrationDeadline:
		if daysRemaining <= t.RegistrationCritical {
			return SeverityCritical
		}
		if daysRemaining <= t.RegistrationWarning {
			return SeverityWarning
		}
	case KindPendingResult:
		warning := t.PendingResultWarningGeneral
		if category == validity.CategoryOncological {
			warning = t.PendingResultWarningOncological
		}
		if daysRemaining <= warning {
			return SeverityWarning
		}
	}
	return SeverityInfo
}

// Classify assigns a severity tier with the default thresholds.
func Classify(daysRemaining int, category validity.Category, kind Kind) Severity {
	return DefaultThresholds().Classify(daysRemaining, category, kind)
}
