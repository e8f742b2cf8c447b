package carerequest

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/ocisus/oci/internal/domain/alert"
	"github.com/ocisus/oci/internal/domain/execution"
	"github.com/ocisus/oci/internal/domain/offer"
	"github.com/ocisus/oci/internal/domain/validity"
	"github.com/ocisus/oci/internal/platform/calendar"
)

// Catalog supplies the offer and procedure definitions a request is built
// from. The offer service implements it.
type Catalog interface {
	GetOffer(ctx context.Context, id uuid.UUID) (*offer.Offer, error)
	ListProcedures(ctx context.Context, offerID uuid.UUID) ([]*offer.ProcedureDefinition, error)
}

// Invalidator drops derived read models after a mutation. The alert service
// implements it.
type Invalidator interface {
	Invalidate(ctx context.Context) error
}

// Service coordinates care requests: it loads aggregate state, drives the
// execution machine and the deadline computation, and persists the outcome.
type Service struct {
	requests   RequestRepository
	executions ExecutionRepository
	catalog    Catalog
	alerts     Invalidator
	now        func() time.Time
	logger     zerolog.Logger
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithAlertInvalidation wires the alert cache invalidation hook; it is called
// after every mutation that can change the dashboard.
func WithAlertInvalidation(inv Invalidator) ServiceOption {
	return func(s *Service) { s.alerts = inv }
}

// WithClock pins "today" for deterministic tests.
func WithClock(now func() time.Time) ServiceOption {
	return func(s *Service) { s.now = now }
}

// NewService creates a care request Service.
func NewService(requests RequestRepository, executions ExecutionRepository, catalog Catalog, logger zerolog.Logger, opts ...ServiceOption) *Service {
	s := &Service{
		requests:   requests,
		executions: executions,
		catalog:    catalog,
		now:        calendar.Today,
		logger:     logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Open creates a request for a patient against an offer and instantiates one
// pending execution per procedure definition of that offer. The offer's
// category is copied onto the request at this moment.
func (s *Service) Open(ctx context.Context, r *Request) (*Detail, error) {
	if r.PatientID == uuid.Nil {
		return nil, fmt.Errorf("patient_id is required")
	}
	if r.OfferID == uuid.Nil {
		return nil, fmt.Errorf("offer_id is required")
	}

	off, err := s.catalog.GetOffer(ctx, r.OfferID)
	if err != nil {
		return nil, fmt.Errorf("load offer: %w", err)
	}
	defs, err := s.catalog.ListProcedures(ctx, r.OfferID)
	if err != nil {
		return nil, fmt.Errorf("load procedure definitions: %w", err)
	}
	if len(defs) == 0 {
		return nil, fmt.Errorf("offer %s has no procedure definitions", off.Code)
	}

	r.Category = off.Category
	r.Status = StatusOpen
	if err := s.requests.Create(ctx, r); err != nil {
		return nil, err
	}

	execs := make([]*execution.Execution, 0, len(defs))
	for _, d := range defs {
		execs = append(execs, &execution.Execution{
			ID:          uuid.New(),
			RequestID:   r.ID,
			ProcedureID: d.ID,
			Status:      execution.StatusPending,
		})
	}
	if err := s.executions.CreateBatch(ctx, execs); err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("request_id", r.ID.String()).
		Str("offer", off.Code).
		Int("executions", len(execs)).
		Msg("care request opened")

	return s.detail(r, execs, offer.RulesFromDefinitions(defs)), nil
}

// Get returns a request with its executions and their display projections.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Detail, error) {
	r, err := s.requests.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	execs, rules, err := s.loadExecutions(ctx, r)
	if err != nil {
		return nil, err
	}
	return s.detail(r, execs, rules), nil
}

// List returns a page of requests, optionally narrowed to one status.
func (s *Service) List(ctx context.Context, status Status, limit, offset int) ([]*Request, int, error) {
	if status != "" && !validStatuses[status] {
		return nil, 0, &execution.ValidationError{Field: "status", Reason: fmt.Sprintf("unknown status %q", status)}
	}
	return s.requests.List(ctx, status, limit, offset)
}

// Schedule books one execution into a slot.
func (s *Service) Schedule(ctx context.Context, executionID uuid.UUID, when time.Time, unitID, professionalID *uuid.UUID) (*execution.Execution, error) {
	e, m, _, err := s.loadExecution(ctx, executionID)
	if err != nil {
		return nil, err
	}
	if err := m.Schedule(e, when, unitID, professionalID); err != nil {
		return nil, err
	}
	if err := s.executions.Update(ctx, e); err != nil {
		return nil, err
	}
	return e, nil
}

// ScheduleBatch books the selected executions of one request into a single
// slot at a single unit, in the order the caller selected them. Items are
// applied best effort after the batch-level preconditions pass; only the
// successfully transitioned executions are persisted.
func (s *Service) ScheduleBatch(ctx context.Context, requestID uuid.UUID, executionIDs []uuid.UUID, when time.Time, unitID uuid.UUID, professionalID *uuid.UUID) (execution.BatchResult, error) {
	return s.applyBatch(ctx, requestID, executionIDs, func(m *execution.Machine, items []*execution.Execution) (execution.BatchResult, error) {
		return m.ScheduleBatch(items, when, unitID, professionalID)
	})
}

// RescheduleBatch is the reduced-input batch scheduler for callers bound to a
// single executing unit: the selection carries no unit, the caller's fixed
// unit is substituted for every item. Otherwise identical to ScheduleBatch.
func (s *Service) RescheduleBatch(ctx context.Context, requestID uuid.UUID, executionIDs []uuid.UUID, when time.Time, fixedUnitID uuid.UUID, professionalID *uuid.UUID) (execution.BatchResult, error) {
	return s.applyBatch(ctx, requestID, executionIDs, func(m *execution.Machine, items []*execution.Execution) (execution.BatchResult, error) {
		return m.RescheduleBatch(items, when, fixedUnitID, professionalID)
	})
}

// applyBatch resolves the selected executions of one request, runs the given
// batch transition over them and persists only the items that succeeded.
func (s *Service) applyBatch(ctx context.Context, requestID uuid.UUID, executionIDs []uuid.UUID, apply func(*execution.Machine, []*execution.Execution) (execution.BatchResult, error)) (execution.BatchResult, error) {
	r, err := s.requests.GetByID(ctx, requestID)
	if err != nil {
		return execution.BatchResult{}, err
	}
	execs, rules, err := s.loadExecutions(ctx, r)
	if err != nil {
		return execution.BatchResult{}, err
	}

	byID := make(map[uuid.UUID]*execution.Execution, len(execs))
	for _, e := range execs {
		byID[e.ID] = e
	}
	items := make([]*execution.Execution, 0, len(executionIDs))
	for _, id := range executionIDs {
		e, ok := byID[id]
		if !ok {
			return execution.BatchResult{}, fmt.Errorf("execution %s does not belong to request %s", id, requestID)
		}
		items = append(items, e)
	}

	result, err := apply(s.machine(rules), items)
	if err != nil {
		return execution.BatchResult{}, err
	}
	for _, id := range result.Succeeded {
		if err := s.executions.Update(ctx, byID[id]); err != nil {
			return result, err
		}
	}
	return result, nil
}

// MarkPerformed records that an execution happened and recomputes the
// request's deadline fields. For oncological offers endCompetency selects the
// competency window (zero keeps the current choice or the default); general
// offers reject any explicit choice other than the start competency.
func (s *Service) MarkPerformed(ctx context.Context, executionID uuid.UUID, performedAt time.Time, unitID, professionalID *uuid.UUID, endCompetency calendar.Competency) (*execution.Execution, error) {
	e, m, r, err := s.loadExecution(ctx, executionID)
	if err != nil {
		return nil, err
	}
	siblings, err := s.executions.ListByRequest(ctx, e.RequestID)
	if err != nil {
		return nil, err
	}
	for i, sib := range siblings {
		if sib.ID == e.ID {
			siblings[i] = e
		}
	}
	if endCompetency != 0 {
		// An explicit window choice must be valid against what will be the
		// request's earliest execution before anything is applied.
		first := performedAt
		for _, sib := range siblings {
			if sib.ID != e.ID && sib.Status == execution.StatusPerformed && sib.PerformedAt != nil && sib.PerformedAt.Before(first) {
				first = *sib.PerformedAt
			}
		}
		if _, err := validity.Compute(r.Category, first, endCompetency); err != nil {
			return nil, err
		}
	}

	if err := m.MarkPerformed(e, siblings, performedAt, unitID, professionalID); err != nil {
		return nil, err
	}
	if endCompetency != 0 {
		r.EndCompetency = &endCompetency
	}
	if err := s.executions.Update(ctx, e); err != nil {
		return nil, err
	}
	if err := s.recomputeDeadlines(ctx, r, siblings); err != nil {
		return nil, err
	}
	s.invalidateAlerts(ctx)
	return e, nil
}

// RecordCollection registers the anatomo-pathological material collection.
func (s *Service) RecordCollection(ctx context.Context, executionID uuid.UUID, collectedAt time.Time) (*execution.Execution, error) {
	e, m, _, err := s.loadExecution(ctx, executionID)
	if err != nil {
		return nil, err
	}
	if err := m.RecordCollection(e, collectedAt); err != nil {
		return nil, err
	}
	if err := s.executions.Update(ctx, e); err != nil {
		return nil, err
	}
	s.invalidateAlerts(ctx)
	return e, nil
}

// RecordResult registers the anatomo-pathological result.
func (s *Service) RecordResult(ctx context.Context, executionID uuid.UUID, resultAt time.Time) (*execution.Execution, error) {
	e, m, _, err := s.loadExecution(ctx, executionID)
	if err != nil {
		return nil, err
	}
	if err := m.RecordResult(e, resultAt); err != nil {
		return nil, err
	}
	if err := s.executions.Update(ctx, e); err != nil {
		return nil, err
	}
	s.invalidateAlerts(ctx)
	return e, nil
}

// CancelExecution cancels a single pending or scheduled execution.
func (s *Service) CancelExecution(ctx context.Context, executionID uuid.UUID, justification string) (*execution.Execution, error) {
	e, m, _, err := s.loadExecution(ctx, executionID)
	if err != nil {
		return nil, err
	}
	if err := m.Cancel(e, justification); err != nil {
		return nil, err
	}
	if err := s.executions.Update(ctx, e); err != nil {
		return nil, err
	}
	s.logger.Info().
		Str("execution_id", e.ID.String()).
		Str("justification", justification).
		Msg("execution cancelled")
	return e, nil
}

// RevertToPending undoes a performed execution and recomputes the request's
// deadline fields from the executions still performed. When none remain the
// derived fields are cleared.
func (s *Service) RevertToPending(ctx context.Context, executionID uuid.UUID, justification string) (*execution.Execution, error) {
	e, m, r, err := s.loadExecution(ctx, executionID)
	if err != nil {
		return nil, err
	}
	if err := m.RevertToPending(e, justification); err != nil {
		return nil, err
	}
	if err := s.executions.Update(ctx, e); err != nil {
		return nil, err
	}

	siblings, err := s.executions.ListByRequest(ctx, e.RequestID)
	if err != nil {
		return nil, err
	}
	if err := s.recomputeDeadlines(ctx, r, siblings); err != nil {
		return nil, err
	}
	s.logger.Info().
		Str("execution_id", e.ID.String()).
		Str("justification", justification).
		Msg("execution reverted to pending")
	s.invalidateAlerts(ctx)
	return e, nil
}

// CancelRequest cancels an open request and all of its pending or scheduled
// executions. A request with any performed execution cannot be cancelled:
// performed work must be reverted first.
func (s *Service) CancelRequest(ctx context.Context, requestID uuid.UUID, justification string) (*Request, error) {
	if justification == "" {
		return nil, fmt.Errorf("a justification is required to cancel")
	}
	r, err := s.requests.GetByID(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if r.Status != StatusOpen {
		return nil, fmt.Errorf("request is %s and cannot be cancelled", r.Status)
	}
	execs, rules, err := s.loadExecutions(ctx, r)
	if err != nil {
		return nil, err
	}
	for _, e := range execs {
		if e.Status == execution.StatusPerformed {
			return nil, fmt.Errorf("request has performed executions and cannot be cancelled")
		}
	}

	m := s.machine(rules)
	for _, e := range execs {
		if e.Status == execution.StatusCancelled {
			continue
		}
		if err := m.Cancel(e, justification); err != nil {
			return nil, err
		}
		if err := s.executions.Update(ctx, e); err != nil {
			return nil, err
		}
	}

	r.Status = StatusCancelled
	if err := s.requests.Update(ctx, r); err != nil {
		return nil, err
	}
	s.logger.Info().
		Str("request_id", r.ID.String()).
		Str("justification", justification).
		Msg("care request cancelled")
	s.invalidateAlerts(ctx)
	return r, nil
}

// ListOpenDeadlines supplies the alert dashboard: one registration-deadline
// entry per open request with derived deadlines, plus one pending-result
// entry per execution still awaiting its anatomo-pathological result, due at
// the same registration deadline.
func (s *Service) ListOpenDeadlines(ctx context.Context) ([]alert.Deadline, error) {
	reqs, err := s.requests.ListOpenWithDeadline(ctx)
	if err != nil {
		return nil, err
	}

	var deadlines []alert.Deadline
	for _, r := range reqs {
		if r.RegistrationDeadline == nil {
			continue
		}
		deadlines = append(deadlines, alert.Deadline{
			SubjectID: r.ID,
			Category:  r.Category,
			Kind:      alert.KindRegistrationDeadline,
			Due:       *r.RegistrationDeadline,
		})

		execs, rules, err := s.loadExecutions(ctx, r)
		if err != nil {
			return nil, err
		}
		m := s.machine(rules)
		for _, e := range execs {
			if m.AwaitingResult(e) {
				deadlines = append(deadlines, alert.Deadline{
					SubjectID: e.ID,
					Category:  r.Category,
					Kind:      alert.KindPendingResult,
					Due:       *r.RegistrationDeadline,
				})
			}
		}
	}
	return deadlines, nil
}

// -- internals --

func (s *Service) machine(rules execution.Rules) *execution.Machine {
	return execution.NewMachine(rules, execution.WithClock(s.now))
}

func (s *Service) loadExecutions(ctx context.Context, r *Request) ([]*execution.Execution, execution.Rules, error) {
	execs, err := s.executions.ListByRequest(ctx, r.ID)
	if err != nil {
		return nil, execution.Rules{}, err
	}
	defs, err := s.catalog.ListProcedures(ctx, r.OfferID)
	if err != nil {
		return nil, execution.Rules{}, err
	}
	return execs, offer.RulesFromDefinitions(defs), nil
}

func (s *Service) loadExecution(ctx context.Context, executionID uuid.UUID) (*execution.Execution, *execution.Machine, *Request, error) {
	e, err := s.executions.GetByID(ctx, executionID)
	if err != nil {
		return nil, nil, nil, err
	}
	r, err := s.requests.GetByID(ctx, e.RequestID)
	if err != nil {
		return nil, nil, nil, err
	}
	defs, err := s.catalog.ListProcedures(ctx, r.OfferID)
	if err != nil {
		return nil, nil, nil, err
	}
	return e, s.machine(offer.RulesFromDefinitions(defs)), r, nil
}

func (s *Service) detail(r *Request, execs []*execution.Execution, rules execution.Rules) *Detail {
	m := s.machine(rules)
	views := make([]ExecutionView, 0, len(execs))
	for _, e := range execs {
		views = append(views, ExecutionView{
			Execution:      *e,
			DisplayStatus:  m.DisplayStatus(e, execs),
			AwaitingResult: m.AwaitingResult(e),
		})
	}
	return &Detail{Request: r, Executions: views}
}

// recomputeDeadlines rederives the competency window and deadlines from the
// earliest performed execution. It is idempotent: running it twice over the
// same state produces the same fields. When no execution remains performed
// the derived fields are cleared.
func (s *Service) recomputeDeadlines(ctx context.Context, r *Request, execs []*execution.Execution) error {
	var earliest *time.Time
	for _, e := range execs {
		if e.Status != execution.StatusPerformed || e.PerformedAt == nil {
			continue
		}
		if earliest == nil || e.PerformedAt.Before(*earliest) {
			earliest = e.PerformedAt
		}
	}

	if earliest == nil {
		r.FirstExecutionAt = nil
		r.StartCompetency = nil
		r.EndCompetency = nil
		r.RegistrationDeadline = nil
		r.PresentationDeadline = nil
		return s.requests.Update(ctx, r)
	}

	end := calendar.Competency(0)
	if r.EndCompetency != nil {
		end = *r.EndCompetency
	}
	res, err := validity.Compute(r.Category, *earliest, end)
	if err != nil {
		// The stored window no longer fits the new first execution; fall back
		// to the default window for the category.
		res, err = validity.Compute(r.Category, *earliest, 0)
		if err != nil {
			return err
		}
	}

	r.FirstExecutionAt = earliest
	r.StartCompetency = &res.StartCompetency
	r.EndCompetency = &res.EndCompetency
	r.RegistrationDeadline = &res.RegistrationDeadline
	r.PresentationDeadline = &res.PresentationDeadline
	return s.requests.Update(ctx, r)
}

func (s *Service) invalidateAlerts(ctx context.Context) {
	if s.alerts == nil {
		return
	}
	if err := s.alerts.Invalidate(ctx); err != nil {
		s.logger.Warn().Err(err).Msg("alert cache invalidation failed")
	}
}
