package carerequest

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/ocisus/oci/internal/domain/alert"
	"github.com/ocisus/oci/internal/domain/execution"
	"github.com/ocisus/oci/internal/domain/offer"
	"github.com/ocisus/oci/internal/domain/validity"
	"github.com/ocisus/oci/internal/platform/calendar"
)

// -- Mock Repositories --

type mockRequestRepo struct {
	records map[uuid.UUID]*Request
}

func newMockRequestRepo() *mockRequestRepo {
	return &mockRequestRepo{records: make(map[uuid.UUID]*Request)}
}

func (m *mockRequestRepo) Create(_ context.Context, r *Request) error {
	r.ID = uuid.New()
	m.records[r.ID] = r
	return nil
}

func (m *mockRequestRepo) GetByID(_ context.Context, id uuid.UUID) (*Request, error) {
	r, ok := m.records[id]
	if !ok {
		return nil, fmt.Errorf("not found")
	}
	return r, nil
}

func (m *mockRequestRepo) Update(_ context.Context, r *Request) error {
	m.records[r.ID] = r
	return nil
}

func (m *mockRequestRepo) List(_ context.Context, status Status, limit, offset int) ([]*Request, int, error) {
	var result []*Request
	for _, r := range m.records {
		if status != "" && r.Status != status {
			continue
		}
		result = append(result, r)
	}
	return result, len(result), nil
}

func (m *mockRequestRepo) ListOpenWithDeadline(_ context.Context) ([]*Request, error) {
	var result []*Request
	for _, r := range m.records {
		if r.Status == StatusOpen && r.RegistrationDeadline != nil {
			result = append(result, r)
		}
	}
	return result, nil
}

type mockExecutionRepo struct {
	ordered []*execution.Execution
	updates int
}

func newMockExecutionRepo() *mockExecutionRepo {
	return &mockExecutionRepo{}
}

func (m *mockExecutionRepo) CreateBatch(_ context.Context, execs []*execution.Execution) error {
	m.ordered = append(m.ordered, execs...)
	return nil
}

func (m *mockExecutionRepo) GetByID(_ context.Context, id uuid.UUID) (*execution.Execution, error) {
	for _, e := range m.ordered {
		if e.ID == id {
			return e, nil
		}
	}
	return nil, fmt.Errorf("not found")
}

func (m *mockExecutionRepo) Update(_ context.Context, e *execution.Execution) error {
	m.updates++
	for i, existing := range m.ordered {
		if existing.ID == e.ID {
			m.ordered[i] = e
			return nil
		}
	}
	return fmt.Errorf("not found")
}

func (m *mockExecutionRepo) ListByRequest(_ context.Context, requestID uuid.UUID) ([]*execution.Execution, error) {
	var result []*execution.Execution
	for _, e := range m.ordered {
		if e.RequestID == requestID {
			result = append(result, e)
		}
	}
	return result, nil
}

type mockCatalog struct {
	offers map[uuid.UUID]*offer.Offer
	defs   map[uuid.UUID][]*offer.ProcedureDefinition
}

func newMockCatalog() *mockCatalog {
	return &mockCatalog{
		offers: make(map[uuid.UUID]*offer.Offer),
		defs:   make(map[uuid.UUID][]*offer.ProcedureDefinition),
	}
}

func (m *mockCatalog) GetOffer(_ context.Context, id uuid.UUID) (*offer.Offer, error) {
	o, ok := m.offers[id]
	if !ok {
		return nil, fmt.Errorf("not found")
	}
	return o, nil
}

func (m *mockCatalog) ListProcedures(_ context.Context, offerID uuid.UUID) ([]*offer.ProcedureDefinition, error) {
	return m.defs[offerID], nil
}

type mockInvalidator struct{ calls int }

func (m *mockInvalidator) Invalidate(context.Context) error {
	m.calls++
	return nil
}

// -- Fixture --

// The clock is pinned to 2025-03-20 for every test.
var testNow = time.Date(2025, time.March, 20, 10, 0, 0, 0, time.UTC)

func day(d time.Time) time.Time { return calendar.DateOnly(d) }

type fixture struct {
	svc      *Service
	requests *mockRequestRepo
	execs    *mockExecutionRepo
	catalog  *mockCatalog
	inv      *mockInvalidator
	offerID  uuid.UUID
	consult  uuid.UUID // specialized consultation (gatekeeper)
	tele     uuid.UUID // teleconsultation, alternative to consult
	biopsy   uuid.UUID // anatomo-pathological
	exam     uuid.UUID // plain exam
}

func newFixture(t *testing.T, category validity.Category) *fixture {
	t.Helper()

	f := &fixture{
		requests: newMockRequestRepo(),
		execs:    newMockExecutionRepo(),
		catalog:  newMockCatalog(),
		inv:      &mockInvalidator{},
		offerID:  uuid.New(),
	}

	group := "specialized-consultation"
	specialized := offer.ClassSpecializedConsultation
	tele := offer.ClassTeleconsultation
	defs := []*offer.ProcedureDefinition{
		{ID: uuid.New(), OfferID: f.offerID, Code: "0301010072", Name: "Specialized consultation", Classification: &specialized, AlternativeGroup: &group, Position: 1},
		{ID: uuid.New(), OfferID: f.offerID, Code: "0301010080", Name: "Teleconsultation", Classification: &tele, AlternativeGroup: &group, Position: 2},
		{ID: uuid.New(), OfferID: f.offerID, Code: "0201010585", Name: "Prostate biopsy", AnatomoPathological: true, Position: 3},
		{ID: uuid.New(), OfferID: f.offerID, Code: "0205020097", Name: "Ultrasound", Position: 4},
	}
	f.consult, f.tele, f.biopsy, f.exam = defs[0].ID, defs[1].ID, defs[2].ID, defs[3].ID

	f.catalog.offers[f.offerID] = &offer.Offer{ID: f.offerID, Code: "OCI-001", Name: "Diagnostic bundle", Category: category}
	f.catalog.defs[f.offerID] = defs

	f.svc = NewService(f.requests, f.execs, f.catalog, zerolog.Nop(),
		WithClock(func() time.Time { return testNow }),
		WithAlertInvalidation(f.inv),
	)
	return f
}

func (f *fixture) open(t *testing.T) *Detail {
	t.Helper()
	detail, err := f.svc.Open(context.Background(), &Request{PatientID: uuid.New(), OfferID: f.offerID})
	if err != nil {
		t.Fatalf("open request: %v", err)
	}
	return detail
}

// executionFor returns the opened request's execution for a procedure.
func (f *fixture) executionFor(t *testing.T, d *Detail, procID uuid.UUID) uuid.UUID {
	t.Helper()
	for _, v := range d.Executions {
		if v.ProcedureID == procID {
			return v.ID
		}
	}
	t.Fatalf("no execution for procedure %s", procID)
	return uuid.Nil
}

// performConsult marks the specialized consultation performed so the
// prerequisite guard is satisfied for later transitions.
func (f *fixture) performConsult(t *testing.T, d *Detail, performedAt time.Time) {
	t.Helper()
	prof := uuid.New()
	if _, err := f.svc.MarkPerformed(context.Background(), f.executionFor(t, d, f.consult), performedAt, nil, &prof, 0); err != nil {
		t.Fatalf("perform consultation: %v", err)
	}
}

// -- Open --

func TestOpen_InstantiatesAllExecutions(t *testing.T) {
	f := newFixture(t, validity.CategoryGeneral)
	d := f.open(t)

	if len(d.Executions) != 4 {
		t.Fatalf("expected 4 executions, got %d", len(d.Executions))
	}
	for _, v := range d.Executions {
		if v.Status != execution.StatusPending {
			t.Errorf("expected pending, got %s", v.Status)
		}
	}
	if d.Request.Category != validity.CategoryGeneral {
		t.Errorf("expected category copied from offer, got %s", d.Request.Category)
	}
	if d.Request.Status != StatusOpen {
		t.Errorf("expected open, got %s", d.Request.Status)
	}
	if d.Request.RegistrationDeadline != nil {
		t.Error("expected no deadline before the first performed procedure")
	}
}

func TestOpen_CategorySurvivesCatalogEdit(t *testing.T) {
	f := newFixture(t, validity.CategoryOncological)
	d := f.open(t)

	// Editing the catalog afterwards must not shift the opened request.
	f.catalog.offers[f.offerID].Category = validity.CategoryGeneral

	got, err := f.svc.Get(context.Background(), d.Request.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Request.Category != validity.CategoryOncological {
		t.Errorf("expected oncological, got %s", got.Request.Category)
	}
}

func TestOpen_RejectsOfferWithoutProcedures(t *testing.T) {
	f := newFixture(t, validity.CategoryGeneral)
	empty := uuid.New()
	f.catalog.offers[empty] = &offer.Offer{ID: empty, Code: "OCI-EMPTY", Name: "Empty", Category: validity.CategoryGeneral}

	if _, err := f.svc.Open(context.Background(), &Request{PatientID: uuid.New(), OfferID: empty}); err == nil {
		t.Error("expected error for offer without procedure definitions")
	}
}

// -- Deadline derivation --

func TestMarkPerformed_DerivesGeneralDeadlines(t *testing.T) {
	f := newFixture(t, validity.CategoryGeneral)
	d := f.open(t)

	f.performConsult(t, d, time.Date(2025, time.March, 17, 0, 0, 0, 0, time.UTC))

	r, _ := f.requests.GetByID(context.Background(), d.Request.ID)
	if r.StartCompetency == nil || *r.StartCompetency != 202503 {
		t.Fatalf("expected start competency 202503, got %v", r.StartCompetency)
	}
	if *r.EndCompetency != 202503 {
		t.Errorf("expected end competency 202503, got %v", *r.EndCompetency)
	}
	wantReg := time.Date(2025, time.March, 31, 0, 0, 0, 0, time.UTC)
	if !r.RegistrationDeadline.Equal(wantReg) {
		t.Errorf("expected registration deadline %v, got %v", wantReg, r.RegistrationDeadline)
	}
	wantPres := time.Date(2025, time.April, 7, 0, 0, 0, 0, time.UTC)
	if !r.PresentationDeadline.Equal(wantPres) {
		t.Errorf("expected presentation deadline %v, got %v", wantPres, r.PresentationDeadline)
	}
	if f.inv.calls == 0 {
		t.Error("expected the alert cache to be invalidated")
	}
}

func TestMarkPerformed_OncologicalWindowChoice(t *testing.T) {
	f := newFixture(t, validity.CategoryOncological)
	d := f.open(t)

	prof := uuid.New()
	_, err := f.svc.MarkPerformed(context.Background(), f.executionFor(t, d, f.consult),
		time.Date(2025, time.March, 5, 0, 0, 0, 0, time.UTC), nil, &prof, 202504)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	r, _ := f.requests.GetByID(context.Background(), d.Request.ID)
	if *r.EndCompetency != 202504 {
		t.Errorf("expected end competency 202504, got %v", *r.EndCompetency)
	}
	// Thirty days after 2025-03-05 lands before the end of April, so the
	// statutory cap wins over the month end.
	wantReg := time.Date(2025, time.April, 4, 0, 0, 0, 0, time.UTC)
	if !r.RegistrationDeadline.Equal(wantReg) {
		t.Errorf("expected registration deadline %v, got %v", wantReg, r.RegistrationDeadline)
	}
	wantPres := time.Date(2025, time.May, 7, 0, 0, 0, 0, time.UTC)
	if !r.PresentationDeadline.Equal(wantPres) {
		t.Errorf("expected presentation deadline %v, got %v", wantPres, r.PresentationDeadline)
	}
}

func TestMarkPerformed_GeneralRejectsWindowChoice(t *testing.T) {
	f := newFixture(t, validity.CategoryGeneral)
	d := f.open(t)

	prof := uuid.New()
	_, err := f.svc.MarkPerformed(context.Background(), f.executionFor(t, d, f.consult),
		time.Date(2025, time.March, 17, 0, 0, 0, 0, time.UTC), nil, &prof, 202504)
	if err == nil {
		t.Fatal("expected error: general offers are single-competency")
	}
	r, _ := f.requests.GetByID(context.Background(), d.Request.ID)
	if r.RegistrationDeadline != nil {
		t.Error("expected no deadline persisted after a rejected window choice")
	}
}

func TestMarkPerformed_PrerequisiteGuardBlocksExam(t *testing.T) {
	f := newFixture(t, validity.CategoryGeneral)
	d := f.open(t)

	_, err := f.svc.MarkPerformed(context.Background(), f.executionFor(t, d, f.exam),
		day(testNow), nil, nil, 0)
	var gv *execution.GuardViolation
	if !errors.As(err, &gv) || gv.Guard != execution.GuardPrerequisite {
		t.Fatalf("expected prerequisite guard violation, got %v", err)
	}

	r, _ := f.requests.GetByID(context.Background(), d.Request.ID)
	if r.RegistrationDeadline != nil {
		t.Error("expected no deadline after a rejected transition")
	}
}

func TestMarkPerformed_EarliestExecutionWins(t *testing.T) {
	f := newFixture(t, validity.CategoryGeneral)
	d := f.open(t)

	f.performConsult(t, d, time.Date(2025, time.March, 17, 0, 0, 0, 0, time.UTC))

	// An exam backfilled with an earlier date within the month moves the
	// anchor back; deadlines are recomputed from the new earliest.
	_, err := f.svc.MarkPerformed(context.Background(), f.executionFor(t, d, f.exam),
		time.Date(2025, time.March, 10, 0, 0, 0, 0, time.UTC), nil, nil, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	r, _ := f.requests.GetByID(context.Background(), d.Request.ID)
	want := time.Date(2025, time.March, 10, 0, 0, 0, 0, time.UTC)
	if !r.FirstExecutionAt.Equal(want) {
		t.Errorf("expected first execution %v, got %v", want, r.FirstExecutionAt)
	}
}

// -- Revert --

func TestRevertToPending_ClearsDeadlinesWhenNonePerformed(t *testing.T) {
	f := newFixture(t, validity.CategoryGeneral)
	d := f.open(t)
	f.performConsult(t, d, time.Date(2025, time.March, 17, 0, 0, 0, 0, time.UTC))

	_, err := f.svc.RevertToPending(context.Background(), f.executionFor(t, d, f.consult), "wrong patient record")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	r, _ := f.requests.GetByID(context.Background(), d.Request.ID)
	if r.FirstExecutionAt != nil || r.StartCompetency != nil || r.RegistrationDeadline != nil || r.PresentationDeadline != nil {
		t.Error("expected derived fields cleared after the last performed execution was reverted")
	}
}

func TestRevertToPending_RecomputesFromRemaining(t *testing.T) {
	f := newFixture(t, validity.CategoryGeneral)
	d := f.open(t)
	f.performConsult(t, d, time.Date(2025, time.March, 10, 0, 0, 0, 0, time.UTC))

	if _, err := f.svc.MarkPerformed(context.Background(), f.executionFor(t, d, f.exam),
		time.Date(2025, time.March, 17, 0, 0, 0, 0, time.UTC), nil, nil, 0); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Reverting the earlier consultation re-anchors the window on the exam.
	if _, err := f.svc.RevertToPending(context.Background(), f.executionFor(t, d, f.consult), "registered in error"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	r, _ := f.requests.GetByID(context.Background(), d.Request.ID)
	want := time.Date(2025, time.March, 17, 0, 0, 0, 0, time.UTC)
	if r.FirstExecutionAt == nil || !r.FirstExecutionAt.Equal(want) {
		t.Errorf("expected first execution %v, got %v", want, r.FirstExecutionAt)
	}
}

// -- Batch scheduling --

func TestScheduleBatch_PersistsOnlySucceeded(t *testing.T) {
	f := newFixture(t, validity.CategoryGeneral)
	d := f.open(t)

	// Cancel the exam so the batch has one item that cannot transition.
	exam := f.executionFor(t, d, f.exam)
	if _, err := f.svc.CancelExecution(context.Background(), exam, "duplicate order"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	biopsy := f.executionFor(t, d, f.biopsy)
	result, err := f.svc.ScheduleBatch(context.Background(), d.Request.ID,
		[]uuid.UUID{biopsy, exam},
		time.Date(2025, time.April, 2, 0, 0, 0, 0, time.UTC), uuid.New(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(result.Succeeded) != 1 || result.Succeeded[0] != biopsy {
		t.Fatalf("expected only the biopsy to succeed, got %+v", result)
	}
	if len(result.Failed) != 1 || result.Failed[0].ID != exam {
		t.Fatalf("expected the cancelled exam to fail, got %+v", result)
	}

	stored, _ := f.execs.GetByID(context.Background(), biopsy)
	if stored.Status != execution.StatusScheduled {
		t.Errorf("expected biopsy scheduled, got %s", stored.Status)
	}
}

func TestScheduleBatch_GatekeeperNeedsProfessional(t *testing.T) {
	f := newFixture(t, validity.CategoryGeneral)
	d := f.open(t)

	tele := f.executionFor(t, d, f.tele)
	exam := f.executionFor(t, d, f.exam)
	_, err := f.svc.ScheduleBatch(context.Background(), d.Request.ID,
		[]uuid.UUID{tele, exam},
		time.Date(2025, time.April, 2, 0, 0, 0, 0, time.UTC), uuid.New(), nil)

	var ve *execution.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected validation error rejecting the whole batch, got %v", err)
	}
	stored, _ := f.execs.GetByID(context.Background(), exam)
	if stored.Status != execution.StatusPending {
		t.Errorf("expected no item applied, exam is %s", stored.Status)
	}
}

func TestScheduleBatch_RejectsForeignExecution(t *testing.T) {
	f := newFixture(t, validity.CategoryGeneral)
	d := f.open(t)
	other := f.open(t)

	_, err := f.svc.ScheduleBatch(context.Background(), d.Request.ID,
		[]uuid.UUID{f.executionFor(t, other, f.exam)},
		time.Date(2025, time.April, 2, 0, 0, 0, 0, time.UTC), uuid.New(), nil)
	if err == nil {
		t.Error("expected error for execution of another request")
	}
}

func TestRescheduleBatch_SubstitutesFixedUnit(t *testing.T) {
	f := newFixture(t, validity.CategoryGeneral)
	d := f.open(t)

	exam := f.executionFor(t, d, f.exam)
	previousUnit := uuid.New()
	if _, err := f.svc.Schedule(context.Background(), exam,
		time.Date(2025, time.April, 2, 0, 0, 0, 0, time.UTC), &previousUnit, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	fixedUnit := uuid.New()
	newSlot := time.Date(2025, time.April, 9, 0, 0, 0, 0, time.UTC)
	result, err := f.svc.RescheduleBatch(context.Background(), d.Request.ID,
		[]uuid.UUID{exam}, newSlot, fixedUnit, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.AllSucceeded() {
		t.Fatalf("expected the exam to be rescheduled, got %+v", result)
	}

	stored, _ := f.execs.GetByID(context.Background(), exam)
	if stored.ExecutingUnitID == nil || *stored.ExecutingUnitID != fixedUnit {
		t.Errorf("expected the fixed unit to replace the previous one, got %v", stored.ExecutingUnitID)
	}
	if stored.ScheduledAt == nil || !stored.ScheduledAt.Equal(newSlot) {
		t.Errorf("expected the new slot, got %v", stored.ScheduledAt)
	}
}

func TestList_FiltersByStatus(t *testing.T) {
	f := newFixture(t, validity.CategoryGeneral)
	f.open(t)
	d := f.open(t)
	if _, err := f.svc.CancelRequest(context.Background(), d.Request.ID, "patient moved away"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	open, total, err := f.svc.List(context.Background(), StatusOpen, 20, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if total != 1 || len(open) != 1 || open[0].Status != StatusOpen {
		t.Errorf("expected exactly the open request, got total=%d %+v", total, open)
	}

	all, total, err := f.svc.List(context.Background(), "", 20, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if total != 2 || len(all) != 2 {
		t.Errorf("expected both requests without a filter, got total=%d", total)
	}
}

func TestList_RejectsUnknownStatus(t *testing.T) {
	f := newFixture(t, validity.CategoryGeneral)

	_, _, err := f.svc.List(context.Background(), Status("archived"), 20, 0)
	var ve *execution.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if ve.Field != "status" {
		t.Errorf("expected the status field to be rejected, got %s", ve.Field)
	}
}

// -- Cancellation --

func TestCancelRequest(t *testing.T) {
	f := newFixture(t, validity.CategoryGeneral)
	d := f.open(t)

	r, err := f.svc.CancelRequest(context.Background(), d.Request.ID, "patient moved away")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.Status != StatusCancelled {
		t.Errorf("expected cancelled, got %s", r.Status)
	}
	execs, _ := f.execs.ListByRequest(context.Background(), d.Request.ID)
	for _, e := range execs {
		if e.Status != execution.StatusCancelled {
			t.Errorf("expected all executions cancelled, got %s", e.Status)
		}
	}
}

func TestCancelRequest_RequiresJustification(t *testing.T) {
	f := newFixture(t, validity.CategoryGeneral)
	d := f.open(t)
	if _, err := f.svc.CancelRequest(context.Background(), d.Request.ID, ""); err == nil {
		t.Error("expected error for missing justification")
	}
}

func TestCancelRequest_BlockedByPerformedExecution(t *testing.T) {
	f := newFixture(t, validity.CategoryGeneral)
	d := f.open(t)
	f.performConsult(t, d, day(testNow))

	if _, err := f.svc.CancelRequest(context.Background(), d.Request.ID, "patient moved away"); err == nil {
		t.Error("expected error cancelling a request with performed work")
	}
}

// -- Display projections --

func TestGet_TeleconsultationDispensedAfterConsult(t *testing.T) {
	f := newFixture(t, validity.CategoryGeneral)
	d := f.open(t)
	f.performConsult(t, d, day(testNow))

	got, err := f.svc.Get(context.Background(), d.Request.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, v := range got.Executions {
		if v.ProcedureID == f.tele && v.DisplayStatus != execution.StatusDispensed {
			t.Errorf("expected teleconsultation dispensed, got %s", v.DisplayStatus)
		}
		if v.ProcedureID == f.tele && v.Status != execution.StatusPending {
			t.Errorf("expected stored status untouched, got %s", v.Status)
		}
	}
}

// -- Deadline feed --

func TestListOpenDeadlines(t *testing.T) {
	f := newFixture(t, validity.CategoryOncological)
	d := f.open(t)
	f.performConsult(t, d, time.Date(2025, time.March, 5, 0, 0, 0, 0, time.UTC))

	// The biopsy has material collected but no result: it must surface as a
	// pending-result deadline alongside the request's registration deadline.
	if _, err := f.svc.RecordCollection(context.Background(), f.executionFor(t, d, f.biopsy),
		time.Date(2025, time.March, 12, 0, 0, 0, 0, time.UTC)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	deadlines, err := f.svc.ListOpenDeadlines(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(deadlines) != 2 {
		t.Fatalf("expected 2 deadlines, got %d", len(deadlines))
	}

	var reg, pending *alert.Deadline
	for i := range deadlines {
		switch deadlines[i].Kind {
		case alert.KindRegistrationDeadline:
			reg = &deadlines[i]
		case alert.KindPendingResult:
			pending = &deadlines[i]
		}
	}
	if reg == nil || reg.SubjectID != d.Request.ID {
		t.Fatalf("expected a registration deadline for the request, got %+v", deadlines)
	}
	if pending == nil || pending.SubjectID != f.executionFor(t, d, f.biopsy) {
		t.Fatalf("expected a pending-result deadline for the biopsy, got %+v", deadlines)
	}
	if !pending.Due.Equal(reg.Due) {
		t.Errorf("expected the pending result due at the registration deadline %v, got %v", reg.Due, pending.Due)
	}
}

func TestListOpenDeadlines_EmptyBeforeFirstExecution(t *testing.T) {
	f := newFixture(t, validity.CategoryGeneral)
	f.open(t)

	deadlines, err := f.svc.ListOpenDeadlines(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(deadlines) != 0 {
		t.Errorf("expected no deadlines, got %d", len(deadlines))
	}
}
