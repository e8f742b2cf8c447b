package execution

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	consultProc   = uuid.New()
	teleProc      = uuid.New()
	examProc      = uuid.New()
	pathologyProc = uuid.New()

	testToday = time.Date(2025, time.March, 20, 0, 0, 0, 0, time.UTC)
)

func testRules() Rules {
	gatekeepers := map[uuid.UUID]bool{consultProc: true, teleProc: true}
	pathology := map[uuid.UUID]bool{pathologyProc: true}
	groups := map[uuid.UUID]string{consultProc: "specialized-consultation", teleProc: "specialized-consultation"}
	return Rules{
		Gatekeeper:        func(id uuid.UUID) bool { return gatekeepers[id] },
		RequiresPathology: func(id uuid.UUID) bool { return pathology[id] },
		AlternativeGroup: func(id uuid.UUID) (string, bool) {
			g, ok := groups[id]
			return g, ok
		},
	}
}

func testMachine() *Machine {
	return NewMachine(testRules(), WithClock(func() time.Time { return testToday }))
}

func newExec(proc uuid.UUID) *Execution {
	return &Execution{ID: uuid.New(), RequestID: uuid.New(), ProcedureID: proc, Status: StatusPending}
}

func performedConsult() *Execution {
	e := newExec(consultProc)
	at := testToday.AddDate(0, 0, -5)
	e.Status = StatusPerformed
	e.PerformedAt = &at
	return e
}

func day(d int) time.Time {
	return time.Date(2025, time.March, d, 0, 0, 0, 0, time.UTC)
}

// -- Schedule --

func TestSchedule_FromPending(t *testing.T) {
	m := testMachine()
	e := newExec(examProc)
	unit := uuid.New()

	err := m.Schedule(e, day(25), &unit, nil)
	require.NoError(t, err)
	assert.Equal(t, StatusScheduled, e.Status)
	assert.Equal(t, day(25), *e.ScheduledAt)
	assert.Equal(t, unit, *e.ExecutingUnitID)
}

func TestSchedule_ReschedulingReplacesSlot(t *testing.T) {
	m := testMachine()
	e := newExec(examProc)
	unit := uuid.New()
	require.NoError(t, m.Schedule(e, day(25), &unit, nil))
	require.NoError(t, m.Schedule(e, day(28), &unit, nil))
	assert.Equal(t, day(28), *e.ScheduledAt)
	assert.Equal(t, StatusScheduled, e.Status)
}

func TestSchedule_PastDateAllowed(t *testing.T) {
	// Administrative backfill schedules into the past.
	m := testMachine()
	e := newExec(examProc)
	err := m.Schedule(e, day(1), nil, nil)
	assert.NoError(t, err)
}

func TestSchedule_RejectsTerminalStates(t *testing.T) {
	m := testMachine()
	for _, status := range []Status{StatusPerformed, StatusCancelled} {
		e := newExec(examProc)
		e.Status = status
		err := m.Schedule(e, day(25), nil, nil)
		var it *IllegalTransition
		require.ErrorAs(t, err, &it, "status %s", status)
		assert.Equal(t, status, it.From)
	}
}

func TestSchedule_ZeroDateRejected(t *testing.T) {
	m := testMachine()
	e := newExec(examProc)
	err := m.Schedule(e, time.Time{}, nil, nil)
	var ve *ValidationError
	assert.ErrorAs(t, err, &ve)
}

// -- MarkPerformed: temporal guard --

func TestMarkPerformed_Consultation(t *testing.T) {
	m := testMachine()
	e := newExec(consultProc)
	prof := uuid.New()

	err := m.MarkPerformed(e, nil, day(18), nil, &prof)
	require.NoError(t, err)
	assert.Equal(t, StatusPerformed, e.Status)
	assert.Equal(t, day(18), *e.PerformedAt)
	assert.Equal(t, prof, *e.ExecutingProfessionalID)
}

func TestMarkPerformed_ConsultationRequiresProfessional(t *testing.T) {
	m := testMachine()
	e := newExec(consultProc)
	err := m.MarkPerformed(e, nil, day(18), nil, nil)
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "professional", ve.Field)
}

func TestMarkPerformed_FutureDateRejected(t *testing.T) {
	m := testMachine()
	e := newExec(consultProc)
	prof := uuid.New()
	err := m.MarkPerformed(e, nil, day(21), nil, &prof)
	var gv *GuardViolation
	require.ErrorAs(t, err, &gv)
	assert.Equal(t, GuardTemporal, gv.Guard)
	assert.Equal(t, StatusPending, e.Status)
	assert.Nil(t, e.PerformedAt)
}

func TestMarkPerformed_BeforeScheduledRejected(t *testing.T) {
	m := testMachine()
	e := newExec(consultProc)
	prof := uuid.New()
	require.NoError(t, m.Schedule(e, day(15), nil, &prof))

	err := m.MarkPerformed(e, nil, day(10), nil, &prof)
	var gv *GuardViolation
	require.ErrorAs(t, err, &gv)
	assert.Equal(t, GuardTemporal, gv.Guard)
	assert.NotNil(t, gv.ScheduledAt)

	// On or after the scheduled date succeeds.
	assert.NoError(t, m.MarkPerformed(e, nil, day(15), nil, &prof))
}

func TestMarkPerformed_IgnoresTimeOfDayOnScheduled(t *testing.T) {
	m := testMachine()
	e := newExec(consultProc)
	prof := uuid.New()
	slot := time.Date(2025, time.March, 15, 14, 30, 0, 0, time.UTC)
	require.NoError(t, m.Schedule(e, slot, nil, &prof))

	// Same calendar day, earlier clock time: not a temporal violation.
	assert.NoError(t, m.MarkPerformed(e, nil, day(15), nil, &prof))
}

// -- MarkPerformed: prerequisite guard --

func TestMarkPerformed_ExamBlockedWithoutConsultation(t *testing.T) {
	m := testMachine()
	e := newExec(examProc)
	siblings := []*Execution{newExec(consultProc)} // consultation still pending

	err := m.MarkPerformed(e, siblings, day(18), nil, nil)
	var gv *GuardViolation
	require.ErrorAs(t, err, &gv)
	assert.Equal(t, GuardPrerequisite, gv.Guard)
}

func TestMarkPerformed_ExamUnlockedByConsultation(t *testing.T) {
	m := testMachine()
	e := newExec(examProc)
	siblings := []*Execution{performedConsult()}
	err := m.MarkPerformed(e, siblings, day(18), nil, nil)
	assert.NoError(t, err)
}

func TestMarkPerformed_TeleconsultationAlsoUnlocks(t *testing.T) {
	m := testMachine()
	e := newExec(examProc)
	tele := newExec(teleProc)
	at := day(10)
	tele.Status = StatusPerformed
	tele.PerformedAt = &at

	assert.NoError(t, m.MarkPerformed(e, []*Execution{tele}, day(18), nil, nil))
}

func TestMarkPerformed_ConsultationExemptFromPrerequisite(t *testing.T) {
	m := testMachine()
	e := newExec(consultProc)
	prof := uuid.New()
	// No sibling consultation performed; the consultation itself is the
	// prerequisite and must go through.
	assert.NoError(t, m.MarkPerformed(e, []*Execution{newExec(examProc)}, day(18), nil, &prof))
}

func TestMarkPerformed_CancelledConsultationDoesNotUnlock(t *testing.T) {
	m := testMachine()
	e := newExec(examProc)
	cancelled := newExec(consultProc)
	cancelled.Status = StatusCancelled

	err := m.MarkPerformed(e, []*Execution{cancelled}, day(18), nil, nil)
	var gv *GuardViolation
	require.ErrorAs(t, err, &gv)
	assert.Equal(t, GuardPrerequisite, gv.Guard)
}

// -- MarkPerformed: evidentiary guard --

func TestMarkPerformed_PathologyNeedsBothDates(t *testing.T) {
	m := testMachine()
	siblings := []*Execution{performedConsult()}

	e := newExec(pathologyProc)
	err := m.MarkPerformed(e, siblings, day(18), nil, nil)
	var gv *GuardViolation
	require.ErrorAs(t, err, &gv)
	assert.Equal(t, GuardEvidentiary, gv.Guard)

	// Collection alone is not enough: this is the awaiting-result condition.
	require.NoError(t, m.RecordCollection(e, day(12)))
	err = m.MarkPerformed(e, siblings, day(18), nil, nil)
	require.ErrorAs(t, err, &gv)
	assert.Equal(t, GuardEvidentiary, gv.Guard)
	assert.True(t, m.AwaitingResult(e))

	require.NoError(t, m.RecordResult(e, day(16)))
	assert.False(t, m.AwaitingResult(e))
	assert.NoError(t, m.MarkPerformed(e, siblings, day(18), nil, nil))
}

func TestRecordResult_RequiresCollectionFirst(t *testing.T) {
	m := testMachine()
	e := newExec(pathologyProc)
	err := m.RecordResult(e, day(16))
	var gv *GuardViolation
	require.ErrorAs(t, err, &gv)
	assert.Equal(t, GuardEvidentiary, gv.Guard)
}

func TestRecordResult_CannotPrecedeCollection(t *testing.T) {
	m := testMachine()
	e := newExec(pathologyProc)
	require.NoError(t, m.RecordCollection(e, day(12)))
	err := m.RecordResult(e, day(10))
	var gv *GuardViolation
	require.ErrorAs(t, err, &gv)
	assert.Equal(t, GuardEvidentiary, gv.Guard)
}

func TestRecordCollection_FutureRejected(t *testing.T) {
	m := testMachine()
	e := newExec(pathologyProc)
	err := m.RecordCollection(e, day(25))
	var gv *GuardViolation
	require.ErrorAs(t, err, &gv)
	assert.Equal(t, GuardTemporal, gv.Guard)
}

func TestRecordCollection_RejectedOncePerformed(t *testing.T) {
	m := testMachine()
	e := performedConsult()
	err := m.RecordCollection(e, day(12))
	var it *IllegalTransition
	assert.ErrorAs(t, err, &it)
}

// -- Cancel / Revert --

func TestCancel(t *testing.T) {
	m := testMachine()
	e := newExec(examProc)
	require.NoError(t, m.Cancel(e, "patient moved away"))
	assert.Equal(t, StatusCancelled, e.Status)
}

func TestCancel_RequiresJustification(t *testing.T) {
	m := testMachine()
	e := newExec(examProc)
	var ve *ValidationError
	assert.ErrorAs(t, m.Cancel(e, ""), &ve)
}

func TestCancel_PerformedRejected(t *testing.T) {
	m := testMachine()
	e := performedConsult()
	var it *IllegalTransition
	require.ErrorAs(t, m.Cancel(e, "mistake"), &it)
	assert.Equal(t, StatusPerformed, it.From)
}

func TestRevertToPending(t *testing.T) {
	m := testMachine()
	e := newExec(pathologyProc)
	collected, result := day(12), day(16)
	e.MaterialCollectedAt = &collected
	e.ResultRegisteredAt = &result
	performed := day(18)
	e.Status = StatusPerformed
	e.PerformedAt = &performed

	require.NoError(t, m.RevertToPending(e, "registered against the wrong patient"))
	assert.Equal(t, StatusPending, e.Status)
	assert.Nil(t, e.PerformedAt)
	// Evidentiary dates survive the revert.
	assert.NotNil(t, e.MaterialCollectedAt)
	assert.NotNil(t, e.ResultRegisteredAt)
}

func TestRevertToPending_OnlyFromPerformed(t *testing.T) {
	m := testMachine()
	e := newExec(examProc)
	var it *IllegalTransition
	assert.ErrorAs(t, m.RevertToPending(e, "x"), &it)
}

func TestRevertToPending_RequiresJustification(t *testing.T) {
	m := testMachine()
	e := performedConsult()
	var ve *ValidationError
	assert.ErrorAs(t, m.RevertToPending(e, ""), &ve)
}
