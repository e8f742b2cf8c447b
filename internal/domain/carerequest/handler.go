package carerequest

import (
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/labstack/echo/v4"

	"github.com/ocisus/oci/internal/domain/execution"
	"github.com/ocisus/oci/internal/platform/calendar"
	"github.com/ocisus/oci/pkg/pagination"
)

// Handler exposes care requests over HTTP.
type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.POST("/requests", h.Open)
	api.GET("/requests", h.List)
	api.GET("/requests/:id", h.Get)
	api.POST("/requests/:id/cancel", h.CancelRequest)
	api.POST("/requests/:id/schedule-batch", h.ScheduleBatch)
	api.POST("/units/:unit_id/requests/:id/schedule-batch", h.RescheduleBatch)

	api.POST("/executions/:id/schedule", h.Schedule)
	api.POST("/executions/:id/perform", h.MarkPerformed)
	api.POST("/executions/:id/collection", h.RecordCollection)
	api.POST("/executions/:id/result", h.RecordResult)
	api.POST("/executions/:id/cancel", h.CancelExecution)
	api.POST("/executions/:id/revert", h.RevertToPending)
}

// domainError maps engine errors onto HTTP statuses: malformed input is a
// 400, a guard violation is a 422 (the request was well formed but the rules
// reject it today), and an illegal transition is a 409 conflict with the
// record's current state.
func domainError(err error) error {
	var ve *execution.ValidationError
	if errors.As(err, &ve) {
		return echo.NewHTTPError(http.StatusBadRequest, ve.Error())
	}
	var gv *execution.GuardViolation
	if errors.As(err, &gv) {
		return echo.NewHTTPError(http.StatusUnprocessableEntity, map[string]interface{}{
			"guard":  string(gv.Guard),
			"detail": gv.Detail,
		})
	}
	var it *execution.IllegalTransition
	if errors.As(err, &it) {
		return echo.NewHTTPError(http.StatusConflict, it.Error())
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return echo.NewHTTPError(http.StatusNotFound, "not found")
	}
	return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
}

type openRequestInput struct {
	PatientID           uuid.UUID `json:"patient_id"`
	OfferID             uuid.UUID `json:"offer_id"`
	AuthorizationNumber *string   `json:"authorization_number"`
}

func (h *Handler) Open(c echo.Context) error {
	var in openRequestInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	r := &Request{
		PatientID:           in.PatientID,
		OfferID:             in.OfferID,
		AuthorizationNumber: in.AuthorizationNumber,
	}
	detail, err := h.svc.Open(c.Request().Context(), r)
	if err != nil {
		return domainError(err)
	}
	return c.JSON(http.StatusCreated, detail)
}

func (h *Handler) Get(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request id")
	}
	detail, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		return domainError(err)
	}
	return c.JSON(http.StatusOK, detail)
}

func (h *Handler) List(c echo.Context) error {
	p := pagination.FromContext(c)
	reqs, total, err := h.svc.List(c.Request().Context(), Status(c.QueryParam("status")), p.Limit, p.Offset)
	if err != nil {
		return domainError(err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(reqs, total, p.Limit, p.Offset))
}

type justificationInput struct {
	Justification string `json:"justification"`
}

func (h *Handler) CancelRequest(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request id")
	}
	var in justificationInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	r, err := h.svc.CancelRequest(c.Request().Context(), id, in.Justification)
	if err != nil {
		return domainError(err)
	}
	return c.JSON(http.StatusOK, r)
}

type scheduleInput struct {
	ScheduledAt    time.Time  `json:"scheduled_at"`
	UnitID         *uuid.UUID `json:"executing_unit_id"`
	ProfessionalID *uuid.UUID `json:"executing_professional_id"`
}

func (h *Handler) Schedule(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid execution id")
	}
	var in scheduleInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	e, err := h.svc.Schedule(c.Request().Context(), id, in.ScheduledAt, in.UnitID, in.ProfessionalID)
	if err != nil {
		return domainError(err)
	}
	return c.JSON(http.StatusOK, e)
}

type scheduleBatchInput struct {
	ExecutionIDs   []uuid.UUID `json:"execution_ids"`
	ScheduledAt    time.Time   `json:"scheduled_at"`
	UnitID         uuid.UUID   `json:"executing_unit_id"`
	ProfessionalID *uuid.UUID  `json:"executing_professional_id"`
}

// ScheduleBatch returns 200 with the per-item result even on partial
// failure: partial failure is an expected outcome the client presents, not a
// transport error.
func (h *Handler) ScheduleBatch(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request id")
	}
	var in scheduleBatchInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	result, err := h.svc.ScheduleBatch(c.Request().Context(), id, in.ExecutionIDs, in.ScheduledAt, in.UnitID, in.ProfessionalID)
	if err != nil {
		return domainError(err)
	}
	return c.JSON(http.StatusOK, result)
}

type rescheduleBatchInput struct {
	ExecutionIDs   []uuid.UUID `json:"execution_ids"`
	ScheduledAt    time.Time   `json:"scheduled_at"`
	ProfessionalID *uuid.UUID  `json:"executing_professional_id"`
}

// RescheduleBatch is the unit-scoped form of ScheduleBatch: the executing
// unit comes from the route, not the body, so a caller tied to one unit
// cannot book elsewhere.
func (h *Handler) RescheduleBatch(c echo.Context) error {
	unitID, err := uuid.Parse(c.Param("unit_id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid unit id")
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request id")
	}
	var in rescheduleBatchInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	result, err := h.svc.RescheduleBatch(c.Request().Context(), id, in.ExecutionIDs, in.ScheduledAt, unitID, in.ProfessionalID)
	if err != nil {
		return domainError(err)
	}
	return c.JSON(http.StatusOK, result)
}

type performInput struct {
	PerformedAt    time.Time  `json:"performed_at"`
	UnitID         *uuid.UUID `json:"executing_unit_id"`
	ProfessionalID *uuid.UUID `json:"executing_professional_id"`
	EndCompetency  int        `json:"end_competency,omitempty"`
}

func (h *Handler) MarkPerformed(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid execution id")
	}
	var in performInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	end := calendar.Competency(in.EndCompetency)
	if end != 0 && !end.Valid() {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid end_competency")
	}
	e, err := h.svc.MarkPerformed(c.Request().Context(), id, in.PerformedAt, in.UnitID, in.ProfessionalID, end)
	if err != nil {
		return domainError(err)
	}
	return c.JSON(http.StatusOK, e)
}

type dateInput struct {
	Date time.Time `json:"date"`
}

func (h *Handler) RecordCollection(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid execution id")
	}
	var in dateInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	e, err := h.svc.RecordCollection(c.Request().Context(), id, in.Date)
	if err != nil {
		return domainError(err)
	}
	return c.JSON(http.StatusOK, e)
}

func (h *Handler) RecordResult(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid execution id")
	}
	var in dateInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	e, err := h.svc.RecordResult(c.Request().Context(), id, in.Date)
	if err != nil {
		return domainError(err)
	}
	return c.JSON(http.StatusOK, e)
}

func (h *Handler) CancelExecution(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid execution id")
	}
	var in justificationInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	e, err := h.svc.CancelExecution(c.Request().Context(), id, in.Justification)
	if err != nil {
		return domainError(err)
	}
	return c.JSON(http.StatusOK, e)
}

func (h *Handler) RevertToPending(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid execution id")
	}
	var in justificationInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	e, err := h.svc.RevertToPending(c.Request().Context(), id, in.Justification)
	if err != nil {
		return domainError(err)
	}
	return c.JSON(http.StatusOK, e)
}
