package carerequest

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ocisus/oci/internal/domain/execution"
)

// =========== Request Repository ===========

type requestRepoPG struct{ pool *pgxpool.Pool }

func NewRequestRepoPG(pool *pgxpool.Pool) RequestRepository {
	return &requestRepoPG{pool: pool}
}

const requestCols = `id, patient_id, offer_id, category, status, authorization_number,
	first_execution_at, start_competency, end_competency,
	registration_deadline, presentation_deadline, created_at, updated_at`

func scanRequest(row pgx.Row) (*Request, error) {
	var r Request
	err := row.Scan(&r.ID, &r.PatientID, &r.OfferID, &r.Category, &r.Status, &r.AuthorizationNumber,
		&r.FirstExecutionAt, &r.StartCompetency, &r.EndCompetency,
		&r.RegistrationDeadline, &r.PresentationDeadline, &r.CreatedAt, &r.UpdatedAt)
	return &r, err
}

func (r *requestRepoPG) Create(ctx context.Context, req *Request) error {
	req.ID = uuid.New()
	_, err := r.pool.Exec(ctx, `
		INSERT INTO care_request (id, patient_id, offer_id, category, status, authorization_number)
		VALUES ($1,$2,$3,$4,$5,$6)`,
		req.ID, req.PatientID, req.OfferID, req.Category, req.Status, req.AuthorizationNumber)
	return err
}

func (r *requestRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Request, error) {
	return scanRequest(r.pool.QueryRow(ctx, `SELECT `+requestCols+` FROM care_request WHERE id = $1`, id))
}

func (r *requestRepoPG) Update(ctx context.Context, req *Request) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE care_request SET
			status = $2, authorization_number = $3, first_execution_at = $4,
			start_competency = $5, end_competency = $6,
			registration_deadline = $7, presentation_deadline = $8,
			updated_at = now()
		WHERE id = $1`,
		req.ID, req.Status, req.AuthorizationNumber, req.FirstExecutionAt,
		req.StartCompetency, req.EndCompetency,
		req.RegistrationDeadline, req.PresentationDeadline)
	return err
}

func (r *requestRepoPG) List(ctx context.Context, status Status, limit, offset int) ([]*Request, int, error) {
	countQuery := `SELECT count(*) FROM care_request`
	listQuery := `SELECT ` + requestCols + ` FROM care_request ORDER BY created_at DESC LIMIT $1 OFFSET $2`
	countArgs := []any{}
	listArgs := []any{limit, offset}
	if status != "" {
		countQuery = `SELECT count(*) FROM care_request WHERE status = $1`
		listQuery = `SELECT ` + requestCols + ` FROM care_request WHERE status = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`
		countArgs = []any{status}
		listArgs = []any{status, limit, offset}
	}

	var total int
	if err := r.pool.QueryRow(ctx, countQuery, countArgs...).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.pool.Query(ctx, listQuery, listArgs...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var result []*Request
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, 0, err
		}
		result = append(result, req)
	}
	return result, total, rows.Err()
}

func (r *requestRepoPG) ListOpenWithDeadline(ctx context.Context) ([]*Request, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+requestCols+` FROM care_request
		WHERE status = $1 AND registration_deadline IS NOT NULL
		ORDER BY registration_deadline ASC`, StatusOpen)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []*Request
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, req)
	}
	return result, rows.Err()
}

// =========== Execution Repository ===========

type executionRepoPG struct{ pool *pgxpool.Pool }

func NewExecutionRepoPG(pool *pgxpool.Pool) ExecutionRepository {
	return &executionRepoPG{pool: pool}
}

const executionCols = `id, request_id, procedure_id, status, scheduled_at, performed_at,
	executing_unit_id, executing_professional_id,
	material_collected_at, result_registered_at, created_at, updated_at`

func scanExecution(row pgx.Row) (*execution.Execution, error) {
	var e execution.Execution
	err := row.Scan(&e.ID, &e.RequestID, &e.ProcedureID, &e.Status, &e.ScheduledAt, &e.PerformedAt,
		&e.ExecutingUnitID, &e.ExecutingProfessionalID,
		&e.MaterialCollectedAt, &e.ResultRegisteredAt, &e.CreatedAt, &e.UpdatedAt)
	return &e, err
}

func (r *executionRepoPG) CreateBatch(ctx context.Context, execs []*execution.Execution) error {
	batch := &pgx.Batch{}
	for _, e := range execs {
		batch.Queue(`
			INSERT INTO execution (id, request_id, procedure_id, status)
			VALUES ($1,$2,$3,$4)`,
			e.ID, e.RequestID, e.ProcedureID, e.Status)
	}
	return r.pool.SendBatch(ctx, batch).Close()
}

func (r *executionRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*execution.Execution, error) {
	return scanExecution(r.pool.QueryRow(ctx, `SELECT `+executionCols+` FROM execution WHERE id = $1`, id))
}

func (r *executionRepoPG) Update(ctx context.Context, e *execution.Execution) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE execution SET
			status = $2, scheduled_at = $3, performed_at = $4,
			executing_unit_id = $5, executing_professional_id = $6,
			material_collected_at = $7, result_registered_at = $8,
			updated_at = now()
		WHERE id = $1`,
		e.ID, e.Status, e.ScheduledAt, e.PerformedAt,
		e.ExecutingUnitID, e.ExecutingProfessionalID,
		e.MaterialCollectedAt, e.ResultRegisteredAt)
	return err
}

func (r *executionRepoPG) ListByRequest(ctx context.Context, requestID uuid.UUID) ([]*execution.Execution, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+executionCols+` FROM execution
		WHERE request_id = $1 ORDER BY created_at ASC, id ASC`, requestID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []*execution.Execution
	for rows.Next() {
		e, err := scanExecution(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, e)
	}
	return result, rows.Err()
}
