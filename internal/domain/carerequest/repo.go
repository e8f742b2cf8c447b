package carerequest

import (
	"context"

	"github.com/google/uuid"

	"github.com/ocisus/oci/internal/domain/execution"
)

// RequestRepository persists care requests.
type RequestRepository interface {
	Create(ctx context.Context, r *Request) error
	GetByID(ctx context.Context, id uuid.UUID) (*Request, error)
	Update(ctx context.Context, r *Request) error
	List(ctx context.Context, status Status, limit, offset int) ([]*Request, int, error)
	// ListOpenWithDeadline returns open requests whose registration deadline
	// has been derived, i.e. requests with at least one performed procedure.
	ListOpenWithDeadline(ctx context.Context) ([]*Request, error)
}

// ExecutionRepository persists the executions of care requests.
type ExecutionRepository interface {
	CreateBatch(ctx context.Context, execs []*execution.Execution) error
	GetByID(ctx context.Context, id uuid.UUID) (*execution.Execution, error)
	Update(ctx context.Context, e *execution.Execution) error
	ListByRequest(ctx context.Context, requestID uuid.UUID) ([]*execution.Execution, error)
}
