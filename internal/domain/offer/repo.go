package offer

import (
	"context"

	"github.com/google/uuid"
)

type OfferRepository interface {
	Create(ctx context.Context, o *Offer) error
	GetByID(ctx context.Context, id uuid.UUID) (*Offer, error)
	Update(ctx context.Context, o *Offer) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, limit, offset int) ([]*Offer, int, error)
	// InUse reports whether any care request references the offer.
	InUse(ctx context.Context, id uuid.UUID) (bool, error)
}

type ProcedureRepository interface {
	Create(ctx context.Context, d *ProcedureDefinition) error
	GetByID(ctx context.Context, id uuid.UUID) (*ProcedureDefinition, error)
	Update(ctx context.Context, d *ProcedureDefinition) error
	Delete(ctx context.Context, id uuid.UUID) error
	ListByOffer(ctx context.Context, offerID uuid.UUID) ([]*ProcedureDefinition, error)
}
