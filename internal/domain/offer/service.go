package offer

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/ocisus/oci/internal/domain/validity"
)

type Service struct {
	offers     OfferRepository
	procedures ProcedureRepository
}

func NewService(offers OfferRepository, procedures ProcedureRepository) *Service {
	return &Service{offers: offers, procedures: procedures}
}

var validKinds = map[string]bool{
	"consultation": true, "exam": true, "imaging": true, "procedure": true,
}

var validClassifications = map[string]bool{
	ClassSpecializedConsultation: true,
	ClassTeleconsultation:        true,
}

// -- Offers --

func (s *Service) CreateOffer(ctx context.Context, o *Offer) error {
	if o.Code == "" {
		return fmt.Errorf("code is required")
	}
	if o.Name == "" {
		return fmt.Errorf("name is required")
	}
	if o.Category == "" {
		o.Category = validity.CategoryGeneral
	}
	if !validity.ValidCategory(o.Category) {
		return fmt.Errorf("invalid category: %s", o.Category)
	}
	if o.MaxDurationDays != nil && *o.MaxDurationDays <= 0 {
		return fmt.Errorf("max_duration_days must be positive")
	}
	return s.offers.Create(ctx, o)
}

func (s *Service) GetOffer(ctx context.Context, id uuid.UUID) (*Offer, error) {
	return s.offers.GetByID(ctx, id)
}

// UpdateOffer applies catalog edits. The category is frozen as soon as any
// care request references the offer: deadline formulas derived from it must
// not change under an open request.
func (s *Service) UpdateOffer(ctx context.Context, o *Offer) error {
	if o.Category != "" && !validity.ValidCategory(o.Category) {
		return fmt.Errorf("invalid category: %s", o.Category)
	}
	current, err := s.offers.GetByID(ctx, o.ID)
	if err != nil {
		return err
	}
	if o.Category != "" && o.Category != current.Category {
		inUse, err := s.offers.InUse(ctx, o.ID)
		if err != nil {
			return err
		}
		if inUse {
			return fmt.Errorf("category cannot change while care requests reference the offer")
		}
	}
	return s.offers.Update(ctx, o)
}

func (s *Service) DeleteOffer(ctx context.Context, id uuid.UUID) error {
	inUse, err := s.offers.InUse(ctx, id)
	if err != nil {
		return err
	}
	if inUse {
		return fmt.Errorf("offer cannot be deleted while care requests reference it")
	}
	return s.offers.Delete(ctx, id)
}

func (s *Service) ListOffers(ctx context.Context, limit, offset int) ([]*Offer, int, error) {
	return s.offers.List(ctx, limit, offset)
}

// -- Procedure definitions --

func (s *Service) AddProcedure(ctx context.Context, d *ProcedureDefinition) error {
	if d.OfferID == uuid.Nil {
		return fmt.Errorf("offer_id is required")
	}
	if d.Code == "" {
		return fmt.Errorf("code is required")
	}
	if d.Name == "" {
		return fmt.Errorf("name is required")
	}
	if d.Kind == "" {
		d.Kind = "procedure"
	}
	if !validKinds[d.Kind] {
		return fmt.Errorf("invalid kind: %s", d.Kind)
	}
	if d.Classification != nil && !validClassifications[*d.Classification] {
		return fmt.Errorf("invalid classification: %s", *d.Classification)
	}
	if d.Position <= 0 {
		defs, err := s.procedures.ListByOffer(ctx, d.OfferID)
		if err != nil {
			return err
		}
		d.Position = len(defs) + 1
	}
	return s.procedures.Create(ctx, d)
}

func (s *Service) GetProcedure(ctx context.Context, id uuid.UUID) (*ProcedureDefinition, error) {
	return s.procedures.GetByID(ctx, id)
}

func (s *Service) UpdateProcedure(ctx context.Context, d *ProcedureDefinition) error {
	if d.Kind != "" && !validKinds[d.Kind] {
		return fmt.Errorf("invalid kind: %s", d.Kind)
	}
	if d.Classification != nil && !validClassifications[*d.Classification] {
		return fmt.Errorf("invalid classification: %s", *d.Classification)
	}
	return s.procedures.Update(ctx, d)
}

func (s *Service) DeleteProcedure(ctx context.Context, id uuid.UUID) error {
	return s.procedures.Delete(ctx, id)
}

func (s *Service) ListProcedures(ctx context.Context, offerID uuid.UUID) ([]*ProcedureDefinition, error) {
	return s.procedures.ListByOffer(ctx, offerID)
}
