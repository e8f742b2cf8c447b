package offer

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// =========== Offer Repository ===========

type offerRepoPG struct{ pool *pgxpool.Pool }

func NewOfferRepoPG(pool *pgxpool.Pool) OfferRepository {
	return &offerRepoPG{pool: pool}
}

const offerCols = `id, code, name, category, max_duration_days, created_at, updated_at`

func scanOffer(row pgx.Row) (*Offer, error) {
	var o Offer
	err := row.Scan(&o.ID, &o.Code, &o.Name, &o.Category, &o.MaxDurationDays, &o.CreatedAt, &o.UpdatedAt)
	return &o, err
}

func (r *offerRepoPG) Create(ctx context.Context, o *Offer) error {
	o.ID = uuid.New()
	_, err := r.pool.Exec(ctx, `
		INSERT INTO care_offer (id, code, name, category, max_duration_days)
		VALUES ($1,$2,$3,$4,$5)`,
		o.ID, o.Code, o.Name, o.Category, o.MaxDurationDays)
	return err
}

func (r *offerRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Offer, error) {
	return scanOffer(r.pool.QueryRow(ctx, `SELECT `+offerCols+` FROM care_offer WHERE id = $1`, id))
}

func (r *offerRepoPG) Update(ctx context.Context, o *Offer) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE care_offer SET code=$2, name=$3, category=$4, max_duration_days=$5, updated_at=NOW()
		WHERE id = $1`,
		o.ID, o.Code, o.Name, o.Category, o.MaxDurationDays)
	return err
}

func (r *offerRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM care_offer WHERE id = $1`, id)
	return err
}

func (r *offerRepoPG) List(ctx context.Context, limit, offset int) ([]*Offer, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM care_offer`).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.pool.Query(ctx, `SELECT `+offerCols+` FROM care_offer ORDER BY code LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*Offer
	for rows.Next() {
		o, err := scanOffer(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, o)
	}
	return items, total, rows.Err()
}

func (r *offerRepoPG) InUse(ctx context.Context, id uuid.UUID) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM care_request WHERE offer_id = $1)`, id).Scan(&exists)
	return exists, err
}

// =========== Procedure Repository ===========

type procedureRepoPG struct{ pool *pgxpool.Pool }

func NewProcedureRepoPG(pool *pgxpool.Pool) ProcedureRepository {
	return &procedureRepoPG{pool: pool}
}

const procCols = `id, offer_id, code, name, kind, classification, position,
	mandatory, anatomo_pathological, alternative_group, external_code,
	created_at, updated_at`

func scanProcedure(row pgx.Row) (*ProcedureDefinition, error) {
	var d ProcedureDefinition
	err := row.Scan(&d.ID, &d.OfferID, &d.Code, &d.Name, &d.Kind, &d.Classification,
		&d.Position, &d.Mandatory, &d.AnatomoPathological, &d.AlternativeGroup,
		&d.ExternalCode, &d.CreatedAt, &d.UpdatedAt)
	return &d, err
}

func (r *procedureRepoPG) Create(ctx context.Context, d *ProcedureDefinition) error {
	d.ID = uuid.New()
	_, err := r.pool.Exec(ctx, `
		INSERT INTO procedure_definition (id, offer_id, code, name, kind, classification,
			position, mandatory, anatomo_pathological, alternative_group, external_code)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`,
		d.ID, d.OfferID, d.Code, d.Name, d.Kind, d.Classification,
		d.Position, d.Mandatory, d.AnatomoPathological, d.AlternativeGroup, d.ExternalCode)
	return err
}

func (r *procedureRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*ProcedureDefinition, error) {
	return scanProcedure(r.pool.QueryRow(ctx, `SELECT `+procCols+` FROM procedure_definition WHERE id = $1`, id))
}

func (r *procedureRepoPG) Update(ctx context.Context, d *ProcedureDefinition) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE procedure_definition SET code=$2, name=$3, kind=$4, classification=$5,
			position=$6, mandatory=$7, anatomo_pathological=$8, alternative_group=$9,
			external_code=$10, updated_at=NOW()
		WHERE id = $1`,
		d.ID, d.Code, d.Name, d.Kind, d.Classification,
		d.Position, d.Mandatory, d.AnatomoPathological, d.AlternativeGroup, d.ExternalCode)
	return err
}

func (r *procedureRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM procedure_definition WHERE id = $1`, id)
	return err
}

func (r *procedureRepoPG) ListByOffer(ctx context.Context, offerID uuid.UUID) ([]*ProcedureDefinition, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+procCols+` FROM procedure_definition WHERE offer_id = $1 ORDER BY position`, offerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*ProcedureDefinition
	for rows.Next() {
		d, err := scanProcedure(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, d)
	}
	return items, rows.Err()
}
