package pricing

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

type Repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) *Repository {
	return &Repository{
		db: db,
	}
}

func (r *Repository) Insert(ctx context.Context, p Plan) error {
	_, err := r.db.NamedExecContext(ctx, insertPlanQuery, p)
	return err
}

const insertPlanQuery = `
INSERT INTO pricing_plan_versions (id, plan_name, base_fee, per_minute_rate, ebike_surcharge, membership_tier,
                                   city_id, effective_from, effective_to, published, description, created_at)
VALUES (:id, :plan_name, :base_fee, :per_minute_rate, :ebike_surcharge, :membership_tier,
        :city_id, :effective_from, :effective_to, :published, :description, :created_at)
`

func (r *Repository) Get(ctx context.Context, id uuid.UUID) (Plan, error) {
	var p Plan
	err := r.db.GetContext(ctx, &p, getPlanQuery, id)
	if errors.Is(err, sql.ErrNoRows) {
		return p, ErrPlanNotFound
	}
	return p, err
}

const getPlanQuery = `SELECT * FROM pricing_plan_versions WHERE id = $1`

func (r *Repository) UpdateDraft(ctx context.Context, p Plan) error {
	res, err := r.db.NamedExecContext(ctx, updateDraftQuery, p)
	if err != nil {
		return err
	}
	return r.draftGuard(ctx, res, p.ID)
}

const updateDraftQuery = `
UPDATE pricing_plan_versions SET
    plan_name = :plan_name,
    base_fee = :base_fee,
    per_minute_rate = :per_minute_rate,
    ebike_surcharge = :ebike_surcharge,
    membership_tier = :membership_tier,
    city_id = :city_id,
    effective_from = :effective_from,
    effective_to = :effective_to,
    description = :description
WHERE id = :id AND NOT published
`

func (r *Repository) Publish(ctx context.Context, id uuid.UUID) error {
	res, err := r.db.ExecContext(ctx, publishQuery, id)
	if err != nil {
		return err
	}
	return r.draftGuard(ctx, res, id)
}

const publishQuery = `UPDATE pricing_plan_versions SET published = true WHERE id = $1 AND NOT published`

// draftGuard tells a missing plan apart from a published one when an update
// guarded by NOT published touched no rows.
func (r *Repository) draftGuard(ctx context.Context, res sql.Result, id uuid.UUID) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}
	if _, err := r.Get(ctx, id); err != nil {
		return err
	}
	return ErrPlanPublished
}

func (r *Repository) List(ctx context.Context, publishedOnly bool) ([]Plan, error) {
	var plans []Plan
	err := r.db.SelectContext(ctx, &plans, listPlansQuery, publishedOnly)
	return plans, err
}

const listPlansQuery = `
SELECT * FROM pricing_plan_versions
WHERE published OR NOT $1
ORDER BY effective_from DESC, id
`

func (r *Repository) Active(ctx context.Context, at time.Time, scope Scope) ([]Plan, error) {
	var plans []Plan
	err := r.db.SelectContext(ctx, &plans, activePlansQuery, at, string(scope.Membership), scope.CityID, scope.General)
	return plans, err
}

const activePlansQuery = `
SELECT * FROM pricing_plan_versions
WHERE published
  AND effective_from <= $1
  AND (effective_to IS NULL OR effective_to > $1)
  AND ($2 = '' OR membership_tier = $2)
  AND ($3 = '' OR city_id = $3)
  AND (NOT $4 OR membership_tier IS NULL)
ORDER BY effective_from DESC, id
`

var (
	_ Store = (*Repository)(nil)
	_ Store = (*MemoryStore)(nil)
)
