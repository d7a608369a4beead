package customer

import (
	"context"
	"database/sql"
	"errors"

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

func (r *Repository) GetCustomer(ctx context.Context, id uuid.UUID) (Customer, error) {
	return r.getOne(ctx, getCustomerQuery, id)
}

const getCustomerQuery = "SELECT * FROM customers WHERE id = $1"

func (r *Repository) GetCustomerByAuth0ID(ctx context.Context, auth0ID string) (Customer, error) {
	return r.getOne(ctx, getCustomerByAuth0IDQuery, auth0ID)
}

const getCustomerByAuth0IDQuery = "SELECT * FROM customers WHERE auth0_id = $1"

func (r *Repository) CreateCustomer(ctx context.Context, auth0ID string) (Customer, error) {
	var customer Customer
	err := r.db.GetContext(ctx, &customer, createCustomerQuery, uuid.New(), auth0ID, TierNone, RoleRider)
	return customer, err
}

// ON CONFLICT keeps two first requests from the same rider racing into a
// unique violation.
const createCustomerQuery = `
INSERT INTO customers (id, auth0_id, membership, role) VALUES ($1, $2, $3, $4)
ON CONFLICT (auth0_id) DO UPDATE SET auth0_id = EXCLUDED.auth0_id
RETURNING *
`

func (r *Repository) AddStripeIDToCustomer(ctx context.Context, id uuid.UUID, stripeID string) error {
	return r.exec(ctx, addStripeIDToCustomerQuery, stripeID, id)
}

const addStripeIDToCustomerQuery = "UPDATE customers SET stripe_id = $1 WHERE id = $2"

func (r *Repository) UpdateProfile(ctx context.Context, id uuid.UUID, email, name string) error {
	return r.exec(ctx, updateProfileQuery, email, name, id)
}

const updateProfileQuery = `UPDATE customers SET email = NULLIF($1, ''), name = NULLIF($2, '') WHERE id = $3`

func (r *Repository) SetMembership(ctx context.Context, id uuid.UUID, tier Tier) error {
	return r.exec(ctx, setMembershipQuery, tier, id)
}

const setMembershipQuery = `UPDATE customers SET membership = $1 WHERE id = $2`

func (r *Repository) SetRole(ctx context.Context, id uuid.UUID, role Role) error {
	return r.exec(ctx, setRoleQuery, role, id)
}

const setRoleQuery = `UPDATE customers SET role = $1 WHERE id = $2`

func (r *Repository) getOne(ctx context.Context, query string, args ...any) (Customer, error) {
	var customer Customer
	err := r.db.GetContext(ctx, &customer, query, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return customer, ErrNotFound
	}
	return customer, err
}

func (r *Repository) exec(ctx context.Context, query string, args ...any) error {
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
