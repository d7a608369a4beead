package ledger

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"github.com/semanticallynull/bikeshare-backend/internal/txn"
)

type Repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) *Repository {
	return &Repository{
		db: db,
	}
}

// Append joins the unit of work carried by ctx, so an entry appended while
// a trip is returned rolls back with the return.
func (r *Repository) Append(ctx context.Context, e Entry) error {
	return txn.Run(ctx, r.db, func(q sqlx.ExtContext) error {
		if _, err := sqlx.NamedExecContext(ctx, q, insertEntryQuery, e); err != nil {
			return err
		}
		_, err := q.ExecContext(ctx, addToBalanceQuery, e.RiderID, e.Total)
		return err
	})
}

const insertEntryQuery = `
INSERT INTO ledger_entries (id, rider_id, bike_id, plan_version_id, plan_name, charges, total, status,
                            adjustment_of, summary, created_at)
VALUES (:id, :rider_id, :bike_id, :plan_version_id, :plan_name, :charges, :total, :status,
        :adjustment_of, :summary, :created_at)
`

const addToBalanceQuery = `
INSERT INTO ledger_balances (rider_id, pending_balance) VALUES ($1, $2)
ON CONFLICT (rider_id) DO UPDATE SET pending_balance = ledger_balances.pending_balance + EXCLUDED.pending_balance
`

func (r *Repository) Get(ctx context.Context, id uuid.UUID) (Entry, error) {
	return getEntry(ctx, txn.Ext(ctx, r.db), id)
}

func getEntry(ctx context.Context, q sqlx.QueryerContext, id uuid.UUID) (Entry, error) {
	var e Entry
	err := sqlx.GetContext(ctx, q, &e, getEntryQuery, id)
	if errors.Is(err, sql.ErrNoRows) {
		return e, ErrEntryNotFound
	}
	return e, err
}

const getEntryQuery = `SELECT * FROM ledger_entries WHERE id = $1`

func (r *Repository) Settle(ctx context.Context, id uuid.UUID, charge func(Entry) Outcome) (Entry, error) {
	var settled Entry
	err := txn.Run(ctx, r.db, func(q sqlx.ExtContext) error {
		var e Entry
		err := sqlx.GetContext(ctx, q, &e, getEntryForUpdateQuery, id)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrEntryNotFound
		}
		if err != nil {
			return err
		}
		if !e.Settleable() {
			return ErrNotSettleable
		}

		o := charge(e)
		if o.Paid {
			err = sqlx.GetContext(ctx, q, &settled, markPaidQuery, id, o.Reference, o.ProcessedAt)
		} else {
			err = sqlx.GetContext(ctx, q, &settled, markFailedQuery, id, o.FailureReason, o.ProcessedAt)
		}
		if err != nil {
			return err
		}
		if o.Paid {
			_, err = q.ExecContext(ctx, addToBalanceQuery, e.RiderID, e.Total.Neg())
		}
		return err
	})
	if err != nil {
		return Entry{}, err
	}
	return settled, nil
}

const getEntryForUpdateQuery = `SELECT * FROM ledger_entries WHERE id = $1 FOR UPDATE`

const markPaidQuery = `
UPDATE ledger_entries
SET status = 'PAID', payment_reference = $2, payment_processed_at = $3, failure_reason = NULL,
    settle_attempts = settle_attempts + 1
WHERE id = $1
RETURNING *
`

const markFailedQuery = `
UPDATE ledger_entries
SET status = 'FAILED', failure_reason = $2, payment_processed_at = $3,
    settle_attempts = settle_attempts + 1
WHERE id = $1
RETURNING *
`

func (r *Repository) History(ctx context.Context, riderID uuid.UUID, from, to time.Time) ([]Entry, error) {
	var entries []Entry
	err := sqlx.SelectContext(ctx, txn.Ext(ctx, r.db), &entries, historyQuery, riderID, from, to)
	return entries, err
}

const historyQuery = `
SELECT * FROM ledger_entries
WHERE rider_id = $1 AND created_at >= $2 AND created_at < $3
ORDER BY created_at DESC
`

func (r *Repository) Balance(ctx context.Context, riderID uuid.UUID) (decimal.Decimal, error) {
	var balance decimal.Decimal
	err := sqlx.GetContext(ctx, txn.Ext(ctx, r.db), &balance, balanceQuery, riderID)
	if errors.Is(err, sql.ErrNoRows) {
		return decimal.Zero, nil
	}
	return balance, err
}

const balanceQuery = `SELECT pending_balance FROM ledger_balances WHERE rider_id = $1`

var (
	_ Store = (*Repository)(nil)
	_ Store = (*MemoryStore)(nil)
)
