package ride

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

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

func (r *Repository) Start(ctx context.Context, ride Ride) error {
	return txn.Run(ctx, r.db, func(q sqlx.ExtContext) error {
		var open uuid.UUID
		err := sqlx.GetContext(ctx, q, &open, verifyNoRides, ride.BikeID)
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return err
		}
		if open != uuid.Nil {
			return ErrRideInProgress
		}

		_, err = sqlx.NamedExecContext(ctx, q, startRideQuery, ride)
		return err
	})
}

const verifyNoRides = `SELECT id FROM rides WHERE bike_id = $1 AND status = 'IN_PROGRESS' FOR UPDATE`

const startRideQuery = `
INSERT INTO rides (id, bike_id, bike_type, rider_id, start_station_id, started_at, cost, status)
VALUES (:id, :bike_id, :bike_type, :rider_id, :start_station_id, :started_at, :cost, :status)
`

func (r *Repository) Get(ctx context.Context, id uuid.UUID) (Ride, error) {
	return r.getOne(ctx, getRideQuery, id)
}

const getRideQuery = `SELECT * FROM rides WHERE id = $1`

func (r *Repository) InProgress(ctx context.Context, bikeID, riderID uuid.UUID) (Ride, error) {
	return r.getOne(ctx, inProgressQuery, bikeID, riderID)
}

const inProgressQuery = `SELECT * FROM rides WHERE bike_id = $1 AND rider_id = $2 AND status = 'IN_PROGRESS'`

func (r *Repository) Current(ctx context.Context, riderID uuid.UUID) (Ride, error) {
	return r.getOne(ctx, currentQuery, riderID)
}

const currentQuery = `SELECT * FROM rides WHERE rider_id = $1 AND status = 'IN_PROGRESS' ORDER BY started_at DESC LIMIT 1`

func (r *Repository) Complete(ctx context.Context, id uuid.UUID, c Completion) (Ride, error) {
	return r.getOne(ctx, completeQuery, id, c.EndStationID, c.EndedAt, c.DurationMinutes, c.DistanceKm, c.Cost, c.LedgerEntryID)
}

const completeQuery = `
UPDATE rides SET
    end_station_id = $2,
    ended_at = $3,
    duration_minutes = $4,
    distance_km = $5,
    cost = $6,
    ledger_entry_id = $7,
    status = 'COMPLETED'
WHERE id = $1 AND status = 'IN_PROGRESS'
RETURNING *
`

func (r *Repository) History(ctx context.Context, f Filter) ([]Ride, error) {
	query, args := historyQuery(f)
	rides := []Ride{}
	err := sqlx.SelectContext(ctx, txn.Ext(ctx, r.db), &rides, query, args...)
	return rides, err
}

// historyQuery builds the filtered select with positional arguments.
func historyQuery(f Filter) (string, []any) {
	var (
		where []string
		args  []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if f.RiderID != nil {
		where = append(where, "rider_id = "+arg(*f.RiderID))
	}
	if f.BikeID != nil {
		where = append(where, "bike_id = "+arg(*f.BikeID))
	}
	if !f.From.IsZero() {
		where = append(where, "started_at >= "+arg(f.From))
	}
	if !f.To.IsZero() {
		where = append(where, "started_at < "+arg(f.To))
	}
	if f.Status != "" {
		where = append(where, "status = "+arg(f.Status))
	}
	if f.BikeType != "" {
		where = append(where, "bike_type = "+arg(f.BikeType))
	}
	if f.StationID != nil {
		p := arg(*f.StationID)
		if f.StartStationOnly {
			where = append(where, "start_station_id = "+p)
		} else {
			where = append(where, "(start_station_id = "+p+" OR end_station_id = "+p+")")
		}
	}

	var b strings.Builder
	b.WriteString("SELECT * FROM rides")
	if len(where) > 0 {
		b.WriteString(" WHERE ")
		b.WriteString(strings.Join(where, " AND "))
	}
	b.WriteString(" ORDER BY started_at DESC, id")
	if f.Size > 0 {
		b.WriteString(" LIMIT " + arg(f.Size))
		b.WriteString(" OFFSET " + arg(f.Page*f.Size))
	}
	return b.String(), args
}

func (r *Repository) getOne(ctx context.Context, query string, args ...any) (Ride, error) {
	var ride Ride
	err := sqlx.GetContext(ctx, txn.Ext(ctx, r.db), &ride, query, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return ride, ErrNotFound
	}
	return ride, err
}
