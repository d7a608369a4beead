package bike

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// Repository reads and writes bikes. It works on either a *sqlx.DB or a
// *sqlx.Tx so the fleet store can compose it inside a transaction.
type Repository struct {
	db sqlx.ExtContext
}

func NewRepository(db sqlx.ExtContext) *Repository {
	return &Repository{db: db}
}

func (r *Repository) GetBikes(ctx context.Context) ([]Bike, error) {
	var bikes []Bike
	err := sqlx.SelectContext(ctx, r.db, &bikes, getBikes)
	return bikes, err
}

const getBikes = `SELECT * FROM bikes ORDER BY label`

func (r *Repository) GetBikesAtStation(ctx context.Context, stationID uuid.UUID) ([]Bike, error) {
	var bikes []Bike
	err := sqlx.SelectContext(ctx, r.db, &bikes, getBikesAtStation, stationID)
	return bikes, err
}

const getBikesAtStation = `SELECT * FROM bikes WHERE station_id = $1 ORDER BY label`

func (r *Repository) GetBike(ctx context.Context, id uuid.UUID) (Bike, error) {
	return r.getOne(ctx, getBike, id)
}

const getBike = `SELECT * FROM bikes WHERE id = $1`

// GetBikeForUpdate locks the bike row until the surrounding transaction ends.
func (r *Repository) GetBikeForUpdate(ctx context.Context, id uuid.UUID) (Bike, error) {
	return r.getOne(ctx, getBikeForUpdate, id)
}

const getBikeForUpdate = `SELECT * FROM bikes WHERE id = $1 FOR UPDATE`

// AvailableForUpdate locks the AVAILABLE bikes at a station in label order,
// skipping bikes other transactions are already working on.
func (r *Repository) AvailableForUpdate(ctx context.Context, stationID uuid.UUID) ([]Bike, error) {
	var bikes []Bike
	err := sqlx.SelectContext(ctx, r.db, &bikes, availableForUpdate, stationID)
	return bikes, err
}

const availableForUpdate = `
SELECT * FROM bikes
WHERE station_id = $1 AND status = 'AVAILABLE'
ORDER BY label
FOR UPDATE SKIP LOCKED
`

// GetReservedByForUpdate locks the bike riderID holds a reservation on.
func (r *Repository) GetReservedByForUpdate(ctx context.Context, riderID uuid.UUID) (Bike, error) {
	return r.getOne(ctx, getReservedByForUpdate, riderID)
}

const getReservedByForUpdate = `SELECT * FROM bikes WHERE reserved_by = $1 AND status = 'RESERVED' FOR UPDATE`

func (r *Repository) GetRiddenBy(ctx context.Context, riderID uuid.UUID) (Bike, error) {
	return r.getOne(ctx, getRiddenBy, riderID)
}

const getRiddenBy = `SELECT * FROM bikes WHERE current_rider = $1 AND status = 'IN_USE'`

// ExpiredReservationsForUpdate locks every RESERVED bike whose hold lapsed
// before now. Rows locked by an in-flight checkout are skipped and picked up
// by the next sweep.
func (r *Repository) ExpiredReservationsForUpdate(ctx context.Context, now time.Time) ([]Bike, error) {
	var bikes []Bike
	err := sqlx.SelectContext(ctx, r.db, &bikes, expiredReservationsForUpdate, now)
	return bikes, err
}

const expiredReservationsForUpdate = `
SELECT * FROM bikes
WHERE status = 'RESERVED' AND reservation_expires_at < $1
ORDER BY id
FOR UPDATE SKIP LOCKED
`

func (r *Repository) Insert(ctx context.Context, b Bike) error {
	_, err := sqlx.NamedExecContext(ctx, r.db, insertBike, b)
	return err
}

const insertBike = `
INSERT INTO bikes (id, label, type, status, station_id, current_rider, reserved_by, reserved_at,
                   reservation_expires_at, battery_level, last_maintenance)
VALUES (:id, :label, :type, :status, :station_id, :current_rider, :reserved_by, :reserved_at,
        :reservation_expires_at, :battery_level, :last_maintenance)
`

func (r *Repository) Update(ctx context.Context, b Bike) error {
	res, err := sqlx.NamedExecContext(ctx, r.db, updateBike, b)
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

const updateBike = `
UPDATE bikes SET
    type = :type,
    status = :status,
    station_id = :station_id,
    current_rider = :current_rider,
    reserved_by = :reserved_by,
    reserved_at = :reserved_at,
    reservation_expires_at = :reservation_expires_at,
    battery_level = :battery_level,
    last_maintenance = :last_maintenance
WHERE id = :id
`

func (r *Repository) getOne(ctx context.Context, query string, args ...any) (Bike, error) {
	var b Bike
	err := sqlx.GetContext(ctx, r.db, &b, query, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return b, ErrNotFound
	}
	return b, err
}
