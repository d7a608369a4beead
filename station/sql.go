package station

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

type Repository struct {
	db sqlx.ExtContext
}

func NewRepository(db sqlx.ExtContext) *Repository {
	return &Repository{
		db: db,
	}
}

func (r *Repository) GetStations(ctx context.Context) ([]Station, error) {
	var stations []Station
	err := sqlx.SelectContext(ctx, r.db, &stations, getStations)
	return stations, err
}

const getStations = `SELECT * FROM stations ORDER BY name`

func (r *Repository) GetStation(ctx context.Context, id uuid.UUID) (Station, error) {
	return r.getOne(ctx, getStation, id)
}

const getStation = `SELECT * FROM stations WHERE id = $1`

func (r *Repository) GetStationForUpdate(ctx context.Context, id uuid.UUID) (Station, error) {
	return r.getOne(ctx, getStationForUpdate, id)
}

const getStationForUpdate = `SELECT * FROM stations WHERE id = $1 FOR UPDATE`

func (r *Repository) Insert(ctx context.Context, s Station) error {
	_, err := sqlx.NamedExecContext(ctx, r.db, insertStation, s)
	return err
}

const insertStation = `
INSERT INTO stations (id, name, address, city_id, location, capacity, current_bike_count, status)
VALUES (:id, :name, :address, :city_id, :location, :capacity, :current_bike_count, :status)
`

func (r *Repository) Update(ctx context.Context, s Station) error {
	res, err := sqlx.NamedExecContext(ctx, r.db, updateStation, s)
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

// The CHECK constraint on current_bike_count backs the occupancy invariant
// at the storage level as well.
const updateStation = `
UPDATE stations SET
    name = :name,
    address = :address,
    city_id = :city_id,
    capacity = :capacity,
    current_bike_count = :current_bike_count,
    status = :status
WHERE id = :id
`

func (r *Repository) getOne(ctx context.Context, query string, args ...any) (Station, error) {
	var s Station
	err := sqlx.GetContext(ctx, r.db, &s, query, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return s, ErrNotFound
	}
	return s, err
}
