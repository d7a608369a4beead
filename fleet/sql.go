package fleet

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jmoiron/sqlx"

	"github.com/semanticallynull/bikeshare-backend/bike"
	"github.com/semanticallynull/bikeshare-backend/internal/txn"
	"github.com/semanticallynull/bikeshare-backend/station"
)

// Constraint names from the schema migrations.
const (
	oneReservationPerRider = "bikes_one_reservation_per_rider"
	oneBikeInUsePerRider   = "bikes_one_ride_per_rider"
	countWithinCapacity    = "stations_count_within_capacity"
	pgUniqueViolation      = "23505"
	pgCheckViolation       = "23514"
)

// PostgresStore runs each unit of work in one database transaction and
// serializes on bike and station rows with SELECT ... FOR UPDATE.
type PostgresStore struct {
	db       *sqlx.DB
	bikes    *bike.Repository
	stations *station.Repository
}

func NewPostgresStore(db *sqlx.DB) *PostgresStore {
	return &PostgresStore{
		db:       db,
		bikes:    bike.NewRepository(db),
		stations: station.NewRepository(db),
	}
}

func (s *PostgresStore) Atomic(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	ptx := &postgresTx{
		bikes:    bike.NewRepository(tx),
		stations: station.NewRepository(tx),
	}
	// Ride and ledger writes made by subscribers commit or roll back with
	// the bikes and stations.
	if err := fn(txn.WithSQL(ctx, tx), ptx); err != nil {
		return translate(err)
	}
	return translate(tx.Commit())
}

func (s *PostgresStore) Bikes(ctx context.Context) ([]bike.Bike, error) {
	return s.bikes.GetBikes(ctx)
}

func (s *PostgresStore) BikesAtStation(ctx context.Context, stationID uuid.UUID) ([]bike.Bike, error) {
	return s.bikes.GetBikesAtStation(ctx, stationID)
}

func (s *PostgresStore) Stations(ctx context.Context) ([]station.Station, error) {
	return s.stations.GetStations(ctx)
}

// translate turns the schema's last-line-of-defence constraints into the
// same errors the service raises itself.
func translate(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}
	switch {
	case pgErr.Code == pgUniqueViolation && pgErr.ConstraintName == oneReservationPerRider:
		return ErrAlreadyReserved
	case pgErr.Code == pgUniqueViolation && pgErr.ConstraintName == oneBikeInUsePerRider:
		return ErrRiderBusy
	case pgErr.Code == pgCheckViolation && pgErr.ConstraintName == countWithinCapacity:
		return ErrStationFull
	}
	return err
}

type postgresTx struct {
	bikes    *bike.Repository
	stations *station.Repository
}

func (tx *postgresTx) Bike(ctx context.Context, id uuid.UUID) (bike.Bike, error) {
	return tx.bikes.GetBikeForUpdate(ctx, id)
}

func (tx *postgresTx) Station(ctx context.Context, id uuid.UUID) (station.Station, error) {
	return tx.stations.GetStationForUpdate(ctx, id)
}

func (tx *postgresTx) ViewBike(ctx context.Context, id uuid.UUID) (bike.Bike, error) {
	return tx.bikes.GetBike(ctx, id)
}

func (tx *postgresTx) ViewStation(ctx context.Context, id uuid.UUID) (station.Station, error) {
	return tx.stations.GetStation(ctx, id)
}

func (tx *postgresTx) Available(ctx context.Context, stationID uuid.UUID) ([]bike.Bike, error) {
	return tx.bikes.AvailableForUpdate(ctx, stationID)
}

func (tx *postgresTx) ReservedBy(ctx context.Context, riderID uuid.UUID) (bike.Bike, error) {
	return tx.bikes.GetReservedByForUpdate(ctx, riderID)
}

func (tx *postgresTx) RiddenBy(ctx context.Context, riderID uuid.UUID) (bike.Bike, error) {
	return tx.bikes.GetRiddenBy(ctx, riderID)
}

func (tx *postgresTx) ExpiredReservations(ctx context.Context, now time.Time) ([]bike.Bike, error) {
	return tx.bikes.ExpiredReservationsForUpdate(ctx, now)
}

func (tx *postgresTx) InsertBike(ctx context.Context, b bike.Bike) error {
	return tx.bikes.Insert(ctx, b)
}

func (tx *postgresTx) SaveBike(ctx context.Context, b bike.Bike) error {
	return tx.bikes.Update(ctx, b)
}

func (tx *postgresTx) InsertStation(ctx context.Context, s station.Station) error {
	return tx.stations.Insert(ctx, s)
}

func (tx *postgresTx) SaveStation(ctx context.Context, s station.Station) error {
	return tx.stations.Update(ctx, s)
}

var (
	_ Store = (*PostgresStore)(nil)
	_ Store = (*MemoryStore)(nil)
)
