package fleet

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/semanticallynull/bikeshare-backend/bike"
	"github.com/semanticallynull/bikeshare-backend/station"
)

// Tx is one unit of work over bikes and stations. The locking getters
// serialize every other unit of work that touches the same row until the
// unit ends; the View getters do not lock.
type Tx interface {
	Bike(ctx context.Context, id uuid.UUID) (bike.Bike, error)
	Station(ctx context.Context, id uuid.UUID) (station.Station, error)
	ViewBike(ctx context.Context, id uuid.UUID) (bike.Bike, error)
	ViewStation(ctx context.Context, id uuid.UUID) (station.Station, error)

	// Available returns the AVAILABLE bikes docked at a station in label order.
	Available(ctx context.Context, stationID uuid.UUID) ([]bike.Bike, error)
	// ReservedBy returns bike.ErrNotFound when the rider holds no reservation.
	ReservedBy(ctx context.Context, riderID uuid.UUID) (bike.Bike, error)
	// RiddenBy returns bike.ErrNotFound when the rider has no bike in use.
	RiddenBy(ctx context.Context, riderID uuid.UUID) (bike.Bike, error)
	ExpiredReservations(ctx context.Context, now time.Time) ([]bike.Bike, error)

	InsertBike(ctx context.Context, b bike.Bike) error
	SaveBike(ctx context.Context, b bike.Bike) error
	InsertStation(ctx context.Context, s station.Station) error
	SaveStation(ctx context.Context, s station.Station) error
}

// Store runs units of work. If fn returns an error nothing it wrote is kept.
type Store interface {
	Atomic(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error

	Bikes(ctx context.Context) ([]bike.Bike, error)
	BikesAtStation(ctx context.Context, stationID uuid.UUID) ([]bike.Bike, error)
	Stations(ctx context.Context) ([]station.Station, error)
}

type txKey struct{}

func withTx(ctx context.Context, tx Tx) context.Context {
	return context.WithValue(ctx, txKey{}, tx)
}

func txFrom(ctx context.Context) (Tx, bool) {
	tx, ok := ctx.Value(txKey{}).(Tx)
	return tx, ok
}
