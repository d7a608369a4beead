// Package ride keeps the rider-facing trip history and turns a finished trip
// into the facts the pricing engine bills.
package ride

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/semanticallynull/bikeshare-backend/bike"
	"github.com/semanticallynull/bikeshare-backend/internal/domainerr"
)

type Status string

const (
	StatusInProgress Status = "IN_PROGRESS"
	StatusCompleted  Status = "COMPLETED"
)

var (
	ErrNotFound       = domainerr.NotFound("RIDE_NOT_FOUND", "ride not found")
	ErrRideInProgress = domainerr.Conflict("RIDE_IN_PROGRESS", "bike already has a ride in progress")
)

type Ride struct {
	ID             uuid.UUID  `db:"id" json:"id"`
	BikeID         uuid.UUID  `db:"bike_id" json:"bikeId"`
	BikeType       bike.Type  `db:"bike_type" json:"bikeType"`
	RiderID        uuid.UUID  `db:"rider_id" json:"riderId"`
	StartStationID uuid.UUID  `db:"start_station_id" json:"startStationId"`
	EndStationID   *uuid.UUID `db:"end_station_id" json:"endStationId,omitempty"`
	StartedAt      time.Time  `db:"started_at" json:"startedAt"`
	EndedAt        *time.Time `db:"ended_at" json:"endedAt,omitempty"`

	DurationMinutes float64         `db:"duration_minutes" json:"durationMinutes"`
	DistanceKm      float64         `db:"distance_km" json:"distanceKm"`
	Cost            decimal.Decimal `db:"cost" json:"cost"`
	LedgerEntryID   *uuid.UUID      `db:"ledger_entry_id" json:"ledgerEntryId,omitempty"`
	Status          Status          `db:"status" json:"status"`
}

// Completion is what a priced trip adds to its ride.
type Completion struct {
	EndStationID    uuid.UUID
	EndedAt         time.Time
	DurationMinutes float64
	DistanceKm      float64
	Cost            decimal.Decimal
	LedgerEntryID   uuid.UUID
}

func (r *Ride) complete(c Completion) {
	r.EndStationID = &c.EndStationID
	r.EndedAt = &c.EndedAt
	r.DurationMinutes = c.DurationMinutes
	r.DistanceKm = c.DistanceKm
	r.Cost = c.Cost
	r.LedgerEntryID = &c.LedgerEntryID
	r.Status = StatusCompleted
}
