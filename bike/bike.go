// Package bike
package bike

import (
	"time"

	"github.com/google/uuid"

	"github.com/semanticallynull/bikeshare-backend/internal/domainerr"
)

type Type string

const (
	Standard Type = "STANDARD"
	EBike    Type = "E_BIKE"
)

type Status string

const (
	StatusAvailable   Status = "AVAILABLE"
	StatusReserved    Status = "RESERVED"
	StatusInUse       Status = "IN_USE"
	StatusMaintenance Status = "MAINTENANCE"
)

var (
	ErrNotFound    = domainerr.NotFound("BIKE_NOT_FOUND", "bike not found")
	ErrUnknownType = domainerr.Validation("INVALID_BIKE_TYPE", "unknown bike type")
)

// Bike represents a bike docked at, reserved from, or ridden away from a station.
type Bike struct {
	// ID is an internal identifier for a bike
	ID uuid.UUID `db:"id"`
	// Label is a physical label which is on the bike (e.g. "EBIKE-123").
	Label  string `db:"label"`
	Type   Type   `db:"type"`
	Status Status `db:"status"`

	StationID    *uuid.UUID `db:"station_id"`
	CurrentRider *uuid.UUID `db:"current_rider"`

	ReservedBy           *uuid.UUID `db:"reserved_by"`
	ReservedAt           *time.Time `db:"reserved_at"`
	ReservationExpiresAt *time.Time `db:"reservation_expires_at"`

	// BatteryLevel is a percentage and only meaningful for e-bikes.
	BatteryLevel    int        `db:"battery_level"`
	LastMaintenance *time.Time `db:"last_maintenance"`
}

// New builds an AVAILABLE bike of the given type docked at stationID.
func New(t Type, label string, stationID uuid.UUID) (Bike, error) {
	if _, ok := capabilities[t]; !ok {
		return Bike{}, ErrUnknownType
	}
	b := Bike{
		ID:        uuid.New(),
		Label:     label,
		Type:      t,
		Status:    StatusAvailable,
		StationID: &stationID,
	}
	if t == EBike {
		b.BatteryLevel = 100
	}
	return b, nil
}

func (b Bike) IsEBike() bool {
	return b.Type == EBike
}

func (b Bike) CanCheckout() bool {
	return capabilityOf(b.Type).canCheckout(b)
}

func (b Bike) NeedsMaintenance(now time.Time) bool {
	return capabilityOf(b.Type).needsMaintenance(b, now)
}

// PerformMaintenance services the bike and makes it AVAILABLE again.
func (b *Bike) PerformMaintenance(now time.Time) {
	capabilityOf(b.Type).performMaintenance(b, now)
}

// Reserve marks the bike RESERVED by riderID until now+ttl.
func (b *Bike) Reserve(riderID uuid.UUID, now time.Time, ttl time.Duration) {
	expires := now.Add(ttl)
	b.Status = StatusReserved
	b.ReservedBy = &riderID
	b.ReservedAt = &now
	b.ReservationExpiresAt = &expires
}

// CancelReservation puts a RESERVED bike back to AVAILABLE. It is a no-op for
// any other status.
func (b *Bike) CancelReservation() {
	if b.Status != StatusReserved {
		return
	}
	b.Status = StatusAvailable
	b.clearReservation()
}

func (b *Bike) Checkout(riderID uuid.UUID) {
	b.Status = StatusInUse
	b.CurrentRider = &riderID
	b.clearReservation()
}

func (b *Bike) Return(stationID uuid.UUID) {
	b.Status = StatusAvailable
	b.StationID = &stationID
	b.CurrentRider = nil
}

func (b *Bike) clearReservation() {
	b.ReservedBy = nil
	b.ReservedAt = nil
	b.ReservationExpiresAt = nil
}

// ReservationExpired reports whether a RESERVED bike's hold has lapsed at now.
func (b Bike) ReservationExpired(now time.Time) bool {
	return b.Status == StatusReserved &&
		b.ReservationExpiresAt != nil &&
		now.After(*b.ReservationExpiresAt)
}

// IsReservedBy reports whether riderID currently holds this bike's reservation.
func (b Bike) IsReservedBy(riderID uuid.UUID) bool {
	return b.Status == StatusReserved && b.ReservedBy != nil && *b.ReservedBy == riderID
}

// IsRiddenBy reports whether riderID is currently riding this bike.
func (b Bike) IsRiddenBy(riderID uuid.UUID) bool {
	return b.Status == StatusInUse && b.CurrentRider != nil && *b.CurrentRider == riderID
}

// Consistent checks that the reservation and rider fields agree with Status.
func (b Bike) Consistent() bool {
	reservation := b.ReservedBy != nil || b.ReservedAt != nil || b.ReservationExpiresAt != nil
	switch b.Status {
	case StatusReserved:
		return b.ReservedBy != nil && b.ReservationExpiresAt != nil && b.CurrentRider == nil
	case StatusInUse:
		return b.CurrentRider != nil && !reservation
	default:
		return b.CurrentRider == nil && !reservation
	}
}
