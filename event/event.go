// Package event is a synchronous in-process publish/subscribe bus connecting
// fleet transitions to billing, history and dashboard subscribers.
package event

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Type string

const (
	TypeBikeReserved         Type = "BikeReserved"
	TypeReservationExpired   Type = "ReservationExpired"
	TypeTripStarted          Type = "TripStarted"
	TypeTripEnded            Type = "TripEnded"
	TypeTripPriced           Type = "TripPriced"
	TypeBikeMoved            Type = "BikeMoved"
	TypeStationStatusChanged Type = "StationStatusChanged"
	TypeBikeMaintenance      Type = "BikeMaintenance"
)

// Event is implemented by every value published on the Bus. Events are
// values: subscribers receive a copy and cannot change what later
// subscribers see.
type Event interface {
	EventType() Type
	Meta() Header
}

type Header struct {
	ID         uuid.UUID `json:"id"`
	OccurredAt time.Time `json:"occurredAt"`
}

func NewHeader(at time.Time) Header {
	return Header{ID: uuid.New(), OccurredAt: at}
}

func (h Header) Meta() Header { return h }

type BikeReserved struct {
	Header
	BikeID    uuid.UUID `json:"bikeId"`
	RiderID   uuid.UUID `json:"riderId"`
	StationID uuid.UUID `json:"stationId"`
	ExpiresAt time.Time `json:"expiresAt"`
}

func (BikeReserved) EventType() Type { return TypeBikeReserved }

type ReservationExpired struct {
	Header
	BikeID    uuid.UUID `json:"bikeId"`
	RiderID   uuid.UUID `json:"riderId"`
	StationID uuid.UUID `json:"stationId"`
}

func (ReservationExpired) EventType() Type { return TypeReservationExpired }

type TripStarted struct {
	Header
	BikeID    uuid.UUID `json:"bikeId"`
	RiderID   uuid.UUID `json:"riderId"`
	StationID uuid.UUID `json:"stationId"`
}

func (TripStarted) EventType() Type { return TypeTripStarted }

// TripEnded carries the raw trip measurements. The price is published
// separately as TripPriced once the ledger entry exists.
type TripEnded struct {
	Header
	BikeID          uuid.UUID `json:"bikeId"`
	RiderID         uuid.UUID `json:"riderId"`
	ReturnStationID uuid.UUID `json:"returnStationId"`
	DurationMinutes float64   `json:"durationMinutes"`
	DistanceKm      float64   `json:"distanceKm"`
}

func (TripEnded) EventType() Type { return TypeTripEnded }

type TripPriced struct {
	Header
	BikeID          uuid.UUID       `json:"bikeId"`
	RiderID         uuid.UUID       `json:"riderId"`
	ReturnStationID uuid.UUID       `json:"returnStationId"`
	LedgerEntryID   uuid.UUID       `json:"ledgerEntryId"`
	PlanName        string          `json:"planName"`
	DurationMinutes float64         `json:"durationMinutes"`
	DistanceKm      float64         `json:"distanceKm"`
	Cost            decimal.Decimal `json:"cost"`
}

func (TripPriced) EventType() Type { return TypeTripPriced }

type BikeMoved struct {
	Header
	BikeID       uuid.UUID  `json:"bikeId"`
	OldStationID *uuid.UUID `json:"oldStationId"`
	NewStationID uuid.UUID  `json:"newStationId"`
	OperatorID   uuid.UUID  `json:"operatorId"`
}

func (BikeMoved) EventType() Type { return TypeBikeMoved }

type StationStatusChanged struct {
	Header
	StationID uuid.UUID `json:"stationId"`
	OldStatus string    `json:"oldStatus"`
	NewStatus string    `json:"newStatus"`
}

func (StationStatusChanged) EventType() Type { return TypeStationStatusChanged }

// BikeMaintenance is published when a bike enters or leaves MAINTENANCE.
type BikeMaintenance struct {
	Header
	BikeID    uuid.UUID `json:"bikeId"`
	StationID uuid.UUID `json:"stationId"`
	Completed bool      `json:"completed"`
}

func (BikeMaintenance) EventType() Type { return TypeBikeMaintenance }
