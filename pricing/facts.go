package pricing

import (
	"time"

	"github.com/google/uuid"

	"github.com/semanticallynull/bikeshare-backend/customer"
)

// TripFacts is everything the engine needs to know about a finished trip.
type TripFacts struct {
	BikeID         uuid.UUID
	RiderID        uuid.UUID
	StartStationID uuid.UUID
	EndStationID   uuid.UUID
	StartTime      time.Time
	EndTime        time.Time
	EBike          bool
	DistanceKm     float64
	Membership     customer.Tier
	CityID         string
}

// DurationMinutes is the whole number of minutes between start and end,
// never negative.
func (f TripFacts) DurationMinutes() int64 {
	if f.StartTime.IsZero() || f.EndTime.IsZero() {
		return 0
	}
	return max(0, int64(f.EndTime.Sub(f.StartTime)/time.Minute))
}
