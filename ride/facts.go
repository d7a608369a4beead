package ride

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/semanticallynull/bikeshare-backend/customer"
	"github.com/semanticallynull/bikeshare-backend/event"
	"github.com/semanticallynull/bikeshare-backend/pricing"
)

type Customers interface {
	GetCustomer(ctx context.Context, id uuid.UUID) (customer.Customer, error)
}

// FactsBuilder gathers what the pricing engine needs about a trip that just
// ended: when and where it started, the bike type, the rider's membership and
// the city the trip started in.
type FactsBuilder struct {
	fleet     Fleet
	customers Customers
	rides     Store
}

func NewFactsBuilder(fleet Fleet, customers Customers, rides Store) *FactsBuilder {
	return &FactsBuilder{
		fleet:     fleet,
		customers: customers,
		rides:     rides,
	}
}

// BilledMinutes rounds a reported duration up to whole minutes, at least one.
func BilledMinutes(durationMinutes float64) int64 {
	return max(1, int64(math.Ceil(durationMinutes)))
}

func (f *FactsBuilder) Build(ctx context.Context, ev event.TripEnded) (pricing.TripFacts, error) {
	billed := time.Duration(BilledMinutes(ev.DurationMinutes)) * time.Minute

	// Without a recorded ride the trip is assumed to have started at the
	// return station, billed minutes before it ended.
	startStationID := ev.ReturnStationID
	startTime := ev.OccurredAt.Add(-billed)
	open, err := f.rides.InProgress(ctx, ev.BikeID, ev.RiderID)
	switch {
	case err == nil:
		startStationID = open.StartStationID
		startTime = open.StartedAt
	case !errors.Is(err, ErrNotFound):
		return pricing.TripFacts{}, err
	}

	b, err := f.fleet.Bike(ctx, ev.BikeID)
	if err != nil {
		return pricing.TripFacts{}, fmt.Errorf("load bike %s: %w", ev.BikeID, err)
	}
	st, err := f.fleet.Station(ctx, startStationID)
	if err != nil {
		return pricing.TripFacts{}, fmt.Errorf("load station %s: %w", startStationID, err)
	}

	membership := customer.TierNone
	c, err := f.customers.GetCustomer(ctx, ev.RiderID)
	switch {
	case err == nil:
		membership = c.Membership
	case !errors.Is(err, customer.ErrNotFound):
		return pricing.TripFacts{}, err
	}

	return pricing.TripFacts{
		BikeID:         ev.BikeID,
		RiderID:        ev.RiderID,
		StartStationID: startStationID,
		EndStationID:   ev.ReturnStationID,
		StartTime:      startTime,
		EndTime:        startTime.Add(billed),
		EBike:          b.IsEBike(),
		DistanceKm:     ev.DistanceKm,
		Membership:     membership,
		CityID:         st.CityID,
	}, nil
}
