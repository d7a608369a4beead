package ride

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/semanticallynull/bikeshare-backend/bike"
	"github.com/semanticallynull/bikeshare-backend/event"
	"github.com/semanticallynull/bikeshare-backend/station"
)

// Fleet is the read side of the fleet service the ride package needs. Reads
// go through the unit of work carried by ctx.
type Fleet interface {
	Bike(ctx context.Context, id uuid.UUID) (bike.Bike, error)
	Station(ctx context.Context, id uuid.UUID) (station.Station, error)
}

// Recorder keeps ride history in step with the trip events on the bus.
type Recorder struct {
	rides  Store
	fleet  Fleet
	logger *slog.Logger
}

func NewRecorder(rides Store, fleet Fleet, logger *slog.Logger) *Recorder {
	return &Recorder{
		rides:  rides,
		fleet:  fleet,
		logger: logger.With("component", "ride-recorder"),
	}
}

func (r *Recorder) Handle(ctx context.Context, e event.Event) error {
	switch ev := e.(type) {
	case event.TripStarted:
		return r.started(ctx, ev)
	case event.TripPriced:
		return r.priced(ctx, ev)
	case event.BikeMoved:
		r.logger.InfoContext(ctx, "bike moved",
			"bike_id", ev.BikeID, "new_station_id", ev.NewStationID, "operator_id", ev.OperatorID)
	}
	return nil
}

func (r *Recorder) started(ctx context.Context, ev event.TripStarted) error {
	b, err := r.fleet.Bike(ctx, ev.BikeID)
	if err != nil {
		return fmt.Errorf("load bike %s: %w", ev.BikeID, err)
	}
	return r.rides.Start(ctx, Ride{
		ID:             uuid.New(),
		BikeID:         ev.BikeID,
		BikeType:       b.Type,
		RiderID:        ev.RiderID,
		StartStationID: ev.StationID,
		StartedAt:      ev.OccurredAt,
		Cost:           decimal.Zero,
		Status:         StatusInProgress,
	})
}

func (r *Recorder) priced(ctx context.Context, ev event.TripPriced) error {
	open, err := r.rides.InProgress(ctx, ev.BikeID, ev.RiderID)
	if errors.Is(err, ErrNotFound) {
		r.logger.WarnContext(ctx, "priced trip has no ride in progress", "bike_id", ev.BikeID, "rider_id", ev.RiderID)
		return nil
	}
	if err != nil {
		return err
	}
	_, err = r.rides.Complete(ctx, open.ID, Completion{
		EndStationID:    ev.ReturnStationID,
		EndedAt:         ev.OccurredAt,
		DurationMinutes: ev.DurationMinutes,
		DistanceKm:      ev.DistanceKm,
		Cost:            ev.Cost,
		LedgerEntryID:   ev.LedgerEntryID,
	})
	return err
}
