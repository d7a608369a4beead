// Package billing prices finished trips. It subscribes to TripEnded, builds
// the trip facts, prices them, appends the ledger entry and publishes
// TripPriced. Any failure aborts the return that published TripEnded.
package billing

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/semanticallynull/bikeshare-backend/event"
	"github.com/semanticallynull/bikeshare-backend/ledger"
	"github.com/semanticallynull/bikeshare-backend/pricing"
)

type FactsBuilder interface {
	Build(ctx context.Context, ev event.TripEnded) (pricing.TripFacts, error)
}

type Pricer interface {
	Price(ctx context.Context, f pricing.TripFacts) (pricing.Bill, error)
}

type Ledger interface {
	AppendTripEntry(ctx context.Context, bill pricing.Bill, facts pricing.TripFacts) (ledger.Entry, error)
}

type Subscriber struct {
	facts  FactsBuilder
	engine Pricer
	ledger Ledger
	bus    event.Publisher
	logger *slog.Logger
}

func NewSubscriber(facts FactsBuilder, engine Pricer, l Ledger, bus event.Publisher, logger *slog.Logger) *Subscriber {
	return &Subscriber{
		facts:  facts,
		engine: engine,
		ledger: l,
		bus:    bus,
		logger: logger.With("component", "billing"),
	}
}

func (s *Subscriber) Handle(ctx context.Context, e event.Event) error {
	ev, ok := e.(event.TripEnded)
	if !ok {
		return nil
	}

	facts, err := s.facts.Build(ctx, ev)
	if err != nil {
		return fmt.Errorf("build trip facts: %w", err)
	}
	bill, err := s.engine.Price(ctx, facts)
	if err != nil {
		return fmt.Errorf("price trip: %w", err)
	}
	entry, err := s.ledger.AppendTripEntry(ctx, bill, facts)
	if err != nil {
		return fmt.Errorf("append ledger entry: %w", err)
	}

	s.logger.InfoContext(ctx, "trip priced",
		"rider_id", ev.RiderID,
		"bike_id", ev.BikeID,
		"plan", bill.PlanName,
		"total", bill.Total.StringFixed(2),
		"ledger_entry_id", entry.ID,
	)
	return s.bus.Publish(ctx, event.TripPriced{
		Header:          event.NewHeader(ev.OccurredAt),
		BikeID:          ev.BikeID,
		RiderID:         ev.RiderID,
		ReturnStationID: ev.ReturnStationID,
		LedgerEntryID:   entry.ID,
		PlanName:        bill.PlanName,
		DurationMinutes: ev.DurationMinutes,
		DistanceKm:      ev.DistanceKm,
		Cost:            bill.Total,
	})
}
