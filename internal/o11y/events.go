package o11y

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/semanticallynull/bikeshare-backend/event"
)

// EventMetrics is a bus subscriber counting published events by type and
// observing priced trip totals.
type EventMetrics struct {
	events   *prometheus.CounterVec
	tripCost prometheus.Histogram
}

func NewEventMetrics(reg prometheus.Registerer) *EventMetrics {
	m := &EventMetrics{
		events: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fleet_events_total",
				Help: "Total number of fleet events published",
			},
			[]string{"type"},
		),
		tripCost: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "trip_cost",
				Help:    "Total of priced trips in the billing currency",
				Buckets: []float64{1, 2, 5, 10, 20, 50, 100},
			},
		),
	}
	reg.MustRegister(m.events, m.tripCost)
	return m
}

func (m *EventMetrics) Handle(_ context.Context, e event.Event) error {
	m.events.WithLabelValues(string(e.EventType())).Inc()
	if p, ok := e.(event.TripPriced); ok {
		m.tripCost.Observe(p.Cost.InexactFloat64())
	}
	return nil
}
