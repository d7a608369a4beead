package o11y

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/semanticallynull/bikeshare-backend/event"
)

func TestEventMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewEventMetrics(reg)
	ctx := context.Background()
	now := time.Now()

	require.NoError(t, m.Handle(ctx, event.TripStarted{Header: event.NewHeader(now), BikeID: uuid.New()}))
	require.NoError(t, m.Handle(ctx, event.TripPriced{Header: event.NewHeader(now), Cost: decimal.RequireFromString("6.80")}))
	require.NoError(t, m.Handle(ctx, event.TripPriced{Header: event.NewHeader(now), Cost: decimal.RequireFromString("3.10")}))

	families, err := reg.Gather()
	require.NoError(t, err)
	counts := map[string]float64{}
	var observed uint64
	for _, f := range families {
		switch f.GetName() {
		case "fleet_events_total":
			for _, metric := range f.GetMetric() {
				counts[metric.GetLabel()[0].GetValue()] = metric.GetCounter().GetValue()
			}
		case "trip_cost":
			observed = f.GetMetric()[0].GetHistogram().GetSampleCount()
		}
	}
	assert.Equal(t, map[string]float64{"TripStarted": 1, "TripPriced": 2}, counts)
	assert.Equal(t, uint64(2), observed)
}
