package ride

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/semanticallynull/bikeshare-backend/bike"
)

var day = time.Date(2026, 6, 1, 8, 0, 0, 0, time.UTC)

type history struct {
	store          *MemoryStore
	alice, bob     uuid.UUID
	plateau, port  uuid.UUID
	ebike, classic uuid.UUID
}

// newHistory records four rides: three by alice, one by bob, an hour apart.
func newHistory(t *testing.T) history {
	t.Helper()
	ctx := context.Background()
	h := history{
		store:   NewMemoryStore(),
		alice:   uuid.New(),
		bob:     uuid.New(),
		plateau: uuid.New(),
		port:    uuid.New(),
		ebike:   uuid.New(),
		classic: uuid.New(),
	}
	rides := []struct {
		rider, bikeID, from, to uuid.UUID
		bikeType                bike.Type
		minutes, km             float64
		cost                    string
		open                    bool
	}{
		{h.alice, h.classic, h.plateau, h.port, bike.Standard, 10, 2, "4.00", false},
		{h.alice, h.ebike, h.port, h.plateau, bike.EBike, 20, 5, "7.30", false},
		{h.bob, h.classic, h.plateau, h.plateau, bike.Standard, 5, 1, "2.75", false},
		{h.alice, h.ebike, h.plateau, uuid.Nil, bike.EBike, 0, 0, "0", true},
	}
	for i, r := range rides {
		started := day.Add(time.Duration(i) * time.Hour)
		rd := Ride{
			ID:             uuid.New(),
			BikeID:         r.bikeID,
			BikeType:       r.bikeType,
			RiderID:        r.rider,
			StartStationID: r.from,
			StartedAt:      started,
			Cost:           decimal.Zero,
			Status:         StatusInProgress,
		}
		require.NoError(t, h.store.Start(ctx, rd))
		if r.open {
			continue
		}
		_, err := h.store.Complete(ctx, rd.ID, Completion{
			EndStationID:    r.to,
			EndedAt:         started.Add(time.Duration(r.minutes) * time.Minute),
			DurationMinutes: r.minutes,
			DistanceKm:      r.km,
			Cost:            decimal.RequireFromString(r.cost),
		})
		require.NoError(t, err)
	}
	return h
}

func (h history) list(t *testing.T, f Filter) []Ride {
	t.Helper()
	rides, err := h.store.History(context.Background(), f)
	require.NoError(t, err)
	return rides
}

func TestHistory_Filters(t *testing.T) {
	h := newHistory(t)

	tests := []struct {
		name   string
		filter Filter
		want   int
	}{
		{"everything", Filter{}, 4},
		{"rider", Filter{RiderID: &h.alice}, 3},
		{"status", Filter{RiderID: &h.alice, Status: StatusCompleted}, 2},
		{"bike type", Filter{BikeType: bike.EBike}, 2},
		{"bike", Filter{BikeID: &h.classic}, 2},
		{"station either end", Filter{RiderID: &h.alice, StationID: &h.port}, 2},
		{"start station only", Filter{RiderID: &h.alice, StationID: &h.port, StartStationOnly: true}, 1},
		{"from is inclusive", Filter{From: day.Add(time.Hour)}, 3},
		{"to is exclusive", Filter{To: day.Add(time.Hour)}, 1},
		{"page size", Filter{Size: 3}, 3},
		{"second page", Filter{Page: 1, Size: 3}, 1},
		{"past the end", Filter{Page: 5, Size: 3}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Len(t, h.list(t, tt.filter), tt.want)
		})
	}
}

func TestHistory_NewestFirst(t *testing.T) {
	h := newHistory(t)

	rides := h.list(t, Filter{RiderID: &h.alice})

	require.Len(t, rides, 3)
	for i := 1; i < len(rides); i++ {
		assert.True(t, rides[i-1].StartedAt.After(rides[i].StartedAt))
	}
	assert.Equal(t, StatusInProgress, rides[0].Status)
}

func TestFilter_Validate(t *testing.T) {
	assert.NoError(t, Filter{Size: MaxPageSize}.Validate())
	assert.ErrorIs(t, Filter{Size: MaxPageSize + 1}.Validate(), ErrInvalidFilter)
	assert.ErrorIs(t, Filter{Page: -1}.Validate(), ErrInvalidFilter)
	assert.ErrorIs(t, Filter{From: day, To: day}.Validate(), ErrInvalidFilter)
	assert.ErrorIs(t, Filter{Status: "LOST"}.Validate(), ErrInvalidFilter)
	assert.ErrorIs(t, Filter{BikeType: "TANDEM"}.Validate(), ErrInvalidFilter)
}

func TestSummarize(t *testing.T) {
	h := newHistory(t)

	s := Summarize(h.list(t, Filter{RiderID: &h.alice}))

	assert.Equal(t, 2, s.TotalRides, "open ride is left out")
	assert.Equal(t, 7.0, s.TotalDistanceKm)
	assert.True(t, decimal.RequireFromString("11.30").Equal(s.TotalCost), "got %s", s.TotalCost)
	assert.Equal(t, 15.0, s.AverageDurationMinutes)
	assert.Equal(t, 3.5, s.AverageDistanceKm)
	require.NotNil(t, s.MostUsedStartStation)
	require.NotNil(t, s.MostUsedEndStation)
	require.NotNil(t, s.FavoriteBikeType)
	assert.Equal(t, bike.EBike, *s.FavoriteBikeType, "ties go to the lowest name")
	lowest := h.plateau
	if h.port.String() < lowest.String() {
		lowest = h.port
	}
	assert.Equal(t, lowest, *s.MostUsedStartStation)
	assert.Equal(t, lowest, *s.MostUsedEndStation)
}

func TestSummarize_NoRides(t *testing.T) {
	s := Summarize(nil)

	assert.Zero(t, s.TotalRides)
	assert.True(t, s.TotalCost.IsZero())
	assert.Nil(t, s.MostUsedStartStation)
	assert.Nil(t, s.FavoriteBikeType)
}

func TestHistoryQuery(t *testing.T) {
	rider := uuid.New()
	station := uuid.New()

	query, args := historyQuery(Filter{RiderID: &rider, StationID: &station, Status: StatusCompleted, Page: 2, Size: 10})

	assert.Equal(t, "SELECT * FROM rides WHERE rider_id = $1 AND status = $2 AND (start_station_id = $3 OR end_station_id = $3)"+
		" ORDER BY started_at DESC, id LIMIT $4 OFFSET $5", query)
	assert.Equal(t, []any{rider, StatusCompleted, station, 10, 20}, args)

	query, args = historyQuery(Filter{StationID: &station, StartStationOnly: true})
	assert.Equal(t, "SELECT * FROM rides WHERE start_station_id = $1 ORDER BY started_at DESC, id", query)
	assert.Equal(t, []any{station}, args)
}
