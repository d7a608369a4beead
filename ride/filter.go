package ride

import (
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/semanticallynull/bikeshare-backend/bike"
	"github.com/semanticallynull/bikeshare-backend/internal/domainerr"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

var ErrInvalidFilter = domainerr.Validation("INVALID_FILTER", "invalid ride history filter")

// Filter narrows ride history. Zero fields match everything. Rides come back
// newest first; Size 0 returns every match.
type Filter struct {
	RiderID *uuid.UUID
	BikeID  *uuid.UUID
	// From and To bound the start time to [From, To).
	From time.Time
	To   time.Time
	// StationID matches rides that started or ended there, or only rides
	// that started there with StartStationOnly.
	StationID        *uuid.UUID
	StartStationOnly bool
	Status           Status
	BikeType         bike.Type

	Page int
	Size int
}

func (f Filter) Validate() error {
	if f.Page < 0 || f.Size < 0 || f.Size > MaxPageSize {
		return ErrInvalidFilter
	}
	if !f.From.IsZero() && !f.To.IsZero() && !f.From.Before(f.To) {
		return ErrInvalidFilter
	}
	switch f.Status {
	case "", StatusInProgress, StatusCompleted:
	default:
		return ErrInvalidFilter
	}
	switch f.BikeType {
	case "", bike.Standard, bike.EBike:
	default:
		return ErrInvalidFilter
	}
	return nil
}

func (f Filter) matches(r Ride) bool {
	switch {
	case f.RiderID != nil && r.RiderID != *f.RiderID:
		return false
	case f.BikeID != nil && r.BikeID != *f.BikeID:
		return false
	case !f.From.IsZero() && r.StartedAt.Before(f.From):
		return false
	case !f.To.IsZero() && !r.StartedAt.Before(f.To):
		return false
	case f.Status != "" && r.Status != f.Status:
		return false
	case f.BikeType != "" && r.BikeType != f.BikeType:
		return false
	}
	if f.StationID == nil {
		return true
	}
	if r.StartStationID == *f.StationID {
		return true
	}
	return !f.StartStationOnly && r.EndStationID != nil && *r.EndStationID == *f.StationID
}

// page cuts one page out of rides already in order.
func (f Filter) page(rides []Ride) []Ride {
	if f.Size == 0 {
		return rides
	}
	start := f.Page * f.Size
	if start >= len(rides) {
		return []Ride{}
	}
	return rides[start:min(start+f.Size, len(rides))]
}

// Statistics summarize a rider's completed rides.
type Statistics struct {
	TotalRides             int             `json:"totalRides"`
	TotalDistanceKm        float64         `json:"totalDistanceKm"`
	TotalCost              decimal.Decimal `json:"totalCost"`
	AverageDurationMinutes float64         `json:"averageDurationMinutes"`
	AverageDistanceKm      float64         `json:"averageDistanceKm"`
	MostUsedStartStation   *uuid.UUID      `json:"mostUsedStartStationId,omitempty"`
	MostUsedEndStation     *uuid.UUID      `json:"mostUsedEndStationId,omitempty"`
	FavoriteBikeType       *bike.Type      `json:"favoriteBikeType,omitempty"`
}

// Summarize skips rides still in progress. Ties for the most used station or
// bike type go to the lowest id or name.
func Summarize(rides []Ride) Statistics {
	s := Statistics{TotalCost: decimal.Zero}
	starts := map[uuid.UUID]int{}
	ends := map[uuid.UUID]int{}
	types := map[bike.Type]int{}
	var minutes float64
	for _, r := range rides {
		if r.Status != StatusCompleted {
			continue
		}
		s.TotalRides++
		s.TotalDistanceKm += r.DistanceKm
		s.TotalCost = s.TotalCost.Add(r.Cost)
		minutes += r.DurationMinutes
		starts[r.StartStationID]++
		if r.EndStationID != nil {
			ends[*r.EndStationID]++
		}
		types[r.BikeType]++
	}
	if s.TotalRides == 0 {
		return s
	}
	s.AverageDurationMinutes = minutes / float64(s.TotalRides)
	s.AverageDistanceKm = s.TotalDistanceKm / float64(s.TotalRides)
	s.MostUsedStartStation = mostUsed(starts, func(a, b uuid.UUID) bool { return a.String() < b.String() })
	s.MostUsedEndStation = mostUsed(ends, func(a, b uuid.UUID) bool { return a.String() < b.String() })
	s.FavoriteBikeType = mostUsed(types, func(a, b bike.Type) bool { return a < b })
	return s
}

func mostUsed[K comparable](counts map[K]int, less func(a, b K) bool) *K {
	keys := make([]K, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	if len(keys) == 0 {
		return nil
	}
	sort.Slice(keys, func(i, j int) bool {
		if counts[keys[i]] != counts[keys[j]] {
			return counts[keys[i]] > counts[keys[j]]
		}
		return less(keys[i], keys[j])
	})
	return &keys[0]
}
