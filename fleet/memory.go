package fleet

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/semanticallynull/bikeshare-backend/bike"
	"github.com/semanticallynull/bikeshare-backend/internal/txn"
	"github.com/semanticallynull/bikeshare-backend/station"
)

// MemoryStore serializes every unit of work behind one mutex. Writes are
// staged on the Tx and only copied into the store when the unit succeeds,
// together with whatever other memory stores staged through ctx.
type MemoryStore struct {
	mu       sync.Mutex
	bikes    map[uuid.UUID]bike.Bike
	stations map[uuid.UUID]station.Station
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		bikes:    make(map[uuid.UUID]bike.Bike),
		stations: make(map[uuid.UUID]station.Station),
	}
}

func (s *MemoryStore) Atomic(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &memoryTx{
		store:    s,
		bikes:    make(map[uuid.UUID]bike.Bike),
		stations: make(map[uuid.UUID]station.Station),
	}
	ctx, staged := txn.Stage(ctx)
	if err := fn(ctx, tx); err != nil {
		return err
	}
	staged.Commit()
	for id, b := range tx.bikes {
		s.bikes[id] = b
	}
	for id, st := range tx.stations {
		s.stations[id] = st
	}
	return nil
}

func (s *MemoryStore) Bikes(_ context.Context) ([]bike.Bike, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	bikes := make([]bike.Bike, 0, len(s.bikes))
	for _, b := range s.bikes {
		bikes = append(bikes, b)
	}
	sortByLabel(bikes)
	return bikes, nil
}

func (s *MemoryStore) BikesAtStation(_ context.Context, stationID uuid.UUID) ([]bike.Bike, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var bikes []bike.Bike
	for _, b := range s.bikes {
		if b.StationID != nil && *b.StationID == stationID {
			bikes = append(bikes, b)
		}
	}
	sortByLabel(bikes)
	return bikes, nil
}

func (s *MemoryStore) Stations(_ context.Context) ([]station.Station, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	stations := make([]station.Station, 0, len(s.stations))
	for _, st := range s.stations {
		stations = append(stations, st)
	}
	sort.Slice(stations, func(i, j int) bool { return stations[i].Name < stations[j].Name })
	return stations, nil
}

// memoryTx runs with the store mutex already held.
type memoryTx struct {
	store    *MemoryStore
	bikes    map[uuid.UUID]bike.Bike
	stations map[uuid.UUID]station.Station
}

func (tx *memoryTx) Bike(_ context.Context, id uuid.UUID) (bike.Bike, error) {
	if b, ok := tx.bikes[id]; ok {
		return b, nil
	}
	if b, ok := tx.store.bikes[id]; ok {
		return b, nil
	}
	return bike.Bike{}, bike.ErrNotFound
}

func (tx *memoryTx) Station(_ context.Context, id uuid.UUID) (station.Station, error) {
	if st, ok := tx.stations[id]; ok {
		return st, nil
	}
	if st, ok := tx.store.stations[id]; ok {
		return st, nil
	}
	return station.Station{}, station.ErrNotFound
}

func (tx *memoryTx) ViewBike(ctx context.Context, id uuid.UUID) (bike.Bike, error) {
	return tx.Bike(ctx, id)
}

func (tx *memoryTx) ViewStation(ctx context.Context, id uuid.UUID) (station.Station, error) {
	return tx.Station(ctx, id)
}

func (tx *memoryTx) Available(_ context.Context, stationID uuid.UUID) ([]bike.Bike, error) {
	bikes := tx.filter(func(b bike.Bike) bool {
		return b.Status == bike.StatusAvailable && b.StationID != nil && *b.StationID == stationID
	})
	sortByLabel(bikes)
	return bikes, nil
}

func (tx *memoryTx) ReservedBy(_ context.Context, riderID uuid.UUID) (bike.Bike, error) {
	return tx.one(func(b bike.Bike) bool { return b.IsReservedBy(riderID) })
}

func (tx *memoryTx) RiddenBy(_ context.Context, riderID uuid.UUID) (bike.Bike, error) {
	return tx.one(func(b bike.Bike) bool { return b.IsRiddenBy(riderID) })
}

func (tx *memoryTx) ExpiredReservations(_ context.Context, now time.Time) ([]bike.Bike, error) {
	bikes := tx.filter(func(b bike.Bike) bool { return b.ReservationExpired(now) })
	sort.Slice(bikes, func(i, j int) bool { return bikes[i].ID.String() < bikes[j].ID.String() })
	return bikes, nil
}

func (tx *memoryTx) InsertBike(_ context.Context, b bike.Bike) error {
	tx.bikes[b.ID] = b
	return nil
}

func (tx *memoryTx) SaveBike(ctx context.Context, b bike.Bike) error {
	if _, err := tx.Bike(ctx, b.ID); err != nil {
		return err
	}
	tx.bikes[b.ID] = b
	return nil
}

func (tx *memoryTx) InsertStation(_ context.Context, s station.Station) error {
	tx.stations[s.ID] = s
	return nil
}

func (tx *memoryTx) SaveStation(ctx context.Context, s station.Station) error {
	if _, err := tx.Station(ctx, s.ID); err != nil {
		return err
	}
	tx.stations[s.ID] = s
	return nil
}

// filter walks the committed bikes overlaid with this unit's staged writes.
func (tx *memoryTx) filter(keep func(bike.Bike) bool) []bike.Bike {
	var bikes []bike.Bike
	for id, b := range tx.store.bikes {
		if staged, ok := tx.bikes[id]; ok {
			b = staged
		}
		if keep(b) {
			bikes = append(bikes, b)
		}
	}
	for id, b := range tx.bikes {
		if _, committed := tx.store.bikes[id]; !committed && keep(b) {
			bikes = append(bikes, b)
		}
	}
	return bikes
}

func (tx *memoryTx) one(keep func(bike.Bike) bool) (bike.Bike, error) {
	bikes := tx.filter(keep)
	if len(bikes) == 0 {
		return bike.Bike{}, bike.ErrNotFound
	}
	return bikes[0], nil
}

func sortByLabel(bikes []bike.Bike) {
	sort.Slice(bikes, func(i, j int) bool { return bikes[i].Label < bikes[j].Label })
}
