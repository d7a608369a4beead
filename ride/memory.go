package ride

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/semanticallynull/bikeshare-backend/internal/txn"
)

// MemoryStore checks writes when they are made and applies them when the
// unit of work in ctx commits. Units are serialized by the fleet store.
type MemoryStore struct {
	mu    sync.RWMutex
	rides map[uuid.UUID]Ride
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{rides: make(map[uuid.UUID]Ride)}
}

func (s *MemoryStore) Start(ctx context.Context, r Ride) error {
	s.mu.RLock()
	for _, open := range s.rides {
		if open.BikeID == r.BikeID && open.Status == StatusInProgress {
			s.mu.RUnlock()
			return ErrRideInProgress
		}
	}
	s.mu.RUnlock()

	txn.Defer(ctx, func() { s.put(r) })
	return nil
}

func (s *MemoryStore) Get(_ context.Context, id uuid.UUID) (Ride, error) {
	return s.find(func(r Ride) bool { return r.ID == id })
}

func (s *MemoryStore) InProgress(_ context.Context, bikeID, riderID uuid.UUID) (Ride, error) {
	return s.find(func(r Ride) bool {
		return r.BikeID == bikeID && r.RiderID == riderID && r.Status == StatusInProgress
	})
}

func (s *MemoryStore) Current(_ context.Context, riderID uuid.UUID) (Ride, error) {
	return s.find(func(r Ride) bool { return r.RiderID == riderID && r.Status == StatusInProgress })
}

func (s *MemoryStore) Complete(ctx context.Context, id uuid.UUID, c Completion) (Ride, error) {
	s.mu.RLock()
	r, ok := s.rides[id]
	s.mu.RUnlock()
	if !ok || r.Status != StatusInProgress {
		return Ride{}, ErrNotFound
	}
	r.complete(c)
	txn.Defer(ctx, func() { s.put(r) })
	return r, nil
}

func (s *MemoryStore) History(_ context.Context, f Filter) ([]Ride, error) {
	s.mu.RLock()
	rides := []Ride{}
	for _, r := range s.rides {
		if f.matches(r) {
			rides = append(rides, r)
		}
	}
	s.mu.RUnlock()

	sort.Slice(rides, func(i, j int) bool {
		if !rides[i].StartedAt.Equal(rides[j].StartedAt) {
			return rides[i].StartedAt.After(rides[j].StartedAt)
		}
		return rides[i].ID.String() < rides[j].ID.String()
	})
	return f.page(rides), nil
}

func (s *MemoryStore) put(r Ride) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rides[r.ID] = r
}

func (s *MemoryStore) find(keep func(Ride) bool) (Ride, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, r := range s.rides {
		if keep(r) {
			return r, nil
		}
	}
	return Ride{}, ErrNotFound
}
