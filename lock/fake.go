package lock

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

type Location struct {
	Lat, Lng float64
}

// FakeClient is an in-memory Client. Bikes start locked.
type FakeClient struct {
	mu        sync.Mutex
	unlocked  map[uuid.UUID]bool
	locations map[uuid.UUID]Location
	failing   map[uuid.UUID]bool
}

func NewFakeClient() *FakeClient {
	return &FakeClient{
		unlocked:  make(map[uuid.UUID]bool),
		locations: make(map[uuid.UUID]Location),
		failing:   make(map[uuid.UUID]bool),
	}
}

// FailFor makes every call for bikeID fail until cleared with fail=false.
func (c *FakeClient) FailFor(bikeID uuid.UUID, fail bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.failing[bikeID] = fail
}

func (c *FakeClient) Lock(_ context.Context, bikeID uuid.UUID) error {
	return c.set(bikeID, false)
}

func (c *FakeClient) Unlock(_ context.Context, bikeID uuid.UUID) error {
	return c.set(bikeID, true)
}

func (c *FakeClient) UpdateLocation(_ context.Context, bikeID uuid.UUID, lat, lng float64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failing[bikeID] {
		return ErrLockFailed
	}
	c.locations[bikeID] = Location{Lat: lat, Lng: lng}
	return nil
}

func (c *FakeClient) IsLocked(_ context.Context, bikeID uuid.UUID) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failing[bikeID] {
		return false, ErrLockFailed
	}
	return !c.unlocked[bikeID], nil
}

func (c *FakeClient) LocationOf(bikeID uuid.UUID) (Location, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	l, ok := c.locations[bikeID]
	return l, ok
}

func (c *FakeClient) set(bikeID uuid.UUID, unlocked bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failing[bikeID] {
		return ErrLockFailed
	}
	c.unlocked[bikeID] = unlocked
	return nil
}
