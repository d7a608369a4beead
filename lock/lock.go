// Package lock talks to the physical locks on the bikes.
package lock

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var ErrLockFailed = errors.New("bike lock operation failed")

// Client is the bike-lock capability used by the fleet service.
type Client interface {
	Lock(ctx context.Context, bikeID uuid.UUID) error
	Unlock(ctx context.Context, bikeID uuid.UUID) error
	UpdateLocation(ctx context.Context, bikeID uuid.UUID, lat, lng float64) error
	IsLocked(ctx context.Context, bikeID uuid.UUID) (bool, error)
}
