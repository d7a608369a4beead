package ride

import (
	"context"

	"github.com/google/uuid"
)

// Store writes join the unit of work carried by ctx when there is one, so a
// ride starts or completes together with the bike movement that caused it.
type Store interface {
	// Start records an IN_PROGRESS ride, failing with ErrRideInProgress if
	// the bike already has one.
	Start(ctx context.Context, r Ride) error
	Get(ctx context.Context, id uuid.UUID) (Ride, error)
	// InProgress returns the open ride of riderID on bikeID.
	InProgress(ctx context.Context, bikeID, riderID uuid.UUID) (Ride, error)
	Current(ctx context.Context, riderID uuid.UUID) (Ride, error)
	Complete(ctx context.Context, id uuid.UUID, c Completion) (Ride, error)
	History(ctx context.Context, f Filter) ([]Ride, error)
}

var (
	_ Store = (*Repository)(nil)
	_ Store = (*MemoryStore)(nil)
)
