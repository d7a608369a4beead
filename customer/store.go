package customer

import (
	"context"

	"github.com/google/uuid"
)

// Store is implemented by Repository and MemoryRepository.
type Store interface {
	GetCustomer(ctx context.Context, id uuid.UUID) (Customer, error)
	GetCustomerByAuth0ID(ctx context.Context, auth0ID string) (Customer, error)
	CreateCustomer(ctx context.Context, auth0ID string) (Customer, error)
	AddStripeIDToCustomer(ctx context.Context, id uuid.UUID, stripeID string) error
	UpdateProfile(ctx context.Context, id uuid.UUID, email, name string) error
	SetMembership(ctx context.Context, id uuid.UUID, tier Tier) error
	SetRole(ctx context.Context, id uuid.UUID, role Role) error
}

var (
	_ Store = (*Repository)(nil)
	_ Store = (*MemoryRepository)(nil)
)
