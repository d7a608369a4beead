package customer

import (
	"context"
	"database/sql"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryRepository is a Repository stand-in for tests and the in-memory
// server mode.
type MemoryRepository struct {
	mu        sync.RWMutex
	customers map[uuid.UUID]Customer
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		customers: make(map[uuid.UUID]Customer),
	}
}

func (r *MemoryRepository) GetCustomer(_ context.Context, id uuid.UUID) (Customer, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.customers[id]
	if !ok {
		return Customer{}, ErrNotFound
	}
	return c, nil
}

func (r *MemoryRepository) GetCustomerByAuth0ID(_ context.Context, auth0ID string) (Customer, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, c := range r.customers {
		if c.Auth0ID == auth0ID {
			return c, nil
		}
	}
	return Customer{}, ErrNotFound
}

func (r *MemoryRepository) CreateCustomer(_ context.Context, auth0ID string) (Customer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.customers {
		if c.Auth0ID == auth0ID {
			return c, nil
		}
	}
	c := Customer{
		ID:         uuid.New(),
		Auth0ID:    auth0ID,
		Membership: TierNone,
		Role:       RoleRider,
		CreatedAt:  time.Now().UTC(),
	}
	r.customers[c.ID] = c
	return c, nil
}

func (r *MemoryRepository) AddStripeIDToCustomer(_ context.Context, id uuid.UUID, stripeID string) error {
	return r.update(id, func(c *Customer) {
		c.StripeID = sql.NullString{String: stripeID, Valid: true}
	})
}

func (r *MemoryRepository) UpdateProfile(_ context.Context, id uuid.UUID, email, name string) error {
	return r.update(id, func(c *Customer) {
		c.Email = sql.NullString{String: email, Valid: email != ""}
		c.Name = sql.NullString{String: name, Valid: name != ""}
	})
}

func (r *MemoryRepository) SetMembership(_ context.Context, id uuid.UUID, tier Tier) error {
	return r.update(id, func(c *Customer) {
		c.Membership = tier
	})
}

func (r *MemoryRepository) SetRole(_ context.Context, id uuid.UUID, role Role) error {
	return r.update(id, func(c *Customer) {
		c.Role = role
	})
}

func (r *MemoryRepository) update(id uuid.UUID, fn func(*Customer)) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.customers[id]
	if !ok {
		return ErrNotFound
	}
	fn(&c)
	r.customers[id] = c
	return nil
}
