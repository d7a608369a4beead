package pricing

import (
	"context"
	"time"

	"github.com/semanticallynull/bikeshare-backend/customer"
)

type SelectionInput struct {
	Membership  customer.Tier
	CityID      string
	TripEndTime time.Time
}

// Strategy returns the plan it selects, or false when it has no match.
type Strategy func(ctx context.Context, in SelectionInput) (Plan, bool, error)

// Selector returns the first match from its strategies in order.
type Selector struct {
	strategies []Strategy
}

func NewSelector(strategies ...Strategy) *Selector {
	return &Selector{strategies: strategies}
}

// DefaultSelector tries membership, then city, then any effective plan. Only
// the membership step can pick a plan reserved for a tier.
func DefaultSelector(store Store) *Selector {
	return NewSelector(MembershipStrategy(store), CityStrategy(store), EffectiveDateStrategy(store))
}

func (s *Selector) Select(ctx context.Context, in SelectionInput) (Plan, error) {
	for _, strategy := range s.strategies {
		p, ok, err := strategy(ctx, in)
		if err != nil {
			return Plan{}, err
		}
		if ok {
			return p, nil
		}
	}
	return Plan{}, ErrNoPlanAvailable
}

func MembershipStrategy(store Store) Strategy {
	return func(ctx context.Context, in SelectionInput) (Plan, bool, error) {
		if in.Membership == "" || in.Membership == customer.TierNone {
			return Plan{}, false, nil
		}
		return first(store.Active(ctx, in.TripEndTime, Scope{Membership: in.Membership}))
	}
}

func CityStrategy(store Store) Strategy {
	return func(ctx context.Context, in SelectionInput) (Plan, bool, error) {
		if in.CityID == "" {
			return Plan{}, false, nil
		}
		return first(store.Active(ctx, in.TripEndTime, Scope{CityID: in.CityID, General: true}))
	}
}

func EffectiveDateStrategy(store Store) Strategy {
	return func(ctx context.Context, in SelectionInput) (Plan, bool, error) {
		return first(store.Active(ctx, in.TripEndTime, Scope{General: true}))
	}
}

func first(plans []Plan, err error) (Plan, bool, error) {
	if err != nil || len(plans) == 0 {
		return Plan{}, false, err
	}
	return plans[0], true, nil
}
