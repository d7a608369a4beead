package pricing

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/semanticallynull/bikeshare-backend/internal/clock"
)

// Example is an estimated cost shown next to a published plan.
type Example struct {
	Minutes int             `json:"minutes"`
	EBike   bool            `json:"ebike"`
	Cost    decimal.Decimal `json:"cost"`
}

type PlanSummary struct {
	Plan     Plan
	Examples []Example
}

// Catalog manages plan versions for operators and lists published plans with
// example costs for riders.
type Catalog struct {
	store Store
	rules []Rule
	clock clock.Clock
}

func NewCatalog(store Store, c clock.Clock, rules ...Rule) *Catalog {
	if len(rules) == 0 {
		rules = DefaultRules()
	}
	return &Catalog{store: store, rules: rules, clock: c}
}

// CreateDraft stores p as a new unpublished version. A zero EffectiveFrom
// means now.
func (c *Catalog) CreateDraft(ctx context.Context, p Plan) (Plan, error) {
	p.ID = uuid.New()
	p.Published = false
	p.CreatedAt = c.clock.Now()
	if p.EffectiveFrom.IsZero() {
		p.EffectiveFrom = p.CreatedAt
	}
	if err := p.Validate(); err != nil {
		return Plan{}, err
	}
	if err := c.store.Insert(ctx, p); err != nil {
		return Plan{}, err
	}
	return p, nil
}

func (c *Catalog) UpdateDraft(ctx context.Context, p Plan) (Plan, error) {
	if p.EffectiveFrom.IsZero() {
		p.EffectiveFrom = c.clock.Now()
	}
	if err := p.Validate(); err != nil {
		return Plan{}, err
	}
	if err := c.store.UpdateDraft(ctx, p); err != nil {
		return Plan{}, err
	}
	return c.store.Get(ctx, p.ID)
}

func (c *Catalog) Publish(ctx context.Context, id uuid.UUID) (Plan, error) {
	if err := c.store.Publish(ctx, id); err != nil {
		return Plan{}, err
	}
	return c.store.Get(ctx, id)
}

func (c *Catalog) List(ctx context.Context) ([]Plan, error) {
	return c.store.List(ctx, false)
}

func (c *Catalog) Published(ctx context.Context) ([]PlanSummary, error) {
	plans, err := c.store.List(ctx, true)
	if err != nil {
		return nil, err
	}
	summaries := make([]PlanSummary, 0, len(plans))
	for _, p := range plans {
		summaries = append(summaries, PlanSummary{Plan: p, Examples: c.examples(p)})
	}
	return summaries, nil
}

func (c *Catalog) examples(p Plan) []Example {
	estimate := func(minutes int, ebike bool) Example {
		start := p.EffectiveFrom
		f := TripFacts{
			StartTime: start,
			EndTime:   start.Add(time.Duration(minutes) * time.Minute),
			EBike:     ebike,
		}
		return Example{Minutes: minutes, EBike: ebike, Cost: Apply(c.rules, p, f).Total()}
	}
	return []Example{estimate(15, false), estimate(30, false), estimate(30, true)}
}
