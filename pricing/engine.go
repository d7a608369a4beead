package pricing

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

type Engine struct {
	selector *Selector
	rules    []Rule
}

func NewEngine(selector *Selector, rules ...Rule) *Engine {
	if len(rules) == 0 {
		rules = DefaultRules()
	}
	return &Engine{selector: selector, rules: rules}
}

// Price selects a plan for the trip and runs every rule against it. It fails
// with ErrNoPlanAvailable rather than producing an empty bill.
func (e *Engine) Price(ctx context.Context, f TripFacts) (Bill, error) {
	ctx, span := otel.GetTracerProvider().Tracer("pricing").Start(ctx, "Engine.Price")
	defer span.End()

	plan, err := e.selector.Select(ctx, SelectionInput{
		Membership:  f.Membership,
		CityID:      f.CityID,
		TripEndTime: f.EndTime,
	})
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return Bill{}, err
	}

	lines := Apply(e.rules, plan, f)
	total := lines.Total()
	span.SetAttributes(
		attribute.String("plan.name", plan.Name),
		attribute.String("bill.total", total.String()),
	)
	return Bill{
		PlanVersionID: plan.ID,
		PlanName:      plan.Name,
		Charges:       lines,
		Total:         total,
	}, nil
}

// Apply runs rules in order, each seeing the lines emitted before it.
func Apply(rules []Rule, p Plan, f TripFacts) Charges {
	lines := Charges{}
	for _, rule := range rules {
		if line, ok := rule(p, f, lines); ok {
			lines = append(lines, line)
		}
	}
	return lines
}
