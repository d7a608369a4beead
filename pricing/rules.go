package pricing

import (
	"strconv"

	"github.com/shopspring/decimal"
)

// Rule inspects the plan, the trip and the lines emitted so far and may
// contribute one more line. Rules never stop the chain.
type Rule func(p Plan, f TripFacts, lines Charges) (ChargeLine, bool)

// DefaultRules is base fee, per-minute, then e-bike surcharge.
func DefaultRules() []Rule {
	return []Rule{BaseFee, PerMinute, EBikeSurcharge}
}

func BaseFee(p Plan, _ TripFacts, _ Charges) (ChargeLine, bool) {
	if !p.BaseFee.IsPositive() {
		return ChargeLine{}, false
	}
	return ChargeLine{Code: CodeBaseFee, Amount: p.BaseFee}, true
}

// PerMinute bills at least one minute.
func PerMinute(p Plan, f TripFacts, _ Charges) (ChargeLine, bool) {
	if !p.PerMinuteRate.IsPositive() {
		return ChargeLine{}, false
	}
	minutes := max(1, f.DurationMinutes())
	return ChargeLine{
		Code:   CodePerMinute,
		Amount: p.PerMinuteRate.Mul(decimal.NewFromInt(minutes)),
		Meta:   map[string]string{"minutes": strconv.FormatInt(minutes, 10)},
	}, true
}

func EBikeSurcharge(p Plan, f TripFacts, _ Charges) (ChargeLine, bool) {
	if !f.EBike || !p.EBikeSurcharge.IsPositive() {
		return ChargeLine{}, false
	}
	return ChargeLine{Code: CodeEBikeSurcharge, Amount: p.EBikeSurcharge}, true
}

// Discount takes percent off the running subtotal.
func Discount(percent decimal.Decimal) Rule {
	return func(_ Plan, _ TripFacts, lines Charges) (ChargeLine, bool) {
		subtotal := lines.Total()
		if !percent.IsPositive() || !subtotal.IsPositive() {
			return ChargeLine{}, false
		}
		return ChargeLine{
			Code:   CodeDiscount,
			Amount: subtotal.Mul(percent).Div(decimal.NewFromInt(100)).Neg(),
			Meta:   map[string]string{"percent": percent.String()},
		}, true
	}
}

// Cap brings the running subtotal down to limit when it exceeds it.
func Cap(limit decimal.Decimal) Rule {
	return func(_ Plan, _ TripFacts, lines Charges) (ChargeLine, bool) {
		subtotal := lines.Total()
		if !limit.IsPositive() || subtotal.LessThanOrEqual(limit) {
			return ChargeLine{}, false
		}
		return ChargeLine{
			Code:   CodeCap,
			Amount: limit.Sub(subtotal),
			Meta:   map[string]string{"cap": limit.String()},
		}, true
	}
}

// Tax charges rate (e.g. 0.135) on the running subtotal.
func Tax(rate decimal.Decimal) Rule {
	return func(_ Plan, _ TripFacts, lines Charges) (ChargeLine, bool) {
		subtotal := lines.Total()
		if !rate.IsPositive() || !subtotal.IsPositive() {
			return ChargeLine{}, false
		}
		return ChargeLine{
			Code:   CodeTax,
			Amount: subtotal.Mul(rate),
			Meta:   map[string]string{"rate": rate.String()},
		}, true
	}
}

// Options configures the optional rules appended after the defaults. Zero
// values leave a rule out.
type Options struct {
	DiscountPercent decimal.Decimal
	Cap             decimal.Decimal
	TaxRate         decimal.Decimal
}

func (o Options) Rules() []Rule {
	rules := DefaultRules()
	if o.DiscountPercent.IsPositive() {
		rules = append(rules, Discount(o.DiscountPercent))
	}
	if o.Cap.IsPositive() {
		rules = append(rules, Cap(o.Cap))
	}
	if o.TaxRate.IsPositive() {
		rules = append(rules, Tax(o.TaxRate))
	}
	return rules
}
