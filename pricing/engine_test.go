package pricing

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/semanticallynull/bikeshare-backend/customer"
	"github.com/semanticallynull/bikeshare-backend/internal/domainerr"
)

var epoch = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

func plan(name string, base, perMinute, surcharge string) Plan {
	return Plan{
		ID:             uuid.New(),
		Name:           name,
		BaseFee:        decimal.RequireFromString(base),
		PerMinuteRate:  decimal.RequireFromString(perMinute),
		EBikeSurcharge: decimal.RequireFromString(surcharge),
		EffectiveFrom:  epoch,
		Published:      true,
	}
}

func trip(minutes int, ebike bool) TripFacts {
	start := epoch.Add(24 * time.Hour)
	return TripFacts{
		BikeID:    uuid.New(),
		RiderID:   uuid.New(),
		StartTime: start,
		EndTime:   start.Add(time.Duration(minutes) * time.Minute),
		EBike:     ebike,
	}
}

func TestEngine_EBikeTrip(t *testing.T) {
	store := NewMemoryStore(plan("standard", "1.50", "0.25", "0.80"))
	engine := NewEngine(DefaultSelector(store))

	bill, err := engine.Price(context.Background(), trip(18, true))
	require.NoError(t, err)

	require.Len(t, bill.Charges, 3)
	assert.Equal(t, CodeBaseFee, bill.Charges[0].Code)
	assert.Equal(t, CodePerMinute, bill.Charges[1].Code)
	assert.Equal(t, CodeEBikeSurcharge, bill.Charges[2].Code)
	assert.True(t, decimal.RequireFromString("4.50").Equal(bill.Charges[1].Amount))
	assert.True(t, decimal.RequireFromString("6.80").Equal(bill.Total), "got %s", bill.Total)
	assert.Equal(t, "standard", bill.PlanName)
}

func TestEngine_NoPlanAvailable(t *testing.T) {
	expired := plan("old", "1", "0.1", "0")
	until := epoch.Add(time.Hour)
	expired.EffectiveTo = &until
	draft := plan("draft", "1", "0.1", "0")
	draft.Published = false

	engine := NewEngine(DefaultSelector(NewMemoryStore(expired, draft)))
	_, err := engine.Price(context.Background(), trip(10, false))

	assert.ErrorIs(t, err, ErrNoPlanAvailable)
	assert.ErrorIs(t, err, domainerr.ErrUnavailable)
}

func TestRules_StandardBikeSkipsSurchargeAndZeroBaseFee(t *testing.T) {
	p := plan("free-unlock", "0", "0.20", "1.00")
	lines := Apply(DefaultRules(), p, trip(10, false))

	require.Len(t, lines, 1)
	assert.Equal(t, CodePerMinute, lines[0].Code)
	assert.Equal(t, "10", lines[0].Meta["minutes"])
}

func TestPerMinute_NeverBillsZeroMinutes(t *testing.T) {
	line, ok := PerMinute(plan("p", "0", "0.25", "0"), trip(0, false), nil)
	require.True(t, ok)
	assert.True(t, decimal.RequireFromString("0.25").Equal(line.Amount))
}

func TestOptionalRules(t *testing.T) {
	p := plan("p", "2.00", "0.50", "0")
	opts := Options{
		DiscountPercent: decimal.NewFromInt(10),
		Cap:             decimal.NewFromInt(10),
		TaxRate:         decimal.RequireFromString("0.1"),
	}

	// 2.00 + 0.50*30 = 17.00, -1.70 discount = 15.30, capped to 10.00, +1.00 tax
	lines := Apply(opts.Rules(), p, trip(30, false))

	codes := make([]string, 0, len(lines))
	for _, l := range lines {
		codes = append(codes, l.Code)
	}
	assert.Equal(t, []string{CodeBaseFee, CodePerMinute, CodeDiscount, CodeCap, CodeTax}, codes)
	assert.True(t, decimal.RequireFromString("11.00").Equal(lines.Total()), "got %s", lines.Total())
}

func TestSelector_Order(t *testing.T) {
	premium := plan("premium", "0", "0.10", "0")
	tier := customer.TierPremium
	premium.MembershipTier = &tier

	city := plan("montreal", "1", "0.20", "0")
	mtl := "MTL"
	city.CityID = &mtl

	generic := plan("generic", "1", "0.30", "0")
	generic.EffectiveFrom = epoch.Add(time.Hour)

	selector := DefaultSelector(NewMemoryStore(premium, city, generic))
	at := epoch.Add(48 * time.Hour)
	ctx := context.Background()

	tests := []struct {
		name string
		in   SelectionInput
		want string
	}{
		{"membership wins", SelectionInput{Membership: customer.TierPremium, CityID: "MTL", TripEndTime: at}, "premium"},
		{"no membership uses city", SelectionInput{Membership: customer.TierNone, CityID: "MTL", TripEndTime: at}, "montreal"},
		{"unmatched tier uses city", SelectionInput{Membership: customer.TierStandard, CityID: "MTL", TripEndTime: at}, "montreal"},
		{"unmatched city falls through", SelectionInput{Membership: customer.TierNone, CityID: "TOR", TripEndTime: at}, "generic"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := selector.Select(ctx, tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.Name)
		})
	}
}

func TestSelector_FallsThroughToEffectiveDatePlan(t *testing.T) {
	older := plan("older", "1", "0.10", "0")
	older.EffectiveFrom = epoch.Add(-48 * time.Hour)
	newer := plan("newer", "1", "0.20", "0")
	future := plan("future", "1", "0.30", "0")
	future.EffectiveFrom = epoch.Add(30 * 24 * time.Hour)

	selector := DefaultSelector(NewMemoryStore(older, newer, future))
	got, err := selector.Select(context.Background(), SelectionInput{
		Membership:  customer.TierNone,
		CityID:      "nowhere",
		TripEndTime: epoch.Add(time.Hour),
	})

	require.NoError(t, err)
	assert.Equal(t, "newer", got.Name)
}

func TestSelector_TierPlansOnlyForThatTier(t *testing.T) {
	tier := customer.TierPremium
	mtl := "MTL"
	premiumMTL := plan("premium-mtl", "0", "0.10", "0")
	premiumMTL.MembershipTier = &tier
	premiumMTL.CityID = &mtl
	ctx := context.Background()
	at := epoch.Add(48 * time.Hour)

	selector := DefaultSelector(NewMemoryStore(premiumMTL))
	_, err := selector.Select(ctx, SelectionInput{Membership: customer.TierNone, CityID: "MTL", TripEndTime: at})
	assert.ErrorIs(t, err, ErrNoPlanAvailable)
	_, err = selector.Select(ctx, SelectionInput{Membership: customer.TierStandard, CityID: "TOR", TripEndTime: at})
	assert.ErrorIs(t, err, ErrNoPlanAvailable)

	general := plan("general", "1", "0.30", "0")
	selector = DefaultSelector(NewMemoryStore(premiumMTL, general))
	got, err := selector.Select(ctx, SelectionInput{Membership: customer.TierNone, CityID: "MTL", TripEndTime: at})
	require.NoError(t, err)
	assert.Equal(t, "general", got.Name)
	got, err = selector.Select(ctx, SelectionInput{Membership: customer.TierPremium, CityID: "MTL", TripEndTime: at})
	require.NoError(t, err)
	assert.Equal(t, "premium-mtl", got.Name)
}
