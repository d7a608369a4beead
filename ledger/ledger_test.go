package ledger

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/semanticallynull/bikeshare-backend/internal/clock"
	"github.com/semanticallynull/bikeshare-backend/internal/domainerr"
	"github.com/semanticallynull/bikeshare-backend/payment"
	"github.com/semanticallynull/bikeshare-backend/pricing"
)

var now = time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)

func newLedger(t *testing.T) (*Ledger, *MemoryStore, *clock.FakeClock) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	c := clock.NewFakeClock(now)
	store := NewMemoryStore()
	return New(store, payment.NewFake(logger, c), c, logger), store, c
}

func tripBill(total string) pricing.Bill {
	amount := decimal.RequireFromString(total)
	return pricing.Bill{
		PlanVersionID: uuid.New(),
		PlanName:      "standard",
		Charges:       pricing.Charges{{Code: pricing.CodeBaseFee, Amount: amount}},
		Total:         amount,
	}
}

func tripFacts(rider uuid.UUID) pricing.TripFacts {
	return pricing.TripFacts{
		BikeID:    uuid.New(),
		RiderID:   rider,
		StartTime: now.Add(-18 * time.Minute),
		EndTime:   now,
	}
}

func TestAppendTripEntry_AddsToPendingBalance(t *testing.T) {
	ctx := context.Background()
	l, _, _ := newLedger(t)
	rider := uuid.New()

	e, err := l.AppendTripEntry(ctx, tripBill("6.80"), tripFacts(rider))
	require.NoError(t, err)
	assert.Equal(t, StatusPending, e.Status)
	assert.Nil(t, e.AdjustmentOf)

	b, err := l.Balance(ctx, rider)
	require.NoError(t, err)
	assert.True(t, decimal.RequireFromString("6.80").Equal(b.Pending), "got %s", b.Pending)
}

func TestAppendAdjustment_NegativeTwo(t *testing.T) {
	ctx := context.Background()
	l, _, _ := newLedger(t)
	rider := uuid.New()

	first, err := l.AppendTripEntry(ctx, tripBill("6.80"), tripFacts(rider))
	require.NoError(t, err)

	adj, err := Adjustment("-2.00", "goodwill credit")
	require.NoError(t, err)
	second, err := l.AppendAdjustment(ctx, rider, first.ID, adj, "goodwill credit")
	require.NoError(t, err)

	require.NotNil(t, second.AdjustmentOf)
	assert.Equal(t, first.ID, *second.AdjustmentOf)
	assert.Equal(t, StatusAdjusted, second.Status)

	entries, err := l.History(ctx, rider, now.Add(-time.Hour), now.Add(time.Hour))
	require.NoError(t, err)
	assert.Len(t, entries, 2)

	original, err := l.Entry(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, first, original)

	b, err := l.Balance(ctx, rider)
	require.NoError(t, err)
	want := first.Total.Sub(decimal.RequireFromString("2.00"))
	assert.True(t, want.Equal(b.Pending), "expected %s, got %s", want, b.Pending)
}

func TestAppendAdjustment_Guards(t *testing.T) {
	ctx := context.Background()
	l, _, _ := newLedger(t)
	rider := uuid.New()
	first, err := l.AppendTripEntry(ctx, tripBill("5.00"), tripFacts(rider))
	require.NoError(t, err)
	adj, err := Adjustment("1.00", "late fee")
	require.NoError(t, err)

	_, err = l.AppendAdjustment(ctx, uuid.New(), first.ID, adj, "")
	assert.ErrorIs(t, err, ErrRiderMismatch)

	_, err = l.AppendAdjustment(ctx, rider, uuid.New(), adj, "")
	assert.ErrorIs(t, err, ErrEntryNotFound)

	second, err := l.AppendAdjustment(ctx, rider, first.ID, adj, "")
	require.NoError(t, err)
	_, err = l.AppendAdjustment(ctx, rider, second.ID, adj, "")
	assert.ErrorIs(t, err, domainerr.ErrConflict)

	_, err = Adjustment("0", "")
	assert.ErrorIs(t, err, domainerr.ErrValidation)
}

func TestSettle_Success(t *testing.T) {
	ctx := context.Background()
	l, _, c := newLedger(t)
	rider := uuid.New()
	e, err := l.AppendTripEntry(ctx, tripBill("6.80"), tripFacts(rider))
	require.NoError(t, err)
	c.Advance(time.Minute)

	paid, err := l.Settle(ctx, e.ID, "tok_visa")
	require.NoError(t, err)

	assert.Equal(t, StatusPaid, paid.Status)
	require.NotNil(t, paid.PaymentReference)
	assert.Contains(t, *paid.PaymentReference, "TXN-")
	assert.True(t, paid.Total.Equal(e.Total))
	b, err := l.Balance(ctx, rider)
	require.NoError(t, err)
	assert.True(t, b.Pending.IsZero(), "got %s", b.Pending)

	_, err = l.Settle(ctx, e.ID, "tok_visa")
	assert.ErrorIs(t, err, ErrNotSettleable)
}

func TestSettle_FailureLeavesBalanceAndCanRetry(t *testing.T) {
	ctx := context.Background()
	l, _, _ := newLedger(t)
	rider := uuid.New()
	e, err := l.AppendTripEntry(ctx, tripBill("6.80"), tripFacts(rider))
	require.NoError(t, err)

	failed, err := l.Settle(ctx, e.ID, "declined")
	require.NoError(t, err)
	assert.Equal(t, StatusFailed, failed.Status)
	require.NotNil(t, failed.FailureReason)
	assert.Equal(t, payment.ReasonCardDeclined, *failed.FailureReason)

	b, err := l.Balance(ctx, rider)
	require.NoError(t, err)
	assert.True(t, decimal.RequireFromString("6.80").Equal(b.Pending))

	paid, err := l.Settle(ctx, e.ID, "tok_visa")
	require.NoError(t, err)
	assert.Equal(t, StatusPaid, paid.Status)
	assert.Nil(t, paid.FailureReason)
}

func TestSettle_AdjustedEntriesAreNotSettleable(t *testing.T) {
	ctx := context.Background()
	l, _, _ := newLedger(t)
	rider := uuid.New()
	e, err := l.AppendTripEntry(ctx, tripBill("3.00"), tripFacts(rider))
	require.NoError(t, err)
	adj, err := Adjustment("-1.00", "")
	require.NoError(t, err)
	a, err := l.AppendAdjustment(ctx, rider, e.ID, adj, "")
	require.NoError(t, err)

	_, err = l.Settle(ctx, a.ID, "tok_visa")
	assert.ErrorIs(t, err, ErrNotSettleable)
}

// slowGateway approves every charge after a pause, counting the charges that
// reached it.
type slowGateway struct {
	charges atomic.Int32
}

func (g *slowGateway) Charge(_ context.Context, req payment.Request) payment.Result {
	g.charges.Add(1)
	time.Sleep(20 * time.Millisecond)
	return payment.Result{Success: true, TransactionID: "TXN-" + req.IdempotencyKey(), ProcessedAt: now}
}

func TestSettle_ConcurrentSettlementsChargeOnce(t *testing.T) {
	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	gateway := &slowGateway{}
	l := New(NewMemoryStore(), gateway, clock.NewFakeClock(now), logger)
	rider := uuid.New()
	e, err := l.AppendTripEntry(ctx, tripBill("6.80"), tripFacts(rider))
	require.NoError(t, err)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = l.Settle(ctx, e.ID, "tok_visa")
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int32(1), gateway.charges.Load())
	failures := 0
	for _, err := range errs {
		if err != nil {
			assert.ErrorIs(t, err, ErrNotSettleable)
			failures++
		}
	}
	assert.Equal(t, 1, failures)

	b, err := l.Balance(ctx, rider)
	require.NoError(t, err)
	assert.True(t, b.Pending.IsZero(), "got %s", b.Pending)
}

func TestSettle_EachAttemptIsNumbered(t *testing.T) {
	ctx := context.Background()
	l, _, _ := newLedger(t)
	rider := uuid.New()
	e, err := l.AppendTripEntry(ctx, tripBill("6.80"), tripFacts(rider))
	require.NoError(t, err)

	failed, err := l.Settle(ctx, e.ID, "declined")
	require.NoError(t, err)
	assert.Equal(t, 1, failed.SettleAttempts)

	paid, err := l.Settle(ctx, e.ID, "tok_visa")
	require.NoError(t, err)
	assert.Equal(t, 2, paid.SettleAttempts)
}
