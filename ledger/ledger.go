package ledger

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/semanticallynull/bikeshare-backend/internal/clock"
	"github.com/semanticallynull/bikeshare-backend/payment"
	"github.com/semanticallynull/bikeshare-backend/pricing"
)

type Ledger struct {
	store   Store
	gateway payment.Gateway
	clock   clock.Clock
	logger  *slog.Logger
}

func New(store Store, gateway payment.Gateway, c clock.Clock, logger *slog.Logger) *Ledger {
	return &Ledger{
		store:   store,
		gateway: gateway,
		clock:   c,
		logger:  logger.With("component", "ledger"),
	}
}

// AppendTripEntry records a PENDING entry for a priced trip and adds its total
// to the rider's pending balance.
func (l *Ledger) AppendTripEntry(ctx context.Context, bill pricing.Bill, facts pricing.TripFacts) (Entry, error) {
	if facts.RiderID == uuid.Nil {
		return Entry{}, ErrMissingRider
	}
	bikeID := facts.BikeID
	planID := bill.PlanVersionID
	e := Entry{
		ID:            uuid.New(),
		RiderID:       facts.RiderID,
		BikeID:        &bikeID,
		PlanVersionID: &planID,
		PlanName:      bill.PlanName,
		Charges:       bill.Charges,
		Total:         bill.Total,
		Status:        StatusPending,
		Summary:       fmt.Sprintf("Trip %d min, %.2f km", facts.DurationMinutes(), facts.DistanceKm),
		CreatedAt:     l.clock.Now(),
	}
	if err := l.store.Append(ctx, e); err != nil {
		return Entry{}, err
	}
	return e, nil
}

// AppendAdjustment records a correction to a trip entry as a new ADJUSTED
// entry. The adjustment total may be negative.
func (l *Ledger) AppendAdjustment(ctx context.Context, riderID, originalID uuid.UUID, adjustment pricing.Bill, note string) (Entry, error) {
	if len(adjustment.Charges) == 0 {
		return Entry{}, ErrEmptyAdjustment
	}
	original, err := l.store.Get(ctx, originalID)
	if err != nil {
		return Entry{}, err
	}
	if original.RiderID != riderID {
		return Entry{}, ErrRiderMismatch
	}
	if original.AdjustmentOf != nil {
		return Entry{}, ErrNotAdjustable
	}

	e := Entry{
		ID:            uuid.New(),
		RiderID:       riderID,
		BikeID:        original.BikeID,
		PlanVersionID: original.PlanVersionID,
		PlanName:      original.PlanName,
		Charges:       adjustment.Charges,
		Total:         adjustment.Charges.Total(),
		Status:        StatusAdjusted,
		AdjustmentOf:  &original.ID,
		Summary:       note,
		CreatedAt:     l.clock.Now(),
	}
	if err := l.store.Append(ctx, e); err != nil {
		return Entry{}, err
	}
	return e, nil
}

// Adjustment builds a single-line adjustment bill for amount.
func Adjustment(amount string, reason string) (pricing.Bill, error) {
	d, err := parseAmount(amount)
	if err != nil {
		return pricing.Bill{}, err
	}
	charges := pricing.Charges{{Code: CodeAdjustment, Amount: d, Meta: map[string]string{"reason": reason}}}
	return pricing.Bill{Charges: charges, Total: d}, nil
}

// Settle charges the entry total through the payment gateway. A declined
// payment marks the entry FAILED and is not an error; it can be settled again.
func (l *Ledger) Settle(ctx context.Context, entryID uuid.UUID, paymentMethodToken string) (Entry, error) {
	ctx, span := otel.GetTracerProvider().Tracer("ledger").Start(ctx, "Ledger.Settle")
	defer span.End()

	var res payment.Result
	settled, err := l.store.Settle(ctx, entryID, func(e Entry) Outcome {
		res = l.gateway.Charge(ctx, payment.Request{
			RiderID:            e.RiderID,
			Amount:             e.Total,
			PaymentMethodToken: paymentMethodToken,
			ReferenceID:        e.ID.String(),
			Attempt:            e.SettleAttempts + 1,
		})
		processed := res.ProcessedAt
		if processed.IsZero() {
			processed = l.clock.Now()
		}
		return Outcome{
			Paid:          res.Success,
			Reference:     res.TransactionID,
			FailureReason: res.FailureReason,
			ProcessedAt:   processed,
		}
	})
	if err != nil {
		return Entry{}, err
	}
	span.SetAttributes(attribute.Bool("payment.success", res.Success))
	if !res.Success {
		l.logger.WarnContext(ctx, "settlement failed", "entry_id", entryID, "reason", res.FailureReason)
	}
	return settled, nil
}

func (l *Ledger) Entry(ctx context.Context, id uuid.UUID) (Entry, error) {
	return l.store.Get(ctx, id)
}

// History returns the rider's entries created in [from, to), newest first.
func (l *Ledger) History(ctx context.Context, riderID uuid.UUID, from, to time.Time) ([]Entry, error) {
	return l.store.History(ctx, riderID, from, to)
}

func (l *Ledger) Balance(ctx context.Context, riderID uuid.UUID) (Balance, error) {
	b, err := l.store.Balance(ctx, riderID)
	if err != nil {
		return Balance{}, err
	}
	return Balance{RiderID: riderID, Pending: b}, nil
}
