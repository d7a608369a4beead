package payment

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"strings"

	"github.com/stripe/stripe-go/v84"
	"github.com/stripe/stripe-go/v84/paymentintent"

	"github.com/semanticallynull/bikeshare-backend/customer"
	"github.com/semanticallynull/bikeshare-backend/internal/clock"
)

// Stripe charges the rider's saved Stripe customer with an off-session
// PaymentIntent. stripe.Key must be set by the caller.
type Stripe struct {
	customers customer.Store
	currency  string
	logger    *slog.Logger
	clock     clock.Clock
}

func NewStripe(customers customer.Store, currency string, logger *slog.Logger, c clock.Clock) *Stripe {
	return &Stripe{
		customers: customers,
		currency:  strings.ToLower(currency),
		logger:    logger.With("component", "payment.stripe"),
		clock:     c,
	}
}

func (s *Stripe) Charge(ctx context.Context, req Request) Result {
	now := s.clock.Now()
	if !req.Amount.IsPositive() {
		return failed(now, ReasonInvalidAmount)
	}

	cust, err := s.customers.GetCustomer(ctx, req.RiderID)
	if err != nil || !cust.StripeID.Valid {
		s.logger.WarnContext(ctx, "no stripe customer for rider", "rider_id", req.RiderID, "error", err)
		return failed(now, ReasonNoCustomer)
	}

	params := &stripe.PaymentIntentParams{
		Amount:        stripe.Int64(req.Amount.Shift(2).Round(0).IntPart()),
		Currency:      stripe.String(s.currency),
		Customer:      stripe.String(cust.StripeID.String),
		PaymentMethod: stripe.String(req.PaymentMethodToken),
		Confirm:       stripe.Bool(true),
		OffSession:    stripe.Bool(true),
	}
	params.SetIdempotencyKey(req.IdempotencyKey())
	params.AddMetadata("ledger_entry_id", req.ReferenceID)
	params.AddMetadata("rider_id", req.RiderID.String())
	params.AddMetadata("attempt", strconv.Itoa(req.Attempt))

	pi, err := paymentintent.New(params)
	if err != nil {
		reason := ReasonCardDeclined
		var serr *stripe.Error
		if errors.As(err, &serr) && serr.Code != "" {
			reason = strings.ToUpper(string(serr.Code))
		}
		s.logger.WarnContext(ctx, "stripe charge failed", "reference_id", req.ReferenceID, "error", err)
		return failed(now, reason)
	}
	if pi.Status != stripe.PaymentIntentStatusSucceeded {
		return failed(now, strings.ToUpper(string(pi.Status)))
	}
	return Result{Success: true, TransactionID: pi.ID, ProcessedAt: now}
}
