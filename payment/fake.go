package payment

import (
	"context"
	"log/slog"
	"strings"

	"github.com/oklog/ulid/v2"
	"github.com/shopspring/decimal"

	"github.com/semanticallynull/bikeshare-backend/internal/clock"
)

var chargeLimit = decimal.NewFromInt(10000)

// Magic tokens that make the fake decline a charge.
var declineTokens = map[string]string{
	"insufficient-funds": ReasonInsufficientFunds,
	"test-insufficient":  ReasonInsufficientFunds,
	"expired-card":       ReasonCardExpired,
	"test-expired":       ReasonCardExpired,
	"invalid-card":       ReasonInvalidCard,
	"test-invalid":       ReasonInvalidCard,
	"declined":           ReasonCardDeclined,
	"test-declined":      ReasonCardDeclined,
	"fraud-suspected":    ReasonFraudSuspected,
	"test-fraud":         ReasonFraudSuspected,
	"network-error":      ReasonNetworkError,
	"test-network":       ReasonNetworkError,
}

// Fake is a deterministic Gateway for development and tests.
type Fake struct {
	logger *slog.Logger
	clock  clock.Clock
}

func NewFake(logger *slog.Logger, c clock.Clock) *Fake {
	return &Fake{logger: logger.With("component", "payment.fake"), clock: c}
}

func (f *Fake) Charge(ctx context.Context, req Request) Result {
	now := f.clock.Now()
	logger := f.logger.With("rider_id", req.RiderID, "amount", req.Amount.String(), "reference_id", req.ReferenceID)

	if !req.Amount.IsPositive() {
		logger.WarnContext(ctx, "payment declined", "reason", ReasonInvalidAmount)
		return failed(now, ReasonInvalidAmount)
	}
	if req.Amount.GreaterThan(chargeLimit) {
		logger.WarnContext(ctx, "payment declined", "reason", ReasonAmountExceedsLimit)
		return failed(now, ReasonAmountExceedsLimit)
	}
	if reason, ok := declineTokens[strings.ToLower(req.PaymentMethodToken)]; ok {
		logger.WarnContext(ctx, "payment declined", "reason", reason)
		return failed(now, reason)
	}

	txn := "TXN-" + ulid.Make().String()
	logger.InfoContext(ctx, "payment succeeded", "transaction_id", txn)
	return Result{Success: true, TransactionID: txn, ProcessedAt: now}
}
