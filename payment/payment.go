// Package payment charges riders for settled ledger entries. A failed charge
// is a Result, not an error.
package payment

import (
	"context"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	ReasonInvalidAmount      = "INVALID_AMOUNT"
	ReasonAmountExceedsLimit = "AMOUNT_EXCEEDS_LIMIT"
	ReasonInsufficientFunds  = "INSUFFICIENT_FUNDS"
	ReasonCardExpired        = "CARD_EXPIRED"
	ReasonInvalidCard        = "INVALID_CARD"
	ReasonCardDeclined       = "CARD_DECLINED"
	ReasonFraudSuspected     = "FRAUD_SUSPECTED"
	ReasonNetworkError       = "NETWORK_ERROR"
	ReasonNoCustomer         = "NO_PAYMENT_CUSTOMER"
)

type Request struct {
	RiderID            uuid.UUID
	Amount             decimal.Decimal
	PaymentMethodToken string
	// ReferenceID identifies the ledger entry.
	ReferenceID string
	// Attempt counts settlements of the entry, starting at 1.
	Attempt int
}

// IdempotencyKey is stable across network retries of one attempt and new for
// every attempt, so a declined entry can be charged again.
func (r Request) IdempotencyKey() string {
	return r.ReferenceID + "-" + strconv.Itoa(r.Attempt)
}

type Result struct {
	Success       bool
	TransactionID string
	ProcessedAt   time.Time
	FailureReason string
}

type Gateway interface {
	Charge(ctx context.Context, req Request) Result
}

func failed(at time.Time, reason string) Result {
	return Result{ProcessedAt: at, FailureReason: reason}
}
