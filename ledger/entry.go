// Package ledger is the append-only record of what riders owe. Entries are
// never rewritten: corrections are new ADJUSTED entries pointing at the
// original, and settlement only records the payment outcome.
package ledger

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/semanticallynull/bikeshare-backend/internal/domainerr"
	"github.com/semanticallynull/bikeshare-backend/pricing"
)

type Status string

const (
	StatusPending  Status = "PENDING"
	StatusPaid     Status = "PAID"
	StatusFailed   Status = "FAILED"
	StatusAdjusted Status = "ADJUSTED"
)

const CodeAdjustment = "ADJUSTMENT"

var (
	ErrEntryNotFound   = domainerr.NotFound("LEDGER_ENTRY_NOT_FOUND", "ledger entry not found")
	ErrNotSettleable   = domainerr.Conflict("ENTRY_NOT_SETTLEABLE", "only pending or failed entries can be settled")
	ErrNotAdjustable   = domainerr.Conflict("ENTRY_NOT_ADJUSTABLE", "adjustments can only target trip entries")
	ErrRiderMismatch   = domainerr.Validation("RIDER_MISMATCH", "entry belongs to a different rider")
	ErrEmptyAdjustment = domainerr.Validation("EMPTY_ADJUSTMENT", "adjustment has no charges")
	ErrMissingRider    = domainerr.Validation("MISSING_RIDER", "rider id is required")
)

type Entry struct {
	ID            uuid.UUID       `db:"id"`
	RiderID       uuid.UUID       `db:"rider_id"`
	BikeID        *uuid.UUID      `db:"bike_id"`
	PlanVersionID *uuid.UUID      `db:"plan_version_id"`
	PlanName      string          `db:"plan_name"`
	Charges       pricing.Charges `db:"charges"`
	Total         decimal.Decimal `db:"total"`
	Status        Status          `db:"status"`
	AdjustmentOf  *uuid.UUID      `db:"adjustment_of"`
	Summary       string          `db:"summary"`

	PaymentReference   *string    `db:"payment_reference"`
	PaymentProcessedAt *time.Time `db:"payment_processed_at"`
	FailureReason      *string    `db:"failure_reason"`
	SettleAttempts     int        `db:"settle_attempts"`

	CreatedAt time.Time `db:"created_at"`
}

func (e Entry) Settleable() bool {
	return e.Status == StatusPending || e.Status == StatusFailed
}

// Outcome is the result of a settlement attempt as written to the store.
type Outcome struct {
	Paid          bool
	Reference     string
	FailureReason string
	ProcessedAt   time.Time
}
