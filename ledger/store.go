package ledger

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Store has no way to change an entry's charges or total once appended.
type Store interface {
	// Append inserts e and adds e.Total to the rider's pending balance in the
	// same transaction.
	Append(ctx context.Context, e Entry) error
	Get(ctx context.Context, id uuid.UUID) (Entry, error)
	// Settle holds the entry while charge runs and writes the outcome before
	// letting go, so concurrent settlements of one entry never both charge.
	// charge only runs on a PENDING or FAILED entry. A paid outcome
	// subtracts the entry total from the pending balance.
	Settle(ctx context.Context, id uuid.UUID, charge func(Entry) Outcome) (Entry, error)
	History(ctx context.Context, riderID uuid.UUID, from, to time.Time) ([]Entry, error)
	Balance(ctx context.Context, riderID uuid.UUID) (decimal.Decimal, error)
}
