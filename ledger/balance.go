package ledger

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/semanticallynull/bikeshare-backend/internal/domainerr"
)

var errInvalidAmount = domainerr.Validation("INVALID_AMOUNT", "amount must be a non-zero decimal")

type Balance struct {
	RiderID uuid.UUID       `json:"riderId"`
	Pending decimal.Decimal `json:"pendingBalance"`
}

func parseAmount(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil || d.IsZero() {
		return decimal.Zero, errInvalidAmount
	}
	return d, nil
}
