package pricing

import (
	"database/sql/driver"
	"errors"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	CodeBaseFee        = "BASE_FEE"
	CodePerMinute      = "PER_MINUTE"
	CodeEBikeSurcharge = "E_BIKE_SURCHARGE"
	CodeDiscount       = "DISCOUNT"
	CodeCap            = "CAP"
	CodeTax            = "TAX"
)

type ChargeLine struct {
	Code   string            `json:"code"`
	Amount decimal.Decimal   `json:"amount"`
	Meta   map[string]string `json:"meta,omitempty"`
}

// Charges is stored as a JSON document next to the ledger entry it belongs to.
type Charges []ChargeLine

func (c Charges) Value() (driver.Value, error) {
	if c == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(c)
}

func (c *Charges) Scan(src any) error {
	switch v := src.(type) {
	case []byte:
		return json.Unmarshal(v, c)
	case string:
		return json.Unmarshal([]byte(v), c)
	case nil:
		*c = nil
		return nil
	}
	return errors.New("pricing: unsupported charges type")
}

// Total sums every line at full precision.
func (c Charges) Total() decimal.Decimal {
	total := decimal.Zero
	for _, l := range c {
		total = total.Add(l.Amount)
	}
	return total
}

type Bill struct {
	PlanVersionID uuid.UUID       `json:"planVersionId"`
	PlanName      string          `json:"planName"`
	Charges       Charges         `json:"charges"`
	Total         decimal.Decimal `json:"total"`
}
