package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/semanticallynull/bikeshare-backend/internal/domainerr"
	"github.com/semanticallynull/bikeshare-backend/ledger"
	"github.com/semanticallynull/bikeshare-backend/pricing"
)

var errInvalidRange = domainerr.Validation("INVALID_RANGE", "from and to must be RFC 3339 timestamps")

type entriesQuery struct {
	From string `form:"from"`
	To   string `form:"to"`
}

// entriesHandler lists the rider's entries created in [from, to). Missing
// bounds default to the last 30 days up to and including now.
func (a *API) entriesHandler(c *gin.Context) {
	var q entriesQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		fail(c, errInvalidRange)
		return
	}
	now := a.clock.Now()
	to := now.Add(time.Second)
	from := now.AddDate(0, 0, -30)
	var err error
	if q.To != "" {
		if to, err = time.Parse(time.RFC3339, q.To); err != nil {
			fail(c, errInvalidRange)
			return
		}
	}
	if q.From != "" {
		if from, err = time.Parse(time.RFC3339, q.From); err != nil {
			fail(c, errInvalidRange)
			return
		}
	}

	entries, err := a.ledger.History(c.Request.Context(), rider(c).ID, from, to)
	if err != nil {
		fail(c, err)
		return
	}
	out := make([]entryResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, toEntryResponse(e))
	}
	c.JSON(http.StatusOK, out)
}

// entryHandler only shows riders their own entries. Someone else's entry is
// reported as not found.
func (a *API) entryHandler(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	e, ok := a.ownEntry(c, id)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, toEntryResponse(e))
}

func (a *API) balanceHandler(c *gin.Context) {
	b, err := a.ledger.Balance(c.Request.Context(), rider(c).ID)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, b)
}

type settleRequest struct {
	PaymentMethodToken string `json:"paymentMethodToken" binding:"required"`
}

func (a *API) settleHandler(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	var req settleRequest
	if !bind(c, &req) {
		return
	}
	if _, ok := a.ownEntry(c, id); !ok {
		return
	}

	e, err := a.ledger.Settle(c.Request.Context(), id, req.PaymentMethodToken)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, toEntryResponse(e))
}

type adjustmentRequest struct {
	Amount string `json:"amount" binding:"required"`
	Reason string `json:"reason" binding:"required"`
}

func (a *API) adjustHandler(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	var req adjustmentRequest
	if !bind(c, &req) {
		return
	}
	ctx := c.Request.Context()

	original, err := a.ledger.Entry(ctx, id)
	if err != nil {
		fail(c, err)
		return
	}
	bill, err := ledger.Adjustment(req.Amount, req.Reason)
	if err != nil {
		fail(c, err)
		return
	}

	e, err := a.ledger.AppendAdjustment(ctx, original.RiderID, id, bill, req.Reason)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, toEntryResponse(e))
}

func (a *API) ownEntry(c *gin.Context, id uuid.UUID) (ledger.Entry, bool) {
	e, err := a.ledger.Entry(c.Request.Context(), id)
	if err == nil && e.RiderID != rider(c).ID {
		err = ledger.ErrEntryNotFound
	}
	if err != nil {
		fail(c, err)
		return ledger.Entry{}, false
	}
	return e, true
}

type entryResponse struct {
	ID                 uuid.UUID       `json:"id"`
	RiderID            uuid.UUID       `json:"riderId"`
	BikeID             *uuid.UUID      `json:"bikeId,omitempty"`
	PlanVersionID      *uuid.UUID      `json:"planVersionId,omitempty"`
	PlanName           string          `json:"planName,omitempty"`
	Charges            pricing.Charges `json:"charges"`
	Total              decimal.Decimal `json:"total"`
	Status             ledger.Status   `json:"status"`
	AdjustmentOf       *uuid.UUID      `json:"adjustmentOf,omitempty"`
	Summary            string          `json:"summary"`
	PaymentReference   *string         `json:"paymentReference,omitempty"`
	PaymentProcessedAt *time.Time      `json:"paymentProcessedAt,omitempty"`
	FailureReason      *string         `json:"failureReason,omitempty"`
	CreatedAt          time.Time       `json:"createdAt"`
}

func toEntryResponse(e ledger.Entry) entryResponse {
	return entryResponse{
		ID:                 e.ID,
		RiderID:            e.RiderID,
		BikeID:             e.BikeID,
		PlanVersionID:      e.PlanVersionID,
		PlanName:           e.PlanName,
		Charges:            e.Charges,
		Total:              e.Total,
		Status:             e.Status,
		AdjustmentOf:       e.AdjustmentOf,
		Summary:            e.Summary,
		PaymentReference:   e.PaymentReference,
		PaymentProcessedAt: e.PaymentProcessedAt,
		FailureReason:      e.FailureReason,
		CreatedAt:          e.CreatedAt,
	}
}
