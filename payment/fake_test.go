package payment

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/semanticallynull/bikeshare-backend/internal/clock"
)

func TestFake_Charge(t *testing.T) {
	fake := NewFake(slog.New(slog.NewTextHandler(io.Discard, nil)), clock.NewFakeClock(time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)))

	tests := []struct {
		name   string
		amount string
		token  string
		reason string
	}{
		{"zero amount", "0", "tok_visa", ReasonInvalidAmount},
		{"negative amount", "-1.00", "tok_visa", ReasonInvalidAmount},
		{"over limit", "10000.01", "tok_visa", ReasonAmountExceedsLimit},
		{"insufficient funds", "6.80", "insufficient-funds", ReasonInsufficientFunds},
		{"expired", "6.80", "TEST-EXPIRED", ReasonCardExpired},
		{"fraud", "6.80", "test-fraud", ReasonFraudSuspected},
		{"network", "6.80", "network-error", ReasonNetworkError},
		{"success", "6.80", "tok_visa", ""},
		{"limit is inclusive", "10000", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := fake.Charge(context.Background(), Request{
				RiderID:            uuid.New(),
				Amount:             decimal.RequireFromString(tt.amount),
				PaymentMethodToken: tt.token,
				ReferenceID:        uuid.NewString(),
			})
			assert.Equal(t, tt.reason == "", res.Success)
			assert.Equal(t, tt.reason, res.FailureReason)
			assert.False(t, res.ProcessedAt.IsZero())
			if res.Success {
				assert.True(t, strings.HasPrefix(res.TransactionID, "TXN-"), "got %s", res.TransactionID)
			} else {
				assert.Empty(t, res.TransactionID)
			}
		})
	}
}

func TestRequest_IdempotencyKeyChangesPerAttempt(t *testing.T) {
	req := Request{ReferenceID: "entry-1", Attempt: 1}
	first := req.IdempotencyKey()
	assert.Equal(t, first, req.IdempotencyKey())

	req.Attempt = 2
	assert.NotEqual(t, first, req.IdempotencyKey())
	assert.Equal(t, "entry-1-2", req.IdempotencyKey())
}
