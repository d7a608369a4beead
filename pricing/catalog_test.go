package pricing

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/semanticallynull/bikeshare-backend/internal/clock"
)

func TestCatalog_DraftLifecycle(t *testing.T) {
	ctx := context.Background()
	c := NewCatalog(NewMemoryStore(), clock.NewFakeClock(epoch))

	draft, err := c.CreateDraft(ctx, Plan{
		Name:           "summer",
		BaseFee:        decimal.RequireFromString("1.00"),
		PerMinuteRate:  decimal.RequireFromString("0.20"),
		EBikeSurcharge: decimal.RequireFromString("0.50"),
	})
	require.NoError(t, err)
	assert.False(t, draft.Published)
	assert.Equal(t, epoch, draft.EffectiveFrom)

	published, err := c.Published(ctx)
	require.NoError(t, err)
	assert.Empty(t, published)

	draft.BaseFee = decimal.RequireFromString("1.25")
	updated, err := c.UpdateDraft(ctx, draft)
	require.NoError(t, err)
	assert.True(t, decimal.RequireFromString("1.25").Equal(updated.BaseFee))

	_, err = c.Publish(ctx, draft.ID)
	require.NoError(t, err)

	_, err = c.UpdateDraft(ctx, draft)
	assert.ErrorIs(t, err, ErrPlanPublished)
	_, err = c.Publish(ctx, draft.ID)
	assert.ErrorIs(t, err, ErrPlanPublished)

	published, err = c.Published(ctx)
	require.NoError(t, err)
	require.Len(t, published, 1)

	ex := published[0].Examples
	require.Len(t, ex, 3)
	// 1.25 + 0.20*15, 1.25 + 0.20*30, and the same plus the e-bike surcharge
	assert.True(t, decimal.RequireFromString("4.25").Equal(ex[0].Cost), "got %s", ex[0].Cost)
	assert.True(t, decimal.RequireFromString("7.25").Equal(ex[1].Cost), "got %s", ex[1].Cost)
	assert.True(t, decimal.RequireFromString("7.75").Equal(ex[2].Cost), "got %s", ex[2].Cost)
}

func TestCatalog_RejectsInvalidPlans(t *testing.T) {
	c := NewCatalog(NewMemoryStore(), clock.NewFakeClock(epoch))

	_, err := c.CreateDraft(context.Background(), Plan{Name: "", BaseFee: decimal.NewFromInt(1)})
	assert.ErrorIs(t, err, errMissingPlanName)

	_, err = c.CreateDraft(context.Background(), Plan{Name: "neg", PerMinuteRate: decimal.NewFromInt(-1)})
	assert.ErrorIs(t, err, errNegativeRate)
}
