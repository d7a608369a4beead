package pricing

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Store persists plan versions. UpdateDraft and Publish only ever touch
// unpublished versions.
type Store interface {
	Insert(ctx context.Context, p Plan) error
	Get(ctx context.Context, id uuid.UUID) (Plan, error)
	UpdateDraft(ctx context.Context, p Plan) error
	Publish(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, publishedOnly bool) ([]Plan, error)
	// Active returns published plans effective at t that match scope,
	// newest EffectiveFrom first.
	Active(ctx context.Context, at time.Time, scope Scope) ([]Plan, error)
}
