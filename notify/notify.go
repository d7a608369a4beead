// Package notify pushes every bus event to the operations dashboard as a JSON
// envelope. Delivery is best-effort: a sink that fails is logged and never
// aborts the fleet operation that published the event.
package notify

import (
	"context"
	"log/slog"
	"time"

	"github.com/goccy/go-json"

	"github.com/semanticallynull/bikeshare-backend/event"
)

type Envelope struct {
	Type       event.Type  `json:"type"`
	OccurredAt time.Time   `json:"occurredAt"`
	Payload    event.Event `json:"payload"`
}

// Sink delivers one encoded envelope.
type Sink interface {
	Send(ctx context.Context, typ event.Type, body []byte) error
}

type Notifier struct {
	sink   Sink
	logger *slog.Logger
}

func New(sink Sink, logger *slog.Logger) *Notifier {
	return &Notifier{
		sink:   sink,
		logger: logger.With("component", "notifier"),
	}
}

func Encode(e event.Event) ([]byte, error) {
	return json.Marshal(Envelope{
		Type:       e.EventType(),
		OccurredAt: e.Meta().OccurredAt,
		Payload:    e,
	})
}

func (n *Notifier) Handle(ctx context.Context, e event.Event) error {
	body, err := Encode(e)
	if err != nil {
		n.logger.ErrorContext(ctx, "encode event", "type", e.EventType(), "error", err)
		return nil
	}
	if err := n.sink.Send(ctx, e.EventType(), body); err != nil {
		n.logger.WarnContext(ctx, "dashboard notification failed", "type", e.EventType(), "error", err)
	}
	return nil
}
