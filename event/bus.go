package event

import (
	"context"
	"fmt"
	"sync"
)

type Subscriber interface {
	Handle(ctx context.Context, e Event) error
}

type SubscriberFunc func(ctx context.Context, e Event) error

func (f SubscriberFunc) Handle(ctx context.Context, e Event) error {
	return f(ctx, e)
}

// Publisher is the side of the Bus the fleet and billing services see.
type Publisher interface {
	Publish(ctx context.Context, e Event) error
}

// Bus delivers each event to every subscriber in registration order on the
// publishing goroutine. The first subscriber error stops delivery and is
// returned to the publisher.
type Bus struct {
	mu          sync.RWMutex
	subscribers []Subscriber
}

func NewBus() *Bus {
	return &Bus{}
}

func (b *Bus) Subscribe(s Subscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscribers = append(b.subscribers, s)
}

func (b *Bus) Publish(ctx context.Context, e Event) error {
	// Subscribers may publish follow-up events, so they run without the lock.
	b.mu.RLock()
	subs := make([]Subscriber, len(b.subscribers))
	copy(subs, b.subscribers)
	b.mu.RUnlock()

	for _, s := range subs {
		if err := s.Handle(ctx, e); err != nil {
			return fmt.Errorf("handle %s: %w", e.EventType(), err)
		}
	}
	return nil
}
