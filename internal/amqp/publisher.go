package amqp

import "context"

// Publisher is what request-path code needs from the event bus.
type Publisher interface {
	PublishEntityEvent(ctx context.Context, ev *EntityEvent) error
}

var _ Publisher = (*Client)(nil)

// NopPublisher discards every event; used when AMQP_URL is unset.
type NopPublisher struct{}

func (NopPublisher) PublishEntityEvent(context.Context, *EntityEvent) error { return nil }
