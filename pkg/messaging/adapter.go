package messaging

import (
	"context"
	"fmt"

	"github.com/jwalitptl/clinic-onboarding/pkg/logger"
)

// ChannelPublisher publishes every event to one channel on a Broker.
type ChannelPublisher struct {
	broker  Broker
	channel string
}

func NewChannelPublisher(broker Broker, channel string) *ChannelPublisher {
	return &ChannelPublisher{broker: broker, channel: channel}
}

func (p *ChannelPublisher) Publish(ctx context.Context, event Envelope) error {
	if event.Type == "" {
		return fmt.Errorf("event type is required")
	}
	return p.broker.Publish(ctx, p.channel, event)
}

// LogPublisher only logs events. The API uses it with the in-memory store,
// where no second process can share the outbox.
type LogPublisher struct {
	logger *logger.Logger
}

func NewLogPublisher(log *logger.Logger) *LogPublisher {
	return &LogPublisher{logger: log}
}

func (p *LogPublisher) Publish(ctx context.Context, event Envelope) error {
	p.logger.Info("domain event",
		"event_id", event.ID.String(),
		"event_type", event.Type,
		"aggregate_id", event.AggregateID.String())
	return nil
}
