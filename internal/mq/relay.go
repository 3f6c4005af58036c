package mq

import (
	"context"
	"encoding/json"
	"log/slog"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/forgo/lootbound/api/internal/model"
)

// Sink receives decoded domain events
type Sink interface {
	Publish(ctx context.Context, event *model.DomainEvent) error
}

// Relay decodes deliveries into domain events and hands them to a sink
type Relay struct {
	sink   Sink
	logger *slog.Logger
}

// NewRelay creates a relay feeding sink
func NewRelay(sink Sink, logger *slog.Logger) *Relay {
	if logger == nil {
		logger = slog.Default()
	}
	return &Relay{sink: sink, logger: logger}
}

// Run consumes msgs until the channel closes or ctx ends. Undecodable
// messages are dropped; sink failures are logged and acked since fan-out is
// best-effort.
func (r *Relay) Run(ctx context.Context, msgs <-chan amqp.Delivery) {
	for {
		select {
		case <-ctx.Done():
			return
		case d, ok := <-msgs:
			if !ok {
				return
			}
			r.handle(ctx, d)
		}
	}
}

func (r *Relay) handle(ctx context.Context, d amqp.Delivery) {
	var event model.DomainEvent
	if err := json.Unmarshal(d.Body, &event); err != nil || event.Type == "" {
		r.logger.WarnContext(ctx, "dropping undecodable event",
			slog.String("routing_key", d.RoutingKey),
			slog.String("message_id", d.MessageId),
		)
		_ = d.Nack(false, false)
		return
	}

	if err := r.sink.Publish(ctx, &event); err != nil {
		r.logger.WarnContext(ctx, "event relay failed",
			slog.String("event_type", string(event.Type)),
			slog.String("event_id", event.ID),
			slog.String("error", err.Error()),
		)
	}
	_ = d.Ack(false)
}
