package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/forgo/lootbound/api/internal/model"
)

// EventPublisher receives domain events after the transition commits
type EventPublisher interface {
	Publish(ctx context.Context, event *model.DomainEvent) error
}

// NopPublisher discards every event
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, *model.DomainEvent) error { return nil }

// newEvent stamps an event with a fresh id
func newEvent(typ model.EventType, partyID, playerID string, data map[string]any, now time.Time) *model.DomainEvent {
	return &model.DomainEvent{
		ID:        uuid.New().String(),
		Type:      typ,
		PartyID:   partyID,
		PlayerID:  playerID,
		Data:      data,
		Timestamp: now.UTC(),
	}
}

// emit publishes and logs a failure; delivery never fails the operation
func emit(ctx context.Context, pub EventPublisher, logger *slog.Logger, event *model.DomainEvent) {
	if pub == nil {
		return
	}
	if err := pub.Publish(ctx, event); err != nil {
		logger.WarnContext(ctx, "event publish failed",
			slog.String("event_type", string(event.Type)),
			slog.String("event_id", event.ID),
			slog.String("error", err.Error()),
		)
	}
}

func defaultLogger(l *slog.Logger) *slog.Logger {
	if l == nil {
		return slog.Default()
	}
	return l
}

func defaultClock(now func() time.Time) func() time.Time {
	if now == nil {
		return time.Now
	}
	return now
}

func defaultPublisher(p EventPublisher) EventPublisher {
	if p == nil {
		return NopPublisher{}
	}
	return p
}
