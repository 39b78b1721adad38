package services

import (
	"context"
	"time"

	"github.com/oklog/ulid/v2"
)

// Domain event types published after successful writes.
const (
	EventCheckoutSessionCreated = "checkout.session.created"
	EventTemplateImageUploaded  = "catalog.template.image_uploaded"
	EventTemplatesSeeded        = "catalog.templates.seeded"
	EventForumMessagePosted     = "forum.message.posted"
	EventForumLikeChanged       = "forum.like.changed"
)

// Event is a storefront domain event. Data must be JSON serialisable.
type Event struct {
	ID         string
	Type       string
	Subject    string
	OccurredAt time.Time
	Data       any
}

// EventPublisher delivers domain events to downstream consumers.
type EventPublisher interface {
	PublishEvent(ctx context.Context, event Event) error
}

// eventEmitter publishes best effort: a failed publish is logged and never fails the
// operation that produced the event.
type eventEmitter struct {
	publisher EventPublisher
	logger    func(context.Context, string, map[string]any)
	now       func() time.Time
	newID     func() string
}

func newEventEmitter(publisher EventPublisher, logger func(context.Context, string, map[string]any), now func() time.Time) eventEmitter {
	return eventEmitter{
		publisher: publisher,
		logger:    logger,
		now:       now,
		newID:     func() string { return ulid.Make().String() },
	}
}

func (e eventEmitter) emit(ctx context.Context, eventType, subject string, data any) {
	if e.publisher == nil {
		return
	}
	event := Event{
		ID:         e.newID(),
		Type:       eventType,
		Subject:    subject,
		OccurredAt: e.now(),
		Data:       data,
	}
	if err := e.publisher.PublishEvent(ctx, event); err != nil {
		e.logger(ctx, "events.publish.failed", map[string]any{
			"eventId":   event.ID,
			"eventType": eventType,
			"subject":   subject,
			"error":     err.Error(),
		})
	}
}

func noopLogger(context.Context, string, map[string]any) {}
