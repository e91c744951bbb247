package services

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/iheejigoro/apiserver/types"
)

const publishTimeout = 5 * time.Second

// EventPublisher is satisfied by *mq.MQ.
type EventPublisher interface {
	PublishEvent(ctx context.Context, channel string, event types.Event) (string, error)
}

// Events publishes domain events after writes commit. Publishing never fails
// the caller; errors are logged and dropped. A nil *Events is a no-op.
type Events struct {
	publisher EventPublisher
	channel   string
	logger    *slog.Logger
	now       func() time.Time
}

func NewEvents(publisher EventPublisher, channel string, logger *slog.Logger) *Events {
	if publisher == nil {
		return nil
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Events{
		publisher: publisher,
		channel:   channel,
		logger:    logger,
		now:       time.Now,
	}
}

func (e *Events) emit(ctx context.Context, eventType, subjectID, actorID string, payload any) {
	if e == nil {
		return
	}

	event := types.Event{
		Type:       eventType,
		SubjectID:  subjectID,
		ActorID:    actorID,
		OccurredAt: e.now().UTC(),
	}
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			e.logger.ErrorContext(ctx, "encode event payload", "type", eventType, "error", err)
			return
		}
		event.Payload = raw
	}

	// The request may already be finishing; keep its values but not its deadline.
	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()

	id, err := e.publisher.PublishEvent(pubCtx, e.channel, event)
	if err != nil {
		e.logger.WarnContext(ctx, "publish event failed", "type", eventType, "subject_id", subjectID, "error", err)
		return
	}
	e.logger.DebugContext(ctx, "event published", "type", eventType, "subject_id", subjectID, "message_id", id)
}
