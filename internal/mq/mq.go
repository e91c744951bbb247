package mq

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/iheejigoro/apiserver/types"
)

// Attribute keys set on every published event so consumers can route
// without decoding the body.
const (
	AttrEventType = "type"
	AttrSubjectID = "subject_id"
)

// Message represents a broker-agnostic payload delivered to subscribers.
type Message struct {
	ID         string
	Data       []byte
	Attributes map[string]string
}

// Handler processes a message. Return an error to signal a retry/nack.
type Handler func(ctx context.Context, msg Message) error

// EventHandler processes a decoded domain event.
type EventHandler func(ctx context.Context, id string, event types.Event) error

// Backend defines the broker-agnostic operations used by the app.
type Backend interface {
	Publish(ctx context.Context, channel string, data []byte, attrs map[string]string) (string, error)
	Subscribe(ctx context.Context, channel string, handler Handler) error
	Close() error
}

// MQ carries marketplace events over the configured backend.
type MQ struct {
	backend Backend
}

func New(backend Backend) *MQ {
	return &MQ{backend: backend}
}

// PublishEvent encodes event as JSON and publishes it on channel with its
// type and subject as attributes. It returns the broker's message id.
func (m *MQ) PublishEvent(ctx context.Context, channel string, event types.Event) (string, error) {
	if event.Type == "" {
		return "", errors.New("event type is required")
	}
	data, err := json.Marshal(event)
	if err != nil {
		return "", fmt.Errorf("encode %s event: %w", event.Type, err)
	}
	return m.backend.Publish(ctx, channel, data, map[string]string{
		AttrEventType: event.Type,
		AttrSubjectID: event.SubjectID,
	})
}

// SubscribeEvents consumes channel and hands each decoded event to handler.
// Messages that are not event envelopes are acknowledged and passed to
// onInvalid, which may be nil.
func (m *MQ) SubscribeEvents(ctx context.Context, channel string, handler EventHandler, onInvalid func(Message, error)) error {
	return m.backend.Subscribe(ctx, channel, func(ctx context.Context, msg Message) error {
		event, err := DecodeEvent(msg)
		if err != nil {
			if onInvalid != nil {
				onInvalid(msg, err)
			}
			return nil
		}
		return handler(ctx, msg.ID, event)
	})
}

// DecodeEvent reads the envelope written by PublishEvent. Attributes fill
// in fields the body left empty.
func DecodeEvent(msg Message) (types.Event, error) {
	var event types.Event
	if err := json.Unmarshal(msg.Data, &event); err != nil {
		return types.Event{}, fmt.Errorf("decode event %s: %w", msg.ID, err)
	}
	if event.Type == "" {
		event.Type = msg.Attributes[AttrEventType]
	}
	if event.SubjectID == "" {
		event.SubjectID = msg.Attributes[AttrSubjectID]
	}
	if event.Type == "" {
		return types.Event{}, fmt.Errorf("decode event %s: missing type", msg.ID)
	}
	return event, nil
}

func (m *MQ) Close() error {
	return m.backend.Close()
}
