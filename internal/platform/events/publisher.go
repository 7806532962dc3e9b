package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/pubsub"
)

// Event types emitted by the storefront.
const (
	TypeProductCreated  = "catalog.product.created"
	TypeProductUpdated  = "catalog.product.updated"
	TypeProductDeleted  = "catalog.product.deleted"
	TypeVariantCreated  = "catalog.variant.created"
	TypeVariantUpdated  = "catalog.variant.updated"
	TypeVariantDeleted  = "catalog.variant.deleted"
	TypeStockUpdated    = "catalog.stock.updated"
	TypeContactReceived = "contact.message.received"
)

// Event is a domain notification published after a successful write.
type Event struct {
	Type       string            `json:"type"`
	Subject    string            `json:"subject"`
	ActorID    string            `json:"actorId,omitempty"`
	OccurredAt time.Time         `json:"occurredAt"`
	Data       map[string]string `json:"data,omitempty"`
}

// Publisher delivers events to subscribers.
type Publisher interface {
	Publish(ctx context.Context, event Event) (string, error)
}

// PubSubPublisher publishes events to a Pub/Sub topic.
type PubSubPublisher struct {
	topic   *pubsub.Topic
	marshal func(any) ([]byte, error)
}

// NewPubSubPublisher constructs a Pub/Sub backed event publisher.
func NewPubSubPublisher(topic *pubsub.Topic) (*PubSubPublisher, error) {
	if topic == nil {
		return nil, errors.New("pubsub event publisher: topic is required")
	}
	return &PubSubPublisher{topic: topic, marshal: json.Marshal}, nil
}

// Publish sends event and waits for the server-assigned message id.
func (p *PubSubPublisher) Publish(ctx context.Context, event Event) (string, error) {
	if p == nil || p.topic == nil {
		return "", errors.New("pubsub event publisher: not initialised")
	}
	if strings.TrimSpace(event.Type) == "" {
		return "", errors.New("pubsub event publisher: event type is required")
	}

	data, err := p.marshal(event)
	if err != nil {
		return "", fmt.Errorf("marshal event: %w", err)
	}

	attrs := make(map[string]string, 3)
	setAttr(attrs, "type", event.Type)
	setAttr(attrs, "subject", event.Subject)
	setAttr(attrs, "actorId", event.ActorID)

	result := p.topic.Publish(ctx, &pubsub.Message{Data: data, Attributes: attrs})
	id, err := result.Get(ctx)
	if err != nil {
		return "", fmt.Errorf("publish %s: %w", event.Type, err)
	}
	return id, nil
}

// NopPublisher discards events. It is used when event publishing is disabled.
type NopPublisher struct{}

// Publish implements Publisher.
func (NopPublisher) Publish(context.Context, Event) (string, error) { return "", nil }

func setAttr(attrs map[string]string, key, value string) {
	if v := strings.TrimSpace(value); v != "" {
		attrs[key] = v
	}
}
