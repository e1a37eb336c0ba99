// Package bus provides event bus implementations for shipment and decision events.
package bus

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hiethm9980-coder/cebx-code-sub001/internal/domain"
	"go.opentelemetry.io/otel/propagation"
)

var propagator = propagation.TraceContext{}

// New creates a new event bus based on configuration.
// "channel" keeps events in process; "nats" fans them out across replicas.
func New(cfg domain.EventBusConfig) (domain.EventBus, error) {
	switch cfg.Type {
	case "channel", "":
		return NewChannelBus(cfg.ChannelBufferSize), nil

	case "nats":
		b, err := NewNATSBus(cfg)
		if err != nil {
			return nil, err
		}
		return b, nil

	default:
		return nil, fmt.Errorf("unsupported event bus type: %s", cfg.Type)
	}
}

// newMessage builds an envelope carrying the caller's trace context.
func newMessage(ctx context.Context, topic string, payload []byte) *domain.Message {
	msg := &domain.Message{
		ID:        uuid.New().String(),
		Topic:     topic,
		Payload:   payload,
		Metadata:  make(map[string]string),
		Timestamp: time.Now().UnixNano(),
	}
	propagator.Inject(ctx, propagation.MapCarrier(msg.Metadata))
	return msg
}

// messageContext restores the publisher's trace context on the subscriber side.
func messageContext(ctx context.Context, msg *domain.Message) context.Context {
	if len(msg.Metadata) == 0 {
		return ctx
	}
	return propagator.Extract(ctx, propagation.MapCarrier(msg.Metadata))
}
