package domain

import (
	"context"
)

// EventBus defines the interface for event-driven communication.
// Supports Go channels or NATS.
type EventBus interface {
	// Publish sends a message to a topic.
	Publish(ctx context.Context, topic string, payload []byte) error

	// Subscribe registers a handler for a topic.
	// Returns a subscription that can be used to unsubscribe.
	Subscribe(ctx context.Context, topic string, handler MessageHandler) (Subscription, error)

	// Health check
	Ping(ctx context.Context) error

	// Lifecycle
	Close() error
}

// MessageHandler processes incoming messages.
type MessageHandler func(ctx context.Context, msg *Message) error

// Message represents an event message.
type Message struct {
	ID        string            `json:"id"`
	Topic     string            `json:"topic"`
	Payload   []byte            `json:"payload"`
	Metadata  map[string]string `json:"metadata"`
	Timestamp int64             `json:"timestamp"`
}

// Subscription represents an active subscription.
type Subscription interface {
	// Unsubscribe stops receiving messages.
	Unsubscribe() error

	// Topic returns the subscribed topic.
	Topic() string
}

// EventBusConfig holds configuration for event bus initialization.
type EventBusConfig struct {
	// Type is the bus type: "channel" or "nats"
	Type string `yaml:"type"`

	// Channel settings
	ChannelBufferSize int `yaml:"channel_buffer_size"`

	// NATS settings
	NATSUrl           string `yaml:"nats_url"`
	NATSToken         string `yaml:"nats_token"`
	NATSMaxReconnects int    `yaml:"nats_max_reconnects"`
	NATSReconnectWait int    `yaml:"nats_reconnect_wait"` // seconds

	// NATSQueue, when set, load-balances each topic across replicas
	// subscribing under the same name.
	NATSQueue string `yaml:"nats_queue"`
}

// Standard topic names.
const (
	TopicShipmentCreated      = "cebx.shipment.created"
	TopicShipmentDelivered    = "cebx.shipment.delivered"
	TopicFraudScanned         = "cebx.fraud.scanned"
	TopicFraudFlagged         = "cebx.fraud.flagged"
	TopicFraudBatch           = "cebx.fraud.batch"
	TopicCommissionCalculated = "cebx.commission.calculated"
)

// ShipmentEvent is the payload of shipment lifecycle topics.
type ShipmentEvent struct {
	ShipmentID string `json:"shipmentId"`
	TraceID    string `json:"traceId,omitempty"`
}
