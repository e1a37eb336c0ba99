package bus

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hiethm9980-coder/cebx-code-sub001/internal/domain"
	"github.com/nats-io/nats.go"
)

// NATSBus carries shipment and fraud events between cebx replicas. Each
// cebx.* topic is its own subject. With a queue group configured, each
// delivered shipment is scanned by one worker replica rather than all of them.
type NATSBus struct {
	mu    sync.Mutex
	conn  *nats.Conn
	queue string
	subs  map[string]*natsSubscription
}

type natsSubscription struct {
	id    string
	topic string
	sub   *nats.Subscription
	bus   *NATSBus
}

// NewNATSBus dials NATS, retrying the initial connect NATSMaxReconnects times.
func NewNATSBus(cfg domain.EventBusConfig) (*NATSBus, error) {
	if cfg.NATSUrl == "" {
		cfg.NATSUrl = nats.DefaultURL
	}
	if cfg.NATSMaxReconnects == 0 {
		cfg.NATSMaxReconnects = 10
	}
	if cfg.NATSReconnectWait == 0 {
		cfg.NATSReconnectWait = 5
	}

	conn, err := dial(cfg)
	if err != nil {
		return nil, err
	}

	slog.Info("event bus connected",
		"url", conn.ConnectedUrl(),
		"server_id", conn.ConnectedServerId(),
		"queue", cfg.NATSQueue,
	)

	return &NATSBus{
		conn:  conn,
		queue: cfg.NATSQueue,
		subs:  make(map[string]*natsSubscription),
	}, nil
}

func dial(cfg domain.EventBusConfig) (*nats.Conn, error) {
	wait := time.Duration(cfg.NATSReconnectWait) * time.Second
	opts := natsOptions(cfg, wait)

	var err error
	for attempt := 1; attempt <= cfg.NATSMaxReconnects; attempt++ {
		var conn *nats.Conn
		if conn, err = nats.Connect(cfg.NATSUrl, opts...); err == nil {
			return conn, nil
		}
		slog.Warn("event bus connect failed",
			"attempt", attempt,
			"max_attempts", cfg.NATSMaxReconnects,
			"error", err,
		)
		if attempt < cfg.NATSMaxReconnects {
			time.Sleep(wait)
		}
	}
	return nil, fmt.Errorf("failed to connect to NATS after %d attempts: %w", cfg.NATSMaxReconnects, err)
}

func natsOptions(cfg domain.EventBusConfig, wait time.Duration) []nats.Option {
	opts := []nats.Option{
		nats.Name("cebx"),
		nats.MaxReconnects(cfg.NATSMaxReconnects),
		nats.ReconnectWait(wait),
		// Shipment events published while reconnecting are buffered, up to 8MB.
		nats.ReconnectBufSize(8 * 1024 * 1024),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			slog.Warn("event bus disconnected", "error", err, "will_reconnect", !nc.IsClosed())
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			slog.Info("event bus reconnected", "url", nc.ConnectedUrl())
		}),
		nats.ClosedHandler(func(*nats.Conn) {
			slog.Info("event bus closed")
		}),
		nats.ErrorHandler(func(_ *nats.Conn, sub *nats.Subscription, err error) {
			topic := ""
			if sub != nil {
				topic = sub.Subject
			}
			slog.Error("event bus error", "topic", topic, "error", err)
		}),
	}
	if cfg.NATSToken != "" {
		opts = append(opts, nats.Token(cfg.NATSToken))
	}
	return opts
}

// Publish wraps payload in a traced envelope and sends it on topic.
func (b *NATSBus) Publish(ctx context.Context, topic string, payload []byte) error {
	data, err := json.Marshal(newMessage(ctx, topic, payload))
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}
	if err := b.conn.Publish(topic, data); err != nil {
		return fmt.Errorf("failed to publish %s: %w", topic, err)
	}
	return nil
}

// Subscribe runs handler for every envelope on topic, or for this replica's
// share of them when a queue group is set.
func (b *NATSBus) Subscribe(ctx context.Context, topic string, handler domain.MessageHandler) (domain.Subscription, error) {
	cb := natsHandler(ctx, handler)

	var (
		ns  *nats.Subscription
		err error
	)
	if b.queue != "" {
		ns, err = b.conn.QueueSubscribe(topic, b.queue, cb)
	} else {
		ns, err = b.conn.Subscribe(topic, cb)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to subscribe to %s: %w", topic, err)
	}

	sub := &natsSubscription{id: uuid.New().String(), topic: topic, sub: ns, bus: b}

	b.mu.Lock()
	b.subs[sub.id] = sub
	b.mu.Unlock()

	return sub, nil
}

// natsHandler decodes the envelope and hands it to handler under the
// publisher's trace context. Undecodable messages are logged and dropped.
func natsHandler(ctx context.Context, handler domain.MessageHandler) nats.MsgHandler {
	return func(m *nats.Msg) {
		var msg domain.Message
		if err := json.Unmarshal(m.Data, &msg); err != nil {
			slog.Error("dropping undecodable event", "topic", m.Subject, "error", err)
			return
		}
		if err := handler(messageContext(ctx, &msg), &msg); err != nil {
			slog.Error("event handler failed",
				"topic", m.Subject,
				"message_id", msg.ID,
				"error", err,
			)
		}
	}
}

// Ping round-trips to the server.
func (b *NATSBus) Ping(ctx context.Context) error {
	if !b.conn.IsConnected() {
		return errors.New("NATS not connected")
	}
	return b.conn.FlushWithContext(ctx)
}

// Close drains the connection so in-flight scans finish, then closes it.
func (b *NATSBus) Close() error {
	b.mu.Lock()
	b.subs = make(map[string]*natsSubscription)
	b.mu.Unlock()

	if err := b.conn.Drain(); err != nil {
		b.conn.Close()
		return fmt.Errorf("failed to drain NATS: %w", err)
	}
	return nil
}

// Stats returns NATS connection statistics.
func (b *NATSBus) Stats() nats.Statistics {
	return b.conn.Stats()
}

func (s *natsSubscription) Unsubscribe() error {
	s.bus.mu.Lock()
	delete(s.bus.subs, s.id)
	s.bus.mu.Unlock()
	return s.sub.Unsubscribe()
}

func (s *natsSubscription) Topic() string {
	return s.topic
}
