package events

import (
	"context"
	"errors"
	"fmt"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/librarydesk/circulation/internal/db"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// AuditRoutingKeys are the bindings of the audit queue
var AuditRoutingKeys = []string{"borrow.*", "loan.*"}

var errMalformed = errors.New("malformed event")

// AuditStore persists received events
type AuditStore interface {
	Record(ctx context.Context, ev *db.AuditEvent) (bool, error)
}

// AuditConsumer copies ledger events from the exchange into the audit log
type AuditConsumer struct {
	conn    *amqp.Connection
	channel *amqp.Channel
	queue   string
	tag     string
	store   AuditStore
	log     *zap.Logger
	now     func() time.Time
}

// NewAuditConsumer connects to the broker and declares the exchange
func NewAuditConsumer(url, serviceName string, store AuditStore, log *zap.Logger) (*AuditConsumer, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	// Declare exchange
	if err := ch.ExchangeDeclare(
		ExchangeName,
		ExchangeType,
		true,
		false,
		false,
		false,
		nil,
	); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to declare exchange: %w", err)
	}

	log.Info("Audit consumer connected to RabbitMQ", zap.String("exchange", ExchangeName))

	c := newAuditConsumer(serviceName, store, log)
	c.conn = conn
	c.channel = ch
	return c, nil
}

func newAuditConsumer(serviceName string, store AuditStore, log *zap.Logger) *AuditConsumer {
	return &AuditConsumer{
		queue: fmt.Sprintf("%s.audit.queue", serviceName),
		tag:   serviceName + "-audit",
		store: store,
		log:   log,
		now:   func() time.Time { return time.Now().UTC() },
	}
}

// Start declares and binds the audit queue and processes deliveries until
// ctx is cancelled or the channel closes.
func (c *AuditConsumer) Start(ctx context.Context) error {
	queue, err := c.channel.QueueDeclare(
		c.queue,
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		nil,   // arguments
	)
	if err != nil {
		return fmt.Errorf("failed to declare queue: %w", err)
	}

	for _, key := range AuditRoutingKeys {
		if err := c.channel.QueueBind(queue.Name, key, ExchangeName, false, nil); err != nil {
			return fmt.Errorf("failed to bind queue to %s: %w", key, err)
		}
		c.log.Info("Listening for events", zap.String("routing_key", key))
	}

	msgs, err := c.channel.Consume(
		queue.Name,
		c.tag, // consumer tag
		false, // auto-ack
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,   // args
	)
	if err != nil {
		return fmt.Errorf("failed to register consumer: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-msgs:
			if !ok {
				return nil
			}
			c.handleMessage(ctx, msg)
		}
	}
}

func (c *AuditConsumer) handleMessage(ctx context.Context, msg amqp.Delivery) {
	err := c.process(ctx, msg.RoutingKey, msg.Body)
	switch {
	case err == nil:
		msg.Ack(false)
	case errors.Is(err, errMalformed):
		c.log.Warn("Dropping malformed event", zap.String("routing_key", msg.RoutingKey), zap.Error(err))
		msg.Nack(false, false) // Don't requeue what can never be parsed
	default:
		c.log.Error("Failed to record audit event", zap.String("routing_key", msg.RoutingKey), zap.Error(err))
		msg.Nack(false, true) // Requeue for retry
	}
}

type envelope struct {
	EventID   string              `json:"event_id"`
	EventType string              `json:"event_type"`
	Timestamp string              `json:"timestamp"`
	Payload   jsoniter.RawMessage `json:"payload"`
}

// process turns one delivery into an audit row.
func (c *AuditConsumer) process(ctx context.Context, routingKey string, body []byte) error {
	var ev envelope
	if err := json.Unmarshal(body, &ev); err != nil {
		return fmt.Errorf("%w: %v", errMalformed, err)
	}
	if ev.EventID == "" {
		return fmt.Errorf("%w: missing event_id", errMalformed)
	}
	if ev.EventType == "" {
		ev.EventType = routingKey
	}

	occurred, err := time.Parse(time.RFC3339Nano, ev.Timestamp)
	if err != nil {
		return fmt.Errorf("%w: bad timestamp %q", errMalformed, ev.Timestamp)
	}

	var ref struct {
		RecordID string `json:"record_id"`
	}
	if len(ev.Payload) > 0 {
		if err := json.Unmarshal(ev.Payload, &ref); err != nil {
			return fmt.Errorf("%w: %v", errMalformed, err)
		}
	}

	stored, err := c.store.Record(ctx, &db.AuditEvent{
		EventID:    ev.EventID,
		EventType:  ev.EventType,
		RecordID:   ref.RecordID,
		Payload:    string(ev.Payload),
		OccurredAt: occurred.UTC(),
		ReceivedAt: c.now(),
	})
	if err != nil {
		return err
	}
	if stored {
		c.log.Info("Audit event recorded",
			zap.String("event_id", ev.EventID),
			zap.String("event_type", ev.EventType),
			zap.String("record_id", ref.RecordID),
		)
	}
	return nil
}

// Close closes the consumer connection
func (c *AuditConsumer) Close() {
	if c.channel != nil {
		c.channel.Close()
	}
	if c.conn != nil {
		c.conn.Close()
	}
}
