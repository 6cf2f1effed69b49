package events

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

const (
	// Retry configuration
	maxRetries     = 3
	initialBackoff = 100 * time.Millisecond
	maxBackoff     = 5 * time.Second
)

var confirmTimeout = 5 * time.Second

// channel is the part of *amqp.Channel the publisher needs
type channel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	GetNextPublishSeqNo() uint64
	Close() error
}

// Publisher handles event publishing to RabbitMQ
type Publisher struct {
	conn     *amqp.Connection
	channel  channel
	confirms <-chan amqp.Confirmation
	log      *zap.Logger

	// mu pairs each publish with its confirmation
	mu sync.Mutex
}

// NewPublisher creates a new event publisher
func NewPublisher(url string, log *zap.Logger) (*Publisher, error) {
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
		true,  // durable
		false, // auto-deleted
		false, // internal
		false, // no-wait
		nil,   // arguments
	); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to declare exchange: %w", err)
	}

	// Enable publisher confirms for reliability
	if err := ch.Confirm(false); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to enable publisher confirms: %w", err)
	}
	confirms := ch.NotifyPublish(make(chan amqp.Confirmation, 16))

	log.Info("Connected to RabbitMQ", zap.String("exchange", ExchangeName))

	p := newPublisher(ch, confirms, log)
	p.conn = conn
	return p, nil
}

func newPublisher(ch channel, confirms <-chan amqp.Confirmation, log *zap.Logger) *Publisher {
	return &Publisher{
		channel:  ch,
		confirms: confirms,
		log:      log,
	}
}

// PublishLoanEvent publishes a ledger transition (borrow.* or loan.*)
func (p *Publisher) PublishLoanEvent(ctx context.Context, eventType string, payload LoanPayload) error {
	return p.Publish(ctx, eventType, payload)
}

// PublishBookEvent publishes a catalog change (catalog.*)
func (p *Publisher) PublishBookEvent(ctx context.Context, eventType string, payload BookPayload) error {
	return p.Publish(ctx, eventType, payload)
}

// PublishUserRegistered publishes a user.registered event
func (p *Publisher) PublishUserRegistered(ctx context.Context, payload UserPayload) error {
	return p.Publish(ctx, EventTypeUserRegistered, payload)
}

// Publish wraps payload in an envelope and publishes it under eventType as routing key
func (p *Publisher) Publish(ctx context.Context, eventType string, payload interface{}) error {
	event := Event{
		EventID:       uuid.New().String(),
		EventType:     eventType,
		EventVersion:  EventVersion,
		Timestamp:     time.Now().UTC().Format(time.RFC3339Nano),
		CorrelationID: CorrelationID(ctx),
		Payload:       payload,
	}
	return p.publishWithRetry(ctx, eventType, event)
}

// publishWithRetry publishes an event with exponential backoff retry
func (p *Publisher) publishWithRetry(ctx context.Context, routingKey string, event Event) error {
	body, err := json.Marshal(event)
	if err != nil {
		p.log.Error("Failed to marshal event", zap.Error(err))
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	backoff := initialBackoff
	var lastErr error

	for attempt := 0; attempt < maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
				backoff *= 2
				if backoff > maxBackoff {
					backoff = maxBackoff
				}
			}
		}

		tag := p.channel.GetNextPublishSeqNo()
		err := p.channel.PublishWithContext(
			ctx,
			ExchangeName,
			routingKey,
			false, // mandatory
			false, // immediate
			amqp.Publishing{
				ContentType:   "application/json",
				DeliveryMode:  amqp.Persistent,
				Timestamp:     time.Now(),
				MessageId:     event.EventID,
				CorrelationId: event.CorrelationID,
				Body:          body,
				Headers: amqp.Table{
					"event_type":    event.EventType,
					"event_version": event.EventVersion,
				},
			},
		)
		if err != nil {
			lastErr = err
			p.log.Warn("Failed to publish event, retrying",
				zap.Int("attempt", attempt+1),
				zap.Error(err),
			)
			continue
		}

		lastErr = p.awaitConfirm(ctx, tag)
		if lastErr == nil {
			p.log.Info("Event published successfully",
				zap.String("event_id", event.EventID),
				zap.String("event_type", event.EventType),
				zap.String("routing_key", routingKey),
			)
			return nil
		}
		if errors.Is(lastErr, context.Canceled) || errors.Is(lastErr, context.DeadlineExceeded) {
			return lastErr
		}

		p.log.Warn("Event publish not confirmed, retrying",
			zap.Int("attempt", attempt+1),
			zap.Error(lastErr),
		)
	}

	p.log.Error("Failed to publish event after retries",
		zap.String("event_id", event.EventID),
		zap.String("event_type", event.EventType),
		zap.Int("attempts", maxRetries),
		zap.Error(lastErr),
	)
	return fmt.Errorf("failed to publish event after %d attempts: %w", maxRetries, lastErr)
}

// awaitConfirm waits for the broker's confirmation of delivery tag. Late
// confirmations of earlier, timed-out publishes are skipped.
func (p *Publisher) awaitConfirm(ctx context.Context, tag uint64) error {
	timeout := time.NewTimer(confirmTimeout)
	defer timeout.Stop()

	for {
		select {
		case confirm, ok := <-p.confirms:
			if !ok {
				return errors.New("confirmation channel closed")
			}
			if confirm.DeliveryTag < tag {
				continue
			}
			if !confirm.Ack {
				return errors.New("event not acknowledged")
			}
			return nil
		case <-ctx.Done():
			return ctx.Err()
		case <-timeout.C:
			return errors.New("confirmation timeout")
		}
	}
}

// IsHealthy checks if the publisher connection is healthy
func (p *Publisher) IsHealthy() bool {
	return p.conn != nil && !p.conn.IsClosed()
}

// Close closes the publisher connection
func (p *Publisher) Close() error {
	if p.channel != nil {
		if err := p.channel.Close(); err != nil {
			p.log.Error("Failed to close channel", zap.Error(err))
		}
	}
	if p.conn != nil {
		if err := p.conn.Close(); err != nil {
			p.log.Error("Failed to close connection", zap.Error(err))
			return err
		}
	}
	p.log.Info("Publisher closed")
	return nil
}

// NopPublisher drops every event. It stands in when no broker is configured.
type NopPublisher struct {
	Log *zap.Logger
}

func (n NopPublisher) PublishLoanEvent(_ context.Context, eventType string, payload LoanPayload) error {
	n.debug(eventType, payload.RecordID)
	return nil
}

func (n NopPublisher) PublishBookEvent(_ context.Context, eventType string, payload BookPayload) error {
	n.debug(eventType, payload.BookID)
	return nil
}

func (n NopPublisher) PublishUserRegistered(_ context.Context, payload UserPayload) error {
	n.debug(EventTypeUserRegistered, payload.UserID)
	return nil
}

func (n NopPublisher) IsHealthy() bool { return true }

func (n NopPublisher) Close() error { return nil }

func (n NopPublisher) debug(eventType, subject string) {
	if n.Log != nil {
		n.Log.Debug("Event dropped, no broker configured", zap.String("event_type", eventType), zap.String("subject", subject))
	}
}
