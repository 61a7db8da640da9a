package event

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

const (
	dialTimeout = 2 * time.Second
	// redialBackoff is how long publishes fail fast after a failed dial.
	redialBackoff = 5 * time.Second
)

type channel interface {
	QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error)
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// dialFunc opens a channel to the broker and returns a closer for the whole
// connection.
type dialFunc func(url string) (channel, func() error, error)

// AMQPPublisher writes events as persistent JSON messages to durable queues
// on the default exchange. The connection is opened lazily and reopened after
// a failed publish. After a failed dial, publishes return an error without
// dialing until redialBackoff has passed.
type AMQPPublisher struct {
	url  string
	dial dialFunc
	now  func() time.Time
	log  *zap.Logger

	mu        sync.Mutex
	ch        channel
	closeConn func() error
	retryAt   time.Time
}

func NewAMQPPublisher(url string, log *zap.Logger) *AMQPPublisher {
	return &AMQPPublisher{
		url:  url,
		dial: dialAMQP,
		now:  time.Now,
		log:  log.With(zap.String("component", "amqp_publisher")),
	}
}

func dialAMQP(url string) (channel, func() error, error) {
	conn, err := amqp.DialConfig(url, amqp.Config{
		Heartbeat: 10 * time.Second,
		Locale:    "en_US",
		Dial:      amqp.DefaultDial(dialTimeout),
	})
	if err != nil {
		return nil, nil, fmt.Errorf("dial broker: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, nil, fmt.Errorf("open channel: %w", err)
	}

	return ch, conn.Close, nil
}

func (p *AMQPPublisher) BookingConfirmed(ctx context.Context, e BookingEvent) error {
	return p.publish(ctx, QueueBookingConfirmed, e)
}

func (p *AMQPPublisher) BookingCancelled(ctx context.Context, e BookingEvent) error {
	return p.publish(ctx, QueueBookingCancelled, e)
}

func (p *AMQPPublisher) publish(ctx context.Context, queue string, e BookingEvent) error {
	body, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal %s event: %w", queue, err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.ch == nil {
		if now := p.now(); now.Before(p.retryAt) {
			return fmt.Errorf("publish %s: broker unavailable, next dial in %s", queue, p.retryAt.Sub(now).Round(time.Millisecond))
		}
		ch, closeConn, err := p.dial(p.url)
		if err != nil {
			p.retryAt = p.now().Add(redialBackoff)
			p.log.Error("Failed to connect to broker", zap.Error(err))
			return err
		}
		p.ch, p.closeConn = ch, closeConn
	}

	if _, err := p.ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		p.resetLocked()
		p.log.Error("Failed to declare queue", zap.String("queue", queue), zap.Error(err))
		return fmt.Errorf("declare %s: %w", queue, err)
	}

	msg := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	}
	if err := p.ch.PublishWithContext(ctx, "", queue, false, false, msg); err != nil {
		p.resetLocked()
		p.log.Error("Failed to publish event", zap.String("queue", queue), zap.Error(err))
		return fmt.Errorf("publish %s: %w", queue, err)
	}

	p.log.Debug("Event published",
		zap.String("queue", queue),
		zap.String("booking_id", e.BookingID.String()),
	)
	return nil
}

func (p *AMQPPublisher) resetLocked() {
	if p.ch != nil {
		_ = p.ch.Close()
	}
	if p.closeConn != nil {
		_ = p.closeConn()
	}
	p.ch, p.closeConn = nil, nil
}

// Close releases the broker connection, if one is open.
func (p *AMQPPublisher) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.resetLocked()
}
