package notifier

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"roombook/pkg/kafka"
	"roombook/pkg/logger"
	"roombook/pkg/model"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Channel is the subset of *amqp.Channel used for publishing.
type Channel interface {
	QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error)
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

type RabbitMQNotifier struct {
	conn    *amqp.Connection
	channel Channel
	queue   string
	mu      sync.Mutex
}

// DialRabbitMQ connects to url and declares the durable booking queue.
func DialRabbitMQ(url, queue string) (*RabbitMQNotifier, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("rabbitmq dial: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("rabbitmq channel: %w", err)
	}

	n, err := NewRabbitMQNotifier(ch, queue)
	if err != nil {
		_ = conn.Close()
		return nil, err
	}
	n.conn = conn
	return n, nil
}

func NewRabbitMQNotifier(ch Channel, queue string) (*RabbitMQNotifier, error) {
	if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		return nil, fmt.Errorf("rabbitmq queue declare %s: %w", queue, err)
	}
	return &RabbitMQNotifier{channel: ch, queue: queue}, nil
}

func (n *RabbitMQNotifier) NotifyCreated(ctx context.Context, booking *model.Booking) error {
	return n.publish(ctx, NewBookingEvent(EventBookingCreated, booking))
}

func (n *RabbitMQNotifier) NotifyCancelled(ctx context.Context, booking *model.Booking) error {
	return n.publish(ctx, NewBookingEvent(EventBookingCancelled, booking))
}

func (n *RabbitMQNotifier) publish(ctx context.Context, event BookingEvent) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode %s event: %w", event.Type, err)
	}

	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    event.EventID,
		Type:         event.Type,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	}

	// amqp channels are not safe for concurrent publishing.
	n.mu.Lock()
	defer n.mu.Unlock()

	if err := n.channel.PublishWithContext(ctx, "", n.queue, false, false, pub); err != nil {
		return fmt.Errorf("publish %s event for booking %d: %w", event.Type, event.Booking.ID, err)
	}
	return nil
}

func (n *RabbitMQNotifier) Close() error {
	n.mu.Lock()
	defer n.mu.Unlock()

	err := n.channel.Close()
	if n.conn != nil {
		if connErr := n.conn.Close(); err == nil {
			err = connErr
		}
	}
	return err
}

// Deliveries is the subset of *amqp.Channel used for consuming.
type Deliveries interface {
	QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error)
	Qos(prefetchCount, prefetchSize int, global bool) error
	ConsumeWithContext(ctx context.Context, queue, consumer string, autoAck, exclusive, noLocal, noWait bool, args amqp.Table) (<-chan amqp.Delivery, error)
}

// ConsumeRabbitMQ feeds queued booking events to handle until ctx ends.
// Transient failures are requeued once; anything else is dropped.
func ConsumeRabbitMQ(ctx context.Context, ch Deliveries, queue string, handle func(context.Context, BookingEvent) error, log *logger.Logger) error {
	if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("rabbitmq queue declare %s: %w", queue, err)
	}
	if err := ch.Qos(1, 0, false); err != nil {
		return fmt.Errorf("rabbitmq qos: %w", err)
	}

	deliveries, err := ch.ConsumeWithContext(ctx, queue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("rabbitmq consume %s: %w", queue, err)
	}

	log.Info("Consuming booking events", "queue", queue)
	for {
		select {
		case <-ctx.Done():
			return nil
		case d, ok := <-deliveries:
			if !ok {
				if ctx.Err() != nil {
					return nil
				}
				return fmt.Errorf("rabbitmq delivery channel closed")
			}
			handleDelivery(ctx, d, handle, log)
		}
	}
}

func handleDelivery(ctx context.Context, d amqp.Delivery, handle func(context.Context, BookingEvent) error, log *logger.Logger) {
	var event BookingEvent
	if err := json.Unmarshal(d.Body, &event); err != nil {
		log.Error("Dropping undecodable booking event", "message_id", d.MessageId, "error", err)
		_ = d.Reject(false)
		return
	}

	err := handle(ctx, event)
	switch {
	case err == nil:
		_ = d.Ack(false)
	case kafka.ClassifyError(err) == kafka.ErrorTypeTransient && !d.Redelivered:
		log.Warn("Requeueing booking event", "event_id", event.EventID, "error", err)
		_ = d.Nack(false, true)
	default:
		log.Error("Dropping booking event", "event_id", event.EventID, "error", err)
		_ = d.Reject(false)
	}
}
