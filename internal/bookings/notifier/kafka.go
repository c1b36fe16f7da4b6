package notifier

import (
	"context"
	"fmt"

	"roombook/pkg/kafka"
	"roombook/pkg/model"
)

// Publisher is the part of kafka.Producer the notifier needs.
type Publisher interface {
	Publish(ctx context.Context, msg kafka.Message) error
	Close() error
}

type KafkaNotifier struct {
	publisher Publisher
	source    string
}

func NewKafkaNotifier(publisher Publisher, source string) *KafkaNotifier {
	return &KafkaNotifier{publisher: publisher, source: source}
}

func (n *KafkaNotifier) NotifyCreated(ctx context.Context, booking *model.Booking) error {
	return n.publish(ctx, NewBookingEvent(EventBookingCreated, booking))
}

func (n *KafkaNotifier) NotifyCancelled(ctx context.Context, booking *model.Booking) error {
	return n.publish(ctx, NewBookingEvent(EventBookingCancelled, booking))
}

func (n *KafkaNotifier) publish(ctx context.Context, event BookingEvent) error {
	msg, err := kafka.NewMessage().
		WithKey(event.Key()).
		WithEventID(event.EventID).
		WithEventType(event.Type).
		WithSource(n.source).
		WithValue(event)
	if err != nil {
		return fmt.Errorf("encode %s event: %w", event.Type, err)
	}

	if err := n.publisher.Publish(ctx, msg.Build()); err != nil {
		return fmt.Errorf("publish %s event for booking %d: %w", event.Type, event.Booking.ID, err)
	}
	return nil
}

func (n *KafkaNotifier) Close() error {
	return n.publisher.Close()
}
