package notifier

import (
	"context"
	"strconv"
	"time"

	"roombook/pkg/logger"
	"roombook/pkg/model"

	"github.com/google/uuid"
)

const (
	EventBookingCreated   = "booking.created"
	EventBookingCancelled = "booking.cancelled"
)

// Notifier tells participants about bookings. Implementations are best
// effort; the caller decides what a failure means.
type Notifier interface {
	NotifyCreated(ctx context.Context, booking *model.Booking) error
	NotifyCancelled(ctx context.Context, booking *model.Booking) error
	Close() error
}

// BookingEvent is the payload published for every booking change.
type BookingEvent struct {
	EventID    string        `json:"event_id"`
	Type       string        `json:"type"`
	OccurredAt time.Time     `json:"occurred_at"`
	Booking    model.Booking `json:"booking"`
}

func NewBookingEvent(eventType string, booking *model.Booking) BookingEvent {
	return BookingEvent{
		EventID:    uuid.New().String(),
		Type:       eventType,
		OccurredAt: time.Now().UTC(),
		Booking:    *booking,
	}
}

// Key partitions events so that all changes to one booking stay ordered.
func (e BookingEvent) Key() string {
	return strconv.Itoa(e.Booking.ID)
}

// LogNotifier only records the events. It is the default backend.
type LogNotifier struct {
	log *logger.Logger
}

func NewLogNotifier(log *logger.Logger) *LogNotifier {
	return &LogNotifier{log: log}
}

func (n *LogNotifier) NotifyCreated(_ context.Context, booking *model.Booking) error {
	n.log.Info("Booking confirmation",
		"booking_id", booking.ID,
		"room", booking.Room,
		"date", booking.Date,
		"start_time", booking.StartTime,
		"end_time", booking.EndTime,
		"email", booking.Email,
	)
	return nil
}

func (n *LogNotifier) NotifyCancelled(_ context.Context, booking *model.Booking) error {
	n.log.Info("Booking cancellation",
		"booking_id", booking.ID,
		"room", booking.Room,
		"date", booking.Date,
		"email", booking.Email,
	)
	return nil
}

func (n *LogNotifier) Close() error { return nil }
