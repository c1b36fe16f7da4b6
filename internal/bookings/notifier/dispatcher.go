package notifier

import (
	"context"
	"errors"
	"fmt"
	"net/textproto"
	"strings"

	"roombook/internal/mailer"
	"roombook/pkg/kafka"
	"roombook/pkg/logger"
)

// EmailDispatcher turns booking events into emails for the booker.
type EmailDispatcher struct {
	mailer mailer.Mailer
	log    *logger.Logger
}

func NewEmailDispatcher(m mailer.Mailer, log *logger.Logger) *EmailDispatcher {
	return &EmailDispatcher{mailer: m, log: log}
}

// HandleMessage is a kafka.MessageHandler. Undecodable payloads and unknown
// event types are permanent; mail server hiccups are transient.
func (d *EmailDispatcher) HandleMessage(ctx context.Context, msg kafka.Message) error {
	var event BookingEvent
	if err := msg.DecodeValue(&event); err != nil {
		return err
	}
	return d.HandleEvent(ctx, event)
}

func (d *EmailDispatcher) HandleEvent(ctx context.Context, event BookingEvent) error {
	email, err := RenderEmail(event)
	if err != nil {
		return kafka.NewPermanentError("render email", err)
	}

	if err := d.mailer.Send(ctx, email); err != nil {
		if isPermanentMailError(err) {
			return kafka.NewPermanentError(fmt.Sprintf("send %s email", event.Type), err)
		}
		return kafka.NewTransientError(fmt.Sprintf("send %s email", event.Type), err)
	}

	d.log.Info("Booking email sent",
		"event_id", event.EventID,
		"type", event.Type,
		"booking_id", event.Booking.ID,
	)
	return nil
}

// isPermanentMailError treats 5xx SMTP replies as final.
func isPermanentMailError(err error) bool {
	var tpErr *textproto.Error
	if errors.As(err, &tpErr) {
		return tpErr.Code >= 500
	}
	return false
}

// RenderEmail builds the confirmation or cancellation message for event.
func RenderEmail(event BookingEvent) (mailer.Email, error) {
	b := event.Booking
	if strings.TrimSpace(b.Email) == "" {
		return mailer.Email{}, fmt.Errorf("booking %d has no email", b.ID)
	}

	var subject, intro string
	switch event.Type {
	case EventBookingCreated:
		subject = fmt.Sprintf("Booking confirmed: %s on %s", b.Room, b.Date)
		intro = "Your meeting room is booked."
	case EventBookingCancelled:
		subject = fmt.Sprintf("Booking cancelled: %s on %s", b.Room, b.Date)
		intro = "Your meeting room booking has been cancelled."
	default:
		return mailer.Email{}, fmt.Errorf("unknown event type %q", event.Type)
	}

	var body strings.Builder
	fmt.Fprintf(&body, "Hello %s,\n\n%s\n\n", b.Name, intro)
	fmt.Fprintf(&body, "Booking ID: %d\n", b.ID)
	fmt.Fprintf(&body, "Room:       %s\n", b.Room)
	fmt.Fprintf(&body, "Date:       %s\n", b.Date)
	fmt.Fprintf(&body, "Time:       %s - %s\n", shortTime(b.StartTime), shortTime(b.EndTime))
	if b.Title != "" {
		fmt.Fprintf(&body, "Meeting:    %s\n", b.Title)
	}
	if event.Type == EventBookingCreated {
		fmt.Fprintf(&body, "\nKeep the booking ID to cancel later.\n")
	}

	return mailer.Email{
		To:      []string{b.Email},
		Subject: subject,
		Body:    body.String(),
	}, nil
}

func shortTime(s string) string {
	if len(s) == len("15:04:05") {
		return s[:5]
	}
	return s
}
