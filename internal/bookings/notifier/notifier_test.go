package notifier

import (
	"context"
	"encoding/json"
	"errors"
	"net/textproto"
	"strings"
	"testing"
	"time"

	"roombook/internal/mailer"
	"roombook/pkg/kafka"
	"roombook/pkg/logger"
	"roombook/pkg/model"

	amqp "github.com/rabbitmq/amqp091-go"
)

func testBooking() *model.Booking {
	return &model.Booking{
		ID:        4821,
		Date:      "2026-03-11",
		StartTime: "09:00:00",
		EndTime:   "09:30:00",
		Room:      "Annapurna",
		Name:      "Asha",
		Email:     "asha@example.com",
		Title:     "Standup",
		Status:    model.Active,
	}
}

type fakePublisher struct {
	published []kafka.Message
	err       error
	closed    bool
}

func (p *fakePublisher) Publish(_ context.Context, msg kafka.Message) error {
	if p.err != nil {
		return p.err
	}
	p.published = append(p.published, msg)
	return nil
}

func (p *fakePublisher) Close() error {
	p.closed = true
	return nil
}

func TestKafkaNotifier_Publish(t *testing.T) {
	pub := &fakePublisher{}
	n := NewKafkaNotifier(pub, "rooms")

	if err := n.NotifyCreated(context.Background(), testBooking()); err != nil {
		t.Fatalf("notify created: %v", err)
	}
	if err := n.NotifyCancelled(context.Background(), testBooking()); err != nil {
		t.Fatalf("notify cancelled: %v", err)
	}
	if len(pub.published) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(pub.published))
	}

	msg := pub.published[0]
	if msg.Key != "4821" {
		t.Errorf("expected key 4821, got %s", msg.Key)
	}
	if msg.GetEventType() != EventBookingCreated {
		t.Errorf("expected %s, got %s", EventBookingCreated, msg.GetEventType())
	}
	if msg.Headers[kafka.HeaderSource] != "rooms" {
		t.Errorf("expected source header rooms, got %q", msg.Headers[kafka.HeaderSource])
	}

	var event BookingEvent
	if err := msg.DecodeValue(&event); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if event.EventID != msg.GetEventID() {
		t.Errorf("event id %s does not match header %s", event.EventID, msg.GetEventID())
	}
	if event.Booking.Email != "asha@example.com" {
		t.Errorf("unexpected booking payload %+v", event.Booking)
	}
	if pub.published[1].GetEventType() != EventBookingCancelled {
		t.Errorf("expected second event to be a cancellation")
	}

	if err := n.Close(); err != nil || !pub.closed {
		t.Error("expected Close to close the publisher")
	}
}

func TestKafkaNotifier_PublishError(t *testing.T) {
	boom := errors.New("broker down")
	n := NewKafkaNotifier(&fakePublisher{err: boom}, "rooms")

	err := n.NotifyCreated(context.Background(), testBooking())
	if !errors.Is(err, boom) {
		t.Errorf("expected wrapped publish error, got %v", err)
	}
}

type fakeChannel struct {
	declared  []string
	published []amqp.Publishing
	keys      []string
	err       error
	closed    bool
}

func (c *fakeChannel) QueueDeclare(name string, _, _, _, _ bool, _ amqp.Table) (amqp.Queue, error) {
	c.declared = append(c.declared, name)
	return amqp.Queue{Name: name}, nil
}

func (c *fakeChannel) PublishWithContext(_ context.Context, _, key string, _, _ bool, msg amqp.Publishing) error {
	if c.err != nil {
		return c.err
	}
	c.keys = append(c.keys, key)
	c.published = append(c.published, msg)
	return nil
}

func (c *fakeChannel) Close() error {
	c.closed = true
	return nil
}

func TestRabbitMQNotifier_Publish(t *testing.T) {
	ch := &fakeChannel{}
	n, err := NewRabbitMQNotifier(ch, "room-bookings")
	if err != nil {
		t.Fatalf("new notifier: %v", err)
	}
	if len(ch.declared) != 1 || ch.declared[0] != "room-bookings" {
		t.Fatalf("expected queue declaration, got %v", ch.declared)
	}

	if err := n.NotifyCancelled(context.Background(), testBooking()); err != nil {
		t.Fatalf("notify: %v", err)
	}
	if len(ch.published) != 1 {
		t.Fatalf("expected 1 publishing, got %d", len(ch.published))
	}

	pub := ch.published[0]
	if ch.keys[0] != "room-bookings" {
		t.Errorf("expected routing key room-bookings, got %s", ch.keys[0])
	}
	if pub.DeliveryMode != amqp.Persistent {
		t.Error("expected persistent delivery")
	}
	if pub.Type != EventBookingCancelled {
		t.Errorf("expected type %s, got %s", EventBookingCancelled, pub.Type)
	}

	var event BookingEvent
	if err := json.Unmarshal(pub.Body, &event); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if event.Booking.ID != 4821 {
		t.Errorf("expected booking 4821, got %d", event.Booking.ID)
	}

	if err := n.Close(); err != nil || !ch.closed {
		t.Error("expected Close to close the channel")
	}
}

func TestLogNotifier(t *testing.T) {
	n := NewLogNotifier(logger.Discard())
	if err := n.NotifyCreated(context.Background(), testBooking()); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if err := n.NotifyCancelled(context.Background(), testBooking()); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestRenderEmail(t *testing.T) {
	created, err := RenderEmail(NewBookingEvent(EventBookingCreated, testBooking()))
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if created.To[0] != "asha@example.com" {
		t.Errorf("unexpected recipient %v", created.To)
	}
	if !strings.HasPrefix(created.Subject, "Booking confirmed") {
		t.Errorf("unexpected subject %q", created.Subject)
	}
	for _, want := range []string{"4821", "Annapurna", "09:00 - 09:30", "Standup"} {
		if !strings.Contains(created.Body, want) {
			t.Errorf("body missing %q:\n%s", want, created.Body)
		}
	}

	cancelled, err := RenderEmail(NewBookingEvent(EventBookingCancelled, testBooking()))
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if !strings.HasPrefix(cancelled.Subject, "Booking cancelled") {
		t.Errorf("unexpected subject %q", cancelled.Subject)
	}

	if _, err := RenderEmail(NewBookingEvent("booking.moved", testBooking())); err == nil {
		t.Error("expected error for unknown event type")
	}
}

type mockMailer struct {
	sendFunc func(ctx context.Context, email mailer.Email) error
	sent     []mailer.Email
}

func (m *mockMailer) Send(ctx context.Context, email mailer.Email) error {
	if m.sendFunc != nil {
		if err := m.sendFunc(ctx, email); err != nil {
			return err
		}
	}
	m.sent = append(m.sent, email)
	return nil
}

func eventMessage(t *testing.T, event BookingEvent) kafka.Message {
	t.Helper()
	b, err := kafka.NewMessage().WithKey(event.Key()).WithValue(event)
	if err != nil {
		t.Fatalf("build message: %v", err)
	}
	return b.Build()
}

func TestEmailDispatcher_HandleMessage(t *testing.T) {
	tests := []struct {
		name     string
		msg      func(t *testing.T) kafka.Message
		sendErr  error
		wantErr  bool
		wantType kafka.ErrorType
		wantSent int
	}{
		{
			name:     "created event",
			msg:      func(t *testing.T) kafka.Message { return eventMessage(t, NewBookingEvent(EventBookingCreated, testBooking())) },
			wantSent: 1,
		},
		{
			name:     "bad payload",
			msg:      func(*testing.T) kafka.Message { return kafka.NewMessage().WithKey("1").WithRawValue([]byte("{")).Build() },
			wantErr:  true,
			wantType: kafka.ErrorTypePermanent,
		},
		{
			name:     "unknown event type",
			msg:      func(t *testing.T) kafka.Message { return eventMessage(t, NewBookingEvent("booking.moved", testBooking())) },
			wantErr:  true,
			wantType: kafka.ErrorTypePermanent,
		},
		{
			name:     "mail server unreachable",
			msg:      func(t *testing.T) kafka.Message { return eventMessage(t, NewBookingEvent(EventBookingCreated, testBooking())) },
			sendErr:  errors.New("dial tcp: connection refused"),
			wantErr:  true,
			wantType: kafka.ErrorTypeTransient,
		},
		{
			name:     "mailbox rejected",
			msg:      func(t *testing.T) kafka.Message { return eventMessage(t, NewBookingEvent(EventBookingCreated, testBooking())) },
			sendErr:  &textproto.Error{Code: 550, Msg: "no such user"},
			wantErr:  true,
			wantType: kafka.ErrorTypePermanent,
		},
		{
			name:     "mailbox busy",
			msg:      func(t *testing.T) kafka.Message { return eventMessage(t, NewBookingEvent(EventBookingCreated, testBooking())) },
			sendErr:  &textproto.Error{Code: 451, Msg: "try again later"},
			wantErr:  true,
			wantType: kafka.ErrorTypeTransient,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := &mockMailer{sendFunc: func(context.Context, mailer.Email) error { return tt.sendErr }}
			d := NewEmailDispatcher(m, logger.Discard())

			err := d.HandleMessage(context.Background(), tt.msg(t))
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				if got := kafka.ClassifyError(err); got != tt.wantType {
					t.Errorf("expected error type %d, got %d (%v)", tt.wantType, got, err)
				}
			} else if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(m.sent) != tt.wantSent {
				t.Errorf("expected %d sent, got %d", tt.wantSent, len(m.sent))
			}
		})
	}
}

type fakeAcknowledger struct {
	acked, nacked, rejected int
	requeued                bool
}

func (a *fakeAcknowledger) Ack(uint64, bool) error {
	a.acked++
	return nil
}

func (a *fakeAcknowledger) Nack(_ uint64, _ bool, requeue bool) error {
	a.nacked++
	a.requeued = requeue
	return nil
}

func (a *fakeAcknowledger) Reject(uint64, bool) error {
	a.rejected++
	return nil
}

type fakeDeliveries struct {
	ch chan amqp.Delivery
}

func (f *fakeDeliveries) QueueDeclare(name string, _, _, _, _ bool, _ amqp.Table) (amqp.Queue, error) {
	return amqp.Queue{Name: name}, nil
}

func (f *fakeDeliveries) Qos(int, int, bool) error { return nil }

func (f *fakeDeliveries) ConsumeWithContext(context.Context, string, string, bool, bool, bool, bool, amqp.Table) (<-chan amqp.Delivery, error) {
	return f.ch, nil
}

func TestConsumeRabbitMQ(t *testing.T) {
	body, err := json.Marshal(NewBookingEvent(EventBookingCreated, testBooking()))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	ok := &fakeAcknowledger{}
	flaky := &fakeAcknowledger{}
	flakyAgain := &fakeAcknowledger{}
	garbage := &fakeAcknowledger{}

	src := &fakeDeliveries{ch: make(chan amqp.Delivery, 4)}
	src.ch <- amqp.Delivery{Acknowledger: ok, Body: body}
	src.ch <- amqp.Delivery{Acknowledger: flaky, Body: body}
	src.ch <- amqp.Delivery{Acknowledger: flakyAgain, Body: body, Redelivered: true}
	src.ch <- amqp.Delivery{Acknowledger: garbage, Body: []byte("not json")}
	close(src.ch)

	calls := 0
	handle := func(context.Context, BookingEvent) error {
		calls++
		if calls == 1 {
			return nil
		}
		return kafka.NewTransientError("send", errors.New("connection refused"))
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	err = ConsumeRabbitMQ(ctx, src, "room-bookings", handle, logger.Discard())
	if err == nil {
		t.Fatal("expected error once the delivery channel closes")
	}

	if ok.acked != 1 {
		t.Error("expected successful delivery to be acked")
	}
	if flaky.nacked != 1 || !flaky.requeued {
		t.Error("expected first transient failure to be requeued")
	}
	if flakyAgain.rejected != 1 {
		t.Error("expected redelivered failure to be rejected")
	}
	if garbage.rejected != 1 {
		t.Error("expected undecodable delivery to be rejected")
	}
}
