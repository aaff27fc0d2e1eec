// internal/queue/publisher.go

// Package queue publishes reservation domain events to RabbitMQ.
// Publishing is best effort: failures are logged and reported but must
// never fail the booking that triggered them.
package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/avivl/seat-quest/internal/booking"
	"github.com/avivl/seat-quest/internal/observability"
)

// BookingConfirmedQueue is both the queue name and the routing key.
const BookingConfirmedQueue = "booking.confirmed"

// BookingConfirmedEvent is the wire shape emitted after a booking is
// recorded.
type BookingConfirmedEvent struct {
	BookingID  string    `json:"booking_id"`
	ShowID     int64     `json:"show_id"`
	SeatIDs    []int64   `json:"seat_ids"`
	OwnerID    string    `json:"owner_id"`
	GuestName  string    `json:"guest_name,omitempty"`
	GuestEmail string    `json:"guest_email,omitempty"`
	Total      string    `json:"total"`
	BookedAt   time.Time `json:"booked_at"`
}

// EventFromBooking maps a booking receipt onto the event shape.
func EventFromBooking(b booking.Booking) BookingConfirmedEvent {
	return BookingConfirmedEvent{
		BookingID:  b.ID,
		ShowID:     b.ShowID,
		SeatIDs:    b.Seats,
		OwnerID:    b.OwnerID,
		GuestName:  b.GuestName,
		GuestEmail: b.GuestEmail,
		Total:      b.Total.String(),
		BookedAt:   b.BookedAt,
	}
}

// Publisher holds one connection and channel to the broker. The queue
// is declared durable on startup so messages survive broker restarts.
type Publisher struct {
	conn *amqp.Connection
	ch   *amqp.Channel
	l    *observability.SLogger
}

// NewPublisher dials the broker and declares the queue.
func NewPublisher(url string, logger *observability.SLogger) (*Publisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to dial broker: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	if _, err := ch.QueueDeclare(
		BookingConfirmedQueue,
		true,  // durable
		false, // autoDelete
		false, // exclusive
		false, // noWait
		nil,
	); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to declare queue: %w", err)
	}

	return &Publisher{conn: conn, ch: ch, l: logger}, nil
}

// PublishBookingConfirmed sends the event as a persistent JSON message.
func (p *Publisher) PublishBookingConfirmed(ctx context.Context, event BookingConfirmedEvent) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	err = p.ch.PublishWithContext(ctx,
		"",                    // default exchange
		BookingConfirmedQueue, // routing key = queue name
		false,                 // mandatory
		false,                 // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Timestamp:    time.Now().UTC(),
			Body:         body,
		})
	if err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}
	return nil
}

func (p *Publisher) Close() {
	if err := p.ch.Close(); err != nil {
		p.l.Errorf("Error closing channel: %v", err)
	}
	if err := p.conn.Close(); err != nil {
		p.l.Errorf("Error closing connection: %v", err)
	}
}

// bookingPublisher is the part of Publisher the callbacks need.
type bookingPublisher interface {
	PublishBookingConfirmed(ctx context.Context, event BookingConfirmedEvent) error
}

// Callbacks adapts the publisher to the reservation lifecycle hooks.
type Callbacks struct {
	booking.NoOpCallbacks
	pub bookingPublisher
	l   *observability.SLogger
}

func NewCallbacks(pub *Publisher, logger *observability.SLogger) *Callbacks {
	return &Callbacks{pub: pub, l: logger}
}

// OnBookingConfirmed publishes the event. Errors are logged, the
// booking has already been recorded and must not be affected.
func (c *Callbacks) OnBookingConfirmed(b booking.Booking) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := c.pub.PublishBookingConfirmed(ctx, EventFromBooking(b)); err != nil {
		c.l.Errorw("failed to publish booking confirmed event",
			"booking_id", b.ID, "error", err)
	}
}
