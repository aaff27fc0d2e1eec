// internal/queue/publisher_test.go
package queue

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/avivl/seat-quest/internal/booking"
	"github.com/avivl/seat-quest/internal/observability"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePublisher struct {
	events []BookingConfirmedEvent
	err    error
}

func (f *fakePublisher) PublishBookingConfirmed(ctx context.Context, event BookingConfirmedEvent) error {
	if f.err != nil {
		return f.err
	}
	f.events = append(f.events, event)
	return nil
}

func testBooking() booking.Booking {
	return booking.Booking{
		ID:         "b-1",
		ShowID:     100,
		OwnerID:    "alice",
		GuestName:  "Alice",
		GuestEmail: "alice@example.com",
		Seats:      []int64{1, 3},
		Total:      decimal.NewFromFloat(25.00),
		Status:     booking.StatusConfirmed,
		BookedAt:   time.Date(2026, 9, 1, 20, 0, 0, 0, time.UTC),
	}
}

func TestEventFromBooking(t *testing.T) {
	event := EventFromBooking(testBooking())

	assert.Equal(t, "b-1", event.BookingID)
	assert.Equal(t, int64(100), event.ShowID)
	assert.Equal(t, []int64{1, 3}, event.SeatIDs)
	assert.Equal(t, "alice", event.OwnerID)
	assert.Equal(t, "25", event.Total)
	assert.Equal(t, time.Date(2026, 9, 1, 20, 0, 0, 0, time.UTC), event.BookedAt)
}

func TestCallbacksPublishOnConfirm(t *testing.T) {
	logger, _, err := observability.NewTestLogger()
	require.NoError(t, err)

	fake := &fakePublisher{}
	cb := &Callbacks{pub: fake, l: logger}

	cb.OnBookingConfirmed(testBooking())

	require.Len(t, fake.events, 1)
	assert.Equal(t, "b-1", fake.events[0].BookingID)
}

func TestCallbacksSwallowPublishErrors(t *testing.T) {
	logger, logs, err := observability.NewTestLogger()
	require.NoError(t, err)

	fake := &fakePublisher{err: errors.New("broker down")}
	cb := &Callbacks{pub: fake, l: logger}

	// Must not panic and must log the failure
	cb.OnBookingConfirmed(testBooking())
	assert.Equal(t, 1, logs.FilterMessage("failed to publish booking confirmed event").Len())
}

func TestCallbacksIgnoreLockEvents(t *testing.T) {
	cb := &Callbacks{pub: &fakePublisher{}}

	// Inherited no-op must not touch the publisher
	cb.OnSeatsLocked(1, []int64{1}, "alice")
}
