// internal/booking/service_test.go
package booking

import (
	"context"
	"testing"
	"time"

	"github.com/avivl/seat-quest/internal/catalog"
	"github.com/avivl/seat-quest/internal/observability"
	"github.com/avivl/seat-quest/internal/store"
	"github.com/avivl/seat-quest/internal/store/memory"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingCallbacks captures lifecycle notifications for assertions.
type recordingCallbacks struct {
	locked    int
	confirmed []Booking
}

func (r *recordingCallbacks) OnSeatsLocked(showID int64, seatIDs []int64, ownerID string) {
	r.locked++
}

func (r *recordingCallbacks) OnBookingConfirmed(b Booking) {
	r.confirmed = append(r.confirmed, b)
}

func newTestService(t *testing.T) (*Service, *recordingCallbacks) {
	t.Helper()

	logger, _, err := observability.NewTestLogger()
	require.NoError(t, err)

	locks, err := memory.New(context.Background(), nil, logger)
	require.NoError(t, err)
	t.Cleanup(locks.Close)

	cat := catalog.NewMemoryCatalog()
	cat.AddShow(catalog.Show{
		ID:           100,
		Title:        "Dune",
		StartsAt:     time.Now().Add(24 * time.Hour),
		BasePrice:    decimal.NewFromFloat(10.00),
		PremiumPrice: decimal.NewFromFloat(15.00),
	}, []catalog.Seat{
		{ID: 1, Row: "A", Number: 1, Category: catalog.SeatRegular},
		{ID: 2, Row: "A", Number: 2, Category: catalog.SeatRegular},
		{ID: 3, Row: "P", Number: 1, Category: catalog.SeatPremium},
	})

	cb := &recordingCallbacks{}
	return NewService(locks, cat, NewMemoryBookingStore(), cb, logger), cb
}

func TestLockSeats(t *testing.T) {
	ctx := context.Background()

	t.Run("mints an owner when none given", func(t *testing.T) {
		svc, cb := newTestService(t)

		res, err := svc.LockSeats(ctx, 100, []int64{1, 2}, "", 0)
		require.NoError(t, err)
		assert.True(t, res.Success)
		assert.NotEmpty(t, res.OwnerID)
		_, err = uuid.Parse(res.OwnerID)
		assert.NoError(t, err, "minted owner should be a uuid")
		assert.False(t, res.ExpiresAt.IsZero())
		assert.Equal(t, 1, cb.locked)
	})

	t.Run("keeps a caller supplied owner", func(t *testing.T) {
		svc, _ := newTestService(t)

		res, err := svc.LockSeats(ctx, 100, []int64{1}, "alice", 0)
		require.NoError(t, err)
		assert.True(t, res.Success)
		assert.Equal(t, "alice", res.OwnerID)
	})

	t.Run("unknown show is an error", func(t *testing.T) {
		svc, _ := newTestService(t)

		_, err := svc.LockSeats(ctx, 999, []int64{1}, "alice", 0)
		assert.ErrorIs(t, err, ErrShowNotFound)
	})

	t.Run("contention is a business denial, not an error", func(t *testing.T) {
		svc, cb := newTestService(t)

		first, err := svc.LockSeats(ctx, 100, []int64{1, 2}, "alice", 0)
		require.NoError(t, err)
		require.True(t, first.Success)

		second, err := svc.LockSeats(ctx, 100, []int64{2, 3}, "bob", 0)
		require.NoError(t, err)
		assert.False(t, second.Success)
		assert.NotEmpty(t, second.Message)
		assert.Equal(t, 1, cb.locked)
	})

	t.Run("malformed seat lists are errors, not denials", func(t *testing.T) {
		svc, _ := newTestService(t)

		_, err := svc.LockSeats(ctx, 100, nil, "alice", 0)
		assert.ErrorIs(t, err, store.ErrNoSeats)

		_, err = svc.LockSeats(ctx, 100, []int64{2, 2}, "alice", 0)
		assert.ErrorIs(t, err, store.ErrDuplicateSeat)
	})

	t.Run("reports the store's expiry", func(t *testing.T) {
		svc, _ := newTestService(t)

		res, err := svc.LockSeats(ctx, 100, []int64{1, 2}, "alice", time.Minute)
		require.NoError(t, err)
		require.True(t, res.Success)

		info, err := svc.GetLockInfo(ctx, 100, 1)
		require.NoError(t, err)
		require.NotNil(t, info)
		assert.Equal(t, info.ExpiresAt, res.ExpiresAt)
	})
}

func TestUnlockSeats(t *testing.T) {
	ctx := context.Background()

	t.Run("requires an owner", func(t *testing.T) {
		svc, _ := newTestService(t)

		_, err := svc.UnlockSeats(ctx, 100, []int64{1}, "")
		assert.ErrorIs(t, err, ErrOwnerRequired)
	})

	t.Run("rejects duplicate seats", func(t *testing.T) {
		svc, _ := newTestService(t)

		_, err := svc.UnlockSeats(ctx, 100, []int64{1, 1}, "alice")
		assert.ErrorIs(t, err, store.ErrDuplicateSeat)
	})

	t.Run("releases held seats", func(t *testing.T) {
		svc, _ := newTestService(t)

		_, err := svc.LockSeats(ctx, 100, []int64{1, 2}, "alice", 0)
		require.NoError(t, err)

		res, err := svc.UnlockSeats(ctx, 100, []int64{1, 2}, "alice")
		require.NoError(t, err)
		assert.True(t, res.Success)

		available, err := svc.AvailableSeats(ctx, 100, []int64{1, 2})
		require.NoError(t, err)
		assert.Len(t, available, 2)
	})

	t.Run("foreign seats report failure", func(t *testing.T) {
		svc, _ := newTestService(t)

		_, err := svc.LockSeats(ctx, 100, []int64{1}, "alice", 0)
		require.NoError(t, err)

		res, err := svc.UnlockSeats(ctx, 100, []int64{1}, "bob")
		require.NoError(t, err)
		assert.False(t, res.Success)
	})
}

func TestConfirmBooking(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	_, err := svc.ConfirmBooking(ctx, 100, []int64{1}, "")
	assert.ErrorIs(t, err, ErrOwnerRequired)

	_, err = svc.ConfirmBooking(ctx, 100, nil, "alice")
	assert.ErrorIs(t, err, store.ErrNoSeats)

	_, err = svc.LockSeats(ctx, 100, []int64{1, 2}, "alice", 0)
	require.NoError(t, err)

	res, err := svc.ConfirmBooking(ctx, 100, []int64{1, 2}, "alice")
	require.NoError(t, err)
	assert.True(t, res.Success)

	// Confirmed seats cannot be locked again
	lockRes, err := svc.LockSeats(ctx, 100, []int64{1}, "bob", 0)
	require.NoError(t, err)
	assert.False(t, lockRes.Success)
}

func TestCreateBooking(t *testing.T) {
	ctx := context.Background()

	t.Run("prices premium and regular seats", func(t *testing.T) {
		svc, cb := newTestService(t)

		_, err := svc.LockSeats(ctx, 100, []int64{1, 3}, "alice", 0)
		require.NoError(t, err)

		res, err := svc.CreateBooking(ctx, CreateBookingRequest{
			ShowID:     100,
			SeatIDs:    []int64{1, 3},
			OwnerID:    "alice",
			GuestName:  "Alice",
			GuestEmail: "alice@example.com",
		})
		require.NoError(t, err)
		require.True(t, res.Success)
		require.NotNil(t, res.Booking)

		// 10.00 regular + 15.00 premium
		assert.True(t, res.Booking.Total.Equal(decimal.NewFromFloat(25.00)),
			"total was %s", res.Booking.Total)
		assert.Equal(t, StatusConfirmed, res.Booking.Status)
		require.Len(t, cb.confirmed, 1)
		assert.Equal(t, res.Booking.ID, cb.confirmed[0].ID)

		// Receipt is retrievable
		saved, err := svc.GetBooking(ctx, res.Booking.ID)
		require.NoError(t, err)
		assert.Equal(t, res.Booking.Total.String(), saved.Total.String())
	})

	t.Run("denied without held seats", func(t *testing.T) {
		svc, cb := newTestService(t)

		res, err := svc.CreateBooking(ctx, CreateBookingRequest{
			ShowID:  100,
			SeatIDs: []int64{1},
			OwnerID: "nobody",
		})
		require.NoError(t, err)
		assert.False(t, res.Success)
		assert.Nil(t, res.Booking)
		assert.Empty(t, cb.confirmed)
	})

	t.Run("unknown show errors", func(t *testing.T) {
		svc, _ := newTestService(t)

		_, err := svc.CreateBooking(ctx, CreateBookingRequest{
			ShowID:  999,
			SeatIDs: []int64{1},
			OwnerID: "alice",
		})
		assert.ErrorIs(t, err, ErrShowNotFound)
	})

	t.Run("rejects duplicate seats", func(t *testing.T) {
		svc, _ := newTestService(t)

		_, err := svc.CreateBooking(ctx, CreateBookingRequest{
			ShowID:  100,
			SeatIDs: []int64{1, 1},
			OwnerID: "alice",
		})
		assert.ErrorIs(t, err, store.ErrDuplicateSeat)
	})
}

func TestQueryPassthroughs(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	_, err := svc.LockSeats(ctx, 100, []int64{2}, "alice", 0)
	require.NoError(t, err)

	locked, err := svc.LockedSeats(ctx, 100)
	require.NoError(t, err)
	assert.Contains(t, locked, int64(2))

	info, err := svc.GetLockInfo(ctx, 100, 2)
	require.NoError(t, err)
	require.NotNil(t, info)
	assert.Equal(t, "alice", info.OwnerID)

	_, err = svc.LockedSeats(ctx, 999)
	assert.ErrorIs(t, err, ErrShowNotFound)
}

func TestMemoryBookingStore(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryBookingStore()

	_, err := s.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrBookingNotFound)

	b := Booking{ID: "b-1", ShowID: 7, Seats: []int64{1}, Status: StatusConfirmed}
	require.NoError(t, s.Save(ctx, b))

	got, err := s.Get(ctx, "b-1")
	require.NoError(t, err)
	assert.Equal(t, int64(7), got.ShowID)

	list, err := s.ListByShow(ctx, 7)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	// Saving the same id again replaces, not duplicates
	require.NoError(t, s.Save(ctx, b))
	list, err = s.ListByShow(ctx, 7)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}
