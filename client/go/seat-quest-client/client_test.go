package seatquestclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newFakeServer(t *testing.T, handler http.HandlerFunc) (*httptest.Server, *SeatQuestClient) {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client, err := NewSeatQuestClient(srv.URL, 30*time.Second, WithOwnerID("client-1"))
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })

	return srv, client
}

func TestNewSeatQuestClientValidation(t *testing.T) {
	_, err := NewSeatQuestClient("", time.Second)
	assert.Error(t, err)

	_, err = NewSeatQuestClient("http://localhost:8080", 0)
	assert.Error(t, err)
}

func TestNewSeatQuestClientMintsOwnerID(t *testing.T) {
	client, err := NewSeatQuestClient("http://localhost:8080", time.Second)
	require.NoError(t, err)
	assert.NotEmpty(t, client.OwnerID())
}

func TestLockSeatsGranted(t *testing.T) {
	_, client := newFakeServer(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/bookings/lock-seats", r.URL.Path)

		var req lockRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, int64(100), req.ShowID)
		assert.Equal(t, []int64{1, 2}, req.SeatIDs)
		assert.Equal(t, "client-1", req.OwnerID)
		assert.Equal(t, int64(30), req.TTLSeconds)

		json.NewEncoder(w).Encode(LockResult{Success: true, ShowID: 100, SeatIDs: req.SeatIDs, OwnerID: req.OwnerID})
	})

	ok, err := client.LockSeats(context.Background(), 100, []int64{1, 2})
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestLockSeatsDenied(t *testing.T) {
	_, client := newFakeServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		json.NewEncoder(w).Encode(LockResult{Success: false, Message: "seats unavailable"})
	})

	ok, err := client.LockSeats(context.Background(), 100, []int64{1})
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestLockSeatsServerError(t *testing.T) {
	_, client := newFakeServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(w).Encode(map[string]string{"error": "store unavailable"})
	})

	_, err := client.LockSeats(context.Background(), 100, []int64{1})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "store unavailable")
}

func TestUnlockSeats(t *testing.T) {
	_, client := newFakeServer(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/bookings/unlock-seats", r.URL.Path)
		json.NewEncoder(w).Encode(LockResult{Success: true})
	})

	ok, err := client.UnlockSeats(context.Background(), 100, []int64{1})
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestCreateBooking(t *testing.T) {
	_, client := newFakeServer(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/bookings/create", r.URL.Path)

		var req createBookingRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "Ada", req.GuestName)

		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(Booking{
			ID:      "b-1",
			ShowID:  req.ShowID,
			SeatIDs: req.SeatIDs,
			Total:   "25.00",
			Status:  "CONFIRMED",
		})
	})

	b, err := client.CreateBooking(context.Background(), 100, []int64{1, 3}, "Ada", "ada@example.com")
	require.NoError(t, err)
	require.NotNil(t, b)
	assert.Equal(t, "b-1", b.ID)
	assert.Equal(t, "25.00", b.Total)
}

func TestCreateBookingDenied(t *testing.T) {
	_, client := newFakeServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		json.NewEncoder(w).Encode(map[string]interface{}{"success": false, "message": "seats not held"})
	})

	b, err := client.CreateBooking(context.Background(), 100, []int64{1}, "", "")
	require.NoError(t, err)
	assert.Nil(t, b)
}

func TestAvailableSeats(t *testing.T) {
	_, client := newFakeServer(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/seats/show/100/available", r.URL.Path)
		assert.Equal(t, "1,2,3", r.URL.Query().Get("seats"))
		json.NewEncoder(w).Encode(map[string]interface{}{"show_id": 100, "available_seats": []int64{1, 3}})
	})

	seats, err := client.AvailableSeats(context.Background(), 100, []int64{1, 2, 3})
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 3}, seats)
}

func TestLockedSeats(t *testing.T) {
	_, client := newFakeServer(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/seats/show/100/locked", r.URL.Path)
		json.NewEncoder(w).Encode(map[string]interface{}{"show_id": 100, "locked_seats": []int64{2}})
	})

	seats, err := client.LockedSeats(context.Background(), 100)
	require.NoError(t, err)
	assert.Equal(t, []int64{2}, seats)
}

func TestGetLockInfo(t *testing.T) {
	_, client := newFakeServer(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/seats/show/100/7/lock", r.URL.Path)
		json.NewEncoder(w).Encode(LockInfo{OwnerID: "client-2", ExpiresAt: "2026-01-01T00:00:00Z"})
	})

	info, err := client.GetLockInfo(context.Background(), 100, 7)
	require.NoError(t, err)
	require.NotNil(t, info)
	assert.Equal(t, "client-2", info.OwnerID)
}

func TestGetLockInfoNotLocked(t *testing.T) {
	_, client := newFakeServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		json.NewEncoder(w).Encode(map[string]string{"error": "seat is not locked"})
	})

	info, err := client.GetLockInfo(context.Background(), 100, 7)
	require.NoError(t, err)
	assert.Nil(t, info)
}

func TestHoldRefreshRequiresHeldSeats(t *testing.T) {
	client, err := NewSeatQuestClient("http://localhost:8080", time.Second)
	require.NoError(t, err)

	assert.Error(t, client.StartHoldRefresh(context.Background()))
}

func TestHoldRefreshStopIsIdempotent(t *testing.T) {
	_, client := newFakeServer(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(LockResult{Success: true})
	})

	ok, err := client.LockSeats(context.Background(), 100, []int64{1})
	require.NoError(t, err)
	require.True(t, ok)

	require.NoError(t, client.StartHoldRefresh(context.Background()))
	assert.Error(t, client.StartHoldRefresh(context.Background()))

	client.StopHoldRefresh()
	client.StopHoldRefresh()
}
