// internal/booking/types.go
package booking

import (
	"time"

	"github.com/shopspring/decimal"
)

// BookingStatus is the lifecycle state of a booking receipt.
type BookingStatus string

const (
	StatusConfirmed BookingStatus = "CONFIRMED"
)

// Booking is the receipt written after seats are confirmed and priced.
type Booking struct {
	ID         string
	ShowID     int64
	OwnerID    string
	GuestName  string
	GuestEmail string
	Seats      []int64
	Total      decimal.Decimal
	Status     BookingStatus
	BookedAt   time.Time
}

// SeatLockResult reports the outcome of a lock, unlock or confirm
// request. Business denials set Success false with a Message; they are
// not errors.
type SeatLockResult struct {
	Success   bool
	Message   string
	ShowID    int64
	SeatIDs   []int64
	OwnerID   string
	ExpiresAt time.Time
}

// CreateBookingRequest carries everything needed to turn held seats
// into a confirmed booking.
type CreateBookingRequest struct {
	ShowID     int64
	SeatIDs    []int64
	OwnerID    string
	GuestName  string
	GuestEmail string
}

// BookingResult wraps CreateBooking outcomes the same way
// SeatLockResult does for lock operations.
type BookingResult struct {
	Success bool
	Message string
	Booking *Booking
}
