// internal/booking/service.go
package booking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/avivl/seat-quest/internal/catalog"
	"github.com/avivl/seat-quest/internal/observability"
	"github.com/avivl/seat-quest/internal/store"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	// ErrShowNotFound mirrors the catalog sentinel for callers that only
	// import this package.
	ErrShowNotFound = catalog.ErrShowNotFound

	// ErrOwnerRequired is returned when an operation that proves
	// ownership is called without an owner id.
	ErrOwnerRequired = errors.New("owner id is required")
)

// Service coordinates the seat lock table, the show catalog and the
// booking receipts. All seat-state decisions happen inside the lock
// store's atomic operations; the service validates input, mints owner
// identities and shapes results.
type Service struct {
	locks    store.SeatLockStore
	catalog  catalog.ShowCatalog
	bookings BookingStore
	cb       Callbacks
	l        *observability.SLogger
}

// NewService wires a reservation coordinator. A nil cb installs
// NoOpCallbacks.
func NewService(locks store.SeatLockStore, cat catalog.ShowCatalog, bookings BookingStore, cb Callbacks, logger *observability.SLogger) *Service {
	if cb == nil {
		cb = &NoOpCallbacks{}
	}
	return &Service{
		locks:    locks,
		catalog:  cat,
		bookings: bookings,
		cb:       cb,
		l:        logger,
	}
}

// LockSeats attempts to hold the seats for the owner. An empty ownerID
// mints a fresh one, which is how anonymous guests get their claim
// token. A non-positive ttl uses the store's configured default.
func (s *Service) LockSeats(ctx context.Context, showID int64, seatIDs []int64, ownerID string, ttl time.Duration) (*SeatLockResult, error) {
	if err := store.ValidateSeatIDs(seatIDs); err != nil {
		return nil, err
	}

	exists, err := s.catalog.ShowExists(ctx, showID)
	if err != nil {
		return nil, fmt.Errorf("failed to look up show %d: %w", showID, err)
	}
	if !exists {
		return nil, ErrShowNotFound
	}

	if ownerID == "" {
		ownerID = uuid.NewString()
	}
	if ttl <= 0 {
		ttl = s.locks.GetConfig().GetLockTTL()
	}

	now := time.Now()
	if !s.locks.TryLock(ctx, showID, seatIDs, ownerID, ttl) {
		return &SeatLockResult{
			Success: false,
			Message: "one or more seats are unavailable",
			ShowID:  showID,
			SeatIDs: seatIDs,
			OwnerID: ownerID,
		}, nil
	}

	// The whole grant carries one expiry, so any seat reports it. The
	// readback gives the store's own deadline, not one skewed by the
	// time the acquisition took.
	expiresAt := now.Add(ttl)
	if info := s.locks.GetLockInfo(ctx, showID, seatIDs[0]); info != nil && info.OwnerID == ownerID {
		expiresAt = info.ExpiresAt
	}

	s.l.Infow("seats locked", "show_id", showID, "seats", seatIDs, "owner_id", ownerID)
	s.cb.OnSeatsLocked(showID, seatIDs, ownerID)

	return &SeatLockResult{
		Success:   true,
		Message:   "seats locked",
		ShowID:    showID,
		SeatIDs:   seatIDs,
		OwnerID:   ownerID,
		ExpiresAt: expiresAt,
	}, nil
}

// UnlockSeats releases the owner's holds on the seats.
func (s *Service) UnlockSeats(ctx context.Context, showID int64, seatIDs []int64, ownerID string) (*SeatLockResult, error) {
	if err := store.ValidateSeatIDs(seatIDs); err != nil {
		return nil, err
	}
	if ownerID == "" {
		return nil, ErrOwnerRequired
	}

	if !s.locks.Unlock(ctx, showID, seatIDs, ownerID) {
		return &SeatLockResult{
			Success: false,
			Message: "some seats were not held by this owner",
			ShowID:  showID,
			SeatIDs: seatIDs,
			OwnerID: ownerID,
		}, nil
	}

	s.l.Infow("seats released", "show_id", showID, "seats", seatIDs, "owner_id", ownerID)
	return &SeatLockResult{
		Success: true,
		Message: "seats released",
		ShowID:  showID,
		SeatIDs: seatIDs,
		OwnerID: ownerID,
	}, nil
}

// ConfirmBooking turns the owner's held seats into permanent bookings.
func (s *Service) ConfirmBooking(ctx context.Context, showID int64, seatIDs []int64, ownerID string) (*SeatLockResult, error) {
	if err := store.ValidateSeatIDs(seatIDs); err != nil {
		return nil, err
	}
	if ownerID == "" {
		return nil, ErrOwnerRequired
	}

	if !s.locks.Confirm(ctx, showID, seatIDs, ownerID) {
		return &SeatLockResult{
			Success: false,
			Message: "seats are not all held by this owner",
			ShowID:  showID,
			SeatIDs: seatIDs,
			OwnerID: ownerID,
		}, nil
	}

	s.l.Infow("booking confirmed", "show_id", showID, "seats", seatIDs, "owner_id", ownerID)
	return &SeatLockResult{
		Success: true,
		Message: "booking confirmed",
		ShowID:  showID,
		SeatIDs: seatIDs,
		OwnerID: ownerID,
	}, nil
}

// CreateBooking confirms the seats, prices them through the catalog and
// records a receipt. The confirm step is the only gate; pricing and
// persistence run after the seats are irrevocably booked.
func (s *Service) CreateBooking(ctx context.Context, req CreateBookingRequest) (*BookingResult, error) {
	if err := store.ValidateSeatIDs(req.SeatIDs); err != nil {
		return nil, err
	}
	if req.OwnerID == "" {
		return nil, ErrOwnerRequired
	}

	show, err := s.catalog.GetShow(ctx, req.ShowID)
	if err != nil {
		return nil, err
	}

	if !s.locks.Confirm(ctx, req.ShowID, req.SeatIDs, req.OwnerID) {
		return &BookingResult{
			Success: false,
			Message: "seats are not all held by this owner",
		}, nil
	}

	prices, err := s.catalog.SeatPrices(ctx, req.ShowID, req.SeatIDs)
	if err != nil {
		// Seats are booked. Fall back to base pricing rather than
		// leaving the booking unrecorded.
		s.l.Errorw("failed to price seats, using base price", "show_id", req.ShowID, "error", err)
		prices = nil
	}

	total := decimal.Zero
	for _, seatID := range req.SeatIDs {
		price, ok := prices[seatID]
		if !ok {
			price = show.BasePrice
		}
		total = total.Add(price)
	}

	b := Booking{
		ID:         uuid.NewString(),
		ShowID:     req.ShowID,
		OwnerID:    req.OwnerID,
		GuestName:  req.GuestName,
		GuestEmail: req.GuestEmail,
		Seats:      req.SeatIDs,
		Total:      total,
		Status:     StatusConfirmed,
		BookedAt:   time.Now(),
	}
	if err := s.bookings.Save(ctx, b); err != nil {
		return nil, fmt.Errorf("failed to record booking: %w", err)
	}

	s.l.Infow("booking created", "booking_id", b.ID, "show_id", b.ShowID, "total", b.Total.String())
	s.cb.OnBookingConfirmed(b)

	return &BookingResult{
		Success: true,
		Message: "booking created",
		Booking: &b,
	}, nil
}

// GetBooking returns a previously recorded receipt.
func (s *Service) GetBooking(ctx context.Context, id string) (*Booking, error) {
	return s.bookings.Get(ctx, id)
}

// AvailableSeats reports which of the requested seats are free.
func (s *Service) AvailableSeats(ctx context.Context, showID int64, seatIDs []int64) (map[int64]struct{}, error) {
	if err := s.requireShow(ctx, showID); err != nil {
		return nil, err
	}
	return s.locks.AvailableSeats(ctx, showID, seatIDs), nil
}

// LockedSeats reports the seats currently under a live lock.
func (s *Service) LockedSeats(ctx context.Context, showID int64) (map[int64]struct{}, error) {
	if err := s.requireShow(ctx, showID); err != nil {
		return nil, err
	}
	return s.locks.LockedSeats(ctx, showID), nil
}

// GetLockInfo exposes the live lock on a seat, or nil.
func (s *Service) GetLockInfo(ctx context.Context, showID, seatID int64) (*store.SeatLock, error) {
	if err := s.requireShow(ctx, showID); err != nil {
		return nil, err
	}
	return s.locks.GetLockInfo(ctx, showID, seatID), nil
}

func (s *Service) requireShow(ctx context.Context, showID int64) error {
	exists, err := s.catalog.ShowExists(ctx, showID)
	if err != nil {
		return fmt.Errorf("failed to look up show %d: %w", showID, err)
	}
	if !exists {
		return ErrShowNotFound
	}
	return nil
}
