// internal/store/lock_store.go
package store

import (
	"context"
	"time"
)

// SeatLock describes a live hold on a single seat.
type SeatLock struct {
	OwnerID    string
	AcquiredAt time.Time
	ExpiresAt  time.Time
}

// Expired reports whether the lock has passed its expiry at the given instant.
func (l *SeatLock) Expired(now time.Time) bool {
	return !now.Before(l.ExpiresAt)
}

// SeatLockStore provides atomic seat reservation state for scheduled shows.
//
// Every seat of a show is in exactly one of three states at any instant:
// available, locked by a single owner until an expiry deadline, or booked
// for good. Implementations must apply the whole check-then-apply sequence
// of TryLock and Confirm as one indivisible step per show; a partially
// applied multi-seat request must never be observable by other callers.
// Expired locks are treated as absent on every path, whether or not a
// background sweep has removed them yet.
type SeatLockStore interface {
	// TryLock attempts to lock every seat in seatIDs for ownerID with the
	// given TTL. It fails without mutating anything if any seat is booked
	// or held by a different owner. Re-locking seats already held by the
	// same owner succeeds and refreshes their expiry.
	TryLock(ctx context.Context, showID int64, seatIDs []int64, ownerID string, ttl time.Duration) bool

	// Unlock removes the locks on seatIDs that are held by ownerID. Seats
	// in the request that are not held by ownerID make the overall result
	// false, but the owned seats are still released.
	Unlock(ctx context.Context, showID int64, seatIDs []int64, ownerID string) bool

	// Confirm moves every seat in seatIDs from locked-by-ownerID to booked.
	// If any seat is not currently held unexpired by ownerID, nothing is
	// mutated and the result is false. Booked is terminal.
	Confirm(ctx context.Context, showID int64, seatIDs []int64, ownerID string) bool

	// AvailableSeats returns the subset of seatIDs that is neither booked
	// nor covered by a live lock. Pure read.
	AvailableSeats(ctx context.Context, showID int64, seatIDs []int64) map[int64]struct{}

	// LockedSeats returns the seats of a show with a live lock.
	LockedSeats(ctx context.Context, showID int64) map[int64]struct{}

	// GetLockInfo returns the live lock on a seat, or nil when the seat is
	// unlocked, booked, or the lock has expired.
	GetLockInfo(ctx context.Context, showID, seatID int64) *SeatLock

	// Close releases resources held by the store, including any background
	// sweeper it owns.
	Close()

	// GetConfig returns the current store configuration
	GetConfig() StoreConfig
}

// ValidateSeatIDs rejects the seat lists no store operation accepts:
// empty requests and requests naming the same seat twice.
func ValidateSeatIDs(seatIDs []int64) error {
	if len(seatIDs) == 0 {
		return ErrNoSeats
	}
	seen := make(map[int64]struct{}, len(seatIDs))
	for _, id := range seatIDs {
		if _, dup := seen[id]; dup {
			return ErrDuplicateSeat
		}
		seen[id] = struct{}{}
	}
	return nil
}
