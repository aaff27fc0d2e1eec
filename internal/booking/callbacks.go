// internal/booking/callbacks.go
package booking

// Callbacks defines the interface for reservation lifecycle notifications
type Callbacks interface {
	// OnSeatsLocked is called after a lock request was granted
	OnSeatsLocked(showID int64, seatIDs []int64, ownerID string)

	// OnBookingConfirmed is called after a booking receipt was recorded
	OnBookingConfirmed(b Booking)
}

// NoOpCallbacks implements Callbacks with empty methods
// Useful as a default when no callbacks are provided
type NoOpCallbacks struct{}

// OnSeatsLocked implements Callbacks.OnSeatsLocked with an empty method
func (c *NoOpCallbacks) OnSeatsLocked(showID int64, seatIDs []int64, ownerID string) {}

// OnBookingConfirmed implements Callbacks.OnBookingConfirmed with an empty method
func (c *NoOpCallbacks) OnBookingConfirmed(b Booking) {}
