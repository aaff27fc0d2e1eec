// internal/store/errors.go
package store

import (
	"errors"
	"fmt"
)

var (
	// ErrNotReachable is thrown when the backing store cannot be reached for issuing common store operations.
	ErrNotReachable = errors.New("store not reachable")
	// ErrNoSeats is thrown when an operation is issued with an empty seat list.
	ErrNoSeats = errors.New("no seats requested")
	// ErrDuplicateSeat is thrown when the same seat appears more than once in a request.
	ErrDuplicateSeat = errors.New("duplicate seat in request")
	// ErrSeatUnavailable is thrown when a requested seat is already booked or held by another owner.
	ErrSeatUnavailable = errors.New("seat already locked or booked")
)

// InvalidConfigurationError is thrown when the type of the configuration is not supported by a store.
type InvalidConfigurationError struct {
	Store  string
	Config any
}

func (e *InvalidConfigurationError) Error() string {
	return fmt.Sprintf("%s: invalid configuration type: %T", e.Store, e.Config)
}

// UnknownConstructorError is thrown when a requested store is not register.
type UnknownConstructorError struct {
	Store string
}

func (e UnknownConstructorError) Error() string {
	return fmt.Sprintf("unknown constructor %q (forgotten import?)", e.Store)
}
