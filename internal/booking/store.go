// internal/booking/store.go
package booking

import (
	"context"
	"errors"
	"sync"
)

// ErrBookingNotFound indicates no receipt exists for the given id.
var ErrBookingNotFound = errors.New("booking not found")

// BookingStore persists booking receipts.
type BookingStore interface {
	Save(ctx context.Context, b Booking) error
	Get(ctx context.Context, id string) (*Booking, error)
	ListByShow(ctx context.Context, showID int64) ([]Booking, error)
}

// MemoryBookingStore keeps receipts in memory. The lock table is the
// source of truth for seat state, receipts are bookkeeping on top.
type MemoryBookingStore struct {
	mu       sync.RWMutex
	byID     map[string]Booking
	byShowID map[int64][]string
}

func NewMemoryBookingStore() *MemoryBookingStore {
	return &MemoryBookingStore{
		byID:     make(map[string]Booking),
		byShowID: make(map[int64][]string),
	}
}

func (s *MemoryBookingStore) Save(ctx context.Context, b Booking) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byID[b.ID]; !exists {
		s.byShowID[b.ShowID] = append(s.byShowID[b.ShowID], b.ID)
	}
	s.byID[b.ID] = b
	return nil
}

func (s *MemoryBookingStore) Get(ctx context.Context, id string) (*Booking, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	b, ok := s.byID[id]
	if !ok {
		return nil, ErrBookingNotFound
	}
	return &b, nil
}

func (s *MemoryBookingStore) ListByShow(ctx context.Context, showID int64) ([]Booking, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := s.byShowID[showID]
	out := make([]Booking, 0, len(ids))
	for _, id := range ids {
		out = append(out, s.byID[id])
	}
	return out, nil
}
