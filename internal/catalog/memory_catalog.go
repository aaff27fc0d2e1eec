// internal/catalog/memory_catalog.go
package catalog

import (
	"context"
	"sync"

	"github.com/shopspring/decimal"
)

// MemoryCatalog is a map-backed ShowCatalog for tests, demos and
// single-node deployments without a database.
type MemoryCatalog struct {
	mu    sync.RWMutex
	shows map[int64]*Show
	seats map[int64]map[int64]Seat
}

func NewMemoryCatalog() *MemoryCatalog {
	return &MemoryCatalog{
		shows: make(map[int64]*Show),
		seats: make(map[int64]map[int64]Seat),
	}
}

// AddShow registers a show and its seats, replacing any previous entry.
func (c *MemoryCatalog) AddShow(show Show, seats []Seat) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.shows[show.ID] = &show
	seatMap := make(map[int64]Seat, len(seats))
	for _, seat := range seats {
		seat.ShowID = show.ID
		seatMap[seat.ID] = seat
	}
	c.seats[show.ID] = seatMap
}

func (c *MemoryCatalog) GetShow(ctx context.Context, showID int64) (*Show, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	show, ok := c.shows[showID]
	if !ok {
		return nil, ErrShowNotFound
	}
	copied := *show
	return &copied, nil
}

func (c *MemoryCatalog) ShowExists(ctx context.Context, showID int64) (bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	_, ok := c.shows[showID]
	return ok, nil
}

func (c *MemoryCatalog) SeatPrices(ctx context.Context, showID int64, seatIDs []int64) (map[int64]decimal.Decimal, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	show, ok := c.shows[showID]
	if !ok {
		return nil, ErrShowNotFound
	}

	prices := make(map[int64]decimal.Decimal, len(seatIDs))
	for _, seatID := range seatIDs {
		seat, ok := c.seats[showID][seatID]
		if !ok {
			continue
		}
		prices[seatID] = PriceFor(show, seat.Category)
	}
	return prices, nil
}
