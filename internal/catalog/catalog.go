// internal/catalog/catalog.go
package catalog

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// ErrShowNotFound indicates that a show was not located in the catalog.
var ErrShowNotFound = errors.New("show not found")

// SeatCategory determines which price a seat sells at.
type SeatCategory string

const (
	SeatRegular SeatCategory = "REGULAR"
	SeatPremium SeatCategory = "PREMIUM"
)

// Show is a scheduled screening. Prices are per category, premium seats
// sell at PremiumPrice and everything else at BasePrice.
type Show struct {
	ID           int64
	Title        string
	StartsAt     time.Time
	BasePrice    decimal.Decimal
	PremiumPrice decimal.Decimal
}

// Seat is one sellable seat of a show.
type Seat struct {
	ID       int64
	ShowID   int64
	Row      string
	Number   int
	Category SeatCategory
}

// ShowCatalog is the read model the reservation flow consults before it
// touches the lock table.
type ShowCatalog interface {
	// GetShow returns the show, or ErrShowNotFound.
	GetShow(ctx context.Context, showID int64) (*Show, error)

	// ShowExists reports whether the show is in the catalog.
	ShowExists(ctx context.Context, showID int64) (bool, error)

	// SeatPrices resolves the price of each requested seat. Seats
	// unknown to the catalog are absent from the result.
	SeatPrices(ctx context.Context, showID int64, seatIDs []int64) (map[int64]decimal.Decimal, error)
}

// PriceFor picks the category price from a show.
func PriceFor(show *Show, category SeatCategory) decimal.Decimal {
	if category == SeatPremium {
		return show.PremiumPrice
	}
	return show.BasePrice
}
