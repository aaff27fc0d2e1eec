// internal/catalog/mysql_catalog.go
package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/shopspring/decimal"
)

// MySQLCatalog reads shows and seats from a MySQL database.
//
// Expected schema:
//
//	shows (id BIGINT PK, title VARCHAR, starts_at DATETIME,
//	       base_price DECIMAL(10,2), premium_price DECIMAL(10,2))
//	seats (id BIGINT, show_id BIGINT, seat_row VARCHAR, number INT,
//	       category VARCHAR, PRIMARY KEY (show_id, id))
type MySQLCatalog struct {
	db *sql.DB
}

// NewMySQLCatalog opens a connection pool for the given DSN and pings it.
func NewMySQLCatalog(ctx context.Context, dsn string) (*MySQLCatalog, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open catalog database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to reach catalog database: %w", err)
	}
	return &MySQLCatalog{db: db}, nil
}

// NewMySQLCatalogFromDB wraps an existing handle, used by tests.
func NewMySQLCatalogFromDB(db *sql.DB) *MySQLCatalog {
	return &MySQLCatalog{db: db}
}

// DB exposes the underlying handle for callers that manage transactions.
func (c *MySQLCatalog) DB() *sql.DB {
	return c.db
}

func (c *MySQLCatalog) Close() error {
	return c.db.Close()
}

func (c *MySQLCatalog) GetShow(ctx context.Context, showID int64) (*Show, error) {
	const q = `SELECT id, title, starts_at, base_price, premium_price FROM shows WHERE id = ?`

	var show Show
	var basePrice, premiumPrice string
	err := c.db.QueryRowContext(ctx, q, showID).
		Scan(&show.ID, &show.Title, &show.StartsAt, &basePrice, &premiumPrice)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrShowNotFound
		}
		return nil, err
	}

	if show.BasePrice, err = decimal.NewFromString(basePrice); err != nil {
		return nil, fmt.Errorf("invalid base price for show %d: %w", showID, err)
	}
	if show.PremiumPrice, err = decimal.NewFromString(premiumPrice); err != nil {
		return nil, fmt.Errorf("invalid premium price for show %d: %w", showID, err)
	}
	return &show, nil
}

func (c *MySQLCatalog) ShowExists(ctx context.Context, showID int64) (bool, error) {
	const q = `SELECT 1 FROM shows WHERE id = ? LIMIT 1`

	var one int
	err := c.db.QueryRowContext(ctx, q, showID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (c *MySQLCatalog) SeatPrices(ctx context.Context, showID int64, seatIDs []int64) (map[int64]decimal.Decimal, error) {
	show, err := c.GetShow(ctx, showID)
	if err != nil {
		return nil, err
	}

	prices := make(map[int64]decimal.Decimal, len(seatIDs))
	if len(seatIDs) == 0 {
		return prices, nil
	}

	q := fmt.Sprintf(`SELECT id, category FROM seats WHERE show_id = ? AND id IN (%s)`,
		placeholders(len(seatIDs)))
	args := make([]interface{}, 0, len(seatIDs)+1)
	args = append(args, showID)
	for _, seatID := range seatIDs {
		args = append(args, seatID)
	}

	rows, err := c.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var seatID int64
		var category string
		if err := rows.Scan(&seatID, &category); err != nil {
			return nil, err
		}
		prices[seatID] = PriceFor(show, SeatCategory(category))
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return prices, nil
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}
