// backend/src/model/pricing.go
package model

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/username/stockfolio/backend/src/logger"
	"github.com/username/stockfolio/backend/src/models"
)

// PriceRepository keeps one price per provider symbol and day. The newest row is the last known price.
type PriceRepository struct {
	db  *sql.DB
	now func() time.Time
}

func NewPriceRepository(db *sql.DB) *PriceRepository {
	return &PriceRepository{db: db, now: time.Now}
}

// GetLatestPrices returns the most recent stored price for each of the given symbols.
// Symbols without history are absent from the map.
func (r *PriceRepository) GetLatestPrices(ctx context.Context, symbols []string) (map[string]models.DailyPrice, error) {
	prices := make(map[string]models.DailyPrice)
	if len(symbols) == 0 {
		return prices, nil
	}
	query := `
		SELECT p.symbol, p.date, p.price, p.currency, p.updated_at
		FROM daily_prices p
		JOIN (SELECT symbol, MAX(date) AS date FROM daily_prices
		      WHERE symbol IN (?` + strings.Repeat(",?", len(symbols)-1) + `) GROUP BY symbol) latest
		  ON latest.symbol = p.symbol AND latest.date = p.date`
	args := make([]any, len(symbols))
	for i, s := range symbols {
		args[i] = s
	}
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("loading latest prices: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			p         models.DailyPrice
			updatedAt string
		)
		if err := rows.Scan(&p.Symbol, &p.Date, &p.Price, &p.Currency, &updatedAt); err != nil {
			return nil, fmt.Errorf("scanning price row: %w", err)
		}
		p.UpdatedAt = parseTimestamp(updatedAt)
		prices[p.Symbol] = p
	}
	return prices, rows.Err()
}

// UpsertPrice saves a price, replacing an existing one for the same symbol and day.
func (r *PriceRepository) UpsertPrice(ctx context.Context, price models.DailyPrice) error {
	query := `
		INSERT INTO daily_prices (symbol, date, price, currency, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(symbol, date) DO UPDATE SET
			price = excluded.price,
			currency = excluded.currency,
			updated_at = excluded.updated_at`
	_, err := r.db.ExecContext(ctx, query, price.Symbol, price.Date, price.Price.String(), price.Currency, formatTimestamp(r.now()))
	if err != nil {
		logger.FromContext(ctx).Error("Failed to insert or update daily price", "symbol", price.Symbol, "date", price.Date.String(), "error", err)
		return fmt.Errorf("saving price for %s: %w", price.Symbol, err)
	}
	return nil
}
