package services

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"github.com/username/stockfolio/backend/src/model"
	"github.com/username/stockfolio/backend/src/models"
	"github.com/username/stockfolio/backend/src/processors"
)

var (
	// ErrRateUnavailable is returned when no exchange rate is found within the look-back window.
	ErrRateUnavailable = errors.New("exchange rate unavailable")
	// ErrConflict is returned when a write was computed from data that changed in the meantime.
	ErrConflict = errors.New("conflicting update, reload and retry")
)

// LotStore is the Position Store as seen by the portfolio service.
type LotStore interface {
	List(ctx context.Context, userID string, f model.LotFilter) ([]models.Lot, error)
	Get(ctx context.Context, userID, id string) (models.Lot, error)
	Update(ctx context.Context, userID, id string, p models.LotPatch) (models.Lot, error)
	Delete(ctx context.Context, userID, id string) error
	CreateWithTransaction(ctx context.Context, l models.Lot, tx models.Transaction) (models.Lot, models.Transaction, error)
	ApplySale(ctx context.Context, userID string, updatedOpen *models.Lot, closed models.Lot, sell models.Transaction) (model.SaleRecord, error)
	ListTransactions(ctx context.Context, userID string) ([]models.Transaction, error)
	OpenSymbols(ctx context.Context) ([]string, error)
}

// PriceStore persists last known prices.
type PriceStore interface {
	GetLatestPrices(ctx context.Context, symbols []string) (map[string]models.DailyPrice, error)
	UpsertPrice(ctx context.Context, price models.DailyPrice) error
}

// QuoteProvider fetches current prices. It never fails as a whole: per-symbol problems are
// reported through each quote's status.
type QuoteProvider interface {
	Fetch(ctx context.Context, symbols []string) models.QuoteBatch
}

// ExchangeRates converts amounts between currencies as of a given day.
type ExchangeRates interface {
	Convert(ctx context.Context, amount decimal.Decimal, from, to string, on time.Time) (decimal.Decimal, error)
}

// Portfolio is the portfolio service as seen by the HTTP handlers.
type Portfolio interface {
	ListLots(ctx context.Context, userID string, f model.LotFilter) ([]models.Lot, error)
	GetLot(ctx context.Context, userID, id string) (models.Lot, error)
	CreateLot(ctx context.Context, userID string, in models.LotInput) (models.Lot, error)
	UpdateLot(ctx context.Context, userID, id string, p models.LotPatch) (models.Lot, error)
	DeleteLot(ctx context.Context, userID, id string) error
	Sell(ctx context.Context, userID, id string, req models.SellRequest) (model.SaleRecord, error)
	Summary(ctx context.Context, userID, base string) (PortfolioSummary, error)
	Breakdown(ctx context.Context, userID string) ([]processors.SymbolBreakdown, error)
	Transactions(ctx context.Context, userID string) ([]models.Transaction, error)
}

var _ Portfolio = (*PortfolioService)(nil)
