// backend/src/services/portfolio_service.go

package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/username/stockfolio/backend/src/logger"
	"github.com/username/stockfolio/backend/src/model"
	"github.com/username/stockfolio/backend/src/models"
	"github.com/username/stockfolio/backend/src/processors"
	"github.com/username/stockfolio/backend/src/security/validation"
)

// PortfolioService glues the Position Store, the quote provider and the accounting engine together.
// Derived figures are recomputed on every call.
type PortfolioService struct {
	lots   LotStore
	quotes QuoteProvider
	rates  ExchangeRates
	now    func() time.Time
}

// NewPortfolioService wires the service. rates may be nil when base-currency roll-ups are not needed.
func NewPortfolioService(lots LotStore, quotes QuoteProvider, rates ExchangeRates) *PortfolioService {
	return &PortfolioService{lots: lots, quotes: quotes, rates: rates, now: time.Now}
}

// ConvertedTotals is the summary rolled up into one base currency. Buckets whose rate is
// unknown are left out and listed in MissingRates.
type ConvertedTotals struct {
	Currency string `json:"currency"`
	processors.Totals
	MissingRates []string `json:"missing_rates"`
}

// PortfolioSummary is the engine summary plus quote metadata and an optional base-currency roll-up.
type PortfolioSummary struct {
	processors.Summary
	QuotesFetchedAt time.Time        `json:"quotes_fetched_at"`
	QuoteErrors     int              `json:"quote_errors"`
	Converted       *ConvertedTotals `json:"converted,omitempty"`
}

func invalid(err error) error {
	return fmt.Errorf("%w: %w", processors.ErrInvalidInput, err)
}

func (s *PortfolioService) today() models.Date {
	return models.NewDate(s.now())
}

func (s *PortfolioService) ListLots(ctx context.Context, userID string, f model.LotFilter) ([]models.Lot, error) {
	return s.lots.List(ctx, userID, f)
}

func (s *PortfolioService) GetLot(ctx context.Context, userID, id string) (models.Lot, error) {
	return s.lots.Get(ctx, userID, id)
}

// CreateLot records a buy: a new open lot plus its BUY transaction.
func (s *PortfolioService) CreateLot(ctx context.Context, userID string, in models.LotInput) (models.Lot, error) {
	if err := validation.ValidateSymbol(in.Symbol); err != nil {
		return models.Lot{}, invalid(err)
	}
	if err := validation.ValidateCurrencyCode(in.Currency); err != nil {
		return models.Lot{}, invalid(err)
	}
	if err := validation.ValidateNotes(in.Notes); err != nil {
		return models.Lot{}, invalid(err)
	}

	resolved := processors.ResolveSymbol(in.Symbol)
	currency := strings.ToUpper(strings.TrimSpace(in.Currency))
	if currency == "" {
		currency = resolved.Currency
	}

	lot := models.Lot{
		UserID:        userID,
		Symbol:        resolved.Symbol,
		Quantity:      in.Quantity,
		BuyPrice:      in.BuyPrice,
		BuyDate:       in.BuyDate,
		CommissionPct: in.CommissionPct,
		ServiceCharge: in.ServiceCharge,
		Currency:      currency,
		Notes:         validation.SanitizeNotes(in.Notes),
	}
	if err := processors.ValidateLot(lot); err != nil {
		return models.Lot{}, err
	}

	created, _, err := s.lots.CreateWithTransaction(ctx, lot, models.Transaction{
		Kind:          models.TransactionBuy,
		Symbol:        lot.Symbol,
		Quantity:      lot.Quantity,
		Price:         lot.BuyPrice,
		CommissionPct: lot.CommissionPct,
		Date:          lot.BuyDate,
		Notes:         lot.Notes,
	})
	if err != nil {
		return models.Lot{}, err
	}
	logger.FromContext(ctx).Info("Lot created", "lotID", created.ID, "symbol", created.Symbol, "quantity", created.Quantity.String())
	return created, nil
}

// UpdateLot merges a partial update into a lot. A symbol change re-infers the currency unless one is given.
func (s *PortfolioService) UpdateLot(ctx context.Context, userID, id string, p models.LotPatch) (models.Lot, error) {
	current, err := s.lots.Get(ctx, userID, id)
	if err != nil {
		return models.Lot{}, err
	}
	if p.IsEmpty() {
		return current, nil
	}

	if p.Symbol != nil {
		if err := validation.ValidateSymbol(*p.Symbol); err != nil {
			return models.Lot{}, invalid(err)
		}
	}
	if p.Currency != nil {
		if err := validation.ValidateCurrencyCode(*p.Currency); err != nil {
			return models.Lot{}, invalid(err)
		}
	}
	if p.Notes != nil {
		if err := validation.ValidateNotes(*p.Notes); err != nil {
			return models.Lot{}, invalid(err)
		}
	}

	updated := p.Apply(current)
	updated.Symbol = processors.NormalizeSymbol(updated.Symbol)
	updated.Currency = strings.ToUpper(strings.TrimSpace(updated.Currency))
	if (p.Symbol != nil && p.Currency == nil && updated.Symbol != current.Symbol) || updated.Currency == "" {
		updated.Currency = processors.ResolveSymbol(updated.Symbol).Currency
	}
	updated.Notes = validation.SanitizeNotes(updated.Notes)

	if err := processors.ValidateLot(updated); err != nil {
		return models.Lot{}, err
	}

	// Store the normalised values, not the raw input.
	normalized := p
	if p.Symbol != nil {
		normalized.Symbol = &updated.Symbol
	}
	if p.Currency != nil || updated.Currency != current.Currency {
		normalized.Currency = &updated.Currency
	}
	if p.Notes != nil {
		normalized.Notes = &updated.Notes
	}
	return s.lots.Update(ctx, userID, id, normalized)
}

func (s *PortfolioService) DeleteLot(ctx context.Context, userID, id string) error {
	if err := s.lots.Delete(ctx, userID, id); err != nil {
		return err
	}
	logger.FromContext(ctx).Info("Lot deleted", "lotID", id)
	return nil
}

// Sell liquidates part or all of a lot. A zero request date sells as of today.
func (s *PortfolioService) Sell(ctx context.Context, userID, id string, req models.SellRequest) (model.SaleRecord, error) {
	lot, err := s.lots.Get(ctx, userID, id)
	if err != nil {
		return model.SaleRecord{}, err
	}
	on := req.Date
	if on.IsZero() {
		on = s.today()
	}

	result, err := processors.ResolveSell(lot, req.Quantity, req.Price, on)
	if err != nil {
		return model.SaleRecord{}, err
	}

	rec, err := s.lots.ApplySale(ctx, userID, result.UpdatedOpenLot, result.ClosedLot, result.Transaction)
	if errors.Is(err, model.ErrLotAlreadyClosed) {
		return model.SaleRecord{}, fmt.Errorf("%w: %w", processors.ErrLotClosed, err)
	}
	if errors.Is(err, model.ErrLotChanged) {
		return model.SaleRecord{}, fmt.Errorf("%w: %w", ErrConflict, err)
	}
	if err != nil {
		return model.SaleRecord{}, err
	}
	logger.FromContext(ctx).Info("Lot sold", "lotID", id, "quantity", req.Quantity.String(), "partial", result.IsPartial())
	return rec, nil
}

func (s *PortfolioService) summarize(ctx context.Context, userID string) (processors.Summary, models.QuoteBatch, error) {
	open, err := s.lots.List(ctx, userID, model.LotFilter{Status: model.StatusOpen})
	if err != nil {
		return processors.Summary{}, models.QuoteBatch{}, err
	}
	closed, err := s.lots.List(ctx, userID, model.LotFilter{Status: model.StatusClosed})
	if err != nil {
		return processors.Summary{}, models.QuoteBatch{}, err
	}

	symbols := make([]string, 0, len(open))
	for _, l := range open {
		symbols = append(symbols, l.Symbol)
	}
	batch := models.QuoteBatch{Quotes: map[string]models.Quote{}}
	if len(symbols) > 0 {
		batch = s.quotes.Fetch(ctx, symbols)
	}
	return processors.Summarize(open, closed, batch.Quotes, s.today()), batch, nil
}

// Summary values the user's portfolio. A non-empty base adds a roll-up converted into that currency.
func (s *PortfolioService) Summary(ctx context.Context, userID, base string) (PortfolioSummary, error) {
	base = strings.ToUpper(strings.TrimSpace(base))
	if base != "" {
		if err := validation.ValidateCurrencyCode(base); err != nil {
			return PortfolioSummary{}, invalid(err)
		}
		if s.rates == nil {
			return PortfolioSummary{}, fmt.Errorf("%w: currency conversion is not configured", processors.ErrInvalidInput)
		}
	}

	summary, batch, err := s.summarize(ctx, userID)
	if err != nil {
		return PortfolioSummary{}, err
	}
	out := PortfolioSummary{
		Summary:         summary,
		QuotesFetchedAt: batch.FetchedAt,
		QuoteErrors:     batch.ErrorCount,
	}
	if base != "" {
		out.Converted = s.convert(ctx, summary, base)
	}
	return out, nil
}

func (s *PortfolioService) convert(ctx context.Context, summary processors.Summary, base string) *ConvertedTotals {
	out := &ConvertedTotals{Currency: base, MissingRates: []string{}}
	on := s.now()

	parts := make([]processors.Totals, 0, len(summary.Buckets))
	for _, b := range summary.Buckets {
		t, err := s.convertTotals(ctx, b.Totals, b.Currency, base, on)
		if err != nil {
			logger.FromContext(ctx).Warn("Could not convert bucket", "currency", b.Currency, "base", base, "error", err)
			out.MissingRates = append(out.MissingRates, b.Currency)
			continue
		}
		parts = append(parts, t)
	}
	out.Totals = processors.SumTotals(parts...)
	return out
}

func (s *PortfolioService) convertTotals(ctx context.Context, t processors.Totals, from, to string, on time.Time) (processors.Totals, error) {
	var out processors.Totals
	fields := []struct {
		src decimal.Decimal
		dst *decimal.Decimal
	}{
		{t.Invested, &out.Invested},
		{t.CurrentValue, &out.CurrentValue},
		{t.UnrealizedPL, &out.UnrealizedPL},
		{t.RealizedPL, &out.RealizedPL},
	}
	for _, f := range fields {
		v, err := s.rates.Convert(ctx, f.src, from, to, on)
		if err != nil {
			return processors.Totals{}, err
		}
		*f.dst = v
	}
	return out, nil
}

// Breakdown aggregates open holdings per symbol.
func (s *PortfolioService) Breakdown(ctx context.Context, userID string) ([]processors.SymbolBreakdown, error) {
	summary, _, err := s.summarize(ctx, userID)
	if err != nil {
		return nil, err
	}
	return processors.Breakdown(summary), nil
}

func (s *PortfolioService) Transactions(ctx context.Context, userID string) ([]models.Transaction, error) {
	return s.lots.ListTransactions(ctx, userID)
}

// RefreshOpenPrices fetches quotes for every symbol held by any user so that last known prices stay current.
func (s *PortfolioService) RefreshOpenPrices(ctx context.Context) (models.QuoteBatch, error) {
	symbols, err := s.lots.OpenSymbols(ctx)
	if err != nil {
		return models.QuoteBatch{}, err
	}
	if len(symbols) == 0 {
		return models.QuoteBatch{Quotes: map[string]models.Quote{}, FetchedAt: s.now().UTC()}, nil
	}
	return s.quotes.Fetch(ctx, symbols), nil
}
