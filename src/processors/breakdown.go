package processors

import (
	"sort"

	"github.com/shopspring/decimal"
)

// SymbolBreakdown aggregates all open lots of one symbol. Weight is the share of the
// symbol's current value within its own currency bucket.
type SymbolBreakdown struct {
	Symbol       string          `json:"symbol"`
	Currency     string          `json:"currency"`
	Lots         int             `json:"lots"`
	Quantity     decimal.Decimal `json:"quantity"`
	BuyTotal     decimal.Decimal `json:"buy_total"`
	CurrentValue decimal.Decimal `json:"current_value"`
	PL           decimal.Decimal `json:"pl"`
	PLPercent    decimal.Decimal `json:"pl_percent"`
	Weight       decimal.Decimal `json:"weight_percent"`
}

// Breakdown groups the holdings of a summary by symbol, ordered by currency then value descending.
func Breakdown(s Summary) []SymbolBreakdown {
	bySymbol := make(map[string]*SymbolBreakdown)
	for _, h := range s.Holdings {
		symbol := NormalizeSymbol(h.Lot.Symbol)
		b, ok := bySymbol[symbol]
		if !ok {
			b = &SymbolBreakdown{Symbol: symbol, Currency: h.Currency}
			bySymbol[symbol] = b
		}
		b.Lots++
		b.Quantity = b.Quantity.Add(h.Lot.Quantity)
		b.BuyTotal = b.BuyTotal.Add(h.Valuation.BuyTotal)
		b.CurrentValue = b.CurrentValue.Add(h.Valuation.CurrentValue)
		b.PL = b.PL.Add(h.Valuation.PL)
	}

	out := make([]SymbolBreakdown, 0, len(bySymbol))
	for _, b := range bySymbol {
		b.PLPercent = ratioPercent(b.PL, b.BuyTotal)
		if bucket, ok := s.Bucket(b.Currency); ok {
			b.Weight = ratioPercent(b.CurrentValue, bucket.CurrentValue)
		}
		out = append(out, *b)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Currency != out[j].Currency {
			return out[i].Currency < out[j].Currency
		}
		if !out[i].CurrentValue.Equal(out[j].CurrentValue) {
			return out[i].CurrentValue.GreaterThan(out[j].CurrentValue)
		}
		return out[i].Symbol < out[j].Symbol
	})
	return out
}
