package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// QuoteStatus tells callers whether a price can be trusted.
type QuoteStatus string

const (
	QuoteOK          QuoteStatus = "OK"          // fetched live in this cycle
	QuoteStale       QuoteStatus = "STALE"       // last known price from the price history
	QuoteUnavailable QuoteStatus = "UNAVAILABLE" // no price at all; callers fall back to the buy price
)

// Quote is ephemeral and only valid for the request that produced it.
type Quote struct {
	Symbol         string          `json:"symbol"`
	ProviderSymbol string          `json:"provider_symbol"`
	Status         QuoteStatus     `json:"status"`
	Price          decimal.Decimal `json:"price"`
	PreviousClose  decimal.Decimal `json:"previous_close"`
	Change         decimal.Decimal `json:"change"`
	ChangePercent  decimal.Decimal `json:"changePercent"`
	Currency       string          `json:"currency"`
	AsOf           time.Time       `json:"as_of"`
	Error          string          `json:"error,omitempty"`
}

// HasPrice reports whether the quote carries a usable price.
func (q Quote) HasPrice() bool {
	return (q.Status == QuoteOK || q.Status == QuoteStale) && q.Price.IsPositive()
}

// QuoteBatch is the joined result of a fan-out fetch.
type QuoteBatch struct {
	Quotes       map[string]Quote `json:"quotes"`
	FetchedAt    time.Time        `json:"timestamp"`
	Source       string           `json:"source"`
	SuccessCount int              `json:"success_count"`
	ErrorCount   int              `json:"error_count"`
}

// DailyPrice is a persisted price observation for a provider symbol on a given day.
type DailyPrice struct {
	Symbol    string
	Date      Date
	Price     decimal.Decimal
	Currency  string
	UpdatedAt time.Time
}
