package processors

import (
	"sort"

	"github.com/shopspring/decimal"
	"github.com/username/stockfolio/backend/src/models"
)

// Holding is an open lot together with everything derived from it.
type Holding struct {
	Lot           models.Lot         `json:"lot"`
	Currency      string             `json:"currency"`
	QuoteStatus   models.QuoteStatus `json:"quote_status"`
	Valuation     Valuation          `json:"valuation"`
	HoldingPeriod HoldingPeriod      `json:"holding_period"`
}

// Sale is a closed lot together with its realization.
type Sale struct {
	Lot         models.Lot  `json:"lot"`
	Realization Realization `json:"realization"`
}

// Totals are the money figures shared by currency buckets and the global summary.
type Totals struct {
	Invested       decimal.Decimal `json:"total_invested"`
	CurrentValue   decimal.Decimal `json:"current_value"`
	UnrealizedPL   decimal.Decimal `json:"unrealized_pl"`
	RealizedPL     decimal.Decimal `json:"realized_pl"`
	TotalPL        decimal.Decimal `json:"total_pl"`
	TotalPLPercent decimal.Decimal `json:"total_pl_percent"`
}

// CurrencyBucket aggregates the lots of a single currency.
type CurrencyBucket struct {
	Currency string `json:"currency"`
	Totals
	OpenLots   int `json:"open_lots"`
	ClosedLots int `json:"closed_lots"`
}

// Summary is recomputed on every call and never cached.
type Summary struct {
	AsOf    models.Date      `json:"as_of"`
	Buckets []CurrencyBucket `json:"buckets"`
	Totals
	LongTermCount  int       `json:"long_term_count"`
	ShortTermCount int       `json:"short_term_count"`
	Holdings       []Holding `json:"holdings"`
	Sales          []Sale    `json:"sales"`
}

// Bucket returns the bucket of a currency, if any lot is held in it.
func (s Summary) Bucket(currency string) (CurrencyBucket, bool) {
	for _, b := range s.Buckets {
		if b.Currency == currency {
			return b, true
		}
	}
	return CurrencyBucket{}, false
}

func (t *Totals) addOpen(v Valuation) {
	t.Invested = t.Invested.Add(v.BuyTotal)
	t.CurrentValue = t.CurrentValue.Add(v.CurrentValue)
	t.UnrealizedPL = t.UnrealizedPL.Add(v.PL)
}

func (t *Totals) addClosed(r Realization) {
	t.RealizedPL = t.RealizedPL.Add(r.RealizedPL)
}

// finish derives TotalPL and its percentage. Only open capital counts as invested, so the
// percentage relates realized plus unrealized P&L to the capital still at work.
func (t *Totals) finish() {
	t.TotalPL = t.UnrealizedPL.Add(t.RealizedPL)
	t.TotalPLPercent = ratioPercent(t.TotalPL, t.Invested)
}

// SumTotals adds money figures that are already expressed in one currency and re-derives the P&L percentage.
func SumTotals(parts ...Totals) Totals {
	var out Totals
	for _, p := range parts {
		out.Invested = out.Invested.Add(p.Invested)
		out.CurrentValue = out.CurrentValue.Add(p.CurrentValue)
		out.UnrealizedPL = out.UnrealizedPL.Add(p.UnrealizedPL)
		out.RealizedPL = out.RealizedPL.Add(p.RealizedPL)
	}
	out.finish()
	return out
}

// Summarize values open lots against quotes (keyed by canonical symbol) and realizes closed lots.
// Lots in the wrong slice are routed by their actual state.
func Summarize(open, closed []models.Lot, quotes map[string]models.Quote, asOf models.Date) Summary {
	summary := Summary{
		AsOf:     asOf,
		Holdings: []Holding{},
		Sales:    []Sale{},
	}
	buckets := make(map[string]*CurrencyBucket)
	bucketFor := func(ccy string) *CurrencyBucket {
		b, ok := buckets[ccy]
		if !ok {
			b = &CurrencyBucket{Currency: ccy}
			buckets[ccy] = b
		}
		return b
	}

	all := make([]models.Lot, 0, len(open)+len(closed))
	all = append(all, open...)
	all = append(all, closed...)

	for _, lot := range all {
		ccy := LotCurrency(lot)
		bucket := bucketFor(ccy)

		if lot.IsClosed() {
			r, err := Realize(lot)
			if err != nil {
				continue
			}
			bucket.addClosed(r)
			bucket.ClosedLots++
			summary.addClosed(r)
			summary.Sales = append(summary.Sales, Sale{Lot: lot, Realization: r})
			continue
		}

		price, status := priceFor(lot, quotes)
		v := Valuate(lot, price)
		period := Classify(lot.BuyDate, asOf)

		bucket.addOpen(v)
		bucket.OpenLots++
		summary.addOpen(v)
		if period.IsLongTerm {
			summary.LongTermCount++
		} else {
			summary.ShortTermCount++
		}
		summary.Holdings = append(summary.Holdings, Holding{
			Lot:           lot,
			Currency:      ccy,
			QuoteStatus:   status,
			Valuation:     v,
			HoldingPeriod: period,
		})
	}

	summary.Buckets = make([]CurrencyBucket, 0, len(buckets))
	for _, b := range buckets {
		b.finish()
		summary.Buckets = append(summary.Buckets, *b)
	}
	sort.Slice(summary.Buckets, func(i, j int) bool {
		return summary.Buckets[i].Currency < summary.Buckets[j].Currency
	})
	summary.finish()
	return summary
}

func priceFor(lot models.Lot, quotes map[string]models.Quote) (decimal.NullDecimal, models.QuoteStatus) {
	q, ok := quotes[NormalizeSymbol(lot.Symbol)]
	if !ok {
		return decimal.NullDecimal{}, models.QuoteUnavailable
	}
	if !q.HasPrice() {
		return decimal.NullDecimal{}, models.QuoteUnavailable
	}
	return decimal.NewNullDecimal(q.Price), q.Status
}
