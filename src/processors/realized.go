package processors

import (
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/username/stockfolio/backend/src/models"
)

// Realization is the realized profit or loss of a closed lot.
type Realization struct {
	BuyTotal       decimal.Decimal `json:"buy_total"`
	SellValue      decimal.Decimal `json:"sell_value"`
	SellCommission decimal.Decimal `json:"sell_commission"`
	SellTotal      decimal.Decimal `json:"sell_total"`
	RealizedPL     decimal.Decimal `json:"realized_pl"`
	ReturnPercent  decimal.Decimal `json:"return_percent"`
	Currency       string          `json:"currency"`
	HoldingPeriod  HoldingPeriod   `json:"holding_period"`
}

// Realize computes the realized P&L of a closed lot. Commission inflates the buy side and reduces proceeds.
func Realize(l models.Lot) (Realization, error) {
	if !l.IsClosed() {
		return Realization{}, fmt.Errorf("%w: lot %s", ErrLotOpen, l.ID)
	}
	cost := buyCost(l)
	sellValue := l.Quantity.Mul(*l.SellPrice)
	sellCommission := percentOf(sellValue, l.CommissionPct)
	sellTotal := sellValue.Sub(sellCommission)
	realized := sellTotal.Sub(cost.total)

	return Realization{
		BuyTotal:       cost.total,
		SellValue:      sellValue,
		SellCommission: sellCommission,
		SellTotal:      sellTotal,
		RealizedPL:     realized,
		ReturnPercent:  ratioPercent(realized, cost.total),
		Currency:       LotCurrency(l),
		HoldingPeriod:  Classify(l.BuyDate, *l.SellDate),
	}, nil
}
