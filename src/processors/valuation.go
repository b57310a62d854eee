package processors

import (
	"github.com/shopspring/decimal"
	"github.com/username/stockfolio/backend/src/models"
)

var hundred = decimal.NewFromInt(100)

// Valuation is the derived, never stored, mark-to-market of an open lot.
type Valuation struct {
	BuyValue       decimal.Decimal `json:"buy_value"`
	BuyCommission  decimal.Decimal `json:"buy_commission"`
	BuyTotal       decimal.Decimal `json:"buy_total"`
	CurrentPrice   decimal.Decimal `json:"current_price"`
	CurrentValue   decimal.Decimal `json:"current_value"`
	PL             decimal.Decimal `json:"pl"`
	PLPercent      decimal.Decimal `json:"pl_percent"`
	PriceAvailable bool            `json:"price_available"`
}

// costBasis is what acquiring the lot cost: notional, percentage commission and the flat service charge.
type costBasis struct {
	value      decimal.Decimal
	commission decimal.Decimal
	total      decimal.Decimal
}

func buyCost(l models.Lot) costBasis {
	value := l.Quantity.Mul(l.BuyPrice)
	commission := percentOf(value, l.CommissionPct)
	return costBasis{
		value:      value,
		commission: commission,
		total:      value.Add(commission).Add(l.ServiceCharge),
	}
}

// BuyTotal is the full acquisition cost of a lot.
func BuyTotal(l models.Lot) decimal.Decimal {
	return buyCost(l).total
}

// Valuate marks a lot to currentPrice. Without a valid price the lot is valued at its buy price.
func Valuate(l models.Lot, currentPrice decimal.NullDecimal) Valuation {
	cost := buyCost(l)

	price := l.BuyPrice
	available := currentPrice.Valid && currentPrice.Decimal.IsPositive()
	if available {
		price = currentPrice.Decimal
	}
	currentValue := l.Quantity.Mul(price)
	pl := currentValue.Sub(cost.total)

	return Valuation{
		BuyValue:       cost.value,
		BuyCommission:  cost.commission,
		BuyTotal:       cost.total,
		CurrentPrice:   price,
		CurrentValue:   currentValue,
		PL:             pl,
		PLPercent:      ratioPercent(pl, cost.total),
		PriceAvailable: available,
	}
}

// percentOf returns amount * pct / 100.
func percentOf(amount, pct decimal.Decimal) decimal.Decimal {
	return amount.Mul(pct).Div(hundred)
}

// ratioPercent returns num / den * 100, or zero when den is not positive.
func ratioPercent(num, den decimal.Decimal) decimal.Decimal {
	if !den.IsPositive() {
		return decimal.Zero
	}
	return num.Div(den).Mul(hundred)
}
