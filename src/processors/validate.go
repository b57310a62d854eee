package processors

import (
	"github.com/username/stockfolio/backend/src/models"
)

// ValidateLot re-checks the numeric ranges the engine relies on.
func ValidateLot(l models.Lot) error {
	if NormalizeSymbol(l.Symbol) == "" {
		return invalidf("symbol is required")
	}
	if !l.Quantity.IsPositive() {
		return invalidf("quantity must be positive, got %s", l.Quantity)
	}
	if !l.BuyPrice.IsPositive() {
		return invalidf("buy price must be positive, got %s", l.BuyPrice)
	}
	if l.CommissionPct.IsNegative() {
		return invalidf("commission cannot be negative, got %s", l.CommissionPct)
	}
	if l.ServiceCharge.IsNegative() {
		return invalidf("service charge cannot be negative, got %s", l.ServiceCharge)
	}
	if l.BuyDate.IsZero() {
		return invalidf("buy date is required")
	}
	if (l.SellPrice == nil) != (l.SellDate == nil) {
		return invalidf("sell price and sell date must be set together")
	}
	if l.IsClosed() {
		if !l.SellPrice.IsPositive() {
			return invalidf("sell price must be positive, got %s", l.SellPrice)
		}
		if l.SellDate.Before(l.BuyDate) {
			return invalidf("sell date %s is before buy date %s", l.SellDate, l.BuyDate)
		}
	}
	return nil
}
