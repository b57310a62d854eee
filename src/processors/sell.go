package processors

import (
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/username/stockfolio/backend/src/models"
)

// SellResult is the complete outcome of a sell action. The store must apply it as one unit.
type SellResult struct {
	// UpdatedOpenLot is the remainder of a partially sold lot; nil on full liquidation.
	UpdatedOpenLot *models.Lot `json:"updated_open_lot,omitempty"`
	// ClosedLot keeps the original lot ID on full liquidation and has an empty ID on a split.
	ClosedLot   models.Lot         `json:"closed_lot"`
	Transaction models.Transaction `json:"transaction"`
}

// IsPartial reports whether the sale split the lot.
func (r SellResult) IsPartial() bool {
	return r.UpdatedOpenLot != nil
}

// ResolveSell decides how selling quantity units of lot at price on asOf changes the lot state.
// The input lot is never modified.
func ResolveSell(lot models.Lot, quantity, price decimal.Decimal, asOf models.Date) (SellResult, error) {
	if lot.IsClosed() {
		return SellResult{}, fmt.Errorf("%w: lot %s", ErrLotClosed, lot.ID)
	}
	if err := ValidateLot(lot); err != nil {
		return SellResult{}, err
	}
	if !quantity.IsPositive() || quantity.GreaterThan(lot.Quantity) {
		return SellResult{}, fmt.Errorf("%w: cannot sell %s of %s held", ErrInvalidQuantity, quantity, lot.Quantity)
	}
	if !price.IsPositive() {
		return SellResult{}, invalidf("sell price must be positive, got %s", price)
	}
	if asOf.IsZero() {
		return SellResult{}, invalidf("sell date is required")
	}
	if asOf.Before(lot.BuyDate) {
		return SellResult{}, invalidf("sell date %s is before buy date %s", asOf, lot.BuyDate)
	}

	sellPrice := price
	sellDate := asOf
	result := SellResult{
		Transaction: models.Transaction{
			UserID:        lot.UserID,
			LotID:         lot.ID,
			Kind:          models.TransactionSell,
			Symbol:        lot.Symbol,
			Quantity:      quantity,
			Price:         price,
			CommissionPct: lot.CommissionPct,
			Date:          asOf,
			Notes:         fmt.Sprintf("Sold from position bought on %s", lot.BuyDate),
		},
	}

	if quantity.Equal(lot.Quantity) {
		closed := lot
		closed.SellPrice = &sellPrice
		closed.SellDate = &sellDate
		result.ClosedLot = closed
		return result, nil
	}

	remaining := lot
	remaining.Quantity = lot.Quantity.Sub(quantity)
	result.UpdatedOpenLot = &remaining

	result.ClosedLot = models.Lot{
		UserID:        lot.UserID,
		Symbol:        lot.Symbol,
		Quantity:      quantity,
		BuyPrice:      lot.BuyPrice,
		BuyDate:       lot.BuyDate,
		CommissionPct: lot.CommissionPct,
		ServiceCharge: lot.ServiceCharge,
		Currency:      lot.Currency,
		SellPrice:     &sellPrice,
		SellDate:      &sellDate,
		Notes:         fmt.Sprintf("Partial sale from position bought on %s", lot.BuyDate),
	}
	return result, nil
}
