package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Lot is a single acquisition of an instrument. A lot carrying both SellPrice and SellDate is closed.
type Lot struct {
	ID            string           `json:"id"`
	UserID        string           `json:"user_id"`
	Symbol        string           `json:"symbol"`
	Quantity      decimal.Decimal  `json:"quantity"`
	BuyPrice      decimal.Decimal  `json:"buy_price"`
	BuyDate       Date             `json:"buy_date"`
	CommissionPct decimal.Decimal  `json:"commission"`     // percentage applied to buy and sell notional
	ServiceCharge decimal.Decimal  `json:"service_charge"` // flat fee charged once at acquisition
	Currency      string           `json:"currency"`
	SellPrice     *decimal.Decimal `json:"sell_price,omitempty"`
	SellDate      *Date            `json:"sell_date,omitempty"`
	Notes         string           `json:"notes,omitempty"`
	CreatedAt     time.Time        `json:"created_at"`
	UpdatedAt     time.Time        `json:"updated_at"`
}

// IsClosed reports whether the lot has been liquidated.
func (l Lot) IsClosed() bool {
	return l.SellPrice != nil && l.SellDate != nil
}

// LotInput is the payload of a buy action.
type LotInput struct {
	Symbol        string          `json:"symbol"`
	Quantity      decimal.Decimal `json:"quantity"`
	BuyPrice      decimal.Decimal `json:"buy_price"`
	BuyDate       Date            `json:"buy_date"`
	CommissionPct decimal.Decimal `json:"commission"`
	ServiceCharge decimal.Decimal `json:"service_charge"`
	Currency      string          `json:"currency,omitempty"`
	Notes         string          `json:"notes,omitempty"`
}

// LotPatch is a partial update; nil fields are left untouched.
type LotPatch struct {
	Symbol        *string          `json:"symbol,omitempty"`
	Quantity      *decimal.Decimal `json:"quantity,omitempty"`
	BuyPrice      *decimal.Decimal `json:"buy_price,omitempty"`
	BuyDate       *Date            `json:"buy_date,omitempty"`
	CommissionPct *decimal.Decimal `json:"commission,omitempty"`
	ServiceCharge *decimal.Decimal `json:"service_charge,omitempty"`
	Currency      *string          `json:"currency,omitempty"`
	Notes         *string          `json:"notes,omitempty"`
}

// IsEmpty reports whether the patch changes nothing.
func (p LotPatch) IsEmpty() bool {
	return p.Symbol == nil && p.Quantity == nil && p.BuyPrice == nil && p.BuyDate == nil &&
		p.CommissionPct == nil && p.ServiceCharge == nil && p.Currency == nil && p.Notes == nil
}

// Apply returns a copy of l with the patch applied.
func (p LotPatch) Apply(l Lot) Lot {
	if p.Symbol != nil {
		l.Symbol = *p.Symbol
	}
	if p.Quantity != nil {
		l.Quantity = *p.Quantity
	}
	if p.BuyPrice != nil {
		l.BuyPrice = *p.BuyPrice
	}
	if p.BuyDate != nil {
		l.BuyDate = *p.BuyDate
	}
	if p.CommissionPct != nil {
		l.CommissionPct = *p.CommissionPct
	}
	if p.ServiceCharge != nil {
		l.ServiceCharge = *p.ServiceCharge
	}
	if p.Currency != nil {
		l.Currency = *p.Currency
	}
	if p.Notes != nil {
		l.Notes = *p.Notes
	}
	return l
}

// SellRequest is the payload of a sell action. A zero Date means "today".
type SellRequest struct {
	Quantity decimal.Decimal `json:"quantity"`
	Price    decimal.Decimal `json:"sell_price"`
	Date     Date            `json:"sell_date"`
}
