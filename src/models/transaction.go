package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransactionKind distinguishes buy and sell records.
type TransactionKind string

const (
	TransactionBuy  TransactionKind = "BUY"
	TransactionSell TransactionKind = "SELL"
)

// Transaction is the append-only history of buy and sell actions.
type Transaction struct {
	ID            string          `json:"id"`
	UserID        string          `json:"user_id"`
	LotID         string          `json:"lot_id"`
	Kind          TransactionKind `json:"type"`
	Symbol        string          `json:"symbol"`
	Quantity      decimal.Decimal `json:"quantity"`
	Price         decimal.Decimal `json:"price"`
	CommissionPct decimal.Decimal `json:"commission"`
	Date          Date            `json:"date"`
	Notes         string          `json:"notes,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
}
