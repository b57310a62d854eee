package processors

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/username/stockfolio/backend/src/models"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func assertDec(t *testing.T, want string, got decimal.Decimal, msgAndArgs ...any) {
	t.Helper()
	assert.Truef(t, dec(want).Equal(got), "want %s, got %s %v", want, got, msgAndArgs)
}

// sampleLot is the 100 x 150.00 lot with 0.5% commission used across the tests.
func sampleLot() models.Lot {
	return models.Lot{
		ID:            "lot-1",
		UserID:        "demo-user",
		Symbol:        "AAPL",
		Quantity:      dec("100"),
		BuyPrice:      dec("150.00"),
		BuyDate:       models.D(2024, time.March, 1),
		CommissionPct: dec("0.5"),
		ServiceCharge: decimal.Zero,
		Currency:      "USD",
	}
}

func closedLot(l models.Lot, price string, on models.Date) models.Lot {
	p := dec(price)
	l.SellPrice = &p
	l.SellDate = &on
	return l
}
