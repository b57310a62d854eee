package processors

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/username/stockfolio/backend/src/models"
)

func TestBreakdown(t *testing.T) {
	second := sampleLot()
	second.ID = "lot-2"
	second.Symbol = "aapl"
	second.Quantity = dec("50")
	second.CommissionPct = dec("0")

	msft := sampleLot()
	msft.ID = "lot-3"
	msft.Symbol = "MSFT"
	msft.Quantity = dec("10")
	msft.BuyPrice = dec("300")
	msft.CommissionPct = dec("0")

	s := Summarize(
		[]models.Lot{sampleLot(), second, msft, inrLot()},
		nil,
		quotes(map[string]string{"AAPL": "180", "MSFT": "300", "RELIANCE": "2500"}),
		models.D(2024, time.June, 1),
	)

	rows := Breakdown(s)
	require.Len(t, rows, 3)

	assert.Equal(t, "RELIANCE", rows[0].Symbol)
	assertDec(t, "100", rows[0].Weight)

	aapl := rows[1]
	assert.Equal(t, "AAPL", aapl.Symbol)
	assert.Equal(t, 2, aapl.Lots)
	assertDec(t, "150", aapl.Quantity)
	assertDec(t, "22575", aapl.BuyTotal)
	assertDec(t, "27000", aapl.CurrentValue)
	assertDec(t, "90", aapl.Weight)

	assert.Equal(t, "MSFT", rows[2].Symbol)
	assertDec(t, "10", rows[2].Weight)
	assert.True(t, rows[2].PL.IsZero())
}

func TestBreakdownEmpty(t *testing.T) {
	assert.Empty(t, Breakdown(Summarize(nil, nil, nil, models.D(2024, time.June, 1))))
}
