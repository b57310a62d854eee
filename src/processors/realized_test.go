package processors

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/username/stockfolio/backend/src/models"
)

func TestRealizePartialSaleExample(t *testing.T) {
	res, err := ResolveSell(sampleLot(), dec("40"), dec("190"), models.D(2025, time.March, 1))
	require.NoError(t, err)

	r, err := Realize(res.ClosedLot)
	require.NoError(t, err)

	assertDec(t, "6030", r.BuyTotal)
	assertDec(t, "7600", r.SellValue)
	assertDec(t, "38", r.SellCommission)
	assertDec(t, "7562", r.SellTotal)
	assertDec(t, "1532", r.RealizedPL)
	assertDec(t, "25.41", r.ReturnPercent.Round(2))
	assert.Equal(t, "USD", r.Currency)
	assert.Equal(t, 365, r.HoldingPeriod.Days)
	assert.True(t, r.HoldingPeriod.IsLongTerm)
}

func TestRealizeLoss(t *testing.T) {
	lot := sampleLot()
	lot.CommissionPct = dec("0")
	lot.ServiceCharge = dec("10")
	lot = closedLot(lot, "140", models.D(2024, time.March, 11))

	r, err := Realize(lot)
	require.NoError(t, err)
	assertDec(t, "-1010", r.RealizedPL)
	assert.True(t, r.ReturnPercent.IsNegative())
	assert.Equal(t, 10, r.HoldingPeriod.Days)
	assert.False(t, r.HoldingPeriod.IsLongTerm)
}

func TestRealizeOpenLot(t *testing.T) {
	_, err := Realize(sampleLot())
	assert.ErrorIs(t, err, ErrLotOpen)
}
