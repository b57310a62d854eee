package processors

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestValuate(t *testing.T) {
	v := Valuate(sampleLot(), decimal.NewNullDecimal(dec("180.00")))

	assertDec(t, "15000", v.BuyValue)
	assertDec(t, "75", v.BuyCommission)
	assertDec(t, "15075", v.BuyTotal)
	assertDec(t, "18000", v.CurrentValue)
	assertDec(t, "2925", v.PL)
	assertDec(t, "19.40", v.PLPercent.Round(2))
	assert.True(t, v.PriceAvailable)
}

func TestValuateFallsBackToBuyPrice(t *testing.T) {
	for name, price := range map[string]decimal.NullDecimal{
		"missing": {},
		"zero":    decimal.NewNullDecimal(decimal.Zero),
	} {
		t.Run(name, func(t *testing.T) {
			v := Valuate(sampleLot(), price)
			assert.False(t, v.PriceAvailable)
			assertDec(t, "150", v.CurrentPrice)
			assertDec(t, "15000", v.CurrentValue)
			// Only the commission is lost when valued at cost.
			assertDec(t, "-75", v.PL)
		})
	}
}

func TestValuateServiceChargeAddsToCost(t *testing.T) {
	lot := sampleLot()
	lot.CommissionPct = decimal.Zero
	lot.ServiceCharge = dec("25")

	v := Valuate(lot, decimal.NewNullDecimal(dec("150")))
	assertDec(t, "15025", v.BuyTotal)
	assertDec(t, "-25", v.PL)
}

func TestValuatePLPercentSignMatchesPL(t *testing.T) {
	prices := []string{"1", "100", "150.75", "150.76", "151", "999.99"}
	for _, p := range prices {
		v := Valuate(sampleLot(), decimal.NewNullDecimal(dec(p)))
		assert.Equal(t, v.PL.Sign(), v.PLPercent.Sign(), "price %s", p)
	}
}

func TestValuateZeroCostReportsZeroPercent(t *testing.T) {
	lot := sampleLot()
	lot.Quantity = decimal.Zero

	v := Valuate(lot, decimal.NewNullDecimal(dec("180")))
	assert.True(t, v.BuyTotal.IsZero())
	assert.True(t, v.PLPercent.IsZero())
}
