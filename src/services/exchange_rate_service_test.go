package services

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newFakeECB serves rates for weekdays only; weekends answer 404 like the ECB API does.
func newFakeECB(t *testing.T, rates map[string]string) (*httptest.Server, *atomic.Int32) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		series := strings.TrimPrefix(r.URL.Path, "/")
		ccy := strings.Split(series, ".")[1]
		day, err := time.Parse("2006-01-02", r.URL.Query().Get("startPeriod"))
		if err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		rate, ok := rates[ccy]
		if !ok || day.Weekday() == time.Saturday || day.Weekday() == time.Sunday {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		fmt.Fprintf(w, `{"dataSets":[{"series":{"0:0:0:0:0":{"observations":{"0":[%s,0,0,null,null]}}}}]}`, rate)
	}))
	t.Cleanup(srv.Close)
	return srv, &calls
}

func TestExchangeRateLooksBackOverWeekend(t *testing.T) {
	srv, calls := newFakeECB(t, map[string]string{"USD": "1.0850"})
	s := NewExchangeService(srv.URL, time.Second)

	sunday := time.Date(2024, time.June, 2, 10, 0, 0, 0, time.UTC)
	rate, err := s.Rate(context.Background(), "usd", sunday)
	require.NoError(t, err)
	assert.True(t, decimal.RequireFromString("1.085").Equal(rate))
	assert.EqualValues(t, 3, calls.Load(), "sunday, saturday, friday")

	_, err = s.Rate(context.Background(), "USD", sunday)
	require.NoError(t, err)
	assert.EqualValues(t, 3, calls.Load(), "second lookup is cached")
}

func TestExchangeRateUnavailable(t *testing.T) {
	srv, calls := newFakeECB(t, nil)
	s := NewExchangeService(srv.URL, time.Second)

	_, err := s.Rate(context.Background(), "INR", time.Date(2024, time.June, 5, 0, 0, 0, 0, time.UTC))
	assert.ErrorIs(t, err, ErrRateUnavailable)
	assert.EqualValues(t, lookBackDays, calls.Load())
}

func TestConvert(t *testing.T) {
	srv, _ := newFakeECB(t, map[string]string{"USD": "1.25", "INR": "90"})
	s := NewExchangeService(srv.URL, time.Second)
	ctx := context.Background()
	on := time.Date(2024, time.June, 5, 0, 0, 0, 0, time.UTC)

	eur, err := s.Convert(ctx, decimal.NewFromInt(125), "USD", "EUR", on)
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(100).Equal(eur), eur.String())

	inr, err := s.Convert(ctx, decimal.NewFromInt(125), "USD", "INR", on)
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(9000).Equal(inr), inr.String())

	same, err := s.Convert(ctx, decimal.NewFromInt(7), "inr", "INR", on)
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(7).Equal(same))
}
