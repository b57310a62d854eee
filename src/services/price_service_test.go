package services

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/username/stockfolio/backend/src/models"
)

type memoryPriceStore struct {
	mu     sync.Mutex
	prices map[string]models.DailyPrice
}

func newMemoryPriceStore() *memoryPriceStore {
	return &memoryPriceStore{prices: make(map[string]models.DailyPrice)}
}

func (m *memoryPriceStore) GetLatestPrices(_ context.Context, symbols []string) (map[string]models.DailyPrice, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]models.DailyPrice)
	for _, s := range symbols {
		if p, ok := m.prices[s]; ok {
			out[s] = p
		}
	}
	return out, nil
}

func (m *memoryPriceStore) UpsertPrice(_ context.Context, p models.DailyPrice) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.prices[p.Symbol] = p
	return nil
}

type fakeYahoo struct {
	server     *httptest.Server
	chartCalls atomic.Int32
	crumbCalls atomic.Int32
	lastCrumb  atomic.Value
	rejectOnce atomic.Bool
}

func newFakeYahoo(t *testing.T) *fakeYahoo {
	f := &fakeYahoo{}
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/test/getcrumb", func(w http.ResponseWriter, r *http.Request) {
		n := f.crumbCalls.Add(1)
		fmt.Fprintf(w, "crumb-%d", n)
	})
	mux.HandleFunc("/v8/finance/chart/", func(w http.ResponseWriter, r *http.Request) {
		f.chartCalls.Add(1)
		f.lastCrumb.Store(r.URL.Query().Get("crumb"))
		if f.rejectOnce.CompareAndSwap(true, false) {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		symbol := strings.TrimPrefix(r.URL.Path, "/v8/finance/chart/")
		switch symbol {
		case "AAPL":
			fmt.Fprint(w, `{"chart":{"result":[{"meta":{"currency":"USD","symbol":"AAPL","regularMarketPrice":180.123,"previousClose":175,"regularMarketTime":1717243200}}],"error":null}}`)
		case "RELIANCE.NS":
			fmt.Fprint(w, `{"chart":{"result":[{"meta":{"currency":"INR","symbol":"RELIANCE.NS","regularMarketPrice":2500,"chartPreviousClose":2400}}],"error":null}}`)
		case "EMPTY":
			fmt.Fprint(w, `{"chart":{"result":[],"error":null}}`)
		default:
			w.WriteHeader(http.StatusInternalServerError)
		}
	})
	f.server = httptest.NewServer(mux)
	t.Cleanup(f.server.Close)
	return f
}

func newTestQuoteService(f *fakeYahoo, store PriceStore) *QuoteService {
	s := NewQuoteService(QuoteConfig{
		BaseURL:        f.server.URL,
		Timeout:        2 * time.Second,
		CacheTTL:       time.Minute,
		MaxConcurrency: 2,
	}, store)
	s.now = func() time.Time { return time.Date(2024, time.June, 1, 15, 0, 0, 0, time.UTC) }
	return s
}

func TestQuoteServiceFetch(t *testing.T) {
	f := newFakeYahoo(t)
	store := newMemoryPriceStore()
	s := newTestQuoteService(f, store)

	batch := s.Fetch(context.Background(), []string{"aapl", "AAPL", " reliance "})

	assert.Equal(t, QuoteSource, batch.Source)
	assert.Equal(t, 2, batch.SuccessCount)
	assert.Equal(t, 0, batch.ErrorCount)
	require.Len(t, batch.Quotes, 2)

	aapl := batch.Quotes["AAPL"]
	assert.Equal(t, models.QuoteOK, aapl.Status)
	assert.Equal(t, "USD", aapl.Currency)
	assert.True(t, decimal.RequireFromString("180.12").Equal(aapl.Price), aapl.Price.String())
	assert.True(t, decimal.RequireFromString("5.12").Equal(aapl.Change), aapl.Change.String())
	assert.True(t, decimal.RequireFromString("2.93").Equal(aapl.ChangePercent), aapl.ChangePercent.String())
	assert.Equal(t, time.Unix(1717243200, 0).UTC(), aapl.AsOf)

	rel := batch.Quotes["RELIANCE"]
	assert.Equal(t, "RELIANCE.NS", rel.ProviderSymbol)
	assert.Equal(t, "INR", rel.Currency)
	assert.True(t, decimal.NewFromInt(100).Equal(rel.Change))

	assert.Equal(t, "crumb-1", f.lastCrumb.Load())
	assert.EqualValues(t, 2, f.chartCalls.Load())

	// Successful prices become the last known prices.
	stored, _ := store.GetLatestPrices(context.Background(), []string{"AAPL", "RELIANCE.NS"})
	assert.Len(t, stored, 2)
	assert.Equal(t, models.D(2024, time.June, 1), stored["AAPL"].Date)
}

func TestQuoteServiceServesFromCache(t *testing.T) {
	f := newFakeYahoo(t)
	s := newTestQuoteService(f, nil)

	first := s.Fetch(context.Background(), []string{"AAPL"})
	second := s.Fetch(context.Background(), []string{"aapl"})

	assert.EqualValues(t, 1, f.chartCalls.Load())
	assert.Equal(t, first.Quotes["AAPL"].Price, second.Quotes["AAPL"].Price)
	assert.Equal(t, 1, second.SuccessCount)
}

func TestQuoteServicePartialFailure(t *testing.T) {
	f := newFakeYahoo(t)
	store := newMemoryPriceStore()
	require.NoError(t, store.UpsertPrice(context.Background(), models.DailyPrice{
		Symbol: "MSFT", Date: models.D(2024, time.May, 31), Price: decimal.NewFromInt(410), Currency: "USD",
	}))
	s := newTestQuoteService(f, store)

	batch := s.Fetch(context.Background(), []string{"AAPL", "MSFT", "EMPTY"})

	assert.Equal(t, 1, batch.SuccessCount)
	assert.Equal(t, 2, batch.ErrorCount)

	msft := batch.Quotes["MSFT"]
	assert.Equal(t, models.QuoteStale, msft.Status)
	assert.True(t, decimal.NewFromInt(410).Equal(msft.Price))
	assert.NotEmpty(t, msft.Error)
	assert.True(t, msft.HasPrice())

	empty := batch.Quotes["EMPTY"]
	assert.Equal(t, models.QuoteUnavailable, empty.Status)
	assert.Equal(t, errNoPriceData.Error(), empty.Error)
	assert.False(t, empty.HasPrice())
}

func TestQuoteServiceRenewsRejectedCrumb(t *testing.T) {
	f := newFakeYahoo(t)
	f.rejectOnce.Store(true)
	s := newTestQuoteService(f, nil)

	batch := s.Fetch(context.Background(), []string{"AAPL"})

	assert.Equal(t, models.QuoteOK, batch.Quotes["AAPL"].Status)
	assert.EqualValues(t, 2, f.crumbCalls.Load())
	assert.Equal(t, "crumb-2", f.lastCrumb.Load())
}

func TestQuoteServiceEmptyInput(t *testing.T) {
	f := newFakeYahoo(t)
	s := newTestQuoteService(f, nil)

	batch := s.Fetch(context.Background(), []string{"", "  "})
	assert.Empty(t, batch.Quotes)
	assert.Zero(t, f.chartCalls.Load())
}
