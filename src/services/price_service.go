// backend/src/services/price_service.go
package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/shopspring/decimal"
	"github.com/username/stockfolio/backend/src/logger"
	"github.com/username/stockfolio/backend/src/models"
	"github.com/username/stockfolio/backend/src/processors"
	"golang.org/x/net/publicsuffix"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

const (
	QuoteSource     = "yahoo_finance"
	userAgent       = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36"
	defaultQuoteURL = "https://query1.finance.yahoo.com"
)

var errNoPriceData = errors.New("no price data available")

// errUnauthorized means the crumb was rejected and the session must be rebuilt.
var errUnauthorized = errors.New("status 401 (Unauthorized) - crumb invalid")

type yahooChartResponse struct {
	Chart struct {
		Result []struct {
			Meta struct {
				Currency           string          `json:"currency"`
				Symbol             string          `json:"symbol"`
				RegularMarketPrice decimal.Decimal `json:"regularMarketPrice"`
				RegularMarketTime  int64           `json:"regularMarketTime"`
				PreviousClose      decimal.Decimal `json:"previousClose"`
				ChartPreviousClose decimal.Decimal `json:"chartPreviousClose"`
			} `json:"meta"`
		} `json:"result"`
		Error any `json:"error"`
	} `json:"chart"`
}

// QuoteConfig tunes the quote service.
type QuoteConfig struct {
	BaseURL        string
	Timeout        time.Duration
	CacheTTL       time.Duration
	MaxConcurrency int
	RatePerSecond  float64
	// SessionURLs are visited once to collect cookies before the crumb is requested.
	SessionURLs []string
}

// DefaultQuoteConfig mirrors the production Yahoo setup.
func DefaultQuoteConfig() QuoteConfig {
	return QuoteConfig{
		BaseURL:        defaultQuoteURL,
		Timeout:        10 * time.Second,
		CacheTTL:       60 * time.Second,
		MaxConcurrency: 4,
		RatePerSecond:  4,
		SessionURLs:    []string{"https://fc.yahoo.com", "https://finance.yahoo.com"},
	}
}

// QuoteService fetches quotes from the Yahoo v8 chart endpoint, falling back to last known prices.
type QuoteService struct {
	cfg     QuoteConfig
	client  *http.Client
	cache   *cache.Cache
	limiter *rate.Limiter
	prices  PriceStore
	now     func() time.Time

	mu          sync.Mutex
	crumb       string
	initialized bool
}

// NewQuoteService builds the service. prices may be nil, in which case failed symbols are UNAVAILABLE.
func NewQuoteService(cfg QuoteConfig, prices PriceStore) *QuoteService {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultQuoteURL
	}
	if cfg.MaxConcurrency <= 0 {
		cfg.MaxConcurrency = 1
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 60 * time.Second
	}

	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		logger.L.Error("Failed to create cookie jar", "error", err)
	}

	limit := rate.Inf
	if cfg.RatePerSecond > 0 {
		limit = rate.Limit(cfg.RatePerSecond)
	}

	return &QuoteService{
		cfg:     cfg,
		client:  &http.Client{Jar: jar, Timeout: cfg.Timeout},
		cache:   cache.New(cfg.CacheTTL, 2*cfg.CacheTTL),
		limiter: rate.NewLimiter(limit, cfg.MaxConcurrency),
		prices:  prices,
		now:     time.Now,
	}
}

// Fetch returns one quote per distinct canonical symbol. It never fails as a whole.
func (s *QuoteService) Fetch(ctx context.Context, symbols []string) models.QuoteBatch {
	batch := models.QuoteBatch{
		Quotes:    make(map[string]models.Quote),
		FetchedAt: s.now().UTC(),
		Source:    QuoteSource,
	}

	var toFetch []processors.ResolvedSymbol
	seen := make(map[string]bool)
	for _, raw := range symbols {
		r := processors.ResolveSymbol(raw)
		if r.Symbol == "" || seen[r.Symbol] {
			continue
		}
		seen[r.Symbol] = true
		if cached, ok := s.cache.Get(r.ProviderSymbol); ok {
			q := cached.(models.Quote)
			q.Symbol = r.Symbol
			batch.Quotes[r.Symbol] = q
			continue
		}
		toFetch = append(toFetch, r)
	}

	var (
		mu     sync.Mutex
		fresh  = make(map[string]models.Quote)
		failed []processors.ResolvedSymbol
		errs   = make(map[string]error)
	)
	var g errgroup.Group
	g.SetLimit(s.cfg.MaxConcurrency)
	for _, r := range toFetch {
		g.Go(func() error {
			q, err := s.fetchOne(ctx, r)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				logger.FromContext(ctx).Warn("Could not get price for symbol", "symbol", r.Symbol, "providerSymbol", r.ProviderSymbol, "error", err)
				failed = append(failed, r)
				errs[r.Symbol] = err
				return nil
			}
			fresh[r.Symbol] = q
			return nil
		})
	}
	_ = g.Wait()

	for symbol, q := range fresh {
		s.cache.Set(q.ProviderSymbol, q, cache.DefaultExpiration)
		s.persist(ctx, q)
		batch.Quotes[symbol] = q
	}

	for symbol, q := range s.fallback(ctx, failed, errs) {
		batch.Quotes[symbol] = q
	}

	for _, q := range batch.Quotes {
		if q.Status == models.QuoteOK {
			batch.SuccessCount++
		} else {
			batch.ErrorCount++
		}
	}
	return batch
}

func (s *QuoteService) fallback(ctx context.Context, failed []processors.ResolvedSymbol, errs map[string]error) map[string]models.Quote {
	out := make(map[string]models.Quote, len(failed))
	if len(failed) == 0 {
		return out
	}

	var known map[string]models.DailyPrice
	if s.prices != nil {
		providerSymbols := make([]string, len(failed))
		for i, r := range failed {
			providerSymbols[i] = r.ProviderSymbol
		}
		var err error
		known, err = s.prices.GetLatestPrices(ctx, providerSymbols)
		if err != nil {
			logger.FromContext(ctx).Error("Failed to load last known prices", "error", err)
		}
	}

	for _, r := range failed {
		q := models.Quote{
			Symbol:         r.Symbol,
			ProviderSymbol: r.ProviderSymbol,
			Status:         models.QuoteUnavailable,
			Currency:       r.Currency,
			Error:          errs[r.Symbol].Error(),
		}
		if p, ok := known[r.ProviderSymbol]; ok && p.Price.IsPositive() {
			q.Status = models.QuoteStale
			q.Price = p.Price
			q.AsOf = p.Date.Time
			if p.Currency != "" {
				q.Currency = p.Currency
			}
		}
		out[r.Symbol] = q
	}
	return out
}

func (s *QuoteService) persist(ctx context.Context, q models.Quote) {
	if s.prices == nil {
		return
	}
	err := s.prices.UpsertPrice(ctx, models.DailyPrice{
		Symbol:   q.ProviderSymbol,
		Date:     models.NewDate(s.now()),
		Price:    q.Price,
		Currency: q.Currency,
	})
	if err != nil {
		logger.FromContext(ctx).Warn("Could not persist price", "symbol", q.ProviderSymbol, "error", err)
	}
}

func (s *QuoteService) fetchOne(ctx context.Context, r processors.ResolvedSymbol) (models.Quote, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return models.Quote{}, err
	}
	s.ensureSession(ctx)

	q, err := s.getChart(ctx, r)
	if errors.Is(err, errUnauthorized) {
		s.resetSession()
		s.ensureSession(ctx)
		q, err = s.getChart(ctx, r)
	}
	return q, err
}

func (s *QuoteService) getChart(ctx context.Context, r processors.ResolvedSymbol) (models.Quote, error) {
	params := url.Values{}
	params.Set("range", "1d")
	params.Set("interval", "5m")
	if crumb := s.currentCrumb(); crumb != "" {
		params.Set("crumb", crumb)
	}
	quoteURL := fmt.Sprintf("%s/v8/finance/chart/%s?%s", s.cfg.BaseURL, url.PathEscape(r.ProviderSymbol), params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, quoteURL, nil)
	if err != nil {
		return models.Quote{}, err
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return models.Quote{}, fmt.Errorf("failed to call Yahoo chart API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		return models.Quote{}, errUnauthorized
	}
	if resp.StatusCode != http.StatusOK {
		return models.Quote{}, fmt.Errorf("yahoo chart API returned non-OK status %d", resp.StatusCode)
	}

	var chart yahooChartResponse
	if err := json.NewDecoder(resp.Body).Decode(&chart); err != nil {
		return models.Quote{}, fmt.Errorf("failed to decode Yahoo chart response: %w", err)
	}
	if chart.Chart.Error != nil {
		return models.Quote{}, fmt.Errorf("yahoo chart API returned an error: %v", chart.Chart.Error)
	}
	if len(chart.Chart.Result) == 0 || !chart.Chart.Result[0].Meta.RegularMarketPrice.IsPositive() {
		return models.Quote{}, errNoPriceData
	}

	meta := chart.Chart.Result[0].Meta
	price := meta.RegularMarketPrice
	prev := meta.PreviousClose
	if !prev.IsPositive() {
		prev = meta.ChartPreviousClose
	}

	q := models.Quote{
		Symbol:         r.Symbol,
		ProviderSymbol: r.ProviderSymbol,
		Status:         models.QuoteOK,
		Price:          price.Round(2),
		PreviousClose:  prev,
		Currency:       r.Currency,
		AsOf:           s.now().UTC(),
	}
	if meta.RegularMarketTime > 0 {
		q.AsOf = time.Unix(meta.RegularMarketTime, 0).UTC()
	}
	if ccy := strings.ToUpper(meta.Currency); ccy != "" {
		q.Currency = ccy
	}
	if prev.IsPositive() {
		change := price.Sub(prev)
		q.Change = change.Round(2)
		q.ChangePercent = change.Div(prev).Mul(decimal.NewFromInt(100)).Round(2)
	}
	return q, nil
}

func (s *QuoteService) currentCrumb() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.crumb
}

func (s *QuoteService) resetSession() {
	s.mu.Lock()
	s.initialized = false
	s.crumb = ""
	s.mu.Unlock()
}

// ensureSession collects Yahoo cookies and a crumb once. Failure is not fatal: requests go out without a crumb.
func (s *QuoteService) ensureSession(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.initialized {
		return
	}
	s.initialized = true

	for _, u := range s.cfg.SessionURLs {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
		if err != nil {
			continue
		}
		req.Header.Set("User-Agent", userAgent)
		if resp, err := s.client.Do(req); err == nil {
			io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.cfg.BaseURL+"/v1/test/getcrumb", nil)
	if err != nil {
		return
	}
	req.Header.Set("User-Agent", userAgent)
	resp, err := s.client.Do(req)
	if err != nil {
		logger.FromContext(ctx).Warn("Failed to fetch crumb", "error", err)
		return
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		logger.FromContext(ctx).Warn("Failed to fetch crumb", "status", resp.Status)
		return
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, 256))
	if err != nil {
		return
	}
	s.crumb = strings.TrimSpace(string(body))
	logger.FromContext(ctx).Info("Yahoo session initialized")
}
