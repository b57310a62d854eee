package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/shopspring/decimal"
	"github.com/username/stockfolio/backend/src/logger"
	"github.com/username/stockfolio/backend/src/models"
)

const (
	defaultECBURL = "https://data-api.ecb.europa.eu/service/data/EXR"
	ecbBase       = "EUR"
	lookBackDays  = 7
)

type ecbResponse struct {
	DataSets []struct {
		Series map[string]struct {
			Observations map[string][]decimal.Decimal `json:"observations"`
		} `json:"series"`
	} `json:"dataSets"`
}

// ExchangeService reads ECB reference rates. Rates are quoted as units of currency per EUR.
type ExchangeService struct {
	baseURL string
	client  *http.Client
	cache   *cache.Cache
}

func NewExchangeService(baseURL string, timeout time.Duration) *ExchangeService {
	if baseURL == "" {
		baseURL = defaultECBURL
	}
	return &ExchangeService{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
		cache:   cache.New(24*time.Hour, 48*time.Hour),
	}
}

// Rate returns how many units of currency one EUR buys on the given day, looking back
// over weekends and holidays for up to a week.
func (s *ExchangeService) Rate(ctx context.Context, currency string, on time.Time) (decimal.Decimal, error) {
	currency = strings.ToUpper(strings.TrimSpace(currency))
	if currency == ecbBase {
		return decimal.NewFromInt(1), nil
	}

	day := models.NewDate(on)
	cacheKey := fmt.Sprintf("rate-%s-%s", currency, day)
	if rate, found := s.cache.Get(cacheKey); found {
		return rate.(decimal.Decimal), nil
	}

	for i := 0; i < lookBackDays; i++ {
		queryDate := models.NewDate(day.AddDate(0, 0, -i))
		rate, ok, err := s.fetchRate(ctx, currency, queryDate)
		if err != nil {
			if ctx.Err() != nil {
				return decimal.Zero, ctx.Err()
			}
			logger.FromContext(ctx).Warn("ECB rate lookup failed", "currency", currency, "date", queryDate.String(), "error", err)
			continue
		}
		if !ok {
			continue
		}
		s.cache.Set(cacheKey, rate, cache.DefaultExpiration)
		return rate, nil
	}
	return decimal.Zero, fmt.Errorf("%w: %s on or before %s", ErrRateUnavailable, currency, day)
}

// fetchRate reports ok=false when the ECB has no observation for the day.
func (s *ExchangeService) fetchRate(ctx context.Context, currency string, day models.Date) (decimal.Decimal, bool, error) {
	dateStr := day.String()
	url := fmt.Sprintf("%s/D.%s.EUR.SP00.A?startPeriod=%s&endPeriod=%s&format=jsondata", s.baseURL, currency, dateStr, dateStr)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return decimal.Zero, false, err
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return decimal.Zero, false, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return decimal.Zero, false, nil
	}
	if resp.StatusCode != http.StatusOK {
		return decimal.Zero, false, fmt.Errorf("ECB API returned status %s", resp.Status)
	}

	var data ecbResponse
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return decimal.Zero, false, fmt.Errorf("failed to decode ECB response: %w", err)
	}
	rate, ok := extractRate(data)
	return rate, ok, nil
}

func extractRate(data ecbResponse) (decimal.Decimal, bool) {
	if len(data.DataSets) == 0 {
		return decimal.Zero, false
	}
	for _, series := range data.DataSets[0].Series {
		if obs, ok := series.Observations["0"]; ok && len(obs) > 0 && obs[0].IsPositive() {
			return obs[0], true
		}
	}
	return decimal.Zero, false
}

// Convert converts amount from one currency to another through EUR.
func (s *ExchangeService) Convert(ctx context.Context, amount decimal.Decimal, from, to string, on time.Time) (decimal.Decimal, error) {
	from = strings.ToUpper(strings.TrimSpace(from))
	to = strings.ToUpper(strings.TrimSpace(to))
	if from == to {
		return amount, nil
	}
	fromRate, err := s.Rate(ctx, from, on)
	if err != nil {
		return decimal.Zero, err
	}
	toRate, err := s.Rate(ctx, to, on)
	if err != nil {
		return decimal.Zero, err
	}
	return amount.Div(fromRate).Mul(toRate), nil
}
