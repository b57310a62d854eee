package processors

import (
	"strings"

	"github.com/username/stockfolio/backend/src/models"
)

const (
	CurrencyUSD = "USD"
	CurrencyINR = "INR"

	// defaultSuffix is appended to allow-listed Indian instruments (NSE listing).
	defaultSuffix = ".NS"
)

// regionalSuffixes maps exchange suffixes understood by the quote provider to their currency.
var regionalSuffixes = map[string]string{
	".NS": CurrencyINR, // National Stock Exchange of India
	".BO": CurrencyINR, // Bombay Stock Exchange
}

// indianInstruments are bare symbols that are known to trade on NSE.
var indianInstruments = map[string]bool{
	"RELIANCE":   true,
	"TCS":        true,
	"INFY":       true,
	"HDFCBANK":   true,
	"ICICIBANK":  true,
	"SBIN":       true,
	"ITC":        true,
	"HINDUNILVR": true,
	"BHARTIARTL": true,
	"KOTAKBANK":  true,
	"LT":         true,
	"WIPRO":      true,
	"ADANIPORTS": true,
	"ASIANPAINT": true,
	"AXISBANK":   true,
	"BAJFINANCE": true,
	"MARUTI":     true,
	"SUNPHARMA":  true,
	"TATASTEEL":  true,
}

// ResolvedSymbol is a symbol in canonical form plus what the quote provider needs to price it.
type ResolvedSymbol struct {
	Symbol         string `json:"symbol"`
	ProviderSymbol string `json:"provider_symbol"`
	Currency       string `json:"currency"`
}

// NormalizeSymbol upper-cases and trims a raw symbol.
func NormalizeSymbol(raw string) string {
	return strings.ToUpper(strings.TrimSpace(raw))
}

// ResolveSymbol maps a raw symbol to its provider symbol and currency. Unknown symbols default to USD.
func ResolveSymbol(raw string) ResolvedSymbol {
	symbol := NormalizeSymbol(raw)
	if ccy, ok := suffixCurrency(symbol); ok {
		return ResolvedSymbol{Symbol: symbol, ProviderSymbol: symbol, Currency: ccy}
	}
	if indianInstruments[symbol] {
		return ResolvedSymbol{Symbol: symbol, ProviderSymbol: symbol + defaultSuffix, Currency: CurrencyINR}
	}
	return ResolvedSymbol{Symbol: symbol, ProviderSymbol: symbol, Currency: CurrencyUSD}
}

func suffixCurrency(symbol string) (string, bool) {
	for suffix, ccy := range regionalSuffixes {
		if strings.HasSuffix(symbol, suffix) {
			return ccy, true
		}
	}
	return "", false
}

// LotCurrency returns the stored currency of a lot, inferring it from the symbol when absent.
func LotCurrency(l models.Lot) string {
	if ccy := strings.ToUpper(strings.TrimSpace(l.Currency)); ccy != "" {
		return ccy
	}
	return ResolveSymbol(l.Symbol).Currency
}
