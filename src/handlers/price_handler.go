package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/username/stockfolio/backend/src/logger"
	"github.com/username/stockfolio/backend/src/models"
	"github.com/username/stockfolio/backend/src/services"
	"github.com/username/stockfolio/backend/src/utils"
)

const maxPriceSymbols = 50

type PriceHandler struct {
	quotes services.QuoteProvider
}

func NewPriceHandler(quotes services.QuoteProvider) *PriceHandler {
	return &PriceHandler{quotes: quotes}
}

type priceEntry struct {
	Price         decimal.Decimal    `json:"price"`
	Currency      string             `json:"currency"`
	Change        decimal.Decimal    `json:"change"`
	ChangePercent decimal.Decimal    `json:"changePercent"`
	Status        models.QuoteStatus `json:"status"`
	AsOf          *time.Time         `json:"as_of,omitempty"`
	Error         string             `json:"error,omitempty"`
}

type priceMetadata struct {
	Timestamp      time.Time `json:"timestamp"`
	Source         string    `json:"source"`
	SuccessCount   int       `json:"success_count"`
	ErrorCount     int       `json:"error_count"`
	TotalRequested int       `json:"total_requested"`
}

// HandleGetPrices serves GET /api/prices?symbols=A,B. The body maps each symbol to its quote,
// plus a "_metadata" entry describing the fetch.
func (h *PriceHandler) HandleGetPrices(w http.ResponseWriter, r *http.Request) {
	var symbols []string
	for _, s := range strings.Split(r.URL.Query().Get("symbols"), ",") {
		if s = strings.TrimSpace(s); s != "" {
			symbols = append(symbols, s)
		}
	}
	if len(symbols) == 0 {
		utils.SendJSONError(w, "symbols query parameter is required", http.StatusBadRequest)
		return
	}
	if len(symbols) > maxPriceSymbols {
		utils.SendJSONError(w, "too many symbols requested", http.StatusBadRequest)
		return
	}

	batch := h.quotes.Fetch(r.Context(), symbols)

	body := make(map[string]any, len(batch.Quotes)+1)
	for symbol, q := range batch.Quotes {
		entry := priceEntry{
			Price:         q.Price,
			Currency:      q.Currency,
			Change:        q.Change,
			ChangePercent: q.ChangePercent,
			Status:        q.Status,
			Error:         q.Error,
		}
		if !q.AsOf.IsZero() {
			asOf := q.AsOf
			entry.AsOf = &asOf
		}
		body[symbol] = entry
	}
	body["_metadata"] = priceMetadata{
		Timestamp:      batch.FetchedAt,
		Source:         batch.Source,
		SuccessCount:   batch.SuccessCount,
		ErrorCount:     batch.ErrorCount,
		TotalRequested: len(batch.Quotes),
	}

	status := http.StatusOK
	if batch.SuccessCount == 0 {
		logger.FromContext(r.Context()).Warn("No quote could be fetched", "symbols", symbols)
		status = http.StatusBadGateway
	}
	utils.WriteJSON(w, status, body)
}
