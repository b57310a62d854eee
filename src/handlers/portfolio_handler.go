// backend/src/handlers/portfolio_handler.go
package handlers

import (
	"net/http"

	"github.com/username/stockfolio/backend/src/processors"
	"github.com/username/stockfolio/backend/src/services"
	"github.com/username/stockfolio/backend/src/utils"
)

type PortfolioHandler struct {
	portfolio services.Portfolio
}

func NewPortfolioHandler(portfolio services.Portfolio) *PortfolioHandler {
	return &PortfolioHandler{portfolio: portfolio}
}

// bucketDisplay holds human readable figures of one currency bucket.
type bucketDisplay struct {
	Invested     string `json:"total_invested"`
	CurrentValue string `json:"current_value"`
	UnrealizedPL string `json:"unrealized_pl"`
	RealizedPL   string `json:"realized_pl"`
	TotalPL      string `json:"total_pl"`
}

type summaryResponse struct {
	services.PortfolioSummary
	Display map[string]bucketDisplay `json:"display"`
}

func displayTotals(t processors.Totals, currency string) bucketDisplay {
	return bucketDisplay{
		Invested:     utils.FormatAmount(t.Invested, currency),
		CurrentValue: utils.FormatAmount(t.CurrentValue, currency),
		UnrealizedPL: utils.FormatAmount(t.UnrealizedPL, currency),
		RealizedPL:   utils.FormatAmount(t.RealizedPL, currency),
		TotalPL:      utils.FormatAmount(t.TotalPL, currency),
	}
}

func (h *PortfolioHandler) HandleGetSummary(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}
	summary, err := h.portfolio.Summary(r.Context(), userID, r.URL.Query().Get("base"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	resp := summaryResponse{PortfolioSummary: summary, Display: make(map[string]bucketDisplay, len(summary.Buckets))}
	for _, b := range summary.Buckets {
		resp.Display[b.Currency] = displayTotals(b.Totals, b.Currency)
	}
	if summary.Converted != nil {
		resp.Display["converted"] = displayTotals(summary.Converted.Totals, summary.Converted.Currency)
	}
	if resp.Buckets == nil {
		resp.Buckets = []processors.CurrencyBucket{}
	}
	if resp.Holdings == nil {
		resp.Holdings = []processors.Holding{}
	}
	if resp.Sales == nil {
		resp.Sales = []processors.Sale{}
	}
	utils.WriteJSON(w, http.StatusOK, resp)
}

func (h *PortfolioHandler) HandleGetBreakdown(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}
	breakdown, err := h.portfolio.Breakdown(r.Context(), userID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if breakdown == nil {
		breakdown = []processors.SymbolBreakdown{}
	}
	utils.WriteJSON(w, http.StatusOK, breakdown)
}
