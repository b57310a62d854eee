// backend/src/handlers/stock_handler.go
package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/username/stockfolio/backend/src/logger"
	"github.com/username/stockfolio/backend/src/model"
	"github.com/username/stockfolio/backend/src/models"
	"github.com/username/stockfolio/backend/src/processors"
	"github.com/username/stockfolio/backend/src/services"
	"github.com/username/stockfolio/backend/src/utils"
)

type StockHandler struct {
	portfolio services.Portfolio
}

func NewStockHandler(portfolio services.Portfolio) *StockHandler {
	return &StockHandler{portfolio: portfolio}
}

// Routes mounts the lot endpoints under the caller's router.
func (h *StockHandler) Routes(r chi.Router) {
	r.Get("/", h.HandleListStocks)
	r.Post("/", h.HandleCreateStock)
	r.Get("/{id}", h.HandleGetStock)
	r.Put("/{id}", h.HandleUpdateStock)
	r.Delete("/{id}", h.HandleDeleteStock)
	r.Post("/{id}/sell", h.HandleSellStock)
}

func (h *StockHandler) HandleListStocks(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}
	status, err := model.ParseLotStatus(r.URL.Query().Get("status"))
	if err != nil {
		utils.SendJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}
	filter := model.LotFilter{Status: status}
	if symbol := r.URL.Query().Get("symbol"); symbol != "" {
		filter.Symbol = processors.NormalizeSymbol(symbol)
	}

	lots, err := h.portfolio.ListLots(r.Context(), userID, filter)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if lots == nil {
		lots = []models.Lot{}
	}
	utils.WriteJSON(w, http.StatusOK, lots)
}

func (h *StockHandler) HandleCreateStock(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}
	var in models.LotInput
	if err := decodeJSON(r, &in); err != nil {
		writeServiceError(w, r, err)
		return
	}

	lot, err := h.portfolio.CreateLot(r.Context(), userID, in)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusCreated, lot)
}

func (h *StockHandler) HandleGetStock(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}
	lot, err := h.portfolio.GetLot(r.Context(), userID, chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, lot)
}

func (h *StockHandler) HandleUpdateStock(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}
	var patch models.LotPatch
	if err := decodeJSON(r, &patch); err != nil {
		writeServiceError(w, r, err)
		return
	}

	lot, err := h.portfolio.UpdateLot(r.Context(), userID, chi.URLParam(r, "id"), patch)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, lot)
}

func (h *StockHandler) HandleDeleteStock(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}
	id := chi.URLParam(r, "id")
	if err := h.portfolio.DeleteLot(r.Context(), userID, id); err != nil {
		writeServiceError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, map[string]string{"message": "Lot deleted", "id": id})
}

func (h *StockHandler) HandleSellStock(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}
	var req models.SellRequest
	if err := decodeJSON(r, &req); err != nil {
		writeServiceError(w, r, err)
		return
	}

	id := chi.URLParam(r, "id")
	rec, err := h.portfolio.Sell(r.Context(), userID, id, req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	logger.FromContext(r.Context()).Debug("Sale recorded", "lotID", id, "closedLotID", rec.ClosedLot.ID)
	utils.WriteJSON(w, http.StatusOK, rec)
}
