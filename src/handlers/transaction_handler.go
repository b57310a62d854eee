// backend/src/handlers/transaction_handler.go
package handlers

import (
	"net/http"

	"github.com/username/stockfolio/backend/src/models"
	"github.com/username/stockfolio/backend/src/services"
	"github.com/username/stockfolio/backend/src/utils"
)

type TransactionHandler struct {
	portfolio services.Portfolio
}

func NewTransactionHandler(portfolio services.Portfolio) *TransactionHandler {
	return &TransactionHandler{portfolio: portfolio}
}

// HandleGetTransactions returns the user's BUY/SELL history, newest first.
func (h *TransactionHandler) HandleGetTransactions(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}
	txs, err := h.portfolio.Transactions(r.Context(), userID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if txs == nil {
		txs = []models.Transaction{}
	}
	utils.WriteJSON(w, http.StatusOK, txs)
}
