package model

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/username/stockfolio/backend/src/models"
)

func insertTransaction(ctx context.Context, q queryer, t models.Transaction, now time.Time) (models.Transaction, error) {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	t.CreatedAt = now.UTC()

	var lotID any
	if t.LotID != "" {
		lotID = t.LotID
	}
	_, err := q.ExecContext(ctx, `
		INSERT INTO transactions (id, user_id, lot_id, kind, symbol, quantity, price, commission_pct, date, notes, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.UserID, lotID, string(t.Kind), t.Symbol, t.Quantity.String(), t.Price.String(),
		t.CommissionPct.String(), t.Date, t.Notes, formatTimestamp(t.CreatedAt))
	if err != nil {
		return models.Transaction{}, fmt.Errorf("inserting %s transaction: %w", t.Kind, err)
	}
	return t, nil
}

// ListTransactions returns the user's buy/sell history, most recent first.
func (r *LotRepository) ListTransactions(ctx context.Context, userID string) ([]models.Transaction, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, user_id, lot_id, kind, symbol, quantity, price, commission_pct, date, notes, created_at
		FROM transactions WHERE user_id = ? ORDER BY date DESC, created_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("listing transactions: %w", err)
	}
	defer rows.Close()

	txs := []models.Transaction{}
	for rows.Next() {
		var (
			t         models.Transaction
			lotID     sql.NullString
			kind      string
			createdAt string
		)
		if err := rows.Scan(&t.ID, &t.UserID, &lotID, &kind, &t.Symbol, &t.Quantity, &t.Price,
			&t.CommissionPct, &t.Date, &t.Notes, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning transaction: %w", err)
		}
		t.LotID = lotID.String
		t.Kind = models.TransactionKind(kind)
		t.CreatedAt = parseTimestamp(createdAt)
		txs = append(txs, t)
	}
	return txs, rows.Err()
}
