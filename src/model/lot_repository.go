package model

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/username/stockfolio/backend/src/logger"
	"github.com/username/stockfolio/backend/src/models"
)

// ErrNotFound is returned when a lot does not exist or belongs to another user.
var ErrNotFound = errors.New("not found")

// LotStatus selects open, closed or all lots.
type LotStatus string

const (
	StatusOpen   LotStatus = "open"
	StatusClosed LotStatus = "closed"
	StatusAll    LotStatus = "all"
)

// ParseLotStatus accepts an empty string as StatusOpen.
func ParseLotStatus(s string) (LotStatus, error) {
	switch LotStatus(strings.ToLower(strings.TrimSpace(s))) {
	case "", StatusOpen:
		return StatusOpen, nil
	case StatusClosed:
		return StatusClosed, nil
	case StatusAll:
		return StatusAll, nil
	default:
		return "", fmt.Errorf("unknown lot status %q", s)
	}
}

// LotFilter narrows List. A zero filter lists open lots.
type LotFilter struct {
	Status LotStatus
	Symbol string
}

// LotRepository is the sqlite Position Store: lots plus their buy/sell history.
type LotRepository struct {
	db  *sql.DB
	now func() time.Time
}

func NewLotRepository(db *sql.DB) *LotRepository {
	return &LotRepository{db: db, now: time.Now}
}

// queryer is satisfied by both *sql.DB and *sql.Tx.
type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

const lotColumns = `id, user_id, symbol, quantity, buy_price, buy_date, commission_pct, service_charge,
	currency, sell_price, sell_date, notes, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanLot(row rowScanner) (models.Lot, error) {
	var (
		l                    models.Lot
		sellPrice            decimal.NullDecimal
		sellDate             models.Date
		createdAt, updatedAt string
	)
	err := row.Scan(&l.ID, &l.UserID, &l.Symbol, &l.Quantity, &l.BuyPrice, &l.BuyDate,
		&l.CommissionPct, &l.ServiceCharge, &l.Currency, &sellPrice, &sellDate, &l.Notes,
		&createdAt, &updatedAt)
	if err != nil {
		return models.Lot{}, err
	}
	if sellPrice.Valid {
		p := sellPrice.Decimal
		l.SellPrice = &p
	}
	if !sellDate.IsZero() {
		l.SellDate = &sellDate
	}
	l.CreatedAt = parseTimestamp(createdAt)
	l.UpdatedAt = parseTimestamp(updatedAt)
	return l, nil
}

func formatTimestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTimestamp(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

func nullableDecimal(d *decimal.Decimal) any {
	if d == nil {
		return nil
	}
	return d.String()
}

func nullableDate(d *models.Date) any {
	if d == nil || d.IsZero() {
		return nil
	}
	return d.String()
}

// List returns the user's lots ordered by buy date, oldest first.
func (r *LotRepository) List(ctx context.Context, userID string, f LotFilter) ([]models.Lot, error) {
	query := `SELECT ` + lotColumns + ` FROM lots WHERE user_id = ?`
	args := []any{userID}

	switch f.Status {
	case StatusClosed:
		query += ` AND sell_date IS NOT NULL`
	case StatusAll:
	default:
		query += ` AND sell_date IS NULL`
	}
	if f.Symbol != "" {
		query += ` AND symbol = ?`
		args = append(args, strings.ToUpper(strings.TrimSpace(f.Symbol)))
	}
	query += ` ORDER BY buy_date ASC, created_at ASC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing lots: %w", err)
	}
	defer rows.Close()

	lots := []models.Lot{}
	for rows.Next() {
		l, err := scanLot(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning lot: %w", err)
		}
		lots = append(lots, l)
	}
	return lots, rows.Err()
}

// Get returns a lot of the user, or ErrNotFound.
func (r *LotRepository) Get(ctx context.Context, userID, id string) (models.Lot, error) {
	return getLot(ctx, r.db, userID, id)
}

func getLot(ctx context.Context, q queryer, userID, id string) (models.Lot, error) {
	row := q.QueryRowContext(ctx, `SELECT `+lotColumns+` FROM lots WHERE id = ? AND user_id = ?`, id, userID)
	l, err := scanLot(row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Lot{}, fmt.Errorf("lot %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return models.Lot{}, fmt.Errorf("loading lot %s: %w", id, err)
	}
	return l, nil
}

// Create stores a new lot and returns it with its assigned ID and timestamps.
func (r *LotRepository) Create(ctx context.Context, l models.Lot) (models.Lot, error) {
	return insertLot(ctx, r.db, l, r.now())
}

func insertLot(ctx context.Context, q queryer, l models.Lot, now time.Time) (models.Lot, error) {
	if l.ID == "" {
		l.ID = uuid.NewString()
	}
	l.CreatedAt = now.UTC()
	l.UpdatedAt = l.CreatedAt

	_, err := q.ExecContext(ctx, `INSERT INTO lots (`+lotColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		l.ID, l.UserID, l.Symbol, l.Quantity.String(), l.BuyPrice.String(), l.BuyDate,
		l.CommissionPct.String(), l.ServiceCharge.String(), l.Currency,
		nullableDecimal(l.SellPrice), nullableDate(l.SellDate), l.Notes,
		formatTimestamp(l.CreatedAt), formatTimestamp(l.UpdatedAt))
	if err != nil {
		return models.Lot{}, fmt.Errorf("inserting lot: %w", err)
	}
	return l, nil
}

// updateLot overwrites every mutable column of an existing lot.
func updateLot(ctx context.Context, q queryer, l models.Lot, now time.Time) (models.Lot, error) {
	l.UpdatedAt = now.UTC()
	res, err := q.ExecContext(ctx, `UPDATE lots SET symbol = ?, quantity = ?, buy_price = ?, buy_date = ?,
		commission_pct = ?, service_charge = ?, currency = ?, sell_price = ?, sell_date = ?, notes = ?, updated_at = ?
		WHERE id = ? AND user_id = ?`,
		l.Symbol, l.Quantity.String(), l.BuyPrice.String(), l.BuyDate,
		l.CommissionPct.String(), l.ServiceCharge.String(), l.Currency,
		nullableDecimal(l.SellPrice), nullableDate(l.SellDate), l.Notes, formatTimestamp(l.UpdatedAt),
		l.ID, l.UserID)
	if err != nil {
		return models.Lot{}, fmt.Errorf("updating lot %s: %w", l.ID, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return models.Lot{}, fmt.Errorf("lot %s: %w", l.ID, ErrNotFound)
	}
	return l, nil
}

// Update applies a partial patch to a lot and returns the stored result. Fields the patch
// leaves nil keep their stored value; read and write happen in one transaction.
func (r *LotRepository) Update(ctx context.Context, userID, id string, p models.LotPatch) (models.Lot, error) {
	var out models.Lot
	err := r.inTx(ctx, func(q queryer, now time.Time) error {
		current, err := getLot(ctx, q, userID, id)
		if err != nil {
			return err
		}
		if p.IsEmpty() {
			out = current
			return nil
		}
		out, err = updateLot(ctx, q, p.Apply(current), now)
		return err
	})
	if err != nil {
		return models.Lot{}, err
	}
	return out, nil
}

// Delete removes a lot. Its history stays with a NULL lot reference.
func (r *LotRepository) Delete(ctx context.Context, userID, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM lots WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("deleting lot %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("deleting lot %s: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("lot %s: %w", id, ErrNotFound)
	}
	return nil
}

// CreateWithTransaction stores a lot and its BUY record atomically.
func (r *LotRepository) CreateWithTransaction(ctx context.Context, l models.Lot, tx models.Transaction) (models.Lot, models.Transaction, error) {
	var (
		created  models.Lot
		recorded models.Transaction
	)
	err := r.inTx(ctx, func(q queryer, now time.Time) error {
		var err error
		if created, err = insertLot(ctx, q, l, now); err != nil {
			return err
		}
		tx.LotID = created.ID
		tx.UserID = created.UserID
		recorded, err = insertTransaction(ctx, q, tx, now)
		return err
	})
	if err != nil {
		return models.Lot{}, models.Transaction{}, err
	}
	return created, recorded, nil
}

// SaleRecord is the persisted outcome of a sale.
type SaleRecord struct {
	UpdatedOpenLot *models.Lot        `json:"updated_open_lot,omitempty"`
	ClosedLot      models.Lot         `json:"closed_lot"`
	Transaction    models.Transaction `json:"transaction"`
}

// ApplySale writes the result of a sell in one sql transaction: the reduced open lot (partial sale),
// the closed lot (updated in place on full sale, inserted on a split) and the SELL record.
// The source lot must still be open and unchanged since the sale was resolved against it,
// otherwise ErrLotAlreadyClosed or ErrLotChanged is returned and nothing is written.
func (r *LotRepository) ApplySale(ctx context.Context, userID string, updatedOpen *models.Lot, closed models.Lot, sell models.Transaction) (SaleRecord, error) {
	var rec SaleRecord
	sourceID := closed.ID
	if updatedOpen != nil {
		sourceID = updatedOpen.ID
	}

	err := r.inTx(ctx, func(q queryer, now time.Time) error {
		source, err := getLot(ctx, q, userID, sourceID)
		if err != nil {
			return err
		}
		if source.IsClosed() {
			return fmt.Errorf("lot %s: %w", sourceID, ErrLotAlreadyClosed)
		}
		if !resolvedAgainst(source, updatedOpen, closed) {
			return fmt.Errorf("lot %s: %w", sourceID, ErrLotChanged)
		}

		if updatedOpen != nil {
			open, err := updateLot(ctx, q, *updatedOpen, now)
			if err != nil {
				return err
			}
			rec.UpdatedOpenLot = &open
			closed.ID = ""
			if rec.ClosedLot, err = insertLot(ctx, q, closed, now); err != nil {
				return err
			}
		} else {
			if rec.ClosedLot, err = updateLot(ctx, q, closed, now); err != nil {
				return err
			}
			rec.ClosedLot.CreatedAt = source.CreatedAt
		}

		sell.UserID = userID
		sell.LotID = sourceID
		rec.Transaction, err = insertTransaction(ctx, q, sell, now)
		return err
	})
	if err != nil {
		return SaleRecord{}, err
	}
	return rec, nil
}

var (
	// ErrLotAlreadyClosed is returned by ApplySale when the lot was sold concurrently.
	ErrLotAlreadyClosed = errors.New("lot is already closed")
	// ErrLotChanged is returned by ApplySale when the stored lot no longer matches the sale's inputs.
	ErrLotChanged = errors.New("lot changed since it was read")
)

// resolvedAgainst reports whether source is the lot the sale was computed from: the sold and
// remaining quantities add up to what is stored and the buy terms are the same.
func resolvedAgainst(source models.Lot, updatedOpen *models.Lot, closed models.Lot) bool {
	held := closed.Quantity
	if updatedOpen != nil {
		held = held.Add(updatedOpen.Quantity)
	}
	return source.Quantity.Equal(held) &&
		source.Symbol == closed.Symbol &&
		source.Currency == closed.Currency &&
		source.BuyPrice.Equal(closed.BuyPrice) &&
		source.BuyDate.Equal(closed.BuyDate.Time) &&
		source.CommissionPct.Equal(closed.CommissionPct) &&
		source.ServiceCharge.Equal(closed.ServiceCharge)
}

// OpenSymbols lists the distinct symbols of open lots across all users.
func (r *LotRepository) OpenSymbols(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT DISTINCT symbol FROM lots WHERE sell_date IS NULL ORDER BY symbol`)
	if err != nil {
		return nil, fmt.Errorf("listing open symbols: %w", err)
	}
	defer rows.Close()

	var symbols []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		symbols = append(symbols, s)
	}
	return symbols, rows.Err()
}

func (r *LotRepository) inTx(ctx context.Context, fn func(q queryer, now time.Time) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	if err := fn(tx, r.now()); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			logger.FromContext(ctx).Error("Rollback failed", "error", rbErr)
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}
