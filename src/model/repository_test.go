package model

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/username/stockfolio/backend/src/database"
	"github.com/username/stockfolio/backend/src/models"
	"github.com/username/stockfolio/backend/src/processors"
)

func newTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := database.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	require.NoError(t, database.RunMigrations(db))
	t.Cleanup(func() { db.Close() })
	return db
}

func newTestLotRepo(t *testing.T) *LotRepository {
	repo := NewLotRepository(newTestDB(t))
	fixed := time.Date(2024, time.June, 1, 12, 0, 0, 0, time.UTC)
	repo.now = func() time.Time { return fixed }
	return repo
}

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func testLot(user, symbol string) models.Lot {
	return models.Lot{
		UserID:        user,
		Symbol:        symbol,
		Quantity:      d("100"),
		BuyPrice:      d("150.25"),
		BuyDate:       models.D(2024, time.March, 1),
		CommissionPct: d("0.5"),
		ServiceCharge: d("0"),
		Currency:      "USD",
		Notes:         "first buy",
	}
}

func TestLotRepositoryCRUD(t *testing.T) {
	ctx := context.Background()
	repo := newTestLotRepo(t)

	created, err := repo.Create(ctx, testLot("u1", "AAPL"))
	require.NoError(t, err)
	require.NotEmpty(t, created.ID)

	got, err := repo.Get(ctx, "u1", created.ID)
	require.NoError(t, err)
	assert.Equal(t, "AAPL", got.Symbol)
	assert.True(t, d("150.25").Equal(got.BuyPrice))
	assert.True(t, d("0.5").Equal(got.CommissionPct))
	assert.Equal(t, models.D(2024, time.March, 1), got.BuyDate)
	assert.Nil(t, got.SellPrice)
	assert.Nil(t, got.SellDate)
	assert.Equal(t, "first buy", got.Notes)
	assert.Equal(t, repo.now(), got.CreatedAt)

	_, err = repo.Get(ctx, "someone-else", created.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	qty := d("120")
	updated, err := repo.Update(ctx, "u1", created.ID, models.LotPatch{Quantity: &qty})
	require.NoError(t, err)
	assert.True(t, qty.Equal(updated.Quantity))
	assert.Equal(t, "first buy", updated.Notes)

	require.NoError(t, repo.Delete(ctx, "u1", created.ID))
	_, err = repo.Get(ctx, "u1", created.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, repo.Delete(ctx, "u1", created.ID), ErrNotFound)
}

func TestLotRepositoryListFilters(t *testing.T) {
	ctx := context.Background()
	repo := newTestLotRepo(t)

	open, err := repo.Create(ctx, testLot("u1", "AAPL"))
	require.NoError(t, err)

	closed := testLot("u1", "MSFT")
	price := d("200")
	on := models.D(2024, time.May, 1)
	closed.SellPrice = &price
	closed.SellDate = &on
	_, err = repo.Create(ctx, closed)
	require.NoError(t, err)

	_, err = repo.Create(ctx, testLot("u2", "AAPL"))
	require.NoError(t, err)

	lots, err := repo.List(ctx, "u1", LotFilter{})
	require.NoError(t, err)
	require.Len(t, lots, 1)
	assert.Equal(t, open.ID, lots[0].ID)

	lots, err = repo.List(ctx, "u1", LotFilter{Status: StatusClosed})
	require.NoError(t, err)
	require.Len(t, lots, 1)
	assert.True(t, lots[0].IsClosed())
	assert.True(t, price.Equal(*lots[0].SellPrice))
	assert.Equal(t, on, *lots[0].SellDate)

	lots, err = repo.List(ctx, "u1", LotFilter{Status: StatusAll})
	require.NoError(t, err)
	assert.Len(t, lots, 2)

	lots, err = repo.List(ctx, "u1", LotFilter{Status: StatusAll, Symbol: "msft"})
	require.NoError(t, err)
	assert.Len(t, lots, 1)

	symbols, err := repo.OpenSymbols(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"AAPL"}, symbols)
}

func TestParseLotStatus(t *testing.T) {
	s, err := ParseLotStatus("")
	require.NoError(t, err)
	assert.Equal(t, StatusOpen, s)

	s, err = ParseLotStatus("ALL")
	require.NoError(t, err)
	assert.Equal(t, StatusAll, s)

	_, err = ParseLotStatus("sold")
	assert.Error(t, err)
}

func TestCreateWithTransaction(t *testing.T) {
	ctx := context.Background()
	repo := newTestLotRepo(t)

	lot, tx, err := repo.CreateWithTransaction(ctx, testLot("u1", "AAPL"), models.Transaction{
		Kind:     models.TransactionBuy,
		Symbol:   "AAPL",
		Quantity: d("100"),
		Price:    d("150.25"),
		Date:     models.D(2024, time.March, 1),
	})
	require.NoError(t, err)
	assert.Equal(t, lot.ID, tx.LotID)
	assert.Equal(t, "u1", tx.UserID)

	txs, err := repo.ListTransactions(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, txs, 1)
	assert.Equal(t, models.TransactionBuy, txs[0].Kind)
	assert.Equal(t, lot.ID, txs[0].LotID)
}

func sellTx(qty, price string, on models.Date) models.Transaction {
	return models.Transaction{
		Kind:     models.TransactionSell,
		Symbol:   "AAPL",
		Quantity: d(qty),
		Price:    d(price),
		Date:     on,
	}
}

func TestApplySalePartial(t *testing.T) {
	ctx := context.Background()
	repo := newTestLotRepo(t)

	lot, err := repo.Create(ctx, testLot("u1", "AAPL"))
	require.NoError(t, err)

	on := models.D(2024, time.May, 2)
	price := d("190")
	remaining := lot
	remaining.Quantity = d("60")
	closed := lot
	closed.ID = ""
	closed.Quantity = d("40")
	closed.SellPrice = &price
	closed.SellDate = &on

	rec, err := repo.ApplySale(ctx, "u1", &remaining, closed, sellTx("40", "190", on))
	require.NoError(t, err)
	require.NotNil(t, rec.UpdatedOpenLot)
	assert.Equal(t, lot.ID, rec.UpdatedOpenLot.ID)
	assert.NotEmpty(t, rec.ClosedLot.ID)
	assert.NotEqual(t, lot.ID, rec.ClosedLot.ID)
	assert.Equal(t, lot.ID, rec.Transaction.LotID)

	open, err := repo.List(ctx, "u1", LotFilter{Status: StatusOpen})
	require.NoError(t, err)
	require.Len(t, open, 1)
	assert.True(t, d("60").Equal(open[0].Quantity))

	sold, err := repo.List(ctx, "u1", LotFilter{Status: StatusClosed})
	require.NoError(t, err)
	require.Len(t, sold, 1)
	assert.True(t, d("40").Equal(sold[0].Quantity))

	total := open[0].Quantity.Add(sold[0].Quantity)
	assert.True(t, d("100").Equal(total))
}

func TestApplySaleFullAndRepeat(t *testing.T) {
	ctx := context.Background()
	repo := newTestLotRepo(t)

	lot, err := repo.Create(ctx, testLot("u1", "AAPL"))
	require.NoError(t, err)

	on := models.D(2024, time.May, 2)
	price := d("190")
	closed := lot
	closed.SellPrice = &price
	closed.SellDate = &on

	rec, err := repo.ApplySale(ctx, "u1", nil, closed, sellTx("100", "190", on))
	require.NoError(t, err)
	assert.Nil(t, rec.UpdatedOpenLot)
	assert.Equal(t, lot.ID, rec.ClosedLot.ID)

	got, err := repo.Get(ctx, "u1", lot.ID)
	require.NoError(t, err)
	assert.True(t, got.IsClosed())

	_, err = repo.ApplySale(ctx, "u1", nil, closed, sellTx("100", "190", on))
	assert.ErrorIs(t, err, ErrLotAlreadyClosed)

	txs, err := repo.ListTransactions(ctx, "u1")
	require.NoError(t, err)
	assert.Len(t, txs, 1, "a rejected sale must not leave a record behind")
}

func TestApplySaleRejectsStaleRead(t *testing.T) {
	ctx := context.Background()
	repo := newTestLotRepo(t)

	lot, err := repo.Create(ctx, testLot("u1", "AAPL"))
	require.NoError(t, err)

	on := models.D(2024, time.May, 2)
	first, err := repo.Get(ctx, "u1", lot.ID)
	require.NoError(t, err)
	second, err := repo.Get(ctx, "u1", lot.ID)
	require.NoError(t, err)

	a, err := processors.ResolveSell(first, d("70"), d("190"), on)
	require.NoError(t, err)
	b, err := processors.ResolveSell(second, d("70"), d("190"), on)
	require.NoError(t, err)

	_, err = repo.ApplySale(ctx, "u1", a.UpdatedOpenLot, a.ClosedLot, a.Transaction)
	require.NoError(t, err)
	_, err = repo.ApplySale(ctx, "u1", b.UpdatedOpenLot, b.ClosedLot, b.Transaction)
	assert.ErrorIs(t, err, ErrLotChanged)

	open, err := repo.List(ctx, "u1", LotFilter{Status: StatusOpen})
	require.NoError(t, err)
	sold, err := repo.List(ctx, "u1", LotFilter{Status: StatusClosed})
	require.NoError(t, err)
	require.Len(t, open, 1)
	require.Len(t, sold, 1)
	assert.True(t, d("30").Equal(open[0].Quantity))
	assert.True(t, d("100").Equal(open[0].Quantity.Add(sold[0].Quantity)))

	txs, err := repo.ListTransactions(ctx, "u1")
	require.NoError(t, err)
	assert.Len(t, txs, 1)
}

func TestApplySaleRejectsLotEditedAfterRead(t *testing.T) {
	ctx := context.Background()
	repo := newTestLotRepo(t)

	lot, err := repo.Create(ctx, testLot("u1", "AAPL"))
	require.NoError(t, err)

	on := models.D(2024, time.May, 2)
	stale, err := processors.ResolveSell(lot, d("100"), d("190"), on)
	require.NoError(t, err)

	price := d("140")
	_, err = repo.Update(ctx, "u1", lot.ID, models.LotPatch{BuyPrice: &price})
	require.NoError(t, err)

	_, err = repo.ApplySale(ctx, "u1", stale.UpdatedOpenLot, stale.ClosedLot, stale.Transaction)
	assert.ErrorIs(t, err, ErrLotChanged)

	got, err := repo.Get(ctx, "u1", lot.ID)
	require.NoError(t, err)
	assert.False(t, got.IsClosed())
	assert.True(t, price.Equal(got.BuyPrice))
}

func TestApplySaleRollsBackOnMissingLot(t *testing.T) {
	ctx := context.Background()
	repo := newTestLotRepo(t)

	on := models.D(2024, time.May, 2)
	price := d("190")
	ghost := testLot("u1", "AAPL")
	ghost.ID = "missing"
	ghost.SellPrice = &price
	ghost.SellDate = &on

	_, err := repo.ApplySale(ctx, "u1", nil, ghost, sellTx("100", "190", on))
	assert.ErrorIs(t, err, ErrNotFound)

	txs, err := repo.ListTransactions(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, txs)
}

func TestDeleteKeepsHistory(t *testing.T) {
	ctx := context.Background()
	repo := newTestLotRepo(t)

	lot, _, err := repo.CreateWithTransaction(ctx, testLot("u1", "AAPL"), models.Transaction{
		Kind: models.TransactionBuy, Symbol: "AAPL", Quantity: d("100"), Price: d("150.25"),
		Date: models.D(2024, time.March, 1),
	})
	require.NoError(t, err)
	require.NoError(t, repo.Delete(ctx, "u1", lot.ID))

	txs, err := repo.ListTransactions(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, txs, 1)
	assert.Empty(t, txs[0].LotID)
}

func TestPriceRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewPriceRepository(newTestDB(t))

	latest, err := repo.GetLatestPrices(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, latest)

	require.NoError(t, repo.UpsertPrice(ctx, models.DailyPrice{Symbol: "AAPL", Date: models.D(2024, time.May, 1), Price: d("170"), Currency: "USD"}))
	require.NoError(t, repo.UpsertPrice(ctx, models.DailyPrice{Symbol: "AAPL", Date: models.D(2024, time.May, 2), Price: d("171"), Currency: "USD"}))
	require.NoError(t, repo.UpsertPrice(ctx, models.DailyPrice{Symbol: "AAPL", Date: models.D(2024, time.May, 2), Price: d("172.5"), Currency: "USD"}))
	require.NoError(t, repo.UpsertPrice(ctx, models.DailyPrice{Symbol: "TCS.NS", Date: models.D(2024, time.April, 30), Price: d("3800"), Currency: "INR"}))

	latest, err = repo.GetLatestPrices(ctx, []string{"AAPL", "TCS.NS", "NOPE"})
	require.NoError(t, err)
	require.Len(t, latest, 2)
	assert.True(t, d("172.5").Equal(latest["AAPL"].Price))
	assert.Equal(t, models.D(2024, time.May, 2), latest["AAPL"].Date)
	assert.Equal(t, "INR", latest["TCS.NS"].Currency)
}
