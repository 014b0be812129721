package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/bro-Nik/portfolio-backend/internal/app/domain/portfolio"
	"github.com/bro-Nik/portfolio-backend/internal/app/domain/wallet"
	"github.com/bro-Nik/portfolio-backend/internal/app/storage"
)

func newStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return New(sqlx.NewDb(db, "sqlmock")), mock
}

func TestCreatePortfolioInsertsRow(t *testing.T) {
	store, mock := newStore(t)

	mock.ExpectExec("INSERT INTO portfolios").
		WithArgs(sqlmock.AnyArg(), "u1", "Main", "crypto", "", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	p, err := store.CreatePortfolio(context.Background(), portfolio.Portfolio{
		UserID: "u1",
		Name:   "Main",
		Market: "crypto",
	})
	require.NoError(t, err)
	require.NotEmpty(t, p.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetPortfolioNotFound(t *testing.T) {
	store, mock := newStore(t)

	mock.ExpectQuery("SELECT (.+) FROM portfolios").
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := store.GetPortfolio(context.Background(), "missing")
	require.ErrorIs(t, err, storage.ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdatePortfolioNotFound(t *testing.T) {
	store, mock := newStore(t)

	mock.ExpectExec("UPDATE portfolios").
		WithArgs("missing", "Main", "", "", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))

	_, err := store.UpdatePortfolio(context.Background(), portfolio.Portfolio{ID: "missing", Name: "Main"})
	require.ErrorIs(t, err, storage.ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestApplyPortfolioAssetDeltaUpserts(t *testing.T) {
	store, mock := newStore(t)
	now := time.Now().UTC()

	rows := sqlmock.NewRows([]string{
		"id", "portfolio_id", "ticker_id", "quantity", "amount",
		"buy_orders", "sell_orders", "comment", "created_at", "updated_at",
	}).AddRow("a1", "p1", "btc", "3.5", "150", "0", "0", "", now, now)

	mock.ExpectQuery("INSERT INTO portfolio_assets (.+) ON CONFLICT").
		WillReturnRows(rows)

	a, err := store.ApplyPortfolioAssetDelta(context.Background(), "p1", "btc", portfolio.AssetDelta{
		Quantity: decimal.NewFromFloat(1.5),
		Amount:   decimal.NewFromInt(50),
	})
	require.NoError(t, err)
	require.True(t, a.Quantity.Equal(decimal.NewFromFloat(3.5)))
	require.True(t, a.Amount.Equal(decimal.NewFromInt(150)))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestApplyWalletAssetDeltaUpserts(t *testing.T) {
	store, mock := newStore(t)
	now := time.Now().UTC()

	rows := sqlmock.NewRows([]string{
		"id", "wallet_id", "ticker_id", "quantity", "buy_orders", "sell_orders", "created_at", "updated_at",
	}).AddRow("a1", "w1", "eth", "10", "0", "0", now, now)

	mock.ExpectQuery("INSERT INTO wallet_assets (.+) ON CONFLICT").
		WillReturnRows(rows)

	a, err := store.ApplyWalletAssetDelta(context.Background(), "w1", "eth", wallet.AssetDelta{
		Quantity: decimal.NewFromInt(10),
	})
	require.NoError(t, err)
	require.True(t, a.Quantity.Equal(decimal.NewFromInt(10)))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteTransactionNotFound(t *testing.T) {
	store, mock := newStore(t)

	mock.ExpectExec("DELETE FROM transactions").
		WithArgs("missing").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := store.DeleteTransaction(context.Background(), "missing")
	require.ErrorIs(t, err, storage.ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestListUsedTickers(t *testing.T) {
	store, mock := newStore(t)

	mock.ExpectQuery("SELECT DISTINCT ticker_id").
		WillReturnRows(sqlmock.NewRows([]string{"ticker_id"}).AddRow("btc").AddRow("eth"))

	tickers, err := store.ListUsedTickers(context.Background())
	require.NoError(t, err)
	require.Equal(t, []string{"btc", "eth"}, tickers)
	require.NoError(t, mock.ExpectationsWereMet())
}
