// Package postgres implements the storage interfaces backed by PostgreSQL.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/bro-Nik/portfolio-backend/internal/app/domain/portfolio"
	"github.com/bro-Nik/portfolio-backend/internal/app/domain/transaction"
	"github.com/bro-Nik/portfolio-backend/internal/app/domain/wallet"
	"github.com/bro-Nik/portfolio-backend/internal/app/storage"
)

// Store implements the storage interfaces backed by PostgreSQL.
type Store struct {
	db *sqlx.DB
}

var _ storage.PortfolioStore = (*Store)(nil)
var _ storage.WalletStore = (*Store)(nil)
var _ storage.TransactionStore = (*Store)(nil)

// New creates a Store using the provided database handle.
func New(db *sqlx.DB) *Store {
	return &Store{db: db}
}

// --- PortfolioStore ---------------------------------------------------------

func (s *Store) CreatePortfolio(ctx context.Context, p portfolio.Portfolio) (portfolio.Portfolio, error) {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	p.CreatedAt = now
	p.UpdatedAt = now

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO portfolios (id, user_id, name, market, comment, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, p.ID, p.UserID, p.Name, p.Market, p.Comment, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		return portfolio.Portfolio{}, err
	}
	return p, nil
}

func (s *Store) UpdatePortfolio(ctx context.Context, p portfolio.Portfolio) (portfolio.Portfolio, error) {
	p.UpdatedAt = time.Now().UTC()

	result, err := s.db.ExecContext(ctx, `
		UPDATE portfolios
		SET name = $2, market = $3, comment = $4, updated_at = $5
		WHERE id = $1
	`, p.ID, p.Name, p.Market, p.Comment, p.UpdatedAt)
	if err != nil {
		return portfolio.Portfolio{}, err
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return portfolio.Portfolio{}, storage.ErrNotFound
	}
	return p, nil
}

func (s *Store) GetPortfolio(ctx context.Context, id string) (portfolio.Portfolio, error) {
	var p portfolio.Portfolio
	err := s.db.GetContext(ctx, &p, `
		SELECT id, user_id, name, market, comment, created_at, updated_at
		FROM portfolios
		WHERE id = $1
	`, id)
	if err != nil {
		return portfolio.Portfolio{}, translate(err)
	}

	if err := s.db.SelectContext(ctx, &p.Assets, `
		SELECT id, portfolio_id, ticker_id, quantity, amount, buy_orders, sell_orders, comment, created_at, updated_at
		FROM portfolio_assets
		WHERE portfolio_id = $1
		ORDER BY ticker_id
	`, id); err != nil {
		return portfolio.Portfolio{}, err
	}
	return p, nil
}

func (s *Store) ListPortfolios(ctx context.Context, userID string) ([]portfolio.Portfolio, error) {
	var portfolios []portfolio.Portfolio
	err := s.db.SelectContext(ctx, &portfolios, `
		SELECT id, user_id, name, market, comment, created_at, updated_at
		FROM portfolios
		WHERE user_id = $1
		ORDER BY created_at
	`, userID)
	if err != nil {
		return nil, err
	}

	for i := range portfolios {
		if err := s.db.SelectContext(ctx, &portfolios[i].Assets, `
			SELECT id, portfolio_id, ticker_id, quantity, amount, buy_orders, sell_orders, comment, created_at, updated_at
			FROM portfolio_assets
			WHERE portfolio_id = $1
			ORDER BY ticker_id
		`, portfolios[i].ID); err != nil {
			return nil, err
		}
	}
	return portfolios, nil
}

func (s *Store) DeletePortfolio(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM portfolios WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func (s *Store) PortfolioNameTaken(ctx context.Context, userID, name string) (bool, error) {
	var taken bool
	err := s.db.GetContext(ctx, &taken, `
		SELECT EXISTS (SELECT 1 FROM portfolios WHERE user_id = $1 AND name = $2)
	`, userID, name)
	return taken, err
}

func (s *Store) CreatePortfolioAsset(ctx context.Context, a portfolio.Asset) (portfolio.Asset, error) {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	a.CreatedAt = now
	a.UpdatedAt = now

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO portfolio_assets (id, portfolio_id, ticker_id, quantity, amount, buy_orders, sell_orders, comment, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, a.ID, a.PortfolioID, a.TickerID, a.Quantity, a.Amount, a.BuyOrders, a.SellOrders, a.Comment, a.CreatedAt, a.UpdatedAt)
	if err != nil {
		return portfolio.Asset{}, err
	}
	return a, nil
}

func (s *Store) GetPortfolioAsset(ctx context.Context, id string) (portfolio.Asset, error) {
	var a portfolio.Asset
	err := s.db.GetContext(ctx, &a, `
		SELECT id, portfolio_id, ticker_id, quantity, amount, buy_orders, sell_orders, comment, created_at, updated_at
		FROM portfolio_assets
		WHERE id = $1
	`, id)
	if err != nil {
		return portfolio.Asset{}, translate(err)
	}
	return a, nil
}

func (s *Store) FindPortfolioAsset(ctx context.Context, portfolioID, tickerID string) (portfolio.Asset, error) {
	var a portfolio.Asset
	err := s.db.GetContext(ctx, &a, `
		SELECT id, portfolio_id, ticker_id, quantity, amount, buy_orders, sell_orders, comment, created_at, updated_at
		FROM portfolio_assets
		WHERE portfolio_id = $1 AND ticker_id = $2
	`, portfolioID, tickerID)
	if err != nil {
		return portfolio.Asset{}, translate(err)
	}
	return a, nil
}

func (s *Store) ListPortfolioAssetsByTicker(ctx context.Context, userID, tickerID string) ([]portfolio.Asset, error) {
	var assets []portfolio.Asset
	err := s.db.SelectContext(ctx, &assets, `
		SELECT a.id, a.portfolio_id, a.ticker_id, a.quantity, a.amount, a.buy_orders, a.sell_orders, a.comment, a.created_at, a.updated_at
		FROM portfolio_assets a
		JOIN portfolios p ON p.id = a.portfolio_id
		WHERE p.user_id = $1 AND a.ticker_id = $2
		ORDER BY a.created_at
	`, userID, tickerID)
	return assets, err
}

// ApplyPortfolioAssetDelta atomically adds the delta to the asset row,
// creating the row on first touch.
func (s *Store) ApplyPortfolioAssetDelta(ctx context.Context, portfolioID, tickerID string, d portfolio.AssetDelta) (portfolio.Asset, error) {
	now := time.Now().UTC()

	var a portfolio.Asset
	err := s.db.GetContext(ctx, &a, `
		INSERT INTO portfolio_assets (id, portfolio_id, ticker_id, quantity, amount, buy_orders, sell_orders, comment, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, '', $8, $8)
		ON CONFLICT (portfolio_id, ticker_id) DO UPDATE SET
			quantity = portfolio_assets.quantity + EXCLUDED.quantity,
			amount = portfolio_assets.amount + EXCLUDED.amount,
			buy_orders = portfolio_assets.buy_orders + EXCLUDED.buy_orders,
			sell_orders = portfolio_assets.sell_orders + EXCLUDED.sell_orders,
			updated_at = EXCLUDED.updated_at
		RETURNING id, portfolio_id, ticker_id, quantity, amount, buy_orders, sell_orders, comment, created_at, updated_at
	`, uuid.NewString(), portfolioID, tickerID, d.Quantity, d.Amount, d.BuyOrders, d.SellOrders, now)
	if err != nil {
		return portfolio.Asset{}, err
	}
	return a, nil
}

func (s *Store) DeletePortfolioAsset(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM portfolio_assets WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// --- WalletStore ------------------------------------------------------------

func (s *Store) CreateWallet(ctx context.Context, w wallet.Wallet) (wallet.Wallet, error) {
	if w.ID == "" {
		w.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	w.CreatedAt = now
	w.UpdatedAt = now

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO wallets (id, user_id, name, comment, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, w.ID, w.UserID, w.Name, w.Comment, w.CreatedAt, w.UpdatedAt)
	if err != nil {
		return wallet.Wallet{}, err
	}
	return w, nil
}

func (s *Store) UpdateWallet(ctx context.Context, w wallet.Wallet) (wallet.Wallet, error) {
	w.UpdatedAt = time.Now().UTC()

	result, err := s.db.ExecContext(ctx, `
		UPDATE wallets
		SET name = $2, comment = $3, updated_at = $4
		WHERE id = $1
	`, w.ID, w.Name, w.Comment, w.UpdatedAt)
	if err != nil {
		return wallet.Wallet{}, err
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return wallet.Wallet{}, storage.ErrNotFound
	}
	return w, nil
}

func (s *Store) GetWallet(ctx context.Context, id string) (wallet.Wallet, error) {
	var w wallet.Wallet
	err := s.db.GetContext(ctx, &w, `
		SELECT id, user_id, name, comment, created_at, updated_at
		FROM wallets
		WHERE id = $1
	`, id)
	if err != nil {
		return wallet.Wallet{}, translate(err)
	}

	if err := s.db.SelectContext(ctx, &w.Assets, `
		SELECT id, wallet_id, ticker_id, quantity, buy_orders, sell_orders, created_at, updated_at
		FROM wallet_assets
		WHERE wallet_id = $1
		ORDER BY ticker_id
	`, id); err != nil {
		return wallet.Wallet{}, err
	}
	return w, nil
}

func (s *Store) ListWallets(ctx context.Context, userID string) ([]wallet.Wallet, error) {
	var wallets []wallet.Wallet
	err := s.db.SelectContext(ctx, &wallets, `
		SELECT id, user_id, name, comment, created_at, updated_at
		FROM wallets
		WHERE user_id = $1
		ORDER BY created_at
	`, userID)
	if err != nil {
		return nil, err
	}

	for i := range wallets {
		if err := s.db.SelectContext(ctx, &wallets[i].Assets, `
			SELECT id, wallet_id, ticker_id, quantity, buy_orders, sell_orders, created_at, updated_at
			FROM wallet_assets
			WHERE wallet_id = $1
			ORDER BY ticker_id
		`, wallets[i].ID); err != nil {
			return nil, err
		}
	}
	return wallets, nil
}

func (s *Store) DeleteWallet(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM wallets WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func (s *Store) GetWalletAsset(ctx context.Context, id string) (wallet.Asset, error) {
	var a wallet.Asset
	err := s.db.GetContext(ctx, &a, `
		SELECT id, wallet_id, ticker_id, quantity, buy_orders, sell_orders, created_at, updated_at
		FROM wallet_assets
		WHERE id = $1
	`, id)
	if err != nil {
		return wallet.Asset{}, translate(err)
	}
	return a, nil
}

func (s *Store) FindWalletAsset(ctx context.Context, walletID, tickerID string) (wallet.Asset, error) {
	var a wallet.Asset
	err := s.db.GetContext(ctx, &a, `
		SELECT id, wallet_id, ticker_id, quantity, buy_orders, sell_orders, created_at, updated_at
		FROM wallet_assets
		WHERE wallet_id = $1 AND ticker_id = $2
	`, walletID, tickerID)
	if err != nil {
		return wallet.Asset{}, translate(err)
	}
	return a, nil
}

func (s *Store) ListWalletAssetsByTicker(ctx context.Context, userID, tickerID string) ([]wallet.Asset, error) {
	var assets []wallet.Asset
	err := s.db.SelectContext(ctx, &assets, `
		SELECT a.id, a.wallet_id, a.ticker_id, a.quantity, a.buy_orders, a.sell_orders, a.created_at, a.updated_at
		FROM wallet_assets a
		JOIN wallets w ON w.id = a.wallet_id
		WHERE w.user_id = $1 AND a.ticker_id = $2
		ORDER BY a.created_at
	`, userID, tickerID)
	return assets, err
}

func (s *Store) ApplyWalletAssetDelta(ctx context.Context, walletID, tickerID string, d wallet.AssetDelta) (wallet.Asset, error) {
	now := time.Now().UTC()

	var a wallet.Asset
	err := s.db.GetContext(ctx, &a, `
		INSERT INTO wallet_assets (id, wallet_id, ticker_id, quantity, buy_orders, sell_orders, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $7)
		ON CONFLICT (wallet_id, ticker_id) DO UPDATE SET
			quantity = wallet_assets.quantity + EXCLUDED.quantity,
			buy_orders = wallet_assets.buy_orders + EXCLUDED.buy_orders,
			sell_orders = wallet_assets.sell_orders + EXCLUDED.sell_orders,
			updated_at = EXCLUDED.updated_at
		RETURNING id, wallet_id, ticker_id, quantity, buy_orders, sell_orders, created_at, updated_at
	`, uuid.NewString(), walletID, tickerID, d.Quantity, d.BuyOrders, d.SellOrders, now)
	if err != nil {
		return wallet.Asset{}, err
	}
	return a, nil
}

func (s *Store) DeleteWalletAsset(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM wallet_assets WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// --- TransactionStore -------------------------------------------------------

func (s *Store) CreateTransaction(ctx context.Context, t transaction.Transaction) (transaction.Transaction, error) {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	t.CreatedAt = now
	t.UpdatedAt = now
	if t.Date.IsZero() {
		t.Date = now
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO transactions (id, user_id, date, kind, ticker_id, ticker2_id, quantity, quantity2, price, price_usd,
			comment, portfolio_id, portfolio2_id, wallet_id, wallet2_id, is_order, related_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)
	`, t.ID, t.UserID, t.Date, t.Kind, t.TickerID, t.Ticker2ID, t.Quantity, t.Quantity2, t.Price, t.PriceUSD,
		t.Comment, t.PortfolioID, t.Portfolio2, t.WalletID, t.Wallet2, t.Order, t.RelatedID, t.CreatedAt, t.UpdatedAt)
	if err != nil {
		return transaction.Transaction{}, err
	}
	return t, nil
}

func (s *Store) UpdateTransaction(ctx context.Context, t transaction.Transaction) (transaction.Transaction, error) {
	t.UpdatedAt = time.Now().UTC()

	result, err := s.db.ExecContext(ctx, `
		UPDATE transactions
		SET date = $2, kind = $3, ticker_id = $4, ticker2_id = $5, quantity = $6, quantity2 = $7, price = $8,
			price_usd = $9, comment = $10, portfolio_id = $11, portfolio2_id = $12, wallet_id = $13, wallet2_id = $14,
			is_order = $15, related_id = $16, updated_at = $17
		WHERE id = $1
	`, t.ID, t.Date, t.Kind, t.TickerID, t.Ticker2ID, t.Quantity, t.Quantity2, t.Price,
		t.PriceUSD, t.Comment, t.PortfolioID, t.Portfolio2, t.WalletID, t.Wallet2, t.Order, t.RelatedID, t.UpdatedAt)
	if err != nil {
		return transaction.Transaction{}, err
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return transaction.Transaction{}, storage.ErrNotFound
	}
	return t, nil
}

func (s *Store) GetTransaction(ctx context.Context, id string) (transaction.Transaction, error) {
	var t transaction.Transaction
	err := s.db.GetContext(ctx, &t, `
		SELECT id, user_id, date, kind, ticker_id, ticker2_id, quantity, quantity2, price, price_usd,
			comment, portfolio_id, portfolio2_id, wallet_id, wallet2_id, is_order, related_id, created_at, updated_at
		FROM transactions
		WHERE id = $1
	`, id)
	if err != nil {
		return transaction.Transaction{}, translate(err)
	}
	return t, nil
}

func (s *Store) DeleteTransaction(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM transactions WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func (s *Store) ListPortfolioAssetTransactions(ctx context.Context, portfolioID, tickerID string) ([]transaction.Transaction, error) {
	var txs []transaction.Transaction
	err := s.db.SelectContext(ctx, &txs, `
		SELECT id, user_id, date, kind, ticker_id, ticker2_id, quantity, quantity2, price, price_usd,
			comment, portfolio_id, portfolio2_id, wallet_id, wallet2_id, is_order, related_id, created_at, updated_at
		FROM transactions
		WHERE (portfolio_id = $1 OR portfolio2_id = $1) AND (ticker_id = $2 OR ticker2_id = $2)
		ORDER BY date
	`, portfolioID, tickerID)
	return txs, err
}

func (s *Store) ListWalletAssetTransactions(ctx context.Context, walletID, tickerID string) ([]transaction.Transaction, error) {
	var txs []transaction.Transaction
	err := s.db.SelectContext(ctx, &txs, `
		SELECT id, user_id, date, kind, ticker_id, ticker2_id, quantity, quantity2, price, price_usd,
			comment, portfolio_id, portfolio2_id, wallet_id, wallet2_id, is_order, related_id, created_at, updated_at
		FROM transactions
		WHERE (wallet_id = $1 OR wallet2_id = $1) AND (ticker_id = $2 OR ticker2_id = $2)
		ORDER BY date
	`, walletID, tickerID)
	return txs, err
}

func (s *Store) ListUsedTickers(ctx context.Context) ([]string, error) {
	var tickers []string
	err := s.db.SelectContext(ctx, &tickers, `
		SELECT DISTINCT ticker_id FROM (
			SELECT ticker_id FROM portfolio_assets
			UNION ALL
			SELECT ticker_id FROM wallet_assets
		) used
		WHERE ticker_id <> ''
		ORDER BY ticker_id
	`)
	return tickers, err
}

func translate(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return storage.ErrNotFound
	}
	return err
}
