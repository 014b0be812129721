// Package storage defines the persistence interfaces for the portfolios
// service and an in-memory implementation used by tests.
package storage

import (
	"context"
	"errors"

	"github.com/bro-Nik/portfolio-backend/internal/app/domain/portfolio"
	"github.com/bro-Nik/portfolio-backend/internal/app/domain/transaction"
	"github.com/bro-Nik/portfolio-backend/internal/app/domain/wallet"
)

// ErrNotFound is returned by every store when the requested record does not
// exist. Implementations translate their driver-specific signals into it.
var ErrNotFound = errors.New("record not found")

// PortfolioStore persists portfolios and the assets held in them.
type PortfolioStore interface {
	CreatePortfolio(ctx context.Context, p portfolio.Portfolio) (portfolio.Portfolio, error)
	UpdatePortfolio(ctx context.Context, p portfolio.Portfolio) (portfolio.Portfolio, error)
	GetPortfolio(ctx context.Context, id string) (portfolio.Portfolio, error)
	ListPortfolios(ctx context.Context, userID string) ([]portfolio.Portfolio, error)
	DeletePortfolio(ctx context.Context, id string) error
	PortfolioNameTaken(ctx context.Context, userID, name string) (bool, error)

	CreatePortfolioAsset(ctx context.Context, a portfolio.Asset) (portfolio.Asset, error)
	GetPortfolioAsset(ctx context.Context, id string) (portfolio.Asset, error)
	FindPortfolioAsset(ctx context.Context, portfolioID, tickerID string) (portfolio.Asset, error)
	ListPortfolioAssetsByTicker(ctx context.Context, userID, tickerID string) ([]portfolio.Asset, error)
	ApplyPortfolioAssetDelta(ctx context.Context, portfolioID, tickerID string, d portfolio.AssetDelta) (portfolio.Asset, error)
	DeletePortfolioAsset(ctx context.Context, id string) error
}

// WalletStore persists wallets and the assets held in them.
type WalletStore interface {
	CreateWallet(ctx context.Context, w wallet.Wallet) (wallet.Wallet, error)
	UpdateWallet(ctx context.Context, w wallet.Wallet) (wallet.Wallet, error)
	GetWallet(ctx context.Context, id string) (wallet.Wallet, error)
	ListWallets(ctx context.Context, userID string) ([]wallet.Wallet, error)
	DeleteWallet(ctx context.Context, id string) error

	GetWalletAsset(ctx context.Context, id string) (wallet.Asset, error)
	FindWalletAsset(ctx context.Context, walletID, tickerID string) (wallet.Asset, error)
	ListWalletAssetsByTicker(ctx context.Context, userID, tickerID string) ([]wallet.Asset, error)
	ApplyWalletAssetDelta(ctx context.Context, walletID, tickerID string, d wallet.AssetDelta) (wallet.Asset, error)
	DeleteWalletAsset(ctx context.Context, id string) error
}

// TransactionStore persists the transaction journal.
type TransactionStore interface {
	CreateTransaction(ctx context.Context, t transaction.Transaction) (transaction.Transaction, error)
	UpdateTransaction(ctx context.Context, t transaction.Transaction) (transaction.Transaction, error)
	GetTransaction(ctx context.Context, id string) (transaction.Transaction, error)
	DeleteTransaction(ctx context.Context, id string) error
	ListPortfolioAssetTransactions(ctx context.Context, portfolioID, tickerID string) ([]transaction.Transaction, error)
	ListWalletAssetTransactions(ctx context.Context, walletID, tickerID string) ([]transaction.Transaction, error)
	ListUsedTickers(ctx context.Context) ([]string, error)
}
