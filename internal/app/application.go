// Package app wires the services over their storage and cache dependencies.
package app

import (
	"time"

	"github.com/bro-Nik/portfolio-backend/internal/app/services/portfolios"
	"github.com/bro-Nik/portfolio-backend/internal/app/services/transactions"
	"github.com/bro-Nik/portfolio-backend/internal/app/services/wallets"
	"github.com/bro-Nik/portfolio-backend/internal/app/storage"
	"github.com/bro-Nik/portfolio-backend/internal/cache"
	"github.com/bro-Nik/portfolio-backend/internal/logging"
)

// Stores bundles the storage backends. Nil stores default to a shared
// in-memory implementation.
type Stores struct {
	Portfolios   storage.PortfolioStore
	Wallets      storage.WalletStore
	Transactions storage.TransactionStore
}

// Options carries optional application dependencies.
type Options struct {
	Cache    cache.Cache
	CacheTTL time.Duration
	Logger   *logging.Logger
}

// Application bundles the service layer.
type Application struct {
	Portfolios   *portfolios.Service
	Wallets      *wallets.Service
	Transactions *transactions.Service
	Log          *logging.Logger
}

// New constructs an Application over the given stores.
func New(stores Stores, opts Options) *Application {
	var mem *storage.Memory
	memory := func() *storage.Memory {
		if mem == nil {
			mem = storage.NewMemory()
		}
		return mem
	}

	if stores.Portfolios == nil {
		stores.Portfolios = memory()
	}
	if stores.Wallets == nil {
		stores.Wallets = memory()
	}
	if stores.Transactions == nil {
		stores.Transactions = memory()
	}

	if opts.Cache == nil {
		opts.Cache = cache.Noop{}
	}
	if opts.Logger == nil {
		opts.Logger = logging.New("portfolios", "info", "json")
	}

	portfolioSvc := portfolios.NewService(stores.Portfolios, stores.Transactions, opts.Cache, opts.CacheTTL)
	walletSvc := wallets.NewService(stores.Wallets, stores.Transactions, opts.Cache, opts.CacheTTL)
	transactionSvc := transactions.NewService(stores.Transactions, stores.Portfolios, stores.Wallets, portfolioSvc, walletSvc)

	return &Application{
		Portfolios:   portfolioSvc,
		Wallets:      walletSvc,
		Transactions: transactionSvc,
		Log:          opts.Logger,
	}
}
