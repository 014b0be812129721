package storage

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/bro-Nik/portfolio-backend/internal/app/domain/portfolio"
	"github.com/bro-Nik/portfolio-backend/internal/app/domain/transaction"
	"github.com/bro-Nik/portfolio-backend/internal/app/domain/wallet"
)

// Memory is a thread-safe in-memory persistence layer implementing the
// storage interfaces defined in this package. It is intended for tests and
// prototyping and deliberately keeps the implementation simple.
type Memory struct {
	mu              sync.RWMutex
	portfolios      map[string]portfolio.Portfolio
	portfolioAssets map[string]portfolio.Asset
	wallets         map[string]wallet.Wallet
	walletAssets    map[string]wallet.Asset
	transactions    map[string]transaction.Transaction
}

var _ PortfolioStore = (*Memory)(nil)
var _ WalletStore = (*Memory)(nil)
var _ TransactionStore = (*Memory)(nil)

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		portfolios:      make(map[string]portfolio.Portfolio),
		portfolioAssets: make(map[string]portfolio.Asset),
		wallets:         make(map[string]wallet.Wallet),
		walletAssets:    make(map[string]wallet.Asset),
		transactions:    make(map[string]transaction.Transaction),
	}
}

// PortfolioStore implementation ----------------------------------------------

func (m *Memory) CreatePortfolio(_ context.Context, p portfolio.Portfolio) (portfolio.Portfolio, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	p.CreatedAt = now
	p.UpdatedAt = now
	p.Assets = nil

	m.portfolios[p.ID] = p
	return p, nil
}

func (m *Memory) UpdatePortfolio(_ context.Context, p portfolio.Portfolio) (portfolio.Portfolio, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	original, ok := m.portfolios[p.ID]
	if !ok {
		return portfolio.Portfolio{}, ErrNotFound
	}
	p.UserID = original.UserID
	p.CreatedAt = original.CreatedAt
	p.UpdatedAt = time.Now().UTC()
	p.Assets = nil

	m.portfolios[p.ID] = p
	return p, nil
}

func (m *Memory) GetPortfolio(_ context.Context, id string) (portfolio.Portfolio, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	p, ok := m.portfolios[id]
	if !ok {
		return portfolio.Portfolio{}, ErrNotFound
	}
	p.Assets = m.portfolioAssetsLocked(id)
	return p, nil
}

func (m *Memory) ListPortfolios(_ context.Context, userID string) ([]portfolio.Portfolio, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []portfolio.Portfolio
	for _, p := range m.portfolios {
		if p.UserID != userID {
			continue
		}
		p.Assets = m.portfolioAssetsLocked(p.ID)
		result = append(result, p)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.Before(result[j].CreatedAt) })
	return result, nil
}

func (m *Memory) DeletePortfolio(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.portfolios[id]; !ok {
		return ErrNotFound
	}
	delete(m.portfolios, id)
	for assetID, a := range m.portfolioAssets {
		if a.PortfolioID == id {
			delete(m.portfolioAssets, assetID)
		}
	}
	return nil
}

func (m *Memory) PortfolioNameTaken(_ context.Context, userID, name string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, p := range m.portfolios {
		if p.UserID == userID && p.Name == name {
			return true, nil
		}
	}
	return false, nil
}

func (m *Memory) CreatePortfolioAsset(_ context.Context, a portfolio.Asset) (portfolio.Asset, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	a.CreatedAt = now
	a.UpdatedAt = now

	m.portfolioAssets[a.ID] = a
	return a, nil
}

func (m *Memory) GetPortfolioAsset(_ context.Context, id string) (portfolio.Asset, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	a, ok := m.portfolioAssets[id]
	if !ok {
		return portfolio.Asset{}, ErrNotFound
	}
	return a, nil
}

func (m *Memory) FindPortfolioAsset(_ context.Context, portfolioID, tickerID string) (portfolio.Asset, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, a := range m.portfolioAssets {
		if a.PortfolioID == portfolioID && a.TickerID == tickerID {
			return a, nil
		}
	}
	return portfolio.Asset{}, ErrNotFound
}

func (m *Memory) ListPortfolioAssetsByTicker(_ context.Context, userID, tickerID string) ([]portfolio.Asset, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []portfolio.Asset
	for _, a := range m.portfolioAssets {
		if a.TickerID != tickerID {
			continue
		}
		if p, ok := m.portfolios[a.PortfolioID]; !ok || p.UserID != userID {
			continue
		}
		result = append(result, a)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.Before(result[j].CreatedAt) })
	return result, nil
}

func (m *Memory) ApplyPortfolioAssetDelta(_ context.Context, portfolioID, tickerID string, d portfolio.AssetDelta) (portfolio.Asset, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.portfolios[portfolioID]; !ok {
		return portfolio.Asset{}, ErrNotFound
	}

	for id, a := range m.portfolioAssets {
		if a.PortfolioID == portfolioID && a.TickerID == tickerID {
			a.Quantity = a.Quantity.Add(d.Quantity)
			a.Amount = a.Amount.Add(d.Amount)
			a.BuyOrders = a.BuyOrders.Add(d.BuyOrders)
			a.SellOrders = a.SellOrders.Add(d.SellOrders)
			a.UpdatedAt = time.Now().UTC()
			m.portfolioAssets[id] = a
			return a, nil
		}
	}

	now := time.Now().UTC()
	a := portfolio.Asset{
		ID:          uuid.NewString(),
		PortfolioID: portfolioID,
		TickerID:    tickerID,
		Quantity:    d.Quantity,
		Amount:      d.Amount,
		BuyOrders:   d.BuyOrders,
		SellOrders:  d.SellOrders,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	m.portfolioAssets[a.ID] = a
	return a, nil
}

func (m *Memory) DeletePortfolioAsset(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.portfolioAssets[id]; !ok {
		return ErrNotFound
	}
	delete(m.portfolioAssets, id)
	return nil
}

func (m *Memory) portfolioAssetsLocked(portfolioID string) []portfolio.Asset {
	var assets []portfolio.Asset
	for _, a := range m.portfolioAssets {
		if a.PortfolioID == portfolioID {
			assets = append(assets, a)
		}
	}
	sort.Slice(assets, func(i, j int) bool { return assets[i].TickerID < assets[j].TickerID })
	return assets
}

// WalletStore implementation --------------------------------------------------

func (m *Memory) CreateWallet(_ context.Context, w wallet.Wallet) (wallet.Wallet, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if w.ID == "" {
		w.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	w.CreatedAt = now
	w.UpdatedAt = now
	w.Assets = nil

	m.wallets[w.ID] = w
	return w, nil
}

func (m *Memory) UpdateWallet(_ context.Context, w wallet.Wallet) (wallet.Wallet, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	original, ok := m.wallets[w.ID]
	if !ok {
		return wallet.Wallet{}, ErrNotFound
	}
	w.UserID = original.UserID
	w.CreatedAt = original.CreatedAt
	w.UpdatedAt = time.Now().UTC()
	w.Assets = nil

	m.wallets[w.ID] = w
	return w, nil
}

func (m *Memory) GetWallet(_ context.Context, id string) (wallet.Wallet, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	w, ok := m.wallets[id]
	if !ok {
		return wallet.Wallet{}, ErrNotFound
	}
	w.Assets = m.walletAssetsLocked(id)
	return w, nil
}

func (m *Memory) ListWallets(_ context.Context, userID string) ([]wallet.Wallet, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []wallet.Wallet
	for _, w := range m.wallets {
		if w.UserID != userID {
			continue
		}
		w.Assets = m.walletAssetsLocked(w.ID)
		result = append(result, w)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.Before(result[j].CreatedAt) })
	return result, nil
}

func (m *Memory) DeleteWallet(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.wallets[id]; !ok {
		return ErrNotFound
	}
	delete(m.wallets, id)
	for assetID, a := range m.walletAssets {
		if a.WalletID == id {
			delete(m.walletAssets, assetID)
		}
	}
	return nil
}

func (m *Memory) GetWalletAsset(_ context.Context, id string) (wallet.Asset, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	a, ok := m.walletAssets[id]
	if !ok {
		return wallet.Asset{}, ErrNotFound
	}
	return a, nil
}

func (m *Memory) FindWalletAsset(_ context.Context, walletID, tickerID string) (wallet.Asset, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, a := range m.walletAssets {
		if a.WalletID == walletID && a.TickerID == tickerID {
			return a, nil
		}
	}
	return wallet.Asset{}, ErrNotFound
}

func (m *Memory) ListWalletAssetsByTicker(_ context.Context, userID, tickerID string) ([]wallet.Asset, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []wallet.Asset
	for _, a := range m.walletAssets {
		if a.TickerID != tickerID {
			continue
		}
		if w, ok := m.wallets[a.WalletID]; !ok || w.UserID != userID {
			continue
		}
		result = append(result, a)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.Before(result[j].CreatedAt) })
	return result, nil
}

func (m *Memory) ApplyWalletAssetDelta(_ context.Context, walletID, tickerID string, d wallet.AssetDelta) (wallet.Asset, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.wallets[walletID]; !ok {
		return wallet.Asset{}, ErrNotFound
	}

	for id, a := range m.walletAssets {
		if a.WalletID == walletID && a.TickerID == tickerID {
			a.Quantity = a.Quantity.Add(d.Quantity)
			a.BuyOrders = a.BuyOrders.Add(d.BuyOrders)
			a.SellOrders = a.SellOrders.Add(d.SellOrders)
			a.UpdatedAt = time.Now().UTC()
			m.walletAssets[id] = a
			return a, nil
		}
	}

	now := time.Now().UTC()
	a := wallet.Asset{
		ID:         uuid.NewString(),
		WalletID:   walletID,
		TickerID:   tickerID,
		Quantity:   d.Quantity,
		BuyOrders:  d.BuyOrders,
		SellOrders: d.SellOrders,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	m.walletAssets[a.ID] = a
	return a, nil
}

func (m *Memory) DeleteWalletAsset(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.walletAssets[id]; !ok {
		return ErrNotFound
	}
	delete(m.walletAssets, id)
	return nil
}

func (m *Memory) walletAssetsLocked(walletID string) []wallet.Asset {
	var assets []wallet.Asset
	for _, a := range m.walletAssets {
		if a.WalletID == walletID {
			assets = append(assets, a)
		}
	}
	sort.Slice(assets, func(i, j int) bool { return assets[i].TickerID < assets[j].TickerID })
	return assets
}

// TransactionStore implementation ---------------------------------------------

func (m *Memory) CreateTransaction(_ context.Context, t transaction.Transaction) (transaction.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	t.CreatedAt = now
	t.UpdatedAt = now
	if t.Date.IsZero() {
		t.Date = now
	}

	m.transactions[t.ID] = t
	return t, nil
}

func (m *Memory) UpdateTransaction(_ context.Context, t transaction.Transaction) (transaction.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	original, ok := m.transactions[t.ID]
	if !ok {
		return transaction.Transaction{}, ErrNotFound
	}
	t.UserID = original.UserID
	t.CreatedAt = original.CreatedAt
	t.UpdatedAt = time.Now().UTC()

	m.transactions[t.ID] = t
	return t, nil
}

func (m *Memory) GetTransaction(_ context.Context, id string) (transaction.Transaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	t, ok := m.transactions[id]
	if !ok {
		return transaction.Transaction{}, ErrNotFound
	}
	return t, nil
}

func (m *Memory) DeleteTransaction(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.transactions[id]; !ok {
		return ErrNotFound
	}
	delete(m.transactions, id)
	return nil
}

func (m *Memory) ListPortfolioAssetTransactions(_ context.Context, portfolioID, tickerID string) ([]transaction.Transaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []transaction.Transaction
	for _, t := range m.transactions {
		if t.PortfolioID != portfolioID && t.Portfolio2 != portfolioID {
			continue
		}
		if t.TickerID != tickerID && t.Ticker2ID != tickerID {
			continue
		}
		result = append(result, t)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Date.Before(result[j].Date) })
	return result, nil
}

func (m *Memory) ListWalletAssetTransactions(_ context.Context, walletID, tickerID string) ([]transaction.Transaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []transaction.Transaction
	for _, t := range m.transactions {
		if t.WalletID != walletID && t.Wallet2 != walletID {
			continue
		}
		if t.TickerID != tickerID && t.Ticker2ID != tickerID {
			continue
		}
		result = append(result, t)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Date.Before(result[j].Date) })
	return result, nil
}

func (m *Memory) ListUsedTickers(_ context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	seen := make(map[string]bool)
	for _, a := range m.portfolioAssets {
		seen[a.TickerID] = true
	}
	for _, a := range m.walletAssets {
		seen[a.TickerID] = true
	}

	tickers := make([]string, 0, len(seen))
	for ticker := range seen {
		if ticker != "" {
			tickers = append(tickers, ticker)
		}
	}
	sort.Strings(tickers)
	return tickers, nil
}
