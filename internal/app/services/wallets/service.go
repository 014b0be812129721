// Package wallets implements wallet and wallet asset management.
package wallets

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/bro-Nik/portfolio-backend/internal/app/domain/transaction"
	"github.com/bro-Nik/portfolio-backend/internal/app/domain/wallet"
	"github.com/bro-Nik/portfolio-backend/internal/app/metrics"
	"github.com/bro-Nik/portfolio-backend/internal/app/storage"
	"github.com/bro-Nik/portfolio-backend/internal/cache"
)

var (
	// ErrAssetExists is returned when the wallet already tracks the ticker.
	ErrAssetExists = errors.New("wallet already tracks this ticker")
	// ErrInvalidName is returned when the wallet name is empty.
	ErrInvalidName = errors.New("wallet name is required")
	// ErrInvalidTicker is returned when the ticker id is empty.
	ErrInvalidTicker = errors.New("ticker id is required")
)

// Service manages wallets and their assets.
type Service struct {
	store        storage.WalletStore
	transactions storage.TransactionStore
	cache        cache.Cache
	cacheTTL     time.Duration
}

// NewService creates a Service. A nil cache disables caching.
func NewService(store storage.WalletStore, transactions storage.TransactionStore, c cache.Cache, ttl time.Duration) *Service {
	if c == nil {
		c = cache.Noop{}
	}
	return &Service{store: store, transactions: transactions, cache: c, cacheTTL: ttl}
}

func listKey(userID string) string {
	return "wallets:" + userID
}

// List returns the user's wallets with their assets.
func (s *Service) List(ctx context.Context, userID string) ([]wallet.Wallet, error) {
	var cached []wallet.Wallet
	if ok, err := s.cache.Get(ctx, listKey(userID), &cached); err == nil && ok {
		metrics.RecordCacheLookup(true)
		return cached, nil
	}
	metrics.RecordCacheLookup(false)

	wallets, err := s.store.ListWallets(ctx, userID)
	if err != nil {
		return nil, err
	}

	_ = s.cache.Set(ctx, listKey(userID), wallets, s.cacheTTL)
	return wallets, nil
}

// Get returns one wallet. A wallet owned by another user is reported as
// not found.
func (s *Service) Get(ctx context.Context, userID, id string) (wallet.Wallet, error) {
	w, err := s.store.GetWallet(ctx, id)
	if err != nil {
		return wallet.Wallet{}, err
	}
	if w.UserID != userID {
		return wallet.Wallet{}, storage.ErrNotFound
	}
	return w, nil
}

// Create adds a wallet for the user.
func (s *Service) Create(ctx context.Context, userID, name, comment string) (wallet.Wallet, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return wallet.Wallet{}, ErrInvalidName
	}

	w, err := s.store.CreateWallet(ctx, wallet.Wallet{
		UserID:  userID,
		Name:    name,
		Comment: comment,
	})
	if err != nil {
		return wallet.Wallet{}, err
	}

	s.invalidate(ctx, userID)
	return w, nil
}

// Update changes a wallet's name or comment.
func (s *Service) Update(ctx context.Context, userID, id, name, comment string) (wallet.Wallet, error) {
	current, err := s.Get(ctx, userID, id)
	if err != nil {
		return wallet.Wallet{}, err
	}

	name = strings.TrimSpace(name)
	if name == "" {
		return wallet.Wallet{}, ErrInvalidName
	}

	current.Name = name
	current.Comment = comment
	updated, err := s.store.UpdateWallet(ctx, current)
	if err != nil {
		return wallet.Wallet{}, err
	}

	s.invalidate(ctx, userID)
	return updated, nil
}

// Delete removes a wallet and its assets.
func (s *Service) Delete(ctx context.Context, userID, id string) error {
	if _, err := s.Get(ctx, userID, id); err != nil {
		return err
	}
	if err := s.store.DeleteWallet(ctx, id); err != nil {
		return err
	}
	s.invalidate(ctx, userID)
	return nil
}

// AddAsset starts tracking a ticker in the wallet.
func (s *Service) AddAsset(ctx context.Context, userID, walletID, tickerID string) (wallet.Asset, error) {
	tickerID = strings.TrimSpace(tickerID)
	if tickerID == "" {
		return wallet.Asset{}, ErrInvalidTicker
	}

	if _, err := s.Get(ctx, userID, walletID); err != nil {
		return wallet.Asset{}, err
	}

	if _, err := s.store.FindWalletAsset(ctx, walletID, tickerID); err == nil {
		return wallet.Asset{}, ErrAssetExists
	} else if !errors.Is(err, storage.ErrNotFound) {
		return wallet.Asset{}, err
	}

	a, err := s.store.ApplyWalletAssetDelta(ctx, walletID, tickerID, wallet.AssetDelta{})
	if err != nil {
		return wallet.Asset{}, err
	}

	s.invalidate(ctx, userID)
	return a, nil
}

// RemoveAsset stops tracking an asset.
func (s *Service) RemoveAsset(ctx context.Context, userID, walletID, assetID string) error {
	if _, err := s.Get(ctx, userID, walletID); err != nil {
		return err
	}

	a, err := s.store.GetWalletAsset(ctx, assetID)
	if err != nil {
		return err
	}
	if a.WalletID != walletID {
		return storage.ErrNotFound
	}

	if err := s.store.DeleteWalletAsset(ctx, assetID); err != nil {
		return err
	}
	s.invalidate(ctx, userID)
	return nil
}

// AssetDetail is an asset together with its transaction history and the
// ticker's distribution across the user's wallets.
type AssetDetail struct {
	Asset        wallet.Asset              `json:"asset"`
	Transactions []transaction.Transaction `json:"transactions"`
	Distribution wallet.Distribution       `json:"distribution"`
}

// Detail returns the asset, its transactions, and the ticker distribution.
func (s *Service) Detail(ctx context.Context, userID, assetID string) (AssetDetail, error) {
	a, err := s.store.GetWalletAsset(ctx, assetID)
	if err != nil {
		return AssetDetail{}, err
	}
	if _, err := s.Get(ctx, userID, a.WalletID); err != nil {
		return AssetDetail{}, err
	}

	txs, err := s.transactions.ListWalletAssetTransactions(ctx, a.WalletID, a.TickerID)
	if err != nil {
		return AssetDetail{}, err
	}
	if txs == nil {
		txs = []transaction.Transaction{}
	}

	dist, err := s.distribution(ctx, userID, a.TickerID)
	if err != nil {
		return AssetDetail{}, err
	}

	return AssetDetail{Asset: a, Transactions: txs, Distribution: dist}, nil
}

func (s *Service) distribution(ctx context.Context, userID, tickerID string) (wallet.Distribution, error) {
	assets, err := s.store.ListWalletAssetsByTicker(ctx, userID, tickerID)
	if err != nil {
		return wallet.Distribution{}, err
	}

	names := map[string]string{}
	list, err := s.store.ListWallets(ctx, userID)
	if err != nil {
		return wallet.Distribution{}, err
	}
	for _, w := range list {
		names[w.ID] = w.Name
	}

	dist := wallet.Distribution{Wallets: []wallet.DistributionEntry{}}
	for _, a := range assets {
		dist.TotalQuantity = dist.TotalQuantity.Add(a.Quantity)
		dist.Wallets = append(dist.Wallets, wallet.DistributionEntry{
			WalletID:   a.WalletID,
			WalletName: names[a.WalletID],
			Quantity:   a.Quantity,
		})
	}

	if dist.TotalQuantity.IsPositive() {
		hundred := decimal.NewFromInt(100)
		for i := range dist.Wallets {
			dist.Wallets[i].Share = dist.Wallets[i].Quantity.
				Div(dist.TotalQuantity).Mul(hundred).Round(2)
		}
	}
	return dist, nil
}

func (s *Service) invalidate(ctx context.Context, userID string) {
	_ = s.cache.Delete(ctx, listKey(userID))
}

// InvalidateList drops the user's cached wallet list. Called by the
// transactions service after asset mutations.
func (s *Service) InvalidateList(ctx context.Context, userID string) {
	s.invalidate(ctx, userID)
}
