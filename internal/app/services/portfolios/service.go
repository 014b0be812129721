// Package portfolios implements portfolio and portfolio asset management.
package portfolios

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/bro-Nik/portfolio-backend/internal/app/domain/portfolio"
	"github.com/bro-Nik/portfolio-backend/internal/app/domain/transaction"
	"github.com/bro-Nik/portfolio-backend/internal/app/metrics"
	"github.com/bro-Nik/portfolio-backend/internal/app/storage"
	"github.com/bro-Nik/portfolio-backend/internal/cache"
)

var (
	// ErrNameTaken is returned when the user already has a portfolio
	// with the requested name.
	ErrNameTaken = errors.New("portfolio name already in use")
	// ErrAssetExists is returned when the portfolio already tracks the ticker.
	ErrAssetExists = errors.New("portfolio already tracks this ticker")
	// ErrInvalidName is returned when the portfolio name is empty.
	ErrInvalidName = errors.New("portfolio name is required")
	// ErrInvalidTicker is returned when the ticker id is empty.
	ErrInvalidTicker = errors.New("ticker id is required")
)

// Service manages portfolios and their assets.
type Service struct {
	store        storage.PortfolioStore
	transactions storage.TransactionStore
	cache        cache.Cache
	cacheTTL     time.Duration
}

// NewService creates a Service. A nil cache disables caching.
func NewService(store storage.PortfolioStore, transactions storage.TransactionStore, c cache.Cache, ttl time.Duration) *Service {
	if c == nil {
		c = cache.Noop{}
	}
	return &Service{store: store, transactions: transactions, cache: c, cacheTTL: ttl}
}

func listKey(userID string) string {
	return "portfolios:" + userID
}

// List returns the user's portfolios with their assets.
func (s *Service) List(ctx context.Context, userID string) ([]portfolio.Portfolio, error) {
	var cached []portfolio.Portfolio
	if ok, err := s.cache.Get(ctx, listKey(userID), &cached); err == nil && ok {
		metrics.RecordCacheLookup(true)
		return cached, nil
	}
	metrics.RecordCacheLookup(false)

	portfolios, err := s.store.ListPortfolios(ctx, userID)
	if err != nil {
		return nil, err
	}

	_ = s.cache.Set(ctx, listKey(userID), portfolios, s.cacheTTL)
	return portfolios, nil
}

// Get returns one portfolio. A portfolio owned by another user is reported
// as not found.
func (s *Service) Get(ctx context.Context, userID, id string) (portfolio.Portfolio, error) {
	p, err := s.store.GetPortfolio(ctx, id)
	if err != nil {
		return portfolio.Portfolio{}, err
	}
	if p.UserID != userID {
		return portfolio.Portfolio{}, storage.ErrNotFound
	}
	return p, nil
}

// Create adds a portfolio for the user.
func (s *Service) Create(ctx context.Context, userID, name, market, comment string) (portfolio.Portfolio, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return portfolio.Portfolio{}, ErrInvalidName
	}

	taken, err := s.store.PortfolioNameTaken(ctx, userID, name)
	if err != nil {
		return portfolio.Portfolio{}, err
	}
	if taken {
		return portfolio.Portfolio{}, ErrNameTaken
	}

	p, err := s.store.CreatePortfolio(ctx, portfolio.Portfolio{
		UserID:  userID,
		Name:    name,
		Market:  market,
		Comment: comment,
	})
	if err != nil {
		return portfolio.Portfolio{}, err
	}

	s.invalidate(ctx, userID)
	return p, nil
}

// Update changes a portfolio's name, market, or comment.
func (s *Service) Update(ctx context.Context, userID, id, name, market, comment string) (portfolio.Portfolio, error) {
	current, err := s.Get(ctx, userID, id)
	if err != nil {
		return portfolio.Portfolio{}, err
	}

	name = strings.TrimSpace(name)
	if name == "" {
		return portfolio.Portfolio{}, ErrInvalidName
	}
	if name != current.Name {
		taken, err := s.store.PortfolioNameTaken(ctx, userID, name)
		if err != nil {
			return portfolio.Portfolio{}, err
		}
		if taken {
			return portfolio.Portfolio{}, ErrNameTaken
		}
	}

	current.Name = name
	current.Market = market
	current.Comment = comment
	updated, err := s.store.UpdatePortfolio(ctx, current)
	if err != nil {
		return portfolio.Portfolio{}, err
	}

	s.invalidate(ctx, userID)
	return updated, nil
}

// Delete removes a portfolio and its assets.
func (s *Service) Delete(ctx context.Context, userID, id string) error {
	if _, err := s.Get(ctx, userID, id); err != nil {
		return err
	}
	if err := s.store.DeletePortfolio(ctx, id); err != nil {
		return err
	}
	s.invalidate(ctx, userID)
	return nil
}

// AddAsset starts tracking a ticker in the portfolio.
func (s *Service) AddAsset(ctx context.Context, userID, portfolioID, tickerID, comment string) (portfolio.Asset, error) {
	tickerID = strings.TrimSpace(tickerID)
	if tickerID == "" {
		return portfolio.Asset{}, ErrInvalidTicker
	}

	if _, err := s.Get(ctx, userID, portfolioID); err != nil {
		return portfolio.Asset{}, err
	}

	if _, err := s.store.FindPortfolioAsset(ctx, portfolioID, tickerID); err == nil {
		return portfolio.Asset{}, ErrAssetExists
	} else if !errors.Is(err, storage.ErrNotFound) {
		return portfolio.Asset{}, err
	}

	a, err := s.store.CreatePortfolioAsset(ctx, portfolio.Asset{
		PortfolioID: portfolioID,
		TickerID:    tickerID,
		Comment:     comment,
	})
	if err != nil {
		return portfolio.Asset{}, err
	}

	s.invalidate(ctx, userID)
	return a, nil
}

// RemoveAsset stops tracking an asset.
func (s *Service) RemoveAsset(ctx context.Context, userID, portfolioID, assetID string) error {
	if _, err := s.Get(ctx, userID, portfolioID); err != nil {
		return err
	}

	a, err := s.store.GetPortfolioAsset(ctx, assetID)
	if err != nil {
		return err
	}
	if a.PortfolioID != portfolioID {
		return storage.ErrNotFound
	}

	if err := s.store.DeletePortfolioAsset(ctx, assetID); err != nil {
		return err
	}
	s.invalidate(ctx, userID)
	return nil
}

// AssetDetail is an asset together with its transaction history and the
// ticker's allocation across the user's portfolios.
type AssetDetail struct {
	Asset        portfolio.Asset           `json:"asset"`
	Transactions []transaction.Transaction `json:"transactions"`
	Distribution portfolio.Distribution    `json:"distribution"`
}

// Detail returns the asset, its transactions, and the ticker distribution.
func (s *Service) Detail(ctx context.Context, userID, assetID string) (AssetDetail, error) {
	a, err := s.store.GetPortfolioAsset(ctx, assetID)
	if err != nil {
		return AssetDetail{}, err
	}
	if _, err := s.Get(ctx, userID, a.PortfolioID); err != nil {
		return AssetDetail{}, err
	}

	txs, err := s.transactions.ListPortfolioAssetTransactions(ctx, a.PortfolioID, a.TickerID)
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

// distribution computes how the ticker's holdings split across the user's
// portfolios, as a percentage of total quantity.
func (s *Service) distribution(ctx context.Context, userID, tickerID string) (portfolio.Distribution, error) {
	assets, err := s.store.ListPortfolioAssetsByTicker(ctx, userID, tickerID)
	if err != nil {
		return portfolio.Distribution{}, err
	}

	names := map[string]string{}
	list, err := s.store.ListPortfolios(ctx, userID)
	if err != nil {
		return portfolio.Distribution{}, err
	}
	for _, p := range list {
		names[p.ID] = p.Name
	}

	dist := portfolio.Distribution{Portfolios: []portfolio.DistributionEntry{}}
	for _, a := range assets {
		dist.TotalQuantity = dist.TotalQuantity.Add(a.Quantity)
		dist.TotalAmount = dist.TotalAmount.Add(a.Amount)
		dist.Portfolios = append(dist.Portfolios, portfolio.DistributionEntry{
			PortfolioID:   a.PortfolioID,
			PortfolioName: names[a.PortfolioID],
			Quantity:      a.Quantity,
			Amount:        a.Amount,
		})
	}

	if dist.TotalQuantity.IsPositive() {
		hundred := decimal.NewFromInt(100)
		for i := range dist.Portfolios {
			dist.Portfolios[i].Share = dist.Portfolios[i].Quantity.
				Div(dist.TotalQuantity).Mul(hundred).Round(2)
		}
	}
	return dist, nil
}

func (s *Service) invalidate(ctx context.Context, userID string) {
	_ = s.cache.Delete(ctx, listKey(userID))
}

// InvalidateList drops the user's cached portfolio list. Called by the
// transactions service after asset mutations.
func (s *Service) InvalidateList(ctx context.Context, userID string) {
	s.invalidate(ctx, userID)
}
