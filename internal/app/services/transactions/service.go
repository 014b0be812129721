// Package transactions records transactions and keeps portfolio and wallet
// holdings consistent with them.
package transactions

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/bro-Nik/portfolio-backend/internal/app/domain/portfolio"
	"github.com/bro-Nik/portfolio-backend/internal/app/domain/transaction"
	"github.com/bro-Nik/portfolio-backend/internal/app/domain/wallet"
	"github.com/bro-Nik/portfolio-backend/internal/app/storage"
)

// ErrNoContainer is returned when a transaction references neither a
// portfolio nor a wallet.
var ErrNoContainer = errors.New("transaction needs a portfolio or wallet")

// Invalidator drops a user's cached list after holdings change.
type Invalidator interface {
	InvalidateList(ctx context.Context, userID string)
}

// Service records transactions and applies their holding updates.
type Service struct {
	store      storage.TransactionStore
	portfolios storage.PortfolioStore
	wallets    storage.WalletStore

	portfolioCache Invalidator
	walletCache    Invalidator
}

// NewService creates a Service. The invalidators may be nil.
func NewService(store storage.TransactionStore, portfolios storage.PortfolioStore, wallets storage.WalletStore, portfolioCache, walletCache Invalidator) *Service {
	return &Service{
		store:          store,
		portfolios:     portfolios,
		wallets:        wallets,
		portfolioCache: portfolioCache,
		walletCache:    walletCache,
	}
}

// Input carries the client-supplied fields of a transaction.
type Input struct {
	Date           time.Time
	Kind           transaction.Kind
	TickerID       string
	Ticker2ID      string
	Quantity       decimal.Decimal
	Quantity2      decimal.Decimal
	Price          decimal.Decimal
	Ticker2Price   decimal.Decimal // USD rate of the quote ticker
	Comment        string
	PortfolioID    string
	Portfolio2     string
	WalletID       string
	Wallet2        string
	Order          bool
}

// Result is a recorded transaction together with the refreshed holdings it
// touched.
type Result struct {
	Transaction     transaction.Transaction  `json:"transaction"`
	Related         *transaction.Transaction `json:"related_transaction,omitempty"`
	PortfolioAssets []portfolio.Asset        `json:"portfolio_assets"`
	WalletAssets    []wallet.Asset           `json:"wallet_assets"`
}

// Create records a transaction and applies its holding updates. Transfers
// get a mirrored related transaction on the counterpart container.
func (s *Service) Create(ctx context.Context, userID string, in Input) (Result, error) {
	t := fromInput(userID, in)
	if err := t.Normalize(in.Ticker2Price); err != nil {
		return Result{}, err
	}
	if err := s.validateContainers(ctx, userID, t); err != nil {
		return Result{}, err
	}

	t, err := s.store.CreateTransaction(ctx, t)
	if err != nil {
		return Result{}, err
	}

	applied := []transaction.Transaction{t}
	var related *transaction.Transaction
	if t.Kind.Transfer() && (t.Portfolio2 != "" || t.Wallet2 != "") {
		mirror, err := s.createMirror(ctx, &t)
		if err != nil {
			return Result{}, err
		}
		related = &mirror
		applied = append(applied, mirror)
	}

	for _, tx := range applied {
		if err := s.apply(ctx, tx, false); err != nil {
			return Result{}, err
		}
	}

	s.invalidate(ctx, userID)
	return s.result(ctx, t, related, applied...)
}

// Update rewrites a transaction: the old holding updates are cancelled, the
// old mirror removed, and the new values applied from scratch.
func (s *Service) Update(ctx context.Context, userID, id string, in Input) (Result, error) {
	old, err := s.owned(ctx, userID, id)
	if err != nil {
		return Result{}, err
	}

	// Validate the replacement before touching holdings so a bad payload
	// cannot leave the old transaction half cancelled.
	t := fromInput(userID, in)
	t.ID = old.ID
	t.CreatedAt = old.CreatedAt
	if err := t.Normalize(in.Ticker2Price); err != nil {
		return Result{}, err
	}
	if err := s.validateContainers(ctx, userID, t); err != nil {
		return Result{}, err
	}

	touched := []transaction.Transaction{old}
	if err := s.apply(ctx, old, true); err != nil {
		return Result{}, err
	}
	if oldMirror, err := s.cancelMirror(ctx, old); err != nil {
		return Result{}, err
	} else if oldMirror != nil {
		touched = append(touched, *oldMirror)
	}

	t.RelatedID = ""
	t, err = s.store.UpdateTransaction(ctx, t)
	if err != nil {
		return Result{}, err
	}

	applied := []transaction.Transaction{t}
	var related *transaction.Transaction
	if t.Kind.Transfer() && (t.Portfolio2 != "" || t.Wallet2 != "") {
		mirror, err := s.createMirror(ctx, &t)
		if err != nil {
			return Result{}, err
		}
		related = &mirror
		applied = append(applied, mirror)
	}

	for _, tx := range applied {
		if err := s.apply(ctx, tx, false); err != nil {
			return Result{}, err
		}
	}

	s.invalidate(ctx, userID)
	touched = append(touched, applied...)
	return s.result(ctx, t, related, touched...)
}

// Delete removes a transaction and cancels its holding updates, together
// with its mirrored side if any.
func (s *Service) Delete(ctx context.Context, userID, id string) (Result, error) {
	t, err := s.owned(ctx, userID, id)
	if err != nil {
		return Result{}, err
	}

	touched := []transaction.Transaction{t}
	if err := s.apply(ctx, t, true); err != nil {
		return Result{}, err
	}
	if mirror, err := s.cancelMirror(ctx, t); err != nil {
		return Result{}, err
	} else if mirror != nil {
		touched = append(touched, *mirror)
	}

	if err := s.store.DeleteTransaction(ctx, id); err != nil {
		return Result{}, err
	}

	s.invalidate(ctx, userID)
	return s.result(ctx, t, nil, touched...)
}

// UsedTickers returns the distinct tickers held in any portfolio or wallet.
func (s *Service) UsedTickers(ctx context.Context) ([]string, error) {
	tickers, err := s.store.ListUsedTickers(ctx)
	if err != nil {
		return nil, err
	}
	if tickers == nil {
		tickers = []string{}
	}
	return tickers, nil
}

func fromInput(userID string, in Input) transaction.Transaction {
	return transaction.Transaction{
		UserID:      userID,
		Date:        in.Date,
		Kind:        in.Kind,
		TickerID:    in.TickerID,
		Ticker2ID:   in.Ticker2ID,
		Quantity:    in.Quantity,
		Quantity2:   in.Quantity2,
		Price:       in.Price,
		Comment:     in.Comment,
		PortfolioID: in.PortfolioID,
		Portfolio2:  in.Portfolio2,
		WalletID:    in.WalletID,
		Wallet2:     in.Wallet2,
		Order:       in.Order,
	}
}

func (s *Service) owned(ctx context.Context, userID, id string) (transaction.Transaction, error) {
	t, err := s.store.GetTransaction(ctx, id)
	if err != nil {
		return transaction.Transaction{}, err
	}
	if t.UserID != userID {
		return transaction.Transaction{}, storage.ErrNotFound
	}
	return t, nil
}

// validateContainers checks that every referenced portfolio and wallet
// exists and belongs to the user.
func (s *Service) validateContainers(ctx context.Context, userID string, t transaction.Transaction) error {
	if t.PortfolioID == "" && t.Portfolio2 == "" && t.WalletID == "" && t.Wallet2 == "" {
		return ErrNoContainer
	}

	for _, id := range []string{t.PortfolioID, t.Portfolio2} {
		if id == "" {
			continue
		}
		p, err := s.portfolios.GetPortfolio(ctx, id)
		if err != nil {
			return err
		}
		if p.UserID != userID {
			return storage.ErrNotFound
		}
	}
	for _, id := range []string{t.WalletID, t.Wallet2} {
		if id == "" {
			continue
		}
		w, err := s.wallets.GetWallet(ctx, id)
		if err != nil {
			return err
		}
		if w.UserID != userID {
			return storage.ErrNotFound
		}
	}
	return nil
}

// createMirror records the counterpart transaction of a transfer on the
// other container and links both sides.
func (s *Service) createMirror(ctx context.Context, t *transaction.Transaction) (transaction.Transaction, error) {
	mirror := transaction.Transaction{
		UserID:      t.UserID,
		Date:        t.Date,
		Kind:        t.Kind.Mirror(),
		TickerID:    t.TickerID,
		Quantity:    t.Quantity.Neg(),
		Comment:     t.Comment,
		PortfolioID: t.Portfolio2,
		Portfolio2:  t.PortfolioID,
		WalletID:    t.Wallet2,
		Wallet2:     t.WalletID,
		RelatedID:   t.ID,
	}

	mirror, err := s.store.CreateTransaction(ctx, mirror)
	if err != nil {
		return transaction.Transaction{}, err
	}

	t.RelatedID = mirror.ID
	updated, err := s.store.UpdateTransaction(ctx, *t)
	if err != nil {
		return transaction.Transaction{}, err
	}
	*t = updated
	return mirror, nil
}

// cancelMirror reverses and removes the mirrored side of t, if it has one.
func (s *Service) cancelMirror(ctx context.Context, t transaction.Transaction) (*transaction.Transaction, error) {
	if t.RelatedID == "" {
		return nil, nil
	}

	mirror, err := s.store.GetTransaction(ctx, t.RelatedID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if err := s.apply(ctx, mirror, true); err != nil {
		return nil, err
	}
	if err := s.store.DeleteTransaction(ctx, mirror.ID); err != nil {
		return nil, err
	}
	return &mirror, nil
}

// apply adjusts the holdings touched by t. With cancel set, every delta is
// negated, reversing an earlier apply.
func (s *Service) apply(ctx context.Context, t transaction.Transaction, cancel bool) error {
	pDeltas, wDeltas := holdingDeltas(t)

	for ref, d := range pDeltas {
		if cancel {
			d = d.Neg()
		}
		if _, err := s.portfolios.ApplyPortfolioAssetDelta(ctx, ref.ContainerID, ref.TickerID, d); err != nil {
			return err
		}
	}
	for ref, d := range wDeltas {
		if cancel {
			d = d.Neg()
		}
		if _, err := s.wallets.ApplyWalletAssetDelta(ctx, ref.ContainerID, ref.TickerID, d); err != nil {
			return err
		}
	}
	return nil
}

// holdingDeltas computes the per-asset adjustments for t. Quantities are
// already signed by Normalize, so the same deltas serve both directions.
func holdingDeltas(t transaction.Transaction) (map[transaction.AssetRef]portfolio.AssetDelta, map[transaction.AssetRef]wallet.AssetDelta) {
	pDeltas := map[transaction.AssetRef]portfolio.AssetDelta{}
	wDeltas := map[transaction.AssetRef]wallet.AssetDelta{}

	addPortfolio := func(containerID, tickerID string, d portfolio.AssetDelta) {
		if containerID == "" || tickerID == "" || d.IsZero() {
			return
		}
		ref := transaction.AssetRef{ContainerID: containerID, TickerID: tickerID}
		pDeltas[ref] = pDeltas[ref].Add(d)
	}
	addWallet := func(containerID, tickerID string, d wallet.AssetDelta) {
		if containerID == "" || tickerID == "" || d.IsZero() {
			return
		}
		ref := transaction.AssetRef{ContainerID: containerID, TickerID: tickerID}
		wDeltas[ref] = wDeltas[ref].Add(d)
	}

	switch {
	case t.Kind.Trade() && t.Order:
		// Pending orders reserve value without touching holdings. A buy
		// reserves the base cost in USD and the quote quantity; a sell
		// reserves only the base quantity.
		if t.Kind == transaction.KindBuy {
			cost := t.Quantity.Mul(t.PriceUSD)
			addPortfolio(t.PortfolioID, t.TickerID, portfolio.AssetDelta{BuyOrders: cost})
			addPortfolio(t.PortfolioID, t.Ticker2ID, portfolio.AssetDelta{SellOrders: t.Quantity2.Neg()})
			addWallet(t.WalletID, t.TickerID, wallet.AssetDelta{BuyOrders: cost})
			addWallet(t.WalletID, t.Ticker2ID, wallet.AssetDelta{SellOrders: t.Quantity2.Neg()})
		} else {
			addPortfolio(t.PortfolioID, t.TickerID, portfolio.AssetDelta{SellOrders: t.Quantity.Neg()})
			addWallet(t.WalletID, t.TickerID, wallet.AssetDelta{SellOrders: t.Quantity.Neg()})
		}

	case t.Kind.Trade():
		addPortfolio(t.PortfolioID, t.TickerID, portfolio.AssetDelta{
			Quantity: t.Quantity,
			Amount:   t.Quantity.Mul(t.PriceUSD),
		})
		addPortfolio(t.PortfolioID, t.Ticker2ID, portfolio.AssetDelta{
			Quantity: t.Quantity2,
			Amount:   t.Quantity2,
		})
		addWallet(t.WalletID, t.TickerID, wallet.AssetDelta{Quantity: t.Quantity})
		addWallet(t.WalletID, t.Ticker2ID, wallet.AssetDelta{Quantity: t.Quantity2})

	case t.Kind == transaction.KindEarning:
		addPortfolio(t.PortfolioID, t.TickerID, portfolio.AssetDelta{Quantity: t.Quantity})
		addWallet(t.WalletID, t.TickerID, wallet.AssetDelta{Quantity: t.Quantity})

	case t.Kind.Transfer():
		// Portfolio cost moves with the quantity on transfers.
		addPortfolio(t.PortfolioID, t.TickerID, portfolio.AssetDelta{Quantity: t.Quantity, Amount: t.Quantity})
		addWallet(t.WalletID, t.TickerID, wallet.AssetDelta{Quantity: t.Quantity})

	default: // Input, Output
		addWallet(t.WalletID, t.TickerID, wallet.AssetDelta{Quantity: t.Quantity})
	}

	return pDeltas, wDeltas
}

// result loads the refreshed rows of every holding the given transactions
// touched.
func (s *Service) result(ctx context.Context, t transaction.Transaction, related *transaction.Transaction, touched ...transaction.Transaction) (Result, error) {
	res := Result{
		Transaction:     t,
		Related:         related,
		PortfolioAssets: []portfolio.Asset{},
		WalletAssets:    []wallet.Asset{},
	}

	for _, ref := range transaction.AffectedPortfolioAssets(touched...) {
		a, err := s.portfolios.FindPortfolioAsset(ctx, ref.ContainerID, ref.TickerID)
		if errors.Is(err, storage.ErrNotFound) {
			continue
		}
		if err != nil {
			return Result{}, err
		}
		res.PortfolioAssets = append(res.PortfolioAssets, a)
	}
	for _, ref := range transaction.AffectedWalletAssets(touched...) {
		a, err := s.wallets.FindWalletAsset(ctx, ref.ContainerID, ref.TickerID)
		if errors.Is(err, storage.ErrNotFound) {
			continue
		}
		if err != nil {
			return Result{}, err
		}
		res.WalletAssets = append(res.WalletAssets, a)
	}
	return res, nil
}

func (s *Service) invalidate(ctx context.Context, userID string) {
	if s.portfolioCache != nil {
		s.portfolioCache.InvalidateList(ctx, userID)
	}
	if s.walletCache != nil {
		s.walletCache.InvalidateList(ctx, userID)
	}
}
