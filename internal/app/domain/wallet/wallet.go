// Package wallet defines user wallets, tracked separately from portfolios.
package wallet

import (
	"time"

	"github.com/shopspring/decimal"
)

// Wallet is a user-owned container of assets.
type Wallet struct {
	ID        string    `json:"id" db:"id"`
	UserID    string    `json:"user_id" db:"user_id"`
	Name      string    `json:"name" db:"name"`
	Comment   string    `json:"comment,omitempty" db:"comment"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`

	Assets []Asset `json:"assets" db:"-"`
}

// Asset is one tracked ticker inside a wallet.
type Asset struct {
	ID         string          `json:"id" db:"id"`
	WalletID   string          `json:"wallet_id" db:"wallet_id"`
	TickerID   string          `json:"ticker_id" db:"ticker_id"`
	Quantity   decimal.Decimal `json:"quantity" db:"quantity"`
	BuyOrders  decimal.Decimal `json:"buy_orders" db:"buy_orders"`
	SellOrders decimal.Decimal `json:"sell_orders" db:"sell_orders"`
	CreatedAt  time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at" db:"updated_at"`
}

// AssetDelta is an additive change applied to a wallet asset row.
type AssetDelta struct {
	Quantity   decimal.Decimal
	BuyOrders  decimal.Decimal
	SellOrders decimal.Decimal
}

// Neg returns the delta with every component negated.
func (d AssetDelta) Neg() AssetDelta {
	return AssetDelta{
		Quantity:   d.Quantity.Neg(),
		BuyOrders:  d.BuyOrders.Neg(),
		SellOrders: d.SellOrders.Neg(),
	}
}

// Add merges two deltas.
func (d AssetDelta) Add(other AssetDelta) AssetDelta {
	return AssetDelta{
		Quantity:   d.Quantity.Add(other.Quantity),
		BuyOrders:  d.BuyOrders.Add(other.BuyOrders),
		SellOrders: d.SellOrders.Add(other.SellOrders),
	}
}

// IsZero reports whether the delta changes nothing.
func (d AssetDelta) IsZero() bool {
	return d.Quantity.IsZero() && d.BuyOrders.IsZero() && d.SellOrders.IsZero()
}

// DistributionEntry is one wallet's share of a ticker across all of a user's
// wallets.
type DistributionEntry struct {
	WalletID   string          `json:"wallet_id"`
	WalletName string          `json:"wallet_name"`
	Quantity   decimal.Decimal `json:"quantity"`
	Share      decimal.Decimal `json:"percentage_of_total"`
}

// Distribution reports how a ticker is allocated across wallets.
type Distribution struct {
	TotalQuantity decimal.Decimal     `json:"total_quantity"`
	Wallets       []DistributionEntry `json:"wallets"`
}
