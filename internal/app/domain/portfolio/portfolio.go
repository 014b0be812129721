// Package portfolio defines user portfolios and the assets held in them.
package portfolio

import (
	"time"

	"github.com/shopspring/decimal"
)

// Portfolio is a named collection of assets belonging to a user. Name is
// unique per user.
type Portfolio struct {
	ID        string    `json:"id" db:"id"`
	UserID    string    `json:"user_id" db:"user_id"`
	Name      string    `json:"name" db:"name"`
	Market    string    `json:"market" db:"market"`
	Comment   string    `json:"comment,omitempty" db:"comment"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`

	Assets []Asset `json:"assets" db:"-"`
}

// Asset is one tracked ticker inside a portfolio. Amount is the accumulated
// USD cost of the position; BuyOrders and SellOrders track pending orders.
type Asset struct {
	ID          string          `json:"id" db:"id"`
	PortfolioID string          `json:"portfolio_id" db:"portfolio_id"`
	TickerID    string          `json:"ticker_id" db:"ticker_id"`
	Quantity    decimal.Decimal `json:"quantity" db:"quantity"`
	Amount      decimal.Decimal `json:"amount" db:"amount"`
	BuyOrders   decimal.Decimal `json:"buy_orders" db:"buy_orders"`
	SellOrders  decimal.Decimal `json:"sell_orders" db:"sell_orders"`
	Comment     string          `json:"comment,omitempty" db:"comment"`
	CreatedAt   time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at" db:"updated_at"`
}

// AssetDelta is an additive change applied to an asset row. Missing rows are
// created on first application.
type AssetDelta struct {
	Quantity   decimal.Decimal
	Amount     decimal.Decimal
	BuyOrders  decimal.Decimal
	SellOrders decimal.Decimal
}

// Neg returns the delta with every component negated. Cancelling a
// transaction applies the negated deltas of its original application.
func (d AssetDelta) Neg() AssetDelta {
	return AssetDelta{
		Quantity:   d.Quantity.Neg(),
		Amount:     d.Amount.Neg(),
		BuyOrders:  d.BuyOrders.Neg(),
		SellOrders: d.SellOrders.Neg(),
	}
}

// Add merges two deltas.
func (d AssetDelta) Add(other AssetDelta) AssetDelta {
	return AssetDelta{
		Quantity:   d.Quantity.Add(other.Quantity),
		Amount:     d.Amount.Add(other.Amount),
		BuyOrders:  d.BuyOrders.Add(other.BuyOrders),
		SellOrders: d.SellOrders.Add(other.SellOrders),
	}
}

// IsZero reports whether the delta changes nothing.
func (d AssetDelta) IsZero() bool {
	return d.Quantity.IsZero() && d.Amount.IsZero() && d.BuyOrders.IsZero() && d.SellOrders.IsZero()
}

// DistributionEntry is one portfolio's share of a ticker across all of a
// user's portfolios.
type DistributionEntry struct {
	PortfolioID   string          `json:"portfolio_id"`
	PortfolioName string          `json:"portfolio_name"`
	Quantity      decimal.Decimal `json:"quantity"`
	Amount        decimal.Decimal `json:"amount"`
	Share         decimal.Decimal `json:"percentage_of_total"`
}

// Distribution reports how a ticker is allocated across portfolios.
type Distribution struct {
	TotalQuantity decimal.Decimal     `json:"total_quantity"`
	TotalAmount   decimal.Decimal     `json:"total_amount"`
	Portfolios    []DistributionEntry `json:"portfolios"`
}
