// Package transaction defines recorded buy/sell/transfer events and the sign
// conventions applied to them before they touch any holdings.
package transaction

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// Kind enumerates the supported transaction kinds.
type Kind string

const (
	KindBuy         Kind = "Buy"
	KindSell        Kind = "Sell"
	KindInput       Kind = "Input"
	KindOutput      Kind = "Output"
	KindEarning     Kind = "Earning"
	KindTransferIn  Kind = "TransferIn"
	KindTransferOut Kind = "TransferOut"
)

// ErrUnknownKind is returned when a transaction carries an unsupported kind.
var ErrUnknownKind = errors.New("unknown transaction kind")

// Valid reports whether k is one of the supported kinds.
func (k Kind) Valid() bool {
	switch k {
	case KindBuy, KindSell, KindInput, KindOutput, KindEarning, KindTransferIn, KindTransferOut:
		return true
	}
	return false
}

// Trade reports whether k is an executed or pending trade.
func (k Kind) Trade() bool {
	return k == KindBuy || k == KindSell
}

// Transfer reports whether k moves holdings between containers.
func (k Kind) Transfer() bool {
	return k == KindTransferIn || k == KindTransferOut
}

// Mirror returns the opposite side of a transfer kind.
func (k Kind) Mirror() Kind {
	switch k {
	case KindTransferIn:
		return KindTransferOut
	case KindTransferOut:
		return KindTransferIn
	}
	return k
}

// Direction returns +1 for kinds that add to holdings and -1 for kinds that
// remove from them.
func (k Kind) Direction() decimal.Decimal {
	switch k {
	case KindBuy, KindInput, KindTransferIn, KindEarning:
		return decimal.NewFromInt(1)
	}
	return decimal.NewFromInt(-1)
}

// Transaction is a recorded event affecting portfolio and wallet holdings.
// Quantity and Quantity2 are stored signed: after Normalize the base leg
// carries the kind's direction and the quote leg the opposite sign.
type Transaction struct {
	ID          string          `json:"id" db:"id"`
	UserID      string          `json:"user_id" db:"user_id"`
	Date        time.Time       `json:"date" db:"date"`
	Kind        Kind            `json:"type" db:"kind"`
	TickerID    string          `json:"ticker_id" db:"ticker_id"`
	Ticker2ID   string          `json:"ticker2_id,omitempty" db:"ticker2_id"`
	Quantity    decimal.Decimal `json:"quantity" db:"quantity"`
	Quantity2   decimal.Decimal `json:"quantity2" db:"quantity2"`
	Price       decimal.Decimal `json:"price" db:"price"`
	PriceUSD    decimal.Decimal `json:"price_usd" db:"price_usd"`
	Comment     string          `json:"comment,omitempty" db:"comment"`
	PortfolioID string          `json:"portfolio_id,omitempty" db:"portfolio_id"`
	Portfolio2  string          `json:"portfolio2_id,omitempty" db:"portfolio2_id"`
	WalletID    string          `json:"wallet_id,omitempty" db:"wallet_id"`
	Wallet2     string          `json:"wallet2_id,omitempty" db:"wallet2_id"`
	Order       bool            `json:"order" db:"is_order"`
	RelatedID   string          `json:"related_transaction_id,omitempty" db:"related_id"`
	CreatedAt   time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at" db:"updated_at"`
}

// Normalize applies the sign conventions for the transaction kind.
// quotePriceUSD is the USD rate of the quote ticker and is only consulted for
// trades, where the recorded USD price is price x quote rate.
func (t *Transaction) Normalize(quotePriceUSD decimal.Decimal) error {
	if !t.Kind.Valid() {
		return ErrUnknownKind
	}

	dir := t.Kind.Direction()
	switch {
	case t.Kind.Trade():
		t.PriceUSD = t.Price.Mul(quotePriceUSD)
		t.Quantity = t.Quantity.Abs().Mul(dir)
		t.Quantity2 = t.Quantity2.Abs().Mul(dir.Neg())
	default:
		t.Quantity = t.Quantity.Abs().Mul(dir)
		t.Quantity2 = decimal.Zero
	}
	return nil
}
