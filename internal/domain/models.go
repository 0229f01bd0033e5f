// Package domain contains the core data model for GhostPortfolio.
// The domain layer is pure: no database, HTTP, or logging dependencies.
package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransactionKind distinguishes buys from sells in the ledger.
type TransactionKind string

const (
	KindBuy  TransactionKind = "BUY"
	KindSell TransactionKind = "SELL"
)

// Valid reports whether the kind is one of the two known values.
func (k TransactionKind) Valid() bool {
	return k == KindBuy || k == KindSell
}

// Transaction is a single immutable ledger record. Amounts are stored as
// integer cents; unit price and coin quantity are exact decimals.
type Transaction struct {
	ID          string          `json:"id"`
	Asset       string          `json:"name"`
	Kind        TransactionKind `json:"kind"`
	AmountCents int64           `json:"amount"`
	Price       decimal.Decimal `json:"price_purchased_at"`
	Coins       decimal.Decimal `json:"no_of_coins"`
	UserID      string          `json:"-"`
	CreatedAt   time.Time       `json:"created_at"`
}

// Amount returns the transaction amount in currency units.
func (t Transaction) Amount() decimal.Decimal {
	return decimal.New(t.AmountCents, -2)
}

// AssetFlow is one aggregated ledger row: the summed amount and coin
// quantity for a (asset, kind) pair. Amount is in currency units, not cents.
type AssetFlow struct {
	Asset  string
	Kind   TransactionKind
	Amount decimal.Decimal
	Coins  decimal.Decimal
}

// Position is a user's derived net holding in one asset. Never persisted;
// recomputed from the full transaction history on every rollup request.
// Coins may be negative when recorded sells exceed recorded buys.
type Position struct {
	Asset string
	Coins decimal.Decimal
	Cost  decimal.Decimal
}

// Quote is a live market quote for one asset, fetched fresh per request.
type Quote struct {
	Price     decimal.Decimal
	Change24h decimal.Decimal
}

// MarketData is everything the rollup needs from the outside world for one
// request: per-asset quotes plus the shared reference-asset price and fiat
// conversion rate.
type MarketData struct {
	Quotes         map[string]Quote // keyed by feed id
	ReferencePrice decimal.Decimal
	FiatRate       decimal.Decimal
}

// RollupEntry is the market-enriched view of one position. JSON field names
// match the wire format consumed by the frontend. AveragePrice and
// ProfitLossPct are nil when the corresponding denominator is zero; they
// serialize as null rather than propagating a division fault.
type RollupEntry struct {
	Name           string           `json:"name"`
	Symbol         string           `json:"symbol"`
	Image          string           `json:"image"`
	LivePrice      decimal.Decimal  `json:"live_price"`
	TotalEquity    decimal.Decimal  `json:"total_equity"`
	Coins          decimal.Decimal  `json:"coins"`
	TotalCost      decimal.Decimal  `json:"total_cost"`
	Variation24h   decimal.Decimal  `json:"variation24h"`
	AveragePrice   *decimal.Decimal `json:"average_p"`
	ProfitLoss     decimal.Decimal  `json:"p_l"`
	ProfitLossPct  *decimal.Decimal `json:"p_l_p"`
	ReferencePrice decimal.Decimal  `json:"bitcoin_lp"`
	FiatRate       decimal.Decimal  `json:"usd_cot"`
	FiatEquity     decimal.Decimal  `json:"brl_conv_total"`
}

// User is an account holder. PasswordHash always holds a bcrypt hash, never
// a plaintext password.
type User struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Surname      string    `json:"surname"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}
