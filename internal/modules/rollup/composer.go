package rollup

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/ghostportfolio/server/internal/clients/coingecko"
	"github.com/ghostportfolio/server/internal/domain"
)

// guardEpsilon is the near-zero threshold for division denominators.
// Ledger amounts are integer cents and coin quantities user-submitted
// decimals; legitimate magnitudes below 1e-9 do not occur.
var guardEpsilon = decimal.New(1, -9)

// divisionSafe reports whether d can be used as a denominator.
func divisionSafe(d decimal.Decimal) bool {
	return d.Abs().GreaterThanOrEqual(guardEpsilon)
}

// Compose merges one position with its market quote into a rollup entry.
// Average price and P/L percent are nil when their denominator is (near)
// zero; the entry is still produced so fully-exited assets stay visible.
func Compose(
	pos domain.Position,
	identity coingecko.CatalogueEntry,
	quote domain.Quote,
	referencePrice decimal.Decimal,
	fiatRate decimal.Decimal,
) domain.RollupEntry {
	totalEquity := pos.Coins.Mul(quote.Price)
	profitLoss := totalEquity.Sub(pos.Cost)

	var averagePrice *decimal.Decimal
	if divisionSafe(pos.Coins) {
		avg := pos.Cost.DivRound(pos.Coins, 8)
		averagePrice = &avg
	}

	var profitLossPct *decimal.Decimal
	if divisionSafe(pos.Cost) {
		pct := profitLoss.DivRound(pos.Cost, 8).Mul(decimal.NewFromInt(100))
		profitLossPct = &pct
	}

	return domain.RollupEntry{
		Name:           pos.Asset,
		Symbol:         strings.ToUpper(identity.Symbol),
		Image:          identity.Image,
		LivePrice:      quote.Price,
		TotalEquity:    totalEquity,
		Coins:          pos.Coins,
		TotalCost:      pos.Cost,
		Variation24h:   quote.Change24h,
		AveragePrice:   averagePrice,
		ProfitLoss:     profitLoss,
		ProfitLossPct:  profitLossPct,
		ReferencePrice: referencePrice,
		FiatRate:       fiatRate,
		FiatEquity:     fiatRate.Mul(totalEquity),
	}
}
