// Package rollup computes the market-enriched view of a user's holdings.
// It folds the transaction trail into per-asset positions, joins them with
// live market data, and derives cost basis, equity, and profit/loss.
package rollup

import (
	"github.com/ghostportfolio/server/internal/domain"
)

// AggregatePositions folds aggregated ledger flows into per-asset running
// positions. BUY adds amount to cost and quantity to coins; SELL subtracts
// both. The fold is order-independent and applies no floor: a position goes
// negative when recorded sells exceed recorded buys, and that is surfaced
// as-is rather than rejected here.
func AggregatePositions(flows []domain.AssetFlow) map[string]domain.Position {
	positions := make(map[string]domain.Position)

	for _, flow := range flows {
		pos, ok := positions[flow.Asset]
		if !ok {
			pos = domain.Position{Asset: flow.Asset}
		}

		switch flow.Kind {
		case domain.KindBuy:
			pos.Cost = pos.Cost.Add(flow.Amount)
			pos.Coins = pos.Coins.Add(flow.Coins)
		case domain.KindSell:
			pos.Cost = pos.Cost.Sub(flow.Amount)
			pos.Coins = pos.Coins.Sub(flow.Coins)
		}

		positions[flow.Asset] = pos
	}

	return positions
}
