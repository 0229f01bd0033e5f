package rollup

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ghostportfolio/server/internal/domain"
)

func flow(asset string, kind domain.TransactionKind, amount, coins string) domain.AssetFlow {
	return domain.AssetFlow{
		Asset:  asset,
		Kind:   kind,
		Amount: decimal.RequireFromString(amount),
		Coins:  decimal.RequireFromString(coins),
	}
}

func TestAggregatePositions_BuysAndSells(t *testing.T) {
	flows := []domain.AssetFlow{
		flow("Bitcoin", domain.KindBuy, "200", "2"),
		flow("Bitcoin", domain.KindSell, "150", "1"),
	}

	positions := AggregatePositions(flows)

	require.Len(t, positions, 1)
	pos := positions["Bitcoin"]
	assert.True(t, pos.Coins.Equal(decimal.NewFromInt(1)), "coins: %s", pos.Coins)
	assert.True(t, pos.Cost.Equal(decimal.NewFromInt(50)), "cost: %s", pos.Cost)
}

func TestAggregatePositions_OrderIndependent(t *testing.T) {
	forward := []domain.AssetFlow{
		flow("Bitcoin", domain.KindBuy, "300.50", "3"),
		flow("Bitcoin", domain.KindSell, "100.25", "1"),
		flow("Ethereum", domain.KindBuy, "80", "4"),
	}
	reversed := []domain.AssetFlow{forward[2], forward[1], forward[0]}

	a := AggregatePositions(forward)
	b := AggregatePositions(reversed)

	require.Len(t, a, 2)
	require.Len(t, b, 2)
	for name := range a {
		assert.True(t, a[name].Coins.Equal(b[name].Coins), "coins differ for %s", name)
		assert.True(t, a[name].Cost.Equal(b[name].Cost), "cost differ for %s", name)
	}
}

func TestAggregatePositions_FullyExitedAssetRetained(t *testing.T) {
	flows := []domain.AssetFlow{
		flow("Bitcoin", domain.KindBuy, "100", "1"),
		flow("Bitcoin", domain.KindSell, "100", "1"),
	}

	positions := AggregatePositions(flows)

	require.Contains(t, positions, "Bitcoin")
	assert.True(t, positions["Bitcoin"].Coins.IsZero())
	assert.True(t, positions["Bitcoin"].Cost.IsZero())
}

func TestAggregatePositions_OversellGoesNegative(t *testing.T) {
	flows := []domain.AssetFlow{
		flow("Bitcoin", domain.KindBuy, "100", "1"),
		flow("Bitcoin", domain.KindSell, "300", "3"),
	}

	positions := AggregatePositions(flows)

	pos := positions["Bitcoin"]
	assert.True(t, pos.Coins.Equal(decimal.NewFromInt(-2)), "coins: %s", pos.Coins)
	assert.True(t, pos.Cost.Equal(decimal.NewFromInt(-200)), "cost: %s", pos.Cost)
}

func TestAggregatePositions_Empty(t *testing.T) {
	positions := AggregatePositions(nil)
	assert.Empty(t, positions)
}
