package rollup

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ghostportfolio/server/internal/clients/coingecko"
	"github.com/ghostportfolio/server/internal/domain"
)

var btcIdentity = coingecko.CatalogueEntry{
	ID:     "bitcoin",
	Name:   "Bitcoin",
	Symbol: "btc",
	Image:  "https://img.example/btc.png",
}

func TestCompose_ProfitableHolding(t *testing.T) {
	pos := domain.Position{
		Asset: "Bitcoin",
		Coins: decimal.NewFromInt(1),
		Cost:  decimal.NewFromInt(50),
	}
	quote := domain.Quote{
		Price:     decimal.NewFromInt(300),
		Change24h: decimal.RequireFromString("2.5"),
	}

	entry := Compose(pos, btcIdentity, quote, decimal.NewFromInt(300), decimal.RequireFromString("5.20"))

	assert.Equal(t, "Bitcoin", entry.Name)
	assert.Equal(t, "BTC", entry.Symbol)
	assert.Equal(t, "https://img.example/btc.png", entry.Image)
	assert.True(t, entry.TotalEquity.Equal(decimal.NewFromInt(300)), "equity: %s", entry.TotalEquity)
	assert.True(t, entry.ProfitLoss.Equal(decimal.NewFromInt(250)), "p/l: %s", entry.ProfitLoss)

	require.NotNil(t, entry.AveragePrice)
	assert.True(t, entry.AveragePrice.Equal(decimal.NewFromInt(50)), "avg: %s", entry.AveragePrice)

	require.NotNil(t, entry.ProfitLossPct)
	assert.True(t, entry.ProfitLossPct.Equal(decimal.NewFromInt(500)), "pct: %s", entry.ProfitLossPct)

	assert.True(t, entry.FiatEquity.Equal(decimal.RequireFromString("1560")), "fiat: %s", entry.FiatEquity)
}

func TestCompose_ZeroCoinsNilAveragePrice(t *testing.T) {
	pos := domain.Position{
		Asset: "Bitcoin",
		Coins: decimal.Zero,
		Cost:  decimal.NewFromInt(10),
	}
	quote := domain.Quote{Price: decimal.NewFromInt(100)}

	entry := Compose(pos, btcIdentity, quote, decimal.Zero, decimal.Zero)

	assert.Nil(t, entry.AveragePrice)
	require.NotNil(t, entry.ProfitLossPct)
	assert.True(t, entry.TotalEquity.IsZero())
	assert.True(t, entry.ProfitLoss.Equal(decimal.NewFromInt(-10)))
}

func TestCompose_ZeroCostNilProfitLossPct(t *testing.T) {
	pos := domain.Position{
		Asset: "Bitcoin",
		Coins: decimal.NewFromInt(2),
		Cost:  decimal.Zero,
	}
	quote := domain.Quote{Price: decimal.NewFromInt(100)}

	entry := Compose(pos, btcIdentity, quote, decimal.Zero, decimal.Zero)

	assert.Nil(t, entry.ProfitLossPct)
	require.NotNil(t, entry.AveragePrice)
	assert.True(t, entry.AveragePrice.IsZero())
}

func TestCompose_NearZeroDenominatorsGuarded(t *testing.T) {
	pos := domain.Position{
		Asset: "Bitcoin",
		Coins: decimal.RequireFromString("0.0000000001"), // below the guard threshold
		Cost:  decimal.RequireFromString("-0.0000000001"),
	}
	quote := domain.Quote{Price: decimal.NewFromInt(100)}

	entry := Compose(pos, btcIdentity, quote, decimal.Zero, decimal.Zero)

	assert.Nil(t, entry.AveragePrice)
	assert.Nil(t, entry.ProfitLossPct)
}

func TestCompose_NegativePosition(t *testing.T) {
	pos := domain.Position{
		Asset: "Bitcoin",
		Coins: decimal.NewFromInt(-2),
		Cost:  decimal.NewFromInt(-200),
	}
	quote := domain.Quote{Price: decimal.NewFromInt(100)}

	entry := Compose(pos, btcIdentity, quote, decimal.Zero, decimal.NewFromInt(5))

	assert.True(t, entry.TotalEquity.Equal(decimal.NewFromInt(-200)))
	assert.True(t, entry.ProfitLoss.IsZero())
	require.NotNil(t, entry.AveragePrice)
	assert.True(t, entry.AveragePrice.Equal(decimal.NewFromInt(100)))
	assert.True(t, entry.FiatEquity.Equal(decimal.NewFromInt(-1000)))
}

func TestDivisionSafe(t *testing.T) {
	assert.True(t, divisionSafe(decimal.NewFromInt(1)))
	assert.True(t, divisionSafe(decimal.NewFromInt(-1)))
	assert.True(t, divisionSafe(decimal.RequireFromString("0.000000001"))) // exactly the threshold
	assert.False(t, divisionSafe(decimal.Zero))
	assert.False(t, divisionSafe(decimal.RequireFromString("0.0000000009")))
	assert.False(t, divisionSafe(decimal.RequireFromString("-0.0000000009")))
}
