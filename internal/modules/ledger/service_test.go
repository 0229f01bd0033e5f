package ledger

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ghostportfolio/server/internal/domain"
)

func setupService(t *testing.T) *Service {
	t.Helper()
	db := setupTestDB(t)
	repo := NewRepository(db.Conn(), zerolog.Nop())
	return NewService(repo, zerolog.Nop())
}

func buyInput(asset string, amountCents int64, price, coins string) CreateInput {
	return CreateInput{
		Asset:       asset,
		Kind:        domain.KindBuy,
		AmountCents: amountCents,
		Price:       decimal.RequireFromString(price),
		Coins:       decimal.RequireFromString(coins),
	}
}

func TestService_CreateBuy(t *testing.T) {
	svc := setupService(t)

	tx, err := svc.Create(context.Background(), "user-1", buyInput("Bitcoin", 20000, "100", "2"))

	require.NoError(t, err)
	assert.NotEmpty(t, tx.ID)
	assert.NotContains(t, tx.ID, "-")
	assert.Equal(t, "Bitcoin", tx.Asset)
	assert.Equal(t, domain.KindBuy, tx.Kind)
	assert.True(t, tx.Price.Equal(decimal.NewFromInt(100)))
}

func TestService_SellRecordsWeightedAveragePrice(t *testing.T) {
	svc := setupService(t)
	ctx := context.Background()

	// 1.5 coins @ 100 and 0.5 coins @ 300: average = (150+150)/2 = 150
	_, err := svc.Create(ctx, "user-1", buyInput("Bitcoin", 15000, "100", "1.5"))
	require.NoError(t, err)
	_, err = svc.Create(ctx, "user-1", buyInput("Bitcoin", 15000, "300", "0.5"))
	require.NoError(t, err)

	sell, err := svc.Create(ctx, "user-1", CreateInput{
		Asset:       "Bitcoin",
		Kind:        domain.KindSell,
		AmountCents: 10000,
		Price:       decimal.NewFromInt(999), // submitted price is ignored for sells
		Coins:       decimal.NewFromInt(1),
	})

	require.NoError(t, err)
	assert.True(t, sell.Price.Equal(decimal.NewFromInt(150)), "price: %s", sell.Price)
}

func TestService_SellAverageIgnoresOtherAssets(t *testing.T) {
	svc := setupService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, "user-1", buyInput("Bitcoin", 10000, "100", "1"))
	require.NoError(t, err)
	_, err = svc.Create(ctx, "user-1", buyInput("Ethereum", 4000, "20", "2"))
	require.NoError(t, err)

	sell, err := svc.Create(ctx, "user-1", CreateInput{
		Asset:       "Ethereum",
		Kind:        domain.KindSell,
		AmountCents: 2000,
		Coins:       decimal.NewFromInt(1),
	})

	require.NoError(t, err)
	assert.True(t, sell.Price.Equal(decimal.NewFromInt(20)), "price: %s", sell.Price)
}

func TestService_SellWithoutHoldings(t *testing.T) {
	svc := setupService(t)

	_, err := svc.Create(context.Background(), "user-1", CreateInput{
		Asset:       "Bitcoin",
		Kind:        domain.KindSell,
		AmountCents: 100,
		Coins:       decimal.NewFromInt(1),
	})

	require.ErrorIs(t, err, ErrNoHoldings)
}

func TestService_SellAverageScopedToUser(t *testing.T) {
	svc := setupService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, "user-1", buyInput("Bitcoin", 10000, "100", "1"))
	require.NoError(t, err)

	// A different user has no holdings even though user-1 does
	_, err = svc.Create(ctx, "user-2", CreateInput{
		Asset:       "Bitcoin",
		Kind:        domain.KindSell,
		AmountCents: 100,
		Coins:       decimal.NewFromInt(1),
	})

	require.ErrorIs(t, err, ErrNoHoldings)
}

func TestService_CreateValidation(t *testing.T) {
	svc := setupService(t)
	ctx := context.Background()

	cases := []struct {
		name  string
		input CreateInput
	}{
		{"empty asset", buyInput("  ", 100, "1", "1")},
		{"bad kind", CreateInput{Asset: "Bitcoin", Kind: "HOLD", AmountCents: 100, Coins: decimal.NewFromInt(1)}},
		{"zero amount", buyInput("Bitcoin", 0, "1", "1")},
		{"negative amount", buyInput("Bitcoin", -5, "1", "1")},
		{"zero coins", buyInput("Bitcoin", 100, "1", "0")},
		{"negative coins", buyInput("Bitcoin", 100, "1", "-1")},
		{"negative price", buyInput("Bitcoin", 100, "-1", "1")},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Create(ctx, "user-1", tc.input)
			assert.Error(t, err)
		})
	}
}

func TestService_DeleteRequiresAsset(t *testing.T) {
	svc := setupService(t)

	_, err := svc.Delete(context.Background(), "user-1", "   ")
	assert.Error(t, err)
}
