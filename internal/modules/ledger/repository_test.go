package ledger

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ghostportfolio/server/internal/database"
	"github.com/ghostportfolio/server/internal/domain"
)

func setupTestDB(t *testing.T) *database.DB {
	t.Helper()

	db, err := database.New(database.Config{
		Path:    filepath.Join(t.TempDir(), "ledger.db"),
		Profile: database.ProfileLedger,
		Name:    "ledger",
	})
	require.NoError(t, err)
	require.NoError(t, db.Migrate())
	t.Cleanup(func() { db.Close() })

	return db
}

func testTransaction(id, userID, asset string, kind domain.TransactionKind, amountCents int64, price, coins string) domain.Transaction {
	return domain.Transaction{
		ID:          id,
		Asset:       asset,
		Kind:        kind,
		AmountCents: amountCents,
		Price:       decimal.RequireFromString(price),
		Coins:       decimal.RequireFromString(coins),
		UserID:      userID,
		CreatedAt:   time.Now().UTC(),
	}
}

func TestRepository_InsertAndList(t *testing.T) {
	db := setupTestDB(t)
	repo := NewRepository(db.Conn(), zerolog.Nop())
	ctx := context.Background()

	tx := testTransaction("tx1", "user-1", "Bitcoin", domain.KindBuy, 20000, "100.50", "2")
	require.NoError(t, repo.Insert(ctx, tx))

	transactions, err := repo.ListByUser(ctx, "user-1")
	require.NoError(t, err)
	require.Len(t, transactions, 1)

	got := transactions[0]
	assert.Equal(t, "tx1", got.ID)
	assert.Equal(t, "Bitcoin", got.Asset)
	assert.Equal(t, domain.KindBuy, got.Kind)
	assert.Equal(t, int64(20000), got.AmountCents)
	assert.True(t, got.Price.Equal(decimal.RequireFromString("100.50")))
	assert.True(t, got.Coins.Equal(decimal.NewFromInt(2)))
	assert.True(t, got.Amount().Equal(decimal.NewFromInt(200)))
}

func TestRepository_ListScopedToUser(t *testing.T) {
	db := setupTestDB(t)
	repo := NewRepository(db.Conn(), zerolog.Nop())
	ctx := context.Background()

	require.NoError(t, repo.Insert(ctx, testTransaction("tx1", "user-1", "Bitcoin", domain.KindBuy, 100, "1", "1")))
	require.NoError(t, repo.Insert(ctx, testTransaction("tx2", "user-2", "Bitcoin", domain.KindBuy, 200, "2", "2")))

	transactions, err := repo.ListByUser(ctx, "user-1")
	require.NoError(t, err)
	require.Len(t, transactions, 1)
	assert.Equal(t, "tx1", transactions[0].ID)
}

func TestRepository_SumByAssetAndKind(t *testing.T) {
	db := setupTestDB(t)
	repo := NewRepository(db.Conn(), zerolog.Nop())
	ctx := context.Background()

	require.NoError(t, repo.Insert(ctx, testTransaction("tx1", "user-1", "Bitcoin", domain.KindBuy, 10000, "50", "1.5")))
	require.NoError(t, repo.Insert(ctx, testTransaction("tx2", "user-1", "Bitcoin", domain.KindBuy, 10000, "200", "0.5")))
	require.NoError(t, repo.Insert(ctx, testTransaction("tx3", "user-1", "Bitcoin", domain.KindSell, 5000, "100", "1")))
	require.NoError(t, repo.Insert(ctx, testTransaction("tx4", "user-1", "Ethereum", domain.KindBuy, 8000, "20", "4")))

	flows, err := repo.SumByAssetAndKind(ctx, "user-1")
	require.NoError(t, err)
	require.Len(t, flows, 3)

	byKey := make(map[string]domain.AssetFlow)
	for _, f := range flows {
		byKey[f.Asset+"/"+string(f.Kind)] = f
	}

	buy := byKey["Bitcoin/BUY"]
	assert.True(t, buy.Amount.Equal(decimal.NewFromInt(200)), "buy amount: %s", buy.Amount)
	assert.True(t, buy.Coins.Equal(decimal.NewFromInt(2)), "buy coins: %s", buy.Coins)

	sell := byKey["Bitcoin/SELL"]
	assert.True(t, sell.Amount.Equal(decimal.NewFromInt(50)))
	assert.True(t, sell.Coins.Equal(decimal.NewFromInt(1)))

	eth := byKey["Ethereum/BUY"]
	assert.True(t, eth.Amount.Equal(decimal.NewFromInt(80)))
	assert.True(t, eth.Coins.Equal(decimal.NewFromInt(4)))
}

func TestRepository_SumExactDecimals(t *testing.T) {
	db := setupTestDB(t)
	repo := NewRepository(db.Conn(), zerolog.Nop())
	ctx := context.Background()

	// 0.1 + 0.2 must come back as exactly 0.3
	require.NoError(t, repo.Insert(ctx, testTransaction("tx1", "user-1", "Bitcoin", domain.KindBuy, 10, "1", "0.1")))
	require.NoError(t, repo.Insert(ctx, testTransaction("tx2", "user-1", "Bitcoin", domain.KindBuy, 20, "1", "0.2")))

	flows, err := repo.SumByAssetAndKind(ctx, "user-1")
	require.NoError(t, err)
	require.Len(t, flows, 1)
	assert.True(t, flows[0].Coins.Equal(decimal.RequireFromString("0.3")), "coins: %s", flows[0].Coins)
	assert.True(t, flows[0].Amount.Equal(decimal.RequireFromString("0.30")), "amount: %s", flows[0].Amount)
}

func TestRepository_SumRejectsMalformedCoinQuantity(t *testing.T) {
	db := setupTestDB(t)
	repo := NewRepository(db.Conn(), zerolog.Nop())
	ctx := context.Background()

	// Corrupt a row behind the repository's back
	_, err := db.Conn().Exec(`INSERT INTO transactions
		(id, name, kind, amount_cents, price_purchased_at, no_of_coins, user_id, created_at)
		VALUES ('bad', 'Bitcoin', 'BUY', 100, '1', 'not-a-number', 'user-1', 0)`)
	require.NoError(t, err)

	_, err = repo.SumByAssetAndKind(ctx, "user-1")
	require.ErrorIs(t, err, domain.ErrDataIntegrity)
}

func TestRepository_SumRejectsNegativeCoinQuantity(t *testing.T) {
	db := setupTestDB(t)
	repo := NewRepository(db.Conn(), zerolog.Nop())
	ctx := context.Background()

	_, err := db.Conn().Exec(`INSERT INTO transactions
		(id, name, kind, amount_cents, price_purchased_at, no_of_coins, user_id, created_at)
		VALUES ('bad', 'Bitcoin', 'BUY', 100, '1', '-2', 'user-1', 0)`)
	require.NoError(t, err)

	_, err = repo.SumByAssetAndKind(ctx, "user-1")
	require.ErrorIs(t, err, domain.ErrDataIntegrity)
}

func TestRepository_SchemaRejectsUnknownKind(t *testing.T) {
	db := setupTestDB(t)

	_, err := db.Conn().Exec(`INSERT INTO transactions
		(id, name, kind, amount_cents, price_purchased_at, no_of_coins, user_id, created_at)
		VALUES ('bad', 'Bitcoin', 'HOLD', 100, '1', '1', 'user-1', 0)`)
	require.Error(t, err)
}

func TestRepository_DeleteByUserAndAsset(t *testing.T) {
	db := setupTestDB(t)
	repo := NewRepository(db.Conn(), zerolog.Nop())
	ctx := context.Background()

	require.NoError(t, repo.Insert(ctx, testTransaction("tx1", "user-1", "Bitcoin", domain.KindBuy, 100, "1", "1")))
	require.NoError(t, repo.Insert(ctx, testTransaction("tx2", "user-1", "Bitcoin", domain.KindSell, 50, "1", "0.5")))
	require.NoError(t, repo.Insert(ctx, testTransaction("tx3", "user-1", "Ethereum", domain.KindBuy, 80, "20", "4")))
	require.NoError(t, repo.Insert(ctx, testTransaction("tx4", "user-2", "Bitcoin", domain.KindBuy, 100, "1", "1")))

	deleted, err := repo.DeleteByUserAndAsset(ctx, "user-1", "Bitcoin")
	require.NoError(t, err)
	assert.Equal(t, int64(2), deleted)

	remaining, err := repo.ListByUser(ctx, "user-1")
	require.NoError(t, err)
	require.Len(t, remaining, 1)
	assert.Equal(t, "Ethereum", remaining[0].Asset)

	// Other users' records untouched
	other, err := repo.ListByUser(ctx, "user-2")
	require.NoError(t, err)
	assert.Len(t, other, 1)
}

func TestRepository_DeleteUnknownAssetAffectsNothing(t *testing.T) {
	db := setupTestDB(t)
	repo := NewRepository(db.Conn(), zerolog.Nop())

	deleted, err := repo.DeleteByUserAndAsset(context.Background(), "user-1", "Bitcoin")
	require.NoError(t, err)
	assert.Equal(t, int64(0), deleted)
}
