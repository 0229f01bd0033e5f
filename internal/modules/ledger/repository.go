// Package ledger provides access to the immutable transaction trail.
package ledger

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/ghostportfolio/server/internal/domain"
)

// Repository handles transaction database operations. All queries use bound
// parameters; user-supplied values never reach a query string directly.
type Repository struct {
	ledgerDB *sql.DB
	log      zerolog.Logger
}

// NewRepository creates a new transaction repository
func NewRepository(ledgerDB *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		ledgerDB: ledgerDB,
		log:      log.With().Str("repo", "ledger").Logger(),
	}
}

// Insert appends a transaction record. Records are immutable once written.
func (r *Repository) Insert(ctx context.Context, tx domain.Transaction) error {
	query := `INSERT INTO transactions
		(id, name, kind, amount_cents, price_purchased_at, no_of_coins, user_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := r.ledgerDB.ExecContext(ctx, query,
		tx.ID,
		tx.Asset,
		string(tx.Kind),
		tx.AmountCents,
		tx.Price.String(),
		tx.Coins.String(),
		tx.UserID,
		tx.CreatedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert transaction: %w", err)
	}

	r.log.Info().
		Str("id", tx.ID).
		Str("asset", tx.Asset).
		Str("kind", string(tx.Kind)).
		Msg("Transaction recorded")
	return nil
}

// ListByUser returns the user's full transaction history, newest first.
func (r *Repository) ListByUser(ctx context.Context, userID string) ([]domain.Transaction, error) {
	query := `SELECT id, name, kind, amount_cents, price_purchased_at, no_of_coins, user_id, created_at
		FROM transactions WHERE user_id = ? ORDER BY created_at DESC, id`

	rows, err := r.ledgerDB.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}
	defer rows.Close()

	transactions := make([]domain.Transaction, 0)
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		transactions = append(transactions, tx)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating transactions: %w", err)
	}

	return transactions, nil
}

// SumByAssetAndKind returns the summed amount and coin quantity for each
// (asset, kind) pair in the user's history. Amounts come back in currency
// units. Summation happens in exact decimal arithmetic, not SQL floats.
func (r *Repository) SumByAssetAndKind(ctx context.Context, userID string) ([]domain.AssetFlow, error) {
	query := `SELECT name, kind, amount_cents, no_of_coins
		FROM transactions WHERE user_id = ? ORDER BY name, kind`

	rows, err := r.ledgerDB.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query transaction sums: %w", err)
	}
	defer rows.Close()

	type key struct {
		asset string
		kind  domain.TransactionKind
	}
	sums := make(map[key]*domain.AssetFlow)
	order := make([]key, 0)

	for rows.Next() {
		var (
			asset, kind, coinsStr string
			amountCents           int64
		)
		if err := rows.Scan(&asset, &kind, &amountCents, &coinsStr); err != nil {
			return nil, fmt.Errorf("failed to scan transaction sum row: %w", err)
		}

		coins, err := decimal.NewFromString(strings.TrimSpace(coinsStr))
		if err != nil {
			return nil, fmt.Errorf("%w: coin quantity %q for asset %q: %v",
				domain.ErrDataIntegrity, coinsStr, asset, err)
		}
		if coins.IsNegative() {
			return nil, fmt.Errorf("%w: negative coin quantity %q recorded for asset %q",
				domain.ErrDataIntegrity, coinsStr, asset)
		}

		k := key{asset: asset, kind: domain.TransactionKind(kind)}
		if !k.kind.Valid() {
			return nil, fmt.Errorf("%w: unknown transaction kind %q for asset %q",
				domain.ErrDataIntegrity, kind, asset)
		}

		flow, ok := sums[k]
		if !ok {
			flow = &domain.AssetFlow{Asset: asset, Kind: k.kind}
			sums[k] = flow
			order = append(order, k)
		}
		flow.Amount = flow.Amount.Add(decimal.New(amountCents, -2))
		flow.Coins = flow.Coins.Add(coins)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating transaction sums: %w", err)
	}

	flows := make([]domain.AssetFlow, 0, len(order))
	for _, k := range order {
		flows = append(flows, *sums[k])
	}
	return flows, nil
}

// DeleteByUserAndAsset removes all of a user's records for one asset.
// Returns the number of rows removed.
func (r *Repository) DeleteByUserAndAsset(ctx context.Context, userID, asset string) (int64, error) {
	result, err := r.ledgerDB.ExecContext(ctx,
		"DELETE FROM transactions WHERE user_id = ? AND name = ?", userID, asset)
	if err != nil {
		return 0, fmt.Errorf("failed to delete transactions: %w", err)
	}

	affected, _ := result.RowsAffected()
	r.log.Info().
		Str("asset", asset).
		Int64("rows_affected", affected).
		Msg("Transactions deleted")
	return affected, nil
}

// scanTransaction scans a database row into a domain.Transaction. Malformed
// decimal columns are a data-integrity failure for the whole read.
func scanTransaction(rows *sql.Rows) (domain.Transaction, error) {
	var (
		tx                 domain.Transaction
		kind               string
		priceStr, coinsStr string
		createdAtUnix      int64
	)

	err := rows.Scan(&tx.ID, &tx.Asset, &kind, &tx.AmountCents, &priceStr, &coinsStr, &tx.UserID, &createdAtUnix)
	if err != nil {
		return tx, fmt.Errorf("failed to scan transaction: %w", err)
	}

	tx.Kind = domain.TransactionKind(kind)
	if !tx.Kind.Valid() {
		return tx, fmt.Errorf("%w: unknown transaction kind %q", domain.ErrDataIntegrity, kind)
	}

	tx.Price, err = decimal.NewFromString(strings.TrimSpace(priceStr))
	if err != nil {
		return tx, fmt.Errorf("%w: price %q: %v", domain.ErrDataIntegrity, priceStr, err)
	}
	tx.Coins, err = decimal.NewFromString(strings.TrimSpace(coinsStr))
	if err != nil {
		return tx, fmt.Errorf("%w: coin quantity %q: %v", domain.ErrDataIntegrity, coinsStr, err)
	}

	tx.CreatedAt = time.Unix(createdAtUnix, 0).UTC()
	return tx, nil
}
