package ledger

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/ghostportfolio/server/internal/domain"
)

// ErrNoHoldings is returned when a sell is recorded for an asset the user
// has never bought, so no average purchase price exists to record on the row.
var ErrNoHoldings = errors.New("no recorded purchases for asset")

// CreateInput carries a new transaction from the boundary layer.
type CreateInput struct {
	Asset       string
	Kind        domain.TransactionKind
	AmountCents int64
	Price       decimal.Decimal
	Coins       decimal.Decimal
}

// Service implements the transaction write path. BUY rows record the
// submitted execution price; SELL rows record the user's current weighted
// average purchase price for the asset.
type Service struct {
	repo *Repository
	log  zerolog.Logger
}

// NewService creates a new ledger service
func NewService(repo *Repository, log zerolog.Logger) *Service {
	return &Service{
		repo: repo,
		log:  log.With().Str("service", "ledger").Logger(),
	}
}

// Create validates and appends a transaction for the user.
func (s *Service) Create(ctx context.Context, userID string, in CreateInput) (domain.Transaction, error) {
	var tx domain.Transaction

	asset := strings.TrimSpace(in.Asset)
	if asset == "" {
		return tx, fmt.Errorf("asset name is required")
	}
	if !in.Kind.Valid() {
		return tx, fmt.Errorf("kind must be BUY or SELL")
	}
	if in.AmountCents <= 0 {
		return tx, fmt.Errorf("amount must be positive")
	}
	if !in.Coins.IsPositive() {
		return tx, fmt.Errorf("coin quantity must be positive")
	}

	price := in.Price
	if in.Kind == domain.KindSell {
		avg, err := s.averagePurchasePrice(ctx, userID, asset)
		if err != nil {
			return tx, err
		}
		price = avg
	} else if price.IsNegative() {
		return tx, fmt.Errorf("price must not be negative")
	}

	tx = domain.Transaction{
		ID:          strings.ReplaceAll(uuid.NewString(), "-", ""),
		Asset:       asset,
		Kind:        in.Kind,
		AmountCents: in.AmountCents,
		Price:       price,
		Coins:       in.Coins,
		UserID:      userID,
		CreatedAt:   time.Now().UTC(),
	}

	if err := s.repo.Insert(ctx, tx); err != nil {
		return domain.Transaction{}, err
	}
	return tx, nil
}

// List returns the user's transaction history.
func (s *Service) List(ctx context.Context, userID string) ([]domain.Transaction, error) {
	return s.repo.ListByUser(ctx, userID)
}

// Delete removes all of a user's records for one asset.
func (s *Service) Delete(ctx context.Context, userID, asset string) (int64, error) {
	asset = strings.TrimSpace(asset)
	if asset == "" {
		return 0, fmt.Errorf("asset name is required")
	}
	return s.repo.DeleteByUserAndAsset(ctx, userID, asset)
}

// averagePurchasePrice computes sum(coins*price)/sum(coins) over the user's
// BUY rows for one asset, in exact decimal arithmetic.
func (s *Service) averagePurchasePrice(ctx context.Context, userID, asset string) (decimal.Decimal, error) {
	history, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return decimal.Decimal{}, err
	}

	weighted := decimal.Zero
	coins := decimal.Zero
	for _, tx := range history {
		if tx.Asset != asset || tx.Kind != domain.KindBuy {
			continue
		}
		weighted = weighted.Add(tx.Coins.Mul(tx.Price))
		coins = coins.Add(tx.Coins)
	}

	if coins.IsZero() {
		return decimal.Decimal{}, fmt.Errorf("%w: %q", ErrNoHoldings, asset)
	}
	return weighted.DivRound(coins, 8), nil
}
