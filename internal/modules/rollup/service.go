package rollup

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/ghostportfolio/server/internal/clients/coingecko"
	"github.com/ghostportfolio/server/internal/domain"
	"github.com/ghostportfolio/server/internal/observability"
)

// LedgerSource is the read contract the rollup needs from the transaction
// trail. Defined here so the core does not depend on the store package.
type LedgerSource interface {
	SumByAssetAndKind(ctx context.Context, userID string) ([]domain.AssetFlow, error)
}

// MarketSource delivers live quotes from the external feed.
type MarketSource interface {
	GetQuotes(ctx context.Context, ids []string) (map[string]domain.Quote, error)
	GetReferenceQuote(ctx context.Context) (decimal.Decimal, error)
}

// FiatSource delivers the USD→BRL conversion rate.
type FiatSource interface {
	GetFiatRate(ctx context.Context) (decimal.Decimal, error)
}

// Service implements GetRollup, the core entry point. All state is
// request-local; concurrent rollups for different users share nothing but
// the read-only catalogue.
type Service struct {
	ledger    LedgerSource
	market    MarketSource
	fiat      FiatSource
	catalogue *coingecko.Catalogue
	timeout   time.Duration
	metrics   *observability.Metrics
	log       zerolog.Logger
}

// NewService creates a new rollup service. metrics may be nil.
func NewService(
	ledger LedgerSource,
	market MarketSource,
	fiat FiatSource,
	catalogue *coingecko.Catalogue,
	timeout time.Duration,
	metrics *observability.Metrics,
	log zerolog.Logger,
) *Service {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Service{
		ledger:    ledger,
		market:    market,
		fiat:      fiat,
		catalogue: catalogue,
		timeout:   timeout,
		metrics:   metrics,
		log:       log.With().Str("service", "rollup").Logger(),
	}
}

// GetRollup aggregates the user's transaction trail into positions,
// enriches them with live market data, and returns one entry per asset the
// user has ever transacted, sorted by asset name.
func (s *Service) GetRollup(ctx context.Context, userID string) ([]domain.RollupEntry, error) {
	start := time.Now()

	entries, err := s.getRollup(ctx, userID)

	if s.metrics != nil {
		s.metrics.RollupDuration.Observe(time.Since(start).Seconds())
		if err != nil {
			s.metrics.RollupRequests.WithLabelValues("error").Inc()
		} else {
			s.metrics.RollupRequests.WithLabelValues("ok").Inc()
		}
	}

	return entries, err
}

func (s *Service) getRollup(ctx context.Context, userID string) ([]domain.RollupEntry, error) {
	flows, err := s.ledger.SumByAssetAndKind(ctx, userID)
	if err != nil {
		return nil, err
	}

	positions := AggregatePositions(flows)
	if len(positions) == 0 {
		return []domain.RollupEntry{}, nil
	}

	// Deterministic output order
	names := make([]string, 0, len(positions))
	for name := range positions {
		names = append(names, name)
	}
	sort.Strings(names)

	// Resolve every asset before any network call. An unknown name fails
	// the whole request: a partial rollup would misstate portfolio totals.
	identities := make(map[string]coingecko.CatalogueEntry, len(names))
	ids := make([]string, 0, len(names))
	for _, name := range names {
		identity, ok := s.catalogue.Lookup(name)
		if !ok {
			return nil, fmt.Errorf("%w: %q", domain.ErrUnknownAsset, name)
		}
		identities[name] = identity
		ids = append(ids, identity.ID)
	}

	market, err := s.fetchMarketData(ctx, ids)
	if err != nil {
		return nil, err
	}

	entries := make([]domain.RollupEntry, 0, len(names))
	for _, name := range names {
		identity := identities[name]
		quote, ok := market.Quotes[identity.ID]
		if !ok {
			return nil, fmt.Errorf("%w: feed returned no quote for %q", domain.ErrEnrichmentUnavailable, identity.ID)
		}
		entries = append(entries, Compose(positions[name], identity, quote, market.ReferencePrice, market.FiatRate))
	}

	s.log.Debug().
		Str("user_id", userID).
		Int("assets", len(entries)).
		Msg("Rollup computed")
	return entries, nil
}

// fetchMarketData issues the quote batch, the reference quote, and the fiat
// rate concurrently, each exactly once per request, and joins them before
// composition. The shared timeout bounds the whole fan-out.
func (s *Service) fetchMarketData(ctx context.Context, ids []string) (domain.MarketData, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var market domain.MarketData
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		quotes, err := s.market.GetQuotes(gctx, ids)
		if err != nil {
			return err
		}
		market.Quotes = quotes
		return nil
	})

	g.Go(func() error {
		price, err := s.market.GetReferenceQuote(gctx)
		if err != nil {
			return err
		}
		market.ReferencePrice = price
		return nil
	})

	g.Go(func() error {
		rate, err := s.fiat.GetFiatRate(gctx)
		if err != nil {
			return err
		}
		market.FiatRate = rate
		return nil
	})

	if err := g.Wait(); err != nil {
		if s.metrics != nil {
			s.metrics.EnrichmentFailures.Inc()
		}
		return domain.MarketData{}, err
	}

	return market, nil
}
