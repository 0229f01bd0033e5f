// Package coingecko provides a client for a CoinGecko-compatible market
// data feed: the coin catalogue, live USD prices with 24h change, and the
// reference-asset quote included in every rollup entry.
package coingecko

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/ghostportfolio/server/internal/domain"
)

// Client is the market feed client. Quotes are fetched fresh per request
// and never cached; the catalogue is fetched once at startup.
type Client struct {
	priceURL     string
	catalogueURL string
	referenceID  string
	httpClient   *http.Client
	log          zerolog.Logger
}

// NewClient creates a new market feed client.
// timeout bounds every outbound call; on expiry the caller gets an
// enrichment-unavailable error rather than a hang.
func NewClient(priceURL, catalogueURL, referenceID string, timeout time.Duration, log zerolog.Logger) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		priceURL:     priceURL,
		catalogueURL: catalogueURL,
		referenceID:  referenceID,
		httpClient:   &http.Client{Timeout: timeout},
		log:          log.With().Str("client", "coingecko").Logger(),
	}
}

// ReferenceID returns the feed id of the benchmark asset.
func (c *Client) ReferenceID() string {
	return c.referenceID
}

// FetchCatalogue downloads the feed's coin list and builds the name→id
// lookup table. Called once during startup.
func (c *Client) FetchCatalogue(ctx context.Context) (*Catalogue, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.catalogueURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build catalogue request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch catalogue: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("catalogue endpoint returned status %d", resp.StatusCode)
	}

	var entries []CatalogueEntry
	if err := json.NewDecoder(resp.Body).Decode(&entries); err != nil {
		return nil, fmt.Errorf("parse catalogue response: %w", err)
	}

	catalogue := NewCatalogue(entries)
	c.log.Info().Int("assets", catalogue.Size()).Msg("Catalogue loaded")
	return catalogue, nil
}

// GetQuotes fetches live USD price and 24h change for a batch of feed ids
// in a single call. Any failure, including an id missing from the
// response, fails the whole batch: partial enrichment is not attempted.
func (c *Client) GetQuotes(ctx context.Context, ids []string) (map[string]domain.Quote, error) {
	if len(ids) == 0 {
		return map[string]domain.Quote{}, nil
	}

	params := url.Values{}
	params.Set("ids", strings.Join(ids, ","))
	params.Set("vs_currencies", "usd")
	params.Set("include_24hr_change", "true")

	raw, err := c.fetchPrices(ctx, params)
	if err != nil {
		return nil, err
	}

	quotes := make(map[string]domain.Quote, len(ids))
	for _, id := range ids {
		fields, ok := raw[id]
		if !ok {
			return nil, fmt.Errorf("%w: feed returned no quote for %q", domain.ErrEnrichmentUnavailable, id)
		}
		price, err := decimalField(fields, "usd")
		if err != nil {
			return nil, fmt.Errorf("%w: quote for %q: %v", domain.ErrEnrichmentUnavailable, id, err)
		}
		change, err := decimalField(fields, "usd_24h_change")
		if err != nil {
			return nil, fmt.Errorf("%w: quote for %q: %v", domain.ErrEnrichmentUnavailable, id, err)
		}
		quotes[id] = domain.Quote{Price: price, Change24h: change}
	}

	c.log.Debug().Int("ids", len(ids)).Msg("Fetched quote batch")
	return quotes, nil
}

// GetReferenceQuote fetches the benchmark asset's live USD price. Fetched
// once per rollup request and shared across all entries.
func (c *Client) GetReferenceQuote(ctx context.Context) (decimal.Decimal, error) {
	params := url.Values{}
	params.Set("ids", c.referenceID)
	params.Set("vs_currencies", "usd")

	raw, err := c.fetchPrices(ctx, params)
	if err != nil {
		return decimal.Decimal{}, err
	}

	fields, ok := raw[c.referenceID]
	if !ok {
		return decimal.Decimal{}, fmt.Errorf("%w: feed returned no quote for reference asset %q",
			domain.ErrEnrichmentUnavailable, c.referenceID)
	}
	price, err := decimalField(fields, "usd")
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("%w: reference quote: %v", domain.ErrEnrichmentUnavailable, err)
	}

	return price, nil
}

// fetchPrices performs one call to the simple-price endpoint. Responses are
// decoded with json.Number so prices reach decimal arithmetic without a
// float64 round trip.
func (c *Client) fetchPrices(ctx context.Context, params url.Values) (map[string]map[string]json.Number, error) {
	reqURL := c.priceURL + "?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: build price request: %v", domain.ErrEnrichmentUnavailable, err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrEnrichmentUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: price endpoint returned status %d", domain.ErrEnrichmentUnavailable, resp.StatusCode)
	}

	decoder := json.NewDecoder(resp.Body)
	decoder.UseNumber()

	var raw map[string]map[string]json.Number
	if err := decoder.Decode(&raw); err != nil {
		return nil, fmt.Errorf("%w: parse price response: %v", domain.ErrEnrichmentUnavailable, err)
	}

	return raw, nil
}

func decimalField(fields map[string]json.Number, key string) (decimal.Decimal, error) {
	num, ok := fields[key]
	if !ok {
		return decimal.Decimal{}, fmt.Errorf("missing field %q", key)
	}
	d, err := decimal.NewFromString(num.String())
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("field %q is not numeric: %v", key, err)
	}
	return d, nil
}
