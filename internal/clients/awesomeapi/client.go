// Package awesomeapi provides a client for the USD→BRL quote endpoint.
// The rate is fetched once per rollup request and applied to every entry.
package awesomeapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/ghostportfolio/server/internal/domain"
)

// Client for the AwesomeAPI currency quote service.
type Client struct {
	rateURL    string
	httpClient *http.Client
	log        zerolog.Logger
}

// NewClient creates a new fiat rate client.
func NewClient(rateURL string, timeout time.Duration, log zerolog.Logger) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		rateURL:    rateURL,
		httpClient: &http.Client{Timeout: timeout},
		log:        log.With().Str("client", "awesomeapi").Logger(),
	}
}

// GetFiatRate fetches the current USD→BRL bid rate. The endpoint quotes the
// rate as a decimal string, which is parsed exactly.
func (c *Client) GetFiatRate(ctx context.Context) (decimal.Decimal, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.rateURL, nil)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("%w: build rate request: %v", domain.ErrEnrichmentUnavailable, err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("%w: %v", domain.ErrEnrichmentUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return decimal.Decimal{}, fmt.Errorf("%w: rate endpoint returned status %d", domain.ErrEnrichmentUnavailable, resp.StatusCode)
	}

	var payload map[string]struct {
		Bid string `json:"bid"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return decimal.Decimal{}, fmt.Errorf("%w: parse rate response: %v", domain.ErrEnrichmentUnavailable, err)
	}

	quote, ok := payload["USDBRL"]
	if !ok {
		return decimal.Decimal{}, fmt.Errorf("%w: USDBRL quote missing from response", domain.ErrEnrichmentUnavailable)
	}

	rate, err := decimal.NewFromString(quote.Bid)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("%w: bid %q is not numeric: %v", domain.ErrEnrichmentUnavailable, quote.Bid, err)
	}

	c.log.Debug().Str("rate", rate.String()).Msg("Fetched fiat rate")
	return rate, nil
}
