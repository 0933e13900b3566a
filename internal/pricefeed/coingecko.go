package pricefeed

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"wallet-bot/internal/domain"
)

const simplePricePath = "/simple/price"

// defaultTokenIDs maps tracked pairs to CoinGecko coin ids.
var defaultTokenIDs = map[string]string{
	"SOL/USDT": "solana",
	"TON/USDT": "the-open-network",
}

// CoinGeckoOptions parameterise the price client.
type CoinGeckoOptions struct {
	BaseURL  string
	Timeout  time.Duration
	TokenIDs map[string]string
}

// CoinGecko fetches spot prices from the CoinGecko simple-price API.
type CoinGecko struct {
	opts     CoinGeckoOptions
	client   *http.Client
	baseURL  string
	tokenIDs map[string]string
	logger   zerolog.Logger
}

// NewCoinGecko constructs a CoinGecko price feed.
func NewCoinGecko(opts CoinGeckoOptions, logger zerolog.Logger) *CoinGecko {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://api.coingecko.com/api/v3"
	}

	tokenIDs := opts.TokenIDs
	if len(tokenIDs) == 0 {
		tokenIDs = defaultTokenIDs
	}

	return &CoinGecko{
		opts:     opts,
		client:   &http.Client{Timeout: timeout},
		baseURL:  baseURL,
		tokenIDs: tokenIDs,
		logger:   logger.With().Str("component", "price_feed").Logger(),
	}
}

// Symbols lists the tracked pairs in stable order.
func (c *CoinGecko) Symbols() []string {
	symbols := make([]string, 0, len(c.tokenIDs))
	for symbol := range c.tokenIDs {
		symbols = append(symbols, symbol)
	}
	sort.Strings(symbols)
	return symbols
}

// GetPrice retrieves the USD price of a tracked pair.
func (c *CoinGecko) GetPrice(ctx context.Context, symbol string) (decimal.Decimal, error) {
	normalized := strings.ToUpper(strings.TrimSpace(symbol))
	tokenID, ok := c.tokenIDs[normalized]
	if !ok {
		return decimal.Decimal{}, fmt.Errorf("%w: %s", ErrUnsupportedSymbol, symbol)
	}

	query := url.Values{}
	query.Set("ids", tokenID)
	query.Set("vs_currencies", "usd")
	endpoint := c.baseURL + simplePricePath + "?" + query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return decimal.Decimal{}, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return decimal.Decimal{}, &domain.ExternalError{Service: "coingecko", Err: err}
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return decimal.Decimal{}, &domain.ExternalError{Service: "coingecko", Err: err}
	}

	if resp.StatusCode != http.StatusOK {
		return decimal.Decimal{}, &domain.ExternalError{
			Service: "coingecko",
			Status:  resp.StatusCode,
			Err:     fmt.Errorf("unexpected response: %s", strings.TrimSpace(string(payload))),
		}
	}

	var body map[string]struct {
		USD json.Number `json:"usd"`
	}
	if err := json.Unmarshal(payload, &body); err != nil {
		return decimal.Decimal{}, &domain.ExternalError{Service: "coingecko", Err: err}
	}

	entry, ok := body[tokenID]
	if !ok || entry.USD == "" {
		return decimal.Decimal{}, &domain.ExternalError{
			Service: "coingecko",
			Err:     fmt.Errorf("price missing for %s", tokenID),
		}
	}

	price, err := decimal.NewFromString(entry.USD.String())
	if err != nil {
		return decimal.Decimal{}, &domain.ExternalError{Service: "coingecko", Err: fmt.Errorf("parse price: %w", err)}
	}

	c.logger.Debug().Str("symbol", normalized).Str("price", price.String()).Msg("price fetched")
	return price, nil
}

var _ Feed = (*CoinGecko)(nil)
