package chains

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"wallet-bot/internal/domain"
)

// TonOptions parameterise the TON collaborator.
type TonOptions struct {
	APIBase string
	APIKey  string
	Timeout time.Duration
}

// Ton talks to a tonapi-compatible endpoint for jetton metadata, rates,
// and transaction submission.
type Ton struct {
	opts    TonOptions
	client  *http.Client
	baseURL string
	logger  zerolog.Logger
}

// NewTon constructs the TON collaborator.
func NewTon(opts TonOptions, logger zerolog.Logger) *Ton {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	baseURL := strings.TrimRight(opts.APIBase, "/")
	if baseURL == "" {
		baseURL = "https://tonapi.io/v2"
	}

	return &Ton{
		opts:    opts,
		client:  &http.Client{Timeout: timeout},
		baseURL: baseURL,
		logger:  logger.With().Str("component", "ton_chain").Logger(),
	}
}

const tonFriendlyAddressLen = 48

// ValidateAddress accepts raw (workchain:hex) and friendly base64url
// addresses.
func (t *Ton) ValidateAddress(address string) bool {
	address = strings.TrimSpace(address)
	if address == "" {
		return false
	}

	if wc, hexPart, ok := strings.Cut(address, ":"); ok {
		if wc != "0" && wc != "-1" {
			return false
		}
		if len(hexPart) != 64 {
			return false
		}
		for _, r := range hexPart {
			if !isHexDigit(r) {
				return false
			}
		}
		return true
	}

	if len(address) != tonFriendlyAddressLen {
		return false
	}
	for _, r := range address {
		if !isBase64URLChar(r) {
			return false
		}
	}
	return true
}

func isHexDigit(r rune) bool {
	return (r >= '0' && r <= '9') || (r >= 'a' && r <= 'f') || (r >= 'A' && r <= 'F')
}

func isBase64URLChar(r rune) bool {
	return (r >= 'A' && r <= 'Z') || (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') ||
		r == '-' || r == '_' || r == '+' || r == '/' || r == '='
}

type jettonResponse struct {
	TotalSupply  string `json:"total_supply"`
	HoldersCount int64  `json:"holders_count"`
	Metadata     struct {
		Name     string `json:"name"`
		Symbol   string `json:"symbol"`
		Decimals string `json:"decimals"`
	} `json:"metadata"`
}

type ratesResponse struct {
	Rates map[string]struct {
		Prices map[string]json.Number `json:"prices"`
	} `json:"rates"`
}

// TokenInfo fetches jetton metadata and the USD rate.
func (t *Ton) TokenInfo(ctx context.Context, tokenAddress string) (TokenInfo, error) {
	var jetton jettonResponse
	if err := t.getJSON(ctx, "/jettons/"+tokenAddress, &jetton); err != nil {
		return TokenInfo{}, err
	}

	var rates ratesResponse
	if err := t.getJSON(ctx, "/rates?tokens="+tokenAddress+"&currencies=usd", &rates); err != nil {
		return TokenInfo{}, err
	}

	price := decimal.Zero
	if entry, ok := rates.Rates[tokenAddress]; ok {
		if usd, ok := entry.Prices["USD"]; ok {
			parsed, err := decimal.NewFromString(usd.String())
			if err == nil {
				price = parsed
			}
		}
	}

	decimals := 9
	if jetton.Metadata.Decimals != "" {
		if _, err := fmt.Sscanf(jetton.Metadata.Decimals, "%d", &decimals); err != nil {
			decimals = 9
		}
	}

	supply := decimal.Zero
	if jetton.TotalSupply != "" {
		if raw, err := decimal.NewFromString(jetton.TotalSupply); err == nil {
			supply = raw.Shift(int32(-decimals))
		}
	}

	name := jetton.Metadata.Name
	if name == "" {
		name = "Unknown"
	}
	symbol := jetton.Metadata.Symbol
	if symbol == "" {
		symbol = "Unknown"
	}

	return TokenInfo{
		Name:        name,
		Symbol:      symbol,
		Decimals:    decimals,
		Address:     tokenAddress,
		Price:       price,
		TotalSupply: supply,
		Holders:     jetton.HoldersCount,
	}, nil
}

// SwapQuote derives the quote from the current rate with a fixed 0.5%
// slippage haircut.
func (t *Ton) SwapQuote(ctx context.Context, tokenAddress string, amount decimal.Decimal) (SwapQuote, error) {
	info, err := t.TokenInfo(ctx, tokenAddress)
	if err != nil {
		return SwapQuote{}, err
	}
	if !info.Price.IsPositive() {
		return SwapQuote{}, &domain.ExternalError{
			Service: "tonapi",
			Err:     fmt.Errorf("no price available for %s", tokenAddress),
		}
	}
	return quoteFromPrice(amount, info.Price, decimal.Zero), nil
}

// SendTransaction submits a swap. Never retried: the idempotency key is
// forwarded so a resubmitted request cannot double-spend.
func (t *Ton) SendTransaction(ctx context.Context, walletAddress, tokenAddress string, amount decimal.Decimal, idempotencyKey string) (SendResult, error) {
	payload, err := json.Marshal(map[string]string{
		"wallet": walletAddress,
		"token":  tokenAddress,
		"amount": amount.String(),
	})
	if err != nil {
		return SendResult{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.baseURL+"/sendTransaction", bytes.NewReader(payload))
	if err != nil {
		return SendResult{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Idempotency-Key", idempotencyKey)
	t.authorize(req)

	resp, err := t.client.Do(req)
	if err != nil {
		return SendResult{}, &domain.ExternalError{Service: "tonapi", Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return SendResult{}, &domain.ExternalError{Service: "tonapi", Err: err}
	}
	if resp.StatusCode != http.StatusOK {
		return SendResult{}, &domain.ExternalError{
			Service: "tonapi",
			Status:  resp.StatusCode,
			Err:     fmt.Errorf("send transaction: %s", strings.TrimSpace(string(body))),
		}
	}

	var result struct {
		Hash string `json:"hash"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return SendResult{}, &domain.ExternalError{Service: "tonapi", Err: err}
	}
	return SendResult{Hash: result.Hash}, nil
}

func (t *Ton) authorize(req *http.Request) {
	if t.opts.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+t.opts.APIKey)
	}
}

func (t *Ton) getJSON(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, t.baseURL+path, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	t.authorize(req)

	resp, err := t.client.Do(req)
	if err != nil {
		return &domain.ExternalError{Service: "tonapi", Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return &domain.ExternalError{Service: "tonapi", Err: err}
	}
	if resp.StatusCode != http.StatusOK {
		return &domain.ExternalError{
			Service: "tonapi",
			Status:  resp.StatusCode,
			Err:     fmt.Errorf("unexpected response: %s", strings.TrimSpace(string(body))),
		}
	}
	if err := json.Unmarshal(body, out); err != nil {
		return &domain.ExternalError{Service: "tonapi", Err: err}
	}
	return nil
}

var _ Service = (*Ton)(nil)
