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

// SolanaOptions parameterise the Solana collaborator.
type SolanaOptions struct {
	APIBase string
	Timeout time.Duration
}

// Solana talks to a solscan-style public token API for SPL token
// metadata and transaction submission.
type Solana struct {
	client  *http.Client
	baseURL string
	logger  zerolog.Logger
}

// NewSolana constructs the Solana collaborator.
func NewSolana(opts SolanaOptions, logger zerolog.Logger) *Solana {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	baseURL := strings.TrimRight(opts.APIBase, "/")
	if baseURL == "" {
		baseURL = "https://public-api.solscan.io"
	}

	return &Solana{
		client:  &http.Client{Timeout: timeout},
		baseURL: baseURL,
		logger:  logger.With().Str("component", "solana_chain").Logger(),
	}
}

// ValidateAddress applies the base58 shape check for Solana public keys.
func (s *Solana) ValidateAddress(address string) bool {
	address = strings.TrimSpace(address)
	if len(address) < 32 || len(address) > 44 {
		return false
	}
	for _, r := range address {
		if !isBase58Char(r) {
			return false
		}
	}
	return true
}

// Base58 excludes 0, O, I and l.
func isBase58Char(r rune) bool {
	switch {
	case r >= '1' && r <= '9':
		return true
	case r >= 'A' && r <= 'H', r >= 'J' && r <= 'N', r >= 'P' && r <= 'Z':
		return true
	case r >= 'a' && r <= 'k', r >= 'm' && r <= 'z':
		return true
	}
	return false
}

type splTokenResponse struct {
	Name     string      `json:"name"`
	Symbol   string      `json:"symbol"`
	Decimals int         `json:"decimals"`
	Supply   json.Number `json:"supply"`
	Holder   int64       `json:"holder"`
	Price    json.Number `json:"price"`
}

// TokenInfo fetches SPL token metadata.
func (s *Solana) TokenInfo(ctx context.Context, tokenAddress string) (TokenInfo, error) {
	var token splTokenResponse
	if err := s.getJSON(ctx, "/token/meta?tokenAddress="+tokenAddress, &token); err != nil {
		return TokenInfo{}, err
	}

	price := decimal.Zero
	if token.Price.String() != "" {
		if parsed, err := decimal.NewFromString(token.Price.String()); err == nil {
			price = parsed
		}
	}

	supply := decimal.Zero
	if token.Supply.String() != "" {
		if raw, err := decimal.NewFromString(token.Supply.String()); err == nil {
			supply = raw.Shift(int32(-token.Decimals))
		}
	}

	name := token.Name
	if name == "" {
		name = "Unknown"
	}
	symbol := token.Symbol
	if symbol == "" {
		symbol = "Unknown"
	}

	return TokenInfo{
		Name:        name,
		Symbol:      symbol,
		Decimals:    token.Decimals,
		Address:     tokenAddress,
		Price:       price,
		TotalSupply: supply,
		Holders:     token.Holder,
	}, nil
}

// SwapQuote derives the quote from the current token price with the
// fixed 0.5% slippage haircut.
func (s *Solana) SwapQuote(ctx context.Context, tokenAddress string, amount decimal.Decimal) (SwapQuote, error) {
	info, err := s.TokenInfo(ctx, tokenAddress)
	if err != nil {
		return SwapQuote{}, err
	}
	if !info.Price.IsPositive() {
		return SwapQuote{}, &domain.ExternalError{
			Service: "solscan",
			Err:     fmt.Errorf("no price available for %s", tokenAddress),
		}
	}
	return quoteFromPrice(amount, info.Price, decimal.Zero), nil
}

// SendTransaction submits a swap. Never retried: the idempotency key is
// forwarded so a resubmitted request cannot double-spend.
func (s *Solana) SendTransaction(ctx context.Context, walletAddress, tokenAddress string, amount decimal.Decimal, idempotencyKey string) (SendResult, error) {
	payload, err := json.Marshal(map[string]string{
		"wallet": walletAddress,
		"token":  tokenAddress,
		"amount": amount.String(),
	})
	if err != nil {
		return SendResult{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/transaction/send", bytes.NewReader(payload))
	if err != nil {
		return SendResult{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Idempotency-Key", idempotencyKey)

	resp, err := s.client.Do(req)
	if err != nil {
		return SendResult{}, &domain.ExternalError{Service: "solscan", Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return SendResult{}, &domain.ExternalError{Service: "solscan", Err: err}
	}
	if resp.StatusCode != http.StatusOK {
		return SendResult{}, &domain.ExternalError{
			Service: "solscan",
			Status:  resp.StatusCode,
			Err:     fmt.Errorf("send transaction: %s", strings.TrimSpace(string(body))),
		}
	}

	var result struct {
		Hash string `json:"hash"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return SendResult{}, &domain.ExternalError{Service: "solscan", Err: err}
	}
	return SendResult{Hash: result.Hash}, nil
}

func (s *Solana) getJSON(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+path, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return &domain.ExternalError{Service: "solscan", Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return &domain.ExternalError{Service: "solscan", Err: err}
	}
	if resp.StatusCode != http.StatusOK {
		return &domain.ExternalError{
			Service: "solscan",
			Status:  resp.StatusCode,
			Err:     fmt.Errorf("unexpected response: %s", strings.TrimSpace(string(body))),
		}
	}
	if err := json.Unmarshal(body, out); err != nil {
		return &domain.ExternalError{Service: "solscan", Err: err}
	}
	return nil
}

var _ Service = (*Solana)(nil)
