// Package chains holds the chain-specific collaborators the session
// engine depends on: address validation, token metadata, swap quoting,
// and the non-retried transaction send boundary.
package chains

import (
	"context"

	"github.com/shopspring/decimal"

	"wallet-bot/internal/domain"
)

// TokenInfo is a metadata snapshot for a token at quote time.
type TokenInfo struct {
	Name        string
	Symbol      string
	Decimals    int
	Address     string
	Price       decimal.Decimal
	TotalSupply decimal.Decimal
	Holders     int64
}

// SwapQuote is a quoted swap for a given input amount.
type SwapQuote struct {
	InputAmount     decimal.Decimal
	OutputAmount    decimal.Decimal
	PriceImpact     decimal.Decimal
	MinimumReceived decimal.Decimal
	Fee             decimal.Decimal
}

// SendResult reports an accepted transaction.
type SendResult struct {
	Hash string
}

// Service is the per-chain collaborator surface. TokenInfo and SwapQuote
// are read-only and safe to retry; SendTransaction is not and must never
// be wrapped in a retry policy; the idempotency key is the caller's
// dedupe handle for resubmission.
type Service interface {
	ValidateAddress(address string) bool
	TokenInfo(ctx context.Context, tokenAddress string) (TokenInfo, error)
	SwapQuote(ctx context.Context, tokenAddress string, amount decimal.Decimal) (SwapQuote, error)
	SendTransaction(ctx context.Context, walletAddress, tokenAddress string, amount decimal.Decimal, idempotencyKey string) (SendResult, error)
}

// Registry maps a chain to its collaborator.
type Registry map[domain.Chain]Service

// For returns the collaborator for a chain, or nil when unsupported.
func (r Registry) For(chain domain.Chain) Service {
	return r[chain]
}

// slippageTolerance is the fixed 0.5% haircut applied to quoted output.
var slippageTolerance = decimal.RequireFromString("0.995")

// quoteFromPrice derives a swap quote from a token's spot price.
func quoteFromPrice(amount, price, priceImpact decimal.Decimal) SwapQuote {
	output := amount.Mul(price)
	return SwapQuote{
		InputAmount:     amount,
		OutputAmount:    output,
		PriceImpact:     priceImpact,
		MinimumReceived: output.Mul(slippageTolerance).Round(8),
	}
}
