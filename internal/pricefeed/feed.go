package pricefeed

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
)

// ErrUnsupportedSymbol is returned for symbols outside the tracked set.
var ErrUnsupportedSymbol = errors.New("pricefeed: unsupported symbol")

// Feed retrieves the current price for a tracked symbol and reports
// which symbols are tracked.
type Feed interface {
	GetPrice(ctx context.Context, symbol string) (decimal.Decimal, error)
	Symbols() []string
}
