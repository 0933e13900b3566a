package session

import (
	"time"

	"github.com/shopspring/decimal"

	"wallet-bot/internal/chains"
	"wallet-bot/internal/domain"
)

// Step is the tagged state of a user's conversation. A user with no
// session slot is in StepIdle.
type Step int

const (
	StepIdle Step = iota
	StepAwaitingWalletAddress
	StepAwaitingBuyTokenAddress
	StepAwaitingSellTokenAddress
	StepAwaitingCustomAmount
	StepAwaitingSellAmount
	StepAwaitingPasswordSetup
	StepAwaitingPasswordVerification
)

var stepNames = map[Step]string{
	StepIdle:                         "idle",
	StepAwaitingWalletAddress:        "awaiting_wallet_address",
	StepAwaitingBuyTokenAddress:      "awaiting_buy_token_address",
	StepAwaitingSellTokenAddress:     "awaiting_sell_token_address",
	StepAwaitingCustomAmount:         "awaiting_custom_amount",
	StepAwaitingSellAmount:           "awaiting_sell_amount",
	StepAwaitingPasswordSetup:        "awaiting_password_setup",
	StepAwaitingPasswordVerification: "awaiting_password_verification",
}

func (s Step) String() string {
	if name, ok := stepNames[s]; ok {
		return name
	}
	return "unknown"
}

// Session is the step-scoped payload for one user. Exactly one exists
// per user; entering a new flow overwrites it.
type Session struct {
	Step      Step
	Chain     domain.Chain
	Draft     *TradeDraft
	UpdatedAt time.Time
}

// TradeDraft tracks an in-progress buy or sell negotiation.
type TradeDraft struct {
	Chain          domain.Chain
	TokenAddress   string
	Token          chains.TokenInfo
	Quote          chains.SwapQuote
	Side           domain.OrderSide
	SelectedAmount decimal.Decimal
	CreatedAt      time.Time
}
