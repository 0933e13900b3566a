package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"wallet-bot/internal/chains"
	"wallet-bot/internal/domain"
	"wallet-bot/internal/retry"
)

const minPasswordLen = 6

// SecretStore gates wallet secret material behind a security password.
type SecretStore interface {
	PasswordSet(ctx context.Context, ownerID int64, chain domain.Chain) (bool, error)
	SetPassword(ctx context.Context, ownerID int64, chain domain.Chain, password string) error
	Compare(ctx context.Context, ownerID int64, chain domain.Chain, candidate string) (bool, error)
	Reveal(ctx context.Context, ownerID int64, chain domain.Chain) (string, error)
}

// WalletAttacher persists the wallet a user attaches. Upserting with
// empty secret material must keep any previously stored secret.
type WalletAttacher interface {
	UpsertWallet(ctx context.Context, wallet domain.Wallet) error
	GetWallet(ctx context.Context, ownerID int64, chain domain.Chain) (domain.Wallet, error)
}

// OrderCreator records orders produced by confirmed trade drafts.
type OrderCreator interface {
	CreateOrder(ctx context.Context, order domain.Order) (domain.Order, error)
}

// Manager routes inbound text to the handler for the user's current
// step. Every public method returns the reply to show the user; errors
// never escape, they are logged and turned into plain-language replies.
type Manager struct {
	store      *Store
	chains     chains.Registry
	secrets    SecretStore
	wallets    WalletAttacher
	orders     OrderCreator
	policy     retry.Policy
	defaultBuy decimal.Decimal
	logger     zerolog.Logger
}

// Options collect the Manager's collaborators.
type Options struct {
	Store            *Store
	Chains           chains.Registry
	Secrets          SecretStore
	Wallets          WalletAttacher
	Orders           OrderCreator
	Policy           retry.Policy
	DefaultBuyAmount decimal.Decimal
}

// NewManager constructs the session manager.
func NewManager(opts Options, logger zerolog.Logger) *Manager {
	defaultBuy := opts.DefaultBuyAmount
	if !defaultBuy.IsPositive() {
		defaultBuy = decimal.RequireFromString("0.01")
	}
	return &Manager{
		store:      opts.Store,
		chains:     opts.Chains,
		secrets:    opts.Secrets,
		wallets:    opts.Wallets,
		orders:     opts.Orders,
		policy:     opts.Policy,
		defaultBuy: defaultBuy,
		logger:     logger.With().Str("component", "session_manager").Logger(),
	}
}

const (
	replyTryLater   = "Something went wrong upstream. Please try again later."
	replyNoDraft    = "No trade in progress. Use /buy or /sell to start one."
	replyNoWallet   = "No wallet attached for this chain yet. Use /wallet to attach one."
	replyBadChain   = "That chain is not supported."
	replyCancelled  = "Trade cancelled."
	replyPromptAddr = "Send the token address you want to trade."
)

// BeginWalletAttach starts the attach-wallet flow. Any pending flow for
// the user is discarded.
func (m *Manager) BeginWalletAttach(ctx context.Context, userID int64, chain domain.Chain) string {
	if !domain.KnownChain(chain) {
		return replyBadChain
	}
	m.store.With(userID, func(sess *Session) {
		*sess = Session{Step: StepAwaitingWalletAddress, Chain: chain}
	})
	return fmt.Sprintf("Send your %s wallet address.", chain)
}

// BeginBuy starts the buy flow for a chain.
func (m *Manager) BeginBuy(ctx context.Context, userID int64, chain domain.Chain) string {
	if !domain.KnownChain(chain) {
		return replyBadChain
	}
	if _, err := m.wallets.GetWallet(ctx, userID, chain); err != nil {
		if domain.IsNotFound(err) {
			return replyNoWallet
		}
		m.logger.Error().Err(err).Int64("user_id", userID).Msg("wallet lookup failed")
		return replyTryLater
	}
	m.store.With(userID, func(sess *Session) {
		*sess = Session{Step: StepAwaitingBuyTokenAddress, Chain: chain}
	})
	return replyPromptAddr
}

// BeginSell starts the sell flow for a chain.
func (m *Manager) BeginSell(ctx context.Context, userID int64, chain domain.Chain) string {
	if !domain.KnownChain(chain) {
		return replyBadChain
	}
	m.store.With(userID, func(sess *Session) {
		*sess = Session{Step: StepAwaitingSellTokenAddress, Chain: chain}
	})
	return replyPromptAddr
}

// BeginReveal starts the secret-reveal flow. Users without a security
// password are routed through setup first.
func (m *Manager) BeginReveal(ctx context.Context, userID int64, chain domain.Chain) string {
	if !domain.KnownChain(chain) {
		return replyBadChain
	}
	hasPassword, err := m.secrets.PasswordSet(ctx, userID, chain)
	if err != nil {
		if domain.IsNotFound(err) {
			return replyNoWallet
		}
		m.logger.Error().Err(err).Int64("user_id", userID).Msg("password lookup failed")
		return replyTryLater
	}

	if !hasPassword {
		m.store.With(userID, func(sess *Session) {
			*sess = Session{Step: StepAwaitingPasswordSetup, Chain: chain}
		})
		return fmt.Sprintf("Set a security password first (at least %d characters).", minPasswordLen)
	}
	m.store.With(userID, func(sess *Session) {
		*sess = Session{Step: StepAwaitingPasswordVerification, Chain: chain}
	})
	return "Enter your security password."
}

// BeginCustomAmount asks for a custom input amount for the active draft.
func (m *Manager) BeginCustomAmount(ctx context.Context, userID int64) string {
	reply := replyNoDraft
	m.store.With(userID, func(sess *Session) {
		if sess.Draft == nil {
			return
		}
		sess.Step = StepAwaitingCustomAmount
		reply = "Enter the amount you want to spend."
	})
	return reply
}

// SelectAmount applies a preset amount to the active draft.
func (m *Manager) SelectAmount(ctx context.Context, userID int64, amount decimal.Decimal) string {
	if !amount.IsPositive() {
		return "Amount must be a positive number."
	}
	reply := replyNoDraft
	m.store.With(userID, func(sess *Session) {
		if sess.Draft == nil {
			return
		}
		reply = m.applyAmount(ctx, sess, amount)
	})
	return reply
}

// ConfirmTrade turns the active draft into a market order and submits
// the swap. The send is never retried; the idempotency key protects a
// manual resubmission.
func (m *Manager) ConfirmTrade(ctx context.Context, userID int64) string {
	reply := replyNoDraft
	m.store.With(userID, func(sess *Session) {
		if sess.Draft == nil {
			return
		}
		reply = m.confirmDraft(ctx, userID, sess)
	})
	return reply
}

func (m *Manager) confirmDraft(ctx context.Context, userID int64, sess *Session) string {
	draft := sess.Draft

	svc := m.chains.For(draft.Chain)
	if svc == nil {
		return replyBadChain
	}

	wallet, err := m.wallets.GetWallet(ctx, userID, draft.Chain)
	if err != nil {
		if domain.IsNotFound(err) {
			return replyNoWallet
		}
		m.logger.Error().Err(err).Int64("user_id", userID).Msg("wallet lookup failed")
		return replyTryLater
	}

	order := domain.Order{
		OwnerID: userID,
		Chain:   draft.Chain,
		Type:    domain.OrderMarket,
		Side:    draft.Side,
		Symbol:  draft.Token.Symbol,
		Amount:  draft.SelectedAmount,
	}
	if problems := domain.ValidateOrder(order); problems != nil {
		return problems.Error()
	}

	created, err := m.orders.CreateOrder(ctx, order)
	if err != nil {
		m.logger.Error().Err(err).Int64("user_id", userID).Msg("create order failed")
		return replyTryLater
	}

	result, err := svc.SendTransaction(ctx, wallet.Address, draft.TokenAddress, draft.SelectedAmount, created.ID.String())
	if err != nil {
		m.logger.Error().Err(err).Int64("user_id", userID).
			Str("order_id", created.ID.String()).
			Msg("swap submission failed")
		return "Order recorded but the swap could not be submitted. Try /orders to check its state."
	}

	*sess = Session{Step: StepIdle}
	return fmt.Sprintf("✅ %s order placed for %s %s. Transaction: %s",
		strings.ToLower(string(draft.Side)), draft.SelectedAmount.String(), draft.Token.Symbol, result.Hash)
}

// CancelTrade discards the active draft.
func (m *Manager) CancelTrade(ctx context.Context, userID int64) string {
	reply := replyNoDraft
	m.store.With(userID, func(sess *Session) {
		if sess.Draft == nil && sess.Step == StepIdle {
			return
		}
		*sess = Session{Step: StepIdle}
		reply = replyCancelled
	})
	return reply
}

// HandleText routes free text according to the user's current step.
func (m *Manager) HandleText(ctx context.Context, userID int64, text string) string {
	text = strings.TrimSpace(text)
	var reply string
	m.store.With(userID, func(sess *Session) {
		switch sess.Step {
		case StepAwaitingWalletAddress:
			reply = m.handleWalletAddress(ctx, userID, sess, text)
		case StepAwaitingBuyTokenAddress:
			reply = m.handleTokenAddress(ctx, sess, text, domain.SideBuy)
		case StepAwaitingSellTokenAddress:
			reply = m.handleTokenAddress(ctx, sess, text, domain.SideSell)
		case StepAwaitingCustomAmount, StepAwaitingSellAmount:
			reply = m.handleAmount(ctx, sess, text)
		case StepAwaitingPasswordSetup:
			reply = m.handlePasswordSetup(ctx, userID, sess, text)
		case StepAwaitingPasswordVerification:
			reply = m.handlePasswordVerification(ctx, userID, sess, text)
		default:
			reply = "I wasn't expecting a message. Use /buy, /sell or /setalert to start."
		}
	})
	return reply
}

func (m *Manager) handleWalletAddress(ctx context.Context, userID int64, sess *Session, text string) string {
	svc := m.chains.For(sess.Chain)
	if svc == nil {
		*sess = Session{Step: StepIdle}
		return replyBadChain
	}
	if !svc.ValidateAddress(text) {
		return fmt.Sprintf("That does not look like a valid %s address. Try again.", sess.Chain)
	}

	err := m.wallets.UpsertWallet(ctx, domain.Wallet{
		OwnerID: userID,
		Chain:   sess.Chain,
		Address: text,
	})
	if err != nil {
		m.logger.Error().Err(err).Int64("user_id", userID).Msg("wallet upsert failed")
		return replyTryLater
	}

	chain := sess.Chain
	*sess = Session{Step: StepIdle}
	return fmt.Sprintf("%s wallet attached.", chain)
}

// handleTokenAddress validates the address, fetches metadata and a
// quote through the retry policy, and builds the draft with the default
// trial amount. Buys return to idle with the draft ready to confirm;
// sells go on to ask for the amount, since there is no sensible sell
// default.
func (m *Manager) handleTokenAddress(ctx context.Context, sess *Session, text string, side domain.OrderSide) string {
	svc := m.chains.For(sess.Chain)
	if svc == nil {
		*sess = Session{Step: StepIdle}
		return replyBadChain
	}
	if !svc.ValidateAddress(text) {
		return fmt.Sprintf("That does not look like a valid %s token address. Try again.", sess.Chain)
	}

	info, err := retry.DoValue(ctx, m.policy, func() (chains.TokenInfo, error) {
		return svc.TokenInfo(ctx, text)
	})
	if err != nil {
		m.logger.Warn().Err(err).Str("token", text).Msg("token metadata fetch failed")
		return m.upstreamReply(err)
	}

	quote, err := retry.DoValue(ctx, m.policy, func() (chains.SwapQuote, error) {
		return svc.SwapQuote(ctx, text, m.defaultBuy)
	})
	if err != nil {
		m.logger.Warn().Err(err).Str("token", text).Msg("swap quote fetch failed")
		return m.upstreamReply(err)
	}

	draft := &TradeDraft{
		Chain:          sess.Chain,
		TokenAddress:   text,
		Token:          info,
		Quote:          quote,
		Side:           side,
		SelectedAmount: m.defaultBuy,
		CreatedAt:      time.Now(),
	}
	if side == domain.SideSell {
		*sess = Session{Step: StepAwaitingSellAmount, Chain: sess.Chain, Draft: draft}
		return fmt.Sprintf("Selling %s (%s) at %s USD.\nEnter the amount to sell.",
			info.Name, info.Symbol, info.Price.String())
	}

	*sess = Session{Step: StepIdle, Chain: sess.Chain, Draft: draft}
	return renderDraft(draft)
}

func (m *Manager) handleAmount(ctx context.Context, sess *Session, text string) string {
	amount, err := decimal.NewFromString(text)
	if err != nil || !amount.IsPositive() {
		return "Amount must be a positive number. Try again."
	}
	if sess.Draft == nil {
		*sess = Session{Step: StepIdle}
		return replyNoDraft
	}
	reply := m.applyAmount(ctx, sess, amount)
	sess.Step = StepIdle
	return reply
}

// applyAmount refreshes the quote for the new amount and re-renders the
// summary. A failed re-quote keeps the previous quote and says so.
func (m *Manager) applyAmount(ctx context.Context, sess *Session, amount decimal.Decimal) string {
	draft := sess.Draft
	draft.SelectedAmount = amount

	svc := m.chains.For(draft.Chain)
	if svc != nil {
		quote, err := retry.DoValue(ctx, m.policy, func() (chains.SwapQuote, error) {
			return svc.SwapQuote(ctx, draft.TokenAddress, amount)
		})
		if err != nil {
			m.logger.Warn().Err(err).Str("token", draft.TokenAddress).Msg("re-quote failed")
			return renderDraft(draft) + "\n(quote may be stale; the latest refresh failed)"
		}
		draft.Quote = quote
	}
	return renderDraft(draft)
}

func (m *Manager) handlePasswordSetup(ctx context.Context, userID int64, sess *Session, text string) string {
	if len(text) < minPasswordLen {
		return fmt.Sprintf("Password must be at least %d characters. Try again.", minPasswordLen)
	}
	if err := m.secrets.SetPassword(ctx, userID, sess.Chain, text); err != nil {
		m.logger.Error().Err(err).Int64("user_id", userID).Msg("password setup failed")
		return replyTryLater
	}
	*sess = Session{Step: StepIdle}
	return "Security password set. Use /reveal again to view your secret."
}

func (m *Manager) handlePasswordVerification(ctx context.Context, userID int64, sess *Session, text string) string {
	match, err := m.secrets.Compare(ctx, userID, sess.Chain, text)
	if err != nil {
		m.logger.Error().Err(err).Int64("user_id", userID).Msg("password compare failed")
		return replyTryLater
	}
	if !match {
		// Stay in this step so the user can retry without re-invoking
		// the reveal action.
		return "Wrong password. Try again."
	}

	secret, err := m.secrets.Reveal(ctx, userID, sess.Chain)
	if err != nil {
		m.logger.Error().Err(err).Int64("user_id", userID).Msg("secret reveal failed")
		return replyTryLater
	}
	*sess = Session{Step: StepIdle}
	return fmt.Sprintf("🔑 Your secret material:\n%s\nDelete this message once you have copied it.", secret)
}

func (m *Manager) upstreamReply(err error) string {
	if errors.Is(err, retry.ErrExhausted) || domain.IsRateLimited(err) {
		return replyTryLater
	}
	return "Could not load token data. Check the address and try again."
}

func renderDraft(draft *TradeDraft) string {
	builder := strings.Builder{}
	builder.WriteString(fmt.Sprintf("%s %s (%s)\n", sideLabel(draft.Side), draft.Token.Name, draft.Token.Symbol))
	builder.WriteString(fmt.Sprintf("Price: %s USD\n", draft.Token.Price.String()))
	builder.WriteString(fmt.Sprintf("Amount: %s\n", draft.SelectedAmount.String()))
	builder.WriteString(fmt.Sprintf("Estimated output: %s %s\n", draft.Quote.OutputAmount.String(), draft.Token.Symbol))
	builder.WriteString(fmt.Sprintf("Minimum received: %s %s\n", draft.Quote.MinimumReceived.String(), draft.Token.Symbol))
	builder.WriteString("Confirm with /confirm or discard with /canceltrade.")
	return builder.String()
}

func sideLabel(side domain.OrderSide) string {
	if side == domain.SideSell {
		return "Sell"
	}
	return "Buy"
}
