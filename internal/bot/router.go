package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"wallet-bot/internal/domain"
	"wallet-bot/internal/pricefeed"
)

// Conversation is the session manager surface the router drives.
type Conversation interface {
	BeginWalletAttach(ctx context.Context, userID int64, chain domain.Chain) string
	BeginBuy(ctx context.Context, userID int64, chain domain.Chain) string
	BeginSell(ctx context.Context, userID int64, chain domain.Chain) string
	BeginReveal(ctx context.Context, userID int64, chain domain.Chain) string
	BeginCustomAmount(ctx context.Context, userID int64) string
	SelectAmount(ctx context.Context, userID int64, amount decimal.Decimal) string
	ConfirmTrade(ctx context.Context, userID int64) string
	CancelTrade(ctx context.Context, userID int64) string
	HandleText(ctx context.Context, userID int64, text string) string
}

// Trader is the trading service surface the router drives.
type Trader interface {
	CreateAlert(ctx context.Context, alert domain.Alert) (domain.Alert, error)
	ListActiveAlerts(ctx context.Context, ownerID int64) ([]domain.Alert, error)
	DeleteAlert(ctx context.Context, ownerID int64, id uuid.UUID) error
	CreateOrder(ctx context.Context, order domain.Order) (domain.Order, error)
	ActiveOrders(ctx context.Context, ownerID int64) ([]domain.Order, error)
	OrderHistory(ctx context.Context, ownerID int64, limit int) ([]domain.Order, error)
	CancelOrder(ctx context.Context, ownerID int64, id uuid.UUID) (domain.Order, error)
}

// Pricer is the market data surface behind /price and /pairs.
type Pricer interface {
	GetPrice(ctx context.Context, symbol string) (decimal.Decimal, error)
	Symbols() []string
}

// Router turns one inbound text event into one reply.
type Router struct {
	sessions Conversation
	trader   Trader
	prices   Pricer
	logger   zerolog.Logger
}

// NewRouter constructs the command router.
func NewRouter(sessions Conversation, trader Trader, prices Pricer, logger zerolog.Logger) *Router {
	return &Router{
		sessions: sessions,
		trader:   trader,
		prices:   prices,
		logger:   logger.With().Str("component", "router").Logger(),
	}
}

const helpText = `Commands:
/wallet <chain> - attach a wallet (SOLANA or TON)
/buy <chain>, /sell <chain> - start a trade
/amount [value] - set the trade amount
/confirm, /canceltrade - finish or discard the trade
/reveal <chain> - show wallet secret (password protected)
/price <symbol>, /pairs - market prices
/setalert <chain> <symbol> <above|below> <price> [repeat]
/alerts, /delalert <id> - manage alerts
/market <chain> <buy|sell> <symbol> <amount>
/limit <chain> <buy|sell> <symbol> <amount> <price>
/stoploss <chain> <buy|sell> <symbol> <amount> <price> <stop>
/takeprofit <chain> <buy|sell> <symbol> <amount> <price> <stop>
/orders, /cancel <id>, /history - manage orders`

const replyTryLater = "Something went wrong. Please try again later."

// Dispatch routes a message. Commands are parsed here; anything else
// goes to the session state machine.
func (r *Router) Dispatch(ctx context.Context, userID int64, text string) string {
	text = strings.TrimSpace(text)
	if text == "" {
		return ""
	}
	if !strings.HasPrefix(text, "/") {
		return r.sessions.HandleText(ctx, userID, text)
	}

	fields := strings.Fields(text)
	command := strings.ToLower(strings.TrimPrefix(fields[0], "/"))
	if at := strings.IndexByte(command, '@'); at >= 0 {
		command = command[:at]
	}
	args := fields[1:]

	switch command {
	case "start", "help":
		return helpText
	case "wallet":
		chain, err := parseChain(args, 0)
		if err != nil {
			return err.Error()
		}
		return r.sessions.BeginWalletAttach(ctx, userID, chain)
	case "buy":
		chain, err := parseChain(args, 0)
		if err != nil {
			return err.Error()
		}
		return r.sessions.BeginBuy(ctx, userID, chain)
	case "sell":
		chain, err := parseChain(args, 0)
		if err != nil {
			return err.Error()
		}
		return r.sessions.BeginSell(ctx, userID, chain)
	case "reveal":
		chain, err := parseChain(args, 0)
		if err != nil {
			return err.Error()
		}
		return r.sessions.BeginReveal(ctx, userID, chain)
	case "amount":
		if len(args) > 0 {
			amount, err := decimal.NewFromString(args[0])
			if err != nil {
				return "Amount must be a number."
			}
			return r.sessions.SelectAmount(ctx, userID, amount)
		}
		return r.sessions.BeginCustomAmount(ctx, userID)
	case "price":
		return r.price(ctx, args)
	case "pairs":
		return r.pairs()
	case "confirm":
		return r.sessions.ConfirmTrade(ctx, userID)
	case "canceltrade":
		return r.sessions.CancelTrade(ctx, userID)
	case "setalert":
		return r.setAlert(ctx, userID, args)
	case "alerts":
		return r.listAlerts(ctx, userID)
	case "delalert":
		return r.deleteAlert(ctx, userID, args)
	case "market":
		return r.placeOrder(ctx, userID, domain.OrderMarket, args)
	case "limit":
		return r.placeOrder(ctx, userID, domain.OrderLimit, args)
	case "stoploss":
		return r.placeOrder(ctx, userID, domain.OrderStopLoss, args)
	case "takeprofit":
		return r.placeOrder(ctx, userID, domain.OrderTakeProfit, args)
	case "orders":
		return r.listOrders(ctx, userID)
	case "cancel":
		return r.cancelOrder(ctx, userID, args)
	case "history":
		return r.history(ctx, userID)
	default:
		return "Unknown command. Send /help for the list."
	}
}

// /setalert <chain> <symbol> <above|below> <price> [repeat]
func (r *Router) setAlert(ctx context.Context, userID int64, args []string) string {
	if len(args) < 4 {
		return "Usage: /setalert <chain> <symbol> <above|below> <price> [repeat]"
	}

	chain := domain.Chain(strings.ToUpper(args[0]))
	condition := domain.AlertCondition(strings.ToUpper(args[2]))
	price, err := decimal.NewFromString(args[3])
	if err != nil {
		return "Target price must be a number."
	}

	alert := domain.Alert{
		OwnerID:   userID,
		Chain:     chain,
		Symbol:    strings.ToUpper(args[1]),
		Condition: condition,
		Price:     price,
		Repeat:    len(args) > 4 && strings.EqualFold(args[4], "repeat"),
	}

	created, err := r.trader.CreateAlert(ctx, alert)
	if err != nil {
		return r.userError(err)
	}

	repeatNote := ""
	if created.Repeat {
		repeatNote = " (repeating)"
	}
	return fmt.Sprintf("Alert set: %s %s %s%s\nID: %s",
		created.Symbol, strings.ToLower(string(created.Condition)), created.Price.String(), repeatNote, created.ID)
}

// /price <symbol>
func (r *Router) price(ctx context.Context, args []string) string {
	if len(args) < 1 {
		return "Usage: /price <symbol>"
	}
	symbol := strings.ToUpper(args[0])
	price, err := r.prices.GetPrice(ctx, symbol)
	if err != nil {
		if errors.Is(err, pricefeed.ErrUnsupportedSymbol) {
			return fmt.Sprintf("%s is not tracked. Send /pairs for the list.", symbol)
		}
		r.logger.Warn().Err(err).Str("symbol", symbol).Msg("price lookup failed")
		return replyTryLater
	}
	return fmt.Sprintf("%s: %s USD", symbol, price.String())
}

func (r *Router) pairs() string {
	symbols := r.prices.Symbols()
	if len(symbols) == 0 {
		return "No tracked pairs configured."
	}
	return "Tracked pairs:\n• " + strings.Join(symbols, "\n• ")
}

func (r *Router) listAlerts(ctx context.Context, userID int64) string {
	alerts, err := r.trader.ListActiveAlerts(ctx, userID)
	if err != nil {
		return r.userError(err)
	}
	if len(alerts) == 0 {
		return "No active alerts. Create one with /setalert."
	}

	builder := strings.Builder{}
	builder.WriteString("Active alerts:\n")
	for _, a := range alerts {
		builder.WriteString(fmt.Sprintf("• %s %s %s", a.Symbol, strings.ToLower(string(a.Condition)), a.Price.String()))
		if a.Repeat {
			builder.WriteString(" (repeating)")
		}
		builder.WriteString(fmt.Sprintf("\n  id: %s\n", a.ID))
	}
	return strings.TrimRight(builder.String(), "\n")
}

func (r *Router) deleteAlert(ctx context.Context, userID int64, args []string) string {
	if len(args) < 1 {
		return "Usage: /delalert <id>"
	}
	id, err := uuid.Parse(args[0])
	if err != nil {
		return "That does not look like an alert id."
	}
	if err := r.trader.DeleteAlert(ctx, userID, id); err != nil {
		return r.userError(err)
	}
	return "Alert deleted."
}

// placeOrder parses the shared tail of the order commands:
// <chain> <buy|sell> <symbol> <amount> [price] [stop]
func (r *Router) placeOrder(ctx context.Context, userID int64, typ domain.OrderType, args []string) string {
	usage := map[domain.OrderType]string{
		domain.OrderMarket:     "Usage: /market <chain> <buy|sell> <symbol> <amount>",
		domain.OrderLimit:      "Usage: /limit <chain> <buy|sell> <symbol> <amount> <price>",
		domain.OrderStopLoss:   "Usage: /stoploss <chain> <buy|sell> <symbol> <amount> <price> <stop>",
		domain.OrderTakeProfit: "Usage: /takeprofit <chain> <buy|sell> <symbol> <amount> <price> <stop>",
	}[typ]

	minArgs := 4
	if typ == domain.OrderLimit {
		minArgs = 5
	}
	if typ == domain.OrderStopLoss || typ == domain.OrderTakeProfit {
		minArgs = 6
	}
	if len(args) < minArgs {
		return usage
	}

	amount, err := decimal.NewFromString(args[3])
	if err != nil {
		return "Amount must be a number."
	}

	order := domain.Order{
		OwnerID: userID,
		Chain:   domain.Chain(strings.ToUpper(args[0])),
		Type:    typ,
		Side:    domain.OrderSide(strings.ToUpper(args[1])),
		Symbol:  strings.ToUpper(args[2]),
		Amount:  amount,
	}

	if len(args) > 4 {
		price, err := decimal.NewFromString(args[4])
		if err != nil {
			return "Price must be a number."
		}
		order.Price = &price
	}
	if len(args) > 5 {
		stop, err := decimal.NewFromString(args[5])
		if err != nil {
			return "Stop price must be a number."
		}
		order.StopPrice = &stop
	}

	created, err := r.trader.CreateOrder(ctx, order)
	if err != nil {
		return r.userError(err)
	}
	return fmt.Sprintf("Order placed: %s %s %s %s\nID: %s",
		strings.ToLower(string(created.Type)), strings.ToLower(string(created.Side)),
		created.Amount.String(), created.Symbol, created.ID)
}

func (r *Router) listOrders(ctx context.Context, userID int64) string {
	orders, err := r.trader.ActiveOrders(ctx, userID)
	if err != nil {
		return r.userError(err)
	}
	if len(orders) == 0 {
		return "No open orders."
	}
	return renderOrders("Open orders:", orders)
}

func (r *Router) cancelOrder(ctx context.Context, userID int64, args []string) string {
	if len(args) < 1 {
		return "Usage: /cancel <id>"
	}
	id, err := uuid.Parse(args[0])
	if err != nil {
		return "That does not look like an order id."
	}
	order, err := r.trader.CancelOrder(ctx, userID, id)
	if err != nil {
		return r.userError(err)
	}
	return fmt.Sprintf("Order %s cancelled.", order.ID)
}

func (r *Router) history(ctx context.Context, userID int64) string {
	orders, err := r.trader.OrderHistory(ctx, userID, 0)
	if err != nil {
		return r.userError(err)
	}
	if len(orders) == 0 {
		return "No order history yet."
	}
	return renderOrders("Order history:", orders)
}

func renderOrders(title string, orders []domain.Order) string {
	builder := strings.Builder{}
	builder.WriteString(title + "\n")
	for _, o := range orders {
		builder.WriteString(fmt.Sprintf("• %s %s %s %s [%s]",
			strings.ToLower(string(o.Type)), strings.ToLower(string(o.Side)),
			o.Amount.String(), o.Symbol, o.Status))
		if o.Price != nil {
			builder.WriteString(fmt.Sprintf(" @ %s", o.Price.String()))
		}
		builder.WriteString(fmt.Sprintf("\n  id: %s\n", o.ID))
	}
	return strings.TrimRight(builder.String(), "\n")
}

func parseChain(args []string, idx int) (domain.Chain, error) {
	if len(args) <= idx {
		return "", fmt.Errorf("Specify the chain: SOLANA or TON.")
	}
	chain := domain.Chain(strings.ToUpper(args[idx]))
	if !domain.KnownChain(chain) {
		return "", fmt.Errorf("Unsupported chain %q. Use SOLANA or TON.", args[idx])
	}
	return chain, nil
}

// userError maps domain failures onto plain-language replies. Raw error
// detail never crosses to the user.
func (r *Router) userError(err error) string {
	switch {
	case domain.IsValidation(err):
		return err.Error()
	case domain.IsNotFound(err):
		return "Not found. Check the id and try again."
	case domain.IsStateError(err):
		return err.Error()
	default:
		r.logger.Error().Err(err).Msg("command failed")
		return replyTryLater
	}
}
