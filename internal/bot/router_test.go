package bot

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"wallet-bot/internal/domain"
	"wallet-bot/internal/pricefeed"
)

type fakeConversation struct {
	lastCall string
	lastText string
}

func (f *fakeConversation) BeginWalletAttach(ctx context.Context, userID int64, chain domain.Chain) string {
	f.lastCall = "wallet:" + string(chain)
	return "send address"
}

func (f *fakeConversation) BeginBuy(ctx context.Context, userID int64, chain domain.Chain) string {
	f.lastCall = "buy:" + string(chain)
	return "send token"
}

func (f *fakeConversation) BeginSell(ctx context.Context, userID int64, chain domain.Chain) string {
	f.lastCall = "sell:" + string(chain)
	return "send token"
}

func (f *fakeConversation) BeginReveal(ctx context.Context, userID int64, chain domain.Chain) string {
	f.lastCall = "reveal:" + string(chain)
	return "enter password"
}

func (f *fakeConversation) BeginCustomAmount(ctx context.Context, userID int64) string {
	f.lastCall = "amount"
	return "enter amount"
}

func (f *fakeConversation) SelectAmount(ctx context.Context, userID int64, amount decimal.Decimal) string {
	f.lastCall = "amount:" + amount.String()
	return "amount set"
}

func (f *fakeConversation) ConfirmTrade(ctx context.Context, userID int64) string {
	f.lastCall = "confirm"
	return "done"
}

func (f *fakeConversation) CancelTrade(ctx context.Context, userID int64) string {
	f.lastCall = "canceltrade"
	return "cancelled"
}

func (f *fakeConversation) HandleText(ctx context.Context, userID int64, text string) string {
	f.lastCall = "text"
	f.lastText = text
	return "handled"
}

type fakeTrader struct {
	alerts    []domain.Alert
	orders    []domain.Order
	createErr error
	lastAlert domain.Alert
	lastOrder domain.Order
}

func (f *fakeTrader) CreateAlert(ctx context.Context, alert domain.Alert) (domain.Alert, error) {
	if f.createErr != nil {
		return domain.Alert{}, f.createErr
	}
	if err := domain.ValidateAlert(alert); err != nil {
		return domain.Alert{}, err
	}
	alert.ID = uuid.New()
	f.lastAlert = alert
	return alert, nil
}

func (f *fakeTrader) ListActiveAlerts(ctx context.Context, ownerID int64) ([]domain.Alert, error) {
	return f.alerts, nil
}

func (f *fakeTrader) DeleteAlert(ctx context.Context, ownerID int64, id uuid.UUID) error {
	return &domain.NotFoundError{Resource: "alert", ID: id.String()}
}

func (f *fakeTrader) CreateOrder(ctx context.Context, order domain.Order) (domain.Order, error) {
	if err := domain.ValidateOrder(order); err != nil {
		return domain.Order{}, err
	}
	order.ID = uuid.New()
	f.lastOrder = order
	return order, nil
}

func (f *fakeTrader) ActiveOrders(ctx context.Context, ownerID int64) ([]domain.Order, error) {
	return f.orders, nil
}

func (f *fakeTrader) OrderHistory(ctx context.Context, ownerID int64, limit int) ([]domain.Order, error) {
	return f.orders, nil
}

func (f *fakeTrader) CancelOrder(ctx context.Context, ownerID int64, id uuid.UUID) (domain.Order, error) {
	return domain.Order{}, &domain.StateError{Msg: "order is not pending"}
}

type fakePricer struct {
	prices map[string]decimal.Decimal
	err    error
}

func (f *fakePricer) GetPrice(ctx context.Context, symbol string) (decimal.Decimal, error) {
	if f.err != nil {
		return decimal.Decimal{}, f.err
	}
	price, ok := f.prices[symbol]
	if !ok {
		return decimal.Decimal{}, fmt.Errorf("%w: %s", pricefeed.ErrUnsupportedSymbol, symbol)
	}
	return price, nil
}

func (f *fakePricer) Symbols() []string {
	symbols := make([]string, 0, len(f.prices))
	for symbol := range f.prices {
		symbols = append(symbols, symbol)
	}
	sort.Strings(symbols)
	return symbols
}

func newTestRouter() (*Router, *fakeConversation, *fakeTrader) {
	conv := &fakeConversation{}
	trader := &fakeTrader{}
	prices := &fakePricer{prices: map[string]decimal.Decimal{
		"TON/USDT": decimal.RequireFromString("5.25"),
		"SOL/USDT": decimal.RequireFromString("140"),
	}}
	return NewRouter(conv, trader, prices, zerolog.Nop()), conv, trader
}

func TestFreeTextGoesToSessionManager(t *testing.T) {
	r, conv, _ := newTestRouter()

	reply := r.Dispatch(context.Background(), 1, "hello there")
	if reply != "handled" {
		t.Fatalf("reply = %q", reply)
	}
	if conv.lastCall != "text" || conv.lastText != "hello there" {
		t.Fatalf("free text not routed: %+v", conv)
	}
}

func TestFlowCommands(t *testing.T) {
	r, conv, _ := newTestRouter()
	ctx := context.Background()

	cases := []struct {
		input    string
		wantCall string
	}{
		{"/wallet ton", "wallet:TON"},
		{"/buy solana", "buy:SOLANA"},
		{"/sell TON", "sell:TON"},
		{"/reveal ton", "reveal:TON"},
		{"/amount", "amount"},
		{"/amount 0.5", "amount:0.5"},
		{"/confirm", "confirm"},
		{"/canceltrade", "canceltrade"},
	}
	for _, tc := range cases {
		r.Dispatch(ctx, 1, tc.input)
		if conv.lastCall != tc.wantCall {
			t.Errorf("%q routed to %q, want %q", tc.input, conv.lastCall, tc.wantCall)
		}
	}
}

func TestCommandWithBotSuffix(t *testing.T) {
	r, conv, _ := newTestRouter()

	r.Dispatch(context.Background(), 1, "/buy@my_wallet_bot ton")
	if conv.lastCall != "buy:TON" {
		t.Fatalf("suffixed command routed to %q", conv.lastCall)
	}
}

func TestUnknownChainIsRejected(t *testing.T) {
	r, _, _ := newTestRouter()

	reply := r.Dispatch(context.Background(), 1, "/buy dogechain")
	if !strings.Contains(reply, "Unsupported chain") {
		t.Fatalf("reply = %q", reply)
	}
}

func TestSetAlertParsesArguments(t *testing.T) {
	r, _, trader := newTestRouter()

	reply := r.Dispatch(context.Background(), 1, "/setalert ton ton/usdt above 5.5 repeat")
	if !strings.Contains(reply, "Alert set") {
		t.Fatalf("reply = %q", reply)
	}
	a := trader.lastAlert
	if a.Chain != domain.ChainTON || a.Symbol != "TON/USDT" ||
		a.Condition != domain.ConditionAbove || !a.Repeat {
		t.Fatalf("parsed alert = %+v", a)
	}
	if !a.Price.Equal(decimal.RequireFromString("5.5")) {
		t.Fatalf("price = %s", a.Price)
	}
}

func TestSetAlertValidationSurfacesVerbatim(t *testing.T) {
	r, _, _ := newTestRouter()

	reply := r.Dispatch(context.Background(), 1, "/setalert ton ton/usdt sideways 5.5")
	if !strings.Contains(strings.ToLower(reply), "condition") {
		t.Fatalf("validation detail should reach the user, got %q", reply)
	}
}

func TestLimitOrderParsesPrice(t *testing.T) {
	r, _, trader := newTestRouter()

	reply := r.Dispatch(context.Background(), 1, "/limit ton buy ton/usdt 10 5.5")
	if !strings.Contains(reply, "Order placed") {
		t.Fatalf("reply = %q", reply)
	}
	o := trader.lastOrder
	if o.Type != domain.OrderLimit || o.Price == nil || !o.Price.Equal(decimal.RequireFromString("5.5")) {
		t.Fatalf("parsed order = %+v", o)
	}
}

func TestLimitOrderUsageOnMissingArgs(t *testing.T) {
	r, _, _ := newTestRouter()

	reply := r.Dispatch(context.Background(), 1, "/limit ton buy ton/usdt 10")
	if !strings.Contains(reply, "Usage:") {
		t.Fatalf("reply = %q", reply)
	}
}

func TestStopLossRequiresStopPrice(t *testing.T) {
	r, _, trader := newTestRouter()

	reply := r.Dispatch(context.Background(), 1, "/stoploss ton sell ton/usdt 10 5.5 5.2")
	if !strings.Contains(reply, "Order placed") {
		t.Fatalf("reply = %q", reply)
	}
	o := trader.lastOrder
	if o.StopPrice == nil || !o.StopPrice.Equal(decimal.RequireFromString("5.2")) {
		t.Fatalf("stop price = %v", o.StopPrice)
	}
}

func TestCancelOrderStateErrorSurfaces(t *testing.T) {
	r, _, _ := newTestRouter()

	reply := r.Dispatch(context.Background(), 1, "/cancel "+uuid.NewString())
	if !strings.Contains(reply, "not pending") {
		t.Fatalf("reply = %q", reply)
	}
}

func TestDeleteAlertNotFound(t *testing.T) {
	r, _, _ := newTestRouter()

	reply := r.Dispatch(context.Background(), 1, "/delalert "+uuid.NewString())
	if !strings.Contains(reply, "Not found") {
		t.Fatalf("reply = %q", reply)
	}
}

func TestUnknownCommand(t *testing.T) {
	r, _, _ := newTestRouter()

	reply := r.Dispatch(context.Background(), 1, "/frobnicate")
	if !strings.Contains(reply, "Unknown command") {
		t.Fatalf("reply = %q", reply)
	}
}

func TestPriceCommand(t *testing.T) {
	r, _, _ := newTestRouter()
	ctx := context.Background()

	reply := r.Dispatch(ctx, 1, "/price ton/usdt")
	if !strings.Contains(reply, "TON/USDT") || !strings.Contains(reply, "5.25") {
		t.Fatalf("reply = %q", reply)
	}

	reply = r.Dispatch(ctx, 1, "/price DOGE/USDT")
	if !strings.Contains(reply, "not tracked") {
		t.Fatalf("untracked pair reply = %q", reply)
	}

	if reply := r.Dispatch(ctx, 1, "/price"); !strings.Contains(reply, "Usage") {
		t.Fatalf("missing symbol reply = %q", reply)
	}
}

func TestPairsListsTrackedSymbols(t *testing.T) {
	r, _, _ := newTestRouter()

	reply := r.Dispatch(context.Background(), 1, "/pairs")
	if !strings.Contains(reply, "SOL/USDT") || !strings.Contains(reply, "TON/USDT") {
		t.Fatalf("reply = %q", reply)
	}
}

func TestAmountRejectsNonNumeric(t *testing.T) {
	r, conv, _ := newTestRouter()

	reply := r.Dispatch(context.Background(), 1, "/amount lots")
	if !strings.Contains(reply, "number") {
		t.Fatalf("reply = %q", reply)
	}
	if conv.lastCall != "" {
		t.Fatalf("bad amount should not reach the session manager, got %q", conv.lastCall)
	}
}
