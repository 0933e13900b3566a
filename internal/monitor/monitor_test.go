package monitor

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"wallet-bot/internal/alerting"
	"wallet-bot/internal/domain"
	"wallet-bot/internal/retry"
)

type fakeFeed struct {
	mu     sync.Mutex
	prices map[string]decimal.Decimal
	errs   map[string]error
}

func (f *fakeFeed) GetPrice(ctx context.Context, symbol string) (decimal.Decimal, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err, ok := f.errs[symbol]; ok {
		return decimal.Zero, err
	}
	price, ok := f.prices[symbol]
	if !ok {
		return decimal.Zero, errors.New("unknown symbol")
	}
	return price, nil
}

func (f *fakeFeed) Symbols() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	symbols := make([]string, 0, len(f.prices))
	for symbol := range f.prices {
		symbols = append(symbols, symbol)
	}
	return symbols
}

type fakeAlerts struct {
	mu     sync.Mutex
	alerts map[uuid.UUID]domain.Alert
}

func newFakeAlerts(alerts ...domain.Alert) *fakeAlerts {
	f := &fakeAlerts{alerts: make(map[uuid.UUID]domain.Alert)}
	for _, a := range alerts {
		f.alerts[a.ID] = a
	}
	return f
}

func (f *fakeAlerts) ListAlertsForEvaluation(ctx context.Context, symbol string) ([]domain.Alert, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Alert
	for _, a := range f.alerts {
		if a.Symbol != symbol {
			continue
		}
		if a.Status == domain.AlertActive || (a.Status == domain.AlertTriggered && a.Repeat) {
			out = append(out, a)
		}
	}
	return out, nil
}

func (f *fakeAlerts) TransitionAlert(ctx context.Context, id uuid.UUID, from, to domain.AlertStatus, firedAt *time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.alerts[id]
	if !ok || a.Status != from {
		return false, nil
	}
	a.Status = to
	if firedAt != nil {
		ts := *firedAt
		a.LastTriggered = &ts
	}
	f.alerts[id] = a
	return true, nil
}

func (f *fakeAlerts) get(id uuid.UUID) domain.Alert {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.alerts[id]
}

type fakeNotifier struct {
	mu    sync.Mutex
	sent  []alerting.Notification
	users []int64
	err   error
}

func (f *fakeNotifier) Notify(ctx context.Context, userID int64, note alerting.Notification) error {
	if f.err != nil {
		return f.err
	}
	f.mu.Lock()
	f.sent = append(f.sent, note)
	f.users = append(f.users, userID)
	f.mu.Unlock()
	return nil
}

func (f *fakeNotifier) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}

type fakeSamples struct {
	mu      sync.Mutex
	samples []domain.PriceSample
}

func (f *fakeSamples) InsertPriceSample(ctx context.Context, sample domain.PriceSample) error {
	f.mu.Lock()
	f.samples = append(f.samples, sample)
	f.mu.Unlock()
	return nil
}

func testPolicy() retry.Policy {
	return retry.Policy{BaseDelay: time.Millisecond, MaxAttempts: 1}
}

func activeAlert(symbol string, cond domain.AlertCondition, target string, repeat bool) domain.Alert {
	return domain.Alert{
		ID:        uuid.New(),
		OwnerID:   7,
		Chain:     domain.ChainTON,
		Symbol:    symbol,
		Condition: cond,
		Price:     decimal.RequireFromString(target),
		Repeat:    repeat,
		Status:    domain.AlertActive,
	}
}

func TestOneShotAlertFiresOnceThenDisabled(t *testing.T) {
	alert := activeAlert("TON/USDT", domain.ConditionAbove, "5", false)
	alerts := newFakeAlerts(alert)
	feed := &fakeFeed{prices: map[string]decimal.Decimal{"TON/USDT": decimal.RequireFromString("5.5")}}
	notifier := &fakeNotifier{}

	m := New(Options{
		Feed: feed, Alerts: alerts, Notifier: notifier,
		Policy: testPolicy(), Symbols: []string{"TON/USDT"},
	}, zerolog.Nop())

	now := time.Now()
	if err := m.Tick(context.Background(), now); err != nil {
		t.Fatalf("Tick: %v", err)
	}

	if notifier.count() != 1 {
		t.Fatalf("notifications = %d, want 1", notifier.count())
	}
	if got := alerts.get(alert.ID).Status; got != domain.AlertDisabled {
		t.Fatalf("status = %s, want DISABLED", got)
	}

	// A second tick at the same price must stay quiet.
	if err := m.Tick(context.Background(), now.Add(time.Minute)); err != nil {
		t.Fatalf("Tick: %v", err)
	}
	if notifier.count() != 1 {
		t.Fatalf("disabled alert fired again: %d notifications", notifier.count())
	}
}

func TestRepeatAlertReArms(t *testing.T) {
	alert := activeAlert("TON/USDT", domain.ConditionAbove, "5", true)
	alerts := newFakeAlerts(alert)
	feed := &fakeFeed{prices: map[string]decimal.Decimal{"TON/USDT": decimal.RequireFromString("5.5")}}
	notifier := &fakeNotifier{}

	m := New(Options{
		Feed: feed, Alerts: alerts, Notifier: notifier,
		Policy: testPolicy(), Symbols: []string{"TON/USDT"},
	}, zerolog.Nop())

	now := time.Now()
	if err := m.Tick(context.Background(), now); err != nil {
		t.Fatalf("Tick: %v", err)
	}

	fired := alerts.get(alert.ID)
	if fired.Status != domain.AlertTriggered {
		t.Fatalf("status = %s, want TRIGGERED", fired.Status)
	}
	if fired.LastTriggered == nil || !fired.LastTriggered.Equal(now) {
		t.Fatalf("last triggered = %v, want %v", fired.LastTriggered, now)
	}

	// Still satisfied next tick, so it fires again.
	if err := m.Tick(context.Background(), now.Add(time.Minute)); err != nil {
		t.Fatalf("Tick: %v", err)
	}
	if notifier.count() != 2 {
		t.Fatalf("notifications = %d, want 2", notifier.count())
	}
}

func TestBoundaryPriceTriggers(t *testing.T) {
	alert := activeAlert("TON/USDT", domain.ConditionBelow, "5", false)
	alerts := newFakeAlerts(alert)
	feed := &fakeFeed{prices: map[string]decimal.Decimal{"TON/USDT": decimal.RequireFromString("5")}}
	notifier := &fakeNotifier{}

	m := New(Options{
		Feed: feed, Alerts: alerts, Notifier: notifier,
		Policy: testPolicy(), Symbols: []string{"TON/USDT"},
	}, zerolog.Nop())

	if err := m.Tick(context.Background(), time.Now()); err != nil {
		t.Fatalf("Tick: %v", err)
	}
	if notifier.count() != 1 {
		t.Fatal("price equal to target must trigger")
	}
}

func TestNotifyFailureLeavesAlertActive(t *testing.T) {
	alert := activeAlert("TON/USDT", domain.ConditionAbove, "5", false)
	alerts := newFakeAlerts(alert)
	feed := &fakeFeed{prices: map[string]decimal.Decimal{"TON/USDT": decimal.RequireFromString("5.5")}}
	notifier := &fakeNotifier{err: errors.New("delivery failed")}

	m := New(Options{
		Feed: feed, Alerts: alerts, Notifier: notifier,
		Policy: testPolicy(), Symbols: []string{"TON/USDT"},
	}, zerolog.Nop())

	if err := m.Tick(context.Background(), time.Now()); err != nil {
		t.Fatalf("Tick: %v", err)
	}

	// Notification comes before the transition, so the alert stays
	// eligible for the next tick.
	if got := alerts.get(alert.ID).Status; got != domain.AlertActive {
		t.Fatalf("status = %s, want ACTIVE after delivery failure", got)
	}
}

func TestSymbolFailureIsIsolated(t *testing.T) {
	tonAlert := activeAlert("TON/USDT", domain.ConditionAbove, "5", false)
	solAlert := activeAlert("SOL/USDT", domain.ConditionAbove, "100", false)
	alerts := newFakeAlerts(tonAlert, solAlert)
	feed := &fakeFeed{
		prices: map[string]decimal.Decimal{"SOL/USDT": decimal.RequireFromString("150")},
		errs:   map[string]error{"TON/USDT": errors.New("feed down")},
	}
	notifier := &fakeNotifier{}

	m := New(Options{
		Feed: feed, Alerts: alerts, Notifier: notifier,
		Policy: testPolicy(), Symbols: []string{"TON/USDT", "SOL/USDT"},
	}, zerolog.Nop())

	if err := m.Tick(context.Background(), time.Now()); err != nil {
		t.Fatalf("Tick should swallow per-symbol failures: %v", err)
	}
	if notifier.count() != 1 {
		t.Fatalf("the healthy symbol should still fire, got %d notifications", notifier.count())
	}
	if got := alerts.get(solAlert.ID).Status; got != domain.AlertDisabled {
		t.Fatalf("SOL alert status = %s, want DISABLED", got)
	}
}

func TestTickRecordsPriceSamples(t *testing.T) {
	alerts := newFakeAlerts()
	feed := &fakeFeed{prices: map[string]decimal.Decimal{"TON/USDT": decimal.RequireFromString("5.5")}}
	samples := &fakeSamples{}

	m := New(Options{
		Feed: feed, Alerts: alerts, Samples: samples, Notifier: &fakeNotifier{},
		Policy: testPolicy(), Symbols: []string{"ton/usdt"},
	}, zerolog.Nop())

	if err := m.Tick(context.Background(), time.Now()); err != nil {
		t.Fatalf("Tick: %v", err)
	}
	if len(samples.samples) != 1 {
		t.Fatalf("samples = %d, want 1", len(samples.samples))
	}
	if samples.samples[0].Symbol != "TON/USDT" {
		t.Fatalf("symbol should be normalized to upper case, got %q", samples.samples[0].Symbol)
	}
}
