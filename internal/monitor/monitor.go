// Package monitor polls the price feed and fires alerts whose
// conditions the current price satisfies.
package monitor

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"wallet-bot/internal/alerting"
	"wallet-bot/internal/domain"
	"wallet-bot/internal/pricefeed"
	"wallet-bot/internal/retry"
)

// AlertSource lists alerts to evaluate and applies status transitions.
type AlertSource interface {
	ListAlertsForEvaluation(ctx context.Context, symbol string) ([]domain.Alert, error)
	TransitionAlert(ctx context.Context, id uuid.UUID, from, to domain.AlertStatus, firedAt *time.Time) (bool, error)
}

// SampleSink records observed prices for later export.
type SampleSink interface {
	InsertPriceSample(ctx context.Context, sample domain.PriceSample) error
}

// Monitor evaluates every watched symbol once per tick. One symbol's
// failure never blocks the others; one alert's failure never blocks
// the rest of its symbol.
type Monitor struct {
	feed     pricefeed.Feed
	alerts   AlertSource
	samples  SampleSink
	notifier alerting.Notifier
	policy   retry.Policy
	symbols  []string
	logger   zerolog.Logger
}

// Options collect the monitor's collaborators.
type Options struct {
	Feed     pricefeed.Feed
	Alerts   AlertSource
	Samples  SampleSink
	Notifier alerting.Notifier
	Policy   retry.Policy
	Symbols  []string
}

// New constructs the price alert monitor.
func New(opts Options, logger zerolog.Logger) *Monitor {
	return &Monitor{
		feed:     opts.Feed,
		alerts:   opts.Alerts,
		samples:  opts.Samples,
		notifier: opts.Notifier,
		policy:   opts.Policy,
		symbols:  opts.Symbols,
		logger:   logger.With().Str("component", "monitor").Logger(),
	}
}

// Tick runs one evaluation pass over every watched symbol.
func (m *Monitor) Tick(ctx context.Context, now time.Time) error {
	for _, symbol := range m.symbols {
		symbol = strings.ToUpper(strings.TrimSpace(symbol))
		if symbol == "" {
			continue
		}
		if err := m.evaluateSymbol(ctx, symbol, now); err != nil {
			m.logger.Error().Err(err).Str("symbol", symbol).Msg("symbol evaluation failed")
		}
	}
	return nil
}

func (m *Monitor) evaluateSymbol(ctx context.Context, symbol string, now time.Time) error {
	price, err := retry.DoValue(ctx, m.policy, func() (decimal.Decimal, error) {
		return m.feed.GetPrice(ctx, symbol)
	})
	if err != nil {
		return err
	}

	if m.samples != nil {
		sample := domain.PriceSample{Symbol: symbol, Price: price, ObservedAt: now}
		if err := m.samples.InsertPriceSample(ctx, sample); err != nil {
			m.logger.Warn().Err(err).Str("symbol", symbol).Msg("price sample not recorded")
		}
	}

	alerts, err := m.alerts.ListAlertsForEvaluation(ctx, symbol)
	if err != nil {
		return err
	}

	for _, alert := range alerts {
		if err := m.evaluateAlert(ctx, alert, price, now); err != nil {
			m.logger.Error().Err(err).
				Str("alert_id", alert.ID.String()).
				Int64("owner_id", alert.OwnerID).
				Msg("alert evaluation failed")
		}
	}
	return nil
}

// evaluateAlert notifies first and transitions the status afterwards,
// so a delivery failure leaves the alert eligible for the next tick
// rather than silently consumed.
func (m *Monitor) evaluateAlert(ctx context.Context, alert domain.Alert, price decimal.Decimal, now time.Time) error {
	if !domain.ShouldTrigger(alert.Condition, alert.Price, price) {
		return nil
	}

	note := alerting.Notification{
		Symbol:       alert.Symbol,
		Condition:    alert.Condition,
		TargetPrice:  alert.Price,
		CurrentPrice: price,
		Repeat:       alert.Repeat,
		FiredAt:      now,
	}
	if err := m.notifier.Notify(ctx, alert.OwnerID, note); err != nil {
		return err
	}

	to := domain.AlertDisabled
	var firedAt *time.Time
	if alert.Repeat {
		to = domain.AlertTriggered
		firedAt = &now
	}

	applied, err := m.alerts.TransitionAlert(ctx, alert.ID, alert.Status, to, firedAt)
	if err != nil {
		return err
	}
	if !applied {
		// Someone changed or deleted the alert mid-evaluation. The
		// conditional update lost; nothing more to do.
		m.logger.Debug().Str("alert_id", alert.ID.String()).Msg("alert transition skipped")
		return nil
	}

	m.logger.Info().
		Str("alert_id", alert.ID.String()).
		Str("symbol", alert.Symbol).
		Str("price", price.String()).
		Bool("repeat", alert.Repeat).
		Msg("alert fired")
	return nil
}
