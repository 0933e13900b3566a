// Package trading owns the command-level lifecycle of alerts and
// orders: validation, ownership checks, and atomic status transitions.
package trading

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"wallet-bot/internal/domain"
	"wallet-bot/internal/storage"
)

const defaultHistoryLimit = 20

// Service exposes alert and order operations to the bot front end.
type Service struct {
	alerts storage.AlertStore
	orders storage.OrderStore
	logger zerolog.Logger
}

// New constructs the trading service.
func New(alerts storage.AlertStore, orders storage.OrderStore, logger zerolog.Logger) *Service {
	return &Service{
		alerts: alerts,
		orders: orders,
		logger: logger.With().Str("component", "trading").Logger(),
	}
}

// CreateAlert validates and persists a new price alert.
func (s *Service) CreateAlert(ctx context.Context, alert domain.Alert) (domain.Alert, error) {
	if err := domain.ValidateAlert(alert); err != nil {
		return domain.Alert{}, err
	}
	created, err := s.alerts.CreateAlert(ctx, alert)
	if err != nil {
		return domain.Alert{}, err
	}
	s.logger.Info().
		Str("alert_id", created.ID.String()).
		Int64("owner_id", created.OwnerID).
		Str("symbol", created.Symbol).
		Msg("alert created")
	return created, nil
}

// ListAlerts returns every alert the user owns, whatever its status.
func (s *Service) ListAlerts(ctx context.Context, ownerID int64) ([]domain.Alert, error) {
	return s.alerts.ListAlertsByOwner(ctx, ownerID)
}

// ListActiveAlerts returns the user's alerts still eligible to fire.
func (s *Service) ListActiveAlerts(ctx context.Context, ownerID int64) ([]domain.Alert, error) {
	return s.alerts.ListActiveAlertsByOwner(ctx, ownerID)
}

// DeleteAlert removes an alert the user owns.
func (s *Service) DeleteAlert(ctx context.Context, ownerID int64, id uuid.UUID) error {
	if err := s.alerts.DeleteAlert(ctx, ownerID, id); err != nil {
		return err
	}
	s.logger.Info().Str("alert_id", id.String()).Int64("owner_id", ownerID).Msg("alert deleted")
	return nil
}

// CreateOrder validates and persists a new order.
func (s *Service) CreateOrder(ctx context.Context, order domain.Order) (domain.Order, error) {
	if err := domain.ValidateOrder(order); err != nil {
		return domain.Order{}, err
	}
	created, err := s.orders.CreateOrder(ctx, order)
	if err != nil {
		return domain.Order{}, err
	}
	s.logger.Info().
		Str("order_id", created.ID.String()).
		Int64("owner_id", created.OwnerID).
		Str("type", string(created.Type)).
		Str("symbol", created.Symbol).
		Msg("order created")
	return created, nil
}

// ActiveOrders lists the user's orders still awaiting execution.
func (s *Service) ActiveOrders(ctx context.Context, ownerID int64) ([]domain.Order, error) {
	return s.orders.ListOrdersByOwnerStatus(ctx, ownerID, domain.OrderPending)
}

// OrderHistory lists the user's settled orders, newest first.
func (s *Service) OrderHistory(ctx context.Context, ownerID int64, limit int) ([]domain.Order, error) {
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	return s.orders.OrderHistory(ctx, ownerID, limit)
}

// CancelOrder cancels a pending order. Orders in any other state come
// back as a StateError; the store applies the transition atomically so
// a concurrent fill cannot be clobbered.
func (s *Service) CancelOrder(ctx context.Context, ownerID int64, id uuid.UUID) (domain.Order, error) {
	order, err := s.orders.CancelOrder(ctx, ownerID, id)
	if err != nil {
		return domain.Order{}, err
	}
	s.logger.Info().Str("order_id", id.String()).Int64("owner_id", ownerID).Msg("order cancelled")
	return order, nil
}
