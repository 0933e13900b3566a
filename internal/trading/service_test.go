package trading

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"wallet-bot/internal/domain"
)

type memAlerts struct {
	alerts map[uuid.UUID]domain.Alert
}

func newMemAlerts() *memAlerts {
	return &memAlerts{alerts: make(map[uuid.UUID]domain.Alert)}
}

func (m *memAlerts) CreateAlert(ctx context.Context, alert domain.Alert) (domain.Alert, error) {
	alert.ID = uuid.New()
	alert.Status = domain.AlertActive
	m.alerts[alert.ID] = alert
	return alert, nil
}

func (m *memAlerts) ListAlertsByOwner(ctx context.Context, ownerID int64) ([]domain.Alert, error) {
	var out []domain.Alert
	for _, a := range m.alerts {
		if a.OwnerID == ownerID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (m *memAlerts) ListActiveAlertsByOwner(ctx context.Context, ownerID int64) ([]domain.Alert, error) {
	var out []domain.Alert
	for _, a := range m.alerts {
		if a.OwnerID == ownerID && a.Status == domain.AlertActive {
			out = append(out, a)
		}
	}
	return out, nil
}

func (m *memAlerts) ListAlertsForEvaluation(ctx context.Context, symbol string) ([]domain.Alert, error) {
	return nil, nil
}

func (m *memAlerts) DeleteAlert(ctx context.Context, ownerID int64, id uuid.UUID) error {
	a, ok := m.alerts[id]
	if !ok || a.OwnerID != ownerID {
		return &domain.NotFoundError{Resource: "alert", ID: id.String()}
	}
	delete(m.alerts, id)
	return nil
}

func (m *memAlerts) TransitionAlert(ctx context.Context, id uuid.UUID, from, to domain.AlertStatus, firedAt *time.Time) (bool, error) {
	a, ok := m.alerts[id]
	if !ok || a.Status != from {
		return false, nil
	}
	a.Status = to
	m.alerts[id] = a
	return true, nil
}

type memOrders struct {
	orders map[uuid.UUID]domain.Order
}

func newMemOrders() *memOrders {
	return &memOrders{orders: make(map[uuid.UUID]domain.Order)}
}

func (m *memOrders) CreateOrder(ctx context.Context, order domain.Order) (domain.Order, error) {
	order.ID = uuid.New()
	order.Status = domain.OrderPending
	m.orders[order.ID] = order
	return order, nil
}

func (m *memOrders) ListOrdersByOwnerStatus(ctx context.Context, ownerID int64, statuses ...domain.OrderStatus) ([]domain.Order, error) {
	var out []domain.Order
	for _, o := range m.orders {
		if o.OwnerID != ownerID {
			continue
		}
		for _, st := range statuses {
			if o.Status == st {
				out = append(out, o)
				break
			}
		}
	}
	return out, nil
}

func (m *memOrders) OrderHistory(ctx context.Context, ownerID int64, limit int) ([]domain.Order, error) {
	var out []domain.Order
	for _, o := range m.orders {
		if o.OwnerID == ownerID && o.Status != domain.OrderPending {
			out = append(out, o)
		}
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (m *memOrders) CancelOrder(ctx context.Context, ownerID int64, id uuid.UUID) (domain.Order, error) {
	o, ok := m.orders[id]
	if !ok || o.OwnerID != ownerID {
		return domain.Order{}, &domain.NotFoundError{Resource: "order", ID: id.String()}
	}
	if o.Status != domain.OrderPending {
		return domain.Order{}, &domain.StateError{Msg: "order is not pending"}
	}
	o.Status = domain.OrderCancelled
	m.orders[id] = o
	return o, nil
}

func newTestService() (*Service, *memAlerts, *memOrders) {
	alerts := newMemAlerts()
	orders := newMemOrders()
	return New(alerts, orders, zerolog.Nop()), alerts, orders
}

func validAlert() domain.Alert {
	return domain.Alert{
		OwnerID:   1,
		Chain:     domain.ChainTON,
		Symbol:    "TON/USDT",
		Condition: domain.ConditionAbove,
		Price:     decimal.RequireFromString("5.5"),
	}
}

func validOrder(typ domain.OrderType) domain.Order {
	o := domain.Order{
		OwnerID: 1,
		Chain:   domain.ChainTON,
		Type:    typ,
		Side:    domain.SideBuy,
		Symbol:  "TON/USDT",
		Amount:  decimal.RequireFromString("10"),
	}
	if typ != domain.OrderMarket {
		price := decimal.RequireFromString("5")
		o.Price = &price
	}
	if typ == domain.OrderStopLoss || typ == domain.OrderTakeProfit {
		stop := decimal.RequireFromString("4.5")
		o.StopPrice = &stop
	}
	return o
}

func TestCreateAlertValidates(t *testing.T) {
	svc, _, _ := newTestService()

	bad := validAlert()
	bad.Price = decimal.Zero
	if _, err := svc.CreateAlert(context.Background(), bad); !domain.IsValidation(err) {
		t.Fatalf("zero target price should fail validation, got %v", err)
	}

	created, err := svc.CreateAlert(context.Background(), validAlert())
	if err != nil {
		t.Fatalf("CreateAlert: %v", err)
	}
	if created.Status != domain.AlertActive {
		t.Fatalf("status = %s, want ACTIVE", created.Status)
	}
}

func TestDeleteAlertChecksOwnership(t *testing.T) {
	svc, _, _ := newTestService()

	created, err := svc.CreateAlert(context.Background(), validAlert())
	if err != nil {
		t.Fatalf("CreateAlert: %v", err)
	}

	if err := svc.DeleteAlert(context.Background(), 999, created.ID); !domain.IsNotFound(err) {
		t.Fatalf("foreign delete should be NotFound, got %v", err)
	}
	if err := svc.DeleteAlert(context.Background(), 1, created.ID); err != nil {
		t.Fatalf("owner delete: %v", err)
	}
}

func TestCreateOrderRequiresPriceUnlessMarket(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	limit := validOrder(domain.OrderLimit)
	limit.Price = nil
	if _, err := svc.CreateOrder(ctx, limit); !domain.IsValidation(err) {
		t.Fatalf("limit order without price should fail, got %v", err)
	}

	if _, err := svc.CreateOrder(ctx, validOrder(domain.OrderMarket)); err != nil {
		t.Fatalf("market order without price should pass: %v", err)
	}

	stop := validOrder(domain.OrderStopLoss)
	stop.StopPrice = nil
	if _, err := svc.CreateOrder(ctx, stop); !domain.IsValidation(err) {
		t.Fatalf("stop order without stop price should fail, got %v", err)
	}
}

func TestCancelOrderLifecycle(t *testing.T) {
	svc, _, orders := newTestService()
	ctx := context.Background()

	created, err := svc.CreateOrder(ctx, validOrder(domain.OrderLimit))
	if err != nil {
		t.Fatalf("CreateOrder: %v", err)
	}

	cancelled, err := svc.CancelOrder(ctx, 1, created.ID)
	if err != nil {
		t.Fatalf("CancelOrder: %v", err)
	}
	if cancelled.Status != domain.OrderCancelled {
		t.Fatalf("status = %s, want CANCELLED", cancelled.Status)
	}

	// Cancelling again hits a non-pending order.
	if _, err := svc.CancelOrder(ctx, 1, created.ID); !domain.IsStateError(err) {
		t.Fatalf("double cancel should be a StateError, got %v", err)
	}

	filled, err := svc.CreateOrder(ctx, validOrder(domain.OrderLimit))
	if err != nil {
		t.Fatalf("CreateOrder: %v", err)
	}
	o := orders.orders[filled.ID]
	o.Status = domain.OrderFilled
	orders.orders[filled.ID] = o
	if _, err := svc.CancelOrder(ctx, 1, filled.ID); !domain.IsStateError(err) {
		t.Fatalf("cancelling a filled order should be a StateError, got %v", err)
	}

	if _, err := svc.CancelOrder(ctx, 1, uuid.New()); !domain.IsNotFound(err) {
		t.Fatalf("unknown order should be NotFound, got %v", err)
	}
}

func TestActiveOrdersFiltersPending(t *testing.T) {
	svc, _, orders := newTestService()
	ctx := context.Background()

	a, _ := svc.CreateOrder(ctx, validOrder(domain.OrderLimit))
	b, _ := svc.CreateOrder(ctx, validOrder(domain.OrderMarket))

	o := orders.orders[b.ID]
	o.Status = domain.OrderFilled
	orders.orders[b.ID] = o

	active, err := svc.ActiveOrders(ctx, 1)
	if err != nil {
		t.Fatalf("ActiveOrders: %v", err)
	}
	if len(active) != 1 || active[0].ID != a.ID {
		t.Fatalf("active = %+v, want only the pending order", active)
	}
}
