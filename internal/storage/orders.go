package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"wallet-bot/internal/domain"
)

const (
	orderColumns = `id, owner_id, chain, type, side, symbol, amount, price, stop_price, status, filled_amount, filled_price, created_at, updated_at`

	insertOrderSQL = `INSERT INTO orders (
        id, owner_id, chain, type, side, symbol, amount, price, stop_price, status
    ) VALUES (
        $1,$2,$3,$4,$5,$6,$7,$8,$9,$10
    )
    RETURNING ` + orderColumns + `;`

	listOrdersByOwnerStatusSQL = `SELECT ` + orderColumns + `
    FROM orders
    WHERE owner_id = $1
      AND status = ANY($2)
    ORDER BY created_at DESC;`

	orderHistorySQL = `SELECT ` + orderColumns + `
    FROM orders
    WHERE owner_id = $1
      AND status IN ('FILLED','CANCELLED','EXPIRED')
    ORDER BY updated_at DESC
    LIMIT $2;`

	// PENDING is the only status cancellation is allowed from; the WHERE
	// clause is the serialization point against concurrent fills.
	cancelOrderSQL = `UPDATE orders
    SET status = 'CANCELLED', updated_at = now()
    WHERE id = $1
      AND owner_id = $2
      AND status = 'PENDING'
    RETURNING ` + orderColumns + `;`

	getOrderSQL = `SELECT ` + orderColumns + `
    FROM orders
    WHERE id = $1
      AND owner_id = $2;`
)

// CreateOrder persists a new order with status PENDING.
func (s *Store) CreateOrder(ctx context.Context, order domain.Order) (domain.Order, error) {
	pool, err := s.getPool()
	if err != nil {
		return domain.Order{}, err
	}

	if order.ID == uuid.Nil {
		order.ID = uuid.New()
	}
	if order.Status == "" {
		order.Status = domain.OrderPending
	}

	var price, stopPrice any
	if order.Price != nil {
		price = order.Price.String()
	}
	if order.StopPrice != nil {
		stopPrice = order.StopPrice.String()
	}

	row := pool.QueryRow(ctx, insertOrderSQL,
		order.ID,
		order.OwnerID,
		string(order.Chain),
		string(order.Type),
		string(order.Side),
		order.Symbol,
		order.Amount.String(),
		price,
		stopPrice,
		string(order.Status),
	)
	created, err := scanOrderRow(row)
	if err != nil {
		return domain.Order{}, fmt.Errorf("insert order: %w", err)
	}
	return created, nil
}

// ListOrdersByOwnerStatus lists a user's orders in any of the given
// statuses, newest first.
func (s *Store) ListOrdersByOwnerStatus(ctx context.Context, ownerID int64, statuses ...domain.OrderStatus) ([]domain.Order, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	raw := make([]string, 0, len(statuses))
	for _, st := range statuses {
		raw = append(raw, string(st))
	}

	rows, queryErr := pool.Query(ctx, listOrdersByOwnerStatusSQL, ownerID, raw)
	if queryErr != nil {
		return nil, fmt.Errorf("list orders: %w", queryErr)
	}
	defer rows.Close()

	return collectOrders(rows)
}

// OrderHistory lists a user's settled orders, most recently updated first.
func (s *Store) OrderHistory(ctx context.Context, ownerID int64, limit int) ([]domain.Order, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, queryErr := pool.Query(ctx, orderHistorySQL, ownerID, limit)
	if queryErr != nil {
		return nil, fmt.Errorf("order history: %w", queryErr)
	}
	defer rows.Close()

	return collectOrders(rows)
}

// CancelOrder atomically cancels a pending order. When the conditional
// update misses, a follow-up read distinguishes "not yours" from "wrong
// state".
func (s *Store) CancelOrder(ctx context.Context, ownerID int64, id uuid.UUID) (domain.Order, error) {
	pool, err := s.getPool()
	if err != nil {
		return domain.Order{}, err
	}

	row := pool.QueryRow(ctx, cancelOrderSQL, id, ownerID)
	cancelled, scanErr := scanOrderRow(row)
	if scanErr == nil {
		return cancelled, nil
	}
	if !errors.Is(scanErr, pgx.ErrNoRows) {
		return domain.Order{}, fmt.Errorf("cancel order: %w", scanErr)
	}

	existing, getErr := scanOrderRow(pool.QueryRow(ctx, getOrderSQL, id, ownerID))
	if errors.Is(getErr, pgx.ErrNoRows) {
		return domain.Order{}, &domain.NotFoundError{Resource: "order", ID: id.String()}
	}
	if getErr != nil {
		return domain.Order{}, fmt.Errorf("cancel order lookup: %w", getErr)
	}
	return domain.Order{}, &domain.StateError{
		Msg: fmt.Sprintf("order %s is %s and cannot be cancelled", id, existing.Status),
	}
}

func collectOrders(rows pgx.Rows) ([]domain.Order, error) {
	orders := make([]domain.Order, 0)
	for rows.Next() {
		order, scanErr := scanOrderRow(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		orders = append(orders, order)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return orders, nil
}

func scanOrderRow(row pgx.Row) (domain.Order, error) {
	var (
		order       domain.Order
		chain       string
		orderType   string
		side        string
		status      string
		amountStr   string
		priceStr    *string
		stopStr     *string
		filledStr   string
		filledPrice *string
	)
	if err := row.Scan(
		&order.ID,
		&order.OwnerID,
		&chain,
		&orderType,
		&side,
		&order.Symbol,
		&amountStr,
		&priceStr,
		&stopStr,
		&status,
		&filledStr,
		&filledPrice,
		&order.CreatedAt,
		&order.UpdatedAt,
	); err != nil {
		return domain.Order{}, err
	}

	amount, err := parseDecimal("order amount", amountStr)
	if err != nil {
		return domain.Order{}, err
	}
	filled, err := parseDecimal("filled amount", filledStr)
	if err != nil {
		return domain.Order{}, err
	}

	order.Chain = domain.Chain(chain)
	order.Type = domain.OrderType(orderType)
	order.Side = domain.OrderSide(side)
	order.Status = domain.OrderStatus(status)
	order.Amount = amount
	order.FilledAmount = filled

	if priceStr != nil {
		price, err := parseDecimal("order price", *priceStr)
		if err != nil {
			return domain.Order{}, err
		}
		order.Price = &price
	}
	if stopStr != nil {
		stop, err := parseDecimal("stop price", *stopStr)
		if err != nil {
			return domain.Order{}, err
		}
		order.StopPrice = &stop
	}
	if filledPrice != nil {
		fp, err := parseDecimal("filled price", *filledPrice)
		if err != nil {
			return domain.Order{}, err
		}
		order.FilledPrice = &fp
	}

	return order, nil
}
