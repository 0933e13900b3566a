package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"wallet-bot/internal/domain"
)

const (
	insertAlertSQL = `INSERT INTO alerts (
        id, owner_id, chain, symbol, condition, price, repeat, status
    ) VALUES (
        $1,$2,$3,$4,$5,$6,$7,$8
    )
    RETURNING id, owner_id, chain, symbol, condition, price, repeat, status, last_triggered, created_at, updated_at;`

	alertColumns = `id, owner_id, chain, symbol, condition, price, repeat, status, last_triggered, created_at, updated_at`

	listAlertsByOwnerSQL = `SELECT ` + alertColumns + `
    FROM alerts
    WHERE owner_id = $1
    ORDER BY created_at DESC;`

	listActiveAlertsByOwnerSQL = `SELECT ` + alertColumns + `
    FROM alerts
    WHERE owner_id = $1
      AND status = 'ACTIVE'
    ORDER BY created_at DESC;`

	// Repeat alerts re-arm after firing, so TRIGGERED rows with the repeat
	// flag stay eligible for evaluation.
	listAlertsForEvaluationSQL = `SELECT ` + alertColumns + `
    FROM alerts
    WHERE symbol = $1
      AND (status = 'ACTIVE' OR (status = 'TRIGGERED' AND repeat))
    ORDER BY created_at;`

	deleteAlertSQL = `DELETE FROM alerts WHERE id = $1 AND owner_id = $2;`

	transitionAlertSQL = `UPDATE alerts
    SET status = $3,
        last_triggered = COALESCE($4, last_triggered),
        updated_at = now()
    WHERE id = $1
      AND status = $2;`
)

// CreateAlert persists a new alert with status ACTIVE.
func (s *Store) CreateAlert(ctx context.Context, alert domain.Alert) (domain.Alert, error) {
	pool, err := s.getPool()
	if err != nil {
		return domain.Alert{}, err
	}

	if alert.ID == uuid.Nil {
		alert.ID = uuid.New()
	}
	if alert.Status == "" {
		alert.Status = domain.AlertActive
	}

	row := pool.QueryRow(ctx, insertAlertSQL,
		alert.ID,
		alert.OwnerID,
		string(alert.Chain),
		alert.Symbol,
		string(alert.Condition),
		alert.Price.String(),
		alert.Repeat,
		string(alert.Status),
	)
	created, err := scanAlertRow(row)
	if err != nil {
		return domain.Alert{}, fmt.Errorf("insert alert: %w", err)
	}
	return created, nil
}

// ListAlertsByOwner lists every alert owned by a user, newest first.
func (s *Store) ListAlertsByOwner(ctx context.Context, ownerID int64) ([]domain.Alert, error) {
	return s.queryAlerts(ctx, listAlertsByOwnerSQL, ownerID)
}

// ListActiveAlertsByOwner lists a user's ACTIVE alerts, newest first.
func (s *Store) ListActiveAlertsByOwner(ctx context.Context, ownerID int64) ([]domain.Alert, error) {
	return s.queryAlerts(ctx, listActiveAlertsByOwnerSQL, ownerID)
}

// ListAlertsForEvaluation lists the alerts the monitor evaluates for a
// symbol. The symbol must already be case-normalized (uppercase).
func (s *Store) ListAlertsForEvaluation(ctx context.Context, symbol string) ([]domain.Alert, error) {
	return s.queryAlerts(ctx, listAlertsForEvaluationSQL, symbol)
}

// DeleteAlert removes an alert owned by the caller.
func (s *Store) DeleteAlert(ctx context.Context, ownerID int64, id uuid.UUID) error {
	pool, err := s.getPool()
	if err != nil {
		return err
	}
	tag, execErr := pool.Exec(ctx, deleteAlertSQL, id, ownerID)
	if execErr != nil {
		return fmt.Errorf("delete alert: %w", execErr)
	}
	if tag.RowsAffected() == 0 {
		return &domain.NotFoundError{Resource: "alert", ID: id.String()}
	}
	return nil
}

// TransitionAlert moves an alert from one status to another in a single
// conditional update, stamping last_triggered when firedAt is set.
func (s *Store) TransitionAlert(ctx context.Context, id uuid.UUID, from, to domain.AlertStatus, firedAt *time.Time) (bool, error) {
	pool, err := s.getPool()
	if err != nil {
		return false, err
	}
	tag, execErr := pool.Exec(ctx, transitionAlertSQL, id, string(from), string(to), firedAt)
	if execErr != nil {
		return false, fmt.Errorf("transition alert: %w", execErr)
	}
	return tag.RowsAffected() > 0, nil
}

func (s *Store) queryAlerts(ctx context.Context, sql string, arg any) ([]domain.Alert, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, queryErr := pool.Query(ctx, sql, arg)
	if queryErr != nil {
		return nil, fmt.Errorf("list alerts: %w", queryErr)
	}
	defer rows.Close()

	alerts := make([]domain.Alert, 0)
	for rows.Next() {
		alert, scanErr := scanAlertRow(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		alerts = append(alerts, alert)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return alerts, nil
}

func scanAlertRow(row pgx.Row) (domain.Alert, error) {
	var (
		alert    domain.Alert
		chain    string
		cond     string
		status   string
		priceStr string
	)
	if err := row.Scan(
		&alert.ID,
		&alert.OwnerID,
		&chain,
		&alert.Symbol,
		&cond,
		&priceStr,
		&alert.Repeat,
		&status,
		&alert.LastTriggered,
		&alert.CreatedAt,
		&alert.UpdatedAt,
	); err != nil {
		return domain.Alert{}, err
	}

	price, err := parseDecimal("alert price", priceStr)
	if err != nil {
		return domain.Alert{}, err
	}

	alert.Chain = domain.Chain(chain)
	alert.Condition = domain.AlertCondition(cond)
	alert.Status = domain.AlertStatus(status)
	alert.Price = price
	return alert, nil
}
