package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"wallet-bot/internal/config"
	"wallet-bot/internal/domain"
)

var (
	// ErrNotConfigured indicates the storage pool was not initialised.
	ErrNotConfigured = errors.New("storage: pool not configured")
)

// AlertStore defines persistence operations for alerts.
type AlertStore interface {
	CreateAlert(ctx context.Context, alert domain.Alert) (domain.Alert, error)
	ListAlertsByOwner(ctx context.Context, ownerID int64) ([]domain.Alert, error)
	ListActiveAlertsByOwner(ctx context.Context, ownerID int64) ([]domain.Alert, error)
	// ListAlertsForEvaluation returns every alert the monitor must look at
	// for a symbol: ACTIVE ones plus TRIGGERED repeat alerts, which re-arm
	// on the next tick.
	ListAlertsForEvaluation(ctx context.Context, symbol string) ([]domain.Alert, error)
	DeleteAlert(ctx context.Context, ownerID int64, id uuid.UUID) error
	// TransitionAlert performs a conditional status update and reports
	// whether the row moved. A false return means another writer got there
	// first (or the alert vanished); the caller must treat the transition
	// as lost.
	TransitionAlert(ctx context.Context, id uuid.UUID, from, to domain.AlertStatus, firedAt *time.Time) (bool, error)
}

// OrderStore defines persistence operations for orders.
type OrderStore interface {
	CreateOrder(ctx context.Context, order domain.Order) (domain.Order, error)
	ListOrdersByOwnerStatus(ctx context.Context, ownerID int64, statuses ...domain.OrderStatus) ([]domain.Order, error)
	OrderHistory(ctx context.Context, ownerID int64, limit int) ([]domain.Order, error)
	// CancelOrder transitions PENDING -> CANCELLED atomically. It returns a
	// NotFoundError when the order does not exist for the owner and a
	// StateError when it exists but is no longer pending.
	CancelOrder(ctx context.Context, ownerID int64, id uuid.UUID) (domain.Order, error)
}

// WalletStore defines persistence operations for chain wallets and their
// security secrets.
type WalletStore interface {
	GetWallet(ctx context.Context, ownerID int64, chain domain.Chain) (domain.Wallet, error)
	UpsertWallet(ctx context.Context, wallet domain.Wallet) error
	SetSecurityPassword(ctx context.Context, ownerID int64, chain domain.Chain, password string) error
}

// SampleStore records observed prices for the export pipeline.
type SampleStore interface {
	InsertPriceSample(ctx context.Context, sample domain.PriceSample) error
	ListSamplesBetween(ctx context.Context, symbol string, from, to time.Time) ([]domain.PriceSample, error)
}

// Store aggregates access to all persisted entities over one pgx pool.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore wires a pgx pool into a Store.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// NewPool configures a PostgreSQL connection pool from runtime settings.
func NewPool(ctx context.Context, cfg config.DatabaseConfig) (*pgxpool.Pool, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("database.dsn is required")
	}

	poolConfig, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse database dsn: %w", err)
	}

	if cfg.MaxOpenConns > 0 {
		poolConfig.MaxConns = int32(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		poolConfig.MinConns = int32(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		poolConfig.MaxConnLifetime = cfg.ConnMaxLifetime
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("create pgx pool: %w", err)
	}

	return pool, nil
}

// Close releases the underlying pool resources.
func (s *Store) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

func (s *Store) getPool() (*pgxpool.Pool, error) {
	if s == nil || s.pool == nil {
		return nil, ErrNotConfigured
	}
	return s.pool, nil
}

func parseDecimal(field, raw string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("parse %s: %w", field, err)
	}
	return d, nil
}

var (
	_ AlertStore  = (*Store)(nil)
	_ OrderStore  = (*Store)(nil)
	_ WalletStore = (*Store)(nil)
	_ SampleStore = (*Store)(nil)
)
