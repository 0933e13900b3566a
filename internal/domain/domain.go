package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Chain identifies a supported blockchain.
type Chain string

const (
	ChainSolana Chain = "SOLANA"
	ChainTON    Chain = "TON"
)

// KnownChain reports whether c is one of the supported chains.
func KnownChain(c Chain) bool {
	return c == ChainSolana || c == ChainTON
}

// AlertCondition is the direction of a price trigger.
type AlertCondition string

const (
	ConditionAbove AlertCondition = "ABOVE"
	ConditionBelow AlertCondition = "BELOW"
)

// AlertStatus is the lifecycle state of an alert.
type AlertStatus string

const (
	AlertActive    AlertStatus = "ACTIVE"
	AlertTriggered AlertStatus = "TRIGGERED"
	AlertDisabled  AlertStatus = "DISABLED"
)

// OrderType enumerates supported order kinds.
type OrderType string

const (
	OrderMarket     OrderType = "MARKET"
	OrderLimit      OrderType = "LIMIT"
	OrderStopLoss   OrderType = "STOP_LOSS"
	OrderTakeProfit OrderType = "TAKE_PROFIT"
)

// OrderSide is the direction of a trade.
type OrderSide string

const (
	SideBuy  OrderSide = "BUY"
	SideSell OrderSide = "SELL"
)

// OrderStatus is the lifecycle state of an order.
type OrderStatus string

const (
	OrderPending   OrderStatus = "PENDING"
	OrderFilled    OrderStatus = "FILLED"
	OrderCancelled OrderStatus = "CANCELLED"
	OrderExpired   OrderStatus = "EXPIRED"
)

// Alert is a persisted price trigger owned by a single user.
type Alert struct {
	ID            uuid.UUID
	OwnerID       int64
	Chain         Chain
	Symbol        string
	Condition     AlertCondition
	Price         decimal.Decimal
	Repeat        bool
	Status        AlertStatus
	LastTriggered *time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Order is a persisted trade intent owned by a single user.
type Order struct {
	ID           uuid.UUID
	OwnerID      int64
	Chain        Chain
	Type         OrderType
	Side         OrderSide
	Symbol       string
	Amount       decimal.Decimal
	Price        *decimal.Decimal
	StopPrice    *decimal.Decimal
	Status       OrderStatus
	FilledAmount decimal.Decimal
	FilledPrice  *decimal.Decimal
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Wallet is a chain-specific wallet record. Key material handling is a
// collaborator concern; SecretMaterial is opaque to this subsystem.
type Wallet struct {
	OwnerID          int64
	Chain            Chain
	Address          string
	SecretMaterial   string
	SecurityPassword *string
	CreatedAt        time.Time
}

// PasswordSet reports whether a security password has been configured.
func (w Wallet) PasswordSet() bool {
	return w.SecurityPassword != nil && *w.SecurityPassword != ""
}

// PriceSample is one observed price for a tracked symbol.
type PriceSample struct {
	Symbol     string
	Price      decimal.Decimal
	ObservedAt time.Time
}
