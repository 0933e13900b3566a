package domain

import (
	"strings"
	"testing"

	"github.com/shopspring/decimal"
)

func decPtr(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

func validAlert() Alert {
	return Alert{
		Chain:     ChainTON,
		Symbol:    "TON/USDT",
		Condition: ConditionAbove,
		Price:     decimal.RequireFromString("5.5"),
	}
}

func TestValidateAlert(t *testing.T) {
	if err := ValidateAlert(validAlert()); err != nil {
		t.Fatalf("valid alert rejected: %v", err)
	}

	cases := []struct {
		name   string
		mutate func(*Alert)
		want   string
	}{
		{"unknown chain", func(a *Alert) { a.Chain = "DOGE" }, "blockchain"},
		{"empty symbol", func(a *Alert) { a.Symbol = "" }, "symbol"},
		{"bad condition", func(a *Alert) { a.Condition = "SIDEWAYS" }, "condition"},
		{"zero price", func(a *Alert) { a.Price = decimal.Zero }, "price"},
		{"negative price", func(a *Alert) { a.Price = decimal.RequireFromString("-1") }, "price"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			a := validAlert()
			tc.mutate(&a)
			err := ValidateAlert(a)
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !IsValidation(err) {
				t.Fatalf("expected ValidationError, got %T", err)
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("error %q should mention %q", err.Error(), tc.want)
			}
		})
	}
}

func validOrder() Order {
	return Order{
		Chain:  ChainSolana,
		Type:   OrderLimit,
		Side:   SideBuy,
		Symbol: "SOL/USDT",
		Amount: decimal.RequireFromString("1.5"),
		Price:  decPtr("22.5"),
	}
}

func TestValidateOrder(t *testing.T) {
	if err := ValidateOrder(validOrder()); err != nil {
		t.Fatalf("valid order rejected: %v", err)
	}

	t.Run("market order needs no price", func(t *testing.T) {
		o := validOrder()
		o.Type = OrderMarket
		o.Price = nil
		if err := ValidateOrder(o); err != nil {
			t.Fatalf("market order without price rejected: %v", err)
		}
	})

	t.Run("limit order requires price", func(t *testing.T) {
		o := validOrder()
		o.Price = nil
		if err := ValidateOrder(o); !IsValidation(err) {
			t.Fatalf("expected ValidationError, got %v", err)
		}
	})

	t.Run("stop loss requires stop price", func(t *testing.T) {
		o := validOrder()
		o.Type = OrderStopLoss
		if err := ValidateOrder(o); !IsValidation(err) {
			t.Fatalf("expected ValidationError, got %v", err)
		}
		o.StopPrice = decPtr("21")
		if err := ValidateOrder(o); err != nil {
			t.Fatalf("stop loss with stop price rejected: %v", err)
		}
	})

	t.Run("take profit requires stop price", func(t *testing.T) {
		o := validOrder()
		o.Type = OrderTakeProfit
		if err := ValidateOrder(o); !IsValidation(err) {
			t.Fatalf("expected ValidationError, got %v", err)
		}
	})

	t.Run("non-positive amount", func(t *testing.T) {
		o := validOrder()
		o.Amount = decimal.Zero
		if err := ValidateOrder(o); !IsValidation(err) {
			t.Fatalf("expected ValidationError, got %v", err)
		}
	})

	t.Run("bad side", func(t *testing.T) {
		o := validOrder()
		o.Side = "HOLD"
		if err := ValidateOrder(o); !IsValidation(err) {
			t.Fatalf("expected ValidationError, got %v", err)
		}
	})
}
