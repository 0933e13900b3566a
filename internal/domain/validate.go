package domain

// ValidateAlert checks alert fields before persistence. All problems are
// collected so the user sees the full list at once.
func ValidateAlert(a Alert) error {
	var problems []string

	if !KnownChain(a.Chain) {
		problems = append(problems, "unsupported blockchain")
	}
	if a.Symbol == "" {
		problems = append(problems, "symbol is required")
	}
	if a.Condition != ConditionAbove && a.Condition != ConditionBelow {
		problems = append(problems, "condition must be ABOVE or BELOW")
	}
	if !a.Price.IsPositive() {
		problems = append(problems, "price must be greater than zero")
	}

	if len(problems) > 0 {
		return &ValidationError{Problems: problems}
	}
	return nil
}

// ValidateOrder checks order fields before persistence. Price is required
// for everything except market orders; a stop price is required for
// stop-loss and take-profit orders.
func ValidateOrder(o Order) error {
	var problems []string

	if !KnownChain(o.Chain) {
		problems = append(problems, "unsupported blockchain")
	}
	switch o.Type {
	case OrderMarket, OrderLimit, OrderStopLoss, OrderTakeProfit:
	default:
		problems = append(problems, "invalid order type")
	}
	if o.Side != SideBuy && o.Side != SideSell {
		problems = append(problems, "side must be BUY or SELL")
	}
	if o.Symbol == "" {
		problems = append(problems, "symbol is required")
	}
	if !o.Amount.IsPositive() {
		problems = append(problems, "amount must be greater than zero")
	}
	if o.Type != OrderMarket && (o.Price == nil || !o.Price.IsPositive()) {
		problems = append(problems, "price must be greater than zero")
	}
	if (o.Type == OrderStopLoss || o.Type == OrderTakeProfit) && (o.StopPrice == nil || !o.StopPrice.IsPositive()) {
		problems = append(problems, "stop price must be greater than zero")
	}

	if len(problems) > 0 {
		return &ValidationError{Problems: problems}
	}
	return nil
}
