package domain

import "github.com/shopspring/decimal"

// ShouldTrigger decides whether an alert condition fires at the current
// price. The boundary is inclusive in both directions: an ABOVE alert at
// exactly the target price fires, and so does a BELOW alert. There is no
// hysteresis; an alert sitting on the boundary fires on every evaluation
// until its status changes.
func ShouldTrigger(cond AlertCondition, target, current decimal.Decimal) bool {
	switch cond {
	case ConditionAbove:
		return current.GreaterThanOrEqual(target)
	case ConditionBelow:
		return current.LessThanOrEqual(target)
	default:
		return false
	}
}
