package app

import (
	"stratsim/internal/domain"

	"github.com/shopspring/decimal"
)

// PositionSizer decides how many shares a buy signal gets. It sees the
// portfolio as-is mid-day (cash already reflects earlier fills) plus the
// marked total value and the risk rules.
type PositionSizer func(portfolio *domain.Portfolio, totalValue, executionPrice decimal.Decimal, risk domain.RiskManagementConfig) int64

var fixedFraction = decimal.NewFromFloat(0.1)

// FixedFractionSizer allocates 10% of available cash per buy. It ignores
// the risk config entirely - see RiskAwareSizer for one that honors it.
func FixedFractionSizer(portfolio *domain.Portfolio, _, executionPrice decimal.Decimal, _ domain.RiskManagementConfig) int64 {
	if !executionPrice.IsPositive() {
		return 0
	}
	return portfolio.Cash.Mul(fixedFraction).Div(executionPrice).IntPart()
}

// RiskAwareSizer caps each buy at maxPositionSize of total portfolio
// value, refuses to open more than maxPositions concurrent positions, and
// keeps minCashReserve untouched.
func RiskAwareSizer(portfolio *domain.Portfolio, totalValue, executionPrice decimal.Decimal, risk domain.RiskManagementConfig) int64 {
	if !executionPrice.IsPositive() {
		return 0
	}
	if risk.MaxPositions > 0 && len(portfolio.Positions) >= risk.MaxPositions {
		return 0
	}

	budget := portfolio.Cash
	if risk.MinCashReserve != nil {
		budget = budget.Sub(decimal.NewFromFloat(*risk.MinCashReserve))
	}
	if risk.MaxPositionSize > 0 {
		maxNotional := totalValue.Mul(decimal.NewFromFloat(risk.MaxPositionSize))
		if maxNotional.LessThan(budget) {
			budget = maxNotional
		}
	}
	if !budget.IsPositive() {
		return 0
	}
	return budget.Div(executionPrice).IntPart()
}
