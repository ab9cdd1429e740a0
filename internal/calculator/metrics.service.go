package calculator

import (
	"math"

	"stratsim/internal/domain"

	"github.com/montanaflynn/stats"
	"github.com/shopspring/decimal"
)

// tradingDaysPerYear annualizes daily-sampled returns.
const tradingDaysPerYear = 252

// CalculatePerformance derives the summary statistics for a completed run
// from its daily snapshots and trade log. An empty snapshot sequence is
// not an error - every metric is simply zero.
func CalculatePerformance(initialCash decimal.Decimal, snapshots []domain.BacktestSnapshot, trades []domain.BacktestTrade) domain.StrategyPerformance {
	if len(snapshots) == 0 {
		return domain.StrategyPerformance{}
	}

	performance := domain.StrategyPerformance{
		TotalTrades: len(trades),
	}

	finalValue := snapshots[len(snapshots)-1].TotalValue
	totalReturn := finalValue.Sub(initialCash)
	performance.TotalReturn = totalReturn.InexactFloat64()
	if !initialCash.IsZero() {
		performance.TotalReturnPercent = totalReturn.Div(initialCash).InexactFloat64() * 100
	}

	performance.MaxDrawdown = maxDrawdown(snapshots)
	performance.SharpeRatio = sharpeRatio(snapshots)

	wins, losses, grossWins, grossLosses, totalPnl, closedTrades := tradeStats(trades)
	if wins+losses > 0 {
		performance.WinRate = float64(wins) / float64(wins+losses) * 100
	}
	if grossLosses > 0 {
		performance.ProfitFactor = grossWins / grossLosses
	} else if grossWins > 0 {
		// no losing trades; report gross wins against a unit loss rather
		// than infinity
		performance.ProfitFactor = grossWins
	}
	if closedTrades > 0 {
		performance.AvgTradeReturn = totalPnl / float64(closedTrades)
	}

	return performance
}

// maxDrawdown tracks the running peak of total value and reports the
// largest peak-to-trough decline as a percentage of the peak.
func maxDrawdown(snapshots []domain.BacktestSnapshot) float64 {
	peak := snapshots[0].TotalValue
	maxDd := 0.0
	for _, snapshot := range snapshots {
		if snapshot.TotalValue.GreaterThan(peak) {
			peak = snapshot.TotalValue
		}
		if peak.IsPositive() {
			dd := peak.Sub(snapshot.TotalValue).Div(peak).InexactFloat64() * 100
			if dd > maxDd {
				maxDd = dd
			}
		}
	}
	return maxDd
}

func sharpeRatio(snapshots []domain.BacktestSnapshot) float64 {
	returns := make([]float64, len(snapshots))
	for i, snapshot := range snapshots {
		returns[i] = snapshot.DailyReturn.InexactFloat64()
	}

	mean, err := stats.Mean(returns)
	if err != nil {
		return 0
	}
	stdev, err := stats.StandardDeviationPopulation(returns)
	if err != nil || stdev == 0 {
		return 0
	}
	return mean / stdev * math.Sqrt(tradingDaysPerYear)
}

func tradeStats(trades []domain.BacktestTrade) (wins, losses int, grossWins, grossLosses, totalPnl float64, closedTrades int) {
	for _, trade := range trades {
		if trade.RealizedPnL == nil {
			continue
		}
		pnl := trade.RealizedPnL.InexactFloat64()
		closedTrades++
		totalPnl += pnl
		if pnl > 0 {
			wins++
			grossWins += pnl
		} else if pnl < 0 {
			losses++
			grossLosses += -pnl
		}
	}
	return wins, losses, grossWins, grossLosses, totalPnl, closedTrades
}
