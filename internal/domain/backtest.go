package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type TradeSide string

const (
	TradeSide_Buy  TradeSide = "buy"
	TradeSide_Sell TradeSide = "sell"
)

func NewTradeSide(s string) (TradeSide, error) {
	switch TradeSide(s) {
	case TradeSide_Buy, TradeSide_Sell:
		return TradeSide(s), nil
	}
	return "", fmt.Errorf("unknown trade side %q", s)
}

// BacktestTrade is one executed fill. Amount includes commission.
// RealizedPnL is nil for buys and set on sells.
type BacktestTrade struct {
	TradeID     uuid.UUID        `json:"tradeId"`
	BacktestID  uuid.UUID        `json:"backtestId"`
	Date        time.Time        `json:"date"`
	Symbol      string           `json:"symbol"`
	Side        TradeSide        `json:"side"`
	Quantity    int64            `json:"quantity"`
	Price       decimal.Decimal  `json:"price"`
	Amount      decimal.Decimal  `json:"amount"`
	Signal      *Signal          `json:"signal,omitempty"`
	RealizedPnL *decimal.Decimal `json:"realizedPnl,omitempty"`
}

// BacktestSnapshot is the end-of-day portfolio valuation. DailyReturn and
// CumulativeReturn are absolute dollar amounts, not percentages.
type BacktestSnapshot struct {
	Date             time.Time       `json:"date"`
	Cash             decimal.Decimal `json:"cash"`
	PositionsValue   decimal.Decimal `json:"positionsValue"`
	TotalValue       decimal.Decimal `json:"totalValue"`
	DailyReturn      decimal.Decimal `json:"dailyReturn"`
	CumulativeReturn decimal.Decimal `json:"cumulativeReturn"`
}

// StrategyPerformance is the summary computed once at the end of a run.
type StrategyPerformance struct {
	TotalReturn        float64 `json:"totalReturn"`
	TotalReturnPercent float64 `json:"totalReturnPercent"`
	SharpeRatio        float64 `json:"sharpeRatio"`
	MaxDrawdown        float64 `json:"maxDrawdown"`
	WinRate            float64 `json:"winRate"`
	ProfitFactor       float64 `json:"profitFactor"`
	TotalTrades        int     `json:"totalTrades"`
	AvgTradeReturn     float64 `json:"avgTradeReturn"`
}

// BacktestResult is everything a completed run produces.
type BacktestResult struct {
	BacktestID  uuid.UUID           `json:"backtestId"`
	Snapshots   []BacktestSnapshot  `json:"snapshots"`
	Trades      []BacktestTrade     `json:"trades"`
	Performance StrategyPerformance `json:"performance"`
}
