package domain

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"
)

// Position is one open backtest holding. It exists only while
// Quantity > 0 - closing a position removes it from the portfolio map.
type Position struct {
	Symbol        string          `json:"symbol"`
	Quantity      int64           `json:"quantity"`
	AveragePrice  decimal.Decimal `json:"averagePrice"`
	CurrentPrice  decimal.Decimal `json:"currentPrice"`
	CostBasis     decimal.Decimal `json:"costBasis"`
	MarketValue   decimal.Decimal `json:"marketValue"`
	UnrealizedPnL decimal.Decimal `json:"unrealizedPnl"`
}

func (p Position) DeepCopy() *Position {
	copied := p
	return &copied
}

// MarkPrice refreshes the derived fields from a new price.
func (p *Position) MarkPrice(price decimal.Decimal) {
	qty := decimal.NewFromInt(p.Quantity)
	p.CurrentPrice = price
	p.MarketValue = qty.Mul(price)
	p.UnrealizedPnL = p.MarketValue.Sub(p.CostBasis)
}

// Portfolio is the cash + positions state of one backtest run. It is owned
// by the run's sequential day loop; nothing else mutates it mid-run.
type Portfolio struct {
	Cash      decimal.Decimal
	Positions map[string]*Position
}

func NewPortfolio(cash decimal.Decimal) *Portfolio {
	return &Portfolio{
		Cash:      cash,
		Positions: map[string]*Position{},
	}
}

func (p Portfolio) HeldSymbols() []string {
	symbols := []string{}
	for symbol := range p.Positions {
		symbols = append(symbols, symbol)
	}
	sort.Strings(symbols)
	return symbols
}

func (p Portfolio) DeepCopy() *Portfolio {
	newPortfolio := &Portfolio{
		Cash:      p.Cash,
		Positions: map[string]*Position{},
	}
	for symbol, position := range p.Positions {
		newPortfolio.Positions[symbol] = position.DeepCopy()
	}
	return newPortfolio
}

// PositionsValue sums the market value of all open positions.
func (p Portfolio) PositionsValue() decimal.Decimal {
	total := decimal.Zero
	for _, position := range p.Positions {
		total = total.Add(position.MarketValue)
	}
	return total
}

// TotalValue is cash plus the value of every open position at the given
// prices. Errors if a held symbol has no price.
func (p Portfolio) TotalValue(priceMap map[string]decimal.Decimal) (decimal.Decimal, error) {
	totalValue := p.Cash
	for symbol, position := range p.Positions {
		price, ok := priceMap[symbol]
		if !ok {
			return decimal.Zero, fmt.Errorf("cannot compute portfolio total value: price map missing %s", symbol)
		}
		totalValue = totalValue.Add(decimal.NewFromInt(position.Quantity).Mul(price))
	}
	return totalValue, nil
}
