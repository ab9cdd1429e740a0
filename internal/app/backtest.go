package app

import (
	"context"
	"fmt"
	"time"

	"stratsim/internal/calculator"
	"stratsim/internal/domain"
	"stratsim/internal/logger"
	"stratsim/internal/repository"
	"stratsim/internal/service"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// SignalSource produces the day's signals. The strategy handler is the
// usual implementation; tests inject scripted sources.
type SignalSource interface {
	GenerateSignals(ctx context.Context, symbols []string, provider service.ContextProvider) []domain.Signal
}

// BacktestHandler replays a strategy over historical bars, one trading
// day at a time, and reports the resulting performance.
type BacktestHandler struct {
	PriceService service.PriceService
	TradeSink    repository.TradeSink
	Sizer        PositionSizer
}

func NewBacktestHandler(priceService service.PriceService, tradeSink repository.TradeSink) BacktestHandler {
	return BacktestHandler{
		PriceService: priceService,
		TradeSink:    tradeSink,
		Sizer:        FixedFractionSizer,
	}
}

type BacktestInput struct {
	BacktestID  uuid.UUID
	Strategy    domain.StrategyConfig
	Start       time.Time
	End         time.Time
	InitialCash decimal.Decimal
	Commission  decimal.Decimal
	Slippage    decimal.Decimal // fraction, applied against the trade direction

	// Signals overrides the strategy engine when set
	Signals SignalSource
}

func (in BacktestInput) validate() error {
	if !in.InitialCash.IsPositive() {
		return fmt.Errorf("initial cash must be positive, got %s", in.InitialCash)
	}
	if in.Commission.IsNegative() {
		return fmt.Errorf("commission cannot be negative, got %s", in.Commission)
	}
	if in.Slippage.IsNegative() || in.Slippage.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return fmt.Errorf("slippage must be within [0, 1), got %s", in.Slippage)
	}
	if in.End.Before(in.Start) {
		return fmt.Errorf("malformed date range: end %s before start %s", in.End.Format(time.DateOnly), in.Start.Format(time.DateOnly))
	}
	return nil
}

// run carries the mutable state of one simulation. It is owned by Run's
// sequential day loop; day N+1 never starts before day N's trades and
// snapshot are finalized.
type run struct {
	backtestID uuid.UUID
	portfolio  *domain.Portfolio
	snapshots  []domain.BacktestSnapshot
	trades     []domain.BacktestTrade
	commission decimal.Decimal
	slippage   decimal.Decimal
	risk       domain.RiskManagementConfig
}

// Run executes the backtest. Input and price-loading errors are fatal and
// surfaced with the backtest id; per-day and per-signal problems are
// logged and skipped without aborting the run.
func (h BacktestHandler) Run(ctx context.Context, in BacktestInput) (*domain.BacktestResult, error) {
	log := logger.FromContext(ctx)

	if err := in.validate(); err != nil {
		return nil, fmt.Errorf("backtest %s: %w", in.BacktestID, err)
	}

	signalSource := in.Signals
	if signalSource == nil {
		handler, err := service.NewStrategyHandler(in.Strategy)
		if err != nil {
			return nil, fmt.Errorf("backtest %s: %w", in.BacktestID, err)
		}
		signalSource = handler
	}

	cache, err := h.PriceService.LoadPriceCache(ctx, in.Strategy.Universe, in.Start, in.End)
	if err != nil {
		return nil, fmt.Errorf("backtest %s: failed to load prices: %w", in.BacktestID, err)
	}

	r := &run{
		backtestID: in.BacktestID,
		portfolio:  domain.NewPortfolio(in.InitialCash),
		commission: in.Commission,
		slippage:   in.Slippage,
		risk:       in.Strategy.Risk,
	}

	for _, day := range cache.TradingDays() {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("backtest %s aborted on %s: %w", in.BacktestID, day.Format(time.DateOnly), err)
		}

		r.markPositions(cache, day)

		provider := func(ctx context.Context, symbol string) (domain.EvaluationContext, error) {
			return cache.ContextFor(symbol, day)
		}
		signals := signalSource.GenerateSignals(ctx, in.Strategy.Universe, provider)

		for i := range signals {
			if err := r.execute(ctx, h, cache, day, &signals[i]); err != nil {
				log.Warnf("backtest %s: skipping signal %s %s on %s: %v", in.BacktestID, signals[i].Type, signals[i].Symbol, day.Format(time.DateOnly), err)
			}
		}

		r.snapshot(day)
	}

	performance := calculator.CalculatePerformance(in.InitialCash, r.snapshots, r.trades)

	return &domain.BacktestResult{
		BacktestID:  in.BacktestID,
		Snapshots:   r.snapshots,
		Trades:      r.trades,
		Performance: performance,
	}, nil
}

// markPositions refreshes every open position from the day's close. A
// symbol with no bar today keeps its previous mark.
func (r *run) markPositions(cache *service.PriceCache, day time.Time) {
	for symbol, position := range r.portfolio.Positions {
		bar, ok := cache.Get(symbol, day)
		if !ok {
			continue
		}
		position.MarkPrice(decimal.NewFromFloat(bar.Close))
	}
}

var one = decimal.NewFromInt(1)

func (r *run) execute(ctx context.Context, h BacktestHandler, cache *service.PriceCache, day time.Time, signal *domain.Signal) error {
	if signal.Type == domain.SignalType_Hold {
		return nil
	}

	bar, ok := cache.Get(signal.Symbol, day)
	if !ok {
		return fmt.Errorf("no price for %s", signal.Symbol)
	}
	closePrice := decimal.NewFromFloat(bar.Close)

	switch signal.Type {
	case domain.SignalType_Buy:
		executionPrice := closePrice.Mul(one.Add(r.slippage))
		return r.executeBuy(ctx, h, day, signal, closePrice, executionPrice)
	case domain.SignalType_Sell:
		executionPrice := closePrice.Mul(one.Sub(r.slippage))
		return r.executeSell(ctx, h, day, signal, closePrice, executionPrice)
	}
	return fmt.Errorf("unknown signal type %q", signal.Type)
}

func (r *run) executeBuy(ctx context.Context, h BacktestHandler, day time.Time, signal *domain.Signal, closePrice, executionPrice decimal.Decimal) error {
	totalValue := r.portfolio.Cash.Add(r.portfolio.PositionsValue())
	quantity := h.Sizer(r.portfolio, totalValue, executionPrice, r.risk)
	if quantity <= 0 {
		// too little cash to buy a single share - a quiet no-op
		return nil
	}

	qty := decimal.NewFromInt(quantity)
	cost := executionPrice.Mul(qty)
	totalCost := cost.Add(r.commission)
	if totalCost.GreaterThan(r.portfolio.Cash) {
		return fmt.Errorf("insufficient cash: need %s, have %s", totalCost, r.portfolio.Cash)
	}

	r.portfolio.Cash = r.portfolio.Cash.Sub(totalCost)

	position, ok := r.portfolio.Positions[signal.Symbol]
	if !ok {
		position = &domain.Position{Symbol: signal.Symbol}
		r.portfolio.Positions[signal.Symbol] = position
	}

	// cost-weighted average entry price; commission stays out of the basis
	oldQty := decimal.NewFromInt(position.Quantity)
	newQty := oldQty.Add(qty)
	position.AveragePrice = oldQty.Mul(position.AveragePrice).Add(qty.Mul(executionPrice)).Div(newQty)
	position.Quantity += quantity
	position.CostBasis = newQty.Mul(position.AveragePrice)
	position.MarkPrice(closePrice)

	r.recordTrade(ctx, h, domain.BacktestTrade{
		TradeID:    uuid.New(),
		BacktestID: r.backtestID,
		Date:       day,
		Symbol:     signal.Symbol,
		Side:       domain.TradeSide_Buy,
		Quantity:   quantity,
		Price:      executionPrice,
		Amount:     totalCost,
		Signal:     signal,
	})
	return nil
}

func (r *run) executeSell(ctx context.Context, h BacktestHandler, day time.Time, signal *domain.Signal, closePrice, executionPrice decimal.Decimal) error {
	position, ok := r.portfolio.Positions[signal.Symbol]
	if !ok {
		// nothing held, nothing to sell
		return nil
	}

	// strategy sells exit the whole position
	quantity := position.Quantity
	if quantity <= 0 {
		return fmt.Errorf("requested %d shares of %s but hold none", quantity, signal.Symbol)
	}

	qty := decimal.NewFromInt(quantity)
	proceeds := executionPrice.Mul(qty)
	r.portfolio.Cash = r.portfolio.Cash.Add(proceeds.Sub(r.commission))

	realized := executionPrice.Sub(position.AveragePrice).Mul(qty).Sub(r.commission)

	position.Quantity -= quantity
	if position.Quantity == 0 {
		// closed positions leave the map, they are never kept at 0
		delete(r.portfolio.Positions, signal.Symbol)
	} else {
		remaining := decimal.NewFromInt(position.Quantity)
		position.CostBasis = remaining.Mul(position.AveragePrice)
		position.MarkPrice(closePrice)
	}

	r.recordTrade(ctx, h, domain.BacktestTrade{
		TradeID:     uuid.New(),
		BacktestID:  r.backtestID,
		Date:        day,
		Symbol:      signal.Symbol,
		Side:        domain.TradeSide_Sell,
		Quantity:    quantity,
		Price:       executionPrice,
		Amount:      proceeds.Add(r.commission),
		Signal:      signal,
		RealizedPnL: &realized,
	})
	return nil
}

func (r *run) recordTrade(ctx context.Context, h BacktestHandler, trade domain.BacktestTrade) {
	r.trades = append(r.trades, trade)
	if h.TradeSink == nil {
		return
	}
	if err := h.TradeSink.Add(ctx, trade); err != nil {
		// the sink is an external collaborator; its failure must not
		// corrupt the run
		logger.FromContext(ctx).Errorf("backtest %s: failed to persist trade %s: %v", r.backtestID, trade.TradeID, err)
	}
}

func (r *run) snapshot(day time.Time) {
	positionsValue := r.portfolio.PositionsValue()
	totalValue := r.portfolio.Cash.Add(positionsValue)

	dailyReturn := totalValue
	cumulativeReturn := decimal.Zero
	if len(r.snapshots) > 0 {
		dailyReturn = totalValue.Sub(r.snapshots[len(r.snapshots)-1].TotalValue)
		cumulativeReturn = totalValue.Sub(r.snapshots[0].TotalValue)
	}

	r.snapshots = append(r.snapshots, domain.BacktestSnapshot{
		Date:             day,
		Cash:             r.portfolio.Cash,
		PositionsValue:   positionsValue,
		TotalValue:       totalValue,
		DailyReturn:      dailyReturn,
		CumulativeReturn: cumulativeReturn,
	})
}
