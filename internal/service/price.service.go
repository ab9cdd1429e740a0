package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"stratsim/internal/domain"
	"stratsim/internal/repository"
	"stratsim/internal/util"
)

// PriceService preloads everything a backtest run needs into a PriceCache,
// so the day loop never reaches out to the provider mid-run.
type PriceService interface {
	LoadPriceCache(ctx context.Context, symbols []string, start, end time.Time) (*PriceCache, error)
}

type priceServiceHandler struct {
	Provider repository.PriceProvider
}

func NewPriceService(provider repository.PriceProvider) PriceService {
	return &priceServiceHandler{Provider: provider}
}

// PriceCache holds the full bar history of one run, keyed for day lookups.
// Trading days are the union of available bar dates across the universe.
type PriceCache struct {
	bars        map[string][]domain.PriceBar
	barByDay    map[string]map[string]domain.PriceBar
	tradingDays []time.Time
}

func (h *priceServiceHandler) LoadPriceCache(ctx context.Context, symbols []string, start, end time.Time) (*PriceCache, error) {
	if len(symbols) == 0 {
		return nil, fmt.Errorf("cannot load price cache for empty universe")
	}
	if end.Before(start) {
		return nil, fmt.Errorf("malformed date range: end %s before start %s", end.Format(time.DateOnly), start.Format(time.DateOnly))
	}

	cache := &PriceCache{
		bars:     map[string][]domain.PriceBar{},
		barByDay: map[string]map[string]domain.PriceBar{},
	}

	daySet := map[string]time.Time{}
	totalBars := 0
	for _, symbol := range symbols {
		bars, err := h.Provider.GetPriceHistory(ctx, symbol, start, end)
		if err != nil {
			return nil, fmt.Errorf("failed to load price history for %s: %w", symbol, err)
		}

		cache.bars[symbol] = bars
		cache.barByDay[symbol] = map[string]domain.PriceBar{}
		for _, bar := range bars {
			key := util.DayKey(bar.Date)
			cache.barByDay[symbol][key] = bar
			daySet[key] = util.NewDate(bar.Date.Year(), int(bar.Date.Month()), bar.Date.Day())
			totalBars++
		}
	}

	if totalBars == 0 {
		return nil, fmt.Errorf("no price data found for universe %v between %s and %s", symbols, start.Format(time.DateOnly), end.Format(time.DateOnly))
	}

	for _, day := range daySet {
		cache.tradingDays = append(cache.tradingDays, day)
	}
	sort.Slice(cache.tradingDays, func(i, j int) bool {
		return cache.tradingDays[i].Before(cache.tradingDays[j])
	})

	return cache, nil
}

func (c *PriceCache) TradingDays() []time.Time {
	return c.tradingDays
}

// Get returns the bar for a symbol on the given day. The miss is an
// ordinary condition - holidays and listings mean gaps are expected.
func (c *PriceCache) Get(symbol string, date time.Time) (domain.PriceBar, bool) {
	bars, ok := c.barByDay[symbol]
	if !ok {
		return domain.PriceBar{}, false
	}
	bar, ok := bars[util.DayKey(date)]
	return bar, ok
}

// ContextFor builds the evaluation context for a symbol on a trading day:
// all bars up to and including that day, with the day's close as the
// current price. Errors when the symbol has no bar on that day.
func (c *PriceCache) ContextFor(symbol string, date time.Time) (domain.EvaluationContext, error) {
	current, ok := c.Get(symbol, date)
	if !ok {
		return domain.EvaluationContext{}, fmt.Errorf("no price for %s on %s", symbol, date.Format(time.DateOnly))
	}

	bars := c.bars[symbol]
	history := []domain.PriceBar{}
	for _, bar := range bars {
		if util.DateLte(bar.Date, date) {
			history = append(history, bar)
		}
	}

	return domain.EvaluationContext{
		Symbol:       symbol,
		Date:         current.Date,
		CurrentPrice: current.Close,
		History:      history,
	}, nil
}
