package repository

import (
	"context"
	"fmt"
	"sort"
	"time"

	"stratsim/internal/domain"
	"stratsim/internal/util"
)

// PriceProvider is the price-history collaborator contract. The core
// simulation never fetches data itself - it consumes already-ordered bars
// through this interface.
type PriceProvider interface {
	// GetPriceHistory returns bars for [start, end] in ascending date order.
	GetPriceHistory(ctx context.Context, symbol string, start, end time.Time) ([]domain.PriceBar, error)
	// GetLatestPrice returns the most recent bar, or nil when the symbol
	// has no data.
	GetLatestPrice(ctx context.Context, symbol string) (*domain.PriceBar, error)
}

type memoryPriceRepository struct {
	bars map[string][]domain.PriceBar
}

// NewMemoryPriceRepository builds an in-memory provider from a flat bar
// list. Bars are grouped per symbol and sorted ascending once, up front.
func NewMemoryPriceRepository(bars []domain.PriceBar) PriceProvider {
	bySymbol := map[string][]domain.PriceBar{}
	for _, bar := range bars {
		bySymbol[bar.Symbol] = append(bySymbol[bar.Symbol], bar)
	}
	for symbol := range bySymbol {
		sort.Slice(bySymbol[symbol], func(i, j int) bool {
			return bySymbol[symbol][i].Date.Before(bySymbol[symbol][j].Date)
		})
	}
	return &memoryPriceRepository{bars: bySymbol}
}

func (r *memoryPriceRepository) GetPriceHistory(_ context.Context, symbol string, start, end time.Time) ([]domain.PriceBar, error) {
	bars, ok := r.bars[symbol]
	if !ok {
		return nil, fmt.Errorf("no price data for %s", symbol)
	}

	out := []domain.PriceBar{}
	for _, bar := range bars {
		if util.DateLte(start, bar.Date) && util.DateLte(bar.Date, end) {
			out = append(out, bar)
		}
	}
	return out, nil
}

func (r *memoryPriceRepository) GetLatestPrice(_ context.Context, symbol string) (*domain.PriceBar, error) {
	bars, ok := r.bars[symbol]
	if !ok || len(bars) == 0 {
		return nil, nil
	}
	latest := bars[len(bars)-1]
	return &latest, nil
}
