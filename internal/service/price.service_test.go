package service

import (
	"context"
	"testing"
	"time"

	"stratsim/internal/domain"
	"stratsim/internal/repository"
	"stratsim/internal/util"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func Test_LoadPriceCache(t *testing.T) {
	ctx := context.Background()

	bars := []domain.PriceBar{
		{Symbol: "AAPL", Date: util.NewDate(2020, 1, 1), Close: 100},
		{Symbol: "AAPL", Date: util.NewDate(2020, 1, 2), Close: 101},
		{Symbol: "MSFT", Date: util.NewDate(2020, 1, 2), Close: 200},
		{Symbol: "MSFT", Date: util.NewDate(2020, 1, 3), Close: 201},
	}
	priceService := NewPriceService(repository.NewMemoryPriceRepository(bars))

	t.Run("trading days are the union of bar dates, ascending", func(t *testing.T) {
		cache, err := priceService.LoadPriceCache(ctx, []string{"AAPL", "MSFT"}, util.NewDate(2020, 1, 1), util.NewDate(2020, 1, 31))
		require.NoError(t, err)

		require.Equal(
			t,
			"",
			cmp.Diff(
				[]time.Time{
					util.NewDate(2020, 1, 1),
					util.NewDate(2020, 1, 2),
					util.NewDate(2020, 1, 3),
				},
				cache.TradingDays(),
			),
		)
	})

	t.Run("empty universe is fatal", func(t *testing.T) {
		_, err := priceService.LoadPriceCache(ctx, []string{}, util.NewDate(2020, 1, 1), util.NewDate(2020, 1, 31))
		require.Error(t, err)
	})

	t.Run("no data at all is fatal", func(t *testing.T) {
		_, err := priceService.LoadPriceCache(ctx, []string{"AAPL"}, util.NewDate(2021, 1, 1), util.NewDate(2021, 1, 31))
		require.Error(t, err)
	})

	t.Run("malformed date range is fatal", func(t *testing.T) {
		_, err := priceService.LoadPriceCache(ctx, []string{"AAPL"}, util.NewDate(2020, 1, 31), util.NewDate(2020, 1, 1))
		require.Error(t, err)
	})
}

func Test_PriceCache_ContextFor(t *testing.T) {
	ctx := context.Background()

	bars := []domain.PriceBar{
		{Symbol: "AAPL", Date: util.NewDate(2020, 1, 1), Close: 100},
		{Symbol: "AAPL", Date: util.NewDate(2020, 1, 2), Close: 101},
		{Symbol: "AAPL", Date: util.NewDate(2020, 1, 3), Close: 102},
	}
	priceService := NewPriceService(repository.NewMemoryPriceRepository(bars))
	cache, err := priceService.LoadPriceCache(ctx, []string{"AAPL"}, util.NewDate(2020, 1, 1), util.NewDate(2020, 1, 31))
	require.NoError(t, err)

	t.Run("history is truncated to the evaluation day", func(t *testing.T) {
		ec, err := cache.ContextFor("AAPL", util.NewDate(2020, 1, 2))
		require.NoError(t, err)
		require.Equal(t, 101.0, ec.CurrentPrice)
		require.Len(t, ec.History, 2)
		require.Equal(t, []float64{100, 101}, ec.Closes())
	})

	t.Run("missing day errors so the caller can skip the symbol", func(t *testing.T) {
		_, err := cache.ContextFor("AAPL", util.NewDate(2020, 1, 10))
		require.Error(t, err)
	})
}
