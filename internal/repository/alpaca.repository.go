package repository

import (
	"context"
	"fmt"
	"time"

	"stratsim/internal/domain"

	"github.com/alpacahq/alpaca-trade-api-go/v3/marketdata"
)

// alpacaPriceRepository adapts the alpaca market-data client to the
// PriceProvider contract. It belongs to the I/O edge of the system; the
// simulator only ever sees the bars it returns.
type alpacaPriceRepository struct {
	MdClient *marketdata.Client
}

func NewAlpacaPriceRepository(apiKey, apiSecret string) PriceProvider {
	mdClient := marketdata.NewClient(marketdata.ClientOpts{
		APIKey:    apiKey,
		APISecret: apiSecret,
	})

	return &alpacaPriceRepository{
		MdClient: mdClient,
	}
}

func (r *alpacaPriceRepository) GetPriceHistory(_ context.Context, symbol string, start, end time.Time) ([]domain.PriceBar, error) {
	bars, err := r.MdClient.GetBars(symbol, marketdata.GetBarsRequest{
		TimeFrame: marketdata.OneDay,
		Start:     start,
		End:       end,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch bars for %s: %w", symbol, err)
	}

	out := make([]domain.PriceBar, 0, len(bars))
	for _, bar := range bars {
		if bar.Close <= 0 {
			return nil, fmt.Errorf("got non-positive close for %s on %s", symbol, bar.Timestamp.Format(time.DateOnly))
		}
		out = append(out, domain.PriceBar{
			Symbol: symbol,
			Date:   bar.Timestamp.UTC(),
			Open:   bar.Open,
			High:   bar.High,
			Low:    bar.Low,
			Close:  bar.Close,
			Volume: int64(bar.Volume),
		})
	}
	return out, nil
}

func (r *alpacaPriceRepository) GetLatestPrice(_ context.Context, symbol string) (*domain.PriceBar, error) {
	bar, err := r.MdClient.GetLatestBar(symbol, marketdata.GetLatestBarRequest{})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch latest bar for %s: %w", symbol, err)
	}
	if bar == nil {
		return nil, nil
	}

	return &domain.PriceBar{
		Symbol: symbol,
		Date:   bar.Timestamp.UTC(),
		Open:   bar.Open,
		High:   bar.High,
		Low:    bar.Low,
		Close:  bar.Close,
		Volume: int64(bar.Volume),
	}, nil
}
