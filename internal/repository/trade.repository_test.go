package repository

import (
	"context"
	"path/filepath"
	"testing"

	"stratsim/internal/domain"
	"stratsim/internal/util"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func sampleTrade(backtestID uuid.UUID, symbol string, side domain.TradeSide) domain.BacktestTrade {
	trade := domain.BacktestTrade{
		TradeID:    uuid.New(),
		BacktestID: backtestID,
		Date:       util.NewDate(2020, 1, 2),
		Symbol:     symbol,
		Side:       side,
		Quantity:   100,
		Price:      decimal.NewFromInt(100),
		Amount:     decimal.NewFromInt(10001),
	}
	if side == domain.TradeSide_Sell {
		pnl := decimal.NewFromInt(999)
		trade.RealizedPnL = &pnl
	}
	return trade
}

func Test_MemoryTradeSink(t *testing.T) {
	ctx := context.Background()
	sink := NewMemoryTradeSink()

	runA := uuid.New()
	runB := uuid.New()

	require.NoError(t, sink.Add(ctx, sampleTrade(runA, "AAPL", domain.TradeSide_Buy)))
	require.NoError(t, sink.Add(ctx, sampleTrade(runB, "MSFT", domain.TradeSide_Buy)))
	require.NoError(t, sink.Add(ctx, sampleTrade(runA, "AAPL", domain.TradeSide_Sell)))

	trades, err := sink.List(ctx, runA)
	require.NoError(t, err)
	require.Len(t, trades, 2)
	require.Equal(t, "AAPL", trades[0].Symbol)
	require.Equal(t, domain.TradeSide_Sell, trades[1].Side)
}

func Test_SQLiteTradeSink(t *testing.T) {
	ctx := context.Background()

	sink, err := NewSQLiteTradeSink(filepath.Join(t.TempDir(), "trades.db"))
	require.NoError(t, err)

	backtestID := uuid.New()
	buy := sampleTrade(backtestID, "AAPL", domain.TradeSide_Buy)
	sell := sampleTrade(backtestID, "AAPL", domain.TradeSide_Sell)

	require.NoError(t, sink.Add(ctx, buy))
	require.NoError(t, sink.Add(ctx, sell))
	require.NoError(t, sink.Add(ctx, sampleTrade(uuid.New(), "MSFT", domain.TradeSide_Buy)))

	trades, err := sink.List(ctx, backtestID)
	require.NoError(t, err)
	require.Len(t, trades, 2)

	byID := map[uuid.UUID]domain.BacktestTrade{}
	for _, trade := range trades {
		byID[trade.TradeID] = trade
	}

	gotBuy := byID[buy.TradeID]
	require.Equal(t, "AAPL", gotBuy.Symbol)
	require.True(t, gotBuy.Price.Equal(buy.Price))
	require.True(t, gotBuy.Amount.Equal(buy.Amount))
	require.Nil(t, gotBuy.RealizedPnL)

	gotSell := byID[sell.TradeID]
	require.NotNil(t, gotSell.RealizedPnL)
	require.True(t, gotSell.RealizedPnL.Equal(*sell.RealizedPnL))
}
