package service

import (
	"context"
	"fmt"
	"testing"

	"stratsim/internal/domain"
	"stratsim/internal/util"

	"github.com/stretchr/testify/require"
)

func strategyConfig(factors ...domain.FactorConfig) domain.StrategyConfig {
	return domain.StrategyConfig{
		Name:    "test strategy",
		Enabled: true,
		Factors: factors,
		Risk: domain.RiskManagementConfig{
			MaxPositionSize: 0.1,
			MaxPositions:    10,
			StopLossPercent: 0.05,
		},
		Universe: []string{"AAPL"},
	}
}

func rsiFactorConfig() domain.FactorConfig {
	return domain.FactorConfig{
		Name:    "rsi",
		Type:    domain.FactorType_Technical,
		Weight:  1,
		Enabled: true,
		Params: map[string]interface{}{
			"period":     14,
			"oversold":   30,
			"overbought": 70,
		},
	}
}

func flatContext(symbol string, closes ...float64) domain.EvaluationContext {
	bars := make([]domain.PriceBar, len(closes))
	for i, close := range closes {
		bars[i] = domain.PriceBar{
			Symbol: symbol,
			Date:   util.NewDate(2020, 1, 1).AddDate(0, 0, i),
			Close:  close,
			Open:   close,
			High:   close,
			Low:    close,
		}
	}
	return domain.EvaluationContext{
		Symbol:       symbol,
		Date:         util.NewDate(2020, 1, 1).AddDate(0, 0, len(closes)-1),
		CurrentPrice: closes[len(closes)-1],
		History:      bars,
	}
}

func Test_NewStrategyHandler(t *testing.T) {
	t.Run("disabled factors are filtered at construction", func(t *testing.T) {
		disabled := rsiFactorConfig()
		disabled.Enabled = false

		handler, err := NewStrategyHandler(strategyConfig(disabled))
		require.NoError(t, err)
		require.Empty(t, handler.factors)
	})

	t.Run("invalid factor params fail the whole strategy", func(t *testing.T) {
		bad := rsiFactorConfig()
		bad.Params["oversold"] = 90

		_, err := NewStrategyHandler(strategyConfig(bad))
		require.Error(t, err)
	})

	t.Run("unknown signal policy rejected", func(t *testing.T) {
		cfg := strategyConfig(rsiFactorConfig())
		cfg.SignalPolicy = "yolo"

		_, err := NewStrategyHandler(cfg)
		require.Error(t, err)
	})
}

func Test_combine(t *testing.T) {
	t.Run("empty score list combines to 0", func(t *testing.T) {
		handler, err := NewStrategyHandler(strategyConfig())
		require.NoError(t, err)
		require.Equal(t, 0.0, handler.combine(nil))
	})

	t.Run("scores are confidence-weighted then weight-averaged", func(t *testing.T) {
		handler := &StrategyHandler{
			factors: []weightedFactor{
				{weight: 2},
				{weight: 1},
			},
		}
		combined := handler.combine([]domain.FactorScore{
			{Score: 0.9, Confidence: 1.0},
			{Score: -0.3, Confidence: 0.5},
		})
		// (0.9*1*2 + -0.3*0.5*1) / 3
		require.InDelta(t, 0.55, combined, 1e-9)
	})
}

func Test_classifyPolicies(t *testing.T) {
	defaultPolicy, err := NewClassifyPolicy(SignalPolicy_Default)
	require.NoError(t, err)
	conservative, err := NewClassifyPolicy(SignalPolicy_Conservative)
	require.NoError(t, err)

	require.Equal(t, domain.SignalType_Buy, defaultPolicy(0.35))
	require.Equal(t, domain.SignalType_Hold, conservative(0.35))
	require.Equal(t, domain.SignalType_Sell, defaultPolicy(-0.35))
	require.Equal(t, domain.SignalType_Hold, defaultPolicy(0.3))
	require.Equal(t, domain.SignalType_Hold, defaultPolicy(0))
}

func Test_EvaluateSymbol(t *testing.T) {
	ctx := context.Background()

	t.Run("no factors yields a HOLD with zero strength", func(t *testing.T) {
		handler, err := NewStrategyHandler(strategyConfig())
		require.NoError(t, err)

		signal, err := handler.EvaluateSymbol(ctx, flatContext("AAPL", 100, 101))
		require.NoError(t, err)
		require.Equal(t, domain.SignalType_Hold, signal.Type)
		require.Equal(t, 0.0, signal.Strength)
		require.Nil(t, signal.StopLoss)
	})

	t.Run("buy signal carries stop loss and take profit", func(t *testing.T) {
		takeProfit := 0.2
		cfg := strategyConfig()
		cfg.Risk.TakeProfitPercent = &takeProfit

		handler, err := NewStrategyHandler(cfg)
		require.NoError(t, err)

		signal := &domain.Signal{Symbol: "AAPL", Type: domain.SignalType_Buy}
		handler.applyRiskLevels(signal, 100)

		require.NotNil(t, signal.StopLoss)
		require.Equal(t, "95", signal.StopLoss.String())
		require.NotNil(t, signal.TakeProfit)
		require.Equal(t, "120", signal.TakeProfit.String())
	})

	t.Run("sell risk levels are mirrored", func(t *testing.T) {
		takeProfit := 0.2
		cfg := strategyConfig()
		cfg.Risk.TakeProfitPercent = &takeProfit

		handler, err := NewStrategyHandler(cfg)
		require.NoError(t, err)

		signal := &domain.Signal{Symbol: "AAPL", Type: domain.SignalType_Sell}
		handler.applyRiskLevels(signal, 100)

		require.Equal(t, "105", signal.StopLoss.String())
		require.Equal(t, "80", signal.TakeProfit.String())
	})

	t.Run("reasoning names top factors with direction and intensity", func(t *testing.T) {
		reasoning := buildReasoning(0.45, []domain.FactorScore{
			{FactorName: "ma_crossover", Score: 0.9},
			{FactorName: "rsi", Score: -0.2},
		})
		require.Contains(t, reasoning, "Bullish")
		require.Contains(t, reasoning, "ma_crossover bullish (90%)")
		require.Contains(t, reasoning, "rsi bearish (20%)")
	})
}

func Test_GenerateSignals(t *testing.T) {
	ctx := context.Background()

	t.Run("a failing symbol is skipped, not fatal", func(t *testing.T) {
		handler, err := NewStrategyHandler(strategyConfig(rsiFactorConfig()))
		require.NoError(t, err)

		closes := []float64{}
		for i := 0; i < 20; i++ {
			closes = append(closes, 100+float64(i%3))
		}

		provider := func(ctx context.Context, symbol string) (domain.EvaluationContext, error) {
			if symbol == "BROKEN" {
				return domain.EvaluationContext{}, fmt.Errorf("no data")
			}
			return flatContext(symbol, closes...), nil
		}

		signals := handler.GenerateSignals(ctx, []string{"AAPL", "BROKEN", "MSFT"}, provider)
		require.Len(t, signals, 2)
		require.Equal(t, "AAPL", signals[0].Symbol)
		require.Equal(t, "MSFT", signals[1].Symbol)
	})
}

func Test_TestStrategy(t *testing.T) {
	ctx := context.Background()

	t.Run("errors when no signal could be produced", func(t *testing.T) {
		provider := func(ctx context.Context, symbol string) (domain.EvaluationContext, error) {
			return domain.EvaluationContext{}, fmt.Errorf("no data")
		}
		_, err := TestStrategy(ctx, strategyConfig(rsiFactorConfig()), "AAPL", provider)
		require.Error(t, err)
	})

	t.Run("returns the signal for the symbol", func(t *testing.T) {
		closes := []float64{}
		for i := 0; i < 20; i++ {
			closes = append(closes, 100+float64(i%3))
		}
		provider := func(ctx context.Context, symbol string) (domain.EvaluationContext, error) {
			return flatContext(symbol, closes...), nil
		}

		signal, err := TestStrategy(ctx, strategyConfig(rsiFactorConfig()), "AAPL", provider)
		require.NoError(t, err)
		require.Equal(t, "AAPL", signal.Symbol)
	})
}
