package repository

import (
	"testing"

	"github.com/stretchr/testify/require"
)

const sampleStrategy = `
name: momentum blend
enabled: true
signalPolicy: conservative
universe: [AAPL, MSFT]
risk:
  maxPositionSize: 0.1
  maxPositions: 5
  stopLossPercent: 0.05
  takeProfitPercent: 0.2
factors:
  - name: ma_crossover
    type: technical
    weight: 2
    enabled: true
    params:
      short: 5
      long: 20
  - name: rsi
    type: technical
    weight: 1
    enabled: false
    params:
      period: 14
      oversold: 30
      overbought: 70
`

func Test_ParseStrategyConfig(t *testing.T) {
	t.Run("valid document", func(t *testing.T) {
		cfg, err := ParseStrategyConfig([]byte(sampleStrategy))
		require.NoError(t, err)

		require.Equal(t, "momentum blend", cfg.Name)
		require.Equal(t, []string{"AAPL", "MSFT"}, cfg.Universe)
		require.Equal(t, "conservative", cfg.SignalPolicy)
		require.Len(t, cfg.Factors, 2)
		require.Len(t, cfg.EnabledFactors(), 1)
		require.Equal(t, 2.0, cfg.Factors[0].Weight)
		require.NotNil(t, cfg.Risk.TakeProfitPercent)
		require.Equal(t, 0.2, *cfg.Risk.TakeProfitPercent)

		// factor params survive as a generic map for the factor
		// constructors to validate
		require.Equal(t, 5, cfg.Factors[0].Params["short"])
	})

	t.Run("missing name rejected", func(t *testing.T) {
		_, err := ParseStrategyConfig([]byte("universe: [AAPL]"))
		require.Error(t, err)
	})

	t.Run("empty universe rejected", func(t *testing.T) {
		_, err := ParseStrategyConfig([]byte("name: x\nuniverse: []"))
		require.Error(t, err)
	})

	t.Run("negative factor weight rejected", func(t *testing.T) {
		doc := `
name: x
universe: [AAPL]
factors:
  - name: rsi
    weight: -1
    enabled: true
`
		_, err := ParseStrategyConfig([]byte(doc))
		require.Error(t, err)
	})

	t.Run("invalid risk config rejected", func(t *testing.T) {
		doc := `
name: x
universe: [AAPL]
risk:
  maxPositionSize: 2
`
		_, err := ParseStrategyConfig([]byte(doc))
		require.Error(t, err)
	})

	t.Run("malformed yaml rejected", func(t *testing.T) {
		_, err := ParseStrategyConfig([]byte("name: [unclosed"))
		require.Error(t, err)
	})
}
