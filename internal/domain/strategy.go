package domain

import (
	"fmt"
)

// FactorConfig describes one factor inside a strategy. Params are
// factor-specific and validated when the factor is constructed - invalid
// params fail the whole strategy, they are never silently defaulted.
type FactorConfig struct {
	Name    string                 `json:"name" yaml:"name"`
	Type    FactorType             `json:"type" yaml:"type"`
	Weight  float64                `json:"weight" yaml:"weight"`
	Enabled bool                   `json:"enabled" yaml:"enabled"`
	Params  map[string]interface{} `json:"params" yaml:"params"`
}

func (c FactorConfig) Validate() error {
	if c.Name == "" {
		return fmt.Errorf("factor config missing name")
	}
	if c.Weight < 0 {
		return fmt.Errorf("factor %s has negative weight %f", c.Name, c.Weight)
	}
	return nil
}

// EffectiveWeight treats a missing or zero weight as 1, so unweighted
// factors participate equally in combination.
func (c FactorConfig) EffectiveWeight() float64 {
	if c.Weight == 0 {
		return 1
	}
	return c.Weight
}

type RiskManagementConfig struct {
	// MaxPositionSize is a fraction of portfolio value, e.g. 0.1 for 10%
	MaxPositionSize   float64  `json:"maxPositionSize" yaml:"maxPositionSize"`
	MaxPositions      int      `json:"maxPositions" yaml:"maxPositions"`
	StopLossPercent   float64  `json:"stopLossPercent" yaml:"stopLossPercent"`
	TakeProfitPercent *float64 `json:"takeProfitPercent,omitempty" yaml:"takeProfitPercent,omitempty"`
	MaxDailyLoss      *float64 `json:"maxDailyLoss,omitempty" yaml:"maxDailyLoss,omitempty"`
	MinCashReserve    *float64 `json:"minCashReserve,omitempty" yaml:"minCashReserve,omitempty"`
}

func (c RiskManagementConfig) Validate() error {
	if c.MaxPositionSize < 0 || c.MaxPositionSize > 1 {
		return fmt.Errorf("maxPositionSize must be within [0, 1], got %f", c.MaxPositionSize)
	}
	if c.MaxPositions < 0 {
		return fmt.Errorf("maxPositions cannot be negative, got %d", c.MaxPositions)
	}
	if c.StopLossPercent < 0 || c.StopLossPercent >= 1 {
		return fmt.Errorf("stopLossPercent must be within [0, 1), got %f", c.StopLossPercent)
	}
	if c.TakeProfitPercent != nil && *c.TakeProfitPercent <= 0 {
		return fmt.Errorf("takeProfitPercent must be positive, got %f", *c.TakeProfitPercent)
	}
	return nil
}

// StrategyConfig is the full read-only definition of a strategy: its
// factors, risk rules, tradable universe and signal classification policy.
type StrategyConfig struct {
	Name         string               `json:"name" yaml:"name"`
	Enabled      bool                 `json:"enabled" yaml:"enabled"`
	Factors      []FactorConfig       `json:"factors" yaml:"factors"`
	Risk         RiskManagementConfig `json:"risk" yaml:"risk"`
	Universe     []string             `json:"universe" yaml:"universe"`
	SignalPolicy string               `json:"signalPolicy,omitempty" yaml:"signalPolicy,omitempty"`
}

func (c StrategyConfig) EnabledFactors() []FactorConfig {
	out := []FactorConfig{}
	for _, f := range c.Factors {
		if f.Enabled {
			out = append(out, f)
		}
	}
	return out
}
