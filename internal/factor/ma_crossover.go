package factor

import (
	"context"
	"fmt"
	"math"

	"stratsim/internal/domain"
	"stratsim/internal/indicator"
)

// Crossover scoring constants. The confirmation multipliers are empirical
// tuning values with no formal derivation; they are deliberately variables
// rather than inline literals so they can be adjusted in one place.
var (
	CrossoverScore        = 0.9
	CrossoverConfidence   = 0.95
	TrendConfirmScoreMult = 1.2
	TrendConfirmConfMult  = 1.1
	BetweenMAConfDampen   = 0.7
)

// maCrossover scores the relationship between a short and a long simple
// moving average: a fresh golden/death cross dominates, otherwise the
// spread between the averages drives a proportional score.
type maCrossover struct {
	short int
	long  int
}

func newMACrossover(cfg domain.FactorConfig) (*maCrossover, error) {
	short, err := intParam(cfg.Params, "short")
	if err != nil {
		return nil, err
	}
	long, err := intParam(cfg.Params, "long")
	if err != nil {
		return nil, err
	}

	if short < 2 {
		return nil, fmt.Errorf("short period must be >= 2, got %d", short)
	}
	if short > 200 {
		return nil, fmt.Errorf("short period must be <= 200, got %d", short)
	}
	if long > 500 {
		return nil, fmt.Errorf("long period must be <= 500, got %d", long)
	}
	if short >= long {
		return nil, fmt.Errorf("short period (%d) must be less than long period (%d)", short, long)
	}

	return &maCrossover{short: short, long: long}, nil
}

func (f *maCrossover) Name() string            { return FactorName_MACrossover }
func (f *maCrossover) Type() domain.FactorType { return domain.FactorType_Technical }

func (f *maCrossover) Evaluate(_ context.Context, ec domain.EvaluationContext) (domain.FactorScore, error) {
	closes := ec.Closes()
	if len(closes) < f.long {
		return insufficientData(f.Name(), f.Type(), fmt.Sprintf("need %d bars, have %d", f.long, len(closes))), nil
	}

	shortSeries := indicator.SMA(closes, f.short)
	longSeries := indicator.SMA(closes, f.long)

	shortMA, ok := indicator.Last(shortSeries)
	if !ok {
		return insufficientData(f.Name(), f.Type(), "short MA undefined"), nil
	}
	longMA, ok := indicator.Last(longSeries)
	if !ok {
		return insufficientData(f.Name(), f.Type(), "long MA undefined"), nil
	}

	metadata := map[string]interface{}{
		"shortMA": shortMA,
		"longMA":  longMA,
	}

	prevShort, okShort := indicator.Back(shortSeries, 1)
	prevLong, okLong := indicator.Back(longSeries, 1)
	if okShort && okLong {
		if prevShort <= prevLong && shortMA > longMA {
			metadata["crossover"] = "golden"
			return domain.FactorScore{
				FactorName: f.Name(),
				FactorType: f.Type(),
				Score:      CrossoverScore,
				Confidence: CrossoverConfidence,
				Metadata:   metadata,
			}, nil
		}
		if prevShort >= prevLong && shortMA < longMA {
			metadata["crossover"] = "death"
			return domain.FactorScore{
				FactorName: f.Name(),
				FactorType: f.Type(),
				Score:      -CrossoverScore,
				Confidence: CrossoverConfidence,
				Metadata:   metadata,
			}, nil
		}
	}

	// no crossover on this bar - score off the spread between the averages
	percentDiff := indicator.PercentDiff(shortMA, longMA)
	score := indicator.Clamp(percentDiff/10, -1, 1)
	confidence := math.Min(0.8, math.Abs(percentDiff)/10)

	price := ec.CurrentPrice
	aboveBoth := price > shortMA && price > longMA
	belowBoth := price < shortMA && price < longMA
	if (score > 0 && aboveBoth) || (score < 0 && belowBoth) {
		// price confirms the trend on both averages
		score *= TrendConfirmScoreMult
		confidence *= TrendConfirmConfMult
		metadata["trend_confirmed"] = true
	} else if !aboveBoth && !belowBoth {
		confidence *= BetweenMAConfDampen
	}

	return domain.FactorScore{
		FactorName: f.Name(),
		FactorType: f.Type(),
		Score:      score,
		Confidence: confidence,
		Metadata:   metadata,
	}, nil
}
