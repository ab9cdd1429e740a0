package factor

import (
	"context"
	"fmt"
	"math"

	"stratsim/internal/domain"
	"stratsim/internal/indicator"
)

// Neutral-band tuning values. The 0.5 damping has no documented
// derivation; keep it configurable rather than baked in.
var (
	NeutralRSIDampen     = 0.5
	NeutralRSIConfidence = 0.3
)

// rsiFactor scores mean-reversion off the relative strength index:
// oversold readings score bullish, overbought readings score bearish, and
// readings inside the band contribute a weak damped signal.
type rsiFactor struct {
	period     int
	oversold   float64
	overbought float64
}

func newRSIFactor(cfg domain.FactorConfig) (*rsiFactor, error) {
	period, err := intParam(cfg.Params, "period")
	if err != nil {
		return nil, err
	}
	oversold, err := numericParam(cfg.Params, "oversold")
	if err != nil {
		return nil, err
	}
	overbought, err := numericParam(cfg.Params, "overbought")
	if err != nil {
		return nil, err
	}

	if period < 2 {
		return nil, fmt.Errorf("period must be >= 2, got %d", period)
	}
	if oversold <= 0 || oversold >= 50 {
		return nil, fmt.Errorf("oversold threshold must be within (0, 50), got %f", oversold)
	}
	if overbought <= 50 || overbought >= 100 {
		return nil, fmt.Errorf("overbought threshold must be within (50, 100), got %f", overbought)
	}
	if overbought <= oversold {
		return nil, fmt.Errorf("overbought (%f) must exceed oversold (%f)", overbought, oversold)
	}

	return &rsiFactor{period: period, oversold: oversold, overbought: overbought}, nil
}

func (f *rsiFactor) Name() string            { return FactorName_RSI }
func (f *rsiFactor) Type() domain.FactorType { return domain.FactorType_Technical }

func (f *rsiFactor) Evaluate(_ context.Context, ec domain.EvaluationContext) (domain.FactorScore, error) {
	closes := ec.Closes()
	if len(closes) < f.period+1 {
		return insufficientData(f.Name(), f.Type(), fmt.Sprintf("need %d bars, have %d", f.period+1, len(closes))), nil
	}

	rsi, ok := indicator.Last(indicator.RSI(closes, f.period))
	if !ok {
		return insufficientData(f.Name(), f.Type(), "rsi undefined"), nil
	}

	metadata := map[string]interface{}{"rsi": rsi}

	var score, confidence float64
	switch {
	case rsi <= f.oversold:
		score = -indicator.Normalize(rsi, 0, f.oversold)
		confidence = math.Min(1, (f.oversold-rsi)/f.oversold)
		metadata["zone"] = "oversold"
	case rsi >= f.overbought:
		score = -indicator.Normalize(rsi, f.overbought, 100)
		confidence = math.Min(1, (rsi-f.overbought)/(100-f.overbought))
		metadata["zone"] = "overbought"
	default:
		mid := (f.oversold + f.overbought) / 2
		score = -((rsi - mid) / (f.overbought - mid)) * NeutralRSIDampen
		confidence = NeutralRSIConfidence
		metadata["zone"] = "neutral"
	}

	return domain.FactorScore{
		FactorName: f.Name(),
		FactorType: f.Type(),
		Score:      score,
		Confidence: confidence,
		Metadata:   metadata,
	}, nil
}
