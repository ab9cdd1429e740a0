package factor

import (
	"context"
	"fmt"
	"math"

	"stratsim/internal/domain"
	"stratsim/internal/indicator"
)

// Evaluator scores one symbol from its evaluation context. Implementations
// must be pure with respect to the context - no mutation, no shared state -
// so a strategy can fan evaluations out concurrently.
type Evaluator interface {
	Name() string
	Type() domain.FactorType
	Evaluate(ctx context.Context, ec domain.EvaluationContext) (domain.FactorScore, error)
}

// factor names accepted by New
const (
	FactorName_MACrossover = "ma_crossover"
	FactorName_RSI         = "rsi"
	FactorName_Expression  = "expression"
)

// New constructs the evaluator for the given config, validating params up
// front. Invalid params fail the whole factor config immediately - they are
// never silently defaulted. The returned evaluator is wrapped so that
// score ∈ [-1, 1] and confidence ∈ [0, 1] hold no matter what the
// underlying implementation produces.
func New(cfg domain.FactorConfig) (Evaluator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var (
		ev  Evaluator
		err error
	)
	switch cfg.Name {
	case FactorName_MACrossover:
		ev, err = newMACrossover(cfg)
	case FactorName_RSI:
		ev, err = newRSIFactor(cfg)
	case FactorName_Expression:
		ev, err = newExpressionFactor(cfg)
	default:
		return nil, fmt.Errorf("unknown factor %q", cfg.Name)
	}
	if err != nil {
		return nil, fmt.Errorf("invalid params for factor %s: %w", cfg.Name, err)
	}

	return clampedEvaluator{inner: ev}, nil
}

// clampedEvaluator enforces the score/confidence range invariant centrally
// rather than trusting each factor to do it.
type clampedEvaluator struct {
	inner Evaluator
}

func (c clampedEvaluator) Name() string            { return c.inner.Name() }
func (c clampedEvaluator) Type() domain.FactorType { return c.inner.Type() }

func (c clampedEvaluator) Evaluate(ctx context.Context, ec domain.EvaluationContext) (domain.FactorScore, error) {
	score, err := c.inner.Evaluate(ctx, ec)
	if err != nil {
		return domain.FactorScore{}, err
	}
	if math.IsNaN(score.Score) || math.IsInf(score.Score, 0) {
		return domain.FactorScore{}, fmt.Errorf("factor %s produced non-finite score", c.inner.Name())
	}
	score.Score = indicator.Clamp(score.Score, -1, 1)
	score.Confidence = indicator.Clamp(score.Confidence, 0, 1)
	return score, nil
}

// insufficientData is the neutral result for a factor that does not have
// enough history to say anything. It is not an error.
func insufficientData(name string, factorType domain.FactorType, reason string) domain.FactorScore {
	return domain.FactorScore{
		FactorName: name,
		FactorType: factorType,
		Score:      0,
		Confidence: 0,
		Metadata: map[string]interface{}{
			"insufficient_data": true,
			"reason":            reason,
		},
	}
}

func numericParam(params map[string]interface{}, key string) (float64, error) {
	raw, ok := params[key]
	if !ok {
		return 0, fmt.Errorf("missing param %q", key)
	}
	// yaml and json decoders disagree on number types
	switch v := raw.(type) {
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case int:
		return float64(v), nil
	case int64:
		return float64(v), nil
	}
	return 0, fmt.Errorf("param %q has non-numeric value %v", key, raw)
}

func intParam(params map[string]interface{}, key string) (int, error) {
	v, err := numericParam(params, key)
	if err != nil {
		return 0, err
	}
	if v != math.Trunc(v) {
		return 0, fmt.Errorf("param %q must be an integer, got %v", key, v)
	}
	return int(v), nil
}

func stringParam(params map[string]interface{}, key string) (string, error) {
	raw, ok := params[key]
	if !ok {
		return "", fmt.Errorf("missing param %q", key)
	}
	s, ok := raw.(string)
	if !ok {
		return "", fmt.Errorf("param %q has non-string value %v", key, raw)
	}
	return s, nil
}
