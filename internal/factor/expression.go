package factor

import (
	"context"
	"fmt"
	"math"

	"stratsim/internal/domain"
	"stratsim/internal/indicator"

	"github.com/maja42/goval"
)

// expressionFactor evaluates a user-supplied formula over the price
// history, e.g.
//
//	pricePercentChange(7) * 0.5 + pricePercentChange(30) * 0.5
//
// The expression has access to price(n), sma(period), rsi(period) and
// pricePercentChange(n), all evaluated against the context's close series.
// The result is clamped to [-1, 1] by the evaluator wrapper; confidence is
// a fixed per-factor parameter.
type expressionFactor struct {
	expression string
	confidence float64
	factorType domain.FactorType
}

func newExpressionFactor(cfg domain.FactorConfig) (*expressionFactor, error) {
	expression, err := stringParam(cfg.Params, "expression")
	if err != nil {
		return nil, err
	}
	if expression == "" {
		return nil, fmt.Errorf("expression cannot be empty")
	}

	confidence := 0.5
	if _, ok := cfg.Params["confidence"]; ok {
		confidence, err = numericParam(cfg.Params, "confidence")
		if err != nil {
			return nil, err
		}
		if confidence < 0 || confidence > 1 {
			return nil, fmt.Errorf("confidence must be within [0, 1], got %f", confidence)
		}
	}

	factorType := cfg.Type
	if factorType == "" {
		factorType = domain.FactorType_Technical
	}

	return &expressionFactor{
		expression: expression,
		confidence: confidence,
		factorType: factorType,
	}, nil
}

func (f *expressionFactor) Name() string            { return FactorName_Expression }
func (f *expressionFactor) Type() domain.FactorType { return f.factorType }

func (f *expressionFactor) Evaluate(_ context.Context, ec domain.EvaluationContext) (domain.FactorScore, error) {
	closes := ec.Closes()

	// functions flag missing data instead of erroring so the factor can
	// report a neutral insufficient-data score rather than failing the batch
	missingData := false
	functions := f.constructFunctionMap(closes, &missingData)
	variables := map[string]interface{}{
		"currentPrice": ec.CurrentPrice,
	}

	eval := goval.NewEvaluator()
	result, err := eval.Evaluate(f.expression, variables, functions)
	if err != nil {
		return domain.FactorScore{}, fmt.Errorf("failed to evaluate factor expression: %w", err)
	}
	if missingData {
		return insufficientData(f.Name(), f.Type(), "expression references more history than available"), nil
	}

	value, err := toFloat(result)
	if err != nil {
		return domain.FactorScore{}, err
	}
	if math.IsNaN(value) {
		return domain.FactorScore{}, fmt.Errorf("calculated NaN as expression result")
	}
	if math.IsInf(value, 0) {
		return domain.FactorScore{}, fmt.Errorf("calculated infinity as expression result")
	}

	return domain.FactorScore{
		FactorName: f.Name(),
		FactorType: f.Type(),
		Score:      indicator.Clamp(value, -1, 1),
		Confidence: f.confidence,
		Metadata: map[string]interface{}{
			"expression": f.expression,
			"raw_value":  value,
		},
	}, nil
}

func (f *expressionFactor) constructFunctionMap(closes []float64, missingData *bool) map[string]goval.ExpressionFunction {
	return map[string]goval.ExpressionFunction{
		// price(n) - close n bars before the latest
		"price": func(args ...interface{}) (interface{}, error) {
			if len(args) < 1 {
				return 0, fmt.Errorf("price needs 1 arg, got %d", len(args))
			}
			n, err := toInt(args[0])
			if err != nil {
				return 0, err
			}
			v, ok := indicator.Back(closes, n)
			if !ok {
				*missingData = true
				return 0.0, nil
			}
			return v, nil
		},

		// sma(period) - latest simple moving average
		"sma": func(args ...interface{}) (interface{}, error) {
			if len(args) < 1 {
				return 0, fmt.Errorf("sma needs 1 arg, got %d", len(args))
			}
			period, err := toInt(args[0])
			if err != nil {
				return 0, err
			}
			v, ok := indicator.Last(indicator.SMA(closes, period))
			if !ok {
				*missingData = true
				return 0.0, nil
			}
			return v, nil
		},

		// rsi(period) - latest relative strength index
		"rsi": func(args ...interface{}) (interface{}, error) {
			if len(args) < 1 {
				return 0, fmt.Errorf("rsi needs 1 arg, got %d", len(args))
			}
			period, err := toInt(args[0])
			if err != nil {
				return 0, err
			}
			v, ok := indicator.Last(indicator.RSI(closes, period))
			if !ok {
				*missingData = true
				return 0.0, nil
			}
			return v, nil
		},

		// pricePercentChange(n) - percent change from n bars ago to now
		"pricePercentChange": func(args ...interface{}) (interface{}, error) {
			if len(args) < 1 {
				return 0, fmt.Errorf("pricePercentChange needs 1 arg, got %d", len(args))
			}
			n, err := toInt(args[0])
			if err != nil {
				return 0, err
			}
			start, okStart := indicator.Back(closes, n)
			end, okEnd := indicator.Last(closes)
			if !okStart || !okEnd || start == 0 {
				*missingData = true
				return 0.0, nil
			}
			return indicator.PercentDiff(end, start), nil
		},
	}
}

func toFloat(v interface{}) (float64, error) {
	switch n := v.(type) {
	case float64:
		return n, nil
	case int:
		return float64(n), nil
	}
	return 0, fmt.Errorf("expression produced non-numeric result %v", v)
}

func toInt(v interface{}) (int, error) {
	switch n := v.(type) {
	case int:
		return n, nil
	case float64:
		if n != math.Trunc(n) {
			return 0, fmt.Errorf("expected integer argument, got %v", n)
		}
		return int(n), nil
	}
	return 0, fmt.Errorf("expected integer argument, got %v", v)
}
