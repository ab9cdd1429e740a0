package service

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"

	"stratsim/internal/domain"
	"stratsim/internal/factor"
	"stratsim/internal/logger"

	"github.com/shopspring/decimal"
)

// ClassifyFunc turns a combined factor score into a signal type. Policies
// are selected by strategy config rather than subclassing, so a variant
// only swaps this function.
type ClassifyFunc func(combined float64) domain.SignalType

const (
	SignalPolicy_Default      = "default"
	SignalPolicy_Conservative = "conservative"
)

func NewClassifyPolicy(name string) (ClassifyFunc, error) {
	switch name {
	case "", SignalPolicy_Default:
		return thresholdPolicy(0.3), nil
	case SignalPolicy_Conservative:
		return thresholdPolicy(0.4), nil
	}
	return nil, fmt.Errorf("unknown signal policy %q", name)
}

func thresholdPolicy(threshold float64) ClassifyFunc {
	return func(combined float64) domain.SignalType {
		if combined > threshold {
			return domain.SignalType_Buy
		}
		if combined < -threshold {
			return domain.SignalType_Sell
		}
		return domain.SignalType_Hold
	}
}

// ContextProvider supplies the evaluation context for one symbol. A
// failure here is scoped to that symbol, never to the whole batch.
type ContextProvider func(ctx context.Context, symbol string) (domain.EvaluationContext, error)

type weightedFactor struct {
	evaluator factor.Evaluator
	weight    float64
}

// StrategyHandler owns the enabled factors of one strategy and combines
// their scores into signals. Disabled factors are filtered out at
// construction and never evaluated.
type StrategyHandler struct {
	name     string
	factors  []weightedFactor
	classify ClassifyFunc
	risk     domain.RiskManagementConfig
}

func NewStrategyHandler(cfg domain.StrategyConfig) (*StrategyHandler, error) {
	if err := cfg.Risk.Validate(); err != nil {
		return nil, fmt.Errorf("invalid risk config for strategy %s: %w", cfg.Name, err)
	}

	classify, err := NewClassifyPolicy(cfg.SignalPolicy)
	if err != nil {
		return nil, err
	}

	factors := []weightedFactor{}
	for _, factorConfig := range cfg.EnabledFactors() {
		evaluator, err := factor.New(factorConfig)
		if err != nil {
			return nil, fmt.Errorf("failed to construct strategy %s: %w", cfg.Name, err)
		}
		factors = append(factors, weightedFactor{
			evaluator: evaluator,
			weight:    factorConfig.EffectiveWeight(),
		})
	}

	return &StrategyHandler{
		name:     cfg.Name,
		factors:  factors,
		classify: classify,
		risk:     cfg.Risk,
	}, nil
}

// EvaluateSymbol runs every enabled factor against the context and
// combines the scores into one signal. Factors share no mutable state, so
// they are fanned out concurrently and joined before combination - the
// weighted average is commutative, so completion order cannot change the
// result.
func (h *StrategyHandler) EvaluateSymbol(ctx context.Context, ec domain.EvaluationContext) (*domain.Signal, error) {
	type factorResult struct {
		score domain.FactorScore
		err   error
	}

	results := make([]factorResult, len(h.factors))
	var wg sync.WaitGroup
	for i, wf := range h.factors {
		wg.Add(1)
		go func(i int, wf weightedFactor) {
			defer wg.Done()
			score, err := wf.evaluator.Evaluate(ctx, ec)
			results[i] = factorResult{score: score, err: err}
		}(i, wf)
	}
	wg.Wait()

	scores := make([]domain.FactorScore, 0, len(h.factors))
	for i, res := range results {
		if res.err != nil {
			return nil, fmt.Errorf("factor %s failed for %s: %w", h.factors[i].evaluator.Name(), ec.Symbol, res.err)
		}
		scores = append(scores, res.score)
	}

	combined := h.combine(scores)
	signalType := h.classify(combined)

	signal := &domain.Signal{
		Symbol:       ec.Symbol,
		Type:         signalType,
		Strength:     math.Abs(combined),
		CreatedAt:    ec.Date,
		FactorScores: scores,
		Reasoning:    buildReasoning(combined, scores),
	}
	h.applyRiskLevels(signal, ec.CurrentPrice)

	return signal, nil
}

// combine reduces factor scores to one value: each score is weighted by
// its own confidence, then by the factor's configured weight. An empty
// score list combines to 0.
func (h *StrategyHandler) combine(scores []domain.FactorScore) float64 {
	if len(scores) == 0 {
		return 0
	}

	weightedSum := 0.0
	weightTotal := 0.0
	for i, score := range scores {
		weight := h.factors[i].weight
		weightedSum += score.Score * score.Confidence * weight
		weightTotal += weight
	}
	if weightTotal == 0 {
		return 0
	}
	return weightedSum / weightTotal
}

func (h *StrategyHandler) applyRiskLevels(signal *domain.Signal, currentPrice float64) {
	price := decimal.NewFromFloat(currentPrice)
	stopLoss := decimal.NewFromFloat(h.risk.StopLossPercent)

	switch signal.Type {
	case domain.SignalType_Buy:
		sl := price.Mul(decimal.NewFromInt(1).Sub(stopLoss))
		signal.StopLoss = &sl
		if h.risk.TakeProfitPercent != nil {
			tp := price.Mul(decimal.NewFromInt(1).Add(decimal.NewFromFloat(*h.risk.TakeProfitPercent)))
			signal.TakeProfit = &tp
		}
	case domain.SignalType_Sell:
		sl := price.Mul(decimal.NewFromInt(1).Add(stopLoss))
		signal.StopLoss = &sl
		if h.risk.TakeProfitPercent != nil {
			tp := price.Mul(decimal.NewFromInt(1).Sub(decimal.NewFromFloat(*h.risk.TakeProfitPercent)))
			signal.TakeProfit = &tp
		}
	}
}

// buildReasoning renders the overall sentiment plus the top three factors
// by absolute score, each annotated with direction and intensity.
func buildReasoning(combined float64, scores []domain.FactorScore) string {
	sentiment := "Neutral"
	if combined > 0 {
		sentiment = "Bullish"
	} else if combined < 0 {
		sentiment = "Bearish"
	}

	ranked := make([]domain.FactorScore, len(scores))
	copy(ranked, scores)
	sort.SliceStable(ranked, func(i, j int) bool {
		return math.Abs(ranked[i].Score) > math.Abs(ranked[j].Score)
	})
	if len(ranked) > 3 {
		ranked = ranked[:3]
	}

	parts := []string{}
	for _, score := range ranked {
		direction := "bullish"
		if score.Score < 0 {
			direction = "bearish"
		}
		parts = append(parts, fmt.Sprintf("%s %s (%.0f%%)", score.FactorName, direction, math.Abs(score.Score)*100))
	}

	if len(parts) == 0 {
		return fmt.Sprintf("%s (%.2f): no factor scores", sentiment, combined)
	}
	return fmt.Sprintf("%s (%.2f): %s", sentiment, combined, strings.Join(parts, ", "))
}

// GenerateSignals evaluates every symbol in the batch. A failure for one
// symbol - a missing context, a factor error - is logged and that symbol
// is omitted; the rest of the batch continues.
func (h *StrategyHandler) GenerateSignals(ctx context.Context, symbols []string, provider ContextProvider) []domain.Signal {
	log := logger.FromContext(ctx)

	signals := []domain.Signal{}
	for _, symbol := range symbols {
		ec, err := provider(ctx, symbol)
		if err != nil {
			log.Warnf("skipping %s: failed to load evaluation context: %v", symbol, err)
			continue
		}
		signal, err := h.EvaluateSymbol(ctx, ec)
		if err != nil {
			log.Warnf("skipping %s: evaluation failed: %v", symbol, err)
			continue
		}
		signals = append(signals, *signal)
	}
	return signals
}

// TestStrategy builds a strategy from config and evaluates a single
// symbol, erroring if no signal could be produced.
func TestStrategy(ctx context.Context, cfg domain.StrategyConfig, symbol string, provider ContextProvider) (*domain.Signal, error) {
	handler, err := NewStrategyHandler(cfg)
	if err != nil {
		return nil, err
	}

	signals := handler.GenerateSignals(ctx, []string{symbol}, provider)
	if len(signals) == 0 {
		return nil, fmt.Errorf("no signal could be produced for %s", symbol)
	}
	return &signals[0], nil
}
