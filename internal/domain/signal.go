package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

type FactorType string

const (
	FactorType_Technical   FactorType = "technical"
	FactorType_Fundamental FactorType = "fundamental"
	FactorType_Sentiment   FactorType = "sentiment"
)

// FactorScore is the output of one factor evaluation. Score and Confidence
// are clamped by the evaluator before anything downstream sees them, so
// consumers may assume Score ∈ [-1, 1] and Confidence ∈ [0, 1].
type FactorScore struct {
	FactorName string                 `json:"factorName"`
	FactorType FactorType             `json:"factorType"`
	Score      float64                `json:"score"`
	Confidence float64                `json:"confidence"`
	Metadata   map[string]interface{} `json:"metadata,omitempty"`
}

type SignalType string

const (
	SignalType_Buy  SignalType = "BUY"
	SignalType_Sell SignalType = "SELL"
	SignalType_Hold SignalType = "HOLD"
)

func NewSignalType(s string) (SignalType, error) {
	switch SignalType(s) {
	case SignalType_Buy, SignalType_Sell, SignalType_Hold:
		return SignalType(s), nil
	}
	return "", fmt.Errorf("unknown signal type %q", s)
}

// Signal is a strategy's decision for one symbol at one point in time.
// It is created once per evaluation and immutable afterwards.
type Signal struct {
	Symbol       string           `json:"symbol"`
	Type         SignalType       `json:"type"`
	Strength     float64          `json:"strength"`
	CreatedAt    time.Time        `json:"createdAt"`
	FactorScores []FactorScore    `json:"factorScores"`
	StopLoss     *decimal.Decimal `json:"stopLoss,omitempty"`
	TakeProfit   *decimal.Decimal `json:"takeProfit,omitempty"`
	Reasoning    string           `json:"reasoning"`
}
