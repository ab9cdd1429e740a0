package domain

import (
	"time"
)

// PriceBar is one day of OHLCV data for a symbol. Bars are immutable;
// there is exactly one per symbol per trading day.
type PriceBar struct {
	Symbol string    `json:"symbol" csv:"symbol"`
	Date   time.Time `json:"date" csv:"-"`
	Open   float64   `json:"open" csv:"open"`
	High   float64   `json:"high" csv:"high"`
	Low    float64   `json:"low" csv:"low"`
	Close  float64   `json:"close" csv:"close"`
	Volume int64     `json:"volume" csv:"volume"`
}

// EvaluationContext is the read-only input to a single factor evaluation.
// History is ordered ascending by date and must not be mutated by factors.
type EvaluationContext struct {
	Symbol       string
	Date         time.Time
	CurrentPrice float64
	History      []PriceBar
}

// Closes returns the close series in ascending date order.
func (ec EvaluationContext) Closes() []float64 {
	closes := make([]float64, len(ec.History))
	for i, bar := range ec.History {
		closes[i] = bar.Close
	}
	return closes
}
