package indicator

import (
	"math"
)

// Series values are aligned with their input: entry i is the indicator at
// bar i, or NaN while the trailing window has not filled yet. Callers use
// Last/Back rather than poking at NaN entries directly.

// SMA returns the simple moving average of the trailing `period` values.
// The first period-1 entries are undefined.
func SMA(values []float64, period int) []float64 {
	out := make([]float64, len(values))
	for i := range out {
		out[i] = math.NaN()
	}
	if period <= 0 || len(values) < period {
		return out
	}

	windowSum := 0.0
	for i, v := range values {
		windowSum += v
		if i >= period {
			windowSum -= values[i-period]
		}
		if i >= period-1 {
			out[i] = windowSum / float64(period)
		}
	}
	return out
}

// RSI computes the relative strength index over the trailing `period`
// average gains and losses of successive closes. Undefined until period+1
// observations exist. A window with zero average loss saturates to 100.
func RSI(values []float64, period int) []float64 {
	out := make([]float64, len(values))
	for i := range out {
		out[i] = math.NaN()
	}
	if period <= 0 || len(values) < period+1 {
		return out
	}

	for i := period; i < len(values); i++ {
		gainSum := 0.0
		lossSum := 0.0
		for j := i - period + 1; j <= i; j++ {
			change := values[j] - values[j-1]
			if change > 0 {
				gainSum += change
			} else {
				lossSum -= change
			}
		}
		avgGain := gainSum / float64(period)
		avgLoss := lossSum / float64(period)

		if avgLoss == 0 {
			out[i] = 100
			continue
		}
		rs := avgGain / avgLoss
		out[i] = 100 - 100/(1+rs)
	}
	return out
}

// Last returns the final defined value of a series. ok is false when the
// series is empty or the final entry is still undefined - callers must
// treat that as insufficient data, not an error.
func Last(series []float64) (float64, bool) {
	return Back(series, 0)
}

// Back returns the value n positions before the end of the series.
func Back(series []float64, n int) (float64, bool) {
	idx := len(series) - 1 - n
	if n < 0 || idx < 0 {
		return 0, false
	}
	v := series[idx]
	if math.IsNaN(v) {
		return 0, false
	}
	return v, true
}

// PercentDiff is the percent difference of a vs b, relative to b.
func PercentDiff(a, b float64) float64 {
	if b == 0 {
		return 0
	}
	return (a - b) / b * 100
}

func Clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Normalize maps v from [min, max] linearly onto [-1, 1].
func Normalize(v, min, max float64) float64 {
	if max == min {
		return 0
	}
	return 2*(v-min)/(max-min) - 1
}
