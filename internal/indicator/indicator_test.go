package indicator

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func Test_SMA(t *testing.T) {
	t.Run("window fills after period-1 bars", func(t *testing.T) {
		out := SMA([]float64{1, 2, 3, 4, 5}, 3)

		require.Len(t, out, 5)
		require.True(t, math.IsNaN(out[0]))
		require.True(t, math.IsNaN(out[1]))
		require.Equal(t, 2.0, out[2])
		require.Equal(t, 3.0, out[3])
		require.Equal(t, 4.0, out[4])
	})

	t.Run("series shorter than period is all undefined", func(t *testing.T) {
		out := SMA([]float64{1, 2}, 3)
		for _, v := range out {
			require.True(t, math.IsNaN(v))
		}
	})

	t.Run("zero period is all undefined", func(t *testing.T) {
		out := SMA([]float64{1, 2, 3}, 0)
		for _, v := range out {
			require.True(t, math.IsNaN(v))
		}
	})
}

func Test_RSI(t *testing.T) {
	t.Run("undefined until period+1 observations", func(t *testing.T) {
		out := RSI([]float64{1, 2, 3}, 3)
		for _, v := range out {
			require.True(t, math.IsNaN(v))
		}
	})

	t.Run("zero average loss saturates to exactly 100", func(t *testing.T) {
		out := RSI([]float64{1, 2, 3, 4, 5}, 3)

		last, ok := Last(out)
		require.True(t, ok)
		require.Equal(t, 100.0, last)
	})

	t.Run("all losses is 0", func(t *testing.T) {
		out := RSI([]float64{5, 4, 3, 2, 1}, 3)

		last, ok := Last(out)
		require.True(t, ok)
		require.Equal(t, 0.0, last)
	})

	t.Run("known value", func(t *testing.T) {
		// one +3 and one -9 over 14 changes: RS = 1/3, RSI = 25
		values := []float64{100, 103, 94}
		for i := 0; i < 12; i++ {
			values = append(values, 94)
		}
		out := RSI(values, 14)

		last, ok := Last(out)
		require.True(t, ok)
		require.InDelta(t, 25.0, last, 1e-9)
	})
}

func Test_LastBack(t *testing.T) {
	t.Run("out of range returns not-ok rather than panicking", func(t *testing.T) {
		_, ok := Last([]float64{})
		require.False(t, ok)

		_, ok = Back([]float64{1, 2}, 2)
		require.False(t, ok)

		_, ok = Back([]float64{1, 2}, -1)
		require.False(t, ok)
	})

	t.Run("undefined entries are not-ok", func(t *testing.T) {
		_, ok := Last([]float64{1, math.NaN()})
		require.False(t, ok)
	})

	t.Run("back indexes from the end", func(t *testing.T) {
		v, ok := Back([]float64{1, 2, 3}, 1)
		require.True(t, ok)
		require.Equal(t, 2.0, v)
	})
}

func Test_Normalize(t *testing.T) {
	require.Equal(t, -1.0, Normalize(0, 0, 30))
	require.Equal(t, 1.0, Normalize(30, 0, 30))
	require.Equal(t, 0.0, Normalize(15, 0, 30))
	require.Equal(t, 0.0, Normalize(5, 5, 5))
}
