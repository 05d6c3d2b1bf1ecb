package indicators

import "math"

// ATR returns the average true range over a simple rolling window.
// highs, lows, and closes must be the same length.
func ATR(highs, lows, closes []float64, period int) []float64 {
	n := len(highs)
	if n == 0 || len(lows) != n || len(closes) != n || period <= 0 {
		return nil
	}

	tr := make([]float64, n)
	tr[0] = highs[0] - lows[0]
	for i := 1; i < n; i++ {
		hl := highs[i] - lows[i]
		hc := math.Abs(highs[i] - closes[i-1])
		lc := math.Abs(lows[i] - closes[i-1])
		tr[i] = math.Max(hl, math.Max(hc, lc))
	}

	out := make([]float64, n)
	for i := range out {
		if i+1 < period {
			out[i] = 0
			continue
		}
		sum := 0.0
		for j := i + 1 - period; j <= i; j++ {
			sum += tr[j]
		}
		out[i] = sum / float64(period)
	}
	return out
}
