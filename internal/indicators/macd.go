package indicators

// MACDResult holds the MACD line, its signal line, and the histogram.
type MACDResult struct {
	Line      []float64
	Signal    []float64
	Histogram []float64
}

// MACD computes moving average convergence/divergence with the usual
// fast/slow/signal periods (12/26/9 by convention).
func MACD(values []float64, fast, slow, signal int) MACDResult {
	emaFast := EMA(values, fast)
	emaSlow := EMA(values, slow)

	line := make([]float64, len(values))
	for i := range line {
		line[i] = emaFast[i] - emaSlow[i]
	}
	sig := EMA(line, signal)

	hist := make([]float64, len(values))
	for i := range hist {
		hist[i] = line[i] - sig[i]
	}
	return MACDResult{Line: line, Signal: sig, Histogram: hist}
}
