package indicators

// RSI returns the relative strength index series using exponentially
// smoothed average gains and losses.
func RSI(values []float64, period int) []float64 {
	if len(values) < 2 || period <= 0 {
		return nil
	}
	gains := make([]float64, len(values))
	losses := make([]float64, len(values))
	for i := 1; i < len(values); i++ {
		delta := values[i] - values[i-1]
		if delta > 0 {
			gains[i] = delta
		} else {
			losses[i] = -delta
		}
	}
	gainEMA := EMA(gains, period)
	lossEMA := EMA(losses, period)

	out := make([]float64, len(values))
	for i := range out {
		rs := gainEMA[i] / (lossEMA[i] + 1e-9)
		out[i] = 100 - 100/(1+rs)
	}
	return out
}
