package indicators

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEMA(t *testing.T) {
	assert.Nil(t, EMA(nil, 10))
	assert.Nil(t, EMA([]float64{1, 2}, 0))

	// period 3 -> alpha 0.5, seeded with the first value.
	out := EMA([]float64{2, 4, 6}, 3)
	require.Len(t, out, 3)
	assert.Equal(t, 2.0, out[0])
	assert.Equal(t, 3.0, out[1])
	assert.Equal(t, 4.5, out[2])
}

func TestEMAConstantSeriesIsFlat(t *testing.T) {
	out := EMA([]float64{5, 5, 5, 5}, 4)
	for _, v := range out {
		assert.Equal(t, 5.0, v)
	}
}

func TestLast(t *testing.T) {
	assert.Zero(t, Last(nil))
	assert.Equal(t, 3.0, Last([]float64{1, 2, 3}))
}

func TestRSIBounds(t *testing.T) {
	assert.Nil(t, RSI([]float64{1}, 14))

	rising := make([]float64, 30)
	falling := make([]float64, 30)
	for i := range rising {
		rising[i] = float64(100 + i)
		falling[i] = float64(100 - i)
	}
	assert.InDelta(t, 100, Last(RSI(rising, 14)), 1e-3)
	assert.InDelta(t, 0, Last(RSI(falling, 14)), 1e-3)
}

func TestRSIBalancedSeriesNearMidline(t *testing.T) {
	values := make([]float64, 40)
	for i := range values {
		values[i] = 100
		if i%2 == 1 {
			values[i] = 101
		}
	}
	// Equal gains and losses settle near 50.
	rsi := Last(RSI(values, 14))
	assert.InDelta(t, 50, rsi, 10)
}

func TestMACDSignOnTrends(t *testing.T) {
	rising := make([]float64, 60)
	for i := range rising {
		rising[i] = float64(100 + i)
	}
	res := MACD(rising, 12, 26, 9)
	require.Len(t, res.Line, 60)
	assert.Positive(t, Last(res.Line))

	falling := make([]float64, 60)
	for i := range falling {
		falling[i] = float64(200 - i)
	}
	assert.Negative(t, Last(MACD(falling, 12, 26, 9).Line))
}

func TestMACDHistogramIsLineMinusSignal(t *testing.T) {
	values := []float64{1, 3, 2, 5, 4, 6, 8, 7, 9, 10}
	res := MACD(values, 3, 6, 2)
	for i := range values {
		assert.InDelta(t, res.Line[i]-res.Signal[i], res.Histogram[i], 1e-12)
	}
}

func TestATR(t *testing.T) {
	assert.Nil(t, ATR(nil, nil, nil, 14))
	assert.Nil(t, ATR([]float64{1}, []float64{1, 2}, []float64{1}, 14))

	highs := []float64{10, 12, 11, 13}
	lows := []float64{8, 9, 10, 10}
	closes := []float64{9, 11, 10, 12}

	out := ATR(highs, lows, closes, 2)
	require.Len(t, out, 4)
	assert.Zero(t, out[0]) // not enough history yet

	// TR: [2, 3, 1, 3]; 2-period means follow.
	assert.InDelta(t, 2.5, out[1], 1e-12)
	assert.InDelta(t, 2.0, out[2], 1e-12)
	assert.InDelta(t, 2.0, out[3], 1e-12)
}
