package indicators

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRSIDefaultsToNeutralWithInsufficientData(t *testing.T) {
	got := RSI([]float64{1, 2, 3}, 14)
	assert.Equal(t, 50.0, got)
}

func TestRSIAllGainsSaturatesAt100(t *testing.T) {
	closes := make([]float64, 15)
	for i := range closes {
		closes[i] = float64(i + 1)
	}
	got := RSI(closes, 14)
	assert.Equal(t, 100.0, got)
}

func TestSMAMatchesManualAverage(t *testing.T) {
	closes := []float64{1, 2, 3, 4, 5}
	assert.InDelta(t, 4.5, SMA(closes, 2), 1e-9)
}

func TestEMASeededBySMA(t *testing.T) {
	closes := []float64{1, 2, 3, 4, 5}
	series := EMA(closes, 3)
	assert.InDelta(t, 2.0, series[2], 1e-9) // SMA(1,2,3)
}

func TestComputeBollingerWidensWithVolatility(t *testing.T) {
	flat := make([]float64, 20)
	for i := range flat {
		flat[i] = 100
	}
	bandsFlat := ComputeBollinger(flat, 20)
	assert.True(t, bandsFlat.OK)
	assert.InDelta(t, 0, bandsFlat.Upper-bandsFlat.Lower, 1e-9)

	volatile := make([]float64, 20)
	for i := range volatile {
		if i%2 == 0 {
			volatile[i] = 90
		} else {
			volatile[i] = 110
		}
	}
	bandsVolatile := ComputeBollinger(volatile, 20)
	assert.True(t, bandsVolatile.Upper-bandsVolatile.Lower > bandsFlat.Upper-bandsFlat.Lower)
}

func TestLogReturnVolatilityZeroForConstantSeries(t *testing.T) {
	closes := []float64{10, 10, 10, 10}
	assert.InDelta(t, 0, LogReturnVolatility(closes), 1e-12)
}

func TestLogReturnVolatilityPositiveForMovingSeries(t *testing.T) {
	closes := []float64{10, 11, 9, 12, 8}
	got := LogReturnVolatility(closes)
	assert.True(t, got > 0 && !math.IsNaN(got))
}

func TestComputeMACDZeroValueWithInsufficientData(t *testing.T) {
	got := ComputeMACD([]float64{1, 2, 3}, 12, 26, 9)
	assert.Equal(t, MACD{}, got)
}
