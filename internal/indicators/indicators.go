// Package indicators implements the technical-indicator arithmetic that
// spec.md places out of scope at the interface boundary ("the core
// consumes values, it does not re-derive them") but that a runnable demo
// still needs somewhere behind that interface. The formulas are adapted
// from the Binance trading bot's analyzer — calculateEMA/calculateRSI/
// calculateSMA/calculateVolatility — rather than invented from scratch.
package indicators

import "math"

// Kline is the subset of candlestick fields the indicator math needs.
type Kline struct {
	OpenTime  int64
	Open      float64
	High      float64
	Low       float64
	Close     float64
	Volume    float64
	CloseTime int64
}

// SMA returns the simple moving average of the trailing period closes,
// or 0 if there isn't enough data.
func SMA(closes []float64, period int) float64 {
	if len(closes) < period || period <= 0 {
		return 0
	}
	sum := 0.0
	for _, c := range closes[len(closes)-period:] {
		sum += c
	}
	return sum / float64(period)
}

// EMA returns the full exponential-moving-average series, seeded by the
// SMA of the first `period` values the way the reference implementation
// seeds it.
func EMA(closes []float64, period int) []float64 {
	if len(closes) < period || period <= 0 {
		return nil
	}
	ema := make([]float64, len(closes))
	multiplier := 2.0 / float64(period+1)

	seed := 0.0
	for i := 0; i < period; i++ {
		seed += closes[i]
	}
	ema[period-1] = seed / float64(period)

	for i := period; i < len(closes); i++ {
		ema[i] = (closes[i]-ema[i-1])*multiplier + ema[i-1]
	}
	return ema
}

// LatestEMA returns the most recent value of EMA(closes, period), or 0
// if there isn't enough data.
func LatestEMA(closes []float64, period int) float64 {
	series := EMA(closes, period)
	if len(series) == 0 {
		return 0
	}
	return series[len(series)-1]
}

// RSI returns the relative strength index over the trailing period closes,
// using simple (unsmoothed) averages of the gains and losses in that
// window, defaulting to 50 (neutral) when there isn't enough data,
// matching the reference implementation's fallback.
func RSI(closes []float64, period int) float64 {
	if len(closes) < period+1 {
		return 50.0
	}

	start := len(closes) - period - 1
	var gainSum, lossSum float64
	for i := start + 1; i < len(closes); i++ {
		delta := closes[i] - closes[i-1]
		if delta >= 0 {
			gainSum += delta
		} else {
			lossSum += -delta
		}
	}

	avgGain := gainSum / float64(period)
	avgLoss := lossSum / float64(period)
	if avgLoss == 0 {
		return 100.0
	}
	rs := avgGain / avgLoss
	return 100.0 - (100.0 / (1.0 + rs))
}

// MACD is the (macd, signal, histogram) triple for the standard
// 12/26/9 configuration.
type MACD struct {
	Value     float64
	Signal    float64
	Histogram float64
}

// ComputeMACD computes the latest MACD(12,26,9) triple. Requires at
// least 26+9 closes to produce a meaningful signal line; returns the
// zero value otherwise.
func ComputeMACD(closes []float64, fast, slow, signalPeriod int) MACD {
	if len(closes) < slow+signalPeriod {
		return MACD{}
	}

	emaFast := EMA(closes, fast)
	emaSlow := EMA(closes, slow)

	macdLine := make([]float64, len(closes))
	for i := slow - 1; i < len(closes); i++ {
		macdLine[i] = emaFast[i] - emaSlow[i]
	}

	// Signal line is the EMA of the MACD line over its defined tail.
	tail := macdLine[slow-1:]
	signalSeries := EMA(tail, signalPeriod)
	if len(signalSeries) == 0 {
		return MACD{}
	}
	signal := signalSeries[len(signalSeries)-1]
	value := macdLine[len(macdLine)-1]

	return MACD{Value: value, Signal: signal, Histogram: value - signal}
}

// Bollinger is the (lower, middle, upper) band triple.
type Bollinger struct {
	Upper  float64
	Middle float64
	Lower  float64
	OK     bool
}

// ComputeBollinger computes 20-period Bollinger bands at 2 standard
// deviations, the conventional default.
func ComputeBollinger(closes []float64, period int) Bollinger {
	if len(closes) < period || period <= 0 {
		return Bollinger{}
	}
	window := closes[len(closes)-period:]
	middle := SMA(closes, period)

	var variance float64
	for _, c := range window {
		d := c - middle
		variance += d * d
	}
	variance /= float64(period)
	stdDev := math.Sqrt(variance)

	return Bollinger{
		Upper:  middle + 2*stdDev,
		Middle: middle,
		Lower:  middle - 2*stdDev,
		OK:     true,
	}
}

// PctChange returns 100*(to-from)/from, or 0 if from is 0.
func PctChange(from, to float64) float64 {
	if from == 0 {
		return 0
	}
	return 100.0 * (to - from) / from
}

// LogReturnVolatility returns the standard deviation of log returns over
// the given closes — the same measure the reference bot calls
// calculateVolatility.
func LogReturnVolatility(closes []float64) float64 {
	if len(closes) < 2 {
		return 0
	}
	returns := make([]float64, 0, len(closes)-1)
	for i := 1; i < len(closes); i++ {
		if closes[i-1] <= 0 {
			continue
		}
		returns = append(returns, math.Log(closes[i]/closes[i-1]))
	}
	if len(returns) == 0 {
		return 0
	}
	mean := 0.0
	for _, r := range returns {
		mean += r
	}
	mean /= float64(len(returns))

	var variance float64
	for _, r := range returns {
		d := r - mean
		variance += d * d
	}
	variance /= float64(len(returns))
	return math.Sqrt(variance)
}

// AvgVolume returns the mean volume over the trailing period klines.
func AvgVolume(klines []Kline, period int) float64 {
	if len(klines) == 0 {
		return 0
	}
	if period > len(klines) {
		period = len(klines)
	}
	window := klines[len(klines)-period:]
	sum := 0.0
	for _, k := range window {
		sum += k.Volume
	}
	return sum / float64(len(window))
}
