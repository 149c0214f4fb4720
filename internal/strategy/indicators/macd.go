package indicators

import "math"

// MACD computes the Moving Average Convergence Divergence line, its signal
// line and the histogram for the given fast/slow/signal periods. All three
// series are aligned with the input; entries inside the warmup windows are
// NaN.
func MACD(values []float64, fast, slow, signal int) (macd, signalLine, histogram []float64) {
	macd = nanSeries(len(values))
	signalLine = nanSeries(len(values))
	histogram = nanSeries(len(values))

	fastEMA := EMA(values, fast)
	slowEMA := EMA(values, slow)
	for i := range values {
		if !math.IsNaN(fastEMA[i]) && !math.IsNaN(slowEMA[i]) {
			macd[i] = fastEMA[i] - slowEMA[i]
		}
	}

	// The signal line is an EMA of the MACD line, computed over the
	// defined (non-NaN) region only.
	start := -1
	for i, v := range macd {
		if !math.IsNaN(v) {
			start = i
			break
		}
	}
	if start == -1 {
		return macd, signalLine, histogram
	}

	sig := EMA(macd[start:], signal)
	for i, v := range sig {
		signalLine[start+i] = v
	}
	for i := range values {
		if !math.IsNaN(macd[i]) && !math.IsNaN(signalLine[i]) {
			histogram[i] = macd[i] - signalLine[i]
		}
	}
	return macd, signalLine, histogram
}
