package indicators

import "math"

// BollingerBands computes the upper band, middle band (SMA) and lower band
// for the given period and standard deviation multiplier. Entries inside
// the warmup window are NaN.
func BollingerBands(values []float64, period int, stdDev float64) (upper, middle, lower []float64) {
	upper = nanSeries(len(values))
	middle = SMA(values, period)
	lower = nanSeries(len(values))
	if period <= 1 || len(values) < period {
		return upper, middle, lower
	}

	for i := period - 1; i < len(values); i++ {
		mean := middle[i]
		variance := 0.0
		for j := i - period + 1; j <= i; j++ {
			d := values[j] - mean
			variance += d * d
		}
		sd := math.Sqrt(variance / float64(period))
		upper[i] = mean + sd*stdDev
		lower[i] = mean - sd*stdDev
	}
	return upper, middle, lower
}
