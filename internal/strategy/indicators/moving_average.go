package indicators

import "math"

// SMA computes the Simple Moving Average of values over the given period.
// The first period-1 entries are NaN.
func SMA(values []float64, period int) []float64 {
	out := nanSeries(len(values))
	if period <= 0 || len(values) < period {
		return out
	}

	// NaN inputs are excluded from the rolling sum and mark the whole
	// window as undefined.
	sum := 0.0
	nanCount := 0
	for i, v := range values {
		if math.IsNaN(v) {
			nanCount++
		} else {
			sum += v
		}
		if i >= period {
			if old := values[i-period]; math.IsNaN(old) {
				nanCount--
			} else {
				sum -= old
			}
		}
		if i >= period-1 && nanCount == 0 {
			out[i] = sum / float64(period)
		}
	}
	return out
}

// EMA computes the Exponential Moving Average of values over the given
// period, seeded with the SMA of the first period values. The first
// period-1 entries are NaN.
func EMA(values []float64, period int) []float64 {
	out := nanSeries(len(values))
	if period <= 0 || len(values) < period {
		return out
	}

	// Seed with the initial SMA.
	sum := 0.0
	for i := 0; i < period; i++ {
		sum += values[i]
	}
	ema := sum / float64(period)
	out[period-1] = ema

	multiplier := 2.0 / float64(period+1)
	for i := period; i < len(values); i++ {
		ema = (values[i]-ema)*multiplier + ema
		out[i] = ema
	}
	return out
}
