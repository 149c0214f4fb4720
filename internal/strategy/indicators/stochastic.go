package indicators

import (
	"math"

	"github.com/henrywu-dev/tophy-bot/internal/domain"
)

// Stochastic computes the stochastic oscillator: %K over the given period
// and %D as an SMA of %K over the smoothing period. Entries inside the
// warmup windows are NaN. A flat window (high == low) yields NaN for %K.
func Stochastic(candles []*domain.Candle, period, smoothing int) (k, d []float64) {
	k = nanSeries(len(candles))
	if period <= 0 || len(candles) < period {
		return k, nanSeries(len(candles))
	}

	for i := period - 1; i < len(candles); i++ {
		lowMin := math.Inf(1)
		highMax := math.Inf(-1)
		for j := i - period + 1; j <= i; j++ {
			lowMin = math.Min(lowMin, candles[j].Low)
			highMax = math.Max(highMax, candles[j].High)
		}
		if highMax == lowMin {
			continue
		}
		k[i] = 100 * (candles[i].Close - lowMin) / (highMax - lowMin)
	}

	// %D is smoothed over the defined region of %K only; a leading NaN
	// would otherwise poison the rolling sum.
	d = nanSeries(len(candles))
	smoothed := SMA(k[period-1:], smoothing)
	for i, v := range smoothed {
		d[period-1+i] = v
	}
	return k, d
}
