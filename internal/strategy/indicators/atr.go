package indicators

import (
	"math"

	"github.com/henrywu-dev/tophy-bot/internal/domain"
)

// ATR computes the Average True Range over the given period as a simple
// moving average of true ranges. The first period-1 entries are NaN.
func ATR(candles []*domain.Candle, period int) []float64 {
	out := nanSeries(len(candles))
	if period <= 0 || len(candles) < period {
		return out
	}

	trueRanges := make([]float64, len(candles))
	trueRanges[0] = candles[0].High - candles[0].Low
	for i := 1; i < len(candles); i++ {
		highLow := candles[i].High - candles[i].Low
		highClose := math.Abs(candles[i].High - candles[i-1].Close)
		lowClose := math.Abs(candles[i].Low - candles[i-1].Close)
		trueRanges[i] = math.Max(highLow, math.Max(highClose, lowClose))
	}

	return SMA(trueRanges, period)
}
