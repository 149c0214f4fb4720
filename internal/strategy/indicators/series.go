// Package indicators implements standard technical indicators as
// series-valued functions: each returns one value per input bar, aligned by
// index, using trailing windows only. Bars inside the warmup window hold
// NaN, so comparisons against them are always false and never produce a
// signal.
package indicators

import (
	"math"

	"github.com/henrywu-dev/tophy-bot/internal/domain"
)

// Closes extracts the close-price series from a candle slice.
func Closes(candles []*domain.Candle) []float64 {
	out := make([]float64, len(candles))
	for i, c := range candles {
		out[i] = c.Close
	}
	return out
}

// nanSeries returns a slice of n NaN values.
func nanSeries(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.NaN()
	}
	return out
}
