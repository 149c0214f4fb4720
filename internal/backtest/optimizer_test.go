package backtest

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/henrywu-dev/tophy-bot/internal/domain"
)

func TestParamRangeValues(t *testing.T) {
	values := ParamRange{Min: -0.05, Max: -0.01, Step: 0.01}.Values()
	require.Len(t, values, 5)
	assert.InDelta(t, -0.05, values[0], 1e-9)
	assert.InDelta(t, -0.01, values[4], 1e-9)

	// Step accumulation must not drop the upper bound.
	values = ParamRange{Min: 0.01, Max: 0.06, Step: 0.01}.Values()
	require.Len(t, values, 6)
	assert.InDelta(t, 0.06, values[5], 1e-9)

	values = ParamRange{Min: -0.02}.Values()
	require.Len(t, values, 1)
	assert.InDelta(t, -0.02, values[0], 1e-9)
}

func TestOptimizeSweepsFullGrid(t *testing.T) {
	closes := []float64{100, 105, 110, 120}
	strat := &scriptStrategy{
		entries: []domain.OrderSide{domain.Buy, "", "", ""},
		exits:   []bool{false, false, true, false},
	}
	opt := NewOptimizer(OptimizerConfig{
		StopLossPct:   ParamRange{Min: -0.6, Max: -0.4, Step: 0.1},
		TakeProfitPct: ParamRange{Min: 4, Max: 5, Step: 1},
		Base: Config{
			InitialBalance: 10000,
			StakeAmount:    1000,
		},
	}, &mockLogger{})

	results, err := opt.Optimize(context.Background(), strat, seriesCandles(closes), "ETHUSDT")
	require.NoError(t, err)

	// 3 stop-loss values x 2 take-profit values.
	require.Len(t, results, 6)
	for i := 1; i < len(results); i++ {
		assert.GreaterOrEqual(t, results[i-1].Score, results[i].Score)
	}
	for _, r := range results {
		require.NotNil(t, r.Results)
		require.NotNil(t, r.Metrics)
		assert.Equal(t, 1, r.Results.TotalTrades)
	}
}

func TestOptimizeSkipsInvalidGridPoints(t *testing.T) {
	strat := &scriptStrategy{
		entries: []domain.OrderSide{"", "", "", ""},
		exits:   make([]bool, 4),
	}
	// A stop loss of zero is rejected when the engine is built; that grid
	// point is dropped rather than failing the sweep.
	opt := NewOptimizer(OptimizerConfig{
		StopLossPct:   ParamRange{Min: -0.1, Max: 0, Step: 0.1},
		TakeProfitPct: ParamRange{Min: 0.05},
		Base: Config{
			InitialBalance: 10000,
			StakeAmount:    1000,
		},
	}, &mockLogger{})

	results, err := opt.Optimize(context.Background(), strat, seriesCandles([]float64{100, 101, 102, 103}), "ETHUSDT")
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.InDelta(t, -0.1, results[0].StopLossPct, 1e-9)
}

func TestOptimizeCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	opt := NewOptimizer(OptimizerConfig{
		StopLossPct:   ParamRange{Min: -0.02},
		TakeProfitPct: ParamRange{Min: 0.04},
		Base: Config{
			InitialBalance: 10000,
			StakeAmount:    1000,
		},
	}, &mockLogger{})

	_, err := opt.Optimize(ctx, &scriptStrategy{entries: make([]domain.OrderSide, 1), exits: make([]bool, 1)}, seriesCandles([]float64{100}), "ETHUSDT")
	require.ErrorIs(t, err, context.Canceled)
}
