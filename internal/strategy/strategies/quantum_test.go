package strategies

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/henrywu-dev/tophy-bot/internal/domain"
)

// quantumBar carries the candle fields the quantum strategy reads.
type quantumBar struct {
	high, low, close, volume float64
}

func quantumCandles(bars []quantumBar) []*domain.Candle {
	candles := make([]*domain.Candle, len(bars))
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, b := range bars {
		candles[i] = &domain.Candle{
			OpenTime:  base.Add(time.Duration(i) * time.Hour),
			CloseTime: base.Add(time.Duration(i+1) * time.Hour),
			Symbol:    "ETHUSDT",
			Timeframe: "1h",
			Open:      b.close,
			High:      b.high,
			Low:       b.low,
			Close:     b.close,
			Volume:    b.volume,
		}
	}
	return candles
}

func validQuantumConfig() QuantumConfig {
	return QuantumConfig{
		ATRPeriod:        2,
		VolatilityPeriod: 2,
		BandPeriod:       3,
		RSIPeriod:        2,
		StochPeriod:      2,
		StochSmoothing:   2,
		VolumePeriod:     3,
		FastSMAPeriod:    2,
		MediumSMAPeriod:  3,
		SlowSMAPeriod:    4,
	}
}

func TestNewQuantumValidation(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*QuantumConfig)
	}{
		{"zero ATR period", func(c *QuantumConfig) { c.ATRPeriod = 0 }},
		{"zero volatility period", func(c *QuantumConfig) { c.VolatilityPeriod = 0 }},
		{"zero band period", func(c *QuantumConfig) { c.BandPeriod = 0 }},
		{"zero RSI period", func(c *QuantumConfig) { c.RSIPeriod = 0 }},
		{"zero stochastic period", func(c *QuantumConfig) { c.StochPeriod = 0 }},
		{"zero stochastic smoothing", func(c *QuantumConfig) { c.StochSmoothing = 0 }},
		{"zero volume period", func(c *QuantumConfig) { c.VolumePeriod = 0 }},
		{"zero fast SMA", func(c *QuantumConfig) { c.FastSMAPeriod = 0 }},
		{"fast SMA not below medium SMA", func(c *QuantumConfig) { c.FastSMAPeriod = c.MediumSMAPeriod }},
		{"medium SMA not below slow SMA", func(c *QuantumConfig) { c.MediumSMAPeriod = c.SlowSMAPeriod }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validQuantumConfig()
			tt.modify(&cfg)
			_, err := NewQuantum(cfg, &mockLogger{})
			require.Error(t, err)
		})
	}

	_, err := NewQuantum(validQuantumConfig(), nil)
	require.Error(t, err)
}

func TestQuantumStrategyRequiredBars(t *testing.T) {
	strat, err := NewQuantum(QuantumConfig{
		ATRPeriod:        14,
		VolatilityPeriod: 20,
		BandPeriod:       20,
		RSIPeriod:        14,
		StochPeriod:      14,
		StochSmoothing:   3,
		VolumePeriod:     20,
		FastSMAPeriod:    9,
		MediumSMAPeriod:  21,
		SlowSMAPeriod:    55,
	}, &mockLogger{})
	require.NoError(t, err)
	// The slow SMA plus one lookback bar dominates the default periods.
	assert.Equal(t, 56, strat.RequiredBars())

	strat, err = NewQuantum(validQuantumConfig(), &mockLogger{})
	require.NoError(t, err)
	assert.Equal(t, 5, strat.RequiredBars())
}

func TestQuantumStrategyAnalyzeNotEnoughCandles(t *testing.T) {
	strat, err := NewQuantum(validQuantumConfig(), &mockLogger{})
	require.NoError(t, err)

	bars := make([]quantumBar, strat.RequiredBars()-1)
	for i := range bars {
		bars[i] = quantumBar{high: 10, low: 10, close: 10, volume: 100}
	}
	_, err = strat.Analyze(context.Background(), quantumCandles(bars))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not enough candles")
}

func TestQuantumStrategyAnalyzeFlatSeries(t *testing.T) {
	strat, err := NewQuantum(validQuantumConfig(), &mockLogger{})
	require.NoError(t, err)

	bars := make([]quantumBar, 8)
	for i := range bars {
		bars[i] = quantumBar{high: 10, low: 10, close: 10, volume: 100}
	}
	table, err := strat.Analyze(context.Background(), quantumCandles(bars))
	require.NoError(t, err)

	for i := 0; i < len(bars); i++ {
		_, ok := table.EntrySignal(i)
		assert.False(t, ok, "bar %d", i)
		assert.False(t, table.ExitSignal(i), "bar %d", i)
	}
}

func TestQuantumStrategyAnalyzeBreakoutBuy(t *testing.T) {
	strat, err := NewQuantum(validQuantumConfig(), &mockLogger{})
	require.NoError(t, err)

	// Five quiet bars, then two expanding up-bars on surging volume. The
	// last bar has an ATR ratio of 1.5/1.05 with volume at 1.7x its
	// average, accelerating momentum and price above both trend SMAs.
	bars := []quantumBar{
		{high: 10.1, low: 9.9, close: 10, volume: 100},
		{high: 10.1, low: 9.9, close: 10, volume: 100},
		{high: 10.1, low: 9.9, close: 10, volume: 100},
		{high: 10.1, low: 9.9, close: 10, volume: 100},
		{high: 10.1, low: 9.9, close: 10, volume: 100},
		{high: 11, low: 10, close: 11, volume: 200},
		{high: 13, low: 11, close: 13, volume: 400},
	}
	table, err := strat.Analyze(context.Background(), quantumCandles(bars))
	require.NoError(t, err)

	for i := 0; i < 6; i++ {
		_, ok := table.EntrySignal(i)
		assert.False(t, ok, "bar %d", i)
	}
	side, ok := table.EntrySignal(6)
	require.True(t, ok)
	assert.Equal(t, domain.Buy, side)

	// The vertical rally also pins RSI at 100, so the blow-off exit fires
	// alongside the entry; the engine settles any open trade first.
	for i := 0; i < 5; i++ {
		assert.False(t, table.ExitSignal(i), "bar %d", i)
	}
	assert.True(t, table.ExitSignal(5))
	assert.True(t, table.ExitSignal(6))
}

func TestQuantumStrategyAnalyzeBreakdownSell(t *testing.T) {
	strat, err := NewQuantum(validQuantumConfig(), &mockLogger{})
	require.NoError(t, err)

	// A flat series breaking down on exhausted volume: the last bar closes
	// below the medium SMA with negative momentum and volume at half its
	// average.
	bars := []quantumBar{
		{high: 10, low: 10, close: 10, volume: 100},
		{high: 10, low: 10, close: 10, volume: 100},
		{high: 10, low: 10, close: 10, volume: 100},
		{high: 10, low: 10, close: 10, volume: 100},
		{high: 10, low: 10, close: 10, volume: 100},
		{high: 10, low: 10, close: 10, volume: 100},
		{high: 10, low: 10, close: 10, volume: 100},
		{high: 10, low: 9, close: 9, volume: 40},
	}
	table, err := strat.Analyze(context.Background(), quantumCandles(bars))
	require.NoError(t, err)

	for i := 0; i < 7; i++ {
		_, ok := table.EntrySignal(i)
		assert.False(t, ok, "bar %d", i)
		assert.False(t, table.ExitSignal(i), "bar %d", i)
	}
	side, ok := table.EntrySignal(7)
	require.True(t, ok)
	assert.Equal(t, domain.Sell, side)
	// The capitulation exit fires on the same bar: RSI drops to zero and
	// the close falls below the slow SMA.
	assert.True(t, table.ExitSignal(7))
}
