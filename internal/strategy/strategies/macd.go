package strategies

import (
	"context"
	"fmt"
	"math"

	"github.com/henrywu-dev/tophy-bot/internal/domain"
	"github.com/henrywu-dev/tophy-bot/internal/ports"
	"github.com/henrywu-dev/tophy-bot/internal/strategy/indicators"
)

// MACDConfig holds parameters for the MACD strategy.
type MACDConfig struct {
	FastPeriod   int // e.g., 12
	SlowPeriod   int // e.g., 26
	SignalPeriod int // e.g., 9
}

// MACDStrategy trades signal-line crossovers:
//
//	buy  - MACD crosses above the signal line
//	sell - MACD crosses below the signal line
//	exit - MACD below zero
type MACDStrategy struct {
	cfg    MACDConfig
	logger ports.Logger
}

// NewMACD creates a MACD strategy instance.
func NewMACD(cfg MACDConfig, logger ports.Logger) (*MACDStrategy, error) {
	if cfg.FastPeriod <= 0 || cfg.SlowPeriod <= 0 || cfg.SignalPeriod <= 0 {
		return nil, fmt.Errorf("%w: MACD periods must be positive", ports.ErrConfigurationError)
	}
	if cfg.FastPeriod >= cfg.SlowPeriod {
		return nil, fmt.Errorf("%w: fast period must be less than slow period", ports.ErrConfigurationError)
	}
	if logger == nil {
		return nil, fmt.Errorf("%w: logger is required", ports.ErrConfigurationError)
	}
	return &MACDStrategy{cfg: cfg, logger: logger}, nil
}

// Name returns the name of the strategy.
func (s *MACDStrategy) Name() string {
	return "macd"
}

// RequiredBars returns the minimum number of candles needed before any
// signal can fire.
func (s *MACDStrategy) RequiredBars() int {
	return s.cfg.SlowPeriod + s.cfg.SignalPeriod
}

// Analyze computes the MACD columns over the series and derives crossover
// entries. A crossover at bar i compares bars i-1 and i only, so signals
// never look ahead.
func (s *MACDStrategy) Analyze(ctx context.Context, candles []*domain.Candle) (*domain.SignalTable, error) {
	if len(candles) < s.RequiredBars() {
		return nil, fmt.Errorf("not enough candles for macd strategy: need %d, got %d", s.RequiredBars(), len(candles))
	}

	closes := indicators.Closes(candles)
	macd, signal, _ := indicators.MACD(closes, s.cfg.FastPeriod, s.cfg.SlowPeriod, s.cfg.SignalPeriod)

	entries := make([]domain.OrderSide, len(candles))
	exits := make([]bool, len(candles))
	for i := 1; i < len(candles); i++ {
		if math.IsNaN(macd[i]) || math.IsNaN(signal[i]) || math.IsNaN(macd[i-1]) || math.IsNaN(signal[i-1]) {
			continue
		}
		if macd[i] > signal[i] && macd[i-1] <= signal[i-1] {
			entries[i] = domain.Buy
		} else if macd[i] < signal[i] && macd[i-1] >= signal[i-1] {
			entries[i] = domain.Sell
		}
		exits[i] = macd[i] < 0
	}

	s.logger.Debug(ctx, "macd analysis complete", map[string]interface{}{"bars": len(candles)})
	return domain.NewSignalTable(entries, exits), nil
}
