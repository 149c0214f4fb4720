// Package strategies contains the built-in trading strategies. Each one
// implements ports.Strategy: a batch Analyze pass that fills an immutable
// per-bar signal table from trailing-window indicators.
package strategies

import (
	"context"
	"fmt"

	"github.com/henrywu-dev/tophy-bot/internal/domain"
	"github.com/henrywu-dev/tophy-bot/internal/ports"
	"github.com/henrywu-dev/tophy-bot/internal/strategy/indicators"
)

// RSIConfig holds parameters for the RSI strategy.
type RSIConfig struct {
	Period         int     // RSI period (e.g., 14)
	Overbought     float64 // e.g., 70
	Oversold       float64 // e.g., 30
	ShortSMAPeriod int     // e.g., 20
	LongSMAPeriod  int     // e.g., 50
}

// RSIStrategy trades RSI extremes filtered by trend:
//
//	buy  - RSI below the oversold level while price sits above the short
//	       SMA and the short SMA is above the long SMA (uptrend pullback)
//	sell - RSI above the overbought level
//	exit - RSI above the overbought level
type RSIStrategy struct {
	cfg    RSIConfig
	logger ports.Logger
}

// NewRSI creates an RSI strategy instance.
func NewRSI(cfg RSIConfig, logger ports.Logger) (*RSIStrategy, error) {
	if cfg.Period <= 0 || cfg.ShortSMAPeriod <= 0 || cfg.LongSMAPeriod <= 0 {
		return nil, fmt.Errorf("%w: RSI and SMA periods must be positive", ports.ErrConfigurationError)
	}
	if cfg.ShortSMAPeriod >= cfg.LongSMAPeriod {
		return nil, fmt.Errorf("%w: short SMA period must be less than long SMA period", ports.ErrConfigurationError)
	}
	if cfg.Overbought <= cfg.Oversold || cfg.Overbought > 100 || cfg.Oversold < 0 {
		return nil, fmt.Errorf("%w: invalid RSI thresholds", ports.ErrConfigurationError)
	}
	if logger == nil {
		return nil, fmt.Errorf("%w: logger is required", ports.ErrConfigurationError)
	}
	return &RSIStrategy{cfg: cfg, logger: logger}, nil
}

// Name returns the name of the strategy.
func (s *RSIStrategy) Name() string {
	return "rsi"
}

// RequiredBars returns the minimum number of candles needed before any
// signal can fire.
func (s *RSIStrategy) RequiredBars() int {
	required := s.cfg.LongSMAPeriod
	if s.cfg.Period+1 > required {
		required = s.cfg.Period + 1
	}
	return required
}

// Analyze computes RSI and trend SMAs over the series and derives the
// signal columns. NaN warmup values compare false and produce no signal.
func (s *RSIStrategy) Analyze(ctx context.Context, candles []*domain.Candle) (*domain.SignalTable, error) {
	if len(candles) < s.RequiredBars() {
		return nil, fmt.Errorf("not enough candles for rsi strategy: need %d, got %d", s.RequiredBars(), len(candles))
	}

	closes := indicators.Closes(candles)
	rsi := indicators.RSI(closes, s.cfg.Period)
	shortSMA := indicators.SMA(closes, s.cfg.ShortSMAPeriod)
	longSMA := indicators.SMA(closes, s.cfg.LongSMAPeriod)

	entries := make([]domain.OrderSide, len(candles))
	exits := make([]bool, len(candles))
	for i := range candles {
		switch {
		case rsi[i] < s.cfg.Oversold && closes[i] > shortSMA[i] && shortSMA[i] > longSMA[i]:
			entries[i] = domain.Buy
		case rsi[i] > s.cfg.Overbought:
			entries[i] = domain.Sell
		}
		exits[i] = rsi[i] > s.cfg.Overbought
	}

	s.logger.Debug(ctx, "rsi analysis complete", map[string]interface{}{"bars": len(candles)})
	return domain.NewSignalTable(entries, exits), nil
}
