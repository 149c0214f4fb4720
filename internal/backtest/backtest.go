package backtest

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/henrywu-dev/tophy-bot/internal/domain"
	"github.com/henrywu-dev/tophy-bot/internal/engine"
	"github.com/henrywu-dev/tophy-bot/internal/ports"
)

// fetchChunkLimit is the maximum number of candles requested per exchange call.
const fetchChunkLimit = 1000

// Config holds configuration for a backtest run.
type Config struct {
	InitialBalance float64
	StakeAmount    float64
	StopLossPct    float64 // negative fraction, e.g. -0.02
	TakeProfitPct  float64 // positive fraction, e.g. 0.04
}

// Runner drives a strategy over a historical candle series using the
// shared decision engine and aggregates the outcome.
type Runner struct {
	strategy ports.Strategy
	logger   ports.Logger
	cfg      Config
}

// NewRunner creates a backtest runner.
func NewRunner(strategy ports.Strategy, logger ports.Logger, cfg Config) (*Runner, error) {
	if strategy == nil {
		return nil, errors.New("backtest: strategy is required")
	}
	if logger == nil {
		return nil, errors.New("backtest: logger is required")
	}
	if cfg.InitialBalance <= 0 {
		return nil, errors.New("backtest: initial balance must be positive")
	}
	if cfg.StakeAmount <= 0 {
		return nil, errors.New("backtest: stake amount must be positive")
	}
	return &Runner{strategy: strategy, logger: logger, cfg: cfg}, nil
}

// Run simulates the strategy over the given candles, oldest first.
// Signals are computed once up front; the engine then replays the series
// bar by bar. Any trade still open after the last bar is force-closed at
// that bar's close price.
func (r *Runner) Run(ctx context.Context, candles []*domain.Candle, symbol string) (*Results, error) {
	const op = "backtest.Run"

	if len(candles) == 0 {
		return nil, fmt.Errorf("%s: no candles to simulate", op)
	}

	sigs, err := r.strategy.Analyze(ctx, candles)
	if err != nil {
		return nil, fmt.Errorf("%s: strategy analysis failed: %w", op, err)
	}

	// A single open position at a time keeps simulated fills unambiguous.
	eng, err := engine.New(engine.Config{
		Symbol:         symbol,
		StrategyName:   r.strategy.Name(),
		InitialBalance: r.cfg.InitialBalance,
		StakeAmount:    r.cfg.StakeAmount,
		StopLossPct:    r.cfg.StopLossPct,
		TakeProfitPct:  r.cfg.TakeProfitPct,
		MaxOpenTrades:  1,
		IDPrefix:       "BT",
	}, engine.PaperBroker{}, r.logger)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	for i, bar := range candles {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		if err := eng.Step(ctx, sigs, i, bar); err != nil {
			return nil, fmt.Errorf("%s: bar %d: %w", op, i, err)
		}
	}

	last := candles[len(candles)-1]
	if n := eng.CloseAll(ctx, last.Close, time.Now().UTC(), domain.CloseReasonEndOfData); n > 0 {
		r.logger.Debug(ctx, "Force-closed trades at end of data",
			map[string]interface{}{"count": n, "price": last.Close})
	}

	res := ComputeResults(eng.ClosedTrades(), r.cfg.InitialBalance, eng.Balance())
	r.logger.Info(ctx, "Backtest complete", map[string]interface{}{
		"symbol":       symbol,
		"strategy":     r.strategy.Name(),
		"candles":      len(candles),
		"totalTrades":  res.TotalTrades,
		"winRate":      res.WinRate,
		"totalPnL":     res.TotalPnL,
		"finalBalance": res.FinalBalance,
	})
	return res, nil
}

// FetchHistoricalData pulls the last `days` worth of candles for the
// symbol/timeframe from the exchange, chunking requests and deduplicating
// overlapping timestamps. If a chunk fails after some data has been
// gathered the partial series is returned; if no data could be fetched at
// all the error wraps ports.ErrDataFetch.
func FetchHistoricalData(ctx context.Context, client ports.ExchangeClient, logger ports.Logger, symbol, timeframe string, days int) ([]*domain.Candle, error) {
	const op = "backtest.FetchHistoricalData"

	tfDur, err := ParseTimeframe(timeframe)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	total := int(time.Duration(days) * 24 * time.Hour / tfDur)
	if total <= 0 {
		total = fetchChunkLimit
	}

	var candles []*domain.Candle
	remaining := total
	for remaining > 0 {
		limit := remaining
		if limit > fetchChunkLimit {
			limit = fetchChunkLimit
		}
		chunk, err := client.GetOHLCV(ctx, symbol, timeframe, limit)
		if err != nil {
			if len(candles) == 0 {
				return nil, fmt.Errorf("%s: %w: %v", op, ports.ErrDataFetch, err)
			}
			logger.Warn(ctx, "Historical data fetch stopped early, keeping partial series",
				map[string]interface{}{"symbol": symbol, "fetched": len(candles), "error": err.Error()})
			break
		}
		if len(chunk) == 0 {
			break
		}
		candles = append(candles, chunk...)
		remaining -= limit
	}
	if len(candles) == 0 {
		return nil, fmt.Errorf("%s: %w: no candles returned for %s %s", op, ports.ErrDataFetch, symbol, timeframe)
	}

	candles = dedupCandles(candles)
	logger.Info(ctx, "Historical data fetched", map[string]interface{}{
		"symbol":    symbol,
		"timeframe": timeframe,
		"days":      days,
		"candles":   len(candles),
	})
	return candles, nil
}

// dedupCandles sorts candles by open time ascending and drops duplicates,
// keeping the first occurrence of each timestamp.
func dedupCandles(candles []*domain.Candle) []*domain.Candle {
	sort.SliceStable(candles, func(i, j int) bool {
		return candles[i].OpenTime.Before(candles[j].OpenTime)
	})
	out := candles[:0]
	var lastTime time.Time
	for i, c := range candles {
		if i > 0 && c.OpenTime.Equal(lastTime) {
			continue
		}
		out = append(out, c)
		lastTime = c.OpenTime
	}
	return out
}

// ParseTimeframe converts an exchange interval string like "1m", "4h" or
// "1d" into a duration.
func ParseTimeframe(timeframe string) (time.Duration, error) {
	if len(timeframe) < 2 {
		return 0, fmt.Errorf("invalid timeframe %q", timeframe)
	}
	n, err := strconv.Atoi(timeframe[:len(timeframe)-1])
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid timeframe %q", timeframe)
	}
	switch timeframe[len(timeframe)-1] {
	case 'm':
		return time.Duration(n) * time.Minute, nil
	case 'h':
		return time.Duration(n) * time.Hour, nil
	case 'd':
		return time.Duration(n) * 24 * time.Hour, nil
	case 'w':
		return time.Duration(n) * 7 * 24 * time.Hour, nil
	default:
		return 0, fmt.Errorf("invalid timeframe %q", timeframe)
	}
}
