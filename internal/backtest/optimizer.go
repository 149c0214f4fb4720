package backtest

import (
	"context"
	"sort"
	"sync"

	"github.com/henrywu-dev/tophy-bot/internal/domain"
	"github.com/henrywu-dev/tophy-bot/internal/ports"
)

// ParamRange defines an inclusive sweep range for one risk parameter.
type ParamRange struct {
	Min  float64
	Max  float64
	Step float64
}

// Values expands the range into concrete values. A zero or negative step
// yields just Min.
func (r ParamRange) Values() []float64 {
	if r.Step <= 0 {
		return []float64{r.Min}
	}
	var out []float64
	// Half-step epsilon so Max itself survives float accumulation.
	for v := r.Min; v <= r.Max+r.Step/2; v += r.Step {
		out = append(out, v)
	}
	return out
}

// OptimizerConfig holds the parameter grid and the base backtest settings.
type OptimizerConfig struct {
	StopLossPct   ParamRange // negative fractions
	TakeProfitPct ParamRange // positive fractions
	Base          Config
	ScoreFunc     func(*Results, *PerformanceMetrics) float64
}

// OptimizationResult is the outcome of one grid point.
type OptimizationResult struct {
	StopLossPct   float64
	TakeProfitPct float64
	Results       *Results
	Metrics       *PerformanceMetrics
	Score         float64
}

// Optimizer sweeps stop-loss/take-profit combinations, running an isolated
// backtest per combination.
type Optimizer struct {
	cfg    OptimizerConfig
	logger ports.Logger
}

// NewOptimizer creates an optimizer. A nil ScoreFunc falls back to
// DefaultScore.
func NewOptimizer(cfg OptimizerConfig, logger ports.Logger) *Optimizer {
	if cfg.ScoreFunc == nil {
		cfg.ScoreFunc = DefaultScore
	}
	return &Optimizer{cfg: cfg, logger: logger}
}

// Optimize runs one backtest per grid point concurrently and returns the
// results sorted by score, best first. Grid points whose run fails are
// skipped.
func (o *Optimizer) Optimize(ctx context.Context, strategy ports.Strategy, candles []*domain.Candle, symbol string) ([]OptimizationResult, error) {
	const op = "backtest.Optimize"

	slValues := o.cfg.StopLossPct.Values()
	tpValues := o.cfg.TakeProfitPct.Values()

	resultChan := make(chan OptimizationResult, len(slValues)*len(tpValues))
	var wg sync.WaitGroup

	for _, sl := range slValues {
		for _, tp := range tpValues {
			wg.Add(1)
			go func(sl, tp float64) {
				defer wg.Done()

				cfg := o.cfg.Base
				cfg.StopLossPct = sl
				cfg.TakeProfitPct = tp

				runner, err := NewRunner(strategy, o.logger, cfg)
				if err != nil {
					o.logger.Warn(ctx, "Skipping grid point", map[string]interface{}{
						"op": op, "stopLossPct": sl, "takeProfitPct": tp, "error": err.Error(),
					})
					return
				}
				res, err := runner.Run(ctx, candles, symbol)
				if err != nil {
					o.logger.Warn(ctx, "Grid point run failed", map[string]interface{}{
						"op": op, "stopLossPct": sl, "takeProfitPct": tp, "error": err.Error(),
					})
					return
				}
				metrics := AnalyzePerformance(res.Trades, cfg.InitialBalance)
				resultChan <- OptimizationResult{
					StopLossPct:   sl,
					TakeProfitPct: tp,
					Results:       res,
					Metrics:       metrics,
					Score:         o.cfg.ScoreFunc(res, metrics),
				}
			}(sl, tp)
		}
	}

	go func() {
		wg.Wait()
		close(resultChan)
	}()

	var results []OptimizationResult
	for r := range resultChan {
		results = append(results, r)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	sort.Slice(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	return results, nil
}

// DefaultScore blends win rate, profit factor, drawdown and return into a
// single ranking value.
func DefaultScore(res *Results, metrics *PerformanceMetrics) float64 {
	score := 0.0
	score += res.WinRate * 0.3
	score += res.ProfitFactor * 0.2
	score += (1 - metrics.MaxDrawdown) * 0.2
	score += metrics.ReturnOnInvestment * 0.2
	score += metrics.RiskRewardRatio * 0.1
	return score
}
