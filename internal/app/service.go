package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/henrywu-dev/tophy-bot/internal/domain"
	"github.com/henrywu-dev/tophy-bot/internal/engine"
	"github.com/henrywu-dev/tophy-bot/internal/ports"
)

// Config holds the live-loop settings for the trading service.
type Config struct {
	Symbol       string
	Timeframe    string
	PollInterval time.Duration
	LookbackBars int
	DryRun       bool
}

// TradingService runs the live trading loop: it polls the exchange for
// fresh candles on a fixed interval, evaluates the strategy on the latest
// bar and lets the decision engine act on the result.
type TradingService struct {
	cfg      Config
	logger   ports.Logger
	exchange ports.ExchangeClient
	strategy ports.Strategy
	eng      *engine.Engine

	lastBarTime time.Time
}

// NewTradingService creates the live trading service. In dry-run mode
// trades are simulated internally; otherwise every entry and exit goes to
// the exchange before state changes.
func NewTradingService(
	cfg Config,
	engCfg engine.Config,
	logger ports.Logger,
	exchange ports.ExchangeClient,
	strat ports.Strategy,
) (*TradingService, error) {
	if logger == nil || exchange == nil || strat == nil {
		return nil, fmt.Errorf("missing required dependencies for TradingService")
	}
	if cfg.Symbol == "" {
		return nil, fmt.Errorf("symbol must be set")
	}
	if cfg.PollInterval <= 0 {
		return nil, fmt.Errorf("poll interval must be positive")
	}
	if cfg.LookbackBars < strat.RequiredBars() {
		return nil, fmt.Errorf("lookback bars (%d) below strategy requirement (%d)", cfg.LookbackBars, strat.RequiredBars())
	}

	var broker engine.Broker = engine.PaperBroker{}
	if !cfg.DryRun {
		b, err := NewExchangeBroker(exchange, logger)
		if err != nil {
			return nil, err
		}
		broker = b
	}

	eng, err := engine.New(engCfg, broker, logger)
	if err != nil {
		return nil, err
	}

	return &TradingService{
		cfg:      cfg,
		logger:   logger,
		exchange: exchange,
		strategy: strat,
		eng:      eng,
	}, nil
}

// Start begins the trading loop and blocks until the context is cancelled
// or a shutdown signal arrives. Any open trade is force-closed at the last
// known price on the way out.
func (s *TradingService) Start(ctx context.Context) error {
	s.logger.Info(ctx, "Starting trading service", map[string]interface{}{
		"symbol":       s.cfg.Symbol,
		"timeframe":    s.cfg.Timeframe,
		"pollInterval": s.cfg.PollInterval.String(),
		"dryRun":       s.cfg.DryRun,
		"strategy":     s.strategy.Name(),
	})

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case sig := <-sigCh:
			s.logger.Info(ctx, "Received shutdown signal", map[string]interface{}{"signal": sig.String()})
			cancel()
		case <-ctx.Done():
		}
	}()

	if err := s.startupChecks(ctx); err != nil {
		return err
	}

	ticker := time.NewTicker(s.cfg.PollInterval)
	defer ticker.Stop()

	// First cycle runs immediately; the ticker paces the rest.
	s.runCycle(ctx)

	for {
		select {
		case <-ctx.Done():
			s.shutdown()
			return nil
		case <-ticker.C:
			s.runCycle(ctx)
		}
	}
}

// startupChecks verifies exchange connectivity before trading begins.
func (s *TradingService) startupChecks(ctx context.Context) error {
	if err := s.exchange.Ping(ctx); err != nil {
		s.logger.Error(ctx, err, "Exchange ping failed")
		return fmt.Errorf("exchange unreachable: %w", err)
	}

	serverTime, err := s.exchange.GetServerTime(ctx)
	if err != nil {
		s.logger.Error(ctx, err, "Failed to fetch exchange server time")
		return fmt.Errorf("failed to fetch server time: %w", err)
	}
	drift := time.Since(serverTime)
	s.logger.Info(ctx, "Exchange reachable", map[string]interface{}{
		"serverTime": serverTime.UTC().Format(time.RFC3339),
		"clockDrift": drift.String(),
	})

	if !s.cfg.DryRun {
		balances, err := s.exchange.GetBalance(ctx)
		if err != nil {
			s.logger.Error(ctx, err, "Failed to fetch account balance")
			return fmt.Errorf("failed to fetch account balance: %w", err)
		}
		s.logger.Info(ctx, "Account balance loaded", map[string]interface{}{"assets": len(balances)})
	}
	return nil
}

// runCycle performs one poll-evaluate-act iteration. Failures are logged
// and the cycle is skipped; the loop keeps running.
func (s *TradingService) runCycle(ctx context.Context) {
	op := "runCycle"

	candles, err := s.exchange.GetOHLCV(ctx, s.cfg.Symbol, s.cfg.Timeframe, s.cfg.LookbackBars)
	if err != nil {
		s.logger.Error(ctx, err, op+": failed to fetch candles, skipping cycle")
		return
	}
	if len(candles) < s.strategy.RequiredBars() {
		s.logger.Warn(ctx, op+": not enough candles for strategy, skipping cycle", map[string]interface{}{
			"have": len(candles),
			"need": s.strategy.RequiredBars(),
		})
		return
	}

	last := candles[len(candles)-1]
	if last.OpenTime.After(s.lastBarTime) {
		s.lastBarTime = last.OpenTime
		s.logger.Debug(ctx, op+": new bar", map[string]interface{}{
			"openTime": last.OpenTime.UTC().Format(time.RFC3339),
			"close":    last.Close,
		})
	}

	sigs, err := s.strategy.Analyze(ctx, candles)
	if err != nil {
		s.logger.Error(ctx, err, op+": strategy analysis failed, skipping cycle")
		return
	}

	if err := s.eng.Step(ctx, sigs, len(candles)-1, last); err != nil {
		s.logger.Error(ctx, err, op+": engine step failed")
	}

	p := s.eng.Portfolio()
	s.logger.Debug(ctx, op+": cycle complete", map[string]interface{}{
		"balance":      p.Balance,
		"openTrades":   p.OpenTrades,
		"closedTrades": p.ClosedTrades,
		"totalPnL":     p.TotalPnL,
	})
}

// shutdown force-closes any remaining open trade at the latest market
// price. A stale ticker lookup falls back to the last seen bar.
func (s *TradingService) shutdown() {
	// Fresh context: the loop context is already cancelled at this point.
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	s.logger.Info(ctx, "Shutting down trading service")

	if s.eng.Manager().Count() > 0 {
		price := 0.0
		ticker, err := s.exchange.GetTicker(ctx, s.cfg.Symbol)
		if err != nil {
			s.logger.Warn(ctx, "Could not fetch ticker for shutdown close", map[string]interface{}{"error": err.Error()})
		} else {
			price = ticker.Close
		}
		if price > 0 {
			closed := s.eng.CloseAll(ctx, price, time.Now().UTC(), domain.CloseReasonShutdown)
			s.logger.Info(ctx, "Force-closed open trades on shutdown", map[string]interface{}{"count": closed, "price": price})
		} else {
			s.logger.Warn(ctx, "Leaving trades open: no valid shutdown price", map[string]interface{}{"openTrades": s.eng.Manager().Count()})
		}
	}

	p := s.eng.Portfolio()
	s.logger.Info(ctx, "Final portfolio", map[string]interface{}{
		"balance":         p.Balance,
		"closedTrades":    p.ClosedTrades,
		"totalPnL":        p.TotalPnL,
		"totalPnLPercent": p.TotalPnLPercent,
	})
}

// Engine exposes the underlying decision engine, mainly for inspection in
// tests and status commands.
func (s *TradingService) Engine() *engine.Engine {
	return s.eng
}
