package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/henrywu-dev/tophy-bot/internal/domain"
	"github.com/henrywu-dev/tophy-bot/internal/ports"
	"github.com/henrywu-dev/tophy-bot/internal/positions"
)

// Config holds the trading parameters shared by the backtest and live paths.
type Config struct {
	Symbol         string
	StrategyName   string
	InitialBalance float64
	StakeAmount    float64 // Fixed currency amount committed per entry
	StopLossPct    float64 // Signed percentage, negative (e.g. -0.05)
	TakeProfitPct  float64 // Signed percentage, positive (e.g. 0.10)
	MaxOpenTrades  int
	IDPrefix       string // Trade id prefix (e.g. "BT" for backtests)
}

// Engine is the per-bar decision core shared by the backtest runner and the
// live trading loop. For every bar it applies the same fixed policy
// ordering:
//
//  1. exit signal  - close the oldest open trade at the bar close
//  2. entry signal - open a new trade if capacity and balance allow
//  3. risk checks  - stop loss first, then take profit
//
// This ordering is a contract, not an accident: reordering it changes
// backtest results. All open/close operations route through the position
// manager, and every order goes through the broker before local state is
// mutated.
type Engine struct {
	cfg     Config
	manager *positions.Manager
	broker  Broker
	logger  ports.Logger

	balance float64
	closed  []*domain.Trade
	seq     int
}

// New creates a decision engine. Validates the trading parameters.
func New(cfg Config, broker Broker, logger ports.Logger) (*Engine, error) {
	if logger == nil {
		return nil, fmt.Errorf("%w: logger is required", ports.ErrConfigurationError)
	}
	if broker == nil {
		return nil, fmt.Errorf("%w: broker is required", ports.ErrConfigurationError)
	}
	if cfg.InitialBalance <= 0 {
		return nil, fmt.Errorf("%w: initial balance must be positive", ports.ErrConfigurationError)
	}
	if cfg.StakeAmount <= 0 {
		return nil, fmt.Errorf("%w: stake amount must be positive", ports.ErrConfigurationError)
	}
	if cfg.StopLossPct >= 0 {
		return nil, fmt.Errorf("%w: stop loss percentage must be negative", ports.ErrConfigurationError)
	}
	if cfg.TakeProfitPct <= 0 {
		return nil, fmt.Errorf("%w: take profit percentage must be positive", ports.ErrConfigurationError)
	}
	if cfg.IDPrefix == "" {
		cfg.IDPrefix = "TRADE"
	}

	return &Engine{
		cfg:     cfg,
		manager: positions.NewManager(cfg.MaxOpenTrades, logger),
		broker:  broker,
		logger:  logger,
		balance: cfg.InitialBalance,
	}, nil
}

// Step evaluates one bar of data. sigs must cover index i. Order failures
// are returned after the remaining phases have run; they never leave
// partial local state behind.
func (e *Engine) Step(ctx context.Context, sigs *domain.SignalTable, i int, bar *domain.Candle) error {
	var firstErr error

	// Phase 1: exit signal closes the oldest open trade (FIFO).
	if sigs.ExitSignal(i) {
		if trade := e.manager.FirstOpen(); trade != nil {
			if err := e.closeTrade(ctx, trade, bar.Close, bar.CloseTime, domain.CloseReasonSignal); err != nil && firstErr == nil {
				firstErr = err
			}
		}
	}

	// Phase 2: entry signal opens a new trade if capacity and balance allow.
	if side, ok := sigs.EntrySignal(i); ok && e.manager.HasCapacity() {
		if err := e.openTrade(ctx, side, bar); err != nil && firstErr == nil {
			firstErr = err
		}
	}

	// Phase 3: risk checks. Stop loss takes precedence over take profit for
	// a trade triggering both, and each closes at its own trigger price.
	for _, trade := range e.manager.CheckStopLoss(bar.Close) {
		if err := e.closeTrade(ctx, trade, trade.StopLoss, bar.CloseTime, domain.CloseReasonStopLoss); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	for _, trade := range e.manager.CheckTakeProfit(bar.Close) {
		if !trade.IsOpen() {
			continue
		}
		if err := e.closeTrade(ctx, trade, trade.TakeProfit, bar.CloseTime, domain.CloseReasonTakeProfit); err != nil && firstErr == nil {
			firstErr = err
		}
	}

	return firstErr
}

// openTrade sizes, submits and registers a new trade. Insufficient balance
// is a silent no-op by policy, not an error.
func (e *Engine) openTrade(ctx context.Context, side domain.OrderSide, bar *domain.Candle) error {
	if e.balance < e.cfg.StakeAmount {
		e.logger.Debug(ctx, "Insufficient balance for trade entry", map[string]interface{}{
			"balance": e.balance,
			"stake":   e.cfg.StakeAmount,
		})
		return nil
	}

	entryPrice := bar.Close
	quantity := e.cfg.StakeAmount / entryPrice
	stopLoss := entryPrice * (1 + e.cfg.StopLossPct)
	takeProfit := entryPrice * (1 + e.cfg.TakeProfitPct)

	e.seq++
	trade, err := domain.NewTrade(
		fmt.Sprintf("%s-%d", e.cfg.IDPrefix, e.seq),
		e.cfg.Symbol, bar.CloseTime, entryPrice, quantity, side,
		e.cfg.StrategyName, stopLoss, takeProfit,
	)
	if err != nil {
		return err
	}

	if err := e.broker.SubmitEntry(ctx, trade); err != nil {
		// No local state changes on a failed submission.
		return fmt.Errorf("%w: %w", ports.ErrOrderSubmission, err)
	}

	if !e.manager.OpenTrade(ctx, trade) {
		return nil
	}
	e.balance -= e.cfg.StakeAmount
	return nil
}

// closeTrade submits the exit order then updates manager, ledger and
// balance. On submission failure the trade stays open and untouched.
func (e *Engine) closeTrade(ctx context.Context, trade *domain.Trade, exitPrice float64, exitTime time.Time, reason domain.CloseReason) error {
	if err := e.broker.SubmitExit(ctx, trade, exitPrice); err != nil {
		return fmt.Errorf("%w: %w", ports.ErrOrderSubmission, err)
	}

	if !e.manager.CloseTrade(ctx, trade, exitPrice, exitTime, reason) {
		return nil
	}
	e.closed = append(e.closed, trade)
	e.balance += trade.Quantity * exitPrice
	return nil
}

// CloseAll force-closes every open trade at the given price. Best-effort
// drain: a failure on one trade is logged and does not block closing the
// rest. Returns the number of trades closed.
func (e *Engine) CloseAll(ctx context.Context, price float64, exitTime time.Time, reason domain.CloseReason) int {
	closed := 0
	for _, trade := range e.manager.OpenTrades("") {
		if err := e.closeTrade(ctx, trade, price, exitTime, reason); err != nil {
			e.logger.Error(ctx, err, "Failed to force-close trade, leaving it open", map[string]interface{}{
				"tradeID": trade.ID,
				"reason":  reason,
			})
			continue
		}
		closed++
	}
	return closed
}

// Balance returns the cash currently available for new stakes.
func (e *Engine) Balance() float64 {
	return e.balance
}

// ClosedTrades returns the closed-trade ledger in close order.
func (e *Engine) ClosedTrades() []*domain.Trade {
	return e.closed
}

// Manager exposes the position manager for read-only queries.
func (e *Engine) Manager() *positions.Manager {
	return e.manager
}

// Portfolio derives a snapshot of the account from current engine state.
func (e *Engine) Portfolio() domain.Portfolio {
	totalPnL := 0.0
	for _, t := range e.closed {
		totalPnL += t.PnL
	}
	return domain.Portfolio{
		Balance:         e.balance,
		OpenTrades:      e.manager.Count(),
		ClosedTrades:    len(e.closed),
		TotalPnL:        totalPnL,
		TotalPnLPercent: totalPnL / e.cfg.InitialBalance * 100,
	}
}
