package positions

import (
	"context"
	"time"

	"github.com/henrywu-dev/tophy-bot/internal/domain"
	"github.com/henrywu-dev/tophy-bot/internal/ports"
)

// Manager owns the set of currently open trades, bounded by maxOpenTrades.
// It is the sole mutator of open-trade membership: both the backtest engine
// and the live loop route every open/close through it. Balance accounting
// is the caller's responsibility.
type Manager struct {
	maxOpenTrades int
	openTrades    []*domain.Trade
	logger        ports.Logger
}

// NewManager creates a position manager with the given capacity. A
// non-positive cap falls back to 1.
func NewManager(maxOpenTrades int, logger ports.Logger) *Manager {
	if maxOpenTrades <= 0 {
		maxOpenTrades = 1
	}
	return &Manager{
		maxOpenTrades: maxOpenTrades,
		openTrades:    make([]*domain.Trade, 0, maxOpenTrades),
		logger:        logger,
	}
}

// MaxOpenTrades returns the configured capacity.
func (m *Manager) MaxOpenTrades() int {
	return m.maxOpenTrades
}

// Count returns the number of currently open trades.
func (m *Manager) Count() int {
	return len(m.openTrades)
}

// HasCapacity reports whether another trade can be opened.
func (m *Manager) HasCapacity() bool {
	return len(m.openTrades) < m.maxOpenTrades
}

// OpenTrade adds a trade to the open set. Returns false and leaves state
// unchanged if the cap is already reached.
func (m *Manager) OpenTrade(ctx context.Context, trade *domain.Trade) bool {
	if len(m.openTrades) >= m.maxOpenTrades {
		m.logger.Warn(ctx, "Maximum open trades reached", map[string]interface{}{
			"maxOpenTrades": m.maxOpenTrades,
			"tradeID":       trade.ID,
		})
		return false
	}

	m.openTrades = append(m.openTrades, trade)
	m.logger.Info(ctx, "Opened trade", map[string]interface{}{
		"tradeID":    trade.ID,
		"symbol":     trade.Symbol,
		"side":       trade.Side,
		"entryPrice": trade.EntryPrice,
		"quantity":   trade.Quantity,
	})
	return true
}

// CloseTrade closes a trade and removes it from the open set. Returns false
// without error if the trade is not a member of the open set. The caller is
// responsible for appending the trade to its closed ledger and adjusting
// balance.
func (m *Manager) CloseTrade(ctx context.Context, trade *domain.Trade, exitPrice float64, exitTime time.Time, reason domain.CloseReason) bool {
	idx := -1
	for i, t := range m.openTrades {
		if t == trade {
			idx = i
			break
		}
	}
	if idx == -1 {
		m.logger.Warn(ctx, "Trade not found in open set", map[string]interface{}{"tradeID": trade.ID})
		return false
	}

	if err := trade.Close(exitPrice, exitTime); err != nil {
		m.logger.Error(ctx, err, "Failed to close trade", map[string]interface{}{"tradeID": trade.ID})
		return false
	}
	trade.CloseReason = reason

	m.openTrades = append(m.openTrades[:idx], m.openTrades[idx+1:]...)
	m.logger.Info(ctx, "Closed trade", map[string]interface{}{
		"tradeID":    trade.ID,
		"symbol":     trade.Symbol,
		"exitPrice":  exitPrice,
		"reason":     reason,
		"pnl":        trade.PnL,
		"pnlPercent": trade.PnLPercent,
	})
	return true
}

// OpenTrades returns the open trades in FIFO open order, optionally
// filtered by symbol. An empty symbol returns all. The returned slice
// holds live references: callers must not assume the snapshot outlives
// later manager mutation.
func (m *Manager) OpenTrades(symbol string) []*domain.Trade {
	if symbol == "" {
		out := make([]*domain.Trade, len(m.openTrades))
		copy(out, m.openTrades)
		return out
	}
	out := make([]*domain.Trade, 0, len(m.openTrades))
	for _, t := range m.openTrades {
		if t.Symbol == symbol {
			out = append(out, t)
		}
	}
	return out
}

// FirstOpen returns the oldest-opened trade, or nil if none are open.
// On a generic exit signal the oldest trade is closed first.
func (m *Manager) FirstOpen() *domain.Trade {
	if len(m.openTrades) == 0 {
		return nil
	}
	return m.openTrades[0]
}

// CheckStopLoss returns every open trade whose stop loss is set and
// triggered by the current price. The boundary is inclusive. Pure query:
// no trade is closed.
func (m *Manager) CheckStopLoss(currentPrice float64) []*domain.Trade {
	var triggered []*domain.Trade
	for _, t := range m.openTrades {
		if t.StopLoss != 0 && currentPrice <= t.StopLoss {
			triggered = append(triggered, t)
		}
	}
	return triggered
}

// CheckTakeProfit returns every open trade whose take profit is set and
// triggered by the current price. The boundary is inclusive. Pure query.
func (m *Manager) CheckTakeProfit(currentPrice float64) []*domain.Trade {
	var triggered []*domain.Trade
	for _, t := range m.openTrades {
		if t.TakeProfit != 0 && currentPrice >= t.TakeProfit {
			triggered = append(triggered, t)
		}
	}
	return triggered
}
