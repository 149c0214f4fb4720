package domain

import (
	"errors"
	"fmt"
	"time"
)

// Entity-level errors. Callers match with errors.Is.
var (
	// ErrInvalidTrade indicates bad construction parameters.
	ErrInvalidTrade = errors.New("invalid trade parameters")
	// ErrInvalidState indicates an illegal lifecycle transition,
	// e.g. closing an already closed trade.
	ErrInvalidState = errors.New("invalid trade state transition")
)

// Trade represents a single position lifecycle record.
type Trade struct {
	ID       string    // Unique identifier for the trade
	Symbol   string    // Trading symbol (e.g., "BTC/USDT")
	Strategy string    // Name of the strategy that opened the trade
	Side     OrderSide // BUY (long) or SELL (short)

	EntryTime  time.Time // Timestamp when the trade was entered
	EntryPrice float64   // Price at which the trade was entered
	Quantity   float64   // Size of the trade

	ExitTime  time.Time // Timestamp when the trade was exited (zero value while open)
	ExitPrice float64   // Price at which the trade was exited (0 while open)

	// Absolute risk price levels, fixed at entry and never recalculated.
	// Zero means not set.
	StopLoss   float64
	TakeProfit float64

	State       TradeState
	CloseReason CloseReason

	// PnL fields are meaningful only once State == StateClosed.
	PnL        float64 // Realized profit/loss in quote currency units
	PnLPercent float64 // Realized profit/loss as a percentage of entry price
}

// NewTrade constructs an open trade. EntryPrice and quantity must be
// strictly positive.
func NewTrade(id, symbol string, entryTime time.Time, entryPrice, quantity float64, side OrderSide, strategy string, stopLoss, takeProfit float64) (*Trade, error) {
	if entryPrice <= 0 {
		return nil, fmt.Errorf("%w: entry price must be positive, got %f", ErrInvalidTrade, entryPrice)
	}
	if quantity <= 0 {
		return nil, fmt.Errorf("%w: quantity must be positive, got %f", ErrInvalidTrade, quantity)
	}

	return &Trade{
		ID:         id,
		Symbol:     symbol,
		Strategy:   strategy,
		Side:       side,
		EntryTime:  entryTime,
		EntryPrice: entryPrice,
		Quantity:   quantity,
		StopLoss:   stopLoss,
		TakeProfit: takeProfit,
		State:      StateOpen,
	}, nil
}

// IsOpen reports whether the trade is still open.
func (t *Trade) IsOpen() bool {
	return t.State == StateOpen
}

// Close transitions the trade to StateClosed and computes realized PnL.
// A trade can be closed exactly once; a second call fails with
// ErrInvalidState and leaves the trade unchanged.
func (t *Trade) Close(exitPrice float64, exitTime time.Time) error {
	if t.State != StateOpen {
		return fmt.Errorf("%w: cannot close trade %s in state %s", ErrInvalidState, t.ID, t.State)
	}

	t.ExitPrice = exitPrice
	t.ExitTime = exitTime
	t.State = StateClosed

	switch t.Side {
	case Buy:
		t.PnL = (t.ExitPrice - t.EntryPrice) * t.Quantity
		t.PnLPercent = (t.ExitPrice - t.EntryPrice) / t.EntryPrice * 100
	case Sell:
		t.PnL = (t.EntryPrice - t.ExitPrice) * t.Quantity
		t.PnLPercent = (t.EntryPrice - t.ExitPrice) / t.EntryPrice * 100
	}
	return nil
}

// Duration returns how long the trade was held. Zero for open trades.
func (t *Trade) Duration() time.Duration {
	if t.ExitTime.IsZero() {
		return 0
	}
	return t.ExitTime.Sub(t.EntryTime)
}
