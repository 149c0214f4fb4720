package ports

import (
	"context"

	"github.com/henrywu-dev/tophy-bot/internal/domain"
)

// Strategy defines the signal contract the trading engine consumes. A
// strategy computes its indicator and signal columns in one batch pass over
// a candle series; the engine then reads the returned table bar by bar.
//
// Implementations must use trailing windows only: the signals for bar i may
// not depend on any bar after i.
type Strategy interface {
	// Name returns the name of the strategy.
	Name() string

	// RequiredBars returns the minimum number of candles needed for the
	// strategy's indicator calculations.
	RequiredBars() int

	// Analyze computes indicators and entry/exit signals over the full
	// series and returns them as an immutable per-bar table.
	Analyze(ctx context.Context, candles []*domain.Candle) (*domain.SignalTable, error)
}
