package engine

import (
	"context"

	"github.com/henrywu-dev/tophy-bot/internal/domain"
)

// Broker abstracts order execution so the same decision engine drives both
// simulated and live trading. Implementations must be side-effect free on
// failure: if a submission returns an error the engine leaves all local
// state untouched.
type Broker interface {
	// SubmitEntry places the order that opens the trade.
	SubmitEntry(ctx context.Context, trade *domain.Trade) error
	// SubmitExit places the order that closes the trade at the given price.
	SubmitExit(ctx context.Context, trade *domain.Trade, price float64) error
}

// PaperBroker accepts every order without touching an exchange. Used by
// backtests and dry-run trading.
type PaperBroker struct{}

func (PaperBroker) SubmitEntry(ctx context.Context, trade *domain.Trade) error {
	return nil
}

func (PaperBroker) SubmitExit(ctx context.Context, trade *domain.Trade, price float64) error {
	return nil
}
