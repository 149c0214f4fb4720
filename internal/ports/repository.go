package ports

import (
	"context"
	"time"

	"github.com/henrywu-dev/tophy-bot/internal/domain"
)

// CandleRepository defines the interface for a local cache of historical
// candles, so backtests can run without hitting the exchange every time.
type CandleRepository interface {
	// SaveCandles upserts a batch of candles. Candles with a duplicate
	// (symbol, timeframe, open_time) replace the stored row.
	SaveCandles(ctx context.Context, candles []*domain.Candle) error
	// FindBySymbol retrieves cached candles for a symbol and timeframe,
	// ordered by open time ascending. A limit of 0 means no limit.
	FindBySymbol(ctx context.Context, symbol, timeframe string, limit int) ([]*domain.Candle, error)
	// FindRange retrieves cached candles whose open time falls in
	// [start, end), ordered by open time ascending.
	FindRange(ctx context.Context, symbol, timeframe string, start, end time.Time) ([]*domain.Candle, error)
	// CountBySymbol counts cached candles for a symbol and timeframe.
	CountBySymbol(ctx context.Context, symbol, timeframe string) (int, error)
}
