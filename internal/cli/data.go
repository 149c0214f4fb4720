package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/henrywu-dev/tophy-bot/internal/adapters/sqlite"
	"github.com/henrywu-dev/tophy-bot/internal/backtest"
	"github.com/henrywu-dev/tophy-bot/internal/domain"
	"github.com/henrywu-dev/tophy-bot/internal/ports"
	"github.com/henrywu-dev/tophy-bot/internal/utils"
)

// fetchFunc supplies candles when the local store cannot.
type fetchFunc func(ctx context.Context) ([]*domain.Candle, error)

// neededBars converts a day span into a bar count for the timeframe. A
// span shorter than one bar still needs that bar.
func neededBars(days int, timeframe time.Duration) int {
	n := int(time.Duration(days) * 24 * time.Hour / timeframe)
	if n < 1 {
		n = 1
	}
	return n
}

// resolveCandles returns the candle series for a simulation: from a CSV
// export when csvPath is set, otherwise `days` worth of candles via the
// store and the exchange.
func resolveCandles(ctx context.Context, app *App, days int, csvPath string) ([]*domain.Candle, error) {
	if csvPath == "" {
		return loadCandles(ctx, app, days)
	}

	candles, err := utils.ReadCandlesFromCSV(csvPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read candles from %s: %w", csvPath, err)
	}
	if len(candles) == 0 {
		return nil, fmt.Errorf("no candles in %s", csvPath)
	}
	app.Logger.Info(ctx, "Loaded candles from CSV", map[string]interface{}{
		"file":    csvPath,
		"candles": len(candles),
	})
	return candles, nil
}

// loadCandles returns `days` worth of candles for the configured
// symbol/timeframe, preferring the local candle store and falling back to
// the exchange. Freshly fetched candles are cached for the next run.
func loadCandles(ctx context.Context, app *App, days int) ([]*domain.Candle, error) {
	cfg := app.Config
	symbol := cfg.Trading.Symbol
	timeframe := cfg.Trading.Timeframe

	tfDur, err := backtest.ParseTimeframe(timeframe)
	if err != nil {
		return nil, err
	}
	needed := neededBars(days, tfDur)

	fetch := func(ctx context.Context) ([]*domain.Candle, error) {
		return fetchFromExchange(ctx, app, symbol, timeframe, days)
	}

	repo, err := sqlite.NewRepository(sqlite.Config{
		DBPath: cfg.Database.Path,
		Logger: app.Logger,
	})
	if err != nil {
		// A broken cache shouldn't block a backtest; go straight to the
		// exchange.
		app.Logger.Warn(ctx, "Candle store unavailable, fetching from exchange", map[string]interface{}{"error": err.Error()})
		return fetch(ctx)
	}
	defer repo.Close()

	return cachedCandles(ctx, app.Logger, repo, symbol, timeframe, needed, fetch)
}

// cachedCandles serves from the candle store when it holds enough bars,
// otherwise fetches fresh candles and caches them for the next run.
func cachedCandles(ctx context.Context, log ports.Logger, repo ports.CandleRepository, symbol, timeframe string, needed int, fetch fetchFunc) ([]*domain.Candle, error) {
	count, err := repo.CountBySymbol(ctx, symbol, timeframe)
	if err == nil && count >= needed {
		cached, err := repo.FindBySymbol(ctx, symbol, timeframe, needed)
		if err == nil && len(cached) >= needed {
			log.Info(ctx, "Using cached candles", map[string]interface{}{
				"symbol":    symbol,
				"timeframe": timeframe,
				"candles":   len(cached),
			})
			return cached, nil
		}
	}

	candles, err := fetch(ctx)
	if err != nil {
		return nil, err
	}
	if saveErr := repo.SaveCandles(ctx, candles); saveErr != nil {
		log.Warn(ctx, "Failed to cache fetched candles", map[string]interface{}{"error": saveErr.Error()})
	}
	return candles, nil
}

func fetchFromExchange(ctx context.Context, app *App, symbol, timeframe string, days int) ([]*domain.Candle, error) {
	client, err := buildExchange(app)
	if err != nil {
		return nil, err
	}
	return backtest.FetchHistoricalData(ctx, client, app.Logger, symbol, timeframe, days)
}
