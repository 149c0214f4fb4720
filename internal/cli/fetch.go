package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/henrywu-dev/tophy-bot/internal/adapters/sqlite"
	"github.com/henrywu-dev/tophy-bot/internal/backtest"
	"github.com/henrywu-dev/tophy-bot/internal/utils"
)

func newFetchCmd(app *App) *cobra.Command {
	var days int
	var csvPath string

	cmd := &cobra.Command{
		Use:   "fetch",
		Short: "Download historical candles into the local store",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg := app.Config
			if days <= 0 {
				days = cfg.Backtest.Days
			}

			client, err := buildExchange(app)
			if err != nil {
				return err
			}
			candles, err := backtest.FetchHistoricalData(ctx, client, app.Logger, cfg.Trading.Symbol, cfg.Trading.Timeframe, days)
			if err != nil {
				return err
			}

			repo, err := sqlite.NewRepository(sqlite.Config{
				DBPath: cfg.Database.Path,
				Logger: app.Logger,
			})
			if err != nil {
				return err
			}
			defer repo.Close()

			if err := repo.SaveCandles(ctx, candles); err != nil {
				return err
			}
			fmt.Printf("Stored %d candles for %s %s\n", len(candles), cfg.Trading.Symbol, cfg.Trading.Timeframe)

			if csvPath != "" {
				// Export the store's view of the fetched window, so the
				// CSV also picks up bars cached by earlier runs.
				stored, err := repo.FindRange(ctx, cfg.Trading.Symbol, cfg.Trading.Timeframe,
					candles[0].OpenTime, candles[len(candles)-1].CloseTime)
				if err != nil {
					return err
				}
				if err := utils.WriteCandlesToCSV(stored, csvPath); err != nil {
					return fmt.Errorf("failed to write CSV: %w", err)
				}
				fmt.Printf("Wrote %d candles to %s\n", len(stored), csvPath)
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&days, "days", 0, "days of history to fetch (default from config)")
	cmd.Flags().StringVar(&csvPath, "csv", "", "also export the candles to a CSV file")
	return cmd
}
