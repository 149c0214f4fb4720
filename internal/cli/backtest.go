package cli

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/henrywu-dev/tophy-bot/internal/backtest"
)

func newBacktestCmd(app *App) *cobra.Command {
	var days int
	var showMonthly bool
	var csvPath string

	cmd := &cobra.Command{
		Use:   "backtest",
		Short: "Run the strategy against historical data",
		Long: `Backtest simulates the configured strategy over historical candles and
reports trade statistics, PnL and risk metrics.

Candles come from the local store or the exchange; --csv replaces both
with a previously exported candle file, for fully offline runs.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg := app.Config
			if days <= 0 {
				days = cfg.Backtest.Days
			}

			strat, err := buildStrategy(app)
			if err != nil {
				return err
			}

			candles, err := resolveCandles(ctx, app, days, csvPath)
			if err != nil {
				return err
			}

			runner, err := backtest.NewRunner(strat, app.Logger, backtest.Config{
				InitialBalance: cfg.Risk.InitialBalance,
				StakeAmount:    cfg.Risk.StakeAmount,
				StopLossPct:    cfg.Risk.StopLossPct,
				TakeProfitPct:  cfg.Risk.TakeProfitPct,
			})
			if err != nil {
				return err
			}

			res, err := runner.Run(ctx, candles, cfg.Trading.Symbol)
			if err != nil {
				return err
			}
			metrics := backtest.AnalyzePerformance(res.Trades, cfg.Risk.InitialBalance)

			printResults(cfg.Trading.Symbol, strat.Name(), days, res, metrics)
			if showMonthly {
				printMonthlyReturns(metrics)
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&days, "days", 0, "days of history to simulate (default from config)")
	cmd.Flags().BoolVar(&showMonthly, "monthly", false, "show monthly PnL breakdown")
	cmd.Flags().StringVar(&csvPath, "csv", "", "simulate over candles from a CSV export instead of the store")
	return cmd
}

func printResults(symbol, strategy string, days int, res *backtest.Results, m *backtest.PerformanceMetrics) {
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintf(w, "Backtest\t%s %s (%d days)\n", symbol, strategy, days)
	fmt.Fprintf(w, "Total trades\t%d\n", res.TotalTrades)
	fmt.Fprintf(w, "Winning / losing\t%d / %d\n", res.WinningTrades, res.LosingTrades)
	fmt.Fprintf(w, "Win rate\t%.2f%%\n", res.WinRate*100)
	fmt.Fprintf(w, "Total PnL\t%.2f (%.2f%%)\n", res.TotalPnL, res.TotalPnLPercent)
	fmt.Fprintf(w, "Profit factor\t%.2f\n", res.ProfitFactor)
	fmt.Fprintf(w, "Avg trade duration\t%s\n", (time.Duration(res.AvgTradeDuration) * time.Second).String())
	fmt.Fprintf(w, "Final balance\t%.2f\n", res.FinalBalance)
	fmt.Fprintf(w, "Max drawdown\t%.2f%%\n", m.MaxDrawdown*100)
	fmt.Fprintf(w, "Expectancy\t%.2f\n", m.Expectancy)
	fmt.Fprintf(w, "Max consecutive wins / losses\t%d / %d\n", m.MaxConsecutiveWins, m.MaxConsecutiveLosses)
	w.Flush()
}

func printMonthlyReturns(m *backtest.PerformanceMetrics) {
	returns := m.SortedMonthlyReturns()
	if len(returns) == 0 {
		return
	}
	fmt.Println()
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "Month\tPnL")
	for _, r := range returns {
		fmt.Fprintf(w, "%s\t%.2f\n", r.Month.Format("2006-01"), r.Return)
	}
	w.Flush()
}
