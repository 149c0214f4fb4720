package cli

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/henrywu-dev/tophy-bot/internal/backtest"
)

func newOptimizeCmd(app *App) *cobra.Command {
	var days, top int
	var slMin, slMax, slStep float64
	var tpMin, tpMax, tpStep float64

	cmd := &cobra.Command{
		Use:   "optimize",
		Short: "Sweep stop-loss/take-profit combinations over historical data",
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
			candles, err := loadCandles(ctx, app, days)
			if err != nil {
				return err
			}

			opt := backtest.NewOptimizer(backtest.OptimizerConfig{
				StopLossPct:   backtest.ParamRange{Min: slMin, Max: slMax, Step: slStep},
				TakeProfitPct: backtest.ParamRange{Min: tpMin, Max: tpMax, Step: tpStep},
				Base: backtest.Config{
					InitialBalance: cfg.Risk.InitialBalance,
					StakeAmount:    cfg.Risk.StakeAmount,
				},
			}, app.Logger)

			results, err := opt.Optimize(ctx, strat, candles, cfg.Trading.Symbol)
			if err != nil {
				return err
			}
			if len(results) == 0 {
				fmt.Println("No grid points produced results.")
				return nil
			}
			if top > len(results) {
				top = len(results)
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "Score\tStopLoss\tTakeProfit\tTrades\tWinRate\tPnL\tMaxDD")
			for _, r := range results[:top] {
				fmt.Fprintf(w, "%.3f\t%.3f\t%.3f\t%d\t%.2f%%\t%.2f\t%.2f%%\n",
					r.Score, r.StopLossPct, r.TakeProfitPct,
					r.Results.TotalTrades, r.Results.WinRate*100,
					r.Results.TotalPnL, r.Metrics.MaxDrawdown*100)
			}
			return w.Flush()
		},
	}

	cmd.Flags().IntVar(&days, "days", 0, "days of history to simulate (default from config)")
	cmd.Flags().IntVar(&top, "top", 10, "number of best combinations to print")
	cmd.Flags().Float64Var(&slMin, "sl-min", -0.05, "lowest stop-loss fraction (most negative)")
	cmd.Flags().Float64Var(&slMax, "sl-max", -0.01, "highest stop-loss fraction")
	cmd.Flags().Float64Var(&slStep, "sl-step", 0.01, "stop-loss step")
	cmd.Flags().Float64Var(&tpMin, "tp-min", 0.01, "lowest take-profit fraction")
	cmd.Flags().Float64Var(&tpMax, "tp-max", 0.06, "highest take-profit fraction")
	cmd.Flags().Float64Var(&tpStep, "tp-step", 0.01, "take-profit step")
	return cmd
}
