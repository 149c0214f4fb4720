package cli

import (
	"github.com/spf13/cobra"

	"github.com/henrywu-dev/tophy-bot/internal/app"
	"github.com/henrywu-dev/tophy-bot/internal/engine"
)

func newTradeCmd(cliApp *App) *cobra.Command {
	var live bool

	cmd := &cobra.Command{
		Use:   "trade",
		Short: "Run the live trading loop",
		Long: `Trade polls the exchange for fresh candles and acts on the strategy's
signals. By default orders are simulated (dry run); pass --live to submit
real orders with the configured API keys.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := cliApp.Config
			dryRun := cfg.Trading.DryRun
			if live {
				dryRun = false
			}

			strat, err := buildStrategy(cliApp)
			if err != nil {
				return err
			}
			exchange, err := buildExchange(cliApp)
			if err != nil {
				return err
			}

			svc, err := app.NewTradingService(
				app.Config{
					Symbol:       cfg.Trading.Symbol,
					Timeframe:    cfg.Trading.Timeframe,
					PollInterval: cfg.Trading.PollInterval(),
					LookbackBars: cfg.Trading.LookbackBars,
					DryRun:       dryRun,
				},
				engine.Config{
					Symbol:         cfg.Trading.Symbol,
					StrategyName:   cfg.Strategy.Name,
					InitialBalance: cfg.Risk.InitialBalance,
					StakeAmount:    cfg.Risk.StakeAmount,
					StopLossPct:    cfg.Risk.StopLossPct,
					TakeProfitPct:  cfg.Risk.TakeProfitPct,
					MaxOpenTrades:  cfg.Trading.MaxOpenTrades,
					IDPrefix:       "LIVE",
				},
				cliApp.Logger,
				exchange,
				strat,
			)
			if err != nil {
				return err
			}
			return svc.Start(cmd.Context())
		},
	}

	cmd.Flags().BoolVar(&live, "live", false, "submit real orders instead of simulating")
	return cmd
}
