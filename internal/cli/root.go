// Package cli provides the command-line interface for the trading bot.
package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/henrywu-dev/tophy-bot/config"
	"github.com/henrywu-dev/tophy-bot/internal/adapters/binanceclient"
	"github.com/henrywu-dev/tophy-bot/internal/adapters/logger"
	"github.com/henrywu-dev/tophy-bot/internal/ports"
	"github.com/henrywu-dev/tophy-bot/internal/strategy/strategies"
)

// Version information
const (
	Version = "1.0.0"
)

// App holds the dependencies shared by all commands.
type App struct {
	Config *config.Config
	Logger ports.Logger
}

// NewRootCmd creates the root command for the CLI.
func NewRootCmd() *cobra.Command {
	app := &App{}
	var configPath string
	var debug bool

	rootCmd := &cobra.Command{
		Use:   "tophy",
		Short: "Single-asset algorithmic trading bot for Binance spot markets",
		Long: `Tophy is a single-asset trading bot for Binance spot markets.

It evaluates an indicator-based strategy on candlestick data and manages a
single position with stop-loss and take-profit exits. The same decision
engine drives historical backtests, dry-run simulation and live trading.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			if debug {
				cfg.Logging.Level = "debug"
			}
			lg, err := logger.New(cfg.Logging.Format, cfg.Logging.Level)
			if err != nil {
				return fmt.Errorf("failed to initialize logger: %w", err)
			}
			app.Config = cfg
			app.Logger = lg
			return nil
		},
	}

	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to YAML config file")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")

	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newBacktestCmd(app))
	rootCmd.AddCommand(newOptimizeCmd(app))
	rootCmd.AddCommand(newFetchCmd(app))
	rootCmd.AddCommand(newTradeCmd(app))

	return rootCmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("tophy v%s\n", Version)
		},
	}
}

// buildStrategy constructs the configured strategy implementation.
func buildStrategy(app *App) (ports.Strategy, error) {
	cfg := app.Config
	switch cfg.Strategy.Name {
	case "rsi":
		return strategies.NewRSI(strategies.RSIConfig{
			Period:         cfg.Strategy.RSIPeriod,
			Overbought:     cfg.Strategy.RSIOverbought,
			Oversold:       cfg.Strategy.RSIOversold,
			ShortSMAPeriod: cfg.Strategy.ShortSMAPeriod,
			LongSMAPeriod:  cfg.Strategy.LongSMAPeriod,
		}, app.Logger)
	case "macd":
		return strategies.NewMACD(strategies.MACDConfig{
			FastPeriod:   cfg.Strategy.MACDFastPeriod,
			SlowPeriod:   cfg.Strategy.MACDSlowPeriod,
			SignalPeriod: cfg.Strategy.MACDSignalPeriod,
		}, app.Logger)
	case "quantum":
		return strategies.NewQuantum(strategies.QuantumConfig{
			ATRPeriod:        cfg.Strategy.QuantumATRPeriod,
			VolatilityPeriod: cfg.Strategy.QuantumVolatilityPeriod,
			BandPeriod:       cfg.Strategy.QuantumBandPeriod,
			RSIPeriod:        cfg.Strategy.QuantumRSIPeriod,
			StochPeriod:      cfg.Strategy.QuantumStochPeriod,
			StochSmoothing:   cfg.Strategy.QuantumStochSmoothing,
			VolumePeriod:     cfg.Strategy.QuantumVolumePeriod,
			FastSMAPeriod:    cfg.Strategy.QuantumFastSMAPeriod,
			MediumSMAPeriod:  cfg.Strategy.QuantumMediumSMAPeriod,
			SlowSMAPeriod:    cfg.Strategy.QuantumSlowSMAPeriod,
		}, app.Logger)
	default:
		return nil, fmt.Errorf("unknown strategy %q", cfg.Strategy.Name)
	}
}

// buildExchange constructs the Binance client from the loaded config.
func buildExchange(app *App) (ports.ExchangeClient, error) {
	return binanceclient.New(binanceclient.Config{
		APIKey:     app.Config.Exchange.APIKey,
		SecretKey:  app.Config.Exchange.SecretKey,
		UseTestnet: app.Config.Exchange.UseTestnet,
		Logger:     app.Logger,
	})
}
