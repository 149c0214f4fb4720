package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all application configuration. Values come from a YAML file,
// with API credentials and selected overrides taken from the environment
// (.env supported).
type Config struct {
	Exchange ExchangeConfig `yaml:"exchange"`
	Trading  TradingConfig  `yaml:"trading"`
	Risk     RiskConfig     `yaml:"risk"`
	Strategy StrategyConfig `yaml:"strategy"`
	Backtest BacktestConfig `yaml:"backtest"`
	Database DatabaseConfig `yaml:"database"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// ExchangeConfig holds exchange connectivity settings. API credentials are
// environment-only and never read from the YAML file.
type ExchangeConfig struct {
	APIKey     string `yaml:"-"`
	SecretKey  string `yaml:"-"`
	UseTestnet bool   `yaml:"use_testnet"`
}

// TradingConfig holds live-loop trading parameters.
type TradingConfig struct {
	Symbol              string `yaml:"symbol"`
	Timeframe           string `yaml:"timeframe"`
	PollIntervalSeconds int    `yaml:"poll_interval_seconds"`
	LookbackBars        int    `yaml:"lookback_bars"`
	DryRun              bool   `yaml:"dry_run"`
	MaxOpenTrades       int    `yaml:"max_open_trades"`
}

// PollInterval returns the live-loop polling interval.
func (t TradingConfig) PollInterval() time.Duration {
	return time.Duration(t.PollIntervalSeconds) * time.Second
}

// RiskConfig holds position sizing and exit thresholds.
type RiskConfig struct {
	InitialBalance float64 `yaml:"initial_balance"`
	StakeAmount    float64 `yaml:"stake_amount"`
	StopLossPct    float64 `yaml:"stop_loss_pct"`   // negative fraction, e.g. -0.02
	TakeProfitPct  float64 `yaml:"take_profit_pct"` // positive fraction, e.g. 0.04
}

// StrategyConfig selects and parameterizes the signal strategy.
type StrategyConfig struct {
	Name string `yaml:"name"` // "rsi", "macd" or "quantum"

	RSIPeriod      int     `yaml:"rsi_period"`
	RSIOverbought  float64 `yaml:"rsi_overbought"`
	RSIOversold    float64 `yaml:"rsi_oversold"`
	ShortSMAPeriod int     `yaml:"short_sma_period"`
	LongSMAPeriod  int     `yaml:"long_sma_period"`

	MACDFastPeriod   int `yaml:"macd_fast_period"`
	MACDSlowPeriod   int `yaml:"macd_slow_period"`
	MACDSignalPeriod int `yaml:"macd_signal_period"`

	QuantumATRPeriod        int `yaml:"quantum_atr_period"`
	QuantumVolatilityPeriod int `yaml:"quantum_volatility_period"`
	QuantumBandPeriod       int `yaml:"quantum_band_period"`
	QuantumRSIPeriod        int `yaml:"quantum_rsi_period"`
	QuantumStochPeriod      int `yaml:"quantum_stoch_period"`
	QuantumStochSmoothing   int `yaml:"quantum_stoch_smoothing"`
	QuantumVolumePeriod     int `yaml:"quantum_volume_period"`
	QuantumFastSMAPeriod    int `yaml:"quantum_fast_sma_period"`
	QuantumMediumSMAPeriod  int `yaml:"quantum_medium_sma_period"`
	QuantumSlowSMAPeriod    int `yaml:"quantum_slow_sma_period"`
}

// BacktestConfig holds historical-simulation settings.
type BacktestConfig struct {
	Days int `yaml:"days"`
}

// DatabaseConfig holds candle-store settings.
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// LoggingConfig holds logger settings. Format selects the log output:
// "json" for structured zap output, "text" for plain line-oriented logs.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns a configuration populated with sane defaults.
func Default() *Config {
	return &Config{
		Exchange: ExchangeConfig{
			UseTestnet: true, // default to testnet for safety
		},
		Trading: TradingConfig{
			Symbol:              "ETHUSDT",
			Timeframe:           "1h",
			PollIntervalSeconds: 60,
			LookbackBars:        200,
			DryRun:              true,
			MaxOpenTrades:       1,
		},
		Risk: RiskConfig{
			InitialBalance: 10000,
			StakeAmount:    1000,
			StopLossPct:    -0.02,
			TakeProfitPct:  0.04,
		},
		Strategy: StrategyConfig{
			Name:             "rsi",
			RSIPeriod:        14,
			RSIOverbought:    70,
			RSIOversold:      30,
			ShortSMAPeriod:   20,
			LongSMAPeriod:    50,
			MACDFastPeriod:   12,
			MACDSlowPeriod:   26,
			MACDSignalPeriod: 9,

			QuantumATRPeriod:        14,
			QuantumVolatilityPeriod: 20,
			QuantumBandPeriod:       20,
			QuantumRSIPeriod:        14,
			QuantumStochPeriod:      14,
			QuantumStochSmoothing:   3,
			QuantumVolumePeriod:     20,
			QuantumFastSMAPeriod:    9,
			QuantumMediumSMAPeriod:  21,
			QuantumSlowSMAPeriod:    55,
		},
		Backtest: BacktestConfig{
			Days: 30,
		},
		Database: DatabaseConfig{
			Path: "./data/market_data.db",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load reads configuration from the given YAML file, then applies
// environment overrides. An empty path skips the file and uses defaults
// plus environment only.
func Load(path string) (*Config, error) {
	// Load .env file, but don't fail if it doesn't exist (allow pure env vars)
	_ = godotenv.Load()

	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file '%s': %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file '%s': %w", path, err)
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnv overlays environment variables onto the loaded configuration.
func (c *Config) applyEnv() {
	c.Exchange.APIKey = getEnv("BINANCE_API_KEY", c.Exchange.APIKey)
	c.Exchange.SecretKey = getEnv("BINANCE_API_SECRET", c.Exchange.SecretKey)
	c.Exchange.UseTestnet = getEnvAsBool("USE_TESTNET", c.Exchange.UseTestnet)

	c.Trading.Symbol = getEnv("SYMBOL", c.Trading.Symbol)
	c.Trading.Timeframe = getEnv("TIMEFRAME", c.Trading.Timeframe)
	c.Trading.DryRun = getEnvAsBool("DRY_RUN", c.Trading.DryRun)

	c.Database.Path = getEnv("DB_PATH", c.Database.Path)
	c.Logging.Level = getEnv("LOG_LEVEL", c.Logging.Level)
	c.Logging.Format = getEnv("LOG_FORMAT", c.Logging.Format)
}

// Validate checks the configuration, collecting all problems into a single
// error.
func (c *Config) Validate() error {
	var errs []string

	if c.Trading.Symbol == "" {
		errs = append(errs, "trading.symbol must be set")
	}
	if c.Trading.Timeframe == "" {
		errs = append(errs, "trading.timeframe must be set")
	}
	if c.Trading.PollIntervalSeconds <= 0 {
		errs = append(errs, "trading.poll_interval_seconds must be positive")
	}
	if c.Trading.LookbackBars <= 0 {
		errs = append(errs, "trading.lookback_bars must be positive")
	}
	if c.Trading.MaxOpenTrades <= 0 {
		errs = append(errs, "trading.max_open_trades must be positive")
	}

	if c.Risk.InitialBalance <= 0 {
		errs = append(errs, "risk.initial_balance must be positive")
	}
	if c.Risk.StakeAmount <= 0 {
		errs = append(errs, "risk.stake_amount must be positive")
	}
	if c.Risk.StopLossPct >= 0 || c.Risk.StopLossPct <= -1.0 {
		errs = append(errs, "risk.stop_loss_pct must be between -1.0 and 0.0 (exclusive)")
	}
	if c.Risk.TakeProfitPct <= 0 {
		errs = append(errs, "risk.take_profit_pct must be positive")
	}

	switch c.Strategy.Name {
	case "rsi":
		if c.Strategy.RSIPeriod <= 0 || c.Strategy.ShortSMAPeriod <= 0 || c.Strategy.LongSMAPeriod <= 0 {
			errs = append(errs, "strategy periods must be positive")
		}
		if c.Strategy.ShortSMAPeriod >= c.Strategy.LongSMAPeriod {
			errs = append(errs, "strategy.short_sma_period must be less than strategy.long_sma_period")
		}
		if c.Strategy.RSIOverbought <= c.Strategy.RSIOversold || c.Strategy.RSIOverbought > 100 || c.Strategy.RSIOversold < 0 {
			errs = append(errs, "invalid RSI thresholds (overbought must be > oversold, within 0-100)")
		}
	case "macd":
		if c.Strategy.MACDFastPeriod <= 0 || c.Strategy.MACDSlowPeriod <= 0 || c.Strategy.MACDSignalPeriod <= 0 {
			errs = append(errs, "strategy MACD periods must be positive")
		}
		if c.Strategy.MACDFastPeriod >= c.Strategy.MACDSlowPeriod {
			errs = append(errs, "strategy.macd_fast_period must be less than strategy.macd_slow_period")
		}
	case "quantum":
		if c.Strategy.QuantumATRPeriod <= 0 || c.Strategy.QuantumVolatilityPeriod <= 0 ||
			c.Strategy.QuantumBandPeriod <= 0 || c.Strategy.QuantumRSIPeriod <= 0 ||
			c.Strategy.QuantumStochPeriod <= 0 || c.Strategy.QuantumStochSmoothing <= 0 ||
			c.Strategy.QuantumVolumePeriod <= 0 || c.Strategy.QuantumFastSMAPeriod <= 0 ||
			c.Strategy.QuantumMediumSMAPeriod <= 0 || c.Strategy.QuantumSlowSMAPeriod <= 0 {
			errs = append(errs, "strategy quantum periods must be positive")
		}
		if c.Strategy.QuantumFastSMAPeriod >= c.Strategy.QuantumMediumSMAPeriod ||
			c.Strategy.QuantumMediumSMAPeriod >= c.Strategy.QuantumSlowSMAPeriod {
			errs = append(errs, "strategy quantum SMA periods must be strictly increasing")
		}
	default:
		errs = append(errs, fmt.Sprintf("unknown strategy name '%s' (expected rsi, macd or quantum)", c.Strategy.Name))
	}

	if c.Backtest.Days <= 0 {
		errs = append(errs, "backtest.days must be positive")
	}
	if c.Database.Path == "" {
		errs = append(errs, "database.path must be set")
	}

	switch c.Logging.Format {
	case "", "json", "text":
	default:
		errs = append(errs, fmt.Sprintf("unknown logging format '%s' (expected json or text)", c.Logging.Format))
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

// --- Env Var Helpers ---

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}
