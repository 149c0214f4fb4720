package strategies

import (
	"context"
	"fmt"
	"math"

	"github.com/henrywu-dev/tophy-bot/internal/domain"
	"github.com/henrywu-dev/tophy-bot/internal/ports"
	"github.com/henrywu-dev/tophy-bot/internal/strategy/indicators"
)

// Fixed thresholds of the quantum strategy. The periods are configurable;
// the ratio cutoffs define the strategy itself and are not.
const (
	quantumVolatilityExpansion = 1.2 // ATR ratio above which volatility counts as expanding
	quantumVolatilityCollapse  = 0.7 // ATR ratio below which a trend counts as exhausted
	quantumVolumeSurge         = 1.5 // volume ratio confirming a volatility expansion
	quantumVolumeWave          = 1.2 // volume ratio confirming a breakout
	quantumVolumeExhaustion    = 0.8 // volume ratio marking a dried-up move
	quantumRSIRecoverLow       = 25  // RSI recovery level for bullish divergence
	quantumRSIFadeHigh         = 75  // RSI fade level for bearish divergence
	quantumRSIExitHigh         = 85  // RSI blow-off exit
	quantumRSIExitLow          = 15  // RSI capitulation exit
	quantumMomentumLookback    = 3   // bars for the raw momentum diff
	quantumMomentumMinPct      = 0.5 // minimum |momentum| as a percent of price
	quantumBandStdDev          = 2.0 // standard deviations for the volatility bands
)

// QuantumConfig holds the lookback periods for the quantum strategy's
// indicator layers.
type QuantumConfig struct {
	ATRPeriod        int // e.g., 14
	VolatilityPeriod int // SMA window over ATR, e.g., 20
	BandPeriod       int // volatility band window, e.g., 20
	RSIPeriod        int // e.g., 14
	StochPeriod      int // e.g., 14
	StochSmoothing   int // %D smoothing, e.g., 3
	VolumePeriod     int // volume SMA window, e.g., 20
	FastSMAPeriod    int // e.g., 9
	MediumSMAPeriod  int // e.g., 21
	SlowSMAPeriod    int // e.g., 55
}

// QuantumStrategy is a multi-layer momentum strategy. It only trades
// confluence points where several independent reads of the market agree:
//
//	buy  - volatility expands on surging volume while momentum accelerates
//	       in an uptrend, or price recovers off the lower volatility band
//	       with RSI climbing out of an extreme
//	sell - price fades off the upper band with momentum rolling over, or
//	       price breaks below the medium SMA on exhausted volume
//	exit - RSI blow-off or capitulation, momentum flipping sign, a close
//	       below the slow SMA, or a volatility collapse
type QuantumStrategy struct {
	cfg    QuantumConfig
	logger ports.Logger
}

// NewQuantum creates a quantum strategy instance.
func NewQuantum(cfg QuantumConfig, logger ports.Logger) (*QuantumStrategy, error) {
	if cfg.ATRPeriod <= 0 || cfg.VolatilityPeriod <= 0 || cfg.BandPeriod <= 0 ||
		cfg.RSIPeriod <= 0 || cfg.StochPeriod <= 0 || cfg.StochSmoothing <= 0 ||
		cfg.VolumePeriod <= 0 {
		return nil, fmt.Errorf("%w: quantum periods must be positive", ports.ErrConfigurationError)
	}
	if cfg.FastSMAPeriod <= 0 || cfg.MediumSMAPeriod <= 0 || cfg.SlowSMAPeriod <= 0 {
		return nil, fmt.Errorf("%w: quantum SMA periods must be positive", ports.ErrConfigurationError)
	}
	if cfg.FastSMAPeriod >= cfg.MediumSMAPeriod || cfg.MediumSMAPeriod >= cfg.SlowSMAPeriod {
		return nil, fmt.Errorf("%w: quantum SMA periods must be strictly increasing", ports.ErrConfigurationError)
	}
	if logger == nil {
		return nil, fmt.Errorf("%w: logger is required", ports.ErrConfigurationError)
	}
	return &QuantumStrategy{cfg: cfg, logger: logger}, nil
}

// Name returns the name of the strategy.
func (s *QuantumStrategy) Name() string {
	return "quantum"
}

// RequiredBars returns the minimum number of candles needed before any
// signal can fire.
func (s *QuantumStrategy) RequiredBars() int {
	required := s.cfg.ATRPeriod + s.cfg.VolatilityPeriod
	for _, n := range []int{
		s.cfg.BandPeriod + 1,
		s.cfg.RSIPeriod + 2,
		s.cfg.StochPeriod + s.cfg.StochSmoothing,
		s.cfg.VolumePeriod + 1,
		s.cfg.SlowSMAPeriod + 1,
		quantumMomentumLookback + 2,
	} {
		if n > required {
			required = n
		}
	}
	return required
}

// Analyze computes all indicator layers over the series and derives the
// confluence signals. Comparisons against NaN warmup values are always
// false, so no layer can vote inside its warmup window.
func (s *QuantumStrategy) Analyze(ctx context.Context, candles []*domain.Candle) (*domain.SignalTable, error) {
	if len(candles) < s.RequiredBars() {
		return nil, fmt.Errorf("not enough candles for quantum strategy: need %d, got %d", s.RequiredBars(), len(candles))
	}

	closes := indicators.Closes(candles)
	volumes := make([]float64, len(candles))
	for i, c := range candles {
		volumes[i] = c.Volume
	}

	atr := indicators.ATR(candles, s.cfg.ATRPeriod)
	atrSMA := indicators.SMA(atr, s.cfg.VolatilityPeriod)
	upper, middle, lower := indicators.BollingerBands(closes, s.cfg.BandPeriod, quantumBandStdDev)
	rsi := indicators.RSI(closes, s.cfg.RSIPeriod)
	stochK, stochD := indicators.Stochastic(candles, s.cfg.StochPeriod, s.cfg.StochSmoothing)
	volumeSMA := indicators.SMA(volumes, s.cfg.VolumePeriod)
	fastSMA := indicators.SMA(closes, s.cfg.FastSMAPeriod)
	mediumSMA := indicators.SMA(closes, s.cfg.MediumSMAPeriod)
	slowSMA := indicators.SMA(closes, s.cfg.SlowSMAPeriod)

	// Raw momentum is the close diff over a short lookback; its sign flips
	// mark reversals and its size (as a percent of price) filters noise.
	momentum := make([]float64, len(candles))
	for i := range momentum {
		if i < quantumMomentumLookback {
			momentum[i] = math.NaN()
		} else {
			momentum[i] = closes[i] - closes[i-quantumMomentumLookback]
		}
	}

	entries := make([]domain.OrderSide, len(candles))
	rawExits := make([]bool, len(candles))
	for i := 1; i < len(candles); i++ {
		atrRatio := atr[i] / atrSMA[i]
		volumeRatio := volumes[i] / volumeSMA[i]
		momentumPct := math.Abs(momentum[i]/closes[i]) * 100
		// The band half-width recovers the rolling standard deviation.
		sd := (middle[i] - lower[i]) / quantumBandStdDev
		mid := candles[i].MidPrice()

		expansion := atrRatio > quantumVolatilityExpansion && volumeRatio > quantumVolumeSurge
		momentumUp := momentum[i] > 0 && momentum[i] > momentum[i-1] &&
			momentumPct > quantumMomentumMinPct && stochK[i] >= stochD[i]
		trendUp := closes[i] > fastSMA[i] && closes[i] > mediumSMA[i]
		wave := volumeRatio > quantumVolumeWave

		// Bullish divergence: the bar dips near the lower band while RSI
		// climbs back out of its extreme.
		divergenceUp := mid < lower[i]+0.5*sd &&
			rsi[i] > quantumRSIRecoverLow && rsi[i-1] < quantumRSIRecoverLow

		momentumDown := momentum[i] < 0 && momentum[i] < momentum[i-1] &&
			momentumPct > quantumMomentumMinPct
		trendBreak := closes[i] < mediumSMA[i] && closes[i-1] > mediumSMA[i]
		exhaustion := volumeRatio < quantumVolumeExhaustion && momentum[i] < 0

		// Bearish divergence: the bar pushes near the upper band while RSI
		// falls back from its extreme.
		divergenceDown := mid > upper[i]-0.5*sd &&
			rsi[i] < quantumRSIFadeHigh && rsi[i-1] > quantumRSIFadeHigh

		switch {
		case (expansion && momentumUp && trendUp && wave) || (divergenceUp && wave && trendUp):
			entries[i] = domain.Buy
		case (divergenceDown && momentumDown && trendBreak) || (trendBreak && exhaustion):
			entries[i] = domain.Sell
		}

		rawExits[i] = rsi[i] > quantumRSIExitHigh || rsi[i] < quantumRSIExitLow ||
			momentum[i]*momentum[i-1] < 0 ||
			closes[i] < slowSMA[i] ||
			atrRatio < quantumVolatilityCollapse
	}

	// Hold each exit for one extra bar so a single spike cannot slip
	// between two polling cycles.
	exits := make([]bool, len(candles))
	for i := range exits {
		exits[i] = rawExits[i] || (i > 0 && rawExits[i-1])
	}

	s.logger.Debug(ctx, "quantum analysis complete", map[string]interface{}{"bars": len(candles)})
	return domain.NewSignalTable(entries, exits), nil
}
