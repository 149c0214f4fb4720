package backtest

import (
	"sort"
	"time"

	"github.com/henrywu-dev/tophy-bot/internal/domain"
)

// PerformanceMetrics holds extended performance statistics for a trade ledger,
// beyond the summary figures in Results.
type PerformanceMetrics struct {
	TotalTrades        int
	WinningTrades      int
	LosingTrades       int
	WinRate            float64
	TotalProfit        float64
	MaxDrawdown        float64
	AverageWin         float64
	AverageLoss        float64
	FinalBalance       float64
	ReturnOnInvestment float64

	MaxConsecutiveWins   int
	MaxConsecutiveLosses int
	AverageTradeDuration time.Duration
	Expectancy           float64
	RiskRewardRatio      float64
	MonthlyReturns       map[string]float64
	EquityCurve          []EquityPoint
}

// EquityPoint is one point on the balance curve, recorded at trade exit.
type EquityPoint struct {
	Time     time.Time
	Value    float64
	Drawdown float64
}

// MonthlyReturn is a month's aggregate PnL.
type MonthlyReturn struct {
	Month  time.Time
	Return float64
}

// AnalyzePerformance computes extended metrics from a closed-trade ledger.
// Trades are processed in exit-time order; drawdown is measured against the
// running peak balance.
func AnalyzePerformance(trades []*domain.Trade, initialBalance float64) *PerformanceMetrics {
	m := &PerformanceMetrics{
		FinalBalance:   initialBalance,
		MonthlyReturns: make(map[string]float64),
		EquityCurve:    make([]EquityPoint, 0, len(trades)),
	}
	if len(trades) == 0 {
		return m
	}

	ordered := make([]*domain.Trade, len(trades))
	copy(ordered, trades)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].ExitTime.Before(ordered[j].ExitTime)
	})

	balance := initialBalance
	peak := initialBalance
	var consecWins, consecLosses int
	var totalDuration time.Duration

	for _, t := range ordered {
		m.TotalTrades++
		if t.PnL > 0 {
			m.WinningTrades++
			consecWins++
			consecLosses = 0
			m.AverageWin += (t.PnL - m.AverageWin) / float64(m.WinningTrades)
		} else {
			m.LosingTrades++
			consecLosses++
			consecWins = 0
			m.AverageLoss += (t.PnL - m.AverageLoss) / float64(m.LosingTrades)
		}
		if consecWins > m.MaxConsecutiveWins {
			m.MaxConsecutiveWins = consecWins
		}
		if consecLosses > m.MaxConsecutiveLosses {
			m.MaxConsecutiveLosses = consecLosses
		}

		balance += t.PnL
		m.TotalProfit += t.PnL
		m.FinalBalance = balance
		m.MonthlyReturns[t.ExitTime.Format("2006-01")] += t.PnL
		totalDuration += t.Duration()

		if balance > peak {
			peak = balance
		}
		var dd float64
		if peak > 0 {
			dd = (peak - balance) / peak
		}
		if dd > m.MaxDrawdown {
			m.MaxDrawdown = dd
		}
		m.EquityCurve = append(m.EquityCurve, EquityPoint{
			Time:     t.ExitTime,
			Value:    balance,
			Drawdown: dd,
		})
	}

	m.WinRate = float64(m.WinningTrades) / float64(m.TotalTrades)
	if initialBalance != 0 {
		m.ReturnOnInvestment = (m.FinalBalance - initialBalance) / initialBalance
	}
	m.AverageTradeDuration = totalDuration / time.Duration(m.TotalTrades)
	m.Expectancy = m.WinRate*m.AverageWin + (1-m.WinRate)*m.AverageLoss
	if m.AverageLoss != 0 {
		m.RiskRewardRatio = m.AverageWin / -m.AverageLoss
	}

	return m
}

// SortedMonthlyReturns returns the monthly returns ordered by month.
func (m *PerformanceMetrics) SortedMonthlyReturns() []MonthlyReturn {
	returns := make([]MonthlyReturn, 0, len(m.MonthlyReturns))
	for month, profit := range m.MonthlyReturns {
		date, err := time.Parse("2006-01", month)
		if err != nil {
			continue
		}
		returns = append(returns, MonthlyReturn{Month: date, Return: profit})
	}
	sort.Slice(returns, func(i, j int) bool {
		return returns[i].Month.Before(returns[j].Month)
	})
	return returns
}
