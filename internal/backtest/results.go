package backtest

import (
	"github.com/henrywu-dev/tophy-bot/internal/domain"
)

// Results holds the aggregated outcome of a simulation run.
type Results struct {
	TotalTrades      int
	WinningTrades    int
	LosingTrades     int
	WinRate          float64
	TotalPnL         float64
	TotalPnLPercent  float64
	AvgTradeDuration float64 // seconds, over trades with an exit time
	ProfitFactor     float64
	FinalBalance     float64
	Trades           []*domain.Trade
}

// ComputeResults aggregates a closed-trade ledger into summary statistics.
// An empty ledger yields zeroed metrics with only FinalBalance set.
func ComputeResults(trades []*domain.Trade, initialBalance, finalBalance float64) *Results {
	res := &Results{
		FinalBalance: finalBalance,
		Trades:       trades,
	}
	if len(trades) == 0 {
		return res
	}

	var grossProfit, grossLoss float64
	var totalDuration float64
	var durationCount int

	for _, t := range trades {
		res.TotalTrades++
		res.TotalPnL += t.PnL
		if t.PnL > 0 {
			res.WinningTrades++
			grossProfit += t.PnL
		} else {
			res.LosingTrades++
			grossLoss += -t.PnL
		}
		if !t.ExitTime.IsZero() {
			totalDuration += t.ExitTime.Sub(t.EntryTime).Seconds()
			durationCount++
		}
	}

	res.WinRate = float64(res.WinningTrades) / float64(res.TotalTrades)
	if initialBalance != 0 {
		res.TotalPnLPercent = res.TotalPnL / initialBalance * 100
	}
	if durationCount > 0 {
		res.AvgTradeDuration = totalDuration / float64(durationCount)
	}
	if grossLoss > 0 {
		res.ProfitFactor = grossProfit / grossLoss
	}

	return res
}
