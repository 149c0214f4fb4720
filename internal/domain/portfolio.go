package domain

// Portfolio is a derived snapshot of the trading account. It is recomputed
// after every bar or poll cycle and never persisted independently of the
// trade ledger it summarizes.
type Portfolio struct {
	Balance         float64 // Cash available for new stakes
	OpenTrades      int
	ClosedTrades    int
	TotalPnL        float64
	TotalPnLPercent float64 // Relative to the initial balance
}
