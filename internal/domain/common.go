package domain

// OrderSide represents the side of an order (BUY or SELL).
type OrderSide string

const (
	Buy  OrderSide = "BUY"
	Sell OrderSide = "SELL"
)

// Opposite returns the side that closes a position opened on s.
func (s OrderSide) Opposite() OrderSide {
	if s == Buy {
		return Sell
	}
	return Buy
}

// OrderType represents the type of an order.
type OrderType string

const (
	OrderTypeMarket OrderType = "MARKET"
	OrderTypeLimit  OrderType = "LIMIT"
)

// TradeState represents the lifecycle state of a trade.
type TradeState string

const (
	StateOpen   TradeState = "open"
	StateClosed TradeState = "closed"
	// StateCancelled is a reserved terminal state; nothing transitions
	// into it yet.
	StateCancelled TradeState = "cancelled"
)

// CloseReason indicates why a trade was closed.
type CloseReason string

const (
	CloseReasonSignal     CloseReason = "SIGNAL"
	CloseReasonStopLoss   CloseReason = "SL"
	CloseReasonTakeProfit CloseReason = "TP"
	CloseReasonShutdown   CloseReason = "SHUTDOWN"
	CloseReasonEndOfData  CloseReason = "END_OF_DATA"
)
