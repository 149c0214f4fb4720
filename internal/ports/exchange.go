package ports

import (
	"context"
	"time"

	"github.com/henrywu-dev/tophy-bot/internal/domain"
)

// Order represents the essential details returned after placing an order.
type Order struct {
	ID        string           // Exchange's order ID
	Symbol    string           // Symbol for the order
	Side      domain.OrderSide // Order side (BUY, SELL)
	Type      domain.OrderType // Order type (MARKET, LIMIT)
	Price     float64          // Limit price (0 for market orders)
	AvgPrice  float64          // Average filled price
	Quantity  float64          // Quantity requested
	Filled    float64          // Quantity filled
	Status    string           // Order status (e.g., NEW, FILLED, CANCELED)
	Timestamp time.Time        // Time the order response was generated
}

// ExchangeClient defines the interface for interacting with a cryptocurrency
// exchange. This abstraction decouples the core trading logic from specific
// exchange implementations.
type ExchangeClient interface {
	// GetOHLCV retrieves the most recent candles for the given symbol,
	// ordered by open time ascending.
	GetOHLCV(ctx context.Context, symbol, timeframe string, limit int) ([]*domain.Candle, error)

	// GetTicker retrieves the latest candle for a symbol, used as the
	// current market price.
	GetTicker(ctx context.Context, symbol string) (*domain.Candle, error)

	// CreateOrder places an order. Price is ignored for market orders.
	CreateOrder(ctx context.Context, symbol string, orderType domain.OrderType, side domain.OrderSide, amount, price float64) (*Order, error)

	// GetBalance retrieves the available balance per currency.
	GetBalance(ctx context.Context) (map[string]float64, error)

	// Ping checks the connectivity to the exchange API.
	Ping(ctx context.Context) error

	// GetServerTime retrieves the current server time from the exchange.
	GetServerTime(ctx context.Context) (time.Time, error)
}
