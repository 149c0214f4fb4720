package app

import (
	"context"
	"fmt"

	"github.com/henrywu-dev/tophy-bot/internal/domain"
	"github.com/henrywu-dev/tophy-bot/internal/ports"
)

// ExchangeBroker executes trades against a real exchange. Orders are
// submitted before any position state changes, so a rejected order never
// leaves phantom state behind.
type ExchangeBroker struct {
	exchange ports.ExchangeClient
	logger   ports.Logger
}

// NewExchangeBroker creates a broker backed by the given exchange client.
func NewExchangeBroker(exchange ports.ExchangeClient, logger ports.Logger) (*ExchangeBroker, error) {
	if exchange == nil {
		return nil, fmt.Errorf("exchange client is required for broker")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required for broker")
	}
	return &ExchangeBroker{exchange: exchange, logger: logger}, nil
}

// SubmitEntry places a market order opening the trade.
func (b *ExchangeBroker) SubmitEntry(ctx context.Context, trade *domain.Trade) error {
	op := "SubmitEntry"
	order, err := b.exchange.CreateOrder(ctx, trade.Symbol, domain.OrderTypeMarket, trade.Side, trade.Quantity, 0)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if order.AvgPrice > 0 && order.AvgPrice != trade.EntryPrice {
		b.logger.Debug(ctx, op+": fill price differs from signal price", map[string]interface{}{
			"tradeID":     trade.ID,
			"signalPrice": trade.EntryPrice,
			"fillPrice":   order.AvgPrice,
		})
	}
	b.logger.Info(ctx, op+": entry order filled", map[string]interface{}{
		"tradeID":  trade.ID,
		"orderID":  order.ID,
		"side":     trade.Side,
		"quantity": trade.Quantity,
	})
	return nil
}

// SubmitExit places a market order on the opposite side, closing the trade.
func (b *ExchangeBroker) SubmitExit(ctx context.Context, trade *domain.Trade, price float64) error {
	op := "SubmitExit"
	order, err := b.exchange.CreateOrder(ctx, trade.Symbol, domain.OrderTypeMarket, trade.Side.Opposite(), trade.Quantity, 0)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	b.logger.Info(ctx, op+": exit order filled", map[string]interface{}{
		"tradeID":  trade.ID,
		"orderID":  order.ID,
		"side":     trade.Side.Opposite(),
		"quantity": trade.Quantity,
		"price":    price,
	})
	return nil
}
