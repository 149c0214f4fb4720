package positions

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/henrywu-dev/tophy-bot/internal/domain"
)

// mockLogger implements ports.Logger for testing
type mockLogger struct{}

func (m *mockLogger) Debug(ctx context.Context, msg string, fields ...map[string]interface{}) {}
func (m *mockLogger) Info(ctx context.Context, msg string, fields ...map[string]interface{})  {}
func (m *mockLogger) Warn(ctx context.Context, msg string, fields ...map[string]interface{})  {}
func (m *mockLogger) Error(ctx context.Context, err error, msg string, fields ...map[string]interface{}) {
}

func newTestTrade(t *testing.T, id string, entryPrice, stopLoss, takeProfit float64) *domain.Trade {
	t.Helper()
	trade, err := domain.NewTrade(id, "ETHUSDT", time.Now().UTC(), entryPrice, 1, domain.Buy, "rsi", stopLoss, takeProfit)
	require.NoError(t, err)
	return trade
}

func TestManagerCapacity(t *testing.T) {
	ctx := context.Background()
	m := NewManager(2, &mockLogger{})

	assert.Equal(t, 2, m.MaxOpenTrades())
	assert.True(t, m.HasCapacity())

	require.True(t, m.OpenTrade(ctx, newTestTrade(t, "T-1", 2000, 0, 0)))
	require.True(t, m.OpenTrade(ctx, newTestTrade(t, "T-2", 2000, 0, 0)))
	assert.False(t, m.HasCapacity())
	assert.Equal(t, 2, m.Count())

	// At cap the open is refused and state unchanged.
	assert.False(t, m.OpenTrade(ctx, newTestTrade(t, "T-3", 2000, 0, 0)))
	assert.Equal(t, 2, m.Count())
}

func TestManagerDefaultsCapToOne(t *testing.T) {
	m := NewManager(0, &mockLogger{})
	assert.Equal(t, 1, m.MaxOpenTrades())

	m = NewManager(-5, &mockLogger{})
	assert.Equal(t, 1, m.MaxOpenTrades())
}

func TestManagerCloseTrade(t *testing.T) {
	ctx := context.Background()
	m := NewManager(3, &mockLogger{})
	exitTime := time.Now().UTC()

	first := newTestTrade(t, "T-1", 2000, 0, 0)
	second := newTestTrade(t, "T-2", 2100, 0, 0)
	require.True(t, m.OpenTrade(ctx, first))
	require.True(t, m.OpenTrade(ctx, second))

	require.True(t, m.CloseTrade(ctx, first, 2200, exitTime, domain.CloseReasonSignal))
	assert.Equal(t, 1, m.Count())
	assert.False(t, first.IsOpen())
	assert.Equal(t, domain.CloseReasonSignal, first.CloseReason)
	assert.InDelta(t, 200.0, first.PnL, 1e-9)

	// Closing a non-member is refused.
	stranger := newTestTrade(t, "T-9", 2000, 0, 0)
	assert.False(t, m.CloseTrade(ctx, stranger, 2200, exitTime, domain.CloseReasonSignal))
	assert.True(t, stranger.IsOpen())

	// Closing the same trade again is refused; the open set is untouched.
	assert.False(t, m.CloseTrade(ctx, first, 2300, exitTime, domain.CloseReasonSignal))
	assert.Equal(t, 1, m.Count())
}

func TestManagerFIFOOrder(t *testing.T) {
	ctx := context.Background()
	m := NewManager(3, &mockLogger{})

	first := newTestTrade(t, "T-1", 2000, 0, 0)
	second := newTestTrade(t, "T-2", 2100, 0, 0)
	require.True(t, m.OpenTrade(ctx, first))
	require.True(t, m.OpenTrade(ctx, second))

	assert.Same(t, first, m.FirstOpen())

	open := m.OpenTrades("")
	require.Len(t, open, 2)
	assert.Same(t, first, open[0])
	assert.Same(t, second, open[1])

	require.True(t, m.CloseTrade(ctx, first, 2000, time.Now().UTC(), domain.CloseReasonSignal))
	assert.Same(t, second, m.FirstOpen())
}

func TestManagerFirstOpenEmpty(t *testing.T) {
	m := NewManager(1, &mockLogger{})
	assert.Nil(t, m.FirstOpen())
	assert.Empty(t, m.OpenTrades(""))
}

func TestManagerOpenTradesBySymbol(t *testing.T) {
	ctx := context.Background()
	m := NewManager(3, &mockLogger{})

	eth := newTestTrade(t, "T-1", 2000, 0, 0)
	btc, err := domain.NewTrade("T-2", "BTCUSDT", time.Now().UTC(), 60000, 0.1, domain.Buy, "rsi", 0, 0)
	require.NoError(t, err)
	require.True(t, m.OpenTrade(ctx, eth))
	require.True(t, m.OpenTrade(ctx, btc))

	ethOnly := m.OpenTrades("ETHUSDT")
	require.Len(t, ethOnly, 1)
	assert.Same(t, eth, ethOnly[0])
	assert.Len(t, m.OpenTrades(""), 2)
}

func TestManagerStopLossCheck(t *testing.T) {
	ctx := context.Background()
	m := NewManager(3, &mockLogger{})

	withSL := newTestTrade(t, "T-1", 2000, 1900, 0)
	withoutSL := newTestTrade(t, "T-2", 2000, 0, 0)
	require.True(t, m.OpenTrade(ctx, withSL))
	require.True(t, m.OpenTrade(ctx, withoutSL))

	assert.Empty(t, m.CheckStopLoss(1950))

	// Boundary is inclusive.
	triggered := m.CheckStopLoss(1900)
	require.Len(t, triggered, 1)
	assert.Same(t, withSL, triggered[0])

	triggered = m.CheckStopLoss(1800)
	require.Len(t, triggered, 1)

	// Pure query: nothing was closed.
	assert.Equal(t, 2, m.Count())
	assert.True(t, withSL.IsOpen())
}

func TestManagerTakeProfitCheck(t *testing.T) {
	ctx := context.Background()
	m := NewManager(3, &mockLogger{})

	withTP := newTestTrade(t, "T-1", 2000, 0, 2200)
	require.True(t, m.OpenTrade(ctx, withTP))

	assert.Empty(t, m.CheckTakeProfit(2100))

	triggered := m.CheckTakeProfit(2200)
	require.Len(t, triggered, 1)
	assert.Same(t, withTP, triggered[0])

	require.Len(t, m.CheckTakeProfit(2500), 1)
	assert.Equal(t, 1, m.Count())
}
