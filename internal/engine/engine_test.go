package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/henrywu-dev/tophy-bot/internal/domain"
	"github.com/henrywu-dev/tophy-bot/internal/ports"
)

// mockLogger implements ports.Logger for testing
type mockLogger struct{}

func (m *mockLogger) Debug(ctx context.Context, msg string, fields ...map[string]interface{}) {}
func (m *mockLogger) Info(ctx context.Context, msg string, fields ...map[string]interface{})  {}
func (m *mockLogger) Warn(ctx context.Context, msg string, fields ...map[string]interface{})  {}
func (m *mockLogger) Error(ctx context.Context, err error, msg string, fields ...map[string]interface{}) {
}

// recordBroker records submissions and can be scripted to fail.
type recordBroker struct {
	entryErr error
	exitErr  error
	entries  []*domain.Trade
	exits    []*domain.Trade
}

func (b *recordBroker) SubmitEntry(ctx context.Context, trade *domain.Trade) error {
	if b.entryErr != nil {
		return b.entryErr
	}
	b.entries = append(b.entries, trade)
	return nil
}

func (b *recordBroker) SubmitExit(ctx context.Context, trade *domain.Trade, price float64) error {
	if b.exitErr != nil {
		return b.exitErr
	}
	b.exits = append(b.exits, trade)
	return nil
}

func testConfig() Config {
	return Config{
		Symbol:         "ETHUSDT",
		StrategyName:   "rsi",
		InitialBalance: 10000,
		StakeAmount:    1000,
		StopLossPct:    -0.02,
		TakeProfitPct:  0.04,
		MaxOpenTrades:  1,
		IDPrefix:       "T",
	}
}

func barAt(openTime time.Time, close float64) *domain.Candle {
	return &domain.Candle{
		OpenTime:  openTime,
		CloseTime: openTime.Add(time.Hour),
		Symbol:    "ETHUSDT",
		Timeframe: "1h",
		Open:      close,
		High:      close,
		Low:       close,
		Close:     close,
		Volume:    100,
	}
}

func TestNewValidation(t *testing.T) {
	logger := &mockLogger{}
	broker := &recordBroker{}

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{name: "zero balance", mutate: func(c *Config) { c.InitialBalance = 0 }},
		{name: "zero stake", mutate: func(c *Config) { c.StakeAmount = 0 }},
		{name: "positive stop loss", mutate: func(c *Config) { c.StopLossPct = 0.02 }},
		{name: "zero stop loss", mutate: func(c *Config) { c.StopLossPct = 0 }},
		{name: "negative take profit", mutate: func(c *Config) { c.TakeProfitPct = -0.04 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig()
			tt.mutate(&cfg)
			_, err := New(cfg, broker, logger)
			require.ErrorIs(t, err, ports.ErrConfigurationError)
		})
	}

	_, err := New(testConfig(), nil, logger)
	require.ErrorIs(t, err, ports.ErrConfigurationError)
	_, err = New(testConfig(), broker, nil)
	require.ErrorIs(t, err, ports.ErrConfigurationError)
}

func TestStepEntryOpensTrade(t *testing.T) {
	ctx := context.Background()
	broker := &recordBroker{}
	eng, err := New(testConfig(), broker, &mockLogger{})
	require.NoError(t, err)

	start := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	bar := barAt(start, 2000)
	sigs := domain.NewSignalTable([]domain.OrderSide{domain.Buy}, []bool{false})

	require.NoError(t, eng.Step(ctx, sigs, 0, bar))

	open := eng.Manager().OpenTrades("")
	require.Len(t, open, 1)
	trade := open[0]
	assert.Equal(t, "T-1", trade.ID)
	assert.Equal(t, domain.Buy, trade.Side)
	assert.InDelta(t, 0.5, trade.Quantity, 1e-9) // 1000 / 2000
	assert.InDelta(t, 2000*0.98, trade.StopLoss, 1e-9)
	assert.InDelta(t, 2000*1.04, trade.TakeProfit, 1e-9)
	assert.Equal(t, bar.CloseTime, trade.EntryTime)
	assert.InDelta(t, 9000.0, eng.Balance(), 1e-9)
	require.Len(t, broker.entries, 1)
}

func TestStepNoEntryAtCapacity(t *testing.T) {
	ctx := context.Background()
	broker := &recordBroker{}
	eng, err := New(testConfig(), broker, &mockLogger{})
	require.NoError(t, err)

	start := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	sigs := domain.NewSignalTable([]domain.OrderSide{domain.Buy, domain.Buy}, []bool{false, false})

	require.NoError(t, eng.Step(ctx, sigs, 0, barAt(start, 2000)))
	require.NoError(t, eng.Step(ctx, sigs, 1, barAt(start.Add(time.Hour), 2010)))

	assert.Equal(t, 1, eng.Manager().Count())
	assert.Len(t, broker.entries, 1)
}

func TestStepInsufficientBalanceIsSilent(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig()
	cfg.InitialBalance = 500 // below the 1000 stake
	broker := &recordBroker{}
	eng, err := New(cfg, broker, &mockLogger{})
	require.NoError(t, err)

	start := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	sigs := domain.NewSignalTable([]domain.OrderSide{domain.Buy}, []bool{false})

	require.NoError(t, eng.Step(ctx, sigs, 0, barAt(start, 2000)))
	assert.Equal(t, 0, eng.Manager().Count())
	assert.Empty(t, broker.entries)
	assert.InDelta(t, 500.0, eng.Balance(), 1e-9)
}

func TestStepExitSignalClosesOldest(t *testing.T) {
	ctx := context.Background()
	broker := &recordBroker{}
	eng, err := New(testConfig(), broker, &mockLogger{})
	require.NoError(t, err)

	start := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	sigs := domain.NewSignalTable(
		[]domain.OrderSide{domain.Buy, ""},
		[]bool{false, true},
	)

	require.NoError(t, eng.Step(ctx, sigs, 0, barAt(start, 2000)))
	exitBar := barAt(start.Add(time.Hour), 2060)
	require.NoError(t, eng.Step(ctx, sigs, 1, exitBar))

	assert.Equal(t, 0, eng.Manager().Count())
	closed := eng.ClosedTrades()
	require.Len(t, closed, 1)
	trade := closed[0]
	assert.Equal(t, domain.CloseReasonSignal, trade.CloseReason)
	assert.Equal(t, 2060.0, trade.ExitPrice)
	assert.Equal(t, exitBar.CloseTime, trade.ExitTime)
	// 9000 after entry, plus 0.5 * 2060 back on exit.
	assert.InDelta(t, 9000+0.5*2060, eng.Balance(), 1e-9)
}

func TestStepExitSignalNoOpenTrade(t *testing.T) {
	ctx := context.Background()
	broker := &recordBroker{}
	eng, err := New(testConfig(), broker, &mockLogger{})
	require.NoError(t, err)

	start := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	sigs := domain.NewSignalTable([]domain.OrderSide{""}, []bool{true})

	require.NoError(t, eng.Step(ctx, sigs, 0, barAt(start, 2000)))
	assert.Empty(t, broker.exits)
	assert.Empty(t, eng.ClosedTrades())
}

func TestStepStopLossClosesAtTriggerPrice(t *testing.T) {
	ctx := context.Background()
	broker := &recordBroker{}
	eng, err := New(testConfig(), broker, &mockLogger{})
	require.NoError(t, err)

	start := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	sigs := domain.NewSignalTable([]domain.OrderSide{domain.Buy, ""}, []bool{false, false})

	require.NoError(t, eng.Step(ctx, sigs, 0, barAt(start, 2000))) // SL at 1960
	crashBar := barAt(start.Add(time.Hour), 1900)
	require.NoError(t, eng.Step(ctx, sigs, 1, crashBar))

	closed := eng.ClosedTrades()
	require.Len(t, closed, 1)
	trade := closed[0]
	assert.Equal(t, domain.CloseReasonStopLoss, trade.CloseReason)
	// Fill is at the stop level, not the (worse) bar close.
	assert.InDelta(t, 1960.0, trade.ExitPrice, 1e-9)
	assert.InDelta(t, 9000+0.5*1960, eng.Balance(), 1e-9)
}

func TestStepTakeProfitClosesAtTriggerPrice(t *testing.T) {
	ctx := context.Background()
	broker := &recordBroker{}
	eng, err := New(testConfig(), broker, &mockLogger{})
	require.NoError(t, err)

	start := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	sigs := domain.NewSignalTable([]domain.OrderSide{domain.Buy, ""}, []bool{false, false})

	require.NoError(t, eng.Step(ctx, sigs, 0, barAt(start, 2000))) // TP at 2080
	require.NoError(t, eng.Step(ctx, sigs, 1, barAt(start.Add(time.Hour), 2100)))

	closed := eng.ClosedTrades()
	require.Len(t, closed, 1)
	assert.Equal(t, domain.CloseReasonTakeProfit, closed[0].CloseReason)
	assert.InDelta(t, 2080.0, closed[0].ExitPrice, 1e-9)
}

func TestStepEntryOrderFailureLeavesNoState(t *testing.T) {
	ctx := context.Background()
	broker := &recordBroker{entryErr: errors.New("rejected")}
	eng, err := New(testConfig(), broker, &mockLogger{})
	require.NoError(t, err)

	start := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	sigs := domain.NewSignalTable([]domain.OrderSide{domain.Buy}, []bool{false})

	err = eng.Step(ctx, sigs, 0, barAt(start, 2000))
	require.ErrorIs(t, err, ports.ErrOrderSubmission)
	assert.Equal(t, 0, eng.Manager().Count())
	assert.InDelta(t, 10000.0, eng.Balance(), 1e-9)
}

func TestStepExitOrderFailureLeavesTradeOpen(t *testing.T) {
	ctx := context.Background()
	broker := &recordBroker{}
	eng, err := New(testConfig(), broker, &mockLogger{})
	require.NoError(t, err)

	start := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	sigs := domain.NewSignalTable([]domain.OrderSide{domain.Buy, ""}, []bool{false, true})

	require.NoError(t, eng.Step(ctx, sigs, 0, barAt(start, 2000)))
	balanceAfterEntry := eng.Balance()

	broker.exitErr = errors.New("rejected")
	err = eng.Step(ctx, sigs, 1, barAt(start.Add(time.Hour), 2060))
	require.ErrorIs(t, err, ports.ErrOrderSubmission)

	assert.Equal(t, 1, eng.Manager().Count())
	assert.True(t, eng.Manager().FirstOpen().IsOpen())
	assert.InDelta(t, balanceAfterEntry, eng.Balance(), 1e-9)
	assert.Empty(t, eng.ClosedTrades())
}

func TestStepExitThenReentrySameBar(t *testing.T) {
	ctx := context.Background()
	broker := &recordBroker{}
	eng, err := New(testConfig(), broker, &mockLogger{})
	require.NoError(t, err)

	start := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	// Bar 1 carries both an exit for the old trade and a fresh entry.
	sigs := domain.NewSignalTable(
		[]domain.OrderSide{domain.Buy, domain.Buy},
		[]bool{false, true},
	)

	require.NoError(t, eng.Step(ctx, sigs, 0, barAt(start, 2000)))
	require.NoError(t, eng.Step(ctx, sigs, 1, barAt(start.Add(time.Hour), 2060)))

	assert.Len(t, eng.ClosedTrades(), 1)
	assert.Equal(t, 1, eng.Manager().Count())
	assert.Equal(t, "T-2", eng.Manager().FirstOpen().ID)
}

func TestCloseAll(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig()
	cfg.MaxOpenTrades = 2
	broker := &recordBroker{}
	eng, err := New(cfg, broker, &mockLogger{})
	require.NoError(t, err)

	start := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	sigs := domain.NewSignalTable([]domain.OrderSide{domain.Buy, domain.Buy}, []bool{false, false})
	require.NoError(t, eng.Step(ctx, sigs, 0, barAt(start, 2000)))
	require.NoError(t, eng.Step(ctx, sigs, 1, barAt(start.Add(time.Hour), 2010)))
	require.Equal(t, 2, eng.Manager().Count())

	exitTime := start.Add(2 * time.Hour)
	closed := eng.CloseAll(ctx, 2050, exitTime, domain.CloseReasonShutdown)
	assert.Equal(t, 2, closed)
	assert.Equal(t, 0, eng.Manager().Count())
	for _, trade := range eng.ClosedTrades() {
		assert.Equal(t, domain.CloseReasonShutdown, trade.CloseReason)
		assert.Equal(t, 2050.0, trade.ExitPrice)
		assert.Equal(t, exitTime, trade.ExitTime)
	}
}

func TestCloseAllBestEffort(t *testing.T) {
	ctx := context.Background()
	broker := &recordBroker{}
	eng, err := New(testConfig(), broker, &mockLogger{})
	require.NoError(t, err)

	start := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	sigs := domain.NewSignalTable([]domain.OrderSide{domain.Buy}, []bool{false})
	require.NoError(t, eng.Step(ctx, sigs, 0, barAt(start, 2000)))

	broker.exitErr = errors.New("rejected")
	closed := eng.CloseAll(ctx, 2050, start.Add(time.Hour), domain.CloseReasonShutdown)
	assert.Equal(t, 0, closed)
	assert.Equal(t, 1, eng.Manager().Count())
}

func TestPortfolioSnapshot(t *testing.T) {
	ctx := context.Background()
	broker := &recordBroker{}
	eng, err := New(testConfig(), broker, &mockLogger{})
	require.NoError(t, err)

	start := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	sigs := domain.NewSignalTable([]domain.OrderSide{domain.Buy, ""}, []bool{false, true})
	require.NoError(t, eng.Step(ctx, sigs, 0, barAt(start, 2000)))
	require.NoError(t, eng.Step(ctx, sigs, 1, barAt(start.Add(time.Hour), 2100)))

	p := eng.Portfolio()
	assert.Equal(t, 0, p.OpenTrades)
	assert.Equal(t, 1, p.ClosedTrades)
	assert.InDelta(t, 50.0, p.TotalPnL, 1e-9) // 0.5 * (2100 - 2000)
	assert.InDelta(t, 0.5, p.TotalPnLPercent, 1e-9)
	assert.InDelta(t, eng.Balance(), p.Balance, 1e-9)
}
