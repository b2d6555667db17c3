package journal

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/tradelog/journal-api/internal/database"
	"github.com/tradelog/journal-api/internal/types"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := database.New(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	return db
}

func testTrade(id string) *types.Trade {
	return &types.Trade{
		ID:         id,
		AccountID:  "ACC01",
		Symbol:     "MGC",
		Direction:  types.DirectionLong,
		EntryTime:  time.Date(2026, 2, 17, 9, 30, 0, 0, time.UTC),
		ExitTime:   time.Date(2026, 2, 17, 15, 45, 0, 0, time.UTC),
		EntryPrice: 4231.5,
		ExitPrice:  4500.0,
		Quantity:   1,
		PnL:        2685.0,
	}
}

func TestCreateTrade(t *testing.T) {
	svc := NewService(newTestDB(t))

	trade := testTrade("TRADE001")
	require.NoError(t, svc.CreateTrade(trade))

	// Trade type was defaulted from the same-day timestamps.
	assert.Equal(t, types.TradeTypeDay, trade.TradeType)

	stored, err := svc.db.GetTrade("TRADE001")
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, "MGC", stored.Symbol)
	assert.Equal(t, types.TradeTypeDay, stored.TradeType)
}

func TestCreateTradeMultiDayDefaultsToSwing(t *testing.T) {
	svc := NewService(newTestDB(t))

	trade := testTrade("TRADE001")
	trade.ExitTime = trade.EntryTime.AddDate(0, 0, 3)
	require.NoError(t, svc.CreateTrade(trade))
	assert.Equal(t, types.TradeTypeSwing, trade.TradeType)
}

func TestCreateTradeUppercasesDirection(t *testing.T) {
	svc := NewService(newTestDB(t))

	trade := testTrade("TRADE001")
	trade.Direction = "long"
	require.NoError(t, svc.CreateTrade(trade))
	assert.Equal(t, types.DirectionLong, trade.Direction)
}

func TestCreateTradeDuplicateIDConflicts(t *testing.T) {
	svc := NewService(newTestDB(t))

	require.NoError(t, svc.CreateTrade(testTrade("TRADE001")))

	dup := testTrade("TRADE001")
	dup.Symbol = "MNQ"
	err := svc.CreateTrade(dup)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrDuplicateTrade))

	// The stored record was not overwritten.
	stored, err := svc.db.GetTrade("TRADE001")
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, "MGC", stored.Symbol)
}

func TestCreateTradeValidation(t *testing.T) {
	svc := NewService(newTestDB(t))

	tests := []struct {
		name   string
		mutate func(*types.Trade)
	}{
		{"missing id", func(tr *types.Trade) { tr.ID = "" }},
		{"missing account", func(tr *types.Trade) { tr.AccountID = "" }},
		{"missing symbol", func(tr *types.Trade) { tr.Symbol = "" }},
		{"missing direction", func(tr *types.Trade) { tr.Direction = "" }},
		{"missing entry time", func(tr *types.Trade) { tr.EntryTime = time.Time{} }},
		{"missing exit time", func(tr *types.Trade) { tr.ExitTime = time.Time{} }},
		{"exit before entry", func(tr *types.Trade) { tr.ExitTime = tr.EntryTime.Add(-time.Hour) }},
		{"zero quantity", func(tr *types.Trade) { tr.Quantity = 0 }},
		{"bad direction", func(tr *types.Trade) { tr.Direction = "SIDEWAYS" }},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			trade := testTrade("TRADE_INVALID")
			tc.mutate(trade)

			err := svc.CreateTrade(trade)
			require.Error(t, err)
			var vErr *ValidationError
			assert.True(t, errors.As(err, &vErr))
		})
	}
}

func TestListTradesFilters(t *testing.T) {
	svc := NewService(newTestDB(t))

	first := testTrade("TRADE001")
	require.NoError(t, svc.CreateTrade(first))

	second := testTrade("TRADE002")
	second.Symbol = "MNQ"
	second.AccountID = "ACC02"
	second.EntryTime = first.EntryTime.Add(time.Hour)
	require.NoError(t, svc.CreateTrade(second))

	all, err := svc.ListTrades(TradeFilter{})
	require.NoError(t, err)
	require.Len(t, all, 2)
	// Oldest entry first.
	assert.Equal(t, "TRADE001", all[0].ID)

	bySymbol, err := svc.ListTrades(TradeFilter{Symbol: "MNQ"})
	require.NoError(t, err)
	require.Len(t, bySymbol, 1)
	assert.Equal(t, "TRADE002", bySymbol[0].ID)

	byAccount, err := svc.ListTrades(TradeFilter{Account: "ACC01"})
	require.NoError(t, err)
	require.Len(t, byAccount, 1)
	assert.Equal(t, "TRADE001", byAccount[0].ID)

	byID, err := svc.ListTrades(TradeFilter{ID: "TRADE002"})
	require.NoError(t, err)
	require.Len(t, byID, 1)

	none, err := svc.ListTrades(TradeFilter{Symbol: "ES"})
	require.NoError(t, err)
	assert.Empty(t, none)
}

func strPtr(s string) *string { return &s }

func TestUpdateTrade(t *testing.T) {
	svc := NewService(newTestDB(t))
	require.NoError(t, svc.CreateTrade(testTrade("TRADE001")))

	updated, err := svc.UpdateTrade("TRADE001", TradeUpdate{
		TradeType: strPtr(types.TradeTypeSwing),
		Strategy:  strPtr("breakout"),
	})
	require.NoError(t, err)
	assert.Equal(t, types.TradeTypeSwing, updated.TradeType)
	assert.Equal(t, "breakout", updated.Strategy)

	// Everything else is untouched.
	assert.Equal(t, "MGC", updated.Symbol)
	assert.Equal(t, 2685.0, updated.PnL)
}

func TestUpdateTradeInvalidType(t *testing.T) {
	svc := NewService(newTestDB(t))
	require.NoError(t, svc.CreateTrade(testTrade("TRADE001")))

	_, err := svc.UpdateTrade("TRADE001", TradeUpdate{TradeType: strPtr("scalp")})
	require.Error(t, err)
	var vErr *ValidationError
	assert.True(t, errors.As(err, &vErr))
}

func TestUpdateTradeNotFound(t *testing.T) {
	svc := NewService(newTestDB(t))

	_, err := svc.UpdateTrade("MISSING", TradeUpdate{Strategy: strPtr("breakout")})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrTradeNotFound))
}

func TestUpdateTradeNoFieldsIsNoop(t *testing.T) {
	svc := NewService(newTestDB(t))
	require.NoError(t, svc.CreateTrade(testTrade("TRADE001")))

	trade, err := svc.UpdateTrade("TRADE001", TradeUpdate{})
	require.NoError(t, err)
	assert.Equal(t, "TRADE001", trade.ID)
}

func TestRecalculateAllPnL(t *testing.T) {
	svc := NewService(newTestDB(t))

	// Stored without the contract multiplier applied.
	stale := testTrade("TRADE001")
	stale.PnL = 268.5
	stale.Strategy = "breakout"
	require.NoError(t, svc.CreateTrade(stale))

	// Already correct within tolerance.
	fresh := testTrade("TRADE002")
	fresh.PnL = 2685.005
	fresh.EntryTime = stale.EntryTime.Add(time.Hour)
	require.NoError(t, svc.CreateTrade(fresh))

	result, err := svc.RecalculateAllPnL()
	require.NoError(t, err)
	assert.Equal(t, 2, result.Total)
	assert.Equal(t, 1, result.Updated)
	assert.Equal(t, 1, result.Unchanged)

	updated, err := svc.db.GetTrade("TRADE001")
	require.NoError(t, err)
	assert.InDelta(t, 2685.0, updated.PnL, 1e-9)
	// Only pnl is rewritten.
	assert.Equal(t, "breakout", updated.Strategy)

	unchanged, err := svc.db.GetTrade("TRADE002")
	require.NoError(t, err)
	assert.InDelta(t, 2685.005, unchanged.PnL, 1e-9)
}

func TestRecalculateAllPnLShort(t *testing.T) {
	svc := NewService(newTestDB(t))

	trade := testTrade("TRADE001")
	trade.Direction = types.DirectionShort
	trade.EntryPrice = 4550.0
	trade.ExitPrice = 4400.0
	trade.PnL = 150.0
	require.NoError(t, svc.CreateTrade(trade))

	result, err := svc.RecalculateAllPnL()
	require.NoError(t, err)
	assert.Equal(t, 1, result.Updated)

	updated, err := svc.db.GetTrade("TRADE001")
	require.NoError(t, err)
	assert.InDelta(t, 1500.0, updated.PnL, 1e-9)
}
