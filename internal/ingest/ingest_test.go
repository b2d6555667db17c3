package ingest

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/tradelog/journal-api/internal/broker"
	"github.com/tradelog/journal-api/internal/database"
	"github.com/tradelog/journal-api/internal/types"
)

type stubBroker struct {
	fills  []broker.Fill
	orders []broker.Order
	symbol string
	err    error
}

func (s *stubBroker) ListFills(ctx context.Context) ([]broker.Fill, error) {
	return s.fills, s.err
}

func (s *stubBroker) ListOrders(ctx context.Context, status string) ([]broker.Order, error) {
	return s.orders, s.err
}

func (s *stubBroker) ContractSymbol(ctx context.Context, contractID int64) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	return s.symbol, nil
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := database.New(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	return db
}

func countOrders(t *testing.T, db *gorm.DB) int64 {
	t.Helper()

	var count int64
	require.NoError(t, db.Model(&types.Order{}).Count(&count).Error)
	return count
}

func TestSaveFillsCreatesOrder(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := NewService(db, &stubBroker{symbol: "MGCG6"}, nil)

	saved, errs := svc.SaveFills(context.Background(), []broker.Fill{testFill()}, "default")
	require.Empty(t, errs)
	require.Len(t, saved, 1)

	order := saved[0]
	assert.Equal(t, "fill-375750491252", order.ID)
	assert.Equal(t, "375750491249", order.OrderID)
	assert.Equal(t, "MGC", order.Contract)
	assert.Equal(t, "Filled", order.Status)
	assert.True(t, order.IsFilled)
	assert.True(t, order.IsSell)
	assert.False(t, order.IsBuy)
	assert.False(t, order.IsMatched)
	assert.Equal(t, int64(1), countOrders(t, db))
}

func TestSaveFillsIdempotentReimport(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := NewService(db, &stubBroker{symbol: "MGCG6"}, nil)
	fills := []broker.Fill{testFill()}

	saved, errs := svc.SaveFills(context.Background(), fills, "default")
	require.Empty(t, errs)
	require.Len(t, saved, 1)

	// Importing the same fill again updates in place, it never duplicates.
	saved, errs = svc.SaveFills(context.Background(), fills, "default")
	require.Empty(t, errs)
	require.Len(t, saved, 1)
	assert.Equal(t, "fill-375750491252", saved[0].ID)
	assert.Equal(t, int64(1), countOrders(t, db))
}

func TestSaveFillsMergePrecedence(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := NewService(db, &stubBroker{symbol: "MGCG6"}, nil)

	// The same logical order entered the store earlier through a different
	// ingestion path under a different primary key scheme.
	existing := types.Order{
		ID:       "csv-1001",
		OrderID:  "375750491249",
		Account:  "default",
		Side:     types.SideSell,
		AvgPrice: 24650.0,
		IsSell:   true,
	}
	require.NoError(t, db.Create(&existing).Error)

	saved, errs := svc.SaveFills(context.Background(), []broker.Fill{testFill()}, "default")
	require.Empty(t, errs)
	require.Len(t, saved, 1)

	// The (order_id, account) match resolves to the existing logical record.
	assert.Equal(t, "csv-1001", saved[0].ID)
	assert.Equal(t, 24652.0, saved[0].AvgPrice)
	assert.Equal(t, int64(1), countOrders(t, db))
}

func TestSaveFillsLogicalMatchBeatsPrimaryKey(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := NewService(db, &stubBroker{symbol: "MGCG6"}, nil)

	byPK := types.Order{
		ID:      "fill-375750491252",
		OrderID: "some-other-order",
		Account: "default",
		Side:    types.SideSell,
		IsSell:  true,
	}
	byLogical := types.Order{
		ID:      "csv-2002",
		OrderID: "375750491249",
		Account: "default",
		Side:    types.SideSell,
		IsSell:  true,
	}
	require.NoError(t, db.Create(&byPK).Error)
	require.NoError(t, db.Create(&byLogical).Error)

	saved, errs := svc.SaveFills(context.Background(), []broker.Fill{testFill()}, "default")
	require.Empty(t, errs)
	require.Len(t, saved, 1)
	assert.Equal(t, "csv-2002", saved[0].ID)
}

func TestSaveFillsUpdatesUnsetFields(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := NewService(db, &stubBroker{symbol: "MGCG6"}, nil)

	existing := types.Order{
		ID:       "fill-375750491252",
		OrderID:  "375750491249",
		Account:  "default",
		Side:     types.SideSell,
		AvgPrice: 24000.0,
		IsSell:   true,
		// fill_time, contract and filled state all unset
	}
	require.NoError(t, db.Create(&existing).Error)

	saved, errs := svc.SaveFills(context.Background(), []broker.Fill{testFill()}, "default")
	require.Empty(t, errs)
	require.Len(t, saved, 1)

	order := saved[0]
	require.NotNil(t, order.FillTime)
	assert.True(t, order.FillTime.Equal(time.Date(2026, 2, 17, 8, 39, 53, 889000000, time.UTC)))
	assert.Equal(t, 24652.0, order.AvgPrice)
	assert.Equal(t, "MGC", order.Contract)
	assert.Equal(t, "Filled", order.Status)
	assert.True(t, order.IsFilled)
}

func TestSaveFillsSkipsInvalidAndContinues(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := NewService(db, &stubBroker{symbol: "MGCG6"}, nil)

	bad := testFill()
	bad.ID = nil
	badAction := testFill()
	badAction.ID = i64(111)
	badAction.Action = "Cancel"

	saved, errs := svc.SaveFills(context.Background(), []broker.Fill{bad, badAction, testFill()}, "default")

	require.Len(t, errs, 2)
	assert.Contains(t, errs[0], "missing 'id'")
	assert.Contains(t, errs[1], "Cancel")
	require.Len(t, saved, 1)
	assert.Equal(t, int64(1), countOrders(t, db))
}

func TestSaveFillsContractLookupFailureDegrades(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := NewService(db, &failingLookup{}, nil)

	saved, errs := svc.SaveFills(context.Background(), []broker.Fill{testFill()}, "default")
	require.Empty(t, errs)
	require.Len(t, saved, 1)
	assert.Equal(t, "", saved[0].Contract)
}

type failingLookup struct{}

func (f *failingLookup) ListFills(ctx context.Context) ([]broker.Fill, error) {
	return nil, assert.AnError
}

func (f *failingLookup) ListOrders(ctx context.Context, status string) ([]broker.Order, error) {
	return nil, assert.AnError
}

func (f *failingLookup) ContractSymbol(ctx context.Context, contractID int64) (string, error) {
	return "", assert.AnError
}

func TestSaveFillsCommitFailureIsolatesBatch(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := NewService(db, &stubBroker{symbol: "MGCG6"}, nil)

	// Force persistence failure for the whole batch.
	require.NoError(t, db.Migrator().DropTable(&types.Order{}))

	second := testFill()
	second.ID = i64(42)

	saved, errs := svc.SaveFills(context.Background(), []broker.Fill{testFill(), second}, "default")

	assert.Empty(t, saved)
	require.NotEmpty(t, errs)
	assert.Contains(t, errs[0], "database error committing fills")
}

func TestImportTradovateUsesFillAccount(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	fill := testFill()
	fill.AccountID = i64(777)
	svc := NewService(db, &stubBroker{fills: []broker.Fill{fill}, symbol: "MGCG6"}, nil)

	summary, err := svc.ImportTradovate(context.Background(), "", false)
	require.NoError(t, err)
	assert.Equal(t, "777", summary.AccountUsed)
	assert.Equal(t, 1, summary.OrdersSaved)
}

func TestImportTradovateReportsBracketGroups(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	stub := &stubBroker{
		fills:  []broker.Fill{testFill()},
		symbol: "MGCG6",
		orders: []broker.Order{
			{ID: i64(1)},
			{ID: i64(2), ParentID: i64(1)},
			{ID: i64(3), OcoID: i64(9)},
			{ID: i64(4), OcoID: i64(9)},
		},
	}
	svc := NewService(db, stub, nil)

	summary, err := svc.ImportTradovate(context.Background(), "default", false)
	require.NoError(t, err)
	assert.Equal(t, 2, summary.BracketGroups)
}
