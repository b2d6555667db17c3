package ingest

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tradelog/journal-api/internal/broker"
	"github.com/tradelog/journal-api/internal/types"
)

func i64(v int64) *int64 {
	return &v
}

func testFill() broker.Fill {
	return broker.Fill{
		ID:         i64(375750491252),
		OrderID:    i64(375750491249),
		ContractID: i64(4214197),
		Timestamp:  "2026-02-17T08:39:53.889Z",
		Action:     "Sell",
		Qty:        1,
		Price:      24652.0,
	}
}

func TestNormalizeFill(t *testing.T) {
	t.Parallel()

	draft, err := normalizeFill(testFill(), 1, "default")
	require.NoError(t, err)

	assert.Equal(t, "fill-375750491252", draft.PK)
	assert.Equal(t, "375750491249", draft.OrderID)
	assert.Equal(t, types.SideSell, draft.Side)
	assert.Equal(t, 1, draft.Qty)
	assert.Equal(t, 24652.0, draft.Price)
	assert.Equal(t, "default", draft.Account)

	require.NotNil(t, draft.FillTime)
	want := time.Date(2026, 2, 17, 8, 39, 53, 889000000, time.UTC)
	assert.True(t, draft.FillTime.Equal(want))
}

func TestNormalizeFillMissingID(t *testing.T) {
	t.Parallel()

	fill := testFill()
	fill.ID = nil

	_, err := normalizeFill(fill, 3, "default")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "index 3")
	assert.Contains(t, err.Error(), "missing 'id'")
}

func TestNormalizeFillActionCanonicalized(t *testing.T) {
	t.Parallel()

	for _, action := range []string{"buy", "BUY", "Buy"} {
		fill := testFill()
		fill.Action = action

		draft, err := normalizeFill(fill, 1, "default")
		require.NoError(t, err)
		assert.Equal(t, types.SideBuy, draft.Side)
	}
}

func TestNormalizeFillInvalidAction(t *testing.T) {
	t.Parallel()

	fill := testFill()
	fill.Action = "Hold"

	_, err := normalizeFill(fill, 1, "default")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Hold")
}

func TestNormalizeFillTimestampWithoutFraction(t *testing.T) {
	t.Parallel()

	fill := testFill()
	fill.Timestamp = "2026-02-17T08:39:53"

	draft, err := normalizeFill(fill, 1, "default")
	require.NoError(t, err)
	require.NotNil(t, draft.FillTime)
	assert.True(t, draft.FillTime.Equal(time.Date(2026, 2, 17, 8, 39, 53, 0, time.UTC)))
}

func TestNormalizeFillUnparseableTimestamp(t *testing.T) {
	t.Parallel()

	fill := testFill()
	fill.Timestamp = "17/02/2026 08:39"

	// A bad timestamp is not a rejection; the draft carries a nil fill time.
	draft, err := normalizeFill(fill, 1, "default")
	require.NoError(t, err)
	assert.Nil(t, draft.FillTime)
}

func TestNormalizeFillAccountFallback(t *testing.T) {
	t.Parallel()

	fill := testFill()
	fill.AccountID = nil
	draft, err := normalizeFill(fill, 1, "ACC99")
	require.NoError(t, err)
	assert.Equal(t, "ACC99", draft.Account)

	fill.AccountID = i64(12345)
	draft, err = normalizeFill(fill, 1, "ACC99")
	require.NoError(t, err)
	assert.Equal(t, "12345", draft.Account)
}
