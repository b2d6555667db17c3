package ingest

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"gorm.io/datatypes"

	"github.com/tradelog/journal-api/internal/broker"
	"github.com/tradelog/journal-api/internal/types"
)

// orderDraft is a validated, normalized broker fill ready for reconciliation
// against the persisted order set. Nothing downstream of the normalizer
// handles raw broker payloads.
type orderDraft struct {
	PK         string // primary key, "fill-<fillID>"
	OrderID    string
	Account    string
	Side       string // exactly "Buy" or "Sell"
	Qty        int
	Price      float64
	FillTime   *time.Time
	ContractID *int64
	RawPayload datatypes.JSON
}

// normalizeFill converts one raw broker fill into an order draft. A missing
// fill id or an unrecognizable action is a rejection, not an exception; the
// caller skips the fill and continues the batch. An unparseable timestamp is
// not a rejection: the draft simply carries a nil fill time.
func normalizeFill(fill broker.Fill, index int, defaultAccount string) (*orderDraft, error) {
	if fill.ID == nil {
		return nil, fmt.Errorf("fill at index %d: missing 'id'", index)
	}

	action := canonicalAction(fill.Action)
	if action != types.SideBuy && action != types.SideSell {
		return nil, fmt.Errorf("fill %d: invalid action '%s'", *fill.ID, fill.Action)
	}

	draft := &orderDraft{
		PK:         fmt.Sprintf("fill-%d", *fill.ID),
		Side:       action,
		Qty:        fill.Qty,
		Price:      fill.Price,
		FillTime:   types.ParseTimestamp(fill.Timestamp),
		ContractID: fill.ContractID,
		Account:    defaultAccount,
	}

	if fill.OrderID != nil {
		draft.OrderID = strconv.FormatInt(*fill.OrderID, 10)
	}
	if fill.AccountID != nil {
		draft.Account = strconv.FormatInt(*fill.AccountID, 10)
	}

	// Retain the source payload for audit and debugging.
	if raw, err := json.Marshal(fill); err == nil {
		draft.RawPayload = raw
	}

	return draft, nil
}

// canonicalAction maps case variants like "buy" or "SELL" onto the two
// canonical side values.
func canonicalAction(action string) string {
	a := strings.TrimSpace(action)
	if a == "" {
		return ""
	}
	return strings.ToUpper(a[:1]) + strings.ToLower(a[1:])
}
