package types

import (
	"time"

	"gorm.io/datatypes"
)

// Order side values as they come from the broker.
const (
	SideBuy  = "Buy"
	SideSell = "Sell"
)

// Trade directions.
const (
	DirectionLong  = "LONG"
	DirectionShort = "SHORT"
)

// Trade type labels. LongTerm is never assigned automatically; it is only
// reachable through an explicit trade update.
const (
	TradeTypeDay      = "day_trade"
	TradeTypeSwing    = "swing"
	TradeTypeLongTerm = "long_term"
)

// Order is one side of one execution, built from a single broker fill.
// Broker-sourced rows use the primary key "fill-<fillID>". The JSON field
// names are the external contract consumed by the API and admin tooling.
type Order struct {
	ID         string         `gorm:"primaryKey" json:"id"`
	OrderID    string         `gorm:"index:idx_orders_order_account" json:"order_id"`
	Account    string         `gorm:"index:idx_orders_order_account" json:"account"`
	Side       string         `json:"side"` // Buy or Sell
	Contract   string         `json:"contract"`
	AvgPrice   float64        `json:"avg_price"`
	FilledQty  int            `json:"filled_qty"`
	FillTime   *time.Time     `json:"fill_time"`
	Status     string         `json:"status"`
	IsFilled   bool           `json:"is_filled"`
	IsBuy      bool           `json:"is_buy"`
	IsSell     bool           `json:"is_sell"`
	IsMatched  bool           `json:"is_matched"`
	RawPayload datatypes.JSON `json:"raw_payload,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
}

// Trade is one completed round trip: an entry order paired with an
// opposing-side exit order on the same contract and account.
type Trade struct {
	ID         string         `gorm:"primaryKey" json:"id"`
	AccountID  string         `gorm:"column:acc_id;index" json:"acc_id"`
	Symbol     string         `gorm:"index" json:"symbol"`
	Direction  string         `json:"direction"` // LONG or SHORT
	EntryTime  time.Time      `json:"entry_time"`
	ExitTime   time.Time      `json:"exit_time"`
	EntryPrice float64        `json:"entry_price"`
	ExitPrice  float64        `json:"exit_price"`
	Quantity   int            `json:"quantity"`
	PnL        float64        `gorm:"column:pnl" json:"pnl"`
	Strategy   string         `json:"strategy,omitempty"`
	TradeType  string         `json:"trade_type"`
	OrderIDs   datatypes.JSON `json:"order_ids,omitempty"` // audit back-reference, not ownership
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
}
