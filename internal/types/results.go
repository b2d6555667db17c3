package types

// MatchResult is the outcome of one matching pass over an account.
// TradesMatched counts the orders newly consumed by the pass.
type MatchResult struct {
	TradesCreated     int      `json:"trades_created"`
	TradesMatched     int      `json:"trades_matched"`
	FilledOrdersCount int      `json:"filled_orders_count"`
	Errors            []string `json:"errors,omitempty"`
}

// RecalcResult summarizes a bulk PnL recalculation run.
type RecalcResult struct {
	Total     int `json:"total"`
	Updated   int `json:"updated"`
	Unchanged int `json:"unchanged"`
}
