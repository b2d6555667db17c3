package matching

import (
	"time"

	"github.com/tradelog/journal-api/internal/types"
)

// ComputePnL returns the signed profit or loss for a round trip. The
// multiplier is the dollar value of one point of price movement for the
// instrument. Bulk recalculation reuses exactly this formula.
func ComputePnL(direction string, entryPrice, exitPrice float64, quantity int, multiplier float64) float64 {
	if direction == types.DirectionShort {
		return (entryPrice - exitPrice) * float64(quantity) * multiplier
	}
	return (exitPrice - entryPrice) * float64(quantity) * multiplier
}

// ClassifyTradeType labels a trade from its entry and exit timestamps:
// same calendar date is a day trade, anything else (including unknown
// timestamps) is a swing. "long_term" is never assigned automatically; it is
// only reachable through an explicit trade update.
func ClassifyTradeType(entryTime, exitTime *time.Time) string {
	if entryTime == nil || exitTime == nil {
		return types.TradeTypeSwing
	}

	ey, em, ed := entryTime.Date()
	xy, xm, xd := exitTime.Date()
	if ey == xy && em == xm && ed == xd {
		return types.TradeTypeDay
	}
	return types.TradeTypeSwing
}
