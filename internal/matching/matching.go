// Package matching pairs opposing-side filled orders into completed
// round-trip trades with computed profit/loss.
package matching

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/tradelog/journal-api/internal/contract"
	"github.com/tradelog/journal-api/internal/types"
	"github.com/tradelog/journal-api/pkg/id"
)

// Service matches unmatched filled orders into trades.
type Service struct {
	db *Database
}

// NewService creates a matching service with the given database connection
func NewService(gormDB *gorm.DB) *Service {
	return &Service{
		db: NewDatabase(gormDB),
	}
}

// MatchOrders pairs the account's unmatched filled orders into trades. Within
// each contract, the earliest unmatched order becomes an entry and the
// earliest opposing-side order with a later-or-equal fill time becomes its
// exit; orders with unknown fill times sort last and pair only with each
// other. Both orders are consumed entirely and the trade quantity is the
// minimum of the two filled quantities; a quantity remainder is not split
// into a follow-up trade. Orders left without an opposing side stay
// unmatched and are retried on the next invocation.
func (s *Service) MatchOrders(account string) types.MatchResult {
	logger := log.With().
		Str("service", "matching").
		Str("account", account).
		Logger()

	var result types.MatchResult

	orders, err := s.db.GetUnmatchedFilledOrders(account)
	if err != nil {
		logger.Error().Err(err).Msg("failed to load matching candidates")
		result.Errors = append(result.Errors, fmt.Sprintf("failed to load orders: %v", err))
		return result
	}
	result.FilledOrdersCount = len(orders)

	byContract := make(map[string][]*types.Order)
	var contracts []string
	for i := range orders {
		o := &orders[i]
		if _, seen := byContract[o.Contract]; !seen {
			contracts = append(contracts, o.Contract)
		}
		byContract[o.Contract] = append(byContract[o.Contract], o)
	}
	sort.Strings(contracts)

	for _, symbol := range contracts {
		s.matchContract(symbol, byContract[symbol], &result)
	}

	logger.Info().
		Int("filled_orders", result.FilledOrdersCount).
		Int("trades_created", result.TradesCreated).
		Int("orders_consumed", result.TradesMatched).
		Msg("matching pass completed")

	return result
}

// matchContract pairs orders within one contract scope.
func (s *Service) matchContract(symbol string, orders []*types.Order, result *types.MatchResult) {
	sortByFillTime(orders)

	consumed := make([]bool, len(orders))
	for i, entry := range orders {
		if consumed[i] {
			continue
		}

		exitIdx := -1
		for j, exit := range orders {
			if j == i || consumed[j] || exit.IsBuy == entry.IsBuy {
				continue
			}
			if laterOrEqual(entry, exit) {
				exitIdx = j
				break
			}
		}
		if exitIdx < 0 {
			// No opposing order left; the entry stays unmatched and is
			// retried on the next invocation.
			continue
		}
		exit := orders[exitIdx]

		trade, err := s.buildTrade(symbol, entry, exit)
		if err != nil {
			result.Errors = append(result.Errors, err.Error())
			continue
		}

		if err := s.db.SaveTradePair(trade, entry.ID, exit.ID); err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("failed to save trade for orders %s/%s: %v", entry.ID, exit.ID, err))
			continue
		}

		consumed[i] = true
		consumed[exitIdx] = true
		result.TradesCreated++
		result.TradesMatched += 2
	}
}

// buildTrade assembles the trade record for one entry/exit pair.
func (s *Service) buildTrade(symbol string, entry, exit *types.Order) (*types.Trade, error) {
	direction := types.DirectionLong
	if entry.IsSell {
		direction = types.DirectionShort
	}

	quantity := entry.FilledQty
	if exit.FilledQty < quantity {
		quantity = exit.FilledQty
	}

	trade := &types.Trade{
		ID:         id.New(),
		AccountID:  entry.Account,
		Symbol:     symbol,
		Direction:  direction,
		EntryPrice: entry.AvgPrice,
		ExitPrice:  exit.AvgPrice,
		Quantity:   quantity,
		PnL:        ComputePnL(direction, entry.AvgPrice, exit.AvgPrice, quantity, contract.Multiplier(symbol)),
		TradeType:  ClassifyTradeType(entry.FillTime, exit.FillTime),
	}
	if entry.FillTime != nil {
		trade.EntryTime = *entry.FillTime
	}
	if exit.FillTime != nil {
		trade.ExitTime = *exit.FillTime
	}

	orderIDs, err := json.Marshal([]string{entry.ID, exit.ID})
	if err != nil {
		return nil, fmt.Errorf("failed to encode order ids for orders %s/%s: %v", entry.ID, exit.ID, err)
	}
	trade.OrderIDs = orderIDs

	return trade, nil
}

// sortByFillTime orders candidates by fill time ascending. Unknown fill
// times sort last; ties break on the order id so the pass is deterministic.
func sortByFillTime(orders []*types.Order) {
	sort.SliceStable(orders, func(i, j int) bool {
		ti, tj := orders[i].FillTime, orders[j].FillTime
		switch {
		case ti == nil && tj == nil:
			return orders[i].ID < orders[j].ID
		case ti == nil:
			return false
		case tj == nil:
			return true
		case ti.Equal(*tj):
			return orders[i].ID < orders[j].ID
		default:
			return ti.Before(*tj)
		}
	})
}

// laterOrEqual reports whether exit's fill time is at or after entry's. An
// unknown exit time counts as latest; a time-known exit cannot close an
// entry with an unknown time.
func laterOrEqual(entry, exit *types.Order) bool {
	if exit.FillTime == nil {
		return true
	}
	if entry.FillTime == nil {
		return false
	}
	return !exit.FillTime.Before(*entry.FillTime)
}
