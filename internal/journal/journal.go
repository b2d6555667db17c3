// Package journal exposes trades as a CRUD resource and carries the
// maintenance operations that re-derive stored values.
package journal

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/tradelog/journal-api/internal/contract"
	"github.com/tradelog/journal-api/internal/matching"
	"github.com/tradelog/journal-api/internal/types"
	"github.com/tradelog/journal-api/pkg/response"
)

var (
	// ErrDuplicateTrade is returned when a trade id already exists; the
	// existing record is left untouched.
	ErrDuplicateTrade = errors.New("trade already exists")
	// ErrTradeNotFound is returned when the referenced trade does not exist.
	ErrTradeNotFound = errors.New("trade not found")
)

// ValidationError marks a malformed trade payload.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// Recalculation updates pnl only when it moved by more than one cent.
const pnlTolerance = 0.01

// Service handles trade records and maintenance operations.
type Service struct {
	db *Database
}

// NewService creates a journal service with the given database connection
func NewService(gormDB *gorm.DB) *Service {
	return &Service{
		db: NewDatabase(gormDB),
	}
}

// CreateTrade validates and persists a caller-supplied trade. The direction
// is uppercased and the trade type defaulted from the timestamps when the
// caller does not supply one. A duplicate id is a conflict, not an update.
func (s *Service) CreateTrade(trade *types.Trade) error {
	if err := validateTrade(trade); err != nil {
		return err
	}

	existing, err := s.db.GetTrade(trade.ID)
	if err != nil {
		return err
	}
	if existing != nil {
		return fmt.Errorf("%w: %s", ErrDuplicateTrade, trade.ID)
	}

	trade.Direction = strings.ToUpper(trade.Direction)
	if trade.TradeType == "" {
		trade.TradeType = matching.ClassifyTradeType(&trade.EntryTime, &trade.ExitTime)
	}

	return s.db.CreateTrade(trade)
}

func validateTrade(trade *types.Trade) error {
	switch {
	case trade.ID == "":
		return &ValidationError{Message: "missing required field: id"}
	case trade.AccountID == "":
		return &ValidationError{Message: "missing required field: acc_id"}
	case trade.Symbol == "":
		return &ValidationError{Message: "missing required field: symbol"}
	case trade.Direction == "":
		return &ValidationError{Message: "missing required field: direction"}
	case trade.EntryTime.IsZero():
		return &ValidationError{Message: "missing required field: entry_time"}
	case trade.ExitTime.IsZero():
		return &ValidationError{Message: "missing required field: exit_time"}
	case trade.ExitTime.Before(trade.EntryTime):
		return &ValidationError{Message: "exit_time must not be before entry_time"}
	case trade.Quantity <= 0:
		return &ValidationError{Message: "quantity must be positive"}
	}

	direction := strings.ToUpper(trade.Direction)
	if direction != types.DirectionLong && direction != types.DirectionShort {
		return &ValidationError{Message: fmt.Sprintf("invalid direction '%s'", trade.Direction)}
	}
	return nil
}

// ListTrades returns trades matching the filter, oldest entry first.
func (s *Service) ListTrades(filter TradeFilter) ([]types.Trade, error) {
	return s.db.ListTrades(filter)
}

// TradeUpdate is the amendable subset of a trade. Nil fields are untouched.
type TradeUpdate struct {
	TradeType *string `json:"trade_type"`
	Strategy  *string `json:"strategy"`
}

// UpdateTrade amends a trade's type and/or strategy. All other fields are
// immutable through this path.
func (s *Service) UpdateTrade(tradeID string, upd TradeUpdate) (*types.Trade, error) {
	trade, err := s.db.GetTrade(tradeID)
	if err != nil {
		return nil, err
	}
	if trade == nil {
		return nil, fmt.Errorf("%w: %s", ErrTradeNotFound, tradeID)
	}

	fields := map[string]interface{}{}
	if upd.TradeType != nil {
		switch *upd.TradeType {
		case types.TradeTypeDay, types.TradeTypeSwing, types.TradeTypeLongTerm:
			fields["trade_type"] = *upd.TradeType
		default:
			return nil, &ValidationError{Message: fmt.Sprintf("invalid trade_type '%s'", *upd.TradeType)}
		}
	}
	if upd.Strategy != nil {
		fields["strategy"] = *upd.Strategy
	}
	if len(fields) == 0 {
		return trade, nil
	}

	if err := s.db.UpdateTradeFields(tradeID, fields); err != nil {
		return nil, err
	}
	return s.db.GetTrade(tradeID)
}

// RecalculateAllPnL recomputes every trade's pnl from its prices, quantity
// and the instrument multiplier, overwriting only values that moved by more
// than one cent and touching no other field. Useful after multiplier table
// changes or for trades created before multipliers existed.
func (s *Service) RecalculateAllPnL() (*types.RecalcResult, error) {
	logger := log.With().Str("service", "journal").Logger()

	trades, err := s.db.ListTrades(TradeFilter{})
	if err != nil {
		return nil, fmt.Errorf("failed to load trades: %w", err)
	}

	result := &types.RecalcResult{Total: len(trades)}
	for _, trade := range trades {
		multiplier := contract.Multiplier(trade.Symbol)
		pnl := matching.ComputePnL(trade.Direction, trade.EntryPrice, trade.ExitPrice, trade.Quantity, multiplier)

		if math.Abs(pnl-trade.PnL) <= pnlTolerance {
			result.Unchanged++
			continue
		}

		if err := s.db.UpdateTradePnL(trade.ID, pnl); err != nil {
			return nil, fmt.Errorf("failed to update pnl for trade %s: %w", trade.ID, err)
		}
		logger.Info().
			Str("trade_id", trade.ID).
			Str("symbol", trade.Symbol).
			Float64("old_pnl", trade.PnL).
			Float64("new_pnl", pnl).
			Float64("multiplier", multiplier).
			Msg("recalculated trade pnl")
		result.Updated++
	}

	logger.Info().
		Int("total", result.Total).
		Int("updated", result.Updated).
		Int("unchanged", result.Unchanged).
		Msg("pnl recalculation completed")

	return result, nil
}

// GinHandlers contains HTTP handlers for trade endpoints
type GinHandlers struct {
	service *Service
}

// NewGinHandlers creates a new set of HTTP handlers for trade endpoints
func NewGinHandlers(service *Service) *GinHandlers {
	return &GinHandlers{
		service: service,
	}
}

type createTradeRequest struct {
	ID         string  `json:"id"`
	AccountID  string  `json:"acc_id"`
	Symbol     string  `json:"symbol"`
	Direction  string  `json:"direction"`
	EntryTime  string  `json:"entry_time"`
	ExitTime   string  `json:"exit_time"`
	EntryPrice float64 `json:"entry_price"`
	ExitPrice  float64 `json:"exit_price"`
	Quantity   int     `json:"quantity"`
	PnL        float64 `json:"pnl"`
	Strategy   string  `json:"strategy"`
	TradeType  string  `json:"trade_type"`
}

// CreateTradeHandler handles POST requests to insert trades directly.
func (h *GinHandlers) CreateTradeHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req createTradeRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			response.BadRequest(c, err.Error())
			return
		}

		trade := types.Trade{
			ID:         req.ID,
			AccountID:  req.AccountID,
			Symbol:     req.Symbol,
			Direction:  req.Direction,
			EntryPrice: req.EntryPrice,
			ExitPrice:  req.ExitPrice,
			Quantity:   req.Quantity,
			PnL:        req.PnL,
			Strategy:   req.Strategy,
			TradeType:  req.TradeType,
		}
		if t := types.ParseTimestamp(req.EntryTime); t != nil {
			trade.EntryTime = *t
		}
		if t := types.ParseTimestamp(req.ExitTime); t != nil {
			trade.ExitTime = *t
		}

		if err := h.service.CreateTrade(&trade); err != nil {
			var vErr *ValidationError
			switch {
			case errors.As(err, &vErr):
				response.BadRequest(c, vErr.Message)
			case errors.Is(err, ErrDuplicateTrade):
				response.Conflict(c, err.Error())
			default:
				response.InternalError(c, err.Error())
			}
			return
		}

		response.Success(c, trade)
	}
}

// ListTradesHandler handles GET requests to list trades.
// Optional query parameters: symbol, id, acc_id
func (h *GinHandlers) ListTradesHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		trades, err := h.service.ListTrades(TradeFilter{
			ID:      c.Query("id"),
			Symbol:  c.Query("symbol"),
			Account: c.Query("acc_id"),
		})
		if err != nil {
			response.InternalError(c, err.Error())
			return
		}

		response.Success(c, gin.H{
			"count":  len(trades),
			"trades": trades,
		})
	}
}

// UpdateTradeHandler handles PATCH requests to amend a trade's type or
// strategy.
// URL parameter: trade_id
func (h *GinHandlers) UpdateTradeHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		tradeID := c.Param("trade_id")
		if tradeID == "" {
			response.BadRequest(c, "Trade ID is required")
			return
		}

		var upd TradeUpdate
		if err := c.ShouldBindJSON(&upd); err != nil {
			response.BadRequest(c, err.Error())
			return
		}

		trade, err := h.service.UpdateTrade(tradeID, upd)
		if err != nil {
			var vErr *ValidationError
			switch {
			case errors.Is(err, ErrTradeNotFound):
				response.NotFound(c, err.Error())
			case errors.As(err, &vErr):
				response.BadRequest(c, vErr.Message)
			default:
				response.InternalError(c, err.Error())
			}
			return
		}

		response.Success(c, trade)
	}
}

// RecalculatePnLHandler handles POST requests to recompute pnl for every
// stored trade. Internal route.
func (h *GinHandlers) RecalculatePnLHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		result, err := h.service.RecalculateAllPnL()
		response.Handle(c, result, err)
	}
}
