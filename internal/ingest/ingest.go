// Package ingest turns raw broker fills into durable order records. Each
// fill is normalized, then reconciled against prior imports so repeated,
// partial or out-of-order re-imports of the same broker data never produce
// duplicate orders.
package ingest

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/tradelog/journal-api/internal/broker"
	"github.com/tradelog/journal-api/internal/contract"
	"github.com/tradelog/journal-api/internal/types"
	"github.com/tradelog/journal-api/pkg/response"
)

// DefaultAccount is used when neither the fills nor the caller name one.
const DefaultAccount = "default"

// BrokerAPI is the slice of the broker client the ingestion workflow needs.
type BrokerAPI interface {
	ListFills(ctx context.Context) ([]broker.Fill, error)
	ListOrders(ctx context.Context, status string) ([]broker.Order, error)
	ContractSymbol(ctx context.Context, contractID int64) (string, error)
}

// Matcher pairs opposing-side filled orders into trades after an import.
type Matcher interface {
	MatchOrders(account string) types.MatchResult
}

// Service reconciles broker fills into the persistent order set.
type Service struct {
	db      *Database
	broker  BrokerAPI
	matcher Matcher

	// Imports for the same account must not interleave or duplicate trades
	// can be created from the same fills. Serialized with one mutex per
	// account.
	mu       sync.Mutex
	accounts map[string]*sync.Mutex
}

// NewService creates an ingestion service. The broker may be nil for callers
// that supply fills directly (contract resolution then degrades to an empty
// symbol). The matcher may be nil when auto-matching is never requested.
func NewService(gormDB *gorm.DB, brokerAPI BrokerAPI, matcher Matcher) *Service {
	return &Service{
		db:       NewDatabase(gormDB),
		broker:   brokerAPI,
		matcher:  matcher,
		accounts: make(map[string]*sync.Mutex),
	}
}

func (s *Service) accountLock(account string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, ok := s.accounts[account]
	if !ok {
		m = &sync.Mutex{}
		s.accounts[account] = m
	}
	return m
}

// SaveFills normalizes and reconciles one batch of broker fills for an
// account. Per-fill validation failures are collected as warnings and the
// rest of the batch continues; all creations and updates commit as a single
// transaction, and a failed commit reports zero saved orders with the commit
// failure reason first in the error list.
func (s *Service) SaveFills(ctx context.Context, fills []broker.Fill, account string) ([]types.Order, []string) {
	logger := log.With().
		Str("service", "ingest").
		Str("account", account).
		Int("fills", len(fills)).
		Logger()

	var (
		saved []types.Order
		errs  []string
	)

	if len(fills) == 0 {
		return saved, errs
	}

	txErr := s.db.Transaction(func(tx *Database) error {
		for i, fill := range fills {
			draft, err := normalizeFill(fill, i+1, account)
			if err != nil {
				errs = append(errs, err.Error())
				continue
			}

			order, err := s.reconcile(ctx, tx, draft)
			if err != nil {
				return err
			}
			saved = append(saved, *order)
		}
		return nil
	})
	if txErr != nil {
		logger.Error().Err(txErr).Msg("failed to commit fill batch")
		errs = append([]string{fmt.Sprintf("database error committing fills: %v", txErr)}, errs...)
		return nil, errs
	}

	logger.Info().
		Int("saved", len(saved)).
		Int("warnings", len(errs)).
		Msg("saved fill batch")

	return saved, errs
}

// reconcile merges one normalized draft into the order set: update the
// existing record when the fill or its logical order is already known,
// otherwise stage a new order.
func (s *Service) reconcile(ctx context.Context, tx *Database, draft *orderDraft) (*types.Order, error) {
	existing, err := tx.GetOrderByID(draft.PK)
	if err != nil {
		return nil, err
	}

	var logical *types.Order
	if draft.OrderID != "" {
		logical, err = tx.GetOrderByOrderIDAndAccount(draft.OrderID, draft.Account)
		if err != nil {
			return nil, err
		}
	}

	// When both lookups hit different rows the (order_id, account) match is
	// the canonical logical order and wins over the fill-id key.
	target := existing
	if logical != nil {
		target = logical
	}

	if target == nil {
		order := &types.Order{
			ID:         draft.PK,
			OrderID:    draft.OrderID,
			Account:    draft.Account,
			Side:       draft.Side,
			AvgPrice:   draft.Price,
			FilledQty:  draft.Qty,
			FillTime:   draft.FillTime,
			Status:     "Filled",
			IsFilled:   true,
			IsBuy:      draft.Side == types.SideBuy,
			IsSell:     draft.Side == types.SideSell,
			IsMatched:  false,
			RawPayload: draft.RawPayload,
		}
		if draft.ContractID != nil {
			order.Contract = s.resolveContract(ctx, *draft.ContractID)
		}
		if err := tx.CreateOrder(order); err != nil {
			return nil, err
		}
		return order, nil
	}

	// Update only fields that are unset or have changed. The record counts
	// as processed either way.
	if target.FillTime == nil && draft.FillTime != nil {
		target.FillTime = draft.FillTime
	}
	if draft.Price != target.AvgPrice {
		target.AvgPrice = draft.Price
	}
	if draft.Qty != target.FilledQty {
		target.FilledQty = draft.Qty
	}
	if !target.IsFilled {
		target.Status = "Filled"
		target.IsFilled = true
	}
	if target.Contract == "" && draft.ContractID != nil {
		target.Contract = s.resolveContract(ctx, *draft.ContractID)
	}
	if err := tx.SaveOrder(target); err != nil {
		return nil, err
	}
	return target, nil
}

// resolveContract maps a broker contract id to a canonical root symbol. A
// failed lookup degrades to an empty contract rather than failing the fill;
// the order can be enriched on a later import.
func (s *Service) resolveContract(ctx context.Context, contractID int64) string {
	if s.broker == nil {
		return ""
	}

	symbol, err := s.broker.ContractSymbol(ctx, contractID)
	if err != nil {
		log.Warn().
			Err(err).
			Int64("contract_id", contractID).
			Msg("contract lookup failed, leaving contract unset")
		return ""
	}
	return contract.Root(symbol)
}

// ImportSummary is the outcome of one full import cycle.
type ImportSummary struct {
	OrdersSaved       int      `json:"orders_saved"`
	BracketGroups     int      `json:"bracket_groups"`
	TradesCreated     int      `json:"trades_created"`
	TradesMatched     int      `json:"trades_matched"`
	FilledOrdersCount int      `json:"filled_orders_count"`
	AccountUsed       string   `json:"account_used"`
	Errors            []string `json:"errors,omitempty"`
}

// ImportTradovate runs the full pipeline for one account: fetch fills from
// the broker, reconcile them into orders and, when requested, match the
// resulting filled orders into trades. Concurrent imports for the same
// account are serialized.
func (s *Service) ImportTradovate(ctx context.Context, account string, autoMatch bool) (*ImportSummary, error) {
	if s.broker == nil {
		return nil, fmt.Errorf("no broker client configured")
	}

	fills, err := s.broker.ListFills(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch fills: %w", err)
	}

	if account == "" {
		account = DefaultAccount
		if len(fills) > 0 && fills[0].AccountID != nil {
			account = strconv.FormatInt(*fills[0].AccountID, 10)
		}
	}

	lock := s.accountLock(account)
	lock.Lock()
	defer lock.Unlock()

	saved, errs := s.SaveFills(ctx, fills, account)

	summary := &ImportSummary{
		OrdersSaved: len(saved),
		AccountUsed: account,
		Errors:      errs,
	}
	summary.BracketGroups = s.groupOrders(ctx, account)

	if autoMatch && s.matcher != nil {
		match := s.matcher.MatchOrders(account)
		summary.TradesCreated = match.TradesCreated
		summary.TradesMatched = match.TradesMatched
		summary.FilledOrdersCount = match.FilledOrdersCount
		summary.Errors = append(summary.Errors, match.Errors...)
	}

	return summary, nil
}

// groupOrders recomputes the bracket/oco groups from the broker's current
// order list. The grouping is advisory scoping only and never persisted; a
// failed order fetch degrades to zero groups rather than failing the import.
func (s *Service) groupOrders(ctx context.Context, account string) int {
	orders, err := s.broker.ListOrders(ctx, "Filled")
	if err != nil {
		log.Warn().
			Err(err).
			Str("account", account).
			Msg("order fetch failed, skipping bracket grouping")
		return 0
	}

	groups := BuildBracketGroups(orders)
	for key, ids := range groups {
		log.Debug().
			Str("account", account).
			Str("group", key).
			Ints64("order_ids", ids).
			Msg("bracket group")
	}
	return len(groups)
}

// GinHandlers contains HTTP handlers for import endpoints
type GinHandlers struct {
	service *Service
}

// NewGinHandlers creates a new set of HTTP handlers for import endpoints
func NewGinHandlers(service *Service) *GinHandlers {
	return &GinHandlers{
		service: service,
	}
}

type importRequest struct {
	Account   string `json:"account"`
	AutoMatch bool   `json:"auto_match"`
}

// ImportTradovateHandler handles POST requests to import fills from the
// broker and reconcile them into orders and trades.
// Request body: {"account": "...", "auto_match": true}
func (h *GinHandlers) ImportTradovateHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req importRequest
		if c.Request.ContentLength > 0 {
			if err := c.ShouldBindJSON(&req); err != nil {
				response.BadRequest(c, err.Error())
				return
			}
		}

		summary, err := h.service.ImportTradovate(c.Request.Context(), req.Account, req.AutoMatch)
		response.Handle(c, summary, err)
	}
}
