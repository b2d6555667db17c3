package journal

import (
	"errors"

	"gorm.io/gorm"

	"github.com/tradelog/journal-api/internal/types"
)

type Database struct {
	db *gorm.DB
}

func NewDatabase(db *gorm.DB) *Database {
	return &Database{db: db}
}

func (d *Database) GetTrade(tradeID string) (*types.Trade, error) {
	var trade types.Trade
	if err := d.db.Where("id = ?", tradeID).First(&trade).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &trade, nil
}

func (d *Database) CreateTrade(trade *types.Trade) error {
	return d.db.Create(trade).Error
}

// TradeFilter narrows a trade listing. Empty fields are ignored.
type TradeFilter struct {
	ID      string
	Symbol  string
	Account string
}

func (d *Database) ListTrades(filter TradeFilter) ([]types.Trade, error) {
	query := d.db.Model(&types.Trade{})
	if filter.ID != "" {
		query = query.Where("id = ?", filter.ID)
	}
	if filter.Symbol != "" {
		query = query.Where("symbol = ?", filter.Symbol)
	}
	if filter.Account != "" {
		query = query.Where("acc_id = ?", filter.Account)
	}

	var trades []types.Trade
	if err := query.Order("entry_time").Find(&trades).Error; err != nil {
		return nil, err
	}
	return trades, nil
}

// UpdateTradeFields applies a partial update to one trade row.
func (d *Database) UpdateTradeFields(tradeID string, fields map[string]interface{}) error {
	return d.db.Model(&types.Trade{}).Where("id = ?", tradeID).Updates(fields).Error
}

// UpdateTradePnL overwrites only the pnl column; re-derivation must not
// alter any other field.
func (d *Database) UpdateTradePnL(tradeID string, pnl float64) error {
	return d.db.Model(&types.Trade{}).Where("id = ?", tradeID).Update("pnl", pnl).Error
}

func (d *Database) CountTrades() (int64, error) {
	var count int64
	err := d.db.Model(&types.Trade{}).Count(&count).Error
	return count, err
}

func (d *Database) CountOrders() (int64, error) {
	var count int64
	err := d.db.Model(&types.Order{}).Count(&count).Error
	return count, err
}

// Wipe deletes every trade and order in one transaction. Administrative
// path only; the reconciliation core never deletes records.
func (d *Database) Wipe() error {
	return d.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("1 = 1").Delete(&types.Trade{}).Error; err != nil {
			return err
		}
		return tx.Where("1 = 1").Delete(&types.Order{}).Error
	})
}
