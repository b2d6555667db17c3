package matching

import (
	"gorm.io/gorm"

	"github.com/tradelog/journal-api/internal/types"
)

type Database struct {
	db *gorm.DB
}

func NewDatabase(db *gorm.DB) *Database {
	return &Database{db: db}
}

// GetUnmatchedFilledOrders returns the matching candidates for an account:
// every filled order that has not yet been consumed by a trade.
func (d *Database) GetUnmatchedFilledOrders(account string) ([]types.Order, error) {
	var orders []types.Order
	err := d.db.
		Where("account = ? AND is_filled = ? AND is_matched = ?", account, true, false).
		Find(&orders).Error
	if err != nil {
		return nil, err
	}
	return orders, nil
}

// SaveTradePair persists a new trade and consumes its two source orders in a
// single transaction, so a matched order can never exist without its trade.
func (d *Database) SaveTradePair(trade *types.Trade, entryID, exitID string) error {
	return d.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(trade).Error; err != nil {
			return err
		}
		return tx.Model(&types.Order{}).
			Where("id IN ?", []string{entryID, exitID}).
			Update("is_matched", true).Error
	})
}
