package database

import (
	"fmt"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tradelog/journal-api/internal/types"
)

// New initializes a GORM connection at the given path, migrates the order
// and trade schemas and creates the lookup indexes the reconciler and
// matcher rely on.
func New(path string) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}

	if err := db.AutoMigrate(&types.Order{}, &types.Trade{}); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	// Raw SQL for index creation to have control over the index shapes.
	indexes := []string{
		// Reconciler lookup by logical order within an account
		`CREATE INDEX IF NOT EXISTS idx_orders_logical
		 ON orders(order_id, account)`,

		// Matcher candidate scan
		`CREATE INDEX IF NOT EXISTS idx_orders_matching
		 ON orders(account, is_filled, is_matched)`,

		// Trade listing filters
		`CREATE INDEX IF NOT EXISTS idx_trades_symbol
		 ON trades(symbol)`,

		`CREATE INDEX IF NOT EXISTS idx_trades_account
		 ON trades(acc_id)`,

		// Time-ordered trade queries
		`CREATE INDEX IF NOT EXISTS idx_trades_entry_time
		 ON trades(entry_time)`,
	}

	for _, idx := range indexes {
		if err := db.Exec(idx).Error; err != nil {
			return nil, err
		}
	}

	return db, nil
}
