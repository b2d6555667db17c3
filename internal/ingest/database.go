package ingest

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

// Transaction runs fn against a transactional view of the database. All
// staged creations and updates commit together; any error rolls the whole
// batch back.
func (d *Database) Transaction(fn func(tx *Database) error) error {
	return d.db.Transaction(func(tx *gorm.DB) error {
		return fn(&Database{db: tx})
	})
}

func (d *Database) GetOrderByID(id string) (*types.Order, error) {
	var order types.Order
	if err := d.db.Where("id = ?", id).First(&order).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &order, nil
}

// GetOrderByOrderIDAndAccount finds the logical order for a broker order id
// within an account, which may have entered the store through a different
// ingestion path under a different primary key scheme.
func (d *Database) GetOrderByOrderIDAndAccount(orderID, account string) (*types.Order, error) {
	var order types.Order
	if err := d.db.Where("order_id = ? AND account = ?", orderID, account).First(&order).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &order, nil
}

func (d *Database) CreateOrder(order *types.Order) error {
	return d.db.Create(order).Error
}

func (d *Database) SaveOrder(order *types.Order) error {
	return d.db.Save(order).Error
}
