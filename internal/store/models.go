package store

import "time"

// Customer is a persisted shop customer created from a committed import
// session or entered directly.
type Customer struct {
	ID        uint   `gorm:"primaryKey"`
	ShopID    uint   `gorm:"index"`
	Name      string `gorm:"size:256;index"`
	Phone     string `gorm:"size:32;index"`
	Email     string `gorm:"size:256;index"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Vehicle is secondary data attached to a customer. Vehicle rows are
// best-effort: losing one never rolls back its customer.
type Vehicle struct {
	ID         uint `gorm:"primaryKey"`
	CustomerID uint `gorm:"index"`
	Year       *int
	Make       string `gorm:"size:64"`
	Model      string `gorm:"size:64"`
	Trim       string `gorm:"size:64"`
	TireSize   string `gorm:"size:32"`
	Plate      string `gorm:"size:16"`
	VIN        string `gorm:"size:32;index"`
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// InventoryItem is one stocked tire line for a shop.
type InventoryItem struct {
	ID        uint   `gorm:"primaryKey"`
	ShopID    uint   `gorm:"index"`
	Brand     string `gorm:"size:128;index"`
	Model     string `gorm:"size:128"`
	Size      string `gorm:"size:64;index"`
	Quantity  int
	Price     float64
	CreatedAt time.Time
	UpdatedAt time.Time
}

// ImportRecord is the audit row written after each successful commit.
type ImportRecord struct {
	ID         uint   `gorm:"primaryKey"`
	ShopID     uint   `gorm:"index"`
	ImportType string `gorm:"size:32;index"`
	Method     string `gorm:"size:16"`
	RowCount   int
	CreatedAt  time.Time `gorm:"autoCreateTime"`
}
