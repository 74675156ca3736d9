package store

import (
	"errors"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Database wraps the GORM DB handle and exposes repository helpers.
type Database struct {
	gorm *gorm.DB
	mu   sync.Mutex
}

// Open initializes the SQLite-backed database at the provided path.
func Open(path string, silent bool) (*Database, error) {
	cfg := &gorm.Config{}
	if silent {
		cfg.Logger = logger.Default.LogMode(logger.Silent)
	}
	db, err := gorm.Open(sqlite.Open(path), cfg)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.AutoMigrate(&Customer{}, &Vehicle{}, &InventoryItem{}, &ImportRecord{}); err != nil {
		return nil, fmt.Errorf("auto migrate: %w", err)
	}
	if err := db.Exec("PRAGMA journal_mode=WAL").Error; err != nil {
		logrus.WithError(err).Warn("enable WAL mode")
	}
	if err := db.Exec("PRAGMA synchronous=NORMAL").Error; err != nil {
		logrus.WithError(err).Warn("set synchronous pragma")
	}
	if err := applyIndexes(db); err != nil {
		return nil, fmt.Errorf("apply indexes: %w", err)
	}
	return &Database{gorm: db}, nil
}

// GORM exposes the raw gorm.DB handle.
func (d *Database) GORM() *gorm.DB {
	return d.gorm
}

// Close closes the underlying database connection.
func (d *Database) Close() error {
	if d == nil {
		return nil
	}
	sqlDB, err := d.gorm.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func applyIndexes(db *gorm.DB) error {
	stmts := []string{
		"CREATE INDEX IF NOT EXISTS idx_customers_shop_phone ON customers(shop_id, phone)",
		"CREATE INDEX IF NOT EXISTS idx_customers_shop_email ON customers(shop_id, email)",
		"CREATE INDEX IF NOT EXISTS idx_inventory_items_shop_brand_size ON inventory_items(shop_id, brand, size)",
		"CREATE INDEX IF NOT EXISTS idx_import_records_shop_created ON import_records(shop_id, created_at)",
	}
	for _, stmt := range stmts {
		if err := db.Exec(stmt).Error; err != nil {
			return err
		}
	}
	return nil
}

// CreateCustomers inserts the batch in one call and returns the created rows
// with generated identifiers. GORM fills IDs back into the slice in submission
// order, which the import commit relies on for positional vehicle linkage.
// Any failure aborts the whole batch; no partial customer persistence.
func (d *Database) CreateCustomers(customers []Customer) ([]Customer, error) {
	if len(customers) == 0 {
		return nil, errors.New("empty customer batch")
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.gorm.Create(&customers).Error; err != nil {
		return nil, err
	}
	return customers, nil
}

// CreateVehicles inserts vehicle rows. Vehicle data is secondary; the caller
// logs failures and moves on.
func (d *Database) CreateVehicles(vehicles []Vehicle) error {
	if len(vehicles) == 0 {
		return nil
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.gorm.Create(&vehicles).Error
}

// ListInventoryItems returns every inventory row for the shop.
func (d *Database) ListInventoryItems(shopID uint) ([]InventoryItem, error) {
	var items []InventoryItem
	if err := d.gorm.Where("shop_id = ?", shopID).Order("id ASC").Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

// CreateInventoryItems batch-inserts inventory rows.
func (d *Database) CreateInventoryItems(items []InventoryItem) error {
	if len(items) == 0 {
		return nil
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.gorm.CreateInBatches(&items, 250).Error
}

// CreateInventoryItem inserts a single inventory row.
func (d *Database) CreateInventoryItem(item *InventoryItem) error {
	if item == nil {
		return errors.New("inventory item is nil")
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.gorm.Create(item).Error
}

// UpdateInventoryItem point-updates quantity and price by identifier.
func (d *Database) UpdateInventoryItem(id uint, quantity int, price float64) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	result := d.gorm.Model(&InventoryItem{}).
		Where("id = ?", id).
		Updates(map[string]any{"quantity": quantity, "price": price})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("inventory item %d not found", id)
	}
	return nil
}

// CreateImportRecord writes the audit row for a committed import.
func (d *Database) CreateImportRecord(record *ImportRecord) error {
	if record == nil {
		return errors.New("import record is nil")
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.gorm.Create(record).Error
}

// CountCustomers returns the number of customers for a shop.
func (d *Database) CountCustomers(shopID uint) (int64, error) {
	var count int64
	if err := d.gorm.Model(&Customer{}).Where("shop_id = ?", shopID).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// CountInventoryItems returns the number of inventory rows for a shop.
func (d *Database) CountInventoryItems(shopID uint) (int64, error) {
	var count int64
	if err := d.gorm.Model(&InventoryItem{}).Where("shop_id = ?", shopID).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// ListImportRecords returns recent import audit rows for a shop.
func (d *Database) ListImportRecords(shopID uint, limit int) ([]ImportRecord, error) {
	query := d.gorm.Where("shop_id = ?", shopID).Order("created_at DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	var records []ImportRecord
	if err := query.Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}
