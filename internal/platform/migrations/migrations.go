package migrations

import (
	"time"

	"github.com/lib/pq"
	"gorm.io/gorm"
)

// Run applies the schema for the bounded contexts. Intended to replace adapter-level automigrate.
func Run(db *gorm.DB) error {
	if db == nil {
		return nil
	}
	return db.AutoMigrate(
		&userRecord{},
		&productRecord{},
		&orderRecord{},
		&idempotencyRecord{},
	)
}

// User schema mirrors the users Postgres adapter.
type userRecord struct {
	ID        string    `gorm:"primaryKey;column:id;size:36"`
	Email     string    `gorm:"column:email;uniqueIndex"`
	FullName  string    `gorm:"column:full_name"`
	Phone     string    `gorm:"column:phone"`
	Status    string    `gorm:"column:status;type:varchar(32);index"`
	CreatedAt time.Time `gorm:"column:created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at"`
}

func (userRecord) TableName() string { return "users" }

// Product schema mirrors the products Postgres adapter.
type productRecord struct {
	ID             string         `gorm:"primaryKey;column:id;size:36"`
	SKU            string         `gorm:"column:sku;uniqueIndex"`
	Name           string         `gorm:"column:name"`
	Description    string         `gorm:"column:description"`
	UnitPriceCents int64          `gorm:"column:unit_price_cents"`
	Tags           pq.StringArray `gorm:"column:tags;type:text[]"`
	Status         string         `gorm:"column:status;type:varchar(32);index"`
	StockLevel     int32          `gorm:"column:stock_level"`
	CreatedAt      time.Time      `gorm:"column:created_at"`
	UpdatedAt      time.Time      `gorm:"column:updated_at"`
}

func (productRecord) TableName() string { return "products" }

// Order schema mirrors the orders Postgres adapter. Lines live in a jsonb
// column since they are read only through the aggregate.
type orderLine struct {
	ProductID      string `json:"product_id"`
	Quantity       int32  `json:"quantity"`
	UnitPriceCents int64  `json:"unit_price_cents"`
}

type orderRecord struct {
	ID        string      `gorm:"primaryKey;column:id;size:36"`
	UserID    string      `gorm:"column:user_id;size:36;index"`
	Lines     []orderLine `gorm:"column:lines;type:jsonb;serializer:json"`
	Status    string      `gorm:"column:status;type:varchar(32);index"`
	PlacedAt  time.Time   `gorm:"column:placed_at"`
	CreatedAt time.Time   `gorm:"column:created_at"`
	UpdatedAt time.Time   `gorm:"column:updated_at"`
}

func (orderRecord) TableName() string { return "orders" }

// Idempotency key schema mirrors the orders idempotency store.
type idempotencyRecord struct {
	Key         string    `gorm:"primaryKey;column:key;size:255"`
	RequestHash string    `gorm:"column:request_hash;size:128"`
	OrderID     string    `gorm:"column:order_id;size:36"`
	CreatedAt   time.Time `gorm:"column:created_at"`
	UpdatedAt   time.Time `gorm:"column:updated_at"`
}

func (idempotencyRecord) TableName() string { return "order_idempotency_keys" }
