package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Product mirrors a Stripe relay product.
type Product struct {
	ID          uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	StripeID    string          `gorm:"column:stripe_id;not null;unique"`
	Name        string          `gorm:"column:name"`
	Active      bool            `gorm:"column:active;not null;default:true"`
	Caption     string          `gorm:"column:caption;default:''"`
	Description string          `gorm:"column:description;default:''"`
	Shippable   bool            `gorm:"column:shippable;not null;default:false"`
	URL         string          `gorm:"column:url;default:''"`
	Metadata    json.RawMessage `gorm:"column:metadata;type:jsonb"`
	CreatedAt   time.Time       `gorm:"column:created_at;autoCreateTime"`
}

// SKU mirrors a purchasable variant of a product.
type SKU struct {
	ID         uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	StripeID   string          `gorm:"column:stripe_id;not null;unique"`
	ProductID  uuid.UUID       `gorm:"column:product_id;type:uuid;not null;index"`
	Active     bool            `gorm:"column:active;not null;default:true"`
	Attributes json.RawMessage `gorm:"column:attributes;type:jsonb"`
	Price      decimal.Decimal `gorm:"column:price;type:numeric(9,2)"`
	Currency   string          `gorm:"column:currency;default:'usd'"`
	Image      string          `gorm:"column:image;default:''"`
	Inventory  json.RawMessage `gorm:"column:inventory;type:jsonb"`
	CreatedAt  time.Time       `gorm:"column:created_at;autoCreateTime"`
}

// Order mirrors a Stripe relay order.
type Order struct {
	ID         uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	StripeID   string          `gorm:"column:stripe_id;not null;unique"`
	CustomerID *uuid.UUID      `gorm:"column:customer_id;type:uuid;index"`
	Amount     decimal.Decimal `gorm:"column:amount;type:numeric(9,2)"`
	Currency   string          `gorm:"column:currency;default:'usd'"`
	Status     string          `gorm:"column:status"`
	Email      string          `gorm:"column:email;default:''"`
	CreatedAt  time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

// OrderItem is one line on an order.
type OrderItem struct {
	ID          uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID     uuid.UUID       `gorm:"column:order_id;type:uuid;not null;index"`
	Parent      string          `gorm:"column:parent;default:''"`
	LineType    string          `gorm:"column:line_type"`
	Description string          `gorm:"column:description;default:''"`
	Amount      decimal.Decimal `gorm:"column:amount;type:numeric(9,2)"`
	Currency    string          `gorm:"column:currency;default:'usd'"`
	Quantity    *int64          `gorm:"column:quantity"`
	CreatedAt   time.Time       `gorm:"column:created_at;autoCreateTime"`
}
