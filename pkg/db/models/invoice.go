package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Invoice mirrors a Stripe invoice. Paid implies closed; all amounts are
// scaled per the invoice currency.
type Invoice struct {
	ID                  uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	StripeID            string          `gorm:"column:stripe_id;not null;unique"`
	CustomerID          uuid.UUID       `gorm:"column:customer_id;type:uuid;not null;index"`
	SubscriptionID      *uuid.UUID      `gorm:"column:subscription_id;type:uuid"`
	ChargeID            *uuid.UUID      `gorm:"column:charge_id;type:uuid"`
	AmountDue           decimal.Decimal `gorm:"column:amount_due;type:numeric(9,2)"`
	Subtotal            decimal.Decimal `gorm:"column:subtotal;type:numeric(9,2)"`
	Total               decimal.Decimal `gorm:"column:total;type:numeric(9,2)"`
	Currency            string          `gorm:"column:currency;default:'usd'"`
	PeriodStart         *time.Time      `gorm:"column:period_start"`
	PeriodEnd           *time.Time      `gorm:"column:period_end"`
	Date                *time.Time      `gorm:"column:date"`
	Closed              bool            `gorm:"column:closed;not null;default:false"`
	Paid                bool            `gorm:"column:paid;not null;default:false"`
	Attempted           *bool           `gorm:"column:attempted"`
	AttemptCount        *int            `gorm:"column:attempt_count"`
	StatementDescriptor string          `gorm:"column:statement_descriptor;default:''"`
	ReceiptNumber       string          `gorm:"column:receipt_number;default:''"`
	CreatedAt           time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt           time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

// InvoiceItem mirrors one line on an invoice. Line ids repeat across invoices
// (subscription lines reuse the subscription id), so uniqueness is scoped to
// the owning invoice.
type InvoiceItem struct {
	ID             uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	StripeID       string          `gorm:"column:stripe_id;not null;uniqueIndex:idx_invoice_items_invoice_line"`
	InvoiceID      uuid.UUID       `gorm:"column:invoice_id;type:uuid;not null;uniqueIndex:idx_invoice_items_invoice_line"`
	PlanID         *uuid.UUID      `gorm:"column:plan_id;type:uuid"`
	SubscriptionID *uuid.UUID      `gorm:"column:subscription_id;type:uuid"`
	Amount         decimal.Decimal `gorm:"column:amount;type:numeric(9,2)"`
	Currency       string          `gorm:"column:currency;default:'usd'"`
	PeriodStart    *time.Time      `gorm:"column:period_start"`
	PeriodEnd      *time.Time      `gorm:"column:period_end"`
	Proration      bool            `gorm:"column:proration;not null;default:false"`
	LineType       string          `gorm:"column:line_type"`
	Description    string          `gorm:"column:description;default:''"`
	Quantity       *int64          `gorm:"column:quantity"`
	CreatedAt      time.Time       `gorm:"column:created_at;autoCreateTime"`
}
