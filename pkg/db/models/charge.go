package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Charge mirrors a Stripe charge. AmountRefunded never exceeds Amount, and a
// fully refunded charge reports AmountRefunded == Amount.
type Charge struct {
	ID                    uuid.UUID        `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	StripeID              string           `gorm:"column:stripe_id;not null;unique"`
	CustomerID            uuid.UUID        `gorm:"column:customer_id;type:uuid;not null;index"`
	InvoiceID             *uuid.UUID       `gorm:"column:invoice_id;type:uuid"`
	Source                string           `gorm:"column:source;default:''"`
	StripeAccountStripeID string           `gorm:"column:stripe_account_stripe_id;default:''"`
	Currency              string           `gorm:"column:currency;default:'usd'"`
	Amount                *decimal.Decimal `gorm:"column:amount;type:numeric(9,2)"`
	AmountRefunded        *decimal.Decimal `gorm:"column:amount_refunded;type:numeric(9,2)"`
	Description           string           `gorm:"column:description;default:''"`
	Paid                  *bool            `gorm:"column:paid"`
	Disputed              *bool            `gorm:"column:disputed"`
	Refunded              *bool            `gorm:"column:refunded"`
	Captured              *bool            `gorm:"column:captured"`
	Fee                   *decimal.Decimal `gorm:"column:fee;type:numeric(9,2)"`
	ReceiptSent           bool             `gorm:"column:receipt_sent;not null;default:false"`
	ChargeCreated         *time.Time       `gorm:"column:charge_created"`
	CreatedAt             time.Time        `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt             time.Time        `gorm:"column:updated_at;autoUpdateTime"`
}

// EligibleRefundAmount is how much of the charge can still be refunded.
func (c *Charge) EligibleRefundAmount() decimal.Decimal {
	amount := decimal.Zero
	if c.Amount != nil {
		amount = *c.Amount
	}
	refunded := decimal.Zero
	if c.AmountRefunded != nil {
		refunded = *c.AmountRefunded
	}
	return amount.Sub(refunded)
}
