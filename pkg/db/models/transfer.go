package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Transfer mirrors a Stripe transfer. Status is authoritative from the most
// recent event observed.
type Transfer struct {
	ID          uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	StripeID    string          `gorm:"column:stripe_id;not null;uniqueIndex:idx_transfers_stripe_id_event"`
	EventID     *uuid.UUID      `gorm:"column:event_id;type:uuid;uniqueIndex:idx_transfers_stripe_id_event"`
	Amount      decimal.Decimal `gorm:"column:amount;type:numeric(9,2)"`
	Currency    string          `gorm:"column:currency;default:'usd'"`
	Status      string          `gorm:"column:status"`
	Date        *time.Time      `gorm:"column:date"`
	Description string          `gorm:"column:description;default:''"`
	Destination string          `gorm:"column:destination;default:''"`

	AdjustmentCount   *int             `gorm:"column:adjustment_count"`
	AdjustmentFees    *decimal.Decimal `gorm:"column:adjustment_fees;type:numeric(9,2)"`
	AdjustmentGross   *decimal.Decimal `gorm:"column:adjustment_gross;type:numeric(9,2)"`
	ChargeCount       *int             `gorm:"column:charge_count"`
	ChargeFees        *decimal.Decimal `gorm:"column:charge_fees;type:numeric(9,2)"`
	ChargeGross       *decimal.Decimal `gorm:"column:charge_gross;type:numeric(9,2)"`
	CollectedFeeCount *int             `gorm:"column:collected_fee_count"`
	CollectedFeeGross *decimal.Decimal `gorm:"column:collected_fee_gross;type:numeric(9,2)"`
	Net               *decimal.Decimal `gorm:"column:net;type:numeric(9,2)"`
	RefundCount       *int             `gorm:"column:refund_count"`
	RefundFees        *decimal.Decimal `gorm:"column:refund_fees;type:numeric(9,2)"`
	RefundGross       *decimal.Decimal `gorm:"column:refund_gross;type:numeric(9,2)"`
	ValidationCount   *int             `gorm:"column:validation_count"`
	ValidationFees    *decimal.Decimal `gorm:"column:validation_fees;type:numeric(9,2)"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// TransferChargeFee is one fee detail line on a transfer summary.
type TransferChargeFee struct {
	ID          uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	TransferID  uuid.UUID       `gorm:"column:transfer_id;type:uuid;not null;index"`
	Amount      decimal.Decimal `gorm:"column:amount;type:numeric(9,2)"`
	Currency    string          `gorm:"column:currency;default:'usd'"`
	Application string          `gorm:"column:application;default:''"`
	Description string          `gorm:"column:description;default:''"`
	Kind        string          `gorm:"column:kind"`
	CreatedAt   time.Time       `gorm:"column:created_at;autoCreateTime"`
}
