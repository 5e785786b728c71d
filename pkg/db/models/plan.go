package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Plan mirrors a Stripe billing plan. Pricing is only ever changed through
// Stripe-side updates flowing back in via sync.
type Plan struct {
	ID                  uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	StripeID            string          `gorm:"column:stripe_id;not null;unique"`
	Amount              decimal.Decimal `gorm:"column:amount;type:numeric(9,2)"`
	Currency            string          `gorm:"column:currency;default:''"`
	Interval            string          `gorm:"column:interval"`
	IntervalCount       int             `gorm:"column:interval_count"`
	Name                string          `gorm:"column:name"`
	StatementDescriptor string          `gorm:"column:statement_descriptor;default:''"`
	TrialPeriodDays     *int            `gorm:"column:trial_period_days"`
	Metadata            json.RawMessage `gorm:"column:metadata;type:jsonb"`
	CreatedAt           time.Time       `gorm:"column:created_at;autoCreateTime"`
}

// Coupon mirrors a Stripe coupon. Exactly one of AmountOff / PercentOff is
// set; DurationInMonths is only present for repeating coupons.
type Coupon struct {
	ID               uuid.UUID        `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	StripeID         string           `gorm:"column:stripe_id;not null;uniqueIndex:idx_coupons_stripe_id_account"`
	StripeAccountID  *uuid.UUID       `gorm:"column:stripe_account_id;type:uuid;uniqueIndex:idx_coupons_stripe_id_account"`
	AmountOff        *decimal.Decimal `gorm:"column:amount_off;type:numeric(9,2)"`
	PercentOff       *int             `gorm:"column:percent_off"`
	Currency         string           `gorm:"column:currency;default:''"`
	Duration         string           `gorm:"column:duration;default:'once'"`
	DurationInMonths *int             `gorm:"column:duration_in_months"`
	Livemode         bool             `gorm:"column:livemode;not null;default:false"`
	MaxRedemptions   *int             `gorm:"column:max_redemptions"`
	Metadata         json.RawMessage  `gorm:"column:metadata;type:jsonb"`
	RedeemBy         *time.Time       `gorm:"column:redeem_by"`
	TimesRedeemed    *int             `gorm:"column:times_redeemed"`
	Valid            bool             `gorm:"column:valid;not null;default:false"`
	CreatedAt        time.Time        `gorm:"column:created_at;autoCreateTime"`
}

// Discount attaches a coupon to a customer for a period.
type Discount struct {
	ID         uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	CustomerID uuid.UUID  `gorm:"column:customer_id;type:uuid;not null;unique"`
	CouponID   uuid.UUID  `gorm:"column:coupon_id;type:uuid;not null"`
	Start      *time.Time `gorm:"column:start"`
	End        *time.Time `gorm:"column:end"`
	CreatedAt  time.Time  `gorm:"column:created_at;autoCreateTime"`
}
