package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Subscription statuses as reported by Stripe.
const (
	SubscriptionStatusTrialing = "trialing"
	SubscriptionStatusActive   = "active"
	SubscriptionStatusPastDue  = "past_due"
	SubscriptionStatusCanceled = "canceled"
	SubscriptionStatusUnpaid   = "unpaid"
)

// Subscription mirrors a Stripe subscription. It is owned by a local Customer
// and, for Connect platforms, optionally scoped to a stripe Account.
type Subscription struct {
	ID                    uuid.UUID        `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	StripeID              string           `gorm:"column:stripe_id;not null;unique"`
	CustomerID            uuid.UUID        `gorm:"column:customer_id;type:uuid;not null;index"`
	PlanID                *uuid.UUID       `gorm:"column:plan_id;type:uuid"`
	StripeAccountID       *uuid.UUID       `gorm:"column:stripe_account_id;type:uuid"`
	ApplicationFeePercent *decimal.Decimal `gorm:"column:application_fee_percent;type:numeric(5,2)"`
	CancelAtPeriodEnd     bool             `gorm:"column:cancel_at_period_end;not null;default:false"`
	CanceledAt            *time.Time       `gorm:"column:canceled_at"`
	CurrentPeriodStart    *time.Time       `gorm:"column:current_period_start"`
	CurrentPeriodEnd      *time.Time       `gorm:"column:current_period_end"`
	EndedAt               *time.Time       `gorm:"column:ended_at"`
	Quantity              int64            `gorm:"column:quantity;not null;default:1"`
	Start                 *time.Time       `gorm:"column:start"`
	Status                string           `gorm:"column:status;index"`
	TrialStart            *time.Time       `gorm:"column:trial_start"`
	TrialEnd              *time.Time       `gorm:"column:trial_end"`
	CreatedAt             time.Time        `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt             time.Time        `gorm:"column:updated_at;autoUpdateTime"`
}

// IsStatusCurrent reports whether the subscription status grants access.
func (s *Subscription) IsStatusCurrent() bool {
	return s.Status == SubscriptionStatusTrialing || s.Status == SubscriptionStatusActive
}

// IsPeriodCurrent reports whether the current billing period has not yet
// elapsed.
func (s *Subscription) IsPeriodCurrent() bool {
	return s.CurrentPeriodEnd != nil && s.CurrentPeriodEnd.After(time.Now().UTC())
}

// IsValid is the canonical validity predicate consumed by the access gate:
// status is current, and a pending cancellation has not run out its period.
func (s *Subscription) IsValid() bool {
	if !s.IsStatusCurrent() {
		return false
	}
	if s.CancelAtPeriodEnd && !s.IsPeriodCurrent() {
		return false
	}
	return true
}

// ClearLocal blanks the lifecycle fields after the mirror row is deleted so
// handlers still holding a reference observe a consistently gone entity.
func (s *Subscription) ClearLocal() {
	s.Status = ""
	s.PlanID = nil
	s.Quantity = 0
}

// SubscriptionItem mirrors one plan line on a multi-plan subscription.
type SubscriptionItem struct {
	ID             uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	StripeID       string    `gorm:"column:stripe_id;not null;unique"`
	SubscriptionID uuid.UUID `gorm:"column:subscription_id;type:uuid;not null;uniqueIndex:idx_sub_items_sub_plan"`
	PlanID         uuid.UUID `gorm:"column:plan_id;type:uuid;not null;uniqueIndex:idx_sub_items_sub_plan"`
	Quantity       int64     `gorm:"column:quantity;not null;default:1"`
	CreatedAt      time.Time `gorm:"column:created_at;autoCreateTime"`
}
