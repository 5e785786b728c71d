package sync

import (
	"context"

	"github.com/google/uuid"

	"github.com/dmfranc/stripemirror/pkg/currency"
	"github.com/dmfranc/stripemirror/pkg/db/models"
	pkgerrors "github.com/dmfranc/stripemirror/pkg/errors"
)

// SubscriptionByStripeID loads a mirrored subscription, nil when unknown.
func (s *Syncer) SubscriptionByStripeID(ctx context.Context, stripeID string) (*models.Subscription, error) {
	return firstWhere[models.Subscription](ctx, s.db, "stripe_id = ?", stripeID)
}

// Subscription folds one subscription payload into the mirror, including the
// plan reference and the multi-plan item list.
func (s *Syncer) Subscription(ctx context.Context, cust *models.Customer, p Payload) (*models.Subscription, error) {
	if cust == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "subscription sync requires a customer")
	}
	stripeID := str(p, "id")
	if stripeID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "subscription payload missing id")
	}

	sub, _, err := getOrCreate(ctx, s.db, map[string]any{"stripe_id": stripeID}, func() *models.Subscription {
		return &models.Subscription{StripeID: stripeID, CustomerID: cust.ID, Quantity: 1}
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "upserting subscription")
	}

	sub.CustomerID = cust.ID
	if has(p, "application_fee_percent") {
		sub.ApplicationFeePercent = decimalPtr(p, "application_fee_percent")
	}
	if has(p, "cancel_at_period_end") {
		sub.CancelAtPeriodEnd = boolean(p, "cancel_at_period_end")
	}
	if has(p, "canceled_at") {
		sub.CanceledAt = currency.TimestampField(p, "canceled_at")
	}
	if has(p, "current_period_start") {
		sub.CurrentPeriodStart = currency.TimestampField(p, "current_period_start")
	}
	if has(p, "current_period_end") {
		sub.CurrentPeriodEnd = currency.TimestampField(p, "current_period_end")
	}
	if has(p, "ended_at") {
		sub.EndedAt = currency.TimestampField(p, "ended_at")
	}
	if has(p, "quantity") {
		sub.Quantity = int64Val(p, "quantity")
	}
	if has(p, "start") {
		sub.Start = currency.TimestampField(p, "start")
	}
	if has(p, "status") {
		sub.Status = str(p, "status")
	}
	if has(p, "trial_start") {
		sub.TrialStart = currency.TimestampField(p, "trial_start")
	}
	if has(p, "trial_end") {
		sub.TrialEnd = currency.TimestampField(p, "trial_end")
	}

	if planPayload := subObject(p, "plan"); planPayload != nil {
		plan, err := s.Plan(ctx, planPayload)
		if err != nil {
			return nil, err
		}
		sub.PlanID = &plan.ID
	} else if has(p, "plan") && p["plan"] == nil {
		sub.PlanID = nil
	}

	if err := s.db.WithContext(ctx).Save(sub).Error; err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "saving subscription")
	}

	if has(p, "items") {
		if err := s.reconcileSubscriptionItems(ctx, sub, objectList(p, "items")); err != nil {
			return nil, err
		}
	}
	return sub, nil
}

// reconcileSubscriptionItems makes the mirrored item rows match the payload
// list exactly: present items are upserted, rows for items the processor no
// longer reports are deleted.
func (s *Syncer) reconcileSubscriptionItems(ctx context.Context, sub *models.Subscription, items []Payload) error {
	keep := make([]string, 0, len(items))
	for _, item := range items {
		itemID := str(item, "id")
		planPayload := subObject(item, "plan")
		if itemID == "" || planPayload == nil {
			continue
		}
		plan, err := s.Plan(ctx, planPayload)
		if err != nil {
			return err
		}
		row, _, err := getOrCreate(ctx, s.db, map[string]any{"stripe_id": itemID}, func() *models.SubscriptionItem {
			return &models.SubscriptionItem{
				StripeID:       itemID,
				SubscriptionID: sub.ID,
				PlanID:         plan.ID,
				Quantity:       1,
			}
		})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "upserting subscription item")
		}
		row.SubscriptionID = sub.ID
		row.PlanID = plan.ID
		if has(item, "quantity") {
			row.Quantity = int64Val(item, "quantity")
		}
		if err := s.db.WithContext(ctx).Save(row).Error; err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "saving subscription item")
		}
		keep = append(keep, itemID)
	}

	q := s.db.WithContext(ctx).Where("subscription_id = ?", sub.ID)
	if len(keep) > 0 {
		q = q.Where("stripe_id NOT IN ?", keep)
	}
	if err := q.Delete(&models.SubscriptionItem{}).Error; err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "pruning subscription items")
	}
	return nil
}

// DeleteSubscription removes the mirror row and blanks the in-memory
// lifecycle fields so the caller observes a consistently gone subscription.
func (s *Syncer) DeleteSubscription(ctx context.Context, sub *models.Subscription) error {
	if sub == nil {
		return nil
	}
	tx := s.db.WithContext(ctx)
	if err := tx.Where("subscription_id = ?", sub.ID).Delete(&models.SubscriptionItem{}).Error; err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "deleting subscription items")
	}
	if err := tx.Where("id = ?", sub.ID).Delete(&models.Subscription{}).Error; err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "deleting subscription")
	}
	sub.ClearLocal()
	return nil
}

// SubscriptionsForCustomer lists mirrored subscriptions for a customer id.
func (s *Syncer) SubscriptionsForCustomer(ctx context.Context, customerID uuid.UUID) ([]models.Subscription, error) {
	var subs []models.Subscription
	err := s.db.WithContext(ctx).
		Where("customer_id = ?", customerID).
		Order("created_at ASC").
		Find(&subs).Error
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "listing subscriptions")
	}
	return subs, nil
}
