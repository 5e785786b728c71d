package actions

import (
	"context"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stripe/stripe-go/v84"

	"github.com/dmfranc/stripemirror/pkg/db/models"
	pkgerrors "github.com/dmfranc/stripemirror/pkg/errors"
)

// SubscriptionItemInput is one plan line on a multi-plan subscription.
type SubscriptionItemInput struct {
	PlanStripeID string
	Quantity     *int64
}

// CreateSubscriptionInput describes a new subscription. Exactly one of
// PlanStripeID and Items must be set.
type CreateSubscriptionInput struct {
	CustomerStripeID      string
	PlanStripeID          string
	Items                 []SubscriptionItemInput
	Quantity              *int64
	TrialDays             *int
	TrialEnd              *time.Time
	Coupon                string
	TaxPercent            *decimal.Decimal
	ChargeImmediately     bool
	ApplicationFeePercent *decimal.Decimal
	AccountStripeID       string
}

// CreateSubscription subscribes a mirrored customer at the processor and
// mirrors the confirmed subscription. Charging immediately ends any trial at
// creation time.
func (s *Service) CreateSubscription(ctx context.Context, input CreateSubscriptionInput) (*models.Subscription, error) {
	if input.CustomerStripeID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "customer id required")
	}
	if (input.PlanStripeID == "") == (len(input.Items) == 0) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "exactly one of plan or items must be provided")
	}

	cust, err := s.Syncer(nil).CustomerByStripeID(ctx, input.CustomerStripeID)
	if err != nil {
		return nil, err
	}
	if cust == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "customer not mirrored locally")
	}

	params := &stripe.SubscriptionParams{
		Customer: stripe.String(input.CustomerStripeID),
	}
	if input.PlanStripeID != "" {
		quantity := s.hooks.AdjustSubscriptionQuantity(ctx, cust, input.PlanStripeID, input.Quantity)
		params.Items = []*stripe.SubscriptionItemsParams{{
			Plan:     stripe.String(input.PlanStripeID),
			Quantity: stripe.Int64(quantity),
		}}
	} else {
		for _, item := range input.Items {
			quantity := s.hooks.AdjustSubscriptionQuantity(ctx, cust, item.PlanStripeID, item.Quantity)
			params.Items = append(params.Items, &stripe.SubscriptionItemsParams{
				Plan:     stripe.String(item.PlanStripeID),
				Quantity: stripe.Int64(quantity),
			})
		}
	}
	if input.Coupon != "" {
		params.AddExtra("coupon", input.Coupon)
	}
	applyTaxPercent(params, input.TaxPercent, s.cfg.Billing.SubscriptionTaxPercent)
	if input.ApplicationFeePercent != nil {
		v, _ := input.ApplicationFeePercent.Float64()
		params.ApplicationFeePercent = stripe.Float64(v)
	}
	if input.AccountStripeID != "" {
		params.SetStripeAccount(input.AccountStripeID)
	}

	switch {
	case input.ChargeImmediately:
		// end any trial now so the first invoice bills right away
		params.TrialEnd = stripe.Int64(time.Now().UTC().Unix())
	case input.TrialEnd != nil:
		params.TrialEnd = stripe.Int64(input.TrialEnd.Unix())
	case input.TrialDays != nil && *input.TrialDays > 0:
		params.TrialEnd = stripe.Int64(time.Now().UTC().AddDate(0, 0, *input.TrialDays).Unix())
	}

	payload, err := s.api.CreateSubscription(ctx, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "creating subscription")
	}
	return s.Syncer(nil).Subscription(ctx, cust, payload)
}

// UpdateSubscriptionInput carries the mutable subscription fields.
type UpdateSubscriptionInput struct {
	PlanStripeID      string
	Quantity          *int64
	Prorate           *bool
	Coupon            string
	ChargeImmediately bool
}

// UpdateSubscription pushes changes to the processor and mirrors the result.
func (s *Service) UpdateSubscription(ctx context.Context, subStripeID string, input UpdateSubscriptionInput) (*models.Subscription, error) {
	_, cust, err := s.loadSubscription(ctx, subStripeID)
	if err != nil {
		return nil, err
	}

	params := &stripe.SubscriptionParams{}
	if input.PlanStripeID != "" || input.Quantity != nil {
		item := &stripe.SubscriptionItemsParams{}
		if input.PlanStripeID != "" {
			item.Plan = stripe.String(input.PlanStripeID)
		}
		if input.Quantity != nil {
			quantity := s.hooks.AdjustSubscriptionQuantity(ctx, cust, input.PlanStripeID, input.Quantity)
			item.Quantity = stripe.Int64(quantity)
		}
		params.Items = []*stripe.SubscriptionItemsParams{item}
	}
	if input.Coupon != "" {
		params.AddExtra("coupon", input.Coupon)
	}
	if input.Prorate != nil {
		if *input.Prorate {
			params.ProrationBehavior = stripe.String("create_prorations")
		} else {
			params.ProrationBehavior = stripe.String("none")
		}
	}
	if input.ChargeImmediately {
		params.TrialEnd = stripe.Int64(time.Now().UTC().Unix())
	}

	payload, err := s.api.UpdateSubscription(ctx, subStripeID, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "updating subscription")
	}
	return s.Syncer(nil).Subscription(ctx, cust, payload)
}

// ReplaceItems reconciles the subscription's plan lines at the processor with
// the desired set: plans already on the subscription keep their line (with the
// requested quantity), new plans are added, and lines for plans no longer
// desired are removed. The confirmed subscription is then re-mirrored.
func (s *Service) ReplaceItems(ctx context.Context, subStripeID string, desired []SubscriptionItemInput) (*models.Subscription, error) {
	if len(desired) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "at least one item required")
	}
	sub, cust, err := s.loadSubscription(ctx, subStripeID)
	if err != nil {
		return nil, err
	}

	type itemRow struct {
		StripeID     string
		PlanStripeID string
	}
	var rows []itemRow
	err = s.db.DB().WithContext(ctx).
		Table("subscription_items").
		Select("subscription_items.stripe_id AS stripe_id, plans.stripe_id AS plan_stripe_id").
		Joins("JOIN plans ON plans.id = subscription_items.plan_id").
		Where("subscription_items.subscription_id = ?", sub.ID).
		Scan(&rows).Error
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading subscription items")
	}
	current := make(map[string]string, len(rows))
	for _, r := range rows {
		current[r.PlanStripeID] = r.StripeID
	}

	want := make(map[string]bool, len(desired))
	params := &stripe.SubscriptionParams{}
	for _, item := range desired {
		if item.PlanStripeID == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "item plan id required")
		}
		want[item.PlanStripeID] = true
		quantity := s.hooks.AdjustSubscriptionQuantity(ctx, cust, item.PlanStripeID, item.Quantity)
		line := &stripe.SubscriptionItemsParams{Quantity: stripe.Int64(quantity)}
		if itemID, ok := current[item.PlanStripeID]; ok {
			line.ID = stripe.String(itemID)
		} else {
			line.Plan = stripe.String(item.PlanStripeID)
		}
		params.Items = append(params.Items, line)
	}
	for _, r := range rows {
		if !want[r.PlanStripeID] {
			params.Items = append(params.Items, &stripe.SubscriptionItemsParams{
				ID:      stripe.String(r.StripeID),
				Deleted: stripe.Bool(true),
			})
		}
	}

	payload, err := s.api.UpdateSubscription(ctx, subStripeID, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "replacing subscription items")
	}
	return s.Syncer(nil).Subscription(ctx, cust, payload)
}

// CancelSubscription cancels at the processor. Canceling at period end is an
// update that flags the subscription; immediate cancellation deletes it
// upstream, and the mirror row follows via the deletion webhook or the
// response here.
func (s *Service) CancelSubscription(ctx context.Context, subStripeID string, atPeriodEnd bool) (*models.Subscription, error) {
	_, cust, err := s.loadSubscription(ctx, subStripeID)
	if err != nil {
		return nil, err
	}

	if atPeriodEnd {
		params := &stripe.SubscriptionParams{CancelAtPeriodEnd: stripe.Bool(true)}
		payload, err := s.api.UpdateSubscription(ctx, subStripeID, params)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "scheduling subscription cancellation")
		}
		return s.Syncer(nil).Subscription(ctx, cust, payload)
	}

	payload, err := s.api.CancelSubscription(ctx, subStripeID, &stripe.SubscriptionCancelParams{})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "canceling subscription")
	}
	return s.Syncer(nil).Subscription(ctx, cust, payload)
}

// DeleteSubscriptionLocal removes the mirror row after an upstream deletion
// and clears the in-memory lifecycle fields.
func (s *Service) DeleteSubscriptionLocal(ctx context.Context, sub *models.Subscription) error {
	return s.Syncer(nil).DeleteSubscription(ctx, sub)
}

// HasActiveSubscription reports whether the customer holds any valid
// subscription. Customers with no mirror row at all are treated as valid so
// deployments that never gate access keep working.
func (s *Service) HasActiveSubscription(ctx context.Context, cust *models.Customer) (bool, error) {
	if cust == nil {
		return true, nil
	}
	subs, err := s.Syncer(nil).SubscriptionsForCustomer(ctx, cust.ID)
	if err != nil {
		return false, err
	}
	if len(subs) == 0 {
		return false, nil
	}
	for i := range subs {
		if subs[i].IsValid() {
			return true, nil
		}
	}
	return false, nil
}

func (s *Service) loadSubscription(ctx context.Context, subStripeID string) (*models.Subscription, *models.Customer, error) {
	if subStripeID == "" {
		return nil, nil, pkgerrors.New(pkgerrors.CodeValidation, "subscription id required")
	}
	syncer := s.Syncer(nil)
	sub, err := syncer.SubscriptionByStripeID(ctx, subStripeID)
	if err != nil {
		return nil, nil, err
	}
	if sub == nil {
		return nil, nil, pkgerrors.New(pkgerrors.CodeNotFound, "subscription not mirrored locally")
	}
	var cust models.Customer
	if err := s.db.DB().WithContext(ctx).Where("id = ?", sub.CustomerID).First(&cust).Error; err != nil {
		return nil, nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading subscription customer")
	}
	return sub, &cust, nil
}

// applyTaxPercent pins the legacy tax_percent parameter, which the mirrored
// API version still accepts, without depending on a typed field for it.
func applyTaxPercent(params *stripe.SubscriptionParams, requested *decimal.Decimal, configured decimal.Decimal) {
	percent := configured
	if requested != nil {
		percent = *requested
	}
	if percent.IsZero() {
		return
	}
	v, _ := percent.Float64()
	params.AddExtra("tax_percent", strconv.FormatFloat(v, 'f', -1, 64))
}
