package sync

import (
	"context"

	"github.com/google/uuid"

	"github.com/dmfranc/stripemirror/pkg/currency"
	"github.com/dmfranc/stripemirror/pkg/db/models"
	pkgerrors "github.com/dmfranc/stripemirror/pkg/errors"
)

// Plan folds one plan payload into the mirror. The payload is authoritative:
// fields it carries overwrite the row, fields it omits stay untouched.
func (s *Syncer) Plan(ctx context.Context, p Payload) (*models.Plan, error) {
	stripeID := str(p, "id")
	if stripeID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "plan payload missing id")
	}

	plan, _, err := getOrCreate(ctx, s.db, map[string]any{"stripe_id": stripeID}, func() *models.Plan {
		return &models.Plan{StripeID: stripeID}
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "upserting plan")
	}

	if has(p, "amount") {
		plan.Amount = amount(p, "amount", "currency")
	}
	if has(p, "currency") {
		plan.Currency = str(p, "currency")
	}
	if has(p, "interval") {
		plan.Interval = str(p, "interval")
	}
	if has(p, "interval_count") {
		plan.IntervalCount = integer(p, "interval_count")
	}
	if has(p, "name") {
		plan.Name = str(p, "name")
	}
	if has(p, "statement_descriptor") {
		plan.StatementDescriptor = str(p, "statement_descriptor")
	}
	if has(p, "trial_period_days") {
		plan.TrialPeriodDays = intPtr(p, "trial_period_days")
	}
	if has(p, "metadata") {
		plan.Metadata = rawJSON(p, "metadata")
	}

	if err := s.db.WithContext(ctx).Save(plan).Error; err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "saving plan")
	}
	return plan, nil
}

// DeletePlan removes a mirrored plan, if present.
func (s *Syncer) DeletePlan(ctx context.Context, stripeID string) error {
	if stripeID == "" {
		return nil
	}
	return s.db.WithContext(ctx).
		Where("stripe_id = ?", stripeID).
		Delete(&models.Plan{}).Error
}

// Coupon folds one coupon payload into the mirror, scoped to the connected
// account it was delivered for.
func (s *Syncer) Coupon(ctx context.Context, p Payload, account *models.Account) (*models.Coupon, error) {
	stripeID := str(p, "id")
	if stripeID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "coupon payload missing id")
	}

	var accountID *uuid.UUID
	if account != nil {
		accountID = &account.ID
	}
	cond := map[string]any{"stripe_id": stripeID, "stripe_account_id": accountID}
	coupon, _, err := getOrCreate(ctx, s.db, cond, func() *models.Coupon {
		return &models.Coupon{StripeID: stripeID, StripeAccountID: accountID}
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "upserting coupon")
	}

	if has(p, "amount_off") {
		coupon.AmountOff = amountPtr(p, "amount_off", "currency")
	}
	if has(p, "percent_off") {
		coupon.PercentOff = intPtr(p, "percent_off")
	}
	if has(p, "currency") {
		coupon.Currency = str(p, "currency")
	}
	if has(p, "duration") {
		coupon.Duration = str(p, "duration")
	}
	if has(p, "duration_in_months") {
		coupon.DurationInMonths = intPtr(p, "duration_in_months")
	}
	if has(p, "livemode") {
		coupon.Livemode = boolean(p, "livemode")
	}
	if has(p, "max_redemptions") {
		coupon.MaxRedemptions = intPtr(p, "max_redemptions")
	}
	if has(p, "metadata") {
		coupon.Metadata = rawJSON(p, "metadata")
	}
	if has(p, "redeem_by") {
		coupon.RedeemBy = currency.TimestampField(p, "redeem_by")
	}
	if has(p, "times_redeemed") {
		coupon.TimesRedeemed = intPtr(p, "times_redeemed")
	}
	if has(p, "valid") {
		coupon.Valid = boolean(p, "valid")
	}

	if err := s.db.WithContext(ctx).Save(coupon).Error; err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "saving coupon")
	}
	return coupon, nil
}

// DeleteCoupon removes a mirrored coupon for the account scope, if present.
func (s *Syncer) DeleteCoupon(ctx context.Context, stripeID string, account *models.Account) error {
	if stripeID == "" {
		return nil
	}
	q := s.db.WithContext(ctx).Where("stripe_id = ?", stripeID)
	if account != nil {
		q = q.Where("stripe_account_id = ?", account.ID)
	} else {
		q = q.Where("stripe_account_id IS NULL")
	}
	return q.Delete(&models.Coupon{}).Error
}

// Discount folds a discount payload onto the customer it names. A payload
// claiming a different customer than the one the event resolved to is a
// mirror inconsistency and processing stops.
func (s *Syncer) Discount(ctx context.Context, p Payload, cust *models.Customer, account *models.Account) error {
	if cust == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "discount sync requires a customer")
	}
	if got := objectID(p["customer"]); got != cust.StripeID {
		return pkgerrors.New(pkgerrors.CodeInconsistent, "discount payload customer does not match event customer").
			WithDetails(map[string]any{"payload_customer": got, "event_customer": cust.StripeID})
	}

	couponPayload := subObject(p, "coupon")
	if couponPayload == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "discount payload missing coupon")
	}
	coupon, err := s.Coupon(ctx, couponPayload, account)
	if err != nil {
		return err
	}

	discount, _, err := getOrCreate(ctx, s.db, map[string]any{"customer_id": cust.ID}, func() *models.Discount {
		return &models.Discount{CustomerID: cust.ID, CouponID: coupon.ID}
	})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "upserting discount")
	}

	discount.CouponID = coupon.ID
	discount.Start = currency.TimestampField(p, "start")
	discount.End = currency.TimestampField(p, "end")
	if err := s.db.WithContext(ctx).Save(discount).Error; err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "saving discount")
	}
	return nil
}

// DeleteDiscount removes the discount row for a customer, if any.
func (s *Syncer) DeleteDiscount(ctx context.Context, cust *models.Customer) error {
	if cust == nil {
		return nil
	}
	return s.db.WithContext(ctx).
		Where("customer_id = ?", cust.ID).
		Delete(&models.Discount{}).Error
}
