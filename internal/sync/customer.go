package sync

import (
	"context"
	"time"

	"github.com/dmfranc/stripemirror/pkg/db/models"
	pkgerrors "github.com/dmfranc/stripemirror/pkg/errors"
)

// CustomerByStripeID loads the mirrored customer, nil when unknown.
func (s *Syncer) CustomerByStripeID(ctx context.Context, stripeID string) (*models.Customer, error) {
	return firstWhere[models.Customer](ctx, s.db, "stripe_id = ?", stripeID)
}

// EnsureCustomer returns the mirrored customer for a processor id, creating a
// bare row when an event references a customer we have never seen.
func (s *Syncer) EnsureCustomer(ctx context.Context, stripeID string) (*models.Customer, error) {
	if stripeID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "customer id required")
	}
	cust, _, err := getOrCreate(ctx, s.db, map[string]any{"stripe_id": stripeID}, func() *models.Customer {
		return &models.Customer{StripeID: stripeID}
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "upserting customer")
	}
	return cust, nil
}

// Customer folds one customer payload into the mirror and cascades into the
// embedded sources and subscriptions lists when present. A payload marked
// deleted purges local billing state instead.
func (s *Syncer) Customer(ctx context.Context, cust *models.Customer, p Payload) error {
	if cust == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "customer sync requires a customer")
	}
	if boolean(p, "deleted") {
		return s.PurgeCustomerLocal(ctx, cust)
	}

	if has(p, "account_balance") {
		cust.AccountBalance = amountPtr(p, "account_balance", "currency")
	}
	if has(p, "currency") {
		cust.Currency = str(p, "currency")
	}
	if has(p, "delinquent") {
		cust.Delinquent = boolean(p, "delinquent")
	}
	if has(p, "default_source") {
		cust.DefaultSource = objectID(p["default_source"])
	}
	if err := s.db.WithContext(ctx).Save(cust).Error; err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "saving customer")
	}

	for _, source := range objectList(p, "sources") {
		if err := s.PaymentSource(ctx, cust, source); err != nil {
			return err
		}
	}
	for _, sub := range objectList(p, "subscriptions") {
		if _, err := s.Subscription(ctx, cust, sub); err != nil {
			return err
		}
	}
	return nil
}

// PurgeCustomerLocal severs the customer from its user reference and drops
// billing state. The stripe_id is retained so later events for the same
// processor customer still resolve to this row.
func (s *Syncer) PurgeCustomerLocal(ctx context.Context, cust *models.Customer) error {
	if cust == nil {
		return nil
	}
	tx := s.db.WithContext(ctx)
	if err := tx.Where("customer_id = ?", cust.ID).Delete(&models.Card{}).Error; err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "purging cards")
	}
	if err := tx.Where("customer_id = ?", cust.ID).Delete(&models.BitcoinReceiver{}).Error; err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "purging bitcoin receivers")
	}
	if err := tx.Where("customer_id = ?", cust.ID).Delete(&models.Subscription{}).Error; err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "purging subscriptions")
	}
	now := time.Now().UTC()
	cust.DatePurged = &now
	cust.UserRef = nil
	cust.DefaultSource = ""
	if err := tx.Save(cust).Error; err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "saving purged customer")
	}
	return nil
}
