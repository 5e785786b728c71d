package sync

import (
	"context"

	"github.com/dmfranc/stripemirror/pkg/currency"
	"github.com/dmfranc/stripemirror/pkg/db/models"
	pkgerrors "github.com/dmfranc/stripemirror/pkg/errors"
)

// ChargeByStripeID loads a mirrored charge, nil when unknown.
func (s *Syncer) ChargeByStripeID(ctx context.Context, stripeID string) (*models.Charge, error) {
	return firstWhere[models.Charge](ctx, s.db, "stripe_id = ?", stripeID)
}

// Charge folds one charge payload into the mirror. The charge is attached to
// the customer it names; the source is recorded by id only.
func (s *Syncer) Charge(ctx context.Context, p Payload) (*models.Charge, error) {
	stripeID := str(p, "id")
	if stripeID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "charge payload missing id")
	}
	customerID := objectID(p["customer"])
	if customerID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "charge payload missing customer")
	}
	cust, err := s.EnsureCustomer(ctx, customerID)
	if err != nil {
		return nil, err
	}

	charge, _, err := getOrCreate(ctx, s.db, map[string]any{"stripe_id": stripeID}, func() *models.Charge {
		return &models.Charge{StripeID: stripeID, CustomerID: cust.ID}
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "upserting charge")
	}

	charge.CustomerID = cust.ID
	if has(p, "currency") {
		charge.Currency = str(p, "currency")
	}
	if has(p, "amount") {
		charge.Amount = amountPtr(p, "amount", "currency")
	}
	if has(p, "amount_refunded") {
		charge.AmountRefunded = amountPtr(p, "amount_refunded", "currency")
	}
	if has(p, "description") {
		charge.Description = str(p, "description")
	}
	if has(p, "paid") {
		charge.Paid = boolPtr(p, "paid")
	}
	if has(p, "disputed") {
		charge.Disputed = boolPtr(p, "disputed")
	}
	if has(p, "refunded") {
		charge.Refunded = boolPtr(p, "refunded")
	}
	if has(p, "captured") {
		charge.Captured = boolPtr(p, "captured")
	}
	if has(p, "created") {
		charge.ChargeCreated = currency.TimestampField(p, "created")
	}
	if source := subObject(p, "source"); source != nil {
		charge.Source = str(source, "id")
	}

	if invoiceID := objectID(p["invoice"]); invoiceID != "" {
		invoice, err := firstWhere[models.Invoice](ctx, s.db, "stripe_id = ?", invoiceID)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "resolving charge invoice")
		}
		if invoice != nil {
			charge.InvoiceID = &invoice.ID
		}
	}

	if err := s.db.WithContext(ctx).Save(charge).Error; err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "saving charge")
	}
	return charge, nil
}
