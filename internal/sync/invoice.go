package sync

import (
	"context"

	"github.com/dmfranc/stripemirror/pkg/currency"
	"github.com/dmfranc/stripemirror/pkg/db/models"
	pkgerrors "github.com/dmfranc/stripemirror/pkg/errors"
)

// InvoiceByStripeID loads a mirrored invoice, nil when unknown.
func (s *Syncer) InvoiceByStripeID(ctx context.Context, stripeID string) (*models.Invoice, error) {
	return firstWhere[models.Invoice](ctx, s.db, "stripe_id = ?", stripeID)
}

// Invoice folds one invoice payload into the mirror, cascading into the line
// item list and re-fetching the linked charge from the processor so the
// charge row is current before the invoice points at it.
func (s *Syncer) Invoice(ctx context.Context, p Payload) (*models.Invoice, error) {
	stripeID := str(p, "id")
	if stripeID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invoice payload missing id")
	}
	customerID := objectID(p["customer"])
	if customerID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invoice payload missing customer")
	}
	cust, err := s.EnsureCustomer(ctx, customerID)
	if err != nil {
		return nil, err
	}

	invoice, _, err := getOrCreate(ctx, s.db, map[string]any{"stripe_id": stripeID}, func() *models.Invoice {
		return &models.Invoice{StripeID: stripeID, CustomerID: cust.ID}
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "upserting invoice")
	}

	invoice.CustomerID = cust.ID
	if has(p, "currency") {
		invoice.Currency = str(p, "currency")
	}
	if has(p, "amount_due") {
		invoice.AmountDue = amount(p, "amount_due", "currency")
	}
	if has(p, "subtotal") {
		invoice.Subtotal = amount(p, "subtotal", "currency")
	}
	if has(p, "total") {
		invoice.Total = amount(p, "total", "currency")
	}
	if has(p, "period_start") {
		invoice.PeriodStart = currency.TimestampField(p, "period_start")
	}
	if has(p, "period_end") {
		invoice.PeriodEnd = currency.TimestampField(p, "period_end")
	}
	if has(p, "date") {
		invoice.Date = currency.TimestampField(p, "date")
	}
	if has(p, "closed") {
		invoice.Closed = boolean(p, "closed")
	}
	if has(p, "paid") {
		invoice.Paid = boolean(p, "paid")
	}
	if has(p, "attempted") {
		invoice.Attempted = boolPtr(p, "attempted")
	}
	if has(p, "attempt_count") {
		invoice.AttemptCount = intPtr(p, "attempt_count")
	}
	if has(p, "statement_descriptor") {
		invoice.StatementDescriptor = str(p, "statement_descriptor")
	}
	if has(p, "receipt_number") {
		invoice.ReceiptNumber = str(p, "receipt_number")
	}

	if subID := objectID(p["subscription"]); subID != "" {
		sub, err := s.SubscriptionByStripeID(ctx, subID)
		if err != nil {
			return nil, err
		}
		if sub != nil {
			invoice.SubscriptionID = &sub.ID
		}
	}

	if chargeID := objectID(p["charge"]); chargeID != "" && s.fetch != nil {
		chargePayload, err := s.fetch.Charge(ctx, chargeID, "")
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "fetching invoice charge")
		}
		charge, err := s.Charge(ctx, chargePayload)
		if err != nil {
			return nil, err
		}
		invoice.ChargeID = &charge.ID
	}

	if err := s.db.WithContext(ctx).Save(invoice).Error; err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "saving invoice")
	}

	if has(p, "lines") {
		if err := s.syncInvoiceItems(ctx, invoice, objectList(p, "lines")); err != nil {
			return nil, err
		}
	}
	return invoice, nil
}

// syncInvoiceItems upserts each line on an invoice. Line uniqueness is scoped
// to the invoice because subscription lines reuse the subscription id.
func (s *Syncer) syncInvoiceItems(ctx context.Context, invoice *models.Invoice, lines []Payload) error {
	for _, line := range lines {
		lineID := str(line, "id")
		if lineID == "" {
			continue
		}
		cond := map[string]any{"stripe_id": lineID, "invoice_id": invoice.ID}
		item, _, err := getOrCreate(ctx, s.db, cond, func() *models.InvoiceItem {
			return &models.InvoiceItem{StripeID: lineID, InvoiceID: invoice.ID}
		})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "upserting invoice item")
		}

		if has(line, "currency") {
			item.Currency = str(line, "currency")
		}
		if has(line, "amount") {
			item.Amount = amount(line, "amount", "currency")
		}
		if has(line, "proration") {
			item.Proration = boolean(line, "proration")
		}
		if has(line, "type") {
			item.LineType = str(line, "type")
		}
		if has(line, "description") {
			item.Description = str(line, "description")
		}
		if has(line, "quantity") {
			item.Quantity = int64Ptr(line, "quantity")
		}
		if period := subObject(line, "period"); period != nil {
			item.PeriodStart = currency.TimestampField(period, "start")
			item.PeriodEnd = currency.TimestampField(period, "end")
		}

		if planPayload := subObject(line, "plan"); planPayload != nil {
			plan, err := s.Plan(ctx, planPayload)
			if err != nil {
				return err
			}
			item.PlanID = &plan.ID
		}
		if item.LineType == "subscription" {
			if sub, err := s.SubscriptionByStripeID(ctx, lineID); err != nil {
				return err
			} else if sub != nil {
				item.SubscriptionID = &sub.ID
			}
		}

		if err := s.db.WithContext(ctx).Save(item).Error; err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "saving invoice item")
		}
	}
	return nil
}
