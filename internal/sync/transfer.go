package sync

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/dmfranc/stripemirror/pkg/currency"
	"github.com/dmfranc/stripemirror/pkg/db/models"
	pkgerrors "github.com/dmfranc/stripemirror/pkg/errors"
)

// Transfer folds one transfer payload into the mirror. A transfer.paid event
// is keyed by the transfer id alone so the paid status overwrites whatever
// event recorded the transfer first; every other transfer event keeps one row
// per (transfer, event) pair.
func (s *Syncer) Transfer(ctx context.Context, p Payload, event *models.Event) (*models.Transfer, error) {
	stripeID := str(p, "id")
	if stripeID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "transfer payload missing id")
	}

	var cond map[string]any
	paidEvent := event != nil && event.Kind == "transfer.paid"
	if paidEvent {
		cond = map[string]any{"stripe_id": stripeID}
	} else {
		var eventID any
		if event != nil {
			eventID = event.ID
		}
		cond = map[string]any{"stripe_id": stripeID, "event_id": eventID}
	}

	transfer, _, err := getOrCreate(ctx, s.db, cond, func() *models.Transfer {
		t := &models.Transfer{StripeID: stripeID}
		if event != nil {
			t.EventID = &event.ID
		}
		return t
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "upserting transfer")
	}

	if paidEvent && event != nil {
		transfer.EventID = &event.ID
	}
	if has(p, "currency") {
		transfer.Currency = str(p, "currency")
	}
	if has(p, "amount") {
		transfer.Amount = amount(p, "amount", "currency")
	}
	if has(p, "status") {
		transfer.Status = str(p, "status")
	}
	if has(p, "date") {
		transfer.Date = currency.TimestampField(p, "date")
	}
	if has(p, "description") {
		transfer.Description = str(p, "description")
	}
	if has(p, "destination") {
		transfer.Destination = objectID(p["destination"])
	}

	if summary := subObject(p, "summary"); summary != nil {
		cur := transfer.Currency
		transfer.AdjustmentCount = intPtr(summary, "adjustment_count")
		transfer.AdjustmentFees = summaryAmount(summary, "adjustment_fees", cur)
		transfer.AdjustmentGross = summaryAmount(summary, "adjustment_gross", cur)
		transfer.ChargeCount = intPtr(summary, "charge_count")
		transfer.ChargeFees = summaryAmount(summary, "charge_fees", cur)
		transfer.ChargeGross = summaryAmount(summary, "charge_gross", cur)
		transfer.CollectedFeeCount = intPtr(summary, "collected_fee_count")
		transfer.CollectedFeeGross = summaryAmount(summary, "collected_fee_gross", cur)
		transfer.Net = summaryAmount(summary, "net", cur)
		transfer.RefundCount = intPtr(summary, "refund_count")
		transfer.RefundFees = summaryAmount(summary, "refund_fees", cur)
		transfer.RefundGross = summaryAmount(summary, "refund_gross", cur)
		transfer.ValidationCount = intPtr(summary, "validation_count")
		transfer.ValidationFees = summaryAmount(summary, "validation_fees", cur)
	}

	if err := s.db.WithContext(ctx).Save(transfer).Error; err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "saving transfer")
	}

	if summary := subObject(p, "summary"); summary != nil {
		if fees := list(summary, "charge_fee_details"); len(fees) > 0 {
			if err := s.replaceTransferChargeFees(ctx, transfer, fees); err != nil {
				return nil, err
			}
		}
	}
	return transfer, nil
}

// summaryAmount reads a minor-unit summary figure scaled per the transfer
// currency.
func summaryAmount(summary Payload, key, cur string) *decimal.Decimal {
	v, ok := numeric(summary[key])
	if !ok {
		return nil
	}
	d := currency.AmountForDB(v, cur)
	return &d
}

// replaceTransferChargeFees rewrites the fee detail lines for a transfer.
func (s *Syncer) replaceTransferChargeFees(ctx context.Context, transfer *models.Transfer, fees []Payload) error {
	tx := s.db.WithContext(ctx)
	if err := tx.Where("transfer_id = ?", transfer.ID).Delete(&models.TransferChargeFee{}).Error; err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "clearing transfer fee lines")
	}
	for _, fee := range fees {
		row := models.TransferChargeFee{
			TransferID:  transfer.ID,
			Currency:    str(fee, "currency"),
			Amount:      amount(fee, "amount", "currency"),
			Application: str(fee, "application"),
			Description: str(fee, "description"),
			Kind:        str(fee, "type"),
		}
		if err := tx.Create(&row).Error; err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "creating transfer fee line")
		}
	}
	return nil
}
