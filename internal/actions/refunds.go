package actions

import (
	"context"

	"github.com/shopspring/decimal"
	"github.com/stripe/stripe-go/v84"

	"github.com/dmfranc/stripemirror/pkg/currency"
	"github.com/dmfranc/stripemirror/pkg/db/models"
	pkgerrors "github.com/dmfranc/stripemirror/pkg/errors"
)

// CreateRefund refunds part or all of a charge. The requested amount is
// clamped to the eligible remainder; the charge row is re-fetched afterwards
// so the mirrored refund totals are the processor's numbers, not ours.
func (s *Service) CreateRefund(ctx context.Context, chargeStripeID string, amount *decimal.Decimal) (*models.Charge, error) {
	if chargeStripeID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "charge id required")
	}
	charge, err := s.Syncer(nil).ChargeByStripeID(ctx, chargeStripeID)
	if err != nil {
		return nil, err
	}
	if charge == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "charge not mirrored locally")
	}

	toRefund := CalculateRefundAmount(charge, amount)
	if toRefund.LessThanOrEqual(decimal.Zero) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "charge has no refundable amount")
	}

	params := &stripe.RefundParams{
		Charge: stripe.String(chargeStripeID),
		Amount: stripe.Int64(currency.AmountForAPI(toRefund, charge.Currency)),
	}
	if _, err := s.api.CreateRefund(ctx, params); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "creating refund")
	}
	return s.FetchAndSyncCharge(ctx, chargeStripeID, charge.StripeAccountStripeID)
}
