package actions

import (
	"context"

	"github.com/shopspring/decimal"
	"github.com/stripe/stripe-go/v84"

	"github.com/dmfranc/stripemirror/pkg/currency"
	"github.com/dmfranc/stripemirror/pkg/db/models"
	pkgerrors "github.com/dmfranc/stripemirror/pkg/errors"
)

// CreateChargeInput describes a new charge. Amount is a decimal in major
// units; integer minor-unit amounts never cross this boundary.
type CreateChargeInput struct {
	CustomerStripeID string
	Amount           decimal.Decimal
	Currency         string
	Description      string
	Source           string
	Capture          *bool
	ReceiptEmail     string
}

// CreateCharge charges a customer and mirrors the confirmed charge. A receipt
// is sent through the hook set when a recipient is known.
func (s *Service) CreateCharge(ctx context.Context, input CreateChargeInput) (*models.Charge, error) {
	if input.Amount.LessThanOrEqual(decimal.Zero) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "charge amount must be positive")
	}
	if input.CustomerStripeID == "" && input.Source == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "charge requires a customer or a source")
	}
	cur := input.Currency
	if cur == "" {
		cur = "usd"
	}

	if input.CustomerStripeID != "" && input.Source == "" {
		cust, err := s.Syncer(nil).CustomerByStripeID(ctx, input.CustomerStripeID)
		if err != nil {
			return nil, err
		}
		if cust == nil || !cust.CanCharge() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "customer has no chargeable source")
		}
	}

	params := &stripe.ChargeParams{
		Amount:   stripe.Int64(currency.AmountForAPI(input.Amount, cur)),
		Currency: stripe.String(cur),
	}
	if input.CustomerStripeID != "" {
		params.Customer = stripe.String(input.CustomerStripeID)
	}
	if input.Source != "" {
		if err := params.SetSource(input.Source); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "setting charge source")
		}
	}
	if input.Description != "" {
		params.Description = stripe.String(input.Description)
	}
	if input.Capture != nil {
		params.Capture = stripe.Bool(*input.Capture)
	}

	payload, err := s.api.CreateCharge(ctx, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "creating charge")
	}
	charge, err := s.Syncer(nil).Charge(ctx, payload)
	if err != nil {
		return nil, err
	}

	if input.ReceiptEmail != "" {
		if err := s.hooks.SendReceipt(ctx, charge, input.ReceiptEmail); err != nil && s.logg != nil {
			s.logg.Error(ctx, "sending charge receipt", err)
		}
	}
	return charge, nil
}

// CaptureCharge captures a previously uncaptured charge, optionally for a
// smaller amount.
func (s *Service) CaptureCharge(ctx context.Context, chargeStripeID string, amount *decimal.Decimal) (*models.Charge, error) {
	if chargeStripeID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "charge id required")
	}
	local, err := s.Syncer(nil).ChargeByStripeID(ctx, chargeStripeID)
	if err != nil {
		return nil, err
	}

	params := &stripe.ChargeCaptureParams{}
	if amount != nil {
		cur := "usd"
		if local != nil {
			cur = local.Currency
		}
		params.Amount = stripe.Int64(currency.AmountForAPI(*amount, cur))
	}
	payload, err := s.api.CaptureCharge(ctx, chargeStripeID, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "capturing charge")
	}
	return s.Syncer(nil).Charge(ctx, payload)
}

// FetchAndSyncCharge re-reads a charge from the processor and mirrors it. The
// account id scopes the read for Connect charges.
func (s *Service) FetchAndSyncCharge(ctx context.Context, chargeStripeID, accountStripeID string) (*models.Charge, error) {
	payload, err := s.api.Charge(ctx, chargeStripeID, accountStripeID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "fetching charge")
	}
	return s.Syncer(nil).Charge(ctx, payload)
}

// SyncChargesForCustomer re-mirrors every processor charge belonging to the
// customer. Returns how many charges were folded in.
func (s *Service) SyncChargesForCustomer(ctx context.Context, cust *models.Customer) (int, error) {
	if cust == nil || cust.StripeID == "" {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "customer required")
	}
	payloads, err := s.api.ListCharges(ctx, &stripe.ChargeListParams{Customer: stripe.String(cust.StripeID)})
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "listing charges")
	}
	syncer := s.Syncer(nil)
	for i, p := range payloads {
		if _, err := syncer.Charge(ctx, p); err != nil {
			return i, err
		}
	}
	return len(payloads), nil
}

// CalculateRefundAmount clamps a requested refund to what the charge can
// still return. A nil request refunds the full eligible remainder.
func CalculateRefundAmount(charge *models.Charge, requested *decimal.Decimal) decimal.Decimal {
	eligible := charge.EligibleRefundAmount()
	if requested == nil || requested.GreaterThan(eligible) {
		return eligible
	}
	return *requested
}
