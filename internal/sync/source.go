package sync

import (
	"context"
	"strings"

	"github.com/dmfranc/stripemirror/pkg/db/models"
	pkgerrors "github.com/dmfranc/stripemirror/pkg/errors"
)

// PaymentSource dispatches a source payload to the matching concrete sync.
// Cards are recognized by their id prefix; bitcoin receivers by object type.
// Unrecognized source kinds are skipped, not failed, so new processor source
// types do not wedge the pipeline.
func (s *Syncer) PaymentSource(ctx context.Context, cust *models.Customer, p Payload) error {
	id := str(p, "id")
	switch {
	case strings.HasPrefix(id, "card_"):
		return s.Card(ctx, cust, p)
	case str(p, "object") == "bitcoin_receiver":
		return s.BitcoinReceiver(ctx, cust, p)
	default:
		if s.logg != nil {
			s.logg.Warn(ctx, "skipping unrecognized payment source "+id)
		}
		return nil
	}
}

// Card folds one card payload into the mirror.
func (s *Syncer) Card(ctx context.Context, cust *models.Customer, p Payload) error {
	if cust == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "card sync requires a customer")
	}
	stripeID := str(p, "id")
	if stripeID == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "card payload missing id")
	}

	card, _, err := getOrCreate(ctx, s.db, map[string]any{"stripe_id": stripeID}, func() *models.Card {
		return &models.Card{StripeID: stripeID, CustomerID: cust.ID}
	})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "upserting card")
	}

	card.CustomerID = cust.ID
	if has(p, "name") {
		card.Name = str(p, "name")
	}
	if has(p, "address_line1") {
		card.AddressLine1 = str(p, "address_line1")
	}
	if has(p, "address_line1_check") {
		card.AddressLine1Check = str(p, "address_line1_check")
	}
	if has(p, "address_line2") {
		card.AddressLine2 = str(p, "address_line2")
	}
	if has(p, "address_city") {
		card.AddressCity = str(p, "address_city")
	}
	if has(p, "address_state") {
		card.AddressState = str(p, "address_state")
	}
	if has(p, "address_country") {
		card.AddressCountry = str(p, "address_country")
	}
	if has(p, "address_zip") {
		card.AddressZip = str(p, "address_zip")
	}
	if has(p, "address_zip_check") {
		card.AddressZipCheck = str(p, "address_zip_check")
	}
	if has(p, "brand") {
		card.Brand = str(p, "brand")
	}
	if has(p, "country") {
		card.Country = str(p, "country")
	}
	if has(p, "cvc_check") {
		card.CVCCheck = str(p, "cvc_check")
	}
	if has(p, "dynamic_last4") {
		card.DynamicLast4 = str(p, "dynamic_last4")
	}
	if has(p, "exp_month") {
		card.ExpMonth = integer(p, "exp_month")
	}
	if has(p, "exp_year") {
		card.ExpYear = integer(p, "exp_year")
	}
	if has(p, "funding") {
		card.Funding = str(p, "funding")
	}
	if has(p, "last4") {
		card.Last4 = str(p, "last4")
	}
	if has(p, "fingerprint") {
		card.Fingerprint = str(p, "fingerprint")
	}

	if err := s.db.WithContext(ctx).Save(card).Error; err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "saving card")
	}
	return nil
}

// DeleteCard removes a mirrored card by its processor id. Missing rows are a
// no-op since deletion events can arrive for cards attached before mirroring
// began.
func (s *Syncer) DeleteCard(ctx context.Context, stripeID string) error {
	if stripeID == "" {
		return nil
	}
	return s.db.WithContext(ctx).
		Where("stripe_id = ?", stripeID).
		Delete(&models.Card{}).Error
}

// BitcoinReceiver folds one bitcoin receiver payload into the mirror.
func (s *Syncer) BitcoinReceiver(ctx context.Context, cust *models.Customer, p Payload) error {
	if cust == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "bitcoin receiver sync requires a customer")
	}
	stripeID := str(p, "id")
	if stripeID == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "bitcoin receiver payload missing id")
	}

	receiver, _, err := getOrCreate(ctx, s.db, map[string]any{"stripe_id": stripeID}, func() *models.BitcoinReceiver {
		return &models.BitcoinReceiver{StripeID: stripeID, CustomerID: cust.ID}
	})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "upserting bitcoin receiver")
	}

	receiver.CustomerID = cust.ID
	if has(p, "active") {
		receiver.Active = boolean(p, "active")
	}
	if has(p, "amount") {
		receiver.Amount = amount(p, "amount", "currency")
	}
	if has(p, "amount_received") {
		receiver.AmountReceived = amountPtr(p, "amount_received", "currency")
	}
	if has(p, "bitcoin_amount") {
		receiver.BitcoinAmount = int64Val(p, "bitcoin_amount")
	}
	if has(p, "bitcoin_amount_received") {
		receiver.BitcoinAmountReceived = int64Val(p, "bitcoin_amount_received")
	}
	if has(p, "bitcoin_uri") {
		receiver.BitcoinURI = str(p, "bitcoin_uri")
	}
	if has(p, "currency") {
		receiver.Currency = str(p, "currency")
	}
	if has(p, "description") {
		receiver.Description = str(p, "description")
	}
	if has(p, "email") {
		receiver.Email = str(p, "email")
	}
	if has(p, "filled") {
		receiver.Filled = boolean(p, "filled")
	}
	if has(p, "inbound_address") {
		receiver.InboundAddress = str(p, "inbound_address")
	}
	if has(p, "payment") {
		receiver.Payment = str(p, "payment")
	}
	if has(p, "refund_address") {
		receiver.RefundAddress = str(p, "refund_address")
	}
	if has(p, "uncaptured_funds") {
		receiver.UncapturedFunds = boolean(p, "uncaptured_funds")
	}
	if has(p, "used_for_payment") {
		receiver.UsedForPayment = boolean(p, "used_for_payment")
	}

	if err := s.db.WithContext(ctx).Save(receiver).Error; err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "saving bitcoin receiver")
	}
	return nil
}
