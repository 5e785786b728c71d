package actions

import (
	"context"

	"github.com/shopspring/decimal"
	"github.com/stripe/stripe-go/v84"

	"github.com/dmfranc/stripemirror/pkg/currency"
	"github.com/dmfranc/stripemirror/pkg/db/models"
	pkgerrors "github.com/dmfranc/stripemirror/pkg/errors"
)

// CreateTransferInput moves funds to a Connect destination.
type CreateTransferInput struct {
	Amount      decimal.Decimal
	Currency    string
	Destination string
	Description string
}

// CreateTransfer creates the transfer at the processor and mirrors it.
func (s *Service) CreateTransfer(ctx context.Context, input CreateTransferInput) (*models.Transfer, error) {
	if input.Amount.LessThanOrEqual(decimal.Zero) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "transfer amount must be positive")
	}
	if input.Destination == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "transfer destination required")
	}
	cur := input.Currency
	if cur == "" {
		cur = "usd"
	}

	params := &stripe.TransferParams{
		Amount:      stripe.Int64(currency.AmountForAPI(input.Amount, cur)),
		Currency:    stripe.String(cur),
		Destination: stripe.String(input.Destination),
	}
	if input.Description != "" {
		params.Description = stripe.String(input.Description)
	}
	payload, err := s.api.CreateTransfer(ctx, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "creating transfer")
	}
	return s.Syncer(nil).Transfer(ctx, payload, nil)
}

// FetchAndSyncTransfer re-reads a transfer from the processor, attributing
// the refresh to the event being processed.
func (s *Service) FetchAndSyncTransfer(ctx context.Context, transferStripeID string, event *models.Event) (*models.Transfer, error) {
	payload, err := s.api.Transfer(ctx, transferStripeID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "fetching transfer")
	}
	return s.Syncer(nil).Transfer(ctx, payload, event)
}
