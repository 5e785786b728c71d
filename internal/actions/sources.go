package actions

import (
	"context"
	"strconv"
	"strings"

	"github.com/stripe/stripe-go/v84"

	"github.com/dmfranc/stripemirror/pkg/db/models"
	pkgerrors "github.com/dmfranc/stripemirror/pkg/errors"
)

// CreateCard attaches a tokenized card to a customer and mirrors it. Only
// tokens cross this boundary; raw card numbers never reach this service.
func (s *Service) CreateCard(ctx context.Context, cust *models.Customer, token string) error {
	if cust == nil || token == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "customer and card token required")
	}
	params := &stripe.CardParams{
		Customer: stripe.String(cust.StripeID),
		Token:    stripe.String(token),
	}
	payload, err := s.api.CreateCard(ctx, params)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "creating card")
	}
	return s.Syncer(nil).PaymentSource(ctx, cust, payload)
}

// UpdateCardInput carries the mutable card fields.
type UpdateCardInput struct {
	Name     string
	ExpMonth *int64
	ExpYear  *int64
}

// UpdateCard pushes card changes to the processor and mirrors the result.
func (s *Service) UpdateCard(ctx context.Context, cust *models.Customer, cardStripeID string, input UpdateCardInput) error {
	if cust == nil || cardStripeID == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "customer and card id required")
	}
	params := &stripe.CardParams{Customer: stripe.String(cust.StripeID)}
	if input.Name != "" {
		params.Name = stripe.String(input.Name)
	}
	if input.ExpMonth != nil {
		params.ExpMonth = stripe.String(strconv.FormatInt(*input.ExpMonth, 10))
	}
	if input.ExpYear != nil {
		params.ExpYear = stripe.String(strconv.FormatInt(*input.ExpYear, 10))
	}
	payload, err := s.api.UpdateCard(ctx, cardStripeID, params)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "updating card")
	}
	return s.Syncer(nil).PaymentSource(ctx, cust, payload)
}

// DeleteCard detaches a card at the processor and removes the mirror row.
// Only card sources are mirrored as cards, so other source ids skip the local
// delete.
func (s *Service) DeleteCard(ctx context.Context, cust *models.Customer, cardStripeID string) error {
	if cust == nil || cardStripeID == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "customer and card id required")
	}
	params := &stripe.CardParams{Customer: stripe.String(cust.StripeID)}
	if err := s.api.DeleteCard(ctx, cardStripeID, params); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "deleting card")
	}
	if strings.HasPrefix(cardStripeID, "card_") {
		return s.Syncer(nil).DeleteCard(ctx, cardStripeID)
	}
	return nil
}
