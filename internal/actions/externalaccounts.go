package actions

import (
	"context"

	"github.com/stripe/stripe-go/v84"

	"github.com/dmfranc/stripemirror/pkg/db/models"
	pkgerrors "github.com/dmfranc/stripemirror/pkg/errors"
)

// CreateBankAccount attaches an external bank account token to a Connect
// account and mirrors it.
func (s *Service) CreateBankAccount(ctx context.Context, account *models.Account, token string, defaultForCurrency bool) error {
	if account == nil || token == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "account and bank token required")
	}
	params := &stripe.BankAccountParams{
		Account: stripe.String(account.StripeID),
		Token:   stripe.String(token),
	}
	if defaultForCurrency {
		params.DefaultForCurrency = stripe.Bool(true)
	}
	payload, err := s.api.CreateBankAccount(ctx, params)
	if err != nil {
		return s.translateAccountError(err, "creating bank account")
	}
	return s.Syncer(nil).BankAccount(ctx, account, payload)
}

// SetDefaultBankAccountForCurrency flips which bank account receives payouts
// in its currency.
func (s *Service) SetDefaultBankAccountForCurrency(ctx context.Context, account *models.Account, bankAccountStripeID string) error {
	if account == nil || bankAccountStripeID == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "account and bank account id required")
	}
	params := &stripe.BankAccountParams{
		Account:            stripe.String(account.StripeID),
		DefaultForCurrency: stripe.Bool(true),
	}
	payload, err := s.api.UpdateBankAccount(ctx, bankAccountStripeID, params)
	if err != nil {
		return s.translateAccountError(err, "updating bank account")
	}
	return s.Syncer(nil).BankAccount(ctx, account, payload)
}

// DeleteBankAccount detaches the bank account upstream and removes the
// mirror row.
func (s *Service) DeleteBankAccount(ctx context.Context, account *models.Account, bankAccountStripeID string) error {
	if account == nil || bankAccountStripeID == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "account and bank account id required")
	}
	params := &stripe.BankAccountParams{Account: stripe.String(account.StripeID)}
	if err := s.api.DeleteBankAccount(ctx, bankAccountStripeID, params); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "deleting bank account")
	}
	return s.db.DB().WithContext(ctx).
		Where("stripe_id = ?", bankAccountStripeID).
		Delete(&models.BankAccount{}).Error
}
