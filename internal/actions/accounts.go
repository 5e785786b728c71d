package actions

import (
	"context"
	"strings"

	"github.com/stripe/stripe-go/v84"

	"github.com/dmfranc/stripemirror/pkg/db/models"
	pkgerrors "github.com/dmfranc/stripemirror/pkg/errors"
	"github.com/dmfranc/stripemirror/pkg/stripeclient"
)

// CreateAccountInput registers a Connect account for a host-application user.
type CreateAccountInput struct {
	UserRef string
	Country string
	Type    string
	Email   string
}

// CreateAccount creates the Connect account at the processor and mirrors it.
func (s *Service) CreateAccount(ctx context.Context, input CreateAccountInput) (*models.Account, error) {
	if input.Country == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "account country required")
	}
	accountType := input.Type
	if accountType == "" {
		accountType = "custom"
	}

	params := &stripe.AccountParams{
		Country: stripe.String(input.Country),
		Type:    stripe.String(accountType),
	}
	if input.Email != "" {
		params.Email = stripe.String(input.Email)
	}
	payload, err := s.api.CreateAccount(ctx, params)
	if err != nil {
		return nil, s.translateAccountError(err, "creating account")
	}

	account, err := s.Syncer(nil).Account(ctx, payload)
	if err != nil {
		return nil, err
	}
	if input.UserRef != "" {
		account.UserRef = &input.UserRef
		if err := s.db.DB().WithContext(ctx).Save(account).Error; err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "saving account user ref")
		}
	}
	return account, nil
}

// UpdateAccount pushes verification or profile changes to the processor and
// mirrors the confirmed account. Processor rejections are translated so the
// caller learns which local field to fix.
func (s *Service) UpdateAccount(ctx context.Context, accountStripeID string, params *stripe.AccountParams) (*models.Account, error) {
	if accountStripeID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "account id required")
	}
	payload, err := s.api.UpdateAccount(ctx, accountStripeID, params)
	if err != nil {
		return nil, s.translateAccountError(err, "updating account")
	}
	return s.Syncer(nil).Account(ctx, payload)
}

// FetchAndSyncAccount re-reads a Connect account and mirrors it.
func (s *Service) FetchAndSyncAccount(ctx context.Context, accountStripeID string) (*models.Account, error) {
	payload, err := s.api.Account(ctx, accountStripeID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "fetching account")
	}
	return s.Syncer(nil).Account(ctx, payload)
}

// DeauthorizeAccount revokes the platform's access to the account and marks
// the mirror row unauthorized.
func (s *Service) DeauthorizeAccount(ctx context.Context, accountStripeID string) error {
	if accountStripeID == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "account id required")
	}
	if err := s.api.Deauthorize(ctx, s.cfg.Stripe.ClientID, accountStripeID); err != nil {
		if !stripeclient.IsPermissionError(err) {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "deauthorizing account")
		}
	}
	return s.Syncer(nil).MarkAccountDeauthorized(ctx, accountStripeID)
}

// DeleteAccount removes the Connect account at the processor and drops the
// mirror rows. An account already gone upstream is treated as deleted.
func (s *Service) DeleteAccount(ctx context.Context, accountStripeID string) error {
	if accountStripeID == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "account id required")
	}
	if err := s.api.DeleteAccount(ctx, accountStripeID); err != nil {
		if !stripeclient.IsMissingResource(err) {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "deleting account")
		}
	}

	account, err := s.Syncer(nil).AccountByStripeID(ctx, accountStripeID)
	if err != nil {
		return err
	}
	if account == nil {
		return nil
	}
	tx := s.db.DB().WithContext(ctx)
	if err := tx.Where("account_id = ?", account.ID).Delete(&models.BankAccount{}).Error; err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "deleting account bank accounts")
	}
	if err := tx.Delete(account).Error; err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "deleting account")
	}
	return nil
}

// accountFieldTranslations maps processor parameter names to the local field
// a caller should surface the error against.
var accountFieldTranslations = map[string]string{
	"dob":                "dob",
	"first_name":         "first_name",
	"last_name":          "last_name",
	"routing_number":     "routing_number",
	"account_number":     "account_number",
	"currency":           "currency",
	"personal_id_number": "personal_id_number",
	"file":               "document",
}

// TranslateAccountErrorParam resolves a processor error parameter like
// "legal_entity[dob][year]" to the local field name.
func TranslateAccountErrorParam(param string) string {
	cleaned := strings.NewReplacer("[", " ", "]", " ").Replace(param)
	for _, token := range strings.Fields(cleaned) {
		if field, ok := accountFieldTranslations[token]; ok {
			return field
		}
	}
	return param
}

func (s *Service) translateAccountError(err error, message string) error {
	wrapped := pkgerrors.Wrap(pkgerrors.CodeDependency, err, message)
	if param := stripeclient.ErrorParam(err); param != "" {
		return wrapped.WithDetails(map[string]any{
			"field":   TranslateAccountErrorParam(param),
			"message": stripeclient.ErrorMessage(err),
		})
	}
	return wrapped
}
