package sync

import (
	"context"
	"fmt"
	"time"

	"github.com/dmfranc/stripemirror/pkg/currency"
	"github.com/dmfranc/stripemirror/pkg/db/models"
	pkgerrors "github.com/dmfranc/stripemirror/pkg/errors"
)

// AccountByStripeID loads a mirrored Connect account, nil when unknown.
func (s *Syncer) AccountByStripeID(ctx context.Context, stripeID string) (*models.Account, error) {
	return firstWhere[models.Account](ctx, s.db, "stripe_id = ?", stripeID)
}

// Account folds one Connect account payload into the mirror. The common
// subset is always applied; the legal entity, TOS and payout schedule blocks
// only exist on custom accounts.
func (s *Syncer) Account(ctx context.Context, p Payload) (*models.Account, error) {
	stripeID := str(p, "id")
	if stripeID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "account payload missing id")
	}

	account, _, err := getOrCreate(ctx, s.db, map[string]any{"stripe_id": stripeID}, func() *models.Account {
		return &models.Account{StripeID: stripeID, Authorized: true}
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "upserting account")
	}

	if has(p, "business_name") {
		account.BusinessName = str(p, "business_name")
	}
	if has(p, "business_url") {
		account.BusinessURL = str(p, "business_url")
	}
	if has(p, "charges_enabled") {
		account.ChargesEnabled = boolean(p, "charges_enabled")
	}
	if has(p, "country") {
		account.Country = str(p, "country")
	}
	if has(p, "default_currency") {
		account.DefaultCurrency = str(p, "default_currency")
	}
	if has(p, "details_submitted") {
		account.DetailsSubmitted = boolean(p, "details_submitted")
	}
	if has(p, "display_name") {
		account.DisplayName = str(p, "display_name")
	}
	if has(p, "email") {
		account.Email = str(p, "email")
	}
	if has(p, "type") {
		account.Type = str(p, "type")
	}
	if has(p, "statement_descriptor") {
		account.StatementDescriptor = str(p, "statement_descriptor")
	}
	if has(p, "support_email") {
		account.SupportEmail = str(p, "support_email")
	}
	if has(p, "support_phone") {
		account.SupportPhone = str(p, "support_phone")
	}
	if has(p, "timezone") {
		account.Timezone = str(p, "timezone")
	}
	if has(p, "payouts_enabled") {
		account.PayoutsEnabled = boolean(p, "payouts_enabled")
	}
	if has(p, "debit_negative_balances") {
		account.DebitNegativeBalances = boolean(p, "debit_negative_balances")
	}
	if has(p, "product_description") {
		account.ProductDescription = str(p, "product_description")
	}
	if has(p, "payout_statement_descriptor") {
		account.PayoutStatementDescriptor = str(p, "payout_statement_descriptor")
	}
	if has(p, "metadata") {
		account.Metadata = rawJSON(p, "metadata")
	}

	if account.Type == "custom" || boolean(p, "managed") {
		s.applyCustomAccountBlocks(account, p)
	}

	if err := s.db.WithContext(ctx).Save(account).Error; err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "saving account")
	}

	for _, ext := range objectList(p, "external_accounts") {
		if str(ext, "object") != "bank_account" {
			continue
		}
		if err := s.BankAccount(ctx, account, ext); err != nil {
			return nil, err
		}
	}
	return account, nil
}

func (s *Syncer) applyCustomAccountBlocks(account *models.Account, p Payload) {
	if entity := subObject(p, "legal_entity"); entity != nil {
		if address := subObject(entity, "address"); address != nil {
			account.LegalEntityAddressCity = strPtr(address, "city")
			account.LegalEntityAddressCountry = strPtr(address, "country")
			account.LegalEntityAddressLine1 = strPtr(address, "line1")
			account.LegalEntityAddressLine2 = strPtr(address, "line2")
			account.LegalEntityAddressPostalCode = strPtr(address, "postal_code")
			account.LegalEntityAddressState = strPtr(address, "state")
		}
		if dob := subObject(entity, "dob"); dob != nil {
			if y, okY := numeric(dob["year"]); okY {
				m, okM := numeric(dob["month"])
				d, okD := numeric(dob["day"])
				if okM && okD {
					t, err := parseDOB(y, m, d)
					if err == nil {
						account.LegalEntityDOB = &t
					}
				}
			} else {
				account.LegalEntityDOB = nil
			}
		}
		account.LegalEntityType = strPtr(entity, "type")
		account.LegalEntityFirstName = strPtr(entity, "first_name")
		account.LegalEntityLastName = strPtr(entity, "last_name")
		account.LegalEntityGender = strPtr(entity, "gender")
		account.LegalEntityMaidenName = strPtr(entity, "maiden_name")
		account.LegalEntityPhoneNumber = strPtr(entity, "phone_number")
		account.LegalEntityPersonalIDNumberProvided = boolean(entity, "personal_id_number_provided")
		account.LegalEntitySSNLast4Provided = boolean(entity, "ssn_last_4_provided")
		if verification := subObject(entity, "verification"); verification != nil {
			account.LegalEntityVerificationDetails = strPtr(verification, "details")
			account.LegalEntityVerificationDetailsCode = strPtr(verification, "details_code")
			account.LegalEntityVerificationDocument = strPtr(verification, "document")
			account.LegalEntityVerificationStatus = strPtr(verification, "status")
		}
	}

	if tos := subObject(p, "tos_acceptance"); tos != nil {
		account.TOSAcceptanceDate = currency.TimestampField(tos, "date")
		account.TOSAcceptanceIP = strPtr(tos, "ip")
		account.TOSAcceptanceUserAgent = strPtr(tos, "user_agent")
	}

	if declineOn := subObject(p, "decline_charge_on"); declineOn != nil {
		account.DeclineChargeOnAVSFailure = boolean(declineOn, "avs_failure")
		account.DeclineChargeOnCVCFailure = boolean(declineOn, "cvc_failure")
	}

	if schedule := subObject(p, "payout_schedule"); schedule != nil {
		account.PayoutScheduleInterval = strPtr(schedule, "interval")
		account.PayoutScheduleDelayDays = intPtr(schedule, "delay_days")
		account.PayoutScheduleWeeklyAnchor = strPtr(schedule, "weekly_anchor")
		account.PayoutScheduleMonthlyAnchor = intPtr(schedule, "monthly_anchor")
	}

	if verification := subObject(p, "verification"); verification != nil {
		account.VerificationDisabledReason = strPtr(verification, "disabled_reason")
		account.VerificationDueBy = currency.TimestampField(verification, "due_by")
		account.VerificationFieldsNeeded = rawJSON(verification, "fields_needed")
	}
}

// BankAccount folds one external bank account payload into the mirror.
func (s *Syncer) BankAccount(ctx context.Context, account *models.Account, p Payload) error {
	if account == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "bank account sync requires an account")
	}
	stripeID := str(p, "id")
	if stripeID == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "bank account payload missing id")
	}

	row, _, err := getOrCreate(ctx, s.db, map[string]any{"stripe_id": stripeID}, func() *models.BankAccount {
		return &models.BankAccount{StripeID: stripeID, AccountID: account.ID}
	})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "upserting bank account")
	}

	row.AccountID = account.ID
	if has(p, "account_holder_name") {
		row.AccountHolderName = str(p, "account_holder_name")
	}
	if has(p, "account_holder_type") {
		row.AccountHolderType = str(p, "account_holder_type")
	}
	if has(p, "bank_name") {
		row.BankName = str(p, "bank_name")
	}
	if has(p, "country") {
		row.Country = str(p, "country")
	}
	if has(p, "currency") {
		row.Currency = str(p, "currency")
	}
	if has(p, "default_for_currency") {
		row.DefaultForCurrency = boolean(p, "default_for_currency")
	}
	if has(p, "fingerprint") {
		row.Fingerprint = str(p, "fingerprint")
	}
	if has(p, "last4") {
		row.Last4 = str(p, "last4")
	}
	if has(p, "routing_number") {
		row.RoutingNumber = str(p, "routing_number")
	}
	if has(p, "status") {
		row.Status = str(p, "status")
	}

	if err := s.db.WithContext(ctx).Save(row).Error; err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "saving bank account")
	}
	return nil
}

// MarkAccountDeauthorized flags the account as no longer reachable with the
// platform credentials.
// DeleteBankAccount removes a mirrored external account, if present.
func (s *Syncer) DeleteBankAccount(ctx context.Context, stripeID string) error {
	if stripeID == "" {
		return nil
	}
	return s.db.WithContext(ctx).
		Where("stripe_id = ?", stripeID).
		Delete(&models.BankAccount{}).Error
}

func (s *Syncer) MarkAccountDeauthorized(ctx context.Context, stripeID string) error {
	if stripeID == "" {
		return nil
	}
	return s.db.WithContext(ctx).
		Model(&models.Account{}).
		Where("stripe_id = ?", stripeID).
		Updates(map[string]any{"authorized": false, "charges_enabled": false, "payouts_enabled": false}).
		Error
}

func parseDOB(year, month, day int64) (time.Time, error) {
	if month < 1 || month > 12 || day < 1 || day > 31 {
		return time.Time{}, fmt.Errorf("invalid dob %d-%d-%d", year, month, day)
	}
	return time.Date(int(year), time.Month(month), int(day), 0, 0, 0, 0, time.UTC), nil
}
