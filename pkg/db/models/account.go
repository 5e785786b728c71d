package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Account mirrors a Stripe Connect account. Standard and express accounts
// only expose the common subset; custom (managed) accounts carry the full
// legal entity, verification and payout schedule blocks.
type Account struct {
	ID       uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	StripeID string    `gorm:"column:stripe_id;not null;unique"`
	UserRef  *string   `gorm:"column:user_ref;index"`

	BusinessName        string `gorm:"column:business_name;default:''"`
	BusinessURL         string `gorm:"column:business_url;default:''"`
	ChargesEnabled      bool   `gorm:"column:charges_enabled;not null;default:false"`
	Country             string `gorm:"column:country"`
	DefaultCurrency     string `gorm:"column:default_currency;default:''"`
	DetailsSubmitted    bool   `gorm:"column:details_submitted;not null;default:false"`
	DisplayName         string `gorm:"column:display_name;default:''"`
	Email               string `gorm:"column:email;default:''"`
	Type                string `gorm:"column:type"`
	StatementDescriptor string `gorm:"column:statement_descriptor;default:''"`
	SupportEmail        string `gorm:"column:support_email;default:''"`
	SupportPhone        string `gorm:"column:support_phone;default:''"`
	Timezone            string `gorm:"column:timezone;default:''"`
	PayoutsEnabled      bool   `gorm:"column:payouts_enabled;not null;default:false"`
	Authorized          bool   `gorm:"column:authorized;not null;default:true"`

	DebitNegativeBalances     bool            `gorm:"column:debit_negative_balances;not null;default:false"`
	ProductDescription        string          `gorm:"column:product_description;default:''"`
	PayoutStatementDescriptor string          `gorm:"column:payout_statement_descriptor;default:''"`
	Metadata                  json.RawMessage `gorm:"column:metadata;type:jsonb"`

	LegalEntityAddressCity              *string    `gorm:"column:legal_entity_address_city"`
	LegalEntityAddressCountry           *string    `gorm:"column:legal_entity_address_country"`
	LegalEntityAddressLine1             *string    `gorm:"column:legal_entity_address_line1"`
	LegalEntityAddressLine2             *string    `gorm:"column:legal_entity_address_line2"`
	LegalEntityAddressPostalCode        *string    `gorm:"column:legal_entity_address_postal_code"`
	LegalEntityAddressState             *string    `gorm:"column:legal_entity_address_state"`
	LegalEntityDOB                      *time.Time `gorm:"column:legal_entity_dob"`
	LegalEntityType                     *string    `gorm:"column:legal_entity_type"`
	LegalEntityFirstName                *string    `gorm:"column:legal_entity_first_name"`
	LegalEntityLastName                 *string    `gorm:"column:legal_entity_last_name"`
	LegalEntityGender                   *string    `gorm:"column:legal_entity_gender"`
	LegalEntityMaidenName               *string    `gorm:"column:legal_entity_maiden_name"`
	LegalEntityPhoneNumber              *string    `gorm:"column:legal_entity_phone_number"`
	LegalEntityPersonalIDNumberProvided bool       `gorm:"column:legal_entity_personal_id_number_provided;not null;default:false"`
	LegalEntitySSNLast4Provided         bool       `gorm:"column:legal_entity_ssn_last_4_provided;not null;default:false"`
	LegalEntityVerificationDetails      *string    `gorm:"column:legal_entity_verification_details"`
	LegalEntityVerificationDetailsCode  *string    `gorm:"column:legal_entity_verification_details_code"`
	LegalEntityVerificationDocument     *string    `gorm:"column:legal_entity_verification_document"`
	LegalEntityVerificationStatus       *string    `gorm:"column:legal_entity_verification_status"`

	TOSAcceptanceDate      *time.Time `gorm:"column:tos_acceptance_date"`
	TOSAcceptanceIP        *string    `gorm:"column:tos_acceptance_ip"`
	TOSAcceptanceUserAgent *string    `gorm:"column:tos_acceptance_user_agent"`

	DeclineChargeOnAVSFailure bool `gorm:"column:decline_charge_on_avs_failure;not null;default:false"`
	DeclineChargeOnCVCFailure bool `gorm:"column:decline_charge_on_cvc_failure;not null;default:false"`

	PayoutScheduleInterval      *string `gorm:"column:payout_schedule_interval"`
	PayoutScheduleDelayDays     *int    `gorm:"column:payout_schedule_delay_days"`
	PayoutScheduleWeeklyAnchor  *string `gorm:"column:payout_schedule_weekly_anchor"`
	PayoutScheduleMonthlyAnchor *int    `gorm:"column:payout_schedule_monthly_anchor"`

	VerificationDisabledReason *string         `gorm:"column:verification_disabled_reason"`
	VerificationDueBy          *time.Time      `gorm:"column:verification_due_by"`
	VerificationFieldsNeeded   json.RawMessage `gorm:"column:verification_fields_needed;type:jsonb"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// FieldsNeeded decodes the pending verification field names.
func (a *Account) FieldsNeeded() []string {
	if len(a.VerificationFieldsNeeded) == 0 {
		return nil
	}
	var fields []string
	if err := json.Unmarshal(a.VerificationFieldsNeeded, &fields); err != nil {
		return nil
	}
	return fields
}

// BankAccount mirrors an external bank account attached to a Connect account.
// At most one per (account, currency) is the default for that currency.
type BankAccount struct {
	ID                 uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	StripeID           string    `gorm:"column:stripe_id;not null;unique"`
	AccountID          uuid.UUID `gorm:"column:account_id;type:uuid;not null;index"`
	AccountHolderName  string    `gorm:"column:account_holder_name;default:''"`
	AccountHolderType  string    `gorm:"column:account_holder_type;default:''"`
	BankName           string    `gorm:"column:bank_name;default:''"`
	Country            string    `gorm:"column:country"`
	Currency           string    `gorm:"column:currency"`
	DefaultForCurrency bool      `gorm:"column:default_for_currency;not null;default:false"`
	Fingerprint        string    `gorm:"column:fingerprint;default:''"`
	Last4              string    `gorm:"column:last4;default:''"`
	RoutingNumber      string    `gorm:"column:routing_number;default:''"`
	Status             string    `gorm:"column:status;default:''"`
	CreatedAt          time.Time `gorm:"column:created_at;autoCreateTime"`
}
