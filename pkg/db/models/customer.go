package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Customer mirrors a Stripe customer. The user reference is an opaque host
// application identifier; purging clears it while the stripe_id is retained
// forever so later webhooks for the same customer still resolve.
type Customer struct {
	ID             uuid.UUID        `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	StripeID       string           `gorm:"column:stripe_id;not null;unique"`
	UserRef        *string          `gorm:"column:user_ref;index"`
	AccountBalance *decimal.Decimal `gorm:"column:account_balance;type:numeric(11,2)"`
	Currency       string           `gorm:"column:currency;default:''"`
	Delinquent     bool             `gorm:"column:delinquent;not null;default:false"`
	DefaultSource  string           `gorm:"column:default_source;default:''"`
	DatePurged     *time.Time       `gorm:"column:date_purged"`
	CreatedAt      time.Time        `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time        `gorm:"column:updated_at;autoUpdateTime"`
}

// CanCharge reports whether the customer has a chargeable source and has not
// been purged.
func (c *Customer) CanCharge() bool {
	return c.DatePurged == nil && c.DefaultSource != ""
}

// Card mirrors a tokenized card source owned by a customer. Raw credentials
// never land here; Stripe tokenizes them upstream.
type Card struct {
	ID                uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	StripeID          string    `gorm:"column:stripe_id;not null;unique"`
	CustomerID        uuid.UUID `gorm:"column:customer_id;type:uuid;not null;index"`
	Name              string    `gorm:"column:name;default:''"`
	AddressLine1      string    `gorm:"column:address_line_1;default:''"`
	AddressLine1Check string    `gorm:"column:address_line_1_check;default:''"`
	AddressLine2      string    `gorm:"column:address_line_2;default:''"`
	AddressCity       string    `gorm:"column:address_city;default:''"`
	AddressState      string    `gorm:"column:address_state;default:''"`
	AddressCountry    string    `gorm:"column:address_country;default:''"`
	AddressZip        string    `gorm:"column:address_zip;default:''"`
	AddressZipCheck   string    `gorm:"column:address_zip_check;default:''"`
	Brand             string    `gorm:"column:brand"`
	Country           string    `gorm:"column:country"`
	CVCCheck          string    `gorm:"column:cvc_check"`
	DynamicLast4      string    `gorm:"column:dynamic_last4;default:''"`
	ExpMonth          int       `gorm:"column:exp_month"`
	ExpYear           int       `gorm:"column:exp_year"`
	Funding           string    `gorm:"column:funding;default:''"`
	Last4             string    `gorm:"column:last4;default:''"`
	Fingerprint       string    `gorm:"column:fingerprint;default:''"`
	CreatedAt         time.Time `gorm:"column:created_at;autoCreateTime"`
}

// BitcoinReceiver mirrors a bitcoin payment source.
type BitcoinReceiver struct {
	ID                    uuid.UUID        `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	StripeID              string           `gorm:"column:stripe_id;not null;unique"`
	CustomerID            uuid.UUID        `gorm:"column:customer_id;type:uuid;not null;index"`
	Active                bool             `gorm:"column:active;not null;default:false"`
	Amount                decimal.Decimal  `gorm:"column:amount;type:numeric(9,2)"`
	AmountReceived        *decimal.Decimal `gorm:"column:amount_received;type:numeric(9,2)"`
	BitcoinAmount         int64            `gorm:"column:bitcoin_amount"`
	BitcoinAmountReceived int64            `gorm:"column:bitcoin_amount_received;default:0"`
	BitcoinURI            string           `gorm:"column:bitcoin_uri;default:''"`
	Currency              string           `gorm:"column:currency;default:'usd'"`
	Description           string           `gorm:"column:description;default:''"`
	Email                 string           `gorm:"column:email;default:''"`
	Filled                bool             `gorm:"column:filled;not null;default:false"`
	InboundAddress        string           `gorm:"column:inbound_address;default:''"`
	Payment               string           `gorm:"column:payment;default:''"`
	RefundAddress         string           `gorm:"column:refund_address;default:''"`
	UncapturedFunds       bool             `gorm:"column:uncaptured_funds;not null;default:false"`
	UsedForPayment        bool             `gorm:"column:used_for_payment;not null;default:false"`
	CreatedAt             time.Time        `gorm:"column:created_at;autoCreateTime"`
}
